// Package config provides scenario management for Goodie Grid.
//
// Scenarios are JSON or YAML files in a config directory. The file name
// without extension is the config ID used when creating sessions, so
// "picnic.yaml" is loaded as "picnic". A scenario sets the energy rules, the
// board size, batches of goodies to scatter and the starting players:
//
//	name: picnic
//	move_energy: 10
//	board: {width: 8, height: 6}
//	goodies:
//	  - {count: 5, type: sandwich, energy: 30}
//	players:
//	  - {name: Alice, type: knight, position: {x: 0, y: 0}}
//
// Loaded scenarios are validated and cached. The "classic" scenario is built
// in and served even when no file provides it.
package config
