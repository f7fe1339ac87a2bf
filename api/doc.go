// Package api provides the REST API for Goodie Grid.
//
// Endpoints:
//
//	POST   /api/sessions                      create a session (config_id)
//	GET    /api/sessions                      list sessions (sort, order, limit)
//	GET    /api/sessions/unified              sessions side by side
//	GET    /api/sessions/{id}                 session info
//	DELETE /api/sessions/{id}                 delete a session and its save
//	POST   /api/sessions/{id}/board           new empty board {width, height}
//	POST   /api/sessions/{id}/goodies         {count, type, energy, sound} or {position}
//	POST   /api/sessions/{id}/players         {name, type, position}
//	PUT    /api/sessions/{id}/active-player   {index}
//	GET    /api/sessions/{id}/state           current GameState
//	POST   /api/sessions/{id}/move            {direction, reset} or {dx, dy}
//	POST   /api/sessions/{id}/move-to         {x, y}
//	POST   /api/sessions/{id}/bulk-move       {moves, reset}
//	POST   /api/sessions/{id}/reset           replay the scenario
//	GET    /api/sessions/{id}/history         page, limit, order
//	POST   /api/sessions/{id}/save            save to the store
//	POST   /api/sessions/{id}/load            body snapshot, or the last save
//	GET    /api/sessions/{id}/snapshot        download the snapshot
//	GET    /api/configs                       list scenarios
//	POST   /api/configs                       save a scenario
//	GET    /api/configs/{name}                one scenario
//	GET    /api/schema/snapshot               JSON schema of snapshots
//	GET    /api/health                        liveness
//	GET    /ws?session={id}                   websocket updates
//
// Errors are returned as {"error": "..."}. A full board is 409, as is any
// operation the game phase does not allow. Bad dimensions, indexes and
// snapshots are 400 and unknown sessions, scenarios or saves are 404.
//
// Every successful state change is published to the session's websocket
// clients along with the engine events it raised.
package api
