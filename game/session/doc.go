// Package session provides session management for Goodie Grid.
//
// Each session owns one independent game built from a scenario. The Manager
// keeps sessions in memory under case-insensitive 4-character IDs and, when
// given a SessionPersistence, writes them through to a key-value store so a
// restarted server picks them up again.
//
// Persistence:
//
// StorePersistence stores every session under "sessions/<id>" in a
// storage.Store. The stored record holds the game snapshot, the move
// history and the scenario ID; the scenario is loaded again on restore for
// the energy rules. Records are encoded with a Codec: JSONCodec for
// readable files or MsgpackCodec for compact ones.
//
// Usage:
//
//	store, _ := storage.NewFileStore("data")
//	persistence := session.NewStorePersistence(store, session.MsgpackCodec{}, configs)
//	manager := session.NewManagerWithPersistence(persistence)
//	sess, err := manager.Create("", "classic", configs.GetDefault())
package session
