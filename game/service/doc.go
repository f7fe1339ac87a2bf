// Package service provides the business logic layer for Goodie Grid.
//
// GameService is the single entry point transports use. It owns session
// isolation, scenario lookup, saved games and move history paging; the
// engine underneath knows nothing about sessions or storage.
//
// Every operation runs under one service-wide lock, so each game sees one
// command at a time no matter how many transports are attached. Events the
// engine raises while an operation runs are buffered on the Session and
// returned with the operation's result, which lets the HTTP layer forward
// them to websocket clients.
//
// Usage:
//
//	store, _ := storage.NewFileStore("data")
//	configs, _ := config.NewManager("configs")
//	codec, _ := session.NewCodec("json")
//	sessions := session.NewManagerWithPersistence(session.NewStorePersistence(store, codec, configs))
//	svc := service.NewGameService(sessions, configs, store)
//
//	info, err := svc.CreateSession(ctx, "classic")
//	if err != nil {
//		return err
//	}
//	res, err := svc.Move(ctx, info.ID, "right", false)
//
// Saved games live in the store under "<session>/gameState" and hold the
// snapshot text produced by the engine.
package service
