// Package websocket pushes game updates to browser clients.
//
// A Hub keeps the connected clients grouped by session ID. Clients pick the
// session with the sessionId query parameter when they connect and only
// receive messages for that session. The socket is one way: commands go
// through the REST API, and every state change there is published here as
// a state_update message carrying the new GameState and the engine events
// that produced it.
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	hub.Publish(sessionID, state, events)
//
// Events such as goodie_consumed carry remove_after_ms so the client can
// keep the consumed goodie on screen briefly before removing it.
//
// Slow clients whose send buffer fills up are disconnected instead of
// blocking the publisher.
package websocket
