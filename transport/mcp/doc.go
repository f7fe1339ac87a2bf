// Package mcp exposes Goodie Grid to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API and the JSON answer is rendered as text an agent can read, including
// an ASCII board where '.' is an empty tile, '*' a goodie, '@' the active
// player and digits the other players.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - game_state, describe_tile, move_history
//   - move, move_to, bulk_move, reset_game
//   - create_board, add_goodies, add_player, set_active_player
//   - save_game, load_game
//   - list_configs, game_instructions
//
// Transport Modes:
//   - Stdio: ServeStdio for local MCP clients
//   - HTTP: GetMCPServer().HandleMessage behind an HTTP endpoint
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.ServeStdio(); err != nil {
//		log.Fatal(err)
//	}
package mcp
