package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
	"github.com/wricardo/mcp-training/goodiegrid/game/service"
)

// renderBoard draws the board one row per line. '.' is empty, '*' a goodie,
// '@' the active player and digits the other players.
func renderBoard(state *engine.GameState) string {
	if state == nil || state.Width <= 0 || state.Height <= 0 {
		return "(no board)\n"
	}

	rows := make([][]byte, state.Height)
	for y := range rows {
		rows[y] = []byte(strings.Repeat(".", state.Width))
	}
	inBounds := func(p engine.Position) bool {
		return p.X >= 0 && p.X < state.Width && p.Y >= 0 && p.Y < state.Height
	}
	for _, g := range state.Goodies {
		if inBounds(g.Position) {
			rows[g.Position.Y][g.Position.X] = '*'
		}
	}
	for _, p := range state.Players {
		if !inBounds(p.Position) {
			continue
		}
		mark := byte('0' + p.Index%10)
		if p.Active {
			mark = '@'
		}
		rows[p.Position.Y][p.Position.X] = mark
	}

	var b strings.Builder
	for _, row := range rows {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}

func goodieLabel(g engine.GoodieView) string {
	if g.Visual != "" {
		return g.Visual
	}
	return string(g.Kind)
}

// formatGameState formats the game state for display
func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Board: %dx%d (%s)\n", state.Width, state.Height, state.Phase)
	b.WriteString(renderBoard(state))
	b.WriteString("\n")

	if player, ok := engine.ActivePlayerView(state); ok {
		fmt.Fprintf(&b, "Active: %s (#%d) at (%d,%d), energy %d", player.Name, player.Index, player.Position.X, player.Position.Y, player.Health)
		if moves := engine.MovesLeft(player.Health, state.MoveEnergy); moves >= 0 {
			fmt.Fprintf(&b, ", %d moves left", moves)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Active: none\n")
	}

	for _, p := range state.Players {
		if p.Active {
			continue
		}
		status := ""
		if p.Defeated {
			status = " DEFEATED"
		}
		fmt.Fprintf(&b, "Player %d: %s at (%d,%d), energy %d%s\n", p.Index, p.Name, p.Position.X, p.Position.Y, p.Health, status)
	}

	fmt.Fprintf(&b, "Goodies left: %d (worth %d)\n", len(state.Goodies), engine.TotalGoodieValue(state))
	if goodie, distance, ok := engine.FindNearestGoodie(state); ok {
		fmt.Fprintf(&b, "Nearest goodie: %s at (%d,%d), %d moves away\n", goodieLabel(goodie), goodie.Position.X, goodie.Position.Y, distance)
	}
	fmt.Fprintf(&b, "Energy risk: %s\n", engine.AnalyzeEnergyRisk(state))
	fmt.Fprintf(&b, "Move cost: %d, total moves: %d\n", state.MoveEnergy, state.TotalMoves)
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}
	return b.String()
}

// formatMoveResult formats a move result for display
func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	m := result.Move
	if result.Success {
		fmt.Fprintf(&b, "✅ %s: (%d,%d) -> (%d,%d), energy %d -> %d\n",
			m.Action, m.From.X, m.From.Y, m.To.X, m.To.Y, m.HealthBefore, m.HealthAfter)
		if m.Consumed != nil {
			fmt.Fprintf(&b, "Ate %s worth %d\n", goodieLabel(*m.Consumed), m.Consumed.Value)
		}
	} else {
		fmt.Fprintf(&b, "❌ %s: %s\n", m.Action, result.Message)
	}
	if result.EnergyRisk != "" {
		fmt.Fprintf(&b, "Risk: %s\n", result.EnergyRisk)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

// formatBulkMoveResult formats a bulk move result for display
func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s: executed %d of %d moves\n", sessionID, result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, "Only the first %d moves were used\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d: %s\n", result.StoppedOnMove, result.StoppedReason)
	}
	fmt.Fprintf(&b, "Position: (%d,%d) -> (%d,%d)\n", result.StartPos.X, result.StartPos.Y, result.EndPos.X, result.EndPos.Y)
	fmt.Fprintf(&b, "Energy: %d -> %d\n", result.StartHealth, result.EndHealth)
	if result.Consumed > 0 {
		fmt.Fprintf(&b, "Goodies eaten: %d\n", result.Consumed)
	}
	if result.Defeated {
		b.WriteString("💀 Player defeated\n")
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

// formatActionResult formats a board setup or load result for display
func formatActionResult(result *service.ActionResult) string {
	return fmt.Sprintf("%s\n\n%s", result.Message, formatGameState(result.GameState))
}

// formatHistory formats move history for display
func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d, Total: %d moves)\n\n", history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		status := "✅"
		if !move.Success {
			status = "❌"
		}
		fmt.Fprintf(&b, "%d. %s %s %s: (%d,%d) -> (%d,%d) - Energy: %d",
			move.MoveNumber, status, move.Player, move.Action,
			move.FromPosition.X, move.FromPosition.Y,
			move.ToPosition.X, move.ToPosition.Y,
			move.Health)
		if move.Consumed != "" {
			b.WriteString(" - ate a goodie")
		}
		b.WriteString("\n")
	}

	if history.HasNext {
		b.WriteString("\n(More moves available on next page)")
	}
	return b.String()
}

// formatSessionInfo formats session info for display
func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast Accessed: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		session.LastAccessedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

// describeTile reports what is on (x, y)
func describeTile(state *engine.GameState, x, y int) string {
	pos := engine.Position{X: x, Y: y}
	var parts []string
	for _, g := range state.Goodies {
		if g.Position == pos {
			parts = append(parts, fmt.Sprintf("goodie: %s worth %d energy", goodieLabel(g), g.Value))
		}
	}
	for _, p := range state.Players {
		if p.Position == pos {
			desc := fmt.Sprintf("player: %s (#%d), energy %d", p.Name, p.Index, p.Health)
			if p.Active {
				desc += ", active"
			}
			parts = append(parts, desc)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Tile (%d,%d) is empty", x, y)
	}

	desc := fmt.Sprintf("Tile (%d,%d):\n- %s", x, y, strings.Join(parts, "\n- "))
	if player, ok := engine.ActivePlayerView(state); ok && player.Position != pos {
		desc += fmt.Sprintf("\n%d moves from the active player", engine.ManhattanDistance(player.Position, pos))
	}
	return desc
}
