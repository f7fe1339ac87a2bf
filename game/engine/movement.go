package engine

import (
	"fmt"
	"time"
)

// Reasons a move attempt did not change state
const (
	ReasonNoActivePlayer   = "no_active_player"
	ReasonOutOfBounds      = "out_of_bounds"
	ReasonDefeated         = "defeated"
	ReasonBlocked          = "blocked"
	ReasonInvalidDirection = "invalid_direction"
)

// MoveResult describes the outcome of one move attempt
type MoveResult struct {
	Action       string      `json:"action"`
	Moved        bool        `json:"moved"`
	Reason       string      `json:"reason,omitempty"`
	From         Position    `json:"from"`
	To           Position    `json:"to"`
	HealthBefore int         `json:"health_before"`
	HealthAfter  int         `json:"health_after"`
	Consumed     *GoodieView `json:"consumed,omitempty"`
}

// MoveLeft turns the active player left and moves it one tile
func (g *Game) MoveLeft() (MoveResult, error) { return g.Move(DirLeft) }

// MoveRight turns the active player right and moves it one tile
func (g *Game) MoveRight() (MoveResult, error) { return g.Move(DirRight) }

// MoveUp turns the active player up and moves it one tile
func (g *Game) MoveUp() (MoveResult, error) { return g.Move(DirUp) }

// MoveDown turns the active player down and moves it one tile
func (g *Game) MoveDown() (MoveResult, error) { return g.Move(DirDown) }

// Move turns the active player towards direction and moves it one tile
func (g *Game) Move(direction string) (MoveResult, error) {
	dx, dy, ok := DirectionDelta(direction)
	if !ok {
		result := MoveResult{Action: direction, Reason: ReasonInvalidDirection}
		if g.opts.Strict {
			return result, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
		}
		return result, nil
	}
	if player := g.ActivePlayer(); player != nil {
		player.Face(direction)
	}
	return g.moveBy(direction, dx, dy)
}

// MovePlayer moves the active player by a tile delta
func (g *Game) MovePlayer(dx, dy int) (MoveResult, error) {
	return g.moveBy(fmt.Sprintf("delta(%d,%d)", dx, dy), dx, dy)
}

func (g *Game) moveBy(action string, dx, dy int) (MoveResult, error) {
	player := g.ActivePlayer()
	if player == nil {
		return g.refuse(MoveResult{Action: action, Reason: ReasonNoActivePlayer}, ErrNoActivePlayer)
	}
	target := player.Position().Add(dx, dy)
	return g.moveTo(action, target.X, target.Y)
}

// MovePlayerTo moves the active player to (x, y). Out-of-bounds targets and
// defeated players leave the game unchanged; with Options.Strict the call
// also returns an error.
func (g *Game) MovePlayerTo(x, y int) (MoveResult, error) {
	return g.moveTo(fmt.Sprintf("to(%d,%d)", x, y), x, y)
}

func (g *Game) moveTo(action string, x, y int) (MoveResult, error) {
	player := g.ActivePlayer()
	if player == nil {
		return g.refuse(MoveResult{Action: action, Reason: ReasonNoActivePlayer}, ErrNoActivePlayer)
	}

	from := player.Position()
	result := MoveResult{
		Action:       action,
		From:         from,
		To:           from,
		HealthBefore: player.Health(),
		HealthAfter:  player.Health(),
	}

	if g.grid == nil || !g.grid.InBounds(x, y) {
		result.Reason = ReasonOutOfBounds
		g.recordMove(player, result)
		return g.refuse(result, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y))
	}
	if player.Defeated() {
		result.Reason = ReasonDefeated
		g.recordMove(player, result)
		return g.refuse(result, fmt.Errorf("%w: %s has %d health", ErrPlayerDefeated, player.Name, player.Health()))
	}

	goodie := g.grid.Get(x, y)
	if goodie != nil && goodie.Kind != Food {
		result.Reason = ReasonBlocked
		g.recordMove(player, result)
		return result, nil
	}

	player.ApplyEnergyDelta(-g.opts.MoveEnergy)
	if goodie != nil {
		player.ApplyEnergyDelta(goodie.Value)
	}
	player.MoveTo(x, y)

	result.Moved = true
	result.To = player.Position()
	result.HealthAfter = player.Health()

	if goodie != nil {
		// Tile and collection change together so no caller ever sees one
		// without the other.
		g.grid.Set(x, y, nil)
		goodie.Consume()
		g.removeGoodie(goodie)
		view := goodie.view()
		result.Consumed = &view
	}

	g.recordMove(player, result)

	to := result.To
	g.emit(Event{
		Type:     EventPlayerMoved,
		Message:  fmt.Sprintf("%s moved to (%d,%d), health %d", player.Name, x, y, player.Health()),
		Position: &to,
		PlayerID: player.ID,
		Health:   player.Health(),
	})
	if goodie != nil {
		g.emit(Event{
			Type:          EventGoodieConsumed,
			Message:       fmt.Sprintf("%s ate a goodie worth %d", player.Name, goodie.Value),
			Position:      &to,
			PlayerID:      player.ID,
			GoodieID:      goodie.ID,
			Health:        player.Health(),
			RemoveAfterMS: ConsumeDelay.Milliseconds(),
		})
	}
	return result, nil
}

// refuse returns result unchanged, with err attached only in strict mode
func (g *Game) refuse(result MoveResult, err error) (MoveResult, error) {
	if g.opts.Strict {
		return result, err
	}
	return result, nil
}

// BulkMove executes moves in sequence and stops once the active player is
// defeated or a strict-mode error occurs
func (g *Game) BulkMove(directions []string) ([]MoveResult, error) {
	results := make([]MoveResult, 0, len(directions))
	for _, direction := range directions {
		if player := g.ActivePlayer(); player == nil || player.Defeated() {
			break
		}
		result, err := g.Move(direction)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// recordMove appends a move attempt to the history, dropping the oldest
// entries past MaxHistory. Only moves that changed position count towards
// totalMoves.
func (g *Game) recordMove(player *Player, result MoveResult) {
	g.attempts++
	entry := MoveHistoryEntry{
		Action:       result.Action,
		Player:       player.Name,
		FromPosition: result.From,
		ToPosition:   result.To,
		Health:       player.Health(),
		Timestamp:    time.Now().Unix(),
		Success:      result.Moved,
		MoveNumber:   g.attempts,
	}
	if result.Consumed != nil {
		entry.Consumed = result.Consumed.ID
	}
	g.history = append(g.history, entry)
	if over := len(g.history) - MaxHistory; over > 0 {
		g.history = append([]MoveHistoryEntry(nil), g.history[over:]...)
	}
	if result.Moved {
		g.totalMoves++
	}
}
