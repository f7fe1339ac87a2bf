package engine

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// ActivePlayerView returns the view of the active player, if any
func ActivePlayerView(state *GameState) (PlayerView, bool) {
	if state.ActivePlayer < 0 || state.ActivePlayer >= len(state.Players) {
		return PlayerView{}, false
	}
	return state.Players[state.ActivePlayer], true
}

// FindNearestGoodie finds the goodie closest to the active player and returns
// it with its distance
func FindNearestGoodie(state *GameState) (GoodieView, int, bool) {
	player, ok := ActivePlayerView(state)
	if !ok {
		return GoodieView{}, 0, false
	}

	minDistance := -1
	var nearest GoodieView
	for _, goodie := range state.Goodies {
		distance := ManhattanDistance(player.Position, goodie.Position)
		if minDistance == -1 || distance < minDistance {
			minDistance = distance
			nearest = goodie
		}
	}
	if minDistance == -1 {
		return GoodieView{}, 0, false
	}
	return nearest, minDistance, true
}

// TotalGoodieValue sums the energy of every goodie left on the board
func TotalGoodieValue(state *GameState) int {
	total := 0
	for _, goodie := range state.Goodies {
		total += goodie.Value
	}
	return total
}

// MovesLeft returns how many moves the health allows without eating
func MovesLeft(health, moveEnergy int) int {
	if health <= 0 {
		return 0
	}
	if moveEnergy <= 0 {
		return -1
	}
	return (health + moveEnergy - 1) / moveEnergy
}

// AnalyzeEnergyRisk assesses how close the active player is to being
// defeated, given the distance to the nearest goodie
func AnalyzeEnergyRisk(state *GameState) string {
	player, ok := ActivePlayerView(state)
	if !ok {
		return "NONE: No active player"
	}
	if player.Health <= 0 {
		return "CRITICAL: Player defeated!"
	}

	moves := MovesLeft(player.Health, state.MoveEnergy)
	if moves < 0 {
		return "SAFE: Moves are free"
	}

	_, distance, found := FindNearestGoodie(state)
	if !found {
		return "WARNING: No goodies left on the board!"
	}

	if moves < distance {
		return "DANGER: Not enough energy to reach the nearest goodie!"
	} else if moves <= distance+1 {
		return "CAUTION: Low energy, head for food"
	} else if player.Health <= state.StartEnergy/3 {
		return "LOW: Consider eating soon"
	}
	return "SAFE: Energy sufficient"
}
