package main

import (
	"sort"

	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
)

// PlanRoute orders the goodies the active player can eat one after another.
// Each step picks the nearest goodie still reachable on the energy the
// player would have at that point, preferring richer goodies on ties. The
// route ends when nothing else is reachable.
func PlanRoute(state *engine.GameState) []engine.GoodieView {
	player, ok := engine.ActivePlayerView(state)
	if !ok || player.Defeated {
		return nil
	}

	remaining := append([]engine.GoodieView(nil), state.Goodies...)
	sort.Slice(remaining, func(i, j int) bool {
		a, b := remaining[i].Position, remaining[j].Position
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	health := player.Health
	pos := player.Position
	var route []engine.GoodieView

	for len(remaining) > 0 && health > 0 {
		moves := engine.MovesLeft(health, state.MoveEnergy)
		best := -1
		bestDistance := 0
		for i, g := range remaining {
			distance := engine.ManhattanDistance(pos, g.Position)
			if moves >= 0 && distance > moves {
				continue
			}
			if best == -1 || distance < bestDistance ||
				(distance == bestDistance && g.Value > remaining[best].Value) {
				best = i
				bestDistance = distance
			}
		}
		if best == -1 {
			break
		}

		next := remaining[best]
		health += next.Value - bestDistance*state.MoveEnergy
		pos = next.Position
		route = append(route, next)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return route
}

// PathTo returns the single-tile moves from one tile to another, columns
// first
func PathTo(from, to engine.Position) []string {
	var path []string
	for x := from.X; x < to.X; x++ {
		path = append(path, engine.DirRight)
	}
	for x := from.X; x > to.X; x-- {
		path = append(path, engine.DirLeft)
	}
	for y := from.Y; y < to.Y; y++ {
		path = append(path, engine.DirDown)
	}
	for y := from.Y; y > to.Y; y-- {
		path = append(path, engine.DirUp)
	}
	return path
}

// NextMoves returns up to limit moves towards the first goodie of the
// planned route. With nothing reachable it heads for the nearest goodie
// anyway, since standing still never restores energy.
func NextMoves(state *engine.GameState, limit int) []string {
	player, ok := engine.ActivePlayerView(state)
	if !ok || player.Defeated {
		return nil
	}

	var target engine.Position
	if route := PlanRoute(state); len(route) > 0 {
		target = route[0].Position
	} else if nearest, _, found := engine.FindNearestGoodie(state); found {
		target = nearest.Position
	} else {
		return nil
	}

	path := PathTo(player.Position, target)
	if limit > 0 && len(path) > limit {
		path = path[:limit]
	}
	return path
}
