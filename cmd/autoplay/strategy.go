package main

import (
	"github.com/wricardo/cubeclash/game/engine"
)

// ClimberStrategy builds a staircase next to the player and walks up it.
// Every turn it climbs if any move target is higher than where the player
// stands, then lays a cube that is one step above the player's feet.
type ClimberStrategy struct{}

// ChooseMove picks the highest move target above current. The first target
// in the server's order wins ties. ok is false when no target gains height.
func (ClimberStrategy) ChooseMove(current engine.Position, targets []engine.Position) (engine.Position, bool) {
	var best engine.Position
	found := false
	for _, t := range targets {
		if t.Y <= current.Y {
			continue
		}
		if !found || t.Y > best.Y {
			best, found = t, true
		}
	}
	return best, found
}

// ChooseBuild picks a build target next to current, preferring in order:
//   - a cube level with the player's feet, which makes a one-step climb
//   - the tallest cube still below the player
//   - the lowest cube above the player
//
// ok is false when no target is adjacent.
func (ClimberStrategy) ChooseBuild(current engine.Position, targets []engine.Position) (engine.Position, bool) {
	var best engine.Position
	bestScore := -1
	for _, t := range targets {
		if !engine.IsAdjacent(current, t) {
			continue
		}
		score := buildScore(current.Y, t.Y)
		if score > bestScore {
			best, bestScore = t, score
		}
	}
	return best, bestScore >= 0
}

func buildScore(feet, y int) int {
	switch {
	case y == feet:
		return 1 << 20
	case y < feet:
		return 1<<10 + y
	default:
		return 1<<10 - y
	}
}
