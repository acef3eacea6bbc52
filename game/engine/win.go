package engine

// WinPredicate inspects committed state and reports whether the game ended.
// winner is 0 when the game ended without a single winner.
type WinPredicate func(data GameStateData) (winner int, over bool)

// NeverWins keeps the game open until it is abandoned
func NeverWins(GameStateData) (int, bool) {
	return 0, false
}

// HeightWins ends the game once a player stands at height or above.
// Ties go to the lowest player id.
func HeightWins(height int) WinPredicate {
	return func(data GameStateData) (int, bool) {
		for _, p := range data.Players {
			if p.Position.Y >= height {
				return p.ID, true
			}
		}
		return 0, false
	}
}

// MoveLimitWins ends the game once the history holds limit records; the
// highest standing player wins.
func MoveLimitWins(limit int) WinPredicate {
	return func(data GameStateData) (int, bool) {
		if len(data.MoveHistory) < limit {
			return 0, false
		}
		winner, best := 0, -1
		for _, p := range data.Players {
			if p.Position.Y > best {
				winner, best = p.ID, p.Position.Y
			}
		}
		return winner, true
	}
}

// WinPredicateFor selects the predicate named by a rule set
func WinPredicateFor(cfg WinConditionConfig) WinPredicate {
	switch cfg.Type {
	case WinHeight:
		return HeightWins(cfg.Value)
	case WinMoveLimit:
		return MoveLimitWins(cfg.Value)
	default:
		return NeverWins
	}
}
