package engine

// MoveStrategy implements height-aware lateral movement
type MoveStrategy struct {
	board *Board
	rules Rules
}

// NewMoveStrategy creates a move strategy over board
func NewMoveStrategy(board *Board, rules Rules) *MoveStrategy {
	return &MoveStrategy{board: board, rules: rules}
}

func (s *MoveStrategy) Type() ActionType {
	return ActionMove
}

// ValidTargets returns one candidate per allowed direction that passes the
// bounds, occupancy and height checks
func (s *MoveStrategy) ValidTargets(source Position) []Position {
	targets := []Position{}
	for _, d := range s.rules.Directions {
		target := source.Add(d)
		if !s.board.InBounds(target.X, target.Z) {
			continue
		}
		target.Y = s.board.SurfaceHeight(target.X, target.Z)
		if s.check(source, target) == nil {
			targets = append(targets, target)
		}
	}
	return targets
}

// Validate re-derives the move legality for a single target
func (s *MoveStrategy) Validate(source, target Position) error {
	if !s.board.InBounds(target.X, target.Z) {
		return ruleErr(ReasonOutOfBounds, "(%d,%d) is off the board", target.X, target.Z)
	}
	if !s.reachable(source, target) {
		return ruleErr(ReasonNotReachable, "(%d,%d) is not one step from (%d,%d)", target.X, target.Z, source.X, source.Z)
	}
	if surface := s.board.SurfaceHeight(target.X, target.Z); target.Y != surface {
		return ruleErr(ReasonNotSupported, "surface at (%d,%d) is %d, not %d", target.X, target.Z, surface, target.Y)
	}
	return s.check(source, target)
}

// ValidateLift checks an in-place vertical lift of the player at source and
// returns the resulting position. Climb limits do not apply to lifts.
func (s *MoveStrategy) ValidateLift(source Position, lift int) (Position, error) {
	if !s.board.InBounds(source.X, source.Z) {
		return source, ruleErr(ReasonOutOfBounds, "(%d,%d) is off the board", source.X, source.Z)
	}
	if lift <= 0 {
		return source, ruleErr(ReasonNotSupported, "lift must be positive, got %d", lift)
	}
	target := source
	target.Y += lift
	return target, nil
}

func (s *MoveStrategy) reachable(source, target Position) bool {
	for _, d := range s.rules.Directions {
		if source.Add(d).SameCell(target) {
			return true
		}
	}
	return false
}

// check applies occupancy and climb/descend limits
func (s *MoveStrategy) check(source, target Position) error {
	if _, occupied := s.board.PlayerAt(target.X, target.Z); occupied {
		return ruleErr(ReasonOccupiedByPlayer, "(%d,%d) already holds a player", target.X, target.Z)
	}
	delta := target.Y - source.Y
	if delta > s.rules.MaxClimb {
		return limitErr(LimitClimb, "climb of %d exceeds limit %d", delta, s.rules.MaxClimb)
	}
	if s.rules.MaxDescend > 0 && -delta > s.rules.MaxDescend {
		return limitErr(LimitDescend, "drop of %d exceeds limit %d", -delta, s.rules.MaxDescend)
	}
	return nil
}
