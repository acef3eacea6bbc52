package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() Rules {
	return RulesFromConfig(DefaultGameConfig())
}

func TestMoveTargetsOnOpenBoard(t *testing.T) {
	b := NewBoard(4)
	b.Place(0, 0, NewPlayerObject(1, 0))
	s := NewMoveStrategy(b, testRules())

	targets := s.ValidTargets(Position{X: 0, Y: 0, Z: 0})
	assert.ElementsMatch(t, []Position{
		{X: 1, Y: 0, Z: 0},
		{X: -1, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 1},
		{X: 0, Y: 0, Z: -1},
	}, targets)
}

func TestMoveTargetsSkipOccupiedCells(t *testing.T) {
	b := NewBoard(4)
	b.Place(0, 0, NewPlayerObject(1, 0))
	b.Place(1, 0, NewPlayerObject(2, 0))
	s := NewMoveStrategy(b, testRules())

	targets := s.ValidTargets(Position{X: 0, Y: 0, Z: 0})
	assert.Len(t, targets, 3)
	assert.NotContains(t, targets, Position{X: 1, Y: 0, Z: 0})

	err := s.Validate(Position{X: 0, Y: 0, Z: 0}, Position{X: 1, Y: 0, Z: 0})
	assert.ErrorIs(t, err, ErrOccupiedByPlayer)
}

func TestMoveTargetsSkipOffBoard(t *testing.T) {
	b := NewBoard(4)
	s := NewMoveStrategy(b, testRules())

	targets := s.ValidTargets(Position{X: -2, Y: 0, Z: -2})
	assert.ElementsMatch(t, []Position{{X: -1, Y: 0, Z: -2}, {X: -2, Y: 0, Z: -1}}, targets)

	err := s.Validate(Position{X: -2, Y: 0, Z: -2}, Position{X: -3, Y: 0, Z: -2})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestMoveClimbLimit(t *testing.T) {
	b := NewBoard(8)
	b.Place(1, 0, NewCube("a", 0, 0))
	b.Place(0, 1, NewCube("b", 0, 0))
	b.Place(0, 1, NewCube("c", 0, 1))
	s := NewMoveStrategy(b, testRules())
	src := Position{X: 0, Y: 0, Z: 0}

	assert.Contains(t, s.ValidTargets(src), Position{X: 1, Y: 1, Z: 0})
	assert.NoError(t, s.Validate(src, Position{X: 1, Y: 1, Z: 0}))

	err := s.Validate(src, Position{X: 0, Y: 2, Z: 1})
	assert.ErrorIs(t, err, ErrClimbTooHigh)
	assert.ErrorIs(t, err, ErrHeightLimitExceeded)
	assert.NotContains(t, s.ValidTargets(src), Position{X: 0, Y: 2, Z: 1})
}

func TestMoveDescendLimit(t *testing.T) {
	b := NewBoard(8)
	b.Place(0, 0, NewCube("a", 0, 0))
	b.Place(0, 0, NewCube("b", 0, 1))
	src := Position{X: 0, Y: 2, Z: 0}
	target := Position{X: 1, Y: 0, Z: 0}

	unlimited := NewMoveStrategy(b, testRules())
	assert.NoError(t, unlimited.Validate(src, target))

	rules := testRules()
	rules.MaxDescend = 1
	limited := NewMoveStrategy(b, rules)
	assert.ErrorIs(t, limited.Validate(src, target), ErrDescendTooFar)
	assert.Empty(t, limited.ValidTargets(src))
}

func TestMoveValidateRejectsDistantAndFloatingTargets(t *testing.T) {
	b := NewBoard(8)
	s := NewMoveStrategy(b, testRules())
	src := Position{X: 0, Y: 0, Z: 0}

	assert.ErrorIs(t, s.Validate(src, Position{X: 2, Y: 0, Z: 0}), ErrNotReachable)
	assert.ErrorIs(t, s.Validate(src, Position{X: 1, Y: 0, Z: 1}), ErrNotReachable, "diagonals are not configured")
	assert.ErrorIs(t, s.Validate(src, Position{X: 1, Y: 1, Z: 0}), ErrNotSupported)
}

func TestMoveDiagonalDirections(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.Directions = []string{"northeast", "southwest"}
	s := NewMoveStrategy(NewBoard(8), RulesFromConfig(cfg))

	targets := s.ValidTargets(Position{})
	assert.ElementsMatch(t, []Position{{X: 1, Z: -1}, {X: -1, Z: 1}}, targets)
}

func TestMoveTargetsAlwaysValidate(t *testing.T) {
	b := NewBoard(8)
	b.Place(1, 0, NewCube("a", 0, 0))
	b.Place(-1, 0, NewCube("b", 0, 0))
	b.Place(-1, 0, NewCube("c", 0, 1))
	b.Place(0, 1, NewPlayerObject(2, 0))
	s := NewMoveStrategy(b, testRules())

	for _, src := range []Position{{}, {X: 1, Y: 1}, {X: -1, Y: 2}, {X: 3, Z: 3}} {
		for _, target := range s.ValidTargets(src) {
			assert.NoError(t, s.Validate(src, target), "source %+v target %+v", src, target)
		}
	}
}

func TestMoveValidateLift(t *testing.T) {
	rules := testRules()
	rules.MaxClimb = 1
	s := NewMoveStrategy(NewBoard(4), rules)

	got, err := s.ValidateLift(Position{X: 0, Y: 0, Z: 0}, 2)
	require.NoError(t, err, "lifts are not held to max_climb")
	assert.Equal(t, Position{X: 0, Y: 2, Z: 0}, got)

	_, err = s.ValidateLift(Position{X: 0, Y: 0, Z: 0}, 0)
	assert.ErrorIs(t, err, ErrNotSupported)
	_, err = s.ValidateLift(Position{X: 5, Y: 0, Z: 0}, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}
