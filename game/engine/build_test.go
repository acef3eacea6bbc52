package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTargetsAroundCube(t *testing.T) {
	b := NewBoard(4)
	b.Place(1, 0, NewCube("c", 0, 0))
	b.Place(0, 0, NewPlayerObject(1, 0))
	s := NewBuildStrategy(b, testRules())
	src := Position{X: 0, Y: 0, Z: 0}

	targets := s.ValidTargets(src)
	assert.Contains(t, targets, Position{X: 1, Y: 1, Z: 0}, "top face of the cube")
	assert.Contains(t, targets, Position{X: 1, Y: 0, Z: 1}, "ground next to the cube")
	assert.Contains(t, targets, Position{X: 1, Y: 0, Z: -1}, "ground next to the cube")
	assert.Contains(t, targets, Position{X: -1, Y: 0, Z: 0}, "ground next to the builder")
	assert.NotContains(t, targets, Position{X: 0, Y: 0, Z: 0}, "builder's own cell")

	err := s.Validate(src, Position{X: 1, Y: 2, Z: 0})
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestBuildValidateRejections(t *testing.T) {
	b := NewBoard(8)
	b.Place(0, 0, NewPlayerObject(1, 0))
	b.Place(1, 0, NewPlayerObject(2, 0))
	s := NewBuildStrategy(b, testRules())
	src := Position{X: 0, Y: 0, Z: 0}

	tests := []struct {
		name   string
		target Position
		want   error
	}{
		{"off board", Position{X: 9, Y: 0, Z: 0}, ErrOutOfBounds},
		{"player there", Position{X: 1, Y: 0, Z: 0}, ErrOccupiedByPlayer},
		{"floating", Position{X: -1, Y: 1, Z: 0}, ErrNotSupported},
		{"ground away from everything", Position{X: -3, Y: 0, Z: -3}, ErrNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Validate(src, tt.target), tt.want)
		})
	}
	assert.NoError(t, s.Validate(src, Position{X: -1, Y: 0, Z: 0}))
}

func TestBuildHeightLimit(t *testing.T) {
	b := NewBoard(8)
	for h := 0; h < 4; h++ {
		b.Place(1, 0, NewCube("c"+string(rune('0'+h)), 0, h))
	}
	s := NewBuildStrategy(b, testRules())
	src := Position{X: 0, Y: 0, Z: 0}

	err := s.Validate(src, Position{X: 1, Y: 4, Z: 0})
	assert.ErrorIs(t, err, ErrBuildTooHigh)
	assert.NotContains(t, s.ValidTargets(src), Position{X: 1, Y: 4, Z: 0})

	rules := testRules()
	rules.MaxBuildHeight = 0
	assert.NoError(t, NewBuildStrategy(b, rules).Validate(src, Position{X: 1, Y: 4, Z: 0}))
}

func TestBuildTargetsKeepStacksGapFree(t *testing.T) {
	b := NewBoard(8)
	b.Place(0, 0, NewPlayerObject(1, 0))
	s := NewBuildStrategy(b, testRules())
	src := Position{X: 0, Y: 0, Z: 0}

	for i := 0; i < 12; i++ {
		targets := s.ValidTargets(src)
		require.NotEmpty(t, targets)
		target := targets[i%len(targets)]
		require.NoError(t, s.Validate(src, target))
		b.Place(target.X, target.Z, NewCube("cube", 1, target.Y))
	}

	for _, cell := range b.Cells() {
		heights := []int{}
		for _, o := range b.ObjectsAt(cell.X, cell.Z) {
			if o.Kind == KindCube {
				heights = append(heights, o.Height)
			}
		}
		for i, h := range heights {
			assert.Equal(t, i, h, "gap in stack at (%d,%d)", cell.X, cell.Z)
		}
	}
}
