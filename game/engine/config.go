package engine

import (
	"fmt"
	"sort"
)

// Win condition types understood by WinConditionFromConfig
const (
	WinNone      = "none"
	WinHeight    = "height"
	WinMoveLimit = "move_limit"
)

const defaultGrappleSuccessRate = 0.5

// ChanceConfig tunes the roll action
type ChanceConfig struct {
	// GrappleSuccessRate is the probability a grapple holds. 0 selects 0.5.
	GrappleSuccessRate float64 `json:"grapple_success_rate,omitempty" yaml:"grapple_success_rate,omitempty"`
}

// WinConditionConfig selects the game-end predicate
type WinConditionConfig struct {
	Type  string `json:"type" yaml:"type"`
	Value int    `json:"value,omitempty" yaml:"value,omitempty"`
}

// GameConfig is a rule set loaded from JSON or YAML
type GameConfig struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	BoardSize   int    `json:"board_size" yaml:"board_size"`

	// Legality parameters shared by the action strategies.
	MaxClimb       int      `json:"max_climb" yaml:"max_climb"`
	MaxDescend     int      `json:"max_descend" yaml:"max_descend"`           // 0 = unlimited
	MaxBuildHeight int      `json:"max_build_height" yaml:"max_build_height"` // 0 = unlimited
	Directions     []string `json:"directions" yaml:"directions"`
	BuildAdjacency bool     `json:"build_adjacency" yaml:"build_adjacency"`

	AutoEndTurn  bool               `json:"auto_end_turn" yaml:"auto_end_turn"`
	StartingHand []string           `json:"starting_hand" yaml:"starting_hand"`
	InitialCubes []Position         `json:"initial_cubes,omitempty" yaml:"initial_cubes,omitempty"`
	Chance       ChanceConfig       `json:"chance" yaml:"chance"`
	WinCondition WinConditionConfig `json:"win_condition" yaml:"win_condition"`
}

// DefaultGameConfig returns the built-in classic rule set
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:           "classic",
		Description:    "8x8 board, climb one cube at a time, towers up to four high",
		BoardSize:      8,
		MaxClimb:       1,
		MaxDescend:     0,
		MaxBuildHeight: 4,
		Directions:     []string{"north", "south", "east", "west"},
		BuildAdjacency: true,
		StartingHand:   []string{"grapple", "wind"},
		Chance:         ChanceConfig{GrappleSuccessRate: defaultGrappleSuccessRate},
		WinCondition:   WinConditionConfig{Type: WinNone},
	}
}

// GrappleRate returns the effective grapple success probability
func (c *GameConfig) GrappleRate() float64 {
	if c.Chance.GrappleSuccessRate == 0 {
		return defaultGrappleSuccessRate
	}
	return c.Chance.GrappleSuccessRate
}

// ValidateGameConfig validates a rule set for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.BoardSize < MinBoardSize || config.BoardSize > MaxBoardSize {
		return fmt.Errorf("config validation: board_size must be between %d and %d, got %d", MinBoardSize, MaxBoardSize, config.BoardSize)
	}
	if config.MaxClimb < 0 {
		return fmt.Errorf("config validation: max_climb must not be negative, got %d", config.MaxClimb)
	}
	if config.MaxDescend < 0 {
		return fmt.Errorf("config validation: max_descend must not be negative, got %d", config.MaxDescend)
	}
	if config.MaxBuildHeight < 0 {
		return fmt.Errorf("config validation: max_build_height must not be negative, got %d", config.MaxBuildHeight)
	}

	if len(config.Directions) == 0 {
		return fmt.Errorf("config validation: at least one direction is required")
	}
	if _, err := ResolveDirections(config.Directions); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	for _, card := range config.StartingHand {
		if card == "" {
			return fmt.Errorf("config validation: starting_hand contains an empty card")
		}
	}

	rate := config.Chance.GrappleSuccessRate
	if rate < 0 || rate > 1 {
		return fmt.Errorf("config validation: chance.grapple_success_rate must be within [0, 1], got %v", rate)
	}

	switch config.WinCondition.Type {
	case "", WinNone:
	case WinHeight, WinMoveLimit:
		if config.WinCondition.Value <= 0 {
			return fmt.Errorf("config validation: win_condition.value must be positive for %q", config.WinCondition.Type)
		}
	default:
		return fmt.Errorf("config validation: unknown win_condition.type %q", config.WinCondition.Type)
	}

	return validateInitialCubes(config)
}

// validateInitialCubes checks bounds, corner clearance and gap-free stacks
func validateInitialCubes(config *GameConfig) error {
	board := NewBoard(config.BoardSize)
	corners := map[cellKey]bool{}
	for _, c := range StartingCorners(board) {
		corners[cellKey{c.X, c.Z}] = true
	}

	heights := map[cellKey][]int{}
	for _, p := range config.InitialCubes {
		if !board.InBounds(p.X, p.Z) {
			return fmt.Errorf("config validation: initial cube (%d,%d) is off the board", p.X, p.Z)
		}
		if corners[cellKey{p.X, p.Z}] {
			return fmt.Errorf("config validation: initial cube (%d,%d) blocks a starting corner", p.X, p.Z)
		}
		if config.MaxBuildHeight > 0 && p.Y >= config.MaxBuildHeight {
			return fmt.Errorf("config validation: initial cube (%d,%d) height %d exceeds max_build_height", p.X, p.Z, p.Y)
		}
		k := cellKey{p.X, p.Z}
		heights[k] = append(heights[k], p.Y)
	}
	if k, h, ok := stackGap(heights); ok {
		return fmt.Errorf("config validation: initial cubes at (%d,%d) leave a gap below height %d", k.X, k.Z, h)
	}
	return nil
}

// stackGap finds a cell whose cube heights do not run 0, 1, 2... without
// holes or repeats. It returns the first height out of place.
func stackGap(heights map[cellKey][]int) (cellKey, int, bool) {
	for k, hs := range heights {
		sort.Ints(hs)
		for i, h := range hs {
			if h != i {
				return k, h, true
			}
		}
	}
	return cellKey{}, 0, false
}
