package engine

import "fmt"

// Direction is a lateral unit step on the board
type Direction struct {
	Name string `json:"name"`
	DX   int    `json:"dx"`
	DZ   int    `json:"dz"`
}

var (
	North = Direction{Name: "north", DX: 0, DZ: -1}
	South = Direction{Name: "south", DX: 0, DZ: 1}
	East  = Direction{Name: "east", DX: 1, DZ: 0}
	West  = Direction{Name: "west", DX: -1, DZ: 0}

	// CardinalDirections are the four single-axis steps, in wind-draw order.
	CardinalDirections = []Direction{North, East, South, West}
)

var directionTable = map[string]Direction{
	"north":     North,
	"south":     South,
	"east":      East,
	"west":      West,
	"northeast": {Name: "northeast", DX: 1, DZ: -1},
	"northwest": {Name: "northwest", DX: -1, DZ: -1},
	"southeast": {Name: "southeast", DX: 1, DZ: 1},
	"southwest": {Name: "southwest", DX: -1, DZ: 1},
}

// ResolveDirections maps configured direction names to unit steps
func ResolveDirections(names []string) ([]Direction, error) {
	seen := make(map[string]bool, len(names))
	dirs := make([]Direction, 0, len(names))
	for _, name := range names {
		d, ok := directionTable[name]
		if !ok {
			return nil, fmt.Errorf("unknown direction %q", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		dirs = append(dirs, d)
	}
	return dirs, nil
}

// Rules holds the legality parameters the strategies evaluate against
type Rules struct {
	MaxClimb       int
	MaxDescend     int
	MaxBuildHeight int
	Directions     []Direction
	BuildAdjacency bool
}

// RulesFromConfig derives strategy rules from a validated config
func RulesFromConfig(config *GameConfig) Rules {
	dirs, err := ResolveDirections(config.Directions)
	if err != nil || len(dirs) == 0 {
		dirs = CardinalDirections
	}
	return Rules{
		MaxClimb:       config.MaxClimb,
		MaxDescend:     config.MaxDescend,
		MaxBuildHeight: config.MaxBuildHeight,
		Directions:     dirs,
		BuildAdjacency: config.BuildAdjacency,
	}
}

// Strategy computes and checks legal targets for one action type.
// ValidTargets never mutates state, and every target it returns passes Validate.
type Strategy interface {
	Type() ActionType
	ValidTargets(source Position) []Position
	Validate(source, target Position) error
}

// NewStrategy returns the strategy for a spatial action type. None and Roll
// have no spatial target and report false.
func NewStrategy(actionType ActionType, board *Board, rules Rules) (Strategy, bool) {
	switch actionType {
	case ActionMove:
		return NewMoveStrategy(board, rules), true
	case ActionBuild:
		return NewBuildStrategy(board, rules), true
	case ActionNone, ActionRoll:
		return nil, false
	}
	return nil, false
}

// IsAdjacent reports whether a and b are one unit apart along a single axis
func IsAdjacent(a, b Position) bool {
	dx, dz := abs(a.X-b.X), abs(a.Z-b.Z)
	return dx+dz == 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
