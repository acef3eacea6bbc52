package engine

// BuildStrategy implements cube placement legality
type BuildStrategy struct {
	board *Board
	rules Rules
}

// NewBuildStrategy creates a build strategy over board
func NewBuildStrategy(board *Board, rules Rules) *BuildStrategy {
	return &BuildStrategy{board: board, rules: rules}
}

func (s *BuildStrategy) Type() ActionType {
	return ActionBuild
}

// ValidTargets returns every exposed top face plus the supported ground cells,
// filtered through Validate
func (s *BuildStrategy) ValidTargets(source Position) []Position {
	seen := map[cellKey]bool{}
	candidates := []Position{}
	add := func(x, z int) {
		k := cellKey{x, z}
		if seen[k] || !s.board.InBounds(x, z) {
			return
		}
		seen[k] = true
		candidates = append(candidates, Position{X: x, Y: s.board.TopCubeHeight(x, z) + 1, Z: z})
	}

	for _, cell := range s.board.Cells() {
		if !s.board.HasCube(cell.X, cell.Z) {
			continue
		}
		add(cell.X, cell.Z)
		for _, d := range CardinalDirections {
			n := cell.Add(d)
			add(n.X, n.Z)
		}
	}
	for _, d := range CardinalDirections {
		n := source.Add(d)
		add(n.X, n.Z)
	}

	targets := []Position{}
	for _, c := range candidates {
		if s.Validate(source, c) == nil {
			targets = append(targets, c)
		}
	}
	sortPositions(targets)
	return targets
}

// Validate checks bounds, occupancy, support and the build height limit.
// Adjacency to the acting player is a commit-time rule and is not checked here.
func (s *BuildStrategy) Validate(source, target Position) error {
	if !s.board.InBounds(target.X, target.Z) {
		return ruleErr(ReasonOutOfBounds, "(%d,%d) is off the board", target.X, target.Z)
	}
	if _, occupied := s.board.PlayerAt(target.X, target.Z); occupied {
		return ruleErr(ReasonOccupiedByPlayer, "(%d,%d) holds a player", target.X, target.Z)
	}
	top := s.board.TopCubeHeight(target.X, target.Z)
	if target.Y != top+1 {
		return ruleErr(ReasonNotSupported, "height %d at (%d,%d) needs a cube at height %d", target.Y, target.X, target.Z, target.Y-1)
	}
	if top < 0 && !s.groundSupported(source, target) {
		return ruleErr(ReasonNotSupported, "ground cell (%d,%d) touches no cube and is not next to the builder", target.X, target.Z)
	}
	if s.rules.MaxBuildHeight > 0 && target.Y >= s.rules.MaxBuildHeight {
		return limitErr(LimitBuild, "height %d reaches limit %d", target.Y, s.rules.MaxBuildHeight)
	}
	return nil
}

// groundSupported reports whether a ground build at target touches a cube or
// the builder's cell
func (s *BuildStrategy) groundSupported(source, target Position) bool {
	if IsAdjacent(source, target) {
		return true
	}
	for _, d := range CardinalDirections {
		n := target.Add(d)
		if s.board.HasCube(n.X, n.Z) {
			return true
		}
	}
	return false
}
