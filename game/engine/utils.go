package engine

// ManhattanDistance calculates the lateral Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Z-to.Z)
}

// StackHeights returns the number of cubes per occupied cell
func StackHeights(entries []BoardEntry) map[Position]int {
	heights := map[Position]int{}
	for _, e := range entries {
		if e.Kind != KindCube {
			continue
		}
		heights[Position{X: e.Position.X, Z: e.Position.Z}]++
	}
	return heights
}

// TallestStack finds the highest cube stack and returns its cell and size
func TallestStack(entries []BoardEntry) (Position, int, bool) {
	var best Position
	size, found := 0, false
	for cell, n := range StackHeights(entries) {
		if n > size || (n == size && (cell.X < best.X || (cell.X == best.X && cell.Z < best.Z))) {
			best, size, found = cell, n, true
		}
	}
	return best, size, found
}

// ActionCounts tallies history records per player and action
func ActionCounts(history []MoveRecord) map[int]map[ActionType]int {
	counts := map[int]map[ActionType]int{}
	for _, r := range history {
		if counts[r.PlayerID] == nil {
			counts[r.PlayerID] = map[ActionType]int{}
		}
		counts[r.PlayerID][r.Action]++
	}
	return counts
}
