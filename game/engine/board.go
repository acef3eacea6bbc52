package engine

import (
	"fmt"
	"sort"
)

type cellKey struct {
	X, Z int
}

// Board is the sparse spatial model: each visited cell owns a stack of
// objects kept in ascending height order. It never validates legality.
type Board struct {
	size  int
	min   int
	cells map[cellKey][]BoardObject
}

// NewBoard creates an empty board of size x size cells centred on the origin.
// A board of size N spans [-N/2, -N/2+N-1] on both axes.
func NewBoard(size int) *Board {
	return &Board{
		size:  size,
		min:   -size / 2,
		cells: make(map[cellKey][]BoardObject),
	}
}

// PlayerObjectID returns the board object id used for a player marker
func PlayerObjectID(playerID int) string {
	return fmt.Sprintf("player-%d", playerID)
}

// Size returns the edge length of the board
func (b *Board) Size() int {
	return b.size
}

// Bounds returns the inclusive min and max coordinate on either axis
func (b *Board) Bounds() (int, int) {
	return b.min, b.min + b.size - 1
}

// InBounds reports whether (x, z) lies on the board
func (b *Board) InBounds(x, z int) bool {
	lo, hi := b.Bounds()
	return x >= lo && x <= hi && z >= lo && z <= hi
}

// ObjectsAt returns a copy of the stack at (x, z), ascending by height
func (b *Board) ObjectsAt(x, z int) []BoardObject {
	stack := b.cells[cellKey{x, z}]
	out := make([]BoardObject, len(stack))
	copy(out, stack)
	return out
}

// TopObject returns the highest object at (x, z)
func (b *Board) TopObject(x, z int) (BoardObject, bool) {
	stack := b.cells[cellKey{x, z}]
	if len(stack) == 0 {
		return BoardObject{}, false
	}
	return stack[len(stack)-1], true
}

// Place inserts obj into the stack at (x, z). Placing a player first removes
// any other player object at that cell.
func (b *Board) Place(x, z int, obj BoardObject) {
	key := cellKey{x, z}
	stack := b.cells[key]
	if obj.Kind == KindPlayer {
		kept := stack[:0]
		for _, o := range stack {
			if o.Kind != KindPlayer {
				kept = append(kept, o)
			}
		}
		stack = kept
	}
	stack = append(stack, obj)
	sort.SliceStable(stack, func(i, j int) bool {
		return stack[i].Height < stack[j].Height
	})
	b.cells[key] = stack
}

// Remove deletes the object with the given id from (x, z). The cell record is
// dropped once its stack is empty.
func (b *Board) Remove(x, z int, id string) bool {
	key := cellKey{x, z}
	stack, ok := b.cells[key]
	if !ok {
		return false
	}
	for i, o := range stack {
		if o.ID != id {
			continue
		}
		stack = append(stack[:i], stack[i+1:]...)
		if len(stack) == 0 {
			delete(b.cells, key)
		} else {
			b.cells[key] = stack
		}
		return true
	}
	return false
}

// Clear empties the board
func (b *Board) Clear() {
	b.cells = make(map[cellKey][]BoardObject)
}

// HasCube reports whether any cube sits at (x, z)
func (b *Board) HasCube(x, z int) bool {
	return b.TopCubeHeight(x, z) >= 0
}

// TopCubeHeight returns the height of the highest cube at (x, z), or -1
func (b *Board) TopCubeHeight(x, z int) int {
	top := -1
	for _, o := range b.cells[cellKey{x, z}] {
		if o.Kind == KindCube && o.Height > top {
			top = o.Height
		}
	}
	return top
}

// SurfaceHeight is where a player standing at (x, z) rests: on top of the
// highest cube, or on the ground.
func (b *Board) SurfaceHeight(x, z int) int {
	return b.TopCubeHeight(x, z) + 1
}

// PlayerAt returns the player object at (x, z), if any
func (b *Board) PlayerAt(x, z int) (BoardObject, bool) {
	for _, o := range b.cells[cellKey{x, z}] {
		if o.Kind == KindPlayer {
			return o, true
		}
	}
	return BoardObject{}, false
}

// Cells returns every occupied cell as a position whose Y is the surface height
func (b *Board) Cells() []Position {
	out := make([]Position, 0, len(b.cells))
	for k := range b.cells {
		out = append(out, Position{X: k.X, Y: b.SurfaceHeight(k.X, k.Z), Z: k.Z})
	}
	sortPositions(out)
	return out
}

// CubeCount returns the number of cubes on the board
func (b *Board) CubeCount() int {
	n := 0
	for _, stack := range b.cells {
		for _, o := range stack {
			if o.Kind == KindCube {
				n++
			}
		}
	}
	return n
}

// Entries flattens the board into its persisted form, ordered by cell then height
func (b *Board) Entries() []BoardEntry {
	keys := make([]cellKey, 0, len(b.cells))
	for k := range b.cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Z < keys[j].Z
	})

	entries := []BoardEntry{}
	for _, k := range keys {
		for _, o := range b.cells[k] {
			entries = append(entries, BoardEntry{
				ID:       o.ID,
				Position: Position{X: k.X, Y: o.Height, Z: k.Z},
				Kind:     o.Kind,
				Owner:    o.Owner,
				PlayerID: o.PlayerID,
			})
		}
	}
	return entries
}

// Restore replaces the board content with the given entries
func (b *Board) Restore(entries []BoardEntry) {
	b.Clear()
	for _, e := range entries {
		b.Place(e.Position.X, e.Position.Z, BoardObject{
			ID:       e.ID,
			Kind:     e.Kind,
			Height:   e.Position.Y,
			Owner:    e.Owner,
			PlayerID: e.PlayerID,
		})
	}
}

func sortPositions(ps []Position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		if ps[i].Z != ps[j].Z {
			return ps[i].Z < ps[j].Z
		}
		return ps[i].Y < ps[j].Y
	})
}
