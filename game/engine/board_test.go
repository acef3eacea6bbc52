package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardBounds(t *testing.T) {
	b := NewBoard(4)
	lo, hi := b.Bounds()
	assert.Equal(t, -2, lo)
	assert.Equal(t, 1, hi)

	assert.True(t, b.InBounds(0, 0))
	assert.True(t, b.InBounds(-2, 1))
	assert.False(t, b.InBounds(2, 0))
	assert.False(t, b.InBounds(0, -3))
}

func TestBoardPlaceKeepsStackOrdered(t *testing.T) {
	b := NewBoard(4)
	b.Place(0, 0, NewCube("c1", 0, 1))
	b.Place(0, 0, NewCube("c0", 0, 0))
	b.Place(0, 0, NewPlayerObject(1, 2))

	objs := b.ObjectsAt(0, 0)
	require.Len(t, objs, 3)
	assert.Equal(t, "c0", objs[0].ID)
	assert.Equal(t, "c1", objs[1].ID)
	assert.Equal(t, KindPlayer, objs[2].Kind)

	top, ok := b.TopObject(0, 0)
	require.True(t, ok)
	assert.Equal(t, PlayerObjectID(1), top.ID)
}

func TestBoardPlaceReplacesPlayer(t *testing.T) {
	b := NewBoard(4)
	b.Place(0, 0, NewPlayerObject(1, 0))
	b.Place(0, 0, NewPlayerObject(2, 0))

	objs := b.ObjectsAt(0, 0)
	require.Len(t, objs, 1)
	assert.Equal(t, 2, objs[0].PlayerID)
}

func TestBoardRemove(t *testing.T) {
	b := NewBoard(4)
	b.Place(1, 1, NewCube("c", 0, 0))

	assert.False(t, b.Remove(1, 1, "missing"))
	assert.False(t, b.Remove(0, 0, "c"))
	assert.True(t, b.Remove(1, 1, "c"))
	assert.Empty(t, b.Cells(), "empty cell record should be dropped")
}

func TestBoardUnseenCell(t *testing.T) {
	b := NewBoard(4)
	objs := b.ObjectsAt(-1, -1)
	assert.NotNil(t, objs)
	assert.Empty(t, objs)

	_, ok := b.TopObject(-1, -1)
	assert.False(t, ok)
	assert.Equal(t, -1, b.TopCubeHeight(-1, -1))
	assert.Equal(t, 0, b.SurfaceHeight(-1, -1))
}

func TestBoardHeights(t *testing.T) {
	b := NewBoard(4)
	b.Place(1, 0, NewCube("c0", 0, 0))
	assert.True(t, b.HasCube(1, 0))
	assert.Equal(t, 0, b.TopCubeHeight(1, 0))
	assert.Equal(t, 1, b.SurfaceHeight(1, 0))

	b.Place(1, 0, NewCube("c1", 0, 1))
	assert.Equal(t, 2, b.SurfaceHeight(1, 0))
	assert.Equal(t, 2, b.CubeCount())
}

func TestBoardObjectsAtReturnsCopy(t *testing.T) {
	b := NewBoard(4)
	b.Place(0, 0, NewCube("c", 0, 0))
	objs := b.ObjectsAt(0, 0)
	objs[0].ID = "mutated"
	assert.Equal(t, "c", b.ObjectsAt(0, 0)[0].ID)
}

func TestBoardEntriesRestore(t *testing.T) {
	b := NewBoard(8)
	b.Place(0, 0, NewCube("a", 1, 0))
	b.Place(0, 0, NewCube("b", 2, 1))
	b.Place(-1, 3, NewPlayerObject(3, 0))

	entries := b.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, Position{X: -1, Y: 0, Z: 3}, entries[0].Position)

	restored := NewBoard(8)
	restored.Place(2, 2, NewCube("stale", 0, 0))
	restored.Restore(entries)
	assert.Equal(t, entries, restored.Entries())
	assert.False(t, restored.HasCube(2, 2))
}

func TestBoardClear(t *testing.T) {
	b := NewBoard(4)
	b.Place(0, 0, NewCube("c", 0, 0))
	b.Clear()
	assert.Zero(t, b.CubeCount())
	assert.Empty(t, b.Entries())
}
