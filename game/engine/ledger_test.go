package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartingCorners(t *testing.T) {
	corners := StartingCorners(NewBoard(4))
	assert.Equal(t, []Position{
		{X: -2, Z: -2},
		{X: 1, Z: 1},
		{X: 1, Z: -2},
		{X: -2, Z: 1},
	}, corners)
}

func TestLedgerAddPlayer(t *testing.T) {
	l := NewLedger([]string{"grapple"}, nil)
	for i, color := range []string{"red", "blue", "green", "yellow"} {
		p, err := l.AddPlayer("", Position{})
		require.NoError(t, err)
		assert.Equal(t, i+1, p.ID)
		assert.Equal(t, color, p.Color)
		assert.Equal(t, fmt.Sprintf("Player %d", i+1), p.Name)
		assert.Equal(t, []PowerCard{{Type: "grapple"}}, p.PowerCards)
		assert.True(t, p.CanMove && p.CanBuild && p.CanRoll)
	}

	_, err := l.AddPlayer("fifth", Position{})
	assert.ErrorIs(t, err, ErrRosterFull)
}

func TestLedgerEndTurnRotates(t *testing.T) {
	for n := MinPlayers; n <= MaxPlayers; n++ {
		l := NewLedger(nil, nil)
		for i := 0; i < n; i++ {
			_, err := l.AddPlayer("", Position{})
			require.NoError(t, err)
		}
		require.NoError(t, l.Begin())
		for k := 1; k <= n; k++ {
			require.Equal(t, k, l.CurrentID())
			assert.Equal(t, k%n+1, l.EndTurn(), "n=%d k=%d", n, k)
		}
	}
}

func TestLedgerCapabilities(t *testing.T) {
	l := NewLedger(nil, nil)
	l.AddPlayer("a", Position{})
	l.AddPlayer("b", Position{})
	require.NoError(t, l.Begin())

	l.UseMove(1)
	l.UseBuild(1)
	assert.False(t, l.Can(1, ActionMove))
	assert.False(t, l.Can(1, ActionBuild))
	assert.True(t, l.HasCapability(1))

	l.UseRoll(1)
	assert.False(t, l.HasCapability(1))

	l.EndTurn()
	l.EndTurn()
	assert.Equal(t, 1, l.CurrentID())
	assert.True(t, l.Can(1, ActionMove) && l.Can(1, ActionBuild) && l.Can(1, ActionRoll))
}

func TestLedgerCurrentWithoutPlayers(t *testing.T) {
	l := NewLedger(nil, nil)
	_, err := l.Current()
	assert.ErrorIs(t, err, ErrNoActivePlayer)
	assert.ErrorIs(t, l.Begin(), ErrNoActivePlayer)
	assert.Zero(t, l.EndTurn())
}

func TestLedgerPlayersAreCopies(t *testing.T) {
	l := NewLedger([]string{"wind"}, nil)
	l.AddPlayer("a", Position{})

	players := l.Players()
	players[0].Name = "changed"
	players[0].PowerCards[0].Type = "changed"

	p, ok := l.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a", p.Name)
	assert.Equal(t, "wind", p.PowerCards[0].Type)
}

func TestLedgerRestore(t *testing.T) {
	l := NewLedger(nil, nil)
	l.Restore([]Player{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, 2)

	cur, err := l.Current()
	require.NoError(t, err)
	assert.Equal(t, "b", cur.Name)
	assert.Equal(t, 1, l.EndTurn())
}
