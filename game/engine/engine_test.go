package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRandomizer replays fixed draws and fails the test when it runs dry
type stubRandomizer struct {
	t      *testing.T
	ints   []int
	floats []float64
}

func (s *stubRandomizer) IntN(n int) int {
	require.NotEmpty(s.t, s.ints, "unexpected IntN draw")
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *stubRandomizer) Float64() float64 {
	require.NotEmpty(s.t, s.floats, "unexpected Float64 draw")
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func frozenClock() func() time.Time {
	t := time.UnixMilli(1_700_000_000_000)
	return func() time.Time { return t }
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("cube-%d", n)
	}
}

// newStartedEngine builds an engine with two seated players in Playing
func newStartedEngine(t *testing.T, cfg *GameConfig, opts ...Option) *GameEngine {
	t.Helper()
	if cfg == nil {
		cfg = DefaultGameConfig()
	}
	opts = append([]Option{WithClock(frozenClock()), WithIDGenerator(sequentialIDs())}, opts...)
	e, err := NewEngine(cfg, opts...)
	require.NoError(t, err)
	_, err = e.AddPlayer("Ada")
	require.NoError(t, err)
	_, err = e.AddPlayer("Bo")
	require.NoError(t, err)
	require.NoError(t, e.StartGame())
	return e
}

func TestStartGameNeedsTwoPlayers(t *testing.T) {
	e, err := NewEngine(DefaultGameConfig())
	require.NoError(t, err)

	_, err = e.AddPlayer("Ada")
	require.NoError(t, err)
	assert.ErrorIs(t, e.StartGame(), ErrInsufficientPlayers)
	assert.Equal(t, PhaseSetup, e.Phase())

	_, err = e.AddPlayer("Bo")
	require.NoError(t, err)
	require.NoError(t, e.StartGame())
	assert.Equal(t, PhasePlaying, e.Phase())

	cur, err := e.CurrentPlayer()
	require.NoError(t, err)
	assert.Equal(t, 1, cur.ID)
	assert.Equal(t, 1, e.View().Data.CurrentPlayerID)
}

func TestPlayersSpawnOnCorners(t *testing.T) {
	e := newStartedEngine(t, nil)
	players := e.View().Data.Players
	require.Len(t, players, 2)
	assert.Equal(t, Position{X: -4, Y: 0, Z: -4}, players[0].Position)
	assert.Equal(t, Position{X: 3, Y: 0, Z: 3}, players[1].Position)

	obj, ok := e.Machine().Board().PlayerAt(-4, -4)
	require.True(t, ok)
	assert.Equal(t, 1, obj.PlayerID)
}

func TestPhaseGuards(t *testing.T) {
	e, err := NewEngine(DefaultGameConfig())
	require.NoError(t, err)

	assert.ErrorIs(t, e.EndTurn(), ErrWrongPhase)
	assert.ErrorIs(t, e.StartNewGame(), ErrWrongPhase)
	_, err = e.RollDice()
	assert.ErrorIs(t, err, ErrWrongPhase)
	_, err = e.ProposeAction(ActionMove, nil)
	assert.ErrorIs(t, err, ErrWrongPhase)
	assert.ErrorIs(t, e.Machine().MakeMove(Move{PlayerID: 1, Action: ActionMove}), ErrWrongPhase)

	e.AddPlayer("a")
	e.AddPlayer("b")
	require.NoError(t, e.StartGame())
	_, err = e.AddPlayer("late")
	assert.ErrorIs(t, err, ErrWrongPhase)
	assert.ErrorIs(t, e.StartGame(), ErrWrongPhase)
}

func TestMustCurrentPlayerPanicsBeforeStart(t *testing.T) {
	m := NewMachine(DefaultGameConfig())
	_, err := m.CurrentPlayer()
	assert.ErrorIs(t, err, ErrNoActivePlayer)
	assert.Panics(t, func() { m.MustCurrentPlayer() })
}

func TestMakeMoveRecordsAndPassesTurn(t *testing.T) {
	e := newStartedEngine(t, nil)
	m := e.Machine()

	err := m.MakeMove(Move{PlayerID: 2, Action: ActionMove, Position: Position{X: 2, Z: 3}})
	assert.ErrorIs(t, err, ErrWrongPlayer)
	assert.Empty(t, m.History())

	require.NoError(t, m.MakeMove(Move{PlayerID: 1, Action: ActionMove, Position: Position{X: -3, Z: -4}}))
	require.Len(t, m.History(), 1)
	assert.Equal(t, 1, m.History()[0].PlayerID)
	assert.Equal(t, 2, m.Ledger().CurrentID())
}

func TestMakeMoveEndsGameOnPredicate(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.WinCondition = WinConditionConfig{Type: WinMoveLimit, Value: 2}
	e := newStartedEngine(t, cfg)
	m := e.Machine()

	require.NoError(t, m.MakeMove(Move{PlayerID: 1, Action: ActionMove}))
	assert.Equal(t, PhasePlaying, m.Phase())
	require.NoError(t, m.MakeMove(Move{PlayerID: 2, Action: ActionMove}))
	assert.Equal(t, PhaseGameOver, m.Phase())
	assert.Equal(t, 2, m.Ledger().CurrentID(), "turn does not advance once the game is over")
}

func TestProposeAndCommitMove(t *testing.T) {
	e := newStartedEngine(t, nil)

	targets, err := e.ProposeAction(ActionMove, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Position{{X: -3, Z: -4}, {X: -4, Z: -3}}, targets)
	assert.Equal(t, ActionMove, e.ActionState().Type)

	require.NoError(t, e.CommitAction(Position{X: -3, Y: 0, Z: -4}))
	assert.Equal(t, ActionNone, e.ActionState().Type)

	cur, err := e.CurrentPlayer()
	require.NoError(t, err)
	assert.Equal(t, Position{X: -3, Y: 0, Z: -4}, cur.Position)
	assert.False(t, cur.CanMove)

	_, stillThere := e.Machine().Board().PlayerAt(-4, -4)
	assert.False(t, stillThere)
	_, moved := e.Machine().Board().PlayerAt(-3, -4)
	assert.True(t, moved)

	history := e.History()
	require.Len(t, history, 1)
	assert.Equal(t, ActionMove, history[0].Action)

	_, err = e.ProposeAction(ActionMove, nil)
	assert.ErrorIs(t, err, ErrActionExhausted)
	assert.Equal(t, 1, cur.ID, "commit does not end the turn")
}

func TestCommitInvalidTargetKeepsActionPending(t *testing.T) {
	e := newStartedEngine(t, nil)
	_, err := e.ProposeAction(ActionMove, nil)
	require.NoError(t, err)

	err = e.CommitAction(Position{X: -2, Y: 0, Z: -4})
	assert.ErrorIs(t, err, ErrNotReachable)
	st := e.ActionState()
	assert.Equal(t, ActionMove, st.Type)
	assert.False(t, st.IsProcessing)
	assert.Empty(t, e.History())
}

func TestCommitWithoutPendingAction(t *testing.T) {
	e := newStartedEngine(t, nil)
	assert.ErrorIs(t, e.CommitAction(Position{}), ErrNoPendingAction)

	_, err := e.ProposeAction(ActionRoll, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, e.CommitAction(Position{}), ErrNoPendingAction)
}

func TestProposeFromAnotherCell(t *testing.T) {
	e := newStartedEngine(t, nil)
	_, err := e.ProposeAction(ActionMove, &Position{X: 0, Z: 0})
	assert.ErrorIs(t, err, ErrWrongPlayer)
}

func TestBuildAdjacencyEnforcedAtCommit(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.InitialCubes = []Position{{X: -2, Y: 0, Z: -4}}
	e := newStartedEngine(t, cfg)

	targets, err := e.ProposeAction(ActionBuild, nil)
	require.NoError(t, err)
	assert.Contains(t, targets, Position{X: -2, Y: 1, Z: -4}, "top face is a legal build target")

	err = e.CommitAction(Position{X: -2, Y: 1, Z: -4})
	assert.ErrorIs(t, err, ErrNotAdjacent)
	assert.Equal(t, 1, e.Machine().Board().CubeCount())

	require.NoError(t, e.CommitAction(Position{X: -3, Y: 0, Z: -4}))
	assert.Equal(t, 2, e.Machine().Board().CubeCount())
	top, ok := e.Machine().Board().TopObject(-3, -4)
	require.True(t, ok)
	assert.Equal(t, KindCube, top.Kind)
	assert.Equal(t, 1, top.Owner)
}

func TestBuildAnywhereWhenAdjacencyOff(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.BuildAdjacency = false
	cfg.InitialCubes = []Position{{X: 0, Y: 0, Z: 0}}
	e := newStartedEngine(t, cfg)

	_, err := e.ProposeAction(ActionBuild, nil)
	require.NoError(t, err)
	require.NoError(t, e.CommitAction(Position{X: 0, Y: 1, Z: 0}))
	assert.Equal(t, 1, e.Machine().Board().TopCubeHeight(0, 0))
}

func TestEndTurnClearsActionAndRotates(t *testing.T) {
	e := newStartedEngine(t, nil)
	_, err := e.ProposeAction(ActionMove, nil)
	require.NoError(t, err)

	require.NoError(t, e.EndTurn())
	assert.Equal(t, ActionNone, e.ActionState().Type)
	cur, err := e.CurrentPlayer()
	require.NoError(t, err)
	assert.Equal(t, 2, cur.ID)

	require.NoError(t, e.EndTurn())
	cur, _ = e.CurrentPlayer()
	assert.Equal(t, 1, cur.ID)
}

func TestAutoEndTurn(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.AutoEndTurn = true
	rng := &stubRandomizer{t: t, ints: []int{4}}
	e := newStartedEngine(t, cfg, WithRandomizer(rng))

	_, err := e.ProposeAction(ActionMove, nil)
	require.NoError(t, err)
	require.NoError(t, e.CommitAction(Position{X: -3, Z: -4}))
	_, err = e.ProposeAction(ActionBuild, nil)
	require.NoError(t, err)
	require.NoError(t, e.CommitAction(Position{X: -2, Z: -4}))
	cur, _ := e.CurrentPlayer()
	assert.Equal(t, 1, cur.ID)

	_, err = e.RollDice()
	require.NoError(t, err)
	cur, _ = e.CurrentPlayer()
	assert.Equal(t, 2, cur.ID, "turn passes once every capability is spent")
}

func TestHeightWinEndsGame(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.WinCondition = WinConditionConfig{Type: WinHeight, Value: 1}
	e := newStartedEngine(t, cfg)

	var over []Event
	e.Subscribe(func(ev Event) {
		if ev.Type == EventGameOver {
			over = append(over, ev)
		}
	})

	_, err := e.ProposeAction(ActionBuild, nil)
	require.NoError(t, err)
	require.NoError(t, e.CommitAction(Position{X: -3, Y: 0, Z: -4}))
	_, err = e.ProposeAction(ActionMove, nil)
	require.NoError(t, err)
	require.NoError(t, e.CommitAction(Position{X: -3, Y: 1, Z: -4}))

	assert.Equal(t, PhaseGameOver, e.Phase())
	assert.Equal(t, 1, e.View().Winner)
	require.Len(t, over, 1)
	assert.Equal(t, 1, over[0].Winner)

	_, err = e.ProposeAction(ActionMove, nil)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestStartNewGameResets(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.InitialCubes = []Position{{X: 0, Y: 0, Z: 0}}
	e := newStartedEngine(t, cfg)
	_, err := e.ProposeAction(ActionBuild, nil)
	require.NoError(t, err)
	require.NoError(t, e.CommitAction(Position{X: -3, Y: 0, Z: -4}))

	require.NoError(t, e.StartNewGame())
	view := e.View()
	assert.Equal(t, PhaseSetup, view.Phase)
	assert.Empty(t, view.Data.Players)
	assert.Empty(t, view.Data.MoveHistory)
	assert.Zero(t, view.Data.CurrentPlayerID)
	assert.Equal(t, 1, e.Machine().Board().CubeCount(), "initial cubes are placed again")
}

func TestHistoryTimestampsStrictlyIncrease(t *testing.T) {
	e := newStartedEngine(t, nil)
	m := e.Machine()
	for i := 0; i < 6; i++ {
		cur := m.MustCurrentPlayer()
		require.NoError(t, m.MakeMove(Move{PlayerID: cur.ID, Action: ActionMove, Position: cur.Position}))
	}
	history := m.History()
	require.Len(t, history, 6)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].Timestamp, history[i-1].Timestamp)
	}
}

func TestPhaseHooksAndEvents(t *testing.T) {
	e, err := NewEngine(DefaultGameConfig())
	require.NoError(t, err)
	m := e.Machine()

	var entered, exited []Phase
	m.OnEnter(PhasePlaying, func(from Phase) { entered = append(entered, from) })
	m.OnExit(PhaseSetup, func(to Phase) { exited = append(exited, to) })

	var events []EventType
	unsubscribe := e.Subscribe(func(ev Event) { events = append(events, ev.Type) })

	e.AddPlayer("a")
	e.AddPlayer("b")
	require.NoError(t, e.StartGame())

	assert.Equal(t, []Phase{PhaseSetup}, entered)
	assert.Equal(t, []Phase{PhasePlaying}, exited)
	assert.Contains(t, events, EventPlayerAdded)
	assert.Contains(t, events, EventPhaseEntered)
	assert.Contains(t, events, EventStateChanged)

	unsubscribe()
	unsubscribe()
	seen := len(events)
	require.NoError(t, e.EndTurn())
	assert.Len(t, events, seen)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.BoardSize = 2
	_, err := NewEngine(cfg)
	assert.Error(t, err)
}
