package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Store persists snapshots for one session
type Store interface {
	Save(slot string, snap Snapshot) error
	Load(slot string) (Snapshot, error)
}

// Machine is the authoritative game state of one session: phase, board,
// roster and history. It is not safe for concurrent use.
type Machine struct {
	config *GameConfig
	rules  Rules
	board  *Board
	ledger *Ledger

	state     state
	history   []MoveRecord
	timestamp int64
	lastStamp int64

	store     Store
	notifier  *Notifier
	rng       Randomizer
	clock     func() time.Time
	newID     func() string
	predicate WinPredicate
	logger    *zap.Logger

	enterHooks map[Phase][]func(Phase)
	exitHooks  map[Phase][]func(Phase)
}

// NewMachine creates a machine in Setup with the config's initial cubes placed
func NewMachine(config *GameConfig, opts ...Option) *Machine {
	if config == nil {
		config = DefaultGameConfig()
	}
	o := newOptions(config, opts)
	m := &Machine{
		config:     config,
		rules:      RulesFromConfig(config),
		board:      NewBoard(config.BoardSize),
		ledger:     NewLedger(config.StartingHand, o.logger),
		state:      setupState{},
		history:    []MoveRecord{},
		store:      o.store,
		notifier:   o.notifier,
		rng:        o.rng,
		clock:      o.clock,
		newID:      o.newID,
		predicate:  o.predicate,
		logger:     o.logger,
		enterHooks: map[Phase][]func(Phase){},
		exitHooks:  map[Phase][]func(Phase){},
	}
	m.seedBoard()
	return m
}

func (m *Machine) seedBoard() {
	for _, p := range m.config.InitialCubes {
		m.board.Place(p.X, p.Z, NewCube(m.newID(), 0, p.Y))
	}
}

func (m *Machine) Phase() Phase        { return m.state.phase() }
func (m *Machine) Board() *Board       { return m.board }
func (m *Machine) Ledger() *Ledger     { return m.ledger }
func (m *Machine) Config() *GameConfig { return m.config }
func (m *Machine) Rules() Rules        { return m.rules }
func (m *Machine) Notifier() *Notifier { return m.notifier }

// Winner returns the winning player id once the game is over
func (m *Machine) Winner() int {
	if s, ok := m.state.(gameOverState); ok {
		return s.winner
	}
	return 0
}

// History returns a copy of the move history
func (m *Machine) History() []MoveRecord {
	return append([]MoveRecord{}, m.history...)
}

// OnEnter registers fn to run after the machine enters phase
func (m *Machine) OnEnter(phase Phase, fn func(Phase)) {
	m.enterHooks[phase] = append(m.enterHooks[phase], fn)
}

// OnExit registers fn to run before the machine leaves phase
func (m *Machine) OnExit(phase Phase, fn func(Phase)) {
	m.exitHooks[phase] = append(m.exitHooks[phase], fn)
}

func (m *Machine) transition(to state) {
	from := m.state.phase()
	for _, fn := range m.exitHooks[from] {
		fn(to.phase())
	}
	m.notifier.Emit(Event{Type: EventPhaseExited, Phase: from})

	m.state = to
	m.logger.Info("phase changed", zap.String("from", string(from)), zap.String("to", string(to.phase())))

	for _, fn := range m.enterHooks[to.phase()] {
		fn(from)
	}
	m.notifier.Emit(Event{Type: EventPhaseEntered, Phase: to.phase(), Winner: m.Winner()})
}

// AddPlayer seats a new player on the next free starting corner
func (m *Machine) AddPlayer(name string) (Player, error) {
	switch m.state.(type) {
	case setupState:
	case playingState, gameOverState:
		return Player{}, wrongPhase("adding players", m.state)
	}

	corners := StartingCorners(m.board)
	if m.ledger.Len() >= len(corners) {
		return Player{}, ruleErr(ReasonRosterFull, "roster already holds %d players", MaxPlayers)
	}
	corner := corners[m.ledger.Len()]
	corner.Y = m.board.SurfaceHeight(corner.X, corner.Z)

	p, err := m.ledger.AddPlayer(name, corner)
	if err != nil {
		return Player{}, err
	}
	m.board.Place(corner.X, corner.Z, NewPlayerObject(p.ID, corner.Y))
	m.notifier.Emit(Event{Type: EventPlayerAdded, Phase: m.Phase(), PlayerID: p.ID, Position: &corner})
	m.UpdateStateData()
	return p, nil
}

// StartGame moves from Setup to Playing with the first player to act
func (m *Machine) StartGame() error {
	switch m.state.(type) {
	case setupState:
	case playingState, gameOverState:
		return wrongPhase("starting", m.state)
	}
	if m.ledger.Len() < MinPlayers {
		return ruleErr(ReasonInsufficientPlayers, "need at least %d players, have %d", MinPlayers, m.ledger.Len())
	}
	if err := m.ledger.Begin(); err != nil {
		return err
	}
	m.transition(playingState{})
	m.UpdateStateData()
	return nil
}

// MakeMove records a move for the current player, then either ends the game
// or passes the turn. It does not touch the board.
func (m *Machine) MakeMove(move Move) error {
	switch m.state.(type) {
	case playingState:
	case setupState, gameOverState:
		return wrongPhase("moving", m.state)
	}
	if move.PlayerID != m.ledger.CurrentID() {
		return ruleErr(ReasonWrongPlayer, "player %d moved on player %d's turn", move.PlayerID, m.ledger.CurrentID())
	}

	m.record(move.PlayerID, move.Action, move.Position)
	m.notifier.Emit(Event{Type: EventMoveRecorded, Phase: m.Phase(), PlayerID: move.PlayerID, Action: move.Action, Position: &move.Position})
	if !m.checkGameOver() {
		m.advanceTurn()
	}
	m.UpdateStateData()
	return nil
}

// CommitAction applies a rule-checked move or build for the current player.
// The turn stays with the player unless auto_end_turn is set and nothing is left.
func (m *Machine) CommitAction(actionType ActionType, source, target Position) error {
	switch m.state.(type) {
	case playingState:
	case setupState, gameOverState:
		return wrongPhase("committing actions", m.state)
	}
	player, err := m.CurrentPlayer()
	if err != nil {
		return err
	}
	if !source.SameCell(player.Position) {
		return ruleErr(ReasonWrongPlayer, "source (%d,%d) is not where player %d stands", source.X, source.Z, player.ID)
	}
	if !m.ledger.Can(player.ID, actionType) {
		return ruleErr(ReasonActionExhausted, "player %d already used %s this turn", player.ID, actionType)
	}

	strategy, spatial := NewStrategy(actionType, m.board, m.rules)
	if !spatial {
		return ruleErr(ReasonNoPendingAction, "action %q has no board target", actionType)
	}
	from := player.Position
	if err := strategy.Validate(from, target); err != nil {
		m.logger.Debug("commit rejected",
			zap.Int("player_id", player.ID),
			zap.String("action", string(actionType)),
			zap.String("reason", string(ReasonOf(err))))
		return err
	}

	switch actionType {
	case ActionMove:
		m.movePlayer(player.ID, from, target)
		m.ledger.UseMove(player.ID)
	case ActionBuild:
		if m.rules.BuildAdjacency && !IsAdjacent(from, target) {
			return ruleErr(ReasonNotAdjacent, "(%d,%d) is not next to player %d", target.X, target.Z, player.ID)
		}
		m.board.Place(target.X, target.Z, NewCube(m.newID(), player.ID, target.Y))
		m.ledger.UseBuild(player.ID)
	case ActionNone, ActionRoll:
		return ruleErr(ReasonNoPendingAction, "action %q has no board target", actionType)
	}

	m.logger.Info("action committed",
		zap.Int("player_id", player.ID),
		zap.String("action", string(actionType)),
		zap.Int("x", target.X), zap.Int("y", target.Y), zap.Int("z", target.Z))
	m.record(player.ID, actionType, target)
	m.notifier.Emit(Event{Type: EventActionCommitted, Phase: m.Phase(), PlayerID: player.ID, Action: actionType, Position: &target})
	m.finishCommit(player.ID)
	return nil
}

// finishCommit runs the game-end check and the optional automatic turn end
func (m *Machine) finishCommit(playerID int) {
	if !m.checkGameOver() && m.config.AutoEndTurn && !m.ledger.HasCapability(playerID) {
		m.advanceTurn()
	}
	m.UpdateStateData()
}

// movePlayer relocates the player marker and the ledger position
func (m *Machine) movePlayer(playerID int, from, to Position) {
	if !from.SameCell(to) {
		m.board.Remove(from.X, from.Z, PlayerObjectID(playerID))
	}
	m.board.Place(to.X, to.Z, NewPlayerObject(playerID, to.Y))
	m.ledger.SetPosition(playerID, to)
}

// EndTurn passes the turn without a game-end check
func (m *Machine) EndTurn() error {
	switch m.state.(type) {
	case playingState:
	case setupState, gameOverState:
		return wrongPhase("ending a turn", m.state)
	}
	m.advanceTurn()
	m.UpdateStateData()
	return nil
}

func (m *Machine) advanceTurn() {
	from := m.ledger.CurrentID()
	next := m.ledger.EndTurn()
	m.notifier.Emit(Event{Type: EventTurnEnded, Phase: m.Phase(), PlayerID: from})
	m.logger.Debug("turn ended", zap.Int("player_id", from), zap.Int("next_player_id", next))
}

func (m *Machine) checkGameOver() bool {
	winner, over := m.predicate(m.StateData())
	if !over {
		return false
	}
	m.transition(gameOverState{winner: winner})
	m.notifier.Emit(Event{Type: EventGameOver, Phase: PhaseGameOver, Winner: winner})
	return true
}

// StartNewGame returns to Setup with an empty roster and a fresh board.
// Allowed after the game ended, or during play to abandon it.
func (m *Machine) StartNewGame() error {
	switch m.state.(type) {
	case gameOverState, playingState:
	case setupState:
		return wrongPhase("starting a new game", m.state)
	}
	m.ledger.Reset()
	m.board.Clear()
	m.seedBoard()
	m.history = []MoveRecord{}
	m.transition(setupState{})
	m.UpdateStateData()
	return nil
}

// CurrentPlayer returns the player whose turn it is
func (m *Machine) CurrentPlayer() (Player, error) {
	return m.ledger.Current()
}

// MustCurrentPlayer is CurrentPlayer for callers that already checked the
// phase. It panics when the roster and current id disagree.
func (m *Machine) MustCurrentPlayer() Player {
	p, err := m.ledger.Current()
	if err != nil {
		panic(fmt.Sprintf("engine: current player %d is not on the roster", m.ledger.CurrentID()))
	}
	return p
}

func (m *Machine) record(playerID int, action ActionType, pos Position) {
	m.history = append(m.history, MoveRecord{
		PlayerID:  playerID,
		Action:    action,
		Position:  pos,
		Timestamp: m.nextStamp(),
	})
}

// nextStamp returns a millisecond timestamp strictly after the previous one
func (m *Machine) nextStamp() int64 {
	now := m.clock().UnixMilli()
	if now <= m.lastStamp {
		now = m.lastStamp + 1
	}
	m.lastStamp = now
	return now
}

// StateData returns the persisted view of the game
func (m *Machine) StateData() GameStateData {
	return GameStateData{
		Players:         m.ledger.Players(),
		CurrentPlayerID: m.ledger.CurrentID(),
		Board:           m.board.Entries(),
		MoveHistory:     m.History(),
		Timestamp:       m.timestamp,
	}
}

// Snapshot returns the document written to save slots
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{CurrentState: string(m.Phase()), StateData: m.StateData()}
}

// UpdateStateData refreshes the timestamp, writes the autosave slot and
// notifies subscribers. Store errors are logged, never returned.
func (m *Machine) UpdateStateData() {
	m.timestamp = m.clock().UnixMilli()
	if m.store != nil {
		if err := m.store.Save(AutoSaveSlot, m.Snapshot()); err != nil {
			m.logger.Warn("autosave failed", zap.Error(err))
		}
	}
	m.notifier.Emit(Event{Type: EventStateChanged, Phase: m.Phase(), PlayerID: m.ledger.CurrentID()})
}

// SaveAs writes the current snapshot to a named slot
func (m *Machine) SaveAs(name string) error {
	if m.store == nil {
		return fmt.Errorf("save %q: no store configured", name)
	}
	if err := m.store.Save(name, m.Snapshot()); err != nil {
		m.logger.Warn("save failed", zap.String("slot", name), zap.Error(err))
		return fmt.Errorf("save %q: %w", name, err)
	}
	m.logger.Info("game saved", zap.String("slot", name))
	return nil
}

// LoadPersistedState restores a named slot. A missing or malformed snapshot
// leaves the machine untouched and returns false.
func (m *Machine) LoadPersistedState(name string) bool {
	if m.store == nil {
		return false
	}
	snap, err := m.store.Load(name)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			m.logger.Info("no snapshot to load", zap.String("slot", name))
		} else {
			m.logger.Warn("snapshot unreadable", zap.String("slot", name), zap.String("reason", string(ReasonPersistenceCorrupt)), zap.Error(err))
		}
		return false
	}
	if err := m.Restore(snap); err != nil {
		m.logger.Warn("snapshot rejected", zap.String("slot", name), zap.String("reason", string(ReasonPersistenceCorrupt)), zap.Error(err))
		return false
	}
	m.logger.Info("game loaded", zap.String("slot", name), zap.String("phase", snap.CurrentState))
	return true
}

// Restore replaces the machine state with snap after checking it is coherent.
// The loaded phase is entered through the usual hooks, even when it matches
// the current one.
func (m *Machine) Restore(snap Snapshot) error {
	phase, err := ParsePhase(snap.CurrentState)
	if err != nil {
		return ruleErr(ReasonPersistenceCorrupt, "%v", err)
	}
	data := snap.StateData
	if err := m.checkSnapshot(phase, data); err != nil {
		return err
	}

	m.board.Restore(data.Board)
	m.ledger.Restore(data.Players, data.CurrentPlayerID)
	m.history = append([]MoveRecord{}, data.MoveHistory...)
	m.timestamp = data.Timestamp
	m.lastStamp = 0
	for _, r := range m.history {
		if r.Timestamp > m.lastStamp {
			m.lastStamp = r.Timestamp
		}
	}

	winner := 0
	if phase == PhaseGameOver {
		winner, _ = m.predicate(data)
	}
	m.transition(stateFor(phase, winner))
	m.notifier.Emit(Event{Type: EventStateLoaded, Phase: phase, PlayerID: data.CurrentPlayerID})
	return nil
}

func (m *Machine) checkSnapshot(phase Phase, data GameStateData) error {
	if len(data.Players) > MaxPlayers {
		return ruleErr(ReasonPersistenceCorrupt, "%d players exceeds roster size", len(data.Players))
	}
	positions := map[int]Position{}
	for _, p := range data.Players {
		if _, dup := positions[p.ID]; p.ID < 1 || p.ID > MaxPlayers || dup {
			return ruleErr(ReasonPersistenceCorrupt, "bad player id %d", p.ID)
		}
		positions[p.ID] = p.Position
		if !m.board.InBounds(p.Position.X, p.Position.Z) {
			return ruleErr(ReasonPersistenceCorrupt, "player %d stands off the board", p.ID)
		}
	}
	if _, ok := positions[data.CurrentPlayerID]; phase == PhasePlaying && !ok {
		return ruleErr(ReasonPersistenceCorrupt, "current player %d is not on the roster", data.CurrentPlayerID)
	}

	heights := map[cellKey][]int{}
	markers := map[int]bool{}
	markerCells := map[cellKey]int{}
	for _, e := range data.Board {
		if !m.board.InBounds(e.Position.X, e.Position.Z) {
			return ruleErr(ReasonPersistenceCorrupt, "object %s is off the board", e.ID)
		}
		k := cellKey{e.Position.X, e.Position.Z}
		switch e.Kind {
		case KindCube:
			heights[k] = append(heights[k], e.Position.Y)
		case KindGround:
		case KindPlayer:
			pos, ok := positions[e.PlayerID]
			if !ok {
				return ruleErr(ReasonPersistenceCorrupt, "object %s references unknown player %d", e.ID, e.PlayerID)
			}
			if markers[e.PlayerID] {
				return ruleErr(ReasonPersistenceCorrupt, "player %d has more than one marker", e.PlayerID)
			}
			if other, taken := markerCells[k]; taken {
				return ruleErr(ReasonPersistenceCorrupt, "players %d and %d share (%d,%d)", other, e.PlayerID, k.X, k.Z)
			}
			if e.Position != pos {
				return ruleErr(ReasonPersistenceCorrupt, "marker for player %d is at (%d,%d,%d) but the player stands at (%d,%d,%d)",
					e.PlayerID, e.Position.X, e.Position.Y, e.Position.Z, pos.X, pos.Y, pos.Z)
			}
			markers[e.PlayerID] = true
			markerCells[k] = e.PlayerID
		default:
			return ruleErr(ReasonPersistenceCorrupt, "object %s has unknown kind %q", e.ID, e.Kind)
		}
	}
	if k, h, ok := stackGap(heights); ok {
		return ruleErr(ReasonPersistenceCorrupt, "cubes at (%d,%d) leave a gap below height %d", k.X, k.Z, h)
	}
	for _, p := range data.Players {
		if !markers[p.ID] {
			return ruleErr(ReasonPersistenceCorrupt, "player %d has no marker on the board", p.ID)
		}
	}
	return nil
}
