package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine is the commit boundary used by callers of one game session
type Engine interface {
	// Setup
	AddPlayer(name string) (Player, error)
	StartGame() error
	StartNewGame() error

	// Turn actions
	ProposeAction(actionType ActionType, source *Position) ([]Position, error)
	CommitAction(target Position) error
	ClearAction()
	EndTurn() error
	RollDice() (RollOutcome, error)

	// Read model
	View() GameView
	Phase() Phase
	CurrentPlayer() (Player, error)
	History() []MoveRecord
	Config() *GameConfig

	// Persistence
	SaveAs(name string) error
	LoadPersistedState(name string) bool

	// Notifications
	Subscribe(fn Listener) func()
}

// Option customizes a Machine or GameEngine
type Option func(*options)

type options struct {
	logger      *zap.Logger
	store       Store
	rng         Randomizer
	clock       func() time.Time
	newID       func() string
	notifier    *Notifier
	highlighter Highlighter
	predicate   WinPredicate
}

func newOptions(config *GameConfig, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.rng == nil {
		o.rng = globalRandomizer{}
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	if o.notifier == nil {
		o.notifier = NewNotifier()
	}
	if o.highlighter == nil {
		o.highlighter = nopHighlighter{}
	}
	if o.predicate == nil {
		o.predicate = WinPredicateFor(config.WinCondition)
	}
	return o
}

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStore sets where snapshots are written
func WithStore(store Store) Option {
	return func(o *options) { o.store = store }
}

// WithRandomizer sets the chance source
func WithRandomizer(rng Randomizer) Option {
	return func(o *options) { o.rng = rng }
}

// WithClock sets the time source used for history timestamps
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithIDGenerator sets how cube ids are minted
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// WithNotifier shares an event notifier
func WithNotifier(n *Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithHighlighter sets the target visual sink
func WithHighlighter(h Highlighter) Option {
	return func(o *options) { o.highlighter = h }
}

// WithWinPredicate overrides the rule set's game-end predicate
func WithWinPredicate(p WinPredicate) Option {
	return func(o *options) { o.predicate = p }
}

// GameEngine implements the Engine interface
type GameEngine struct {
	machine *Machine
	actions *ActionManager
	logger  *zap.Logger
}

// NewEngine creates a game engine for the provided rule set
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	o := newOptions(config, opts)
	machine := NewMachine(config, opts...)
	return &GameEngine{
		machine: machine,
		actions: NewActionManager(machine.Board(), machine.Rules(), o.highlighter, o.logger),
		logger:  o.logger,
	}, nil
}

// NewEngineWithDefaults creates a game engine with the classic rule set
func NewEngineWithDefaults(opts ...Option) *GameEngine {
	e, err := NewEngine(DefaultGameConfig(), opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Machine exposes the underlying state machine
func (e *GameEngine) Machine() *Machine {
	return e.machine
}

func (e *GameEngine) AddPlayer(name string) (Player, error) {
	return e.machine.AddPlayer(name)
}

func (e *GameEngine) StartGame() error {
	return e.machine.StartGame()
}

func (e *GameEngine) StartNewGame() error {
	e.actions.ClearAction()
	return e.machine.StartNewGame()
}

// ProposeAction starts an action for the current player. A nil source means
// the player's own cell. Move and build return their legal targets.
func (e *GameEngine) ProposeAction(actionType ActionType, source *Position) ([]Position, error) {
	if e.machine.Phase() != PhasePlaying {
		return nil, ruleErr(ReasonWrongPhase, "actions are only allowed while playing, phase is %s", e.machine.Phase())
	}
	player, err := e.machine.CurrentPlayer()
	if err != nil {
		return nil, err
	}
	if actionType == ActionNone {
		e.actions.ClearAction()
		return []Position{}, nil
	}
	if !e.machine.Ledger().Can(player.ID, actionType) {
		return nil, ruleErr(ReasonActionExhausted, "player %d already used %s this turn", player.ID, actionType)
	}

	src := player.Position
	if source != nil {
		if !source.SameCell(player.Position) {
			return nil, ruleErr(ReasonWrongPlayer, "source (%d,%d) is not where player %d stands", source.X, source.Z, player.ID)
		}
		src.Y = player.Position.Y
	}
	return e.actions.StartAction(actionType, &src, player.Color), nil
}

// CommitAction applies the pending move or build at target. A rejected
// target keeps the action pending so another target can be picked.
func (e *GameEngine) CommitAction(target Position) error {
	st := e.actions.State()
	switch st.Type {
	case ActionNone:
		return ruleErr(ReasonNoPendingAction, "no action in progress")
	case ActionRoll:
		return ruleErr(ReasonNoPendingAction, "roll resolves through RollDice")
	case ActionMove, ActionBuild:
	}
	if st.SourcePosition == nil {
		return ruleErr(ReasonNoPendingAction, "action %q has no source", st.Type)
	}

	e.actions.SetProcessing(true)
	if !e.actions.IsValidTarget(target) {
		e.actions.SetProcessing(false)
		return e.actions.Validate(target)
	}
	if err := e.machine.CommitAction(st.Type, *st.SourcePosition, target); err != nil {
		e.actions.SetProcessing(false)
		return err
	}
	e.actions.ClearAction()
	return nil
}

func (e *GameEngine) ClearAction() {
	e.actions.ClearAction()
}

func (e *GameEngine) EndTurn() error {
	e.actions.ClearAction()
	return e.machine.EndTurn()
}

func (e *GameEngine) RollDice() (RollOutcome, error) {
	e.actions.ClearAction()
	return e.machine.Roll()
}

// View returns the read model for transports
func (e *GameEngine) View() GameView {
	return GameView{
		Phase:      e.machine.Phase(),
		Winner:     e.machine.Winner(),
		ConfigName: e.machine.Config().Name,
		BoardSize:  e.machine.Board().Size(),
		Action:     e.actions.State(),
		Data:       e.machine.StateData(),
	}
}

func (e *GameEngine) Phase() Phase                   { return e.machine.Phase() }
func (e *GameEngine) CurrentPlayer() (Player, error) { return e.machine.CurrentPlayer() }
func (e *GameEngine) History() []MoveRecord          { return e.machine.History() }
func (e *GameEngine) Config() *GameConfig            { return e.machine.Config() }
func (e *GameEngine) SaveAs(name string) error       { return e.machine.SaveAs(name) }

// ActionState returns the pending action
func (e *GameEngine) ActionState() ActionState {
	return e.actions.State()
}

func (e *GameEngine) LoadPersistedState(name string) bool {
	e.actions.ClearAction()
	return e.machine.LoadPersistedState(name)
}

func (e *GameEngine) Subscribe(fn Listener) func() {
	return e.machine.Notifier().Subscribe(fn)
}
