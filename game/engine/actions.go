package engine

import "go.uber.org/zap"

// HighlightStyle tells a renderer how to draw highlighted targets
type HighlightStyle string

const (
	StyleMove  HighlightStyle = "move"
	StyleBuild HighlightStyle = "build"
)

// Highlight is the visual request emitted when an action starts
type Highlight struct {
	Positions []Position     `json:"positions"`
	Color     string         `json:"color"`
	Style     HighlightStyle `json:"style"`
}

// Highlighter receives target visuals. Implementations must not call back
// into the engine.
type Highlighter interface {
	ShowTargets(h Highlight)
	ClearTargets()
}

type nopHighlighter struct{}

func (nopHighlighter) ShowTargets(Highlight) {}
func (nopHighlighter) ClearTargets()         {}

// ActionManager owns the single pending ActionState of an engine
type ActionManager struct {
	board       *Board
	rules       Rules
	highlighter Highlighter
	logger      *zap.Logger
	state       ActionState
}

// NewActionManager creates a manager with no pending action
func NewActionManager(board *Board, rules Rules, highlighter Highlighter, logger *zap.Logger) *ActionManager {
	if highlighter == nil {
		highlighter = nopHighlighter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionManager{
		board:       board,
		rules:       rules,
		highlighter: highlighter,
		logger:      logger,
		state:       idleAction(),
	}
}

func idleAction() ActionState {
	return ActionState{Type: ActionNone, ValidPositions: []Position{}}
}

// StartAction replaces any pending action with actionType from source and
// returns its legal targets. Starting ActionNone is a no-op.
func (m *ActionManager) StartAction(actionType ActionType, source *Position, color string) []Position {
	if actionType == ActionNone {
		return []Position{}
	}
	m.ClearAction()

	m.state.Type = actionType
	if source != nil {
		src := *source
		m.state.SourcePosition = &src
	}

	strategy, spatial := NewStrategy(actionType, m.board, m.rules)
	if !spatial || source == nil {
		m.logger.Debug("action started without targets",
			zap.String("action", string(actionType)),
			zap.Bool("has_source", source != nil))
		return []Position{}
	}

	targets := strategy.ValidTargets(*source)
	m.state.ValidPositions = targets
	m.logger.Debug("action started",
		zap.String("action", string(actionType)),
		zap.Int("x", source.X), zap.Int("z", source.Z),
		zap.Int("targets", len(targets)))

	style := StyleMove
	if actionType == ActionBuild {
		style = StyleBuild
	}
	m.highlighter.ShowTargets(Highlight{
		Positions: append([]Position(nil), targets...),
		Color:     color,
		Style:     style,
	})

	out := make([]Position, len(targets))
	copy(out, targets)
	return out
}

// Validate re-runs the pending strategy against target
func (m *ActionManager) Validate(target Position) error {
	if m.state.Type == ActionNone {
		return ruleErr(ReasonNoPendingAction, "no action in progress")
	}
	if m.state.SourcePosition == nil {
		return ruleErr(ReasonNoPendingAction, "action %q has no source", m.state.Type)
	}
	strategy, spatial := NewStrategy(m.state.Type, m.board, m.rules)
	if !spatial {
		return ruleErr(ReasonNoPendingAction, "action %q takes no target", m.state.Type)
	}
	return strategy.Validate(*m.state.SourcePosition, target)
}

// IsValidTarget reports whether target is a legal pick for the pending action
func (m *ActionManager) IsValidTarget(target Position) bool {
	if m.state.SourcePosition == nil {
		m.logger.Warn("target checked without a source position",
			zap.String("action", string(m.state.Type)))
		return false
	}
	if err := m.Validate(target); err != nil {
		m.logger.Debug("target rejected",
			zap.String("action", string(m.state.Type)),
			zap.Int("x", target.X), zap.Int("y", target.Y), zap.Int("z", target.Z),
			zap.String("reason", string(ReasonOf(err))))
		return false
	}
	return true
}

// ClearAction resets to the idle state and clears highlights. Idempotent.
func (m *ActionManager) ClearAction() {
	m.state = idleAction()
	m.highlighter.ClearTargets()
}

// SetProcessing flags the pending action as being committed
func (m *ActionManager) SetProcessing(processing bool) {
	m.state.IsProcessing = processing
}

// State returns a copy of the pending action
func (m *ActionManager) State() ActionState {
	out := m.state
	out.ValidPositions = append([]Position{}, m.state.ValidPositions...)
	if m.state.SourcePosition != nil {
		src := *m.state.SourcePosition
		out.SourcePosition = &src
	}
	return out
}

// SetRules swaps the legality parameters, used after a rule-set reload
func (m *ActionManager) SetRules(rules Rules) {
	m.rules = rules
}
