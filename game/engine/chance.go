package engine

import (
	"math/rand/v2"

	"go.uber.org/zap"
)

// Randomizer is the source of every chance outcome in the engine
type Randomizer interface {
	// IntN returns a uniform int in [0, n).
	IntN(n int) int
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
}

type mathRandomizer struct {
	r *rand.Rand
}

func (m mathRandomizer) IntN(n int) int   { return m.r.IntN(n) }
func (m mathRandomizer) Float64() float64 { return m.r.Float64() }

// NewRandomizer returns a deterministic randomizer for seed
func NewRandomizer(seed uint64) Randomizer {
	return mathRandomizer{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type globalRandomizer struct{}

func (globalRandomizer) IntN(n int) int   { return rand.IntN(n) }
func (globalRandomizer) Float64() float64 { return rand.Float64() }

// RollEffect is what a die value did
type RollEffect string

const (
	EffectGrapple       RollEffect = "grapple"
	EffectGrappleFailed RollEffect = "grapple_failed"
	EffectWind          RollEffect = "wind"
	EffectNone          RollEffect = "none"
)

// RollOutcome reports a resolved dice roll
type RollOutcome struct {
	Value     int        `json:"value"`
	Effect    RollEffect `json:"effect"`
	PlayerID  int        `json:"player_id"`
	Lift      int        `json:"lift,omitempty"`
	Direction *Direction `json:"direction,omitempty"`
	Pushed    []int      `json:"pushed,omitempty"`
}

// EffectFor classifies a die value: 1-2 grapple, 3 wind, 4-6 nothing
func EffectFor(value int) RollEffect {
	switch {
	case value == 1 || value == 2:
		return EffectGrapple
	case value == 3:
		return EffectWind
	default:
		return EffectNone
	}
}

// Roll throws the die for the current player and applies its effect
func (m *Machine) Roll() (RollOutcome, error) {
	switch m.state.(type) {
	case playingState:
	case setupState, gameOverState:
		return RollOutcome{}, wrongPhase("rolling", m.state)
	}
	player, err := m.CurrentPlayer()
	if err != nil {
		return RollOutcome{}, err
	}
	if !m.ledger.Can(player.ID, ActionRoll) {
		return RollOutcome{}, ruleErr(ReasonActionExhausted, "player %d already rolled this turn", player.ID)
	}

	value := m.rng.IntN(6) + 1
	out := RollOutcome{Value: value, Effect: EffectFor(value), PlayerID: player.ID}

	switch out.Effect {
	case EffectGrapple:
		m.grapple(player, &out)
	case EffectWind:
		m.wind(&out)
	case EffectGrappleFailed, EffectNone:
	}

	m.ledger.UseRoll(player.ID)
	after, _ := m.ledger.Get(player.ID)
	m.record(player.ID, ActionRoll, after.Position)
	m.logger.Info("dice rolled",
		zap.Int("player_id", player.ID),
		zap.Int("value", value),
		zap.String("effect", string(out.Effect)))
	m.notifier.Emit(Event{Type: EventDiceRolled, Phase: m.Phase(), PlayerID: player.ID, Action: ActionRoll, Roll: &out})
	m.finishCommit(player.ID)
	return out, nil
}

// grapple flips a coin and, on success, lifts the player in place by the
// rolled amount. The lift is not held to max_climb: a roll of 2 lifts two
// units under the classic one-step rules.
func (m *Machine) grapple(player Player, out *RollOutcome) {
	if m.rng.Float64() >= m.config.GrappleRate() {
		out.Effect = EffectGrappleFailed
		return
	}
	target, err := NewMoveStrategy(m.board, m.rules).ValidateLift(player.Position, out.Value)
	if err != nil {
		m.logger.Debug("grapple lift rejected", zap.Int("player_id", player.ID), zap.Error(err))
		out.Effect = EffectGrappleFailed
		return
	}
	m.movePlayer(player.ID, player.Position, target)
	out.Lift = out.Value
}

// wind pushes every player one cell the same way, in id order, skipping
// anyone the move rules would stop
func (m *Machine) wind(out *RollOutcome) {
	dir := CardinalDirections[m.rng.IntN(len(CardinalDirections))]
	out.Direction = &dir

	rules := m.rules
	rules.Directions = []Direction{dir}
	strategy := NewMoveStrategy(m.board, rules)

	for _, p := range m.ledger.Players() {
		target := p.Position.Add(dir)
		if !m.board.InBounds(target.X, target.Z) {
			continue
		}
		target.Y = m.board.SurfaceHeight(target.X, target.Z)
		if err := strategy.Validate(p.Position, target); err != nil {
			m.logger.Debug("wind blocked", zap.Int("player_id", p.ID), zap.String("reason", string(ReasonOf(err))))
			continue
		}
		m.movePlayer(p.ID, p.Position, target)
		out.Pushed = append(out.Pushed, p.ID)
	}
}
