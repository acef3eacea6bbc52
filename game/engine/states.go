package engine

import "fmt"

// Phase is the externally visible game phase
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhasePlaying  Phase = "playing"
	PhaseGameOver Phase = "game_over"
)

// ParsePhase maps a persisted phase name back to a Phase
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseSetup, PhasePlaying, PhaseGameOver:
		return Phase(s), nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// state is the sealed set of machine states. Only the three types below
// implement it.
type state interface {
	phase() Phase
	sealed()
}

type setupState struct{}

type playingState struct{}

type gameOverState struct {
	winner int
}

func (setupState) phase() Phase    { return PhaseSetup }
func (playingState) phase() Phase  { return PhasePlaying }
func (gameOverState) phase() Phase { return PhaseGameOver }

func (setupState) sealed()    {}
func (playingState) sealed()  {}
func (gameOverState) sealed() {}

// stateFor builds the state value for a phase
func stateFor(p Phase, winner int) state {
	switch p {
	case PhaseSetup:
		return setupState{}
	case PhasePlaying:
		return playingState{}
	case PhaseGameOver:
		return gameOverState{winner: winner}
	}
	panic(fmt.Sprintf("engine: unknown phase %q", p))
}

func wrongPhase(op string, s state) error {
	return ruleErr(ReasonWrongPhase, "%s is not allowed during %s", op, s.phase())
}
