package engine

import (
	"errors"
	"fmt"
)

// Reason classifies why a rule check failed
type Reason string

const (
	ReasonOutOfBounds         Reason = "out_of_bounds"
	ReasonOccupiedByPlayer    Reason = "occupied_by_player"
	ReasonHeightLimitExceeded Reason = "height_limit_exceeded"
	ReasonNotSupported        Reason = "not_supported"
	ReasonNotReachable        Reason = "not_reachable"
	ReasonNotAdjacent         Reason = "not_adjacent"
	ReasonWrongPhase          Reason = "wrong_phase"
	ReasonWrongPlayer         Reason = "wrong_player"
	ReasonNoActivePlayer      Reason = "no_active_player"
	ReasonInsufficientPlayers Reason = "insufficient_players"
	ReasonRosterFull          Reason = "roster_full"
	ReasonActionExhausted     Reason = "action_exhausted"
	ReasonNoPendingAction     Reason = "no_pending_action"
	ReasonPersistenceCorrupt  Reason = "persistence_corrupt"
)

// Limit names which height limit was exceeded
type Limit string

const (
	LimitClimb   Limit = "climb"
	LimitDescend Limit = "descend"
	LimitBuild   Limit = "build"
)

// RuleError is a recoverable rule violation reported to the caller.
// errors.Is matches on Reason, and on Limit when the target sets one.
type RuleError struct {
	Reason  Reason
	Limit   Limit
	Message string
}

func (e *RuleError) Error() string {
	msg := string(e.Reason)
	if e.Limit != "" {
		msg += "(" + string(e.Limit) + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason && (t.Limit == "" || t.Limit == e.Limit)
}

var (
	ErrOutOfBounds         = &RuleError{Reason: ReasonOutOfBounds}
	ErrOccupiedByPlayer    = &RuleError{Reason: ReasonOccupiedByPlayer}
	ErrHeightLimitExceeded = &RuleError{Reason: ReasonHeightLimitExceeded}
	ErrClimbTooHigh        = &RuleError{Reason: ReasonHeightLimitExceeded, Limit: LimitClimb}
	ErrDescendTooFar       = &RuleError{Reason: ReasonHeightLimitExceeded, Limit: LimitDescend}
	ErrBuildTooHigh        = &RuleError{Reason: ReasonHeightLimitExceeded, Limit: LimitBuild}
	ErrNotSupported        = &RuleError{Reason: ReasonNotSupported}
	ErrNotReachable        = &RuleError{Reason: ReasonNotReachable}
	ErrNotAdjacent         = &RuleError{Reason: ReasonNotAdjacent}
	ErrWrongPhase          = &RuleError{Reason: ReasonWrongPhase}
	ErrWrongPlayer         = &RuleError{Reason: ReasonWrongPlayer}
	ErrNoActivePlayer      = &RuleError{Reason: ReasonNoActivePlayer}
	ErrInsufficientPlayers = &RuleError{Reason: ReasonInsufficientPlayers}
	ErrRosterFull          = &RuleError{Reason: ReasonRosterFull}
	ErrActionExhausted     = &RuleError{Reason: ReasonActionExhausted}
	ErrNoPendingAction     = &RuleError{Reason: ReasonNoPendingAction}
	ErrPersistenceCorrupt  = &RuleError{Reason: ReasonPersistenceCorrupt}

	// ErrSnapshotNotFound is returned by stores for an unknown slot.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

func ruleErr(reason Reason, format string, args ...any) *RuleError {
	return &RuleError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func limitErr(limit Limit, format string, args ...any) *RuleError {
	return &RuleError{Reason: ReasonHeightLimitExceeded, Limit: limit, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rule reason from err, or "" when err is not a rule error
func ReasonOf(err error) Reason {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}
