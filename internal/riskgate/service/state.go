package service

import (
	dErrors "riskgate/pkg/domain-errors"
)

// State is a stage of one release evaluation run. The precheck skip of the
// external assessor is a first-class transition (Prechecked →
// BlockedByPrecheck), not an early return buried in the pipeline.
type State string

const (
	StateRequested          State = "requested"
	StatePrechecked         State = "prechecked"
	StateBlockedByPrecheck  State = "blocked_by_precheck"
	StateAIAssessed         State = "ai_assessed"
	StateCombined           State = "combined"
	StateReleased           State = "released"
	StateBlocked            State = "blocked"
	StateOverriddenReleased State = "overridden_released"
)

// transitions is the full transition relation. Released, Blocked, and
// OverriddenReleased are terminal except for the override edge out of
// Blocked.
var transitions = map[State][]State{
	StateRequested:         {StatePrechecked},
	StatePrechecked:        {StateBlockedByPrecheck, StateAIAssessed},
	StateBlockedByPrecheck: {StateCombined},
	StateAIAssessed:        {StateCombined},
	StateCombined:          {StateReleased, StateBlocked},
	StateBlocked:           {StateOverriddenReleased},
}

// run tracks one evaluation attempt through the pipeline.
type run struct {
	state State
}

func newRun() *run {
	return &run{state: StateRequested}
}

// transition advances the run or fails with an invariant violation. A failed
// transition is a programming error in the pipeline, not a caller error.
func (r *run) transition(to State) error {
	for _, allowed := range transitions[r.state] {
		if allowed == to {
			r.state = to
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeInvariantViolation,
		"illegal gate transition %s -> %s", r.state, to)
}
