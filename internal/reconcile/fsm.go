package reconcile

// State represents the reconciler's debounce state.
type State int

const (
	StateIdle State = iota
	StateActive
	StatePendingOff
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StatePendingOff:
		return "pending_off"
	default:
		return "unknown"
	}
}

// Action represents what needs to happen after a transition.
type Action int

const (
	ActionNone Action = iota
	ActionBroadcastOn
	ActionScheduleOff
	ActionBroadcastOff
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionBroadcastOn:
		return "broadcast_on"
	case ActionScheduleOff:
		return "schedule_off"
	case ActionBroadcastOff:
		return "broadcast_off"
	default:
		return "unknown"
	}
}

// Step determines the next state and action after the activity aggregate has
// been re-derived from a camera event. ON edges act immediately; OFF edges
// only schedule the debounced off timer. The executor cancels that timer
// whenever StatePendingOff is left.
func Step(state State, anyActive bool) (State, Action) {
	switch state {
	case StateIdle:
		if anyActive {
			return StateActive, ActionBroadcastOn
		}
		return StateIdle, ActionNone

	case StateActive:
		if anyActive {
			// Another camera turning on while lights are on changes nothing
			return StateActive, ActionNone
		}
		return StatePendingOff, ActionScheduleOff

	case StatePendingOff:
		if anyActive {
			// Reactivated inside the debounce window
			return StateActive, ActionBroadcastOn
		}
		return StatePendingOff, ActionNone
	}

	return state, ActionNone
}

// StepTimer determines the transition when the off timer fires. The aggregate
// is re-checked at fire time, so a reactivation that raced the timer keeps
// the lights on. A stale fire in any other state is a no-op.
func StepTimer(state State, anyActive bool) (State, Action) {
	if state != StatePendingOff {
		return state, ActionNone
	}
	if anyActive {
		return StateActive, ActionNone
	}
	return StateIdle, ActionBroadcastOff
}
