package reconcile

import "testing"

func TestStep(t *testing.T) {
	tests := []struct {
		name       string
		state      State
		anyActive  bool
		wantState  State
		wantAction Action
	}{
		{
			name:       "idle/camera_activates",
			state:      StateIdle,
			anyActive:  true,
			wantState:  StateActive,
			wantAction: ActionBroadcastOn,
		},
		{
			name:       "idle/still_inactive",
			state:      StateIdle,
			anyActive:  false,
			wantState:  StateIdle,
			wantAction: ActionNone,
		},
		{
			name:       "active/still_active",
			state:      StateActive,
			anyActive:  true,
			wantState:  StateActive,
			wantAction: ActionNone,
		},
		{
			name:       "active/last_camera_deactivates",
			state:      StateActive,
			anyActive:  false,
			wantState:  StatePendingOff,
			wantAction: ActionScheduleOff,
		},
		{
			name:       "pending_off/reactivated_inside_window",
			state:      StatePendingOff,
			anyActive:  true,
			wantState:  StateActive,
			wantAction: ActionBroadcastOn,
		},
		{
			name:       "pending_off/still_inactive",
			state:      StatePendingOff,
			anyActive:  false,
			wantState:  StatePendingOff,
			wantAction: ActionNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotState, gotAction := Step(tt.state, tt.anyActive)
			if gotState != tt.wantState || gotAction != tt.wantAction {
				t.Errorf("Step(%v, %v) = (%v, %v), want (%v, %v)",
					tt.state, tt.anyActive, gotState, gotAction, tt.wantState, tt.wantAction)
			}
		})
	}
}

func TestStepTimer(t *testing.T) {
	tests := []struct {
		name       string
		state      State
		anyActive  bool
		wantState  State
		wantAction Action
	}{
		{
			name:       "pending_off/fires_while_inactive",
			state:      StatePendingOff,
			anyActive:  false,
			wantState:  StateIdle,
			wantAction: ActionBroadcastOff,
		},
		{
			name:       "pending_off/fires_after_reactivation_race",
			state:      StatePendingOff,
			anyActive:  true,
			wantState:  StateActive,
			wantAction: ActionNone,
		},
		{
			name:       "idle/stale_fire",
			state:      StateIdle,
			anyActive:  false,
			wantState:  StateIdle,
			wantAction: ActionNone,
		},
		{
			name:       "active/stale_fire",
			state:      StateActive,
			anyActive:  true,
			wantState:  StateActive,
			wantAction: ActionNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotState, gotAction := StepTimer(tt.state, tt.anyActive)
			if gotState != tt.wantState || gotAction != tt.wantAction {
				t.Errorf("StepTimer(%v, %v) = (%v, %v), want (%v, %v)",
					tt.state, tt.anyActive, gotState, gotAction, tt.wantState, tt.wantAction)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "idle"},
		{StateActive, "active"},
		{StatePendingOff, "pending_off"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestActionString(t *testing.T) {
	tests := []struct {
		action   Action
		expected string
	}{
		{ActionNone, "none"},
		{ActionBroadcastOn, "broadcast_on"},
		{ActionScheduleOff, "schedule_off"},
		{ActionBroadcastOff, "broadcast_off"},
		{Action(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.action.String(); got != tt.expected {
				t.Errorf("Action.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}
