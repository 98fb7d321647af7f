package app

// State is a step of the session driver.
type State int

const (
	Idle State = iota
	SessionSetup
	Running
	SessionTeardown
	Success
	Failed
	Done
)

var stateNames = [...]string{
	Idle:            "idle",
	SessionSetup:    "session_setup",
	Running:         "running",
	SessionTeardown: "session_teardown",
	Success:         "success",
	Failed:          "failed",
	Done:            "done",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Transition is one state change of the driver. Session is empty for the
// run-level transitions into and out of Idle and Done.
type Transition struct {
	Session string
	From    State
	To      State
	Err     error
}

// Observer receives every transition in order.
type Observer func(Transition)
