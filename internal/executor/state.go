package executor

// State is the lifecycle state of an Executor.
type State int

const (
	// StateInit is the state of a freshly created executor.
	StateInit State = iota

	// StatePrepared means the script, tool and report path are resolved.
	StatePrepared

	// StateRunning means the runner process has been started.
	StateRunning

	// StateStopped means Shutdown has run; the process is no longer alive.
	StateStopped

	// StateProcessed means the report has been parsed.
	StateProcessed

	// StateFailed is absorbing: no further transition leaves it.
	StateFailed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePrepared:
		return "prepared"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateProcessed:
		return "processed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if no lifecycle operation can advance the state.
func (s State) IsTerminal() bool {
	return s == StateProcessed || s == StateFailed
}

// Outcome is the tri-state result of a non-blocking Check.
type Outcome int

const (
	OutcomeRunning Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeRunning:
		return "running"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Done reports whether the runner has finished.
func (o Outcome) Done() bool {
	return o != OutcomeRunning
}
