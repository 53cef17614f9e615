package polling

import "time"

// NgState is the UI feedback token the controller reports on every tick.
type NgState int

// NgState values.
const (
	Stop NgState = iota
	Progress
	NG
	OK
)

func (s NgState) String() string {
	switch s {
	case Progress:
		return "PROGRESS"
	case NG:
		return "NG"
	case OK:
		return "OK"
	default:
		return "STOP"
	}
}

// Scheduler re-arms the next tick. The host UI toolkit provides this (a
// Tk `.after`, a GTK idle-add, a time.AfterFunc wrapper); the controller
// never calls time.Sleep or owns a timer itself.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// UI is the external collaborator surface the controller drives. None of
// its methods block on device I/O; they only update operator-facing state.
type UI interface {
	// Channels reports the two per-channel status lines.
	Channels(lines [2]string)

	// Device reports a single device/error status line.
	Device(msg string)

	// NG reports the current NgState and returns the Scheduler used to
	// arm the next tick.
	NG(state NgState) Scheduler

	// Reading sets the toggle button's label ("Start" or "Stop").
	Reading(label string)

	// DisableButtons gates UI buttons during single-shot mode.
	DisableButtons(disabled bool)
}

// Fatal reports an unrecoverable error (no USB backend, or an unexpected
// low-level USB error) to the operator and ends the process. The default
// installed by New shows nothing but a log line and calls os.Exit(1); a
// real frontend overrides it with a modal dialog.
type Fatal func(err error)
