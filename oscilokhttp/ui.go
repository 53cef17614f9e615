package oscilokhttp

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/oscilok/bench/polling"
)

// scheduler re-arms a polling tick on a new goroutine that sleeps for the
// requested delay, paced by a rate limiter as a floor against a tick firing faster than intended — the
// same rate.Limiter.Wait pacing golaborate's nkt package uses ahead of
// each telegram in an address scan.
type scheduler struct {
	limiter *rate.Limiter
}

func (s *scheduler) After(d time.Duration, fn func()) {
	go func() {
		time.Sleep(d)
		_ = s.limiter.Wait(context.Background())
		fn()
	}()
}

// UI is an HTTP-facing implementation of polling.UI: it has no screen to
// draw, so it just records the latest snapshot under a mutex for GET
// /<dso>/status to serve.
type UI struct {
	mu sync.Mutex

	channels [2]string
	device   string
	state    polling.NgState
	reading  string
	disabled bool

	sched scheduler
}

// NewUI returns a UI whose Scheduler paces re-arms to at most one tick per
// minInterval, a safety floor above whatever the controller itself asks for.
func NewUI(minInterval time.Duration) *UI {
	rps := rate.Limit(1)
	if minInterval > 0 {
		rps = rate.Every(minInterval)
	}
	return &UI{
		reading: "Start",
		sched:   scheduler{limiter: rate.NewLimiter(rps, 1)},
	}
}

func (u *UI) Channels(lines [2]string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.channels = lines
}

func (u *UI) Device(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.device = msg
}

func (u *UI) NG(state polling.NgState) polling.Scheduler {
	u.mu.Lock()
	u.state = state
	u.mu.Unlock()
	return &u.sched
}

func (u *UI) Reading(label string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.reading = label
}

func (u *UI) DisableButtons(disabled bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.disabled = disabled
}

// Snapshot is a point-in-time copy of the UI's recorded state, safe to
// serialize.
type Snapshot struct {
	Channels [2]string
	Device   string
	State    polling.NgState
	Reading  string
	Disabled bool
}

func (u *UI) Snapshot() Snapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return Snapshot{
		Channels: u.channels,
		Device:   u.device,
		State:    u.state,
		Reading:  u.reading,
		Disabled: u.disabled,
	}
}
