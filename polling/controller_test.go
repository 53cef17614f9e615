package polling

import (
	"errors"
	"testing"
	"time"

	"github.com/oscilok/bench/dsousb"
	"github.com/oscilok/bench/waveform"
)

// fakeScheduler records an arm and never actually fires it; tests invoke
// the recorded fn manually to step the controller one tick at a time.
type fakeScheduler struct {
	delay time.Duration
	fn    func()
}

func (s *fakeScheduler) After(d time.Duration, fn func()) {
	s.delay = d
	s.fn = fn
}

type fakeUI struct {
	sched        fakeScheduler
	states       []NgState
	deviceMsgs   []string
	channelLines [2]string
	readingLabel string
	buttonsOff   bool
	disableCalls int
}

func (u *fakeUI) Channels(lines [2]string) { u.channelLines = lines }
func (u *fakeUI) Device(msg string)        { u.deviceMsgs = append(u.deviceMsgs, msg) }
func (u *fakeUI) Reading(label string)     { u.readingLabel = label }
func (u *fakeUI) DisableButtons(d bool)    { u.buttonsOff = d; u.disableCalls++ }
func (u *fakeUI) NG(state NgState) Scheduler {
	u.states = append(u.states, state)
	return &u.sched
}

func (u *fakeUI) lastDevice() string {
	if len(u.deviceMsgs) == 0 {
		return ""
	}
	return u.deviceMsgs[len(u.deviceMsgs)-1]
}

func (u *fakeUI) lastState() NgState {
	if len(u.states) == 0 {
		return Stop
	}
	return u.states[len(u.states)-1]
}

// fakeDevice plays back a scripted sequence of Dual() results.
type fakeDevice struct {
	results []dualResult
	idx     int
	closed  int
}

type dualResult struct {
	waves []waveform.Wave
	err   error
}

func (d *fakeDevice) Dual() ([]waveform.Wave, error) {
	if d.idx >= len(d.results) {
		return d.results[len(d.results)-1].waves, d.results[len(d.results)-1].err
	}
	r := d.results[d.idx]
	d.idx++
	return r.waves, r.err
}

func (d *fakeDevice) Close() error { d.closed++; return nil }

// sineWave and squareWave produce waves whose Dots are already "in sync"
// per IsTopSineInsideTopSquare, for tests whose focus is the OK/voltage
// path rather than sync detection itself.
func sineWave(vpp float64) waveform.Wave {
	return waveform.Wave{
		Data: []byte{1, 2, 3},
		Type: waveform.Sine,
		Vpp:  vpp,
		Dots: []waveform.Dot{
			{Time: 100, Peak: waveform.TopStart},
			{Time: 105, Peak: waveform.TopEnd},
		},
	}
}

func squareWave() waveform.Wave {
	return waveform.Wave{
		Data: []byte{1, 2, 3},
		Type: waveform.Square,
		Dots: []waveform.Dot{
			{Time: 90, Peak: waveform.TopStart},
			{Time: 110, Peak: waveform.TopEnd},
		},
	}
}

func newTestController(dev *fakeDevice, ui *fakeUI, beepLog *[]bool) *Controller {
	beep := func(ok bool) error {
		*beepLog = append(*beepLog, ok)
		return nil
	}
	return New(dev, beep, ui, nil, func(err error) {})
}

// Law 12: the OK counter crosses 1 exactly once per run, and that single
// crossing triggers exactly one short beep.
func TestOkCountCrossesOneOnce(t *testing.T) {
	dev := &fakeDevice{results: []dualResult{
		{waves: []waveform.Wave{sineWave(3), squareWave()}},
	}}
	ui := &fakeUI{}
	var beeps []bool
	c := newTestController(dev, ui, &beeps)

	c.Toggle() // enters Polling, runs first tick synchronously

	if c.okCount != 1 {
		t.Fatalf("okCount = %d, want 1", c.okCount)
	}
	if len(beeps) != 1 {
		t.Fatalf("expected exactly 1 beep, got %d", len(beeps))
	}

	// second tick, still OK: okCount becomes 2, no further beep at the
	// crossing (only the 1 -> the count==1 check fires once)
	if c.sched().fn != nil {
		c.sched().fn()
	}
	if c.okCount != 2 {
		t.Fatalf("okCount = %d, want 2", c.okCount)
	}
	if len(beeps) != 1 {
		t.Fatalf("expected beep count to stay at 1, got %d", len(beeps))
	}
}

// sched returns the fakeScheduler the fakeUI.NG handed out.
func (c *Controller) sched() *fakeScheduler {
	return &c.ui.(*fakeUI).sched
}

// Law 13: a single-shot run terminates within SINGLE_READ_TRY_COUNT ticks
// when the device never produces a usable sine wave.
func TestSingleShotTerminatesWithinBudget(t *testing.T) {
	unknown := []dualResult{}
	for i := 0; i < singleReadTryCount+2; i++ {
		unknown = append(unknown, dualResult{waves: []waveform.Wave{
			{Data: []byte{1, 2, 3}, Type: waveform.Unknown},
			{Data: []byte{1, 2, 3}, Type: waveform.Unknown},
		}})
	}
	dev := &fakeDevice{results: unknown}
	ui := &fakeUI{}
	var beeps []bool
	c := newTestController(dev, ui, &beeps)

	c.Single()

	ticks := 0
	for ticks < singleReadTryCount+1 {
		s := c.sched()
		if s.fn == nil {
			break
		}
		fn := s.fn
		s.fn = nil
		fn()
		ticks++
		if !c.polling {
			break
		}
	}

	if c.polling {
		t.Fatalf("expected single-shot run to have ended within %d ticks, still polling after %d", singleReadTryCount, ticks)
	}
	if ui.lastDevice() != "Cannot get sine wave" {
		t.Fatalf("expected final NG message 'Cannot get sine wave', got %q", ui.lastDevice())
	}
}

// Law 14: DeviceNotFound re-arms at exactly polling_time + 2000ms, never
// sooner.
func TestDeviceNotFoundRearmDelay(t *testing.T) {
	dev := &fakeDevice{results: []dualResult{
		{err: dsousb.ErrDeviceNotFound},
	}}
	ui := &fakeUI{}
	var beeps []bool
	c := newTestController(dev, ui, &beeps)

	c.Toggle()

	want := pollingTime + deviceNotFoundDelay
	if ui.sched.delay != want {
		t.Fatalf("re-arm delay = %v, want %v", ui.sched.delay, want)
	}
}

// Law 15: after toggling Polling -> Idle, no further device I/O happens
// until the next Toggle.
func TestToggleOffStopsDeviceIO(t *testing.T) {
	dev := &fakeDevice{results: []dualResult{
		{waves: []waveform.Wave{sineWave(3), squareWave()}},
	}}
	ui := &fakeUI{}
	var beeps []bool
	c := newTestController(dev, ui, &beeps)

	c.Toggle() // Idle -> Polling, one Dual() call
	callsAfterFirstTick := dev.idx

	c.Toggle() // Polling -> Idle
	if dev.closed != 1 {
		t.Fatalf("expected Close to be called once, got %d", dev.closed)
	}

	// the scheduler fn recorded by the OK tick, if invoked now, must be a
	// no-op since polling is false.
	if c.sched().fn != nil {
		c.sched().fn()
	}
	if dev.idx != callsAfterFirstTick {
		t.Fatalf("expected no further Dual() calls after Toggle to Idle, got %d (had %d)", dev.idx, callsAfterFirstTick)
	}
}

func TestLowVoltageIsNg(t *testing.T) {
	dev := &fakeDevice{results: []dualResult{
		{waves: []waveform.Wave{sineWave(1.0), squareWave()}},
	}}
	ui := &fakeUI{}
	var beeps []bool
	c := newTestController(dev, ui, &beeps)

	c.Toggle()

	if ui.lastDevice() != "Low voltage" {
		t.Fatalf("expected 'Low voltage', got %q", ui.lastDevice())
	}
	if c.ngCount != 1 {
		t.Fatalf("ngCount = %d, want 1", c.ngCount)
	}
}

func TestNotSyncIsNg(t *testing.T) {
	// sine with a top plateau that starts before the square's: never
	// "inside" the square's top plateau.
	sine := waveform.Wave{
		Data: []byte{1, 2, 3},
		Type: waveform.Sine,
		Vpp:  3.0,
		Dots: []waveform.Dot{
			{Time: 100, Peak: waveform.TopStart},
			{Time: 105, Peak: waveform.TopEnd},
			{Time: 120, Peak: waveform.BottomStart},
			{Time: 125, Peak: waveform.BottomEnd},
		},
	}
	square := waveform.Wave{
		Data: []byte{1, 2, 3},
		Type: waveform.Square,
		Dots: []waveform.Dot{
			{Time: 110, Peak: waveform.TopStart},
			{Time: 115, Peak: waveform.TopEnd},
			{Time: 120, Peak: waveform.BottomStart},
			{Time: 125, Peak: waveform.BottomEnd},
		},
	}
	dev := &fakeDevice{results: []dualResult{{waves: []waveform.Wave{sine, square}}}}
	ui := &fakeUI{}
	var beeps []bool
	c := newTestController(dev, ui, &beeps)

	c.Toggle()

	if ui.lastDevice() != "Not Sync" {
		t.Fatalf("expected 'Not Sync', got %q", ui.lastDevice())
	}
}

func TestFatalOnGenericUSBError(t *testing.T) {
	dev := &fakeDevice{results: []dualResult{
		{err: errors.New("bulk transfer: io error")},
	}}
	ui := &fakeUI{}
	var beeps []bool
	called := false
	c := newTestController(dev, ui, &beeps)
	c.fatal = func(err error) { called = true }

	c.Toggle()

	if !called {
		t.Fatal("expected fatal to be invoked on an unclassified USB error")
	}
}
