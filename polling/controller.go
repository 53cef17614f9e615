// Package polling drives the periodic acquire-classify-decide loop that
// turns two oscilloscope channels into an operator-facing OK/NG/PROGRESS
// verdict.
package polling

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/oscilok/bench/dsousb"
	"github.com/oscilok/bench/waveform"
)

// Device is the sampling collaborator a Controller drives: *scope.Scope
// satisfies it directly. Kept narrow (no Settings, no per-channel Read) so
// tests can fake it without touching USB.
type Device interface {
	Dual() ([]waveform.Wave, error)
	Close() error
}

// Tuning constants, all wire- or operator-visible per the protocol and the
// bench procedure that drives it.
const (
	pollingTime         = 500 * time.Millisecond
	minVoltP2P          = 2.5
	singleReadTryCount  = 6
	deviceNotFoundDelay = 2 * time.Second
)

// Controller is the polling state machine. It owns one Scope for the
// duration of polling and drives it from a single logical loop re-armed by
// the UI's Scheduler; see Device and UI for the collaborators it composes.
type Controller struct {
	device Device
	beep   func(ok bool) error
	ui     UI
	fatal  Fatal
	log    *log.Logger

	polling            bool
	okCount, ngCount   int
	singleReadTryCount int
}

// New returns an Idle Controller driving device and reporting to ui. beep
// rings the bench buzzer (ordinarily sc.Beeper().Beep for a *scope.Scope
// sc). A nil logger falls back to the standard logger; a nil fatal falls
// back to logging the error and exiting the process.
func New(device Device, beep func(ok bool) error, ui UI, logger *log.Logger, fatal Fatal) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	if fatal == nil {
		fatal = func(err error) {
			logger.Printf("polling: fatal: %v", err)
			os.Exit(1)
		}
	}
	return &Controller{device: device, beep: beep, ui: ui, log: logger, fatal: fatal}
}

// Polling reports whether the controller is currently in Polling mode.
func (c *Controller) Polling() bool { return c.polling }

// Counts reports the current consecutive OK and NG tick counts.
func (c *Controller) Counts() (ok, ng int) { return c.okCount, c.ngCount }

// Toggle switches between Idle and Polling. Entering Polling starts the
// tick loop immediately; leaving it closes the Scope, so no further device
// I/O occurs until the next Toggle.
func (c *Controller) Toggle() {
	c.okCount = 0
	c.ngCount = 0

	if c.polling {
		c.polling = false
		c.ui.NG(Stop)
		c.ui.Reading("Start")
		c.device.Close()
		return
	}

	c.polling = true
	c.ui.Reading("Stop")
	c.ui.Channels([2]string{"", ""})
	c.ui.Device("")
	c.reading()
}

// Single seeds a bounded-retry single-shot run: at most singleReadTryCount
// ticks before a definitive OK, a definitive NG, or a final "Cannot get
// sine wave" NG.
func (c *Controller) Single() {
	c.singleReadTryCount = singleReadTryCount
	c.ui.DisableButtons(true)

	if c.polling {
		return
	}
	c.Toggle()
}

// reading is one tick of the loop.
func (c *Controller) reading() {
	if !c.polling {
		return
	}

	data, err := c.device.Dual()
	if err != nil {
		c.handleError(err)
		return
	}

	for i, w := range data {
		if len(w.Data) == 0 {
			c.ui.Channels([2]string{"-", "-"})
			c.ui.Device(fmt.Sprintf("No CH%d", i+1))
			c.inProgress()
			return
		}
	}
	c.ui.Device("")
	c.checkWave(data)
}

// handleError maps a Scope error to the recovery behavior the error
// taxonomy calls for; see the package-level error handling notes in
// dsousb for the sentinels checked here.
func (c *Controller) handleError(err error) {
	var sampleLost *dsousb.SampleLostError

	switch {
	case errors.Is(err, dsousb.ErrDeviceNotFound):
		c.ui.Device(err.Error())
		c.ui.NG(Stop).After(pollingTime+deviceNotFoundDelay, c.reading)
		c.ui.DisableButtons(false)
		c.clearSingleCount()

	case errors.As(err, &sampleLost):
		c.ui.Device(err.Error())
		c.ui.NG(Stop).After(pollingTime+deviceNotFoundDelay, c.reading)
		// state (counters, single-shot budget) is intentionally untouched

	case errors.Is(err, dsousb.ErrOscilloscope), errors.Is(err, dsousb.ErrTimeout):
		c.log.Println(err)
		c.ui.Device(err.Error())
		c.ui.NG(Stop).After(pollingTime, c.reading)
		c.clearSingleCount()
		c.device.Close()

	default:
		// ErrNoBackend, or anything else unclassified: unrecoverable.
		c.log.Println(err)
		c.fatal(err)
	}
}

// checkWave classifies both channels and decides OK/NG/PROGRESS.
func (c *Controller) checkWave(data []waveform.Wave) {
	lines := [2]string{}
	for i, w := range data {
		lines[i] = fmt.Sprintf("ch%d:%s (%d) Vp-p: %.4g V", i+1, w.Type, len(w.Data), w.Vpp)
	}
	c.ui.Channels(lines)

	var sine, square *waveform.Wave
	for i := range data {
		w := &data[i]

		if w.Type == waveform.Unknown {
			c.okCount = 0
			c.ngCount = 0
			if c.singleReadCount() {
				return
			}
			c.inProgress()
			return
		}

		switch w.Type {
		case waveform.Sine:
			sine = w
			if w.Vpp != 0 && w.Vpp < minVoltP2P {
				c.ng()
				c.ui.Device("Low voltage")
				return
			}
		case waveform.Square:
			square = w
		}
	}

	if sine == nil {
		if c.singleReadCount() {
			return
		}
		c.inProgress()
		return
	}

	var squareDots []waveform.Dot
	if square != nil {
		squareDots = square.Dots
	}
	if !waveform.IsTopSineInsideTopSquare(sine.Dots, squareDots) {
		c.ng()
		c.ui.Device("Not Sync")
		return
	}

	c.ok()
}

// clearSingleCount abandons any in-progress single-shot run: if one was
// active, it returns the controller to Idle.
func (c *Controller) clearSingleCount() {
	if c.singleReadTryCount > 0 {
		c.Toggle()
	}
	c.singleReadTryCount = 0
}

// singleReadCount consumes one single-shot retry. It reports true only
// when the budget has just been exhausted, having already emitted the
// final "Cannot get sine wave" NG.
func (c *Controller) singleReadCount() bool {
	if c.singleReadTryCount > 0 {
		c.singleReadTryCount--
		c.log.Printf("polling: single_read: %d", c.singleReadTryCount)
		if c.singleReadTryCount == 1 {
			c.ng()
			c.ui.Device("Cannot get sine wave")
			return true
		}
	}
	return false
}

func (c *Controller) inProgress() {
	c.ui.NG(Progress).After(pollingTime, c.reading)
}

func (c *Controller) ok() {
	c.okCount++
	c.ngCount = 0

	if c.singleReadTryCount > 0 {
		c.Toggle()
		c.ring(true)
		c.singleReadTryCount = 0
	} else {
		c.ui.Device(fmt.Sprintf("OK time: %d seconds", pollingSecondUpdate(c.okCount)))
	}
	c.ui.NG(OK).After(pollingTime, c.reading)
	c.ui.DisableButtons(false)

	if c.okCount == 1 {
		c.ring(true)
	}
}

// ng handles the counter/beep/re-arm side of a failed tick. In continuous
// mode it reports a generic "NG time" message; callers with a specific
// reason ("Low voltage", "Not Sync") report it themselves immediately
// after calling ng, so the specific reason always wins.
func (c *Controller) ng() {
	c.okCount = 0
	c.ngCount++

	if c.singleReadTryCount > 0 {
		c.Toggle()
		c.ring(false)
		c.singleReadTryCount = 0
	} else {
		c.ui.Device(fmt.Sprintf("NG time: %d seconds", pollingSecondUpdate(c.ngCount)))
	}
	c.ui.NG(NG).After(pollingTime, c.reading)
	c.ui.DisableButtons(false)

	if c.ngCount == 1 {
		c.ring(false)
	}
}

func (c *Controller) ring(ok bool) {
	if c.beep == nil {
		return
	}
	if err := c.beep(ok); err != nil {
		c.log.Printf("polling: beep: %v", err)
	}
}

func pollingSecondUpdate(count int) int {
	ticksPerSecond := int(time.Second / pollingTime)
	return count / ticksPerSecond
}
