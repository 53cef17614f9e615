// Package scope is the oscilloscope facade: it turns the low-level
// transport and settings decoder into "read a channel" and "read both
// channels", handling settings caching, channel-mismatch retry, and
// Vp-p scaling.
package scope

import (
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/oscilok/bench/dsosettings"
	"github.com/oscilok/bench/dsousb"
	"github.com/oscilok/bench/mathx"
	"github.com/oscilok/bench/waveform"
)

// settingsSettleDelay is the fixed wait after requesting settings before
// reading them back, matching the read-after-request cadence used
// throughout the wire protocol.
const settingsSettleDelay = 100 * time.Millisecond

// Scope is a single DSO accessed through a dsousb.Handle. It is not
// concurrency-safe; callers serialize access (the polling controller's
// single goroutine is the expected caller).
type Scope struct {
	handle *dsousb.Handle
	log    *log.Logger

	settings *dsosettings.Settings
	cache    *readingCache
	beeper   DeviceBeeper
}

// New returns a Scope backed by a lazily-opened Handle.
func New(logger *log.Logger) *Scope {
	if logger == nil {
		logger = log.Default()
	}
	h := dsousb.NewHandle(logger)
	return &Scope{
		handle: h,
		log:    logger,
		cache:  newReadingCache(),
		beeper: DeviceBeeper{handle: h},
	}
}

// Beeper exposes this Scope's buzzer as the polling controller's audible
// feedback collaborator.
func (s *Scope) Beeper() *DeviceBeeper { return &s.beeper }

// Close releases the underlying USB handle and forgets any cached settings.
func (s *Scope) Close() error {
	s.settings = nil
	s.cache.clear()
	return s.handle.Close()
}

// Settings reads and caches the DSO's current settings, once per session.
// Later calls return the cached value until Close.
func (s *Scope) Settings() (dsosettings.Settings, error) {
	if s.settings != nil {
		return *s.settings, nil
	}

	t, err := s.handle.Get()
	if err != nil {
		return dsosettings.Settings{}, err
	}

	if err := t.RequestSettings(); err != nil {
		s.handle.Destroy()
		return dsosettings.Settings{}, errors.Wrap(dsousb.ErrOscilloscope, err.Error())
	}
	time.Sleep(settingsSettleDelay)

	raw, err := t.GetSettings()
	if err != nil {
		s.handle.Destroy()
		return dsosettings.Settings{}, err
	}

	sett, err := dsosettings.Decode(raw)
	if err != nil {
		return dsosettings.Settings{}, errors.Wrap(dsousb.ErrOscilloscope, err.Error())
	}
	s.settings = &sett
	return sett, nil
}

// Dual reads both channels in turn, CH1 then CH2.
func (s *Scope) Dual() ([]waveform.Wave, error) {
	out := make([]waveform.Wave, 0, 2)
	for ch := 1; ch <= 2; ch++ {
		w, err := s.Read(ch)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// Read samples one 1-indexed channel and returns its classified wave. A
// cached reading less than cacheRecent old is returned without any USB
// traffic; see readingCache for the full policy.
func (s *Scope) Read(channel int) (waveform.Wave, error) {
	if w, ok := s.cache.get(channel); ok {
		return w, nil
	}

	if _, err := s.Settings(); err != nil {
		return waveform.Wave{}, err
	}

	t, err := s.handle.Get()
	if err != nil {
		return waveform.Wave{}, err
	}

	wire := channel - 1
	data, resp := sampleOnce(t, wire)
	if resp != wire {
		s.log.Printf("scope: wrong channel %d -> %d (%d bytes), retrying once", wire, resp, len(data))
		data, resp = t.GetSample()
		if resp != wire {
			s.log.Printf("scope: wrong channel again %d -> %d", wire, resp)
		}
	}
	if resp == -2 {
		return waveform.Wave{}, &dsousb.SampleLostError{Channel: wire}
	}

	wave := waveform.Analyze(data)
	if resp == wire {
		wave.Vpp = s.scaleVpp(channel, wave.P2P)
	}

	s.cache.put(channel, wave, len(data))
	return wave, nil
}

func sampleOnce(t *dsousb.Transport, wireChannel int) ([]byte, int) {
	if err := t.Sample(wireChannel); err != nil {
		return nil, -2
	}
	return t.GetSample()
}

func (s *Scope) scaleVpp(channel int, p2p int) float64 {
	if s.settings == nil {
		return 0
	}
	var ch dsosettings.Channel
	if channel == 1 {
		ch = s.settings.CH1
	} else {
		ch = s.settings.CH2
	}
	if ch.VoltDivName == "" {
		return 0
	}
	return mathx.Round(float64(p2p)*ch.Multiplier, 0.0001)
}
