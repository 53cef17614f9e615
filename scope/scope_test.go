package scope

import (
	"testing"
	"time"

	"github.com/oscilok/bench/dsosettings"
	"github.com/oscilok/bench/waveform"
)

func TestReadingCacheRecentShortCircuits(t *testing.T) {
	c := newReadingCache()
	c.put(1, waveform.Wave{Type: waveform.Sine}, 4000)
	w, ok := c.get(1)
	if !ok || w.Type != waveform.Sine {
		t.Fatalf("expected a fresh entry to be returned, got ok=%v w=%+v", ok, w)
	}
}

func TestReadingCacheTooShortNeverStored(t *testing.T) {
	c := newReadingCache()
	c.put(1, waveform.Wave{Type: waveform.Sine}, cacheMinLen-1)
	if _, ok := c.get(1); ok {
		t.Fatal("expected a too-short sample to never be cached")
	}
}

func TestReadingCacheAgedPastRecentMisses(t *testing.T) {
	c := newReadingCache()
	c.entries[1] = cacheEntry{wave: waveform.Wave{Type: waveform.Sine}, stamp: time.Now().Add(-2 * time.Second)}
	if _, ok := c.get(1); ok {
		t.Fatal("expected an entry older than cacheRecent to miss")
	}
	// the entry itself should survive, since it hasn't hit cacheLifetime yet
	if _, stillPresent := c.entries[1]; !stillPresent {
		t.Fatal("expected the entry to remain present between cacheRecent and cacheLifetime")
	}
}

func TestReadingCacheExpiredIsDropped(t *testing.T) {
	c := newReadingCache()
	c.entries[1] = cacheEntry{wave: waveform.Wave{Type: waveform.Sine}, stamp: time.Now().Add(-4 * time.Second)}
	if _, ok := c.get(1); ok {
		t.Fatal("expected an expired entry to miss")
	}
	if _, stillPresent := c.entries[1]; stillPresent {
		t.Fatal("expected an expired entry to be dropped")
	}
}

func TestScaleVpp(t *testing.T) {
	s := &Scope{settings: &dsosettings.Settings{
		CH1: dsosettings.Channel{VoltDivName: "V1", Multiplier: 0.04581},
	}}
	got := s.scaleVpp(1, 100)
	want := 4.581
	if diff := got - want; diff > 0.0001 || diff < -0.0001 {
		t.Fatalf("scaleVpp(1, 100) = %v, want %v", got, want)
	}
}

func TestScaleVppNoSettingsIsZero(t *testing.T) {
	s := &Scope{}
	if got := s.scaleVpp(1, 100); got != 0 {
		t.Fatalf("expected 0 with no settings, got %v", got)
	}
}

func TestScaleVppUnknownVoltDivIsZero(t *testing.T) {
	s := &Scope{settings: &dsosettings.Settings{CH1: dsosettings.Channel{}}}
	if got := s.scaleVpp(1, 100); got != 0 {
		t.Fatalf("expected 0 for an undecoded volt/div, got %v", got)
	}
}
