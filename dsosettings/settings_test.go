package dsosettings_test

import (
	"testing"

	"github.com/oscilok/bench/dsosettings"
)

func blob(ch1VoltDiv, ch1Probe, ch2VoltDiv, ch2Probe, secDiv byte) []byte {
	b := make([]byte, dsosettings.RawLength)
	b[1] = ch1VoltDiv
	b[5] = ch1Probe
	b[11] = ch2VoltDiv
	b[15] = ch2Probe
	b[156] = secDiv
	return b
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	if _, err := dsosettings.Decode(make([]byte, 212)); err == nil {
		t.Fatal("expected an error for a short blob")
	}
	if _, err := dsosettings.Decode(make([]byte, 214)); err == nil {
		t.Fatal("expected an error for a long blob")
	}
}

func TestDecodeTypicalSettings(t *testing.T) {
	b := blob(8, byte(dsosettings.Probe1x), 5, byte(dsosettings.Probe10x), 18)
	s, err := dsosettings.Decode(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CH1.VoltDivName != "V1" || s.CH1.Multiplier != 0.04581 {
		t.Fatalf("unexpected CH1: %+v", s.CH1)
	}
	if s.CH2.VoltDivName != "V1" || s.CH2.Multiplier != 0.04581 {
		t.Fatalf("unexpected CH2: %+v", s.CH2)
	}
	if s.SecDivName != "MS2" {
		t.Fatalf("unexpected sec/div name: %s", s.SecDivName)
	}
}

func TestDecodeIndexElevenIsEmpty(t *testing.T) {
	b := blob(11, byte(dsosettings.Probe1x), 11, byte(dsosettings.Probe10x), 0)
	s, err := dsosettings.Decode(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CH1.VoltDivName != "" || s.CH1.Multiplier != 0 {
		t.Fatalf("expected an empty decode at index 11, got %+v", s.CH1)
	}
	if s.CH2.VoltDivName != "" {
		t.Fatalf("expected an empty decode at index 11, got %+v", s.CH2)
	}
}

func TestDecodeProbe100x(t *testing.T) {
	b := blob(8, byte(dsosettings.Probe100x), 0, byte(dsosettings.Probe100x), 0)
	s, err := dsosettings.Decode(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CH1.VoltDivName != "V100" || s.CH1.Multiplier != 4.66666 {
		t.Fatalf("unexpected CH1: %+v", s.CH1)
	}
}
