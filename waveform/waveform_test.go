package waveform_test

import (
	"testing"

	"github.com/oscilok/bench/waveform"
)

func TestHasSignalEmpty(t *testing.T) {
	if waveform.HasSignal(nil) {
		t.Fatal("expected no signal for empty data")
	}
}

func TestHasSignalFlatLine(t *testing.T) {
	flat := make([]byte, 64)
	for i := range flat {
		flat[i] = 128
	}
	if waveform.HasSignal(flat) {
		t.Fatal("expected no signal for a flat line")
	}
}

// squareWave builds a synthetic unsigned trace toggling between a low and
// high plateau, each held for plateauLen samples, for cycles full cycles.
func squareWave(low, high byte, plateauLen, cycles int) []byte {
	var out []byte
	for c := 0; c < cycles; c++ {
		for i := 0; i < plateauLen; i++ {
			out = append(out, high)
		}
		for i := 0; i < plateauLen; i++ {
			out = append(out, low)
		}
	}
	return out
}

func TestAnalyzeSquareWaveClassifiesSquare(t *testing.T) {
	// 100-sample plateaus: the 16-sample smoothing window shortens the
	// detected top to 85 of the 100-sample half wave, above the 80% bound.
	data := squareWave(60, 200, 100, 6)
	w := waveform.Analyze(data)
	if w.Type != waveform.Square {
		t.Fatalf("expected SQUARE, got %s (%d dots)", w.Type, len(w.Dots))
	}
}

func TestAnalyzeShortTraceIsUnknown(t *testing.T) {
	data := make([]byte, 10)
	w := waveform.Analyze(data)
	if w.Type != waveform.Unknown {
		t.Fatalf("expected UNKNOWN for a too-short trace, got %s", w.Type)
	}
}

func TestAnalyzeFlatLineIsUnknown(t *testing.T) {
	data := make([]byte, 400)
	for i := range data {
		data[i] = 128
	}
	w := waveform.Analyze(data)
	if w.Type != waveform.Unknown {
		t.Fatalf("expected UNKNOWN for a flat line, got %s", w.Type)
	}
}

func TestIsTopSineInsideTopSquareEmptyInputs(t *testing.T) {
	if waveform.IsTopSineInsideTopSquare(nil, []waveform.Dot{{Peak: waveform.TopEnd}}) {
		t.Fatal("expected false for an empty sine set")
	}
	if waveform.IsTopSineInsideTopSquare([]waveform.Dot{{Peak: waveform.TopEnd}}, nil) {
		t.Fatal("expected false for an empty square set")
	}
}

func TestIsTopSineInsideTopSquareSynced(t *testing.T) {
	sine := []waveform.Dot{
		{Time: 100, Peak: waveform.TopStart},
		{Time: 110, Peak: waveform.TopEnd},
	}
	sine = append(make([]waveform.Dot, 3), sine...) // pad so len(sine)/3 skips nothing relevant
	square := []waveform.Dot{
		{Time: 90, Peak: waveform.TopStart},
		{Time: 120, Peak: waveform.TopEnd},
	}
	if !waveform.IsTopSineInsideTopSquare(sine, square) {
		t.Fatal("expected the sine's top plateau to be inside the square's")
	}
}

func TestIsTopSineInsideTopSquareNotSynced(t *testing.T) {
	sine := append(make([]waveform.Dot, 3), []waveform.Dot{
		{Time: 100, Peak: waveform.TopStart},
		{Time: 110, Peak: waveform.TopEnd},
	}...)
	square := []waveform.Dot{
		{Time: 105, Peak: waveform.TopStart}, // starts after the sine's top start
		{Time: 120, Peak: waveform.TopEnd},
	}
	if waveform.IsTopSineInsideTopSquare(sine, square) {
		t.Fatal("expected not synced when the square's top starts later than the sine's")
	}
}

func TestWaveTypeString(t *testing.T) {
	cases := map[waveform.WaveType]string{
		waveform.Unknown: "UNKNOWN",
		waveform.Sine:    "SINE",
		waveform.Square:  "SQUARE",
	}
	for wt, want := range cases {
		if got := wt.String(); got != want {
			t.Fatalf("WaveType(%d).String() = %q, want %q", wt, got, want)
		}
	}
}
