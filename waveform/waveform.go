// Package waveform turns a raw unsigned sample trace from a DSO channel
// into a classified wave (sine, square, or unknown) with peak timing
// suitable for checking that two channels are in sync.
package waveform

import "fmt"

// percentToPeak sizes the top/bottom "dead zone" margin used when walking
// the trace for peak transitions, as a percentage of the full top-to-bottom
// span.
const percentToPeak = 6

// movingAverageWindow is the number of samples folded into each smoothed
// point.
const movingAverageWindow = 16

// minDotsForClassification is the fewest peak transitions a trace must
// produce before classification is attempted at all.
const minDotsForClassification = 9

// minP2PForClassification is the smallest dot-to-dot peak-to-peak span
// (measured over Dot values only, not the full smoothed trace) that counts
// as a real signal rather than noise.
const minP2PForClassification = 40

// WaveType is the recognized shape of a wave.
type WaveType int

// Wave shapes this package can recognize.
const (
	Unknown WaveType = iota
	Sine
	Square
)

func (w WaveType) String() string {
	switch w {
	case Sine:
		return "SINE"
	case Square:
		return "SQUARE"
	default:
		return "UNKNOWN"
	}
}

// Peak is the state of a Dot in the top/bottom transition state machine.
type Peak int

// Peak states, in the order the state machine cycles through them.
const (
	PeakUnknown Peak = iota
	TopStart
	TopEnd
	BottomStart
	BottomEnd
)

func (p Peak) String() string {
	switch p {
	case TopStart:
		return "TP_ST"
	case TopEnd:
		return "TP_END"
	case BottomStart:
		return "BT_ST"
	case BottomEnd:
		return "BT_END"
	default:
		return "UNKNOWN"
	}
}

// Dot is one detected peak-state transition: the smoothed-trace index it
// occurred at, the smoothed value there, and which transition it is.
type Dot struct {
	Time int
	Val  int
	Peak Peak
}

// Wave is a fully analyzed channel acquisition.
type Wave struct {
	// Data is the raw unsigned trace as received from the device.
	Data []byte

	// Dots is the sequence of peak-state transitions found in the
	// smoothed, signed trace.
	Dots []Dot

	// Type is the recognized wave shape.
	Type WaveType

	// P2P is the peak-to-peak span, in smoothed-signal units, measured
	// over Dots' values only (not the full smoothed trace).
	P2P int

	// Vpp is P2P scaled to volts by a channel's settings multiplier. It
	// is left at zero until a caller with settings in hand sets it.
	Vpp float64
}

// HasSignal reports whether data looks like anything but a flat line: its
// smoothed top-to-bottom span must be at least 20 counts.
func HasSignal(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	avg := movingAverage(convertSign(data))
	top, bottom := topBottom(avg)
	return top-bottom >= 20
}

// Analyze converts a raw unsigned sample trace into a classified Wave.
func Analyze(data []byte) Wave {
	signed := convertSign(data)
	avg := movingAverage(signed)
	wave := Wave{Data: data}
	if len(avg) == 0 {
		return wave
	}

	top, bottom := topBottom(avg)
	margin := (top - bottom) * percentToPeak / 100
	topArea := top - margin
	bottomArea := bottom + margin

	dots := walkPeaks(avg, topArea, bottomArea)
	wave.Dots = dots
	wave.Type = classify(dots)
	wave.P2P = dotsP2P(dots)
	return wave
}

// walkPeaks runs the top/bottom transition state machine over a smoothed,
// signed trace.
func walkPeaks(data []int, topArea, bottomArea int) []Dot {
	first := data[0]
	cur := Dot{Time: 0, Val: first}
	switch {
	case first > topArea:
		cur.Peak = TopStart
	case first < bottomArea:
		cur.Peak = BottomStart
	}

	out := []Dot{cur}
	for idx, val := range data {
		prev := out[len(out)-1]

		switch prev.Peak {
		case TopStart:
			if val < topArea {
				out = append(out, Dot{Time: idx, Val: val, Peak: TopEnd})
			}
		case TopEnd:
			if val < bottomArea {
				out = append(out, Dot{Time: idx, Val: val, Peak: BottomStart})
			}
		case BottomStart:
			if val > bottomArea {
				out = append(out, Dot{Time: idx, Val: val, Peak: BottomEnd})
			}
		case BottomEnd:
			if val > topArea {
				out = append(out, Dot{Time: idx, Val: val, Peak: TopStart})
			}
		case PeakUnknown:
			if val > topArea {
				out = append(out, Dot{Time: idx, Val: val, Peak: TopStart})
			} else if val < bottomArea {
				out = append(out, Dot{Time: idx, Val: val, Peak: BottomStart})
			}
		}
	}
	return out
}

func dotsP2P(dots []Dot) int {
	if len(dots) == 0 {
		return 0
	}
	top, bottom := dots[0].Val, dots[0].Val
	for _, d := range dots {
		if d.Val > top {
			top = d.Val
		}
		if d.Val < bottom {
			bottom = d.Val
		}
	}
	return top - bottom
}

func classify(dots []Dot) WaveType {
	if len(dots) < minDotsForClassification {
		return Unknown
	}
	if dotsP2P(dots) < minP2PForClassification {
		return Unknown
	}

	wave := lastCleanWave(dots)
	if len(wave) < 4 {
		return Unknown
	}
	if isSine(wave) {
		return Sine
	}
	if isSquare(wave) {
		return Square
	}
	return Unknown
}

// lastCleanWave returns the last four dots ending at the last BT_END:
// TP_ST, TP_END, BT_ST, BT_END. Using the most recent full cycle avoids
// leading noise from the start of acquisition.
func lastCleanWave(dots []Dot) []Dot {
	for i := len(dots) - 1; i >= 0; i-- {
		if dots[i].Peak == BottomEnd {
			start := i - 3
			if start < 0 {
				return nil
			}
			return dots[start : i+1]
		}
	}
	return nil
}

// isSine reports the top lasting less than 35% of the half-wave: a
// pointed, not flat, peak.
func isSine(dots []Dot) bool {
	halfWave := dots[2].Time - dots[0].Time
	topEndBound := dots[0].Time + halfWave*35/100
	return dots[1].Time < topEndBound
}

// isSquare reports the top lasting more than 80% of the half-wave: a flat,
// not pointed, peak.
func isSquare(dots []Dot) bool {
	halfWave := float64(dots[2].Time - dots[0].Time)
	topEndBound := float64(dots[0].Time) + halfWave*0.8
	return float64(dots[1].Time) > topEndBound
}

// IsTopSineInsideTopSquare checks that a sine wave's top plateau falls
// entirely within its corresponding square wave's top plateau, which is
// this checker's definition of the two channels being in sync.
func IsTopSineInsideTopSquare(sine, square []Dot) bool {
	if len(sine) == 0 || len(square) == 0 {
		return false
	}

	var sineTopStart, sineTopEnd *Dot
	for i := len(sine) / 3; i < len(sine); i++ {
		d := sine[i]
		if d.Peak == TopStart && sineTopStart == nil {
			sineTopStart = &sine[i]
		}
		if d.Peak == TopEnd && sineTopStart != nil {
			sineTopEnd = &sine[i]
			break
		}
	}
	if sineTopStart == nil || sineTopEnd == nil {
		return false
	}

	for idx, d := range square {
		if d.Peak == TopEnd && d.Time > sineTopEnd.Time && d.Time > sineTopStart.Time {
			if idx == 0 {
				return false
			}
			squareTopStart := square[idx-1]
			return squareTopStart.Time < sineTopStart.Time
		}
	}
	return false
}

// convertSign reinterprets each unsigned byte as the device's signed
// sample convention (two's complement): values below 128 are unchanged,
// values at or above 128 map to n-256, so 128 -> -128 and 255 -> -1.
func convertSign(data []byte) []int {
	out := make([]int, len(data))
	for i, b := range data {
		out[i] = oneByteSign(b)
	}
	return out
}

func oneByteSign(n byte) int {
	if n < 128 {
		return int(n)
	}
	return -(128 - int(n&0x7F))
}

// movingAverage smooths data with a trailing window, discarding the first
// movingAverageWindow samples (there is no full window behind them).
func movingAverage(data []int) []int {
	if len(data) <= movingAverageWindow {
		return nil
	}
	out := make([]int, 0, len(data)-movingAverageWindow)
	for idx := movingAverageWindow; idx < len(data); idx++ {
		sum := 0
		for _, v := range data[idx-movingAverageWindow : idx] {
			sum += v
		}
		out = append(out, sum/movingAverageWindow)
	}
	return out
}

func topBottom(data []int) (top, bottom int) {
	top, bottom = data[0], data[0]
	for _, v := range data {
		if v > top {
			top = v
		}
		if v < bottom {
			bottom = v
		}
	}
	return top, bottom
}

func (w Wave) String() string {
	return fmt.Sprintf("waveform.Wave{type=%s dots=%d p2p=%d vpp=%.4f samples=%d}",
		w.Type, len(w.Dots), w.P2P, w.Vpp, len(w.Data))
}
