// Package dsosettings decodes the 213-byte settings blob returned by a DSO
// in response to a read-settings request: per-channel volts/div and probe
// attenuation, and the window time base.
package dsosettings

import "fmt"

// RawLength is the only length the device ever returns for a settings blob.
// Anything else means the transfer was truncated or the wrong frame was
// read.
const RawLength = 213

// Byte offsets of the fields this package decodes, out of the full 213-byte
// blob. The device carries many more bytes than this; only these five are
// interpreted.
const (
	offsetCH1VoltDiv = 1
	offsetCH1Probe   = 5
	offsetCH2VoltDiv = 11
	offsetCH2Probe   = 15
	offsetSecDiv     = 156
)

// ProbeFamily is the attenuation factor of the probe attached to a channel.
type ProbeFamily int

// Probe families the device reports.
const (
	Probe1x ProbeFamily = iota
	Probe10x
	Probe100x
)

func (p ProbeFamily) String() string {
	switch p {
	case Probe1x:
		return "1x"
	case Probe10x:
		return "10x"
	case Probe100x:
		return "100x"
	default:
		return fmt.Sprintf("ProbeFamily(%d)", int(p))
	}
}

// voltDivNamesX1 indexes volts/div names for a 1x probe. Index 11 is never
// populated by the device; it reports 0 there instead of V10.
var voltDivNamesX1 = []string{
	"MV2", "MV5", "MV10", "MV20", "MV50", "MV100", "MV200", "MV500", "V1", "V2", "V5",
}

// voltDivNamesX10 indexes volts/div names for a 10x probe. Index 11 is
// never populated; the device reports 0 there instead of V100.
var voltDivNamesX10 = []string{
	"MV20", "MV50", "MV100", "MV200", "MV500", "V1", "V2", "V5", "V10", "V20", "V50",
}

// voltDivNamesX100 indexes volts/div names for a 100x probe.
var voltDivNamesX100 = []string{
	"MV200", "MV500", "V1", "V2", "V5", "V10", "V20", "V50", "V100",
}

// VoltMultiplier maps a volts/div name to its scope-reported multiplier in
// volts. Values are shared across probe families: the name already encodes
// the nominal voltage, the probe family only selects which names are valid.
var VoltMultiplier = map[string]float64{
	"MV2": 0.000114, "MV5": 0.000286, "MV10": 0.000572, "MV20": 0.001144,
	"MV50": 0.002288, "MV100": 0.00444, "MV200": 0.00926, "MV500": 0.02389,
	"V1": 0.04581, "V2": 0.08918, "V5": 0.25833, "V10": 0.43306,
	"V20": 0.87619, "V50": 2.33333, "V100": 4.66666,
}

// SecDivNames indexes the window time base names the device reports at
// offsetSecDiv.
var SecDivNames = []string{
	"NS2", "NS4", "NS8", "NS20", "NS40", "NS80", "NS200", "NS400", "NS800",
	"US2", "US4", "US8", "US20", "US40", "US80", "US200", "US400", "US800",
	"MS2", "MS4", "MS8", "MS20", "MS40", "MS80", "MS200", "MS400",
}

func namesFor(p ProbeFamily) []string {
	switch p {
	case Probe1x:
		return voltDivNamesX1
	case Probe10x:
		return voltDivNamesX10
	case Probe100x:
		return voltDivNamesX100
	default:
		return nil
	}
}

// Channel holds one channel's decoded volts/div and probe attenuation.
type Channel struct {
	Probe ProbeFamily

	// VoltDivIndex is the raw index as reported by the device.
	VoltDivIndex byte

	// VoltDivName is the decoded volts/div name, or "" if VoltDivIndex is
	// out of range for Probe (the device's own "index 11" gap, or a
	// corrupted blob).
	VoltDivName string

	// Multiplier is the volts-per-division scale factor to apply to a
	// waveform's peak-to-peak dot units, or 0 if VoltDivName is "".
	Multiplier float64
}

// Settings is the decoded form of a 213-byte settings blob.
type Settings struct {
	Raw []byte

	CH1, CH2 Channel

	// SecDivIndex is the raw window time base index.
	SecDivIndex byte

	// SecDivName is the decoded window time base name, or "" if
	// SecDivIndex is out of range.
	SecDivName string
}

// Decode parses a settings blob. It returns an error if data is not
// exactly RawLength bytes; the device never returns any other length for
// this response, so any other size indicates a transfer problem upstream.
func Decode(data []byte) (Settings, error) {
	if len(data) != RawLength {
		return Settings{}, fmt.Errorf("dsosettings: expected %d bytes, got %d", RawLength, len(data))
	}

	s := Settings{Raw: append([]byte(nil), data...)}

	s.CH1 = decodeChannel(ProbeFamily(data[offsetCH1Probe]), data[offsetCH1VoltDiv])
	s.CH2 = decodeChannel(ProbeFamily(data[offsetCH2Probe]), data[offsetCH2VoltDiv])

	s.SecDivIndex = data[offsetSecDiv]
	if int(s.SecDivIndex) < len(SecDivNames) {
		s.SecDivName = SecDivNames[s.SecDivIndex]
	}

	return s, nil
}

func decodeChannel(probe ProbeFamily, voltDivIndex byte) Channel {
	ch := Channel{Probe: probe, VoltDivIndex: voltDivIndex}
	names := namesFor(probe)
	if int(voltDivIndex) < len(names) {
		ch.VoltDivName = names[voltDivIndex]
		ch.Multiplier = VoltMultiplier[ch.VoltDivName]
	}
	return ch
}
