package waveform

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/oscilok/bench/util"
)

// EncodeCSV writes a channel's raw samples and detected peak transitions to
// w in streaming fashion: an "index,raw,type,p2p,vpp" header, one
// "index,raw" row per sample (the first row also carries the wave's type,
// p2p and vpp), a blank line, then a "dot_time,dot_val,dot_peak" header and
// one row per Dot. It is meant
// for manual inspection of an acquisition (the console tool), not for
// machine consumption.
func (w Wave) EncodeCSV(out io.Writer) error {
	buffered := bufio.NewWriter(out)
	writer := csv.NewWriter(buffered)

	if err := writer.Write([]string{"index", "raw", "type", "p2p", "vpp"}); err != nil {
		return err
	}
	for i, b := range w.Data {
		row := []string{
			strconv.Itoa(i),
			strconv.Itoa(int(b)),
		}
		if i == 0 {
			row = append(row, w.Type.String(), strconv.Itoa(w.P2P), strconv.FormatFloat(w.Vpp, 'f', 4, 64))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	if err := writer.Write(nil); err != nil {
		return err
	}
	if err := writer.Write([]string{"dot_time", "dot_val", "dot_peak"}); err != nil {
		return err
	}
	for _, d := range w.Dots {
		if err := writer.Write([]string{strconv.Itoa(d.Time), strconv.Itoa(d.Val), d.Peak.String()}); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buffered.Flush()
}

// RawCSV renders w's raw samples as a single comma-separated line, for the
// console tool's compact one-line dump (as opposed to EncodeCSV's full
// multi-row form).
func (w Wave) RawCSV() string {
	return rawAsCSV(w.Data)
}

// rawAsCSV renders a raw sample slice as a single comma-separated line,
// used by the console tool for a compact one-line dump.
func rawAsCSV(data []byte) string {
	ints := make([]int, len(data))
	for i, b := range data {
		ints[i] = int(b)
	}
	return util.IntSliceToCSV(ints)
}
