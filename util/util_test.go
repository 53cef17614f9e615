package util_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/oscilok/bench/util"
)

func ExampleSetBit_msb() {
	out := util.SetBit(0, 7, true)
	fmt.Printf("%08b\n", out)
	// Output: 10000000
}

func ExampleSetBit_lsb() {
	out := util.SetBit(255, 0, false)
	fmt.Printf("%08b\n", out)
	// Output: 11111110
}

func TestGetBit(t *testing.T) {
	if !util.GetBit(0b10000000, 7) {
		t.Error("expected bit 7 of 0b10000000 to be set")
	}
	if util.GetBit(0b01111111, 7) {
		t.Error("expected bit 7 of 0b01111111 to be clear")
	}
}

func TestUniqueString(t *testing.T) {
	inp := []string{"a", "b", "c", "a"}
	expected := []string{"a", "b", "c"}
	output := util.UniqueString(inp)
	for i := 0; i < len(output); i++ {
		if output[i] != expected[i] {
			t.Errorf("expected %s got %s", expected[i], output[i])
		}
	}
}

func TestIntSliceToCSV(t *testing.T) {
	inp := []int{1, 2, 3}
	expected := "1,2,3"
	out := util.IntSliceToCSV(inp)
	if expected != out {
		t.Errorf("expected %s got %s", expected, out)
	}
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped == input {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := util.Clamp(input, low, high)
	if clamped == input {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestLimiterClampAndCheck(t *testing.T) {
	l := util.Limiter{Min: 1, Max: 255}
	if l.Check(0) {
		t.Error("expected 0 to fail Check against [1,255]")
	}
	if !l.Check(1) {
		t.Error("expected 1 to pass Check against [1,255]")
	}
	if c := l.Clamp(500); c != 255 {
		t.Errorf("expected Clamp(500) == 255, got %f", c)
	}
}

func TestMergeErrors(t *testing.T) {
	if err := util.MergeErrors([]error{nil, nil}); err != nil {
		t.Errorf("expected no error merging all-nil slice, got %v", err)
	}
	err := util.MergeErrors([]error{nil, fmt.Errorf("a"), fmt.Errorf("b")})
	if err == nil {
		t.Fatal("expected a merged error")
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
