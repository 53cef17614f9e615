// Package util contains misc internal utilities.
package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IntSliceToCSV converts a slice of ints to CSV formatted data.
// e.g., []int{1,2,3,4,5} => "1,2,3,4,5"
func IntSliceToCSV(is []int) string {
	s := make([]string, len(is))
	for i, v := range is {
		s[i] = strconv.Itoa(v)
	}

	return strings.Join(s, ",")
}

// GetBit returns the value of a given bit in a byte
func GetBit(b byte, bitIndex uint) bool {
	return (b>>bitIndex)&1 == 1
}

// SetBit sets a single bit in a byte
func SetBit(in byte, bitIndex uint, high bool) byte {
	if high {
		in |= 1 << bitIndex
	} else {
		in &= ^(1 << bitIndex)
	}
	return in
}

// UniqueString reduces a slice of strings to the unique values
func UniqueString(slice []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Clamp limits input to min <= input <= max
func Clamp(input, min, max float64) float64 {
	if input < min {
		return min
	}
	if input > max {
		return max
	}
	return input
}

// Limiter represents a basic set of min,max limits
type Limiter struct {
	// Min is the minimum value
	Min float64 `json:"min"`

	// Max is the maximum value
	Max float64 `json:"max"`
}

// Clamp limits input to min <= input <= max
func (l *Limiter) Clamp(input float64) float64 {
	return Clamp(input, l.Min, l.Max)
}

// Check verifies if min <= input <= max, returns true if this is the case
func (l *Limiter) Check(input float64) bool {
	if input < l.Min {
		return false
	}
	if input > l.Max {
		return false
	}
	return true
}

// MergeErrors converts many errors to a single one, newline separated
func MergeErrors(errs []error) error {
	var strs []string
	for idx := 0; idx < len(errs); idx++ {
		err := errs[idx]
		if err != nil {
			strs = append(strs, err.Error())
		}
	}
	err := fmt.Errorf(strings.Join(strs, "\n"))
	if err.Error() == "" {
		return nil
	}
	return err
}

// SecsToDuration converts floating point seconds to a time.Duration
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
