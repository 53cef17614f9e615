package dsousb

import "github.com/pkg/errors"

// Sentinel errors making up the taxonomy a Scope maps device failures to,
// per the polling controller's error handling design. Callers should use
// errors.Cause (or errors.Is against these sentinels) after unwrapping.
var (
	// ErrDeviceNotFound means USB enumeration found no matching
	// vendor/product pair.
	ErrDeviceNotFound = errors.New("oscilloscope not found")

	// ErrNoBackend means the platform's libusb backend is missing. Fatal.
	ErrNoBackend = errors.New("no usb backend available")

	// ErrTimeout means one bulk transfer exceeded its deadline.
	ErrTimeout = errors.New("usb transfer timed out")

	// ErrSampleLost means an expected sample subcommand never arrived.
	ErrSampleLost = errors.New("expected sample data never arrived")

	// ErrChecksumMismatch means a decoded frame's checksum did not verify.
	// Logged by callers; whether it is fatal depends on context.
	ErrChecksumMismatch = errors.New("frame checksum mismatch")

	// ErrOscilloscope is a generic device error: malformed frame,
	// unexpected command, settings length mismatch.
	ErrOscilloscope = errors.New("oscilloscope error")
)

// SampleLostError reports the channel a sample was requested for when the
// device never produced a usable response.
type SampleLostError struct {
	Channel int
}

func (e *SampleLostError) Error() string {
	return errors.Wrapf(ErrSampleLost, "channel %d", e.Channel).Error()
}

// Unwrap lets errors.Is/errors.As see through to ErrSampleLost.
func (e *SampleLostError) Unwrap() error { return ErrSampleLost }
