package scope

import "github.com/oscilok/bench/dsousb"

// okBuzzDuration and ngBuzzDuration are in 100ms units, per the wire
// protocol's buzzer command.
const (
	okBuzzDuration = 1
	ngBuzzDuration = 10
)

// DeviceBeeper sounds the DSO's own buzzer for audible OK/NG feedback.
// This takes the place of a Windows system-sound path: an oscilloscope that
// is already open for reading can always buzz itself, so there is no second
// hardware dependency to carry.
type DeviceBeeper struct {
	handle *dsousb.Handle
}

// Beep sounds the buzzer: a short tone for ok, a longer one otherwise.
func (b *DeviceBeeper) Beep(ok bool) error {
	t, err := b.handle.Get()
	if err != nil {
		return err
	}
	dur := ngBuzzDuration
	if ok {
		dur = okBuzzDuration
	}
	return t.Buzzer(dur)
}
