/*
Package dsousb implements the USB bulk transport for a Das-Oszi compatible
digital storage oscilloscope: vendor 0x049F, product 0x505A, a single
vendor-specific interface with bulk endpoints 0x81 (IN) and 0x02 (OUT),
512-byte packets. The expected descriptor shape (one configuration, one
interface, those two endpoints) mirrors what a USB enumeration dump of the
device would show; this package does not enumerate or print such a dump
itself (that is a bus-enumeration utility, out of scope).

Frames are built and parsed with dsoproto. Each exported method here sends
one frame and, where the protocol calls for it, blocks for a reply.
*/
package dsousb

import (
	"log"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/gousb"
	"github.com/pkg/errors"

	"github.com/oscilok/bench/dsoproto"
	"github.com/oscilok/bench/util"
)

const (
	// VendorID is the DSO's USB vendor ID.
	VendorID = 0x049F

	// ProductID is the DSO's USB product ID.
	ProductID = 0x505A

	interfaceNum = 0
	inEndpoint   = 0x81
	outEndpoint  = 0x02

	// AcquisitionDelay is the fixed settle time after Sample before the
	// device will accept a GetSample read. The original observed >=100ms
	// causing device errors; 80ms is its chosen safe value.
	AcquisitionDelay = 80 * time.Millisecond

	echoSettleDelay = 60 * time.Millisecond

	sampleBulkReadSize = 32 * 1024
	smallBulkReadSize  = 4 * 1024

	defaultReadTimeout = 2 * time.Second
)

// Sample response subcommands under command 0x82.
const (
	sampleLenSubcmd  = 0x00
	sampleDataSubcmd = 0x01
	sampleSumSubcmd  = 0x02
	sampleStopSubcmd = 0x03
)

// Transport owns one claimed USB interface to a single DSO. It is not
// concurrency-safe; the polling core's single-threaded discipline is the
// only synchronization it relies on.
type Transport struct {
	ctx       *gousb.Context
	dev       *gousb.Device
	iface     *gousb.Interface
	ifaceDone func()
	in        *gousb.InEndpoint
	out       *gousb.OutEndpoint

	ReadTimeout time.Duration

	log *log.Logger
}

// Open claims the DSO's USB interface, retrying the initial device lookup
// with exponential backoff (the device may still be enumerating, or a
// previous session may not have released it yet). It returns
// ErrDeviceNotFound if no vendor/product match appeared within the backoff
// budget; any libusb error during that lookup is reported the same way.
// Open does not return ErrNoBackend: a missing libusb backend is not told
// apart from a missing device.
func Open(logger *log.Logger) (*Transport, error) {
	if logger == nil {
		logger = log.Default()
	}

	ctx := gousb.NewContext()

	var dev *gousb.Device
	open := func() error {
		d, err := ctx.OpenDeviceWithVIDPID(gousb.ID(VendorID), gousb.ID(ProductID))
		if err != nil {
			return errors.Wrap(err, "open device")
		}
		if d == nil {
			return errors.Wrap(ErrDeviceNotFound, "no matching vid/pid")
		}
		dev = d
		return nil
	}
	boff := &backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         2 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock,
	}
	if err := backoff.Retry(open, boff); err != nil {
		ctx.Close()
		return nil, errors.Wrap(ErrDeviceNotFound, err.Error())
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, errors.Wrap(ErrOscilloscope, "set auto detach: "+err.Error())
	}

	iface, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, errors.Wrap(ErrOscilloscope, "claim interface: "+err.Error())
	}

	in, err := iface.InEndpoint(inEndpoint & 0x0f)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, errors.Wrap(ErrOscilloscope, "in endpoint: "+err.Error())
	}
	out, err := iface.OutEndpoint(outEndpoint)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, errors.Wrap(ErrOscilloscope, "out endpoint: "+err.Error())
	}

	return &Transport{
		ctx: ctx, dev: dev, iface: iface, ifaceDone: done,
		in: in, out: out,
		ReadTimeout: defaultReadTimeout,
		log:         logger,
	}, nil
}

// Close releases the claimed interface and the device handle.
func (t *Transport) Close() error {
	if t.ifaceDone != nil {
		t.ifaceDone()
	}
	var err error
	if t.dev != nil {
		err = t.dev.Close()
	}
	if t.ctx != nil {
		t.ctx.Close()
	}
	return err
}

func (t *Transport) writeFrame(f dsoproto.Frame) error {
	buf := dsoproto.Encode(f)
	n, err := t.out.Write(buf)
	if err != nil {
		return errors.Wrap(err, "usb write")
	}
	if n != len(buf) {
		return errors.Wrapf(ErrOscilloscope, "wrote %d of %d bytes", n, len(buf))
	}
	return nil
}

// readRaw performs one bulk read of size bytes, applying t.ReadTimeout via
// a goroutine + select, matching comm.Timeout's wrapper shape since gousb's
// endpoint Read has no native per-call deadline argument. A timeout yields
// an empty buffer and ErrTimeout, matching the device's own "empty read ==
// no frame" convention.
func (t *Transport) readRaw(size int) ([]byte, error) {
	type result struct {
		n   int
		err error
	}
	buf := make([]byte, size)
	done := make(chan result, 1)
	go func() {
		n, err := t.in.Read(buf)
		done <- result{n, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, errors.Wrap(ErrTimeout, r.err.Error())
		}
		return buf[:r.n], nil
	case <-time.After(t.ReadTimeout):
		t.log.Println("dsousb: bulk read timed out")
		return nil, ErrTimeout
	}
}

func (t *Transport) readFrame(size int) (dsoproto.Frame, error) {
	buf, err := t.readRaw(size)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return dsoproto.Frame{}, nil // timeout surfaces as an empty/absent frame, not a hard error
		}
		return dsoproto.Frame{}, err
	}
	f, ok := dsoproto.Decode(buf)
	if !ok {
		return dsoproto.Frame{}, nil
	}
	if !f.ChecksumOK {
		t.log.Printf("dsousb: checksum mismatch on %s", f)
	}
	return f, nil
}

// readExpect blocks for up to two attempts, nudging the device with an Echo
// if the first read comes back empty, and ignoring frames whose command
// does not match want. It returns the last frame seen if no match arrives.
func (t *Transport) readExpect(want byte, size int) (dsoproto.Frame, error) {
	var last dsoproto.Frame
	haveLast := false
	for attempt := 0; attempt < 2; attempt++ {
		f, err := t.readFrame(size)
		if err != nil {
			return dsoproto.Frame{}, err
		}
		if f.Command == 0 && f.Length == 0 {
			_ = t.Echo(nil)
			continue
		}
		last, haveLast = f, true
		if f.Command == want {
			return f, nil
		}
	}
	if haveLast {
		return last, nil
	}
	return dsoproto.Frame{}, nil
}

// Init sends the 0x7F debug init command and awaits the reply.
func (t *Transport) Init() error {
	if err := t.writeFrame(dsoproto.Frame{Mark: dsoproto.MarkDebug, Command: 0x7F}); err != nil {
		return err
	}
	_, err := t.readFrame(smallBulkReadSize)
	return err
}

// Echo sends the given text (or no data) on command 0x00; the device
// returns the same bytes unchanged. Used both as a diagnostic and to nudge
// a stalled device inside readExpect.
func (t *Transport) Echo(text []byte) error {
	if err := t.writeFrame(dsoproto.Frame{Mark: dsoproto.MarkNormal, Command: 0x00, Data: text}); err != nil {
		return err
	}
	time.Sleep(echoSettleDelay)
	return nil
}

// buzzerRange is the duration argument's valid range, in units of 100ms.
var buzzerRange = util.Limiter{Min: 1, Max: 255}

// Buzzer activates the DSO's own buzzer for dur*100ms, clamped to
// buzzerRange.
func (t *Transport) Buzzer(dur int) error {
	clamped := buzzerRange.Clamp(float64(dur))
	return t.writeFrame(dsoproto.Frame{
		Mark: dsoproto.MarkDebug, Command: 0x44, Data: []byte{byte(clamped)},
	})
}

// LockPanel locks or unlocks the device's front panel.
func (t *Transport) LockPanel(lock bool) error {
	flag := util.SetBit(0, 0, lock)
	return t.writeFrame(dsoproto.Frame{
		Mark: dsoproto.MarkNormal, Command: 0x12,
		HasSubcommand: true, Subcommand: 0x01,
		Data: []byte{flag},
	})
}

// RequestSettings issues the read-settings request (0x01); the reply
// arrives asynchronously and is fetched with GetSettings.
func (t *Transport) RequestSettings() error {
	return t.writeFrame(dsoproto.Frame{Mark: dsoproto.MarkNormal, Command: 0x01})
}

// GetSettings blocks for the settings response (command 0x81).
func (t *Transport) GetSettings() ([]byte, error) {
	f, err := t.readExpect(0x81, smallBulkReadSize)
	if err != nil {
		return nil, err
	}
	if f.Command != 0x81 {
		return nil, nil
	}
	return f.Data, nil
}

// Sample requests a single-channel acquisition (channel is 0-indexed on the
// wire) and sleeps for the device's required acquisition settle time.
func (t *Transport) Sample(channel int) error {
	if err := t.writeFrame(dsoproto.Frame{
		Mark: dsoproto.MarkNormal, Command: 0x02,
		HasSubcommand: true, Subcommand: 0x01,
		Data: []byte{byte(channel)},
	}); err != nil {
		return err
	}
	time.Sleep(AcquisitionDelay)
	return nil
}

// GetSample drains the multi-frame sample stream started by Sample. It
// returns the raw unsigned sample bytes and the channel the device actually
// reports; channel -2 means no sample response arrived at all.
func (t *Transport) GetSample() ([]byte, int) {
	const noResponse = -2

	first, err := t.readExpect(0x82, sampleBulkReadSize)
	if err != nil || first.Command != 0x82 || len(first.Data) == 0 {
		return nil, noResponse
	}

	data := make([]byte, 0, len(first.Data))
	channel := noResponse
	if first.Subcommand == sampleDataSubcmd {
		channel = int(first.Data[0])
		data = append(data, first.Data[1:]...)
	} else if first.Subcommand == sampleLenSubcmd && len(first.Data) > 0 {
		channel = int(first.Data[0])
	}

	cur := first
	for cur.Command == 0x82 && cur.Subcommand != sampleSumSubcmd && cur.Subcommand != sampleStopSubcmd {
		next, err := t.readFrame(sampleBulkReadSize)
		if err != nil || (next.Command == 0 && next.Length == 0) {
			break
		}
		if next.Command != 0x82 {
			break
		}
		if next.Subcommand == sampleDataSubcmd && len(next.Data) > 0 {
			channel = int(next.Data[0])
			data = append(data, next.Data[1:]...)
		}
		cur = next
	}

	return data, channel
}

// SetSystemTime pushes t onto the device's real-time clock (0x14).
func (t *Transport) SetSystemTime(now time.Time) error {
	year := now.Year()
	data := []byte{
		byte(year & 0xff), byte(year >> 8),
		byte(now.Month()), byte(now.Day()),
		byte(now.Hour()), byte(now.Minute()), byte(now.Second()),
	}
	return t.writeFrame(dsoproto.Frame{Mark: dsoproto.MarkNormal, Command: 0x14, Data: data})
}

// smallRead is exposed for diagnostics that want a raw small bulk read.
func (t *Transport) smallRead() (dsoproto.Frame, error) {
	return t.readFrame(smallBulkReadSize)
}
