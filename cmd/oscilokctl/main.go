// Command oscilokctl talks directly to a DSO over USB for manual
// diagnosis: init/echo/buzzer/lock-panel/settings/sample, one shot at a
// time, bypassing the polling loop entirely.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/theckman/yacspin"

	"github.com/oscilok/bench/dsosettings"
	"github.com/oscilok/bench/dsousb"
	"github.com/oscilok/bench/waveform"
)

// Version is the version string, injected via -ldflags at build time.
var Version = "dev"

func root() {
	str := `oscilokctl talks directly to a DSO bench-checker over USB, for
manual diagnosis. It bypasses the polling loop entirely: each command
opens the device, does one thing, and closes it again.

Usage:
	oscilokctl <command> [args]

Commands:
	init
	echo [text]
	buzzer <tenths-of-a-second>
	lock
	unlock
	settings
	sample <channel 1|2> [csv-file]
	version`
	fmt.Println(str)
}

func open() *dsousb.Transport {
	t, err := dsousb.Open(log.Default())
	if err != nil {
		color.Red("open: %v", err)
		os.Exit(1)
	}
	return t
}

// withSpinner runs fn under a terminal spinner, used for the commands
// slow enough an operator would otherwise wonder if the tool had hung:
// init, reading settings and sampling a channel.
func withSpinner(label string, fn func() error) error {
	cfg := yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[9],
		Suffix:            " " + label,
		SuffixAutoColon:   true,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	}
	spin, err := yacspin.New(cfg)
	if err != nil {
		return fn()
	}
	_ = spin.Start()
	err = fn()
	if err != nil {
		spin.StopFailMessage(err.Error())
		_ = spin.StopFail()
		return err
	}
	_ = spin.Stop()
	return nil
}

func cmdInit() {
	t := open()
	defer t.Close()
	if err := withSpinner("initializing", t.Init); err != nil {
		os.Exit(1)
	}
	color.Green("ok")
}

func cmdEcho(args []string) {
	t := open()
	defer t.Close()
	var text []byte
	if len(args) > 0 {
		text = []byte(args[0])
	}
	if err := t.Echo(text); err != nil {
		color.Red("echo: %v", err)
		os.Exit(1)
	}
	color.Green("ok")
}

func cmdBuzzer(args []string) {
	if len(args) < 1 {
		log.Fatal("usage: oscilokctl buzzer <tenths-of-a-second>")
	}
	dur, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatal(err)
	}
	t := open()
	defer t.Close()
	if err := t.Buzzer(dur); err != nil {
		color.Red("buzzer: %v", err)
		os.Exit(1)
	}
	color.Green("ok")
}

func cmdLock(lock bool) {
	t := open()
	defer t.Close()
	if err := t.LockPanel(lock); err != nil {
		color.Red("lock-panel: %v", err)
		os.Exit(1)
	}
	color.Green("ok")
}

func cmdSettings() {
	t := open()
	defer t.Close()

	var raw []byte
	err := withSpinner("reading settings", func() error {
		if err := t.RequestSettings(); err != nil {
			return err
		}
		r, err := t.GetSettings()
		raw = r
		return err
	})
	if err != nil {
		os.Exit(1)
	}

	sett, err := dsosettings.Decode(raw)
	if err != nil {
		color.Red("decode: %v", err)
		os.Exit(1)
	}
	fmt.Printf("ch1: %s volt/div, %s probe\n", sett.CH1.VoltDivName, sett.CH1.Probe)
	fmt.Printf("ch2: %s volt/div, %s probe\n", sett.CH2.VoltDivName, sett.CH2.Probe)
	fmt.Printf("sec/div: %s\n", sett.SecDivName)
}

func cmdSample(args []string) {
	if len(args) < 1 {
		log.Fatal("usage: oscilokctl sample <channel 1|2> [csv-file]")
	}
	ch, err := strconv.Atoi(args[0])
	if err != nil || (ch != 1 && ch != 2) {
		log.Fatal("channel must be 1 or 2")
	}
	wire := ch - 1

	t := open()
	defer t.Close()

	var data []byte
	var resp int
	err = withSpinner(fmt.Sprintf("sampling channel %d", ch), func() error {
		if err := t.Sample(wire); err != nil {
			return err
		}
		data, resp = t.GetSample()
		if resp != wire {
			return fmt.Errorf("device reported channel %d, wanted %d", resp, wire)
		}
		return nil
	})
	if err != nil {
		color.Red("sample: %v", err)
		os.Exit(1)
	}

	wave := waveform.Analyze(data)
	fmt.Printf("%d samples, type=%s p2p=%d\n", len(wave.Data), wave.Type, wave.P2P)
	fmt.Println(wave.RawCSV())

	if len(args) > 1 {
		f, err := os.Create(args[1])
		if err != nil {
			color.Red("create %s: %v", args[1], err)
			os.Exit(1)
		}
		defer f.Close()
		if err := wave.EncodeCSV(f); err != nil {
			color.Red("encode csv: %v", err)
			os.Exit(1)
		}
		color.Green("wrote %s", args[1])
	}
}

func pversion() {
	fmt.Printf("oscilokctl version %v\n", Version)
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}

	switch args[1] {
	case "help":
		root()
	case "init":
		cmdInit()
	case "echo":
		cmdEcho(args[2:])
	case "buzzer":
		cmdBuzzer(args[2:])
	case "lock":
		cmdLock(true)
	case "unlock":
		cmdLock(false)
	case "settings":
		cmdSettings()
	case "sample":
		cmdSample(args[2:])
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
