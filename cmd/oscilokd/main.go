// Command oscilokd runs the oscilloscope bench-checker server: one
// polling.Controller per configured DSO, exposed over HTTP.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	yml "github.com/go-yaml/yaml"

	"github.com/oscilok/bench/config"
	"github.com/oscilok/bench/oscilokhttp"
	"github.com/oscilok/bench/polling"
	"github.com/oscilok/bench/scope"
	"github.com/oscilok/bench/util"
)

// Version is the version string, injected via -ldflags at build time.
var Version = "dev"

// ConfigFileName is the config file oscilokd looks for in its working
// directory.
const ConfigFileName = "oscilokd.yml"

func root() {
	str := `oscilokd polls a DSO bench-checker over USB and exposes its verdict over HTTP.

Usage:
	oscilokd <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `oscilokd is configured via its .yaml file. The command mkconf writes
the file with the default values; there is no need to run it unless you
want to start from the defaults when hand-editing a config.`
	fmt.Println(str)
}

func mkconf() {
	c := config.Default()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := yml.NewEncoder(f).Encode(c); err != nil {
		log.Fatal(err)
	}
}

func printconf(c config.Config) {
	if err := yml.NewEncoder(os.Stdout).Encode(c); err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("oscilokd version %v\n", Version)
}

func run(c config.Config) {
	logger, closeLog, err := config.OpenLogger()
	if err != nil {
		logger.Printf("falling back to stderr logging: %v", err)
	}
	defer closeLog()

	if len(c.DSOs) == 0 {
		logger.Fatal("no DSOs configured; see mkconf")
	}

	var devices []*oscilokhttp.Device
	for _, ep := range c.DSOs {
		sc := scope.New(logger)
		ui := oscilokhttp.NewUI(c.PollingInterval())
		ctrl := polling.New(sc, sc.Beeper().Beep, ui, logger, func(err error) {
			logger.Printf("fatal device error on %s: %v", ep.Name, err)
		})
		devices = append(devices, oscilokhttp.NewDevice(ep.Name, ctrl, sc, ui))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Println("shutting down, closing DSOs")
		if err := closeAll(devices); err != nil {
			logger.Println(err)
		}
		os.Exit(0)
	}()

	mux := oscilokhttp.BuildMux(devices)
	logger.Printf("now listening for requests at %s", c.Addr)
	logger.Fatal(http.ListenAndServe(c.Addr, mux))
}

// closeAll closes every device's Scope, merging any errors into one so the
// caller gets a single log line instead of one per device. Close is
// idempotent (scope.Scope.Close on an already-closed Handle is a no-op),
// so this does not need to consult Controller.Polling first.
func closeAll(devices []*oscilokhttp.Device) error {
	errs := make([]error, 0, len(devices))
	for _, d := range devices {
		errs = append(errs, d.Scope.Close())
	}
	return util.MergeErrors(errs)
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}

	k, err := config.Load(ConfigFileName)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	c, err := config.Unmarshal(k)
	if err != nil {
		log.Fatalf("error unmarshaling config: %v", err)
	}

	switch strings.ToLower(args[1]) {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf(c)
	case "run":
		run(c)
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
