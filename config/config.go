// Package config loads the layered configuration for oscilokd: struct
// defaults overlaid by an optional YAML file, the same two-step koanf
// load cmd/multiserver uses.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	"github.com/oscilok/bench/util"
)

// DSOEndpoint describes one oscilloscope to drive. Multiple entries let a
// single oscilokd process run several independent Controllers, each with
// its own Transport/Scope; spec.md's single-Controller data model is
// unaffected since they never share state.
type DSOEndpoint struct {
	// Name identifies this DSO in logs and in the HTTP route stem
	// ("/<name>/...").
	Name string `koanf:"name" yaml:"name"`

	// LogFilename is read from the config file but not used by oscilokd:
	// every DSO logs to the one logger OpenLogger opens, whose destination
	// is set by OSCILOK_LOG_FILENAME alone.
	LogFilename string `koanf:"logfilename" yaml:"logfilename"`
}

// Config is the top-level configuration for oscilokd.
type Config struct {
	// Addr is the address the HTTP server listens on.
	Addr string `koanf:"addr" yaml:"addr"`

	// PollingSeconds is the tick period, in seconds, of each Controller's
	// polling loop. Fractional values are supported (0.5 -> 500ms).
	PollingSeconds float64 `koanf:"pollingseconds" yaml:"pollingseconds"`

	// DSOs lists the oscilloscopes to drive. At least one is required for
	// `run` to do anything.
	DSOs []DSOEndpoint `koanf:"dsos" yaml:"dsos"`
}

// Default returns the configuration used when no YAML file is present,
// matching the teacher's defaults-via-struct-literal pattern.
func Default() Config {
	return Config{
		Addr:           ":8080",
		PollingSeconds: 0.5,
		DSOs: []DSOEndpoint{
			{Name: "dso0"},
		},
	}
}

// PollingInterval converts PollingSeconds to a time.Duration.
func (c Config) PollingInterval() time.Duration {
	return util.SecsToDuration(c.PollingSeconds)
}

// Load builds a koanf instance seeded with Default() and overlaid by the
// YAML file at path, if present. A missing file is not an error, matching
// cmd/multiserver's setupconfig.
func Load(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such") {
			return nil, err
		}
	}
	return k, nil
}

// Unmarshal decodes k into a Config.
func Unmarshal(k *koanf.Koanf) (Config, error) {
	c := Config{}
	err := k.Unmarshal("", &c)
	return c, err
}
