// Package config loads site-level settings for connecting to a SerialEMCCD
// host: the address of the machine running DigitalMicrograph and the debug
// switches.
//
// Settings come from an optional TOML file, overridden by the SERIALEMCCD_PORT
// and SERIALEMCCD_DEBUG environment variables, which are the configuration
// surface the plugin itself documents.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables shared with the plugin installation.
const (
	EnvPort  = "SERIALEMCCD_PORT"
	EnvDebug = "SERIALEMCCD_DEBUG"
)

// Site holds the connection settings for one camera-control host.
type Site struct {
	// Host is the machine running DigitalMicrograph. The plugin is normally
	// colocated with the camera controller, so loopback is the convention.
	Host string `toml:"host"`

	// Port is the plugin's listening port.
	Port int `toml:"port"`

	// ReadTimeout bounds each blocking read of an exchange; zero blocks
	// indefinitely. Long exposures need either zero or a generous value.
	ReadTimeout duration `toml:"read_timeout"`

	// Debug selects the client debug verbosity: 0 off, 1 verbose, 2 very
	// verbose including socket operations.
	Debug int `toml:"debug"`
}

// duration wraps time.Duration so TOML values can be written as "45s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))

	return err
}

// Default returns the conventional site settings: the loopback address and
// the plugin's default port, no read timeout, debug off.
func Default() Site {
	return Site{
		Host: "127.0.0.1",
		Port: 48890,
	}
}

// Load reads a site file at path and applies environment overrides. A
// missing file is not an error; the defaults are returned with environment
// overrides applied.
func Load(path string) (Site, error) {
	site := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			site.ApplyEnv()
			return site, nil
		}
		return site, fmt.Errorf("reading site config: %w", err)
	}

	if err := toml.Unmarshal(data, &site); err != nil {
		return site, fmt.Errorf("parsing site config %s: %w", path, err)
	}

	site.ApplyEnv()

	return site, nil
}

// ApplyEnv overrides the site settings with the SERIALEMCCD_* environment
// variables when they are set.
func (s *Site) ApplyEnv() {
	if env := os.Getenv(EnvPort); env != "" {
		if port, err := strconv.Atoi(env); err == nil && port > 0 && port <= 65535 {
			s.Port = port
		}
	}

	if env := os.Getenv(EnvDebug); env != "" {
		if debug, err := strconv.Atoi(env); err == nil {
			s.Debug = debug
		}
	}
}

// GetReadTimeout returns the configured read timeout as a time.Duration.
func (s *Site) GetReadTimeout() time.Duration {
	return s.ReadTimeout.Duration
}
