package dmcam

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/arloliu/go-semccd/logger"
)

// DefaultPort is the conventional SerialEMCCD listening port, overridable by
// the SERIALEMCCD_PORT environment variable or an explicit port argument.
const DefaultPort = 48890

// envPort and envDebug are the external configuration surface of the
// original system; they are read once when a configuration is created.
const (
	envPort  = "SERIALEMCCD_PORT"
	envDebug = "SERIALEMCCD_DEBUG"
)

// ErrConnConfigNil indicates that a nil ConnectionConfig was provided.
var ErrConnConfigNil = errors.New("connection config is nil")

// ConnectionConfig represents the configuration parameters for a connection
// to a SerialEMCCD host.
type ConnectionConfig struct {
	mu sync.RWMutex

	// host specifies the host running DigitalMicrograph. The plugin is
	// conventionally colocated with the camera controller, so this is
	// normally a loopback address.
	host string

	// port specifies the TCP port the plugin listens on.
	port int

	// connectTimeout defines the timeout for establishing the TCP
	// connection. Defaults to 3 seconds.
	connectTimeout time.Duration

	// readTimeout defines the deadline applied to each blocking read during
	// an exchange. Zero means block indefinitely, which matches the behavior
	// of the original scripting bridge. Long camera exposures require either
	// zero or a generous value.
	//
	// Defaults to 0.
	readTimeout time.Duration

	// probes is the capability probe table evaluated at connect time.
	// Defaults to the built-in energy-filter table.
	probes []ProbeEntry

	// logger provides a logger instance for connection events.
	logger logger.Logger
}

// NewConnectionConfig creates a connection configuration with the given host,
// port number, and optional functional options.
//
// An empty host defaults to the loopback address. A zero port falls back to
// the SERIALEMCCD_PORT environment variable, then to DefaultPort. When
// SERIALEMCCD_DEBUG is set to a non-zero value the configured logger is
// switched to debug level.
func NewConnectionConfig(host string, port int, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		host:           "127.0.0.1",
		port:           DefaultPort,
		connectTimeout: 3 * time.Second,
		readTimeout:    0,
		probes:         DefaultProbeList(),
		logger:         logger.GetLogger(),
	}

	if host != "" {
		cfg.host = host
	}

	if port == 0 {
		if env := os.Getenv(envPort); env != "" {
			envPortNum, err := strconv.Atoi(env)
			if err != nil {
				return nil, errors.New("invalid " + envPort + " value: " + env)
			}
			port = envPortNum
		}
	}
	if port != 0 {
		if port < 1 || port > 65535 {
			return nil, errors.New("port is out of range [1, 65535]")
		}
		cfg.port = port
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	if debug, _ := strconv.Atoi(os.Getenv(envDebug)); debug > 0 {
		cfg.logger.SetLevel(logger.DebugLevel)
	}

	return cfg, nil
}

// Host returns the configured remote host.
func (cfg *ConnectionConfig) Host() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.host
}

// Port returns the configured TCP port.
func (cfg *ConnectionConfig) Port() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.port
}

// ReadTimeout returns the per-read deadline; zero means no deadline.
func (cfg *ConnectionConfig) ReadTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.readTimeout
}

// ConnOption represents a functional option for configuring a
// ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc struct {
	name      string
	applyFunc func(*ConnectionConfig) error
}

func (c *connOptFunc) apply(cfg *ConnectionConfig) error { return c.applyFunc(cfg) }

func newConnOptFunc(name string, f func(*ConnectionConfig) error) *connOptFunc {
	return &connOptFunc{name: name, applyFunc: f}
}

// WithConnectTimeout sets the timeout for establishing the TCP connection.
// An error is returned if the timeout is outside the valid range
// (0.1-30 seconds) or if the configuration is nil.
//
// The default value is 3 seconds.
func WithConnectTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithConnectTimeout", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}

		if val < 100*time.Millisecond || val > 30*time.Second {
			return errors.New("connect timeout out of range [0.1, 30]")
		}
		cfg.connectTimeout = val

		return nil
	})
}

// WithReadTimeout sets the deadline applied to each blocking read of an
// exchange. Zero disables the deadline; a hung host then blocks the caller
// indefinitely and Reconnect is the only recovery.
//
// An error is returned if the timeout is negative or if the configuration is
// nil.
//
// The default value is 0 (no deadline).
func WithReadTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithReadTimeout", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}

		if val < 0 {
			return errors.New("read timeout must not be negative")
		}
		cfg.readTimeout = val

		return nil
	})
}

// WithProbeList replaces the capability probe table evaluated at connect
// time. An empty list disables capability negotiation entirely.
//
// The default is DefaultProbeList.
func WithProbeList(probes []ProbeEntry) ConnOption {
	return newConnOptFunc("WithProbeList", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}

		cfg.probes = probes

		return nil
	})
}

// WithLogger sets the logger for the connection.
// An error is returned if the configuration is nil.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc("WithLogger", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}

		cfg.logger = l

		return nil
	})
}
