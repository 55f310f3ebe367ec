package dmcam

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/arloliu/go-semccd/internal/pool"
	"github.com/arloliu/go-semccd/logger"
	"github.com/arloliu/go-semccd/semccd"
	"github.com/puzpuzpuz/xsync/v3"
)

// Connection is a client connection to a SerialEMCCD host.
//
// It owns one TCP socket with at most one in-flight request. All exchanges
// serialize on an internal mutex; the mutex is held for an entire chunked
// image transfer, not just the initial request.
type Connection struct {
	cfg    *ConnectionConfig
	logger logger.Logger

	// mu enforces the single-outstanding-request discipline. Responses carry
	// no request identifiers, so interleaved requests would desynchronize
	// the positional correlation.
	mu   sync.Mutex
	conn net.Conn

	caps          *xsync.MapOf[string, Capability]
	waitForFilter string

	saveFrames bool
	numGrabSum float64
}

// NewConnection creates a Connection from cfg. The connection is not
// established until Connect is called.
func NewConnection(cfg *ConnectionConfig) (*Connection, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}

	return &Connection{
		cfg:    cfg,
		logger: cfg.logger,
		caps:   xsync.NewMapOf[string, Capability](),
	}, nil
}

// Connect establishes the TCP connection and negotiates capabilities.
//
// ctx bounds the dial; the configured connect timeout applies in addition.
// It returns semccd.ErrAlreadyConnected when the connection is already
// established.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return semccd.ErrAlreadyConnected
	}

	addr := net.JoinHostPort(c.cfg.Host(), strconv.Itoa(c.cfg.Port()))

	dialer := net.Dialer{Timeout: c.cfg.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	c.conn = conn

	c.logger.Debug("connected", "addr", addr)

	if err := c.negotiateCapabilities(); err != nil {
		_ = c.closeLocked()
		return fmt.Errorf("capability negotiation: %w", err)
	}

	return nil
}

// Disconnect closes the connection. Any in-flight state is discarded; the
// resolved capability map is cleared and rebuilt on the next Connect.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return semccd.ErrNotConnected
	}

	return c.closeLocked()
}

// Reconnect drops the current connection, if any, and establishes a new one.
// It is the only recovery primitive after a lost connection or a hung
// exchange.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		_ = c.closeLocked()
	}
	c.mu.Unlock()

	return c.Connect(ctx)
}

// IsConnected reports whether the connection is established.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

func (c *Connection) closeLocked() error {
	err := c.conn.Close()
	c.conn = nil
	c.caps.Clear()
	c.waitForFilter = ""

	c.logger.Debug("disconnected")

	return err
}

// Exchange sends one request and, when recvShape is non-nil, blocks until a
// full response of that shape has been received.
//
// A nil recvShape means the function produces no response (the chunk
// handshake is the only such message); Exchange then returns (nil, nil)
// right after the send.
//
// Packing errors (semccd.ErrFrameTooLarge) abort before any bytes reach the
// socket. A zero-byte read or peer reset surfaces as
// semccd.ErrConnectionLost; recovery requires an explicit Reconnect.
func (c *Connection) Exchange(send *semccd.Message, recvShape *semccd.Shape) (*semccd.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exchangeLocked(send, recvShape)
}

func (c *Connection) exchangeLocked(send *semccd.Message, recvShape *semccd.Shape) (*semccd.Message, error) {
	if c.conn == nil {
		return nil, semccd.ErrNotConnected
	}

	buf, err := send.Pack()
	if err != nil {
		return nil, err
	}

	if _, err := c.conn.Write(buf); err != nil {
		return nil, fmt.Errorf("%w: send: %v", semccd.ErrConnectionLost, err)
	}

	if recvShape == nil {
		return nil, nil //nolint:nilnil
	}

	recvBuf := pool.GetFrame(recvShape.ByteLen())
	defer pool.PutFrame(recvBuf)

	if err := c.recvFullLocked(recvBuf); err != nil {
		return nil, err
	}

	resp, err := semccd.Unpack(recvBuf, *recvShape)
	if err != nil {
		return nil, fmt.Errorf("unpack response: %w", err)
	}

	if len(send.LongArgs) > 0 && len(resp.LongArgs) > 0 {
		c.logger.Debug("exchange", "func", send.LongArgs[0], "status", resp.LongArgs[0])
	}

	return resp, nil
}

// recvFullLocked reads exactly len(buf) bytes, looping partial reads. The
// configured read timeout, when non-zero, bounds the whole fill.
func (c *Connection) recvFullLocked(buf []byte) error {
	if timeout := c.cfg.ReadTimeout(); timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
	} else {
		if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
			return fmt.Errorf("clear read deadline: %w", err)
		}
	}

	total := 0
	for total < len(buf) {
		n, err := c.conn.Read(buf[total:])
		if err != nil {
			return wrapReadErr(err)
		}
		if n == 0 {
			return semccd.ErrConnectionLost
		}
		total += n
	}

	return nil
}

func wrapReadErr(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("read timed out: %w", err)
	}

	return fmt.Errorf("%w: %v", semccd.ErrConnectionLost, err)
}
