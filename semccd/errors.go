package semccd

import "errors"

var (
	// ErrFrameTooLarge indicates that a packed message exceeds MaxFrameSize.
	// It is raised locally before any bytes are written to the socket; the
	// only recovery is to shrink the payload.
	ErrFrameTooLarge = errors.New("packed message exceeds maximum frame size")

	// ErrFrameSizeMismatch indicates that the size field of a received frame
	// does not equal the actual buffer length.
	ErrFrameSizeMismatch = errors.New("frame size field does not match buffer length")

	// ErrShapeMismatch indicates that a buffer does not have the byte length
	// required by the expected response shape.
	ErrShapeMismatch = errors.New("buffer length does not match expected shape")

	// ErrTooManyArgs indicates that a message carries more arguments of one
	// kind than the protocol allows.
	ErrTooManyArgs = errors.New("too many arguments for message")
)

var (
	// ErrUnknownFunction indicates a lookup of a function name that is not in
	// the registry. This is a client defect, not a runtime condition.
	ErrUnknownFunction = errors.New("unknown function name")
)

var (
	// ErrNotConnected indicates that an operation requires an established
	// connection.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates that Connect was called on an
	// established connection.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrConnectionLost indicates that the remote host closed the connection
	// or a socket error occurred mid-exchange. Recovery requires an explicit
	// reconnect; in-flight state is discarded.
	ErrConnectionLost = errors.New("connection lost")
)
