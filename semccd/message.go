package semccd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arloliu/go-semccd/internal/util"
)

// Wire format limits and element widths.
//
// The record layout is host-native with no padding between segments; both
// ends of the connection are assumed to follow the same 64-bit little-endian
// convention (there is no endianness negotiation on the wire).
const (
	// MaxFrameSize is the maximum byte length of a packed message, matching
	// the fixed argument buffer size of the remote plugin.
	MaxFrameSize = 1024

	// MaxLongArgs is the maximum number of long arguments in one message.
	MaxLongArgs = 16
	// MaxBoolArgs is the maximum number of boolean arguments in one message.
	MaxBoolArgs = 8
	// MaxDoubleArgs is the maximum number of double arguments in one message.
	MaxDoubleArgs = 8

	// LongSize is the byte width of a long argument and of each element of
	// the trailing long array.
	LongSize = 8
	// BoolSize is the byte width of a boolean argument (a 32-bit int
	// interpreted as a boolean).
	BoolSize = 4
	// DoubleSize is the byte width of a double argument.
	DoubleSize = 8
	// SizeFieldLen is the byte width of the leading size field.
	SizeFieldLen = 4
)

// byteOrder is the byte order of every field on the wire.
var byteOrder = binary.LittleEndian

// Message is one fixed-layout protocol record.
//
// The packed form is the leading int32 size field followed by the long,
// boolean, and double argument segments and the trailing long array, in that
// order. Segment lengths are not encoded; the receiver must know the Shape
// of the record from the function being exchanged.
type Message struct {
	LongArgs   []int64
	BoolArgs   []bool
	DoubleArgs []float64
	LongArray  []int64
}

// NewMessage creates a message from the given argument segments.
//
// When longArray is non-empty, its element count is appended to longArgs as
// a trailing long argument, mirroring what the remote plugin expects for
// variable-length payloads. Any of the segments may be nil.
func NewMessage(longArgs []int64, boolArgs []bool, doubleArgs []float64, longArray []int64) *Message {
	if len(longArray) > 0 {
		args := make([]int64, 0, len(longArgs)+1)
		args = append(args, longArgs...)
		longArgs = append(args, int64(len(longArray)))
	}

	return &Message{
		LongArgs:   longArgs,
		BoolArgs:   boolArgs,
		DoubleArgs: doubleArgs,
		LongArray:  longArray,
	}
}

// NewRequest creates a request message whose first long argument is the wire
// code of the named function, followed by the remaining segments as in
// NewMessage.
//
// It panics if name is not in the function code table; requests are always
// built from literal function names, so a missing entry is a defect.
func NewRequest(name string, longArgs []int64, boolArgs []bool, doubleArgs []float64, longArray []int64) *Message {
	args := make([]int64, 0, len(longArgs)+2)
	args = append(args, MustCode(name))
	args = append(args, longArgs...)

	return NewMessage(args, boolArgs, doubleArgs, longArray)
}

// Shape describes the element counts of each segment of a message. The
// receiver of a response derives the Shape from the function that was
// requested; it is not self-describing on the wire.
type Shape struct {
	Longs     int
	Bools     int
	Doubles   int
	LongArray int
}

// ByteLen returns the packed byte length of a record with this shape,
// including the leading size field.
func (s Shape) ByteLen() int {
	return SizeFieldLen + s.Longs*LongSize + s.Bools*BoolSize + s.Doubles*DoubleSize + s.LongArray*LongSize
}

// ShapeOf returns the shape of msg.
func ShapeOf(msg *Message) Shape {
	return Shape{
		Longs:     len(msg.LongArgs),
		Bools:     len(msg.BoolArgs),
		Doubles:   len(msg.DoubleArgs),
		LongArray: len(msg.LongArray),
	}
}

// Pack serializes the message into its wire form.
//
// The returned buffer starts with an int32 size field equal to the buffer's
// own length. Pack returns ErrFrameTooLarge if the packed length would
// exceed MaxFrameSize; nothing may be sent in that case.
func (msg *Message) Pack() ([]byte, error) {
	if len(msg.LongArgs) > MaxLongArgs || len(msg.BoolArgs) > MaxBoolArgs || len(msg.DoubleArgs) > MaxDoubleArgs {
		return nil, fmt.Errorf("%w: %d longs, %d bools, %d doubles",
			ErrTooManyArgs, len(msg.LongArgs), len(msg.BoolArgs), len(msg.DoubleArgs))
	}

	size := ShapeOf(msg).ByteLen()
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, MaxFrameSize)
	}

	buf := make([]byte, size)
	byteOrder.PutUint32(buf[0:SizeFieldLen], uint32(size))

	off := SizeFieldLen
	for _, v := range msg.LongArgs {
		byteOrder.PutUint64(buf[off:], uint64(v))
		off += LongSize
	}
	for _, v := range msg.BoolArgs {
		var b uint32
		if v {
			b = 1
		}
		byteOrder.PutUint32(buf[off:], b)
		off += BoolSize
	}
	for _, v := range msg.DoubleArgs {
		byteOrder.PutUint64(buf[off:], math.Float64bits(v))
		off += DoubleSize
	}
	for _, v := range msg.LongArray {
		byteOrder.PutUint64(buf[off:], uint64(v))
		off += LongSize
	}

	return buf, nil
}

// Unpack deserializes buf into a message with the given expected shape.
//
// It returns ErrShapeMismatch when the buffer length does not equal the
// shape's byte length, and ErrFrameSizeMismatch when the leading size field
// disagrees with the buffer length.
func Unpack(buf []byte, shape Shape) (*Message, error) {
	if len(buf) != shape.ByteLen() {
		return nil, fmt.Errorf("%w: got %d bytes, shape requires %d", ErrShapeMismatch, len(buf), shape.ByteLen())
	}

	size := int(int32(byteOrder.Uint32(buf[0:SizeFieldLen])))
	if size != len(buf) {
		return nil, fmt.Errorf("%w: size field %d, buffer length %d", ErrFrameSizeMismatch, size, len(buf))
	}

	msg := &Message{}
	off := SizeFieldLen

	if shape.Longs > 0 {
		msg.LongArgs = make([]int64, shape.Longs)
		for i := range msg.LongArgs {
			msg.LongArgs[i] = int64(byteOrder.Uint64(buf[off:]))
			off += LongSize
		}
	}
	if shape.Bools > 0 {
		msg.BoolArgs = make([]bool, shape.Bools)
		for i := range msg.BoolArgs {
			msg.BoolArgs[i] = byteOrder.Uint32(buf[off:]) != 0
			off += BoolSize
		}
	}
	if shape.Doubles > 0 {
		msg.DoubleArgs = make([]float64, shape.Doubles)
		for i := range msg.DoubleArgs {
			msg.DoubleArgs[i] = math.Float64frombits(byteOrder.Uint64(buf[off:]))
			off += DoubleSize
		}
	}
	if shape.LongArray > 0 {
		msg.LongArray = make([]int64, shape.LongArray)
		for i := range msg.LongArray {
			msg.LongArray[i] = int64(byteOrder.Uint64(buf[off:]))
			off += LongSize
		}
	}

	return msg, nil
}

// PackString encodes s as a long array: the UTF-8 bytes of s followed by a
// terminating NUL, zero-padded to a multiple of LongSize, reinterpreted as
// little-endian longs. Script sources and file names cross the wire in this
// form.
func PackString(s string) []int64 {
	b := make([]byte, 0, len(s)+LongSize)
	b = append(b, s...)
	b = append(b, 0)
	if extra := len(b) % LongSize; extra != 0 {
		b = append(b, make([]byte, LongSize-extra)...)
	}

	longs := make([]int64, len(b)/LongSize)
	for i := range longs {
		longs[i] = int64(byteOrder.Uint64(b[i*LongSize:]))
	}

	return longs
}

// UnpackString is the inverse of PackString; it reassembles the byte
// sequence and strips the trailing NUL padding.
func UnpackString(longs []int64) string {
	b := make([]byte, len(longs)*LongSize)
	for i, v := range longs {
		byteOrder.PutUint64(b[i*LongSize:], uint64(v))
	}

	return string(bytes.TrimRight(b, "\x00"))
}

// Clone returns a deep copy of the message.
func (msg *Message) Clone() *Message {
	return &Message{
		LongArgs:   util.CloneSlice(msg.LongArgs, 0),
		BoolArgs:   util.CloneSlice(msg.BoolArgs, 0),
		DoubleArgs: util.CloneSlice(msg.DoubleArgs, 0),
		LongArray:  util.CloneSlice(msg.LongArray, 0),
	}
}
