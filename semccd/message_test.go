package semccd

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessage_PackUnpackRoundTrip(t *testing.T) {
	require := require.New(t)

	msg := NewMessage(
		[]int64{1, -2, 300},
		[]bool{true, false},
		[]float64{0.5, -1.25},
		[]int64{7, 8, 9},
	)

	// NewMessage appends the long array length as a trailing long arg.
	require.Equal([]int64{1, -2, 300, 3}, msg.LongArgs)

	buf, err := msg.Pack()
	require.NoError(err)
	require.Equal(ShapeOf(msg).ByteLen(), len(buf))

	decoded, err := Unpack(buf, ShapeOf(msg))
	require.NoError(err)
	require.Equal(msg, decoded)
}

func TestMessage_SizeField(t *testing.T) {
	require := require.New(t)

	msgs := []*Message{
		NewMessage([]int64{1}, nil, nil, nil),
		NewMessage([]int64{24}, nil, nil, nil),
		NewMessage([]int64{1}, []bool{true}, nil, PackString("Exit(1.0)")),
		NewMessage(nil, nil, []float64{1, 2, 3}, nil),
	}

	for _, msg := range msgs {
		buf, err := msg.Pack()
		require.NoError(err)

		size := binary.LittleEndian.Uint32(buf[0:4])
		require.Equal(len(buf), int(size))
	}
}

func TestMessage_FrameTooLarge(t *testing.T) {
	require := require.New(t)

	// 4 + 2*8 + 200*8 bytes is well past the 1024-byte frame limit.
	msg := NewMessage([]int64{1}, nil, nil, make([]int64, 200))

	buf, err := msg.Pack()
	require.ErrorIs(err, ErrFrameTooLarge)
	require.Nil(buf)
}

func TestMessage_TooManyArgs(t *testing.T) {
	require := require.New(t)

	msg := NewMessage(make([]int64, MaxLongArgs+1), nil, nil, nil)
	_, err := msg.Pack()
	require.ErrorIs(err, ErrTooManyArgs)

	msg = NewMessage(nil, make([]bool, MaxBoolArgs+1), nil, nil)
	_, err = msg.Pack()
	require.ErrorIs(err, ErrTooManyArgs)

	msg = NewMessage(nil, nil, make([]float64, MaxDoubleArgs+1), nil)
	_, err = msg.Pack()
	require.ErrorIs(err, ErrTooManyArgs)
}

func TestUnpack_ShapeMismatch(t *testing.T) {
	require := require.New(t)

	msg := NewMessage([]int64{1, 2}, nil, nil, nil)
	buf, err := msg.Pack()
	require.NoError(err)

	_, err = Unpack(buf, Shape{Longs: 3})
	require.ErrorIs(err, ErrShapeMismatch)
}

func TestUnpack_FrameSizeMismatch(t *testing.T) {
	require := require.New(t)

	msg := NewMessage([]int64{1, 2}, nil, nil, nil)
	buf, err := msg.Pack()
	require.NoError(err)

	// Corrupt the size field.
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)+8))

	_, err = Unpack(buf, ShapeOf(msg))
	require.ErrorIs(err, ErrFrameSizeMismatch)
}

func TestPackString_Padding(t *testing.T) {
	require := require.New(t)

	for length := 0; length <= 2*LongSize+1; length++ {
		s := ""
		for i := 0; i < length; i++ {
			s += "x"
		}

		longs := PackString(s)
		require.NotEmpty(longs, "length %d", length)

		// Packed length is the string plus its terminating NUL, rounded up
		// to the long width; never a full extra long of padding.
		total := len(longs) * LongSize
		require.GreaterOrEqual(total, length+1, "length %d", length)
		require.Less(total, length+1+LongSize, "length %d", length)
		require.Equal(s, UnpackString(longs), "length %d", length)
	}
}

func TestPackString_EmbeddedNUL(t *testing.T) {
	require := require.New(t)

	// Directory and file names are sent NUL-separated and jointly padded.
	longs := PackString("dir\x00root")
	require.Equal("dir\x00root", UnpackString(longs))
}

func TestMessage_Clone(t *testing.T) {
	require := require.New(t)

	msg := NewMessage([]int64{1}, []bool{true}, []float64{2.5}, []int64{3})
	clone := msg.Clone()
	require.Equal(msg, clone)

	clone.LongArgs[0] = 99
	require.Equal(int64(1), msg.LongArgs[0])
}

func TestShape_ByteLen(t *testing.T) {
	require := require.New(t)

	require.Equal(4, Shape{}.ByteLen())
	require.Equal(4+8, Shape{Longs: 1}.ByteLen())
	require.Equal(4+2*8+4+8+3*8, Shape{Longs: 2, Bools: 1, Doubles: 1, LongArray: 3}.ByteLen())
}
