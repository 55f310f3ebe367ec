package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetFrame_Sizes(t *testing.T) {
	require := require.New(t)

	buf := GetFrame(44)
	require.Len(buf, 44)
	require.Equal(frameCap, cap(buf))
	PutFrame(buf)

	buf = GetFrame(frameCap)
	require.Len(buf, frameCap)
	PutFrame(buf)
}

func TestGetFrame_Oversize(t *testing.T) {
	require := require.New(t)

	// Oversize buffers bypass the pool entirely.
	buf := GetFrame(frameCap + 1)
	require.Len(buf, frameCap+1)
	require.NotEqual(frameCap, cap(buf))
	PutFrame(buf)
}

func TestPutFrame_Reuse(t *testing.T) {
	require := require.New(t)

	buf := GetFrame(12)
	for i := range buf {
		buf[i] = 0xAA
	}
	PutFrame(buf)

	// A reused buffer must be resliced to the requested length.
	next := GetFrame(20)
	require.Len(next, 20)
	PutFrame(next)
}
