package semccd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The remote plugin hard-codes the same table; codes are frozen for the
// lifetime of the protocol. Reordering the table must fail here.
func TestCodeOf_Stability(t *testing.T) {
	require := require.New(t)

	require.Equal(43, NumFunctions())

	pins := map[string]int64{
		FuncExecuteScript:        1,
		FuncGetAcquiredImage:     6,
		FuncGetDarkReference:     7,
		FuncSetK2Parameters:      23,
		FuncChunkHandshake:       24,
		FuncSetupFileSaving:      25,
		FuncSetupFileSaving2:     27,
		FuncGetDMVersionAndBuild: 42,
		FuncGetTiltSumProperties: 43,
	}

	for name, want := range pins {
		code, err := CodeOf(name)
		require.NoError(err, name)
		require.Equal(want, code, name)
	}
}

func TestCodeOf_Unknown(t *testing.T) {
	require := require.New(t)

	_, err := CodeOf("GS_NoSuchFunction")
	require.ErrorIs(err, ErrUnknownFunction)

	require.Panics(func() {
		MustCode("GS_NoSuchFunction")
	})
}

func TestNewRequest_Code(t *testing.T) {
	require := require.New(t)

	req := NewRequest(FuncChunkHandshake, nil, nil, nil, nil)
	require.Equal([]int64{24}, req.LongArgs)

	req = NewRequest(FuncExecuteScript, nil, []bool{false}, nil, PackString("Exit(1.0)"))
	require.Equal(int64(1), req.LongArgs[0])
	// Trailing long arg carries the long array length.
	require.Equal(int64(len(req.LongArray)), req.LongArgs[len(req.LongArgs)-1])
}
