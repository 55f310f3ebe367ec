package dmcam

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNegotiate_FirstMatchWins(t *testing.T) {
	require := require.New(t)

	host := newFakeHost(t)
	host.addFunction("AFGetSlitState", "IFGetSlitIn")

	probes := []ProbeEntry{
		{Concrete: "AFGetSlitState", Canonical: CapGetEnergyFilter},
		{Concrete: "IFGetSlitIn", Canonical: CapGetEnergyFilter},
	}

	conn := host.connectTo(t, WithProbeList(probes))

	cp, ok := conn.Capability(CapGetEnergyFilter)
	require.True(ok)
	require.Equal("AFGetSlitState", cp.Concrete)

	// Once a canonical capability is claimed, later rows are not probed.
	require.Len(host.receivedScripts(), 1)
}

func TestNegotiate_DefaultProbeList(t *testing.T) {
	require := require.New(t)

	host := newFakeHost(t)
	// A GMS generation exposing only the IF* vocabulary.
	host.addFunction("IFGetSlitIn", "IFSetSlitIn", "IFGetSlitWidth", "IFSetSlitWidth",
		"IFGetEnergyLoss", "IFSetEnergyLoss", "GT_CenterZLP")

	conn := host.connectTo(t)

	wants := map[string]string{
		CapGetEnergyFilter:               "IFGetSlitIn",
		CapSetEnergyFilter:               "IFSetSlitIn",
		CapGetEnergyFilterWidth:          "IFGetSlitWidth",
		CapSetEnergyFilterWidth:          "IFSetSlitWidth",
		CapGetEnergyFilterOffset:         "IFGetEnergyLoss",
		CapSetEnergyFilterOffset:         "IFSetEnergyLoss",
		CapAlignEnergyFilterZeroLossPeak: "GT_CenterZLP",
	}
	for canonical, concrete := range wants {
		cp, ok := conn.Capability(canonical)
		require.True(ok, canonical)
		require.Equal(concrete, cp.Concrete, canonical)
	}
}

func TestSetEnergyFilter_PostWait(t *testing.T) {
	require := require.New(t)

	host := newFakeHost(t)
	host.addFunction("IFGetSlitIn", "IFSetSlitIn")

	conn := host.connectTo(t)

	res, err := conn.SetEnergyFilter(true)
	require.NoError(err)
	require.True(res.Ok())

	// IFSetSlitIn returns before the filter settles; the explicit wait must
	// be part of the same script.
	require.Equal("IFSetSlitIn(1); IFWaitForFilter();", host.lastScript())
}

func TestSetEnergyFilter_NoPostWait(t *testing.T) {
	require := require.New(t)

	host := newFakeHost(t)
	host.addFunction("AFSetSlitState")

	conn := host.connectTo(t)

	res, err := conn.SetEnergyFilter(false)
	require.NoError(err)
	require.True(res.Ok())
	require.Equal("AFSetSlitState(0); ", host.lastScript())
}

func TestEnergyFilter_Unsupported(t *testing.T) {
	require := require.New(t)

	host := newFakeHost(t)
	conn := host.connectTo(t) // no functions registered: every probe fails

	res, err := conn.GetEnergyFilterWidth()
	require.NoError(err)
	require.True(res.Unsupported())
	require.Equal(ResultUnsupported, res.State())

	_, ok := res.Value()
	require.False(ok)
	require.Equal(-1.0, res.Float64())

	res, err = conn.SetEnergyFilter(true)
	require.NoError(err)
	require.True(res.Unsupported())
}

func TestGetEnergyFilter_Value(t *testing.T) {
	require := require.New(t)

	host := newFakeHost(t)
	host.addFunction("AFGetSlitState")
	host.scriptVal = func(string) float64 { return 1.0 }

	conn := host.connectTo(t)

	res, err := conn.GetEnergyFilter()
	require.NoError(err)

	val, ok := res.Value()
	require.True(ok)
	require.Equal(1.0, val)
	require.Equal("if ( AFGetSlitState() ) { Exit(1.0); } else { Exit(-1.0); }", host.lastScript())
}

func TestEnergyFilterWidth_RoundTrip(t *testing.T) {
	require := require.New(t)

	host := newFakeHost(t)
	host.addFunction("IFCGetSlitWidth", "IFCSetSlitWidth")
	host.scriptVal = func(string) float64 { return 20.0 }

	conn := host.connectTo(t)

	res, err := conn.SetEnergyFilterWidth(20.0)
	require.NoError(err)
	require.True(res.Ok())

	res, err = conn.GetEnergyFilterWidth()
	require.NoError(err)

	width, ok := res.Value()
	require.True(ok)
	require.Equal(20.0, width)
	require.Equal("Exit(IFCGetSlitWidth())", host.lastScript())
}

func TestEnergyFilterOffset_RoundTrip(t *testing.T) {
	require := require.New(t)

	host := newFakeHost(t)
	host.addFunction("IFGetEnergyLoss", "IFSetEnergyLoss")
	host.scriptVal = func(string) float64 { return 10.5 }

	conn := host.connectTo(t)

	res, err := conn.SetEnergyFilterOffset(10.5)
	require.NoError(err)
	require.True(res.Ok())

	res, err = conn.GetEnergyFilterOffset()
	require.NoError(err)

	offset, ok := res.Value()
	require.True(ok)
	require.Equal(10.5, offset)
}

func TestSetEnergyFilterWidth_RemoteError(t *testing.T) {
	require := require.New(t)

	host := newFakeHost(t)
	host.addFunction("AFSetSlitWidth")
	host.setScriptStatus(2)

	conn := host.connectTo(t)

	res, err := conn.SetEnergyFilterWidth(15.0)
	require.NoError(err)
	require.Equal(ResultRemoteError, res.State())
	require.Equal(int64(2), res.Code())
	require.Equal(2.0, res.Float64())
	require.False(res.Ok())
}

func TestAlignEnergyFilterZeroLossPeak(t *testing.T) {
	require := require.New(t)

	host := newFakeHost(t)
	host.addFunction("AFDoAlignZeroLoss")
	host.scriptVal = func(string) float64 { return 1.0 }

	conn := host.connectTo(t)

	res, err := conn.AlignEnergyFilterZeroLossPeak()
	require.NoError(err)

	val, ok := res.Value()
	require.True(ok)
	require.Equal(1.0, val)
}

func TestResult_String(t *testing.T) {
	require := require.New(t)

	require.Equal("ok(1.5)", okResult(1.5).String())
	require.Equal("unsupported", unsupportedResult().String())
	require.Equal("remote error 3", remoteErrorResult(3).String())
}
