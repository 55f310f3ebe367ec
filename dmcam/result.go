package dmcam

import "fmt"

// ResultState enumerates the outcome classes of a capability-gated remote
// call.
type ResultState int

const (
	// ResultOk indicates the call succeeded and carries a value.
	ResultOk ResultState = iota
	// ResultUnsupported indicates the capability is absent on the connected
	// host. This is not an error; callers should degrade gracefully.
	ResultUnsupported
	// ResultRemoteError indicates the host executed the call and reported a
	// failure status.
	ResultRemoteError
)

// Result is the outcome of a capability-gated remote call.
//
// The DM scripting bridge historically signaled failure with in-band
// sentinel values (-1.0, or a positive status long), which callers could
// mistake for valid readings. Result keeps the value and the outcome state
// separate so that cannot happen.
type Result struct {
	state ResultState
	value float64
	code  int64
}

func okResult(value float64) Result {
	return Result{state: ResultOk, value: value}
}

func unsupportedResult() Result {
	return Result{state: ResultUnsupported}
}

func remoteErrorResult(code int64) Result {
	return Result{state: ResultRemoteError, code: code}
}

// State returns the outcome class of the result.
func (r Result) State() ResultState {
	return r.state
}

// Ok reports whether the call succeeded.
func (r Result) Ok() bool {
	return r.state == ResultOk
}

// Unsupported reports whether the capability is absent on the host.
func (r Result) Unsupported() bool {
	return r.state == ResultUnsupported
}

// Value returns the call's value. The boolean is false unless the result
// state is ResultOk.
func (r Result) Value() (float64, bool) {
	return r.value, r.state == ResultOk
}

// Code returns the remote status code for a ResultRemoteError result, and 0
// otherwise.
func (r Result) Code() int64 {
	return r.code
}

// Float64 returns the value using the legacy sentinel convention of the DM
// scripting bridge: the value when Ok, -1.0 when the capability is
// unsupported, and the remote status code when the host reported a failure.
//
// Prefer Value and State; Float64 exists for callers porting scripts that
// already check the sentinels.
func (r Result) Float64() float64 {
	switch r.state {
	case ResultUnsupported:
		return -1.0
	case ResultRemoteError:
		return float64(r.code)
	default:
		return r.value
	}
}

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r.state {
	case ResultUnsupported:
		return "unsupported"
	case ResultRemoteError:
		return fmt.Sprintf("remote error %d", r.code)
	default:
		return fmt.Sprintf("ok(%g)", r.value)
	}
}

// RemoteStatusError reports a failure status returned by the host in a
// response payload. It is used by calls whose failure is exceptional rather
// than a routine absent-capability condition, such as image acquisition.
type RemoteStatusError struct {
	Op   string
	Code int64
}

func (e *RemoteStatusError) Error() string {
	return fmt.Sprintf("%s: remote returned status %d", e.Op, e.Code)
}
