package dmcam

import (
	"fmt"
	"os"

	"github.com/arloliu/go-semccd/semccd"
)

// backgroundMarker makes the DM script runner execute a script without
// blocking the scripting thread.
const backgroundMarker = "// $BACKGROUND$\n\n"

// cameraObjectPreamble resolves the Nth camera object on the host before
// invoking a named script function on it.
const cameraObjectPreamble = "Object manager = CM_GetCameraManager();\n" +
	"Object cameraList = CM_GetCameras(manager);\n" +
	"Object camera = ObjectAt(cameraList,%d);\n"

// scriptDoubleShape is the response shape of a script call returning one
// double: a status long plus the value.
var scriptDoubleShape = semccd.Shape{Longs: 1, Doubles: 1}

// newScriptRequest builds the execute-script request: the source text
// crosses the wire NUL-terminated and zero-padded in the trailing long
// array, and selectCamera rides in the boolean segment.
func newScriptRequest(source string, selectCamera bool) *semccd.Message {
	return semccd.NewRequest(semccd.FuncExecuteScript, nil, []bool{selectCamera}, nil, semccd.PackString(source))
}

// ExecuteScript executes a DM script fragment on the host and returns the
// raw response message of the given shape.
//
// selectCamera asks the host to select the current camera before running
// the script.
//
// Most callers want GetDoubleScript, GetLongScript, or SendScript instead.
func (c *Connection) ExecuteScript(source string, selectCamera bool, recvShape semccd.Shape) (*semccd.Message, error) {
	return c.Exchange(newScriptRequest(source, selectCamera), &recvShape)
}

// GetDoubleScript executes a DM script that exits with one double value and
// returns that value. The response also carries a status long, which is
// reported at debug level only; script-level failure is conventionally
// signaled in-band by the exit value.
func (c *Connection) GetDoubleScript(source string) (float64, error) {
	resp, err := c.ExecuteScript(source, false, scriptDoubleShape)
	if err != nil {
		return 0, err
	}

	return resp.DoubleArgs[0], nil
}

// GetLongScript executes a DM script and returns its result truncated to an
// integer. The remote script exit channel is double-typed even for integer
// results, so the value round-trips through a float64.
func (c *Connection) GetLongScript(source string) (int64, error) {
	val, err := c.GetDoubleScript(source)
	if err != nil {
		return 0, err
	}

	return int64(val), nil
}

// SendScript executes a DM script that produces no value and returns the
// remote status long. A status greater than zero means the host failed to
// run the script. The response still carries the (unused) double result
// slot; the script exchange layout is the same for every call.
func (c *Connection) SendScript(source string) (int64, error) {
	resp, err := c.ExecuteScript(source, false, scriptDoubleShape)
	if err != nil {
		return 0, err
	}

	return resp.LongArgs[0], nil
}

// RunScript executes the DM script stored in the file at path. When
// background is true the script is marked to run on the host's background
// thread, making the call non-blocking on the DM side.
func (c *Connection) RunScript(path string, background bool) (*semccd.Message, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}

	text := string(source)
	if background {
		text = backgroundMarker + text
	}

	return c.ExecuteScript(text, false, semccd.Shape{Longs: 1, Doubles: 1})
}

// CallCameraFunctionLong invokes a named DM script function that takes a
// camera object argument and returns a long. The camera object is resolved
// on the host from the zero-based cameraID.
//
// When the function does not exist on the connected host the result is
// Unsupported rather than an error, so optional per-camera capabilities
// degrade gracefully.
func (c *Connection) CallCameraFunctionLong(name string, cameraID int) (Result, error) {
	resp, ok, err := c.callCameraFunction(name, cameraID, semccd.Shape{Longs: 1, Doubles: 1})
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return unsupportedResult(), nil
	}

	if status := resp.LongArgs[0]; status > 0 {
		return remoteErrorResult(status), nil
	}

	return okResult(float64(resp.LongArgs[0])), nil
}

// CallCameraFunctionDouble invokes a named DM script function that takes a
// camera object argument and returns a double. See CallCameraFunctionLong.
func (c *Connection) CallCameraFunctionDouble(name string, cameraID int) (Result, error) {
	resp, ok, err := c.callCameraFunction(name, cameraID, semccd.Shape{Longs: 1, Doubles: 1})
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return unsupportedResult(), nil
	}

	return okResult(resp.DoubleArgs[0]), nil
}

func (c *Connection) callCameraFunction(name string, cameraID int, recvShape semccd.Shape) (*semccd.Message, bool, error) {
	ok, err := c.hasScriptFunction(name)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	source := fmt.Sprintf(cameraObjectPreamble, cameraID) + fmt.Sprintf("%s(camera);\n", name)

	resp, err := c.ExecuteScript(source, false, recvShape)
	if err != nil {
		return nil, false, err
	}

	return resp, true, nil
}

// hasScriptFunction probes whether a script function exists on the host.
func (c *Connection) hasScriptFunction(name string) (bool, error) {
	source := fmt.Sprintf(`if ( DoesFunctionExist("%s") ) { Exit(1.0); } else { Exit(-1.0); }`, name)

	val, err := c.GetDoubleScript(source)
	if err != nil {
		return false, err
	}

	return val > 0, nil
}
