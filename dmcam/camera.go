package dmcam

import (
	"github.com/arloliu/go-semccd/semccd"
)

// getFunction issues a request carrying only the function code and returns
// the response of the given shape.
func (c *Connection) getFunction(name string, recvShape semccd.Shape) (*semccd.Message, error) {
	return c.Exchange(semccd.NewRequest(name, nil, nil, nil, nil), &recvShape)
}

// setFunction issues a request carrying arguments and reads back the
// status-only response. The remote status is logged, not surfaced; the
// scripting bridge convention is to query GetLastError when needed.
func (c *Connection) setFunction(name string, longArgs []int64, boolArgs []bool, doubleArgs []float64) error {
	resp, err := c.Exchange(semccd.NewRequest(name, longArgs, boolArgs, doubleArgs, nil), &semccd.Shape{Longs: 1})
	if err != nil {
		return err
	}

	if resp.LongArgs[0] != 0 {
		c.logger.Warn("set function returned non-zero status", "func", name, "status", resp.LongArgs[0])
	}

	return nil
}

// GetDMVersion returns the version number of the DigitalMicrograph instance.
func (c *Connection) GetDMVersion() (int64, error) {
	resp, err := c.getFunction(semccd.FuncGetDMVersion, semccd.Shape{Longs: 2})
	if err != nil {
		return 0, err
	}

	return resp.LongArgs[1], nil
}

// GetDMVersionAndBuild returns the DM version and build numbers.
func (c *Connection) GetDMVersionAndBuild() (version int64, build int64, err error) {
	resp, err := c.getFunction(semccd.FuncGetDMVersionAndBuild, semccd.Shape{Longs: 3})
	if err != nil {
		return 0, 0, err
	}

	return resp.LongArgs[1], resp.LongArgs[2], nil
}

// GetDMCapabilities reports whether the host can select shutters, set
// settling, and operate the open shutter.
func (c *Connection) GetDMCapabilities() (canSelectShutter bool, canSetSettling bool, openShutterWorks bool, err error) {
	resp, err := c.getFunction(semccd.FuncGetDMCapabilities, semccd.Shape{Longs: 1, Bools: 3})
	if err != nil {
		return false, false, false, err
	}

	return resp.BoolArgs[0], resp.BoolArgs[1], resp.BoolArgs[2], nil
}

// GetPluginVersion returns the SerialEMCCD plugin version.
func (c *Connection) GetPluginVersion() (int64, error) {
	resp, err := c.getFunction(semccd.FuncGetPluginVersion, semccd.Shape{Longs: 2})
	if err != nil {
		return 0, err
	}

	return resp.LongArgs[1], nil
}

// GetLastError returns the error code of the last failed plugin operation.
func (c *Connection) GetLastError() (int64, error) {
	resp, err := c.getFunction(semccd.FuncGetLastError, semccd.Shape{Longs: 2})
	if err != nil {
		return 0, err
	}

	return resp.LongArgs[1], nil
}

// SetDebugMode sets the plugin's debug output mode.
func (c *Connection) SetDebugMode(mode int64) error {
	return c.setFunction(semccd.FuncSetDebugMode, []int64{mode}, nil, nil)
}

// GetNumberOfCameras returns the number of cameras the host knows about.
func (c *Connection) GetNumberOfCameras() (int64, error) {
	resp, err := c.getFunction(semccd.FuncGetNumberOfCameras, semccd.Shape{Longs: 2})
	if err != nil {
		return 0, err
	}

	return resp.LongArgs[1], nil
}

// SetCurrentCamera makes the given camera current for subsequent operations.
func (c *Connection) SetCurrentCamera(camera int64) error {
	return c.setFunction(semccd.FuncSetCurrentCamera, []int64{camera}, nil, nil)
}

// SelectCamera selects the given camera in DM.
func (c *Connection) SelectCamera(camera int64) error {
	return c.setFunction(semccd.FuncSelectCamera, []int64{camera}, nil, nil)
}

// IsCameraInserted reports whether the given camera is inserted.
func (c *Connection) IsCameraInserted(camera int64) (bool, error) {
	req := semccd.NewRequest(semccd.FuncIsCameraInserted, []int64{camera}, nil, nil, nil)

	resp, err := c.Exchange(req, &semccd.Shape{Longs: 1, Bools: 1})
	if err != nil {
		return false, err
	}

	return resp.BoolArgs[0], nil
}

// InsertCamera inserts (state true) or retracts (state false) the camera.
func (c *Connection) InsertCamera(camera int64, state bool) error {
	return c.setFunction(semccd.FuncInsertCamera, []int64{camera}, []bool{state}, nil)
}

// SetReadMode sets the camera read mode and the counting scale factor.
//
// For K2, pass 0, 1, or 2 for linear, counting, super-resolution. For K3,
// pass 3 or 4 for linear or super-resolution; a 3 or 4 is also the signal to
// the plugin that the camera is a K3. Cameras without a read mode take -1;
// OneView takes -3 for imaging or -2 for diffraction.
//
// For K3 linear mode the per-frame offset to subtract is folded into
// scaling: pass trueScaling + 10*round(offsetPerMs), with the offset
// nominally 8192 per frame at 1.502 frames per ms.
func (c *Connection) SetReadMode(mode int64, scaling float64) error {
	return c.setFunction(semccd.FuncSetReadMode, []int64{mode}, nil, []float64{scaling})
}

// SetShutterNormallyClosed configures which shutter is normally closed for
// the given camera.
func (c *Connection) SetShutterNormallyClosed(camera int64, shutter int64) error {
	return c.setFunction(semccd.FuncSetShutterNormallyClosed, []int64{camera, shutter}, nil, nil)
}

// SetNoDMSettling disables DM settling for the given camera.
func (c *Connection) SetNoDMSettling(camera int64) error {
	return c.setFunction(semccd.FuncSetNoDMSettling, []int64{camera}, nil, nil)
}

// WaitUntilReady blocks on the host side until the given resource is ready.
func (c *Connection) WaitUntilReady(which int64) error {
	return c.setFunction(semccd.FuncWaitUntilReady, []int64{which}, nil, nil)
}

// GetLastDoseRate returns the dose rate measured during the last exposure,
// in electrons per unbinned pixel per second.
func (c *Connection) GetLastDoseRate() (float64, error) {
	resp, err := c.getFunction(semccd.FuncGetLastDoseRate, semccd.Shape{Longs: 1, Doubles: 1})
	if err != nil {
		return 0, err
	}

	return resp.DoubleArgs[0], nil
}

// StopDSAcquisition stops a digiscan acquisition in progress.
func (c *Connection) StopDSAcquisition() error {
	_, err := c.getFunction(semccd.FuncStopDSAcquisition, semccd.Shape{Longs: 1})

	return err
}

// StopContinuousCamera stops continuous camera acquisition.
func (c *Connection) StopContinuousCamera() error {
	_, err := c.getFunction(semccd.FuncStopContinuousCamera, semccd.Shape{Longs: 1})

	return err
}

// GetFileSaveResult returns the number of frames saved by the last
// frame-saving acquisition.
func (c *Connection) GetFileSaveResult() (int64, error) {
	resp, err := c.getFunction(semccd.FuncGetFileSaveResult, semccd.Shape{Longs: 3})
	if err != nil {
		return 0, err
	}

	return resp.LongArgs[1], nil
}

// FreeK2GainReference releases the K2 gain reference held by the plugin.
func (c *Connection) FreeK2GainReference(which int64) error {
	return c.setFunction(semccd.FuncFreeK2GainReference, []int64{which}, nil, nil)
}

// UpdateK2HardwareDarkReference updates the K2 hardware dark reference for
// the given camera. The result is Unsupported when the host lacks the
// script function.
func (c *Connection) UpdateK2HardwareDarkReference(cameraID int) (Result, error) {
	return c.CallCameraFunctionLong("K2_updateHardwareDarkReference", cameraID)
}

// PrepareDarkReference prepares a dark reference for the given camera. The
// result is Unsupported when the host lacks the script function.
func (c *Connection) PrepareDarkReference(cameraID int) (Result, error) {
	return c.CallCameraFunctionLong("CM_PrepareDarkReference", cameraID)
}
