package semccd

import "fmt"

// Function names recognized by the SerialEMCCD plugin. The wire code of a
// function is its 1-based position in functionTable.
const (
	FuncExecuteScript            = "GS_ExecuteScript"
	FuncSetDebugMode             = "GS_SetDebugMode"
	FuncSetDMVersion             = "GS_SetDMVersion"
	FuncSetCurrentCamera         = "GS_SetCurrentCamera"
	FuncQueueScript              = "GS_QueueScript"
	FuncGetAcquiredImage         = "GS_GetAcquiredImage"
	FuncGetDarkReference         = "GS_GetDarkReference"
	FuncGetGainReference         = "GS_GetGainReference"
	FuncSelectCamera             = "GS_SelectCamera"
	FuncSetReadMode              = "GS_SetReadMode"
	FuncGetNumberOfCameras       = "GS_GetNumberOfCameras"
	FuncIsCameraInserted         = "GS_IsCameraInserted"
	FuncInsertCamera             = "GS_InsertCamera"
	FuncGetDMVersion             = "GS_GetDMVersion"
	FuncGetDMCapabilities        = "GS_GetDMCapabilities"
	FuncSetShutterNormallyClosed = "GS_SetShutterNormallyClosed"
	FuncSetNoDMSettling          = "GS_SetNoDMSettling"
	FuncGetDSProperties          = "GS_GetDSProperties"
	FuncAcquireDSImage           = "GS_AcquireDSImage"
	FuncReturnDSChannel          = "GS_ReturnDSChannel"
	FuncStopDSAcquisition        = "GS_StopDSAcquisition"
	FuncCheckReferenceTime       = "GS_CheckReferenceTime"
	FuncSetK2Parameters          = "GS_SetK2Parameters"
	FuncChunkHandshake           = "GS_ChunkHandshake"
	FuncSetupFileSaving          = "GS_SetupFileSaving"
	FuncGetFileSaveResult        = "GS_GetFileSaveResult"
	FuncSetupFileSaving2         = "GS_SetupFileSaving2"
	FuncGetDefectList            = "GS_GetDefectList"
	FuncSetK2Parameters2         = "GS_SetK2Parameters2"
	FuncStopContinuousCamera     = "GS_StopContinuousCamera"
	FuncGetPluginVersion         = "GS_GetPluginVersion"
	FuncGetLastError             = "GS_GetLastError"
	FuncFreeK2GainReference      = "GS_FreeK2GainReference"
	FuncIsGpuAvailable           = "GS_IsGpuAvailable"
	FuncSetupFrameAligning       = "GS_SetupFrameAligning"
	FuncFrameAlignResults        = "GS_FrameAlignResults"
	FuncReturnDeferredSum        = "GS_ReturnDeferredSum"
	FuncMakeAlignComFile         = "GS_MakeAlignComFile"
	FuncWaitUntilReady           = "GS_WaitUntilReady"
	FuncGetLastDoseRate          = "GS_GetLastDoseRate"
	FuncSaveFrameMdoc            = "GS_SaveFrameMdoc"
	FuncGetDMVersionAndBuild     = "GS_GetDMVersionAndBuild"
	FuncGetTiltSumProperties     = "GS_GetTiltSumProperties"
)

// functionTable is the published function code table of the SerialEMCCD
// plugin (SocketPathway.cpp). The remote side hard-codes the identical list,
// so entries must match it exactly in both number and order. The table is
// append-only; reordering or removing an entry breaks wire compatibility.
var functionTable = []string{
	FuncExecuteScript,
	FuncSetDebugMode,
	FuncSetDMVersion,
	FuncSetCurrentCamera,
	FuncQueueScript,
	FuncGetAcquiredImage,
	FuncGetDarkReference,
	FuncGetGainReference,
	FuncSelectCamera,
	FuncSetReadMode,
	FuncGetNumberOfCameras,
	FuncIsCameraInserted,
	FuncInsertCamera,
	FuncGetDMVersion,
	FuncGetDMCapabilities,
	FuncSetShutterNormallyClosed,
	FuncSetNoDMSettling,
	FuncGetDSProperties,
	FuncAcquireDSImage,
	FuncReturnDSChannel,
	FuncStopDSAcquisition,
	FuncCheckReferenceTime,
	FuncSetK2Parameters,
	FuncChunkHandshake,
	FuncSetupFileSaving,
	FuncGetFileSaveResult,
	FuncSetupFileSaving2,
	FuncGetDefectList,
	FuncSetK2Parameters2,
	FuncStopContinuousCamera,
	FuncGetPluginVersion,
	FuncGetLastError,
	FuncFreeK2GainReference,
	FuncIsGpuAvailable,
	FuncSetupFrameAligning,
	FuncFrameAlignResults,
	FuncReturnDeferredSum,
	FuncMakeAlignComFile,
	FuncWaitUntilReady,
	FuncGetLastDoseRate,
	FuncSaveFrameMdoc,
	FuncGetDMVersionAndBuild,
	FuncGetTiltSumProperties,
}

var functionCodes = make(map[string]int64, len(functionTable))

func init() {
	for i, name := range functionTable {
		functionCodes[name] = int64(i + 1)
	}
}

// NumFunctions returns the number of entries in the function code table.
func NumFunctions() int {
	return len(functionTable)
}

// CodeOf returns the wire code of the named function.
//
// It returns ErrUnknownFunction if the name is not in the table, which
// indicates a client programming error rather than a runtime condition.
func CodeOf(name string) (int64, error) {
	code, ok := functionCodes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}

	return code, nil
}

// MustCode returns the wire code of the named function and panics if the
// name is not in the table. It is intended for call sites with literal
// function names, where a missing entry is always a defect.
func MustCode(name string) int64 {
	code, err := CodeOf(name)
	if err != nil {
		panic(err)
	}

	return code
}
