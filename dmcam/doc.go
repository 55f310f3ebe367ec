// Package dmcam implements the client side of the SerialEMCCD camera
// scripting protocol over a single blocking TCP connection to a
// DigitalMicrograph (DM) host.
//
// A Connection holds exactly one socket and allows at most one outstanding
// request; responses carry no request identifiers, so correlation is purely
// positional. An internal mutex enforces this single-outstanding-request
// discipline, making the Connection safe for use from multiple goroutines,
// although calls serialize.
//
// On top of the raw exchange the package provides:
//
//   - a script bridge for executing DM script fragments remotely and reading
//     back scalar results (ExecuteScript, GetDoubleScript, SendScript)
//   - capability negotiation: at connect time the client probes which
//     energy-filter script functions exist on the host, since different GMS
//     versions expose different vocabularies for equivalent operations
//   - chunked image acquisition (GetImage), reassembling multi-megapixel
//     frames delivered in paced chunks
//   - structured parameter builders for K2/K3-class counting cameras
//     (SetK2Parameters, SetupFileSaving)
//
// Remote failures of capability-gated operations are reported as Result
// values rather than errors, mirroring the permissive style of the DM
// scripting bridge: callers branch on the result state instead of handling
// exceptions for routine "capability not present" conditions.
package dmcam
