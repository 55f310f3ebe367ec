// Package semccd implements the wire format of the SerialEMCCD scripting
// plugin for Gatan DigitalMicrograph (DM).
//
// The plugin exposes camera control to external clients over a raw TCP
// socket. Each request and each response is a single fixed-layout binary
// record (Message) whose first field is the total record size, followed by a
// long-argument array, a boolean-argument array, a double-argument array, and
// one variable-length trailing long array. Array lengths are not encoded in
// the record; both ends derive them from the function being called.
//
// The operation requested by a Message is identified by a small positive
// integer function code carried in the first long argument. Codes are the
// 1-based positions of the published, append-only function name table; the
// remote plugin hard-codes the identical table, so the order is a versioned
// protocol artifact and must never change.
//
// This package provides the codec (Message, Shape, Pack, Unpack), the
// function code registry (CodeOf, MustCode), and the protocol-level error
// values. The connection layer that drives the exchange lives in package
// dmcam.
package semccd
