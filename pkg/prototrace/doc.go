// Package prototrace provides structured capture of scanner protocol
// traffic.
//
// The package defines the Logger interface and Event types for
// recording what a device connection does at three layers: raw frames
// (transport), decoded command packets, and driver lifecycle. It is
// separate from operational logging (logrus) - a trace is a complete
// machine-readable record of one or more device sessions, intended for
// protocol debugging against scanner firmware quirks.
//
// # Basic Usage
//
// Connections accept a Logger; pass nil or NoopLogger to disable:
//
//	// For production: write to binary file
//	tracer, _ := prototrace.NewFileLogger("/var/log/attendd/scanner.ztrace")
//
//	// For development: mirror into the operational log
//	tracer := prototrace.NewLogrusAdapter(log)
//
//	// Both at once
//	tracer := prototrace.NewMultiLogger(fileTracer, logAdapter)
//
// # Event Types
//
//   - Frame: raw frame bytes at the transport layer
//   - Packet: decoded command header and payload size
//   - StateChange: connection and capture lifecycle transitions
//   - Error: failures at any layer
//
// # File Format
//
// Trace files use CBOR encoding with the .ztrace extension. The
// attendd-trace CLI views, filters, and exports them.
package prototrace
