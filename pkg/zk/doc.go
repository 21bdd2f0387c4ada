// Package zk implements the driver for ZK-family fingerprint scanners.
//
// The driver dials a scanner over TCP, performs the session handshake,
// and exposes the operations the coordinator needs: user management,
// template retrieval, interactive enrollment, and a live capture
// stream of fingerprint matches. Wire encoding lives in the zkproto
// subpackage.
//
// # Connections
//
// A Conn is produced by a Driver and owns one TCP session. All
// operations are methods on the Conn; the driver itself holds no
// connection state. Commands are strict request/reply and serialized
// per connection. A running live capture owns the connection: other
// commands fail with ErrCaptureActive until the capture context ends.
//
// # Enrollment
//
// Enroll drives the scanner's interactive enrollment: the device
// prompts for three finger presses and pushes a progress event after
// each. The richer enrollment request form is tried first and the
// legacy short form is used when the firmware rejects it. A stage
// going unanswered surfaces ErrEnrollTimeout so callers can tell
// "nobody pressed a finger" from a device fault.
//
// # Privileged Work
//
// Disable and Enable bracket user table writes and enrollment. While
// disabled the scanner UI ignores the sensor, which keeps interactive
// enrollment from racing normal attendance matching.
package zk
