// Package zkproto implements the wire protocol spoken by ZK-family
// fingerprint scanners over TCP.
//
// # Framing
//
// Every exchange is a frame: a fixed 4-byte magic (0x50 0x50 0x82 0x7d),
// a little-endian uint32 payload length, then the payload.
//
// # Packets
//
// A payload is a packet: an 8-byte header of four little-endian uint16
// fields (command, checksum, session, reply counter) followed by
// command data. The checksum is the 16-bit ones'-complement sum over
// the packet with the checksum field zeroed.
//
// # Reply Counter
//
// Command packets carry a reply counter the device echoes in its
// response. The checksum of an outgoing command is computed with the
// counter value from the previous exchange while the encoded header
// carries that value advanced by one. Firmware expects exactly this
// asymmetry; BuildCommand reproduces it.
//
// # Sessions
//
// A session starts with CmdConnect (session 0) and the device assigns
// the session ID carried by every subsequent packet. CmdExit ends it.
// Devices that require a comm key answer CmdConnect with AckUnauth and
// expect CmdAuth before anything else.
package zkproto
