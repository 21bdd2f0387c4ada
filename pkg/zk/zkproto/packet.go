package zkproto

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the size of the packet header in bytes.
const HeaderSize = 8

// ushortMax is the fold boundary of the checksum and reply counter
// arithmetic. The protocol folds at 65535, not 65536.
const ushortMax = 0xFFFF

// Packet errors.
var (
	// ErrPacketTooShort indicates a payload smaller than the header.
	ErrPacketTooShort = errors.New("packet too short")
)

// Packet is a decoded command packet.
type Packet struct {
	// Command is the command or ack code.
	Command uint16

	// Checksum is the header checksum as carried on the wire.
	Checksum uint16

	// SessionID is the device-assigned session.
	SessionID uint16

	// ReplyID is the reply counter as carried on the wire.
	ReplyID uint16

	// Data is the command payload (may be empty).
	Data []byte
}

// IsAck reports whether the packet is one of the reply codes.
func (p *Packet) IsAck() bool {
	switch p.Command {
	case AckOK, AckError, AckData, AckUnauth:
		return true
	}
	return false
}

// OK reports whether the packet is a success reply (AckOK or AckData).
func (p *Packet) OK() bool {
	return p.Command == AckOK || p.Command == AckData
}

// Checksum computes the 16-bit ones'-complement checksum over a packet
// whose checksum field is zero.
func Checksum(p []byte) uint16 {
	sum := 0
	i := 0
	for ; i+1 < len(p); i += 2 {
		sum += int(binary.LittleEndian.Uint16(p[i:]))
		if sum > ushortMax {
			sum -= ushortMax
		}
	}
	if i < len(p) {
		sum += int(p[len(p)-1])
	}
	for sum > ushortMax {
		sum -= ushortMax
	}
	sum = ^sum
	for sum < 0 {
		sum += ushortMax
	}
	return uint16(sum)
}

// BuildCommand encodes a command packet for transmission. replyID is
// the counter value from the previous exchange: the checksum covers the
// packet with that value, while the encoded header carries the value
// advanced by one (folded at 65535). The device echoes the advanced
// value in its reply. Firmware rejects packets built any other way.
func BuildCommand(cmd, sessionID, replyID uint16, data []byte) []byte {
	buf := make([]byte, HeaderSize+len(data))
	binary.LittleEndian.PutUint16(buf[0:], cmd)
	binary.LittleEndian.PutUint16(buf[2:], 0)
	binary.LittleEndian.PutUint16(buf[4:], sessionID)
	binary.LittleEndian.PutUint16(buf[6:], replyID)
	copy(buf[HeaderSize:], data)

	checksum := Checksum(buf)

	next := int(replyID) + 1
	if next >= ushortMax {
		next -= ushortMax
	}

	binary.LittleEndian.PutUint16(buf[2:], checksum)
	binary.LittleEndian.PutUint16(buf[6:], uint16(next))
	return buf
}

// BuildReply encodes a reply packet the way devices do: the checksum
// covers the packet exactly as carried on the wire, with no reply
// counter advance. Replies built this way satisfy VerifyChecksum.
func BuildReply(cmd, sessionID, replyID uint16, data []byte) []byte {
	buf := make([]byte, HeaderSize+len(data))
	binary.LittleEndian.PutUint16(buf[0:], cmd)
	binary.LittleEndian.PutUint16(buf[2:], 0)
	binary.LittleEndian.PutUint16(buf[4:], sessionID)
	binary.LittleEndian.PutUint16(buf[6:], replyID)
	copy(buf[HeaderSize:], data)
	binary.LittleEndian.PutUint16(buf[2:], Checksum(buf))
	return buf
}

// ParsePacket decodes a frame payload into a Packet. The returned
// packet's Data aliases the input.
func ParsePacket(payload []byte) (Packet, error) {
	if len(payload) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrPacketTooShort, len(payload))
	}
	return Packet{
		Command:   binary.LittleEndian.Uint16(payload[0:]),
		Checksum:  binary.LittleEndian.Uint16(payload[2:]),
		SessionID: binary.LittleEndian.Uint16(payload[4:]),
		ReplyID:   binary.LittleEndian.Uint16(payload[6:]),
		Data:      payload[HeaderSize:],
	}, nil
}

// VerifyChecksum recomputes an inbound packet's checksum with the
// checksum field zeroed and compares it to the carried value. Command
// packets built by BuildCommand do not self-verify because of the
// reply counter asymmetry.
func VerifyChecksum(p Packet) bool {
	buf := make([]byte, HeaderSize+len(p.Data))
	binary.LittleEndian.PutUint16(buf[0:], p.Command)
	binary.LittleEndian.PutUint16(buf[2:], 0)
	binary.LittleEndian.PutUint16(buf[4:], p.SessionID)
	binary.LittleEndian.PutUint16(buf[6:], p.ReplyID)
	copy(buf[HeaderSize:], p.Data)
	return Checksum(buf) == p.Checksum
}
