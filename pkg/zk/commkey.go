package zk

import (
	"encoding/binary"
)

// commKeyTicks is the obfuscation byte mixed into the digest. Firmware
// accepts any value as long as byte 2 carries it verbatim.
const commKeyTicks byte = 50

// makeCommKey derives the CmdAuth payload from the configured comm key
// and the session id the device assigned during connect. The scheme is
// the firmware's own: reverse the key's 32 bits, add the session id,
// XOR with "ZKSO", swap the 16-bit halves, then mix in the ticks byte.
func makeCommKey(key uint32, sessionID uint16) []byte {
	var k uint32
	for i := 0; i < 32; i++ {
		k <<= 1
		if key&(1<<uint(i)) != 0 {
			k |= 1
		}
	}
	k += uint32(sessionID)

	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], k)
	b[0] ^= 'Z'
	b[1] ^= 'K'
	b[2] ^= 'S'
	b[3] ^= 'O'

	b[0], b[1], b[2], b[3] = b[2], b[3], b[0], b[1]

	b[0] ^= commKeyTicks
	b[1] ^= commKeyTicks
	b[2] = commKeyTicks
	b[3] ^= commKeyTicks
	return b[:]
}
