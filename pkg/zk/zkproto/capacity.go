package zkproto

import (
	"encoding/binary"
	"fmt"
)

// Capacity reports record usage read via CmdGetFreeSizes.
type Capacity struct {
	Users      int
	Fingers    int
	Records    int
	UsersCap   int
	FingersCap int
	RecordsCap int
}

// capacityWords is the number of 32-bit counters in the reply.
const capacityWords = 20

// DecodeCapacity decodes a CmdGetFreeSizes reply. The reply is twenty
// little-endian int32 counters; only a fixed subset is meaningful.
func DecodeCapacity(data []byte) (Capacity, error) {
	if len(data) < capacityWords*4 {
		return Capacity{}, fmt.Errorf("%w: capacity reply is %d bytes", ErrPacketTooShort, len(data))
	}
	word := func(i int) int {
		return int(int32(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return Capacity{
		Users:      word(4),
		Fingers:    word(6),
		Records:    word(8),
		FingersCap: word(14),
		UsersCap:   word(15),
		RecordsCap: word(16),
	}, nil
}
