package zkproto

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// UserRecordSize is the size of one user table entry on current
// firmware generations.
const UserRecordSize = 72

// User privilege levels.
const (
	// PrivilegeUser is a regular user.
	PrivilegeUser byte = 0

	// PrivilegeAdmin may operate the scanner menu.
	PrivilegeAdmin byte = 14
)

// UserRecord is one entry of the device user table.
//
// The 72-byte wire layout: uid u16, privilege u8, password [8]byte,
// name [24]byte, card u32, one pad byte, group [7]byte, one pad byte,
// user id [24]byte. Strings are NUL-padded.
type UserRecord struct {
	UID       uint16
	Privilege byte
	Password  string
	Name      string
	Card      uint32
	Group     string
	UserID    string
}

// EncodeUser encodes a user record into its 72-byte wire form.
// Over-long strings are silently clipped to their field width.
func EncodeUser(u UserRecord) []byte {
	buf := make([]byte, UserRecordSize)
	binary.LittleEndian.PutUint16(buf[0:], u.UID)
	buf[2] = u.Privilege
	putPadded(buf[3:11], u.Password)
	putPadded(buf[11:35], u.Name)
	binary.LittleEndian.PutUint32(buf[35:], u.Card)
	putPadded(buf[40:47], u.Group)
	putPadded(buf[48:72], u.UserID)
	return buf
}

// DecodeUser decodes one 72-byte user table entry.
func DecodeUser(data []byte) (UserRecord, error) {
	if len(data) < UserRecordSize {
		return UserRecord{}, fmt.Errorf("%w: user record is %d bytes", ErrPacketTooShort, len(data))
	}
	return UserRecord{
		UID:       binary.LittleEndian.Uint16(data[0:]),
		Privilege: data[2],
		Password:  trimPadded(data[3:11]),
		Name:      trimPadded(data[11:35]),
		Card:      binary.LittleEndian.Uint32(data[35:]),
		Group:     trimPadded(data[40:47]),
		UserID:    trimPadded(data[48:72]),
	}, nil
}

// DecodeUserTable decodes a bulk user table read into records.
// A trailing partial record is ignored, matching firmware behavior of
// zero-padding the final transfer chunk.
func DecodeUserTable(data []byte) ([]UserRecord, error) {
	users := make([]UserRecord, 0, len(data)/UserRecordSize)
	for len(data) >= UserRecordSize {
		u, err := DecodeUser(data[:UserRecordSize])
		if err != nil {
			return nil, err
		}
		// Zero-filled tail entries are padding, not users.
		if u.UID != 0 {
			users = append(users, u)
		}
		data = data[UserRecordSize:]
	}
	return users, nil
}

func putPadded(dst []byte, s string) {
	copy(dst, s)
}

func trimPadded(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
