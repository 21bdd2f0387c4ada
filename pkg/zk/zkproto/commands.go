package zkproto

import "strconv"

// Command codes.
const (
	// CmdConnect opens a session.
	CmdConnect uint16 = 1000

	// CmdExit closes a session.
	CmdExit uint16 = 1001

	// CmdEnableDevice re-enables the scanner UI after privileged work.
	CmdEnableDevice uint16 = 1002

	// CmdDisableDevice locks the scanner UI during privileged work.
	CmdDisableDevice uint16 = 1003

	// CmdRestart reboots the scanner.
	CmdRestart uint16 = 1004

	// CmdRefreshData commits pending user table writes to flash.
	CmdRefreshData uint16 = 1013

	// CmdAuth answers an AckUnauth challenge with a comm key digest.
	CmdAuth uint16 = 1102

	// CmdPrepareData announces a bulk transfer of the given size.
	CmdPrepareData uint16 = 1500

	// CmdData carries one chunk of a bulk transfer.
	CmdData uint16 = 1501

	// CmdFreeData releases the device-side transfer buffer.
	CmdFreeData uint16 = 1502

	// CmdDBRrq bulk-reads one device table selected by an Fct code.
	CmdDBRrq uint16 = 7

	// CmdUserWrq writes a user record.
	CmdUserWrq uint16 = 8

	// CmdUserTempRrq bulk-reads all fingerprint templates.
	CmdUserTempRrq uint16 = 9

	// CmdGetUserTemp reads one user's fingerprint template.
	CmdGetUserTemp uint16 = 88

	// CmdDeleteUser removes a user and their templates.
	CmdDeleteUser uint16 = 18

	// CmdDeleteUserTemp removes a single fingerprint template.
	CmdDeleteUserTemp uint16 = 19

	// CmdGetFreeSizes reads record capacity counters.
	CmdGetFreeSizes uint16 = 50

	// CmdStartVerify returns the scanner to identification mode.
	CmdStartVerify uint16 = 60

	// CmdStartEnroll begins an interactive enrollment on the scanner.
	CmdStartEnroll uint16 = 61

	// CmdCancelCapture aborts an in-progress enrollment or capture.
	CmdCancelCapture uint16 = 62

	// CmdRegEvent subscribes to realtime event pushes.
	CmdRegEvent uint16 = 500

	// CmdDeviceVersion reads the firmware version string.
	CmdDeviceVersion uint16 = 1100
)

// Reply codes.
const (
	// AckOK reports success.
	AckOK uint16 = 2000

	// AckError reports failure.
	AckError uint16 = 2001

	// AckData reports success with inline data.
	AckData uint16 = 2002

	// AckUnauth demands CmdAuth before the session proceeds.
	AckUnauth uint16 = 2005
)

// Realtime event flags for CmdRegEvent.
const (
	// EventAttLog is pushed on every successful fingerprint match.
	EventAttLog uint16 = 1

	// EventFingerPress is pushed when a finger touches the sensor.
	EventFingerPress uint16 = 2

	// EventEnrollFinger is pushed as enrollment stages complete.
	EventEnrollFinger uint16 = 8
)

// Table codes for CmdDBRrq.
const (
	// FctAttLog selects the attendance log table.
	FctAttLog byte = 1

	// FctFingerTmp selects the fingerprint template table.
	FctFingerTmp byte = 2

	// FctUser selects the user table.
	FctUser byte = 5
)

// commandNames maps codes to their conventional short names.
var commandNames = map[uint16]string{
	CmdConnect:        "CONNECT",
	CmdExit:           "EXIT",
	CmdEnableDevice:   "ENABLE_DEVICE",
	CmdDisableDevice:  "DISABLE_DEVICE",
	CmdRestart:        "RESTART",
	CmdRefreshData:    "REFRESH_DATA",
	CmdAuth:           "AUTH",
	CmdPrepareData:    "PREPARE_DATA",
	CmdData:           "DATA",
	CmdFreeData:       "FREE_DATA",
	CmdDBRrq:          "DB_RRQ",
	CmdUserWrq:        "USER_WRQ",
	CmdUserTempRrq:    "USER_TEMP_RRQ",
	CmdGetUserTemp:    "GET_USER_TEMP",
	CmdDeleteUser:     "DELETE_USER",
	CmdDeleteUserTemp: "DELETE_USER_TEMP",
	CmdGetFreeSizes:   "GET_FREE_SIZES",
	CmdStartVerify:    "START_VERIFY",
	CmdStartEnroll:    "START_ENROLL",
	CmdCancelCapture:  "CANCEL_CAPTURE",
	CmdRegEvent:       "REG_EVENT",
	CmdDeviceVersion:  "DEVICE_VERSION",
	AckOK:             "ACK_OK",
	AckError:          "ACK_ERROR",
	AckData:           "ACK_DATA",
	AckUnauth:         "ACK_UNAUTH",
}

// CommandName returns the conventional name for a command or ack code,
// or "CMD_<n>" for codes outside the known set.
func CommandName(code uint16) string {
	if name, ok := commandNames[code]; ok {
		return name
	}
	return "CMD_" + strconv.Itoa(int(code))
}
