// Package at holds the wire vocabulary shared by the AT-style peripherals
// (cellular modems, Bluetooth modules) and the NMEA receivers: line
// terminators, final result codes, link markers and sentence tags.
package at

const (
	// Terminal Control
	CR     = "\r"
	CRLF   = "\r\n"
	Prompt = "> "

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	SendOK     = "SEND OK"
	SendFail   = "SEND FAIL"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"

	// URCs (Unsolicited Result Codes)
	UrcNewMsg        = "+CMTI:"
	UrcMessageReport = "+CDSI:"
	UrcCall          = "RING"

	// Bluetooth link markers (RYB080I)
	PeerConnected    = "+++++"
	PeerDisconnected = "-----"
	NoPeers          = "CONNECT=0,0"

	// NMEA sentence tags
	TagGNGGA = "$GNGGA"
	TagGGA   = "GGA"
)

// Common commands
const (
	CmdAt          = "AT"
	CmdEchoOff     = "ATE0"
	CmdInfo        = "ATI"
	CmdFullFunc    = "AT+CFUN=1"
	CmdRegStatus   = "AT+CREG?"
	CmdSignal      = "AT+CSQ"
	CmdSimStatus   = "AT+CPIN?"
	CmdOperator    = "AT+COPS?"
	CmdVerboseErrs = "AT+CMEE=2"
)

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+CSQ: ...)
	TypePrompt                     // SMS input prompt
)
