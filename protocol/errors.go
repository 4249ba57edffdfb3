package protocol

import "fmt"

// IkeErrorCode is the typed error taxonomy from the design: each value
// names a class of failure an initiator session can hit, independent of
// whatever IKEv2 NotificationType (if any) caused it.
type IkeErrorCode uint16

const (
	ERR_MALFORMED_PACKET             IkeErrorCode = 1
	ERR_UNSUPPORTED_CRITICAL_PAYLOAD IkeErrorCode = 2
	ERR_INTEGRITY_CHECK_FAILED       IkeErrorCode = 3
	ERR_DECRYPTION_FAILED            IkeErrorCode = 4
	ERR_PROTOCOL_ERROR               IkeErrorCode = 5
	ERR_AUTHENTICATION_FAILED        IkeErrorCode = 6
	ERR_CONFIG_ERROR                 IkeErrorCode = 7

	// ERR_INVALID_MAJOR_VERSION is reported as a malformed packet: an
	// unsupported IKE version byte is a syntax-level rejection.
	ERR_INVALID_MAJOR_VERSION = ERR_MALFORMED_PACKET
)

func (e IkeErrorCode) String() string {
	switch e {
	case ERR_MALFORMED_PACKET:
		return "MALFORMED_PACKET"
	case ERR_UNSUPPORTED_CRITICAL_PAYLOAD:
		return "UNSUPPORTED_CRITICAL_PAYLOAD"
	case ERR_INTEGRITY_CHECK_FAILED:
		return "INTEGRITY_CHECK_FAILED"
	case ERR_DECRYPTION_FAILED:
		return "DECRYPTION_FAILED"
	case ERR_PROTOCOL_ERROR:
		return "PROTOCOL_ERROR"
	case ERR_AUTHENTICATION_FAILED:
		return "AUTHENTICATION_FAILED"
	case ERR_CONFIG_ERROR:
		return "CONFIG_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// IkeError pairs a taxonomy code with a human message; never include
// key material in Message.
type IkeError struct {
	Code    IkeErrorCode
	Message string
}

func (e IkeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code.String()
}

func ErrF(code IkeErrorCode, format string, a ...interface{}) IkeError {
	return IkeError{Code: code, Message: fmt.Sprintf(format, a...)}
}

func ErrSyntax(format string, a ...interface{}) IkeError {
	return ErrF(ERR_MALFORMED_PACKET, format, a...)
}

// NotificationType is the IKEv2 Notify message-type space. Values below
// 2^14 are errors (RFC 7296 §3.10.1); above are informational/status.
type NotificationType uint16

const (
	UNSUPPORTED_CRITICAL_PAYLOAD NotificationType = 1
	INVALID_IKE_SPI              NotificationType = 4
	INVALID_MAJOR_VERSION        NotificationType = 5
	INVALID_SYNTAX               NotificationType = 7
	INVALID_MESSAGE_ID           NotificationType = 9
	INVALID_SPI                  NotificationType = 11
	NO_PROPOSAL_CHOSEN           NotificationType = 14
	INVALID_KE_PAYLOAD           NotificationType = 17
	AUTHENTICATION_FAILED        NotificationType = 24
	SINGLE_PAIR_REQUIRED         NotificationType = 34
	NO_ADDITIONAL_SAS            NotificationType = 35
	INTERNAL_ADDRESS_FAILURE     NotificationType = 36
	FAILED_CP_REQUIRED           NotificationType = 37
	TS_UNACCEPTABLE              NotificationType = 38
	INVALID_SELECTORS            NotificationType = 39
	TEMPORARY_FAILURE            NotificationType = 43
	CHILD_SA_NOT_FOUND           NotificationType = 44

	INITIAL_CONTACT              NotificationType = 16384
	SET_WINDOW_SIZE              NotificationType = 16385
	ADDITIONAL_TS_POSSIBLE       NotificationType = 16386
	NAT_DETECTION_SOURCE_IP      NotificationType = 16388
	NAT_DETECTION_DESTINATION_IP NotificationType = 16389
	COOKIE                       NotificationType = 16390
)

// IsError reports whether a Notify message-type (< 2^14) signals a
// protocol error rather than informational status.
func (n NotificationType) IsError() bool { return n < 1<<14 }

// NotifyError wraps a peer-surfaced error Notify; its Type carries the
// NotificationType verbatim so callers can branch on it.
type NotifyError struct {
	Type NotificationType
}

func (e NotifyError) Error() string {
	return fmt.Sprintf("peer returned notify error %d (%s)", uint16(e.Type), e.Type)
}

func (n NotificationType) String() string {
	switch n {
	case NO_PROPOSAL_CHOSEN:
		return "NO_PROPOSAL_CHOSEN"
	case INVALID_KE_PAYLOAD:
		return "INVALID_KE_PAYLOAD"
	case AUTHENTICATION_FAILED:
		return "AUTHENTICATION_FAILED"
	case INVALID_SYNTAX:
		return "INVALID_SYNTAX"
	case INVALID_MESSAGE_ID:
		return "INVALID_MESSAGE_ID"
	case INVALID_SPI:
		return "INVALID_SPI"
	case UNSUPPORTED_CRITICAL_PAYLOAD:
		return "UNSUPPORTED_CRITICAL_PAYLOAD"
	case COOKIE:
		return "COOKIE"
	default:
		return fmt.Sprintf("type-%d", uint16(n))
	}
}
