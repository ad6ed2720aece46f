package protocol

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the client can report. A Kind is itself an
// error so callers can match with errors.Is(err, protocol.KindNetwork).
type Kind uint8

const (
	KindConnect Kind = iota + 1
	KindDataParse
	KindInvalidPassword
	KindDaemon
	KindNull
	KindNetwork
	KindStatus
	KindAuth
	KindInvalidURL
	KindAlreadyAttached
)

// DefaultStatusCode is reported when a status element carries no parsable integer.
const DefaultStatusCode = 9999

var kindNames = map[Kind]string{
	KindConnect:         "connect",
	KindDataParse:       "data parse",
	KindInvalidPassword: "invalid password",
	KindDaemon:          "daemon",
	KindNull:            "null",
	KindNetwork:         "network",
	KindStatus:          "status",
	KindAuth:            "auth",
	KindInvalidURL:      "invalid url",
	KindAlreadyAttached: "already attached",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) Error() string {
	return "boinc: " + k.String() + " error"
}

// Error is the single error value surfaced by the client.
type Error struct {
	Kind    Kind
	Message string
	// Status is set for KindStatus only.
	Status int
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("boinc: status error: %d", e.Status)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("boinc: %s error: %s: %v", e.Kind.String(), e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("boinc: %s error: %s", e.Kind.String(), e.Message)
	case e.Err != nil:
		return fmt.Sprintf("boinc: %s error: %v", e.Kind.String(), e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func ConnectError(err error) *Error { return newError(KindConnect, "", err) }

func DataParseError(msg string) *Error { return newError(KindDataParse, msg, nil) }

func DataParseErrorf(err error, format string, args ...any) *Error {
	return newError(KindDataParse, fmt.Sprintf(format, args...), err)
}

func InvalidPasswordError(msg string) *Error { return newError(KindInvalidPassword, msg, nil) }

func DaemonError(msg string) *Error { return newError(KindDaemon, msg, nil) }

func NullError(msg string) *Error { return newError(KindNull, msg, nil) }

func NetworkError(err error) *Error { return newError(KindNetwork, "", err) }

func NetworkErrorMessage(msg string) *Error { return newError(KindNetwork, msg, nil) }

func StatusError(code int) *Error { return &Error{Kind: KindStatus, Status: code} }

func AuthError(msg string) *Error { return newError(KindAuth, msg, nil) }

func InvalidURLError(msg string) *Error { return newError(KindInvalidURL, msg, nil) }

func AlreadyAttachedError(msg string) *Error { return newError(KindAlreadyAttached, msg, nil) }

// KindOf returns the taxonomy kind of err, or 0 when err is not a protocol error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

// IsNetworkClass reports whether err means the connection can no longer be
// trusted. Only these errors invalidate a session and are retried.
func IsNetworkClass(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindConnect:
		return true
	default:
		return false
	}
}
