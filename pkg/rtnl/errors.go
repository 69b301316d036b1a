package rtnl

import (
	"errors"
	"fmt"
)

// ErrMalformedMessage indicates a truncated header or attribute data that
// violates the protocol (for example an address of the wrong length).
var ErrMalformedMessage = errors.New("malformed rtnetlink message")

// UnhandledMessageError reports a message type the decoder does not handle.
// The raw payload is kept for diagnostics.
type UnhandledMessageError struct {
	Type    uint16
	Payload []byte
}

func (e *UnhandledMessageError) Error() string {
	return fmt.Sprintf("unhandled rtnetlink message type %d (%d bytes)", e.Type, len(e.Payload))
}

// UnknownInterfaceError reports an address message for an index that was
// never announced by a link message.
type UnknownInterfaceError struct {
	Index   uint32
	MsgType uint16
}

func (e *UnknownInterfaceError) Error() string {
	return fmt.Sprintf("address message type %d for unknown interface index %d", e.MsgType, e.Index)
}

// ErrorKind classifies a decode error for metrics labels.
func ErrorKind(err error) string {
	var (
		unhandled *UnhandledMessageError
		unknown   *UnknownInterfaceError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &unhandled):
		return "unhandled"
	case errors.As(err, &unknown):
		return "unknown_interface"
	case errors.Is(err, ErrMalformedMessage):
		return "malformed"
	default:
		return "other"
	}
}
