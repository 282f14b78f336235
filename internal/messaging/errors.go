package messaging

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// Reason is the kind of communication breakdown
type Reason string

const (
	// ReasonNoReceiver means nothing is listening on the other end
	ReasonNoReceiver Reason = "no-receiver"
	// ReasonContextInvalidated means the receiver went away mid-flight
	ReasonContextInvalidated Reason = "context-invalidated"
)

// Messages used by the privileged context and matched by IsCommunicationError
const (
	MsgNoReceiver         = "Could not establish connection. Receiving end does not exist."
	MsgPortClosed         = "The message port closed before a response was received."
	MsgContextInvalidated = "Extension context invalidated."
)

var communicationPatterns = []string{
	"Receiving end does not exist",
	"message port closed",
	"Extension context invalidated",
}

// CommunicationError reports that a message never got a proper answer
// because the channel to the privileged context broke down
type CommunicationError struct {
	Reason Reason
	Err    error
}

func (e *CommunicationError) Error() string {
	msg := MsgContextInvalidated
	if e.Reason == ReasonNoReceiver {
		msg = MsgNoReceiver
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%v)", msg, e.Err)
	}
	return msg
}

func (e *CommunicationError) Unwrap() error { return e.Err }

// RemoteError is an explicit failure reported by the privileged context
type RemoteError struct {
	Type    MessageType
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// IsCommunicationError reports whether err is a communication breakdown
// that a page-local retry can recover from. Failures reported by the
// privileged context itself, such as fetch or decode errors, are not.
func IsCommunicationError(err error) bool {
	if err == nil {
		return false
	}
	var commErr *CommunicationError
	if errors.As(err, &commErr) {
		return true
	}
	return matchesCommunicationPattern(err.Error())
}

func matchesCommunicationPattern(msg string) bool {
	for _, p := range communicationPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// classifyTransportError maps a failed round trip onto a CommunicationError
// when it indicates a missing or vanished receiver. Other errors, including
// deadlines, are returned unchanged.
func classifyTransportError(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &CommunicationError{Reason: ReasonNoReceiver, Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &CommunicationError{Reason: ReasonNoReceiver, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return err
		}
		if opErr.Op == "dial" {
			return &CommunicationError{Reason: ReasonNoReceiver, Err: err}
		}
		return &CommunicationError{Reason: ReasonContextInvalidated, Err: err}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return &CommunicationError{Reason: ReasonContextInvalidated, Err: err}
	}
	return err
}
