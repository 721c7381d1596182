package netdicom

// Tagged error kinds for the failure categories of PS3.8/PS3.7 error
// handling: transport, protocol, negotiation, timeout, and cancellation.
// ServiceError is a sixth kind for status-carrying DIMSE responses. One
// small struct per kind, so callers can errors.As to the kind they care
// about instead of string-matching. TransportError, ProtocolError and
// NegotiationError wrap an underlying cause; TimeoutError, CancelledError
// and ServiceError carry no cause.

import (
	"errors"
	"fmt"
)

// TransportError wraps a read/write failure or unexpected EOF on the
// underlying stream. It always triggers A-ABORT with provider source and
// reason "transport error".
type TransportError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("netdicom: transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError covers PDU decode failures, PDUs arriving in a state that
// forbids them, malformed PDVs, and fragmentation-rule violations. It maps
// to an A-ABORT with provider reason "unexpected PDU" or "invalid PDU
// parameter" (Reason, below).
type ProtocolError struct {
	Reason byte // pdu.AbortReason*
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("netdicom: protocol error (reason %d): %v", e.Reason, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NegotiationError is an ACSE-level failure during A-ASSOCIATE: application
// context mismatch or no acceptable presentation context. It is surfaced as
// A-ASSOCIATE-RJ with the carried source/result/reason; it never triggers an
// abort.
type NegotiationError struct {
	Result byte // pdu.A_ASSOCIATE_RJ.Result
	Source byte // pdu.A_ASSOCIATE_RJ.Source
	Reason byte // pdu.A_ASSOCIATE_RJ.Reason
	Err    error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("netdicom: negotiation rejected (result=%d source=%d reason=%d): %v",
		e.Result, e.Source, e.Reason, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// TimeoutKind distinguishes which of the independently-checked timeouts
// expired.
type TimeoutKind int

const (
	ACSETimeoutKind TimeoutKind = iota
	DIMSETimeoutKind
	NetworkTimeoutKind
	ARTIMTimeoutKind
)

func (k TimeoutKind) String() string {
	switch k {
	case ACSETimeoutKind:
		return "ACSE"
	case DIMSETimeoutKind:
		return "DIMSE"
	case NetworkTimeoutKind:
		return "network"
	case ARTIMTimeoutKind:
		return "ARTIM"
	default:
		return "unknown"
	}
}

// TimeoutError reports that one of the ACSE/DIMSE/network/ARTIM timers
// expired. ACSE and network expiry trigger A-ABORT (reason unspecified);
// DIMSE expiry fails the pending request and aborts the association.
type TimeoutError struct {
	Kind TimeoutKind
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("netdicom: %s timeout expired", e.Kind)
}

// CancelledError reports that an operation's final response carried a
// Cancel status (0xFE00), as the acceptor sends after a C-CANCEL-RQ for the
// message. ServiceUser.CFind, CMove and CGet return it to the caller in that
// case. The acceptor side does not produce it (its handlers put
// dimse.StatusCancel in the final response), and ServiceUser.Abort does not
// fail pending operations with it.
type CancelledError struct {
	MessageID uint16
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("netdicom: operation %d cancelled", e.MessageID)
}

// ServiceError carries a DIMSE response Status that categorizes as Warning,
// Failure, or Unknown (Success/Pending/Cancel are not errors). It lets
// callers that want a plain `error` from a DIMSE operation (CEcho, CStore)
// get one without inspecting the Status field themselves.
type ServiceError struct {
	Status  uint16
	Comment string
}

func (e *ServiceError) Error() string {
	if e.Comment != "" {
		return fmt.Sprintf("netdicom: service error, status=0x%04x: %s", e.Status, e.Comment)
	}
	return fmt.Sprintf("netdicom: service error, status=0x%04x", e.Status)
}

// As* helpers let callers check the kind without importing "errors" at
// every call site.

func AsTransportError(err error) (*TransportError, bool) {
	var e *TransportError
	return e, errors.As(err, &e)
}

func AsProtocolError(err error) (*ProtocolError, bool) {
	var e *ProtocolError
	return e, errors.As(err, &e)
}

func AsNegotiationError(err error) (*NegotiationError, bool) {
	var e *NegotiationError
	return e, errors.As(err, &e)
}

func AsTimeoutError(err error) (*TimeoutError, bool) {
	var e *TimeoutError
	return e, errors.As(err, &e)
}

func AsCancelledError(err error) (*CancelledError, bool) {
	var e *CancelledError
	return e, errors.As(err, &e)
}
