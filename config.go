package netdicom

// Config gathers the behavioural knobs for one association side (maximum
// PDU length, timeouts, TLS wrap) into an explicit struct threaded through
// NewServiceUser/NewServiceProvider. Nothing in this package reads a tunable
// from a package-level variable; every knob lives here.

import (
	"fmt"
	"net"
	"time"
)

// Default timeouts. Each bounds a different phase of the association
// lifecycle and is checked independently.
const (
	DefaultACSETimeout    = 30 * time.Second
	DefaultDIMSETimeout   = 30 * time.Second
	DefaultNetworkTimeout = 60 * time.Second
	DefaultARTIMTimeout   = 30 * time.Second
)

// minFragmentPDUSize is the smallest MaxPDUSize this module will honor: 6
// bytes of PDV-item overhead plus at least 1 payload byte. Values in [1,6]
// are configuration errors.
const minFragmentPDUSize = 7

// TLSWrapFunc is the extension point by which an embedder upgrades a raw
// net.Conn to TLS (or any other stream wrapper) before any PDU traffic
// begins. This package never chooses TLS policy itself.
type TLSWrapFunc func(net.Conn) (net.Conn, error)

// Config carries every behavioural knob for one association side. It is
// passed explicitly to NewServiceUser/NewServiceProvider; no field here is
// ever read from a package-level variable.
type Config struct {
	// MaxPDUSize is the maximum PDU length this side advertises it is
	// willing to receive. A zero value is replaced by DefaultMaxPDUSize in
	// withDefaults, so this side never advertises the unlimited (0) length
	// of PS3.8 Annex D.1; any other value must be >= minFragmentPDUSize.
	MaxPDUSize int

	// ACSETimeout bounds A-ASSOCIATE and A-RELEASE round trips.
	ACSETimeout time.Duration
	// DIMSETimeout bounds the wait between sending a DIMSE request and
	// receiving its first response PDV.
	DIMSETimeout time.Duration
	// NetworkTimeout bounds any single blocking read from the transport.
	NetworkTimeout time.Duration
	// ARTIMTimeout bounds Sta2 (awaiting A-ASSOCIATE-RQ) and Sta13
	// (awaiting transport close).
	ARTIMTimeout time.Duration

	// TLSWrap, if non-nil, is applied to the raw net.Conn exactly once,
	// before any PDU traffic, on both the requestor and acceptor sides.
	TLSWrap TLSWrapFunc

	// AllowNonConformantUIDs defaults to false and is copied by
	// withDefaults, but nothing in this package reads it: no UID validation
	// is performed, so UIDs from peers are accepted as sent whatever its
	// value.
	AllowNonConformantUIDs bool
}

// DefaultConfig returns a Config with every timeout and size at its
// documented default and strict UID validation.
func DefaultConfig() Config {
	return Config{
		MaxPDUSize:             DefaultMaxPDUSize,
		ACSETimeout:            DefaultACSETimeout,
		DIMSETimeout:           DefaultDIMSETimeout,
		NetworkTimeout:         DefaultNetworkTimeout,
		ARTIMTimeout:           DefaultARTIMTimeout,
		AllowNonConformantUIDs: false,
	}
}

// Validate rejects configurations the protocol machinery cannot safely run
// with. A MaxPDUSize in [1, minFragmentPDUSize) can never fit even one
// payload byte per PDV and is refused here rather than deep inside the
// fragmenter.
func (c Config) Validate() error {
	if c.MaxPDUSize != 0 && c.MaxPDUSize < minFragmentPDUSize {
		return fmt.Errorf("netdicom: MaxPDUSize %d is below the minimum fragment size %d", c.MaxPDUSize, minFragmentPDUSize)
	}
	if c.ACSETimeout <= 0 || c.DIMSETimeout <= 0 || c.NetworkTimeout <= 0 || c.ARTIMTimeout <= 0 {
		return fmt.Errorf("netdicom: all Config timeouts must be positive")
	}
	return nil
}

// withDefaults fills zero-valued fields with DefaultConfig's values. It lets
// callers pass a partially-populated Config (e.g. just TLSWrap) without
// having to spell out every timeout.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxPDUSize != 0 {
		d.MaxPDUSize = c.MaxPDUSize
	}
	if c.ACSETimeout != 0 {
		d.ACSETimeout = c.ACSETimeout
	}
	if c.DIMSETimeout != 0 {
		d.DIMSETimeout = c.DIMSETimeout
	}
	if c.NetworkTimeout != 0 {
		d.NetworkTimeout = c.NetworkTimeout
	}
	if c.ARTIMTimeout != 0 {
		d.ARTIMTimeout = c.ARTIMTimeout
	}
	d.TLSWrap = c.TLSWrap
	d.AllowNonConformantUIDs = c.AllowNonConformantUIDs
	return d
}
