package netdicom

// Transport provides the bidirectional byte stream the PDU codec and UL
// state machine run over. It is a thin wrapper around net.Conn that adds: a
// single optional TLS upgrade applied before any PDU traffic, a
// configurable read deadline whose expiry is reported distinctly from EOF
// (so the state machine can treat it as a timer expiry rather than "peer
// closed"), and half-close where the underlying conn supports it. It has no
// knowledge of PDUs; it only moves bytes. Kept as its own type so the
// TLS-wrap and timeout concerns aren't duplicated at every
// net.Dial/listener.Accept call site.
import (
	"errors"
	"net"
	"time"
)

// ErrReadTimeout is returned by Transport.Read when the configured network
// read deadline expires. Callers distinguish it from io.EOF to tell a
// timed-out read apart from an orderly peer close.
var ErrReadTimeout = errors.New("netdicom: transport read timeout")

// halfCloser is implemented by *net.TCPConn and similar stream types that
// support closing only the write half.
type halfCloser interface {
	CloseWrite() error
}

// Transport wraps one net.Conn for the duration of an association.
type Transport struct {
	conn           net.Conn
	networkTimeout time.Duration
}

// dialTransport opens a TCP connection to hostPort and applies wrap (if
// non-nil) before returning, so the TLS handshake happens before any PDU is
// sent.
func dialTransport(hostPort string, wrap TLSWrapFunc, networkTimeout time.Duration) (*Transport, error) {
	conn, err := net.Dial("tcp", hostPort)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	return wrapTransport(conn, wrap, networkTimeout)
}

// wrapTransport applies the optional TLS wrap to an already-open net.Conn
// (accepted or dialed) and returns the Transport that owns it.
func wrapTransport(conn net.Conn, wrap TLSWrapFunc, networkTimeout time.Duration) (*Transport, error) {
	if wrap != nil {
		wrapped, err := wrap(conn)
		if err != nil {
			conn.Close()
			return nil, &TransportError{Op: "tls-wrap", Err: err}
		}
		conn = wrapped
	}
	if networkTimeout <= 0 {
		networkTimeout = DefaultNetworkTimeout
	}
	return &Transport{conn: conn, networkTimeout: networkTimeout}, nil
}

// Read blocks until some bytes are available (possibly fewer than len(p)),
// the deadline expires, or the connection errors/closes. It returns ErrReadTimeout (not the net
// package's os.ErrDeadlineExceeded) on expiry, so callers can use a plain
// equality/errors.Is check.
func (t *Transport) Read(p []byte) (int, error) {
	if t.networkTimeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(t.networkTimeout))
	}
	n, err := t.conn.Read(p)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, ErrReadTimeout
		}
	}
	return n, err
}

// Write writes p in full or returns an error; it never partially succeeds
// from the caller's point of view.
func (t *Transport) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

// CloseWrite half-closes the connection's write side, if the underlying
// conn supports it (PS3.8 release sequencing does not require this, but
// some peers expect it on abrupt teardown). It is a no-op otherwise.
func (t *Transport) CloseWrite() error {
	if hc, ok := t.conn.(halfCloser); ok {
		return hc.CloseWrite()
	}
	return nil
}

// Close hard-closes the connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}

func (t *Transport) LocalAddr() net.Addr  { return t.conn.LocalAddr() }
func (t *Transport) RemoteAddr() net.Addr { return t.conn.RemoteAddr() }
