package netdicom

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindUnwrapping(t *testing.T) {
	err := fmt.Errorf("sending request: %w", &TransportError{Op: "write", Err: io.ErrClosedPipe})
	te, ok := AsTransportError(err)
	assert.True(t, ok)
	assert.Equal(t, "write", te.Op)
	_, ok = AsProtocolError(err)
	assert.False(t, ok)

	err = fmt.Errorf("handshake: %w", &NegotiationError{Result: 1, Source: 2, Reason: 1, Err: fmt.Errorf("rejected")})
	ne, ok := AsNegotiationError(err)
	assert.True(t, ok)
	assert.Equal(t, byte(2), ne.Source)

	err = fmt.Errorf("awaiting response: %w", &TimeoutError{Kind: DIMSETimeoutKind})
	to, ok := AsTimeoutError(err)
	assert.True(t, ok)
	assert.Equal(t, DIMSETimeoutKind, to.Kind)
	assert.Contains(t, to.Error(), "DIMSE")

	ce, ok := AsCancelledError(fmt.Errorf("stream: %w", &CancelledError{MessageID: 7}))
	assert.True(t, ok)
	assert.Equal(t, uint16(7), ce.MessageID)
}
