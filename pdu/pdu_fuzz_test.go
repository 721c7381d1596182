package pdu_test

import (
	"bytes"
	"testing"

	"github.com/dcmweld/netdicom/pdu"
)

// FuzzDecodePDU exercises ReadPDU against arbitrary byte streams. ReadPDU
// returning an error is an expected outcome for fuzzed input; a panic is
// not.
func FuzzDecodePDU(f *testing.F) {
	seed := func(p pdu.PDU) []byte {
		b, err := pdu.EncodePDU(p)
		if err != nil {
			f.Fatalf("seed encode failed: %v", err)
		}
		return b
	}
	f.Add(seed(&pdu.A_ABORT{Source: 0, Reason: 0}))
	f.Add(seed(&pdu.A_RELEASE_RQ{}))
	f.Add(seed(&pdu.A_RELEASE_RP{}))
	f.Add([]byte{})
	f.Add([]byte{byte(pdu.PDUTypeA_ABORT), 0, 0, 0, 0, 2, 0, 0, 1, 1})

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("ReadPDU panicked on %x: %v", data, r)
			}
		}()
		p, err := pdu.ReadPDU(bytes.NewReader(data), 4<<20)
		if err == nil && p != nil {
			_ = p.String()
		}
	})
}
