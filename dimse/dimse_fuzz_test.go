package dimse_test

import (
	"encoding/binary"
	"testing"

	"github.com/dcmweld/netdicom/dimse"
	"github.com/yasushi-saito/go-dicom/dicomio"
)

// FuzzDecodeDIMSEMessage exercises ReadMessage against arbitrary byte
// streams. The only property under test is that malformed input never
// panics; ReadMessage returning nil or d.Finish() returning an error are
// both expected outcomes for fuzzed bytes.
func FuzzDecodeDIMSEMessage(f *testing.F) {
	seed := func(v dimse.Message) []byte {
		e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ImplicitVR)
		dimse.EncodeMessage(e, v)
		return e.Bytes()
	}
	f.Add(seed(&dimse.C_ECHO_RQ{MessageID: 1, CommandDataSetType: dimse.CommandDataSetTypeNull}))
	f.Add(seed(&dimse.C_STORE_RQ{
		AffectedSOPClassUID:                  "1.2.3",
		MessageID:                            0x1234,
		Priority:                             0,
		CommandDataSetType:                   1,
		AffectedSOPInstanceUID:               "3.4.5",
		MoveOriginatorApplicationEntityTitle: "foohah",
		MoveOriginatorMessageID:              0x3456,
	}))
	f.Add(seed(&dimse.C_CANCEL_RQ{MessageIDBeingRespondedTo: 0x1234}))
	f.Add([]byte{})
	f.Add([]byte{0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("ReadMessage panicked on %x: %v", data, r)
			}
		}()
		d := dicomio.NewBytesDecoder(data, binary.LittleEndian, dicomio.ImplicitVR)
		v := dimse.ReadMessage(d)
		_ = d.Finish()
		if v != nil {
			_ = v.String()
		}
	})
}
