package pdu_test

import (
	"bytes"
	"testing"

	"github.com/dcmweld/netdicom/pdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPDURoundTrip encodes a PDU, decodes it back, and checks the two values
// are structurally identical.
func testPDURoundTrip(t *testing.T, v pdu.PDU) pdu.PDU {
	data, err := pdu.EncodePDU(v)
	require.NoError(t, err)
	v2, err := pdu.ReadPDU(bytes.NewReader(data), 4<<20)
	require.NoError(t, err)
	assert.Equal(t, v, v2)
	return v2
}

func TestAAssociateRQRoundTrip(t *testing.T) {
	testPDURoundTrip(t, &pdu.A_ASSOCIATE{
		Type:            pdu.PDUTypeA_ASSOCIATE_RQ,
		ProtocolVersion: pdu.CurrentProtocolVersion,
		CalledAETitle:   "TESTSCP         ",
		CallingAETitle:  "TESTSCU         ",
		Items: []pdu.SubItem{
			&pdu.ApplicationContextItem{Name: pdu.DICOMApplicationContextItemName},
			&pdu.PresentationContextItem{
				Type:      pdu.ItemTypePresentationContextRequest,
				ContextID: 1,
				Items: []pdu.SubItem{
					&pdu.AbstractSyntaxSubItem{Name: "1.2.840.10008.1.1"},
					&pdu.TransferSyntaxSubItem{Name: "1.2.840.10008.1.2"},
					&pdu.TransferSyntaxSubItem{Name: "1.2.840.10008.1.2.1"},
				},
			},
			&pdu.UserInformationItem{
				Items: []pdu.SubItem{
					&pdu.UserInformationMaximumLengthItem{MaximumLengthReceived: 16382},
					&pdu.ImplementationClassUIDSubItem{Name: "1.2.3.4"},
					&pdu.ImplementationVersionNameSubItem{Name: "TESTVER"},
					&pdu.AsynchronousOperationsWindowSubItem{MaxOpsInvoked: 1, MaxOpsPerformed: 1},
					&pdu.RoleSelectionSubItem{SOPClassUID: "1.2.840.10008.1.1", SCURole: 1, SCPRole: 0},
				},
			},
		},
	})
}

func TestAAssociateACRoundTrip(t *testing.T) {
	testPDURoundTrip(t, &pdu.A_ASSOCIATE{
		Type:            pdu.PDUTypeA_ASSOCIATE_AC,
		ProtocolVersion: pdu.CurrentProtocolVersion,
		CalledAETitle:   "TESTSCP         ",
		CallingAETitle:  "TESTSCU         ",
		Items: []pdu.SubItem{
			&pdu.ApplicationContextItem{Name: pdu.DICOMApplicationContextItemName},
			&pdu.PresentationContextItem{
				Type:      pdu.ItemTypePresentationContextResponse,
				ContextID: 1,
				Result:    pdu.PresentationContextAccepted,
				Items: []pdu.SubItem{
					&pdu.TransferSyntaxSubItem{Name: "1.2.840.10008.1.2"},
				},
			},
			&pdu.UserInformationItem{
				Items: []pdu.SubItem{
					&pdu.UserInformationMaximumLengthItem{MaximumLengthReceived: 4096},
				},
			},
		},
	})
}

func TestAAssociateRJRoundTrip(t *testing.T) {
	testPDURoundTrip(t, &pdu.A_ASSOCIATE_RJ{
		Result: pdu.ResultRejectedPermanent,
		Source: pdu.SourceULServiceProviderACSE,
		Reason: pdu.ReasonApplicationContextNameNotSupported,
	})
}

func TestAAbortRoundTrip(t *testing.T) {
	testPDURoundTrip(t, &pdu.A_ABORT{Source: 2, Reason: 1})
}

func TestAReleaseRoundTrip(t *testing.T) {
	testPDURoundTrip(t, &pdu.A_RELEASE_RQ{})
	testPDURoundTrip(t, &pdu.A_RELEASE_RP{})
}

func TestPDataTFRoundTrip(t *testing.T) {
	testPDURoundTrip(t, &pdu.P_DATA_TF{
		Items: []pdu.PresentationDataValueItem{
			{ContextID: 1, Command: true, Last: true, Value: []byte{1, 2, 3}},
			{ContextID: 1, Command: false, Last: false, Value: []byte{4, 5, 6, 7}},
		},
	})
}

func TestExtendedNegotiationSubItemsRoundTrip(t *testing.T) {
	testPDURoundTrip(t, &pdu.A_ASSOCIATE{
		Type:            pdu.PDUTypeA_ASSOCIATE_RQ,
		ProtocolVersion: pdu.CurrentProtocolVersion,
		CalledAETitle:   "TESTSCP         ",
		CallingAETitle:  "TESTSCU         ",
		Items: []pdu.SubItem{
			&pdu.ApplicationContextItem{Name: pdu.DICOMApplicationContextItemName},
			&pdu.PresentationContextItem{
				Type:      pdu.ItemTypePresentationContextRequest,
				ContextID: 1,
				Items: []pdu.SubItem{
					&pdu.AbstractSyntaxSubItem{Name: "1.2.840.10008.5.1.4.1.2.1.1"},
					&pdu.TransferSyntaxSubItem{Name: "1.2.840.10008.1.2"},
				},
			},
			&pdu.UserInformationItem{
				Items: []pdu.SubItem{
					&pdu.UserInformationMaximumLengthItem{MaximumLengthReceived: 16382},
					&pdu.ImplementationClassUIDSubItem{Name: "1.2.3.4"},
					&pdu.SOPClassExtendedNegotiationSubItem{
						SOPClassUID:         "1.2.840.10008.5.1.4.1.2.1.1",
						ServiceClassAppInfo: []byte{1, 1, 1},
					},
					&pdu.SOPClassCommonExtendedNegotiationSubItem{
						SOPClassUID:                "1.2.840.10008.5.1.4.1.1.88.22",
						ServiceClassUID:            "1.2.840.10008.4.2",
						RelatedGeneralSOPClassUIDs: []string{"1.2.840.10008.5.1.4.1.1.88.11"},
					},
					&pdu.UserIdentityRequestSubItem{
						IdentityType:              pdu.UserIdentityTypeUsernamePasscode,
						PositiveResponseRequested: true,
						PrimaryField:              []byte("username"),
						SecondaryField:            []byte("passcode"),
					},
				},
			},
		},
	})
}

func TestUserIdentityResponseRoundTrip(t *testing.T) {
	testPDURoundTrip(t, &pdu.A_ASSOCIATE{
		Type:            pdu.PDUTypeA_ASSOCIATE_AC,
		ProtocolVersion: pdu.CurrentProtocolVersion,
		CalledAETitle:   "TESTSCP         ",
		CallingAETitle:  "TESTSCU         ",
		Items: []pdu.SubItem{
			&pdu.ApplicationContextItem{Name: pdu.DICOMApplicationContextItemName},
			&pdu.PresentationContextItem{
				Type:      pdu.ItemTypePresentationContextResponse,
				ContextID: 1,
				Result:    pdu.PresentationContextAccepted,
				Items:     []pdu.SubItem{&pdu.TransferSyntaxSubItem{Name: "1.2.840.10008.1.2"}},
			},
			&pdu.UserInformationItem{
				Items: []pdu.SubItem{
					&pdu.UserInformationMaximumLengthItem{MaximumLengthReceived: 16382},
					&pdu.UserIdentityResponseSubItem{ServerResponse: []byte("server-ticket")},
				},
			},
		},
	})
}

// Unknown sub-items must be skipped on decode, not treated as fatal.
func TestUnknownSubItemSkipped(t *testing.T) {
	v := &pdu.A_ASSOCIATE{
		Type:            pdu.PDUTypeA_ASSOCIATE_RQ,
		ProtocolVersion: pdu.CurrentProtocolVersion,
		CalledAETitle:   "TESTSCP         ",
		CallingAETitle:  "TESTSCU         ",
		Items: []pdu.SubItem{
			&pdu.ApplicationContextItem{Name: pdu.DICOMApplicationContextItemName},
			&pdu.SubItemUnsupported{Type: 0x77, Data: []byte{0xde, 0xad}},
		},
	}
	v2 := testPDURoundTrip(t, v).(*pdu.A_ASSOCIATE)
	require.Len(t, v2.Items, 2)
	unknown, ok := v2.Items[1].(*pdu.SubItemUnsupported)
	require.True(t, ok)
	assert.Equal(t, byte(0x77), unknown.Type)
	assert.Equal(t, []byte{0xde, 0xad}, unknown.Data)
}

func TestTruncatedPDUFails(t *testing.T) {
	data, err := pdu.EncodePDU(&pdu.A_ABORT{Source: 0, Reason: 0})
	require.NoError(t, err)
	_, err = pdu.ReadPDU(bytes.NewReader(data[:len(data)-1]), 4<<20)
	assert.Error(t, err)
}

func TestOversizedPDURejected(t *testing.T) {
	// Header claims a body far larger than the negotiated max PDU size.
	data := []byte{byte(pdu.PDUTypeP_DATA_TF), 0, 0xff, 0xff, 0xff, 0xff}
	_, err := pdu.ReadPDU(bytes.NewReader(data), 4096)
	assert.Error(t, err)
}
