package netdicom

import (
	"testing"

	"github.com/dcmweld/netdicom/pdu"
	"github.com/dcmweld/netdicom/sopclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProviderParams() ServiceProviderParams {
	return ServiceProviderParams{
		SupportedServices:         []sopclass.SOPUID{{Name: "SecondaryCaptureImageStorage", UID: testAbstractSyntaxUID}},
		SupportedTransferSyntaxes: []string{testTransferSyntaxUID},
	}
}

func testAssociateRequestItems(maxPDUSize uint32, extraUserItems ...pdu.SubItem) []pdu.SubItem {
	userItems := []pdu.SubItem{
		&pdu.UserInformationMaximumLengthItem{MaximumLengthReceived: maxPDUSize},
	}
	userItems = append(userItems, extraUserItems...)
	return []pdu.SubItem{
		&pdu.ApplicationContextItem{Name: pdu.DICOMApplicationContextItemName},
		&pdu.PresentationContextItem{
			Type:      pdu.ItemTypePresentationContextRequest,
			ContextID: 1,
			Items: []pdu.SubItem{
				&pdu.AbstractSyntaxSubItem{Name: testAbstractSyntaxUID},
				&pdu.TransferSyntaxSubItem{Name: testTransferSyntaxUID},
			},
		},
		&pdu.UserInformationItem{Items: userItems},
	}
}

// A peer-advertised maximum length below the fragment minimum is a protocol
// error caught during the handshake; 0 is the legal "unlimited" sentinel.
func TestOnAssociateRequestPeerMaxPDUSize(t *testing.T) {
	cm := newContextManager()
	_, err := cm.onAssociateRequest(testAssociateRequestItems(3), DefaultMaxPDUSize, testProviderParams())
	assert.Error(t, err)

	cm = newContextManager()
	_, err = cm.onAssociateRequest(testAssociateRequestItems(0), DefaultMaxPDUSize, testProviderParams())
	require.NoError(t, err)
	assert.Equal(t, 0, cm.peerMaxPDUSize)

	cm = newContextManager()
	_, err = cm.onAssociateRequest(testAssociateRequestItems(16382), DefaultMaxPDUSize, testProviderParams())
	require.NoError(t, err)
	assert.Equal(t, 16382, cm.peerMaxPDUSize)
}

// When the requestor proposes both roles and the provider supports both,
// the accepted context grants both roles to each side and the reply item
// carries (1,1).
func TestOnAssociateRequestBothRoles(t *testing.T) {
	params := testProviderParams()
	params.RoleSelections = map[string]RoleSelection{
		testAbstractSyntaxUID: {SCU: RoleSupported, SCP: RoleSupported},
	}
	cm := newContextManager()
	responses, err := cm.onAssociateRequest(
		testAssociateRequestItems(16382, &pdu.RoleSelectionSubItem{
			SOPClassUID: testAbstractSyntaxUID,
			SCURole:     1,
			SCPRole:     1,
		}),
		DefaultMaxPDUSize, params)
	require.NoError(t, err)

	entry, err := cm.lookupByContextID(1)
	require.NoError(t, err)
	assert.True(t, entry.asSCU)
	assert.True(t, entry.asSCP)

	var reply *pdu.RoleSelectionSubItem
	for _, item := range responses {
		ui, ok := item.(*pdu.UserInformationItem)
		if !ok {
			continue
		}
		for _, subItem := range ui.Items {
			if rs, ok := subItem.(*pdu.RoleSelectionSubItem); ok {
				reply = rs
			}
		}
	}
	require.NotNil(t, reply)
	assert.Equal(t, byte(1), reply.SCURole)
	assert.Equal(t, byte(1), reply.SCPRole)
}

// A proposed role the provider has no opinion on gets the default role
// assignment and no reply item.
func TestOnAssociateRequestNoRoleOpinion(t *testing.T) {
	cm := newContextManager()
	responses, err := cm.onAssociateRequest(
		testAssociateRequestItems(16382, &pdu.RoleSelectionSubItem{
			SOPClassUID: testAbstractSyntaxUID,
			SCURole:     1,
			SCPRole:     1,
		}),
		DefaultMaxPDUSize, testProviderParams())
	require.NoError(t, err)

	entry, err := cm.lookupByContextID(1)
	require.NoError(t, err)
	assert.False(t, entry.asSCU)
	assert.True(t, entry.asSCP)

	for _, item := range responses {
		ui, ok := item.(*pdu.UserInformationItem)
		if !ok {
			continue
		}
		for _, subItem := range ui.Items {
			_, ok := subItem.(*pdu.RoleSelectionSubItem)
			assert.False(t, ok, "no role-selection reply expected: %v", subItem)
		}
	}
}
