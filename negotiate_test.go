package netdicom

import (
	"testing"

	"github.com/dcmweld/netdicom/pdu"
	"github.com/stretchr/testify/assert"
)

func TestNegotiateContextAccepted(t *testing.T) {
	supportedAbstract := map[string]bool{"1.2.840.10008.5.1.4.1.1.1.2": true}
	supportedTS := []string{"1.2.840.10008.1.2", "1.2.840.10008.1.2.1"}
	outcome := negotiateContext("1.2.840.10008.5.1.4.1.1.1.2",
		[]string{"1.2.840.10008.1.2.4.50", "1.2.840.10008.1.2.1"},
		supportedAbstract, supportedTS)
	assert.Equal(t, pdu.PresentationContextAccepted, outcome.Result)
	assert.Equal(t, "1.2.840.10008.1.2.1", outcome.TransferSyntaxUID)
}

func TestNegotiateContextAbstractSyntaxNotSupported(t *testing.T) {
	outcome := negotiateContext("9.9.9.9", []string{"1.2.840.10008.1.2"},
		map[string]bool{}, []string{"1.2.840.10008.1.2"})
	assert.Equal(t, pdu.PresentationContextProviderRejectionAbstractSyntaxNotSupported, outcome.Result)
}

func TestNegotiateContextTransferSyntaxNotSupported(t *testing.T) {
	supportedAbstract := map[string]bool{"1.2.840.10008.5.1.4.1.1.1.2": true}
	outcome := negotiateContext("1.2.840.10008.5.1.4.1.1.1.2",
		[]string{"1.2.840.10008.1.2.4.90"},
		supportedAbstract, []string{"1.2.840.10008.1.2.1"})
	assert.Equal(t, pdu.PresentationContextProviderRejectionTransferSyntaxNotSupported, outcome.Result)
	// The first proposed transfer syntax is echoed in the rejection.
	assert.Equal(t, "1.2.840.10008.1.2.4.90", outcome.TransferSyntaxUID)
}

func TestNegotiateContextNoProposal(t *testing.T) {
	outcome := negotiateContext("1.2.3", nil, map[string]bool{"1.2.3": true}, []string{"1.2.840.10008.1.2"})
	assert.Equal(t, pdu.PresentationContextProviderRejectionNoReason, outcome.Result)
}

// TestNegotiateRoleTable walks every one of the 45 (proposal, opinion)
// combinations and checks the table's invariants: no proposal, or any
// no-opinion component on the acceptor side, yields the default assignment
// with no reply; a (false,false) proposal always rejects; every surviving
// negotiated outcome carries a reply and grants each role to at least one
// side.
func TestNegotiateRoleTable(t *testing.T) {
	def := RoleOutcome{RequestorIsSCU: true, AcceptorIsSCP: true}
	for _, e := range allRoleTableEntries() {
		outcome := NegotiateRole(e.Proposal, e.Opinion)
		if !e.Proposal.Proposed {
			assert.Equal(t, def, outcome, "%+v", e)
			continue
		}
		if !e.Proposal.ProposeSCU && !e.Proposal.ProposeSCP {
			assert.True(t, outcome.ContextRejected, "%+v", e)
			continue
		}
		if e.Opinion.SCU == RoleNoOpinion || e.Opinion.SCP == RoleNoOpinion {
			assert.Equal(t, def, outcome, "%+v", e)
			continue
		}
		if outcome.ContextRejected {
			continue
		}
		assert.True(t, outcome.ReplyPresent, "%+v", e)
		assert.True(t, outcome.RequestorIsSCU || outcome.AcceptorIsSCU, "%+v", e)
		assert.True(t, outcome.RequestorIsSCP || outcome.AcceptorIsSCP, "%+v", e)
	}
}

// TestNegotiateRoleRows pins the individual rows of the role table,
// including the both-roles grant and the no-opinion-component defaults.
func TestNegotiateRoleRows(t *testing.T) {
	tt := RoleProposal{Proposed: true, ProposeSCU: true, ProposeSCP: true}
	tf := RoleProposal{Proposed: true, ProposeSCU: true}
	ft := RoleProposal{Proposed: true, ProposeSCP: true}
	def := RoleOutcome{RequestorIsSCU: true, AcceptorIsSCP: true}
	defConfirmed := RoleOutcome{RequestorIsSCU: true, AcceptorIsSCP: true, ReplyPresent: true}
	inverted := RoleOutcome{RequestorIsSCP: true, AcceptorIsSCU: true, ReplyPresent: true}
	both := RoleOutcome{
		RequestorIsSCU: true, RequestorIsSCP: true,
		AcceptorIsSCU: true, AcceptorIsSCP: true,
		ReplyPresent: true,
	}
	rejected := RoleOutcome{ContextRejected: true}
	cases := []struct {
		proposal RoleProposal
		opinion  RoleSelection
		want     RoleOutcome
	}{
		{tt, RoleSelection{SCU: RoleSupported, SCP: RoleSupported}, both},
		{tt, RoleSelection{SCU: RoleSupported, SCP: RoleUnsupported}, defConfirmed},
		{tt, RoleSelection{SCU: RoleUnsupported, SCP: RoleSupported}, inverted},
		{tt, RoleSelection{SCU: RoleUnsupported, SCP: RoleUnsupported}, rejected},
		{tt, RoleSelection{SCU: RoleNoOpinion, SCP: RoleSupported}, def},
		{tt, RoleSelection{SCU: RoleUnsupported, SCP: RoleNoOpinion}, def},
		{tf, RoleSelection{SCU: RoleSupported, SCP: RoleSupported}, defConfirmed},
		{tf, RoleSelection{SCU: RoleSupported, SCP: RoleUnsupported}, defConfirmed},
		{tf, RoleSelection{SCU: RoleUnsupported, SCP: RoleUnsupported}, rejected},
		{tf, RoleSelection{SCU: RoleSupported, SCP: RoleNoOpinion}, def},
		{ft, RoleSelection{SCU: RoleSupported, SCP: RoleSupported}, inverted},
		{ft, RoleSelection{SCU: RoleUnsupported, SCP: RoleSupported}, inverted},
		{ft, RoleSelection{SCU: RoleUnsupported, SCP: RoleUnsupported}, rejected},
		{ft, RoleSelection{SCU: RoleNoOpinion, SCP: RoleSupported}, def},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NegotiateRole(tc.proposal, tc.opinion),
			"proposal %+v opinion %+v", tc.proposal, tc.opinion)
	}
}
