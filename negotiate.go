package netdicom

// Presentation-context negotiation: per-context abstract/transfer syntax
// matching (PS3.8 9.3.3.2) and the SCP/SCU role-selection rules (PS3.7
// Annex D.3.3.4). Pulled out of contextmanager.go into its own file
// because, unlike the bookkeeping in contextManager, this logic is a pure
// function of its inputs and is exercised directly by tests
// (negotiate_test.go) without needing a live association.

import "github.com/dcmweld/netdicom/pdu"

// contextOutcome is the pure result of matching one proposed presentation
// context against an acceptor's supported abstract/transfer syntaxes.
type contextOutcome struct {
	Result            pdu.PresentationContextResult
	TransferSyntaxUID string // meaningful only when Result == accepted
}

// negotiateContext implements the acceptor's per-proposal algorithm:
// unsupported abstract syntax -> result 3 (first proposed TS echoed);
// else first mutually-supported transfer syntax wins -> result 0;
// else -> result 4. It is pure: same inputs always produce the same
// output, and it does not mutate anything.
func negotiateContext(abstractSyntaxUID string, proposedTransferSyntaxes []string, supportedAbstractSyntaxes map[string]bool, supportedTransferSyntaxes []string) contextOutcome {
	if len(proposedTransferSyntaxes) == 0 {
		return contextOutcome{Result: pdu.PresentationContextProviderRejectionNoReason}
	}
	if !supportedAbstractSyntaxes[abstractSyntaxUID] {
		return contextOutcome{
			Result:            pdu.PresentationContextProviderRejectionAbstractSyntaxNotSupported,
			TransferSyntaxUID: proposedTransferSyntaxes[0],
		}
	}
	supported := make(map[string]bool, len(supportedTransferSyntaxes))
	for _, ts := range supportedTransferSyntaxes {
		supported[ts] = true
	}
	for _, ts := range proposedTransferSyntaxes {
		if supported[ts] {
			return contextOutcome{Result: pdu.PresentationContextAccepted, TransferSyntaxUID: ts}
		}
	}
	return contextOutcome{
		Result:            pdu.PresentationContextProviderRejectionTransferSyntaxNotSupported,
		TransferSyntaxUID: proposedTransferSyntaxes[0],
	}
}

// RoleOpinion is one side's stance on whether it is willing to act in a
// given role (SCU or SCP) for an abstract syntax. Three-valued: a peer may
// have no opinion at all on a role (RoleNoOpinion), meaning it defers to
// the protocol default instead of actively agreeing or refusing.
type RoleOpinion int

const (
	RoleNoOpinion RoleOpinion = iota
	RoleSupported
	RoleUnsupported
)

// RoleSelection states the acceptor's opinion on both roles for one
// abstract syntax. The zero value (RoleNoOpinion, RoleNoOpinion)
// means the acceptor never replies with a role-selection item for that
// abstract syntax and the default role assignment applies.
type RoleSelection struct {
	SCU RoleOpinion
	SCP RoleOpinion
}

// RoleProposal is what the requestor put in its A-ASSOCIATE-RQ for one
// abstract syntax. ProposeSCU==ProposeSCP==false with Proposed==true is
// the invalid "neither role" proposal, which rejects the context;
// Proposed==false means the requestor didn't send a role-selection item at
// all (5 possible proposal states: none, TT, TF, FT, FF).
type RoleProposal struct {
	Proposed   bool
	ProposeSCU bool
	ProposeSCP bool
}

// RoleOutcome is the result of resolving one (proposal, acceptor-opinion)
// pair: whether the context survives role negotiation, which role(s) each
// side plays, and whether the acceptor should echo back a role-selection
// item at all. When the requestor proposed both roles and the acceptor
// supports both, each side is granted both SCU and SCP.
type RoleOutcome struct {
	ContextRejected bool
	RequestorIsSCU  bool
	RequestorIsSCP  bool
	AcceptorIsSCU   bool
	AcceptorIsSCP   bool
	ReplyPresent    bool // whether the acceptor sends a role-selection sub-item back
}

// NegotiateRole resolves the SCP/SCU role for one abstract syntax per PS3.7
// Annex D.3.3.4 (5 proposal states x 9 acceptor-opinion combinations; the
// same table pynetdicom encodes as SCP_SCU_ROLES). It is pure and
// deterministic: NegotiateRole followed by the reciprocal interpretation on
// the requestor side yields a consistent (scu, scp) pair on each side.
func NegotiateRole(proposal RoleProposal, opinion RoleSelection) RoleOutcome {
	// Default: requestor is SCU, acceptor is SCP. No reply is sent for
	// abstract syntaxes the requestor didn't propose roles for, or when
	// the acceptor left either role without an opinion.
	def := RoleOutcome{RequestorIsSCU: true, AcceptorIsSCP: true}

	if !proposal.Proposed {
		return def
	}
	if !proposal.ProposeSCU && !proposal.ProposeSCP {
		// Proposer asked for neither role: invalid, reject the context.
		return RoleOutcome{ContextRejected: true}
	}
	if opinion.SCU == RoleNoOpinion || opinion.SCP == RoleNoOpinion {
		// The acceptor has no stated opinion on one of the roles. The
		// default assignment applies and no reply item is sent, same as
		// when no opinion is expressed at all.
		return def
	}

	acceptorCanSCU := opinion.SCU == RoleSupported // requestor may act as SCU
	acceptorCanSCP := opinion.SCP == RoleSupported // requestor may act as SCP

	switch {
	case proposal.ProposeSCU && proposal.ProposeSCP:
		// (T,T): acceptor's (scu,scp) acceptance determines the outcome.
		switch {
		case acceptorCanSCU && acceptorCanSCP:
			// Both roles accepted: each side may act as SCU and SCP.
			return RoleOutcome{
				RequestorIsSCU: true, RequestorIsSCP: true,
				AcceptorIsSCU: true, AcceptorIsSCP: true,
				ReplyPresent: true,
			}
		case acceptorCanSCU && !acceptorCanSCP:
			return RoleOutcome{RequestorIsSCU: true, AcceptorIsSCP: true, ReplyPresent: true}
		case !acceptorCanSCU && acceptorCanSCP:
			return RoleOutcome{RequestorIsSCP: true, AcceptorIsSCU: true, ReplyPresent: true}
		default: // neither
			return RoleOutcome{ContextRejected: true}
		}
	case proposal.ProposeSCU && !proposal.ProposeSCP:
		// (T,F): acceptor must accept the requestor acting as SCU.
		if acceptorCanSCU {
			return RoleOutcome{RequestorIsSCU: true, AcceptorIsSCP: true, ReplyPresent: true}
		}
		return RoleOutcome{ContextRejected: true}
	default:
		// (F,T): acceptor must accept the requestor acting as SCP (and so
		// act as SCU itself).
		if acceptorCanSCP {
			return RoleOutcome{RequestorIsSCP: true, AcceptorIsSCU: true, ReplyPresent: true}
		}
		return RoleOutcome{ContextRejected: true}
	}
}

// roleTableEntry and allRoleTableEntries enumerate the full 5x9 = 45 cases
// so tests can iterate every entry.
type roleTableEntry struct {
	Proposal RoleProposal
	Opinion  RoleSelection
}

func allRoleTableEntries() []roleTableEntry {
	proposals := []RoleProposal{
		{Proposed: false},
		{Proposed: true, ProposeSCU: true, ProposeSCP: true},
		{Proposed: true, ProposeSCU: true, ProposeSCP: false},
		{Proposed: true, ProposeSCU: false, ProposeSCP: true},
		{Proposed: true, ProposeSCU: false, ProposeSCP: false},
	}
	opinions := []RoleOpinion{RoleNoOpinion, RoleSupported, RoleUnsupported}
	var entries []roleTableEntry
	for _, p := range proposals {
		for _, scu := range opinions {
			for _, scp := range opinions {
				entries = append(entries, roleTableEntry{Proposal: p, Opinion: RoleSelection{SCU: scu, SCP: scp}})
			}
		}
	}
	return entries
}
