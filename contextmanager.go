package netdicom

import (
	"fmt"

	"github.com/dcmweld/netdicom/pdu"
	"github.com/dcmweld/netdicom/sopclass"
	"github.com/golang/glog"
	"github.com/yasushi-saito/go-dicom"
)

type contextManagerEntry struct {
	contextID         byte
	abstractSyntaxUID string
	transferSyntaxUID string

	// asSCU/asSCP record which role(s) this side plays for this abstract
	// syntax, resolved by NegotiateRole. Under the default role assignment
	// the requestor is SCU and the acceptor is SCP; when both sides accept
	// both roles, both flags are set.
	asSCU bool
	asSCP bool
}

// contextManager manages mappings between a contextID and the corresponding
// abstract-syntax UID (aka SOP).  UID is of form "1.2.840.10008.5.1.4.1.1.1.2".
// UIDs are static and global. They are defined in
// https://www.dicomlibrary.com/dicom/sop/.
//
// On the other hand, contextID is allocated anew during each association
// handshake.  ContextID values are 1, 3, 5, etc.  One contextManager is created
// per association.
type contextManager struct {
	// The two maps are inverses of each other.
	contextIDToAbstractSyntaxNameMap map[byte]*contextManagerEntry
	abstractSyntaxNameToContextIDMap map[string]*contextManagerEntry

	// Info about the the other side of the communication, gleaned from
	// A-ASSOCIATE-* pdu.
	peerMaxPDUSize int
	// UID that identifies the peer type. It's supposed to be globally unique.
	peerImplementationClassUID string
	// Implementation version, virtually meaningless since its format isn't standardiszed.
	peerImplementationVersionName string

	// tmpRequests used only on the client (requestor) side. It holds the
	// contextid->presentationcontext mapping generated from the
	// A_ASSOCIATE_RQ PDU. Once an A_ASSOCIATE_AC PDU arrives, tmpRequests
	// is matched against the response PDU and
	// contextid->{abstractsyntax,transfersyntax} mappings are filled.
	tmpRequests map[byte]*pdu.PresentationContextItem
}

// Create an empty contextManager
func newContextManager() *contextManager {
	c := &contextManager{
		contextIDToAbstractSyntaxNameMap: make(map[byte]*contextManagerEntry),
		abstractSyntaxNameToContextIDMap: make(map[string]*contextManagerEntry),
		peerMaxPDUSize:                   16384, // The default value used by Osirix & pynetdicom.
		tmpRequests:                      make(map[byte]*pdu.PresentationContextItem),
	}
	return c
}

func roleOpinionToByte(r RoleOpinion) byte {
	if r == RoleSupported {
		return 1
	}
	return 0
}

func boolToRoleByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// checkPeerMaxPDUSize validates a peer-advertised maximum-length value. 0 is
// the legal "unlimited" sentinel (PS3.8 Annex D.1); values too small to fit
// even one payload byte per PDV are a protocol error, caught here during the
// handshake rather than deep inside the fragmenter.
func checkPeerMaxPDUSize(v int) error {
	if v != 0 && v < minFragmentPDUSize {
		return fmt.Errorf("peer advertised illegal max PDU length %d (minimum %d, or 0 for unlimited)", v, minFragmentPDUSize)
	}
	return nil
}

// Called by the user (client) to produce a list to be embedded in an
// A_REQUEST_RQ.Items. The PDU is sent when running as a service user (client).
// maxPDUSize is the maximum PDU size, in bytes, that the clients is willing to
// receive. maxPDUSize is encoded in one of the items. roleSelections proposes
// SCU/SCP roles per abstract syntax (PS3.7 Annex D.3.3.4); an abstract syntax
// absent from the map, or mapped to the zero RoleSelection, gets no
// role-selection item at all.
func (m *contextManager) generateAssociateRequest(
	services []sopclass.SOPUID, transferSyntaxUIDs []string,
	maxPDUSize int, roleSelections map[string]RoleSelection) []pdu.SubItem {
	items := []pdu.SubItem{
		&pdu.ApplicationContextItem{
			Name: pdu.DICOMApplicationContextItemName,
		}}
	var contextID byte = 1
	var roleItems []pdu.SubItem
	for _, sop := range services {
		syntaxItems := []pdu.SubItem{
			&pdu.AbstractSyntaxSubItem{Name: sop.UID},
		}
		for _, syntaxUID := range transferSyntaxUIDs {
			syntaxItems = append(syntaxItems, &pdu.TransferSyntaxSubItem{Name: syntaxUID})
		}
		item := &pdu.PresentationContextItem{
			Type:      pdu.ItemTypePresentationContextRequest,
			ContextID: contextID,
			Result:    0, // must be zero for request
			Items:     syntaxItems,
		}
		items = append(items, item)
		m.tmpRequests[contextID] = item
		if rs, ok := roleSelections[sop.UID]; ok && (rs.SCU != RoleNoOpinion || rs.SCP != RoleNoOpinion) {
			roleItems = append(roleItems, &pdu.RoleSelectionSubItem{
				SOPClassUID: sop.UID,
				SCURole:     roleOpinionToByte(rs.SCU),
				SCPRole:     roleOpinionToByte(rs.SCP),
			})
		}
		contextID += 2 // must be odd.
	}
	userInfoItems := []pdu.SubItem{
		&pdu.UserInformationMaximumLengthItem{MaximumLengthReceived: uint32(maxPDUSize)},
		&pdu.ImplementationClassUIDSubItem{Name: dicom.DefaultImplementationClassUID},
		&pdu.ImplementationVersionNameSubItem{Name: dicom.DefaultImplementationVersionName},
	}
	userInfoItems = append(userInfoItems, roleItems...)
	items = append(items, &pdu.UserInformationItem{Items: userInfoItems})
	return items
}

// Called when A_ASSOCIATE_RQ pdu arrives, on the provider side. Returns a
// list of items to be sent in the A_ASSOCIATE_AC pdu. Each proposed context
// is negotiated independently against params.SupportedServices and
// params.SupportedTransferSyntaxes (PS3.8 9.3.3.2): unsupported abstract
// syntax rejects with result 3, no common transfer syntax rejects with
// result 4, otherwise the first mutually supported transfer syntax wins
// with result 0.
// Role selection, where proposed, is resolved per abstract syntax against
// params.RoleSelections via NegotiateRole.
func (m *contextManager) onAssociateRequest(requestItems []pdu.SubItem, maxPDUSize int, params ServiceProviderParams) ([]pdu.SubItem, error) {
	supportedAbstract := make(map[string]bool, len(params.SupportedServices))
	for _, s := range params.SupportedServices {
		supportedAbstract[s.UID] = true
	}

	roleProposals := make(map[string]RoleProposal)
	for _, requestItem := range requestItems {
		ui, ok := requestItem.(*pdu.UserInformationItem)
		if !ok {
			continue
		}
		for _, subItem := range ui.Items {
			if rs, ok := subItem.(*pdu.RoleSelectionSubItem); ok {
				roleProposals[rs.SOPClassUID] = RoleProposal{
					Proposed:   true,
					ProposeSCU: rs.SCURole != 0,
					ProposeSCP: rs.SCPRole != 0,
				}
			}
		}
	}

	responses := []pdu.SubItem{
		&pdu.ApplicationContextItem{
			Name: pdu.DICOMApplicationContextItemName,
		},
	}
	var roleReplies []pdu.SubItem
	numAccepted := 0
	for _, requestItem := range requestItems {
		switch ri := requestItem.(type) {
		case *pdu.ApplicationContextItem:
			if ri.Name != pdu.DICOMApplicationContextItemName {
				return nil, fmt.Errorf("illegal application context name: %v", ri.Name)
			}
		case *pdu.PresentationContextItem:
			var sopUID string
			var proposedTS []string
			for _, subItem := range ri.Items {
				switch c := subItem.(type) {
				case *pdu.AbstractSyntaxSubItem:
					if sopUID != "" {
						return nil, fmt.Errorf("multiple AbstractSyntaxSubItem found in %v", ri.String())
					}
					sopUID = c.Name
				case *pdu.TransferSyntaxSubItem:
					proposedTS = append(proposedTS, c.Name)
				default:
					return nil, fmt.Errorf("unknown subitem in PresentationContext: %s", subItem.String())
				}
			}
			if sopUID == "" {
				return nil, fmt.Errorf("SOP UID not found in PresentationContext: %v", ri.String())
			}
			outcome := negotiateContext(sopUID, proposedTS, supportedAbstract, params.SupportedTransferSyntaxes)
			respItem := &pdu.PresentationContextItem{
				Type:      pdu.ItemTypePresentationContextResponse,
				ContextID: ri.ContextID,
				Result:    outcome.Result,
			}
			if outcome.Result != pdu.PresentationContextAccepted {
				glog.V(1).Infof("Provider: rejecting context %d (%s): result %d", ri.ContextID, sopUID, outcome.Result)
				responses = append(responses, respItem)
				continue
			}
			respItem.Items = []pdu.SubItem{&pdu.TransferSyntaxSubItem{Name: outcome.TransferSyntaxUID}}
			roleOutcome := NegotiateRole(roleProposals[sopUID], params.RoleSelections[sopUID])
			if roleOutcome.ContextRejected {
				respItem.Result = pdu.PresentationContextUserRejection
				respItem.Items = nil
				responses = append(responses, respItem)
				continue
			}
			numAccepted++
			responses = append(responses, respItem)
			if roleOutcome.ReplyPresent {
				// The reply states the acceptor's own role(s); the
				// requestor takes the mirrored role(s).
				roleReplies = append(roleReplies, &pdu.RoleSelectionSubItem{
					SOPClassUID: sopUID,
					SCURole:     boolToRoleByte(roleOutcome.AcceptorIsSCU),
					SCPRole:     boolToRoleByte(roleOutcome.AcceptorIsSCP),
				})
			}
			e := &contextManagerEntry{
				abstractSyntaxUID: sopUID,
				transferSyntaxUID: outcome.TransferSyntaxUID,
				contextID:         ri.ContextID,
				asSCU:             roleOutcome.AcceptorIsSCU,
				asSCP:             roleOutcome.AcceptorIsSCP,
			}
			m.contextIDToAbstractSyntaxNameMap[ri.ContextID] = e
			m.abstractSyntaxNameToContextIDMap[sopUID] = e
			glog.V(1).Infof("Provider(%p): addmapping %v %v %v", m, sopUID, outcome.TransferSyntaxUID, ri.ContextID)
		case *pdu.UserInformationItem:
			for _, subItem := range ri.Items {
				switch c := subItem.(type) {
				case *pdu.UserInformationMaximumLengthItem:
					if err := checkPeerMaxPDUSize(int(c.MaximumLengthReceived)); err != nil {
						return nil, err
					}
					m.peerMaxPDUSize = int(c.MaximumLengthReceived)
				case *pdu.ImplementationClassUIDSubItem:
					m.peerImplementationClassUID = c.Name
				case *pdu.ImplementationVersionNameSubItem:
					m.peerImplementationVersionName = c.Name
				}
			}
		}
	}
	if numAccepted == 0 {
		return nil, fmt.Errorf("no presentation context was accepted")
	}
	userInfoItems := []pdu.SubItem{&pdu.UserInformationMaximumLengthItem{MaximumLengthReceived: uint32(maxPDUSize)}}
	userInfoItems = append(userInfoItems, roleReplies...)
	responses = append(responses, &pdu.UserInformationItem{Items: userInfoItems})
	glog.V(1).Infof("Received associate request, #contexts:%v, maxPDU:%v, implclass:%v, version:%v",
		len(m.contextIDToAbstractSyntaxNameMap),
		m.peerMaxPDUSize, m.peerImplementationClassUID, m.peerImplementationVersionName)
	return responses, nil
}

// Called by the user (client) to when A_ASSOCIATE_AC PDU arrives from the provider.
func (m *contextManager) onAssociateResponse(responses []pdu.SubItem) error {
	roleReplies := make(map[string]*pdu.RoleSelectionSubItem)
	for _, responseItem := range responses {
		if ui, ok := responseItem.(*pdu.UserInformationItem); ok {
			for _, subItem := range ui.Items {
				if rs, ok := subItem.(*pdu.RoleSelectionSubItem); ok {
					roleReplies[rs.SOPClassUID] = rs
				}
			}
		}
	}
	for _, responseItem := range responses {
		switch ri := responseItem.(type) {
		case *pdu.PresentationContextItem:
			request, ok := m.tmpRequests[ri.ContextID]
			if !ok {
				return fmt.Errorf("unknown context ID %d for A_ASSOCIATE_AC: %v", ri.ContextID, ri.String())
			}
			var sopUID string
			for _, subItem := range request.Items {
				if c, ok := subItem.(*pdu.AbstractSyntaxSubItem); ok {
					sopUID = c.Name
				}
			}
			if sopUID == "" {
				return fmt.Errorf("AbstractSyntaxSubItem not found in request for context %d", ri.ContextID)
			}
			if ri.Result != pdu.PresentationContextAccepted {
				glog.V(1).Infof("Requestor: context %d (%s) rejected, result %d", ri.ContextID, sopUID, ri.Result)
				continue
			}
			var pickedTransferSyntaxUID string
			for _, subItem := range ri.Items {
				c, ok := subItem.(*pdu.TransferSyntaxSubItem)
				if !ok {
					return fmt.Errorf("unknown subitem %s in PresentationContext: %s", subItem.String(), ri.String())
				}
				if pickedTransferSyntaxUID != "" {
					return fmt.Errorf("multiple syntax UIDs returned in A_ASSOCIATE_AC: %v", ri.String())
				}
				pickedTransferSyntaxUID = c.Name
			}
			found := false
			for _, subItem := range request.Items {
				if c, ok := subItem.(*pdu.TransferSyntaxSubItem); ok && c.Name == pickedTransferSyntaxUID {
					found = true
				}
			}
			if !found {
				return fmt.Errorf("TransferSyntaxUID %s not among proposed for %v", pickedTransferSyntaxUID, ri.String())
			}
			asSCU, asSCP := true, false
			if rs, ok := roleReplies[sopUID]; ok {
				// The acceptor's reply states its own role; the requestor
				// takes the mirrored role.
				asSCU = rs.SCPRole != 0
				asSCP = rs.SCURole != 0
			}
			e := &contextManagerEntry{
				abstractSyntaxUID: sopUID,
				transferSyntaxUID: pickedTransferSyntaxUID,
				contextID:         ri.ContextID,
				asSCU:             asSCU,
				asSCP:             asSCP,
			}
			m.contextIDToAbstractSyntaxNameMap[ri.ContextID] = e
			m.abstractSyntaxNameToContextIDMap[sopUID] = e
		case *pdu.UserInformationItem:
			for _, subItem := range ri.Items {
				switch c := subItem.(type) {
				case *pdu.UserInformationMaximumLengthItem:
					if err := checkPeerMaxPDUSize(int(c.MaximumLengthReceived)); err != nil {
						return err
					}
					m.peerMaxPDUSize = int(c.MaximumLengthReceived)
				case *pdu.ImplementationClassUIDSubItem:
					m.peerImplementationClassUID = c.Name
				case *pdu.ImplementationVersionNameSubItem:
					m.peerImplementationVersionName = c.Name
				}
			}
		}
	}
	if len(m.contextIDToAbstractSyntaxNameMap) == 0 {
		return fmt.Errorf("no presentation context was accepted by the peer")
	}
	glog.V(1).Infof("Received associate response, #contexts:%v, maxPDU:%v, implclass:%v, version:%v",
		len(m.contextIDToAbstractSyntaxNameMap),
		m.peerMaxPDUSize, m.peerImplementationClassUID, m.peerImplementationVersionName)
	return nil
}

// Convert an UID to a context ID.
func (m *contextManager) lookupByAbstractSyntaxUID(name string) (contextManagerEntry, error) {
	e, ok := m.abstractSyntaxNameToContextIDMap[name]
	if !ok {
		return contextManagerEntry{}, fmt.Errorf("contextmanager(%p): unknown syntax %s", m, name)
	}
	return *e, nil
}

// Convert a contextID to a UID.
func (m *contextManager) lookupByContextID(contextID byte) (contextManagerEntry, error) {
	e, ok := m.contextIDToAbstractSyntaxNameMap[contextID]
	if !ok {
		return contextManagerEntry{}, fmt.Errorf("contextmanager(%p): unknown context ID %d", m, contextID)
	}
	return *e, nil
}
