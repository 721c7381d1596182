// This file defines ServiceProvider (i.e., a DICOM server).

package netdicom

import (
	"fmt"
	"net"
	"sync"

	"github.com/dcmweld/netdicom/dimse"
	"github.com/dcmweld/netdicom/sopclass"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/yasushi-saito/go-dicom"
	"github.com/yasushi-saito/go-dicom/dicomio"
)

// Per-TCP-connection state for dispatching commands.
type providerCommandDispatcher struct {
	downcallCh chan stateEvent // for sending PDUs to the statemachine.
	params     ServiceProviderParams

	// associationID correlates every log line emitted for one accepted
	// connection. It has no protocol meaning and never goes on the wire.
	associationID string

	mu             sync.Mutex
	activeCommands map[uint16]*providerCommandState // guarded by mu
}

func (dc *providerCommandDispatcher) findOrCreateCommand(
	messageID uint16,
	cm *contextManager,
	context contextManagerEntry) (*providerCommandState, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if cs, ok := dc.activeCommands[messageID]; ok {
		return cs, true
	}
	cs := &providerCommandState{
		parent:    dc,
		messageID: messageID,
		cm:        cm,
		context:   context,
		upcallCh:  make(chan upcallEvent, 128),
		cancelCh:  make(chan struct{}),
	}
	dc.activeCommands[messageID] = cs
	glog.V(1).Infof("Association %s: start provider command %v", dc.associationID, messageID)
	return cs, false
}

func (dc *providerCommandDispatcher) deleteCommand(cs *providerCommandState) {
	dc.mu.Lock()
	glog.V(1).Infof("Association %s: finish provider command %v", cs.parent.associationID, cs.messageID)
	if _, ok := dc.activeCommands[cs.messageID]; !ok {
		panic(fmt.Sprintf("cs %+v", cs))
	}
	delete(dc.activeCommands, cs.messageID)
	dc.mu.Unlock()
}

// Per-command-invocation state.
type providerCommandState struct {
	parent    *providerCommandDispatcher // parent dispatcher
	messageID uint16                     // PROVIDER MessageID
	context   contextManagerEntry        // the transfersyntax/sopclass for this command.
	cm        *contextManager            // For looking up context -> transfersyntax/sopclass mappings

	// upcallCh streams PROVIDER command+data for the given messageID.
	upcallCh chan upcallEvent

	// cancelCh is closed when a C-CANCEL-RQ naming this messageID arrives.
	// Only C-FIND/C-MOVE/C-GET handlers watch it; they poll it between
	// pending responses and, on close, stop iterating and send a final
	// Cancel status (0xFE00) instead of Success.
	cancelCh chan struct{}
}

func (cs *providerCommandState) cancelled() bool {
	select {
	case <-cs.cancelCh:
		return true
	default:
		return false
	}
}

func (cs *providerCommandState) handleCStore(c *dimse.C_STORE_RQ, data []byte) {
	status := dimse.Status{Status: dimse.StatusUnrecognizedOperation}
	if cs.parent.params.CStore != nil {
		status = cs.parent.params.CStore(
			cs.context.transferSyntaxUID,
			c.AffectedSOPClassUID,
			c.AffectedSOPInstanceUID,
			data)
	}
	resp := &dimse.C_STORE_RSP{
		AffectedSOPClassUID:       c.AffectedSOPClassUID,
		MessageIDBeingRespondedTo: c.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		AffectedSOPInstanceUID:    c.AffectedSOPInstanceUID,
		Status:                    status,
	}
	cs.sendMessage(resp, nil)
}

func (cs *providerCommandState) handleCFind(c *dimse.C_FIND_RQ, data []byte) {
	if cs.parent.params.CFind == nil {
		cs.sendMessage(&dimse.C_FIND_RSP{
			AffectedSOPClassUID:       c.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: c.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    dimse.Status{Status: dimse.StatusUnrecognizedOperation, ErrorComment: "No callback found for C-FIND"},
		}, nil)
		return
	}
	elems, err := readElementsInBytes(data, cs.context.transferSyntaxUID)
	if err != nil {
		cs.sendMessage(&dimse.C_FIND_RSP{
			AffectedSOPClassUID:       c.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: c.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    dimse.Status{Status: dimse.StatusUnrecognizedOperation, ErrorComment: err.Error()},
		}, nil)
		return
	}
	glog.V(1).Infof("C-FIND-RQ payload: %s", elementsString(elems))

	status := dimse.StatusSuccess
	responseCh := cs.parent.params.CFind(cs.context.transferSyntaxUID, c.AffectedSOPClassUID, elems)
	for resp := range responseCh {
		if cs.cancelled() {
			status = dimse.Status{Status: dimse.StatusCancel}
			break
		}
		if resp.Err != nil {
			status = dimse.Status{
				Status:       dimse.CFindUnableToProcess,
				ErrorComment: resp.Err.Error(),
			}
			break
		}
		glog.V(1).Infof("C-FIND-RSP: %s", elementsString(resp.Elements))
		payload, err := writeElementsToBytes(resp.Elements, cs.context.transferSyntaxUID)
		if err != nil {
			glog.Errorf("C-FIND: encode error %v", err)
			status = dimse.Status{
				Status:       dimse.CFindUnableToProcess,
				ErrorComment: err.Error(),
			}
			break
		}
		cs.sendMessage(&dimse.C_FIND_RSP{
			AffectedSOPClassUID:       c.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: c.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNonNull,
			Status:                    dimse.Status{Status: dimse.StatusPending},
		}, payload)
	}
	cs.sendMessage(&dimse.C_FIND_RSP{
		AffectedSOPClassUID:       c.AffectedSOPClassUID,
		MessageIDBeingRespondedTo: c.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    status}, nil)
	// Drain the responses in case of errors
	for _ = range responseCh {
	}
}

func (cs *providerCommandState) handleCMove(c *dimse.C_MOVE_RQ, data []byte) {
	sendError := func(err error) {
		cs.sendMessage(&dimse.C_MOVE_RSP{
			AffectedSOPClassUID:       c.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: c.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    dimse.Status{Status: dimse.StatusUnrecognizedOperation, ErrorComment: err.Error()},
		}, nil)
	}
	if cs.parent.params.CMove == nil {
		cs.sendMessage(&dimse.C_MOVE_RSP{
			AffectedSOPClassUID:       c.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: c.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    dimse.Status{Status: dimse.StatusUnrecognizedOperation, ErrorComment: "No callback found for C-MOVE"},
		}, nil)
		return
	}
	remoteHostPort, ok := cs.parent.params.RemoteAEs[c.MoveDestination]
	if !ok {
		sendError(fmt.Errorf("C-MOVE destination '%v' not registered in the server", c.MoveDestination))
		return
	}
	elems, err := readElementsInBytes(data, cs.context.transferSyntaxUID)
	if err != nil {
		sendError(err)
		return
	}
	glog.V(1).Infof("C-MOVE-RQ payload: %s", elementsString(elems))
	responseCh := cs.parent.params.CMove(cs.context.transferSyntaxUID, c.AffectedSOPClassUID, elems)
	status := dimse.StatusSuccess
	var numSuccesses, numFailures uint16
	for resp := range responseCh {
		if cs.cancelled() {
			status = dimse.Status{Status: dimse.StatusCancel}
			break
		}
		if resp.Err != nil {
			status = dimse.Status{
				Status:       dimse.CFindUnableToProcess,
				ErrorComment: resp.Err.Error(),
			}
			break
		}
		glog.Infof("C-MOVE: Sending %v to %v(%s)", resp.Path, c.MoveDestination, remoteHostPort)
		err := runCStoreOnNewAssociation(cs.parent.params.AETitle, c.MoveDestination, remoteHostPort, resp.DataSet)
		if err != nil {
			glog.Errorf("C-MOVE: C-store of %v to %v(%v) failed: %v", resp.Path, c.MoveDestination, remoteHostPort, err)
			numFailures++
		} else {
			numSuccesses++
		}
		cs.sendMessage(&dimse.C_MOVE_RSP{
			AffectedSOPClassUID:            c.AffectedSOPClassUID,
			MessageIDBeingRespondedTo:      c.MessageID,
			CommandDataSetType:             dimse.CommandDataSetTypeNull,
			NumberOfRemainingSuboperations: uint16(resp.Remaining),
			NumberOfCompletedSuboperations: numSuccesses,
			NumberOfFailedSuboperations:    numFailures,
			Status:                         dimse.Status{Status: dimse.StatusPending},
		}, nil)
	}
	cs.sendMessage(&dimse.C_MOVE_RSP{
		AffectedSOPClassUID:            c.AffectedSOPClassUID,
		MessageIDBeingRespondedTo:      c.MessageID,
		CommandDataSetType:             dimse.CommandDataSetTypeNull,
		NumberOfCompletedSuboperations: numSuccesses,
		NumberOfFailedSuboperations:    numFailures,
		Status:                         status}, nil)
	// Drain the responses in case of errors
	for _ = range responseCh {
	}
}

func (cs *providerCommandState) handleCGet(c *dimse.C_GET_RQ, data []byte) {
	sendError := func(err error) {
		cs.sendMessage(&dimse.C_GET_RSP{
			AffectedSOPClassUID:       c.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: c.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    dimse.Status{Status: dimse.StatusUnrecognizedOperation, ErrorComment: err.Error()},
		}, nil)
	}
	if cs.parent.params.CGet == nil {
		cs.sendMessage(&dimse.C_GET_RSP{
			AffectedSOPClassUID:       c.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: c.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    dimse.Status{Status: dimse.StatusUnrecognizedOperation, ErrorComment: "No callback found for C-GET"},
		}, nil)
		return
	}
	elems, err := readElementsInBytes(data, cs.context.transferSyntaxUID)
	if err != nil {
		sendError(err)
		return
	}
	glog.V(1).Infof("C-GET-RQ payload: %s", elementsString(elems))
	responseCh := cs.parent.params.CGet(cs.context.transferSyntaxUID, c.AffectedSOPClassUID, elems)
	status := dimse.StatusSuccess
	var numSuccesses, numFailures uint16
	for resp := range responseCh {
		if cs.cancelled() {
			status = dimse.Status{Status: dimse.StatusCancel}
			break
		}
		if resp.Err != nil {
			status = dimse.Status{
				Status:       dimse.CFindUnableToProcess,
				ErrorComment: resp.Err.Error(),
			}
			break
		}
		subCs, found := cs.parent.findOrCreateCommand(dimse.NewMessageID(), cs.cm, cs.context /*not used*/)
		glog.Infof("C-GET: Sending %v using subcommand wl id:%d", resp.Path, subCs.messageID)
		if found {
			panic(subCs)
		}
		err := runCStoreOnAssociation(subCs.upcallCh, subCs.parent.downcallCh, subCs.cm, subCs.messageID,
			cs.parent.params.Config.withDefaults().DIMSETimeout, resp.DataSet)
		glog.Infof("C-GET: Done sending %v using subcommand wl id:%d: %v", resp.Path, subCs.messageID, err)
		defer cs.parent.deleteCommand(subCs)
		if err != nil {
			glog.Errorf("C-GET: C-store of %v failed: %v", resp.Path, err)
			numFailures++
		} else {
			glog.Infof("C-GET: Sent %v", resp.Path)
			numSuccesses++
		}
		cs.sendMessage(&dimse.C_GET_RSP{
			AffectedSOPClassUID:            c.AffectedSOPClassUID,
			MessageIDBeingRespondedTo:      c.MessageID,
			CommandDataSetType:             dimse.CommandDataSetTypeNull,
			NumberOfRemainingSuboperations: uint16(resp.Remaining),
			NumberOfCompletedSuboperations: numSuccesses,
			NumberOfFailedSuboperations:    numFailures,
			Status:                         dimse.Status{Status: dimse.StatusPending},
		}, nil)
	}
	cs.sendMessage(&dimse.C_GET_RSP{
		AffectedSOPClassUID:            c.AffectedSOPClassUID,
		MessageIDBeingRespondedTo:      c.MessageID,
		CommandDataSetType:             dimse.CommandDataSetTypeNull,
		NumberOfCompletedSuboperations: numSuccesses,
		NumberOfFailedSuboperations:    numFailures,
		Status:                         status}, nil)
	// Drain the responses in case of errors
	for _ = range responseCh {
	}
}

func (cs *providerCommandState) handleCEcho(c *dimse.C_ECHO_RQ) {
	status := dimse.Status{Status: dimse.StatusUnrecognizedOperation}
	if cs.parent.params.CEcho != nil {
		status = cs.parent.params.CEcho()
	}
	resp := &dimse.C_ECHO_RSP{
		MessageIDBeingRespondedTo: c.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    status,
	}
	cs.sendMessage(resp, nil)
}

func (cs *providerCommandState) handleNEventReport(c *dimse.N_EVENT_REPORT_RQ, data []byte) {
	status := dimse.Status{Status: dimse.StatusUnrecognizedOperation}
	if cs.parent.params.NEventReport != nil {
		status = cs.parent.params.NEventReport(cs.context.transferSyntaxUID, c.AffectedSOPClassUID, c.AffectedSOPInstanceUID, c.EventTypeID, data)
	}
	cs.sendMessage(&dimse.N_EVENT_REPORT_RSP{
		AffectedSOPClassUID:       c.AffectedSOPClassUID,
		AffectedSOPInstanceUID:    c.AffectedSOPInstanceUID,
		MessageIDBeingRespondedTo: c.MessageID,
		EventTypeID:               c.EventTypeID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    status,
	}, nil)
}

func (cs *providerCommandState) handleNGet(c *dimse.N_GET_RQ) {
	status := dimse.Status{Status: dimse.StatusUnrecognizedOperation}
	var respData []byte
	if cs.parent.params.NGet != nil {
		status, respData = cs.parent.params.NGet(cs.context.transferSyntaxUID, c.RequestedSOPClassUID, c.RequestedSOPInstanceUID, c.AttributeIdentifierList)
	}
	cs.sendMessage(&dimse.N_GET_RSP{
		AffectedSOPClassUID:       c.RequestedSOPClassUID,
		AffectedSOPInstanceUID:    c.RequestedSOPInstanceUID,
		MessageIDBeingRespondedTo: c.MessageID,
		CommandDataSetType:        dataSetType(respData),
		Status:                    status,
	}, respData)
}

func (cs *providerCommandState) handleNSet(c *dimse.N_SET_RQ, data []byte) {
	status := dimse.Status{Status: dimse.StatusUnrecognizedOperation}
	var respData []byte
	if cs.parent.params.NSet != nil {
		status, respData = cs.parent.params.NSet(cs.context.transferSyntaxUID, c.RequestedSOPClassUID, c.RequestedSOPInstanceUID, data)
	}
	cs.sendMessage(&dimse.N_SET_RSP{
		AffectedSOPClassUID:       c.RequestedSOPClassUID,
		AffectedSOPInstanceUID:    c.RequestedSOPInstanceUID,
		MessageIDBeingRespondedTo: c.MessageID,
		CommandDataSetType:        dataSetType(respData),
		Status:                    status,
	}, respData)
}

func (cs *providerCommandState) handleNAction(c *dimse.N_ACTION_RQ, data []byte) {
	status := dimse.Status{Status: dimse.StatusUnrecognizedOperation}
	var respData []byte
	if cs.parent.params.NAction != nil {
		status, respData = cs.parent.params.NAction(cs.context.transferSyntaxUID, c.RequestedSOPClassUID, c.RequestedSOPInstanceUID, c.ActionTypeID, data)
	}
	cs.sendMessage(&dimse.N_ACTION_RSP{
		AffectedSOPClassUID:       c.RequestedSOPClassUID,
		AffectedSOPInstanceUID:    c.RequestedSOPInstanceUID,
		MessageIDBeingRespondedTo: c.MessageID,
		ActionTypeID:              c.ActionTypeID,
		CommandDataSetType:        dataSetType(respData),
		Status:                    status,
	}, respData)
}

func (cs *providerCommandState) handleNCreate(c *dimse.N_CREATE_RQ, data []byte) {
	status := dimse.Status{Status: dimse.StatusUnrecognizedOperation}
	sopInstanceUID := c.AffectedSOPInstanceUID
	var respData []byte
	if cs.parent.params.NCreate != nil {
		status, sopInstanceUID, respData = cs.parent.params.NCreate(cs.context.transferSyntaxUID, c.AffectedSOPClassUID, c.AffectedSOPInstanceUID, data)
	}
	cs.sendMessage(&dimse.N_CREATE_RSP{
		AffectedSOPClassUID:       c.AffectedSOPClassUID,
		AffectedSOPInstanceUID:    sopInstanceUID,
		MessageIDBeingRespondedTo: c.MessageID,
		CommandDataSetType:        dataSetType(respData),
		Status:                    status,
	}, respData)
}

func (cs *providerCommandState) handleNDelete(c *dimse.N_DELETE_RQ) {
	status := dimse.Status{Status: dimse.StatusUnrecognizedOperation}
	if cs.parent.params.NDelete != nil {
		status = cs.parent.params.NDelete(cs.context.transferSyntaxUID, c.RequestedSOPClassUID, c.RequestedSOPInstanceUID)
	}
	cs.sendMessage(&dimse.N_DELETE_RSP{
		AffectedSOPClassUID:       c.RequestedSOPClassUID,
		AffectedSOPInstanceUID:    c.RequestedSOPInstanceUID,
		MessageIDBeingRespondedTo: c.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    status,
	}, nil)
}

func dataSetType(data []byte) uint16 {
	if len(data) == 0 {
		return dimse.CommandDataSetTypeNull
	}
	return dimse.CommandDataSetTypeNonNull
}

func (cs *providerCommandState) sendMessage(resp dimse.Message, data []byte) {
	glog.V(1).Infof("Sending PROVIDER message: %v %v", resp, cs.parent)
	payload := &stateEventDIMSEPayload{
		abstractSyntaxName: cs.context.abstractSyntaxUID,
		command:            resp,
		data:               data,
	}
	cs.parent.downcallCh <- stateEvent{
		event:        evt09,
		pdu:          nil,
		conn:         nil,
		dimsePayload: payload,
	}
}

type ServiceProviderParams struct {
	// The application-entity title of the server. Must be nonempty
	AETitle string

	// Names of remote AEs and their host:ports. Used only by C-MOVE. This
	// map should be nonempty iff the server supports CMove.
	RemoteAEs map[string]string

	// Called on C_ECHO request. If nil, a C-ECHO call will produce an error response.
	//
	// TODO(saito) Support a default C-ECHO callback?
	CEcho CEchoCallback

	// Called on C_FIND request.
	// If CFindCallback=nil, a C-FIND call will produce an error response.
	CFind CFindCallback

	// CMove is called on C_MOVE request.
	CMove CMoveCallback

	// CGet is called on C_GET request. The only difference between cmove
	// and cget is that cget uses the same connection to send images back to
	// the requester. Generally you shuold set the same function to CMove
	// and CGet.
	CGet CMoveCallback

	// If CStoreCallback=nil, a C-STORE call will produce an error response.
	CStore CStoreCallback

	// NEventReport is called on N-EVENT-REPORT request (PS3.7 10.1.1). If
	// nil, the request produces an unrecognized-operation response.
	NEventReport NEventReportCallback

	// NGet is called on N-GET request (PS3.7 10.1.2). If nil, the request
	// produces an unrecognized-operation response.
	NGet NGetCallback

	// NSet is called on N-SET request (PS3.7 10.1.3).
	NSet NSetCallback

	// NAction is called on N-ACTION request (PS3.7 10.1.4).
	NAction NActionCallback

	// NCreate is called on N-CREATE request (PS3.7 10.1.5). It returns the
	// SOP Instance UID of the created object; if the request already named
	// one, callbacks may just echo it back.
	NCreate NCreateCallback

	// NDelete is called on N-DELETE request (PS3.7 10.1.6).
	NDelete NDeleteCallback

	// SupportedServices lists the abstract syntaxes this provider accepts
	// in presentation-context negotiation. A proposal for an abstract
	// syntax not in this list is rejected with result 3 (abstract syntax
	// not supported).
	SupportedServices []sopclass.SOPUID

	// SupportedTransferSyntaxes lists, in preference order, the transfer
	// syntaxes this provider can decode. The first one common to a
	// proposal's list wins; if none match, the context is rejected with
	// result 4 (transfer syntax not supported).
	SupportedTransferSyntaxes []string

	// RoleSelections states this provider's role opinion per abstract
	// syntax, consulted when the requestor proposes role selection for
	// that abstract syntax (PS3.7 Annex D.3.3.4).
	RoleSelections map[string]RoleSelection

	// Config carries timeouts, the TLS wrap extension point, and the
	// non-conformant-UID switch.
	Config Config
}

// CStoreCallback is called C-STORE request.  sopInstanceUID are the IDs of the
// data.  sopClassUID is the data type requested
// (e.g.,"1.2.840.10008.5.1.4.1.1.1.2"), and transferSyntaxUID is the data
// encoding requested (e.g., "1.2.840.10008.1.2.1").  These args come from the
// request packat.
//
// "data" is the payload, i.e., a sequence of serialized
// dicom.DataElement objects.  Note that "data" usually does not contain
// metadata elements (elements whose tag.group=2 -- those include
// TransferSyntaxUID and MediaStorageSOPClassUID), since they are
// stripped by the requstor (two key metadata are passed as
// sop{Class,Instance)UID).
//
// The handler should store encode the sop{Class,InstanceUID} as the
// DICOM header, followed by data. It should return dimse.StatusSuccess on
// success, or a Status carrying one of the CStoreStatus* error codes.
type CStoreCallback func(
	transferSyntaxUID string,
	sopClassUID string,
	sopInstanceUID string,
	data []byte) dimse.Status

// CFindCallback implements a C-FIND handler.  sopClassUID is the data type
// requested (e.g.,"1.2.840.10008.5.1.4.1.1.1.2"), and transferSyntaxUID is the
// data encoding requested (e.g., "1.2.840.10008.1.2.1").  hese args come from
// the request packat.
//
// This function should create and return a
// channel that streams CFindResult objects. To report a matched DICOM dataset,
// the callback should send one CFindResult with nonempty Elements field. To
// report multiple DICOM-dataset matches, the callback should send multiple
// CFindResult objects, one for each dataset.  The callback must close the
// channel after it produces all the responses.
type CFindCallback func(
	transferSyntaxUID string,
	sopClassUID string,
	filters []*dicom.Element) chan CFindResult

// CMoveCallback implements C-MOVE or C-GET handler.  sopClassUID is the data
// type requested (e.g.,"1.2.840.10008.5.1.4.1.1.1.2"), and transferSyntaxUID is
// the data encoding requested (e.g., "1.2.840.10008.1.2.1").  hese args come
// from the request packat.
//
// On return, it should return a channel that streams
// datasets to be sent to the remote client.  The callback must close the
// channel after it produces all the datasets.
type CMoveCallback func(
	transferSyntaxUID string,
	sopClassUID string,
	filters []*dicom.Element) chan CMoveResult

// CEchoCallback implements C-ECHO callback. It typically just returns
// dimse.StatusSuccess.
type CEchoCallback func() dimse.Status

// NEventReportCallback implements an N-EVENT-REPORT handler (PS3.7 10.1.1).
// eventTypeID identifies the event and data is the optional event
// information dataset, encoded per transferSyntaxUID.
type NEventReportCallback func(
	transferSyntaxUID, sopClassUID, sopInstanceUID string,
	eventTypeID uint16, data []byte) dimse.Status

// NGetCallback implements an N-GET handler (PS3.7 10.1.2). attrs lists the
// requested attribute tags; an empty list means "all attributes". It
// returns the status and the encoded attribute dataset to send back.
type NGetCallback func(
	transferSyntaxUID, sopClassUID, sopInstanceUID string,
	attrs []dicom.Tag) (dimse.Status, []byte)

// NSetCallback implements an N-SET handler (PS3.7 10.1.3). data is the
// encoded modification list; it returns the status and any attributes the
// SCP wants to report back.
type NSetCallback func(
	transferSyntaxUID, sopClassUID, sopInstanceUID string,
	data []byte) (dimse.Status, []byte)

// NActionCallback implements an N-ACTION handler (PS3.7 10.1.4).
type NActionCallback func(
	transferSyntaxUID, sopClassUID, sopInstanceUID string,
	actionTypeID uint16, data []byte) (dimse.Status, []byte)

// NCreateCallback implements an N-CREATE handler (PS3.7 10.1.5). It returns
// the status, the SOP Instance UID assigned to the new object (the request
// may leave this to the SCP to assign), and the attribute dataset to report.
type NCreateCallback func(
	transferSyntaxUID, sopClassUID, sopInstanceUID string,
	data []byte) (dimse.Status, string, []byte)

// NDeleteCallback implements an N-DELETE handler (PS3.7 10.1.6).
type NDeleteCallback func(transferSyntaxUID, sopClassUID, sopInstanceUID string) dimse.Status

// ServiceProvider encapsulates the state for DICOM server (provider).
type ServiceProvider struct {
	params ServiceProviderParams
}

func writeElementsToBytes(elems []*dicom.Element, transferSyntaxUID string) ([]byte, error) {
	dataEncoder := dicomio.NewBytesEncoderWithTransferSyntax(transferSyntaxUID)
	for _, elem := range elems {
		dicom.WriteElement(dataEncoder, elem)
	}
	if err := dataEncoder.Error(); err != nil {
		return nil, err
	}
	return dataEncoder.Bytes(), nil
}

func readElementsInBytes(data []byte, transferSyntaxUID string) ([]*dicom.Element, error) {
	decoder := dicomio.NewBytesDecoderWithTransferSyntax(data, transferSyntaxUID)
	var elems []*dicom.Element
	for decoder.Len() > 0 {
		elem := dicom.ReadElement(decoder, dicom.ReadOptions{})
		glog.V(1).Infof("C-FIND: Read elem: %v, err %v", elem, decoder.Error())
		if decoder.Error() != nil {
			break
		}
		elems = append(elems, elem)
	}
	if decoder.Error() != nil {
		return nil, decoder.Error()
	}
	return elems, nil
}

func elementsString(elems []*dicom.Element) string {
	s := "["
	for i, elem := range elems {
		if i > 0 {
			s += ", "
		}
		s += elem.String()
	}
	return s + "]"
}

// Send "ds" to remoteHostPort using C-STORE. Called as part of C-MOVE.
func runCStoreOnNewAssociation(myAETitle, remoteAETitle, remoteHostPort string, ds *dicom.DataSet) error {
	params, err := NewServiceUserParams(remoteAETitle, myAETitle, sopclass.StorageClasses, nil)
	if err != nil {
		return err
	}
	su := NewServiceUser(params)
	defer su.Release()
	su.Connect(remoteHostPort)
	err = su.CStore(ds)
	glog.V(1).Infof("C-STORE subop done: %v", err)
	return err
}

func (dh *providerCommandDispatcher) handleEvent(event upcallEvent) {
	context, err := event.cm.lookupByContextID(event.contextID)
	if err != nil {
		glog.Infof("Invalid context ID %d: %v", event.contextID, err)
		dh.downcallCh <- stateEvent{event: evt19, pdu: nil, err: err}
		return
	}
	if cancel, ok := event.command.(*dimse.C_CANCEL_RQ); ok {
		// C-CANCEL-RQ carries the MessageID of the operation being
		// cancelled in its own MessageIDBeingRespondedTo field (PS3.7
		// 9.3.2.1), so GetMessageID() already names the right command. A
		// cancel for an operation that already finished (or never
		// existed) is simply dropped; PS3.7 doesn't require a response.
		dh.mu.Lock()
		cs, ok := dh.activeCommands[cancel.MessageIDBeingRespondedTo]
		dh.mu.Unlock()
		if ok {
			select {
			case <-cs.cancelCh:
			default:
				close(cs.cancelCh)
			}
		}
		return
	}
	messageID := event.command.GetMessageID()
	dc, found := dh.findOrCreateCommand(messageID, event.cm, context)
	if found {
		glog.V(1).Infof("Forwarding command to existing command: %+v", event.command, dc)
		dc.upcallCh <- event
		glog.V(1).Infof("Done forwarding command to existing command: %+v", event.command, dc)
		return
	}
	go func() {
		defer dh.deleteCommand(dc)
		switch c := event.command.(type) {
		case *dimse.C_STORE_RQ:
			dc.handleCStore(c, event.data)
		case *dimse.C_FIND_RQ:
			dc.handleCFind(c, event.data)
		case *dimse.C_MOVE_RQ:
			dc.handleCMove(c, event.data)
		case *dimse.C_GET_RQ:
			dc.handleCGet(c, event.data)
		case *dimse.C_ECHO_RQ:
			dc.handleCEcho(c)
		case *dimse.N_EVENT_REPORT_RQ:
			dc.handleNEventReport(c, event.data)
		case *dimse.N_GET_RQ:
			dc.handleNGet(c)
		case *dimse.N_SET_RQ:
			dc.handleNSet(c, event.data)
		case *dimse.N_ACTION_RQ:
			dc.handleNAction(c, event.data)
		case *dimse.N_CREATE_RQ:
			dc.handleNCreate(c, event.data)
		case *dimse.N_DELETE_RQ:
			dc.handleNDelete(c)
		default:
			glog.Errorf("Unknown PROVIDER message type: %v", c)
			dh.downcallCh <- stateEvent{event: evt19, pdu: nil, err: fmt.Errorf("unsupported DIMSE command %T", c)}
		}
	}()
}

// NewServiceProvider creates a new DICOM server object. Run() will actually
// start running the service.
func NewServiceProvider(params ServiceProviderParams) *ServiceProvider {
	if err := params.Config.withDefaults().Validate(); err != nil {
		glog.Fatalf("netdicom: %v", err)
	}
	sp := &ServiceProvider{params: params}
	return sp
}

// RunProviderForConn runs a DICOM server on "conn". It blocks until the
// association on "conn" has finished; Run calls it on a new goroutine for
// each accepted connection.
func RunProviderForConn(conn net.Conn, params ServiceProviderParams) {
	cfg := params.Config.withDefaults()
	t, err := wrapTransport(conn, cfg.TLSWrap, cfg.NetworkTimeout)
	if err != nil {
		glog.Errorf("Failed to prepare transport: %v", err)
		conn.Close()
		return
	}
	upcallCh := make(chan upcallEvent, 128)
	dc := providerCommandDispatcher{
		downcallCh:     make(chan stateEvent, 128),
		params:         params,
		associationID:  uuid.NewString(),
		activeCommands: make(map[uint16]*providerCommandState),
	}

	go runStateMachineForServiceProvider(t, params, upcallCh, dc.downcallCh)
	handshakeCompleted := false
	for event := range upcallCh {
		if event.eventType == upcallEventHandshakeCompleted {
			doassert(!handshakeCompleted)
			handshakeCompleted = true
			glog.Infof("Association %s established from %v", dc.associationID, conn.RemoteAddr())
			continue
		}
		doassert(event.eventType == upcallEventData)
		doassert(event.command != nil)
		doassert(handshakeCompleted == true)
		dc.handleEvent(event)
	}
	glog.V(2).Infof("Association %s finished", dc.associationID)
}

// Run listens to incoming connections, accepts them, and runs the DICOM
// protocol. This function never returns unless it fails to listen.
// "listenAddr" is the TCP address to listen to. E.g., ":1234" will listen to
// port 1234 at all the IP address that this machine can bind to.
func (sp *ServiceProvider) Run(listenAddr string) error {
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	for {
		conn, err := listener.Accept()
		if err != nil {
			glog.Errorf("Accept error: %v", err)
			continue
		}
		go func() { RunProviderForConn(conn, sp.params) }()
	}
}
