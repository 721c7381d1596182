package netdicom

// Client-side DIMSE-N senders. Each normalized operation is a single
// request/response exchange on an already-established association, following
// the same sendMessage-then-await shape as ServiceUser.CEcho. Datasets are
// opaque byte payloads encoded per the accepted transfer syntax of the
// presentation context; this layer never inspects them.

import (
	"fmt"

	"github.com/dcmweld/netdicom/dimse"
	"github.com/yasushi-saito/go-dicom"
)

// awaitNResponse waits for the single response to an N-service request,
// bounded by the DIMSE timeout, and hands back the raw upcall event.
func (su *ServiceUser) awaitNResponse(cs *serviceCommandState, op string) (upcallEvent, error) {
	event, err := awaitFirstResponse(cs.upcallCh, su.disp.downcallCh, su.params.Config.withDefaults().DIMSETimeout)
	if err != nil {
		return upcallEvent{}, fmt.Errorf("netdicom: %s: %w", op, err)
	}
	doassert(event.eventType == upcallEventData)
	doassert(event.command != nil)
	return event, nil
}

func statusToError(s dimse.Status) error {
	if s.Success() {
		return nil
	}
	return &ServiceError{Status: uint16(s.Status), Comment: s.ErrorComment}
}

// NEventReport sends an N-EVENT-REPORT request for the given SOP instance.
// data is the optional event-information dataset, already encoded per the
// context's transfer syntax. The peer's event-reply dataset, if any, is
// returned.
func (su *ServiceUser) NEventReport(sopClassUID, sopInstanceUID string, eventTypeID uint16, data []byte) ([]byte, error) {
	if err := su.waitUntilReady(); err != nil {
		return nil, err
	}
	context, err := su.cm.lookupByAbstractSyntaxUID(sopClassUID)
	if err != nil {
		return nil, err
	}
	cs, found := su.disp.findOrCreateCommand(dimse.NewMessageID(), su.cm, context)
	doassert(!found)
	defer su.disp.deleteCommand(cs)
	cs.sendMessage(&dimse.N_EVENT_REPORT_RQ{
		AffectedSOPClassUID:    sopClassUID,
		AffectedSOPInstanceUID: sopInstanceUID,
		MessageID:              cs.messageID,
		EventTypeID:            eventTypeID,
		CommandDataSetType:     dataSetType(data),
	}, data)
	event, err := su.awaitNResponse(cs, "N-EVENT-REPORT")
	if err != nil {
		return nil, err
	}
	resp, ok := event.command.(*dimse.N_EVENT_REPORT_RSP)
	if !ok {
		return nil, fmt.Errorf("netdicom: N-EVENT-REPORT: unexpected response type %T", event.command)
	}
	return event.data, statusToError(resp.Status)
}

// NGet retrieves attribute values of the given SOP instance. attrs lists the
// requested attribute tags; empty means all. The returned bytes are the
// attribute dataset encoded per the context's transfer syntax.
func (su *ServiceUser) NGet(sopClassUID, sopInstanceUID string, attrs []dicom.Tag) ([]byte, error) {
	if err := su.waitUntilReady(); err != nil {
		return nil, err
	}
	context, err := su.cm.lookupByAbstractSyntaxUID(sopClassUID)
	if err != nil {
		return nil, err
	}
	cs, found := su.disp.findOrCreateCommand(dimse.NewMessageID(), su.cm, context)
	doassert(!found)
	defer su.disp.deleteCommand(cs)
	cs.sendMessage(&dimse.N_GET_RQ{
		RequestedSOPClassUID:    sopClassUID,
		RequestedSOPInstanceUID: sopInstanceUID,
		MessageID:               cs.messageID,
		AttributeIdentifierList: attrs,
		CommandDataSetType:      dimse.CommandDataSetTypeNull,
	}, nil)
	event, err := su.awaitNResponse(cs, "N-GET")
	if err != nil {
		return nil, err
	}
	resp, ok := event.command.(*dimse.N_GET_RSP)
	if !ok {
		return nil, fmt.Errorf("netdicom: N-GET: unexpected response type %T", event.command)
	}
	return event.data, statusToError(resp.Status)
}

// NSet modifies attribute values of the given SOP instance. data is the
// modification list dataset. Attributes the peer reports back, if any, are
// returned.
func (su *ServiceUser) NSet(sopClassUID, sopInstanceUID string, data []byte) ([]byte, error) {
	if err := su.waitUntilReady(); err != nil {
		return nil, err
	}
	context, err := su.cm.lookupByAbstractSyntaxUID(sopClassUID)
	if err != nil {
		return nil, err
	}
	cs, found := su.disp.findOrCreateCommand(dimse.NewMessageID(), su.cm, context)
	doassert(!found)
	defer su.disp.deleteCommand(cs)
	cs.sendMessage(&dimse.N_SET_RQ{
		RequestedSOPClassUID:    sopClassUID,
		RequestedSOPInstanceUID: sopInstanceUID,
		MessageID:               cs.messageID,
		CommandDataSetType:      dataSetType(data),
	}, data)
	event, err := su.awaitNResponse(cs, "N-SET")
	if err != nil {
		return nil, err
	}
	resp, ok := event.command.(*dimse.N_SET_RSP)
	if !ok {
		return nil, fmt.Errorf("netdicom: N-SET: unexpected response type %T", event.command)
	}
	return event.data, statusToError(resp.Status)
}

// NAction requests the peer to perform actionTypeID on the given SOP
// instance. data is the optional action-information dataset; the action
// reply dataset, if any, is returned.
func (su *ServiceUser) NAction(sopClassUID, sopInstanceUID string, actionTypeID uint16, data []byte) ([]byte, error) {
	if err := su.waitUntilReady(); err != nil {
		return nil, err
	}
	context, err := su.cm.lookupByAbstractSyntaxUID(sopClassUID)
	if err != nil {
		return nil, err
	}
	cs, found := su.disp.findOrCreateCommand(dimse.NewMessageID(), su.cm, context)
	doassert(!found)
	defer su.disp.deleteCommand(cs)
	cs.sendMessage(&dimse.N_ACTION_RQ{
		RequestedSOPClassUID:    sopClassUID,
		RequestedSOPInstanceUID: sopInstanceUID,
		MessageID:               cs.messageID,
		ActionTypeID:            actionTypeID,
		CommandDataSetType:      dataSetType(data),
	}, data)
	event, err := su.awaitNResponse(cs, "N-ACTION")
	if err != nil {
		return nil, err
	}
	resp, ok := event.command.(*dimse.N_ACTION_RSP)
	if !ok {
		return nil, fmt.Errorf("netdicom: N-ACTION: unexpected response type %T", event.command)
	}
	return event.data, statusToError(resp.Status)
}

// NCreate asks the peer to create a new SOP instance. sopInstanceUID may be
// empty to let the peer assign one; the UID actually assigned is returned
// along with any attribute dataset the peer reports.
func (su *ServiceUser) NCreate(sopClassUID, sopInstanceUID string, data []byte) (string, []byte, error) {
	if err := su.waitUntilReady(); err != nil {
		return "", nil, err
	}
	context, err := su.cm.lookupByAbstractSyntaxUID(sopClassUID)
	if err != nil {
		return "", nil, err
	}
	cs, found := su.disp.findOrCreateCommand(dimse.NewMessageID(), su.cm, context)
	doassert(!found)
	defer su.disp.deleteCommand(cs)
	cs.sendMessage(&dimse.N_CREATE_RQ{
		AffectedSOPClassUID:    sopClassUID,
		AffectedSOPInstanceUID: sopInstanceUID,
		MessageID:              cs.messageID,
		CommandDataSetType:     dataSetType(data),
	}, data)
	event, err := su.awaitNResponse(cs, "N-CREATE")
	if err != nil {
		return "", nil, err
	}
	resp, ok := event.command.(*dimse.N_CREATE_RSP)
	if !ok {
		return "", nil, fmt.Errorf("netdicom: N-CREATE: unexpected response type %T", event.command)
	}
	return resp.AffectedSOPInstanceUID, event.data, statusToError(resp.Status)
}

// NDelete asks the peer to delete the given SOP instance.
func (su *ServiceUser) NDelete(sopClassUID, sopInstanceUID string) error {
	if err := su.waitUntilReady(); err != nil {
		return err
	}
	context, err := su.cm.lookupByAbstractSyntaxUID(sopClassUID)
	if err != nil {
		return err
	}
	cs, found := su.disp.findOrCreateCommand(dimse.NewMessageID(), su.cm, context)
	doassert(!found)
	defer su.disp.deleteCommand(cs)
	cs.sendMessage(&dimse.N_DELETE_RQ{
		RequestedSOPClassUID:    sopClassUID,
		RequestedSOPInstanceUID: sopInstanceUID,
		MessageID:               cs.messageID,
		CommandDataSetType:      dimse.CommandDataSetTypeNull,
	}, nil)
	event, err := su.awaitNResponse(cs, "N-DELETE")
	if err != nil {
		return err
	}
	resp, ok := event.command.(*dimse.N_DELETE_RSP)
	if !ok {
		return fmt.Errorf("netdicom: N-DELETE: unexpected response type %T", event.command)
	}
	return statusToError(resp.Status)
}
