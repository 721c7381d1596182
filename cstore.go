package netdicom

// runCStoreOnAssociation sends one dataset as a C-STORE request over an
// already-established association and waits for its response. It backs
// ServiceUser.CStore (serviceuser.go) and the acceptor's C-GET
// sub-operations (serviceprovider.go's handleCGet): both need to push a
// dataset down the same upcall/downcall plumbing an ordinary command uses,
// so the encode-send-wait sequence lives here once instead of twice.

import (
	"fmt"
	"time"

	"github.com/dcmweld/netdicom/dimse"
	"github.com/yasushi-saito/go-dicom"
	"github.com/yasushi-saito/go-dicom/dicomio"
)

func runCStoreOnAssociation(
	upcallCh chan upcallEvent,
	downcallCh chan stateEvent,
	cm *contextManager,
	messageID uint16,
	dimseTimeout time.Duration,
	ds *dicom.DataSet) error {
	sopInstanceUIDElem, err := ds.FindElementByTag(dicom.TagMediaStorageSOPInstanceUID)
	if err != nil {
		return fmt.Errorf("netdicom: C-STORE: data lacks SOPInstanceUID: %v", err)
	}
	sopInstanceUID, err := sopInstanceUIDElem.GetString()
	if err != nil {
		return err
	}
	sopClassUIDElem, err := ds.FindElementByTag(dicom.TagMediaStorageSOPClassUID)
	if err != nil {
		return fmt.Errorf("netdicom: C-STORE: data lacks SOPClassUID: %v", err)
	}
	sopClassUID, err := sopClassUIDElem.GetString()
	if err != nil {
		return err
	}
	context, err := cm.lookupByAbstractSyntaxUID(sopClassUID)
	if err != nil {
		return err
	}

	dataEncoder := dicomio.NewBytesEncoderWithTransferSyntax(context.transferSyntaxUID)
	for _, elem := range ds.Elements {
		if elem.Tag.Group == dicom.TagMetadataGroup {
			// File-meta elements (group 2) are carried by the presentation
			// context and the command set, not re-sent in the data set.
			continue
		}
		dicom.WriteElement(dataEncoder, elem)
	}
	if err := dataEncoder.Error(); err != nil {
		return err
	}

	downcallCh <- stateEvent{
		event: evt09,
		dimsePayload: &stateEventDIMSEPayload{
			abstractSyntaxName: sopClassUID,
			command: &dimse.C_STORE_RQ{
				AffectedSOPClassUID:    sopClassUID,
				MessageID:              messageID,
				CommandDataSetType:     dimse.CommandDataSetTypeNonNull,
				AffectedSOPInstanceUID: sopInstanceUID,
			},
			data: dataEncoder.Bytes(),
		},
	}
	event, err := awaitFirstResponse(upcallCh, downcallCh, dimseTimeout)
	if err != nil {
		return err
	}
	doassert(event.eventType == upcallEventData)
	doassert(event.command != nil)
	resp, ok := event.command.(*dimse.C_STORE_RSP)
	if !ok {
		return fmt.Errorf("netdicom: C-STORE: unexpected response type %T", event.command)
	}
	if resp.Status.Status != dimse.StatusSuccess.Status {
		return &ServiceError{Status: uint16(resp.Status.Status), Comment: resp.Status.ErrorComment}
	}
	return nil
}
