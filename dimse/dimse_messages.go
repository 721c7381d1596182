package dimse

// DIMSE-C and DIMSE-N command messages. PS3.7 9.3.

import (
	"fmt"

	"github.com/yasushi-saito/go-dicom"
	"github.com/yasushi-saito/go-dicom/dicomio"
)

type C_STORE_RQ struct {
	AffectedSOPClassUID                  string
	MessageID                            uint16
	Priority                             uint16
	CommandDataSetType                   uint16
	AffectedSOPInstanceUID               string
	MoveOriginatorApplicationEntityTitle string
	MoveOriginatorMessageID              uint16
	Extra                                []*dicom.Element
}

func (v *C_STORE_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldC_STORE_RQ))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagMessageID, v.MessageID)
	encodeField(e, dicom.TagPriority, v.Priority)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	encodeField(e, dicom.TagAffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
	if v.MoveOriginatorApplicationEntityTitle != "" {
		encodeField(e, dicom.TagMoveOriginatorApplicationEntityTitle, v.MoveOriginatorApplicationEntityTitle)
	}
	if v.MoveOriginatorMessageID != 0 {
		encodeField(e, dicom.TagMoveOriginatorMessageID, v.MoveOriginatorMessageID)
	}
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *C_STORE_RQ) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *C_STORE_RQ) GetMessageID() uint16 { return v.MessageID }
func (v *C_STORE_RQ) CommandField() int    { return CommandFieldC_STORE_RQ }
func (v *C_STORE_RQ) String() string {
	return fmt.Sprintf("C_STORE_RQ{AffectedSOPClassUID:%v MessageID:%v Priority:%v CommandDataSetType:%v AffectedSOPInstanceUID:%v MoveOriginatorApplicationEntityTitle:%v MoveOriginatorMessageID:%v}",
		v.AffectedSOPClassUID, v.MessageID, v.Priority, v.CommandDataSetType, v.AffectedSOPInstanceUID, v.MoveOriginatorApplicationEntityTitle, v.MoveOriginatorMessageID)
}

func decodeC_STORE_RQ(d *dimseDecoder) *C_STORE_RQ {
	v := &C_STORE_RQ{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, RequiredElement)
	v.MessageID = d.getUInt16(dicom.TagMessageID, RequiredElement)
	v.Priority = d.getUInt16(dicom.TagPriority, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.AffectedSOPInstanceUID = d.getString(dicom.TagAffectedSOPInstanceUID, RequiredElement)
	v.MoveOriginatorApplicationEntityTitle = d.getString(dicom.TagMoveOriginatorApplicationEntityTitle, OptionalElement)
	v.MoveOriginatorMessageID = d.getUInt16(dicom.TagMoveOriginatorMessageID, OptionalElement)
	v.Extra = d.unparsedElements()
	return v
}

type C_STORE_RSP struct {
	AffectedSOPClassUID       string
	MessageIDBeingRespondedTo uint16
	CommandDataSetType        uint16
	AffectedSOPInstanceUID    string
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *C_STORE_RSP) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldC_STORE_RSP))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	encodeField(e, dicom.TagAffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
	encodeStatus(e, v.Status)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *C_STORE_RSP) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *C_STORE_RSP) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *C_STORE_RSP) CommandField() int    { return CommandFieldC_STORE_RSP }
func (v *C_STORE_RSP) String() string {
	return fmt.Sprintf("C_STORE_RSP{AffectedSOPClassUID:%v MessageIDBeingRespondedTo:%v CommandDataSetType:%v AffectedSOPInstanceUID:%v Status:%v}",
		v.AffectedSOPClassUID, v.MessageIDBeingRespondedTo, v.CommandDataSetType, v.AffectedSOPInstanceUID, v.Status)
}

func decodeC_STORE_RSP(d *dimseDecoder) *C_STORE_RSP {
	v := &C_STORE_RSP{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, RequiredElement)
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.AffectedSOPInstanceUID = d.getString(dicom.TagAffectedSOPInstanceUID, RequiredElement)
	v.Status = d.getStatus()
	v.Extra = d.unparsedElements()
	return v
}

type C_FIND_RQ struct {
	AffectedSOPClassUID string
	MessageID           uint16
	Priority            uint16
	CommandDataSetType  uint16
	Extra               []*dicom.Element
}

func (v *C_FIND_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldC_FIND_RQ))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagMessageID, v.MessageID)
	encodeField(e, dicom.TagPriority, v.Priority)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *C_FIND_RQ) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *C_FIND_RQ) GetMessageID() uint16 { return v.MessageID }
func (v *C_FIND_RQ) CommandField() int    { return CommandFieldC_FIND_RQ }
func (v *C_FIND_RQ) String() string {
	return fmt.Sprintf("C_FIND_RQ{AffectedSOPClassUID:%v MessageID:%v Priority:%v CommandDataSetType:%v}",
		v.AffectedSOPClassUID, v.MessageID, v.Priority, v.CommandDataSetType)
}

func decodeC_FIND_RQ(d *dimseDecoder) *C_FIND_RQ {
	v := &C_FIND_RQ{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, RequiredElement)
	v.MessageID = d.getUInt16(dicom.TagMessageID, RequiredElement)
	v.Priority = d.getUInt16(dicom.TagPriority, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Extra = d.unparsedElements()
	return v
}

type C_FIND_RSP struct {
	AffectedSOPClassUID       string
	MessageIDBeingRespondedTo uint16
	CommandDataSetType        uint16
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *C_FIND_RSP) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldC_FIND_RSP))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	encodeStatus(e, v.Status)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *C_FIND_RSP) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *C_FIND_RSP) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *C_FIND_RSP) CommandField() int    { return CommandFieldC_FIND_RSP }
func (v *C_FIND_RSP) String() string {
	return fmt.Sprintf("C_FIND_RSP{AffectedSOPClassUID:%v MessageIDBeingRespondedTo:%v CommandDataSetType:%v Status:%v}",
		v.AffectedSOPClassUID, v.MessageIDBeingRespondedTo, v.CommandDataSetType, v.Status)
}

func decodeC_FIND_RSP(d *dimseDecoder) *C_FIND_RSP {
	v := &C_FIND_RSP{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, RequiredElement)
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Status = d.getStatus()
	v.Extra = d.unparsedElements()
	return v
}

// C_GET_RQ/RSP and C_MOVE_RQ/RSP share the same sub-operation counters;
// C-MOVE additionally carries the destination AE title.

type C_GET_RQ struct {
	AffectedSOPClassUID string
	MessageID           uint16
	Priority            uint16
	CommandDataSetType  uint16
	Extra               []*dicom.Element
}

func (v *C_GET_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldC_GET_RQ))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagMessageID, v.MessageID)
	encodeField(e, dicom.TagPriority, v.Priority)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *C_GET_RQ) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *C_GET_RQ) GetMessageID() uint16 { return v.MessageID }
func (v *C_GET_RQ) CommandField() int    { return CommandFieldC_GET_RQ }
func (v *C_GET_RQ) String() string {
	return fmt.Sprintf("C_GET_RQ{AffectedSOPClassUID:%v MessageID:%v Priority:%v CommandDataSetType:%v}",
		v.AffectedSOPClassUID, v.MessageID, v.Priority, v.CommandDataSetType)
}

func decodeC_GET_RQ(d *dimseDecoder) *C_GET_RQ {
	v := &C_GET_RQ{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, RequiredElement)
	v.MessageID = d.getUInt16(dicom.TagMessageID, RequiredElement)
	v.Priority = d.getUInt16(dicom.TagPriority, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Extra = d.unparsedElements()
	return v
}

type C_GET_RSP struct {
	AffectedSOPClassUID            string
	MessageIDBeingRespondedTo      uint16
	CommandDataSetType             uint16
	NumberOfRemainingSuboperations uint16
	NumberOfCompletedSuboperations uint16
	NumberOfFailedSuboperations    uint16
	NumberOfWarningSuboperations   uint16
	Status                         Status
	Extra                          []*dicom.Element
}

func (v *C_GET_RSP) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldC_GET_RSP))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	if v.NumberOfRemainingSuboperations != 0 {
		encodeField(e, dicom.TagNumberOfRemainingSuboperations, v.NumberOfRemainingSuboperations)
	}
	encodeField(e, dicom.TagNumberOfCompletedSuboperations, v.NumberOfCompletedSuboperations)
	encodeField(e, dicom.TagNumberOfFailedSuboperations, v.NumberOfFailedSuboperations)
	encodeField(e, dicom.TagNumberOfWarningSuboperations, v.NumberOfWarningSuboperations)
	encodeStatus(e, v.Status)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *C_GET_RSP) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *C_GET_RSP) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *C_GET_RSP) CommandField() int    { return CommandFieldC_GET_RSP }
func (v *C_GET_RSP) String() string {
	return fmt.Sprintf("C_GET_RSP{AffectedSOPClassUID:%v MessageIDBeingRespondedTo:%v Remaining:%v Completed:%v Failed:%v Warning:%v Status:%v}",
		v.AffectedSOPClassUID, v.MessageIDBeingRespondedTo, v.NumberOfRemainingSuboperations, v.NumberOfCompletedSuboperations, v.NumberOfFailedSuboperations, v.NumberOfWarningSuboperations, v.Status)
}

func decodeC_GET_RSP(d *dimseDecoder) *C_GET_RSP {
	v := &C_GET_RSP{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, OptionalElement)
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.NumberOfRemainingSuboperations = d.getUInt16(dicom.TagNumberOfRemainingSuboperations, OptionalElement)
	v.NumberOfCompletedSuboperations = d.getUInt16(dicom.TagNumberOfCompletedSuboperations, OptionalElement)
	v.NumberOfFailedSuboperations = d.getUInt16(dicom.TagNumberOfFailedSuboperations, OptionalElement)
	v.NumberOfWarningSuboperations = d.getUInt16(dicom.TagNumberOfWarningSuboperations, OptionalElement)
	v.Status = d.getStatus()
	v.Extra = d.unparsedElements()
	return v
}

type C_MOVE_RQ struct {
	AffectedSOPClassUID string
	MessageID           uint16
	Priority            uint16
	MoveDestination     string
	CommandDataSetType  uint16
	Extra               []*dicom.Element
}

func (v *C_MOVE_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldC_MOVE_RQ))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagMessageID, v.MessageID)
	encodeField(e, dicom.TagPriority, v.Priority)
	encodeField(e, dicom.TagMoveDestination, v.MoveDestination)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *C_MOVE_RQ) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *C_MOVE_RQ) GetMessageID() uint16 { return v.MessageID }
func (v *C_MOVE_RQ) CommandField() int    { return CommandFieldC_MOVE_RQ }
func (v *C_MOVE_RQ) String() string {
	return fmt.Sprintf("C_MOVE_RQ{AffectedSOPClassUID:%v MessageID:%v Priority:%v MoveDestination:%v CommandDataSetType:%v}",
		v.AffectedSOPClassUID, v.MessageID, v.Priority, v.MoveDestination, v.CommandDataSetType)
}

func decodeC_MOVE_RQ(d *dimseDecoder) *C_MOVE_RQ {
	v := &C_MOVE_RQ{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, RequiredElement)
	v.MessageID = d.getUInt16(dicom.TagMessageID, RequiredElement)
	v.Priority = d.getUInt16(dicom.TagPriority, RequiredElement)
	v.MoveDestination = d.getString(dicom.TagMoveDestination, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Extra = d.unparsedElements()
	return v
}

type C_MOVE_RSP struct {
	AffectedSOPClassUID            string
	MessageIDBeingRespondedTo      uint16
	CommandDataSetType             uint16
	NumberOfRemainingSuboperations uint16
	NumberOfCompletedSuboperations uint16
	NumberOfFailedSuboperations    uint16
	NumberOfWarningSuboperations   uint16
	Status                         Status
	Extra                          []*dicom.Element
}

func (v *C_MOVE_RSP) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldC_MOVE_RSP))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	if v.NumberOfRemainingSuboperations != 0 {
		encodeField(e, dicom.TagNumberOfRemainingSuboperations, v.NumberOfRemainingSuboperations)
	}
	encodeField(e, dicom.TagNumberOfCompletedSuboperations, v.NumberOfCompletedSuboperations)
	encodeField(e, dicom.TagNumberOfFailedSuboperations, v.NumberOfFailedSuboperations)
	encodeField(e, dicom.TagNumberOfWarningSuboperations, v.NumberOfWarningSuboperations)
	encodeStatus(e, v.Status)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *C_MOVE_RSP) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *C_MOVE_RSP) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *C_MOVE_RSP) CommandField() int    { return CommandFieldC_MOVE_RSP }
func (v *C_MOVE_RSP) String() string {
	return fmt.Sprintf("C_MOVE_RSP{AffectedSOPClassUID:%v MessageIDBeingRespondedTo:%v Remaining:%v Completed:%v Failed:%v Warning:%v Status:%v}",
		v.AffectedSOPClassUID, v.MessageIDBeingRespondedTo, v.NumberOfRemainingSuboperations, v.NumberOfCompletedSuboperations, v.NumberOfFailedSuboperations, v.NumberOfWarningSuboperations, v.Status)
}

func decodeC_MOVE_RSP(d *dimseDecoder) *C_MOVE_RSP {
	v := &C_MOVE_RSP{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, OptionalElement)
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.NumberOfRemainingSuboperations = d.getUInt16(dicom.TagNumberOfRemainingSuboperations, OptionalElement)
	v.NumberOfCompletedSuboperations = d.getUInt16(dicom.TagNumberOfCompletedSuboperations, OptionalElement)
	v.NumberOfFailedSuboperations = d.getUInt16(dicom.TagNumberOfFailedSuboperations, OptionalElement)
	v.NumberOfWarningSuboperations = d.getUInt16(dicom.TagNumberOfWarningSuboperations, OptionalElement)
	v.Status = d.getStatus()
	v.Extra = d.unparsedElements()
	return v
}

// C_CANCEL_RQ has no response; it is a fire-and-forget request to abandon a
// pending C-FIND/C-GET/C-MOVE operation. PS3.7 9.3.1.5.
type C_CANCEL_RQ struct {
	MessageIDBeingRespondedTo uint16
}

func (v *C_CANCEL_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldC_CANCEL_RQ))
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	encodeField(e, dicom.TagCommandDataSetType, CommandDataSetTypeNull)
}

func (v *C_CANCEL_RQ) HasData() bool        { return false }
func (v *C_CANCEL_RQ) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *C_CANCEL_RQ) CommandField() int    { return CommandFieldC_CANCEL_RQ }
func (v *C_CANCEL_RQ) String() string {
	return fmt.Sprintf("C_CANCEL_RQ{MessageIDBeingRespondedTo:%v}", v.MessageIDBeingRespondedTo)
}

func decodeC_CANCEL_RQ(d *dimseDecoder) *C_CANCEL_RQ {
	v := &C_CANCEL_RQ{}
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	return v
}

type C_ECHO_RQ struct {
	MessageID          uint16
	CommandDataSetType uint16
	Extra              []*dicom.Element
}

func (v *C_ECHO_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldC_ECHO_RQ))
	encodeField(e, dicom.TagMessageID, v.MessageID)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *C_ECHO_RQ) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *C_ECHO_RQ) GetMessageID() uint16 { return v.MessageID }
func (v *C_ECHO_RQ) CommandField() int    { return CommandFieldC_ECHO_RQ }
func (v *C_ECHO_RQ) String() string {
	return fmt.Sprintf("C_ECHO_RQ{MessageID:%v CommandDataSetType:%v}", v.MessageID, v.CommandDataSetType)
}

func decodeC_ECHO_RQ(d *dimseDecoder) *C_ECHO_RQ {
	v := &C_ECHO_RQ{}
	v.MessageID = d.getUInt16(dicom.TagMessageID, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Extra = d.unparsedElements()
	return v
}

type C_ECHO_RSP struct {
	MessageIDBeingRespondedTo uint16
	CommandDataSetType        uint16
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *C_ECHO_RSP) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldC_ECHO_RSP))
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	encodeStatus(e, v.Status)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *C_ECHO_RSP) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *C_ECHO_RSP) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *C_ECHO_RSP) CommandField() int    { return CommandFieldC_ECHO_RSP }
func (v *C_ECHO_RSP) String() string {
	return fmt.Sprintf("C_ECHO_RSP{MessageIDBeingRespondedTo:%v CommandDataSetType:%v Status:%v}", v.MessageIDBeingRespondedTo, v.CommandDataSetType, v.Status)
}

func decodeC_ECHO_RSP(d *dimseDecoder) *C_ECHO_RSP {
	v := &C_ECHO_RSP{}
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Status = d.getStatus()
	v.Extra = d.unparsedElements()
	return v
}

// DIMSE-N messages. PS3.7 10.3. N-GET, N-SET, N-ACTION and N-DELETE
// requests carry a RequestedSOPClassUID / RequestedSOPInstanceUID pair;
// N-EVENT-REPORT and N-CREATE requests carry AffectedSOPClassUID /
// AffectedSOPInstanceUID. Every response carries the Affected* pair.

type N_EVENT_REPORT_RQ struct {
	AffectedSOPClassUID    string
	AffectedSOPInstanceUID string
	MessageID              uint16
	EventTypeID            uint16
	CommandDataSetType     uint16
	Extra                  []*dicom.Element
}

func (v *N_EVENT_REPORT_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_EVENT_REPORT_RQ))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagAffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
	encodeField(e, dicom.TagMessageID, v.MessageID)
	encodeField(e, dicom.TagEventTypeID, v.EventTypeID)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_EVENT_REPORT_RQ) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_EVENT_REPORT_RQ) GetMessageID() uint16 { return v.MessageID }
func (v *N_EVENT_REPORT_RQ) CommandField() int    { return CommandFieldN_EVENT_REPORT_RQ }
func (v *N_EVENT_REPORT_RQ) String() string {
	return fmt.Sprintf("N_EVENT_REPORT_RQ{AffectedSOPClassUID:%v AffectedSOPInstanceUID:%v MessageID:%v EventTypeID:%v}",
		v.AffectedSOPClassUID, v.AffectedSOPInstanceUID, v.MessageID, v.EventTypeID)
}

func decodeN_EVENT_REPORT_RQ(d *dimseDecoder) *N_EVENT_REPORT_RQ {
	v := &N_EVENT_REPORT_RQ{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, RequiredElement)
	v.AffectedSOPInstanceUID = d.getString(dicom.TagAffectedSOPInstanceUID, RequiredElement)
	v.MessageID = d.getUInt16(dicom.TagMessageID, RequiredElement)
	v.EventTypeID = d.getUInt16(dicom.TagEventTypeID, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Extra = d.unparsedElements()
	return v
}

type N_EVENT_REPORT_RSP struct {
	AffectedSOPClassUID       string
	AffectedSOPInstanceUID    string
	MessageIDBeingRespondedTo uint16
	EventTypeID               uint16
	CommandDataSetType        uint16
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *N_EVENT_REPORT_RSP) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_EVENT_REPORT_RSP))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagAffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	if v.EventTypeID != 0 {
		encodeField(e, dicom.TagEventTypeID, v.EventTypeID)
	}
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	encodeStatus(e, v.Status)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_EVENT_REPORT_RSP) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_EVENT_REPORT_RSP) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *N_EVENT_REPORT_RSP) CommandField() int    { return CommandFieldN_EVENT_REPORT_RSP }
func (v *N_EVENT_REPORT_RSP) String() string {
	return fmt.Sprintf("N_EVENT_REPORT_RSP{MessageIDBeingRespondedTo:%v Status:%v}", v.MessageIDBeingRespondedTo, v.Status)
}

func decodeN_EVENT_REPORT_RSP(d *dimseDecoder) *N_EVENT_REPORT_RSP {
	v := &N_EVENT_REPORT_RSP{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, OptionalElement)
	v.AffectedSOPInstanceUID = d.getString(dicom.TagAffectedSOPInstanceUID, OptionalElement)
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	v.EventTypeID = d.getUInt16(dicom.TagEventTypeID, OptionalElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Status = d.getStatus()
	v.Extra = d.unparsedElements()
	return v
}

type N_GET_RQ struct {
	RequestedSOPClassUID    string
	RequestedSOPInstanceUID string
	MessageID               uint16
	AttributeIdentifierList []dicom.Tag
	CommandDataSetType      uint16
	Extra                   []*dicom.Element
}

func (v *N_GET_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_GET_RQ))
	encodeField(e, dicom.TagRequestedSOPClassUID, v.RequestedSOPClassUID)
	encodeField(e, dicom.TagRequestedSOPInstanceUID, v.RequestedSOPInstanceUID)
	encodeField(e, dicom.TagMessageID, v.MessageID)
	if len(v.AttributeIdentifierList) > 0 {
		tags := make([]interface{}, len(v.AttributeIdentifierList))
		for i, t := range v.AttributeIdentifierList {
			tags[i] = t
		}
		encodeField(e, dicom.TagAttributeIdentifierList, tags)
	}
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_GET_RQ) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_GET_RQ) GetMessageID() uint16 { return v.MessageID }
func (v *N_GET_RQ) CommandField() int    { return CommandFieldN_GET_RQ }
func (v *N_GET_RQ) String() string {
	return fmt.Sprintf("N_GET_RQ{RequestedSOPClassUID:%v RequestedSOPInstanceUID:%v MessageID:%v}",
		v.RequestedSOPClassUID, v.RequestedSOPInstanceUID, v.MessageID)
}

func decodeN_GET_RQ(d *dimseDecoder) *N_GET_RQ {
	v := &N_GET_RQ{}
	v.RequestedSOPClassUID = d.getString(dicom.TagRequestedSOPClassUID, RequiredElement)
	v.RequestedSOPInstanceUID = d.getString(dicom.TagRequestedSOPInstanceUID, RequiredElement)
	v.MessageID = d.getUInt16(dicom.TagMessageID, RequiredElement)
	if elem := d.findElement(dicom.TagAttributeIdentifierList, OptionalElement); elem != nil {
		for _, value := range elem.Value {
			if tag, ok := value.(dicom.Tag); ok {
				v.AttributeIdentifierList = append(v.AttributeIdentifierList, tag)
			}
		}
	}
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Extra = d.unparsedElements()
	return v
}

type N_GET_RSP struct {
	AffectedSOPClassUID       string
	AffectedSOPInstanceUID    string
	MessageIDBeingRespondedTo uint16
	CommandDataSetType        uint16
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *N_GET_RSP) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_GET_RSP))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagAffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	encodeStatus(e, v.Status)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_GET_RSP) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_GET_RSP) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *N_GET_RSP) CommandField() int    { return CommandFieldN_GET_RSP }
func (v *N_GET_RSP) String() string {
	return fmt.Sprintf("N_GET_RSP{MessageIDBeingRespondedTo:%v Status:%v}", v.MessageIDBeingRespondedTo, v.Status)
}

func decodeN_GET_RSP(d *dimseDecoder) *N_GET_RSP {
	v := &N_GET_RSP{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, OptionalElement)
	v.AffectedSOPInstanceUID = d.getString(dicom.TagAffectedSOPInstanceUID, OptionalElement)
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Status = d.getStatus()
	v.Extra = d.unparsedElements()
	return v
}

type N_SET_RQ struct {
	RequestedSOPClassUID    string
	RequestedSOPInstanceUID string
	MessageID               uint16
	CommandDataSetType      uint16
	Extra                   []*dicom.Element
}

func (v *N_SET_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_SET_RQ))
	encodeField(e, dicom.TagRequestedSOPClassUID, v.RequestedSOPClassUID)
	encodeField(e, dicom.TagRequestedSOPInstanceUID, v.RequestedSOPInstanceUID)
	encodeField(e, dicom.TagMessageID, v.MessageID)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_SET_RQ) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_SET_RQ) GetMessageID() uint16 { return v.MessageID }
func (v *N_SET_RQ) CommandField() int    { return CommandFieldN_SET_RQ }
func (v *N_SET_RQ) String() string {
	return fmt.Sprintf("N_SET_RQ{RequestedSOPClassUID:%v RequestedSOPInstanceUID:%v MessageID:%v}",
		v.RequestedSOPClassUID, v.RequestedSOPInstanceUID, v.MessageID)
}

func decodeN_SET_RQ(d *dimseDecoder) *N_SET_RQ {
	v := &N_SET_RQ{}
	v.RequestedSOPClassUID = d.getString(dicom.TagRequestedSOPClassUID, RequiredElement)
	v.RequestedSOPInstanceUID = d.getString(dicom.TagRequestedSOPInstanceUID, RequiredElement)
	v.MessageID = d.getUInt16(dicom.TagMessageID, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Extra = d.unparsedElements()
	return v
}

type N_SET_RSP struct {
	AffectedSOPClassUID       string
	AffectedSOPInstanceUID    string
	MessageIDBeingRespondedTo uint16
	CommandDataSetType        uint16
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *N_SET_RSP) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_SET_RSP))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagAffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	encodeStatus(e, v.Status)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_SET_RSP) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_SET_RSP) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *N_SET_RSP) CommandField() int    { return CommandFieldN_SET_RSP }
func (v *N_SET_RSP) String() string {
	return fmt.Sprintf("N_SET_RSP{MessageIDBeingRespondedTo:%v Status:%v}", v.MessageIDBeingRespondedTo, v.Status)
}

func decodeN_SET_RSP(d *dimseDecoder) *N_SET_RSP {
	v := &N_SET_RSP{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, OptionalElement)
	v.AffectedSOPInstanceUID = d.getString(dicom.TagAffectedSOPInstanceUID, OptionalElement)
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Status = d.getStatus()
	v.Extra = d.unparsedElements()
	return v
}

type N_ACTION_RQ struct {
	RequestedSOPClassUID    string
	RequestedSOPInstanceUID string
	MessageID               uint16
	ActionTypeID            uint16
	CommandDataSetType      uint16
	Extra                   []*dicom.Element
}

func (v *N_ACTION_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_ACTION_RQ))
	encodeField(e, dicom.TagRequestedSOPClassUID, v.RequestedSOPClassUID)
	encodeField(e, dicom.TagRequestedSOPInstanceUID, v.RequestedSOPInstanceUID)
	encodeField(e, dicom.TagMessageID, v.MessageID)
	encodeField(e, dicom.TagActionTypeID, v.ActionTypeID)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_ACTION_RQ) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_ACTION_RQ) GetMessageID() uint16 { return v.MessageID }
func (v *N_ACTION_RQ) CommandField() int    { return CommandFieldN_ACTION_RQ }
func (v *N_ACTION_RQ) String() string {
	return fmt.Sprintf("N_ACTION_RQ{RequestedSOPClassUID:%v RequestedSOPInstanceUID:%v MessageID:%v ActionTypeID:%v}",
		v.RequestedSOPClassUID, v.RequestedSOPInstanceUID, v.MessageID, v.ActionTypeID)
}

func decodeN_ACTION_RQ(d *dimseDecoder) *N_ACTION_RQ {
	v := &N_ACTION_RQ{}
	v.RequestedSOPClassUID = d.getString(dicom.TagRequestedSOPClassUID, RequiredElement)
	v.RequestedSOPInstanceUID = d.getString(dicom.TagRequestedSOPInstanceUID, RequiredElement)
	v.MessageID = d.getUInt16(dicom.TagMessageID, RequiredElement)
	v.ActionTypeID = d.getUInt16(dicom.TagActionTypeID, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Extra = d.unparsedElements()
	return v
}

type N_ACTION_RSP struct {
	AffectedSOPClassUID       string
	AffectedSOPInstanceUID    string
	MessageIDBeingRespondedTo uint16
	ActionTypeID              uint16
	CommandDataSetType        uint16
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *N_ACTION_RSP) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_ACTION_RSP))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagAffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	if v.ActionTypeID != 0 {
		encodeField(e, dicom.TagActionTypeID, v.ActionTypeID)
	}
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	encodeStatus(e, v.Status)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_ACTION_RSP) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_ACTION_RSP) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *N_ACTION_RSP) CommandField() int    { return CommandFieldN_ACTION_RSP }
func (v *N_ACTION_RSP) String() string {
	return fmt.Sprintf("N_ACTION_RSP{MessageIDBeingRespondedTo:%v Status:%v}", v.MessageIDBeingRespondedTo, v.Status)
}

func decodeN_ACTION_RSP(d *dimseDecoder) *N_ACTION_RSP {
	v := &N_ACTION_RSP{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, OptionalElement)
	v.AffectedSOPInstanceUID = d.getString(dicom.TagAffectedSOPInstanceUID, OptionalElement)
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	v.ActionTypeID = d.getUInt16(dicom.TagActionTypeID, OptionalElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Status = d.getStatus()
	v.Extra = d.unparsedElements()
	return v
}

type N_CREATE_RQ struct {
	AffectedSOPClassUID    string
	AffectedSOPInstanceUID string
	MessageID              uint16
	CommandDataSetType     uint16
	Extra                  []*dicom.Element
}

func (v *N_CREATE_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_CREATE_RQ))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	if v.AffectedSOPInstanceUID != "" {
		encodeField(e, dicom.TagAffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
	}
	encodeField(e, dicom.TagMessageID, v.MessageID)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_CREATE_RQ) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_CREATE_RQ) GetMessageID() uint16 { return v.MessageID }
func (v *N_CREATE_RQ) CommandField() int    { return CommandFieldN_CREATE_RQ }
func (v *N_CREATE_RQ) String() string {
	return fmt.Sprintf("N_CREATE_RQ{AffectedSOPClassUID:%v AffectedSOPInstanceUID:%v MessageID:%v}",
		v.AffectedSOPClassUID, v.AffectedSOPInstanceUID, v.MessageID)
}

func decodeN_CREATE_RQ(d *dimseDecoder) *N_CREATE_RQ {
	v := &N_CREATE_RQ{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, RequiredElement)
	v.AffectedSOPInstanceUID = d.getString(dicom.TagAffectedSOPInstanceUID, OptionalElement)
	v.MessageID = d.getUInt16(dicom.TagMessageID, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Extra = d.unparsedElements()
	return v
}

type N_CREATE_RSP struct {
	AffectedSOPClassUID       string
	AffectedSOPInstanceUID    string
	MessageIDBeingRespondedTo uint16
	CommandDataSetType        uint16
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *N_CREATE_RSP) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_CREATE_RSP))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagAffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	encodeStatus(e, v.Status)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_CREATE_RSP) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_CREATE_RSP) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *N_CREATE_RSP) CommandField() int    { return CommandFieldN_CREATE_RSP }
func (v *N_CREATE_RSP) String() string {
	return fmt.Sprintf("N_CREATE_RSP{MessageIDBeingRespondedTo:%v Status:%v}", v.MessageIDBeingRespondedTo, v.Status)
}

func decodeN_CREATE_RSP(d *dimseDecoder) *N_CREATE_RSP {
	v := &N_CREATE_RSP{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, OptionalElement)
	v.AffectedSOPInstanceUID = d.getString(dicom.TagAffectedSOPInstanceUID, OptionalElement)
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Status = d.getStatus()
	v.Extra = d.unparsedElements()
	return v
}

type N_DELETE_RQ struct {
	RequestedSOPClassUID    string
	RequestedSOPInstanceUID string
	MessageID               uint16
	CommandDataSetType      uint16
	Extra                   []*dicom.Element
}

func (v *N_DELETE_RQ) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_DELETE_RQ))
	encodeField(e, dicom.TagRequestedSOPClassUID, v.RequestedSOPClassUID)
	encodeField(e, dicom.TagRequestedSOPInstanceUID, v.RequestedSOPInstanceUID)
	encodeField(e, dicom.TagMessageID, v.MessageID)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_DELETE_RQ) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_DELETE_RQ) GetMessageID() uint16 { return v.MessageID }
func (v *N_DELETE_RQ) CommandField() int    { return CommandFieldN_DELETE_RQ }
func (v *N_DELETE_RQ) String() string {
	return fmt.Sprintf("N_DELETE_RQ{RequestedSOPClassUID:%v RequestedSOPInstanceUID:%v MessageID:%v}",
		v.RequestedSOPClassUID, v.RequestedSOPInstanceUID, v.MessageID)
}

func decodeN_DELETE_RQ(d *dimseDecoder) *N_DELETE_RQ {
	v := &N_DELETE_RQ{}
	v.RequestedSOPClassUID = d.getString(dicom.TagRequestedSOPClassUID, RequiredElement)
	v.RequestedSOPInstanceUID = d.getString(dicom.TagRequestedSOPInstanceUID, RequiredElement)
	v.MessageID = d.getUInt16(dicom.TagMessageID, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Extra = d.unparsedElements()
	return v
}

type N_DELETE_RSP struct {
	AffectedSOPClassUID       string
	AffectedSOPInstanceUID    string
	MessageIDBeingRespondedTo uint16
	CommandDataSetType        uint16
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *N_DELETE_RSP) Encode(e *dicomio.Encoder) {
	encodeField(e, dicom.TagCommandField, uint16(CommandFieldN_DELETE_RSP))
	encodeField(e, dicom.TagAffectedSOPClassUID, v.AffectedSOPClassUID)
	encodeField(e, dicom.TagAffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
	encodeField(e, dicom.TagMessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	encodeField(e, dicom.TagCommandDataSetType, v.CommandDataSetType)
	encodeStatus(e, v.Status)
	for _, elem := range v.Extra {
		dicom.EncodeDataElement(e, elem)
	}
}

func (v *N_DELETE_RSP) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *N_DELETE_RSP) GetMessageID() uint16 { return v.MessageIDBeingRespondedTo }
func (v *N_DELETE_RSP) CommandField() int    { return CommandFieldN_DELETE_RSP }
func (v *N_DELETE_RSP) String() string {
	return fmt.Sprintf("N_DELETE_RSP{MessageIDBeingRespondedTo:%v Status:%v}", v.MessageIDBeingRespondedTo, v.Status)
}

func decodeN_DELETE_RSP(d *dimseDecoder) *N_DELETE_RSP {
	v := &N_DELETE_RSP{}
	v.AffectedSOPClassUID = d.getString(dicom.TagAffectedSOPClassUID, OptionalElement)
	v.AffectedSOPInstanceUID = d.getString(dicom.TagAffectedSOPInstanceUID, OptionalElement)
	v.MessageIDBeingRespondedTo = d.getUInt16(dicom.TagMessageIDBeingRespondedTo, RequiredElement)
	v.CommandDataSetType = d.getUInt16(dicom.TagCommandDataSetType, RequiredElement)
	v.Status = d.getStatus()
	v.Extra = d.unparsedElements()
	return v
}

func decodeMessageForType(d *dimseDecoder, commandField uint16) Message {
	switch int(commandField) {
	case CommandFieldC_STORE_RQ:
		return decodeC_STORE_RQ(d)
	case CommandFieldC_STORE_RSP:
		return decodeC_STORE_RSP(d)
	case CommandFieldC_GET_RQ:
		return decodeC_GET_RQ(d)
	case CommandFieldC_GET_RSP:
		return decodeC_GET_RSP(d)
	case CommandFieldC_FIND_RQ:
		return decodeC_FIND_RQ(d)
	case CommandFieldC_FIND_RSP:
		return decodeC_FIND_RSP(d)
	case CommandFieldC_MOVE_RQ:
		return decodeC_MOVE_RQ(d)
	case CommandFieldC_MOVE_RSP:
		return decodeC_MOVE_RSP(d)
	case CommandFieldC_ECHO_RQ:
		return decodeC_ECHO_RQ(d)
	case CommandFieldC_ECHO_RSP:
		return decodeC_ECHO_RSP(d)
	case CommandFieldC_CANCEL_RQ:
		return decodeC_CANCEL_RQ(d)
	case CommandFieldN_EVENT_REPORT_RQ:
		return decodeN_EVENT_REPORT_RQ(d)
	case CommandFieldN_EVENT_REPORT_RSP:
		return decodeN_EVENT_REPORT_RSP(d)
	case CommandFieldN_GET_RQ:
		return decodeN_GET_RQ(d)
	case CommandFieldN_GET_RSP:
		return decodeN_GET_RSP(d)
	case CommandFieldN_SET_RQ:
		return decodeN_SET_RQ(d)
	case CommandFieldN_SET_RSP:
		return decodeN_SET_RSP(d)
	case CommandFieldN_ACTION_RQ:
		return decodeN_ACTION_RQ(d)
	case CommandFieldN_ACTION_RSP:
		return decodeN_ACTION_RSP(d)
	case CommandFieldN_CREATE_RQ:
		return decodeN_CREATE_RQ(d)
	case CommandFieldN_CREATE_RSP:
		return decodeN_CREATE_RSP(d)
	case CommandFieldN_DELETE_RQ:
		return decodeN_DELETE_RQ(d)
	case CommandFieldN_DELETE_RSP:
		return decodeN_DELETE_RSP(d)
	default:
		d.setError(fmt.Errorf("dimse: unknown command field 0x%x", commandField))
		return nil
	}
}
