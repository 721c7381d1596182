package dimse

// Implements message types defined in P3.7.
//
// http://dicom.nema.org/medical/dicom/current/output/pdf/part07.pdf

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/dcmweld/netdicom/pdu"
	"github.com/golang/glog"
	"github.com/yasushi-saito/go-dicom"
	"github.com/yasushi-saito/go-dicom/dicomio"
)

// Message is the common interface for all DIMSE-C and DIMSE-N command
// messages.
type Message interface {
	fmt.Stringer             // Print human-readable description for debugging.
	Encode(*dicomio.Encoder) // Serialize the command set.
	HasData() bool           // Does a data PDV follow the command PDV?
	GetMessageID() uint16    // MessageID or MessageIDBeingRespondedTo, whichever the message carries.
	CommandField() int       // Command field value, e.g. CommandFieldC_STORE_RQ.
}

// StatusCode is the value of the (0000,0900) Status command element. PS3.7
// Annex C groups codes into the bins implemented in status.go.
type StatusCode uint16

// Status carries the (0000,0900) Status and, if present, the (0000,0902)
// Error Comment elements of a DIMSE response.
type Status struct {
	Status       StatusCode
	ErrorComment string
}

// StatusSuccess is the zero status, always reported without ErrorComment.
var StatusSuccess = Status{Status: 0}

// Generic status codes used when no service-class-specific code applies.
// PS3.7 Annex C.
const (
	StatusUnrecognizedOperation StatusCode = 0x0211
	StatusInvalidArgumentValue  StatusCode = 0x0115
	StatusPending               StatusCode = 0xff00
	StatusPendingWarning        StatusCode = 0xff01
	StatusCancel                StatusCode = 0xfe00
)

// C_STORE_RSP-specific status codes. PS3.4 GG4-1.
const (
	CStoreStatusOutOfResources              StatusCode = 0xa700
	CStoreStatusDataSetDoesNotMatchSOPClass StatusCode = 0xa900
	CStoreStatusCannotUnderstand            StatusCode = 0xc000
)

// C_FIND_RSP-specific status codes. PS3.4 C.4.1.
const (
	CFindUnableToProcess StatusCode = 0xc000
)

// Command field values for every DIMSE-C and DIMSE-N message type. PS3.7
// Table 9.1 and Table 9.3.
const (
	CommandFieldC_STORE_RQ         = 0x0001
	CommandFieldC_STORE_RSP        = 0x8001
	CommandFieldC_GET_RQ           = 0x0010
	CommandFieldC_GET_RSP          = 0x8010
	CommandFieldC_FIND_RQ          = 0x0020
	CommandFieldC_FIND_RSP         = 0x8020
	CommandFieldC_MOVE_RQ          = 0x0021
	CommandFieldC_MOVE_RSP         = 0x8021
	CommandFieldC_ECHO_RQ          = 0x0030
	CommandFieldC_ECHO_RSP         = 0x8030
	CommandFieldC_CANCEL_RQ        = 0x0fff
	CommandFieldN_EVENT_REPORT_RQ  = 0x0100
	CommandFieldN_EVENT_REPORT_RSP = 0x8100
	CommandFieldN_GET_RQ           = 0x0110
	CommandFieldN_GET_RSP          = 0x8110
	CommandFieldN_SET_RQ           = 0x0120
	CommandFieldN_SET_RSP          = 0x8120
	CommandFieldN_ACTION_RQ        = 0x0130
	CommandFieldN_ACTION_RSP       = 0x8130
	CommandFieldN_CREATE_RQ        = 0x0140
	CommandFieldN_CREATE_RSP       = 0x8140
	CommandFieldN_DELETE_RQ        = 0x0150
	CommandFieldN_DELETE_RSP       = 0x8150
)

// CommandDataSetType values. Any value other than CommandDataSetTypeNull
// indicates a data PDV follows; callers should use CommandDataSetTypeNonNull
// when they mean exactly that.
const (
	CommandDataSetTypeNull    uint16 = 0x0101
	CommandDataSetTypeNonNull uint16 = 0x0001
)

var messageIDSeq uint32

// NewMessageID returns a fresh MessageID for use in a new DIMSE request.
// IDs are unique within the lifetime of the process, not just one
// association, which is stricter than PS3.7 requires but simpler to reason
// about and cheap given the 16-bit ID space is recycled only on overflow.
func NewMessageID() uint16 {
	return uint16(atomic.AddUint32(&messageIDSeq, 1))
}

// Helper class for extracting values from a list of DicomElements.
type dimseDecoder struct {
	elems []*dicom.Element
	used  map[dicom.Tag]bool
	err   error
}

type isOptionalElement int

const (
	RequiredElement isOptionalElement = iota
	OptionalElement
)

func (d *dimseDecoder) setError(err error) {
	if d.err == nil {
		d.err = err
	}
}

// findElement returns the element with the given tag. If optional==OptionalElement,
// returns nil if not found. If optional==RequiredElement, sets d.err and
// returns nil if not found.
func (d *dimseDecoder) findElement(tag dicom.Tag, optional isOptionalElement) *dicom.Element {
	for _, elem := range d.elems {
		if elem.Tag == tag {
			glog.V(2).Infof("dimse: return %v for %s", elem, tag.String())
			if d.used == nil {
				d.used = make(map[dicom.Tag]bool)
			}
			d.used[tag] = true
			return elem
		}
	}
	if optional == RequiredElement {
		d.setError(fmt.Errorf("element %s not found during DIMSE decoding", tag.String()))
	}
	return nil
}

func (d *dimseDecoder) getString(tag dicom.Tag, optional isOptionalElement) string {
	e := d.findElement(tag, optional)
	if e == nil {
		return ""
	}
	v, err := e.GetString()
	if err != nil {
		d.setError(err)
	}
	return v
}

func (d *dimseDecoder) getUInt32(tag dicom.Tag, optional isOptionalElement) uint32 {
	e := d.findElement(tag, optional)
	if e == nil {
		return 0
	}
	v, err := e.GetUInt32()
	if err != nil {
		d.setError(err)
	}
	return v
}

func (d *dimseDecoder) getUInt16(tag dicom.Tag, optional isOptionalElement) uint16 {
	e := d.findElement(tag, optional)
	if e == nil {
		return 0
	}
	v, err := e.GetUInt16()
	if err != nil {
		d.setError(err)
	}
	return v
}

// getStatus reads the (0000,0900)/(0000,0902) pair common to every DIMSE
// response message.
func (d *dimseDecoder) getStatus() Status {
	code := d.getUInt16(dicom.TagStatus, RequiredElement)
	comment := d.getString(dicom.TagErrorComment, OptionalElement)
	return Status{Status: StatusCode(code), ErrorComment: comment}
}

// unparsedElements returns the elements in the command set that no field
// getter above consumed, preserved so higher layers can round-trip
// service-class-specific command fields this package doesn't know about.
func (d *dimseDecoder) unparsedElements() []*dicom.Element {
	var extra []*dicom.Element
	for _, elem := range d.elems {
		if !d.used[elem.Tag] {
			extra = append(extra, elem)
		}
	}
	return extra
}

// encodeField encodes a single DIMSE command field with the given tag and value.
func encodeField(e *dicomio.Encoder, tag dicom.Tag, v interface{}) {
	dicom.EncodeDataElement(e, dicom.MustNewElement(tag, v))
}

// encodeStatus encodes the (0000,0900)/(0000,0902) pair.
func encodeStatus(e *dicomio.Encoder, s Status) {
	encodeField(e, dicom.TagStatus, uint16(s.Status))
	if s.ErrorComment != "" {
		encodeField(e, dicom.TagErrorComment, s.ErrorComment)
	}
}

// ReadMessage decodes one DIMSE command set (and dispatches to the
// type-specific decoder named by its Command Field) from "d". The command
// set is always encoded Implicit VR Little Endian, regardless of the
// association's negotiated transfer syntax (PS3.7 6.3.1).
func ReadMessage(d *dicomio.Decoder) Message {
	var elems []*dicom.Element
	d.PushTransferSyntax(binary.LittleEndian, dicomio.ImplicitVR)
	defer d.PopTransferSyntax()
	for d.Len() > 0 {
		elem := dicom.ReadDataElement(d)
		if d.Error() != nil {
			break
		}
		elems = append(elems, elem)
	}

	dd := dimseDecoder{elems: elems}
	commandField := dd.getUInt16(dicom.TagCommandField, RequiredElement)
	if dd.err != nil {
		d.SetError(dd.err)
		return nil
	}
	v := decodeMessageForType(&dd, commandField)
	if dd.err != nil {
		d.SetError(dd.err)
		return nil
	}
	return v
}

// EncodeMessage serializes "v" as a DIMSE command set, prefixed by the
// (0000,0000) CommandGroupLength element PS3.7 6.3.1 requires.
func EncodeMessage(e *dicomio.Encoder, v Message) {
	subEncoder := dicomio.NewEncoder(binary.LittleEndian, dicomio.ImplicitVR)
	v.Encode(subEncoder)
	body, err := subEncoder.Finish()
	if err != nil {
		e.SetError(err)
		return
	}
	e.PushTransferSyntax(binary.LittleEndian, dicomio.ImplicitVR)
	defer e.PopTransferSyntax()
	encodeField(e, dicom.TagCommandGroupLength, uint32(len(body)))
	e.WriteBytes(body)
}

// CommandAssembler reassembles a DIMSE command message and its optional
// data payload from a sequence of P-DATA-TF PDUs belonging to one
// presentation context.
type CommandAssembler struct {
	contextID      byte
	commandBytes   []byte
	command        Message
	dataBytes      []byte
	readAllCommand bool
	readAllData    bool
}

// AddDataPDU folds one P-DATA-TF PDU into the assembler. Once both the
// command PDV stream and (if present) the data PDV stream have arrived in
// full, it returns the presentation context ID, the decoded command, and the
// raw data bytes, and resets the assembler for the next message on this
// connection. Until then it returns a zero contextID, nil command and nil
// error to signal "need more fragments".
func (a *CommandAssembler) AddDataPDU(p *pdu.P_DATA_TF) (byte, Message, []byte, error) {
	for _, item := range p.Items {
		if a.contextID == 0 {
			a.contextID = item.ContextID
		} else if a.contextID != item.ContextID {
			return 0, nil, nil, fmt.Errorf("dimse: mixed presentation context in P-DATA-TF: %d vs %d", a.contextID, item.ContextID)
		}
		if item.Command {
			a.commandBytes = append(a.commandBytes, item.Value...)
			if item.Last {
				if a.readAllCommand {
					return 0, nil, nil, fmt.Errorf("dimse: >1 command fragment with the Last bit set")
				}
				a.readAllCommand = true
			}
		} else {
			a.dataBytes = append(a.dataBytes, item.Value...)
			if item.Last {
				if a.readAllData {
					return 0, nil, nil, fmt.Errorf("dimse: >1 data fragment with the Last bit set")
				}
				a.readAllData = true
			}
		}
	}
	if !a.readAllCommand {
		return 0, nil, nil, nil
	}
	if a.command == nil {
		d := dicomio.NewBytesDecoder(a.commandBytes, nil, dicomio.UnknownVR)
		a.command = ReadMessage(d)
		if err := d.Finish(); err != nil {
			return 0, nil, nil, err
		}
	}
	if a.command.HasData() && !a.readAllData {
		return 0, nil, nil, nil
	}
	contextID := a.contextID
	command := a.command
	dataBytes := a.dataBytes
	*a = CommandAssembler{}
	return contextID, command, dataBytes, nil
}
