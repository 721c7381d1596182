package pdu

// User-information sub-items for extended negotiation: SCP/SCU role
// selection, SOP class extended negotiation (plain and common), and user
// identity. PS3.7 Annex D.3.3.

import (
	"fmt"

	"github.com/yasushi-saito/go-dicom/dicomio"
)

// RoleSelectionSubItem negotiates which side may act as SCU/SCP for a given
// abstract syntax. PS3.7 Annex D.3.3.4.
type RoleSelectionSubItem struct {
	SOPClassUID string
	SCURole     byte // 0 or 1
	SCPRole     byte // 0 or 1
}

func decodeRoleSelectionSubItem(d *dicomio.Decoder, length uint16) *RoleSelectionSubItem {
	v := &RoleSelectionSubItem{}
	uidLen := d.ReadUInt16()
	v.SOPClassUID = d.ReadString(int(uidLen))
	v.SCURole = d.ReadByte()
	v.SCPRole = d.ReadByte()
	return v
}

func (v *RoleSelectionSubItem) Write(e *dicomio.Encoder) {
	body := 2 + len(v.SOPClassUID) + 1 + 1
	encodeSubItemHeader(e, ItemTypeRoleSelection, uint16(body))
	e.WriteUInt16(uint16(len(v.SOPClassUID)))
	e.WriteString(v.SOPClassUID)
	e.WriteByte(v.SCURole)
	e.WriteByte(v.SCPRole)
}

func (v *RoleSelectionSubItem) String() string {
	return fmt.Sprintf("roleselection{sopclass:%s scu:%d scp:%d}",
		v.SOPClassUID, v.SCURole, v.SCPRole)
}

// SOPClassExtendedNegotiationSubItem carries service-class-specific
// application information for one SOP class. The core passes the payload
// through opaquely; it does not interpret service-class semantics.
// PS3.7 Annex D.3.3.5.
type SOPClassExtendedNegotiationSubItem struct {
	SOPClassUID         string
	ServiceClassAppInfo []byte
}

func decodeSOPClassExtendedNegotiationSubItem(d *dicomio.Decoder, length uint16) *SOPClassExtendedNegotiationSubItem {
	v := &SOPClassExtendedNegotiationSubItem{}
	uidLen := d.ReadUInt16()
	v.SOPClassUID = d.ReadString(int(uidLen))
	remaining := int(length) - 2 - int(uidLen)
	if remaining > 0 {
		v.ServiceClassAppInfo = d.ReadBytes(remaining)
	}
	return v
}

func (v *SOPClassExtendedNegotiationSubItem) Write(e *dicomio.Encoder) {
	body := 2 + len(v.SOPClassUID) + len(v.ServiceClassAppInfo)
	encodeSubItemHeader(e, ItemTypeSOPClassExtendedNegotiation, uint16(body))
	e.WriteUInt16(uint16(len(v.SOPClassUID)))
	e.WriteString(v.SOPClassUID)
	e.WriteBytes(v.ServiceClassAppInfo)
}

func (v *SOPClassExtendedNegotiationSubItem) String() string {
	return fmt.Sprintf("sopclassextendednegotiation{sopclass:%s info:%dbytes}",
		v.SOPClassUID, len(v.ServiceClassAppInfo))
}

// SOPClassCommonExtendedNegotiationSubItem. PS3.7 Annex D.3.3.6.
type SOPClassCommonExtendedNegotiationSubItem struct {
	SOPClassUID                string
	ServiceClassUID            string
	RelatedGeneralSOPClassUIDs []string
}

func decodeSOPClassCommonExtendedNegotiationSubItem(d *dicomio.Decoder, length uint16) *SOPClassCommonExtendedNegotiationSubItem {
	v := &SOPClassCommonExtendedNegotiationSubItem{}
	d.PushLimit(int64(length))
	defer d.PopLimit()
	d.Skip(1) // version, always 0x01
	sopLen := d.ReadUInt16()
	v.SOPClassUID = d.ReadString(int(sopLen))
	serviceLen := d.ReadUInt16()
	v.ServiceClassUID = d.ReadString(int(serviceLen))
	listLen := d.ReadUInt16()
	d.PushLimit(int64(listLen))
	for d.Len() > 0 {
		uidLen := d.ReadUInt16()
		v.RelatedGeneralSOPClassUIDs = append(v.RelatedGeneralSOPClassUIDs, d.ReadString(int(uidLen)))
	}
	d.PopLimit()
	return v
}

func (v *SOPClassCommonExtendedNegotiationSubItem) Write(e *dicomio.Encoder) {
	listBytes := 0
	for _, uid := range v.RelatedGeneralSOPClassUIDs {
		listBytes += 2 + len(uid)
	}
	body := 1 + 2 + len(v.SOPClassUID) + 2 + len(v.ServiceClassUID) + 2 + listBytes
	encodeSubItemHeader(e, ItemTypeSOPClassCommonExtendedNegotiation, uint16(body))
	e.WriteByte(1)
	e.WriteUInt16(uint16(len(v.SOPClassUID)))
	e.WriteString(v.SOPClassUID)
	e.WriteUInt16(uint16(len(v.ServiceClassUID)))
	e.WriteString(v.ServiceClassUID)
	e.WriteUInt16(uint16(listBytes))
	for _, uid := range v.RelatedGeneralSOPClassUIDs {
		e.WriteUInt16(uint16(len(uid)))
		e.WriteString(uid)
	}
}

func (v *SOPClassCommonExtendedNegotiationSubItem) String() string {
	return fmt.Sprintf("sopclasscommonextendednegotiation{sopclass:%s serviceclass:%s related:%d}",
		v.SOPClassUID, v.ServiceClassUID, len(v.RelatedGeneralSOPClassUIDs))
}

// User identity types. PS3.7 Annex D.3.3.7.
const (
	UserIdentityTypeUsername         = 1
	UserIdentityTypeUsernamePasscode = 2
	UserIdentityTypeKerberos         = 3
	UserIdentityTypeSAML             = 4
	UserIdentityTypeJWT              = 5
)

// UserIdentityRequestSubItem. Sent by the requestor.
type UserIdentityRequestSubItem struct {
	IdentityType              byte
	PositiveResponseRequested bool
	PrimaryField              []byte
	SecondaryField            []byte // only for UserIdentityTypeUsernamePasscode
}

func decodeUserIdentityRequestSubItem(d *dicomio.Decoder, length uint16) *UserIdentityRequestSubItem {
	v := &UserIdentityRequestSubItem{}
	v.IdentityType = d.ReadByte()
	v.PositiveResponseRequested = d.ReadByte() != 0
	primaryLen := d.ReadUInt16()
	v.PrimaryField = d.ReadBytes(int(primaryLen))
	secondaryLen := d.ReadUInt16()
	if secondaryLen > 0 {
		v.SecondaryField = d.ReadBytes(int(secondaryLen))
	}
	return v
}

func (v *UserIdentityRequestSubItem) Write(e *dicomio.Encoder) {
	body := 1 + 1 + 2 + len(v.PrimaryField) + 2 + len(v.SecondaryField)
	encodeSubItemHeader(e, ItemTypeUserIdentityRequest, uint16(body))
	e.WriteByte(v.IdentityType)
	if v.PositiveResponseRequested {
		e.WriteByte(1)
	} else {
		e.WriteByte(0)
	}
	e.WriteUInt16(uint16(len(v.PrimaryField)))
	e.WriteBytes(v.PrimaryField)
	e.WriteUInt16(uint16(len(v.SecondaryField)))
	e.WriteBytes(v.SecondaryField)
}

func (v *UserIdentityRequestSubItem) String() string {
	return fmt.Sprintf("useridentityrq{type:%d positiveresponse:%v}",
		v.IdentityType, v.PositiveResponseRequested)
}

// UserIdentityResponseSubItem. Sent by the acceptor, only when the
// requestor asked for a positive response.
type UserIdentityResponseSubItem struct {
	ServerResponse []byte
}

func decodeUserIdentityResponseSubItem(d *dicomio.Decoder, length uint16) *UserIdentityResponseSubItem {
	v := &UserIdentityResponseSubItem{}
	respLen := d.ReadUInt16()
	v.ServerResponse = d.ReadBytes(int(respLen))
	return v
}

func (v *UserIdentityResponseSubItem) Write(e *dicomio.Encoder) {
	encodeSubItemHeader(e, ItemTypeUserIdentityResponse, uint16(2+len(v.ServerResponse)))
	e.WriteUInt16(uint16(len(v.ServerResponse)))
	e.WriteBytes(v.ServerResponse)
}

func (v *UserIdentityResponseSubItem) String() string {
	return fmt.Sprintf("useridentityac{response:%dbytes}", len(v.ServerResponse))
}
