package netdicom

// Implements the Upper Layer state machine, as defined in PS3.8 9.2.3.
// http://dicom.nema.org/medical/dicom/current/output/pdf/part08.pdf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dcmweld/netdicom/dimse"
	"github.com/dcmweld/netdicom/pdu"
	"github.com/golang/glog"
	"github.com/yasushi-saito/go-dicom/dicomio"
)

type stateType struct {
	Name        string
	Description string
}

func (s *stateType) String() string {
	return fmt.Sprintf("%s(%s)", s.Name, s.Description)
}

var smSeq int32 = 32 // for assigning unique stateMachine.name

var (
	sta01 = &stateType{"Sta01", "Idle"}
	sta02 = &stateType{"Sta02", "Transport connection open (Awaiting A-ASSOCIATE-RQ PDU)"}
	sta03 = &stateType{"Sta03", "Awaiting local A-ASSOCIATE response primitive (from local user)"}
	sta04 = &stateType{"Sta04", "Awaiting transport connection opening to complete (from local transport service)"}
	sta05 = &stateType{"Sta05", "Awaiting A-ASSOCIATE-AC or A-ASSOCIATE-RJ PDU"}
	sta06 = &stateType{"Sta06", "Association established and ready for data transfer"}
	sta07 = &stateType{"Sta07", "Awaiting A-RELEASE-RP PDU"}
	sta08 = &stateType{"Sta08", "Awaiting local A-RELEASE response primitive (from local user)"}
	sta09 = &stateType{"Sta09", "Release collision requestor side; awaiting A-RELEASE response (from local user)"}
	sta10 = &stateType{"Sta10", "Release collision acceptor side; awaiting A-RELEASE-RP PDU"}
	sta11 = &stateType{"Sta11", "Release collision requestor side; awaiting A-RELEASE-RP PDU"}
	sta12 = &stateType{"Sta12", "Release collision acceptor side; awaiting A-RELEASE response primitive (from local user)"}
	sta13 = &stateType{"Sta13", "Awaiting Transport Connection Close Indication (Association no longer exists)"}
)

type eventType struct {
	Event       int
	Description string
}

var (
	evt01 = eventType{1, "A-ASSOCIATE request (local user)"}
	evt02 = eventType{2, "Connection established (for service user)"}
	evt03 = eventType{3, "A-ASSOCIATE-AC PDU (received on transport connection)"}
	evt04 = eventType{4, "A-ASSOCIATE-RJ PDU (received on transport connection)"}
	evt05 = eventType{5, "Connection accepted (for service provider)"}
	evt06 = eventType{6, "A-ASSOCIATE-RQ PDU (on transport connection)"}
	evt07 = eventType{7, "A-ASSOCIATE response primitive (accept)"}
	evt08 = eventType{8, "A-ASSOCIATE response primitive (reject)"}
	evt09 = eventType{9, "P-DATA request primitive"}
	evt10 = eventType{10, "P-DATA-TF PDU (on transport connection)"}
	evt11 = eventType{11, "A-RELEASE request primitive"}
	evt12 = eventType{12, "A-RELEASE-RQ PDU (on transport)"}
	evt13 = eventType{13, "A-RELEASE-RP PDU (on transport)"}
	evt14 = eventType{14, "A-RELEASE response primitive"}
	evt15 = eventType{15, "A-ABORT request primitive"}
	evt16 = eventType{16, "A-ABORT PDU (on transport)"}
	evt17 = eventType{17, "Transport connection closed indication (local transport service)"}
	evt18 = eventType{18, "ARTIM timer expired (Association reject/release timer)"}
	evt19 = eventType{19, "Unrecognized or invalid PDU received"}
)

type stateAction struct {
	Name        string
	Description string
	Callback    func(sm *stateMachine, event stateEvent) *stateType
}

func (s *stateAction) String() string {
	return fmt.Sprintf("%s(%s)", s.Name, s.Description)
}

// DefaultMaxPDUSize is proposed in the A-ASSOCIATE-RQ/AC's Maximum Length
// sub-item when no other value is configured. 16382 is the conventional
// value most DICOM peers advertise.
const DefaultMaxPDUSize = 16382

var actionAe1 = &stateAction{"AE-1",
	"Issue TRANSPORT CONNECT request primitive to local transport service",
	func(sm *stateMachine, event stateEvent) *stateType {
		if event.conn == nil && event.serverAddr == "" {
			glog.Fatalf("%s: illegal event %v", sm.name, event)
		}
		go func(ch chan stateEvent, serverHostPort string) {
			t, err := dialTransport(serverHostPort, sm.tlsWrap, sm.networkTimeout)
			if err != nil {
				glog.Infof("%s: Failed to connect to %s: %v", sm.name, serverHostPort, err)
				ch <- stateEvent{event: evt17, pdu: nil, err: err}
				close(ch)
				return
			}
			ch <- stateEvent{event: evt02, pdu: nil, err: nil, conn: t}
			networkReaderThread(ch, t, sm.maxPDUSize, sm.name)
		}(sm.netCh, event.serverAddr)
		return sta04
	}}

var actionAe2 = &stateAction{"AE-2", "Send A-ASSOCIATE-RQ-PDU",
	func(sm *stateMachine, event stateEvent) *stateType {
		items := sm.contextManager.generateAssociateRequest(
			sm.userParams.RequiredServices, sm.userParams.SupportedTransferSyntaxes, sm.maxPDUSize,
			sm.userParams.RoleSelections)
		req := &pdu.A_ASSOCIATE{
			Type:            pdu.PDUTypeA_ASSOCIATE_RQ,
			ProtocolVersion: pdu.CurrentProtocolVersion,
			CalledAETitle:   sm.userParams.CalledAETitle,
			CallingAETitle:  sm.userParams.CallingAETitle,
			Items:           items,
		}
		sendPDU(sm, req)
		startAcseTimer(sm)
		return sta05
	}}

var actionAe3 = &stateAction{"AE-3", "Issue A-ASSOCIATE confirmation (accept) primitive",
	func(sm *stateMachine, event stateEvent) *stateType {
		stopTimer(sm)
		ac := event.pdu.(*pdu.A_ASSOCIATE)
		doassert(ac.Type == pdu.PDUTypeA_ASSOCIATE_AC)
		err := sm.contextManager.onAssociateResponse(ac.Items)
		if err == nil {
			// Validated by onAssociateResponse: 0 (unlimited) or >= the
			// minimum fragment size.
			sm.maxPDUSize = sm.contextManager.peerMaxPDUSize
			sm.upcallCh <- upcallEvent{eventType: upcallEventHandshakeCompleted, cm: sm.contextManager}
			return sta06
		}
		glog.Error(err)
		return actionAa8.Callback(sm, event)
	}}

var actionAe4 = &stateAction{"AE-4", "Issue A-ASSOCIATE confirmation (reject) primitive and close transport connection",
	func(sm *stateMachine, event stateEvent) *stateType {
		rj, _ := event.pdu.(*pdu.A_ASSOCIATE_RJ)
		if rj != nil {
			sm.upcallCh <- upcallEvent{
				eventType: upcallEventAssociationRejected,
				err: &NegotiationError{
					Result: rj.Result,
					Source: rj.Source,
					Reason: rj.Reason,
					Err:    fmt.Errorf("association rejected by peer"),
				},
			}
		}
		closeConnection(sm)
		return sta01
	}}

var actionAe5 = &stateAction{"AE-5", "Issue Transport connection response primitive; start ARTIM timer",
	func(sm *stateMachine, event stateEvent) *stateType {
		doassert(event.conn != nil)
		startTimer(sm)
		go func(ch chan stateEvent, t *Transport) {
			networkReaderThread(ch, t, sm.maxPDUSize, sm.name)
		}(sm.netCh, event.conn)
		return sta02
	}}

var actionAe6 = &stateAction{"AE-6", `Stop ARTIM timer and if A-ASSOCIATE-RQ acceptable: issue A-ASSOCIATE indication primitive, otherwise issue A-ASSOCIATE-RJ-PDU and start ARTIM timer`,
	func(sm *stateMachine, event stateEvent) *stateType {
		stopTimer(sm)
		rq := event.pdu.(*pdu.A_ASSOCIATE)
		if rq.ProtocolVersion != pdu.CurrentProtocolVersion {
			glog.Infof("%s: Wrong remote protocol version 0x%x", sm.name, rq.ProtocolVersion)
			sendPDU(sm, &pdu.A_ASSOCIATE_RJ{Result: pdu.ResultRejectedPermanent, Source: pdu.SourceULServiceProviderACSE, Reason: 2})
			startTimer(sm)
			return sta13
		}
		responses, err := sm.contextManager.onAssociateRequest(rq.Items, sm.maxPDUSize, sm.providerParams)
		if err != nil {
			glog.Infof("%s: Rejecting association: %v", sm.name, err)
			sm.downcallCh <- stateEvent{
				event: evt08,
				pdu: &pdu.A_ASSOCIATE_RJ{
					Result: pdu.ResultRejectedPermanent,
					Source: pdu.SourceULServiceProviderACSE,
					Reason: 1,
				},
			}
			return sta03
		}
		sm.maxPDUSize = sm.contextManager.peerMaxPDUSize
		doassert(len(responses) > 0)
		doassert(rq.CalledAETitle != "")
		doassert(rq.CallingAETitle != "")
		sm.downcallCh <- stateEvent{
			event: evt07,
			pdu: &pdu.A_ASSOCIATE{
				Type:            pdu.PDUTypeA_ASSOCIATE_AC,
				ProtocolVersion: pdu.CurrentProtocolVersion,
				CalledAETitle:   rq.CalledAETitle,
				CallingAETitle:  rq.CallingAETitle,
				Items:           responses,
			},
		}
		return sta03
	}}

var actionAe7 = &stateAction{"AE-7", "Send A-ASSOCIATE-AC PDU",
	func(sm *stateMachine, event stateEvent) *stateType {
		sendPDU(sm, event.pdu.(*pdu.A_ASSOCIATE))
		sm.upcallCh <- upcallEvent{eventType: upcallEventHandshakeCompleted, cm: sm.contextManager}
		return sta06
	}}

var actionAe8 = &stateAction{"AE-8", "Send A-ASSOCIATE-RJ PDU and start ARTIM timer",
	func(sm *stateMachine, event stateEvent) *stateType {
		sendPDU(sm, event.pdu.(*pdu.A_ASSOCIATE_RJ))
		startTimer(sm)
		return sta13
	}}

// splitDataIntoPDUs produces the list of P-DATA-TF PDUs that collectively
// carry the DIMSE command (and optional accompanying data) in "payload".
// PS3.8 9.3.5: each PDV's value field may be at most maxPDUSize-6 bytes (6
// bytes for the PDV-length and the context-ID/message-control-header
// fields); a maxPDUSize of 0 means the peer accepts PDUs of any length, so
// each stream goes out as a single fragment. The command set and the data
// set are independent PDV streams, each closed out by its own Last fragment
// (PS3.7 6.3.1).
func splitDataIntoPDUs(sm *stateMachine, payload *stateEventDIMSEPayload) []pdu.P_DATA_TF {
	context, err := sm.contextManager.lookupByAbstractSyntaxUID(payload.abstractSyntaxName)
	if err != nil {
		glog.Fatalf("%s: Illegal syntax name %s: %s", sm.name, payload.abstractSyntaxName, err)
	}
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ImplicitVR)
	dimse.EncodeMessage(e, payload.command)
	commandBytes, err := e.Finish()
	if err != nil {
		glog.Fatalf("%s: Failed to encode DIMSE command %v: %v", sm.name, payload.command, err)
	}

	maxChunkSize := math.MaxInt
	if sm.maxPDUSize > 0 {
		maxChunkSize = sm.maxPDUSize - 6
	}
	var pdus []pdu.P_DATA_TF
	appendStream := func(bytes []byte, isCommand bool) {
		for len(bytes) > 0 {
			chunkSize := len(bytes)
			if chunkSize > maxChunkSize {
				chunkSize = maxChunkSize
			}
			chunk := bytes[0:chunkSize]
			bytes = bytes[chunkSize:]
			pdus = append(pdus, pdu.P_DATA_TF{Items: []pdu.PresentationDataValueItem{
				{
					ContextID: context.contextID,
					Command:   isCommand,
					Last:      len(bytes) == 0,
					Value:     chunk,
				}}})
		}
	}
	appendStream(commandBytes, true)
	appendStream(payload.data, false)
	return pdus
}

// Data transfer related actions
var actionDt1 = &stateAction{"DT-1", "Send P-DATA-TF PDU",
	func(sm *stateMachine, event stateEvent) *stateType {
		doassert(event.dimsePayload != nil)
		pdus := splitDataIntoPDUs(sm, event.dimsePayload)
		for i := range pdus {
			sendPDU(sm, &pdus[i])
		}
		return sta06
	}}

var actionDt2 = &stateAction{"DT-2", "Send P-DATA indication primitive",
	func(sm *stateMachine, event stateEvent) *stateType {
		contextID, command, data, err := sm.commandAssembler.AddDataPDU(event.pdu.(*pdu.P_DATA_TF))
		if err != nil {
			glog.Infof("%s: Failed to assemble data: %v", sm.name, err)
			return actionAa8.Callback(sm, event)
		}
		if command == nil {
			// Not all fragments received yet.
			return sta06
		}
		context, err := sm.contextManager.lookupByContextID(contextID)
		if err != nil {
			glog.Infof("%s: Unknown context ID %d: %v", sm.name, contextID, err)
			return actionAa8.Callback(sm, event)
		}
		sm.upcallCh <- upcallEvent{
			eventType:         upcallEventData,
			abstractSyntaxUID: context.abstractSyntaxUID,
			transferSyntaxUID: context.transferSyntaxUID,
			cm:                sm.contextManager,
			contextID:         contextID,
			command:           command,
			data:              data,
		}
		return sta06
	}}

// Association release related actions
var actionAr1 = &stateAction{"AR-1", "Send A-RELEASE-RQ PDU",
	func(sm *stateMachine, event stateEvent) *stateType {
		sendPDU(sm, &pdu.A_RELEASE_RQ{})
		startAcseTimer(sm)
		return sta07
	}}
var actionAr2 = &stateAction{"AR-2", "Issue A-RELEASE indication primitive",
	func(sm *stateMachine, event stateEvent) *stateType {
		sm.downcallCh <- stateEvent{event: evt14}
		return sta08
	}}

var actionAr3 = &stateAction{"AR-3", "Issue A-RELEASE confirmation primitive and close transport connection",
	func(sm *stateMachine, event stateEvent) *stateType {
		sendPDU(sm, &pdu.A_RELEASE_RP{})
		closeConnection(sm)
		return sta01
	}}
var actionAr4 = &stateAction{"AR-4", "Issue A-RELEASE-RP PDU and start ARTIM timer",
	func(sm *stateMachine, event stateEvent) *stateType {
		sendPDU(sm, &pdu.A_RELEASE_RP{})
		startTimer(sm)
		return sta13
	}}

var actionAr5 = &stateAction{"AR-5", "Stop ARTIM timer",
	func(sm *stateMachine, event stateEvent) *stateType {
		stopTimer(sm)
		return sta01
	}}

var actionAr6 = &stateAction{"AR-6", "Issue P-DATA indication",
	func(sm *stateMachine, event stateEvent) *stateType {
		return sta07
	}}

var actionAr7 = &stateAction{"AR-7", "Issue P-DATA-TF PDU",
	func(sm *stateMachine, event stateEvent) *stateType {
		doassert(event.dimsePayload != nil)
		pdus := splitDataIntoPDUs(sm, event.dimsePayload)
		for i := range pdus {
			sendPDU(sm, &pdus[i])
		}
		sm.downcallCh <- stateEvent{event: evt14}
		return sta08
	}}

var actionAr8 = &stateAction{"AR-8", "Issue A-RELEASE indication (release collision): if association-requestor, next state is Sta09, if not next state is Sta10",
	func(sm *stateMachine, event stateEvent) *stateType {
		if sm.isUser {
			return sta09
		}
		return sta10
	}}

var actionAr9 = &stateAction{"AR-9", "Send A-RELEASE-RP PDU",
	func(sm *stateMachine, event stateEvent) *stateType {
		sendPDU(sm, &pdu.A_RELEASE_RP{})
		return sta11
	}}

var actionAr10 = &stateAction{"AR-10", "Issue A-RELEASE confirmation primitive",
	func(sm *stateMachine, event stateEvent) *stateType {
		return sta12
	}}

// Association abort related actions
var actionAa1 = &stateAction{"AA-1", "Send A-ABORT PDU (service-user source) and start (or restart if already started) ARTIM timer",
	func(sm *stateMachine, event stateEvent) *stateType {
		diagnostic := byte(0)
		if sm.currentState == sta02 {
			diagnostic = 2
		}
		sendPDU(sm, &pdu.A_ABORT{Source: 0, Reason: diagnostic})
		restartTimer(sm)
		return sta13
	}}

var actionAa2 = &stateAction{"AA-2", "Stop ARTIM timer if running. Close transport connection",
	func(sm *stateMachine, event stateEvent) *stateType {
		stopTimer(sm)
		closeConnection(sm)
		return sta01
	}}

var actionAa3 = &stateAction{"AA-3", "If (service-user initiated abort): issue A-ABORT indication and close transport connection, otherwise (service-dul initiated abort): issue A-P-ABORT indication and close transport connection",
	func(sm *stateMachine, event stateEvent) *stateType {
		closeConnection(sm)
		return sta01
	}}

var actionAa4 = &stateAction{"AA-4", "Issue A-P-ABORT indication primitive",
	func(sm *stateMachine, event stateEvent) *stateType {
		return sta01
	}}

var actionAa5 = &stateAction{"AA-5", "Stop ARTIM timer",
	func(sm *stateMachine, event stateEvent) *stateType {
		stopTimer(sm)
		return sta01
	}}

var actionAa6 = &stateAction{"AA-6", "Ignore PDU",
	func(sm *stateMachine, event stateEvent) *stateType {
		return sta13
	}}

var actionAa7 = &stateAction{"AA-7", "Send A-ABORT PDU",
	func(sm *stateMachine, event stateEvent) *stateType {
		sendPDU(sm, &pdu.A_ABORT{Source: 0, Reason: 0})
		return sta13
	}}

var actionAa8 = &stateAction{"AA-8", "Send A-ABORT PDU (service-dul source), issue an A-P-ABORT indication and start ARTIM timer",
	func(sm *stateMachine, event stateEvent) *stateType {
		sendPDU(sm, &pdu.A_ABORT{Source: 2, Reason: 0})
		startTimer(sm)
		return sta13
	}}

var (
	upcallEventHandshakeCompleted  = eventType{100, "Handshake completed"}
	upcallEventData                = eventType{101, "P_DATA_TF PDU received"}
	upcallEventAssociationRejected = eventType{102, "A-ASSOCIATE-RJ received"}
	// Note: connection shutdown and any other error will result in channel
	// closure, so they don't have event types of their own.
)

// upcallEvent is sent from the statemachine to the upper layer (serviceUser
// or serviceProvider dispatcher).
type upcallEvent struct {
	eventType eventType // upcallEvent*

	// abstractSyntaxUID is extracted from the P_DATA_TF packet.
	// transferSyntaxUID is the value agreed on for the abstractSyntaxUID
	// during protocol handshake. Both are nonempty iff
	// eventType==upcallEventData.
	abstractSyntaxUID string
	transferSyntaxUID string

	// cm is set for both upcallEventHandshakeCompleted (so the upper layer
	// can stash the negotiated context mappings) and upcallEventData (so
	// the dispatcher can resolve contextID to abstract/transfer syntax).
	cm        *contextManager
	contextID byte

	command dimse.Message
	data    []byte

	// err is set for eventType==upcallEventAssociationRejected: a
	// *NegotiationError carrying the A-ASSOCIATE-RJ's result/source/reason.
	err error
}

// stateEventDIMSEPayload carries one DIMSE command (and optional data) down
// to the statemachine for transmission as one or more P-DATA-TF PDUs.
type stateEventDIMSEPayload struct {
	// The syntax UID of the data to be sent.
	abstractSyntaxName string

	// The DIMSE command set to send; splitDataIntoPDUs encodes this as the
	// command PDV stream ahead of the optional data PDV stream below.
	command dimse.Message

	// Data to send. len(data) may exceed the max PDU size, in which case it
	// will be split into multiple PresentationDataValueItems.
	data []byte
}

type stateEventDebugInfo struct {
	state *stateType // the state the system was in when timer was created.
}

type stateEvent struct {
	event eventType
	pdu   pdu.PDU
	err   error
	conn  *Transport

	serverAddr   string                  // host:port to connect to. Set only for evt01
	dimsePayload *stateEventDIMSEPayload // set iff event==evt09.
	debug        *stateEventDebugInfo
}

func (e *stateEvent) String() string {
	debug := ""
	if e.debug != nil {
		debug = e.debug.state.String()
	}
	return fmt.Sprintf("type:%d(%s) err:%v debug:%v pdu:%v", e.event.Event, e.event.Description, e.err, debug, e.pdu)
}

type stateTransition struct {
	current *stateType
	event   eventType
	action  *stateAction
}

var stateTransitions = []stateTransition{
	{sta01, evt01, actionAe1},
	{sta01, evt05, actionAe5},
	{sta02, evt03, actionAa1},
	{sta02, evt04, actionAa1},
	{sta02, evt06, actionAe6},
	{sta02, evt10, actionAa1},
	{sta02, evt12, actionAa1},
	{sta02, evt13, actionAa1},
	{sta02, evt16, actionAa2},
	{sta02, evt17, actionAa5},
	{sta02, evt18, actionAa2},
	{sta02, evt19, actionAa1},
	{sta03, evt03, actionAa8},
	{sta03, evt04, actionAa8},
	{sta03, evt06, actionAa8},
	{sta03, evt07, actionAe7},
	{sta03, evt08, actionAe8},
	{sta03, evt10, actionAa8},
	{sta03, evt12, actionAa8},
	{sta03, evt13, actionAa8},
	{sta03, evt15, actionAa1},
	{sta03, evt16, actionAa3},
	{sta03, evt17, actionAa4},
	{sta03, evt18, actionAa8},
	{sta03, evt19, actionAa8},
	{sta04, evt02, actionAe2},
	{sta04, evt15, actionAa2},
	{sta04, evt17, actionAa4},
	{sta05, evt03, actionAe3},
	{sta05, evt04, actionAe4},
	{sta05, evt06, actionAa8},
	{sta05, evt10, actionAa8},
	{sta05, evt12, actionAa8},
	{sta05, evt13, actionAa8},
	{sta05, evt15, actionAa1},
	{sta05, evt16, actionAa3},
	{sta05, evt17, actionAa4},
	{sta05, evt18, actionAa8},
	{sta05, evt19, actionAa8},

	{sta06, evt03, actionAa8},
	{sta06, evt04, actionAa8},
	{sta06, evt06, actionAa8},
	{sta06, evt09, actionDt1},
	{sta06, evt10, actionDt2},
	{sta06, evt11, actionAr1},
	{sta06, evt12, actionAr2},
	{sta06, evt13, actionAa8},
	{sta06, evt15, actionAa1},
	{sta06, evt16, actionAa3},
	{sta06, evt17, actionAa4},
	{sta06, evt18, actionAa8},
	{sta06, evt19, actionAa8},
	{sta07, evt03, actionAa8},
	{sta07, evt04, actionAa8},
	{sta07, evt06, actionAa8},
	{sta07, evt10, actionAr6},
	{sta07, evt12, actionAr8},
	{sta07, evt13, actionAr3},
	{sta07, evt15, actionAa1},
	{sta07, evt16, actionAa3},
	{sta07, evt17, actionAa4},
	{sta07, evt18, actionAa8},
	{sta07, evt19, actionAa8},
	{sta08, evt03, actionAa8},
	{sta08, evt04, actionAa8},
	{sta08, evt06, actionAa8},
	{sta08, evt09, actionAr7},
	{sta08, evt10, actionAa8},
	{sta08, evt12, actionAa8},
	{sta08, evt13, actionAa8},
	{sta08, evt14, actionAr4},
	{sta08, evt15, actionAa1},
	{sta08, evt16, actionAa3},
	{sta08, evt17, actionAa4},
	{sta08, evt18, actionAa8},
	{sta08, evt19, actionAa8},
	{sta09, evt03, actionAa8},
	{sta09, evt04, actionAa8},
	{sta09, evt06, actionAa8},
	{sta09, evt10, actionAa8},
	{sta09, evt12, actionAa8},
	{sta09, evt13, actionAa8},
	{sta09, evt14, actionAr9},
	{sta09, evt15, actionAa1},
	{sta09, evt16, actionAa3},
	{sta09, evt17, actionAa4},
	{sta09, evt18, actionAa8},
	{sta09, evt19, actionAa8},
	{sta10, evt03, actionAa8},
	{sta10, evt04, actionAa8},
	{sta10, evt06, actionAa8},
	{sta10, evt10, actionAa8},
	{sta10, evt12, actionAa8},
	{sta10, evt13, actionAr10},
	{sta10, evt15, actionAa1},
	{sta10, evt16, actionAa3},
	{sta10, evt17, actionAa4},
	{sta10, evt18, actionAa8},
	{sta10, evt19, actionAa8},
	{sta11, evt03, actionAa8},
	{sta11, evt04, actionAa8},
	{sta11, evt06, actionAa8},
	{sta11, evt10, actionAa8},
	{sta11, evt12, actionAa8},
	{sta11, evt13, actionAr3},
	{sta11, evt15, actionAa1},
	{sta11, evt16, actionAa3},
	{sta11, evt17, actionAa4},
	{sta11, evt18, actionAa8},
	{sta11, evt19, actionAa8},
	{sta12, evt03, actionAa8},
	{sta12, evt04, actionAa8},
	{sta12, evt06, actionAa8},
	{sta12, evt10, actionAa8},
	{sta12, evt12, actionAa8},
	{sta12, evt13, actionAa8},
	{sta12, evt14, actionAr4},
	{sta12, evt15, actionAa1},
	{sta12, evt16, actionAa3},
	{sta12, evt17, actionAa4},
	{sta12, evt18, actionAa8},
	{sta12, evt19, actionAa8},

	{sta13, evt03, actionAa6},
	{sta13, evt04, actionAa6},
	{sta13, evt06, actionAa7},
	{sta13, evt07, actionAa7},
	{sta13, evt08, actionAa7},
	{sta13, evt09, actionAa7},
	{sta13, evt10, actionAa6},
	{sta13, evt11, actionAa6},
	{sta13, evt12, actionAa6},
	{sta13, evt13, actionAa6},
	{sta13, evt14, actionAa6},
	{sta13, evt15, actionAa2},
	{sta13, evt16, actionAa2},
	{sta13, evt17, actionAr5},
	{sta13, evt18, actionAa2},
	{sta13, evt19, actionAa7},
}

type stateMachine struct {
	name           string // For logging only
	isUser         bool   // true if service user, false if provider
	userParams     ServiceUserParams
	providerParams ServiceProviderParams

	// contextManager maps between a contextID (an odd integer) and the
	// abstract/transfer syntax pair negotiated for it. Populated during the
	// A-ASSOCIATE handshake.
	contextManager *contextManager

	// For receiving PDU and network status events.
	// Owned by networkReaderThread.
	netCh chan stateEvent

	// For reporting errors to this event.  Owned by the statemachine.
	errorCh chan stateEvent

	// For receiving commands from the upper layer
	// Owned by the upper layer.
	downcallCh chan stateEvent

	// For sending indications to the the upper layer. Owned by the
	// statemachine.
	upcallCh chan upcallEvent

	// For Timer expiration event
	timerCh      chan stateEvent
	conn         *Transport
	currentState *stateType

	// The PDU size this side proposes in the handshake, and after the
	// handshake completes, the max size the peer declared it can receive.
	maxPDUSize int

	commandAssembler dimse.CommandAssembler
	faults           *FaultInjector

	// artimTimeout is the configured ARTIM timer duration (Config.ARTIMTimeout),
	// used only for the two waits PS3.8 assigns it: Sta2 (awaiting
	// A-ASSOCIATE-RQ) and Sta13 (awaiting transport close).
	artimTimeout time.Duration
	// acseTimeout bounds the A-ASSOCIATE and A-RELEASE round trips
	// (Config.ACSETimeout) — Sta5 awaiting A-ASSOCIATE-AC/RJ and Sta7
	// awaiting A-RELEASE-RP.
	acseTimeout time.Duration
	// networkTimeout bounds a single blocking transport read (Config.NetworkTimeout).
	networkTimeout time.Duration
	// tlsWrap upgrades the raw net.Conn once, before any PDU traffic (Config.TLSWrap).
	tlsWrap TLSWrapFunc
}

func closeConnection(sm *stateMachine) {
	close(sm.upcallCh)
	glog.Infof("%s: Closing connection %v", sm.name, sm.conn)
	sm.conn.Close()
}

func sendPDU(sm *stateMachine, p pdu.PDU) {
	doassert(sm.conn != nil)
	data, err := pdu.EncodePDU(p)
	if err != nil {
		glog.Infof("%s: Failed to encode: %v; closing connection %v", sm.name, err, sm.conn)
		sm.conn.Close()
		sm.errorCh <- stateEvent{event: evt17, err: err}
		return
	}
	if sm.faults != nil {
		action := sm.faults.onSend(data)
		if action == faultInjectorDisconnect {
			glog.Infof("%s: FAULT: closing connection for test", sm.name)
			sm.conn.Close()
		}
	}
	n, err := sm.conn.Write(data)
	if n != len(data) || err != nil {
		glog.Infof("%s: Failed to write %d bytes. Actual %d bytes : %v; closing connection %v", sm.name, len(data), n, err, sm.conn)
		sm.conn.Close()
		sm.errorCh <- stateEvent{event: evt17, err: err}
		return
	}
}

// startTimer arms the ARTIM timer (PS3.8 9.2.2): Sta2 and Sta13.
func startTimer(sm *stateMachine) {
	timeout := sm.artimTimeout
	if timeout <= 0 {
		timeout = DefaultARTIMTimeout
	}
	startTimerWithTimeout(sm, timeout)
}

// startAcseTimer arms the round-trip timer for Sta5 (awaiting
// A-ASSOCIATE-AC/RJ) and Sta7 (awaiting A-RELEASE-RP), using
// Config.ACSETimeout rather than ARTIMTimeout;
// the two timers are checked independently.
func startAcseTimer(sm *stateMachine) {
	timeout := sm.acseTimeout
	if timeout <= 0 {
		timeout = DefaultACSETimeout
	}
	startTimerWithTimeout(sm, timeout)
}

func startTimerWithTimeout(sm *stateMachine, timeout time.Duration) {
	ch := make(chan stateEvent, 1)
	sm.timerCh = ch
	currentState := sm.currentState
	time.AfterFunc(timeout,
		func() {
			ch <- stateEvent{event: evt18, debug: &stateEventDebugInfo{currentState}}
			close(ch)
		})
}

func restartTimer(sm *stateMachine) {
	startTimer(sm)
}

func stopTimer(sm *stateMachine) {
	sm.timerCh = make(chan stateEvent, 1)
}

func networkReaderThread(ch chan stateEvent, conn *Transport, maxPDUSize int, smName string) {
	glog.V(1).Infof("%s: Starting network reader for %v, maxPDU %d", smName, conn, maxPDUSize)
	for {
		p, err := pdu.ReadPDU(conn, maxPDUSize)
		if err != nil {
			glog.Infof("%s: Failed to read PDU: %v", smName, err)
			if err == io.EOF {
				ch <- stateEvent{event: evt17, pdu: nil, err: nil}
			} else if err == ErrReadTimeout {
				ch <- stateEvent{event: evt18, pdu: nil, err: &TimeoutError{Kind: NetworkTimeoutKind}}
			} else {
				ch <- stateEvent{event: evt19, pdu: nil, err: &ProtocolError{Err: err}}
			}
			close(ch)
			break
		}
		doassert(p != nil)
		switch n := p.(type) {
		case *pdu.A_ASSOCIATE:
			if n.Type == pdu.PDUTypeA_ASSOCIATE_RQ {
				ch <- stateEvent{event: evt06, pdu: n, err: nil}
			} else {
				doassert(n.Type == pdu.PDUTypeA_ASSOCIATE_AC)
				ch <- stateEvent{event: evt03, pdu: n, err: nil}
			}
			continue
		case *pdu.A_ASSOCIATE_RJ:
			ch <- stateEvent{event: evt04, pdu: n, err: nil}
			continue
		case *pdu.P_DATA_TF:
			ch <- stateEvent{event: evt10, pdu: n, err: nil}
			continue
		case *pdu.A_RELEASE_RQ:
			ch <- stateEvent{event: evt12, pdu: n, err: nil}
			continue
		case *pdu.A_RELEASE_RP:
			ch <- stateEvent{event: evt13, pdu: n, err: nil}
			continue
		case *pdu.A_ABORT:
			ch <- stateEvent{event: evt16, pdu: n, err: nil}
			continue
		default:
			err := fmt.Errorf("%s: unknown PDU type: %v", smName, p.String())
			ch <- stateEvent{event: evt19, pdu: p, err: err}
			glog.Error(err)
			continue
		}
	}
	glog.V(1).Infof("%s: Exiting network reader for %v", smName, conn)
}

func getNextEvent(sm *stateMachine) stateEvent {
	var ok bool
	var event stateEvent
	var channel string
	for event.event.Event == 0 {
		select {
		case event, ok = <-sm.netCh:
			channel = "net"
			if !ok {
				sm.netCh = nil
			}
		case event = <-sm.errorCh:
			channel = "error"
			// this channel shall never close.
		case event, ok = <-sm.timerCh:
			channel = "timer"
			if !ok {
				sm.timerCh = nil
			}
		case event, ok = <-sm.downcallCh:
			channel = "downcall"
			if !ok {
				sm.downcallCh = nil
			}
		}
	}
	if event.event.Event == 0 {
		glog.Fatalf("%s: received null event from channel '%s', sm: %v",
			sm.name, channel, sm)
	}
	switch event.event {
	case evt02:
		doassert(event.conn != nil)
		sm.conn = event.conn
	case evt17:
		close(sm.upcallCh)
		sm.conn = nil
	}
	return event
}

func findAction(currentState *stateType, event *stateEvent) *stateAction {
	for _, t := range stateTransitions {
		if t.current == currentState && t.event == event.event {
			return t.action
		}
	}
	return nil
}

func runOneStep(sm *stateMachine) {
	event := getNextEvent(sm)
	glog.V(1).Infof("%s: Current state: %v, Event %v", sm.name, sm.currentState, event)
	action := findAction(sm.currentState, &event)
	if action == nil {
		msg := fmt.Sprintf("%s: No action found for state %v, event %v", sm.name, sm.currentState, event.String())
		if sm.faults != nil {
			msg += " FIhistory: " + sm.faults.String()
		}
		glog.Infof("Unknown state transition:")
		for _, s := range strings.Split(msg, "\n") {
			glog.Infof(s)
		}
		glog.Fatalf(msg)
	}
	if sm.faults != nil {
		sm.faults.onStateTransition(*sm.currentState, &event, action)
	}
	glog.V(1).Infof("%s: Running action %v", sm.name, action)
	sm.currentState = action.Callback(sm, event)
	glog.V(1).Infof("Next state: %v", sm.currentState)
}

// runStateMachineForServiceUser drives the requestor side of the Upper Layer
// state machine. NewServiceUser starts it before any connection exists; the
// later ServiceUser.Connect/SetConn call posts an evt02 (or evt17 on dial
// failure) on downcallCh, so the machine starts directly in Sta04.
func runStateMachineForServiceUser(
	params ServiceUserParams,
	upcallCh chan upcallEvent,
	downcallCh chan stateEvent) {
	doassert(params.CalledAETitle != "")
	doassert(params.CallingAETitle != "")
	doassert(len(params.RequiredServices) > 0)
	doassert(len(params.SupportedTransferSyntaxes) > 0)
	cfg := params.Config.withDefaults()
	sm := &stateMachine{
		name:           fmt.Sprintf("sm(u)-%d", atomic.AddInt32(&smSeq, 1)),
		isUser:         true,
		contextManager: newContextManager(),
		userParams:     params,
		netCh:          make(chan stateEvent, 128),
		errorCh:        make(chan stateEvent, 128),
		downcallCh:     downcallCh,
		upcallCh:       upcallCh,
		maxPDUSize:     cfg.MaxPDUSize,
		artimTimeout:   cfg.ARTIMTimeout,
		acseTimeout:    cfg.ACSETimeout,
		tlsWrap:        cfg.TLSWrap,
		networkTimeout: cfg.NetworkTimeout,
		faults:         getUserFaultInjector(),
	}
	sm.currentState = sta04
	for sm.currentState != sta01 {
		runOneStep(sm)
	}
	glog.V(1).Info("Connection shutdown")
}

// runStateMachineForServiceProvider drives the acceptor side of the Upper
// Layer state machine over an already-accepted connection.
func runStateMachineForServiceProvider(
	conn *Transport,
	params ServiceProviderParams,
	upcallCh chan upcallEvent,
	downcallCh chan stateEvent) {
	cfg := params.Config.withDefaults()
	sm := &stateMachine{
		name:           fmt.Sprintf("sm(p)-%d", atomic.AddInt32(&smSeq, 1)),
		isUser:         false,
		contextManager: newContextManager(),
		providerParams: params,
		conn:           conn,
		netCh:          make(chan stateEvent, 128),
		errorCh:        make(chan stateEvent, 128),
		downcallCh:     downcallCh,
		upcallCh:       upcallCh,
		maxPDUSize:     cfg.MaxPDUSize,
		artimTimeout:   cfg.ARTIMTimeout,
		acseTimeout:    cfg.ACSETimeout,
		tlsWrap:        cfg.TLSWrap,
		networkTimeout: cfg.NetworkTimeout,
		faults:         getProviderFaultInjector(),
	}
	event := stateEvent{event: evt05, conn: conn}
	action := findAction(sta01, &event)
	sm.currentState = action.Callback(sm, event)
	for sm.currentState != sta01 {
		runOneStep(sm)
	}
	glog.V(1).Info("Connection shutdown")
}
