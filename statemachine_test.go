package netdicom

import (
	"testing"

	"github.com/dcmweld/netdicom/dimse"
	"github.com/dcmweld/netdicom/pdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAbstractSyntaxUID = "1.2.840.10008.5.1.4.1.1.7"
	testTransferSyntaxUID = "1.2.840.10008.1.2"
)

// newTestContextManager returns a contextManager with one accepted context,
// as if an association handshake had already completed.
func newTestContextManager() *contextManager {
	cm := newContextManager()
	e := &contextManagerEntry{
		contextID:         1,
		abstractSyntaxUID: testAbstractSyntaxUID,
		transferSyntaxUID: testTransferSyntaxUID,
		asSCU:             true,
	}
	cm.contextIDToAbstractSyntaxNameMap[e.contextID] = e
	cm.abstractSyntaxNameToContextIDMap[e.abstractSyntaxUID] = e
	return cm
}

// TestSplitDataIntoPDUs checks the PDV fragmentation rules at max PDU 128
// with a 300-byte data payload: every PDV carries at most maxPDU-6 payload
// bytes, command fragments precede data fragments, and exactly one fragment
// per stream has the Last bit set.
func TestSplitDataIntoPDUs(t *testing.T) {
	sm := &stateMachine{
		name:           "sm(test)",
		contextManager: newTestContextManager(),
		maxPDUSize:     128,
	}
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i)
	}
	payload := &stateEventDIMSEPayload{
		abstractSyntaxName: testAbstractSyntaxUID,
		command: &dimse.C_STORE_RQ{
			AffectedSOPClassUID:    testAbstractSyntaxUID,
			MessageID:              1,
			CommandDataSetType:     dimse.CommandDataSetTypeNonNull,
			AffectedSOPInstanceUID: "1.2.3.4",
		},
		data: data,
	}
	pdus := splitDataIntoPDUs(sm, payload)

	maxChunk := 128 - 6
	var commandPDVs, dataPDVs []pdu.PresentationDataValueItem
	seenData := false
	for _, p := range pdus {
		require.Len(t, p.Items, 1)
		item := p.Items[0]
		assert.Equal(t, byte(1), item.ContextID)
		assert.LessOrEqual(t, len(item.Value), maxChunk)
		if item.Command {
			assert.False(t, seenData, "command PDV after data PDV")
			commandPDVs = append(commandPDVs, item)
		} else {
			seenData = true
			dataPDVs = append(dataPDVs, item)
		}
	}
	require.NotEmpty(t, commandPDVs)
	require.Len(t, dataPDVs, 3)
	assert.True(t, commandPDVs[len(commandPDVs)-1].Last)
	for _, item := range commandPDVs[:len(commandPDVs)-1] {
		assert.False(t, item.Last)
	}
	assert.False(t, dataPDVs[0].Last)
	assert.False(t, dataPDVs[1].Last)
	assert.True(t, dataPDVs[2].Last)
	assert.Equal(t, maxChunk, len(dataPDVs[0].Value))
	assert.Equal(t, maxChunk, len(dataPDVs[1].Value))
	assert.Equal(t, 300-2*maxChunk, len(dataPDVs[2].Value))
}

// A peer max PDU length of 0 means unlimited: each stream goes out as one
// fragment regardless of size.
func TestSplitDataIntoPDUsUnlimited(t *testing.T) {
	sm := &stateMachine{
		name:           "sm(test)",
		contextManager: newTestContextManager(),
		maxPDUSize:     0,
	}
	data := make([]byte, 100000)
	pdus := splitDataIntoPDUs(sm, &stateEventDIMSEPayload{
		abstractSyntaxName: testAbstractSyntaxUID,
		command: &dimse.C_STORE_RQ{
			AffectedSOPClassUID:    testAbstractSyntaxUID,
			MessageID:              1,
			CommandDataSetType:     dimse.CommandDataSetTypeNonNull,
			AffectedSOPInstanceUID: "1.2.3.4",
		},
		data: data,
	})
	require.Len(t, pdus, 2)
	require.Len(t, pdus[0].Items, 1)
	require.Len(t, pdus[1].Items, 1)
	assert.True(t, pdus[0].Items[0].Command)
	assert.True(t, pdus[0].Items[0].Last)
	assert.False(t, pdus[1].Items[0].Command)
	assert.True(t, pdus[1].Items[0].Last)
	assert.Equal(t, len(data), len(pdus[1].Items[0].Value))
}

// TestFragmentationRoundTrip reassembles the PDUs splitDataIntoPDUs produced
// and checks the original command and data come back intact.
func TestFragmentationRoundTrip(t *testing.T) {
	sm := &stateMachine{
		name:           "sm(test)",
		contextManager: newTestContextManager(),
		maxPDUSize:     64,
	}
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i * 7)
	}
	orig := &dimse.C_STORE_RQ{
		AffectedSOPClassUID:    testAbstractSyntaxUID,
		MessageID:              42,
		CommandDataSetType:     dimse.CommandDataSetTypeNonNull,
		AffectedSOPInstanceUID: "1.2.3.4",
	}
	pdus := splitDataIntoPDUs(sm, &stateEventDIMSEPayload{
		abstractSyntaxName: testAbstractSyntaxUID,
		command:            orig,
		data:               data,
	})

	var assembler dimse.CommandAssembler
	var contextID byte
	var command dimse.Message
	var recovered []byte
	for i := range pdus {
		var err error
		contextID, command, recovered, err = assembler.AddDataPDU(&pdus[i])
		require.NoError(t, err)
		if i < len(pdus)-1 {
			require.Nil(t, command, "message completed before the last PDU")
		}
	}
	require.NotNil(t, command)
	assert.Equal(t, byte(1), contextID)
	assert.Equal(t, data, recovered)
	resp, ok := command.(*dimse.C_STORE_RQ)
	require.True(t, ok)
	assert.Equal(t, orig.String(), resp.String())
}

// Every state that owns a transport connection must have a defined reaction
// to transport closure and to timer expiry; an undefined (state, event) pair
// crashes the state machine.
func TestStateTransitionTableCoverage(t *testing.T) {
	connectedStates := []*stateType{
		sta02, sta03, sta05, sta06, sta07, sta08, sta09, sta10, sta11, sta12, sta13}
	for _, state := range connectedStates {
		closeEvent := stateEvent{event: evt17}
		assert.NotNil(t, findAction(state, &closeEvent), "no transport-close action for %v", state)
		timerEvent := stateEvent{event: evt18}
		assert.NotNil(t, findAction(state, &timerEvent), "no timer-expiry action for %v", state)
	}
	// Dial-in-progress state: no connection yet, but closure and abort must
	// still be handled.
	closeEvent := stateEvent{event: evt17}
	assert.NotNil(t, findAction(sta04, &closeEvent))
	abortEvent := stateEvent{event: evt15}
	assert.NotNil(t, findAction(sta04, &abortEvent))
}

// Spot checks against PS3.8 table 9-10, including the release collision rows.
func TestStateTransitionTableActions(t *testing.T) {
	check := func(state *stateType, event eventType, want *stateAction) {
		ev := stateEvent{event: event}
		assert.Equal(t, want, findAction(state, &ev), "state %v event %v", state, event)
	}
	check(sta01, evt01, actionAe1)
	check(sta01, evt05, actionAe5)
	check(sta02, evt06, actionAe6)
	check(sta05, evt03, actionAe3)
	check(sta05, evt04, actionAe4)
	check(sta06, evt09, actionDt1)
	check(sta06, evt10, actionDt2)
	check(sta06, evt11, actionAr1)
	check(sta06, evt12, actionAr2)
	check(sta07, evt12, actionAr8) // release collision
	check(sta09, evt14, actionAr9)
	check(sta10, evt13, actionAr10)
	check(sta11, evt13, actionAr3)
	check(sta13, evt17, actionAr5)
	check(sta13, evt18, actionAa2)
}

// Duplicate in-flight MessageIDs must be detected before anything is sent.
func TestDispatcherRejectsDuplicateMessageID(t *testing.T) {
	disp := newServiceDispatcher()
	cm := newTestContextManager()
	context, err := cm.lookupByContextID(1)
	require.NoError(t, err)

	cs, found := disp.findOrCreateCommand(5, cm, context)
	require.False(t, found)
	_, found = disp.findOrCreateCommand(5, cm, context)
	assert.True(t, found, "second command with the same MessageID not detected")
	disp.deleteCommand(cs)
	_, found = disp.findOrCreateCommand(5, cm, context)
	assert.False(t, found, "MessageID not reusable after the command finished")
}

// A C-CANCEL-RQ for an in-flight command must mark it cancelled; a cancel
// naming an unknown MessageID is dropped without effect.
func TestProviderCancel(t *testing.T) {
	cm := newTestContextManager()
	context, err := cm.lookupByContextID(1)
	require.NoError(t, err)
	dc := providerCommandDispatcher{
		downcallCh:     make(chan stateEvent, 128),
		associationID:  "test",
		activeCommands: make(map[uint16]*providerCommandState),
	}
	cs, found := dc.findOrCreateCommand(7, cm, context)
	require.False(t, found)
	require.False(t, cs.cancelled())

	dc.handleEvent(upcallEvent{
		eventType: upcallEventData,
		cm:        cm,
		contextID: 1,
		command:   &dimse.C_CANCEL_RQ{MessageIDBeingRespondedTo: 99},
	})
	assert.False(t, cs.cancelled(), "cancel for unknown MessageID must be a no-op")

	dc.handleEvent(upcallEvent{
		eventType: upcallEventData,
		cm:        cm,
		contextID: 1,
		command:   &dimse.C_CANCEL_RQ{MessageIDBeingRespondedTo: 7},
	})
	assert.True(t, cs.cancelled())

	// A second cancel for the same command must not panic on the
	// already-closed channel.
	dc.handleEvent(upcallEvent{
		eventType: upcallEventData,
		cm:        cm,
		contextID: 1,
		command:   &dimse.C_CANCEL_RQ{MessageIDBeingRespondedTo: 7},
	})
	assert.True(t, cs.cancelled())
}
