package dimse_test

import (
	"encoding/binary"
	"github.com/dcmweld/netdicom/dimse"
	"github.com/yasushi-saito/go-dicom/dicomio"
	"testing"
)

func testDIMSE(t *testing.T, v dimse.Message) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ImplicitVR)
	dimse.EncodeMessage(e, v)
	bytes := e.Bytes()
	d := dicomio.NewBytesDecoder(bytes, binary.LittleEndian, dicomio.ImplicitVR)
	v2 := dimse.ReadMessage(d)
	err := d.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != v2.String() {
		t.Errorf("%v <-> %v", v, v2)
	}
}

func TestCStoreRq(t *testing.T) {
	testDIMSE(t, &dimse.C_STORE_RQ{
		"1.2.3",
		0x1234,
		0x2345,
		1,
		"3.4.5",
		"foohah",
		0x3456, nil})
}

func TestCStoreRsp(t *testing.T) {
	testDIMSE(t, &dimse.C_STORE_RSP{
		"1.2.3",
		0x1234,
		dimse.CommandDataSetTypeNull,
		"3.4.5",
		dimse.Status{Status: dimse.StatusCode(0x3456)},
		nil})
}

func TestCEchoRq(t *testing.T) {
	testDIMSE(t, &dimse.C_ECHO_RQ{0x1234, 1, nil})
}

func TestCEchoRsp(t *testing.T) {
	testDIMSE(t, &dimse.C_ECHO_RSP{0x1234, 1,
		dimse.Status{Status: dimse.StatusCode(0x2345)},
		nil})
}

func TestCFindRq(t *testing.T) {
	testDIMSE(t, &dimse.C_FIND_RQ{
		AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.1",
		MessageID:           0x1234,
		Priority:            1,
		CommandDataSetType:  1,
	})
}

func TestCFindRsp(t *testing.T) {
	testDIMSE(t, &dimse.C_FIND_RSP{
		AffectedSOPClassUID:       "1.2.840.10008.5.1.4.1.2.1.1",
		MessageIDBeingRespondedTo: 0x1234,
		CommandDataSetType:        1,
		Status:                    dimse.Status{Status: dimse.StatusPending},
	})
}

func TestCGetRq(t *testing.T) {
	testDIMSE(t, &dimse.C_GET_RQ{
		AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.3",
		MessageID:           0x1234,
		CommandDataSetType:  1,
	})
}

func TestCGetRsp(t *testing.T) {
	testDIMSE(t, &dimse.C_GET_RSP{
		AffectedSOPClassUID:            "1.2.840.10008.5.1.4.1.2.1.3",
		MessageIDBeingRespondedTo:      0x1234,
		CommandDataSetType:             dimse.CommandDataSetTypeNull,
		NumberOfRemainingSuboperations: 3,
		NumberOfCompletedSuboperations: 2,
		Status:                         dimse.Status{Status: dimse.StatusPending},
	})
}

func TestCMoveRq(t *testing.T) {
	testDIMSE(t, &dimse.C_MOVE_RQ{
		AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.2",
		MessageID:           0x1234,
		MoveDestination:     "REMOTESCP",
		CommandDataSetType:  1,
	})
}

func TestCMoveRsp(t *testing.T) {
	testDIMSE(t, &dimse.C_MOVE_RSP{
		AffectedSOPClassUID:            "1.2.840.10008.5.1.4.1.2.1.2",
		MessageIDBeingRespondedTo:      0x1234,
		CommandDataSetType:             dimse.CommandDataSetTypeNull,
		NumberOfRemainingSuboperations: 1,
		NumberOfFailedSuboperations:    1,
		Status:                         dimse.Status{Status: dimse.StatusCancel},
	})
}

func TestCCancelRq(t *testing.T) {
	testDIMSE(t, &dimse.C_CANCEL_RQ{MessageIDBeingRespondedTo: 0x1234})
}

func TestNEventReport(t *testing.T) {
	testDIMSE(t, &dimse.N_EVENT_REPORT_RQ{
		AffectedSOPClassUID:    "1.2.840.10008.5.1.4.34.6.4",
		AffectedSOPInstanceUID: "1.2.3.4",
		MessageID:              0x1234,
		EventTypeID:            2,
		CommandDataSetType:     dimse.CommandDataSetTypeNull,
	})
	testDIMSE(t, &dimse.N_EVENT_REPORT_RSP{
		AffectedSOPClassUID:       "1.2.840.10008.5.1.4.34.6.4",
		AffectedSOPInstanceUID:    "1.2.3.4",
		MessageIDBeingRespondedTo: 0x1234,
		EventTypeID:               2,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    dimse.StatusSuccess,
	})
}

func TestNGet(t *testing.T) {
	testDIMSE(t, &dimse.N_GET_RQ{
		RequestedSOPClassUID:    "1.2.840.10008.3.1.2.3.1",
		RequestedSOPInstanceUID: "1.2.3.4",
		MessageID:               0x1234,
		CommandDataSetType:      dimse.CommandDataSetTypeNull,
	})
	testDIMSE(t, &dimse.N_GET_RSP{
		AffectedSOPClassUID:       "1.2.840.10008.3.1.2.3.1",
		AffectedSOPInstanceUID:    "1.2.3.4",
		MessageIDBeingRespondedTo: 0x1234,
		CommandDataSetType:        1,
		Status:                    dimse.StatusSuccess,
	})
}

func TestNSet(t *testing.T) {
	testDIMSE(t, &dimse.N_SET_RQ{
		RequestedSOPClassUID:    "1.2.840.10008.3.1.2.3.1",
		RequestedSOPInstanceUID: "1.2.3.4",
		MessageID:               0x1234,
		CommandDataSetType:      1,
	})
	testDIMSE(t, &dimse.N_SET_RSP{
		AffectedSOPClassUID:       "1.2.840.10008.3.1.2.3.1",
		AffectedSOPInstanceUID:    "1.2.3.4",
		MessageIDBeingRespondedTo: 0x1234,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    dimse.StatusSuccess,
	})
}

func TestNAction(t *testing.T) {
	testDIMSE(t, &dimse.N_ACTION_RQ{
		RequestedSOPClassUID:    "1.2.840.10008.5.1.4.34.6.3",
		RequestedSOPInstanceUID: "1.2.3.4",
		MessageID:               0x1234,
		ActionTypeID:            1,
		CommandDataSetType:      1,
	})
	testDIMSE(t, &dimse.N_ACTION_RSP{
		AffectedSOPClassUID:       "1.2.840.10008.5.1.4.34.6.3",
		AffectedSOPInstanceUID:    "1.2.3.4",
		MessageIDBeingRespondedTo: 0x1234,
		ActionTypeID:              1,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    dimse.StatusSuccess,
	})
}

func TestNCreate(t *testing.T) {
	testDIMSE(t, &dimse.N_CREATE_RQ{
		AffectedSOPClassUID:    "1.2.840.10008.5.1.4.34.6.3",
		AffectedSOPInstanceUID: "1.2.3.4",
		MessageID:              0x1234,
		CommandDataSetType:     1,
	})
	testDIMSE(t, &dimse.N_CREATE_RSP{
		AffectedSOPClassUID:       "1.2.840.10008.5.1.4.34.6.3",
		AffectedSOPInstanceUID:    "1.2.3.4",
		MessageIDBeingRespondedTo: 0x1234,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    dimse.StatusSuccess,
	})
}

func TestNDelete(t *testing.T) {
	testDIMSE(t, &dimse.N_DELETE_RQ{
		RequestedSOPClassUID:    "1.2.840.10008.5.1.4.34.6.3",
		RequestedSOPInstanceUID: "1.2.3.4",
		MessageID:               0x1234,
		CommandDataSetType:      dimse.CommandDataSetTypeNull,
	})
	testDIMSE(t, &dimse.N_DELETE_RSP{
		AffectedSOPClassUID:       "1.2.840.10008.5.1.4.34.6.3",
		AffectedSOPInstanceUID:    "1.2.3.4",
		MessageIDBeingRespondedTo: 0x1234,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    dimse.StatusSuccess,
	})
}

func TestStatusWithErrorComment(t *testing.T) {
	testDIMSE(t, &dimse.C_STORE_RSP{
		AffectedSOPClassUID:       "1.2.3",
		MessageIDBeingRespondedTo: 0x1234,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		AffectedSOPInstanceUID:    "3.4.5",
		Status: dimse.Status{
			Status:       dimse.CStoreStatusCannotUnderstand,
			ErrorComment: "unparseable dataset",
		},
	})
}
