package netdicom_test

import (
	"errors"
	"flag"
	"github.com/dcmweld/netdicom"
	"github.com/dcmweld/netdicom/dimse"
	"github.com/dcmweld/netdicom/sopclass"
	"github.com/golang/glog"
	"github.com/yasushi-saito/go-dicom"
	"github.com/yasushi-saito/go-dicom/dicomio"
	"github.com/yasushi-saito/go-dicom/dicomuid"
	"net"
	"sync"
	"testing"
)

var serverAddr string
var cstoreData []byte

var once sync.Once

func initTest() {
	once.Do(func() {
		flag.Parse()
		listener, err := net.Listen("tcp", ":0")
		if err != nil {
			glog.Fatal(err)
		}
		go func() {
			var supportedServices []sopclass.SOPUID
			supportedServices = append(supportedServices, sopclass.VerificationClasses...)
			supportedServices = append(supportedServices, sopclass.StorageClasses...)
			supportedServices = append(supportedServices, sopclass.QRFindClasses...)
			params := netdicom.ServiceProviderParams{
				CEcho:                     func() dimse.Status { return dimse.StatusSuccess },
				CStore:                    onCStoreRequest,
				CFind:                     onCFindRequest,
				NGet:                      onNGetRequest,
				SupportedServices:         supportedServices,
				SupportedTransferSyntaxes: dicomio.StandardTransferSyntaxes,
			}
			for {
				conn, err := listener.Accept()
				if err != nil {
					glog.Infof("Accept error: %v", err)
					continue
				}
				glog.Infof("Accepted connection %v", conn)
				netdicom.RunProviderForConn(conn, params)
			}
		}()
		serverAddr = listener.Addr().String()
	})
}

func onCStoreRequest(
	transferSyntaxUID string,
	sopClassUID string,
	sopInstanceUID string,
	data []byte) dimse.Status {
	glog.Infof("Start C-STORE handler, transfersyntax=%s, sopclass=%s, sopinstance=%s",
		dicomuid.UIDString(transferSyntaxUID),
		dicomuid.UIDString(sopClassUID),
		dicomuid.UIDString(sopInstanceUID))
	e := dicomio.NewBytesEncoder(nil, dicomio.UnknownVR)
	dicom.WriteFileHeader(e,
		[]*dicom.Element{
			dicom.MustNewElement(dicom.TagTransferSyntaxUID, transferSyntaxUID),
			dicom.MustNewElement(dicom.TagMediaStorageSOPClassUID, sopClassUID),
			dicom.MustNewElement(dicom.TagMediaStorageSOPInstanceUID, sopInstanceUID),
		})
	e.WriteBytes(data)

	if cstoreData != nil {
		glog.Fatal("Received C-STORE data twice")
	}
	cstoreData = e.Bytes()
	glog.Infof("Received C-STORE request")
	return dimse.StatusSuccess
}

func onCFindRequest(
	transferSyntaxUID string,
	sopClassUID string,
	filters []*dicom.Element) chan netdicom.CFindResult {
	ch := make(chan netdicom.CFindResult, 128)
	glog.Infof("Received cfind request")
	found := 0
	for _, elem := range filters {
		glog.Infof("Filter %v", elem)
		if elem.Tag == dicom.TagQueryRetrieveLevel {
			if elem.MustGetString() != "PATIENT" {
				glog.Fatalf("Wrong QR level: %v", elem)
			}
			found++
		}
		if elem.Tag == dicom.TagPatientName {
			if elem.MustGetString() != "foohah" {
				glog.Fatalf("Wrong patient name: %v", elem)
			}
			found++
		}
	}
	if found != 2 {
		glog.Fatalf("Didn't find expected filters: %v", filters)
	}
	ch <- netdicom.CFindResult{
		Elements: []*dicom.Element{dicom.MustNewElement(dicom.TagPatientName, "johndoe")},
	}
	ch <- netdicom.CFindResult{
		Elements: []*dicom.Element{dicom.MustNewElement(dicom.TagPatientName, "johndoe2")},
	}
	close(ch)
	return ch
}

func checkFileBodiesEqual(t *testing.T, in, out *dicom.DataSet) {
	var removeMetaElems = func(f *dicom.DataSet) []*dicom.Element {
		var elems []*dicom.Element
		for _, elem := range f.Elements {
			if elem.Tag.Group != dicom.TagMetadataGroup {
				elems = append(elems, elem)
			}
		}
		return elems
	}

	inElems := removeMetaElems(in)
	outElems := removeMetaElems(out)
	if len(inElems) != len(outElems) {
		t.Errorf("Wrong # of elems: in %d, out %d", len(inElems), len(outElems))
	}
	for i := 0; i < len(inElems); i++ {
		ins := inElems[i].String()
		outs := outElems[i].String()
		if ins != outs {
			t.Errorf("%dth element mismatch: %v <-> %v", i, ins, outs)
		}
	}
}

func getCStoreData() (*dicom.DataSet, error) {
	if cstoreData == nil {
		return nil, errors.New("Did not receive C-STORE data")
	}
	f, err := dicom.ReadDataSetInBytes(cstoreData, dicom.ReadOptions{})
	if err != nil {
		return nil, err
	}
	return f, nil
}

const (
	testSOPClassUID    = "1.2.840.10008.5.1.4.1.1.7" // Secondary capture image storage
	testSOPInstanceUID = "1.2.840.113857.113857.1345.1"
)

// createTestDataSet synthesizes a minimal but complete DICOM file in memory:
// a standard file header (preamble, magic, group-2 meta) followed by a body
// encoded Implicit VR Little Endian.
func createTestDataSet() ([]byte, string) {
	transferSyntaxUID := dicomuid.ImplicitVRLittleEndian
	e := dicomio.NewBytesEncoder(nil, dicomio.UnknownVR)
	dicom.WriteFileHeader(e,
		[]*dicom.Element{
			dicom.MustNewElement(dicom.TagTransferSyntaxUID, transferSyntaxUID),
			dicom.MustNewElement(dicom.TagMediaStorageSOPClassUID, testSOPClassUID),
			dicom.MustNewElement(dicom.TagMediaStorageSOPInstanceUID, testSOPInstanceUID),
		})
	body := dicomio.NewBytesEncoderWithTransferSyntax(transferSyntaxUID)
	dicom.WriteElement(body, dicom.MustNewElement(dicom.TagSOPClassUID, testSOPClassUID))
	dicom.WriteElement(body, dicom.MustNewElement(dicom.TagSOPInstanceUID, testSOPInstanceUID))
	dicom.WriteElement(body, dicom.MustNewElement(dicom.TagPatientName, "doe^john"))
	if err := body.Error(); err != nil {
		glog.Fatal(err)
	}
	e.WriteBytes(body.Bytes())
	return e.Bytes(), transferSyntaxUID
}

func onNGetRequest(
	transferSyntaxUID, sopClassUID, sopInstanceUID string,
	attrs []dicom.Tag) (dimse.Status, []byte) {
	glog.Infof("Received N-GET request, sopclass=%s, sopinstance=%s, %d attrs",
		dicomuid.UIDString(sopClassUID), sopInstanceUID, len(attrs))
	e := dicomio.NewBytesEncoderWithTransferSyntax(transferSyntaxUID)
	dicom.WriteElement(e, dicom.MustNewElement(dicom.TagPatientName, "johndoe"))
	if err := e.Error(); err != nil {
		return dimse.Status{Status: dimse.StatusInvalidArgumentValue, ErrorComment: err.Error()}, nil
	}
	return dimse.StatusSuccess, e.Bytes()
}

func TestNGet(t *testing.T) {
	initTest()
	params, err := netdicom.NewServiceUserParams(
		"dontcare", "testclient", sopclass.StorageClasses,
		[]string{dicomuid.ImplicitVRLittleEndian})
	if err != nil {
		t.Fatal(err)
	}
	su := netdicom.NewServiceUser(params)
	su.Connect(serverAddr)
	defer su.Release()
	data, err := su.NGet(testSOPClassUID, testSOPInstanceUID, []dicom.Tag{dicom.TagPatientName})
	if err != nil {
		t.Fatal(err)
	}
	decoder := dicomio.NewBytesDecoderWithTransferSyntax(data, dicomuid.ImplicitVRLittleEndian)
	elem := dicom.ReadElement(decoder, dicom.ReadOptions{})
	if decoder.Error() != nil {
		t.Fatal(decoder.Error())
	}
	if elem.Tag != dicom.TagPatientName || elem.MustGetString() != "johndoe" {
		t.Error(elem)
	}
}

func TestCEcho(t *testing.T) {
	initTest()
	params, err := netdicom.NewServiceUserParams(
		"dontcare", "testclient", sopclass.VerificationClasses, nil)
	if err != nil {
		t.Fatal(err)
	}
	su := netdicom.NewServiceUser(params)
	su.Connect(serverAddr)
	if err := su.CEcho(); err != nil {
		t.Fatal(err)
	}
	su.Release()
}

func TestStoreSingleFile(t *testing.T) {
	initTest()
	data, transferSyntaxUID := createTestDataSet()
	params, err := netdicom.NewServiceUserParams(
		"dontcare", "testclient", sopclass.StorageClasses,
		[]string{transferSyntaxUID})
	if err != nil {
		glog.Fatal(err)
	}
	su := netdicom.NewServiceUser(params)
	su.Connect(serverAddr)
	err = su.CStoreRaw(data)
	if err != nil {
		glog.Fatal(err)
	}
	glog.Infof("Store done!!")
	su.Release()

	out, err := getCStoreData()
	if err != nil {
		glog.Fatal(err)
	}
	in, err := dicom.ReadDataSetInBytes(data, dicom.ReadOptions{})
	if err != nil {
		glog.Fatal(err)
	}
	checkFileBodiesEqual(t, in, out)
}

func TestFind(t *testing.T) {
	initTest()
	params, err := netdicom.NewServiceUserParams(
		"dontcare", "testclient", sopclass.QRFindClasses,
		dicomio.StandardTransferSyntaxes)
	su := netdicom.NewServiceUser(params)
	if err != nil {
		glog.Fatal(err)
	}
	su.Connect(serverAddr)
	filter := []*dicom.Element{
		dicom.MustNewElement(dicom.TagPatientName, "foohah"),
	}
	var namesFound []string

	for result := range su.CFind(netdicom.CFindPatientQRLevel, filter) {
		glog.Errorf("Got result: %v", result)
		if result.Err != nil {
			t.Error(result.Err)
			continue
		}
		for _, elem := range result.Elements {
			if elem.Tag != dicom.TagPatientName {
				t.Error(elem)
			}
			namesFound = append(namesFound, elem.MustGetString())
		}
	}
	if len(namesFound) != 2 || namesFound[0] != "johndoe" || namesFound[1] != "johndoe2" {
		t.Error(namesFound)
	}
}

func TestNonexistentServer(t *testing.T) {
	initTest()
	data, transferSyntaxUID := createTestDataSet()
	params, err := netdicom.NewServiceUserParams(
		"dontcare", "testclient", sopclass.StorageClasses,
		[]string{transferSyntaxUID})
	if err != nil {
		t.Fatal(err)
	}
	su := netdicom.NewServiceUser(params)
	su.Connect(":99999")
	err = su.CStoreRaw(data)
	if err == nil || err.Error() != "Connection failed" {
		glog.Fatalf("Expect CStore to fail: %v", err)
	}
	su.Release()
}

// TODO(saito) Test that the state machine shuts down propelry.
