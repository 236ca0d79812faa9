package clinical

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/require"

	"github.com/medrex/clinical-ledger/pkg/types"
)

// testLedger simulates the channel: one shared world state, one
// transaction context per invocation with a fresh tx id and stub.
type testLedger struct {
	state map[string][]byte
	seq   int
	now   int64
}

func newTestLedger() *testLedger {
	return &testLedger{state: map[string][]byte{}, now: 50000}
}

// ctx builds the transaction context for one invocation by caller
func (l *testLedger) ctx(caller string) *testContext {
	l.seq++
	return &testContext{
		stub: &testStub{
			ledger: l,
			txID:   fmt.Sprintf("tx%04d", l.seq),
			events: map[string][]byte{},
		},
		identity: &testIdentity{id: caller},
	}
}

type testContext struct {
	stub     *testStub
	identity *testIdentity
}

func (c *testContext) GetStub() shim.ChaincodeStubInterface  { return c.stub }
func (c *testContext) GetClientIdentity() cid.ClientIdentity { return c.identity }

type testIdentity struct {
	id string
}

func (i *testIdentity) GetID() (string, error)    { return i.id, nil }
func (i *testIdentity) GetMSPID() (string, error) { return "ClinicMSP", nil }
func (i *testIdentity) GetAttributeValue(string) (string, bool, error) {
	return "", false, nil
}
func (i *testIdentity) AssertAttributeValue(string, string) error      { return nil }
func (i *testIdentity) GetX509Certificate() (*x509.Certificate, error) { return nil, nil }

// testStub is an in-memory shim.ChaincodeStubInterface backed by the
// shared ledger state. Only the surface this chaincode touches does
// real work; the rest returns zero values.
type testStub struct {
	ledger *testLedger
	txID   string
	events map[string][]byte
}

func (s *testStub) GetState(key string) ([]byte, error) {
	return s.ledger.state[key], nil
}

func (s *testStub) PutState(key string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	s.ledger.state[key] = buf
	return nil
}

func (s *testStub) DelState(key string) error {
	delete(s.ledger.state, key)
	return nil
}

func (s *testStub) SetEvent(name string, payload []byte) error {
	s.events[name] = payload
	return nil
}

func (s *testStub) GetTxID() string { return s.txID }

func (s *testStub) GetTxTimestamp() (*timestamp.Timestamp, error) {
	return &timestamp.Timestamp{Seconds: s.ledger.now}, nil
}

func (s *testStub) GetArgs() [][]byte                            { return nil }
func (s *testStub) GetStringArgs() []string                      { return nil }
func (s *testStub) GetFunctionAndParameters() (string, []string) { return "", nil }
func (s *testStub) GetArgsSlice() ([]byte, error)                { return nil, nil }
func (s *testStub) GetChannelID() string                         { return "clinical-channel" }

func (s *testStub) InvokeChaincode(string, [][]byte, string) pb.Response {
	return pb.Response{}
}

func (s *testStub) SetStateValidationParameter(string, []byte) error { return nil }
func (s *testStub) GetStateValidationParameter(string) ([]byte, error) {
	return nil, nil
}

func (s *testStub) GetStateByRange(string, string) (shim.StateQueryIteratorInterface, error) {
	return nil, fmt.Errorf("not supported")
}

func (s *testStub) GetStateByRangeWithPagination(string, string, int32, string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, fmt.Errorf("not supported")
}

func (s *testStub) GetStateByPartialCompositeKey(string, []string) (shim.StateQueryIteratorInterface, error) {
	return nil, fmt.Errorf("not supported")
}

func (s *testStub) GetStateByPartialCompositeKeyWithPagination(string, []string, int32, string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, fmt.Errorf("not supported")
}

func (s *testStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return objectType, nil
}

func (s *testStub) SplitCompositeKey(compositeKey string) (string, []string, error) {
	return compositeKey, nil, nil
}

func (s *testStub) GetQueryResult(string) (shim.StateQueryIteratorInterface, error) {
	return nil, fmt.Errorf("not supported")
}

func (s *testStub) GetQueryResultWithPagination(string, int32, string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, fmt.Errorf("not supported")
}

func (s *testStub) GetHistoryForKey(string) (shim.HistoryQueryIteratorInterface, error) {
	return nil, fmt.Errorf("not supported")
}

func (s *testStub) GetPrivateData(string, string) ([]byte, error)     { return nil, nil }
func (s *testStub) GetPrivateDataHash(string, string) ([]byte, error) { return nil, nil }
func (s *testStub) PutPrivateData(string, string, []byte) error       { return nil }
func (s *testStub) DelPrivateData(string, string) error               { return nil }
func (s *testStub) PurgePrivateData(string, string) error             { return nil }

func (s *testStub) SetPrivateDataValidationParameter(string, string, []byte) error {
	return nil
}

func (s *testStub) GetPrivateDataValidationParameter(string, string) ([]byte, error) {
	return nil, nil
}

func (s *testStub) GetPrivateDataByRange(string, string, string) (shim.StateQueryIteratorInterface, error) {
	return nil, fmt.Errorf("not supported")
}

func (s *testStub) GetPrivateDataByPartialCompositeKey(string, string, []string) (shim.StateQueryIteratorInterface, error) {
	return nil, fmt.Errorf("not supported")
}

func (s *testStub) GetPrivateDataQueryResult(string, string) (shim.StateQueryIteratorInterface, error) {
	return nil, fmt.Errorf("not supported")
}

func (s *testStub) GetCreator() ([]byte, error)              { return nil, nil }
func (s *testStub) GetTransient() (map[string][]byte, error) { return nil, nil }
func (s *testStub) GetBinding() ([]byte, error)              { return nil, nil }
func (s *testStub) GetDecorations() map[string][]byte        { return nil }
func (s *testStub) GetSignedProposal() (*pb.SignedProposal, error) {
	return nil, nil
}

var _ shim.ChaincodeStubInterface = (*testStub)(nil)

// publishedEvents decodes the event journal a transaction published
func publishedEvents(t *testing.T, ctx *testContext) []types.Event {
	t.Helper()
	payload, ok := ctx.stub.events[EventStream]
	if !ok {
		return nil
	}
	var events []types.Event
	require.NoError(t, json.Unmarshal(payload, &events))
	return events
}
