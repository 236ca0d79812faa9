package clinical

import (
	"encoding/json"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/medrex/clinical-ledger/internal/state"
	"github.com/medrex/clinical-ledger/pkg/logger"
	"github.com/medrex/clinical-ledger/pkg/monitoring"
	"github.com/medrex/clinical-ledger/pkg/types"
)

// EventStream is the single chaincode event name under which every
// transaction publishes its journaled notifications, as a JSON array
// in emission order. Fabric allows one event per transaction, so the
// journal travels as one payload.
const EventStream = "ClinicalEvents"

var (
	log     = logger.New("info")
	metrics *monitoring.MetricsCollector
)

// SetLogger replaces the package logger, wired by the server binary
func SetLogger(l *logger.Logger) {
	log = l
}

// SetMetrics wires the invocation metrics collector, optional
func SetMetrics(m *monitoring.MetricsCollector) {
	metrics = m
}

// newTx builds the buffered transaction for one invocation: caller
// is the client identity, ledger time the transaction timestamp.
func newTx(ctx contractapi.TransactionContextInterface) (*state.Tx, error) {
	id, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return nil, types.ErrInternal("failed to resolve client identity", err)
	}
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return nil, types.ErrInternal("failed to read transaction timestamp", err)
	}
	return state.NewTx(ctx.GetStub(), id, ts.GetSeconds()), nil
}

// invoke runs one mutating operation: build the transaction, apply
// fn, and only on success write the audit trail, commit and publish
// the event journal. A failed fn leaves the world state untouched
// and publishes nothing.
func invoke(ctx contractapi.TransactionContextInterface, contract, function string, fn func(*state.Tx) error) error {
	start := time.Now()
	tx, err := newTx(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		observe(contract, function, tx.Caller(), start, err)
		return err
	}

	txID := ctx.GetStub().GetTxID()
	if err := state.RecordAudit(tx, txID); err != nil {
		observe(contract, function, tx.Caller(), start, err)
		return err
	}
	if err := tx.Commit(); err != nil {
		observe(contract, function, tx.Caller(), start, err)
		return err
	}
	if err := publish(ctx, txID, tx.Events()); err != nil {
		return err
	}
	observe(contract, function, tx.Caller(), start, nil)
	return nil
}

// query runs one read-only operation on an uncommitted transaction
func query(ctx contractapi.TransactionContextInterface, fn func(*state.Tx) error) error {
	tx, err := newTx(ctx)
	if err != nil {
		return err
	}
	return fn(tx)
}

func publish(ctx contractapi.TransactionContextInterface, txID string, events []types.Event) error {
	if len(events) == 0 {
		return nil
	}
	payload, err := json.Marshal(events)
	if err != nil {
		return types.ErrInternal("failed to marshal event journal", err)
	}
	if err := ctx.GetStub().SetEvent(EventStream, payload); err != nil {
		return types.ErrInternal("failed to publish event journal", err)
	}
	for _, ev := range events {
		log.Notification(txID, ev)
		if metrics != nil {
			metrics.RecordEvent(ev.Name)
		}
	}
	return nil
}

func observe(contract, function, actor string, start time.Time, err error) {
	if err == nil {
		log.Audit(actor, contract+"."+function, true, nil)
		if metrics != nil {
			metrics.RecordInvocation(contract, function, "success", time.Since(start))
		}
		return
	}
	log.Audit(actor, contract+"."+function, false, map[string]interface{}{
		"error": err.Error(),
	})
	if metrics != nil {
		status := statusLabel(err)
		metrics.RecordInvocation(contract, function, status, time.Since(start))
		if status == types.CodeUnauthorized {
			metrics.RecordDenial(contract, function)
		}
	}
}

// statusLabel keeps the invocation status label set bounded: the
// failure kind code where there is one, a generic label otherwise.
func statusLabel(err error) string {
	if code := types.ErrorCode(err); code != "" {
		return code
	}
	return "error"
}
