package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrex/clinical-ledger/internal/registry"
	"github.com/medrex/clinical-ledger/internal/state"
	"github.com/medrex/clinical-ledger/pkg/types"
)

const (
	testOwner  = "owner1"
	testSystem = "system1"

	admin1   = "admin1"
	doc1     = "doc1"
	doc2     = "doc2"
	patient1 = "patient1"
	patient2 = "patient2"

	testBirth = int64(2345)
	testNow   = int64(50000)
)

// newLedger seeds a store with one administrator and two doctors
func newLedger(t *testing.T) *state.MemStore {
	t.Helper()
	store := state.NewMemStore()

	tx := state.NewTx(store, testOwner, 1000)
	require.NoError(t, registry.New(tx).Initialize(testOwner, testSystem))
	require.NoError(t, tx.Commit())

	tx = state.NewTx(store, testSystem, 1000)
	reg := registry.New(tx)
	require.NoError(t, reg.AddAdministrator(admin1))
	require.NoError(t, reg.AddDoctor(doc1))
	require.NoError(t, reg.AddDoctor(doc2))
	require.NoError(t, tx.Commit())
	return store
}

// as builds a record service invoked by caller at the fixed test time
func as(store *state.MemStore, caller string) (*Service, *state.Tx) {
	tx := state.NewTx(store, caller, testNow)
	return New(tx, testSystem, testOwner), tx
}

// run commits the transaction after fn succeeds
func run(t *testing.T, store *state.MemStore, caller string, fn func(*Service) error) *state.Tx {
	t.Helper()
	svc, tx := as(store, caller)
	require.NoError(t, fn(svc))
	require.NoError(t, tx.Commit())
	return tx
}

func openRecord(t *testing.T, store *state.MemStore, doctor, patient string) {
	t.Helper()
	run(t, store, doctor, func(s *Service) error {
		return s.OpenRecord(patient, testBirth)
	})
}

func TestOpenRecord(t *testing.T) {
	store := newLedger(t)

	tx := run(t, store, doc1, func(s *Service) error {
		return s.OpenRecord(patient1, testBirth)
	})

	svc, _ := as(store, doc1)
	rec, err := svc.GetRecord(patient1)
	require.NoError(t, err)
	assert.Equal(t, patient1, rec.Holder)
	assert.Equal(t, doc1, rec.AssignedDoctor)
	assert.Equal(t, testBirth, rec.BirthDate)
	assert.Equal(t, int64(0), rec.DeathDate)
	assert.Equal(t, types.RecordOpen, rec.State)
	assert.Empty(t, rec.OpenTreatments)

	events := tx.Events()
	require.Len(t, events, 2)
	assert.Equal(t, types.EventPatientAdded, events[0].Name)
	assert.Equal(t, types.EventRecordOpened, events[1].Name)
	assert.Equal(t, doc1, events[1].Payload[types.FieldDoctor])
	assert.Equal(t, patient1, events[1].Payload[types.FieldPatient])

	assigned, err := svc.PatientsOf(doc1)
	require.NoError(t, err)
	assert.Equal(t, []string{patient1}, assigned)
}

func TestOpenRecordRejections(t *testing.T) {
	store := newLedger(t)

	svc, _ := as(store, admin1)
	err := svc.OpenRecord(patient1, testBirth)
	assert.Equal(t, types.CodeUnauthorized, types.ErrorCode(err))

	svc, _ = as(store, doc1)
	err = svc.OpenRecord(doc1, testBirth)
	assert.Equal(t, types.CodeSelfTreatment, types.ErrorCode(err))

	openRecord(t, store, doc1, patient1)
	svc, _ = as(store, doc2)
	err = svc.OpenRecord(patient1, testBirth)
	assert.Equal(t, types.CodeAlreadyPatient, types.ErrorCode(err))
}

func TestGetRecordAccessByState(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)

	svc, _ := as(store, doc2)
	_, err := svc.GetRecord(patient1)
	assert.Equal(t, types.CodeUnauthorized, types.ErrorCode(err))

	svc, _ = as(store, testOwner)
	_, err = svc.GetRecord(patient1)
	assert.Equal(t, types.CodeUnauthorized, types.ErrorCode(err))

	_, err = svc.GetRecord(patient2)
	assert.Equal(t, types.CodeNotFound, types.ErrorCode(err))

	run(t, store, doc1, func(s *Service) error {
		return s.CloseRecord(patient1)
	})

	// Closed: the assigned doctor is locked out, the controller is not
	svc, _ = as(store, doc1)
	_, err = svc.GetRecord(patient1)
	assert.Equal(t, types.CodeUnauthorized, types.ErrorCode(err))

	svc, _ = as(store, testOwner)
	rec, err := svc.GetRecord(patient1)
	require.NoError(t, err)
	assert.Equal(t, types.RecordClosed, rec.State)
	assert.Equal(t, testNow, rec.DeathDate)
}

func TestTreatmentLifecycle(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)

	var id uint64
	tx := run(t, store, doc1, func(s *Service) error {
		var err error
		id, err = s.AddTreatment(patient1, "dolor", "parazetamol y mucho agua")
		return err
	})
	assert.Equal(t, uint64(1), id)
	require.Len(t, tx.Events(), 1)
	assert.Equal(t, types.EventTreatmentOpened, tx.Events()[0].Name)
	assert.Equal(t, "1", tx.Events()[0].Payload[types.FieldTreatment])

	run(t, store, doc1, func(s *Service) error {
		return s.UpdateTreatment(patient1, 1, "parazetamol y mucho mas agua")
	})

	svc, _ := as(store, doc1)
	treatment, err := svc.GetTreatment(patient1, 1)
	require.NoError(t, err)
	assert.Equal(t, "dolor", treatment.Ailment)
	assert.Equal(t, "parazetamol y mucho mas agua", treatment.Description)
	assert.True(t, treatment.Open())

	run(t, store, doc1, func(s *Service) error {
		return s.CloseTreatment(patient1, 1)
	})

	svc, _ = as(store, doc1)
	treatment, err = svc.GetTreatment(patient1, 1)
	require.NoError(t, err)
	assert.Equal(t, testNow, treatment.ClosedAt)

	rec, err := svc.GetRecord(patient1)
	require.NoError(t, err)
	assert.Empty(t, rec.OpenTreatments)
}

func TestTreatmentIdsNeverReused(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)

	run(t, store, doc1, func(s *Service) error {
		id, err := s.AddTreatment(patient1, "dolor", "reposo")
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(1), id)
		return s.CloseTreatment(patient1, id)
	})

	run(t, store, doc1, func(s *Service) error {
		id, err := s.AddTreatment(patient1, "fiebre", "hidratacion")
		assert.Equal(t, uint64(2), id)
		return err
	})
}

func TestTreatmentMutationGates(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)

	svc, _ := as(store, doc2)
	_, err := svc.AddTreatment(patient1, "dolor", "reposo")
	assert.Equal(t, types.CodeUnauthorized, types.ErrorCode(err))

	svc, _ = as(store, doc1)
	err = svc.UpdateTreatment(patient1, 7, "nada")
	assert.Equal(t, types.CodeNotFound, types.ErrorCode(err))
	err = svc.CloseTreatment(patient1, 7)
	assert.Equal(t, types.CodeNotFound, types.ErrorCode(err))

	// Closing an already-closed treatment reads as absent from the open set
	run(t, store, doc1, func(s *Service) error {
		id, err := s.AddTreatment(patient1, "dolor", "reposo")
		if err != nil {
			return err
		}
		return s.CloseTreatment(patient1, id)
	})
	svc, _ = as(store, doc1)
	err = svc.CloseTreatment(patient1, 1)
	assert.Equal(t, types.CodeNotFound, types.ErrorCode(err))
}

func TestTreatmentsBlockedWhileMissing(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)
	run(t, store, admin1, func(s *Service) error {
		return s.MarkMissing(patient1)
	})

	svc, _ := as(store, doc1)
	_, err := svc.AddTreatment(patient1, "dolor", "reposo")
	assert.Equal(t, types.CodeRecordMissing, types.ErrorCode(err))
	err = svc.UpdateTreatment(patient1, 1, "nada")
	assert.Equal(t, types.CodeRecordMissing, types.ErrorCode(err))
	err = svc.CloseTreatment(patient1, 1)
	assert.Equal(t, types.CodeRecordMissing, types.ErrorCode(err))
	err = svc.CloseRecord(patient1)
	assert.Equal(t, types.CodeRecordMissing, types.ErrorCode(err))

	// The assigned doctor can still read record and treatments
	rec, err := svc.GetRecord(patient1)
	require.NoError(t, err)
	assert.Equal(t, types.RecordMissing, rec.State)
}

func TestMissingPresentCycle(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)

	svc, _ := as(store, doc1)
	err := svc.MarkMissing(patient1)
	assert.Equal(t, types.CodeUnauthorized, types.ErrorCode(err))

	svc, _ = as(store, admin1)
	err = svc.MarkPresent(patient1)
	assert.Equal(t, types.CodeInvalidState, types.ErrorCode(err))

	run(t, store, admin1, func(s *Service) error {
		return s.MarkMissing(patient1)
	})

	svc, _ = as(store, admin1)
	err = svc.MarkMissing(patient1)
	assert.Equal(t, types.CodeInvalidState, types.ErrorCode(err))

	run(t, store, admin1, func(s *Service) error {
		return s.MarkPresent(patient1)
	})

	svc, _ = as(store, doc1)
	rec, err := svc.GetRecord(patient1)
	require.NoError(t, err)
	assert.Equal(t, types.RecordOpen, rec.State)

	// Treatments work again once the record is back
	run(t, store, doc1, func(s *Service) error {
		_, err := s.AddTreatment(patient1, "dolor", "reposo")
		return err
	})
}

func TestCloseRecordCascade(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)
	run(t, store, doc1, func(s *Service) error {
		if _, err := s.AddTreatment(patient1, "dolor", "reposo"); err != nil {
			return err
		}
		_, err := s.AddTreatment(patient1, "fiebre", "hidratacion")
		return err
	})

	tx := run(t, store, doc1, func(s *Service) error {
		return s.CloseRecord(patient1)
	})

	events := tx.Events()
	require.Len(t, events, 3)
	assert.Equal(t, types.EventTreatmentClosed, events[0].Name)
	assert.Equal(t, "1", events[0].Payload[types.FieldTreatment])
	assert.Equal(t, types.EventTreatmentClosed, events[1].Name)
	assert.Equal(t, "2", events[1].Payload[types.FieldTreatment])
	assert.Equal(t, types.EventRecordClosed, events[2].Name)

	svc, _ := as(store, testOwner)
	rec, err := svc.GetRecord(patient1)
	require.NoError(t, err)
	assert.Empty(t, rec.OpenTreatments)
	assert.Equal(t, testNow, rec.DeathDate)
	for _, id := range []uint64{1, 2} {
		treatment, err := svc.GetTreatment(patient1, id)
		require.NoError(t, err)
		assert.Equal(t, testNow, treatment.ClosedAt)
	}

	// Closure removes the patient from the doctor's assigned list
	svc, _ = as(store, doc1)
	assigned, err := svc.PatientsOf(doc1)
	require.NoError(t, err)
	assert.Empty(t, assigned)
}

func TestClosedRecordIsTerminal(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)
	run(t, store, doc1, func(s *Service) error {
		return s.CloseRecord(patient1)
	})

	svc, _ := as(store, doc1)
	_, err := svc.AddTreatment(patient1, "dolor", "reposo")
	assert.Equal(t, types.CodeRecordClosed, types.ErrorCode(err))
	err = svc.UpdateTreatment(patient1, 1, "nada")
	assert.Equal(t, types.CodeRecordClosed, types.ErrorCode(err))
	err = svc.CloseTreatment(patient1, 1)
	assert.Equal(t, types.CodeRecordClosed, types.ErrorCode(err))
	err = svc.CloseRecord(patient1)
	assert.Equal(t, types.CodeRecordClosed, types.ErrorCode(err))

	svc, _ = as(store, admin1)
	err = svc.MarkMissing(patient1)
	assert.Equal(t, types.CodeRecordClosed, types.ErrorCode(err))
	err = svc.MarkPresent(patient1)
	assert.Equal(t, types.CodeRecordClosed, types.ErrorCode(err))
	err = svc.TransferRecord(patient1, doc2)
	assert.Equal(t, types.CodeRecordClosed, types.ErrorCode(err))
}

func TestCloseRecordRequiresAssignedDoctor(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)

	svc, _ := as(store, doc2)
	err := svc.CloseRecord(patient1)
	assert.Equal(t, types.CodeUnauthorized, types.ErrorCode(err))

	svc, _ = as(store, doc1)
	err = svc.CloseRecord(patient2)
	assert.Equal(t, types.CodeNotFound, types.ErrorCode(err))
}

func TestTransferRecord(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)

	tx := run(t, store, admin1, func(s *Service) error {
		return s.TransferRecord(patient1, doc2)
	})

	require.Len(t, tx.Events(), 1)
	ev := tx.Events()[0]
	assert.Equal(t, types.EventRecordTransferred, ev.Name)
	assert.Equal(t, patient1, ev.Payload[types.FieldPatient])
	assert.Equal(t, doc1, ev.Payload[types.FieldOldDoctor])
	assert.Equal(t, doc2, ev.Payload[types.FieldNewDoctor])
	assert.Equal(t, admin1, ev.Payload[types.FieldAdmin])

	svc, _ := as(store, doc2)
	rec, err := svc.GetRecord(patient1)
	require.NoError(t, err)
	assert.Equal(t, doc2, rec.AssignedDoctor)
	assert.Equal(t, types.RecordOpen, rec.State)

	assigned, err := svc.PatientsOf(doc2)
	require.NoError(t, err)
	assert.Equal(t, []string{patient1}, assigned)

	svc, _ = as(store, admin1)
	assigned, err = svc.PatientsOf(doc1)
	require.NoError(t, err)
	assert.Empty(t, assigned)
}

func TestTransferRecordRejections(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)

	svc, _ := as(store, doc1)
	err := svc.TransferRecord(patient1, doc2)
	assert.Equal(t, types.CodeUnauthorized, types.ErrorCode(err))

	svc, _ = as(store, admin1)
	err = svc.TransferRecord(patient2, doc2)
	assert.Equal(t, types.CodeNotFound, types.ErrorCode(err))

	err = svc.TransferRecord(patient1, doc1)
	assert.Equal(t, types.CodeSameDoctor, types.ErrorCode(err))

	err = svc.TransferRecord(patient1, "stranger")
	assert.Equal(t, types.CodeInvalidTarget, types.ErrorCode(err))
}

func TestTransferAllRecords(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)
	openRecord(t, store, doc1, patient2)

	tx := run(t, store, admin1, func(s *Service) error {
		return s.TransferAllRecords(doc1, doc2)
	})

	events := tx.Events()
	require.Len(t, events, 2)
	assert.Equal(t, patient1, events[0].Payload[types.FieldPatient])
	assert.Equal(t, patient2, events[1].Payload[types.FieldPatient])

	svc, _ := as(store, admin1)
	assigned, err := svc.PatientsOf(doc1)
	require.NoError(t, err)
	assert.Empty(t, assigned)

	// Successor inherits in the original registration order
	assigned, err = svc.PatientsOf(doc2)
	require.NoError(t, err)
	assert.Equal(t, []string{patient1, patient2}, assigned)
}

func TestTransferAllRecordsRejections(t *testing.T) {
	store := newLedger(t)

	svc, _ := as(store, doc1)
	err := svc.TransferAllRecords(doc1, doc2)
	assert.Equal(t, types.CodeUnauthorized, types.ErrorCode(err))

	svc, _ = as(store, admin1)
	err = svc.TransferAllRecords(doc1, doc1)
	assert.Equal(t, types.CodeSameDoctor, types.ErrorCode(err))

	err = svc.TransferAllRecords(doc1, "stranger")
	assert.Equal(t, types.CodeInvalidTarget, types.ErrorCode(err))

	err = svc.TransferAllRecords("stranger", doc2)
	assert.Equal(t, types.CodeInvalidSource, types.ErrorCode(err))
}

func TestPatientsOfAccess(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)

	svc, _ := as(store, doc2)
	_, err := svc.PatientsOf(doc1)
	assert.Equal(t, types.CodeUnauthorized, types.ErrorCode(err))

	for _, caller := range []string{doc1, admin1, testOwner} {
		svc, _ = as(store, caller)
		assigned, err := svc.PatientsOf(doc1)
		require.NoError(t, err)
		assert.Equal(t, []string{patient1}, assigned)
	}
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	store := newLedger(t)
	openRecord(t, store, doc1, patient1)

	// Self treatment aborts after the doctor check; no roster entry,
	// no record, no events survive
	svc, tx := as(store, doc1)
	err := svc.OpenRecord(doc1, testBirth)
	assert.Equal(t, types.CodeSelfTreatment, types.ErrorCode(err))
	assert.Empty(t, tx.Events())

	fresh := registry.New(state.NewTx(store, testSystem, testNow))
	patients, err := fresh.Patients()
	require.NoError(t, err)
	assert.Equal(t, []string{patient1}, patients)
}
