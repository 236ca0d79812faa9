package records

import (
	"fmt"
	"strconv"

	"github.com/medrex/clinical-ledger/internal/registry"
	"github.com/medrex/clinical-ledger/internal/state"
	"github.com/medrex/clinical-ledger/pkg/types"
)

// Service owns the clinical-record and treatment state machine.
// The invoking principal is the transaction caller; writes reach the
// registry under the acting service principal, so the registry's
// allow-list stays the single authorization boundary for state.
type Service struct {
	tx         *state.Tx
	reg        *registry.Registry
	controller string
}

// New builds the record layer. actingAs is the principal presented
// to the registry, controller the principal allowed to read closed
// records.
func New(tx *state.Tx, actingAs, controller string) *Service {
	return &Service{
		tx:         tx,
		reg:        registry.New(tx.ActAs(actingAs)),
		controller: controller,
	}
}

func (s *Service) invoker() string {
	return s.tx.Caller()
}

// OpenRecord admits a new patient: roster entry, fresh OPEN record
// assigned to the calling doctor, and the doctor's patient list.
func (s *Service) OpenRecord(patient string, bornAt int64) error {
	doctor := s.invoker()
	isDoctor, err := s.reg.IsDoctor(doctor)
	if err != nil {
		return err
	}
	if !isDoctor {
		return types.ErrUnauthorized("only doctors may open clinical records")
	}
	if patient == doctor {
		return types.ErrSelfTreatment("a doctor cannot open a record for themselves")
	}
	isPatient, err := s.reg.IsPatient(patient)
	if err != nil {
		return err
	}
	if isPatient {
		return types.ErrAlreadyPatient(fmt.Sprintf("%s already has a clinical record", patient))
	}

	if err := s.reg.AddPatient(patient); err != nil {
		return err
	}
	rec := &types.ClinicalRecord{
		Holder:         patient,
		AssignedDoctor: doctor,
		BirthDate:      bornAt,
		State:          types.RecordOpen,
		Treatments:     map[string]*types.Treatment{},
		NextTreatment:  1,
	}
	if err := s.reg.PutRecord(patient, rec); err != nil {
		return err
	}
	if err := s.reg.AssignPatient(doctor, patient); err != nil {
		return err
	}
	s.tx.Emit(types.EventRecordOpened, map[string]string{
		types.FieldDoctor:  doctor,
		types.FieldPatient: patient,
	})
	return nil
}

// GetRecord reads a record. While OPEN or MISSING only the assigned
// doctor may read it; once CLOSED only the controller may.
func (s *Service) GetRecord(patient string) (*types.ClinicalRecord, error) {
	rec, err := s.load(patient)
	if err != nil {
		return nil, err
	}
	if err := s.requireReader(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// AddTreatment opens a treatment on the patient's record and returns
// its id. Ids are sequential per record and never reused.
func (s *Service) AddTreatment(patient, ailment, description string) (uint64, error) {
	rec, err := s.loadForTreatment(patient)
	if err != nil {
		return 0, err
	}
	id := rec.NextTreatment
	rec.NextTreatment++
	rec.PutTreatment(&types.Treatment{
		ID:          id,
		Ailment:     ailment,
		Description: description,
	})
	rec.OpenTreatments = append(rec.OpenTreatments, id)
	if err := s.reg.PutRecord(patient, rec); err != nil {
		return 0, err
	}
	s.emitTreatment(types.EventTreatmentOpened, patient, rec.AssignedDoctor, id)
	return id, nil
}

// UpdateTreatment replaces the description of an open treatment
func (s *Service) UpdateTreatment(patient string, id uint64, description string) error {
	rec, err := s.loadForTreatment(patient)
	if err != nil {
		return err
	}
	if !rec.TreatmentIsOpen(id) {
		return types.ErrNotFound(fmt.Sprintf("record of %s has no open treatment %d", patient, id))
	}
	t, _ := rec.Treatment(id)
	t.Description = description
	if err := s.reg.PutRecord(patient, rec); err != nil {
		return err
	}
	s.emitTreatment(types.EventTreatmentUpdated, patient, rec.AssignedDoctor, id)
	return nil
}

// CloseTreatment stamps an open treatment and drops it from the open set
func (s *Service) CloseTreatment(patient string, id uint64) error {
	rec, err := s.loadForTreatment(patient)
	if err != nil {
		return err
	}
	if !rec.TreatmentIsOpen(id) {
		return types.ErrNotFound(fmt.Sprintf("record of %s has no open treatment %d", patient, id))
	}
	t, _ := rec.Treatment(id)
	t.ClosedAt = s.tx.Now()
	rec.RemoveOpenTreatment(id)
	if err := s.reg.PutRecord(patient, rec); err != nil {
		return err
	}
	s.emitTreatment(types.EventTreatmentClosed, patient, rec.AssignedDoctor, id)
	return nil
}

// GetTreatment reads a treatment, open or closed, under the same
// per-state access rule as GetRecord
func (s *Service) GetTreatment(patient string, id uint64) (*types.Treatment, error) {
	rec, err := s.load(patient)
	if err != nil {
		return nil, err
	}
	if err := s.requireReader(rec); err != nil {
		return nil, err
	}
	t, ok := rec.Treatment(id)
	if !ok {
		return nil, types.ErrNotFound(fmt.Sprintf("record of %s has no treatment %d", patient, id))
	}
	return t, nil
}

// CloseRecord ends a record: every open treatment is force-closed in
// open-set order, the closure timestamp is stamped and the patient
// leaves the doctor's assigned list. The record itself stays on the
// ledger, readable by the controller only.
func (s *Service) CloseRecord(patient string) error {
	rec, err := s.load(patient)
	if err != nil {
		return err
	}
	if s.invoker() != rec.AssignedDoctor {
		return types.ErrUnauthorized("only the assigned doctor may close the record")
	}
	switch rec.State {
	case types.RecordClosed:
		return types.ErrRecordClosed(fmt.Sprintf("record of %s is already closed", patient))
	case types.RecordMissing:
		return types.ErrRecordMissing(fmt.Sprintf("record of %s is missing", patient))
	}

	for _, id := range rec.OpenTreatments {
		t, _ := rec.Treatment(id)
		t.ClosedAt = s.tx.Now()
		s.emitTreatment(types.EventTreatmentClosed, patient, rec.AssignedDoctor, id)
	}
	rec.OpenTreatments = nil
	rec.DeathDate = s.tx.Now()
	rec.State = types.RecordClosed
	if err := s.reg.PutRecord(patient, rec); err != nil {
		return err
	}
	if err := s.reg.UnassignPatient(rec.AssignedDoctor, patient); err != nil {
		return err
	}
	s.tx.Emit(types.EventRecordClosed, map[string]string{
		types.FieldDoctor:  rec.AssignedDoctor,
		types.FieldPatient: patient,
	})
	return nil
}

// MarkMissing flags an OPEN record as missing. Administrator only.
func (s *Service) MarkMissing(patient string) error {
	rec, err := s.loadForAdmin(patient)
	if err != nil {
		return err
	}
	if rec.State == types.RecordMissing {
		return types.ErrInvalidState(fmt.Sprintf("record of %s is already missing", patient))
	}
	rec.State = types.RecordMissing
	if err := s.reg.PutRecord(patient, rec); err != nil {
		return err
	}
	s.tx.Emit(types.EventRecordMarkedMissing, map[string]string{
		types.FieldPatient: patient,
		types.FieldAdmin:   s.invoker(),
	})
	return nil
}

// MarkPresent returns a MISSING record to OPEN. Administrator only.
func (s *Service) MarkPresent(patient string) error {
	rec, err := s.loadForAdmin(patient)
	if err != nil {
		return err
	}
	if rec.State == types.RecordOpen {
		return types.ErrInvalidState(fmt.Sprintf("record of %s is not missing", patient))
	}
	rec.State = types.RecordOpen
	if err := s.reg.PutRecord(patient, rec); err != nil {
		return err
	}
	s.tx.Emit(types.EventRecordMarkedPresent, map[string]string{
		types.FieldPatient: patient,
		types.FieldAdmin:   s.invoker(),
	})
	return nil
}

// TransferRecord reassigns one record to a new doctor. State and
// treatments are untouched; only the assignment moves.
func (s *Service) TransferRecord(patient, newDoctor string) error {
	if err := s.requireAdministrator(); err != nil {
		return err
	}
	rec, err := s.load(patient)
	if err != nil {
		return err
	}
	if rec.State == types.RecordClosed {
		return types.ErrRecordClosed(fmt.Sprintf("record of %s is closed", patient))
	}
	if rec.AssignedDoctor == newDoctor {
		return types.ErrSameDoctor(fmt.Sprintf("record of %s is already assigned to %s", patient, newDoctor))
	}
	isDoctor, err := s.reg.IsDoctor(newDoctor)
	if err != nil {
		return err
	}
	if !isDoctor {
		return types.ErrInvalidTarget(fmt.Sprintf("transfer target %s is not a doctor", newDoctor))
	}
	return s.transferOne(patient, rec, newDoctor)
}

// TransferAllRecords reassigns every record held by fromDoctor to
// toDoctor, in the stored order of fromDoctor's assigned list, one
// transfer notification per record.
func (s *Service) TransferAllRecords(fromDoctor, toDoctor string) error {
	if err := s.requireAdministrator(); err != nil {
		return err
	}
	if fromDoctor == toDoctor {
		return types.ErrSameDoctor("transfer source and target are the same doctor")
	}
	isDoctor, err := s.reg.IsDoctor(toDoctor)
	if err != nil {
		return err
	}
	if !isDoctor {
		return types.ErrInvalidTarget(fmt.Sprintf("transfer target %s is not a doctor", toDoctor))
	}
	isDoctor, err = s.reg.IsDoctor(fromDoctor)
	if err != nil {
		return err
	}
	if !isDoctor {
		return types.ErrInvalidSource(fmt.Sprintf("transfer source %s is not a doctor", fromDoctor))
	}

	patients, err := s.reg.AssignedPatients(fromDoctor)
	if err != nil {
		return err
	}
	// Snapshot; transferOne mutates the assigned list underneath
	moving := make([]string, len(patients))
	copy(moving, patients)
	for _, patient := range moving {
		rec, err := s.load(patient)
		if err != nil {
			return err
		}
		if err := s.transferOne(patient, rec, toDoctor); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) transferOne(patient string, rec *types.ClinicalRecord, newDoctor string) error {
	oldDoctor := rec.AssignedDoctor
	rec.AssignedDoctor = newDoctor
	if err := s.reg.PutRecord(patient, rec); err != nil {
		return err
	}
	if err := s.reg.UnassignPatient(oldDoctor, patient); err != nil {
		return err
	}
	if err := s.reg.AssignPatient(newDoctor, patient); err != nil {
		return err
	}
	s.tx.Emit(types.EventRecordTransferred, map[string]string{
		types.FieldPatient:   patient,
		types.FieldOldDoctor: oldDoctor,
		types.FieldNewDoctor: newDoctor,
		types.FieldAdmin:     s.invoker(),
	})
	return nil
}

// PatientsOf lists a doctor's assigned patients. Readable by that
// doctor, any administrator, or the controller.
func (s *Service) PatientsOf(doctor string) ([]string, error) {
	caller := s.invoker()
	if caller != doctor && caller != s.controller {
		isAdmin, err := s.reg.IsAdministrator(caller)
		if err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, types.ErrUnauthorized("only the doctor, an administrator or the controller may list assigned patients")
		}
	}
	return s.reg.AssignedPatients(doctor)
}

func (s *Service) load(patient string) (*types.ClinicalRecord, error) {
	rec, found, err := s.reg.Record(patient)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.ErrNotFound(fmt.Sprintf("%s has no clinical record", patient))
	}
	return rec, nil
}

// loadForTreatment applies the shared gate of every treatment
// mutation: record exists, caller is the assigned doctor, record is
// neither closed nor missing.
func (s *Service) loadForTreatment(patient string) (*types.ClinicalRecord, error) {
	rec, err := s.load(patient)
	if err != nil {
		return nil, err
	}
	if s.invoker() != rec.AssignedDoctor {
		return nil, types.ErrUnauthorized("only the assigned doctor may modify treatments")
	}
	switch rec.State {
	case types.RecordClosed:
		return nil, types.ErrRecordClosed(fmt.Sprintf("record of %s is closed", patient))
	case types.RecordMissing:
		return nil, types.ErrRecordMissing(fmt.Sprintf("record of %s is missing", patient))
	}
	return rec, nil
}

// loadForAdmin applies the shared gate of the missing/present flags:
// caller is an administrator, record exists and is not closed.
func (s *Service) loadForAdmin(patient string) (*types.ClinicalRecord, error) {
	if err := s.requireAdministrator(); err != nil {
		return nil, err
	}
	rec, err := s.load(patient)
	if err != nil {
		return nil, err
	}
	if rec.State == types.RecordClosed {
		return nil, types.ErrRecordClosed(fmt.Sprintf("record of %s is closed", patient))
	}
	return rec, nil
}

func (s *Service) requireAdministrator() error {
	isAdmin, err := s.reg.IsAdministrator(s.invoker())
	if err != nil {
		return err
	}
	if !isAdmin {
		return types.ErrUnauthorized("only administrators may perform this operation")
	}
	return nil
}

func (s *Service) requireReader(rec *types.ClinicalRecord) error {
	if rec.State == types.RecordClosed {
		if s.invoker() != s.controller {
			return types.ErrUnauthorized("closed records are readable by the controller only")
		}
		return nil
	}
	if s.invoker() != rec.AssignedDoctor {
		return types.ErrUnauthorized("only the assigned doctor may read this record")
	}
	return nil
}

func (s *Service) emitTreatment(event, patient, doctor string, id uint64) {
	s.tx.Emit(event, map[string]string{
		types.FieldPatient:   patient,
		types.FieldDoctor:    doctor,
		types.FieldTreatment: strconv.FormatUint(id, 10),
	})
}
