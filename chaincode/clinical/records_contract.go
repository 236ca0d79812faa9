package clinical

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/medrex/clinical-ledger/internal/records"
	"github.com/medrex/clinical-ledger/internal/state"
	"github.com/medrex/clinical-ledger/pkg/types"
)

const recordWiringKey = "recordlayer_wiring"

// RecordsContract is the standalone record layer: the clinical
// record and treatment state machine, gated per operation by the
// caller's relationship to the record.
type RecordsContract struct {
	contractapi.Contract
}

// NewRecordsContract creates the record layer contract
func NewRecordsContract() *RecordsContract {
	c := &RecordsContract{}
	c.Name = "RecordsContract"
	return c
}

// Initialize wires the layer. The calling identity becomes the
// controller allowed to read closed records.
func (c *RecordsContract) Initialize(ctx contractapi.TransactionContextInterface, principal string) error {
	return invoke(ctx, c.Name, "Initialize", func(tx *state.Tx) error {
		return putWiring(tx, recordWiringKey, tx.Caller(), principal)
	})
}

// OpenRecord admits a patient with a fresh record assigned to the
// calling doctor
func (c *RecordsContract) OpenRecord(ctx contractapi.TransactionContextInterface, patient string, bornAt int64) error {
	return invoke(ctx, c.Name, "OpenRecord", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.OpenRecord(patient, bornAt)
	})
}

// GetRecord reads a record under the per-state access rule
func (c *RecordsContract) GetRecord(ctx contractapi.TransactionContextInterface, patient string) (*types.ClinicalRecord, error) {
	var rec *types.ClinicalRecord
	err := query(ctx, func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		rec, err = svc.GetRecord(patient)
		return err
	})
	return rec, err
}

// AddTreatment opens a treatment and returns its id
func (c *RecordsContract) AddTreatment(ctx contractapi.TransactionContextInterface, patient, ailment, description string) (uint64, error) {
	var id uint64
	err := invoke(ctx, c.Name, "AddTreatment", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		id, err = svc.AddTreatment(patient, ailment, description)
		return err
	})
	return id, err
}

// UpdateTreatment replaces the description of an open treatment
func (c *RecordsContract) UpdateTreatment(ctx contractapi.TransactionContextInterface, patient string, id uint64, description string) error {
	return invoke(ctx, c.Name, "UpdateTreatment", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.UpdateTreatment(patient, id, description)
	})
}

// CloseTreatment stamps and closes an open treatment
func (c *RecordsContract) CloseTreatment(ctx contractapi.TransactionContextInterface, patient string, id uint64) error {
	return invoke(ctx, c.Name, "CloseTreatment", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.CloseTreatment(patient, id)
	})
}

// GetTreatment reads a treatment, open or closed
func (c *RecordsContract) GetTreatment(ctx contractapi.TransactionContextInterface, patient string, id uint64) (*types.Treatment, error) {
	var treatment *types.Treatment
	err := query(ctx, func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		treatment, err = svc.GetTreatment(patient, id)
		return err
	})
	return treatment, err
}

// CloseRecord ends a record, force-closing its open treatments
func (c *RecordsContract) CloseRecord(ctx contractapi.TransactionContextInterface, patient string) error {
	return invoke(ctx, c.Name, "CloseRecord", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.CloseRecord(patient)
	})
}

// MarkMissing flags a record as missing. Administrators only.
func (c *RecordsContract) MarkMissing(ctx contractapi.TransactionContextInterface, patient string) error {
	return invoke(ctx, c.Name, "MarkMissing", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.MarkMissing(patient)
	})
}

// MarkPresent returns a missing record to open. Administrators only.
func (c *RecordsContract) MarkPresent(ctx contractapi.TransactionContextInterface, patient string) error {
	return invoke(ctx, c.Name, "MarkPresent", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.MarkPresent(patient)
	})
}

// TransferRecord reassigns one record to a new doctor
func (c *RecordsContract) TransferRecord(ctx contractapi.TransactionContextInterface, patient, newDoctor string) error {
	return invoke(ctx, c.Name, "TransferRecord", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.TransferRecord(patient, newDoctor)
	})
}

// TransferAllRecords reassigns every record of fromDoctor to toDoctor
func (c *RecordsContract) TransferAllRecords(ctx contractapi.TransactionContextInterface, fromDoctor, toDoctor string) error {
	return invoke(ctx, c.Name, "TransferAllRecords", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.TransferAllRecords(fromDoctor, toDoctor)
	})
}

// GetAssignedPatients lists a doctor's assigned patients
func (c *RecordsContract) GetAssignedPatients(ctx contractapi.TransactionContextInterface, doctor string) ([]string, error) {
	var patients []string
	err := query(ctx, func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		patients, err = svc.PatientsOf(doctor)
		return err
	})
	return patients, err
}

func (c *RecordsContract) service(tx *state.Tx) (*records.Service, error) {
	w, err := getWiring(tx, recordWiringKey)
	if err != nil {
		return nil, err
	}
	return records.New(tx, w.Principal, w.Controller), nil
}
