package clinical

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/medrex/clinical-ledger/internal/registry"
	"github.com/medrex/clinical-ledger/internal/state"
	"github.com/medrex/clinical-ledger/pkg/types"
)

// RegistryContract exposes the data authority. Roster and record
// mutations are accepted from the system principal or an authorized
// service identity; reads additionally from the owner.
type RegistryContract struct {
	contractapi.Contract
}

// NewRegistryContract creates the registry contract
func NewRegistryContract() *RegistryContract {
	c := &RegistryContract{}
	c.Name = "RegistryContract"
	return c
}

// Initialize records the calling identity as owner and sets the
// system principal. One shot.
func (c *RegistryContract) Initialize(ctx contractapi.TransactionContextInterface, system string) error {
	return invoke(ctx, c.Name, "Initialize", func(tx *state.Tx) error {
		return registry.New(tx).Initialize(tx.Caller(), system)
	})
}

// AuthorizeService allow-lists a service principal. Owner only.
func (c *RegistryContract) AuthorizeService(ctx contractapi.TransactionContextInterface, service string) error {
	return invoke(ctx, c.Name, "AuthorizeService", func(tx *state.Tx) error {
		return registry.New(tx).AuthorizeService(service)
	})
}

// AddDoctor registers a doctor principal
func (c *RegistryContract) AddDoctor(ctx contractapi.TransactionContextInterface, principal string) error {
	return invoke(ctx, c.Name, "AddDoctor", func(tx *state.Tx) error {
		return registry.New(tx).AddDoctor(principal)
	})
}

// RemoveDoctor removes a doctor principal
func (c *RegistryContract) RemoveDoctor(ctx contractapi.TransactionContextInterface, principal string) error {
	return invoke(ctx, c.Name, "RemoveDoctor", func(tx *state.Tx) error {
		return registry.New(tx).RemoveDoctor(principal)
	})
}

// AddAdministrator registers an administrator principal
func (c *RegistryContract) AddAdministrator(ctx contractapi.TransactionContextInterface, principal string) error {
	return invoke(ctx, c.Name, "AddAdministrator", func(tx *state.Tx) error {
		return registry.New(tx).AddAdministrator(principal)
	})
}

// RemoveAdministrator removes an administrator principal
func (c *RegistryContract) RemoveAdministrator(ctx contractapi.TransactionContextInterface, principal string) error {
	return invoke(ctx, c.Name, "RemoveAdministrator", func(tx *state.Tx) error {
		return registry.New(tx).RemoveAdministrator(principal)
	})
}

// AddPatient admits a patient directly at the registry level with a
// bare record. The usual admission path is RecordsContract.OpenRecord;
// this entry point exists for authorized services that manage the
// record assignment themselves.
func (c *RegistryContract) AddPatient(ctx contractapi.TransactionContextInterface, principal string, bornAt int64) error {
	return invoke(ctx, c.Name, "AddPatient", func(tx *state.Tx) error {
		reg := registry.New(tx)
		if err := reg.AddPatient(principal); err != nil {
			return err
		}
		return reg.PutRecord(principal, &types.ClinicalRecord{
			Holder:        principal,
			BirthDate:     bornAt,
			State:         types.RecordOpen,
			Treatments:    map[string]*types.Treatment{},
			NextTreatment: 1,
		})
	})
}

// IsDoctor reports doctor roster membership
func (c *RegistryContract) IsDoctor(ctx contractapi.TransactionContextInterface, principal string) (bool, error) {
	var result bool
	err := query(ctx, func(tx *state.Tx) error {
		reg, err := c.reader(tx)
		if err != nil {
			return err
		}
		result, err = reg.IsDoctor(principal)
		return err
	})
	return result, err
}

// IsAdministrator reports administrator roster membership
func (c *RegistryContract) IsAdministrator(ctx contractapi.TransactionContextInterface, principal string) (bool, error) {
	var result bool
	err := query(ctx, func(tx *state.Tx) error {
		reg, err := c.reader(tx)
		if err != nil {
			return err
		}
		result, err = reg.IsAdministrator(principal)
		return err
	})
	return result, err
}

// IsPatient reports patient roster membership
func (c *RegistryContract) IsPatient(ctx contractapi.TransactionContextInterface, principal string) (bool, error) {
	var result bool
	err := query(ctx, func(tx *state.Tx) error {
		reg, err := c.reader(tx)
		if err != nil {
			return err
		}
		result, err = reg.IsPatient(principal)
		return err
	})
	return result, err
}

// GetDoctors lists the doctor roster in storage order
func (c *RegistryContract) GetDoctors(ctx contractapi.TransactionContextInterface) ([]string, error) {
	return c.roster(ctx, func(reg *registry.Registry) ([]string, error) {
		return reg.Doctors()
	})
}

// GetAdministrators lists the administrator roster in storage order
func (c *RegistryContract) GetAdministrators(ctx contractapi.TransactionContextInterface) ([]string, error) {
	return c.roster(ctx, func(reg *registry.Registry) ([]string, error) {
		return reg.Administrators()
	})
}

// GetPatients lists every admitted patient in admission order
func (c *RegistryContract) GetPatients(ctx contractapi.TransactionContextInterface) ([]string, error) {
	return c.roster(ctx, func(reg *registry.Registry) ([]string, error) {
		return reg.Patients()
	})
}

// GetAssignedPatients lists the patients assigned to a doctor
func (c *RegistryContract) GetAssignedPatients(ctx contractapi.TransactionContextInterface, doctor string) ([]string, error) {
	return c.roster(ctx, func(reg *registry.Registry) ([]string, error) {
		return reg.AssignedPatients(doctor)
	})
}

func (c *RegistryContract) roster(ctx contractapi.TransactionContextInterface, fn func(*registry.Registry) ([]string, error)) ([]string, error) {
	var result []string
	err := query(ctx, func(tx *state.Tx) error {
		reg, err := c.reader(tx)
		if err != nil {
			return err
		}
		result, err = fn(reg)
		return err
	})
	return result, err
}

// reader gates registry reads: owner, system or authorized service
func (c *RegistryContract) reader(tx *state.Tx) (*registry.Registry, error) {
	reg := registry.New(tx)
	owner, err := reg.Owner()
	if err != nil {
		return nil, err
	}
	if tx.Caller() == owner {
		return reg, nil
	}
	ok, err := reg.IsAuthorized(tx.Caller())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrUnauthorized("registry reads require the owner, the system or an authorized service")
	}
	return reg, nil
}
