package clinical

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/medrex/clinical-ledger/internal/doctors"
	"github.com/medrex/clinical-ledger/internal/state"
)

const doctorWiringKey = "doctorlayer_wiring"

// DoctorRosterContract is the standalone doctor layer. Operations
// are gated by the caller's administrator role, checked against the
// registry by the underlying service.
type DoctorRosterContract struct {
	contractapi.Contract
}

// NewDoctorRosterContract creates the doctor layer contract
func NewDoctorRosterContract() *DoctorRosterContract {
	c := &DoctorRosterContract{}
	c.Name = "DoctorRosterContract"
	return c
}

// Initialize wires the layer. controller is the principal allowed to
// read closed records during transfers, principal the identity the
// layer presents to the registry.
func (c *DoctorRosterContract) Initialize(ctx contractapi.TransactionContextInterface, principal string) error {
	return invoke(ctx, c.Name, "Initialize", func(tx *state.Tx) error {
		return putWiring(tx, doctorWiringKey, tx.Caller(), principal)
	})
}

// AddDoctor registers a doctor. Administrators only.
func (c *DoctorRosterContract) AddDoctor(ctx contractapi.TransactionContextInterface, doctor string) error {
	return invoke(ctx, c.Name, "AddDoctor", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.AddDoctor(doctor)
	})
}

// RemoveDoctor transfers every record of from to successor to, then
// removes from. Administrators only.
func (c *DoctorRosterContract) RemoveDoctor(ctx contractapi.TransactionContextInterface, from, to string) error {
	return invoke(ctx, c.Name, "RemoveDoctor", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.RemoveDoctor(from, to)
	})
}

func (c *DoctorRosterContract) service(tx *state.Tx) (*doctors.Service, error) {
	w, err := getWiring(tx, doctorWiringKey)
	if err != nil {
		return nil, err
	}
	return doctors.New(tx, w.Principal, w.Controller), nil
}
