package clinical

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/medrex/clinical-ledger/internal/access"
	"github.com/medrex/clinical-ledger/internal/state"
	"github.com/medrex/clinical-ledger/pkg/types"
)

const accessWiringKey = "access_wiring"

// AccessContract is the standalone administrator layer. Granting and
// revoking the administrator role is reserved for its controller;
// the registry additionally checks the layer's service principal
// against the allow-list.
type AccessContract struct {
	contractapi.Contract
}

// NewAccessContract creates the access layer contract
func NewAccessContract() *AccessContract {
	c := &AccessContract{}
	c.Name = "AccessContract"
	return c
}

// Initialize wires the layer: the calling identity becomes its
// controller, principal the identity it presents to the registry
func (c *AccessContract) Initialize(ctx contractapi.TransactionContextInterface, principal string) error {
	return invoke(ctx, c.Name, "Initialize", func(tx *state.Tx) error {
		return putWiring(tx, accessWiringKey, tx.Caller(), principal)
	})
}

// AddAdministrator grants the administrator role. Controller only.
func (c *AccessContract) AddAdministrator(ctx contractapi.TransactionContextInterface, principal string) error {
	return invoke(ctx, c.Name, "AddAdministrator", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.AddAdministrator(principal)
	})
}

// RemoveAdministrator revokes the administrator role. Controller only.
func (c *AccessContract) RemoveAdministrator(ctx contractapi.TransactionContextInterface, principal string) error {
	return invoke(ctx, c.Name, "RemoveAdministrator", func(tx *state.Tx) error {
		svc, err := c.service(tx)
		if err != nil {
			return err
		}
		return svc.RemoveAdministrator(principal)
	})
}

func (c *AccessContract) service(tx *state.Tx) (*access.Service, error) {
	w, err := getWiring(tx, accessWiringKey)
	if err != nil {
		return nil, err
	}
	if tx.Caller() != w.Controller {
		return nil, types.ErrUnauthorized("only the access layer controller may manage administrators")
	}
	return access.New(tx, w.Principal), nil
}
