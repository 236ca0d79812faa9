package clinical

import (
	"github.com/medrex/clinical-ledger/internal/state"
	"github.com/medrex/clinical-ledger/pkg/types"
)

// wiring is the deploy-time configuration of a standalone layer
// contract: the controller it answers to and the service principal
// it presents to the registry.
type wiring struct {
	Controller string `json:"controller"`
	Principal  string `json:"principal"`
}

func putWiring(tx *state.Tx, key, controller, principal string) error {
	var existing wiring
	found, err := tx.Get(key, &existing)
	if err != nil {
		return err
	}
	if found {
		return types.ErrInvalidState("layer is already initialized")
	}
	return tx.Put(key, wiring{Controller: controller, Principal: principal})
}

func getWiring(tx *state.Tx, key string) (wiring, error) {
	var w wiring
	found, err := tx.Get(key, &w)
	if err != nil {
		return wiring{}, err
	}
	if !found {
		return wiring{}, types.ErrInvalidState("layer is not initialized")
	}
	return w, nil
}
