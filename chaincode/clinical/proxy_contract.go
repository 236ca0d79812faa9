package clinical

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/medrex/clinical-ledger/internal/state"
	"github.com/medrex/clinical-ledger/pkg/types"
)

const proxyConfigKey = "proxy_config"

type proxyConfig struct {
	Owner  string `json:"owner"`
	Target string `json:"target"`
}

// SystemProxyContract is a forwarding pointer: a stable name that
// resolves to the current system identifier, updatable by its owner
// only. Clients resolve the pointer and talk to the system directly.
type SystemProxyContract struct {
	contractapi.Contract
}

// NewSystemProxyContract creates the proxy contract
func NewSystemProxyContract() *SystemProxyContract {
	c := &SystemProxyContract{}
	c.Name = "SystemProxyContract"
	return c
}

// Initialize stores the initial target; the calling identity becomes
// the pointer's owner
func (c *SystemProxyContract) Initialize(ctx contractapi.TransactionContextInterface, target string) error {
	return invoke(ctx, c.Name, "Initialize", func(tx *state.Tx) error {
		var existing proxyConfig
		found, err := tx.Get(proxyConfigKey, &existing)
		if err != nil {
			return err
		}
		if found {
			return types.ErrInvalidState("proxy is already initialized")
		}
		return tx.Put(proxyConfigKey, proxyConfig{Owner: tx.Caller(), Target: target})
	})
}

// SystemAddress resolves the pointer
func (c *SystemProxyContract) SystemAddress(ctx contractapi.TransactionContextInterface) (string, error) {
	var target string
	err := query(ctx, func(tx *state.Tx) error {
		cfg, err := c.load(tx)
		if err != nil {
			return err
		}
		target = cfg.Target
		return nil
	})
	return target, err
}

// UpdateSystemAddress repoints the proxy. Owner only.
func (c *SystemProxyContract) UpdateSystemAddress(ctx contractapi.TransactionContextInterface, target string) error {
	return invoke(ctx, c.Name, "UpdateSystemAddress", func(tx *state.Tx) error {
		cfg, err := c.load(tx)
		if err != nil {
			return err
		}
		if tx.Caller() != cfg.Owner {
			return types.ErrUnauthorized("only the proxy owner may update the target")
		}
		cfg.Target = target
		return tx.Put(proxyConfigKey, cfg)
	})
}

func (c *SystemProxyContract) load(tx *state.Tx) (proxyConfig, error) {
	var cfg proxyConfig
	found, err := tx.Get(proxyConfigKey, &cfg)
	if err != nil {
		return proxyConfig{}, err
	}
	if !found {
		return proxyConfig{}, types.ErrInvalidState("proxy is not initialized")
	}
	return cfg, nil
}
