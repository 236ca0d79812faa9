package access

import (
	"github.com/medrex/clinical-ledger/internal/registry"
	"github.com/medrex/clinical-ledger/internal/state"
)

// Service is the administrator layer. It grants and revokes the
// administrator role in the registry; who may drive it is decided at
// the contract surface (the orchestrator admits only its controller,
// the standalone contract only its configured driver).
type Service struct {
	reg *registry.Registry
}

// New builds the layer. actingAs is the service principal the layer
// presents to the registry; it must be the system principal or an
// owner-authorized service for the registry to accept writes.
func New(tx *state.Tx, actingAs string) *Service {
	return &Service{reg: registry.New(tx.ActAs(actingAs))}
}

// AddAdministrator grants the administrator role
func (s *Service) AddAdministrator(principal string) error {
	return s.reg.AddAdministrator(principal)
}

// RemoveAdministrator revokes the administrator role
func (s *Service) RemoveAdministrator(principal string) error {
	return s.reg.RemoveAdministrator(principal)
}
