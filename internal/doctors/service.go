package doctors

import (
	"fmt"

	"github.com/medrex/clinical-ledger/internal/records"
	"github.com/medrex/clinical-ledger/internal/registry"
	"github.com/medrex/clinical-ledger/internal/state"
	"github.com/medrex/clinical-ledger/pkg/types"
)

// Service is the doctor-roster layer: administrator-gated doctor
// registration and removal, including the removal flow that first
// hands every assigned record over to a successor.
type Service struct {
	tx      *state.Tx
	reg     *registry.Registry
	records *records.Service
}

// New builds the layer. actingAs is the service principal presented
// to the registry, controller the controller principal passed down
// to the record layer.
func New(tx *state.Tx, actingAs, controller string) *Service {
	return &Service{
		tx:      tx,
		reg:     registry.New(tx.ActAs(actingAs)),
		records: records.New(tx, actingAs, controller),
	}
}

// AddDoctor registers a doctor. Administrator only.
func (s *Service) AddDoctor(doctor string) error {
	if err := s.requireAdministrator(); err != nil {
		return err
	}
	return s.reg.AddDoctor(doctor)
}

// RemoveDoctor removes from the roster after transferring every
// record assigned to the departing doctor to the successor. The
// transfer runs while both are still on the roster so each record
// move validates against live doctor status.
func (s *Service) RemoveDoctor(from, to string) error {
	if err := s.requireAdministrator(); err != nil {
		return err
	}
	isDoctor, err := s.reg.IsDoctor(from)
	if err != nil {
		return err
	}
	if !isDoctor {
		return types.ErrNotFound(fmt.Sprintf("%s is not a doctor", from))
	}
	isDoctor, err = s.reg.IsDoctor(to)
	if err != nil {
		return err
	}
	if !isDoctor {
		return types.ErrInvalidTarget(fmt.Sprintf("successor %s is not a doctor", to))
	}
	if err := s.records.TransferAllRecords(from, to); err != nil {
		return err
	}
	return s.reg.RemoveDoctor(from)
}

func (s *Service) requireAdministrator() error {
	isAdmin, err := s.reg.IsAdministrator(s.tx.Caller())
	if err != nil {
		return err
	}
	if !isAdmin {
		return types.ErrUnauthorized("only administrators may manage the doctor roster")
	}
	return nil
}
