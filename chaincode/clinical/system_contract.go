package clinical

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/medrex/clinical-ledger/internal/access"
	"github.com/medrex/clinical-ledger/internal/doctors"
	"github.com/medrex/clinical-ledger/internal/records"
	"github.com/medrex/clinical-ledger/internal/registry"
	"github.com/medrex/clinical-ledger/internal/state"
	"github.com/medrex/clinical-ledger/pkg/types"
)

const (
	systemConfigKey   = "system_config"
	systemRegistryKey = "system_registry"
	systemSvcAdmin    = "system_svc_admin"
	systemSvcDoctor   = "system_svc_doctor"
	systemSvcRecord   = "system_svc_record"
)

func adminMirrorKey(principal string) string {
	return fmt.Sprintf("system_mirror_admin_%s", principal)
}

func doctorMirrorKey(principal string) string {
	return fmt.Sprintf("system_mirror_doctor_%s", principal)
}

type systemConfig struct {
	Controller string `json:"controller"`
	Self       string `json:"self"`
}

// SystemContract is the orchestrator facade, the single entry point
// clients call. Each capability area routes either through its
// configured delegate service principal or, when none is wired,
// through the system's own principal against the registry. Both
// routes share the same rule services and must leave identical
// state; the delegate route additionally announces the forwarding
// hop ahead of the domain events. The contract keeps fast-path
// admin/doctor mirrors in sync with the registry on every mutating
// path it serves; the registry stays authoritative.
type SystemContract struct {
	contractapi.Contract
}

// NewSystemContract creates the orchestrator contract
func NewSystemContract() *SystemContract {
	c := &SystemContract{}
	c.Name = "SystemContract"
	return c
}

// Initialize records the calling identity as the system controller
// and self as the principal the system presents to the registry.
// The registry must be wired separately before operations run.
func (c *SystemContract) Initialize(ctx contractapi.TransactionContextInterface, self string) error {
	return invoke(ctx, c.Name, "Initialize", func(tx *state.Tx) error {
		var existing systemConfig
		found, err := tx.Get(systemConfigKey, &existing)
		if err != nil {
			return err
		}
		if found {
			return types.ErrInvalidState("system is already initialized")
		}
		return tx.Put(systemConfigKey, systemConfig{Controller: tx.Caller(), Self: self})
	})
}

// SetRegistry marks the registry as wired. Controller only. Every
// domain operation fails until this has run.
func (c *SystemContract) SetRegistry(ctx contractapi.TransactionContextInterface) error {
	return invoke(ctx, c.Name, "SetRegistry", func(tx *state.Tx) error {
		if _, err := c.controllerConfig(tx); err != nil {
			return err
		}
		return tx.Put(systemRegistryKey, true)
	})
}

// SetAccessService wires the admin-ops delegate principal. An empty
// principal reverts the capability to the monolith route.
func (c *SystemContract) SetAccessService(ctx contractapi.TransactionContextInterface, principal string) error {
	return c.setDelegate(ctx, "SetAccessService", systemSvcAdmin, principal)
}

// SetDoctorService wires the doctor-ops delegate principal
func (c *SystemContract) SetDoctorService(ctx contractapi.TransactionContextInterface, principal string) error {
	return c.setDelegate(ctx, "SetDoctorService", systemSvcDoctor, principal)
}

// SetRecordService wires the record-ops delegate principal
func (c *SystemContract) SetRecordService(ctx contractapi.TransactionContextInterface, principal string) error {
	return c.setDelegate(ctx, "SetRecordService", systemSvcRecord, principal)
}

func (c *SystemContract) setDelegate(ctx contractapi.TransactionContextInterface, function, key, principal string) error {
	return invoke(ctx, c.Name, function, func(tx *state.Tx) error {
		if _, err := c.controllerConfig(tx); err != nil {
			return err
		}
		if principal == "" {
			tx.Delete(key)
			return nil
		}
		return tx.Put(key, principal)
	})
}

// AddAdministrator grants the administrator role. Controller only.
func (c *SystemContract) AddAdministrator(ctx contractapi.TransactionContextInterface, principal string) error {
	return invoke(ctx, c.Name, "AddAdministrator", func(tx *state.Tx) error {
		cfg, err := c.controllerConfig(tx)
		if err != nil {
			return err
		}
		acting, err := c.route(tx, cfg, systemSvcAdmin, "AddAdministrator")
		if err != nil {
			return err
		}
		if err := access.New(tx, acting).AddAdministrator(principal); err != nil {
			return err
		}
		return tx.Put(adminMirrorKey(principal), true)
	})
}

// RemoveAdministrator revokes the administrator role. Controller only.
func (c *SystemContract) RemoveAdministrator(ctx contractapi.TransactionContextInterface, principal string) error {
	return invoke(ctx, c.Name, "RemoveAdministrator", func(tx *state.Tx) error {
		cfg, err := c.controllerConfig(tx)
		if err != nil {
			return err
		}
		acting, err := c.route(tx, cfg, systemSvcAdmin, "RemoveAdministrator")
		if err != nil {
			return err
		}
		if err := access.New(tx, acting).RemoveAdministrator(principal); err != nil {
			return err
		}
		tx.Delete(adminMirrorKey(principal))
		return nil
	})
}

// AddDoctor registers a doctor. Administrators only.
func (c *SystemContract) AddDoctor(ctx contractapi.TransactionContextInterface, doctor string) error {
	return invoke(ctx, c.Name, "AddDoctor", func(tx *state.Tx) error {
		svc, err := c.doctorService(tx, "AddDoctor")
		if err != nil {
			return err
		}
		if err := svc.AddDoctor(doctor); err != nil {
			return err
		}
		return tx.Put(doctorMirrorKey(doctor), true)
	})
}

// RemoveDoctor hands every record of from to successor to and
// removes from. Administrators only.
func (c *SystemContract) RemoveDoctor(ctx contractapi.TransactionContextInterface, from, to string) error {
	return invoke(ctx, c.Name, "RemoveDoctor", func(tx *state.Tx) error {
		svc, err := c.doctorService(tx, "RemoveDoctor")
		if err != nil {
			return err
		}
		if err := svc.RemoveDoctor(from, to); err != nil {
			return err
		}
		tx.Delete(doctorMirrorKey(from))
		return nil
	})
}

// OpenRecord admits a patient under the calling doctor
func (c *SystemContract) OpenRecord(ctx contractapi.TransactionContextInterface, patient string, bornAt int64) error {
	return invoke(ctx, c.Name, "OpenRecord", func(tx *state.Tx) error {
		svc, err := c.recordService(tx, "OpenRecord")
		if err != nil {
			return err
		}
		return svc.OpenRecord(patient, bornAt)
	})
}

// GetRecord reads a record under the per-state access rule
func (c *SystemContract) GetRecord(ctx contractapi.TransactionContextInterface, patient string) (*types.ClinicalRecord, error) {
	var rec *types.ClinicalRecord
	err := query(ctx, func(tx *state.Tx) error {
		svc, err := c.recordReader(tx)
		if err != nil {
			return err
		}
		rec, err = svc.GetRecord(patient)
		return err
	})
	return rec, err
}

// AddTreatment opens a treatment on the patient's record
func (c *SystemContract) AddTreatment(ctx contractapi.TransactionContextInterface, patient, ailment, description string) (uint64, error) {
	var id uint64
	err := invoke(ctx, c.Name, "AddTreatment", func(tx *state.Tx) error {
		svc, err := c.recordService(tx, "AddTreatment")
		if err != nil {
			return err
		}
		id, err = svc.AddTreatment(patient, ailment, description)
		return err
	})
	return id, err
}

// UpdateTreatment replaces an open treatment's description
func (c *SystemContract) UpdateTreatment(ctx contractapi.TransactionContextInterface, patient string, id uint64, description string) error {
	return invoke(ctx, c.Name, "UpdateTreatment", func(tx *state.Tx) error {
		svc, err := c.recordService(tx, "UpdateTreatment")
		if err != nil {
			return err
		}
		return svc.UpdateTreatment(patient, id, description)
	})
}

// CloseTreatment stamps and closes an open treatment
func (c *SystemContract) CloseTreatment(ctx contractapi.TransactionContextInterface, patient string, id uint64) error {
	return invoke(ctx, c.Name, "CloseTreatment", func(tx *state.Tx) error {
		svc, err := c.recordService(tx, "CloseTreatment")
		if err != nil {
			return err
		}
		return svc.CloseTreatment(patient, id)
	})
}

// GetTreatment reads a treatment, open or closed
func (c *SystemContract) GetTreatment(ctx contractapi.TransactionContextInterface, patient string, id uint64) (*types.Treatment, error) {
	var treatment *types.Treatment
	err := query(ctx, func(tx *state.Tx) error {
		svc, err := c.recordReader(tx)
		if err != nil {
			return err
		}
		treatment, err = svc.GetTreatment(patient, id)
		return err
	})
	return treatment, err
}

// CloseRecord ends a record, force-closing its open treatments
func (c *SystemContract) CloseRecord(ctx contractapi.TransactionContextInterface, patient string) error {
	return invoke(ctx, c.Name, "CloseRecord", func(tx *state.Tx) error {
		svc, err := c.recordService(tx, "CloseRecord")
		if err != nil {
			return err
		}
		return svc.CloseRecord(patient)
	})
}

// MarkMissing flags a record as missing. Administrators only.
func (c *SystemContract) MarkMissing(ctx contractapi.TransactionContextInterface, patient string) error {
	return invoke(ctx, c.Name, "MarkMissing", func(tx *state.Tx) error {
		svc, err := c.recordService(tx, "MarkMissing")
		if err != nil {
			return err
		}
		return svc.MarkMissing(patient)
	})
}

// MarkPresent returns a missing record to open. Administrators only.
func (c *SystemContract) MarkPresent(ctx contractapi.TransactionContextInterface, patient string) error {
	return invoke(ctx, c.Name, "MarkPresent", func(tx *state.Tx) error {
		svc, err := c.recordService(tx, "MarkPresent")
		if err != nil {
			return err
		}
		return svc.MarkPresent(patient)
	})
}

// TransferRecord reassigns one record. Administrators only.
func (c *SystemContract) TransferRecord(ctx contractapi.TransactionContextInterface, patient, newDoctor string) error {
	return invoke(ctx, c.Name, "TransferRecord", func(tx *state.Tx) error {
		svc, err := c.recordService(tx, "TransferRecord")
		if err != nil {
			return err
		}
		return svc.TransferRecord(patient, newDoctor)
	})
}

// TransferAllRecords reassigns every record of fromDoctor.
// Administrators only.
func (c *SystemContract) TransferAllRecords(ctx contractapi.TransactionContextInterface, fromDoctor, toDoctor string) error {
	return invoke(ctx, c.Name, "TransferAllRecords", func(tx *state.Tx) error {
		svc, err := c.recordService(tx, "TransferAllRecords")
		if err != nil {
			return err
		}
		return svc.TransferAllRecords(fromDoctor, toDoctor)
	})
}

// GetAssignedPatients lists a doctor's assigned patients
func (c *SystemContract) GetAssignedPatients(ctx contractapi.TransactionContextInterface, doctor string) ([]string, error) {
	var patients []string
	err := query(ctx, func(tx *state.Tx) error {
		svc, err := c.recordReader(tx)
		if err != nil {
			return err
		}
		patients, err = svc.PatientsOf(doctor)
		return err
	})
	return patients, err
}

// IsDoctor reports doctor roster membership from the registry
func (c *SystemContract) IsDoctor(ctx contractapi.TransactionContextInterface, principal string) (bool, error) {
	return c.membership(ctx, func(reg *registry.Registry) (bool, error) {
		return reg.IsDoctor(principal)
	})
}

// IsAdministrator reports administrator roster membership from the registry
func (c *SystemContract) IsAdministrator(ctx contractapi.TransactionContextInterface, principal string) (bool, error) {
	return c.membership(ctx, func(reg *registry.Registry) (bool, error) {
		return reg.IsAdministrator(principal)
	})
}

// IsPatient reports patient roster membership from the registry
func (c *SystemContract) IsPatient(ctx contractapi.TransactionContextInterface, principal string) (bool, error) {
	return c.membership(ctx, func(reg *registry.Registry) (bool, error) {
		return reg.IsPatient(principal)
	})
}

// IsAdministratorMirrored reports the fast-path administrator flag
// the orchestrator keeps next to the registry roster
func (c *SystemContract) IsAdministratorMirrored(ctx contractapi.TransactionContextInterface, principal string) (bool, error) {
	return c.mirror(ctx, adminMirrorKey(principal))
}

// IsDoctorMirrored reports the fast-path doctor flag
func (c *SystemContract) IsDoctorMirrored(ctx contractapi.TransactionContextInterface, principal string) (bool, error) {
	return c.mirror(ctx, doctorMirrorKey(principal))
}

func (c *SystemContract) membership(ctx contractapi.TransactionContextInterface, fn func(*registry.Registry) (bool, error)) (bool, error) {
	var result bool
	err := query(ctx, func(tx *state.Tx) error {
		if err := c.requireWired(tx); err != nil {
			return err
		}
		var err error
		result, err = fn(registry.New(tx))
		return err
	})
	return result, err
}

func (c *SystemContract) mirror(ctx contractapi.TransactionContextInterface, key string) (bool, error) {
	var result bool
	err := query(ctx, func(tx *state.Tx) error {
		var flag bool
		found, err := tx.Get(key, &flag)
		if err != nil {
			return err
		}
		result = found && flag
		return nil
	})
	return result, err
}

func (c *SystemContract) config(tx *state.Tx) (systemConfig, error) {
	var cfg systemConfig
	found, err := tx.Get(systemConfigKey, &cfg)
	if err != nil {
		return systemConfig{}, err
	}
	if !found {
		return systemConfig{}, types.ErrInvalidState("system is not initialized")
	}
	return cfg, nil
}

func (c *SystemContract) controllerConfig(tx *state.Tx) (systemConfig, error) {
	cfg, err := c.config(tx)
	if err != nil {
		return systemConfig{}, err
	}
	if tx.Caller() != cfg.Controller {
		return systemConfig{}, types.ErrUnauthorized("only the system controller may perform this operation")
	}
	return cfg, nil
}

func (c *SystemContract) requireWired(tx *state.Tx) error {
	var wired bool
	found, err := tx.Get(systemRegistryKey, &wired)
	if err != nil {
		return err
	}
	if !found || !wired {
		return types.ErrInvalidState("system registry is not wired")
	}
	return nil
}

// route resolves the acting principal for one capability area. A
// configured delegate announces the forwarding hop ahead of the
// domain events; without one the system acts as itself.
func (c *SystemContract) route(tx *state.Tx, cfg systemConfig, key, operation string) (string, error) {
	if err := c.requireWired(tx); err != nil {
		return "", err
	}
	var delegate string
	found, err := tx.Get(key, &delegate)
	if err != nil {
		return "", err
	}
	if !found || delegate == "" {
		return cfg.Self, nil
	}
	tx.Emit(types.EventServiceForwarded, map[string]string{
		types.FieldService:   delegate,
		types.FieldOperation: operation,
	})
	return delegate, nil
}

// actingPrincipal resolves a capability's principal without the
// forwarding announcement, for read paths
func (c *SystemContract) actingPrincipal(tx *state.Tx, cfg systemConfig, key string) (string, error) {
	var delegate string
	found, err := tx.Get(key, &delegate)
	if err != nil {
		return "", err
	}
	if !found || delegate == "" {
		return cfg.Self, nil
	}
	return delegate, nil
}

func (c *SystemContract) doctorService(tx *state.Tx, operation string) (*doctors.Service, error) {
	cfg, err := c.config(tx)
	if err != nil {
		return nil, err
	}
	acting, err := c.route(tx, cfg, systemSvcDoctor, operation)
	if err != nil {
		return nil, err
	}
	return doctors.New(tx, acting, cfg.Controller), nil
}

func (c *SystemContract) recordService(tx *state.Tx, operation string) (*records.Service, error) {
	cfg, err := c.config(tx)
	if err != nil {
		return nil, err
	}
	acting, err := c.route(tx, cfg, systemSvcRecord, operation)
	if err != nil {
		return nil, err
	}
	return records.New(tx, acting, cfg.Controller), nil
}

func (c *SystemContract) recordReader(tx *state.Tx) (*records.Service, error) {
	cfg, err := c.config(tx)
	if err != nil {
		return nil, err
	}
	if err := c.requireWired(tx); err != nil {
		return nil, err
	}
	acting, err := c.actingPrincipal(tx, cfg, systemSvcRecord)
	if err != nil {
		return nil, err
	}
	return records.New(tx, acting, cfg.Controller), nil
}
