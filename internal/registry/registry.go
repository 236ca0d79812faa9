package registry

import (
	"fmt"

	"github.com/medrex/clinical-ledger/internal/state"
	"github.com/medrex/clinical-ledger/pkg/types"
)

// Registry is the data authority. It owns every roster, every
// clinical record and the authorized-service allow-list, and it is
// the only package that touches the world-state keys. Mutations are
// accepted only from the system principal or an authorized service;
// role grants are gated one level up, by the callers.
type Registry struct {
	tx *state.Tx
}

// New binds a registry to the given transaction
func New(tx *state.Tx) *Registry {
	return &Registry{tx: tx}
}

// Initialize records the deploying owner and the system principal.
// It can only ever run once.
func (r *Registry) Initialize(owner, system string) error {
	var existing string
	found, err := r.tx.Get(keyOwner, &existing)
	if err != nil {
		return err
	}
	if found {
		return types.ErrInvalidState("registry is already initialized")
	}
	if err := r.tx.Put(keyOwner, owner); err != nil {
		return err
	}
	return r.tx.Put(keySystem, system)
}

// Owner returns the deploying owner principal
func (r *Registry) Owner() (string, error) {
	return r.getPrincipal(keyOwner)
}

// System returns the system principal set at initialization
func (r *Registry) System() (string, error) {
	return r.getPrincipal(keySystem)
}

func (r *Registry) getPrincipal(key string) (string, error) {
	var principal string
	found, err := r.tx.Get(key, &principal)
	if err != nil {
		return "", err
	}
	if !found {
		return "", types.ErrInvalidState("registry is not initialized")
	}
	return principal, nil
}

// AuthorizeService adds a service principal to the allow-list. Only
// the owner may call this; re-authorizing is a no-op.
func (r *Registry) AuthorizeService(service string) error {
	owner, err := r.Owner()
	if err != nil {
		return err
	}
	if r.tx.Caller() != owner {
		return types.ErrUnauthorized("only the registry owner may authorize services")
	}
	var flag bool
	found, err := r.tx.Get(serviceKey(service), &flag)
	if err != nil {
		return err
	}
	if found && flag {
		return nil
	}
	if err := r.tx.Put(serviceKey(service), true); err != nil {
		return err
	}
	r.tx.Emit(types.EventServiceAuthorized, map[string]string{
		types.FieldService: service,
		types.FieldActor:   r.tx.Caller(),
	})
	return nil
}

// IsAuthorized reports whether principal may mutate the registry
func (r *Registry) IsAuthorized(principal string) (bool, error) {
	system, err := r.System()
	if err != nil {
		return false, err
	}
	if principal == system {
		return true, nil
	}
	var flag bool
	found, err := r.tx.Get(serviceKey(principal), &flag)
	if err != nil {
		return false, err
	}
	return found && flag, nil
}

func (r *Registry) requireActor() error {
	ok, err := r.IsAuthorized(r.tx.Caller())
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrUnauthorized(fmt.Sprintf("%s is not an authorized registry actor", r.tx.Caller()))
	}
	return nil
}

// AddDoctor registers a doctor principal
func (r *Registry) AddDoctor(principal string) error {
	if err := r.requireActor(); err != nil {
		return err
	}
	return r.addRole(principal, types.RoleDoctor, keyDoctors, doctorKey(principal))
}

// RemoveDoctor removes a doctor principal from the roster. The
// roster closes the gap by swapping the last entry into the hole.
func (r *Registry) RemoveDoctor(principal string) error {
	if err := r.requireActor(); err != nil {
		return err
	}
	return r.removeRole(principal, types.RoleDoctor, keyDoctors, doctorKey(principal))
}

// AddAdministrator registers an administrator principal
func (r *Registry) AddAdministrator(principal string) error {
	if err := r.requireActor(); err != nil {
		return err
	}
	return r.addRole(principal, types.RoleAdministrator, keyAdmins, adminKey(principal))
}

// RemoveAdministrator removes an administrator principal
func (r *Registry) RemoveAdministrator(principal string) error {
	if err := r.requireActor(); err != nil {
		return err
	}
	return r.removeRole(principal, types.RoleAdministrator, keyAdmins, adminKey(principal))
}

func (r *Registry) addRole(principal, role, listKey, flagKey string) error {
	held, err := r.hasFlag(flagKey)
	if err != nil {
		return err
	}
	if held {
		return types.ErrDuplicateRole(fmt.Sprintf("%s already holds the %s role", principal, role))
	}
	list, err := r.list(listKey)
	if err != nil {
		return err
	}
	if err := r.tx.Put(listKey, append(list, principal)); err != nil {
		return err
	}
	if err := r.tx.Put(flagKey, true); err != nil {
		return err
	}
	r.tx.Emit(types.EventRoleAdded, map[string]string{
		types.FieldRole:      role,
		types.FieldPrincipal: principal,
		types.FieldActor:     r.tx.Caller(),
	})
	return nil
}

func (r *Registry) removeRole(principal, role, listKey, flagKey string) error {
	held, err := r.hasFlag(flagKey)
	if err != nil {
		return err
	}
	if !held {
		return types.ErrNotFound(fmt.Sprintf("%s does not hold the %s role", principal, role))
	}
	list, err := r.list(listKey)
	if err != nil {
		return err
	}
	if err := r.tx.Put(listKey, swapPop(list, principal)); err != nil {
		return err
	}
	r.tx.Delete(flagKey)
	r.tx.Emit(types.EventRoleRemoved, map[string]string{
		types.FieldRole:      role,
		types.FieldPrincipal: principal,
		types.FieldActor:     r.tx.Caller(),
	})
	return nil
}

// AddPatient registers a patient principal. A principal can only
// ever become a patient once.
func (r *Registry) AddPatient(principal string) error {
	if err := r.requireActor(); err != nil {
		return err
	}
	held, err := r.hasFlag(patientKey(principal))
	if err != nil {
		return err
	}
	if held {
		return types.ErrAlreadyPatient(fmt.Sprintf("%s is already a patient", principal))
	}
	list, err := r.list(keyPatients)
	if err != nil {
		return err
	}
	if err := r.tx.Put(keyPatients, append(list, principal)); err != nil {
		return err
	}
	if err := r.tx.Put(patientKey(principal), true); err != nil {
		return err
	}
	r.tx.Emit(types.EventPatientAdded, map[string]string{
		types.FieldPatient: principal,
		types.FieldActor:   r.tx.Caller(),
	})
	return nil
}

// IsDoctor reports whether principal is on the doctor roster
func (r *Registry) IsDoctor(principal string) (bool, error) {
	return r.hasFlag(doctorKey(principal))
}

// IsAdministrator reports whether principal is on the administrator roster
func (r *Registry) IsAdministrator(principal string) (bool, error) {
	return r.hasFlag(adminKey(principal))
}

// IsPatient reports whether principal has ever been admitted
func (r *Registry) IsPatient(principal string) (bool, error) {
	return r.hasFlag(patientKey(principal))
}

// Doctors returns the doctor roster in its current storage order
func (r *Registry) Doctors() ([]string, error) {
	return r.list(keyDoctors)
}

// Administrators returns the administrator roster in its current storage order
func (r *Registry) Administrators() ([]string, error) {
	return r.list(keyAdmins)
}

// Patients returns every admitted patient in admission order
func (r *Registry) Patients() ([]string, error) {
	return r.list(keyPatients)
}

// Record loads a patient's clinical record
func (r *Registry) Record(patient string) (*types.ClinicalRecord, bool, error) {
	var rec types.ClinicalRecord
	found, err := r.tx.Get(recordKey(patient), &rec)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return &rec, true, nil
}

// PutRecord stores a patient's clinical record
func (r *Registry) PutRecord(patient string, rec *types.ClinicalRecord) error {
	if err := r.requireActor(); err != nil {
		return err
	}
	return r.tx.Put(recordKey(patient), rec)
}

// AssignedPatients returns the patients currently assigned to doctor
func (r *Registry) AssignedPatients(doctor string) ([]string, error) {
	return r.list(assignedKey(doctor))
}

// AssignPatient appends patient to a doctor's assigned list
func (r *Registry) AssignPatient(doctor, patient string) error {
	if err := r.requireActor(); err != nil {
		return err
	}
	list, err := r.list(assignedKey(doctor))
	if err != nil {
		return err
	}
	return r.tx.Put(assignedKey(doctor), append(list, patient))
}

// UnassignPatient removes patient from a doctor's assigned list,
// swapping the last entry into the gap
func (r *Registry) UnassignPatient(doctor, patient string) error {
	if err := r.requireActor(); err != nil {
		return err
	}
	list, err := r.list(assignedKey(doctor))
	if err != nil {
		return err
	}
	return r.tx.Put(assignedKey(doctor), swapPop(list, patient))
}

func (r *Registry) hasFlag(key string) (bool, error) {
	var flag bool
	found, err := r.tx.Get(key, &flag)
	if err != nil {
		return false, err
	}
	return found && flag, nil
}

func (r *Registry) list(key string) ([]string, error) {
	var list []string
	if _, err := r.tx.Get(key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// swapPop removes the first occurrence of principal by moving the
// final entry into its slot and shrinking the list by one.
func swapPop(list []string, principal string) []string {
	for i, p := range list {
		if p != principal {
			continue
		}
		last := len(list) - 1
		list[i] = list[last]
		return list[:last]
	}
	return list
}
