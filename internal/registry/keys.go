package registry

import "fmt"

// World-state key layout of the registry. Everything the ledger
// persists lives under these keys.
const (
	keyOwner    = "registry_owner"
	keySystem   = "registry_system"
	keyDoctors  = "registry_doctors"
	keyAdmins   = "registry_admins"
	keyPatients = "registry_patients"
)

func serviceKey(principal string) string {
	return fmt.Sprintf("registry_service_%s", principal)
}

func doctorKey(principal string) string {
	return fmt.Sprintf("registry_doctor_%s", principal)
}

func adminKey(principal string) string {
	return fmt.Sprintf("registry_admin_%s", principal)
}

func patientKey(principal string) string {
	return fmt.Sprintf("registry_patient_%s", principal)
}

func assignedKey(doctor string) string {
	return fmt.Sprintf("registry_assigned_%s", doctor)
}

func recordKey(patient string) string {
	return fmt.Sprintf("registry_record_%s", patient)
}
