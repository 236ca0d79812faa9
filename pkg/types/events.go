package types

// Event is a single notification produced by a contract operation. Events are
// journaled in emission order and published only when the whole operation
// succeeds; a rejected call publishes nothing.
type Event struct {
	Name    string            `json:"name"`
	Payload map[string]string `json:"payload"`
}

// Event names. One operation may emit several events; the closure cascade for
// example emits one EventTreatmentClosed per open treatment followed by a
// single EventRecordClosed.
const (
	EventRecordOpened        = "RecordOpened"
	EventRecordClosed        = "RecordClosed"
	EventRecordMarkedMissing = "RecordMarkedMissing"
	EventRecordMarkedPresent = "RecordMarkedPresent"
	EventRecordTransferred   = "RecordTransferred"
	EventTreatmentOpened     = "TreatmentOpened"
	EventTreatmentUpdated    = "TreatmentUpdated"
	EventTreatmentClosed     = "TreatmentClosed"
	EventRoleAdded           = "RoleAdded"
	EventRoleRemoved         = "RoleRemoved"
	EventPatientAdded        = "PatientAdded"
	EventServiceAuthorized   = "ServiceAuthorized"
	EventServiceForwarded    = "ServiceForwarded"
)

// Payload field names shared by the event schemas.
const (
	FieldPatient   = "patient"
	FieldDoctor    = "doctor"
	FieldOldDoctor = "old_doctor"
	FieldNewDoctor = "new_doctor"
	FieldAdmin     = "admin"
	FieldTreatment = "treatment_id"
	FieldPrincipal = "principal"
	FieldRole      = "role"
	FieldActor     = "actor"
	FieldService   = "service"
	FieldOperation = "operation"
)

// Role names used by RoleAdded/RoleRemoved payloads.
const (
	RoleDoctor        = "doctor"
	RoleAdministrator = "administrator"
)
