package types

import "strconv"

// RecordState is the lifecycle state of a clinical record.
type RecordState int

const (
	RecordOpen    RecordState = 0
	RecordClosed  RecordState = 1
	RecordMissing RecordState = 2
)

// String returns a human readable name for the state.
func (s RecordState) String() string {
	switch s {
	case RecordOpen:
		return "open"
	case RecordClosed:
		return "closed"
	case RecordMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Treatment is a dated note scoped to exactly one clinical record. Identifiers
// are assigned per record, starting at 1, and are never reused.
type Treatment struct {
	ID          uint64 `json:"id"`
	Ailment     string `json:"ailment"`
	Description string `json:"description"`
	ClosedAt    int64  `json:"closed_at"` // unix seconds, 0 while open
}

// Open reports whether the treatment has not been closed yet.
func (t *Treatment) Open() bool {
	return t.ClosedAt == 0
}

// ClinicalRecord is a patient's clinical file. There is at most one record per
// patient principal; a record that reaches RecordClosed stays on the ledger and
// remains queryable by the layer controller.
// Treatment ids are stored under their decimal string form; the contract API
// only accepts string map keys in transaction return types.
type ClinicalRecord struct {
	Holder         string                `json:"holder"`
	AssignedDoctor string                `json:"assigned_doctor"`
	BirthDate      int64                 `json:"birth_date"`
	DeathDate      int64                 `json:"death_date"` // 0 while open
	State          RecordState           `json:"state"`
	OpenTreatments []uint64              `json:"open_treatments"`
	Treatments     map[string]*Treatment `json:"treatments"`
	NextTreatment  uint64                `json:"next_treatment"`
}

// TreatmentKey is the map key a treatment id is stored under.
func TreatmentKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// Treatment returns the treatment with the given id, open or closed.
func (r *ClinicalRecord) Treatment(id uint64) (*Treatment, bool) {
	t, ok := r.Treatments[TreatmentKey(id)]
	return t, ok
}

// PutTreatment stores t under its id.
func (r *ClinicalRecord) PutTreatment(t *Treatment) {
	r.Treatments[TreatmentKey(t.ID)] = t
}

// TreatmentIsOpen reports whether id belongs to a currently open treatment.
func (r *ClinicalRecord) TreatmentIsOpen(id uint64) bool {
	t, ok := r.Treatments[TreatmentKey(id)]
	return ok && t.Open()
}

// RemoveOpenTreatment drops id from the open set preserving insertion order.
func (r *ClinicalRecord) RemoveOpenTreatment(id uint64) {
	for i, open := range r.OpenTreatments {
		if open == id {
			r.OpenTreatments = append(r.OpenTreatments[:i], r.OpenTreatments[i+1:]...)
			return
		}
	}
}
