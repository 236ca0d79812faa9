package state

import (
	"fmt"

	"github.com/google/uuid"
)

// AuditEntry is the persisted trail record written for every event a
// committed transaction emitted
type AuditEntry struct {
	ID        string            `json:"id"`
	TxID      string            `json:"tx_id"`
	Actor     string            `json:"actor"`
	Event     string            `json:"event"`
	Payload   map[string]string `json:"payload,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// RecordAudit buffers one audit entry per journaled event. Called
// just before commit so the trail rides in the same write set as the
// state changes it describes. Entry IDs are derived from the
// transaction ID so every endorser produces the same write set.
func RecordAudit(tx *Tx, txID string) error {
	for seq, ev := range tx.Events() {
		entry := AuditEntry{
			ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s-%d", txID, seq))).String(),
			TxID:      txID,
			Actor:     tx.Caller(),
			Event:     ev.Name,
			Payload:   ev.Payload,
			Timestamp: tx.Now(),
		}
		key := fmt.Sprintf("audit_%s_%d", txID, seq)
		if err := tx.Put(key, entry); err != nil {
			return err
		}
	}
	return nil
}
