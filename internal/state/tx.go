package state

import (
	"encoding/json"
	"fmt"

	"github.com/medrex/clinical-ledger/pkg/types"
)

// txBuffers holds the pending writes and the event journal of one
// invocation. Shared by pointer so ActAs views see the same state.
type txBuffers struct {
	writes  map[string][]byte
	deletes map[string]bool
	order   []string
	events  []types.Event
}

// Tx buffers all writes of a single contract invocation on top of a
// Store. Nothing reaches the underlying store until Commit, so a
// failed invocation leaves the world state untouched. Events are
// journaled alongside the writes and drained only after commit.
type Tx struct {
	store  Store
	caller string
	now    int64
	buf    *txBuffers
}

// NewTx creates a transaction for one invocation. caller is the
// acting principal and now is the ledger timestamp in unix seconds.
func NewTx(store Store, caller string, now int64) *Tx {
	return &Tx{
		store:  store,
		caller: caller,
		now:    now,
		buf: &txBuffers{
			writes:  map[string][]byte{},
			deletes: map[string]bool{},
		},
	}
}

// Caller returns the principal this transaction acts as
func (tx *Tx) Caller() string {
	return tx.caller
}

// ActAs returns a view of this transaction acting as a different
// principal. The view shares the write buffer and event journal.
// Used when the orchestrator forwards a call through a configured
// delegate service.
func (tx *Tx) ActAs(principal string) *Tx {
	return &Tx{
		store:  tx.store,
		caller: principal,
		now:    tx.now,
		buf:    tx.buf,
	}
}

// Now returns the ledger timestamp of the invocation
func (tx *Tx) Now() int64 {
	return tx.now
}

// Get unmarshals the value stored under key into out. It reports
// whether the key exists, consulting buffered writes first.
func (tx *Tx) Get(key string, out interface{}) (bool, error) {
	var raw []byte
	if tx.buf.deletes[key] {
		return false, nil
	}
	if buf, ok := tx.buf.writes[key]; ok {
		raw = buf
	} else {
		var err error
		raw, err = tx.store.GetState(key)
		if err != nil {
			return false, types.ErrInternal(fmt.Sprintf("failed to read state %s", key), err)
		}
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, types.ErrInternal(fmt.Sprintf("failed to unmarshal state %s", key), err)
	}
	return true, nil
}

// Put buffers a JSON write under key
func (tx *Tx) Put(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return types.ErrInternal(fmt.Sprintf("failed to marshal state %s", key), err)
	}
	tx.touch(key)
	delete(tx.buf.deletes, key)
	tx.buf.writes[key] = raw
	return nil
}

// Delete buffers a deletion of key
func (tx *Tx) Delete(key string) {
	tx.touch(key)
	delete(tx.buf.writes, key)
	tx.buf.deletes[key] = true
}

func (tx *Tx) touch(key string) {
	if _, pending := tx.buf.writes[key]; !pending && !tx.buf.deletes[key] {
		tx.buf.order = append(tx.buf.order, key)
	}
}

// Emit journals an event. The journal is published only after the
// transaction commits.
func (tx *Tx) Emit(name string, payload map[string]string) {
	tx.buf.events = append(tx.buf.events, types.Event{Name: name, Payload: payload})
}

// Events returns the journaled events in emission order
func (tx *Tx) Events() []types.Event {
	return tx.buf.events
}

// Commit flushes the buffered writes and deletions to the store in
// first-touch order
func (tx *Tx) Commit() error {
	for _, key := range tx.buf.order {
		if tx.buf.deletes[key] {
			if err := tx.store.DelState(key); err != nil {
				return types.ErrInternal(fmt.Sprintf("failed to delete state %s", key), err)
			}
			continue
		}
		if err := tx.store.PutState(key, tx.buf.writes[key]); err != nil {
			return types.ErrInternal(fmt.Sprintf("failed to write state %s", key), err)
		}
	}
	return nil
}
