package state

// Store is the minimal world-state surface the services depend on.
// The Fabric chaincode stub satisfies it directly.
type Store interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
	DelState(key string) error
}

// MemStore is an in-memory Store used by the service tests.
type MemStore struct {
	data map[string][]byte
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{data: map[string][]byte{}}
}

func (m *MemStore) GetState(key string) ([]byte, error) {
	return m.data[key], nil
}

func (m *MemStore) PutState(key string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	m.data[key] = buf
	return nil
}

func (m *MemStore) DelState(key string) error {
	delete(m.data, key)
	return nil
}

// Keys returns the number of stored keys, for test assertions
func (m *MemStore) Keys() int {
	return len(m.data)
}

var _ Store = (*MemStore)(nil)
