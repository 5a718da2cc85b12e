package service

import (
	"context"
	"sync"

	"billpay/internal/domain"
)

// MemoryPreferenceStore keeps remembered inputs in process memory. It is used
// when Redis is disabled; entries do not survive a restart.
type MemoryPreferenceStore struct {
	mu     sync.RWMutex
	fields map[string]domain.RememberedFields
}

// NewMemoryPreferenceStore creates an empty MemoryPreferenceStore.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{fields: make(map[string]domain.RememberedFields)}
}

func (s *MemoryPreferenceStore) Load(ctx context.Context, deviceID string) (domain.RememberedFields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fields[deviceID], nil
}

func (s *MemoryPreferenceStore) Save(ctx context.Context, deviceID string, fields domain.RememberedFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fields.IsZero() {
		delete(s.fields, deviceID)
		return nil
	}
	s.fields[deviceID] = fields
	return nil
}

func (s *MemoryPreferenceStore) Forget(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fields, deviceID)
	return nil
}

var _ PreferenceStore = (*MemoryPreferenceStore)(nil)
