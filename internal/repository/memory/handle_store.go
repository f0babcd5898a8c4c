package memory

import (
	"context"
	"sync"

	storyRepo "yarny/internal/domain/repositories/story"
)

// HandleStore keeps the granted directory record for the life of the
// process. It is used when no Redis URL is configured.
type HandleStore struct {
	mu     sync.Mutex
	record *storyRepo.HandleRecord
}

var _ storyRepo.HandleStore = (*HandleStore)(nil)

func NewHandleStore() *HandleStore {
	return &HandleStore{}
}

func (s *HandleStore) Save(ctx context.Context, record *storyRepo.HandleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.record = &cp
	return nil
}

func (s *HandleStore) Load(ctx context.Context) (*storyRepo.HandleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil, nil
	}
	cp := *s.record
	return &cp, nil
}

func (s *HandleStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = nil
	return nil
}
