package story

import (
	"context"
	"time"
)

// HandleRecord is the persisted form of the granted directory capability.
type HandleRecord struct {
	Path          string    `json:"path"`
	Name          string    `json:"name"`
	MirrorEnabled bool      `json:"mirror_enabled"`
	GrantedAt     time.Time `json:"granted_at"`
}

// HandleStore persists the single shared directory handle across restarts.
type HandleStore interface {
	// Save stores the record, replacing any previous one
	Save(ctx context.Context, record *HandleRecord) error

	// Load returns the stored record, or nil when none was saved
	Load(ctx context.Context) (*HandleRecord, error)

	// Clear forgets the stored record
	Clear(ctx context.Context) error
}
