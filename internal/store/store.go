package store

import (
	"context"

	"tree-backend/internal/models"
)

// Snapshot is the full persisted state: profile records plus the short-id
// reverse index. The two maps are always loaded and saved together so every
// assigned short id keeps exactly one back-reference to its profile.
type Snapshot struct {
	ByUsername map[string]*models.Profile `json:"byUsername"`
	ByShortID  map[string]string          `json:"byShortId"`
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		ByUsername: make(map[string]*models.Profile),
		ByShortID:  make(map[string]string),
	}
}

// normalize backfills nil maps after decoding a partial document.
func (s *Snapshot) normalize() {
	if s.ByUsername == nil {
		s.ByUsername = make(map[string]*models.Profile)
	}
	if s.ByShortID == nil {
		s.ByShortID = make(map[string]string)
	}
}

// Store persists the snapshot as one unit. Load must not fail on a missing or
// corrupt backing document; Save must report write errors.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}
