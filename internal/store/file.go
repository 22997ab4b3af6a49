package store

import (
	"context"
	"encoding/json"
	"os"
)

// FileStore keeps the snapshot in a single JSON file.
type FileStore struct {
	path string
}

func NewFile(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the backing file. A missing or unparsable file yields an empty
// snapshot so the service starts fresh instead of refusing requests.
func (f *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return NewSnapshot(), nil
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return NewSnapshot(), nil
	}
	snap.normalize()
	return &snap, nil
}

// Save rewrites the whole file. Temp-write plus rename keeps the backing file
// intact if the process dies mid-write; concurrent savers still race and the
// last rename wins.
func (f *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
