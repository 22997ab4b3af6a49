package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"tree-backend/internal/models"
	"tree-backend/internal/shortid"
	"tree-backend/internal/store"
	"tree-backend/internal/upload"
	"tree-backend/internal/utils"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrPhotoNotFound   = errors.New("photo not found in user data")
	ErrLinkNotFound    = errors.New("short link not found")
	ErrEmptyUsername   = errors.New("username is required")
	ErrInvalidUsername = errors.New("username contains invalid characters")
)

// NormalizeUsername lowercases and trims a raw username and rejects values
// that cannot be used as a directory name under the upload root.
func NormalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if username == "" {
		return "", ErrEmptyUsername
	}
	if strings.Contains(username, "..") || strings.ContainsAny(username, "/\\\x00") {
		return "", ErrInvalidUsername
	}
	return username, nil
}

// TreeService implements the tree-page operations as load→mutate→save cycles
// over the snapshot store. Cycles are not serialized: concurrent writers to
// the same username race and the last save wins.
type TreeService struct {
	store   store.Store
	ids     *shortid.Generator
	uploads *upload.Saver
}

func NewTreeService(st store.Store, ids *shortid.Generator, uploads *upload.Saver) *TreeService {
	return &TreeService{store: st, ids: ids, uploads: uploads}
}

func (s *TreeService) GetProfile(ctx context.Context, username string) (*models.Profile, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := snap.ByUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return p, nil
}

// UpdateProfile appends freshly uploaded photos to the profile, replaces the
// blessing, and assigns a short id on first update. An existing short id is
// never regenerated.
func (s *TreeService) UpdateProfile(ctx context.Context, username, blessing string, files []*multipart.FileHeader) (*models.Profile, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	photoPaths, err := s.uploads.SaveAll(username, files)
	if err != nil {
		return nil, err
	}

	p, ok := snap.ByUsername[username]
	if !ok {
		p = &models.Profile{Username: username, Photos: []string{}}
		snap.ByUsername[username] = p
	}
	p.Blessing = blessing
	p.Photos = append(p.Photos, photoPaths...)

	if p.ShortID == "" {
		id, err := s.ids.Generate(func(id string) bool {
			_, taken := snap.ByShortID[id]
			return taken
		})
		if err != nil {
			return nil, err
		}
		p.ShortID = id
	}
	snap.ByShortID[p.ShortID] = username

	if err := s.store.Save(ctx, snap); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePhoto removes one photo reference and persists before touching the
// filesystem. The store is authoritative: a failed disk delete is only logged.
func (s *TreeService) DeletePhoto(ctx context.Context, username, photoURL string) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	p, ok := snap.ByUsername[username]
	if !ok {
		return ErrUserNotFound
	}

	idx := -1
	for i, photo := range p.Photos {
		if photo == photoURL {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrPhotoNotFound
	}
	p.Photos = append(p.Photos[:idx], p.Photos[idx+1:]...)

	if err := s.store.Save(ctx, snap); err != nil {
		return err
	}

	if err := s.uploads.Remove(photoURL); err != nil {
		utils.LogError(err, "DeletePhoto cleanup")
	}
	return nil
}

// Resolve returns the username owning a short id.
func (s *TreeService) Resolve(ctx context.Context, shortID string) (string, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return "", err
	}
	username, ok := snap.ByShortID[shortID]
	if !ok {
		return "", ErrLinkNotFound
	}
	return username, nil
}
