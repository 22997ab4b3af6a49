package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxFiles caps the number of photo parts accepted in one request.
const MaxFiles = 20

var (
	// ErrInvalidUpload rejects any part whose declared type is not image/*.
	ErrInvalidUpload = errors.New("upload: only image files are allowed")
	// ErrTooManyFiles caps a single request's batch size.
	ErrTooManyFiles = fmt.Errorf("upload: at most %d files per request", MaxFiles)
	// ErrUnsafeUsername rejects usernames that cannot be a directory name.
	ErrUnsafeUsername = errors.New("upload: unsafe username")
)

// Saver writes uploaded photos under <root>/photos/<username>/ and mirrors a
// thumbnail under <root>/thumbs/<username>/.
type Saver struct {
	root     string
	thumbMax int
}

func NewSaver(root string, thumbMax int) *Saver {
	return &Saver{root: root, thumbMax: thumbMax}
}

// SaveAll stores a batch of uploaded files for a user and returns their
// web-servable paths in input order. Every part is validated before anything
// is written, so a rejected batch leaves no files behind; if a write fails
// mid-batch the files already written for this batch are removed.
func (s *Saver) SaveAll(username string, files []*multipart.FileHeader) ([]string, error) {
	if username == "" || strings.Contains(username, "..") || strings.ContainsAny(username, `/\`) {
		return nil, ErrUnsafeUsername
	}
	if len(files) > MaxFiles {
		return nil, ErrTooManyFiles
	}
	for _, fh := range files {
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			return nil, ErrInvalidUpload
		}
	}

	dir, err := joinWithinRoot(s.root, path.Join("photos", username))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var webPaths, written []string
	for _, fh := range files {
		name := generateName(fh.Filename)
		dest := filepath.Join(dir, name)
		if err := saveFile(fh, dest); err != nil {
			for _, p := range written {
				_ = os.Remove(p)
			}
			return nil, err
		}
		written = append(written, dest)
		s.writeThumb(username, name, dest)
		webPaths = append(webPaths, path.Join("/uploads", "photos", username, name))
	}
	return webPaths, nil
}

// Remove deletes the stored file for a photo web path, plus its thumbnail.
// Callers treat failures as warnings: the store entry is already gone.
func (s *Saver) Remove(webPath string) error {
	rel := strings.TrimPrefix(webPath, "/uploads/")
	if rel == webPath {
		return fmt.Errorf("upload: %q is not under /uploads", webPath)
	}
	abs, err := joinWithinRoot(s.root, rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return err
	}
	if thumb, err := s.thumbPath(rel); err == nil {
		_ = os.Remove(thumb)
	}
	return nil
}

// generateName builds a collision-resistant stored filename, keeping the
// original extension and defaulting to .jpg when there is none.
func generateName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".jpg"
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), suffix, ext)
}

func saveFile(fh *multipart.FileHeader, dest string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

// joinWithinRoot resolves rel under root and rejects escapes, so request
// input can never address files outside the upload tree.
func joinWithinRoot(root, rel string) (string, error) {
	if strings.Contains(rel, "\x00") {
		return "", errors.New("upload: invalid path")
	}
	rel = path.Clean("/" + strings.ReplaceAll(rel, "\\", "/"))
	abs := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
	absClean := filepath.Clean(abs)
	rootClean := filepath.Clean(root)
	if absClean != rootClean && !strings.HasPrefix(absClean, rootClean+string(filepath.Separator)) {
		return "", errors.New("upload: path escape")
	}
	return absClean, nil
}
