package upload

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type filePart struct {
	name        string
	contentType string
	data        []byte
}

func buildParts(t *testing.T, parts []filePart) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photos"; filename=%q`, p.name))
		h.Set("Content-Type", p.contentType)
		fw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["photos"]
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20))))
	return buf.Bytes()
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestSaveAllStoresImages(t *testing.T) {
	root := t.TempDir()
	s := NewSaver(root, 64)

	paths, err := s.SaveAll("alice", buildParts(t, []filePart{
		{name: "tree.png", contentType: "image/png", data: pngBytes(t)},
	}))
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.True(t, strings.HasPrefix(paths[0], "/uploads/photos/alice/"))
	assert.True(t, strings.HasSuffix(paths[0], ".png"))

	onDisk := filepath.Join(root, "photos", "alice", filepath.Base(paths[0]))
	_, err = os.Stat(onDisk)
	assert.NoError(t, err)

	// Decodable image gets a thumbnail next to the photo tree.
	thumb := filepath.Join(root, "thumbs", "alice", filepath.Base(paths[0])+".jpg")
	_, err = os.Stat(thumb)
	assert.NoError(t, err)
}

func TestSaveAllDefaultsExtension(t *testing.T) {
	s := NewSaver(t.TempDir(), 64)

	paths, err := s.SaveAll("alice", buildParts(t, []filePart{
		{name: "noext", contentType: "image/jpeg", data: []byte("not really a jpeg")},
	}))
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.True(t, strings.HasSuffix(paths[0], ".jpg"))
}

func TestSaveAllUndecodableImageStillStored(t *testing.T) {
	root := t.TempDir()
	s := NewSaver(root, 64)

	// Declared image/* but garbage bytes: stored, thumbnail skipped.
	paths, err := s.SaveAll("alice", buildParts(t, []filePart{
		{name: "fake.jpg", contentType: "image/jpeg", data: []byte("garbage")},
	}))
	require.NoError(t, err)
	require.Len(t, paths, 1)

	thumb := filepath.Join(root, "thumbs", "alice", filepath.Base(paths[0])+".jpg")
	_, err = os.Stat(thumb)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveAllRejectsNonImageWritingNothing(t *testing.T) {
	root := t.TempDir()
	s := NewSaver(root, 64)

	_, err := s.SaveAll("alice", buildParts(t, []filePart{
		{name: "ok.png", contentType: "image/png", data: pngBytes(t)},
		{name: "evil.txt", contentType: "text/plain", data: []byte("hi")},
	}))
	assert.ErrorIs(t, err, ErrInvalidUpload)
	assert.Equal(t, 0, countFiles(t, root))
}

func TestSaveAllRejectsTooManyFiles(t *testing.T) {
	s := NewSaver(t.TempDir(), 64)

	parts := make([]filePart, MaxFiles+1)
	for i := range parts {
		parts[i] = filePart{name: fmt.Sprintf("p%d.png", i), contentType: "image/png", data: []byte("x")}
	}
	_, err := s.SaveAll("alice", buildParts(t, parts))
	assert.ErrorIs(t, err, ErrTooManyFiles)
}

func TestSaveAllRejectsUnsafeUsername(t *testing.T) {
	s := NewSaver(t.TempDir(), 64)

	for _, username := range []string{"", "..", "../etc", "a/b", `a\b`} {
		_, err := s.SaveAll(username, nil)
		assert.ErrorIs(t, err, ErrUnsafeUsername, "username %q", username)
	}
}

func TestRemoveDeletesPhotoAndThumb(t *testing.T) {
	root := t.TempDir()
	s := NewSaver(root, 64)

	paths, err := s.SaveAll("alice", buildParts(t, []filePart{
		{name: "tree.png", contentType: "image/png", data: pngBytes(t)},
	}))
	require.NoError(t, err)

	require.NoError(t, s.Remove(paths[0]))

	_, err = os.Stat(filepath.Join(root, "photos", "alice", filepath.Base(paths[0])))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "thumbs", "alice", filepath.Base(paths[0])+".jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveRejectsForeignPaths(t *testing.T) {
	s := NewSaver(t.TempDir(), 64)

	assert.Error(t, s.Remove("/etc/passwd"))
	assert.Error(t, s.Remove("/uploads/photos/alice/missing.jpg"))
}
