package upload

import (
	"image"
	"image/jpeg"
	"os"
	"path"
	"path/filepath"
	"strings"

	// decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"tree-backend/internal/utils"
)

// writeThumb renders a scaled-down JPEG rendition of a stored photo.
// Thumbnails are cosmetic: any failure is logged and the upload proceeds.
func (s *Saver) writeThumb(username, name, srcPath string) {
	dir, err := joinWithinRoot(s.root, path.Join("thumbs", username))
	if err != nil {
		utils.LogError(err, "WriteThumb")
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		utils.LogError(err, "WriteThumb")
		return
	}
	if err := makeThumbFile(srcPath, filepath.Join(dir, name+".jpg"), s.thumbMax); err != nil {
		utils.LogError(err, "WriteThumb")
	}
}

// thumbPath maps a photo path relative to the upload root ("photos/<u>/<n>")
// to its thumbnail location.
func (s *Saver) thumbPath(photoRel string) (string, error) {
	rel := strings.TrimPrefix(photoRel, "photos/")
	if rel == photoRel {
		return "", os.ErrInvalid
	}
	return joinWithinRoot(s.root, path.Join("thumbs", rel)+".jpg")
}

func makeThumbFile(srcPath, destPath string, max int) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return err
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return os.ErrInvalid
	}
	if max <= 0 {
		max = 256
	}

	nw, nh := w, h
	if w > h {
		if w > max {
			nw = max
			nh = int(float64(h) * (float64(max) / float64(w)))
		}
	} else {
		if h > max {
			nh = max
			nw = int(float64(w) * (float64(max) / float64(h)))
		}
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return jpeg.Encode(out, dst, &jpeg.Options{Quality: 82})
}
