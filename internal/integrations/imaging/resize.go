// Package imaging crops uploaded pictures to fixed sizes and stores them as JPEG.
package imaging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"natours/internal/domain"

	"github.com/disintegration/imaging"
)

const jpegQuality = 90

var errNotImage = domain.ValidationError{Msg: "Not an image, please only upload images"}

// Resizer writes files under Dir.
type Resizer struct {
	Dir string
}

// SaveJPEG center-crops src to width x height and writes it to Dir/sub/name.
func (r Resizer) SaveJPEG(src io.Reader, width, height int, sub, name string) error {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return domain.ValidationError{Msg: errNotImage.Msg, Err: err}
	}
	img = imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	dir := filepath.Join(r.Dir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, filepath.Base(name)))
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return f.Close()
}
