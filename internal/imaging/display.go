package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

// FileDisplay writes each displayed image to Path as PNG.
type FileDisplay struct {
	// Path of the PNG file to write. Parent directories are created as needed.
	Path string

	// Scale resizes the image before writing. Zero or 1 keeps the original size.
	Scale float64
}

// Display encodes img as PNG at d.Path, replacing any existing file.
func (d FileDisplay) Display(img image.Image) error {
	if d.Path == "" {
		return fmt.Errorf("display path is empty")
	}
	img, err := Rescale(img, d.Scale)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(d.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create display directory: %w", err)
		}
	}
	if err := imgio.Save(d.Path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// Rescale resizes img by scale with a Lanczos filter. Zero or 1 returns img
// unchanged.
func Rescale(img image.Image, scale float64) (image.Image, error) {
	if scale < 0 {
		return nil, fmt.Errorf("invalid display scale %g", scale)
	}
	if scale == 0 || scale == 1 {
		return img, nil
	}

	b := img.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("scale %g leaves no pixels of a %dx%d image", scale, b.Dx(), b.Dy())
	}
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}
