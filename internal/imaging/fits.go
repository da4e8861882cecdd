package imaging

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"
)

func isFITS(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fits", ".fit", ".fts":
		return true
	}
	return false
}

// decodeFITS reads the primary HDU of a FITS file. A 2-D image yields one
// plane, a 3-D cube yields NAXIS3 planes. BZERO and BSCALE are applied and the
// physical values are clamped into the 16-bit range.
func decodeFITS(path string) ([]*image.Gray16, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer f.Close()

	hdu, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("failed to decode image: primary HDU of %s is not an image", path)
	}

	hdr := hdu.Header()
	axes := hdr.Axes()
	if len(axes) < 2 || len(axes) > 3 {
		return nil, fmt.Errorf("failed to decode image: unsupported NAXIS=%d", len(axes))
	}
	width, height, depth := axes[0], axes[1], 1
	if len(axes) == 3 {
		depth = axes[2]
	}
	if width == 0 || height == 0 || depth == 0 {
		return nil, fmt.Errorf("failed to decode image: empty data unit")
	}

	values, err := readFITSValues(hdu, hdr.Bitpix(), width*height*depth)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bzero := cardFloat(hdr, "BZERO", 0)
	bscale := cardFloat(hdr, "BSCALE", 1)

	planeSize := width * height
	planes := make([]*image.Gray16, depth)
	for z := 0; z < depth; z++ {
		p := image.NewGray16(image.Rect(0, 0, width, height))
		for i, v := range values[z*planeSize : (z+1)*planeSize] {
			phys := math.Round(bzero + bscale*v)
			phys = math.Max(0, math.Min(math.MaxUint16, phys))
			p.Pix[2*i] = uint8(uint16(phys) >> 8)
			p.Pix[2*i+1] = uint8(uint16(phys))
		}
		planes[z] = p
	}
	return planes, nil
}

// readFITSValues reads the n values of the data unit into float64, using the
// slice type matching BITPIX. fitsio fills a slice of the caller's length, so
// every buffer is allocated with n elements up front.
func readFITSValues(img fitsio.Image, bitpix, n int) ([]float64, error) {
	out := make([]float64, n)
	switch bitpix {
	case 8:
		raw := make([]uint8, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case 64:
		raw := make([]int64, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case -64:
		if err := img.Read(&out); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX=%d", bitpix)
	}
	return out, nil
}

func cardFloat(hdr *fitsio.Header, name string, def float64) float64 {
	card := hdr.Get(name)
	if card == nil {
		return def
	}
	switch v := card.Value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case float32:
		return float64(v)
	}
	return def
}
