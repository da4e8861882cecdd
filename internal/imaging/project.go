package imaging

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrEmptyStack is returned when a projection is requested over zero planes.
	ErrEmptyStack = errors.New("empty plane stack")

	// ErrShapeMismatch is returned when planes that must share bounds do not.
	ErrShapeMismatch = errors.New("plane shapes differ")
)

// MaxProjection returns the element-wise maximum across planes.
//
// All planes must have the same width and height. The result is a new plane
// with bounds starting at the origin; the inputs are never modified.
func MaxProjection(planes []*image.Gray16) (*image.Gray16, error) {
	if len(planes) == 0 {
		return nil, ErrEmptyStack
	}
	if err := SameShape(planes...); err != nil {
		return nil, err
	}

	first := planes[0]
	b := first.Bounds()
	out := ToGray16(first)
	for _, p := range planes[1:] {
		pb := p.Bounds()
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				v := p.Gray16At(pb.Min.X+x, pb.Min.Y+y).Y
				i := out.PixOffset(x, y)
				if v > uint16(out.Pix[i])<<8|uint16(out.Pix[i+1]) {
					out.Pix[i] = uint8(v >> 8)
					out.Pix[i+1] = uint8(v)
				}
			}
		}
	}
	return out, nil
}

// SameShape reports an ErrShapeMismatch error unless every non-nil plane has
// the same width and height.
func SameShape(planes ...*image.Gray16) error {
	var ref image.Point
	seen := false
	for i, p := range planes {
		if p == nil {
			continue
		}
		size := p.Bounds().Size()
		if !seen {
			ref, seen = size, true
			continue
		}
		if size != ref {
			return fmt.Errorf("%w: plane %d is %dx%d, want %dx%d", ErrShapeMismatch, i, size.X, size.Y, ref.X, ref.Y)
		}
	}
	return nil
}
