package imaging

import (
	"errors"
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrNoChannels is returned when a composite is requested with no planes.
var ErrNoChannels = errors.New("no channels to composite")

// Primary colours used by AsRGB.
var (
	Red   = colorful.Color{R: 1, G: 0, B: 0}
	Green = colorful.Color{R: 0, G: 1, B: 0}
	Blue  = colorful.Color{R: 0, G: 0, B: 1}
)

// Layer is one plane tinted with a display colour.
//
// A nil Plane contributes nothing to the blend.
type Layer struct {
	Plane *image.Gray16
	Color colorful.Color
}

// AsRGB assembles up to three planes into an RGB image, mapping r, g and b to
// the red, green and blue channels.
//
// Parameters:
//   - r, g, b: Planes for each channel. Any may be nil, rendering that channel
//     black.
//
// Returns:
//   - *image.NRGBA: Opaque composite with the common plane size.
//   - error: ErrNoChannels if all three are nil, ErrShapeMismatch if present
//     planes differ in size.
//
// # Contrast Stretch
//
// Each present plane is stretched independently so its minimum maps to 0 and
// its maximum to 255. A flat plane (min == max) maps to 0.
func AsRGB(r, g, b *image.Gray16) (*image.NRGBA, error) {
	return Blend([]Layer{
		{Plane: r, Color: Red},
		{Plane: g, Color: Green},
		{Plane: b, Color: Blue},
	})
}

// Blend additively combines contrast-stretched planes, each tinted with its
// layer colour. Channel sums above full intensity saturate at 255.
func Blend(layers []Layer) (*image.NRGBA, error) {
	planes := make([]*image.Gray16, 0, len(layers))
	for _, l := range layers {
		if l.Plane != nil {
			planes = append(planes, l.Plane)
		}
	}
	if len(planes) == 0 {
		return nil, ErrNoChannels
	}
	if err := SameShape(planes...); err != nil {
		return nil, err
	}

	size := planes[0].Bounds().Size()
	acc := make([]float64, 3*size.X*size.Y)
	for _, l := range layers {
		if l.Plane == nil {
			continue
		}
		stretched := stretch(l.Plane)
		c := l.Color.Clamped()
		for i, v := range stretched {
			acc[3*i] += v * c.R
			acc[3*i+1] += v * c.G
			acc[3*i+2] += v * c.B
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	for i := 0; i < size.X*size.Y; i++ {
		out.Pix[4*i] = to8(acc[3*i])
		out.Pix[4*i+1] = to8(acc[3*i+1])
		out.Pix[4*i+2] = to8(acc[3*i+2])
		out.Pix[4*i+3] = 255
	}
	return out, nil
}

// stretch maps a plane's values linearly onto [0,1] in row-major order.
func stretch(p *image.Gray16) []float64 {
	b := p.Bounds()
	vals := make([]float64, 0, b.Dx()*b.Dy())
	lo, hi := math.Inf(1), math.Inf(-1)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := float64(p.Gray16At(x, y).Y)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			vals = append(vals, v)
		}
	}
	if hi == lo {
		for i := range vals {
			vals[i] = 0
		}
		return vals
	}
	for i, v := range vals {
		vals[i] = (v - lo) / (hi - lo)
	}
	return vals
}

func to8(v float64) uint8 {
	if v >= 1 {
		return 255
	}
	if v <= 0 {
		return 0
	}
	return uint8(math.Round(v * 255))
}
