package surf

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DescriptorLength is the number of columns of a plain SURF descriptor.
const DescriptorLength = 64

// ErrShapeMismatch is returned when the reference plane does not match the
// primary plane in size.
var ErrShapeMismatch = errors.New("primary and reference planes differ in size")

// Describe computes one SURF descriptor row per point on ii.
//
// The orientation of every point is estimated on ii itself, so describing the
// same points on two channels yields two independently oriented descriptors.
// An empty point list yields an empty (0x0) matrix.
func Describe(ii *Integral, points []InterestPoint) *mat.Dense {
	if len(points) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(points), DescriptorLength, nil)
	for i, p := range points {
		out.SetRow(i, describe(ii, p))
	}
	return out
}

// Compute detects interest points on primary and describes them.
func Compute(primary *image.Gray16, opts Options) (*mat.Dense, error) {
	return SurfRef(primary, nil, opts)
}

// SurfRef computes SURF-ref descriptors.
//
// Parameters:
//   - primary: Plane on which interest points are detected and described.
//   - ref: Reference plane described at the same interest points. If nil, only
//     the primary descriptors are returned.
//   - opts: Detector settings; see DefaultOptions.
//
// Returns:
//   - *mat.Dense: One row per interest point (at most opts.MaxPoints rows).
//     64 columns without a reference, 128 with one: the primary descriptor
//     followed by the reference descriptor.
//   - error: ErrInvalidOptions or ErrShapeMismatch.
//
// A plane without interest points yields an empty (0x0) matrix and no error.
func SurfRef(primary, ref *image.Gray16, opts Options) (*mat.Dense, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary plane is nil")
	}
	if ref != nil && ref.Bounds().Size() != primary.Bounds().Size() {
		return nil, fmt.Errorf("%w: primary %v, reference %v",
			ErrShapeMismatch, primary.Bounds().Size(), ref.Bounds().Size())
	}

	pi := NewIntegral(primary)
	points, err := DetectPoints(pi, opts)
	if err != nil {
		return nil, err
	}

	descs := Describe(pi, points)
	if ref == nil || len(points) == 0 {
		return descs, nil
	}

	refDescs := Describe(NewIntegral(ref), points)
	var out mat.Dense
	out.Augment(descs, refDescs)
	return &out, nil
}

// describe builds the 64-element descriptor of p.
func describe(ii *Integral, p InterestPoint) []float64 {
	s := p.Scale
	ori := orientation(ii, p)
	co, si := math.Cos(ori), math.Sin(ori)
	haar := 2 * roundInt(s)
	if haar < 2 {
		haar = 2
	}

	desc := make([]float64, DescriptorLength)
	for i := -10; i < 10; i++ {
		for j := -10; j < 10; j++ {
			fi, fj := float64(i), float64(j)
			sx := roundInt(p.X + fi*s*co - fj*s*si)
			sy := roundInt(p.Y + fi*s*si + fj*s*co)

			dx := ii.haarX(sy, sx, haar)
			dy := ii.haarY(sy, sx, haar)

			g := gaussian(fi+0.5, fj+0.5, 3.3)
			rx := g * (co*dx + si*dy)
			ry := g * (-si*dx + co*dy)

			bin := 4 * (((j+10)/5)*4 + (i+10)/5)
			desc[bin] += rx
			desc[bin+1] += ry
			desc[bin+2] += math.Abs(rx)
			desc[bin+3] += math.Abs(ry)
		}
	}

	if n := floats.Norm(desc, 2); n > 0 {
		floats.Scale(1/n, desc)
	}
	return desc
}

// orientation returns the dominant gradient direction around p, in radians.
func orientation(ii *Integral, p InterestPoint) float64 {
	s := p.Scale
	haar := 4 * roundInt(s)
	if haar < 4 {
		haar = 4
	}

	var resX, resY, angles []float64
	for i := -6; i <= 6; i++ {
		for j := -6; j <= 6; j++ {
			if i*i+j*j >= 36 {
				continue
			}
			g := gaussian(float64(i), float64(j), 2.5)
			row := roundInt(p.Y + float64(j)*s)
			col := roundInt(p.X + float64(i)*s)
			rx := g * ii.haarX(row, col, haar)
			ry := g * ii.haarY(row, col, haar)
			resX = append(resX, rx)
			resY = append(resY, ry)
			angles = append(angles, angle(rx, ry))
		}
	}

	best, ori := 0.0, 0.0
	const window = math.Pi / 3
	for a := 0.0; a < 2*math.Pi; a += 0.15 {
		var sumX, sumY float64
		for k, ang := range angles {
			d := ang - a
			if d < 0 {
				d += 2 * math.Pi
			}
			if d < window {
				sumX += resX[k]
				sumY += resY[k]
			}
		}
		if m := sumX*sumX + sumY*sumY; m > best {
			best = m
			ori = angle(sumX, sumY)
		}
	}
	return ori
}

// angle returns atan2(y, x) mapped to [0, 2π).
func angle(x, y float64) float64 {
	a := math.Atan2(y, x)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func gaussian(x, y, sigma float64) float64 {
	return math.Exp(-(x*x+y*y)/(2*sigma*sigma)) / (2 * math.Pi * sigma * sigma)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
