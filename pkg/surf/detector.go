package surf

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidOptions is returned when detector options are out of range.
var ErrInvalidOptions = errors.New("invalid SURF options")

// Options control interest point detection.
type Options struct {
	// MaxPoints caps the number of interest points; the strongest responses are
	// kept. Zero or negative means no cap.
	MaxPoints int `yaml:"maxPoints"`

	// Octaves is the number of octaves; each doubles the sampling step.
	Octaves int `yaml:"octaves"`

	// Scales is the number of filter sizes per octave. At least 3 are needed
	// for non-maximum suppression across scale.
	Scales int `yaml:"scales"`

	// InitialStep is the sampling step of the first octave, in pixels.
	InitialStep int `yaml:"initialStep"`

	// Threshold is the minimum Hessian determinant response, on raw pixel values.
	Threshold float64 `yaml:"threshold"`
}

// DefaultOptions returns the SURF-ref detector settings.
func DefaultOptions() Options {
	return Options{
		MaxPoints:   1024,
		Octaves:     6,
		Scales:      24,
		InitialStep: 1,
		Threshold:   0.1,
	}
}

// Validate reports whether the options can drive the detector.
func (o Options) Validate() error {
	switch {
	case o.Octaves < 1:
		return fmt.Errorf("%w: octaves must be >= 1, got %d", ErrInvalidOptions, o.Octaves)
	case o.Scales < 3:
		return fmt.Errorf("%w: scales must be >= 3, got %d", ErrInvalidOptions, o.Scales)
	case o.InitialStep < 1:
		return fmt.Errorf("%w: initial step must be >= 1, got %d", ErrInvalidOptions, o.InitialStep)
	case o.Threshold < 0:
		return fmt.Errorf("%w: threshold must be >= 0, got %g", ErrInvalidOptions, o.Threshold)
	}
	return nil
}

// InterestPoint is a blob-like location found by the fast-Hessian detector.
type InterestPoint struct {
	X, Y      float64 // pixel coordinates
	Scale     float64 // 1.2 * filter size / 9
	Response  float64 // Hessian determinant
	Laplacian int     // sign of the trace: +1 dark-on-light, -1 light-on-dark
}

// responseLayer holds the Hessian determinant sampled on one octave's grid.
type responseLayer struct {
	filter    int
	rows      int
	cols      int
	step      int
	responses []float64
	laplacian []int8
}

// DetectPoints finds interest points in ii, strongest first.
func DetectPoints(ii *Integral, opts Options) ([]InterestPoint, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	minDim := ii.width
	if ii.height < minDim {
		minDim = ii.height
	}

	var points []InterestPoint
	for o := 0; o < opts.Octaves; o++ {
		step := opts.InitialStep << o
		if step >= minDim {
			break
		}
		rows, cols := ii.height/step, ii.width/step
		if rows < 3 || cols < 3 {
			break
		}

		// Three consecutive scales are enough for the 3x3x3 neighbourhood.
		var below, at, above *responseLayer
		for i := 0; i < opts.Scales; i++ {
			filter := filterSize(o, i)
			if filter > minDim {
				break
			}
			below, at = at, above
			above = buildLayer(ii, filter, step, rows, cols)
			if below == nil {
				continue
			}
			points = appendMaxima(points, below, at, above, opts.Threshold)
		}
	}

	sort.SliceStable(points, func(a, b int) bool {
		pa, pb := points[a], points[b]
		if pa.Response != pb.Response {
			return pa.Response > pb.Response
		}
		if pa.Y != pb.Y {
			return pa.Y < pb.Y
		}
		return pa.X < pb.X
	})
	if opts.MaxPoints > 0 && len(points) > opts.MaxPoints {
		points = points[:opts.MaxPoints]
	}
	return points, nil
}

// filterSize is the side of the box filter for octave o, scale i.
func filterSize(o, i int) int {
	lobe := (1<<(o+1))*(i+1) + 1
	return 3 * lobe
}

func buildLayer(ii *Integral, filter, step, rows, cols int) *responseLayer {
	l := &responseLayer{
		filter:    filter,
		rows:      rows,
		cols:      cols,
		step:      step,
		responses: make([]float64, rows*cols),
		laplacian: make([]int8, rows*cols),
	}

	lobe := filter / 3
	border := (filter - 1) / 2
	inv := 1 / float64(filter*filter)

	for r := 0; r < rows; r++ {
		y := r * step
		if y-border < 0 || y+border >= ii.height {
			continue
		}
		for c := 0; c < cols; c++ {
			x := c * step
			if x-border < 0 || x+border >= ii.width {
				continue
			}

			dxx := ii.BoxSum(y-lobe+1, x-border, 2*lobe-1, filter) -
				3*ii.BoxSum(y-lobe+1, x-lobe/2, 2*lobe-1, lobe)
			dyy := ii.BoxSum(y-border, x-lobe+1, filter, 2*lobe-1) -
				3*ii.BoxSum(y-lobe/2, x-lobe+1, lobe, 2*lobe-1)
			dxy := ii.BoxSum(y-lobe, x+1, lobe, lobe) +
				ii.BoxSum(y+1, x-lobe, lobe, lobe) -
				ii.BoxSum(y-lobe, x-lobe, lobe, lobe) -
				ii.BoxSum(y+1, x+1, lobe, lobe)

			dxx *= inv
			dyy *= inv
			dxy *= inv

			idx := r*cols + c
			l.responses[idx] = dxx*dyy - 0.81*dxy*dxy
			if dxx+dyy >= 0 {
				l.laplacian[idx] = 1
			} else {
				l.laplacian[idx] = -1
			}
		}
	}
	return l
}

// appendMaxima adds every sample of at that exceeds threshold and all 26
// neighbours in the below/at/above layers.
func appendMaxima(points []InterestPoint, below, at, above *responseLayer, threshold float64) []InterestPoint {
	for r := 1; r < at.rows-1; r++ {
		for c := 1; c < at.cols-1; c++ {
			v := at.responses[r*at.cols+c]
			if v <= threshold || !isExtremum(v, r, c, below, at, above) {
				continue
			}
			points = append(points, InterestPoint{
				X:         float64(c * at.step),
				Y:         float64(r * at.step),
				Scale:     1.2 * float64(at.filter) / 9,
				Response:  v,
				Laplacian: int(at.laplacian[r*at.cols+c]),
			})
		}
	}
	return points
}

func isExtremum(v float64, r, c int, layers ...*responseLayer) bool {
	for li, l := range layers {
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if li == 1 && dr == 0 && dc == 0 {
					continue
				}
				if l.responses[(r+dr)*l.cols+c+dc] >= v {
					return false
				}
			}
		}
	}
	return true
}
