package surf

import "image"

// Integral is a summed-area table over the raw values of a plane.
type Integral struct {
	width, height int
	sums          []float64 // (height+1) x (width+1), first row and column zero
}

// NewIntegral builds the summed-area table of p.
func NewIntegral(p *image.Gray16) *Integral {
	b := p.Bounds()
	w, h := b.Dx(), b.Dy()
	ii := &Integral{
		width:  w,
		height: h,
		sums:   make([]float64, (w+1)*(h+1)),
	}
	for y := 0; y < h; y++ {
		var row float64
		for x := 0; x < w; x++ {
			row += float64(p.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			ii.sums[(y+1)*(w+1)+x+1] = ii.sums[y*(w+1)+x+1] + row
		}
	}
	return ii
}

// Width returns the width of the underlying plane.
func (ii *Integral) Width() int { return ii.width }

// Height returns the height of the underlying plane.
func (ii *Integral) Height() int { return ii.height }

// BoxSum returns the sum of the rows*cols box whose top-left pixel is
// (row, col). The box is clipped to the plane.
func (ii *Integral) BoxSum(row, col, rows, cols int) float64 {
	r1 := clamp(row, 0, ii.height)
	r2 := clamp(row+rows, 0, ii.height)
	c1 := clamp(col, 0, ii.width)
	c2 := clamp(col+cols, 0, ii.width)
	if r1 >= r2 || c1 >= c2 {
		return 0
	}
	stride := ii.width + 1
	return ii.sums[r2*stride+c2] - ii.sums[r1*stride+c2] - ii.sums[r2*stride+c1] + ii.sums[r1*stride+c1]
}

// haarX is the horizontal Haar wavelet response of side s centred at (row, col).
func (ii *Integral) haarX(row, col, s int) float64 {
	return ii.BoxSum(row-s/2, col, s, s/2) - ii.BoxSum(row-s/2, col-s/2, s, s/2)
}

// haarY is the vertical Haar wavelet response of side s centred at (row, col).
func (ii *Integral) haarY(row, col, s int) float64 {
	return ii.BoxSum(row, col-s/2, s/2, s) - ii.BoxSum(row-s/2, col-s/2, s/2, s)
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
