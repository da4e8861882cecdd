package imcol

import (
	"fmt"
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/imcol/internal/imaging"
)

// DefaultChannels maps DNA to red and protein to green, leaving blue empty.
var DefaultChannels = [3]string{DNAChannel, ProteinChannel, ""}

// ChannelColor tints one channel in a palette composite.
type ChannelColor struct {
	Channel string
	Color   colorful.Color
}

// Composite assembles channels (red, green, blue order) of img into an RGB
// image, using plane sel of every channel. Empty or undeclared channel names
// contribute nothing.
//
// CentralPlane is resolved once for all channels from the plane count of the
// first declared channel in red, green, blue order. Declared channels with a
// different plane count make the call fail with ErrPlaneCountMismatch.
func Composite(img PlaneImage, channels [3]string, sel PlaneSelector) (*image.NRGBA, error) {
	sel, err := resolveShared(img, channels[:], sel)
	if err != nil {
		return nil, err
	}

	var rgb [3]*image.Gray16
	for i, ch := range channels {
		if ch == "" || !img.HasChannel(ch) {
			continue
		}
		if rgb[i], err = img.Plane(ch, sel); err != nil {
			return nil, err
		}
	}
	return imaging.AsRGB(rgb[0], rgb[1], rgb[2])
}

// Blend is Composite with arbitrary channel colours.
func Blend(img PlaneImage, layers []ChannelColor, sel PlaneSelector) (*image.NRGBA, error) {
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Channel
	}
	sel, err := resolveShared(img, names, sel)
	if err != nil {
		return nil, err
	}

	planes := make([]imaging.Layer, 0, len(layers))
	for _, l := range layers {
		if l.Channel == "" || !img.HasChannel(l.Channel) {
			continue
		}
		p, err := img.Plane(l.Channel, sel)
		if err != nil {
			return nil, err
		}
		planes = append(planes, imaging.Layer{Plane: p, Color: l.Color})
	}
	return imaging.Blend(planes)
}

// resolveShared turns CentralPlane into one index valid for every declared
// channel in names. Other selectors pass through.
func resolveShared(img PlaneImage, names []string, sel PlaneSelector) (PlaneSelector, error) {
	if sel.kind != selectCentral {
		return sel, nil
	}

	first, count := "", -1
	for _, ch := range names {
		if ch == "" || !img.HasChannel(ch) {
			continue
		}
		n, err := img.PlaneCount(ch)
		if err != nil {
			return sel, err
		}
		if count < 0 {
			first, count = ch, n
			continue
		}
		if n != count {
			return sel, fmt.Errorf("%w: %q has %d planes, %q has %d", ErrPlaneCountMismatch, first, count, ch, n)
		}
	}
	if count < 0 {
		return sel, nil
	}
	return PlaneAt(count / 2), nil
}

// show composites and hands the result to d.
func show(img PlaneImage, d Display, channels [3]string, sel PlaneSelector) error {
	rgb, err := Composite(img, channels, sel)
	if err != nil {
		return err
	}
	return d.Display(rgb)
}
