package imcol

import (
	"fmt"
	"image"
	"slices"

	"github.com/ironsheep/imcol/internal/imaging"
)

// StackFileImage is an image with one multi-plane file per channel.
//
// A channel is decoded as a whole: the first access to any of its planes
// decodes and caches every plane.
type StackFileImage struct {
	fileSet
	cache map[string]Stack
}

// NewStackFileImage creates an image from a channel to stack-file mapping.
func NewStackFileImage(files map[string]string, opts ...Option) *StackFileImage {
	return &StackFileImage{
		fileSet: newFileSet(singleFiles(files), opts),
		cache:   make(map[string]Stack),
	}
}

// Get returns every plane of the channel. All planes share the same size;
// a file whose planes differ fails with ErrRaggedStack. The returned slice is
// a copy; its planes are the cached ones.
func (im *StackFileImage) Get(channel string) (Stack, error) {
	if s, ok := im.cache[channel]; ok {
		return slices.Clone(s), nil
	}
	paths, err := im.paths(channel)
	if err != nil {
		return nil, err
	}

	im.logger().Debug().Str("channel", channel).Str("path", paths[0]).Msg("decoding stack")
	planes, err := im.dec().DecodeMulti(paths[0])
	if err != nil {
		return nil, err
	}
	if len(planes) == 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrRaggedStack, paths[0], imaging.ErrEmptyStack)
	}
	if err := imaging.SameShape(planes...); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRaggedStack, paths[0], err)
	}

	s := Stack(planes)
	if im.cache == nil {
		im.cache = make(map[string]Stack)
	}
	im.cache[channel] = s
	return slices.Clone(s), nil
}

// Plane returns plane sel of the channel. MaxPlane is recomputed on every
// call and not cached.
func (im *StackFileImage) Plane(channel string, sel PlaneSelector) (*image.Gray16, error) {
	s, err := im.Get(channel)
	if err != nil {
		return nil, err
	}
	if sel.kind == selectMax {
		return s.Max()
	}
	i, err := sel.resolve(len(s))
	if err != nil {
		return nil, err
	}
	return s[i], nil
}

// PlaneCount decodes the channel if needed and returns its number of planes.
func (im *StackFileImage) PlaneCount(channel string) (int, error) {
	s, err := im.Get(channel)
	if err != nil {
		return 0, err
	}
	return len(s), nil
}

// Unload drops every decoded stack.
func (im *StackFileImage) Unload() {
	if len(im.cache) > 0 {
		im.logger().Debug().Int("stacks", len(im.cache)).Msg("unloading image")
	}
	im.cache = make(map[string]Stack)
}

// Restore replaces the declared mapping and empties the cache. Every entry
// must name exactly one path.
func (im *StackFileImage) Restore(state []ChannelFiles) error {
	if err := im.setState(state, true); err != nil {
		return err
	}
	im.cache = make(map[string]Stack)
	return nil
}

// Composite assembles up to three channels into an RGB image from plane sel
// of each; see the package-level Composite for CentralPlane resolution.
func (im *StackFileImage) Composite(channels [3]string, sel PlaneSelector) (*image.NRGBA, error) {
	return Composite(im, channels, sel)
}

// Show composites channels and hands the result to d.
func (im *StackFileImage) Show(d Display, channels [3]string, sel PlaneSelector) error {
	return show(im, d, channels, sel)
}

// Equal reports whether other declares the same channel to file mapping.
func (im *StackFileImage) Equal(other Image) bool { return Equal(im, other) }

func (im *StackFileImage) String() string { return im.format(true) }

// MarshalJSON encodes the declared mapping only.
func (im *StackFileImage) MarshalJSON() ([]byte, error) { return im.marshalJSON() }

// UnmarshalJSON restores the declared mapping with an empty cache.
func (im *StackFileImage) UnmarshalJSON(data []byte) error {
	state, err := decodeJSONState(data)
	if err != nil {
		return err
	}
	return im.Restore(state)
}

// GobEncode encodes the declared mapping only.
func (im *StackFileImage) GobEncode() ([]byte, error) { return gobState(im.State()) }

// GobDecode restores the declared mapping with an empty cache.
func (im *StackFileImage) GobDecode(data []byte) error {
	state, err := ungobState(data)
	if err != nil {
		return err
	}
	return im.Restore(state)
}
