package imcol

import (
	"fmt"
	"image"

	"github.com/ironsheep/imcol/internal/imaging"
)

// DNA and protein are the channels composited by MultiFileImage.
const (
	DNAChannel     = "dna"
	ProteinChannel = "protein"
)

type planeKey struct {
	channel string
	plane   int
}

// MultiFileImage is an image with one file per plane: each channel is an
// ordered list of single-plane files.
//
// Planes are decoded and cached one at a time.
type MultiFileImage struct {
	fileSet
	cache map[planeKey]*image.Gray16
}

// NewMultiFileImage creates an image from a channel to plane-files mapping.
func NewMultiFileImage(files map[string][]string, opts ...Option) *MultiFileImage {
	return &MultiFileImage{
		fileSet: newFileSet(files, opts),
		cache:   make(map[planeKey]*image.Gray16),
	}
}

// Get returns every plane of the channel, fetching each through the plane
// cache; on a cold cache this decodes one file per plane.
func (im *MultiFileImage) Get(channel string) (Stack, error) {
	paths, err := im.paths(channel)
	if err != nil {
		return nil, err
	}

	s := make(Stack, len(paths))
	for i := range paths {
		if s[i], err = im.planeAt(channel, i); err != nil {
			return nil, err
		}
	}
	if err := imaging.SameShape(s...); err != nil {
		return nil, fmt.Errorf("%w: channel %q: %w", ErrRaggedStack, channel, err)
	}
	return s, nil
}

// Plane returns plane sel of the channel. An index or CentralPlane decodes at
// most one file; MaxPlane needs every plane.
func (im *MultiFileImage) Plane(channel string, sel PlaneSelector) (*image.Gray16, error) {
	if sel.kind == selectMax {
		s, err := im.Get(channel)
		if err != nil {
			return nil, err
		}
		return s.Max()
	}

	paths, err := im.paths(channel)
	if err != nil {
		return nil, err
	}
	i, err := sel.resolve(len(paths))
	if err != nil {
		return nil, err
	}
	return im.planeAt(channel, i)
}

func (im *MultiFileImage) planeAt(channel string, i int) (*image.Gray16, error) {
	key := planeKey{channel: channel, plane: i}
	if p, ok := im.cache[key]; ok {
		return p, nil
	}

	path := im.files[channel][i]
	im.logger().Debug().Str("channel", channel).Int("plane", i).Str("path", path).Msg("decoding plane")
	p, err := im.dec().Decode(path)
	if err != nil {
		return nil, err
	}
	if im.cache == nil {
		im.cache = make(map[planeKey]*image.Gray16)
	}
	im.cache[key] = p
	return p, nil
}

// PlaneCount returns the number of files of the channel without decoding.
func (im *MultiFileImage) PlaneCount(channel string) (int, error) {
	paths, err := im.paths(channel)
	if err != nil {
		return 0, err
	}
	return len(paths), nil
}

// Unload drops every decoded plane.
func (im *MultiFileImage) Unload() {
	if len(im.cache) > 0 {
		im.logger().Debug().Int("planes", len(im.cache)).Msg("unloading image")
	}
	im.cache = make(map[planeKey]*image.Gray16)
}

// Restore replaces the declared mapping and empties the cache.
func (im *MultiFileImage) Restore(state []ChannelFiles) error {
	if err := im.setState(state, false); err != nil {
		return err
	}
	im.cache = make(map[planeKey]*image.Gray16)
	return nil
}

// Composite maps DNA to red and protein to green, using plane sel of each.
// Blue is always empty.
func (im *MultiFileImage) Composite(sel PlaneSelector) (*image.NRGBA, error) {
	return Composite(im, [3]string{DNAChannel, ProteinChannel, ""}, sel)
}

// Show composites DNA and protein and hands the result to d.
func (im *MultiFileImage) Show(d Display, sel PlaneSelector) error {
	return show(im, d, [3]string{DNAChannel, ProteinChannel, ""}, sel)
}

// Equal reports whether other declares the same channel to file mapping.
func (im *MultiFileImage) Equal(other Image) bool { return Equal(im, other) }

func (im *MultiFileImage) String() string { return im.format(false) }

// MarshalJSON encodes the declared mapping only.
func (im *MultiFileImage) MarshalJSON() ([]byte, error) { return im.marshalJSON() }

// UnmarshalJSON restores the declared mapping with an empty cache.
func (im *MultiFileImage) UnmarshalJSON(data []byte) error {
	state, err := decodeJSONState(data)
	if err != nil {
		return err
	}
	return im.Restore(state)
}

// GobEncode encodes the declared mapping only.
func (im *MultiFileImage) GobEncode() ([]byte, error) { return gobState(im.State()) }

// GobDecode restores the declared mapping with an empty cache.
func (im *MultiFileImage) GobDecode(data []byte) error {
	state, err := ungobState(data)
	if err != nil {
		return err
	}
	return im.Restore(state)
}
