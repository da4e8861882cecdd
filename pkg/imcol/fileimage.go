package imcol

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"image"
)

// FileImage is an image with one single-plane file per channel.
//
// The zero value is an image with no channels; Restore or UnmarshalJSON fill
// it in.
type FileImage struct {
	fileSet
	cache map[string]*image.Gray16
}

// NewFileImage creates an image from a channel to file mapping. Nothing is
// decoded until a channel is requested.
func NewFileImage(files map[string]string, opts ...Option) *FileImage {
	return &FileImage{
		fileSet: newFileSet(singleFiles(files), opts),
		cache:   make(map[string]*image.Gray16),
	}
}

// Channel returns the decoded plane of the channel, decoding it on first use.
func (im *FileImage) Channel(channel string) (*image.Gray16, error) {
	if p, ok := im.cache[channel]; ok {
		return p, nil
	}
	paths, err := im.paths(channel)
	if err != nil {
		return nil, err
	}

	im.logger().Debug().Str("channel", channel).Str("path", paths[0]).Msg("decoding channel")
	p, err := im.dec().Decode(paths[0])
	if err != nil {
		return nil, err
	}
	if im.cache == nil {
		im.cache = make(map[string]*image.Gray16)
	}
	im.cache[channel] = p
	return p, nil
}

// Get returns the channel as a one-plane stack.
func (im *FileImage) Get(channel string) (Stack, error) {
	p, err := im.Channel(channel)
	if err != nil {
		return nil, err
	}
	return Stack{p}, nil
}

// Plane returns the channel's only plane. MaxPlane and CentralPlane select it
// too; an index other than 0 fails with ErrPlaneOutOfRange.
func (im *FileImage) Plane(channel string, sel PlaneSelector) (*image.Gray16, error) {
	if !im.HasChannel(channel) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	if sel.kind == selectIndex {
		if _, err := sel.resolve(1); err != nil {
			return nil, err
		}
	}
	return im.Channel(channel)
}

// PlaneCount is 1 for every declared channel.
func (im *FileImage) PlaneCount(channel string) (int, error) {
	if _, err := im.paths(channel); err != nil {
		return 0, err
	}
	return 1, nil
}

// Unload drops every decoded plane.
func (im *FileImage) Unload() {
	if len(im.cache) > 0 {
		im.logger().Debug().Int("planes", len(im.cache)).Msg("unloading image")
	}
	im.cache = make(map[string]*image.Gray16)
}

// Restore replaces the declared mapping and empties the cache. Every entry
// must name exactly one path.
func (im *FileImage) Restore(state []ChannelFiles) error {
	if err := im.setState(state, true); err != nil {
		return err
	}
	im.cache = make(map[string]*image.Gray16)
	return nil
}

// Composite assembles up to three channels into an RGB image; see the
// package-level Composite.
func (im *FileImage) Composite(channels [3]string) (*image.NRGBA, error) {
	return Composite(im, channels, PlaneAt(0))
}

// Show composites channels and hands the result to d.
func (im *FileImage) Show(d Display, channels [3]string) error {
	return show(im, d, channels, PlaneAt(0))
}

// Equal reports whether other declares the same channel to file mapping.
func (im *FileImage) Equal(other Image) bool { return Equal(im, other) }

func (im *FileImage) String() string { return im.format(true) }

// MarshalJSON encodes the declared mapping only.
func (im *FileImage) MarshalJSON() ([]byte, error) { return im.marshalJSON() }

// UnmarshalJSON restores the declared mapping with an empty cache.
func (im *FileImage) UnmarshalJSON(data []byte) error {
	state, err := decodeJSONState(data)
	if err != nil {
		return err
	}
	return im.Restore(state)
}

// GobEncode encodes the declared mapping only.
func (im *FileImage) GobEncode() ([]byte, error) { return gobState(im.State()) }

// GobDecode restores the declared mapping with an empty cache.
func (im *FileImage) GobDecode(data []byte) error {
	state, err := ungobState(data)
	if err != nil {
		return err
	}
	return im.Restore(state)
}

func gobState(state []ChannelFiles) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ungobState(data []byte) ([]ChannelFiles, error) {
	var state []ChannelFiles
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return state, nil
}
