package imcol

import (
	"errors"
	"image"
	"slices"

	"github.com/ironsheep/imcol/internal/imaging"
)

var (
	// ErrUnknownChannel is returned when a channel is not declared on the image.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrPlaneOutOfRange is returned when a plane index is outside the stack.
	ErrPlaneOutOfRange = errors.New("plane index out of range")

	// ErrPlaneCountMismatch is returned when composited channels disagree on
	// the number of planes while resolving the central plane.
	ErrPlaneCountMismatch = errors.New("channels have different plane counts")

	// ErrRaggedStack is returned when the planes of one channel differ in size.
	ErrRaggedStack = errors.New("planes of a channel differ in size")

	// ErrInvalidState is returned when restoring a malformed serialized state.
	ErrInvalidState = errors.New("invalid image state")
)

// Image is the capability set shared by every image layout.
type Image interface {
	// HasChannel reports whether the channel is declared. It never decodes.
	HasChannel(channel string) bool

	// Get returns every plane of the channel, decoding on first use.
	Get(channel string) (Stack, error)

	// Unload drops all decoded data. It is idempotent.
	Unload()

	// Channels returns the declared channel names, sorted.
	Channels() []string

	// State returns the declared channel to file mapping, sorted by channel.
	State() []ChannelFiles

	// Restore replaces the declared mapping and empties the cache.
	Restore(state []ChannelFiles) error
}

// PlaneImage is an Image whose channels can be addressed plane by plane.
type PlaneImage interface {
	Image

	// Plane returns one plane (or a projection) of the channel.
	Plane(channel string, sel PlaneSelector) (*image.Gray16, error)

	// PlaneCount returns the number of planes of the channel.
	PlaneCount(channel string) (int, error)
}

// Decoder turns files into planes.
type Decoder interface {
	Decode(path string) (*image.Gray16, error)
	DecodeMulti(path string) ([]*image.Gray16, error)
}

// Display is a sink for composite images.
type Display interface {
	Display(img image.Image) error
}

// ChannelFiles is one entry of an image's serialized state.
type ChannelFiles struct {
	Channel string   `json:"channel"`
	Paths   []string `json:"paths"`
}

// Stack is the ordered sequence of planes of one channel.
type Stack []*image.Gray16

// Len returns the number of planes.
func (s Stack) Len() int { return len(s) }

// Max returns the element-wise maximum projection across planes.
func (s Stack) Max() (*image.Gray16, error) {
	return imaging.MaxProjection(s)
}

// Equal reports whether two images declare the same channel to file mapping.
// Cached data is not compared. A mapping of channels to single files
// (FileImage, StackFileImage) never equals a mapping of channels to file lists
// (MultiFileImage), even when every list holds one path.
func Equal(a, b Image) bool {
	if mapsToLists(a) != mapsToLists(b) {
		return false
	}
	return slices.EqualFunc(a.State(), b.State(), func(x, y ChannelFiles) bool {
		return x.Channel == y.Channel && slices.Equal(x.Paths, y.Paths)
	})
}

func mapsToLists(img Image) bool {
	_, ok := img.(*MultiFileImage)
	return ok
}

// Scoped calls fn with img and unloads img on every exit path, including
// panics.
func Scoped[T Image](img T, fn func(T) error) error {
	defer img.Unload()
	return fn(img)
}

var (
	_ PlaneImage = (*FileImage)(nil)
	_ PlaneImage = (*StackFileImage)(nil)
	_ PlaneImage = (*MultiFileImage)(nil)
	_ Decoder    = imaging.FileDecoder{}
	_ Display    = imaging.FileDisplay{}
)
