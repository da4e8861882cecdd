package imcol

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/imcol/pkg/surf"
)

// DefaultReference is the reference channel of SURF-ref.
const DefaultReference = DNAChannel

// SurfRef computes SURF-ref descriptors of channel against the reference
// channel ref, both taken at plane sel (CentralPlane resolves per channel).
//
// An empty ref computes plain SURF descriptors of channel. A non-empty ref
// that is not declared fails with ErrUnknownChannel.
func SurfRef(img PlaneImage, channel, ref string, sel PlaneSelector, opts surf.Options) (*mat.Dense, error) {
	primary, err := img.Plane(channel, sel)
	if err != nil {
		return nil, err
	}

	if ref == "" {
		return surf.Compute(primary, opts)
	}

	if !img.HasChannel(ref) {
		return nil, fmt.Errorf("%w: reference %q", ErrUnknownChannel, ref)
	}
	reference, err := img.Plane(ref, sel)
	if err != nil {
		return nil, err
	}
	return surf.SurfRef(primary, reference, opts)
}
