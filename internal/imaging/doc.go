// Package imaging provides the pixel-level collaborators used by the image
// containers: file decoding, plane projection, channel compositing and display.
//
// All decoded planes are normalised to *image.Gray16 so that 8-bit and 16-bit
// microscopy sources share one representation. Colour sources are reduced to
// luminance, 8-bit gray is widened to 16 bits by replication (v*257).
//
// # Decoding
//
// FileDecoder reads a single plane (Decode) or an ordered plane sequence
// (DecodeMulti) from disk:
//   - PNG, JPEG, GIF, BMP, TIFF: single plane via github.com/disintegration/imaging
//   - multi-page TIFF: every page of the IFD chain via golang.org/x/image/tiff
//   - animated GIF: every frame
//   - FITS (.fits, .fit, .fts): 2-D images and 3-D cubes via github.com/astrogo/fitsio
//
// # Compositing
//
// AsRGB maps up to three planes to the red, green and blue channels of an NRGBA
// image. Each present plane is contrast-stretched so its minimum maps to 0 and its
// maximum to 255. Blend generalises this to any number of planes tinted with
// arbitrary colours.
//
// # Coordinate System
//
// Coordinates follow the standard Go image convention: (0,0) is the top-left
// corner, X increases rightward and Y increases downward. Planes of one stack
// always share the same bounds.
//
// # Thread Safety
//
// Functions in this package are stateless and may be called concurrently on
// different planes.
package imaging
