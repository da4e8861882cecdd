package imaging

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp" // Register BMP format decoder
)

// FileDecoder decodes image files from disk into 16-bit grayscale planes.
//
// The zero value is ready to use. FileDecoder holds no state and never caches;
// memoization is the job of the caller. The EXIF orientation tag of JPEG files
// is applied.
type FileDecoder struct{}

// Decode reads the first plane stored in the file at path.
//
// Parameters:
//   - path: Absolute or relative path to the image file. The format is chosen by
//     content for raster formats and by extension for FITS.
//
// Returns:
//   - *image.Gray16: The decoded plane.
//   - error: Non-nil if the file cannot be opened or decoded.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the contents are not a supported image
func (d FileDecoder) Decode(path string) (*image.Gray16, error) {
	if isFITS(path) {
		planes, err := decodeFITS(path)
		if err != nil {
			return nil, err
		}
		return planes[0], nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open image: %w", err)
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return ToGray16(img), nil
}

// DecodeMulti reads every plane stored in the file at path, in file order.
//
// Multi-page TIFF files yield one plane per page, animated GIF files one plane
// per frame and FITS cubes one plane per NAXIS3 slice. Any other format yields
// a one-plane sequence.
func (d FileDecoder) DecodeMulti(path string) ([]*image.Gray16, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case isFITS(path):
		return decodeFITS(path)
	case ext == ".tif" || ext == ".tiff":
		return decodeTIFFPages(path)
	case ext == ".gif":
		return decodeGIFFrames(path)
	}

	plane, err := d.Decode(path)
	if err != nil {
		return nil, err
	}
	return []*image.Gray16{plane}, nil
}

// decodeGIFFrames renders every frame of an animated GIF onto the logical
// screen, so frames stored as sub-rectangles still yield full-size planes.
// Frame disposal methods are honoured between frames.
func decodeGIFFrames(path string) ([]*image.Gray16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		for _, frame := range g.Image {
			screen = screen.Union(frame.Bounds())
		}
		screen = image.Rect(0, 0, screen.Max.X, screen.Max.Y)
	}

	canvas := image.NewNRGBA(screen)
	planes := make([]*image.Gray16, 0, len(g.Image))
	for i, frame := range g.Image {
		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		var previous *image.NRGBA
		if disposal == gif.DisposalPrevious {
			previous = imaging.Clone(canvas)
		}

		canvas = imaging.Overlay(canvas, frame, frame.Bounds().Min, 1.0)
		planes = append(planes, ToGray16(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}
	return planes, nil
}

// ToGray16 converts any image to a 16-bit grayscale plane whose bounds start at
// the origin.
//
// # Conversion
//
//   - *image.Gray16: copied row by row (the result never aliases the input)
//   - *image.Gray: each 8-bit value v becomes v*257
//   - 16-bit colour models: converted with color.Gray16Model
//   - Other colour models (RGB, paletted, ...): reduced to luminance with
//     bild's effect.Grayscale, then widened to 16 bits
func ToGray16(img image.Image) *image.Gray16 {
	b := img.Bounds()
	out := image.NewGray16(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < b.Dy(); y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+2*b.Dx()], src.Pix[si:si+2*b.Dx()])
		}
		return out
	case *image.RGBA64, *image.NRGBA64:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
		return out
	}

	if gray, ok := img.(*image.Gray); ok {
		widen(out, gray.Pix, gray.Stride, 1, gray.PixOffset(b.Min.X, b.Min.Y))
		return out
	}

	// bild returns an RGBA image with the luminance in every colour channel.
	rgba := effect.Grayscale(img)
	rb := rgba.Bounds()
	widen(out, rgba.Pix, rgba.Stride, 4, rgba.PixOffset(rb.Min.X, rb.Min.Y))
	return out
}

// widen copies 8-bit samples into out as v*257. pix holds one sample every
// step bytes starting at offset, with rows stride bytes apart.
func widen(out *image.Gray16, pix []uint8, stride, step, offset int) {
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := pix[offset+y*stride+x*step]
			i := out.PixOffset(x, y)
			out.Pix[i] = v
			out.Pix[i+1] = v
		}
	}
}
