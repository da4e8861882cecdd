package imaging

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// createTestImage creates a simple test image file and returns its path.
// The caller is responsible for removing the file.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	tmpFile, err := os.CreateTemp("", "test-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

// gradientPlane returns a 16-bit plane whose value at (x,y) is base + x + y*width.
func gradientPlane(width, height int, base uint16) *image.Gray16 {
	p := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p.SetGray16(x, y, color.Gray16{Y: base + uint16(x+y*width)})
		}
	}
	return p
}

// writeGray16PNG writes a 16-bit grayscale PNG into dir.
func writeGray16PNG(t *testing.T, dir, name string, p *image.Gray16) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, p); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// writeGray16TIFF writes an uncompressed little-endian multi-page TIFF with
// one 16-bit page per plane.
func writeGray16TIFF(t *testing.T, dir, name string, planes []*image.Gray16) string {
	t.Helper()
	le := binary.LittleEndian
	buf := []byte{'I', 'I', 0x2A, 0x00, 0, 0, 0, 0}
	prevNext := 4

	for _, p := range planes {
		w, h := p.Bounds().Dx(), p.Bounds().Dy()
		stripOff := len(buf)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				buf = le.AppendUint16(buf, p.Gray16At(x, y).Y)
			}
		}

		ifdOff := len(buf)
		le.PutUint32(buf[prevNext:prevNext+4], uint32(ifdOff))

		entries := [][3]uint32{
			{256, 4, uint32(w)},
			{257, 4, uint32(h)},
			{258, 3, 16},
			{259, 3, 1},
			{262, 3, 1},
			{273, 4, uint32(stripOff)},
			{277, 3, 1},
			{278, 4, uint32(h)},
			{279, 4, uint32(w * h * 2)},
		}
		buf = le.AppendUint16(buf, uint16(len(entries)))
		for _, e := range entries {
			buf = le.AppendUint16(buf, uint16(e[0]))
			buf = le.AppendUint16(buf, uint16(e[1]))
			buf = le.AppendUint32(buf, 1)
			buf = le.AppendUint32(buf, e[2])
		}
		prevNext = len(buf)
		buf = le.AppendUint32(buf, 0)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("failed to write TIFF: %v", err)
	}
	return path
}

func assertSamePlane(t *testing.T, got, want *image.Gray16) {
	t.Helper()
	if got.Bounds().Size() != want.Bounds().Size() {
		t.Fatalf("size: got %v, want %v", got.Bounds().Size(), want.Bounds().Size())
	}
	gb, wb := got.Bounds(), want.Bounds()
	for y := 0; y < wb.Dy(); y++ {
		for x := 0; x < wb.Dx(); x++ {
			g := got.Gray16At(gb.Min.X+x, gb.Min.Y+y).Y
			w := want.Gray16At(wb.Min.X+x, wb.Min.Y+y).Y
			if g != w {
				t.Fatalf("pixel (%d,%d): got %d, want %d", x, y, g, w)
			}
		}
	}
}

func TestFileDecoder_Decode(t *testing.T) {
	imgPath := createTestImage(t, 100, 80, color.RGBA{255, 255, 255, 255})
	defer os.Remove(imgPath)

	plane, err := FileDecoder{}.Decode(imgPath)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	bounds := plane.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 80 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x80", bounds.Dx(), bounds.Dy())
	}
	// Luminance weights may round white down by one 8-bit step.
	if v := plane.Gray16At(10, 10).Y; v < 254*257 {
		t.Errorf("white pixel: got %d, want >= %d", v, 254*257)
	}
}

func TestFileDecoder_Decode_Gray16(t *testing.T) {
	dir := t.TempDir()
	want := gradientPlane(16, 8, 1000)
	path := writeGray16PNG(t, dir, "g16.png", want)

	got, err := FileDecoder{}.Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	assertSamePlane(t, got, want)
}

func TestFileDecoder_Decode_NonExistent(t *testing.T) {
	_, err := FileDecoder{}.Decode("/nonexistent/path/to/image.png")
	if err == nil {
		t.Error("Decode should fail for non-existent file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestFileDecoder_Decode_InvalidImage(t *testing.T) {
	// Create a file with invalid image data
	tmpFile, err := os.CreateTemp("", "invalid-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.WriteString("not an image")
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	_, err = FileDecoder{}.Decode(tmpFile.Name())
	if err == nil {
		t.Error("Decode should fail for invalid image data")
	}
}

func TestFileDecoder_DecodeMulti_SinglePlaneFormats(t *testing.T) {
	dir := t.TempDir()
	path := writeGray16PNG(t, dir, "one.png", gradientPlane(4, 4, 0))

	planes, err := FileDecoder{}.DecodeMulti(path)
	if err != nil {
		t.Fatalf("DecodeMulti failed: %v", err)
	}
	if len(planes) != 1 {
		t.Fatalf("planes: got %d, want 1", len(planes))
	}
}

func TestFileDecoder_DecodeMulti_TIFF(t *testing.T) {
	dir := t.TempDir()
	want := []*image.Gray16{
		gradientPlane(6, 5, 0),
		gradientPlane(6, 5, 100),
		gradientPlane(6, 5, 200),
	}
	path := writeGray16TIFF(t, dir, "stack.tif", want)

	got, err := FileDecoder{}.DecodeMulti(path)
	if err != nil {
		t.Fatalf("DecodeMulti failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("planes: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		assertSamePlane(t, got[i], want[i])
	}

	first, err := FileDecoder{}.Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	assertSamePlane(t, first, want[0])
}

func TestFileDecoder_DecodeMulti_TIFFLoop(t *testing.T) {
	dir := t.TempDir()
	path := writeGray16TIFF(t, dir, "loop.tif", []*image.Gray16{gradientPlane(2, 2, 0)})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Point the last next-IFD field back at the first IFD.
	first := binary.LittleEndian.Uint32(data[4:8])
	binary.LittleEndian.PutUint32(data[len(data)-4:], first)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := (FileDecoder{}).DecodeMulti(path); err == nil {
		t.Error("DecodeMulti should fail on a cyclic IFD chain")
	}
}

func TestFileDecoder_DecodeMulti_GIF(t *testing.T) {
	dir := t.TempDir()
	palette := color.Palette{color.Gray{0}, color.Gray{128}, color.Gray{255}}
	anim := &gif.GIF{}
	for i := 0; i < 3; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 4, 4), palette)
		for j := range frame.Pix {
			frame.Pix[j] = uint8(i)
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 0)
	}
	path := filepath.Join(dir, "anim.gif")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := gif.EncodeAll(f, anim); err != nil {
		t.Fatal(err)
	}
	f.Close()

	planes, err := FileDecoder{}.DecodeMulti(path)
	if err != nil {
		t.Fatalf("DecodeMulti failed: %v", err)
	}
	if len(planes) != 3 {
		t.Fatalf("frames: got %d, want 3", len(planes))
	}
	if planes[0].Gray16At(0, 0).Y != 0 {
		t.Errorf("frame 0: got %d, want 0", planes[0].Gray16At(0, 0).Y)
	}
	if v := planes[2].Gray16At(0, 0).Y; v < 254*257 {
		t.Errorf("frame 2: got %d, want >= %d", v, 254*257)
	}
}

func TestFileDecoder_DecodeMulti_NonExistent(t *testing.T) {
	for _, name := range []string{"missing.tif", "missing.gif", "missing.fits", "missing.png"} {
		t.Run(name, func(t *testing.T) {
			_, err := FileDecoder{}.DecodeMulti(filepath.Join(t.TempDir(), name))
			if err == nil {
				t.Errorf("DecodeMulti(%s) should fail", name)
			}
		})
	}
}

func TestToGray16(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want uint16
		tol  uint16
	}{
		{"gray8", &image.Gray{Pix: []uint8{200}, Stride: 1, Rect: image.Rect(0, 0, 1, 1)}, 200 * 257, 0},
		{"gray16", &image.Gray16{Pix: []uint8{0x12, 0x34}, Stride: 2, Rect: image.Rect(0, 0, 1, 1)}, 0x1234, 0},
		{"white rgba", &image.RGBA{Pix: []uint8{255, 255, 255, 255}, Stride: 4, Rect: image.Rect(0, 0, 1, 1)}, 0xFFFF, 257},
		{"black rgba", &image.RGBA{Pix: []uint8{0, 0, 0, 255}, Stride: 4, Rect: image.Rect(0, 0, 1, 1)}, 0, 0},
		{"black rgba64", image.NewRGBA64(image.Rect(0, 0, 1, 1)), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToGray16(tt.img)
			v := got.Gray16At(0, 0).Y
			if v > tt.want || tt.want-v > tt.tol {
				t.Errorf("got %d, want %d (tolerance %d)", v, tt.want, tt.tol)
			}
		})
	}
}

func TestToGray16_OffsetBounds(t *testing.T) {
	src := gradientPlane(8, 8, 0).SubImage(image.Rect(2, 3, 6, 7)).(*image.Gray16)
	got := ToGray16(src)
	if got.Bounds().Min != (image.Point{}) {
		t.Errorf("bounds should start at origin, got %v", got.Bounds())
	}
	if v := got.Gray16At(0, 0).Y; v != uint16(2+3*8) {
		t.Errorf("pixel (0,0): got %d, want %d", v, 2+3*8)
	}
	// The copy must not alias the source.
	got.SetGray16(0, 0, color.Gray16{Y: 9999})
	if src.Gray16At(2, 3).Y == 9999 {
		t.Error("ToGray16 aliased its input")
	}
}

func TestFileDecoder_Decode_ColorPNG(t *testing.T) {
	dir := t.TempDir()

	rgb := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := 0; i < len(rgb.Pix); i += 4 {
		copy(rgb.Pix[i:i+4], []uint8{255, 0, 0, 255})
	}
	palette := color.Palette{color.Gray{0}, color.Gray{128}, color.Gray{255}}
	paletted := image.NewPaletted(image.Rect(0, 0, 3, 2), palette)
	for i := range paletted.Pix {
		paletted.Pix[i] = 1
	}

	tests := []struct {
		name string
		img  image.Image
		want uint16
	}{
		// bild weights red by 0.3.
		{"rgb", rgb, 77 * 257},
		{"paletted", paletted, 128 * 257},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".png")
			f, err := os.Create(path)
			if err != nil {
				t.Fatal(err)
			}
			if err := png.Encode(f, tt.img); err != nil {
				t.Fatal(err)
			}
			f.Close()

			plane, err := FileDecoder{}.Decode(path)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if plane.Bounds().Dx() != 3 || plane.Bounds().Dy() != 2 {
				t.Fatalf("size: got %v, want 3x2", plane.Bounds().Size())
			}
			for y := 0; y < 2; y++ {
				for x := 0; x < 3; x++ {
					// Luminance rounding may shift the value by one 8-bit step.
					if v := plane.Gray16At(x, y).Y; v+257 < tt.want || v > tt.want+257 {
						t.Errorf("pixel (%d,%d): got %d, want %d", x, y, v, tt.want)
					}
				}
			}
		})
	}
}

// writeGIF encodes frames with the given disposal methods on a 4x4 screen.
func writeGIF(t *testing.T, dir, name string, frames []*image.Paletted, disposal []byte) string {
	t.Helper()
	anim := &gif.GIF{
		Image:    frames,
		Delay:    make([]int, len(frames)),
		Disposal: disposal,
		Config:   image.Config{Width: 4, Height: 4, ColorModel: frames[0].Palette},
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gif.EncodeAll(f, anim); err != nil {
		t.Fatalf("failed to encode GIF: %v", err)
	}
	return path
}

func grayFrame(r image.Rectangle, index uint8) *image.Paletted {
	palette := color.Palette{color.Gray{0}, color.Gray{128}, color.Gray{255}}
	frame := image.NewPaletted(r, palette)
	for i := range frame.Pix {
		frame.Pix[i] = index
	}
	return frame
}

func TestFileDecoder_DecodeMulti_GIFSubFrames(t *testing.T) {
	dir := t.TempDir()
	path := writeGIF(t, dir, "partial.gif", []*image.Paletted{
		grayFrame(image.Rect(0, 0, 4, 4), 1),
		grayFrame(image.Rect(1, 1, 3, 3), 2),
		grayFrame(image.Rect(3, 3, 4, 4), 2),
	}, []byte{gif.DisposalNone, gif.DisposalBackground, gif.DisposalNone})

	planes, err := FileDecoder{}.DecodeMulti(path)
	if err != nil {
		t.Fatalf("DecodeMulti failed: %v", err)
	}
	if len(planes) != 3 {
		t.Fatalf("frames: got %d, want 3", len(planes))
	}
	if err := SameShape(planes...); err != nil {
		t.Fatalf("frames should share the screen size: %v", err)
	}
	if planes[1].Bounds().Dx() != 4 || planes[1].Bounds().Dy() != 4 {
		t.Fatalf("frame 1 size: got %v, want 4x4", planes[1].Bounds().Size())
	}

	checks := []struct {
		plane, x, y int
		want        uint16
	}{
		{1, 0, 0, 128 * 257}, // kept from frame 0
		{1, 1, 1, 65535},     // drawn by frame 1
		{2, 1, 1, 0},         // cleared by frame 1's disposal
		{2, 0, 0, 128 * 257},
		{2, 3, 3, 65535},
	}
	for _, c := range checks {
		if v := planes[c.plane].Gray16At(c.x, c.y).Y; v != c.want {
			t.Errorf("frame %d pixel (%d,%d): got %d, want %d", c.plane, c.x, c.y, v, c.want)
		}
	}
}

func TestFileDecoder_DecodeMulti_GIFDisposePrevious(t *testing.T) {
	dir := t.TempDir()
	path := writeGIF(t, dir, "previous.gif", []*image.Paletted{
		grayFrame(image.Rect(0, 0, 4, 4), 1),
		grayFrame(image.Rect(0, 0, 2, 2), 2),
		grayFrame(image.Rect(3, 3, 4, 4), 0),
	}, []byte{gif.DisposalNone, gif.DisposalPrevious, gif.DisposalNone})

	planes, err := FileDecoder{}.DecodeMulti(path)
	if err != nil {
		t.Fatalf("DecodeMulti failed: %v", err)
	}
	if v := planes[1].Gray16At(0, 0).Y; v != 65535 {
		t.Errorf("frame 1 pixel (0,0): got %d, want 65535", v)
	}
	if v := planes[2].Gray16At(0, 0).Y; v != 128*257 {
		t.Errorf("frame 2 pixel (0,0) should be restored: got %d, want %d", v, 128*257)
	}
}
