package imcol

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/imcol/internal/imaging"
)

// writePNG saves a plane as a 16-bit PNG in dir and returns its path.
func writePNG(t *testing.T, dir, name string, p *image.Gray16) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, p); err != nil {
		t.Fatalf("Failed to encode %s: %v", name, err)
	}
	return path
}

func TestFileImage_DecodesFromDisk(t *testing.T) {
	dir := t.TempDir()
	dna := rampPlane(10, 6, 0)
	img := NewFileImage(map[string]string{
		"dna": writePNG(t, dir, "dna.png", dna),
	})

	got, err := img.Channel("dna")
	if err != nil {
		t.Fatalf("Channel failed: %v", err)
	}
	if !samePixels(got, dna) {
		t.Error("decoded plane differs from the written one")
	}
}

func TestFileImage_MissingFile(t *testing.T) {
	img := NewFileImage(map[string]string{"dna": filepath.Join(t.TempDir(), "gone.png")})

	_, err := img.Get("dna")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want a not-exist error", err)
	}
}

func TestFileImage_Plane(t *testing.T) {
	img := NewFileImage(map[string]string{"dna": "a.tif"}, WithDecoder(twoChannelDecoder()))

	p0, err := img.Plane("dna", PlaneAt(0))
	if err != nil {
		t.Fatalf("Plane(0) failed: %v", err)
	}
	for _, sel := range []PlaneSelector{MaxPlane, CentralPlane} {
		p, err := img.Plane("dna", sel)
		if err != nil {
			t.Fatalf("Plane(%s) failed: %v", sel, err)
		}
		if p != p0 {
			t.Errorf("Plane(%s) should be the only plane", sel)
		}
	}
	if _, err := img.Plane("dna", PlaneAt(1)); !errors.Is(err, ErrPlaneOutOfRange) {
		t.Errorf("Plane(1): got %v, want ErrPlaneOutOfRange", err)
	}

	n, err := img.PlaneCount("dna")
	if err != nil || n != 1 {
		t.Errorf("PlaneCount: got %d, %v, want 1", n, err)
	}
}

func TestFileImage_Composite(t *testing.T) {
	dec := twoChannelDecoder()
	img := NewFileImage(map[string]string{"dna": "a.tif", "protein": "b.tif"}, WithDecoder(dec))

	rgb, err := img.Composite(DefaultChannels)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	a, _ := dec.Decode("a.tif")
	b, _ := dec.Decode("b.tif")
	want, err := imaging.AsRGB(a, b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rgb.Pix, want.Pix) {
		t.Error("composite differs from AsRGB(dna, protein, nil)")
	}
	for i := 2; i < len(rgb.Pix); i += 4 {
		if rgb.Pix[i] != 0 {
			t.Fatal("blue should be empty")
		}
	}
}

func TestFileImage_CompositeUndeclaredChannel(t *testing.T) {
	img := NewFileImage(map[string]string{"dna": "a.tif"}, WithDecoder(twoChannelDecoder()))

	rgb, err := img.Composite([3]string{"dna", "actin", ""})
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if c := rgb.NRGBAAt(7, 0); c.R != 255 || c.G != 0 {
		t.Errorf("pixel: got %+v, want red only", c)
	}

	if _, err := img.Composite([3]string{"", "actin", ""}); !errors.Is(err, imaging.ErrNoChannels) {
		t.Errorf("nothing to composite: got %v, want ErrNoChannels", err)
	}
}

func TestFileImage_Show(t *testing.T) {
	dir := t.TempDir()
	img := NewFileImage(map[string]string{"dna": "a.tif", "protein": "b.tif"}, WithDecoder(twoChannelDecoder()))

	out := filepath.Join(dir, "preview", "composite.png")
	if err := img.Show(imaging.FileDisplay{Path: out, Scale: 2}, DefaultChannels); err != nil {
		t.Fatalf("Show failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("composite not written: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("composite is not a PNG: %v", err)
	}
	if cfg.Width != 16 || cfg.Height != 8 {
		t.Errorf("size: got %dx%d, want 16x8", cfg.Width, cfg.Height)
	}
}

type recordingDisplay struct {
	shown []image.Image
}

func (d *recordingDisplay) Display(img image.Image) error {
	d.shown = append(d.shown, img)
	return nil
}

func TestFileImage_ShowError(t *testing.T) {
	d := &recordingDisplay{}
	img := NewFileImage(map[string]string{"dna": "missing.tif"}, WithDecoder(newFakeDecoder()))

	if err := img.Show(d, DefaultChannels); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Show: got %v, want a not-exist error", err)
	}
	if len(d.shown) != 0 {
		t.Error("nothing should be displayed after a decode failure")
	}
}

func TestFileImage_Logging(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	img := NewFileImage(map[string]string{"dna": "a.tif"},
		WithDecoder(twoChannelDecoder()), WithLogger(log))

	if _, err := img.Get("dna"); err != nil {
		t.Fatal(err)
	}
	img.Unload()

	out := buf.String()
	if !strings.Contains(out, `"message":"decoding channel"`) || !strings.Contains(out, `"path":"a.tif"`) {
		t.Errorf("missing decode event in %s", out)
	}
	if !strings.Contains(out, `"message":"unloading image"`) {
		t.Errorf("missing unload event in %s", out)
	}
}

func TestFileImage_String(t *testing.T) {
	img := NewFileImage(map[string]string{"dna": "a.tif", "protein": "b.tif"})
	want := "Image( map[dna:a.tif protein:b.tif] )"
	if got := img.String(); got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
}
