package imaging

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestFileDisplay(t *testing.T) {
	dir := t.TempDir()
	composite, err := AsRGB(rampPlane(20, 10, 0, 100), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name          string
		scale         float64
		width, height int
	}{
		{"original", 0, 20, 10},
		{"unit", 1, 20, 10},
		{"half", 0.5, 10, 5},
		{"double", 2, 40, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "sub", tt.name+".png")
			if err := (FileDisplay{Path: path, Scale: tt.scale}).Display(composite); err != nil {
				t.Fatalf("Display failed: %v", err)
			}

			f, err := os.Open(path)
			if err != nil {
				t.Fatalf("output missing: %v", err)
			}
			defer f.Close()
			cfg, err := png.DecodeConfig(f)
			if err != nil {
				t.Fatalf("output is not a PNG: %v", err)
			}
			if cfg.Width != tt.width || cfg.Height != tt.height {
				t.Errorf("dimensions: got %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.width, tt.height)
			}
		})
	}
}

func TestFileDisplay_Invalid(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))

	if err := (FileDisplay{}).Display(img); err == nil {
		t.Error("empty path should fail")
	}
	path := filepath.Join(t.TempDir(), "x.png")
	if err := (FileDisplay{Path: path, Scale: -1}).Display(img); err == nil {
		t.Error("negative scale should fail")
	}
	if err := (FileDisplay{Path: path, Scale: 0.01}).Display(img); err == nil {
		t.Error("scale collapsing the image should fail")
	}
}

func TestRescale(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))

	same, err := Rescale(img, 1)
	if err != nil {
		t.Fatalf("Rescale(1) failed: %v", err)
	}
	if same != image.Image(img) {
		t.Error("Rescale(1) should return the input")
	}

	half, err := Rescale(img, 0.5)
	if err != nil {
		t.Fatalf("Rescale(0.5) failed: %v", err)
	}
	if got := half.Bounds().Size(); got.X != 4 || got.Y != 3 {
		t.Errorf("Rescale(0.5): got %v, want 4x3", got)
	}

	if _, err := Rescale(img, -2); err == nil {
		t.Error("negative scale should fail")
	}
}
