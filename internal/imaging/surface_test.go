package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

// createHoleImage returns an opaque square with a fully transparent square hole.
func createHoleImage(size int, hole image.Rectangle) *image.NRGBA {
	img := createInMemoryImage(size, size, color.NRGBA{200, 10, 10, 255})
	for y := hole.Min.Y; y < hole.Max.Y; y++ {
		for x := hole.Min.X; x < hole.Max.X; x++ {
			img.SetNRGBA(x, y, color.NRGBA{})
		}
	}
	return img
}

func TestSurface_ResetClears(t *testing.T) {
	s := NewSurface()
	if err := s.Reset(10, 10); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	s.DrawScaled(createInMemoryImage(10, 10, color.NRGBA{1, 2, 3, 255}), image.Point{}, 10, 10)

	if a, _ := s.AlphaAt(5, 5); a != 255 {
		t.Fatalf("alpha after draw: got %d, want 255", a)
	}

	if err := s.Reset(6, 4); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.Bounds() != image.Rect(0, 0, 6, 4) {
		t.Errorf("bounds: got %v, want 6x4", s.Bounds())
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			if a, _ := s.AlphaAt(x, y); a != 0 {
				t.Fatalf("pixel (%d,%d) not cleared: alpha %d", x, y, a)
			}
		}
	}
}

func TestSurface_ReusesBuffer(t *testing.T) {
	s := NewSurface()
	_ = s.Reset(20, 20)
	first := &s.Image().Pix[0]

	_ = s.Reset(10, 10)
	if &s.Image().Pix[0] != first {
		t.Error("shrinking the surface reallocated its buffer")
	}
}

func TestSurface_ResetInvalid(t *testing.T) {
	s := NewSurface()
	for _, size := range [][2]int{{0, 10}, {10, 0}, {-1, 5}} {
		if err := s.Reset(size[0], size[1]); err == nil {
			t.Errorf("Reset(%d,%d) should fail", size[0], size[1])
		}
	}
}

func TestSurface_DrawScaledAtOffset(t *testing.T) {
	s := NewSurface()
	_ = s.Reset(10, 10)

	s.DrawScaled(createInMemoryImage(10, 10, color.NRGBA{0, 0, 0, 255}), image.Pt(4, 2), 10, 10)

	tests := []struct {
		x, y int
		want uint8
	}{
		{3, 5, 0},   // left of the shifted source
		{4, 2, 255}, // shifted origin
		{9, 9, 255},
		{5, 1, 0}, // above the shifted source
	}
	for _, tt := range tests {
		if a, _ := s.AlphaAt(tt.x, tt.y); a != tt.want {
			t.Errorf("alpha at (%d,%d): got %d, want %d", tt.x, tt.y, a, tt.want)
		}
	}
}

func TestSurface_DrawScaledResizes(t *testing.T) {
	s := NewSurface()
	_ = s.Reset(20, 20)

	// A 10x10 source with a hole in its right half, stretched to 20x20.
	src := createHoleImage(10, image.Rect(5, 0, 10, 10))
	s.DrawScaled(src, image.Point{}, 20, 20)

	if a, _ := s.AlphaAt(4, 10); a != 255 {
		t.Errorf("left half alpha: got %d, want 255", a)
	}
	if a, _ := s.AlphaAt(15, 10); a != 0 {
		t.Errorf("stretched hole alpha: got %d, want 0", a)
	}
}

func TestSurface_AlphaAtOutOfBounds(t *testing.T) {
	s := NewSurface()
	_ = s.Reset(5, 5)

	for _, p := range []image.Point{{-1, 0}, {0, -1}, {5, 0}, {0, 5}} {
		if _, err := s.AlphaAt(p.X, p.Y); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("AlphaAt(%v): got %v, want ErrOutOfBounds", p, err)
		}
	}
}
