package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// ErrOutOfBounds is returned when a readback coordinate falls outside the surface.
var ErrOutOfBounds = errors.New("coordinates outside surface bounds")

// Surface is a reusable offscreen raster target.
//
// A Surface keeps its pixel buffer between uses: Reset only reallocates when the
// requested size needs more memory than the buffer already holds. A Surface is
// not safe for concurrent use; callers sample through it one point at a time.
type Surface struct {
	img *image.NRGBA
	pix []uint8
}

// NewSurface returns an empty surface. The first Reset allocates its buffer.
func NewSurface() *Surface {
	return &Surface{img: &image.NRGBA{}}
}

// Reset resizes the surface to width x height and clears it to transparent.
func (s *Surface) Reset(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid surface size %dx%d", width, height)
	}

	n := width * height * 4
	if cap(s.pix) < n {
		s.pix = make([]uint8, n)
	}
	s.pix = s.pix[:n]
	clear(s.pix)

	s.img = &image.NRGBA{
		Pix:    s.pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	return nil
}

// Bounds returns the current surface rectangle.
func (s *Surface) Bounds() image.Rectangle {
	return s.img.Rect
}

// Image exposes the surface pixels. The returned image aliases the surface
// buffer and is overwritten by the next Reset.
func (s *Surface) Image() *image.NRGBA {
	return s.img
}

// DrawScaled draws src scaled to width x height with its top-left corner at at.
// Parts of the scaled source that fall outside the surface are clipped.
//
// Scaling uses nearest-neighbour sampling so that alpha edges of cut-out
// images stay crisp: a pixel is either taken from the source or not at all.
func (s *Surface) DrawScaled(src image.Image, at image.Point, width, height int) {
	if src == nil || width <= 0 || height <= 0 {
		return
	}

	scaled := src
	b := src.Bounds()
	if b.Dx() != width || b.Dy() != height {
		scaled = imaging.Resize(src, width, height, imaging.NearestNeighbor)
	}

	dst := image.Rect(at.X, at.Y, at.X+width, at.Y+height)
	draw.Draw(s.img, dst, scaled, scaled.Bounds().Min, draw.Over)
}

// AlphaAt reads back the alpha channel (0-255) of the single pixel at (x, y).
func (s *Surface) AlphaAt(x, y int) (uint8, error) {
	if !(image.Point{X: x, Y: y}).In(s.img.Rect) {
		return 0, fmt.Errorf("(%d,%d) in %v: %w", x, y, s.img.Rect, ErrOutOfBounds)
	}
	return s.img.NRGBAAt(x, y).A, nil
}
