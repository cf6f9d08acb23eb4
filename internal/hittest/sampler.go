package hittest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/ironsheep/pierce-mcp/internal/imaging"
)

// DefaultTransparentPercent counts only fully opaque pixels as opaque.
const DefaultTransparentPercent = 100

// ErrSamplerBusy is returned when a sample is requested while another one is
// still using the shared surface.
var ErrSamplerBusy = errors.New("sampler already in use")

// AlphaResult is the outcome of sampling one descriptor at one point.
type AlphaResult struct {
	// Local is the sampled point in the image's own coordinates.
	Local image.Point `json:"local"`
	// Alpha is the raw 0-255 alpha channel.
	Alpha uint8 `json:"alpha"`
	// Percent is floor(100 * Alpha / 255).
	Percent int `json:"percent"`
	// Transparent is Percent < the sampler's threshold.
	Transparent bool `json:"transparent"`
}

// Sampler reads back the alpha of a candidate image at a page-space point.
//
// It renders the image into one shared offscreen surface that is resized for
// every call, so only one sample may be in flight at a time. A second,
// overlapping call fails with ErrSamplerBusy instead of corrupting the first.
type Sampler struct {
	pixels    Pixels
	surface   *imaging.Surface
	threshold int
	busy      atomic.Bool
}

// NewSampler creates a sampler drawing from pixels. transparentPercent is the
// opacity threshold, clamped to 0..100.
func NewSampler(pixels Pixels, transparentPercent int) *Sampler {
	return &Sampler{
		pixels:    pixels,
		surface:   imaging.NewSurface(),
		threshold: clampPercent(transparentPercent),
	}
}

// Threshold returns the opacity threshold in percent.
func (s *Sampler) Threshold() int {
	return s.threshold
}

// SampleAlpha draws d into the surface and reads the alpha at page point p.
//
// The image is drawn scaled to the descriptor's size at its background
// position, exactly as the browser paints it inside the element's box. The
// point is then translated into box-local coordinates. A point outside the
// box returns an error wrapping imaging.ErrOutOfBounds; callers are expected
// to only sample points inside the descriptor's box.
func (s *Sampler) SampleAlpha(ctx context.Context, d *ImageDescriptor, p image.Point) (AlphaResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return AlphaResult{}, ErrSamplerBusy
	}
	defer s.busy.Store(false)

	if err := s.surface.Reset(d.Width, d.Height); err != nil {
		return AlphaResult{}, fmt.Errorf("sample %s: %w", d.Element, err)
	}

	src, err := s.source(ctx, d)
	if err != nil {
		return AlphaResult{}, fmt.Errorf("sample %s: %w", d.Element, err)
	}

	s.surface.DrawScaled(src, d.BackgroundPosition, d.Width, d.Height)

	local := p.Sub(d.Offset)
	alpha, err := s.surface.AlphaAt(local.X, local.Y)
	if err != nil {
		return AlphaResult{}, fmt.Errorf("sample %s at %v: %w", d.Element, p, err)
	}

	percent := imaging.AlphaPercent(alpha)
	return AlphaResult{
		Local:       local,
		Alpha:       alpha,
		Percent:     percent,
		Transparent: percent < s.threshold,
	}, nil
}

func (s *Sampler) source(ctx context.Context, d *ImageDescriptor) (image.Image, error) {
	if d.Kind == BackgroundImage {
		return s.pixels.BackgroundImage(ctx, d.Source)
	}
	return s.pixels.RasterImage(ctx, d.Element)
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
