package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBAColor represents a non-premultiplied RGBA color with 8-bit components.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a sampled pixel in several representations.
type ColorResult struct {
	Hex          string    `json:"hex"`           // Hex format "#RRGGBB" (no alpha)
	RGBA         RGBAColor `json:"rgba"`          // Non-premultiplied components with alpha
	HSL          HSLColor  `json:"hsl"`           // HSL representation
	AlphaPercent int       `json:"alpha_percent"` // floor(100*A/255)
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Parameters:
//   - img: The source image to sample from.
//   - x: X coordinate in the image's own coordinate space.
//   - y: Y coordinate in the image's own coordinate space.
//
// Returns:
//   - *ColorResult: The color at (x, y) in multiple formats.
//   - error: Non-nil if coordinates are outside the image bounds.
//
// The color is converted to the non-premultiplied NRGBA model before being
// reported, so a half-transparent red reads as R=255, A=128 rather than R=128.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	n := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	c := colorful.Color{
		R: float64(n.R) / 255.0,
		G: float64(n.G) / 255.0,
		B: float64(n.B) / 255.0,
	}
	h, s, l := c.Hsl()

	return &ColorResult{
		Hex:  strings.ToUpper(c.Hex()),
		RGBA: RGBAColor{R: n.R, G: n.G, B: n.B, A: n.A},
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(s * 100),
			L: int(l * 100),
		},
		AlphaPercent: AlphaPercent(n.A),
	}, nil
}

// AlphaPercent normalises an 8-bit alpha value to a whole percentage,
// rounding down: 255 is 100, 254 is 99, 0 is 0.
func AlphaPercent(alpha uint8) int {
	return 100 * int(alpha) / 255
}
