package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// defaultGridColor is semi-transparent red.
var defaultGridColor = color.RGBA{255, 0, 0, 128}

// GridOverlay draws a coordinate grid over a copy of img.
//
// Lines are drawn every spacing pixels in the image's own coordinates. When
// showCoordinates is set each intersection is labelled "x,y" so a reader can
// pick page points for hit_resolve straight off a snapshot. An unparsable
// gridColorHex falls back to semi-transparent red.
func GridOverlay(img image.Image, spacing int, showCoordinates bool, gridColorHex string) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	if spacing <= 0 {
		return result
	}

	gridColor, err := parseHexColor(gridColorHex)
	if err != nil {
		gridColor = defaultGridColor
	}

	for x := bounds.Min.X + spacing; x < bounds.Max.X; x += spacing {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			result.Set(x, y, gridColor)
		}
	}
	for y := bounds.Min.Y + spacing; y < bounds.Max.Y; y += spacing {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			result.Set(x, y, gridColor)
		}
	}

	if showCoordinates {
		labelColor := color.RGBA{255, 255, 255, 255}
		bgColor := color.RGBA{0, 0, 0, 180}

		for y := bounds.Min.Y + spacing; y < bounds.Max.Y; y += spacing {
			for x := bounds.Min.X + spacing; x < bounds.Max.X; x += spacing {
				drawLabel(result, x+2, y+2, fmt.Sprintf("%d,%d", x, y), labelColor, bgColor)
			}
		}
	}

	return result
}

// parseHexColor parses "#RRGGBB" or "#RRGGBBAA". Six-digit colors are opaque.
func parseHexColor(hex string) (color.RGBA, error) {
	hex = strings.TrimPrefix(hex, "#")

	switch len(hex) {
	case 6:
		c, err := colorful.Hex("#" + hex)
		if err != nil {
			return color.RGBA{}, err
		}
		r, g, b := c.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}, nil
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		// color.RGBA is premultiplied.
		a := uint32(val & 0xff)
		return color.RGBA{
			R: uint8(uint32(val>>24&0xff) * a / 255),
			G: uint8(uint32(val>>16&0xff) * a / 255),
			B: uint8(uint32(val>>8&0xff) * a / 255),
			A: uint8(a),
		}, nil
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", hex)
	}
}

// glyphs is a 3x5 pixel font covering what grid labels need.
var glyphs = map[rune][5]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	',': {"000", "000", "000", "010", "010"},
	'-': {"000", "000", "111", "000", "000"},
}

func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	const charWidth, labelHeight = 4, 7
	bounds := img.Bounds()

	box := image.Rect(x-1, y-1, x+len(text)*charWidth, y+labelHeight).Intersect(bounds)
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Over)

	cx := x
	for _, ch := range text {
		if glyph, ok := glyphs[ch]; ok {
			for row, line := range glyph {
				for col, pixel := range line {
					p := image.Pt(cx+col, y+row)
					if pixel == '1' && p.In(bounds) {
						img.SetRGBA(p.X, p.Y, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
