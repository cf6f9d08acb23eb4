package imaging

import (
	"image"
	"image/draw"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
)

// Layer is one image placed on a page-space canvas.
type Layer struct {
	// Image is the decoded source.
	Image image.Image

	// Box is the element's page-space box. Drawing is clipped to it.
	Box image.Rectangle

	// Position offsets the scaled source inside Box, like background-position.
	Position image.Point
}

// Composite paints layers bottom-up onto a transparent width x height canvas.
//
// Each layer is scaled to its box size, shifted by its position, clipped to its
// box and then alpha-blended over everything beneath it. The result is what a
// browser would show for the same stack, which makes it a useful picture to
// compare hit verdicts against.
func Composite(width, height int, layers []Layer) *image.RGBA {
	canvas := image.Rect(0, 0, width, height)
	var acc image.Image = image.NewRGBA(canvas)

	for _, l := range layers {
		if l.Image == nil || l.Box.Empty() {
			continue
		}

		scaled := l.Image
		if b := l.Image.Bounds(); b.Dx() != l.Box.Dx() || b.Dy() != l.Box.Dy() {
			scaled = imaging.Resize(l.Image, l.Box.Dx(), l.Box.Dy(), imaging.NearestNeighbor)
		}

		layer := image.NewNRGBA(canvas)
		origin := l.Box.Min.Add(l.Position)
		dst := image.Rectangle{Min: origin, Max: origin.Add(l.Box.Size())}.Intersect(l.Box)
		src := scaled.Bounds().Min.Add(dst.Min.Sub(origin))
		draw.Draw(layer, dst, scaled, src, draw.Src)

		acc = blend.Normal(acc, layer)
	}

	if rgba, ok := acc.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(canvas)
	draw.Draw(out, canvas, acc, image.Point{}, draw.Src)
	return out
}
