package scene

import (
	"fmt"
	"image"

	"github.com/ironsheep/pierce-mcp/internal/imaging"
)

// Render composites every displayed image element onto a canvas-sized RGBA
// image, in paint order. Probe-hidden elements are skipped like any other
// hidden element, so a render taken mid-probe shows what the hit test sees.
func (s *Scene) Render() (*image.RGBA, error) {
	s.mu.RLock()
	type pending struct {
		key    string
		box    image.Rectangle
		offset string
	}
	var todo []pending
	for _, e := range s.order {
		if !e.visible() {
			continue
		}
		src := e.src
		if bg, ok := imaging.ParseBackgroundImage(e.background); ok {
			src = bg
		}
		if src == "" {
			continue
		}
		todo = append(todo, pending{key: s.resolve(src), box: e.box, offset: e.bgPosition})
	}
	s.mu.RUnlock()

	layers := make([]imaging.Layer, 0, len(todo))
	for _, p := range todo {
		img, err := s.cache.Load(p.key)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		layers = append(layers, imaging.Layer{
			Image:    img,
			Box:      p.box,
			Position: imaging.ParseBackgroundPosition(p.offset),
		})
	}

	return imaging.Composite(s.width, s.height, layers), nil
}
