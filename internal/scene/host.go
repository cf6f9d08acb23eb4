package scene

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/pierce-mcp/internal/hittest"
)

var (
	_ hittest.Host   = (*Scene)(nil)
	_ hittest.Closer = (*Scene)(nil)
)

// Query returns the descendants of container matching selector in document
// order.
func (s *Scene) Query(_ context.Context, container hittest.ElementID, sel string) ([]hittest.ElementID, error) {
	parsed, err := parseSelector(sel)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.lookup(container)
	if err != nil {
		return nil, err
	}

	var out []hittest.ElementID
	var walk func(e *element)
	walk = func(e *element) {
		for _, child := range e.children {
			if parsed.matches(child) {
				out = append(out, child.id)
			}
			walk(child)
		}
	}
	walk(c)
	return out, nil
}

// Geometry reports the element's box and computed background values.
func (s *Scene) Geometry(_ context.Context, id hittest.ElementID) (hittest.Geometry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(id)
	if err != nil {
		return hittest.Geometry{}, err
	}

	g := hittest.Geometry{
		Width:              e.box.Dx(),
		Height:             e.box.Dy(),
		Offset:             e.box.Min,
		BackgroundImage:    "none",
		BackgroundPosition: "0% 0%",
	}
	if e.background != "" {
		g.BackgroundImage = e.background
	}
	if e.bgPosition != "" {
		g.BackgroundPosition = e.bgPosition
	}
	return g, nil
}

// RasterImage returns the decoded src of a raster element.
func (s *Scene) RasterImage(_ context.Context, id hittest.ElementID) (image.Image, error) {
	s.mu.RLock()
	e, err := s.lookup(id)
	var src string
	if err == nil {
		src = e.src
	}
	s.mu.RUnlock()

	if err != nil {
		return nil, err
	}
	if src == "" {
		return nil, fmt.Errorf("element %s has no raster source", id)
	}
	return s.cache.Load(s.resolve(src))
}

// BackgroundImage loads a background source by its resolved URL.
func (s *Scene) BackgroundImage(_ context.Context, src string) (image.Image, error) {
	return s.cache.Load(s.resolve(src))
}

// ElementAt returns the top-most displayed element whose box contains p, or
// Body when nothing else does.
func (s *Scene) ElementAt(_ context.Context, p image.Point) (hittest.ElementID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.order) - 1; i > 0; i-- {
		e := s.order[i]
		if p.In(e.box) && e.visible() {
			return e.id, nil
		}
	}
	return Body, nil
}

// SetHidden hides or re-shows elements for probing. Probe hiding nests and
// never touches author visibility, so showing restores the prior state.
func (s *Scene) SetHidden(_ context.Context, ids []hittest.ElementID, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make([]*element, 0, len(ids))
	for _, id := range ids {
		e, err := s.lookup(id)
		if err != nil {
			return err
		}
		targets = append(targets, e)
	}

	for _, e := range targets {
		switch {
		case hidden:
			e.probeHidden++
		case e.probeHidden > 0:
			e.probeHidden--
		}
	}
	return nil
}

// Animating reports the element's animation flag.
func (s *Scene) Animating(_ context.Context, id hittest.ElementID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	return e.animating, nil
}

// Closest returns the nearest ancestor-or-self of id matching selector.
func (s *Scene) Closest(_ context.Context, id hittest.ElementID, sel string) (hittest.ElementID, bool, error) {
	parsed, err := parseSelector(sel)
	if err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(id)
	if err != nil {
		return "", false, err
	}
	for n := e; n != nil; n = n.parent {
		if parsed.matches(n) {
			return n.id, true, nil
		}
	}
	return "", false, nil
}
