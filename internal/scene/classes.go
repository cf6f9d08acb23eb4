package scene

import (
	"context"
	"slices"

	"github.com/ironsheep/pierce-mcp/internal/hittest"
)

// AddClass adds class to the element's class list if it is not there yet.
func (s *Scene) AddClass(_ context.Context, id hittest.ElementID, class string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	if !e.hasClass(class) {
		e.classes = append(e.classes, class)
	}
	return nil
}

// RemoveClass removes class from the element's class list.
func (s *Scene) RemoveClass(_ context.Context, id hittest.ElementID, class string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.classes = slices.DeleteFunc(e.classes, func(c string) bool { return c == class })
	return nil
}

// HasClass reports whether the element carries class.
func (s *Scene) HasClass(id hittest.ElementID, class string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	return ok && e.hasClass(class)
}

// WithClass lists the elements carrying class, in document order.
func (s *Scene) WithClass(class string) []hittest.ElementID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []hittest.ElementID
	for _, e := range s.order {
		if e.hasClass(class) {
			out = append(out, e.id)
		}
	}
	return out
}

// Parent returns the element's parent. Body has none.
func (s *Scene) Parent(_ context.Context, id hittest.ElementID) (hittest.ElementID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(id)
	if err != nil {
		return "", false, err
	}
	if e.parent == nil {
		return "", false, nil
	}
	return e.parent.id, true, nil
}

// Body returns the root element.
func (s *Scene) Body(context.Context) (hittest.ElementID, error) {
	return Body, nil
}
