package hittest

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ExclusionSet is the growing, ordered set of elements proven transparent at
// the point being resolved. It lives for a single Resolve call.
type ExclusionSet struct {
	order []ElementID
	seen  map[ElementID]struct{}
}

// NewExclusionSet returns an empty set.
func NewExclusionSet() *ExclusionSet {
	return &ExclusionSet{seen: make(map[ElementID]struct{})}
}

// Add inserts id and reports whether it was new.
func (s *ExclusionSet) Add(id ElementID) bool {
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Has reports whether id is in the set.
func (s *ExclusionSet) Has(id ElementID) bool {
	_, ok := s.seen[id]
	return ok
}

// Elements returns the members in insertion order.
func (s *ExclusionSet) Elements() []ElementID {
	out := make([]ElementID, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of members.
func (s *ExclusionSet) Len() int {
	return len(s.order)
}

// Probe wraps the host hit test with scoped hiding of elements.
type Probe struct {
	host  HitTester
	group Grouping
}

// NewProbe returns a probe over host. A nil group hides elements themselves.
func NewProbe(host HitTester, group Grouping) *Probe {
	if group == nil {
		group = IdentityGroup
	}
	return &Probe{host: host, group: group}
}

// ElementAt asks the host which element is at p right now.
func (p *Probe) ElementAt(ctx context.Context, pt image.Point) (ElementID, error) {
	id, err := p.host.ElementAt(ctx, pt)
	if err != nil {
		return "", fmt.Errorf("element at %v: %w", pt, err)
	}
	return id, nil
}

// WithHidden hides the containment group of every element in ids, runs fn,
// and shows the groups again. The groups are shown again on every exit path,
// including a failing or panicking fn and a ctx cancelled while fn runs.
func (p *Probe) WithHidden(ctx context.Context, ids []ElementID, fn func(ctx context.Context) error) (err error) {
	targets, err := p.groups(ctx, ids)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fn(ctx)
	}

	// Restores outlive ctx so a cancelled caller cannot leave elements hidden.
	restoreCtx := context.WithoutCancel(ctx)

	if err := p.host.SetHidden(ctx, targets, true); err != nil {
		// Partial hides must not leak.
		restoreErr := p.host.SetHidden(restoreCtx, targets, false)
		return errors.Join(fmt.Errorf("hide %v: %w", targets, err), restoreErr)
	}

	defer func() {
		if restoreErr := p.host.SetHidden(restoreCtx, targets, false); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("show %v: %w", targets, restoreErr))
		}
	}()

	return fn(ctx)
}

// ElementBeneath returns what the host reports at pt while ids are hidden.
func (p *Probe) ElementBeneath(ctx context.Context, ids []ElementID, pt image.Point) (ElementID, error) {
	var next ElementID
	err := p.WithHidden(ctx, ids, func(ctx context.Context) error {
		var err error
		next, err = p.ElementAt(ctx, pt)
		return err
	})
	return next, err
}

// Group returns the containment group of id.
func (p *Probe) Group(ctx context.Context, id ElementID) (ElementID, error) {
	return p.group(ctx, id)
}

func (p *Probe) groups(ctx context.Context, ids []ElementID) ([]ElementID, error) {
	seen := make(map[ElementID]struct{}, len(ids))
	targets := make([]ElementID, 0, len(ids))
	for _, id := range ids {
		g, err := p.group(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		targets = append(targets, g)
	}
	return targets, nil
}
