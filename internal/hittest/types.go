package hittest

import (
	"context"
	"fmt"
	"image"
)

// ElementID identifies one element of the host document. Hosts assign it and
// keep it stable for the element's lifetime; equality of IDs is element
// identity.
type ElementID string

// Kind says where a candidate image gets its pixels from.
type Kind int

const (
	// RasterImage is an <img>-like element whose own content is the raster.
	RasterImage Kind = iota
	// BackgroundImage is an element painted with a CSS background image.
	BackgroundImage
)

func (k Kind) String() string {
	switch k {
	case RasterImage:
		return "raster"
	case BackgroundImage:
		return "background"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Geometry is a snapshot of an element's layout as reported by the host.
// Background values are the raw computed CSS strings.
type Geometry struct {
	Width              int
	Height             int
	Offset             image.Point
	BackgroundImage    string
	BackgroundPosition string
}

// Layout reads document structure and element geometry.
type Layout interface {
	// Query returns the descendants of container matching selector, in
	// document order.
	Query(ctx context.Context, container ElementID, selector string) ([]ElementID, error)
	Geometry(ctx context.Context, id ElementID) (Geometry, error)
}

// Pixels supplies the rasters that candidate images are drawn from.
type Pixels interface {
	// RasterImage returns the current content of a raster element.
	RasterImage(ctx context.Context, id ElementID) (image.Image, error)
	// BackgroundImage returns the image behind a resolved background URL.
	BackgroundImage(ctx context.Context, src string) (image.Image, error)
}

// HitTester is the host's native "element at point" test plus the visibility
// switch used to see through elements.
type HitTester interface {
	// ElementAt returns the top-most visible element at the page-space point.
	ElementAt(ctx context.Context, p image.Point) (ElementID, error)
	// SetHidden hides or re-shows the given elements. Showing an element
	// restores the visibility it had before it was hidden.
	SetHidden(ctx context.Context, ids []ElementID, hidden bool) error
}

// Animator reports whether an element is mid-transition.
type Animator interface {
	Animating(ctx context.Context, id ElementID) (bool, error)
}

// Closer finds the nearest ancestor-or-self matching a selector.
type Closer interface {
	Closest(ctx context.Context, id ElementID, selector string) (ElementID, bool, error)
}

// Host is everything the resolver needs from a document.
type Host interface {
	Layout
	Pixels
	HitTester
	Animator
}

// Grouping maps an element to its containment group: the element that is
// hidden in its place while probing, and that receives hover state.
type Grouping func(ctx context.Context, id ElementID) (ElementID, error)

// IdentityGroup makes every element its own group.
func IdentityGroup(_ context.Context, id ElementID) (ElementID, error) {
	return id, nil
}

// ClosestGroup groups elements by their nearest ancestor-or-self matching
// selector. Elements without a matching ancestor form their own group. An
// empty selector yields IdentityGroup.
func ClosestGroup(c Closer, selector string) Grouping {
	if selector == "" {
		return IdentityGroup
	}
	return func(ctx context.Context, id ElementID) (ElementID, error) {
		group, ok, err := c.Closest(ctx, id, selector)
		if err != nil {
			return "", fmt.Errorf("closest %q for %s: %w", selector, id, err)
		}
		if !ok {
			return id, nil
		}
		return group, nil
	}
}
