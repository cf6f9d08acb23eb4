package hittest

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/pierce-mcp/internal/imaging"
)

// ErrUnknownElement is returned when an operation names an element that is not
// a registered candidate image.
var ErrUnknownElement = errors.New("element is not a registered image")

// ImageDescriptor is one registered candidate image and its sampling metadata.
type ImageDescriptor struct {
	Element            ElementID   `json:"element"`
	Kind               Kind        `json:"kind"`
	Width              int         `json:"width"`
	Height             int         `json:"height"`
	Offset             image.Point `json:"offset"`
	BackgroundPosition image.Point `json:"background_position"`

	// Source is the resolved background URL. Empty for raster images, whose
	// pixels come from the element itself.
	Source string `json:"source,omitempty"`
}

// Box is the descriptor's page-space box as last captured.
func (d *ImageDescriptor) Box() image.Rectangle {
	return image.Rectangle{
		Min: d.Offset,
		Max: d.Offset.Add(image.Pt(d.Width, d.Height)),
	}
}

// DynamicProperties marks which captured geometry fields are re-read from the
// host immediately before every sample instead of being cached.
type DynamicProperties struct {
	Width              bool
	Height             bool
	Position           bool
	BackgroundPosition bool
}

// Any reports whether at least one property is dynamic.
func (p DynamicProperties) Any() bool {
	return p.Width || p.Height || p.Position || p.BackgroundPosition
}

// Registry is the ordered catalogue of candidate images.
//
// Iteration order is reverse discovery order: the element registered last is
// first, matching the usual "later in markup paints on top" stacking. Lookup
// is by element identity.
type Registry struct {
	images []*ImageDescriptor
	byID   map[ElementID]*ImageDescriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ElementID]*ImageDescriptor)}
}

// BuildRegistry registers every descendant of container matching selector.
func BuildRegistry(ctx context.Context, layout Layout, container ElementID, selector string) (*Registry, error) {
	ids, err := layout.Query(ctx, container, selector)
	if err != nil {
		return nil, fmt.Errorf("query %q in %s: %w", selector, container, err)
	}

	r := NewRegistry()
	for _, id := range ids {
		if _, err := r.Register(ctx, layout, id); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register captures id's geometry and inserts it at the front of the
// registry. Registering an element twice returns the existing descriptor.
func (r *Registry) Register(ctx context.Context, layout Layout, id ElementID) (*ImageDescriptor, error) {
	if d, ok := r.byID[id]; ok {
		return d, nil
	}

	geom, err := layout.Geometry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("geometry of %s: %w", id, err)
	}

	d := &ImageDescriptor{
		Element:            id,
		Kind:               RasterImage,
		Width:              geom.Width,
		Height:             geom.Height,
		Offset:             geom.Offset,
		BackgroundPosition: imaging.ParseBackgroundPosition(geom.BackgroundPosition),
	}
	if src, ok := imaging.ParseBackgroundImage(geom.BackgroundImage); ok {
		d.Kind = BackgroundImage
		d.Source = src
	}

	r.images = append([]*ImageDescriptor{d}, r.images...)
	r.byID[id] = d
	return d, nil
}

// Lookup returns the descriptor registered for id.
func (r *Registry) Lookup(id ElementID) (*ImageDescriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Images returns the descriptors in probe order.
func (r *Registry) Images() []*ImageDescriptor {
	out := make([]*ImageDescriptor, len(r.images))
	copy(out, r.images)
	return out
}

// Len returns the number of registered images.
func (r *Registry) Len() int {
	return len(r.images)
}

// Refresh re-reads the dynamic properties of d from the host. Fields not
// marked dynamic keep their cached values.
func (r *Registry) Refresh(ctx context.Context, layout Layout, d *ImageDescriptor, dynamic DynamicProperties) error {
	if !dynamic.Any() {
		return nil
	}

	geom, err := layout.Geometry(ctx, d.Element)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", d.Element, err)
	}

	if dynamic.Width {
		d.Width = geom.Width
	}
	if dynamic.Height {
		d.Height = geom.Height
	}
	if dynamic.Position {
		d.Offset = geom.Offset
	}
	if dynamic.BackgroundPosition {
		d.BackgroundPosition = imaging.ParseBackgroundPosition(geom.BackgroundPosition)
	}
	return nil
}
