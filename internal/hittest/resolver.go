package hittest

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"
)

// VerdictKind tags the two possible resolution outcomes.
type VerdictKind int

const (
	// Found means an opaque registered image was located.
	Found VerdictKind = iota
	// NotAnImage means the point resolves to an element that is not a usable
	// candidate image.
	NotAnImage
)

func (k VerdictKind) String() string {
	if k == Found {
		return "found"
	}
	return "not_an_image"
}

// MarshalText renders the kind by name in JSON output.
func (k VerdictKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Reason explains a NotAnImage verdict.
type Reason string

const (
	ReasonUnregistered Reason = "unregistered"
	ReasonAnimating    Reason = "animating"
	ReasonRevisited    Reason = "revisited"
	ReasonDepthLimit   Reason = "depth_limit"
)

// Verdict is the terminal outcome of one resolution.
type Verdict struct {
	Kind VerdictKind `json:"kind"`

	// Image is set for Found.
	Image *ImageDescriptor `json:"image,omitempty"`

	// Element is the element the verdict is about: the found image's element,
	// or the non-image element for NotAnImage.
	Element ElementID `json:"element"`

	// Reason is set for NotAnImage.
	Reason Reason `json:"reason,omitempty"`

	// Pierced lists the candidates seen through, top-most first.
	Pierced []ElementID `json:"pierced,omitempty"`
}

// IsFound reports whether the verdict located an opaque image.
func (v Verdict) IsFound() bool {
	return v.Kind == Found
}

// Options configures a Resolver.
type Options struct {
	// TransparentPercent is the opacity threshold. A pixel is opaque when
	// floor(100*alpha/255) >= TransparentPercent. Zero means the default (100);
	// use a negative value to count every pixel as opaque.
	TransparentPercent int

	// Dynamic marks geometry re-read before each sample.
	Dynamic DynamicProperties

	// Group is the containment grouping for hiding and animation checks.
	// Nil means every element is its own group.
	Group Grouping

	// MaxDepth caps how many candidates one resolution may sample. Zero
	// means no cap beyond the registry size.
	MaxDepth int

	// LogTimeTaken logs how long each successful resolution took.
	LogTimeTaken bool

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.TransparentPercent == 0 {
		o.TransparentPercent = DefaultTransparentPercent
	}
	if o.Group == nil {
		o.Group = IdentityGroup
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Resolver finds the opaque image under a point by peeling off transparent
// candidates one at a time.
type Resolver struct {
	registry *Registry
	host     Host
	sampler  *Sampler
	probe    *Probe
	opts     Options
	log      *slog.Logger
}

// NewResolver returns a resolver over the images in reg, hosted by host.
func NewResolver(reg *Registry, host Host, opts Options) *Resolver {
	opts.defaults()
	return &Resolver{
		registry: reg,
		host:     host,
		sampler:  NewSampler(host, opts.TransparentPercent),
		probe:    NewProbe(host, opts.Group),
		opts:     opts,
		log:      opts.Logger,
	}
}

// Registry returns the registry the resolver resolves against.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Sampler returns the resolver's alpha sampler.
func (r *Resolver) Sampler() *Sampler {
	return r.sampler
}

// Probe returns the resolver's occlusion probe.
func (r *Resolver) Probe() *Probe {
	return r.probe
}

// Refresh re-reads the properties of d configured as dynamic. Callers that
// sample d directly call it first, as Resolve does.
func (r *Resolver) Refresh(ctx context.Context, d *ImageDescriptor) error {
	return r.registry.Refresh(ctx, r.host, d, r.opts.Dynamic)
}

// Candidate returns the registered image for el, or false when el is not
// registered or it or its group is animating.
func (r *Resolver) Candidate(ctx context.Context, el ElementID) (*ImageDescriptor, bool, error) {
	d, ok := r.registry.Lookup(el)
	if !ok {
		return nil, false, nil
	}
	busy, err := r.animating(ctx, el)
	if err != nil || busy {
		return nil, false, err
	}
	return d, true, nil
}

// Resolve determines which registered image is really under p, starting from
// the element the host's native hit test reported there.
//
// Each iteration looks the current element up in the registry. Unregistered
// and animating elements end the resolution with NotAnImage. Otherwise the
// candidate is sampled at p; an opaque pixel ends it with Found. A transparent
// pixel adds the candidate to the exclusion set, and the host is asked again
// what is at p while every excluded element is hidden.
//
// Every registered element is sampled at most once per call: if the host
// reports one again the loop stops with NotAnImage, which bounds the loop by
// the registry size. All elements hidden while probing are visible again when
// Resolve returns. Errors come only from the host.
func (r *Resolver) Resolve(ctx context.Context, p image.Point, start ElementID) (Verdict, error) {
	var began time.Time
	if r.opts.LogTimeTaken {
		began = time.Now()
	}

	excluded := NewExclusionSet()
	el := start

	for {
		d, ok := r.registry.Lookup(el)
		if !ok {
			return r.notAnImage(el, ReasonUnregistered, excluded), nil
		}

		if excluded.Has(el) {
			r.log.Warn("hittest: host reported an excluded element again",
				"element", el, "point", p, "depth", excluded.Len())
			return r.notAnImage(el, ReasonRevisited, excluded), nil
		}

		if r.opts.MaxDepth > 0 && excluded.Len() >= r.opts.MaxDepth {
			r.log.Warn("hittest: depth limit reached",
				"element", el, "point", p, "max_depth", r.opts.MaxDepth)
			return r.notAnImage(el, ReasonDepthLimit, excluded), nil
		}

		animating, err := r.animating(ctx, el)
		if err != nil {
			return Verdict{}, err
		}
		if animating {
			return r.notAnImage(el, ReasonAnimating, excluded), nil
		}

		if err := r.Refresh(ctx, d); err != nil {
			return Verdict{}, err
		}

		opaque, err := r.opaqueAt(ctx, d, p)
		if err != nil {
			return Verdict{}, err
		}
		if opaque {
			if r.opts.LogTimeTaken {
				r.log.Info("hittest: found image", "element", el, "elapsed", time.Since(began))
			}
			return Verdict{Kind: Found, Image: d, Element: el, Pierced: excluded.Elements()}, nil
		}

		excluded.Add(el)
		next, err := r.probe.ElementBeneath(ctx, excluded.Elements(), p)
		if err != nil {
			return Verdict{}, err
		}
		r.log.Debug("hittest: pierced", "element", el, "next", next, "point", p)
		el = next
	}
}

// opaqueAt samples d at p. A point outside the cached box cannot hit the
// drawn image and counts as transparent; this happens when the element has
// moved but its position is cached.
func (r *Resolver) opaqueAt(ctx context.Context, d *ImageDescriptor, p image.Point) (bool, error) {
	if !p.In(d.Box()) {
		r.log.Debug("hittest: point outside cached box", "element", d.Element, "point", p, "box", d.Box())
		return false, nil
	}

	res, err := r.sampler.SampleAlpha(ctx, d, p)
	if err != nil {
		return false, err
	}
	return !res.Transparent, nil
}

// animating reports whether el or its containment group is mid-transition.
func (r *Resolver) animating(ctx context.Context, el ElementID) (bool, error) {
	busy, err := r.host.Animating(ctx, el)
	if err != nil {
		return false, fmt.Errorf("animating %s: %w", el, err)
	}
	if busy {
		return true, nil
	}

	group, err := r.probe.Group(ctx, el)
	if err != nil {
		return false, err
	}
	if group == el {
		return false, nil
	}

	busy, err = r.host.Animating(ctx, group)
	if err != nil {
		return false, fmt.Errorf("animating %s: %w", group, err)
	}
	return busy, nil
}

func (r *Resolver) notAnImage(el ElementID, reason Reason, excluded *ExclusionSet) Verdict {
	return Verdict{Kind: NotAnImage, Element: el, Reason: reason, Pierced: excluded.Elements()}
}
