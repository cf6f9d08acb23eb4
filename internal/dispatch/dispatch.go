package dispatch

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/ironsheep/pierce-mcp/internal/hittest"
)

// EventType names a pointer or touch event.
type EventType string

const (
	Click      EventType = "click"
	TouchStart EventType = "touchstart"
	MouseMove  EventType = "mousemove"
	MouseOut   EventType = "mouseout"
)

// ParseEventType validates an event name. An empty name means Click.
func ParseEventType(s string) (EventType, error) {
	switch t := EventType(s); t {
	case "":
		return Click, nil
	case Click, TouchStart, MouseMove, MouseOut:
		return t, nil
	default:
		return "", fmt.Errorf("unknown event type %q", s)
	}
}

// activates reports whether the event fires the image callbacks.
func (t EventType) activates() bool {
	return t == Click || t == TouchStart
}

// Event is one pointer event at a page-space point. Target is the element the
// host's native hit test reported there.
type Event struct {
	Type   EventType
	Point  image.Point
	Target hittest.ElementID
}

// ClassList toggles presentation classes on host elements.
type ClassList interface {
	AddClass(ctx context.Context, id hittest.ElementID, class string) error
	RemoveClass(ctx context.Context, id hittest.ElementID, class string) error
	Parent(ctx context.Context, id hittest.ElementID) (hittest.ElementID, bool, error)
	Body(ctx context.Context) (hittest.ElementID, error)
}

// Options configures a Dispatcher.
type Options struct {
	// CursorClass is added to the body while the pointer is over an opaque
	// image. Empty disables it.
	CursorClass string

	// HoverClass is added to the hover target of the image under the
	// pointer. Empty disables it.
	HoverClass string

	// Group maps an image to its hover target. Nil uses the image's parent.
	Group hittest.Grouping

	// MouseOffCheck makes CheckPointer drop hover state once the pointer
	// leaves the registered images.
	MouseOffCheck bool

	// OnImage runs for click and touchstart events resolving to an image.
	OnImage func(ctx context.Context, img *hittest.ImageDescriptor)

	// OnNonImage runs for click and touchstart events resolving to anything
	// else.
	OnNonImage func(ctx context.Context, el hittest.ElementID)

	Logger *slog.Logger
}

// Outcome reports what handling one event did.
type Outcome struct {
	Event   Event           `json:"-"`
	Verdict hittest.Verdict `json:"verdict"`
	State   State           `json:"state"`
	Elapsed time.Duration   `json:"elapsed_ns"`
}

// State is the dispatcher's presentation state.
type State struct {
	HoverTarget   hittest.ElementID `json:"hover_target,omitempty"`
	Cursor        bool              `json:"cursor"`
	TouchDisabled bool              `json:"touch_disabled"`
}

// Dispatcher turns pointer events into resolutions, callbacks and
// hover/cursor classes.
//
// Events are handled one at a time, in the order they arrive, which keeps the
// resolver's shared sampling surface free for each event.
type Dispatcher struct {
	resolver *hittest.Resolver
	classes  ClassList
	opts     Options
	log      *slog.Logger

	mu          sync.Mutex
	hoverTarget hittest.ElementID
	cursor      bool
	touched     bool
}

// New returns a dispatcher resolving through r and toggling classes through
// classes.
func New(r *hittest.Resolver, classes ClassList, opts Options) *Dispatcher {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{resolver: r, classes: classes, opts: opts, log: log}
}

// Handle resolves ev and applies its side effects.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := Outcome{Event: ev}

	if ev.Type == MouseOut {
		err := d.unhover(ctx)
		out.State = d.state()
		return out, err
	}

	if ev.Type == TouchStart && !d.touched {
		// Touch devices have no hover; drop it for good.
		if err := d.unhover(ctx); err != nil {
			return out, err
		}
		d.touched = true
		d.log.Debug("dispatch: first touch, hover and cursor classes disabled")
	}

	began := time.Now()
	v, err := d.resolver.Resolve(ctx, ev.Point, ev.Target)
	out.Elapsed = time.Since(began)
	if err != nil {
		return out, fmt.Errorf("%s at %v: %w", ev.Type, ev.Point, err)
	}
	out.Verdict = v

	d.log.Debug("dispatch: resolved",
		"event", ev.Type, "point", ev.Point, "verdict", v.Kind, "element", v.Element, "elapsed", out.Elapsed)

	switch {
	case v.IsFound() && ev.Type.activates():
		if d.opts.OnImage != nil {
			d.opts.OnImage(ctx, v.Image)
		}
	case v.IsFound():
		err = d.hover(ctx, v.Element)
	default:
		if ev.Type.activates() && d.opts.OnNonImage != nil {
			d.opts.OnNonImage(ctx, v.Element)
		}
		err = d.unhover(ctx)
	}

	out.State = d.state()
	return out, err
}

// CheckPointer drops hover state when the element at p is not a registered
// image, or is one that is animating. It does nothing unless MouseOffCheck is set, and reports whether it
// unhovered.
func (d *Dispatcher) CheckPointer(ctx context.Context, p image.Point) (bool, error) {
	if !d.opts.MouseOffCheck {
		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hoverTarget == "" && !d.cursor {
		return false, nil
	}

	el, err := d.resolver.Probe().ElementAt(ctx, p)
	if err != nil {
		return false, err
	}
	_, ok, err := d.resolver.Candidate(ctx, el)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	return true, d.unhover(ctx)
}

// State returns the current presentation state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state()
}

func (d *Dispatcher) state() State {
	return State{HoverTarget: d.hoverTarget, Cursor: d.cursor, TouchDisabled: d.touched}
}

func (d *Dispatcher) hoverClass() string {
	if d.touched {
		return ""
	}
	return d.opts.HoverClass
}

func (d *Dispatcher) cursorClass() string {
	if d.touched {
		return ""
	}
	return d.opts.CursorClass
}

// hover moves the hover class to img's hover target and shows the cursor.
func (d *Dispatcher) hover(ctx context.Context, img hittest.ElementID) error {
	if class := d.hoverClass(); class != "" {
		target, err := d.hoverTargetOf(ctx, img)
		if err != nil {
			return err
		}
		if target != d.hoverTarget {
			if d.hoverTarget != "" {
				if err := d.classes.RemoveClass(ctx, d.hoverTarget, class); err != nil {
					return err
				}
			}
			if err := d.classes.AddClass(ctx, target, class); err != nil {
				return err
			}
			d.hoverTarget = target
		}
	}

	if class := d.cursorClass(); class != "" && !d.cursor {
		body, err := d.classes.Body(ctx)
		if err != nil {
			return err
		}
		if err := d.classes.AddClass(ctx, body, class); err != nil {
			return err
		}
		d.cursor = true
	}
	return nil
}

// unhover removes the cursor and hover classes. Classes are removed with the
// configured names even after the first touch so nothing is left behind.
func (d *Dispatcher) unhover(ctx context.Context) error {
	if d.cursor {
		body, err := d.classes.Body(ctx)
		if err != nil {
			return err
		}
		if err := d.classes.RemoveClass(ctx, body, d.opts.CursorClass); err != nil {
			return err
		}
		d.cursor = false
	}

	if d.hoverTarget != "" {
		if err := d.classes.RemoveClass(ctx, d.hoverTarget, d.opts.HoverClass); err != nil {
			return err
		}
		d.hoverTarget = ""
	}
	return nil
}

func (d *Dispatcher) hoverTargetOf(ctx context.Context, img hittest.ElementID) (hittest.ElementID, error) {
	if d.opts.Group != nil {
		return d.opts.Group(ctx, img)
	}
	parent, ok, err := d.classes.Parent(ctx, img)
	if err != nil {
		return "", fmt.Errorf("parent of %s: %w", img, err)
	}
	if !ok {
		return img, nil
	}
	return parent, nil
}
