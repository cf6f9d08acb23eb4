package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-rod/rod"

	"github.com/ironsheep/pierce-mcp/internal/dispatch"
	"github.com/ironsheep/pierce-mcp/internal/hittest"
	"github.com/ironsheep/pierce-mcp/internal/imaging"
)

// Body is the ID the page reports for document.body.
const Body hittest.ElementID = "body"

// pageJS installs the element helpers used by every Page call. Elements are
// identified by a data-pierce-id attribute assigned on first sight. Probe
// hiding nests through a counter and restores the inline display value the
// element had before the first hide.
const pageJS = `() => {
	if (window.__pierce) return;
	const attr = 'data-pierce-id';
	let next = 0;
	const idOf = el => {
		if (!el) return '';
		if (el === document.body) return 'body';
		let id = el.getAttribute(attr);
		if (!id) {
			id = 'p' + (++next);
			el.setAttribute(attr, id);
		}
		return id;
	};
	const must = id => {
		const el = id === 'body' ? document.body : document.querySelector('[' + attr + '="' + CSS.escape(id) + '"]');
		if (!el) throw new Error('no such element: ' + id);
		return el;
	};
	window.__pierce = {
		query: (container, sel) => Array.from(must(container).querySelectorAll(sel)).map(idOf),
		geometry: id => {
			const el = must(id);
			const r = el.getBoundingClientRect();
			const cs = getComputedStyle(el);
			const edges = (k, unit = '') => ({
				top: parseFloat(cs[k + 'Top' + unit]) || 0, right: parseFloat(cs[k + 'Right' + unit]) || 0,
				bottom: parseFloat(cs[k + 'Bottom' + unit]) || 0, left: parseFloat(cs[k + 'Left' + unit]) || 0,
			});
			return {
				width: r.width, height: r.height,
				left: r.left + window.pageXOffset, top: r.top + window.pageYOffset,
				border: edges('border', 'Width'),
				padding: edges('padding'),
				backgroundImage: cs.backgroundImage, backgroundPosition: cs.backgroundPosition,
			};
		},
		src: id => {
			const el = must(id);
			return el.currentSrc || el.src || '';
		},
		resolve: u => new URL(u, document.baseURI).href,
		elementAt: (x, y) => idOf(document.elementFromPoint(x - window.pageXOffset, y - window.pageYOffset)) || 'body',
		setHidden: (ids, hidden) => {
			const els = ids.map(must);
			for (const el of els) {
				const n = Number(el.dataset.pierceHidden || 0);
				if (hidden) {
					if (n === 0) el.dataset.pierceDisplay = el.style.display;
					el.dataset.pierceHidden = String(n + 1);
					el.style.display = 'none';
				} else if (n === 1) {
					el.style.display = el.dataset.pierceDisplay || '';
					delete el.dataset.pierceHidden;
					delete el.dataset.pierceDisplay;
				} else if (n > 1) {
					el.dataset.pierceHidden = String(n - 1);
				}
			}
		},
		animating: id => {
			const el = must(id);
			return typeof el.getAnimations === 'function' && el.getAnimations().length > 0;
		},
		closest: (id, sel) => idOf(must(id).closest(sel)),
		parent: id => {
			const el = must(id);
			return el === document.body ? '' : idOf(el.parentElement);
		},
		addClass: (id, c) => { must(id).classList.add(c); },
		removeClass: (id, c) => { must(id).classList.remove(c); },
	};
}`

// Page is a live document that the resolver can probe.
type Page struct {
	page  *rod.Page
	cache *imaging.ImageCache
	log   *slog.Logger
}

var (
	_ hittest.Host       = (*Page)(nil)
	_ hittest.Closer     = (*Page)(nil)
	_ dispatch.ClassList = (*Page)(nil)
)

func newPage(page *rod.Page, log *slog.Logger) *Page {
	return &Page{page: page, cache: imaging.NewImageCache(), log: log}
}

func (p *Page) install(ctx context.Context) error {
	if _, err := p.page.Context(ctx).Eval(pageJS); err != nil {
		return fmt.Errorf("browser: install helpers: %w", err)
	}
	return nil
}

// call runs a helper and decodes its result into out, which may be nil.
func (p *Page) call(ctx context.Context, out any, fn string, args ...any) error {
	res, err := p.page.Context(ctx).Eval(`(fn, ...args) => window.__pierce[fn](...args)`, append([]any{fn}, args...)...)
	if err != nil {
		return fmt.Errorf("browser: %s: %w", fn, err)
	}
	if out == nil {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("browser: %s result: %w", fn, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("browser: %s result: %w", fn, err)
	}
	return nil
}

// Query returns the descendants of container matching selector.
func (p *Page) Query(ctx context.Context, container hittest.ElementID, selector string) ([]hittest.ElementID, error) {
	var ids []hittest.ElementID
	if err := p.call(ctx, &ids, "query", container, selector); err != nil {
		return nil, err
	}
	return ids, nil
}

// jsGeometry is the helper's geometry record. Layout values are fractional
// CSS pixels. Width and Height are the border box; Left and Top are its
// document offset.
type jsGeometry struct {
	Width              float64 `json:"width"`
	Height             float64 `json:"height"`
	Left               float64 `json:"left"`
	Top                float64 `json:"top"`
	Border             jsEdges `json:"border"`
	Padding            jsEdges `json:"padding"`
	BackgroundImage    string  `json:"backgroundImage"`
	BackgroundPosition string  `json:"backgroundPosition"`
}

type jsEdges struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// geometry reports the content box size with the border box offset, the
// measurements a sample is scaled and positioned by.
func (g jsGeometry) geometry() hittest.Geometry {
	w := g.Width - g.Border.Left - g.Border.Right - g.Padding.Left - g.Padding.Right
	h := g.Height - g.Border.Top - g.Border.Bottom - g.Padding.Top - g.Padding.Bottom
	return hittest.Geometry{
		Width:              round(max(w, 0)),
		Height:             round(max(h, 0)),
		Offset:             image.Pt(round(g.Left), round(g.Top)),
		BackgroundImage:    g.BackgroundImage,
		BackgroundPosition: g.BackgroundPosition,
	}
}

func round(f float64) int {
	if f < 0 {
		return -int(-f + 0.5)
	}
	return int(f + 0.5)
}

func (p *Page) Geometry(ctx context.Context, id hittest.ElementID) (hittest.Geometry, error) {
	var g jsGeometry
	if err := p.call(ctx, &g, "geometry", id); err != nil {
		return hittest.Geometry{}, err
	}
	return g.geometry(), nil
}

// RasterImage fetches the element's current source from the page's
// resources. Sources are cached by URL.
func (p *Page) RasterImage(ctx context.Context, id hittest.ElementID) (image.Image, error) {
	var src string
	if err := p.call(ctx, &src, "src", id); err != nil {
		return nil, err
	}
	if src == "" {
		return nil, fmt.Errorf("browser: element %s has no image source", id)
	}
	return p.load(ctx, src)
}

// BackgroundImage loads a background URL, resolved against the document.
func (p *Page) BackgroundImage(ctx context.Context, src string) (image.Image, error) {
	if !strings.HasPrefix(src, "data:") {
		if err := p.call(ctx, &src, "resolve", src); err != nil {
			return nil, err
		}
	}
	return p.load(ctx, src)
}

func (p *Page) load(ctx context.Context, src string) (image.Image, error) {
	return p.cache.LoadWith(src, func() ([]byte, error) {
		if data, ok, err := decodeDataURI(src); ok {
			return data, err
		}
		p.log.Debug("browser: fetching image", "src", src)
		return p.page.Context(ctx).GetResource(src)
	})
}

// decodeDataURI decodes a data: URI. ok is false for any other URL.
func decodeDataURI(s string) (data []byte, ok bool, err error) {
	rest, found := strings.CutPrefix(s, "data:")
	if !found {
		return nil, false, nil
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, true, errors.New("malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err = base64.StdEncoding.DecodeString(payload)
		return data, true, err
	}
	text, err := url.PathUnescape(payload)
	return []byte(text), true, err
}

func (p *Page) ElementAt(ctx context.Context, pt image.Point) (hittest.ElementID, error) {
	var id hittest.ElementID
	if err := p.call(ctx, &id, "elementAt", pt.X, pt.Y); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Page) SetHidden(ctx context.Context, ids []hittest.ElementID, hidden bool) error {
	return p.call(ctx, nil, "setHidden", ids, hidden)
}

func (p *Page) Animating(ctx context.Context, id hittest.ElementID) (bool, error) {
	var busy bool
	err := p.call(ctx, &busy, "animating", id)
	return busy, err
}

func (p *Page) Closest(ctx context.Context, id hittest.ElementID, selector string) (hittest.ElementID, bool, error) {
	var match hittest.ElementID
	if err := p.call(ctx, &match, "closest", id, selector); err != nil {
		return "", false, err
	}
	return match, match != "", nil
}

func (p *Page) AddClass(ctx context.Context, id hittest.ElementID, class string) error {
	return p.call(ctx, nil, "addClass", id, class)
}

func (p *Page) RemoveClass(ctx context.Context, id hittest.ElementID, class string) error {
	return p.call(ctx, nil, "removeClass", id, class)
}

func (p *Page) Parent(ctx context.Context, id hittest.ElementID) (hittest.ElementID, bool, error) {
	var parent hittest.ElementID
	if err := p.call(ctx, &parent, "parent", id); err != nil {
		return "", false, err
	}
	return parent, parent != "", nil
}

func (p *Page) Body(context.Context) (hittest.ElementID, error) {
	return Body, nil
}

// Render captures the viewport as an image.
func (p *Page) Render(ctx context.Context) (image.Image, error) {
	data, err := p.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return imaging.Decode(data)
}

// Close closes the tab.
func (p *Page) Close() error {
	return p.page.Close()
}
