package server

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/pierce-mcp/internal/browser"
	"github.com/ironsheep/pierce-mcp/internal/dispatch"
	"github.com/ironsheep/pierce-mcp/internal/hittest"
	"github.com/ironsheep/pierce-mcp/internal/scene"
)

// ErrNoSession is returned by tools that need a loaded document.
var ErrNoSession = errors.New("no document loaded: call scene_load or browser_open first")

// document is a host the server can resolve on and render.
type document interface {
	hittest.Host
	hittest.Closer
	dispatch.ClassList
	Render(ctx context.Context) (image.Image, error)
}

// sceneDocument adapts a Scene to document.
type sceneDocument struct {
	*scene.Scene
}

func (d sceneDocument) Render(context.Context) (image.Image, error) {
	img, err := d.Scene.Render()
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Activation records the callback a click or touch ran.
type Activation struct {
	Callback string            `json:"callback"` // "image" or "non_image"
	Element  hittest.ElementID `json:"element"`
}

// Session is one loaded document with its registry, resolver and
// dispatcher.
type Session struct {
	doc        document
	scene      *scene.Scene  // nil for browser pages
	page       *browser.Page // nil for scenes
	container  hittest.ElementID
	selector   string
	resolver   *hittest.Resolver
	dispatcher *dispatch.Dispatcher

	last *Activation
}

// newSession registers the images matching selector inside the element
// matched by containerSel, or inside the body when containerSel is empty.
func (s *Server) newSession(ctx context.Context, doc document, body hittest.ElementID, containerSel, selector string) (*Session, error) {
	if selector == "" {
		selector = s.cfg.ImgSelector
	}

	container := body
	if containerSel != "" {
		matches, err := doc.Query(ctx, body, containerSel)
		if err != nil {
			return nil, fmt.Errorf("container %q: %w", containerSel, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("container %q matched nothing", containerSel)
		}
		container = matches[0]
	}

	reg, err := hittest.BuildRegistry(ctx, doc, container, selector)
	if err != nil {
		return nil, err
	}

	group := s.cfg.Group(doc)
	sess := &Session{
		doc:       doc,
		container: container,
		selector:  selector,
		resolver:  hittest.NewResolver(reg, doc, s.cfg.ResolverOptions(group, s.log)),
	}

	opts := s.cfg.DispatchOptions(group, s.log)
	opts.OnImage = func(_ context.Context, img *hittest.ImageDescriptor) {
		sess.last = &Activation{Callback: "image", Element: img.Element}
	}
	opts.OnNonImage = func(_ context.Context, el hittest.ElementID) {
		sess.last = &Activation{Callback: "non_image", Element: el}
	}
	sess.dispatcher = dispatch.New(sess.resolver, doc, opts)

	s.log.Info("document loaded", "container", container, "selector", selector, "images", reg.Len())
	return sess, nil
}

// current returns the active session. Callers hold s.mu.
func (s *Server) current() (*Session, error) {
	if s.session == nil {
		return nil, ErrNoSession
	}
	return s.session, nil
}

// replaceSession swaps in next and closes the previous browser tab. Callers
// hold s.mu.
func (s *Server) replaceSession(next *Session) {
	if prev := s.session; prev != nil && prev.page != nil {
		if err := prev.page.Close(); err != nil {
			s.log.Warn("closing previous page", "error", err)
		}
	}
	s.session = next
}
