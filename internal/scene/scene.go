package scene

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/pierce-mcp/internal/hittest"
	"github.com/ironsheep/pierce-mcp/internal/imaging"
)

// Body is the ID of the implicit root element covering the whole canvas.
const Body hittest.ElementID = "body"

// ErrNoSuchElement is returned for IDs the scene does not contain.
var ErrNoSuchElement = errors.New("no such element")

// Box is an element's page-space box.
type Box struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// ElementSpec declares one element and its subtree.
type ElementSpec struct {
	ID                 string        `yaml:"id"`
	Tag                string        `yaml:"tag"`
	Class              []string      `yaml:"class"`
	Src                string        `yaml:"src"`
	Background         string        `yaml:"background"`
	BackgroundPosition string        `yaml:"background_position"`
	Box                Box           `yaml:"box"`
	Hidden             bool          `yaml:"hidden"`
	Animating          bool          `yaml:"animating"`
	Children           []ElementSpec `yaml:"children"`
}

// File is the on-disk scene format.
type File struct {
	Width    int           `yaml:"width"`
	Height   int           `yaml:"height"`
	Elements []ElementSpec `yaml:"elements"`
}

type element struct {
	id       hittest.ElementID
	tag      string
	classes  []string
	parent   *element
	children []*element

	box        image.Rectangle
	src        string
	background string
	bgPosition string

	hidden      bool // author visibility
	probeHidden int  // nested hides from probing
	animating   bool
}

func (e *element) hasClass(class string) bool {
	return slices.Contains(e.classes, class)
}

// visible reports whether e and all its ancestors are displayed.
func (e *element) visible() bool {
	for n := e; n != nil; n = n.parent {
		if n.hidden || n.probeHidden > 0 {
			return false
		}
	}
	return true
}

// Scene is an in-memory document of boxed elements.
//
// Paint order is document order: an element paints over its parent and
// later siblings paint over earlier ones. Image sources are file paths,
// resolved against the directory the scene was loaded from, or keys
// registered with PutImage.
//
// Scene is safe for concurrent use.
type Scene struct {
	mu     sync.RWMutex
	width  int
	height int
	root   *element
	byID   map[hittest.ElementID]*element
	order  []*element
	cache  *imaging.ImageCache
	dir    string
}

// New returns an empty scene with a width x height canvas.
func New(width, height int) *Scene {
	root := &element{id: Body, tag: "body", box: image.Rect(0, 0, width, height)}
	return &Scene{
		width:  width,
		height: height,
		root:   root,
		byID:   map[hittest.ElementID]*element{Body: root},
		order:  []*element{root},
		cache:  imaging.NewImageCache(),
	}
}

// Load reads a YAML scene file. Relative image paths are resolved against
// the file's directory.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse builds a scene from YAML. dir is the base for relative image paths.
func Parse(data []byte, dir string) (*Scene, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("scene canvas must be positive, got %dx%d", f.Width, f.Height)
	}

	s := New(f.Width, f.Height)
	s.dir = dir
	for _, spec := range f.Elements {
		if err := s.Add(Body, spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Size returns the canvas size.
func (s *Scene) Size() (width, height int) {
	return s.width, s.height
}

// Add appends spec and its children as the last child of parent.
func (s *Scene) Add(parent hittest.ElementID, spec ElementSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[parent]
	if !ok {
		return fmt.Errorf("add to %s: %w", parent, ErrNoSuchElement)
	}
	if err := s.add(p, spec); err != nil {
		return err
	}
	s.reindex()
	return nil
}

func (s *Scene) add(parent *element, spec ElementSpec) error {
	id := hittest.ElementID(spec.ID)
	if id == "" {
		return fmt.Errorf("element under %s has no id", parent.id)
	}
	if _, dup := s.byID[id]; dup {
		return fmt.Errorf("duplicate element id %q", id)
	}

	tag := strings.ToLower(spec.Tag)
	if tag == "" {
		tag = "div"
	}

	e := &element{
		id:         id,
		tag:        tag,
		classes:    slices.Clone(spec.Class),
		parent:     parent,
		box:        spec.Box.Rect(),
		src:        spec.Src,
		background: spec.Background,
		bgPosition: spec.BackgroundPosition,
		hidden:     spec.Hidden,
		animating:  spec.Animating,
	}
	parent.children = append(parent.children, e)
	s.byID[id] = e

	for _, child := range spec.Children {
		if err := s.add(e, child); err != nil {
			return err
		}
	}
	return nil
}

// reindex rebuilds the paint order. Callers hold s.mu.
func (s *Scene) reindex() {
	s.order = s.order[:0]
	var walk func(e *element)
	walk = func(e *element) {
		s.order = append(s.order, e)
		for _, c := range e.children {
			walk(c)
		}
	}
	walk(s.root)
}

// PutImage registers an in-memory image under src, so elements can reference
// it without a file on disk.
func (s *Scene) PutImage(src string, img image.Image) {
	s.cache.Put(s.resolve(src), img)
}

func (s *Scene) resolve(src string) string {
	if s.dir == "" || filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(s.dir, src)
}

func (s *Scene) lookup(id hittest.ElementID) (*element, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNoSuchElement)
	}
	return e, nil
}

// ElementInfo describes an element for listings.
type ElementInfo struct {
	ID         hittest.ElementID `json:"id"`
	Tag        string            `json:"tag"`
	Classes    []string          `json:"classes,omitempty"`
	Box        Box               `json:"box"`
	Src        string            `json:"src,omitempty"`
	Background string            `json:"background,omitempty"`
	Hidden     bool              `json:"hidden,omitempty"`
	Animating  bool              `json:"animating,omitempty"`
}

// Elements lists every element except Body in paint order.
func (s *Scene) Elements() []ElementInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ElementInfo, 0, len(s.order)-1)
	for _, e := range s.order[1:] {
		out = append(out, ElementInfo{
			ID:         e.id,
			Tag:        e.tag,
			Classes:    slices.Clone(e.classes),
			Box:        Box{X: e.box.Min.X, Y: e.box.Min.Y, Width: e.box.Dx(), Height: e.box.Dy()},
			Src:        e.src,
			Background: e.background,
			Hidden:     e.hidden,
			Animating:  e.animating,
		})
	}
	return out
}

// Update is a partial change to one element. Nil fields are left alone.
type Update struct {
	X                  *int
	Y                  *int
	Width              *int
	Height             *int
	BackgroundPosition *string
	Hidden             *bool
	Animating          *bool
}

// Update applies u to the element id.
func (s *Scene) Update(id hittest.ElementID, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	b := e.box
	if u.X != nil {
		b = b.Add(image.Pt(*u.X-b.Min.X, 0))
	}
	if u.Y != nil {
		b = b.Add(image.Pt(0, *u.Y-b.Min.Y))
	}
	if u.Width != nil {
		b.Max.X = b.Min.X + *u.Width
	}
	if u.Height != nil {
		b.Max.Y = b.Min.Y + *u.Height
	}
	e.box = b

	if u.BackgroundPosition != nil {
		e.bgPosition = *u.BackgroundPosition
	}
	if u.Hidden != nil {
		e.hidden = *u.Hidden
	}
	if u.Animating != nil {
		e.animating = *u.Animating
	}
	return nil
}

// Move places the element's top-left corner at (x, y).
func (s *Scene) Move(id hittest.ElementID, x, y int) error {
	return s.Update(id, Update{X: &x, Y: &y})
}

// SetAnimating marks the element as mid-transition or settled.
func (s *Scene) SetAnimating(id hittest.ElementID, animating bool) error {
	return s.Update(id, Update{Animating: &animating})
}

// Visible reports whether id is currently displayed.
func (s *Scene) Visible(id hittest.ElementID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	return e.visible(), nil
}

// ProbeHidden reports every element currently hidden by probing.
func (s *Scene) ProbeHidden() []hittest.ElementID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []hittest.ElementID
	for _, e := range s.order {
		if e.probeHidden > 0 {
			out = append(out, e.id)
		}
	}
	return out
}
