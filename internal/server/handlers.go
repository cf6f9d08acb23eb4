package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/ironsheep/pierce-mcp/internal/browser"
	"github.com/ironsheep/pierce-mcp/internal/dispatch"
	"github.com/ironsheep/pierce-mcp/internal/hittest"
	"github.com/ironsheep/pierce-mcp/internal/imaging"
	"github.com/ironsheep/pierce-mcp/internal/scene"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "scene_load", "hit_resolve").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Debug("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
// Tools run one at a time: documents are shared and probing mutates them.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	// Documents
	case "scene_load":
		return s.handleSceneLoad(ctx, args)
	case "browser_open":
		return s.handleBrowserOpen(ctx, args)
	case "scene_images":
		return s.handleSceneImages()

	// Hit resolution
	case "hit_resolve":
		return s.handleHitResolve(ctx, args)
	case "hit_sample_alpha":
		return s.handleHitSampleAlpha(ctx, args)
	case "hit_sample_color":
		return s.handleHitSampleColor(ctx, args)
	case "hover_state":
		return s.handleHoverState(ctx, args)

	// Scene editing
	case "scene_update":
		return s.handleSceneUpdate(args)
	case "scene_snapshot":
		return s.handleSceneSnapshot(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Document Handlers ===

type sceneLoadArgs struct {
	Path      string `json:"path"`
	Container string `json:"container"`
	Selector  string `json:"selector"`
}

type loadResult struct {
	Container hittest.ElementID          `json:"container"`
	Selector  string                     `json:"selector"`
	Width     int                        `json:"width,omitempty"`
	Height    int                        `json:"height,omitempty"`
	Images    []*hittest.ImageDescriptor `json:"images"`
}

func (s *Server) handleSceneLoad(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sceneLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	sc, err := scene.Load(a.Path)
	if err != nil {
		return nil, err
	}

	sess, err := s.newSession(ctx, sceneDocument{sc}, scene.Body, a.Container, a.Selector)
	if err != nil {
		return nil, err
	}
	sess.scene = sc
	s.replaceSession(sess)

	w, h := sc.Size()
	return &loadResult{
		Container: sess.container,
		Selector:  sess.selector,
		Width:     w,
		Height:    h,
		Images:    sess.resolver.Registry().Images(),
	}, nil
}

type browserOpenArgs struct {
	URL       string `json:"url"`
	Container string `json:"container"`
	Selector  string `json:"selector"`
}

func (s *Server) handleBrowserOpen(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a browserOpenArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if a.Container == "" {
		return nil, fmt.Errorf("container is required")
	}

	page, err := s.browser.Open(ctx, a.URL)
	if err != nil {
		return nil, err
	}

	sess, err := s.newSession(ctx, page, browser.Body, a.Container, a.Selector)
	if err != nil {
		if cerr := page.Close(); cerr != nil {
			s.log.Warn("closing page", "error", cerr)
		}
		return nil, err
	}
	sess.page = page
	s.replaceSession(sess)

	return &loadResult{
		Container: sess.container,
		Selector:  sess.selector,
		Images:    sess.resolver.Registry().Images(),
	}, nil
}

func (s *Server) handleSceneImages() (interface{}, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"images": sess.resolver.Registry().Images(),
	}, nil
}

// === Hit Resolution Handlers ===

type pointArgs struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

func (a pointArgs) point() (image.Point, error) {
	if a.X == nil || a.Y == nil {
		return image.Point{}, fmt.Errorf("x and y are required")
	}
	return image.Pt(*a.X, *a.Y), nil
}

type hitResolveArgs struct {
	pointArgs
	Event string `json:"event"`
}

type hitResolveResult struct {
	dispatch.Outcome
	Event      dispatch.EventType `json:"event"`
	Target     hittest.ElementID  `json:"target"`
	Activation *Activation        `json:"activation,omitempty"`
}

func (s *Server) handleHitResolve(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a hitResolveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := a.point()
	if err != nil {
		return nil, err
	}
	typ, err := dispatch.ParseEventType(a.Event)
	if err != nil {
		return nil, err
	}

	sess, err := s.current()
	if err != nil {
		return nil, err
	}

	target, err := sess.doc.ElementAt(ctx, p)
	if err != nil {
		return nil, err
	}

	sess.last = nil
	out, err := sess.dispatcher.Handle(ctx, dispatch.Event{Type: typ, Point: p, Target: target})
	if err != nil {
		return nil, err
	}

	return &hitResolveResult{
		Outcome:    out,
		Event:      typ,
		Target:     target,
		Activation: sess.last,
	}, nil
}

type hitSampleAlphaArgs struct {
	pointArgs
	Element hittest.ElementID `json:"element"`
}

func (s *Server) handleHitSampleAlpha(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a hitSampleAlphaArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := a.point()
	if err != nil {
		return nil, err
	}

	sess, err := s.current()
	if err != nil {
		return nil, err
	}

	d, ok := sess.resolver.Registry().Lookup(a.Element)
	if !ok {
		return nil, fmt.Errorf("%s: %w", a.Element, hittest.ErrUnknownElement)
	}
	if err := sess.resolver.Refresh(ctx, d); err != nil {
		return nil, err
	}

	sampler := sess.resolver.Sampler()
	res, err := sampler.SampleAlpha(ctx, d, p)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"element":   d.Element,
		"sample":    res,
		"threshold": sampler.Threshold(),
	}, nil
}

func (s *Server) handleHitSampleColor(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pointArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := a.point()
	if err != nil {
		return nil, err
	}

	sess, err := s.current()
	if err != nil {
		return nil, err
	}

	img, err := sess.doc.Render(ctx)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, p.X, p.Y)
}

func (s *Server) handleHoverState(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pointArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	sess, err := s.current()
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{}
	if a.X != nil || a.Y != nil {
		p, err := a.point()
		if err != nil {
			return nil, err
		}
		left, err := sess.dispatcher.CheckPointer(ctx, p)
		if err != nil {
			return nil, err
		}
		result["pointer_left"] = left
	}
	result["state"] = sess.dispatcher.State()
	return result, nil
}

// === Scene Editing Handlers ===

type sceneUpdateArgs struct {
	Element            hittest.ElementID `json:"element"`
	X                  *int              `json:"x"`
	Y                  *int              `json:"y"`
	Width              *int              `json:"width"`
	Height             *int              `json:"height"`
	BackgroundPosition *string           `json:"background_position"`
	Hidden             *bool             `json:"hidden"`
	Animating          *bool             `json:"animating"`
}

func (s *Server) handleSceneUpdate(args json.RawMessage) (interface{}, error) {
	var a sceneUpdateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	if sess.scene == nil {
		return nil, fmt.Errorf("scene_update needs a scene document, not a browser page")
	}

	if (a.Width != nil && *a.Width < 0) || (a.Height != nil && *a.Height < 0) {
		return nil, fmt.Errorf("width and height must not be negative")
	}

	err = sess.scene.Update(a.Element, scene.Update{
		X:                  a.X,
		Y:                  a.Y,
		Width:              a.Width,
		Height:             a.Height,
		BackgroundPosition: a.BackgroundPosition,
		Hidden:             a.Hidden,
		Animating:          a.Animating,
	})
	if err != nil {
		return nil, err
	}

	for _, info := range sess.scene.Elements() {
		if info.ID == a.Element {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", a.Element, scene.ErrNoSuchElement)
}

type sceneSnapshotArgs struct {
	GridSpacing     int     `json:"grid_spacing"`
	ShowCoordinates bool    `json:"show_coordinates"`
	GridColor       string  `json:"grid_color"`
	X1              int     `json:"x1"`
	Y1              int     `json:"y1"`
	X2              int     `json:"x2"`
	Y2              int     `json:"y2"`
	Scale           float64 `json:"scale"`
}

func (s *Server) handleSceneSnapshot(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sceneSnapshotArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.GridSpacing < 0 {
		return nil, fmt.Errorf("grid_spacing must not be negative")
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	sess, err := s.current()
	if err != nil {
		return nil, err
	}

	var img image.Image
	img, err = sess.doc.Render(ctx)
	if err != nil {
		return nil, err
	}

	if a.GridSpacing > 0 {
		img = imaging.GridOverlay(img, a.GridSpacing, a.ShowCoordinates, a.GridColor)
	}

	img, err = imaging.Crop(img, image.Rect(a.X1, a.Y1, a.X2, a.Y2), a.Scale)
	if err != nil {
		return nil, err
	}

	return imaging.Encode(img)
}
