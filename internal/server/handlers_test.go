package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/pierce-mcp/internal/config"
	"github.com/ironsheep/pierce-mcp/internal/dispatch"
	"github.com/ironsheep/pierce-mcp/internal/hittest"
	"github.com/ironsheep/pierce-mcp/internal/imaging"
	"github.com/ironsheep/pierce-mcp/internal/scene"
)

// Two stacked 100x100 images: "top" is clear on its left half and blue on
// its right, "bottom" is solid red. "label" is a plain element beside them.
const handlerScene = `
width: 200
height: 100
elements:
  - id: images
    box: {x: 0, y: 0, width: 200, height: 100}
    children:
      - id: bottom
        tag: img
        src: red.png
        box: {x: 0, y: 0, width: 100, height: 100}
      - id: top
        tag: img
        src: half.png
        box: {x: 0, y: 0, width: 100, height: 100}
      - id: label
        box: {x: 120, y: 0, width: 60, height: 60}
`

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
}

// createTestScene writes the scene and its images to a temp dir and returns
// the scene path.
func createTestScene(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	red := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	half := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			red.Set(x, y, color.NRGBA{255, 0, 0, 255})
			if x >= 50 {
				half.Set(x, y, color.NRGBA{0, 0, 255, 255})
			}
		}
	}
	writePNG(t, filepath.Join(dir, "red.png"), red)
	writePNG(t, filepath.Join(dir, "half.png"), half)

	path := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(path, []byte(handlerScene), 0o644); err != nil {
		t.Fatalf("failed to write scene: %v", err)
	}
	return path
}

func call(t *testing.T, s *Server, tool string, args map[string]interface{}) (interface{}, error) {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return s.executeTool(context.Background(), tool, raw)
}

func mustCall(t *testing.T, s *Server, tool string, args map[string]interface{}) interface{} {
	t.Helper()
	res, err := call(t, s, tool, args)
	if err != nil {
		t.Fatalf("%s failed: %v", tool, err)
	}
	return res
}

func loadedServer(t *testing.T) *Server {
	t.Helper()
	s := newTestServer(t)
	mustCall(t, s, "scene_load", map[string]interface{}{
		"path":      createTestScene(t),
		"container": "#images",
	})
	return s
}

func TestHandleToolsCall_SceneLoad(t *testing.T) {
	s := newTestServer(t)
	params, _ := json.Marshal(map[string]interface{}{
		"name":      "scene_load",
		"arguments": map[string]interface{}{"path": createTestScene(t), "container": "#images"},
	})

	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	var got struct {
		Container string `json:"container"`
		Width     int    `json:"width"`
		Images    []struct {
			Element string `json:"element"`
			Kind    string `json:"kind"`
		} `json:"images"`
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &got); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}

	if got.Container != "images" || got.Width != 200 {
		t.Errorf("container/width: got %s/%d", got.Container, got.Width)
	}
	// Probe order is top-most first.
	if len(got.Images) != 2 || got.Images[0].Element != "top" || got.Images[1].Element != "bottom" {
		t.Fatalf("images: got %+v, want [top bottom]", got.Images)
	}
	if got.Images[0].Kind != "raster" {
		t.Errorf("kind: got %s, want raster", got.Images[0].Kind)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	tests := []struct {
		name     string
		params   string
		wantCode int
	}{
		{"bad params", `"nope"`, -32602},
		{"unknown tool", `{"name":"image_ocr_full","arguments":{}}`, -32000},
		{"no document", `{"name":"scene_images"}`, -32000},
		{"missing point", `{"name":"hit_resolve","arguments":{"x":1}}`, -32000},
		{"browser needs container", `{"name":"browser_open","arguments":{"url":"http://x.test"}}`, -32000},
		{"missing scene file", `{"name":"scene_load","arguments":{"path":"/nonexistent/scene.yaml"}}`, -32000},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.handleRequest(context.Background(), &MCPRequest{
				JSONRPC: "2.0",
				ID:      1,
				Method:  "tools/call",
				Params:  json.RawMessage(tt.params),
			})
			if resp.Error == nil {
				t.Fatal("expected error response")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code: got %d, want %d (%v)", resp.Error.Code, tt.wantCode, resp.Error.Data)
			}
		})
	}
}

func TestSceneLoad_ContainerNotFound(t *testing.T) {
	s := newTestServer(t)
	_, err := call(t, s, "scene_load", map[string]interface{}{
		"path":      createTestScene(t),
		"container": "#missing",
	})
	if err == nil {
		t.Fatal("expected error for unmatched container")
	}
	if s.session != nil {
		t.Error("failed load should not install a document")
	}
}

func TestSceneImages_NoSession(t *testing.T) {
	s := newTestServer(t)
	if _, err := call(t, s, "scene_images", nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("got %v, want ErrNoSession", err)
	}
}

func TestHitResolve(t *testing.T) {
	tests := []struct {
		name        string
		x, y        int
		wantKind    hittest.VerdictKind
		wantElement hittest.ElementID
		wantPierced []hittest.ElementID
		wantCall    string
	}{
		{"opaque top", 80, 10, hittest.Found, "top", nil, "image"},
		{"through clear half", 10, 10, hittest.Found, "bottom", []hittest.ElementID{"top"}, "image"},
		{"plain element", 150, 10, hittest.NotAnImage, "label", nil, "non_image"},
		{"container", 190, 90, hittest.NotAnImage, "images", nil, "non_image"},
	}

	s := loadedServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustCall(t, s, "hit_resolve", map[string]interface{}{"x": tt.x, "y": tt.y}).(*hitResolveResult)

			if res.Event != dispatch.Click {
				t.Errorf("event: got %s, want click", res.Event)
			}
			v := res.Verdict
			if v.Kind != tt.wantKind || v.Element != tt.wantElement {
				t.Errorf("verdict: got %s %s, want %s %s", v.Kind, v.Element, tt.wantKind, tt.wantElement)
			}
			if len(v.Pierced) != len(tt.wantPierced) {
				t.Errorf("pierced: got %v, want %v", v.Pierced, tt.wantPierced)
			}
			if res.Activation == nil || res.Activation.Callback != tt.wantCall || res.Activation.Element != tt.wantElement {
				t.Errorf("activation: got %+v, want %s on %s", res.Activation, tt.wantCall, tt.wantElement)
			}
		})
	}

	// Probing leaves nothing hidden behind.
	if hidden := s.session.scene.ProbeHidden(); len(hidden) != 0 {
		t.Errorf("elements left probe-hidden: %v", hidden)
	}
}

func TestHitResolve_HoverAndState(t *testing.T) {
	s := loadedServer(t)

	res := mustCall(t, s, "hit_resolve", map[string]interface{}{"x": 80, "y": 10, "event": "mousemove"}).(*hitResolveResult)
	if res.Activation != nil {
		t.Errorf("mousemove should not activate, got %+v", res.Activation)
	}
	if res.State.HoverTarget != "images" || !res.State.Cursor {
		t.Errorf("state after hover: got %+v", res.State)
	}
	if !s.session.scene.HasClass(scene.Body, "cursor") || !s.session.scene.HasClass("images", "hover") {
		t.Error("cursor and hover classes should be applied")
	}

	got := mustCall(t, s, "hover_state", nil).(map[string]interface{})
	if _, ok := got["pointer_left"]; ok {
		t.Error("hover_state without a point should not check the pointer")
	}
	if st := got["state"].(dispatch.State); st.HoverTarget != "images" {
		t.Errorf("hover_state: got %+v", st)
	}

	mustCall(t, s, "hit_resolve", map[string]interface{}{"x": 80, "y": 10, "event": "mouseout"})
	if s.session.scene.HasClass("images", "hover") {
		t.Error("mouseout should drop the hover class")
	}

	if _, err := call(t, s, "hit_resolve", map[string]interface{}{"x": 1, "y": 1, "event": "dblclick"}); err == nil {
		t.Error("unknown event should fail")
	}
}

func TestHitSampleAlpha(t *testing.T) {
	tests := []struct {
		name            string
		element         string
		x, y            int
		wantAlpha       uint8
		wantTransparent bool
		wantErr         bool
	}{
		{"clear half", "top", 10, 10, 0, true, false},
		{"opaque half", "top", 80, 10, 255, false, false},
		{"bottom", "bottom", 10, 10, 255, false, false},
		{"outside box", "top", 150, 10, 0, false, true},
		{"not registered", "label", 150, 10, 0, false, true},
	}

	s := loadedServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := call(t, s, "hit_sample_alpha", map[string]interface{}{"element": tt.element, "x": tt.x, "y": tt.y})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("hit_sample_alpha failed: %v", err)
			}

			got := res.(map[string]interface{})
			sample := got["sample"].(hittest.AlphaResult)
			if sample.Alpha != tt.wantAlpha || sample.Transparent != tt.wantTransparent {
				t.Errorf("sample: got %+v, want alpha %d transparent %v", sample, tt.wantAlpha, tt.wantTransparent)
			}
			if got["threshold"] != 100 {
				t.Errorf("threshold: got %v, want 100", got["threshold"])
			}
		})
	}

	_, err := call(t, s, "hit_sample_alpha", map[string]interface{}{"element": "label", "x": 150, "y": 10})
	if !errors.Is(err, hittest.ErrUnknownElement) {
		t.Errorf("got %v, want ErrUnknownElement", err)
	}
}

func TestHitSampleAlpha_DynamicPosition(t *testing.T) {
	tests := []struct {
		name      string
		position  bool
		wantErr   bool
		wantLocal image.Point
	}{
		{"position re-read", true, false, image.Pt(75, 10)},
		{"position cached", false, true, image.Point{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.DynamicProperties.Position = tt.position
			s := newTestServerWith(t, cfg)
			mustCall(t, s, "scene_load", map[string]interface{}{"path": createTestScene(t), "container": "#images"})
			mustCall(t, s, "scene_update", map[string]interface{}{"element": "top", "x": 100})

			res, err := call(t, s, "hit_sample_alpha", map[string]interface{}{"element": "top", "x": 175, "y": 10})
			if tt.wantErr {
				if !errors.Is(err, imaging.ErrOutOfBounds) {
					t.Fatalf("got %v, want ErrOutOfBounds against the cached box", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("hit_sample_alpha failed: %v", err)
			}
			sample := res.(map[string]interface{})["sample"].(hittest.AlphaResult)
			if sample.Local != tt.wantLocal || sample.Alpha != 255 {
				t.Errorf("sample: got %+v, want local %v alpha 255", sample, tt.wantLocal)
			}
		})
	}
}

func TestHitSampleColor(t *testing.T) {
	tests := []struct {
		name    string
		x, y    int
		wantHex string
		wantErr bool
	}{
		{"red through clear half", 10, 10, "#FF0000", false},
		{"blue half", 80, 10, "#0000FF", false},
		{"outside canvas", 500, 10, "", true},
	}

	s := loadedServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := call(t, s, "hit_sample_color", map[string]interface{}{"x": tt.x, "y": tt.y})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("hit_sample_color failed: %v", err)
			}
			if got := res.(*imaging.ColorResult); got.Hex != tt.wantHex {
				t.Errorf("hex: got %s, want %s", got.Hex, tt.wantHex)
			}
		})
	}
}

func TestSceneUpdate(t *testing.T) {
	s := loadedServer(t)

	info := mustCall(t, s, "scene_update", map[string]interface{}{"element": "top", "x": 100}).(scene.ElementInfo)
	if info.Box.X != 100 || info.Box.Width != 100 {
		t.Errorf("box: got %+v, want x=100 width=100", info.Box)
	}

	// "top" moved off the left half, so the click lands on "bottom" directly.
	res := mustCall(t, s, "hit_resolve", map[string]interface{}{"x": 80, "y": 10}).(*hitResolveResult)
	if res.Verdict.Element != "bottom" || len(res.Verdict.Pierced) != 0 {
		t.Errorf("after move: got %s pierced %v, want bottom", res.Verdict.Element, res.Verdict.Pierced)
	}

	mustCall(t, s, "scene_update", map[string]interface{}{"element": "bottom", "animating": true})
	res = mustCall(t, s, "hit_resolve", map[string]interface{}{"x": 80, "y": 10}).(*hitResolveResult)
	if res.Verdict.Kind != hittest.NotAnImage || res.Verdict.Reason != hittest.ReasonAnimating {
		t.Errorf("animating: got %s %s", res.Verdict.Kind, res.Verdict.Reason)
	}

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"unknown element", map[string]interface{}{"element": "nope", "x": 1}},
		{"negative width", map[string]interface{}{"element": "top", "width": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := call(t, s, "scene_update", tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSceneSnapshot(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]interface{}
		wantWidth  int
		wantHeight int
		wantErr    bool
	}{
		{"full", nil, 200, 100, false},
		{"with grid", map[string]interface{}{"grid_spacing": 25, "show_coordinates": true}, 200, 100, false},
		{"cropped", map[string]interface{}{"x1": 0, "y1": 0, "x2": 50, "y2": 40}, 50, 40, false},
		{"cropped and scaled", map[string]interface{}{"x2": 50, "y2": 40, "scale": 2.0}, 100, 80, false},
		{"crop outside", map[string]interface{}{"x1": 150, "y1": 0, "x2": 300, "y2": 50}, 0, 0, true},
		{"negative grid", map[string]interface{}{"grid_spacing": -5}, 0, 0, true},
	}

	s := loadedServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := call(t, s, "scene_snapshot", tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("scene_snapshot failed: %v", err)
			}
			enc := res.(*imaging.EncodedImage)
			if enc.Width != tt.wantWidth || enc.Height != tt.wantHeight {
				t.Errorf("size: got %dx%d, want %dx%d", enc.Width, enc.Height, tt.wantWidth, tt.wantHeight)
			}
			if enc.MimeType != "image/png" || enc.ImageBase64 == "" {
				t.Errorf("encoding: got %s with %d bytes", enc.MimeType, len(enc.ImageBase64))
			}
		})
	}
}

func TestSceneLoad_ReplacesSession(t *testing.T) {
	s := loadedServer(t)
	first := s.session

	mustCall(t, s, "scene_load", map[string]interface{}{"path": createTestScene(t)})
	if s.session == first {
		t.Fatal("second load should replace the document")
	}
	// Without a container the whole body is searched.
	if s.session.container != scene.Body {
		t.Errorf("container: got %s, want body", s.session.container)
	}
	if n := s.session.resolver.Registry().Len(); n != 2 {
		t.Errorf("images: got %d, want 2", n)
	}
}
