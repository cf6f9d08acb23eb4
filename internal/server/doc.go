// Package server implements the MCP (Model Context Protocol) server for
// transparency-aware hit resolution.
//
// A client loads a document, either a YAML scene or a live page in Chromium,
// and then asks which image is really under a point. Transparent pixels of
// stacked images are seen through, so a click on the clear corner of a PNG
// lands on whatever is drawn underneath it.
//
// # Protocol
//
// The server speaks JSON-RPC 2.0:
//   - stdio: one request per line on stdin, responses on stdout
//   - HTTP (optional): POST /rpc with one request per body, GET /healthz
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Documents:
//   - scene_load: Load a YAML scene and register its images
//   - browser_open: Open a URL in Chromium and register its images
//   - scene_images: List registered images in probe order
//
// Hit resolution:
//   - hit_resolve: Resolve and dispatch an event at a point
//   - hit_sample_alpha: Sample one image's alpha at a point
//   - hit_sample_color: Sample the rendered color at a point
//   - hover_state: Report (and optionally re-check) hover state
//
// Scene editing:
//   - scene_update: Move, resize, hide or animate a scene element
//   - scene_snapshot: Render the document to PNG with an optional grid
//
// Only one document is active at a time. Loading another one replaces it and
// closes the previous browser tab.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(cfg, logger)
//	defer srv.Close()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
