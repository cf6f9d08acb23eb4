package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Documents
		{
			Name:        "scene_load",
			Description: "Load a YAML scene file as the active document and register its candidate images. Image paths in the scene resolve relative to the scene file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the scene file",
					},
					"container": map[string]interface{}{
						"type":        "string",
						"description": "Selector of the element containing the images (e.g. #images). Default: the whole document",
					},
					"selector": map[string]interface{}{
						"type":        "string",
						"description": "Selector of the candidate images inside the container. Default from config (img)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "browser_open",
			Description: "Open a URL in Chromium as the active document and register its candidate images.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"url": map[string]interface{}{
						"type":        "string",
						"description": "Page URL",
					},
					"container": map[string]interface{}{
						"type":        "string",
						"description": "CSS selector of the element containing the images",
					},
					"selector": map[string]interface{}{
						"type":        "string",
						"description": "CSS selector of the candidate images inside the container. Default from config (img)",
					},
				},
				"required": []string{"url", "container"},
			},
		},
		{
			Name:        "scene_images",
			Description: "List the registered candidate images in probe order (top-most first) with their kind, box and background position.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Hit resolution
		{
			Name:        "hit_resolve",
			Description: "Resolve which image is really under a page point, seeing through transparent pixels, and dispatch the event. Returns the verdict (found or not_an_image), the elements pierced, and the hover/cursor state.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": intProp("Page X coordinate"),
					"y": intProp("Page Y coordinate"),
					"event": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"click", "touchstart", "mousemove", "mouseout"},
						"description": "Event to dispatch. Default click",
						"default":     "click",
					},
				},
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "hit_sample_alpha",
			Description: "Sample the alpha of one registered image at a page point, as drawn in its box. The point must lie inside the image's box.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"element": map[string]interface{}{
						"type":        "string",
						"description": "Element ID of a registered image",
					},
					"x": intProp("Page X coordinate"),
					"y": intProp("Page Y coordinate"),
				},
				"required": []string{"element", "x", "y"},
			},
		},
		{
			Name:        "hit_sample_color",
			Description: "Get the rendered color at a page point (hex, RGBA, HSL and alpha percent).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": intProp("Page X coordinate"),
					"y": intProp("Page Y coordinate"),
				},
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "hover_state",
			Description: "Report the current hover target and cursor state. With x and y, first drops hover state if the pointer there has left the images (requires mouse_off_check).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": intProp("Optional pointer X coordinate"),
					"y": intProp("Optional pointer Y coordinate"),
				},
			},
		},

		// Scene editing
		{
			Name:        "scene_update",
			Description: "Move, resize, hide or animate an element of a loaded scene. Cached image geometry is not refreshed unless the matching dynamic property is configured.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"element": map[string]interface{}{
						"type":        "string",
						"description": "Element ID",
					},
					"x":      intProp("New left edge"),
					"y":      intProp("New top edge"),
					"width":  intProp("New width"),
					"height": intProp("New height"),
					"background_position": map[string]interface{}{
						"type":        "string",
						"description": "New background position (e.g. \"10px 0px\")",
					},
					"hidden": map[string]interface{}{
						"type":        "boolean",
						"description": "Hide or show the element",
					},
					"animating": map[string]interface{}{
						"type":        "boolean",
						"description": "Mark the element as mid-animation",
					},
				},
				"required": []string{"element"},
			},
		},
		{
			Name:        "scene_snapshot",
			Description: "Render the active document to PNG, optionally with a coordinate grid and cropped to a region. Returns base64-encoded image data.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"grid_spacing": intProp("Pixels between grid lines. 0 or omitted draws no grid"),
					"show_coordinates": map[string]interface{}{
						"type":        "boolean",
						"description": "Label grid lines with coordinates",
						"default":     false,
					},
					"grid_color": map[string]interface{}{
						"type":        "string",
						"description": "Grid color as hex (e.g., '#FF0000' or '#FF000080' with alpha)",
						"default":     "#FF000080",
					},
					"x1": intProp("Crop left edge"),
					"y1": intProp("Crop top edge"),
					"x2": intProp("Crop right edge (exclusive)"),
					"y2": intProp("Crop bottom edge (exclusive)"),
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				},
			},
		},
	}
}
