package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func noArgsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Filter Catalog
		{
			Name:        "filter_list",
			Description: "List the available photo filters in picker order, with the index of the currently selected filter (null when the photo is unfiltered).",
			InputSchema: noArgsSchema(),
		},
		{
			Name:        "filter_thumbnails",
			Description: "Get the filter picker thumbnails as base64-encoded PNG. Each thumbnail is the same sample image rendered through one filter. Omit index to get all of them.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Optional filter index (0-based). Returns every thumbnail when omitted",
					},
				},
			},
		},

		// Editing
		{
			Name:        "photo_import",
			Description: "Import a photo as the new working image, from a file path or inline base64 data. Large photos are scaled down to the maximum display size, and any selected filter is cleared.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"image_base64": map[string]interface{}{
						"type":        "string",
						"description": "Encoded image bytes (PNG, JPEG, GIF, BMP, TIFF or WebP) in place of path",
					},
					"source": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"library", "camera"},
						"description": "Where the photo came from. Default library",
						"default":     "library",
					},
				},
			},
		},
		{
			Name:        "filter_select",
			Description: "Apply a filter to the working image by index. The filtered preview replaces any previously selected filter.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Filter index (0-based) from filter_list",
					},
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the preview as base64-encoded PNG. Default false",
						"default":     false,
					},
				},
				"required": []string{"index"},
			},
		},
		{
			Name:        "filter_clear",
			Description: "Remove the selected filter and show the unfiltered working image.",
			InputSchema: noArgsSchema(),
		},
		{
			Name:        "photo_preview",
			Description: "Get the current preview (working image with the selected filter applied) as base64-encoded PNG.",
			InputSchema: noArgsSchema(),
		},
		{
			Name:        "photo_sample_color",
			Description: "Get the exact color value at a pixel of the current preview.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"x", "y"},
			},
		},

		// Library
		{
			Name:        "photo_save",
			Description: "Save the current preview to the photo library and return the saved entry.",
			InputSchema: noArgsSchema(),
		},
		{
			Name:        "library_list",
			Description: "List photos saved to the library, newest first.",
			InputSchema: noArgsSchema(),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
