package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func idProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Identifier given to image_open",
	}
}

func planeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Plane to use: \"central\", \"max\" or a 0-based index. Defaults to the configured plane",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Lifecycle
		{
			Name:        "image_open",
			Description: "Declare a multi-channel image under an identifier. Nothing is decoded until a channel is used. Reusing an identifier replaces the previous image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty(),
					"layout": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"single", "stack", "multi"},
						"description": "single: one file per channel; stack: one multi-plane file per channel; multi: one file per plane. Default single",
						"default":     "single",
					},
					"channels": map[string]interface{}{
						"type":        "object",
						"description": "Channel name to list of absolute file paths",
						"additionalProperties": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "string"},
						},
					},
				},
				"required": []string{"id", "channels"},
			},
		},
		{
			Name:        "image_unload",
			Description: "Drop the decoded pixel data of an image, keeping it open. The next access decodes again.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty(),
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "image_close",
			Description: "Unload an image and forget its identifier.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty(),
				},
				"required": []string{"id"},
			},
		},

		// Inspection
		{
			Name:        "image_info",
			Description: "List the channels of an image with their size, plane count and files.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty(),
				},
				"required": []string{"id"},
			},
		},

		// Compositing
		{
			Name:        "image_composite",
			Description: "Render up to three channels as a contrast-stretched RGB composite. Writes a PNG to output, or returns it base64-encoded when output is empty.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty(),
					"channels": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"maxItems":    3,
						"description": "Channels for red, green and blue; empty entries stay black. Defaults to the configured channels",
					},
					"plane": planeProperty(),
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Optional absolute path of the PNG to write",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Defaults to the configured preview scale",
					},
				},
				"required": []string{"id"},
			},
		},

		// Features
		{
			Name:        "image_surfref",
			Description: "Compute SURF descriptors of a channel, with the reference channel's descriptors at the same interest points appended to each row.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty(),
					"channel": map[string]interface{}{
						"type":        "string",
						"description": "Channel to describe",
					},
					"ref": map[string]interface{}{
						"type":        "string",
						"description": "Reference channel. Defaults to the configured reference; an empty string disables it",
					},
					"plane": planeProperty(),
					"max_points": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of descriptors. Defaults to the configured limit",
					},
				},
				"required": []string{"id", "channel"},
			},
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
