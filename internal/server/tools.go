package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the worksheet image (PNG, JPEG, GIF, TIFF or BMP)",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "worksheet_load",
			Description: "Load a worksheet image and return its upright dimensions, format and file size. The image stays cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "worksheet_erase_answers",
			Description: "Remove handwritten answers from a worksheet while keeping the printed questions. Saves the cleaned page to output_path, or returns it as base64 PNG when output_path is omitted.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Where to write the cleaned worksheet. The extension selects the format.",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "worksheet_detect_handwriting",
			Description: "List the handwriting regions the local pipeline would erase, with their source (precise or rough) and the padded area actually masked. Coordinates refer to the processing-size image whose dimensions are returned.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "worksheet_preview_regions",
			Description: "Render the detected handwriting regions over the worksheet as a base64 PNG. Precise regions are blue, rough regions red; each is labelled with its index.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"strength": map[string]interface{}{
						"type":        "number",
						"description": "Tint strength between 0 and 1",
						"default":     0.45,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "worksheet_text_blocks",
			Description: "Run the text detector on a worksheet and return every text line with its index, recognized text and bounding box. Coordinates refer to the same processing-size image as worksheet_detect_handwriting; its dimensions are returned.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
	}
}

func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
