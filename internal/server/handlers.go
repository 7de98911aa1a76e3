package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/answer-eraser/internal/detection"
	"github.com/ironsheep/answer-eraser/internal/failure"
	"github.com/ironsheep/answer-eraser/internal/geometry"
	"github.com/ironsheep/answer-eraser/internal/imaging"
	"github.com/ironsheep/answer-eraser/internal/ocr"
)

// Preview tints per detection source.
const (
	preciseTint = "#1E88E5"
	roughTint   = imaging.DefaultTint
)

var (
	errNoEraser       = errors.New("no erasure pipeline configured")
	errNoTextDetector = errors.New("no text detector configured")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "worksheet_erase_answers").
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
		s.log.WithFields(logrus.Fields{
			"tool": params.Name,
			"kind": failure.KindOf(err).String(),
		}).WithError(err).Warn("tool failed")
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "worksheet_load":
		return s.handleWorksheetLoad(args)
	case "worksheet_erase_answers":
		return s.handleEraseAnswers(ctx, args)
	case "worksheet_detect_handwriting":
		return s.handleDetectHandwriting(ctx, args)
	case "worksheet_preview_regions":
		return s.handlePreviewRegions(ctx, args)
	case "worksheet_text_blocks":
		return s.handleTextBlocks(ctx, args)
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

type pathArgs struct {
	Path string `json:"path"`
}

// decodeArgs unmarshals tool arguments and loads the worksheet they name.
func (s *Server) decodeArgs(args json.RawMessage, v interface{}, path func() string) (*image.NRGBA, error) {
	if err := json.Unmarshal(args, v); err != nil {
		return nil, err
	}
	if path() == "" {
		return nil, fmt.Errorf("path is required")
	}
	return s.cache.Load(path())
}

func (s *Server) handleWorksheetLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type eraseArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

type eraseResult struct {
	Mode       string `json:"mode"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	OutputPath string `json:"output_path,omitempty"`
	*imaging.EncodedImage
}

func (s *Server) handleEraseAnswers(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.eraser == nil {
		return nil, errNoEraser
	}
	var a eraseArgs
	img, err := s.decodeArgs(args, &a, func() string { return a.Path })
	if err != nil {
		return nil, err
	}

	out, err := s.eraser.EraseAnswers(ctx, img)
	if err != nil {
		return nil, err
	}

	res := &eraseResult{
		Mode:   string(s.eraser.Mode()),
		Width:  out.Bounds().Dx(),
		Height: out.Bounds().Dy(),
	}
	if a.OutputPath != "" {
		if err := imaging.Save(out, a.OutputPath); err != nil {
			return nil, err
		}
		res.OutputPath = a.OutputPath
		return res, nil
	}

	encoded, err := imaging.EncodePNG(out)
	if err != nil {
		return nil, err
	}
	res.EncodedImage = encoded
	return res, nil
}

type detectedRegion struct {
	Index  int              `json:"index"`
	Source detection.Source `json:"source"`
	Region geometry.Region  `json:"region"`
	Masked geometry.Region  `json:"masked"`
}

type detectResult struct {
	Width   int              `json:"width"`
	Height  int              `json:"height"`
	Count   int              `json:"count"`
	Regions []detectedRegion `json:"regions"`
}

// detect runs the detection stage and pairs each detection with the padded,
// clipped area the mask would cover.
func (s *Server) detect(ctx context.Context, img image.Image) (*image.NRGBA, *detectResult, error) {
	if s.eraser == nil {
		return nil, nil, errNoEraser
	}
	work, dets, err := s.eraser.Detect(ctx, img)
	if err != nil {
		return nil, nil, err
	}

	w, h := work.Bounds().Dx(), work.Bounds().Dy()
	res := &detectResult{Width: w, Height: h, Regions: make([]detectedRegion, 0, len(dets))}
	for i, d := range dets {
		res.Regions = append(res.Regions, detectedRegion{
			Index:  i,
			Source: d.Source,
			Region: d.Region,
			Masked: geometry.Clip(geometry.Pad(d.Region, d.Padding()), w, h),
		})
	}
	res.Count = len(res.Regions)
	return work, res, nil
}

func (s *Server) handleDetectHandwriting(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	img, err := s.decodeArgs(args, &a, func() string { return a.Path })
	if err != nil {
		return nil, err
	}
	_, res, err := s.detect(ctx, img)
	return res, err
}

type previewArgs struct {
	Path     string  `json:"path"`
	Strength float64 `json:"strength"`
}

type previewResult struct {
	*imaging.PreviewResult
	Regions []detectedRegion `json:"regions"`
}

func (s *Server) handlePreviewRegions(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a previewArgs
	img, err := s.decodeArgs(args, &a, func() string { return a.Path })
	if err != nil {
		return nil, err
	}

	work, res, err := s.detect(ctx, img)
	if err != nil {
		return nil, err
	}

	overlays := make([]imaging.Overlay, len(res.Regions))
	for i, r := range res.Regions {
		tint := roughTint
		if r.Source == detection.Precise {
			tint = preciseTint
		}
		overlays[i] = imaging.Overlay{
			Region: r.Masked,
			Label:  fmt.Sprintf("%d", r.Index),
			Tint:   tint,
		}
	}

	preview, err := imaging.Preview(work, overlays, a.Strength)
	if err != nil {
		return nil, err
	}
	return &previewResult{PreviewResult: preview, Regions: res.Regions}, nil
}

type textBlocksResult struct {
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Count  int             `json:"count"`
	Blocks []ocr.TextBlock `json:"blocks"`
}

func (s *Server) handleTextBlocks(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.text == nil {
		return nil, errNoTextDetector
	}
	var a pathArgs
	img, err := s.decodeArgs(args, &a, func() string { return a.Path })
	if err != nil {
		return nil, err
	}

	// Same coordinate space as the detection tools.
	work := img
	if s.eraser != nil {
		work = imaging.ResizeForProcessing(img, s.eraser.MaxDimension())
	}

	blocks, err := s.text.DetectText(ctx, work)
	if err != nil {
		return nil, err
	}
	return &textBlocksResult{
		Width:  work.Bounds().Dx(),
		Height: work.Bounds().Dy(),
		Count:  len(blocks),
		Blocks: blocks,
	}, nil
}
