package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/ironsheep/imcol/internal/imaging"
	"github.com/ironsheep/imcol/pkg/imcol"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_open", "image_composite").
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Debug().Err(err).Str("tool", params.Name).Msg("tool failed")
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
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults for optional parameters
//  3. Looks up the open image by identifier
//  4. Calls the appropriate imcol function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image Lifecycle
	case "image_open":
		return s.handleImageOpen(args)
	case "image_unload":
		return s.handleImageUnload(args)
	case "image_close":
		return s.handleImageClose(args)

	// Inspection
	case "image_info":
		return s.handleImageInfo(args)

	// Compositing
	case "image_composite":
		return s.handleImageComposite(args)

	// Features
	case "image_surfref":
		return s.handleImageSurfRef(args)

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

// lookup returns the open image with the given identifier.
func (s *Server) lookup(id string) (imcol.PlaneImage, error) {
	img, ok := s.images[id]
	if !ok {
		return nil, fmt.Errorf("no open image %q", id)
	}
	return img, nil
}

// plane parses an optional plane argument, falling back to the config.
func (s *Server) plane(arg string) (imcol.PlaneSelector, error) {
	if arg == "" {
		return s.cfg.PlaneSelector()
	}
	return imcol.ParsePlane(arg)
}

// === Image Lifecycle Handlers ===

type imageIDArgs struct {
	ID string `json:"id"`
}

type imageOpenArgs struct {
	ID       string              `json:"id"`
	Layout   string              `json:"layout"`
	Channels map[string][]string `json:"channels"`
}

type imageOpenResult struct {
	ID       string   `json:"id"`
	Layout   string   `json:"layout"`
	Channels []string `json:"channels"`
}

func (s *Server) handleImageOpen(args json.RawMessage) (interface{}, error) {
	var a imageOpenArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	if len(a.Channels) == 0 {
		return nil, fmt.Errorf("at least one channel is required")
	}
	layout, err := imcol.ParseLayout(a.Layout)
	if err != nil {
		return nil, err
	}

	img, err := imcol.Open(layout, a.Channels, s.opts...)
	if err != nil {
		return nil, err
	}
	if old, ok := s.images[a.ID]; ok {
		old.Unload()
	}
	s.images[a.ID] = img
	s.log.Info().Str("id", a.ID).Str("layout", string(layout)).Strs("channels", img.Channels()).Msg("image opened")

	return imageOpenResult{ID: a.ID, Layout: string(layout), Channels: img.Channels()}, nil
}

func (s *Server) handleImageUnload(args json.RawMessage) (interface{}, error) {
	var a imageIDArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.lookup(a.ID)
	if err != nil {
		return nil, err
	}
	img.Unload()
	return map[string]interface{}{"id": a.ID, "unloaded": true}, nil
}

func (s *Server) handleImageClose(args json.RawMessage) (interface{}, error) {
	var a imageIDArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.lookup(a.ID)
	if err != nil {
		return nil, err
	}
	img.Unload()
	delete(s.images, a.ID)
	return map[string]interface{}{"id": a.ID, "closed": true}, nil
}

// === Inspection Handlers ===

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageIDArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.lookup(a.ID)
	if err != nil {
		return nil, err
	}
	return imcol.Describe(img)
}

// === Compositing Handlers ===

type imageCompositeArgs struct {
	ID       string   `json:"id"`
	Channels []string `json:"channels"`
	Plane    string   `json:"plane"`
	Output   string   `json:"output"`
	Scale    float64  `json:"scale"`
}

type imageCompositeResult struct {
	ID          string `json:"id"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Plane       string `json:"plane"`
	Output      string `json:"output,omitempty"`
	Format      string `json:"format,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

func (s *Server) handleImageComposite(args json.RawMessage) (interface{}, error) {
	var a imageCompositeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Channels) > 3 {
		return nil, fmt.Errorf("at most 3 channels, got %d", len(a.Channels))
	}
	if a.Scale == 0 {
		a.Scale = s.cfg.Preview.Scale
	}
	img, err := s.lookup(a.ID)
	if err != nil {
		return nil, err
	}
	sel, err := s.plane(a.Plane)
	if err != nil {
		return nil, err
	}

	rgb, err := s.composite(img, a.Channels, sel)
	if err != nil {
		return nil, err
	}

	result := imageCompositeResult{ID: a.ID, Plane: sel.String()}
	if a.Output != "" {
		if err := (imaging.FileDisplay{Path: a.Output, Scale: a.Scale}).Display(rgb); err != nil {
			return nil, err
		}
		scaled, err := imaging.Rescale(rgb, a.Scale)
		if err != nil {
			return nil, err
		}
		result.Output = a.Output
		result.Width, result.Height = scaled.Bounds().Dx(), scaled.Bounds().Dy()
		return result, nil
	}

	scaled, err := imaging.Rescale(rgb, a.Scale)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, scaled); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	result.Width, result.Height = scaled.Bounds().Dx(), scaled.Bounds().Dy()
	result.Format = "png"
	result.ImageBase64 = base64.StdEncoding.EncodeToString(buf.Bytes())
	return result, nil
}

// composite renders the requested channels, or the configured channels and
// palette when none are given.
func (s *Server) composite(img imcol.PlaneImage, channels []string, sel imcol.PlaneSelector) (image.Image, error) {
	if len(channels) > 0 {
		var rgb [3]string
		copy(rgb[:], channels)
		return imcol.Composite(img, rgb, sel)
	}

	layers, err := s.cfg.ChannelColors()
	if err != nil {
		return nil, err
	}
	if layers != nil {
		return imcol.Blend(img, layers, sel)
	}
	return imcol.Composite(img, s.cfg.CompositeChannels(), sel)
}

// === Feature Handlers ===

type imageSurfRefArgs struct {
	ID        string  `json:"id"`
	Channel   string  `json:"channel"`
	Ref       *string `json:"ref"`
	Plane     string  `json:"plane"`
	MaxPoints int     `json:"max_points"`
}

type imageSurfRefResult struct {
	ID          string      `json:"id"`
	Channel     string      `json:"channel"`
	Ref         string      `json:"ref,omitempty"`
	Plane       string      `json:"plane"`
	Rows        int         `json:"rows"`
	Cols        int         `json:"cols"`
	Descriptors [][]float64 `json:"descriptors"`
}

func (s *Server) handleImageSurfRef(args json.RawMessage) (interface{}, error) {
	var a imageSurfRefArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.lookup(a.ID)
	if err != nil {
		return nil, err
	}
	sel, err := s.plane(a.Plane)
	if err != nil {
		return nil, err
	}

	opts := s.cfg.SurfOptions()
	if a.MaxPoints > 0 {
		opts.MaxPoints = a.MaxPoints
	}

	// An explicit ref must exist; the configured default is skipped when the
	// image does not declare it.
	ref := s.cfg.Features.Reference
	if a.Ref != nil {
		ref = *a.Ref
	} else if !img.HasChannel(ref) {
		ref = ""
	}

	m, err := imcol.SurfRef(img, a.Channel, ref, sel, opts)
	if err != nil {
		return nil, err
	}

	rows, cols := m.Dims()
	result := imageSurfRefResult{
		ID:          a.ID,
		Channel:     a.Channel,
		Ref:         ref,
		Plane:       sel.String(),
		Rows:        rows,
		Cols:        cols,
		Descriptors: make([][]float64, rows),
	}
	for i := 0; i < rows; i++ {
		result.Descriptors[i] = append([]float64(nil), m.RawRowView(i)...)
	}
	return result, nil
}
