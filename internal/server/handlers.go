package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-filter-mcp/internal/imaging"
	"github.com/ironsheep/photo-filter-mcp/internal/library"
)

// errInvalidArgs marks tool arguments that are malformed or missing.
var errInvalidArgs = errors.New("invalid arguments")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "filter_select", "photo_save").
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
// Malformed arguments return code -32602; any other tool failure returns
// code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Warn("tool failed")
		if errors.Is(err, errInvalidArgs) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
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
	// Filter Catalog
	case "filter_list":
		return s.handleFilterList()
	case "filter_thumbnails":
		return s.handleFilterThumbnails(args)

	// Editing
	case "photo_import":
		return s.handlePhotoImport(ctx, args)
	case "filter_select":
		return s.handleFilterSelect(ctx, args)
	case "filter_clear":
		return s.handleFilterClear(ctx)
	case "photo_preview":
		return s.handlePhotoPreview()
	case "photo_sample_color":
		return s.handlePhotoSampleColor(args)

	// Library
	case "photo_save":
		return s.handlePhotoSave(ctx)
	case "library_list":
		return s.handleLibraryList(ctx)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// decodeArgs unmarshals tool arguments; absent arguments decode as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Filter Catalog Handlers ===

type filterInfo struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Name  string `json:"name"`
}

type filterListResult struct {
	Filters  []filterInfo `json:"filters"`
	Count    int          `json:"count"`
	Selected *int         `json:"selected"`
}

func (s *Server) handleFilterList() (interface{}, error) {
	entries := s.registry.Entries()
	filters := make([]filterInfo, len(entries))
	for i, e := range entries {
		filters[i] = filterInfo{Index: i, Key: e.Key, Name: e.DisplayName}
	}

	return &filterListResult{
		Filters:  filters,
		Count:    len(filters),
		Selected: s.selectedIndex(),
	}, nil
}

type filterThumbnailsArgs struct {
	Index *int `json:"index"`
}

type thumbnailResult struct {
	Index    int                   `json:"index"`
	Name     string                `json:"name"`
	Degraded bool                  `json:"degraded,omitempty"`
	Image    *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleFilterThumbnails(args json.RawMessage) (interface{}, error) {
	var a filterThumbnailsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	indexes := make([]int, 0, s.registry.Count())
	if a.Index != nil {
		if err := s.registry.Check(*a.Index); err != nil {
			return nil, err
		}
		indexes = append(indexes, *a.Index)
	} else {
		for i := 0; i < s.registry.Count(); i++ {
			indexes = append(indexes, i)
		}
	}

	degraded := make(map[int]bool)
	for _, i := range s.thumbs.Degraded() {
		degraded[i] = true
	}

	results := make([]thumbnailResult, 0, len(indexes))
	for _, i := range indexes {
		thumb, err := s.thumbs.Get(i)
		if err != nil {
			return nil, err
		}
		encoded, err := imaging.EncodePNG(thumb)
		if err != nil {
			return nil, err
		}
		name, _ := s.registry.NameOf(i)
		results = append(results, thumbnailResult{
			Index:    i,
			Name:     name,
			Degraded: degraded[i],
			Image:    encoded,
		})
	}

	return map[string]interface{}{"thumbnails": results}, nil
}

// === Editing Handlers ===

type photoImportArgs struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"image_base64"`
	Source      string `json:"source"`
}

type dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type photoImportResult struct {
	Source   string             `json:"source"`
	Original *imaging.ImageInfo `json:"original"`
	Working  dimensions         `json:"working"`
}

func (s *Server) handlePhotoImport(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a photoImportArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if (a.Path == "") == (a.ImageBase64 == "") {
		return nil, fmt.Errorf("%w: exactly one of path or image_base64 is required", errInvalidArgs)
	}
	switch a.Source {
	case "":
		a.Source = library.SourceLibrary
	case library.SourceLibrary, library.SourceCamera:
	default:
		return nil, fmt.Errorf("%w: unknown source %q", errInvalidArgs, a.Source)
	}

	raw, info, err := s.loadImport(a)
	if err != nil {
		return nil, err
	}

	snap, err := s.session.SetWorkingImage(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	s.mu.Lock()
	s.source = a.Source
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"source":  a.Source,
		"working": snap.Working.String(),
	}).Info("photo imported")
	return &photoImportResult{
		Source:   a.Source,
		Original: info,
		Working:  dimensions{Width: snap.Working.Width(), Height: snap.Working.Height()},
	}, nil
}

// loadImport decodes the photo named by a path or carried inline.
func (s *Server) loadImport(a photoImportArgs) (*imaging.Buffer, *imaging.ImageInfo, error) {
	if a.Path != "" {
		return imaging.LoadImageInfo(s.cache, a.Path)
	}

	data, err := base64.StdEncoding.DecodeString(a.ImageBase64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: image_base64: %v", errInvalidArgs, err)
	}
	raw, format, err := imaging.DecodeFormat(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return raw, &imaging.ImageInfo{
		Width:         raw.Width(),
		Height:        raw.Height(),
		Format:        format,
		FileSizeBytes: int64(len(data)),
	}, nil
}

type filterSelectArgs struct {
	Index        *int `json:"index"`
	IncludeImage bool `json:"include_image"`
}

type previewResult struct {
	Selected *int                  `json:"selected"`
	Key      string                `json:"key,omitempty"`
	Name     string                `json:"name,omitempty"`
	Width    int                   `json:"width"`
	Height   int                   `json:"height"`
	Degraded bool                  `json:"degraded,omitempty"`
	Image    *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleFilterSelect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a filterSelectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Index == nil {
		return nil, fmt.Errorf("%w: index is required", errInvalidArgs)
	}

	snap, err := s.session.Select(ctx, *a.Index)
	if err != nil {
		return nil, err
	}

	t, err := s.registry.Get(snap.Selected)
	if err != nil {
		return nil, err
	}
	result := &previewResult{
		Selected: &snap.Selected,
		Key:      t.Key(),
		Name:     t.DisplayName(),
		Width:    snap.Preview.Width(),
		Height:   snap.Preview.Height(),
		Degraded: snap.Degraded,
	}
	if a.IncludeImage {
		if result.Image, err = imaging.EncodePNG(snap.Preview); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Server) handleFilterClear(ctx context.Context) (interface{}, error) {
	snap, err := s.session.SetWorkingImage(ctx, s.session.WorkingImage())
	if err != nil {
		return nil, err
	}
	return &previewResult{
		Width:  snap.Preview.Width(),
		Height: snap.Preview.Height(),
	}, nil
}

func (s *Server) handlePhotoPreview() (interface{}, error) {
	snap := s.session.Snapshot()

	encoded, err := imaging.EncodePNG(snap.Preview)
	if err != nil {
		return nil, err
	}

	result := &previewResult{
		Width:    snap.Preview.Width(),
		Height:   snap.Preview.Height(),
		Degraded: snap.Degraded,
		Image:    encoded,
	}
	if snap.HasSelection() {
		result.Selected = &snap.Selected
		result.Key, _ = s.registry.KeyOf(snap.Selected)
		result.Name, _ = s.registry.NameOf(snap.Selected)
	}
	return result, nil
}

type photoSampleColorArgs struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handlePhotoSampleColor(args json.RawMessage) (interface{}, error) {
	var a photoSampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.SampleColor(s.session.CurrentPreview(), a.X, a.Y)
}

// === Library Handlers ===

func (s *Server) handlePhotoSave(ctx context.Context) (interface{}, error) {
	// One snapshot so the saved pixels and the recorded filter agree.
	snap := s.session.Snapshot()

	var req library.SaveRequest
	if snap.HasSelection() {
		req.FilterKey, _ = s.registry.KeyOf(snap.Selected)
		req.FilterName, _ = s.registry.NameOf(snap.Selected)
	}
	s.mu.Lock()
	req.Source = s.source
	s.mu.Unlock()

	return s.library.Save(ctx, snap.Preview, req)
}

func (s *Server) handleLibraryList(ctx context.Context) (interface{}, error) {
	entries, err := s.library.List(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"photos": entries,
		"count":  len(entries),
	}, nil
}

func (s *Server) selectedIndex() *int {
	if idx, ok := s.session.Selected(); ok {
		return &idx
	}
	return nil
}

