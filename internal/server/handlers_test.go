package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/photo-filter-mcp/internal/config"
	"github.com/ironsheep/photo-filter-mcp/internal/imaging"
	"github.com/ironsheep/photo-filter-mcp/internal/library"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// encodeNoisePNG returns an opaque PNG of seeded random pixels.
func encodeNoisePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}

	var data bytes.Buffer
	if err := png.Encode(&data, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return data.Bytes()
}

// callTool invokes a tool through tools/call and returns the raw response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// callToolResult invokes a tool, fails on error and decodes the text
// content into out.
func callToolResult(t *testing.T, s *Server, name string, args interface{}, out interface{}) {
	t.Helper()

	resp := callTool(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %+v", name, resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("%s: result should be a map", name)
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("%s: unexpected content %v", name, result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("%s: failed to decode result: %v", name, err)
	}
}

func expectToolError(t *testing.T, s *Server, name string, args interface{}, code int) {
	t.Helper()

	resp := callTool(t, s, name, args)
	if resp.Error == nil {
		t.Fatalf("%s: expected error", name)
	}
	if resp.Error.Code != code {
		t.Errorf("%s: error code got %d, want %d (%v)", name, resp.Error.Code, code, resp.Error.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("got %+v, want -32602", resp.Error)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	expectToolError(t, s, "image_crop", nil, -32000)
}

func TestFilterList(t *testing.T) {
	s := newTestServer(t)

	var result struct {
		Filters  []filterInfo `json:"filters"`
		Count    int          `json:"count"`
		Selected *int         `json:"selected"`
	}
	callToolResult(t, s, "filter_list", nil, &result)

	if result.Count != 10 || len(result.Filters) != 10 {
		t.Fatalf("count: got %d/%d, want 10", result.Count, len(result.Filters))
	}
	if result.Filters[0].Name != "Vivid" || result.Filters[9].Name != "Linear" {
		t.Errorf("catalog order: first %q last %q", result.Filters[0].Name, result.Filters[9].Name)
	}
	for i, f := range result.Filters {
		if f.Index != i {
			t.Errorf("filter %d has index %d", i, f.Index)
		}
	}
	if result.Selected != nil {
		t.Errorf("selected: got %d, want null", *result.Selected)
	}
}

func TestFilterThumbnails(t *testing.T) {
	s := newTestServer(t)

	var all struct {
		Thumbnails []thumbnailResult `json:"thumbnails"`
	}
	callToolResult(t, s, "filter_thumbnails", nil, &all)
	if len(all.Thumbnails) != 10 {
		t.Fatalf("got %d thumbnails, want 10", len(all.Thumbnails))
	}
	for i, th := range all.Thumbnails {
		if th.Index != i || th.Image == nil || th.Image.ImageBase64 == "" {
			t.Errorf("thumbnail %d incomplete: %+v", i, th)
			continue
		}
		if th.Image.Width != 16 || th.Image.Height != 16 {
			t.Errorf("thumbnail %d size: got %dx%d, want 16x16", i, th.Image.Width, th.Image.Height)
		}
	}

	var one struct {
		Thumbnails []thumbnailResult `json:"thumbnails"`
	}
	callToolResult(t, s, "filter_thumbnails", map[string]interface{}{"index": 3}, &one)
	if len(one.Thumbnails) != 1 || one.Thumbnails[0].Name != "Mono" {
		t.Errorf("single thumbnail: got %+v", one.Thumbnails)
	}
	if one.Thumbnails[0].Image.ImageBase64 != all.Thumbnails[3].Image.ImageBase64 {
		t.Error("thumbnail should be identical across calls")
	}

	expectToolError(t, s, "filter_thumbnails", map[string]interface{}{"index": 10}, -32000)
}

func TestPhotoImport(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 400, 300, color.RGBA{200, 100, 50, 255})

	var result photoImportResult
	callToolResult(t, s, "photo_import", map[string]interface{}{
		"path":   imgPath,
		"source": "camera",
	}, &result)

	if result.Source != "camera" {
		t.Errorf("source: got %q, want camera", result.Source)
	}
	if result.Original.Width != 400 || result.Original.Height != 300 || result.Original.Format != "png" {
		t.Errorf("original: got %+v", result.Original)
	}
	if result.Working.Width != 200 || result.Working.Height != 150 {
		t.Errorf("working: got %+v, want 200x150", result.Working)
	}
	if s.cache.Len() != 1 {
		t.Errorf("load cache entries: got %d, want 1", s.cache.Len())
	}
}

func TestPhotoImport_ReusesLoadCache(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 120, 80, color.RGBA{90, 30, 10, 255})

	callToolResult(t, s, "photo_import", map[string]interface{}{"path": imgPath}, &photoImportResult{})
	cached, err := s.cache.Load(imgPath)
	if err != nil {
		t.Fatalf("cache Load failed: %v", err)
	}

	var again photoImportResult
	callToolResult(t, s, "photo_import", map[string]interface{}{"path": imgPath}, &again)
	if again.Original.Width != 120 || again.Original.Height != 80 {
		t.Errorf("original: got %+v", again.Original)
	}

	reloaded, err := s.cache.Load(imgPath)
	if err != nil {
		t.Fatalf("cache Load failed: %v", err)
	}
	if reloaded != cached || s.cache.Len() != 1 {
		t.Errorf("re-import should reuse the cached photo (entries %d)", s.cache.Len())
	}
}

func TestPhotoImport_Inline(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 50, 100, color.RGBA{0, 0, 255, 255})
	data, err := os.ReadFile(imgPath)
	if err != nil {
		t.Fatalf("failed to read test image: %v", err)
	}

	var result photoImportResult
	callToolResult(t, s, "photo_import", map[string]interface{}{
		"image_base64": base64.StdEncoding.EncodeToString(data),
		"source":       "camera",
	}, &result)

	if result.Original.Format != "png" || result.Original.FileSizeBytes != int64(len(data)) {
		t.Errorf("original: got %+v", result.Original)
	}
	if result.Working.Width != 50 || result.Working.Height != 100 {
		t.Errorf("working: got %+v, want 50x100", result.Working)
	}
}

func TestPhotoImport_Errors(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 10, 10, color.White)

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing path", map[string]interface{}{}, -32602},
		{"path and data", map[string]interface{}{"path": imgPath, "image_base64": "aGk="}, -32602},
		{"bad base64", map[string]interface{}{"image_base64": "%%%"}, -32602},
		{"undecodable data", map[string]interface{}{"image_base64": "aGVsbG8="}, -32000},
		{"bad source", map[string]interface{}{"path": imgPath, "source": "scanner"}, -32602},
		{"wrong type", map[string]interface{}{"path": 42}, -32602},
		{"missing file", map[string]interface{}{"path": "/nonexistent/photo.png"}, -32000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectToolError(t, s, "photo_import", tt.args, tt.code)
		})
	}

	if w := s.session.WorkingImage(); w.Width() != 200 {
		t.Errorf("failed imports should keep the placeholder, got %s", w)
	}
}

func TestFilterSelect(t *testing.T) {
	s := newTestServer(t)

	var result previewResult
	callToolResult(t, s, "filter_select", map[string]interface{}{
		"index":         4,
		"include_image": true,
	}, &result)

	if result.Selected == nil || *result.Selected != 4 {
		t.Fatalf("selected: got %v, want 4", result.Selected)
	}
	if result.Name != "Noir" || result.Key != "CIPhotoEffectNoir" {
		t.Errorf("filter: got %s/%s", result.Name, result.Key)
	}
	if result.Image == nil || result.Image.Width != 200 || result.Image.Height != 150 {
		t.Errorf("preview image: got %+v", result.Image)
	}
	if idx, ok := s.session.Selected(); !ok || idx != 4 {
		t.Errorf("session selection: got (%d, %v)", idx, ok)
	}
}

func TestFilterSelect_Errors(t *testing.T) {
	s := newTestServer(t)
	callToolResult(t, s, "filter_select", map[string]interface{}{"index": 2}, &previewResult{})

	expectToolError(t, s, "filter_select", map[string]interface{}{}, -32602)
	expectToolError(t, s, "filter_select", map[string]interface{}{"index": 999}, -32000)
	expectToolError(t, s, "filter_select", map[string]interface{}{"index": -1}, -32000)

	if idx, ok := s.session.Selected(); !ok || idx != 2 {
		t.Errorf("failed selects should keep the selection, got (%d, %v)", idx, ok)
	}
}

func TestFilterClear(t *testing.T) {
	s := newTestServer(t)
	callToolResult(t, s, "filter_select", map[string]interface{}{"index": 1}, &previewResult{})

	var result previewResult
	callToolResult(t, s, "filter_clear", nil, &result)

	if result.Selected != nil {
		t.Errorf("selected: got %d, want null", *result.Selected)
	}
	if _, ok := s.session.Selected(); ok {
		t.Error("selection should be cleared")
	}
	if s.session.CurrentPreview() != s.session.WorkingImage() {
		t.Error("preview should be the unfiltered working image")
	}
}

func TestPhotoPreview(t *testing.T) {
	s := newTestServer(t)

	var plain previewResult
	callToolResult(t, s, "photo_preview", nil, &plain)
	if plain.Selected != nil || plain.Image == nil {
		t.Errorf("unfiltered preview: got %+v", plain)
	}

	callToolResult(t, s, "filter_select", map[string]interface{}{"index": 0}, &previewResult{})

	var filtered previewResult
	callToolResult(t, s, "photo_preview", nil, &filtered)
	if filtered.Selected == nil || *filtered.Selected != 0 || filtered.Name != "Vivid" {
		t.Errorf("filtered preview: got %+v", filtered)
	}

	want, _ := imaging.EncodePNG(s.session.CurrentPreview())
	if filtered.Image.ImageBase64 != want.ImageBase64 {
		t.Error("preview image does not match the session preview")
	}
	if filtered.Image.ImageBase64 == plain.Image.ImageBase64 {
		t.Error("filtered preview should differ from the unfiltered one")
	}
}

func TestPhotoSampleColor(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 20, 20, color.RGBA{255, 0, 0, 255})
	callToolResult(t, s, "photo_import", map[string]interface{}{"path": imgPath}, &photoImportResult{})

	var red imaging.ColorResult
	callToolResult(t, s, "photo_sample_color", map[string]interface{}{"x": 5, "y": 5}, &red)
	if red.Hex != "#FF0000" {
		t.Errorf("unfiltered color: got %s, want #FF0000", red.Hex)
	}

	// Mono
	callToolResult(t, s, "filter_select", map[string]interface{}{"index": 3}, &previewResult{})

	var gray imaging.ColorResult
	callToolResult(t, s, "photo_sample_color", map[string]interface{}{"x": 5, "y": 5}, &gray)
	if gray.RGBA.R != gray.RGBA.G || gray.RGBA.G != gray.RGBA.B {
		t.Errorf("mono sample should be gray, got %+v", gray.RGBA)
	}

	expectToolError(t, s, "photo_sample_color", map[string]interface{}{"x": 50, "y": 5}, -32000)
}

func TestPhotoSave_MatchesPreview(t *testing.T) {
	s := newTestServerWith(t, func(cfg *config.Config) { cfg.SaveFormat = "png" })
	imgPath := createTestImageFile(t, 80, 60, color.RGBA{180, 90, 40, 255})
	callToolResult(t, s, "photo_import", map[string]interface{}{"path": imgPath}, &photoImportResult{})
	callToolResult(t, s, "filter_select", map[string]interface{}{"index": 3}, &previewResult{})

	var saved library.Entry
	callToolResult(t, s, "photo_save", nil, &saved)

	snap := s.session.Snapshot()
	wantKey, _ := s.registry.KeyOf(snap.Selected)
	if saved.FilterKey != wantKey {
		t.Errorf("filter key: got %q, want %q", saved.FilterKey, wantKey)
	}

	f, err := os.Open(saved.Path)
	if err != nil {
		t.Fatalf("open saved photo: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode saved photo: %v", err)
	}
	if !imaging.NewBuffer(img).Equal(snap.Preview) {
		t.Errorf("saved pixels differ from the preview %s", snap.Preview)
	}
}

func TestPhotoSave_AndLibraryList(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 60, 40, color.RGBA{10, 120, 200, 255})
	callToolResult(t, s, "photo_import", map[string]interface{}{
		"path":   imgPath,
		"source": "camera",
	}, &photoImportResult{})
	callToolResult(t, s, "filter_select", map[string]interface{}{"index": 1}, &previewResult{})

	var saved library.Entry
	callToolResult(t, s, "photo_save", nil, &saved)

	if saved.FilterName != "Fade" || saved.FilterKey != "CIPhotoEffectFade" {
		t.Errorf("filter: got %s/%s", saved.FilterName, saved.FilterKey)
	}
	if saved.Source != "camera" || saved.Width != 60 || saved.Height != 40 {
		t.Errorf("entry: got %+v", saved)
	}
	if _, err := os.Stat(saved.Path); err != nil {
		t.Errorf("saved file missing: %v", err)
	}

	callToolResult(t, s, "filter_clear", nil, &previewResult{})
	var unfiltered library.Entry
	callToolResult(t, s, "photo_save", nil, &unfiltered)
	if unfiltered.FilterName != "" {
		t.Errorf("unfiltered save should carry no filter, got %q", unfiltered.FilterName)
	}

	var list struct {
		Photos []library.Entry `json:"photos"`
		Count  int             `json:"count"`
	}
	callToolResult(t, s, "library_list", nil, &list)
	if list.Count != 2 || len(list.Photos) != 2 {
		t.Fatalf("library count: got %d", list.Count)
	}

	ids := map[string]bool{saved.ID: true, unfiltered.ID: true}
	for _, p := range list.Photos {
		if !ids[p.ID] {
			t.Errorf("unexpected library entry %s", p.ID)
		}
	}
}
