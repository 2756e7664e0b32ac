package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-filter-mcp/internal/config"
	"github.com/ironsheep/photo-filter-mcp/internal/filter"
	"github.com/ironsheep/photo-filter-mcp/internal/imaging"
	"github.com/ironsheep/photo-filter-mcp/internal/library"
	"github.com/ironsheep/photo-filter-mcp/internal/logging"
	"github.com/ironsheep/photo-filter-mcp/internal/session"
	"github.com/ironsheep/photo-filter-mcp/internal/thumbnail"
)

// Name is reported in the initialize handshake.
const Name = "photo-filter-mcp"

// Initial working image shown before the first import.
const (
	placeholderWidth  = 640
	placeholderHeight = 480
)

// Server handles MCP protocol communication
type Server struct {
	version  string
	log      *logrus.Entry
	cache    *imaging.ImageCache
	registry *filter.Registry
	thumbs   *thumbnail.Cache
	session  *session.Session
	library  *library.Library

	maxRequest int // largest accepted request line in bytes

	mu     sync.Mutex
	source string // where the current working image came from
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a server from cfg: the filter catalog, its thumbnails, an edit
// session over a placeholder image and the photo library.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger, version string) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Discard()
	}

	log := logging.Component(logger, "server")
	registry := filter.DefaultRegistry()

	thumbs, err := thumbnail.New(registry, imaging.SampleImage(cfg.ThumbnailSize, cfg.ThumbnailSize), logger)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(registry, imaging.SampleImage(placeholderWidth, placeholderHeight), session.Options{
		MaxDimension: cfg.MaxDimension,
		Logger:       logger,
		OnUpdate: func(snap session.Snapshot) {
			log.WithFields(logrus.Fields{
				"version":  snap.Version,
				"selected": snap.Selected,
				"preview":  snap.Preview.String(),
			}).Debug("preview updated")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start edit session: %w", err)
	}

	lib, err := library.Open(ctx, cfg.LibraryDir, cfg.DatabasePath, library.Options{
		Format:      cfg.SaveFormat,
		JPEGQuality: cfg.JPEGQuality,
		Logger:      logger,
	})
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to open photo library: %w", err)
	}

	maxRequest := cfg.MaxRequestBytes
	if maxRequest <= 0 {
		maxRequest = config.DefaultMaxRequestBytes
	}

	return &Server{
		version:    version,
		log:        log,
		cache:      imaging.NewImageCache(),
		registry:   registry,
		thumbs:     thumbs,
		session:    sess,
		library:    lib,
		maxRequest: maxRequest,
	}, nil
}

// Close stops the edit session and closes the library.
func (s *Server) Close() error {
	s.cache.Clear()
	s.session.Close()
	return s.library.Close()
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// errRequestTooLarge reports a request line longer than the configured limit.
var errRequestTooLarge = errors.New("request too large")

// Serve processes newline-delimited JSON-RPC requests from in until EOF or
// ctx is done, writing one response line per request to out. A line longer
// than the request limit is answered with -32602 and skipped.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReaderSize(in, 64*1024)
	encoder := json.NewEncoder(out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := readLine(reader, s.maxRequest)
		if errors.Is(err, errRequestTooLarge) {
			s.log.WithField("limit", s.maxRequest).Warn("request too large")
			resp := s.errorResponse(nil, -32602, "Invalid params",
				fmt.Sprintf("request exceeds %d bytes", s.maxRequest))
			if err := encoder.Encode(resp); err != nil {
				s.log.WithError(err).Error("failed to encode response")
			}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read error: %w", err)
		}

		if line = bytes.TrimSpace(line); len(line) > 0 {
			s.serveLine(ctx, line, encoder)
		}

		if err != nil {
			return nil
		}
	}
}

func (s *Server) serveLine(ctx context.Context, line []byte, encoder *json.Encoder) {
	var req MCPRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.WithError(err).Warn("failed to parse request")
		return
	}

	resp := s.handleRequest(ctx, &req)
	if resp != nil {
		if err := encoder.Encode(resp); err != nil {
			s.log.WithError(err).Error("failed to encode response")
		}
	}
}

// readLine returns the next line without its newline. A line over limit
// bytes is consumed through its newline and reported as errRequestTooLarge.
// At end of input it returns any trailing partial line along with io.EOF.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLong := false

	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > limit {
				tooLong = true
				line = nil
			}
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err != nil:
			if tooLong {
				return nil, errRequestTooLarge
			}
			return line, err
		}

		if tooLong {
			return nil, errRequestTooLarge
		}
		return bytes.TrimRight(line, "\r\n"), nil
	}
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.log.WithField("method", req.Method).Debug("request")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": s.version,
			},
		},
	}
}

// Diagnostics summarizes server readiness.
type Diagnostics struct {
	Filters     int
	Degraded    []string // filters whose thumbnail fell back to the sample
	Working     string
	LibraryDir  string
	SavedPhotos int
}

// Diagnostics renders the thumbnails and reads the library index.
func (s *Server) Diagnostics(ctx context.Context) (*Diagnostics, error) {
	d := &Diagnostics{
		Filters:    s.registry.Count(),
		Working:    s.session.WorkingImage().String(),
		LibraryDir: s.library.Dir(),
	}
	for _, i := range s.thumbs.Degraded() {
		name, _ := s.registry.NameOf(i)
		d.Degraded = append(d.Degraded, name)
	}

	saved, err := s.library.List(ctx)
	if err != nil {
		return d, err
	}
	d.SavedPhotos = len(saved)
	return d, nil
}
