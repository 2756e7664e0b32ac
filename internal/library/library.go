// Package library persists committed photos.
//
// Each saved photo is written as a file in the library directory and
// indexed in a SQLite database alongside the filter that produced it.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	disintegration "github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"

	"github.com/ironsheep/photo-filter-mcp/internal/imaging"
	"github.com/ironsheep/photo-filter-mcp/internal/logging"
)

// DatabaseName is the index file created inside the library directory when
// no database path is given.
const DatabaseName = "library.db"

// Photo sources
const (
	SourceLibrary = "library"
	SourceCamera  = "camera"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("photo not found")

// Options configures a Library.
type Options struct {
	// Format is "jpeg" (default) or "png".
	Format string

	// JPEGQuality is 1-100; 90 when zero.
	JPEGQuality int

	Logger *logrus.Logger

	// Now stamps saved entries; time.Now when nil.
	Now func() time.Time
}

// SaveRequest describes where a committed image came from.
type SaveRequest struct {
	FilterKey  string
	FilterName string
	Source     string
}

// Entry is one saved photo.
type Entry struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Format     string    `json:"format"`
	FilterKey  string    `json:"filter_key,omitempty"`
	FilterName string    `json:"filter_name,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Library is a directory of saved photos with a SQLite index.
// It is safe for concurrent use.
type Library struct {
	dir     string
	db      *sql.DB
	format  disintegration.Format
	quality int
	log     *logrus.Entry
	now     func() time.Time
}

// Open prepares dir and the index at dbPath, applying schema migrations.
//
// An empty dbPath places the index at dir/library.db.
func Open(ctx context.Context, dir, dbPath string, opts Options) (*Library, error) {
	if dir == "" {
		return nil, errors.New("library directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}

	if dbPath == "" {
		dbPath = filepath.Join(abs, DatabaseName)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	formatName := opts.Format
	if formatName == "" {
		formatName = "jpeg"
	}
	format, err := imaging.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	quality := opts.JPEGQuality
	if quality == 0 {
		quality = 90
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("jpeg quality must be 1-100, got %d", quality)
	}

	if err := migrateUp(dbPath); err != nil {
		return nil, err
	}

	db, err := openDB(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	l := &Library{
		dir:     abs,
		db:      db,
		format:  format,
		quality: quality,
		log:     logging.Component(opts.Logger, "library"),
		now:     now,
	}
	l.log.WithFields(logrus.Fields{"dir": abs, "database": dbPath}).Debug("library opened")
	return l, nil
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	// Single writer.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Dir returns the absolute library directory.
func (l *Library) Dir() string { return l.dir }

// Save writes buf to a new file and records it in the index.
//
// The file is written under a temporary name and renamed into place, so a
// failed save leaves neither a partial file nor an index row behind.
func (l *Library) Save(ctx context.Context, buf *imaging.Buffer, req SaveRequest) (*Entry, error) {
	if buf == nil {
		return nil, fmt.Errorf("save: %w", imaging.ErrInvalidBuffer)
	}

	entry := &Entry{
		ID:         uuid.NewString(),
		Width:      buf.Width(),
		Height:     buf.Height(),
		Format:     formatName(l.format),
		FilterKey:  req.FilterKey,
		FilterName: req.FilterName,
		Source:     req.Source,
		CreatedAt:  l.now().UTC(),
	}
	entry.Path = filepath.Join(l.dir, entry.ID+extension(l.format))

	if err := l.writeFile(entry.Path, buf); err != nil {
		return nil, err
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO photos (id, path, width, height, format, filter_key, filter_name, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Path, entry.Width, entry.Height, entry.Format,
		entry.FilterKey, entry.FilterName, entry.Source, entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		os.Remove(entry.Path)
		return nil, fmt.Errorf("failed to index photo: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"id":     entry.ID,
		"size":   buf.String(),
		"filter": entry.FilterName,
	}).Info("photo saved")
	return entry, nil
}

func (l *Library) writeFile(path string, buf *imaging.Buffer) error {
	tmp, err := os.CreateTemp(l.dir, ".save-*")
	if err != nil {
		return fmt.Errorf("failed to create photo file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Write(tmp, buf, l.format, l.quality); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store photo: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, path, width, height, format, filter_key, filter_name, source, created_at FROM photos`

// List returns all saved photos, newest first.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return entries, nil
}

// Get returns the photo with the given id, or ErrNotFound.
func (l *Library) Get(ctx context.Context, id string) (*Entry, error) {
	row := l.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// Close closes the index database.
func (l *Library) Close() error {
	return l.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var created int64
	err := s.Scan(&e.ID, &e.Path, &e.Width, &e.Height, &e.Format,
		&e.FilterKey, &e.FilterName, &e.Source, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read photo row: %w", err)
	}
	e.CreatedAt = time.Unix(0, created).UTC()
	return &e, nil
}

func formatName(f disintegration.Format) string {
	return strings.ToLower(f.String())
}

func extension(f disintegration.Format) string {
	if f == disintegration.PNG {
		return ".png"
	}
	return ".jpg"
}
