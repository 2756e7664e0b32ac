package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ImageCache provides thread-safe caching of decoded photos to avoid redundant disk reads.
//
// The cache stores Buffers keyed by their file path, together with the file's
// size and modification time. A later Load() for the same path returns the
// cached Buffer when the file is unchanged and decodes it again otherwise, so
// re-importing a photo skips the decode while an overwritten capture is picked
// up fresh. Because Buffers are immutable, the same value can be handed to
// several sessions at once.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until removed via Evict() or Clear(), or
// until their file disappears. The server clears the cache on shutdown.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]cachedImage
}

type cachedImage struct {
	buf     *Buffer
	size    int64
	modTime time.Time
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]cachedImage),
	}
}

// Load retrieves a photo from the cache or decodes it from disk if not cached.
//
// Parameters:
//   - path: Absolute or relative file path. Supported formats are PNG, JPEG,
//     GIF, BMP, TIFF and WebP.
//
// Returns:
//   - *Buffer: The decoded photo. JPEG EXIF orientation is applied, so camera
//     captures come out upright.
//   - error: Non-nil if the file cannot be opened or decoded.
//
// The photo is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
func (c *ImageCache) Load(path string) (*Buffer, error) {
	buf, _, err := c.load(path)
	return buf, err
}

func (c *ImageCache) load(path string) (*Buffer, os.FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		c.Evict(path)
		return nil, nil, fmt.Errorf("failed to load image: %w", err)
	}

	c.mu.RLock()
	entry, ok := c.images[path]
	c.mu.RUnlock()
	if ok && entry.size == stat.Size() && entry.modTime.Equal(stat.ModTime()) {
		return entry.buf, stat, nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		c.Evict(path)
		return nil, nil, fmt.Errorf("failed to load image: %w", err)
	}

	buf := NewBuffer(img)
	c.mu.Lock()
	c.images[path] = cachedImage{buf: buf, size: stat.Size(), modTime: stat.ModTime()}
	c.mu.Unlock()

	return buf, stat, nil
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cachedImage)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
// After eviction, the next Load() call for this path will read from disk.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// DecodeFormat reads a photo from r, applying EXIF orientation when present,
// and reports the format detected from its content ("png", "jpeg", "gif",
// "bmp", "tiff" or "webp").
func DecodeFormat(r io.Reader) (*Buffer, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return NewBuffer(img), format, nil
}

// ImageInfo contains metadata about an imported photo.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the image format: "png", "jpeg", "gif", "bmp", "tiff",
	// "webp" or "unknown". Photos imported from a path take it from the file
	// extension; inline data takes it from the decoded content.
	Format string `json:"format"`

	// FileSizeBytes is the size of the image file on disk, or of the decoded
	// inline data, in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads a photo through the cache and returns it along with its metadata.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - path: Path to the image file.
//
// Returns:
//   - *Buffer: The decoded photo.
//   - *ImageInfo: Metadata about the original file (pre-resize dimensions).
//   - error: Non-nil if the image cannot be loaded or the file cannot be stat'd.
func LoadImageInfo(cache *ImageCache, path string) (*Buffer, *ImageInfo, error) {
	buf, stat, err := cache.load(path)
	if err != nil {
		return nil, nil, err
	}

	return buf, &ImageInfo{
		Width:         buf.Width(),
		Height:        buf.Height(),
		Format:        formatFromExt(path),
		FileSizeBytes: stat.Size(),
	}, nil
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	case ".webp":
		return "webp"
	}
	return "unknown"
}
