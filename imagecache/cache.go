package imagecache

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"

	cacheJpegQuality = 80
)

// Options selects a resized variant of an author image.
type Options struct {
	Width  int
	Height int
	Format string // jpeg or png; defaults to jpeg
}

func (o Options) normalized() Options {
	if o.Format != FormatPNG {
		o.Format = FormatJPEG
	}
	return o
}

func (o Options) extension() string {
	if o.Format == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// Cache stores resized author image variants on disk, keyed by author id so
// they can be purged wholesale when the source image changes or the author
// is removed.
type Cache struct {
	cacheDir string
}

// NewCache creates the cache rooted at cacheDir, creating the directory if
// needed.
func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image cache directory %s: %w", cacheDir, err)
	}
	return &Cache{cacheDir: cacheDir}, nil
}

func (c *Cache) variantPath(authorID string, opts Options) string {
	name := fmt.Sprintf("%s_%dx%d%s", authorID, opts.Width, opts.Height, opts.extension())
	return filepath.Join(c.cacheDir, name)
}

// Purge removes every cached variant for the author. Best-effort: the first
// filesystem error is returned but the author's source image is untouched.
func (c *Cache) Purge(authorID string) error {
	pattern := filepath.Join(c.cacheDir, authorID+"_*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("failed to glob image cache for author %s: %w", authorID, err)
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove cached image %s: %w", match, err)
		}
	}
	return nil
}

// Resolve returns the path of the cached variant, generating it from the
// source image on a miss.
func (c *Cache) Resolve(authorID, sourcePath string, opts Options) (string, error) {
	opts = opts.normalized()
	cached := c.variantPath(authorID, opts)
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	img, err := imaging.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to open source image %s: %w", sourcePath, err)
	}

	// imaging.Fit keeps aspect ratio; zero on one side means scale by the other
	switch {
	case opts.Width > 0 && opts.Height > 0:
		img = imaging.Fit(img, opts.Width, opts.Height, imaging.Lanczos)
	case opts.Width > 0:
		img = imaging.Resize(img, opts.Width, 0, imaging.Lanczos)
	case opts.Height > 0:
		img = imaging.Resize(img, 0, opts.Height, imaging.Lanczos)
	}

	if err := imaging.Save(img, cached, imaging.JPEGQuality(cacheJpegQuality)); err != nil {
		return "", fmt.Errorf("failed to save cached image %s: %w", cached, err)
	}
	return cached, nil
}

// Serve writes the requested variant to the response, generating it on a
// cache miss.
func (c *Cache) Serve(w http.ResponseWriter, r *http.Request, authorID, sourcePath string, opts Options) error {
	cached, err := c.Resolve(authorID, sourcePath, opts)
	if err != nil {
		return err
	}
	if strings.HasSuffix(cached, ".png") {
		w.Header().Set("Content-Type", "image/png")
	} else {
		w.Header().Set("Content-Type", "image/jpeg")
	}
	http.ServeFile(w, r, cached)
	return nil
}

// Prewarm generates the standard variants for an author image so the first
// client request is a cache hit.
func (c *Cache) Prewarm(authorID, sourcePath string, sizes []int) error {
	for _, size := range sizes {
		if _, err := c.Resolve(authorID, sourcePath, Options{Width: size, Format: FormatJPEG}); err != nil {
			return err
		}
	}
	log.Printf("imagecache: prewarmed %d variant(s) for author %s", len(sizes), authorID)
	return nil
}
