package imagecache

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
)

const (
	downloadTimeout   = 30 * time.Second
	maxImageBytes     = 32 << 20 // 32 MiB
	savedImageQuality = 90
)

// Downloader fetches author images from remote URLs into the local image
// store, normalizing EXIF orientation so later resizes never produce rotated
// output.
type Downloader struct {
	imagesDir string
	client    *http.Client
}

// NewDownloader creates a downloader saving into imagesDir, creating the
// directory if needed.
func NewDownloader(imagesDir string) (*Downloader, error) {
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image storage directory %s: %w", imagesDir, err)
	}
	return &Downloader{
		imagesDir: imagesDir,
		client:    &http.Client{Timeout: downloadTimeout},
	}, nil
}

// SaveAuthorImage downloads the image at url and saves it as the author's
// source image, returning the saved path.
func (d *Downloader) SaveAuthorImage(authorID, url string) (string, error) {
	resp, err := d.client.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download image from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download from %s returned status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read image body from %s: %w", url, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode downloaded image from %s: %w", url, err)
	}
	img = normalizeOrientation(data, img)

	filename := fmt.Sprintf("%s_%s.jpg", authorID, uuid.NewString())
	savedPath := filepath.Join(d.imagesDir, filename)
	if err := imaging.Save(img, savedPath, imaging.JPEGQuality(savedImageQuality)); err != nil {
		return "", fmt.Errorf("failed to save author image %s: %w", savedPath, err)
	}
	return savedPath, nil
}

// RemoveFile deletes a stored author image file
func (d *Downloader) RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image file %s: %w", path, err)
	}
	return nil
}

// normalizeOrientation applies the EXIF orientation tag, if any, to the
// decoded image. Images without EXIF data pass through unchanged.
func normalizeOrientation(raw []byte, img image.Image) image.Image {
	meta, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return img
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return img
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return img
	}

	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
