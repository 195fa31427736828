package media

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

const (
	defaultThumbnailSize    = 300
	defaultThumbnailQuality = 85
)

// Thumbnailer produces square cover thumbnails for album grids. Output is
// JPEG except for images with transparency, which stay PNG.
type Thumbnailer struct {
	size    int
	quality int
}

func NewThumbnailer() *Thumbnailer {
	return &Thumbnailer{
		size:    defaultThumbnailSize,
		quality: defaultThumbnailQuality,
	}
}

func NewThumbnailerWithSize(size int) *Thumbnailer {
	if size <= 0 {
		size = defaultThumbnailSize
	}
	return &Thumbnailer{
		size:    size,
		quality: defaultThumbnailQuality,
	}
}

// Generate reads one image and returns the encoded thumbnail bytes with the
// output format ("jpeg" or "png").
func (t *Thumbnailer) Generate(r io.Reader) ([]byte, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Thumbnail(img, t.size, t.size, imaging.Lanczos)

	var buf bytes.Buffer
	switch format {
	case "png", "gif":
		if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
			return nil, "", fmt.Errorf("failed to encode thumbnail: %w", err)
		}
		return buf.Bytes(), "png", nil
	default:
		if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(t.quality)); err != nil {
			return nil, "", fmt.Errorf("failed to encode thumbnail: %w", err)
		}
		return buf.Bytes(), "jpeg", nil
	}
}
