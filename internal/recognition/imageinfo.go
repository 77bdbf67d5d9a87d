package recognition

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInfo describes an uploaded image
type ImageInfo struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Size renders the dimensions the way the metadata sheet shows them
func (i ImageInfo) Size() string {
	return fmt.Sprintf("%d x %d", i.Width, i.Height)
}

// DecodeImageInfo reads only the image header. Supported formats are png,
// jpeg, gif, bmp, tiff and webp.
func DecodeImageInfo(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("decode image header: %w", err)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
