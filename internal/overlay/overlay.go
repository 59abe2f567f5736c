// Package overlay loads the still images drawn over exported video.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	// Registered decoders for overlay images.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyImage is returned for images without pixels.
var ErrEmptyImage = errors.New("overlay: image has no pixels")

// Decode reads an overlay image in any registered format and returns it
// with its format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("overlay: decode: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, "", ErrEmptyImage
	}
	return img, format, nil
}

// Load decodes the overlay image stored at path.
func Load(path string) (image.Image, string, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		return nil, "", fmt.Errorf("overlay: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}
