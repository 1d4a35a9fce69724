package imaging

import (
	"fmt"
	"image"
	"io"

	// Registered decoders for Probe and Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Probe returns the intrinsic pixel dimensions of an encoded image without
// decoding its pixels.
func Probe(r io.Reader) (int, int, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, fmt.Errorf("probe image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Decode decodes an encoded image into a pixel source.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
