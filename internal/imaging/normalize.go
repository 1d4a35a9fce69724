package imaging

import (
	"errors"
	"fmt"
	"image"

	"uploadq/internal/dataurl"
)

// DefaultQuality is the encoding quality used when none is configured.
const DefaultQuality = 70

var ErrOriginalFormat = errors.New("original format is not normalized")

// Options controls a single normalization.
type Options struct {
	// MaxWidth and MaxHeight bound the output; 0 leaves an axis unconstrained.
	MaxWidth  int
	MaxHeight int
	Format    Format
	// Quality in [0,100], applied to lossy formats only.
	Quality int
	// ThumbWidth and ThumbHeight bound the thumbnail; both 0 disables it.
	ThumbWidth  int
	ThumbHeight int
}

// Result is a normalized image.
type Result struct {
	Data   string
	Width  int
	Height int
	// Size is estimated from the encoded length, not measured.
	Size  int64
	Thumb string
}

// Normalizer rotates, scales and re-encodes images.
type Normalizer struct {
	enc Encoder
}

// NewNormalizer returns a Normalizer using enc, or a CanvasEncoder when enc is nil.
func NewNormalizer(enc Encoder) *Normalizer {
	if enc == nil {
		enc = CanvasEncoder{}
	}
	return &Normalizer{enc: enc}
}

// Normalize produces the upload payload for src, which was decoded from a file
// carrying the given Exif orientation code.
func (n *Normalizer) Normalize(src image.Image, orientation int, opts Options) (*Result, error) {
	if opts.Format == FormatOriginal {
		return nil, ErrOriginalFormat
	}
	format := ParseFormat(string(opts.Format))
	quality := 100
	if format.Lossy() {
		quality = min(max(opts.Quality, 0), 100)
	}

	b := src.Bounds()
	plan := PlanFor(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight, orientation)
	data, err := n.enc.Encode(src, plan, format, quality)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	res := &Result{
		Data:   data,
		Width:  plan.CanvasWidth,
		Height: plan.CanvasHeight,
		Size:   dataurl.EstimateSize(data),
	}

	if opts.ThumbWidth > 0 || opts.ThumbHeight > 0 {
		thumbPlan := PlanFor(b.Dx(), b.Dy(), opts.ThumbWidth, opts.ThumbHeight, orientation)
		res.Thumb, err = n.enc.Encode(src, thumbPlan, format, quality)
		if err != nil {
			return nil, fmt.Errorf("encode thumbnail: %w", err)
		}
	}
	return res, nil
}
