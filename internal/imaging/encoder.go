package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"uploadq/internal/dataurl"
)

// Encoder renders a source image according to a plan and returns the encoded
// payload string.
type Encoder interface {
	Encode(src image.Image, plan Plan, format Format, quality int) (string, error)
}

// CanvasEncoder draws with an affine transform the way a 2D canvas does:
// translate to the canvas centre, rotate, then draw the scaled source centred
// on the origin.
type CanvasEncoder struct {
	// Interpolator defaults to draw.CatmullRom.
	Interpolator draw.Interpolator
}

var _ Encoder = CanvasEncoder{}

// Encode implements Encoder.
func (e CanvasEncoder) Encode(src image.Image, plan Plan, format Format, quality int) (string, error) {
	img := e.Render(src, plan)

	var buf bytes.Buffer
	switch format {
	case FormatWebP:
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return "", fmt.Errorf("encode webp: %w", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
	return dataurl.Encode(string(format), buf.Bytes()), nil
}

// Render draws src onto a new canvas described by plan.
func (e CanvasEncoder) Render(src image.Image, plan Plan) *image.RGBA {
	cw, ch := max(plan.CanvasWidth, 1), max(plan.CanvasHeight, 1)
	dst := image.NewRGBA(image.Rect(0, 0, cw, ch))

	b := src.Bounds()
	if b.Empty() || plan.Width < 1 || plan.Height < 1 {
		return dst
	}

	interp := e.Interpolator
	if interp == nil {
		interp = draw.CatmullRom
	}
	interp.Transform(dst, canvasTransform(b, plan), src, b, draw.Src, nil)
	return dst
}

// canvasTransform maps source pixel coordinates to canvas coordinates.
func canvasTransform(b image.Rectangle, plan Plan) f64.Aff3 {
	sin, cos := sinCos(plan.Angle)
	sx := float64(plan.Width) / float64(b.Dx())
	sy := float64(plan.Height) / float64(b.Dy())

	// Scaled source centred on the origin.
	ox := -float64(b.Min.X)*sx - float64(plan.Width)/2
	oy := -float64(b.Min.Y)*sy - float64(plan.Height)/2

	tx := float64(plan.CanvasWidth) / 2
	ty := float64(plan.CanvasHeight) / 2

	return f64.Aff3{
		cos * sx, -sin * sy, cos*ox - sin*oy + tx,
		sin * sx, cos * sy, sin*ox + cos*oy + ty,
	}
}
