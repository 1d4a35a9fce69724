package imaging

import "math"

// Plan describes how a source image is drawn onto the output canvas.
type Plan struct {
	// Width and Height are the scaled source dimensions.
	Width  int
	Height int
	// CanvasWidth and CanvasHeight are the output dimensions; they are
	// swapped relative to Width/Height for quarter-turn orientations.
	CanvasWidth  int
	CanvasHeight int
	// Angle is the rotation in radians. Positive values turn clockwise on the
	// y-down canvas.
	Angle float64
}

// Fit scales (w, h) into (maxW, maxH) preserving the aspect ratio. A zero
// bound leaves that axis unconstrained. Width is clamped first, then height,
// and the result is truncated to integers.
func Fit(w, h, maxW, maxH int) (int, int) {
	fw, fh := float64(w), float64(h)
	mw, mh := float64(maxW), float64(maxH)
	if maxW == 0 {
		mw = fw
	}
	if maxH == 0 {
		mh = fh
	}

	if fw > mw {
		fh *= mw / fw
		fw = mw
	}
	if fh > mh {
		fw *= mh / fh
		fh = mh
	}
	return int(fw), int(fh)
}

// RotationAngle returns the rotation for an Exif orientation code. Mirrored
// codes rotate like their non-mirrored counterparts.
func RotationAngle(orientation int) float64 {
	switch orientation {
	case 3, 4:
		return math.Pi
	case 5, 6:
		return math.Pi / 2
	case 7, 8:
		return -math.Pi / 2
	default:
		return 0
	}
}

// PlanFor builds the draw plan for a w x h source scaled into the bounds and
// rotated for the given orientation. A non-empty source never plans below one
// pixel on either axis, so the plan always matches the rendered canvas.
func PlanFor(w, h, maxW, maxH, orientation int) Plan {
	sw, sh := Fit(w, h, maxW, maxH)
	if w > 0 && h > 0 {
		sw, sh = max(sw, 1), max(sh, 1)
	}
	p := Plan{
		Width:        sw,
		Height:       sh,
		CanvasWidth:  sw,
		CanvasHeight: sh,
		Angle:        RotationAngle(orientation),
	}
	if orientation > 4 {
		p.CanvasWidth, p.CanvasHeight = sh, sw
	}
	return p
}

// sinCos is math.Sincos with quarter turns snapped to exact values so pixel
// rows map onto pixel rows.
func sinCos(angle float64) (float64, float64) {
	switch angle {
	case 0:
		return 0, 1
	case math.Pi / 2:
		return 1, 0
	case -math.Pi / 2:
		return -1, 0
	case math.Pi, -math.Pi:
		return 0, -1
	}
	return math.Sincos(angle)
}
