// Package imaging normalizes images before upload: it rotates them according
// to their Exif orientation, scales them into bounds and re-encodes them.
package imaging

// Format is the encoding of a normalized image.
type Format string

const (
	// FormatOriginal skips normalization and uploads the file bytes as-is.
	FormatOriginal Format = "original"
	FormatJPEG     Format = "image/jpeg"
	FormatWebP     Format = "image/webp"
)

// ParseFormat maps a configured value to a Format. Unknown values fall back
// to JPEG.
func ParseFormat(s string) Format {
	switch f := Format(s); f {
	case FormatOriginal, FormatJPEG, FormatWebP:
		return f
	default:
		return FormatJPEG
	}
}

// Ext returns the file extension for encoded output.
func (f Format) Ext() string {
	if f == FormatWebP {
		return "webp"
	}
	return "jpg"
}

// Lossy reports whether quality applies to the format.
func (f Format) Lossy() bool {
	return f == FormatJPEG || f == FormatWebP
}
