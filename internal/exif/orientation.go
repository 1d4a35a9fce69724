// Package exif extracts the orientation code from JPEG Exif metadata.
package exif

import "encoding/binary"

const (
	// NotJPEG is returned when the buffer does not start with the JPEG SOI marker.
	NotJPEG = -2
	// NotFound is returned when no orientation tag exists or the metadata is malformed.
	NotFound = -1

	// Default is the orientation to assume when none could be decoded.
	Default = 1
)

const (
	markerSOI  = 0xFFD8
	markerAPP1 = 0xFFE1

	exifSignature  = 0x45786966 // "Exif"
	littleEndianBO = 0x4949     // "II"

	tagOrientation = 0x0112
	ifdEntrySize   = 12
)

// view is a bounds-checked big/little endian reader over a byte slice.
type view []byte

func (v view) uint16(off int, order binary.ByteOrder) (int, bool) {
	if off < 0 || off+2 > len(v) {
		return 0, false
	}
	return int(order.Uint16(v[off:])), true
}

func (v view) uint32(off int, order binary.ByteOrder) (int, bool) {
	if off < 0 || off+4 > len(v) {
		return 0, false
	}
	return int(order.Uint32(v[off:])), true
}

// Orientation returns the Exif orientation code (1..8) stored in a JPEG
// buffer, NotJPEG when the buffer is not a JPEG, or NotFound when the tag is
// absent or the marker stream is malformed. It never panics on short or
// corrupt input.
func Orientation(buf []byte) int {
	v := view(buf)
	be := binary.BigEndian

	if soi, ok := v.uint16(0, be); !ok || soi != markerSOI {
		return NotJPEG
	}

	offset := 2
	for offset < len(v) {
		// A segment length of 8 or less cannot hold anything useful.
		if l, ok := v.uint16(offset+2, be); !ok || l <= 8 {
			return NotFound
		}

		marker, _ := v.uint16(offset, be)
		offset += 2

		switch {
		case marker == markerAPP1:
			return orientationFromAPP1(v, offset)
		case marker&0xFF00 != 0xFF00:
			return NotFound
		default:
			l, _ := v.uint16(offset, be)
			offset += l
		}
	}
	return NotFound
}

// orientationFromAPP1 reads the first IFD of an APP1 segment whose length
// field starts at offset.
func orientationFromAPP1(v view, offset int) int {
	be := binary.BigEndian

	offset += 2
	if sig, ok := v.uint32(offset, be); !ok || sig != exifSignature {
		return NotFound
	}

	// "Exif\0\0" then the TIFF header.
	offset += 6
	bo, ok := v.uint16(offset, be)
	if !ok {
		return NotFound
	}
	var order binary.ByteOrder = binary.BigEndian
	if bo == littleEndianBO {
		order = binary.LittleEndian
	}

	ifd, ok := v.uint32(offset+4, order)
	if !ok {
		return NotFound
	}
	offset += ifd

	count, ok := v.uint16(offset, order)
	if !ok {
		return NotFound
	}
	offset += 2

	for i := 0; i < count; i++ {
		entry := offset + i*ifdEntrySize
		tag, ok := v.uint16(entry, order)
		if !ok {
			return NotFound
		}
		if tag == tagOrientation {
			value, ok := v.uint16(entry+8, order)
			if !ok {
				return NotFound
			}
			return value
		}
	}
	return NotFound
}

// Normalize clamps a decoded value to a usable orientation code.
func Normalize(code int) int {
	if code < 1 || code > 8 {
		return Default
	}
	return code
}
