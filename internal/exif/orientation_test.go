package exif

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

type ifdEntry struct {
	tag   uint16
	value uint16
}

// exifJPEG builds a minimal JPEG whose only segment is an Exif APP1 holding
// the given IFD0 entries.
func exifJPEG(order binary.ByteOrder, entries ...ifdEntry) []byte {
	tiff := make([]byte, 8)
	if order == binary.LittleEndian {
		copy(tiff, "II")
	} else {
		copy(tiff, "MM")
	}
	order.PutUint16(tiff[2:], 42)
	order.PutUint32(tiff[4:], 8)

	ifd := make([]byte, 2+len(entries)*12+4)
	order.PutUint16(ifd, uint16(len(entries)))
	for i, e := range entries {
		p := ifd[2+i*12:]
		order.PutUint16(p, e.tag)
		order.PutUint16(p[2:], 3)
		order.PutUint32(p[4:], 1)
		order.PutUint16(p[8:], e.value)
	}

	body := append([]byte("Exif\x00\x00"), tiff...)
	body = append(body, ifd...)

	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(body)+2))

	out := []byte{0xFF, 0xD8}
	out = append(out, seg...)
	return append(out, body...)
}

func TestOrientation(t *testing.T) {
	jfif := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	jfif = append(jfif, []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")...)
	dqt := []byte{0xFF, 0xDB, 0x00, 0x43}
	dqt = append(dqt, make([]byte, 0x41)...)
	plainJPEG := append(append([]byte{}, jfif...), dqt...)

	tests := []struct {
		name string
		buf  []byte
		want int
	}{
		{name: "empty buffer", buf: nil, want: NotJPEG},
		{name: "png signature", buf: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}, want: NotJPEG},
		{name: "single byte", buf: []byte{0xFF}, want: NotJPEG},
		{name: "soi only", buf: []byte{0xFF, 0xD8}, want: NotFound},
		{name: "jpeg without exif", buf: plainJPEG, want: NotFound},
		{name: "short segment length", buf: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x08, 0, 0, 0, 0, 0, 0}, want: NotFound},
		{name: "marker without 0xFF prefix", buf: []byte{0xFF, 0xD8, 0x12, 0x34, 0x00, 0x10, 0, 0}, want: NotFound},
		{name: "app1 without exif signature", buf: []byte{0xFF, 0xD8, 0xFF, 0xE1, 0x00, 0x10, 'h', 't', 't', 'p', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, want: NotFound},
		{name: "little endian orientation 6", buf: exifJPEG(binary.LittleEndian, ifdEntry{tagOrientation, 6}), want: 6},
		{name: "big endian orientation 8", buf: exifJPEG(binary.BigEndian, ifdEntry{tagOrientation, 8}), want: 8},
		{
			name: "orientation after other tags",
			buf:  exifJPEG(binary.LittleEndian, ifdEntry{0x010F, 7}, ifdEntry{0x0110, 7}, ifdEntry{tagOrientation, 3}),
			want: 3,
		},
		{name: "exif without orientation", buf: exifJPEG(binary.BigEndian, ifdEntry{0x010F, 1}), want: NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Orientation(tt.buf))
		})
	}
}

func TestOrientation_TruncatedNeverPanics(t *testing.T) {
	full := exifJPEG(binary.LittleEndian, ifdEntry{0x010F, 1}, ifdEntry{tagOrientation, 5})
	assert.Equal(t, 5, Orientation(full))

	for n := 0; n < len(full); n++ {
		assert.NotPanics(t, func() {
			got := Orientation(full[:n])
			assert.True(t, got == 5 || got < 1, "prefix of %d bytes gave %d", n, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 1, Normalize(NotJPEG))
	assert.Equal(t, 1, Normalize(NotFound))
	assert.Equal(t, 1, Normalize(0))
	assert.Equal(t, 1, Normalize(9))
	for c := 1; c <= 8; c++ {
		assert.Equal(t, c, Normalize(c))
	}
}
