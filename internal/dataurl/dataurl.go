// Package dataurl encodes and decodes base64 data URLs, the text-safe payload
// form used for file contents on the wire.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DefaultMime is used when a payload is encoded without a known type.
const DefaultMime = "application/octet-stream"

var ErrMalformed = errors.New("malformed data url")

// Encode returns data as "data:<mime>;base64,<payload>".
func Encode(mime string, data []byte) string {
	if mime == "" {
		mime = DefaultMime
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Decode splits a base64 data URL into its mime type and raw bytes.
func Decode(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrMalformed
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrMalformed
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrMalformed)
	}
	if mime == "" {
		mime = DefaultMime
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return mime, data, nil
}

// EstimateSize approximates the decoded size of an encoded payload by scaling
// its length by 3/4.
func EstimateSize(s string) int64 {
	return (int64(len(s))*3 + 2) / 4
}
