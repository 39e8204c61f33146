package storage

import "strings"

// MIMEOctetStream is the generic content type used when neither the store nor
// the client supplies one.
const MIMEOctetStream = "application/octet-stream"

// vectorImageTypes are image/* types that are markup, not raster data.
var vectorImageTypes = map[string]struct{}{
	"image/svg+xml": {},
}

// NormalizeMIME extracts the base MIME type, removing parameters like charset.
// Returns the lowercase MIME type.
func NormalizeMIME(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return strings.TrimSpace(strings.ToLower(mimeType))
}

// IsImageMIME reports whether the MIME type names a raster image.
func IsImageMIME(mimeType string) bool {
	mt := NormalizeMIME(mimeType)
	if !strings.HasPrefix(mt, "image/") || len(mt) == len("image/") {
		return false
	}
	_, vector := vectorImageTypes[mt]
	return !vector
}

// ResolveContentType picks the authoritative content type: the stored one
// when present, else the claimed one, else MIMEOctetStream.
func ResolveContentType(stored, claimed string) string {
	if ct := strings.TrimSpace(stored); ct != "" {
		return ct
	}
	if ct := strings.TrimSpace(claimed); ct != "" {
		return ct
	}
	return MIMEOctetStream
}
