// Package sniff classifies binary payloads by their leading byte signature.
//
// It is a fast rejection gate in front of image decoders, not a validator:
// a payload that sniffs as JPEG may still be truncated or corrupt.
package sniff

import "bytes"

// Kind is the apparent format of a payload.
type Kind string

// Recognized kinds.
const (
	Unknown Kind = "unknown"
	JPEG    Kind = "jpeg"
	PNG     Kind = "png"
	WEBP    Kind = "webp"
	HEIF    Kind = "avif/heif"
	Markup  Kind = "xml/html"
)

// HeaderSize is the number of leading bytes Detect looks at.
const HeaderSize = 12

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// isoBrands are the ISO-BMFF major brands of still-image containers.
var isoBrands = map[string]struct{}{
	"avif": {}, "avis": {},
	"heic": {}, "heix": {}, "hevc": {}, "hevx": {},
	"heim": {}, "heis": {}, "mif1": {}, "msf1": {},
}

// Detect returns the kind of b judged from at most its first HeaderSize bytes.
func Detect(b []byte) Kind {
	if len(b) > HeaderSize {
		b = b[:HeaderSize]
	}

	switch {
	case bytes.HasPrefix(b, jpegMagic):
		return JPEG
	case bytes.HasPrefix(b, pngMagic):
		return PNG
	case len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP":
		return WEBP
	case len(b) >= 12 && string(b[4:8]) == "ftyp" && isISOImageBrand(b[8:12]):
		return HEIF
	case isMarkup(b):
		return Markup
	}
	return Unknown
}

// IsImage reports whether k is one of the raster image kinds.
func (k Kind) IsImage() bool {
	switch k {
	case JPEG, PNG, WEBP, HEIF:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

func isISOImageBrand(brand []byte) bool {
	_, ok := isoBrands[string(brand)]
	return ok
}

// isMarkup matches XML and HTML documents, including the error pages object
// stores return for expired or denied URLs. Leading whitespace and a UTF-8
// byte order mark are skipped.
func isMarkup(b []byte) bool {
	b = bytes.TrimPrefix(b, utf8BOM)
	b = bytes.TrimLeft(b, " \t\r\n")
	return len(b) > 0 && b[0] == '<'
}
