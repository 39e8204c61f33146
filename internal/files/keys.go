package files

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/filevault/internal/thumbnail"
)

// MaxFilenameBytes caps the filename part of a storage key.
const MaxFilenameBytes = 200

// BuildKey returns a fresh key {ownerID}/{uuid-hex}-{filename} for an upload.
func BuildKey(ownerID int64, filename string) (string, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return "", ErrInvalidFilename
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d/%s-%s", ownerID, suffix, name), nil
}

// OwnsKey reports whether key lies in ownerID's namespace.
func OwnsKey(ownerID int64, key string) bool {
	prefix := strconv.FormatInt(ownerID, 10) + "/"
	return len(key) > len(prefix) && strings.HasPrefix(key, prefix)
}

// validateKey rejects keys that can never name an original upload.
func validateKey(key string) error {
	switch {
	case key == "", strings.TrimSpace(key) != key:
		return ErrInvalidKey
	case thumbnail.IsThumbnailKey(key):
		return fmt.Errorf("%w: derivative keys cannot be finalized", ErrInvalidKey)
	}
	return nil
}

// SanitizeFilename reduces name to a safe base name: path elements dropped,
// anything outside [A-Za-z0-9._-] replaced by '_', leading dots stripped and
// the result truncated to MaxFilenameBytes. It returns "" when nothing usable
// remains.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if len(out) > MaxFilenameBytes {
		out = out[:MaxFilenameBytes]
	}
	if strings.Trim(out, "_") == "" {
		return ""
	}
	return out
}
