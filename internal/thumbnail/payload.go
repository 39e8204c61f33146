package thumbnail

import "strings"

// TaskName is the job name the derivation task is registered under.
const TaskName = "derive_thumbnail"

// Queue is the River queue derivation jobs run on.
const Queue = "thumbnails"

// Suffix is appended to an original's storage key to form its thumbnail key.
const Suffix = "@thumb_256.jpg"

// MaxDimension bounds both sides of a derived thumbnail.
const MaxDimension = 256

// Payload is everything a worker needs to derive one thumbnail. The URLs are
// short-lived capabilities; the worker never touches storage credentials.
type Payload struct {
	SourceURL    string `json:"source_url"`
	DestURL      string `json:"dest_url"`
	ThumbnailKey string `json:"thumbnail_key"`
	FileID       int64  `json:"file_id"`
}

// KeyFor returns the thumbnail key of the original stored at key.
func KeyFor(key string) string {
	return key + Suffix
}

// IsThumbnailKey reports whether key names a derived thumbnail.
func IsThumbnailKey(key string) bool {
	return strings.HasSuffix(key, Suffix)
}
