package storage

import "time"

// URLOption configures URL generation.
type URLOption func(*urlOptions)

// urlOptions holds configuration for URL generation.
type urlOptions struct {
	downloadName string        // Filename for Content-Disposition: attachment
	contentType  string        // Content type the PUT must carry
	cacheControl string        // Cache-Control the PUT must carry
	expiry       time.Duration // Signed URL expiry duration
}

// DefaultURLExpiry is the default expiry for signed URLs.
const DefaultURLExpiry = 15 * time.Minute

func newURLOptions(opts ...URLOption) *urlOptions {
	o := &urlOptions{expiry: DefaultURLExpiry}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithExpiry sets the expiry duration for signed URLs.
// Non-positive durations keep the default of 15 minutes.
func WithExpiry(d time.Duration) URLOption {
	return func(o *urlOptions) {
		if d > 0 {
			o.expiry = d
		}
	}
}

// WithDownload sets the filename for the Content-Disposition: attachment header
// of a GET URL.
func WithDownload(filename string) URLOption {
	return func(o *urlOptions) {
		o.downloadName = filename
	}
}

// WithContentType binds a PUT URL to the given content type.
// The uploader must send the same Content-Type header or the signature fails.
func WithContentType(ct string) URLOption {
	return func(o *urlOptions) {
		o.contentType = ct
	}
}

// WithCacheControl binds a PUT URL to the given Cache-Control value.
func WithCacheControl(v string) URLOption {
	return func(o *urlOptions) {
		o.cacheControl = v
	}
}
