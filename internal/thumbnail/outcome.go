package thumbnail

import (
	"errors"
	"fmt"
	"net/url"
)

// Failure classes. Outcome.Err wraps exactly one of them.
var (
	ErrBadContent        = errors.New("thumbnail: bad content")
	ErrUnidentifiedImage = errors.New("thumbnail: unidentified image")
	ErrHTTP              = errors.New("thumbnail: http error")
	ErrUnexpected        = errors.New("thumbnail: unexpected error")
)

// ReasonUnidentifiedImage is the reason of a payload that sniffs as an image
// but fails structural validation or decoding.
const ReasonUnidentifiedImage = "unidentified_image"

// Outcome is the structured result of one derivation.
type Outcome struct {
	Err          error  `json:"-"`
	ThumbnailKey string `json:"thumbnail_key,omitempty"`
	Reason       string `json:"reason,omitempty"`
	ByteSize     int64  `json:"byte_size,omitempty"`
	OK           bool   `json:"ok"`
}

func succeeded(key string, size int64) Outcome {
	return Outcome{OK: true, ThumbnailKey: key, ByteSize: size}
}

func badContent(kind string) Outcome {
	return Outcome{
		Reason: "bad_content:" + kind,
		Err:    fmt.Errorf("%w: sniffed %s", ErrBadContent, kind),
	}
}

func unidentified(cause error) Outcome {
	return Outcome{
		Reason: ReasonUnidentifiedImage,
		Err:    errors.Join(ErrUnidentifiedImage, cause),
	}
}

func httpFailure(cause error) Outcome {
	cause = redactURL(cause)
	return Outcome{
		Reason: "http_error: " + cause.Error(),
		Err:    errors.Join(ErrHTTP, cause),
	}
}

// redactURL drops the request URL from transport errors. Capability URLs
// carry their signature in the query string.
func redactURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

func unexpected(cause error) Outcome {
	return Outcome{
		Reason: "unexpected_error: " + cause.Error(),
		Err:    errors.Join(ErrUnexpected, cause),
	}
}

// Permanent reports whether running the same payload again cannot succeed.
// Transport and unexpected failures may be transient; content failures are not.
func (o Outcome) Permanent() bool {
	return errors.Is(o.Err, ErrBadContent) || errors.Is(o.Err, ErrUnidentifiedImage)
}

// Label is a low-cardinality name of the outcome class, used as a metric label.
func (o Outcome) Label() string {
	switch {
	case o.OK:
		return "ok"
	case errors.Is(o.Err, ErrBadContent):
		return "bad_content"
	case errors.Is(o.Err, ErrUnidentifiedImage):
		return "unidentified_image"
	case errors.Is(o.Err, ErrHTTP):
		return "http_error"
	default:
		return "unexpected_error"
	}
}
