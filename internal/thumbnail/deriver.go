package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/dmitrymomot/filevault/pkg/logger"
	"github.com/dmitrymomot/filevault/pkg/sniff"
)

// CacheControl is sent with every derivative. Its bytes never change once
// written, so clients may cache it forever.
const CacheControl = "public, max-age=31536000, immutable"

// ContentType of every derivative.
const ContentType = "image/jpeg"

var errTooLarge = errors.New("source exceeds size limit")

// Deriver turns the bytes behind a read capability into a thumbnail written
// through a write capability. It holds no per-job state and is safe for
// concurrent use.
type Deriver struct {
	client *http.Client
	logger *slog.Logger
	decode DecodeOptions
	cfg    Config
}

// DeriverOption configures a Deriver.
type DeriverOption func(*Deriver)

// WithHTTPClient replaces the client used for both capability URLs.
func WithHTTPClient(c *http.Client) DeriverOption {
	return func(d *Deriver) {
		if c != nil {
			d.client = c
		}
	}
}

// WithLogger sets the logger for unexpected failures.
func WithLogger(l *slog.Logger) DeriverOption {
	return func(d *Deriver) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDeriver creates a Deriver.
func NewDeriver(cfg Config, opts ...DeriverOption) *Deriver {
	cfg.applyDefaults()
	d := &Deriver{
		client: &http.Client{},
		logger: logger.NewNope(),
		cfg:    cfg,
		decode: DecodeOptions{MaxPixels: cfg.MaxPixels, AutoOrient: true},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Derive runs the whole pipeline once. It never panics and never retries;
// every failure comes back as an Outcome with a reason code.
func (d *Deriver) Derive(ctx context.Context, p Payload) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = unexpected(fmt.Errorf("panic: %v", r))
			d.logger.ErrorContext(ctx, "thumbnail derivation panicked",
				slog.Int64("file_id", p.FileID),
				slog.String("thumbnail_key", p.ThumbnailKey),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	data, err := d.fetch(ctx, p.SourceURL)
	switch {
	case errors.Is(err, errTooLarge):
		return badContent("oversize")
	case err != nil:
		return httpFailure(err)
	}

	// Error pages from an expired or denied capability arrive as markup with
	// a 2xx status on some gateways; reject before any decoder sees them.
	if kind := sniff.Detect(data); !kind.IsImage() {
		return badContent(kind.String())
	}

	if _, _, err := checkStructure(data, d.decode); err != nil {
		return unidentified(err)
	}

	img, err := decode(data, d.decode)
	if err != nil {
		return unidentified(err)
	}

	encoded, err := encodeJPEG(fit(img, MaxDimension), d.cfg.Quality)
	if err != nil {
		return unexpected(fmt.Errorf("encode: %w", err))
	}

	if err := d.upload(ctx, p.DestURL, encoded); err != nil {
		return httpFailure(err)
	}

	return succeeded(p.ThumbnailKey, int64(len(encoded)))
}

func (d *Deriver) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("GET source: status %d", resp.StatusCode)
	}
	if resp.ContentLength > d.cfg.MaxBytes {
		return nil, errTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if int64(len(data)) > d.cfg.MaxBytes {
		return nil, errTooLarge
	}
	return data, nil
}

func (d *Deriver) upload(ctx context.Context, url string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Cache-Control", CacheControl)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("PUT derivative: status %d", resp.StatusCode)
	}
	return nil
}
