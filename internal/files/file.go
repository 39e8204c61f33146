package files

import "time"

// File is one finalized storage object.
type File struct {
	UploadedAt    time.Time
	ThumbnailKey  *string
	ThumbnailSize *int64
	// ThumbnailFailedAt is set when the derivation was rejected for good.
	ThumbnailFailedAt *time.Time
	StorageKey        string
	Filename          string
	ContentType       string
	IntegrityTag      string
	ID                int64
	OwnerID           int64
	Size              int64
}

// VisibleTo reports whether c may see f.
func (f File) VisibleTo(c Caller) bool {
	return c.Admin || f.OwnerID == c.ID
}

// Caller is the resolved identity behind a request.
type Caller struct {
	ID    int64
	Admin bool
}

// View is the caller-facing shape of a File.
type View struct {
	UploadedAt   time.Time `json:"uploadedAt"`
	Key          string    `json:"key"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"contentType"`
	IntegrityTag string    `json:"integrityTag"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"ownerId"`
	Size         int64     `json:"size"`

	ThumbnailFailed bool `json:"thumbnailFailed,omitempty"`
}

// FinalizeInput is what a client reports after uploading an object.
type FinalizeInput struct {
	Key         string
	Filename    string
	ContentType string
}

// FinalizeResult carries the reconciled record and whether it was created.
type FinalizeResult struct {
	File    View
	Created bool
}

// Status is "created" for a first finalize and "ok" for a re-finalize.
func (r FinalizeResult) Status() string {
	if r.Created {
		return "created"
	}
	return "ok"
}

// UploadTicket is a capability to PUT exactly one object.
type UploadTicket struct {
	ExpiresAt time.Time `json:"expiresAt"`
	URL       string    `json:"uploadUrl"`
	Key       string    `json:"key"`
}
