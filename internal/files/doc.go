// Package files owns file records: finalization of direct-to-store uploads,
// listing, lookup, deletion and the thumbnail repair sweep.
//
// Clients upload straight to object storage with a URL from PresignUpload and
// then call Finalize with the key. Finalize trusts the object store, not the
// client, for size, content type and integrity tag, upserts the record keyed
// by storage key and, for images, enqueues a thumbnail job once the upsert has
// committed. Lookups by id collapse "not yours" into ErrNotFound.
package files
