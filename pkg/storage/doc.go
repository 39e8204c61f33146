// Package storage is the object capability provider over S3-compatible storage.
//
// The server never streams file bytes itself. Clients and workers talk to the
// object store directly through short-lived pre-signed URLs, and the server only
// reads object metadata to reconcile what a client claims it uploaded.
//
// # Basic Usage
//
//	store, err := storage.New(storage.Config{
//		Bucket:    "uploads",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("S3_ACCESS_KEY_ID"),
//		SecretKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Capability to upload exactly one object.
//	putURL, err := store.PresignPut(ctx, key,
//		storage.WithContentType("image/jpeg"),
//		storage.WithExpiry(time.Hour),
//	)
//
//	// Authoritative metadata after the client reports completion.
//	info, err := store.Head(ctx, key)
//	switch {
//	case errors.Is(err, storage.ErrNotFound):
//		// nothing was uploaded
//	case errors.Is(err, storage.ErrAccessDenied):
//		// bucket policy forbids reading the key
//	}
//
// # Errors
//
// All S3 failures are normalized to the package sentinels. Use errors.Is with
// ErrNotFound and ErrAccessDenied; any other failure wraps the operation's own
// sentinel (ErrHeadFailed, ErrDeleteFailed, ErrPresignFailed) and should be
// treated as retryable.
package storage
