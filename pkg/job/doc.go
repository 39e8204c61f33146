// Package job runs background tasks on River, a Postgres-native queue.
//
// Tasks are plain structs with Name() and Handle(ctx, payload) methods. The
// payload type is inferred from the Handle signature and travels as JSON, so
// producers and consumers only share the payload struct, never a function.
//
//	type DeriveThumbnail struct{ ... }
//
//	func (t *DeriveThumbnail) Name() string { return "derive_thumbnail" }
//	func (t *DeriveThumbnail) Handle(ctx context.Context, p Payload) error { ... }
//
//	manager, err := job.NewManager(pool,
//	    job.WithTask(task),
//	    job.WithScheduledTask(sweep),
//	    job.WithMaxWorkers(8),
//	    job.WithLogger(log),
//	)
//
// Processes that only produce jobs use an Enqueuer, which creates an
// insert-only River client:
//
//	enq, err := job.NewEnqueuer(pool, job.WithEnqueuerLogger(log))
//	err = enq.Enqueue(ctx, "derive_thumbnail", payload, job.MaxAttempts(5))
//
// # Failure semantics
//
// Delivery is at-least-once. A task that returns an error is retried with
// River's backoff until its attempts are exhausted. Wrap an error with Cancel
// to stop retrying a job whose failure is permanent.
//
// # Migrations
//
// Migrate applies River's own schema (river_job, river_leader, ...) and must
// run before a Manager or Enqueuer is used.
package job
