// Package health serves liveness and readiness probes.
//
//	r.Get("/healthz", health.LivenessHandler())
//	r.Get("/readyz", health.ReadinessHandler(health.Checks{
//		"postgres": db.Healthcheck(pool),
//		"jobs":     job.Healthcheck(manager),
//	}, health.WithTimeout(3*time.Second), health.WithLogger(log)))
//
// Checks run concurrently; the readiness probe answers 503 with the
// per-check breakdown when any check fails.
package health
