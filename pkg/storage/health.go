package storage

import (
	"context"
	"errors"
)

// ErrHealthcheckFailed is returned when the object store cannot be reached.
var ErrHealthcheckFailed = errors.New("storage: healthcheck failed")

const healthcheckKey = ".healthcheck"

// Healthcheck heads a reserved key. A missing object still proves the
// bucket is reachable with the configured credentials.
// Compatible with health.CheckFunc.
func Healthcheck(s Storage) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.Head(ctx, healthcheckKey)
		if err == nil || errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.Join(ErrHealthcheckFailed, err)
	}
}
