package health

import "errors"

// ErrCheckTimeout replaces a check's error when it ran past the deadline.
var ErrCheckTimeout = errors.New("health: check timeout")
