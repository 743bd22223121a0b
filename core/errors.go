package core

import "github.com/pkg/errors"

// ErrTenantMigrationsUnavailable signals that the per-tenant migration set is
// not installed in this build. The migration coordinator downgrades it to a
// warning; every other migration error is fatal.
var ErrTenantMigrationsUnavailable = errors.New("tenant migrations not available")

type startupError struct {
	err error
}

// startupError has no Cause method: it is the cause errors.Cause resolves to.
func (e *startupError) Error() string { return e.err.Error() }

// StartupError marks an error as a failed container start: the orchestrator is
// expected to restart the process and retry the full sequence, and on-call is
// alerted. Config mistakes and bad invocations stay unmarked; restarting will
// not fix those.
func StartupError(err error) error {
	if err == nil {
		return nil
	}
	return &startupError{err: err}
}

func IsStartupError(err error) bool {
	_, ok := errors.Cause(err).(*startupError)
	return ok
}
