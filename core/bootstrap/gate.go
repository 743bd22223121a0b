package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/mikanhq/launcher/core"
)

// waitFunc sleeps unless the context is cancelled first.
var waitFunc = func(ctx context.Context, d time.Duration) error { // mockable
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Probe is a lightweight readiness check against one external dependency.
type Probe interface {
	Name() string
	Check(ctx context.Context) error
}

// GateProbe binds a probe to its attempt ceiling. Ceilings differ per
// dependency; the datastore gets more headroom than the cache.
type GateProbe struct {
	Probe
	MaxAttempts int
}

// Gate blocks startup until every registered dependency answers its probe,
// backing off exponentially between failed attempts. Exhausting a probe's
// attempt ceiling is fatal; the orchestrator restarts the whole container.
type Gate struct {
	probes []GateProbe
	logger core.Logger
	unit   time.Duration
}

const (
	initialWaitUnits = 1
	maxWaitUnits     = 5
)

func NewGate(logger core.Logger, probes ...GateProbe) *Gate {
	return &Gate{probes: probes, logger: logger, unit: time.Second}
}

// backoffUnits returns the wait after the given failed attempt (1-based):
// 1, 2, 4, 5, 5, ...
func backoffUnits(attempt int) int {
	if attempt >= 4 {
		return maxWaitUnits
	}
	return initialWaitUnits << (attempt - 1)
}

func (g *Gate) Wait(ctx context.Context) error {
	for _, p := range g.probes {
		if err := g.waitFor(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gate) waitFor(ctx context.Context, p GateProbe) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = p.Check(ctx); err == nil {
			g.logger.Info(fmt.Sprintf("%s is ready", p.Name()))
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		wait := time.Duration(backoffUnits(attempt)) * g.unit
		g.logger.Info(fmt.Sprintf("waiting for %s (attempt %d/%d, retrying in %s): %v",
			p.Name(), attempt, p.MaxAttempts, wait, err))
		if werr := waitFunc(ctx, wait); werr != nil {
			return werr
		}
	}
	return core.StartupError(errors.Wrapf(err, "%s not ready after %d attempts", p.Name(), p.MaxAttempts))
}
