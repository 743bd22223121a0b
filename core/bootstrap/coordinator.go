package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mikanhq/launcher/core"
)

var nowFunc = time.Now // mockable

type (
	// LockSession is one named advisory lock bound to one backing-store
	// session. The lock lives and dies with the session: Close drops it even
	// if Unlock was never reached.
	LockSession interface {
		TryLock(ctx context.Context) (bool, error)
		Unlock(ctx context.Context) error
		Close() error
	}

	Locker interface {
		Session(ctx context.Context) (LockSession, error)
	}

	// Migrator runs the two schema-migration steps. MigrateTenants must only
	// ever be called after MigrateShared has succeeded.
	Migrator interface {
		MigrateShared(ctx context.Context) error
		MigrateTenants(ctx context.Context) error
	}
)

// Coordinator serializes schema migration across replicas racing at startup.
// Acquire, both migration steps and release all happen within the scope of a
// single lock session; holding the lock in one session and migrating through
// another would silently disable mutual exclusion, so the session is never
// exposed outside Run.
type Coordinator struct {
	locker   Locker
	migrator Migrator
	logger   core.Logger

	holderID       string
	pollInterval   time.Duration
	acquireTimeout time.Duration
}

func NewCoordinator(locker Locker, migrator Migrator, logger core.Logger, conf core.MigrationConfig) *Coordinator {
	return &Coordinator{
		locker:         locker,
		migrator:       migrator,
		logger:         logger,
		holderID:       uuid.New().String(),
		pollInterval:   conf.PollInterval,
		acquireTimeout: conf.AcquireTimeout,
	}
}

func (c *Coordinator) Run(ctx context.Context) error {
	session, err := c.locker.Session(ctx)
	if err != nil {
		return errors.Wrap(err, "opening lock session")
	}
	defer func() { _ = session.Close() }()

	if err := c.acquire(ctx, session); err != nil {
		return err
	}

	// always release on the session that acquired, whatever migration did;
	// if release itself fails the session close right after drops the lock
	defer func() {
		if err := session.Unlock(context.Background()); err != nil {
			c.logger.Warn(fmt.Sprintf("releasing migration lock: %v", err))
			return
		}
		c.logger.Info("migration lock released")
	}()

	c.logger.Info(fmt.Sprintf("migration lock held by %s; migrating shared schema", c.holderID))
	if err := c.migrator.MigrateShared(ctx); err != nil {
		// tenant step never runs on a stale shared schema
		return core.StartupError(errors.Wrap(err, "migrating shared schema"))
	}

	c.logger.Info("migrating tenant schemas")
	if err := c.migrator.MigrateTenants(ctx); err != nil {
		if errors.Cause(err) == core.ErrTenantMigrationsUnavailable {
			c.logger.Warn("tenant migrations not installed; skipping tenant step")
			return nil
		}
		return core.StartupError(errors.Wrap(err, "migrating tenant schemas"))
	}
	return nil
}

func (c *Coordinator) acquire(ctx context.Context, session LockSession) error {
	deadline := nowFunc().Add(c.acquireTimeout)
	for {
		acquired, err := session.TryLock(ctx)
		if err != nil {
			return errors.Wrap(err, "trying migration lock")
		}
		if acquired {
			return nil
		}
		if !nowFunc().Add(c.pollInterval).Before(deadline) {
			return core.StartupError(errors.Errorf(
				"migration lock not acquired within %s; another replica is presumably migrating",
				c.acquireTimeout))
		}
		c.logger.Info(fmt.Sprintf("migration lock busy; retrying in %s", c.pollInterval))
		if err := waitFunc(ctx, c.pollInterval); err != nil {
			return err
		}
	}
}
