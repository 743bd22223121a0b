package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/mikanhq/launcher/core/bootstrap"
)

// AdvisoryLocker hands out sessions over Postgres advisory locks.
//
// pg advisory locks are scoped to the holding connection: release the
// connection and the lock is gone. Each session therefore pins one *sql.Conn
// out of the pool and runs acquire, hold and release on that connection only.
// Acquiring on one pooled connection and migrating on another would give zero
// mutual exclusion.
type AdvisoryLocker struct {
	db  *sql.DB
	key int64
}

func NewAdvisoryLocker(db *sql.DB, key int64) *AdvisoryLocker {
	return &AdvisoryLocker{db: db, key: key}
}

var _ bootstrap.Locker = (*AdvisoryLocker)(nil)

func (l *AdvisoryLocker) Session(ctx context.Context) (bootstrap.LockSession, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "pinning lock connection")
	}
	return &lockSession{conn: conn, key: l.key}, nil
}

type lockSession struct {
	conn *sql.Conn
	key  int64
}

func (s *lockSession) TryLock(ctx context.Context) (bool, error) {
	var acquired bool
	err := s.conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", s.key).Scan(&acquired)
	if err != nil {
		return false, errors.Wrap(err, "acquiring advisory lock")
	}
	return acquired, nil
}

func (s *lockSession) Unlock(ctx context.Context) error {
	var released bool
	err := s.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", s.key).Scan(&released)
	if err != nil {
		return errors.Wrap(err, "releasing advisory lock")
	}
	if !released {
		return errors.Errorf("advisory lock %d was not held by this session", s.key)
	}
	return nil
}

// Close returns the pinned connection to the pool; the server drops any lock
// still held by the session at that point.
func (s *lockSession) Close() error {
	return s.conn.Close()
}
