package probesvc

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 3 * time.Second

// PostgresProbe reports datastore readiness through a plain ping on the
// application connection pool.
type PostgresProbe struct {
	db *sql.DB
}

func NewPostgresProbe(db *sql.DB) *PostgresProbe {
	return &PostgresProbe{db: db}
}

func (p *PostgresProbe) Name() string { return "database" }

func (p *PostgresProbe) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.db.PingContext(ctx)
}
