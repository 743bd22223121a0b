package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/mikanhq/launcher/core"
	"github.com/mikanhq/launcher/core/bootstrap"
	appfs "github.com/mikanhq/launcher/fs"
)

const (
	publicMigrationsDir = "migrations/public"
	tenantMigrationsDir = "migrations/tenant"
)

var gooseUpFunc = goose.Up // mockable

// GooseMigrator applies the embedded goose migrations: the shared (public
// schema) set once, then the tenant set once per live organization schema.
type GooseMigrator struct {
	db     *sql.DB
	conf   *core.Config
	logger core.Logger
}

var _ bootstrap.Migrator = (*GooseMigrator)(nil)

func NewGooseMigrator(db *sql.DB, conf *core.Config, logger core.Logger) *GooseMigrator {
	return &GooseMigrator{db: db, conf: conf, logger: logger}
}

func (m *GooseMigrator) MigrateShared(ctx context.Context) error {
	if err := m.setUpGoose(); err != nil {
		return err
	}
	if err := gooseUpFunc(m.db, publicMigrationsDir); err != nil {
		return errors.Wrap(err, "migrating shared schema")
	}
	return nil
}

// MigrateTenants assumes the shared schema is current; the organizations
// table it reads from is created by the shared set.
func (m *GooseMigrator) MigrateTenants(ctx context.Context) error {
	entries, err := fs.ReadDir(appfs.Migrations, tenantMigrationsDir)
	if err != nil || len(entries) == 0 {
		return core.ErrTenantMigrationsUnavailable
	}

	if err := m.setUpGoose(); err != nil {
		return err
	}

	schemas, err := ListTenantSchemas(ctx, sqlx.NewDb(m.db, m.conf.Database.Engine))
	if err != nil {
		return err
	}

	for _, schema := range schemas {
		if err := ValidateSchemaName(schema); err != nil {
			return errors.Wrap(err, "validating tenant schema")
		}
		if err := m.migrateTenant(schema); err != nil {
			return errors.Wrapf(err, "migrating tenant %s", schema)
		}
		m.logger.Info(fmt.Sprintf("tenant schema %s migrated", schema))
	}
	return nil
}

// migrateTenant runs the tenant set on a connection whose search_path points
// at the tenant schema, so the goose version table lands inside that schema.
func (m *GooseMigrator) migrateTenant(schema string) error {
	tdb, err := OpenTenant(m.conf, schema)
	if err != nil {
		return errors.Wrap(err, "opening tenant connection")
	}
	defer func() { _ = tdb.Close() }()

	return gooseUpFunc(tdb, tenantMigrationsDir)
}

func (m *GooseMigrator) setUpGoose() error {
	goose.SetBaseFS(appfs.Migrations)
	if err := goose.SetDialect(m.conf.Database.Engine); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	return nil
}
