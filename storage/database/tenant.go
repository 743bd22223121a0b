package database

import (
	"context"
	"regexp"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const maxSchemaNameLength = 63

var (
	schemaNameRegex = regexp.MustCompile(`^[a-z0-9_]+$`)

	reservedSchemas = map[string]struct{}{
		"public":             {},
		"information_schema": {},
		"pg_catalog":         {},
		"pg_toast":           {},
	}
)

// ValidateSchemaName enforces the tenant schema naming rules before a name is
// ever placed in a DSN or a search_path.
func ValidateSchemaName(name string) error {
	if name == "" {
		return errors.New("schema name must not be empty")
	}
	if _, ok := reservedSchemas[name]; ok {
		return errors.Errorf("reserved schema name: %s", name)
	}
	if !schemaNameRegex.MatchString(name) {
		return errors.Errorf("invalid schema name: %s", name)
	}
	if len(name) > maxSchemaNameLength {
		return errors.Errorf("schema name too long (max %d): %s", maxSchemaNameLength, name)
	}
	return nil
}

// ListTenantSchemas returns the schema of every live organization, in creation
// order. Soft-deleted organizations keep their schema on disk but are not
// migrated.
func ListTenantSchemas(ctx context.Context, db *sqlx.DB) ([]string, error) {
	var schemas []string
	err := db.SelectContext(ctx, &schemas,
		"SELECT schema_name FROM organizations WHERE deleted_at IS NULL AND schema_name <> '' ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "listing tenant schemas")
	}
	return schemas, nil
}
