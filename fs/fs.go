package appfs

import "embed"

// Migrations holds the goose migration sets shipped with the launcher image:
// migrations/public is applied once to the shared schema, migrations/tenant
// once per organization schema.
//
//go:embed migrations
var Migrations embed.FS
