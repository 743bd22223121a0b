package database

import (
	"strings"
	"testing"
)

func Test_ValidateSchemaName(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		wantErr string
	}{
		{name: "simple", schema: "acme"},
		{name: "with digits and underscores", schema: "org_42_main"},
		{name: "max length", schema: strings.Repeat("a", 63)},
		{name: "empty", schema: "", wantErr: "must not be empty"},
		{name: "too long", schema: strings.Repeat("a", 64), wantErr: "too long"},
		{name: "uppercase", schema: "Acme", wantErr: "invalid schema name"},
		{name: "hyphen", schema: "acme-prod", wantErr: "invalid schema name"},
		{name: "sql injection", schema: `acme"; DROP TABLE users; --`, wantErr: "invalid schema name"},
		{name: "spaces", schema: "acme corp", wantErr: "invalid schema name"},
		{name: "reserved public", schema: "public", wantErr: "reserved"},
		{name: "reserved catalog", schema: "pg_catalog", wantErr: "reserved"},
		{name: "reserved information_schema", schema: "information_schema", wantErr: "reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchemaName(tt.schema)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateSchemaName(%q) unexpected error: %v", tt.schema, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateSchemaName(%q) expected error", tt.schema)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
