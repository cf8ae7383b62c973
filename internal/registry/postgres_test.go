package registry

import (
	"context"
	"testing"
)

func TestNewPostgresRegistryRejectsNilDB(t *testing.T) {
	_, err := NewPostgresRegistry(context.Background(), PostgresConfig{})
	if err == nil {
		t.Fatal("expected an error constructing a PostgresRegistry with no *sql.DB")
	}
}

func TestDefaultPostgresConfigSetsSensibleDefaults(t *testing.T) {
	cfg := DefaultPostgresConfig(nil)
	if cfg.TableName != "substance_defaults" {
		t.Errorf("TableName = %q, want %q", cfg.TableName, "substance_defaults")
	}
	if !cfg.AutoMigrate || !cfg.SeedDefaults {
		t.Error("expected AutoMigrate and SeedDefaults to default true")
	}
}
