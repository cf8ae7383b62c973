package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// PostgresConfig configures the PostgreSQL-backed registry.
type PostgresConfig struct {
	DB        *sql.DB
	Logger    *slog.Logger
	TableName string

	// AutoMigrate creates the table if it doesn't exist.
	AutoMigrate bool
	// SeedDefaults inserts the common-refrigerant table on first run.
	SeedDefaults bool
}

// DefaultPostgresConfig returns sensible defaults for db.
func DefaultPostgresConfig(db *sql.DB) PostgresConfig {
	return PostgresConfig{
		DB:           db,
		TableName:    "substance_defaults",
		AutoMigrate:  true,
		SeedDefaults: true,
	}
}

// PostgresRegistry is a Registry backed by a Postgres table, queried
// through database/sql against the pgx stdlib driver (internal/db).
type PostgresRegistry struct {
	db        *sql.DB
	tableName string
	logger    *slog.Logger
}

// NewPostgresRegistry constructs a PostgresRegistry per cfg, optionally
// creating the table and seeding it with the common-refrigerant table.
func NewPostgresRegistry(ctx context.Context, cfg PostgresConfig) (*PostgresRegistry, error) {
	if cfg.DB == nil {
		return nil, errors.New("registry: postgres config requires a database connection")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tableName := cfg.TableName
	if tableName == "" {
		tableName = "substance_defaults"
	}

	r := &PostgresRegistry{db: cfg.DB, tableName: tableName, logger: logger}

	if cfg.AutoMigrate {
		if err := r.migrate(ctx); err != nil {
			return nil, fmt.Errorf("registry: auto-migrate: %w", err)
		}
	}
	if cfg.SeedDefaults {
		if err := r.seed(ctx); err != nil {
			logger.Warn("registry: failed to seed substance defaults", "error", err)
		}
	}
	return r, nil
}

func (r *PostgresRegistry) migrate(ctx context.Context) error {
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	gwp_tco2e_per_kg DOUBLE PRECISION NOT NULL,
	initial_charge_kg_per_unit DOUBLE PRECISION NOT NULL,
	energy_intensity_kwh_per_unit DOUBLE PRECISION NOT NULL DEFAULT 0,
	source TEXT NOT NULL DEFAULT ''
)`, r.tableName)
	_, err := r.db.ExecContext(ctx, stmt)
	return err
}

func (r *PostgresRegistry) seed(ctx context.Context) error {
	seeded := NewDefaultRegistry()
	defaults, err := seeded.List(ctx)
	if err != nil {
		return err
	}
	for _, d := range defaults {
		stmt := fmt.Sprintf(`
INSERT INTO %s (name, gwp_tco2e_per_kg, initial_charge_kg_per_unit, energy_intensity_kwh_per_unit, source)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name) DO NOTHING`, r.tableName)
		if _, err := r.db.ExecContext(ctx, stmt, d.Name, d.GWPTCO2ePerKg, d.InitialChargeKgPerUnit, d.EnergyIntensityKwhPerUnit, d.Source); err != nil {
			return err
		}
	}
	return nil
}

// Get looks up name's default row.
func (r *PostgresRegistry) Get(ctx context.Context, name string) (SubstanceDefault, error) {
	stmt := fmt.Sprintf(`
SELECT name, gwp_tco2e_per_kg, initial_charge_kg_per_unit, energy_intensity_kwh_per_unit, source
FROM %s WHERE lower(name) = lower($1)`, r.tableName)

	var d SubstanceDefault
	err := r.db.QueryRowContext(ctx, stmt, name).Scan(
		&d.Name, &d.GWPTCO2ePerKg, &d.InitialChargeKgPerUnit, &d.EnergyIntensityKwhPerUnit, &d.Source,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return SubstanceDefault{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return SubstanceDefault{}, fmt.Errorf("registry: query %q: %w", name, err)
	}
	return d, nil
}

// List returns every row in the table, ordered by name.
func (r *PostgresRegistry) List(ctx context.Context) ([]SubstanceDefault, error) {
	stmt := fmt.Sprintf(`
SELECT name, gwp_tco2e_per_kg, initial_charge_kg_per_unit, energy_intensity_kwh_per_unit, source
FROM %s ORDER BY name`, r.tableName)

	rows, err := r.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	defer rows.Close()

	var out []SubstanceDefault
	for rows.Next() {
		var d SubstanceDefault
		if err := rows.Scan(&d.Name, &d.GWPTCO2ePerKg, &d.InitialChargeKgPerUnit, &d.EnergyIntensityKwhPerUnit, &d.Source); err != nil {
			return nil, fmt.Errorf("registry: scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
