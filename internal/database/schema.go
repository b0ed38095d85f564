package database

import (
	"context"
	"fmt"
	"strings"
)

// Las columnas de fecha se declaran TIMESTAMP en SQLite para que el driver las
// devuelva como time.Time. Los importes viajan como texto decimal exacto.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS assets (
		asset_id        TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		type            TEXT NOT NULL,
		quantity        INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		opening_balance INTEGER NOT NULL DEFAULT 0,
		closing_balance INTEGER NOT NULL DEFAULT 0 CHECK (closing_balance >= 0),
		net_movement    INTEGER NOT NULL DEFAULT 0,
		unit_price      {{money}} NOT NULL DEFAULT 0,
		base_id         TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'available',
		version         INTEGER NOT NULL DEFAULT 1,
		created_at      {{ts}} NOT NULL,
		updated_at      {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_base ON assets (base_id)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id            TEXT PRIMARY KEY,
		asset_id      TEXT NOT NULL REFERENCES assets (asset_id),
		base_id       TEXT NOT NULL,
		quantity      INTEGER NOT NULL CHECK (quantity > 0),
		unit_price    {{money}} NOT NULL,
		total_cost    {{money}} NOT NULL,
		status        TEXT NOT NULL,
		purchase_date {{ts}} NOT NULL,
		created_by    TEXT NOT NULL DEFAULT '',
		created_at    {{ts}} NOT NULL,
		updated_at    {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_base_status ON purchases (base_id, status)`,
	`CREATE TABLE IF NOT EXISTS transfers (
		id             TEXT PRIMARY KEY,
		asset_id       TEXT NOT NULL REFERENCES assets (asset_id),
		from_base_id   TEXT NOT NULL,
		to_base_id     TEXT NOT NULL,
		quantity       INTEGER NOT NULL CHECK (quantity > 0),
		transferred_by TEXT NOT NULL,
		status         TEXT NOT NULL,
		notes          TEXT NOT NULL DEFAULT '',
		transfer_date  {{ts}} NOT NULL,
		completed_at   {{ts}},
		created_at     {{ts}} NOT NULL,
		updated_at     {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transfers_from_status ON transfers (from_base_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_transfers_to_status ON transfers (to_base_id, status)`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id             TEXT PRIMARY KEY,
		asset_id       TEXT NOT NULL REFERENCES assets (asset_id),
		personnel_name TEXT NOT NULL,
		quantity       INTEGER NOT NULL CHECK (quantity > 0),
		base_id        TEXT NOT NULL,
		assigned_by    TEXT NOT NULL DEFAULT '',
		assigned_date  {{ts}} NOT NULL,
		created_at     {{ts}} NOT NULL,
		updated_at     {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_base ON assignments (base_id)`,
	`CREATE TABLE IF NOT EXISTS expenditures (
		id               TEXT PRIMARY KEY,
		asset_id         TEXT NOT NULL REFERENCES assets (asset_id),
		base_id          TEXT NOT NULL,
		quantity         INTEGER NOT NULL CHECK (quantity > 0),
		expended_by      TEXT NOT NULL,
		reason           TEXT NOT NULL,
		notes            TEXT NOT NULL DEFAULT '',
		expenditure_date {{ts}} NOT NULL,
		created_at       {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenditures_base ON expenditures (base_id)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL DEFAULT '',
		action        TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id   TEXT NOT NULL,
		resource_name TEXT NOT NULL DEFAULT '',
		details       TEXT NOT NULL DEFAULT '',
		old_values    {{json}},
		new_values    {{json}},
		base_id       TEXT NOT NULL DEFAULT '',
		logged_at     {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs (resource_type, resource_id)`,
}

func schemaReplacer(dialect Dialect) *strings.Replacer {
	if dialect == DialectSQLite {
		return strings.NewReplacer("{{ts}}", "TIMESTAMP", "{{money}}", "TEXT", "{{json}}", "TEXT")
	}
	return strings.NewReplacer("{{ts}}", "TIMESTAMPTZ", "{{money}}", "NUMERIC", "{{json}}", "JSONB")
}

// EnsureSchema crea las tablas si no existen
func EnsureSchema(ctx context.Context, store *Store) error {
	r := schemaReplacer(store.Dialect)
	for _, stmt := range schemaStatements {
		if _, err := store.DB.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
