package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"asset-ledger/internal/apperrors"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX lo satisfacen *sql.DB y *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// prepareStatements prepara las consultas de lectura de un repositorio
func prepareStatements(db *sql.DB, statements map[string]string) (map[string]*sql.Stmt, error) {
	stmts := make(map[string]*sql.Stmt, len(statements))
	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			for _, s := range stmts {
				s.Close()
			}
			return nil, fmt.Errorf("failed to prepare %s: %w", name, err)
		}
		stmts[name] = stmt
	}
	return stmts, nil
}

// inTx ejecuta fn dentro de una transacción; cualquier error provoca rollback
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapWriteError traduce violaciones de unicidad de PostgreSQL y SQLite a DuplicateKeyError
func mapWriteError(err error, value string) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		field := pqErr.Column
		if field == "" {
			field = constraintField(pqErr.Constraint)
		}
		return &apperrors.DuplicateKeyError{Field: field, Value: value}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(liteErr.Error(), "UNIQUE") {
		return &apperrors.DuplicateKeyError{Field: sqliteUniqueField(liteErr.Error()), Value: value}
	}

	return err
}

// constraintField convierte "assets_pkey" o "purchases_asset_id_key" en un nombre de campo
func constraintField(constraint string) string {
	switch {
	case strings.HasSuffix(constraint, "_pkey"):
		return "id"
	case strings.HasSuffix(constraint, "_key"):
		name := strings.TrimSuffix(constraint, "_key")
		if i := strings.Index(name, "_"); i >= 0 {
			return name[i+1:]
		}
		return name
	}
	return constraint
}

// sqliteUniqueField extrae la columna de "UNIQUE constraint failed: assets.asset_id (2067)"
func sqliteUniqueField(msg string) string {
	const marker = "UNIQUE constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return "unknown"
	}
	field := msg[i+len(marker):]
	if j := strings.IndexAny(field, " ,("); j >= 0 {
		field = field[:j]
	}
	if j := strings.LastIndex(field, "."); j >= 0 {
		field = field[j+1:]
	}
	return field
}

// nullableJSON convierte un snapshot vacío en NULL; el texto JSON sirve para JSONB y TEXT
func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// filterBuilder arma cláusulas WHERE con placeholders $N
type filterBuilder struct {
	clauses []string
	args    []interface{}
}

func (b *filterBuilder) add(clause string, arg interface{}) {
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, strings.Replace(clause, "?", fmt.Sprintf("$%d", len(b.args)), 1))
}

func (b *filterBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}
