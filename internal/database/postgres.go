package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Dialect identifica el motor SQL detrás de un Store
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Store conexión SQL compartida por los repositorios
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// NewPostgresDB abre el pool de PostgreSQL y verifica la conexión
func NewPostgresDB(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("PostgreSQL connection established",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime),
	)

	return &Store{DB: db, Dialect: DialectPostgres}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) Ping() error {
	return s.DB.Ping()
}

// GetStats retorna estadísticas del pool de conexiones
func (s *Store) GetStats() sql.DBStats {
	return s.DB.Stats()
}
