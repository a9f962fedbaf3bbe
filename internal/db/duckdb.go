// Package db opens the embedded DuckDB database and exposes it as a custom
// data source loader.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-map/internal/loader"
)

// Config holds database configuration. An empty DataDir opens an
// in-memory database.
type Config struct {
	DataDir    string
	DBName     string
	Extensions []string
}

// DefaultExtensions are installed and loaded on open.
var DefaultExtensions = []string{"spatial", "parquet"}

// ErrClosed is returned when Close races an open.
var ErrClosed = errors.New("db: closed")

// DB is a lazily opened DuckDB connection.
type DB struct {
	cfg  Config
	open *loader.Loader

	mu  sync.RWMutex
	db  *sql.DB
	gen uint64
}

// New returns a DB that opens on first use.
func New(cfg Config) *DB {
	d := &DB{cfg: cfg}
	d.open = loader.New(d.connect)
	return d
}

func (d *DB) connect(ctx context.Context) error {
	d.mu.RLock()
	gen := d.gen
	d.mu.RUnlock()

	dsn := ""
	if d.cfg.DataDir != "" {
		duckdbDir := filepath.Join(d.cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		name := d.cfg.DBName
		if name == "" {
			name = "platmap"
		}
		dsn = filepath.Join(duckdbDir, name+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open duckdb: %w", err)
	}

	for _, ext := range d.cfg.Extensions {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			log.Warn().Err(err).Str("extension", ext).Msg("DuckDB extension unavailable")
		}
	}

	if err := d.publish(gen, conn); err != nil {
		return err
	}
	log.Info().Str("path", dsn).Msg("DuckDB opened")
	return nil
}

// publish installs conn unless Close ran since gen was read or another open
// already installed a connection. A conn that is not installed is closed.
func (d *DB) publish(gen uint64, conn *sql.DB) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.gen != gen:
		_ = conn.Close()
		return ErrClosed
	case d.db != nil:
		_ = conn.Close()
		return nil
	}
	d.db = conn
	return nil
}

// Conn opens the database if needed and returns the connection.
func (d *DB) Conn(ctx context.Context) (*sql.DB, error) {
	if err := d.open.Load(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil, ErrClosed
	}
	return d.db, nil
}

// Status reports whether the database has been opened.
func (d *DB) Status() loader.Status {
	return d.open.Status()
}

// Close closes the connection. A later Conn reopens it.
func (d *DB) Close() error {
	d.mu.Lock()
	conn := d.db
	d.db = nil
	d.gen++
	d.mu.Unlock()

	d.open.Reset()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
