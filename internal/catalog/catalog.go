// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package catalog records rendered QR codes in SQLite.
package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned for unknown record IDs.
var ErrNotFound = errors.New("catalog: not found")

// MaxList bounds the number of records List returns.
const MaxList = 100

// A Record describes one rendered QR code and its artifacts.
type Record struct {
	ID          string
	Payload     string
	Version     int
	ECC         string
	Passes      int
	Fingerprint string
	PNGPath     string
	SVGPath     string
	MaskPath    string
	LogoPath    string
	Active      bool
	Created     time.Time
	Updated     time.Time
}

// A Filter selects records for List.
type Filter struct {
	Query  string // substring of the payload or ID
	Active *bool  // nil for any
	Limit  int    // 0 or more than MaxList for MaxList
}

// A Catalog is a render catalog backed by a SQLite database.
type Catalog struct {
	db  *sql.DB
	log *slog.Logger
	// Now returns the current time.
	Now func() time.Time
}

// Open opens the database at path and applies pending migrations.
// A nil logger discards migration logs.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening %s: %w", path, err)
	}
	// One connection keeps in-memory databases whole.
	db.SetMaxOpenConns(1)
	c := &Catalog{db: db, log: logger, Now: time.Now}
	if err := c.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

func (c *Catalog) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("catalog: migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(c.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("catalog: sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	m.Log = migrateLogger{c.log}
	return m, nil
}

// migrateUp applies pending migrations.  The migrate instance is not
// closed, as closing it would close the database.
func (c *Catalog) migrateUp() error {
	m, err := c.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("catalog: migration up failed: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (c *Catalog) SchemaVersion() (uint, error) {
	m, err := c.newMigrate()
	if err != nil {
		return 0, err
	}
	v, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return v, err
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct {
	l *slog.Logger
}

func (m migrateLogger) Printf(format string, v ...any) {
	m.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrate")
}

func (migrateLogger) Verbose() bool { return false }

const columns = `id, payload, version, ecc, passes, fingerprint,
	png_path, svg_path, mask_path, logo_path, active, created_at, updated_at`

// Insert adds r, setting its timestamps.
func (c *Catalog) Insert(ctx context.Context, r *Record) error {
	now := c.Now().UTC().Truncate(time.Millisecond)
	r.Created, r.Updated = now, now
	_, err := c.db.ExecContext(ctx, `INSERT INTO qrcodes (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Payload, r.Version, r.ECC, r.Passes, r.Fingerprint,
		r.PNGPath, r.SVGPath, r.MaskPath, r.LogoPath, r.Active,
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("catalog: inserting %s: %w", r.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		r                Record
		created, updated int64
	)
	err := s.Scan(&r.ID, &r.Payload, &r.Version, &r.ECC, &r.Passes,
		&r.Fingerprint, &r.PNGPath, &r.SVGPath, &r.MaskPath, &r.LogoPath,
		&r.Active, &created, &updated)
	if err != nil {
		return nil, err
	}
	r.Created = time.UnixMilli(created).UTC()
	r.Updated = time.UnixMilli(updated).UTC()
	return &r, nil
}

// Get returns the record with the given ID.
func (c *Catalog) Get(ctx context.Context, id string) (*Record, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM qrcodes WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", id, err)
	}
	return r, nil
}

// List returns records matching f, newest first.
func (c *Catalog) List(ctx context.Context, f Filter) ([]*Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		where = append(where, `(payload LIKE ? ESCAPE '\' OR id LIKE ? ESCAPE '\')`)
		q := "%" + escapeLike(f.Query) + "%"
		args = append(args, q, q)
	}
	if f.Active != nil {
		where = append(where, `active = ?`)
		args = append(args, *f.Active)
	}
	limit := f.Limit
	if limit <= 0 || limit > MaxList {
		limit = MaxList
	}
	query := `SELECT ` + columns + ` FROM qrcodes`
	if len(where) != 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: listing: %w", err)
	}
	defer rows.Close()
	var rs []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: listing: %w", err)
		}
		rs = append(rs, r)
	}
	return rs, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// SetActive sets the active flag of the record with the given ID and
// returns the updated record.
func (c *Catalog) SetActive(ctx context.Context, id string, active bool) (*Record, error) {
	now := c.Now().UTC().Truncate(time.Millisecond)
	res, err := c.db.ExecContext(ctx,
		`UPDATE qrcodes SET active = ?, updated_at = ? WHERE id = ?`,
		active, now.UnixMilli(), id)
	if err != nil {
		return nil, fmt.Errorf("catalog: updating %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.Get(ctx, id)
}
