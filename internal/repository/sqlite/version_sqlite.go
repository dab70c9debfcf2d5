// Package sqlite implements the version catalog on an embedded SQLite database.
// Dates are stored as ISO text so the file stays readable with the sqlite3 shell.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/model"
	"sgxfeed/internal/repository"
)

// VersionSQLite is a SQLite implementation of repository.VersionRepository.
// The connection is expected to open write transactions with BEGIN IMMEDIATE (see database.NewSQLite).
type VersionSQLite struct {
	db  *sql.DB
	cal calendar.Calendar
	now func() time.Time
}

// NewVersionSQLite creates a new VersionSQLite repository.
func NewVersionSQLite(db *sql.DB, cal calendar.Calendar) *VersionSQLite {
	return &VersionSQLite{db: db, cal: cal, now: time.Now}
}

var _ repository.VersionRepository = (*VersionSQLite)(nil)

const versionColumns = `file_name, version_number, content_digest, effective_from, effective_to, is_current, storage_path, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*model.VersionRecord, error) {
	var (
		v             model.VersionRecord
		from, created string
		to            sql.NullString
		current       int
	)
	if err := row.Scan(&v.FileName, &v.VersionNumber, &v.ContentDigest, &from, &to, &current, &v.StoragePath, &created); err != nil {
		return nil, err
	}

	var err error
	if v.EffectiveFrom, err = time.Parse(calendar.ISODate, from); err != nil {
		return nil, fmt.Errorf("parse effective_from %q: %w", from, err)
	}
	if to.Valid {
		d, err := time.Parse(calendar.ISODate, to.String)
		if err != nil {
			return nil, fmt.Errorf("parse effective_to %q: %w", to.String, err)
		}
		v.EffectiveTo = &d
	}
	if v.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	v.IsCurrent = current != 0
	return &v, nil
}

func (r *VersionSQLite) current(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, fileName string) (*model.VersionRecord, error) {
	const stmt = `SELECT ` + versionColumns + ` FROM file_versions WHERE file_name = ? AND is_current = 1`
	v, err := scanVersion(q.QueryRowContext(ctx, stmt, fileName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// CurrentVersion returns the current row of a file, or nil if it was never ingested.
func (r *VersionSQLite) CurrentVersion(ctx context.Context, fileName string) (*model.VersionRecord, error) {
	return r.current(ctx, r.db, fileName)
}

// Commit applies repository.Plan inside a write transaction.
func (r *VersionSQLite) Commit(ctx context.Context, req repository.CommitRequest) (*repository.CommitResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := r.current(ctx, tx, req.FileName)
	if err != nil {
		return nil, fmt.Errorf("read current version: %w", err)
	}

	plan, err := repository.Plan(current, req, r.cal, r.now())
	if err != nil {
		return nil, err
	}
	if !plan.Create {
		return &repository.CommitResult{Created: false, Version: plan.Next}, nil
	}

	if plan.Close != nil {
		const qClose = `UPDATE file_versions SET effective_to = ?, is_current = 0 WHERE file_name = ? AND version_number = ?`
		if _, err := tx.ExecContext(ctx, qClose, calendar.Format(*plan.Close.EffectiveTo), plan.Close.FileName, plan.Close.VersionNumber); err != nil {
			return nil, fmt.Errorf("close version %d: %w", plan.Close.VersionNumber, err)
		}
	}

	n := plan.Next
	const qInsert = `INSERT INTO file_versions (file_name, version_number, content_digest, effective_from, is_current, storage_path, created_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`
	if _, err := tx.ExecContext(ctx, qInsert,
		n.FileName,
		n.VersionNumber,
		n.ContentDigest,
		calendar.Format(n.EffectiveFrom),
		n.StoragePath,
		n.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("insert version %d: %w", n.VersionNumber, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit version %d: %w", n.VersionNumber, err)
	}
	return &repository.CommitResult{Created: true, Version: n}, nil
}

// History returns all versions of a file ordered by version number.
func (r *VersionSQLite) History(ctx context.Context, fileName string) ([]model.VersionRecord, error) {
	const q = `SELECT ` + versionColumns + ` FROM file_versions WHERE file_name = ? ORDER BY version_number`
	rows, err := r.db.QueryContext(ctx, q, fileName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.VersionRecord, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *v)
	}
	return items, rows.Err()
}

// Version fetches a single version.
func (r *VersionSQLite) Version(ctx context.Context, fileName string, version int) (*model.VersionRecord, error) {
	const q = `SELECT ` + versionColumns + ` FROM file_versions WHERE file_name = ? AND version_number = ?`
	v, err := scanVersion(r.db.QueryRowContext(ctx, q, fileName, version))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return v, err
}

// FileNames lists every versioned file.
func (r *VersionSQLite) FileNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT file_name FROM file_versions ORDER BY file_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
