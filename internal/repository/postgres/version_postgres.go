package postgres

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

// VersionPostgres is a PostgreSQL implementation of repository.VersionRepository.
// Commit runs in a transaction that locks the current row, so retried commits never duplicate rows.
type VersionPostgres struct {
	db  *sql.DB
	cal calendar.Calendar
	now func() time.Time
}

// NewVersionPostgres creates a new VersionPostgres repository.
func NewVersionPostgres(db *sql.DB, cal calendar.Calendar) *VersionPostgres {
	return &VersionPostgres{db: db, cal: cal, now: time.Now}
}

var _ repository.VersionRepository = (*VersionPostgres)(nil)

const versionColumns = `file_name, version_number, content_digest, effective_from, effective_to, is_current, storage_path, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*model.VersionRecord, error) {
	var (
		v  model.VersionRecord
		to sql.NullTime
	)
	if err := row.Scan(
		&v.FileName,
		&v.VersionNumber,
		&v.ContentDigest,
		&v.EffectiveFrom,
		&to,
		&v.IsCurrent,
		&v.StoragePath,
		&v.CreatedAt,
	); err != nil {
		return nil, err
	}
	v.EffectiveFrom = calendar.Date(v.EffectiveFrom)
	if to.Valid {
		d := calendar.Date(to.Time)
		v.EffectiveTo = &d
	}
	return &v, nil
}

// CurrentVersion returns the current row of a file, or nil if it was never ingested.
func (r *VersionPostgres) CurrentVersion(ctx context.Context, fileName string) (*model.VersionRecord, error) {
	const q = `SELECT ` + versionColumns + `
		FROM file_versions
		WHERE file_name = $1 AND is_current`
	v, err := scanVersion(r.db.QueryRowContext(ctx, q, fileName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// Commit applies repository.Plan inside a transaction.
func (r *VersionPostgres) Commit(ctx context.Context, req repository.CommitRequest) (*repository.CommitResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const qLock = `SELECT ` + versionColumns + `
		FROM file_versions
		WHERE file_name = $1 AND is_current
		FOR UPDATE`
	current, err := scanVersion(tx.QueryRowContext(ctx, qLock, req.FileName))
	if errors.Is(err, sql.ErrNoRows) {
		current, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock current version: %w", err)
	}

	plan, err := repository.Plan(current, req, r.cal, r.now())
	if err != nil {
		return nil, err
	}
	if !plan.Create {
		return &repository.CommitResult{Created: false, Version: plan.Next}, nil
	}

	if plan.Close != nil {
		const qClose = `UPDATE file_versions
			SET effective_to = $1, is_current = FALSE
			WHERE file_name = $2 AND version_number = $3`
		if _, err := tx.ExecContext(ctx, qClose, *plan.Close.EffectiveTo, plan.Close.FileName, plan.Close.VersionNumber); err != nil {
			return nil, fmt.Errorf("close version %d: %w", plan.Close.VersionNumber, err)
		}
	}

	const qInsert = `INSERT INTO file_versions (file_name, version_number, content_digest, effective_from, is_current, storage_path, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
		RETURNING ` + versionColumns
	n := plan.Next
	created, err := scanVersion(tx.QueryRowContext(ctx, qInsert,
		n.FileName,
		n.VersionNumber,
		n.ContentDigest,
		n.EffectiveFrom,
		n.StoragePath,
		n.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("insert version %d: %w", n.VersionNumber, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit version %d: %w", n.VersionNumber, err)
	}
	return &repository.CommitResult{Created: true, Version: *created}, nil
}

// History returns all versions of a file ordered by version number.
func (r *VersionPostgres) History(ctx context.Context, fileName string) ([]model.VersionRecord, error) {
	const q = `SELECT ` + versionColumns + `
		FROM file_versions
		WHERE file_name = $1
		ORDER BY version_number`
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Version fetches a single version.
func (r *VersionPostgres) Version(ctx context.Context, fileName string, version int) (*model.VersionRecord, error) {
	const q = `SELECT ` + versionColumns + `
		FROM file_versions
		WHERE file_name = $1 AND version_number = $2`
	v, err := scanVersion(r.db.QueryRowContext(ctx, q, fileName, version))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return v, err
}

// FileNames lists every versioned file.
func (r *VersionPostgres) FileNames(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT file_name FROM file_versions ORDER BY file_name`
	rows, err := r.db.QueryContext(ctx, q)
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
