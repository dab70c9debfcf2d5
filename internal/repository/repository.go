// Package repository contains the version catalog port and the SCD2 commit rules shared by its adapters.
// Implementations live in subpackages (postgres, sqlite, memory).
package repository

import (
	"context"
	"errors"
	"time"

	"sgxfeed/internal/model"
)

var (
	// ErrOutOfOrderCommit is returned when a commit's business date precedes the current version's effective_from.
	ErrOutOfOrderCommit = errors.New("out-of-order commit")
	// ErrNotFound is returned by lookups of a specific version that does not exist.
	ErrNotFound = errors.New("version not found")
	// ErrInvalidCommit is returned for commits missing a required field.
	ErrInvalidCommit = errors.New("invalid commit request")
)

// VersionRepository is the append-only SCD2 version catalog.
// Rows are never deleted; only effective_to and is_current of the previously current row are updated.
type VersionRepository interface {
	// CurrentVersion returns the row with is_current = true, or nil when the file was never ingested.
	CurrentVersion(ctx context.Context, fileName string) (*model.VersionRecord, error)

	// Commit records digest as observed on businessDate. See Plan for the decision rules.
	// A repeated call with the same (fileName, digest, businessDate) is a no-op.
	Commit(ctx context.Context, req CommitRequest) (*CommitResult, error)

	// History returns every version of a file ordered by version number.
	History(ctx context.Context, fileName string) ([]model.VersionRecord, error)

	// Version returns a single version or ErrNotFound.
	Version(ctx context.Context, fileName string, version int) (*model.VersionRecord, error)

	// FileNames lists every file that has at least one version.
	FileNames(ctx context.Context) ([]string, error)
}

// CommitRequest is the input of VersionRepository.Commit.
type CommitRequest struct {
	FileName     string
	Digest       string
	BusinessDate time.Time
	StoragePath  string
}

// CommitResult reports whether a new version row was created, and the resulting current row.
type CommitResult struct {
	Created bool
	Version model.VersionRecord
}
