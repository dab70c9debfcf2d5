package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/model"
	"sgxfeed/internal/repository"
)

// VersionMemory is an in-process implementation of repository.VersionRepository.
// It is safe for concurrent use; commits are serialised by a single lock.
type VersionMemory struct {
	mu       sync.RWMutex
	versions map[string][]model.VersionRecord
	cal      calendar.Calendar
	now      func() time.Time
}

// NewVersionMemory creates an empty catalog.
func NewVersionMemory(cal calendar.Calendar) *VersionMemory {
	return &VersionMemory{
		versions: make(map[string][]model.VersionRecord),
		cal:      cal,
		now:      time.Now,
	}
}

var _ repository.VersionRepository = (*VersionMemory)(nil)

func (r *VersionMemory) currentLocked(fileName string) *model.VersionRecord {
	rows := r.versions[fileName]
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].IsCurrent {
			row := rows[i]
			return &row
		}
	}
	return nil
}

// CurrentVersion returns a copy of the current row or nil.
func (r *VersionMemory) CurrentVersion(_ context.Context, fileName string) (*model.VersionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentLocked(fileName), nil
}

// Commit applies repository.Plan under the write lock.
func (r *VersionMemory) Commit(_ context.Context, req repository.CommitRequest) (*repository.CommitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, err := repository.Plan(r.currentLocked(req.FileName), req, r.cal, r.now())
	if err != nil {
		return nil, err
	}
	if !plan.Create {
		return &repository.CommitResult{Created: false, Version: plan.Next}, nil
	}

	rows := r.versions[req.FileName]
	if plan.Close != nil {
		for i := range rows {
			if rows[i].VersionNumber == plan.Close.VersionNumber {
				rows[i] = *plan.Close
			}
		}
	}
	r.versions[req.FileName] = append(rows, plan.Next)
	return &repository.CommitResult{Created: true, Version: plan.Next}, nil
}

// History returns copies of all versions ordered by version number.
func (r *VersionMemory) History(_ context.Context, fileName string) ([]model.VersionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.VersionRecord, len(r.versions[fileName]))
	copy(out, r.versions[fileName])
	return out, nil
}

// Version returns one version or repository.ErrNotFound.
func (r *VersionMemory) Version(_ context.Context, fileName string, version int) (*model.VersionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.versions[fileName] {
		if row.VersionNumber == version {
			return &row, nil
		}
	}
	return nil, repository.ErrNotFound
}

// FileNames lists files with at least one version, sorted.
func (r *VersionMemory) FileNames(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.versions))
	for name := range r.versions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
