package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sgxfeed/internal/model"
	"sgxfeed/internal/repository"
	"sgxfeed/internal/storage"
)

var (
	ErrNameRequired = errors.New("file name is required")
	ErrNotFound     = errors.New("not found")
)

// FileStatus pairs a configured file with its current catalog version (reference files only).
type FileStatus struct {
	Spec    model.FileSpec       `json:"spec"`
	Current *model.VersionRecord `json:"current_version,omitempty"`
}

// CatalogService answers read-only questions about the catalog and the object store.
type CatalogService interface {
	// Files lists the configured files with their current version.
	Files(ctx context.Context) ([]FileStatus, error)

	// History returns every version of a file.
	History(ctx context.Context, name string) ([]model.VersionRecord, error)

	// Current returns the current version of a file or ErrNotFound.
	Current(ctx context.Context, name string) (*model.VersionRecord, error)

	// DownloadURL presigns the stored object of one version.
	DownloadURL(ctx context.Context, name string, version int) (string, error)

	// Objects lists stored objects under prefix.
	Objects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

type catalogService struct {
	specs  []model.FileSpec
	repo   repository.VersionRepository
	store  storage.Storage
	expiry time.Duration
}

// NewCatalogService constructs a CatalogService. expiry bounds presigned download URLs.
func NewCatalogService(specs []model.FileSpec, repo repository.VersionRepository, store storage.Storage, expiry time.Duration) CatalogService {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &catalogService{specs: specs, repo: repo, store: store, expiry: expiry}
}

func (s *catalogService) Files(ctx context.Context) ([]FileStatus, error) {
	out := make([]FileStatus, 0, len(s.specs))
	for _, spec := range s.specs {
		st := FileStatus{Spec: spec}
		if spec.IsReference() {
			cur, err := s.repo.CurrentVersion(ctx, spec.Name)
			if err != nil {
				return nil, fmt.Errorf("current version of %s: %w", spec.Name, err)
			}
			st.Current = cur
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *catalogService) History(ctx context.Context, name string) ([]model.VersionRecord, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	items, err := s.repo.History(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 && !s.configured(name) {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, name)
	}
	return items, nil
}

func (s *catalogService) Current(ctx context.Context, name string) (*model.VersionRecord, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	cur, err := s.repo.CurrentVersion(ctx, name)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("%w: no version of %s", ErrNotFound, name)
	}
	return cur, nil
}

func (s *catalogService) DownloadURL(ctx context.Context, name string, version int) (string, error) {
	if name == "" {
		return "", ErrNameRequired
	}
	v, err := s.repo.Version(ctx, name, version)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%w: %s v%d", ErrNotFound, name, version)
		}
		return "", err
	}
	u, err := s.store.PresignGet(ctx, v.StoragePath, s.expiry)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%w: object %s", ErrNotFound, v.StoragePath)
		}
		return "", err
	}
	return u, nil
}

func (s *catalogService) Objects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return s.store.List(ctx, prefix)
}

func (s *catalogService) configured(name string) bool {
	for _, spec := range s.specs {
		if spec.Name == name {
			return true
		}
	}
	return false
}
