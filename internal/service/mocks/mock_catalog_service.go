package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sgxfeed/internal/model"
	"sgxfeed/internal/service"
	"sgxfeed/internal/storage"
)

type MockCatalogService struct {
	mock.Mock
}

var _ service.CatalogService = (*MockCatalogService)(nil)

func (m *MockCatalogService) Files(ctx context.Context) ([]service.FileStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.FileStatus), args.Error(1)
}

func (m *MockCatalogService) History(ctx context.Context, name string) ([]model.VersionRecord, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.VersionRecord), args.Error(1)
}

func (m *MockCatalogService) Current(ctx context.Context, name string) (*model.VersionRecord, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VersionRecord), args.Error(1)
}

func (m *MockCatalogService) DownloadURL(ctx context.Context, name string, version int) (string, error) {
	args := m.Called(ctx, name, version)
	return args.String(0), args.Error(1)
}

func (m *MockCatalogService) Objects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ObjectInfo), args.Error(1)
}
