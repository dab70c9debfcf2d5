package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sgxfeed/internal/model"
	"sgxfeed/internal/repository"
)

type MockVersionRepository struct {
	mock.Mock
}

var _ repository.VersionRepository = (*MockVersionRepository)(nil)

func (m *MockVersionRepository) CurrentVersion(ctx context.Context, fileName string) (*model.VersionRecord, error) {
	args := m.Called(ctx, fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VersionRecord), args.Error(1)
}

func (m *MockVersionRepository) Commit(ctx context.Context, req repository.CommitRequest) (*repository.CommitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.CommitResult), args.Error(1)
}

func (m *MockVersionRepository) History(ctx context.Context, fileName string) ([]model.VersionRecord, error) {
	args := m.Called(ctx, fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.VersionRecord), args.Error(1)
}

func (m *MockVersionRepository) Version(ctx context.Context, fileName string, version int) (*model.VersionRecord, error) {
	args := m.Called(ctx, fileName, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VersionRecord), args.Error(1)
}

func (m *MockVersionRepository) FileNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
