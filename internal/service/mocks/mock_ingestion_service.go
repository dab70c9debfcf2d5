package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"sgxfeed/internal/model"
	"sgxfeed/internal/service"
)

type MockIngestionService struct {
	mock.Mock
}

var _ service.IngestionService = (*MockIngestionService)(nil)

func (m *MockIngestionService) Run(ctx context.Context, businessDate time.Time) (*model.RunReport, error) {
	args := m.Called(ctx, businessDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunReport), args.Error(1)
}

func (m *MockIngestionService) CurrentBusinessDate() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

func (m *MockIngestionService) Specs() []model.FileSpec {
	args := m.Called()
	return args.Get(0).([]model.FileSpec)
}
