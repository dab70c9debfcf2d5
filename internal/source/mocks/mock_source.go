package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"sgxfeed/internal/model"
	"sgxfeed/internal/source"
)

type MockSource struct {
	mock.Mock
}

var _ source.Source = (*MockSource)(nil)

func (m *MockSource) Fetch(ctx context.Context, spec model.FileSpec, businessDate time.Time) (*model.FetchResult, error) {
	args := m.Called(ctx, spec, businessDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FetchResult), args.Error(1)
}
