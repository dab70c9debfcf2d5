package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sgxfeed/internal/logging"
	"sgxfeed/internal/model"
	"sgxfeed/internal/service"
	svcMocks "sgxfeed/internal/service/mocks"
)

var sgt = time.FixedZone("SGT", 8*3600)

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("every morning", sgt, new(svcMocks.MockIngestionService), logging.Discard())
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	date := time.Date(2025, 9, 18, 0, 0, 0, 0, time.UTC)

	t.Run("runs the current business date", func(t *testing.T) {
		svc := new(svcMocks.MockIngestionService)
		svc.On("CurrentBusinessDate").Return(date)
		svc.On("Run", mock.Anything, date).Return(&model.RunReport{RunID: "r1", BusinessDate: "2025-09-18", Success: true}, nil)

		s, err := New("0 7 * * *", sgt, svc, logging.Discard())
		require.NoError(t, err)

		report, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "r1", report.RunID)
		svc.AssertExpectations(t)
	})

	t.Run("skips when a run is in flight", func(t *testing.T) {
		svc := new(svcMocks.MockIngestionService)
		svc.On("CurrentBusinessDate").Return(date)
		svc.On("Run", mock.Anything, date).Return(nil, service.ErrRunInProgress)

		s, err := New("0 7 * * *", sgt, svc, logging.Discard())
		require.NoError(t, err)

		report, err := s.RunOnce(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, report)
	})

	t.Run("other errors surface", func(t *testing.T) {
		svc := new(svcMocks.MockIngestionService)
		svc.On("CurrentBusinessDate").Return(date)
		svc.On("Run", mock.Anything, date).Return(nil, errors.New("boom"))

		s, err := New("0 7 * * *", sgt, svc, logging.Discard())
		require.NoError(t, err)

		_, err = s.RunOnce(context.Background())
		assert.Error(t, err)
	})
}

func TestStartStop(t *testing.T) {
	s, err := New("0 7 * * *", sgt, new(svcMocks.MockIngestionService), logging.Discard())
	require.NoError(t, err)

	assert.True(t, s.Next().IsZero())
	s.Start()

	next := s.Next()
	require.False(t, next.IsZero())
	assert.Equal(t, 7, next.In(sgt).Hour())
	assert.Equal(t, 0, next.In(sgt).Minute())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
