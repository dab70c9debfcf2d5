package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/repository"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := calendar.Parse(s)
	require.NoError(t, err)
	return d
}

func commit(t *testing.T, repo *VersionMemory, digest, day string) (*repository.CommitResult, error) {
	t.Helper()
	return repo.Commit(context.Background(), repository.CommitRequest{
		FileName:     "TC_structure",
		Digest:       digest,
		BusinessDate: date(t, day),
		StoragePath:  "derivative_reference/TC_structure/" + digest,
	})
}

func TestVersionMemory_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewVersionMemory(calendar.New(time.UTC, nil))

	cur, err := repo.CurrentVersion(ctx, "TC_structure")
	require.NoError(t, err)
	assert.Nil(t, cur)

	res, err := commit(t, repo, "a", "2025-09-17")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 1, res.Version.VersionNumber)

	// duplicate call is a no-op
	res, err = commit(t, repo, "a", "2025-09-17")
	require.NoError(t, err)
	assert.False(t, res.Created)

	res, err = commit(t, repo, "a", "2025-09-18")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 1, res.Version.VersionNumber)

	res, err = commit(t, repo, "b", "2025-09-19")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 2, res.Version.VersionNumber)

	// digest "a" reappears: new version, v1 is not resurrected
	res, err = commit(t, repo, "a", "2025-09-22")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 3, res.Version.VersionNumber)

	history, err := repo.History(ctx, "TC_structure")
	require.NoError(t, err)
	require.Len(t, history, 3)

	currentCount := 0
	for i, v := range history {
		assert.Equal(t, i+1, v.VersionNumber)
		if i > 0 {
			assert.False(t, v.EffectiveFrom.Before(history[i-1].EffectiveFrom))
		}
		if v.IsCurrent {
			currentCount++
			assert.Nil(t, v.EffectiveTo)
		} else {
			require.NotNil(t, v.EffectiveTo)
		}
	}
	assert.Equal(t, 1, currentCount)
	assert.Equal(t, "2025-09-18", calendar.Format(*history[0].EffectiveTo))
	assert.Equal(t, "2025-09-19", calendar.Format(*history[1].EffectiveTo))

	v2, err := repo.Version(ctx, "TC_structure", 2)
	require.NoError(t, err)
	assert.Equal(t, "b", v2.ContentDigest)

	_, err = repo.Version(ctx, "TC_structure", 9)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	names, err := repo.FileNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"TC_structure"}, names)
}

func TestVersionMemory_OutOfOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewVersionMemory(calendar.New(time.UTC, nil))

	_, err := commit(t, repo, "a", "2025-09-19")
	require.NoError(t, err)
	before, _ := repo.History(ctx, "TC_structure")

	_, err = commit(t, repo, "b", "2025-09-17")
	assert.ErrorIs(t, err, repository.ErrOutOfOrderCommit)

	after, _ := repo.History(ctx, "TC_structure")
	assert.Equal(t, before, after)
}
