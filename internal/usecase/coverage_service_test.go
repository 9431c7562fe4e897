package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/halo-stats/internal/domain/player"
	"github.com/riskibarqy/halo-stats/internal/infrastructure/repository/memory"
	jobmock "github.com/riskibarqy/halo-stats/internal/mocks/domain/job"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
)

func TestCoverageService_EmptyDirectoryUsingMockery(t *testing.T) {
	t.Parallel()

	jobs := jobmock.NewRepository(t)
	jobs.On("NextPlayer", mock.Anything).Return(player.Player{}, false, nil).Once()

	service := NewCoverageService(jobs, nil)
	_, err := service.RunNextPlayer(context.Background())
	require.ErrorIs(t, err, ErrNoPlayerQueued)
}

func TestCoverageService_RepositoryErrorUsingMockery(t *testing.T) {
	t.Parallel()

	jobs := jobmock.NewRepository(t)
	jobs.On("NextPlayer", mock.Anything).Return(player.Player{}, false, errors.New("connection reset")).Once()

	service := NewCoverageService(jobs, nil)
	_, err := service.RunNextPlayer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.False(t, errors.Is(err, ErrNoPlayerQueued))
}

func TestCoverageService_RunsMatchJobForNextPlayer(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	provider := newFakeProvider()
	provider.setHistory(fakeHistory(3))
	players := memory.NewPlayerRepository(store)
	jobs := memory.NewJobRepository(store)
	matchJob := NewMatchJobService(provider, players, jobs, memory.NewMatchRepository(store),
		CollectorConfig{PageSize: 25, Workers: 1}, logging.NewNop())

	_, err := players.Upsert(context.Background(), "2533274800000042")
	require.NoError(t, err)

	result, err := NewCoverageService(jobs, matchJob).RunNextPlayer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.MatchesStored)
	j, _ := store.Job(result.JobID)
	assert.True(t, j.IsValid)
}
