package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/halo-stats/internal/domain/match"
	"github.com/riskibarqy/halo-stats/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
)

func newDetailFixture(t *testing.T, n int) (*memory.Store, *fakeProvider, *DetailJobService, []match.Match) {
	t.Helper()

	store := memory.NewStore()
	history := fakeHistory(n)
	_, err := memory.NewMatchRepository(store).CreateMatches(context.Background(), history)
	require.NoError(t, err)

	provider := newFakeProvider()
	for i, m := range history {
		provider.details[m.GUID] = match.Detail{
			MatchGUID: m.GUID,
			Teams:     []match.Team{{TeamID: 0}, {TeamID: 1}},
			Players:   []match.Player{{XUID: "2533274800000001"}},
			Bots:      []match.Bot{{BotID: "2.0", DifficultyID: i % 4}},
		}
	}

	service := NewDetailJobService(provider, memory.NewMatchRepository(store), memory.NewJobRepository(store), 2, logging.NewNop())
	return store, provider, service, history
}

func TestDetailJobService_SavesEveryPendingMatch(t *testing.T) {
	t.Parallel()

	store, _, service, _ := newDetailFixture(t, 5)

	result, err := service.Run(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Pending)
	assert.Equal(t, 5, result.Saved)

	teams, players, bots := store.DetailRowCount()
	assert.Equal(t, 10, teams)
	assert.Equal(t, 5, players)
	assert.Equal(t, 5, bots)

	j, _ := store.Job(result.JobID)
	assert.True(t, j.IsValid)

	again, err := service.Run(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, again.Pending)
}

func TestDetailJobService_NormalizationErrorFailsJobAfterDraining(t *testing.T) {
	t.Parallel()

	store, provider, service, history := newDetailFixture(t, 4)
	bad := history[1].GUID
	provider.detailErr[bad] = &NormalizationError{EntityKind: "match_detail", Path: "Teams[1].Stats.CoreStats.Kills"}

	result, err := service.Run(context.Background(), 10)
	require.ErrorIs(t, err, ErrNormalization)
	assert.Equal(t, 3, result.Saved, "other matches are still saved")

	missing, err := memory.NewMatchRepository(store).ListMissingDetail(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, bad, missing[0].GUID)

	j, _ := store.Job(result.JobID)
	assert.False(t, j.IsValid)
}

func TestDetailJobService_RespectsLimit(t *testing.T) {
	t.Parallel()

	store, _, service, _ := newDetailFixture(t, 6)

	result, err := service.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)

	missing, err := memory.NewMatchRepository(store).ListMissingDetail(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, missing, 4)
}
