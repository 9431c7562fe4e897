package postgres

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/riskibarqy/halo-stats/internal/domain/asset"
	"github.com/riskibarqy/halo-stats/internal/domain/job"
	"github.com/riskibarqy/halo-stats/internal/domain/match"
	"github.com/riskibarqy/halo-stats/internal/domain/player"
)

func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// setupTestDB starts a postgres container and applies db/migrations.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	if !dockerAvailable() {
		t.Skip("docker is not available, skipping postgres integration test")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("halo_stats"),
		tcpostgres.WithUsername("halo"),
		tcpostgres.WithPassword("halo"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrationsDir, err := filepath.Abs("../../../../db/migrations")
	require.NoError(t, err)
	m, err := migrate.New("file://"+filepath.ToSlash(migrationsDir), dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("apply migrations: %v", err)
	}
	_, _ = m.Close()

	db, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func testMatch(guid string, startedAt time.Time) match.Match {
	return match.Match{
		GUID:                    guid,
		StartedAt:               startedAt,
		CompletedAt:             startedAt.Add(10 * time.Minute),
		DurationSeconds:         600,
		Map:                     match.AssetRef{AssetID: "map-asset", VersionID: "map-v1"},
		MapLevelID:              "level-1",
		Mode:                    match.AssetRef{AssetID: "mode-asset", VersionID: "mode-v1"},
		ModeCategoryID:          6,
		Playlist:                &match.AssetRef{AssetID: "playlist-asset", VersionID: "playlist-v1"},
		LifecycleModeID:         3,
		ExperienceID:            2,
		SeasonID:                "Seasons/Season3.json",
		PlayableDurationSeconds: 600,
	}
}

func testTeam(teamID int) match.Team {
	return match.Team{
		TeamID:    teamID,
		OutcomeID: 2,
		Rank:      1,
		Stats:     match.CoreStats{Kills: 30, Medals: []match.Medal{{NameID: 622331684, Count: 2}}},
		Mode:      match.ModeStats{Kind: match.ModeOddball, Oddball: &match.OddballStats{SkullGrabs: 4}},
	}
}

func testParticipant(team int) match.Participation {
	return match.Participation{
		LastTeamID:          team,
		OutcomeID:           2,
		Rank:                1,
		FirstJoinedAt:       time.Date(2023, 1, 20, 2, 9, 2, 0, time.UTC),
		PresentAtBeginning:  true,
		PresentAtCompletion: true,
		TimePlayedSeconds:   631.2,
		Stats:               match.CoreStats{Kills: 12},
	}
}

const (
	guidA = "0000000a-4717-4966-9902-af7097469f74"
	guidB = "0000000b-4717-4966-9902-af7097469f74"
	guidC = "0000000c-4717-4966-9902-af7097469f74"
)

func TestMatchRepository_CreateMatchesIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMatchRepository(db)
	ctx := context.Background()
	start := time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC)

	first, err := repo.CreateMatches(ctx, []match.Match{testMatch(guidA, start), testMatch(guidB, start.Add(time.Hour))})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := repo.CreateMatches(ctx, []match.Match{testMatch(guidB, start.Add(time.Hour)), testMatch(guidA, start)})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[1])

	var matchCount, versionCount int
	require.NoError(t, db.GetContext(ctx, &matchCount, "SELECT COUNT(*) FROM match"))
	require.NoError(t, db.GetContext(ctx, &versionCount, "SELECT COUNT(*) FROM map_version"))
	assert.Equal(t, 2, matchCount)
	assert.Equal(t, 1, versionCount)
}

func TestMatchRepository_ListMissingDetailCountsPartialRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMatchRepository(db)
	ctx := context.Background()
	start := time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC)

	_, err := repo.CreateMatches(ctx, []match.Match{
		testMatch(guidA, start),
		testMatch(guidB, start.Add(time.Hour)),
		testMatch(guidC, start.Add(2*time.Hour)),
	})
	require.NoError(t, err)

	// A is complete, B has teams only, C has players only.
	require.NoError(t, repo.SaveDetail(ctx, match.Detail{
		MatchGUID: guidA,
		Teams:     []match.Team{testTeam(0), testTeam(1)},
		Players:   []match.Player{{XUID: "2533274800000001", Participation: testParticipant(0)}},
		Bots:      []match.Bot{{BotID: "2.0", DifficultyID: 2, Participation: testParticipant(1)}},
	}))
	require.NoError(t, repo.SaveDetail(ctx, match.Detail{MatchGUID: guidB, Teams: []match.Team{testTeam(0)}}))
	require.NoError(t, repo.SaveDetail(ctx, match.Detail{
		MatchGUID: guidC,
		Players:   []match.Player{{XUID: "2533274800000002", Participation: testParticipant(0)}},
	}))

	missing, err := repo.ListMissingDetail(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, guidC, missing[0].GUID)
	assert.Equal(t, guidB, missing[1].GUID)

	// Saving the same detail again keeps a single row per participant.
	require.NoError(t, repo.SaveDetail(ctx, match.Detail{
		MatchGUID: guidA,
		Players:   []match.Player{{XUID: "2533274800000001", Participation: testParticipant(0)}},
	}))
	var playerRows int
	require.NoError(t, db.GetContext(ctx, &playerRows, "SELECT COUNT(*) FROM match_player"))
	assert.Equal(t, 2, playerRows)
}

func TestJobRepository_NextPlayerOrdersByLatestValidJob(t *testing.T) {
	db := setupTestDB(t)
	players := NewPlayerRepository(db)
	jobs := NewJobRepository(db)
	ctx := context.Background()

	upsert := func(xuid string) player.Player {
		p, err := players.Upsert(ctx, xuid)
		require.NoError(t, err)
		return p
	}
	runJob := func(p player.Player, complete bool) {
		j, err := jobs.Create(ctx, job.TypeMatch)
		require.NoError(t, err)
		require.NoError(t, jobs.AttachPlayer(ctx, j.ID, p.ID))
		if complete {
			require.NoError(t, jobs.Complete(ctx, j.ID, time.Second))
		}
	}

	a := upsert("100")
	b := upsert("200")
	c := upsert("300")
	runJob(a, true)
	runJob(b, true)
	runJob(c, false)

	next, ok, err := jobs.NextPlayer(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, c.XUID, next.XUID, "a player with only invalid jobs counts as never covered")

	runJob(c, true)
	next, ok, err = jobs.NextPlayer(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a.XUID, next.XUID)

	again := upsert("100")
	assert.Equal(t, a.ID, again.ID)
}

func TestJobRepository_CoverageSummaryUsesValidJobsOnly(t *testing.T) {
	db := setupTestDB(t)
	matches := NewMatchRepository(db)
	players := NewPlayerRepository(db)
	jobs := NewJobRepository(db)
	ctx := context.Background()
	start := time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC)

	p, err := players.Upsert(ctx, "100")
	require.NoError(t, err)

	ids, err := matches.CreateMatches(ctx, []match.Match{testMatch(guidA, start), testMatch(guidB, start.Add(time.Hour))})
	require.NoError(t, err)

	valid, err := jobs.Create(ctx, job.TypeMatch)
	require.NoError(t, err)
	require.NoError(t, jobs.AttachPlayer(ctx, valid.ID, p.ID))
	require.NoError(t, jobs.AttachMatches(ctx, valid.ID, ids[:1]))
	require.NoError(t, jobs.Complete(ctx, valid.ID, 2*time.Second))

	invalid, err := jobs.Create(ctx, job.TypeMatch)
	require.NoError(t, err)
	require.NoError(t, jobs.AttachPlayer(ctx, invalid.ID, p.ID))
	require.NoError(t, jobs.AttachMatches(ctx, invalid.ID, ids))

	coverage, err := jobs.CoverageSummary(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, coverage.MatchCount)
	require.NotNil(t, coverage.LastMatchAt)
	assert.True(t, coverage.LastMatchAt.Equal(start))

	empty, err := jobs.CoverageSummary(ctx, p.ID+1000)
	require.NoError(t, err)
	assert.Zero(t, empty.MatchCount)
	assert.Nil(t, empty.LastMatchAt)
}

func TestAssetRepository_UnnamedVersionsAndUpdates(t *testing.T) {
	db := setupTestDB(t)
	matches := NewMatchRepository(db)
	assets := NewAssetRepository(db)
	players := NewPlayerRepository(db)
	ctx := context.Background()

	_, err := matches.CreateMatches(ctx, []match.Match{testMatch(guidA, time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC))})
	require.NoError(t, err)

	maps, err := assets.ListUnnamedMapVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []asset.Version{{AssetID: "map-asset", VersionID: "map-v1"}}, maps)

	require.NoError(t, assets.UpdateMaps(ctx, []asset.Map{{AssetID: "map-asset", VersionID: "map-v1", Name: "Live Fire"}}))
	require.NoError(t, assets.UpdatePlaylists(ctx, []asset.Playlist{{AssetID: "playlist-asset", Name: "Ranked Arena", IsRanked: true, MaxFireteamSize: 4}}))

	maps, err = assets.ListUnnamedMapVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, maps)
	playlists, err := assets.ListUnnamedPlaylistVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, playlists)
	modes, err := assets.ListUnnamedModeVersions(ctx)
	require.NoError(t, err)
	assert.Len(t, modes, 1)

	_, err = players.Upsert(ctx, "100")
	require.NoError(t, err)
	missing, err := players.ListMissingGamertag(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"100"}, missing)

	require.NoError(t, players.UpdateGamertags(ctx, []player.Profile{{XUID: "100", Gamertag: "Chief"}}))
	got, ok, err := players.GetByXUID(ctx, "100")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Chief", got.Gamertag)
}
