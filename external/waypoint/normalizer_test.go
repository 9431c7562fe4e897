package waypoint

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/halo-stats/external/waypoint/waypointtest"
	"github.com/riskibarqy/halo-stats/internal/domain/match"
	"github.com/riskibarqy/halo-stats/internal/infrastructure/diagnostic"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

type recordingSink struct {
	mu    sync.Mutex
	dumps []diagnostic.Dump
}

func (s *recordingSink) Write(_ context.Context, dump diagnostic.Dump) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dumps = append(s.dumps, dump)
	return nil
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.dumps))
	for _, d := range s.dumps {
		out = append(out, d.Kind)
	}
	return out
}

func newTestNormalizer() (*Normalizer, *recordingSink) {
	sink := &recordingSink{}
	return NewNormalizer(sink, logging.NewNop()), sink
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := sonic.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestFlattenMatchPage(t *testing.T) {
	t.Parallel()

	start := time.Date(2023, 1, 20, 2, 0, 0, 0, time.UTC)
	withoutPlaylist := waypointtest.MatchResult(waypointtest.MatchGUID(2), start.Add(-time.Hour))
	withoutPlaylist["MatchInfo"].(waypointtest.Object)["Playlist"] = nil

	raw := mustJSON(t, waypointtest.Object{"Results": []any{
		waypointtest.MatchResult(waypointtest.MatchGUID(1), start),
		withoutPlaylist,
	}})

	n, _ := newTestNormalizer()
	matches, err := n.FlattenMatchPage(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	first := matches[0]
	assert.Equal(t, waypointtest.MatchGUID(1), first.GUID)
	assert.True(t, first.StartedAt.Equal(start))
	assert.True(t, first.CompletedAt.Equal(start.Add(10*time.Minute)))
	assert.InDelta(t, 632.5, first.DurationSeconds, 1e-9)
	assert.InDelta(t, 600, first.PlayableDurationSeconds, 1e-9)
	assert.Equal(t, match.AssetRef{AssetID: waypointtest.MapAssetID, VersionID: waypointtest.MapVersionID}, first.Map)
	assert.Equal(t, waypointtest.ModeAssetID, first.Mode.AssetID)
	assert.Equal(t, 6, first.ModeCategoryID)
	assert.Equal(t, 3, first.LifecycleModeID)
	assert.Equal(t, 2, first.ExperienceID)
	assert.Equal(t, "Seasons/Season3.json", first.SeasonID)
	require.NotNil(t, first.Playlist)
	assert.Equal(t, waypointtest.PlaylistAssetID, first.Playlist.AssetID)

	assert.Nil(t, matches[1].Playlist)
}

func TestFlattenMatchPage_CanonicalizesMatchID(t *testing.T) {
	t.Parallel()

	guid := waypointtest.MatchGUID(7)
	raw := mustJSON(t, waypointtest.Object{"Results": []any{
		waypointtest.MatchResult("{"+strings.ToUpper(guid)+"}", time.Now()),
	}})

	n, _ := newTestNormalizer()
	matches, err := n.FlattenMatchPage(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, guid, matches[0].GUID)
}

func TestFlattenMatchPage_BadRecordFailsWholePage(t *testing.T) {
	t.Parallel()

	bad := waypointtest.MatchResult("not-a-guid", time.Now())
	raw := mustJSON(t, waypointtest.Object{"Results": []any{
		waypointtest.MatchResult(waypointtest.MatchGUID(1), time.Now()),
		bad,
	}})

	n, sink := newTestNormalizer()
	matches, err := n.FlattenMatchPage(context.Background(), raw)
	require.Nil(t, matches)

	var normErr *usecase.NormalizationError
	require.True(t, errors.As(err, &normErr))
	assert.Equal(t, "Results[1].MatchId", normErr.Path)
	assert.Equal(t, raw, normErr.RawPayload)
	assert.Equal(t, []string{"match_processing_error"}, sink.kinds())
}

func TestFlattenMatchCount(t *testing.T) {
	t.Parallel()

	n, _ := newTestNormalizer()
	count, err := n.FlattenMatchCount(context.Background(), []byte(`{"CustomMatchesPlayedCount":0,"MatchesPlayedCount":1234}`))
	require.NoError(t, err)
	assert.Equal(t, 1234, count)

	_, err = n.FlattenMatchCount(context.Background(), []byte(`{"MatchesPlayedCount":"many"}`))
	assert.ErrorIs(t, err, usecase.ErrNormalization)
}

func TestFlattenMatchDetail_PlayersAndBots(t *testing.T) {
	t.Parallel()

	guid := waypointtest.MatchGUID(7)
	n, sink := newTestNormalizer()
	detail, err := n.FlattenMatchDetail(context.Background(), mustJSON(t, waypointtest.MatchDetail(guid, nil)))
	require.NoError(t, err)

	assert.Equal(t, guid, detail.MatchGUID)
	require.Len(t, detail.Teams, 2)
	assert.Equal(t, 30, detail.Teams[0].Stats.Kills)
	assert.Equal(t, 25, detail.Teams[1].Stats.Kills)
	assert.True(t, detail.Teams[0].Mode.Empty())
	require.Len(t, detail.Teams[0].Stats.Medals, 2)
	assert.Equal(t, match.Medal{NameID: 3334154676, Count: 1}, detail.Teams[0].Stats.Medals[1])

	require.Len(t, detail.Players, 1)
	player := detail.Players[0]
	assert.Equal(t, "2533274800000001", player.XUID)
	assert.Equal(t, 12, player.Stats.Kills)
	assert.Nil(t, player.LastLeftAt)
	assert.True(t, player.PresentAtCompletion)
	assert.InDelta(t, 631.2, player.TimePlayedSeconds, 1e-9)

	require.Len(t, detail.Bots, 1)
	assert.Equal(t, "2.0", detail.Bots[0].BotID)
	assert.Equal(t, 2, detail.Bots[0].DifficultyID)
	assert.Equal(t, 1, detail.Bots[0].LastTeamID)

	assert.Empty(t, sink.kinds())
}

func TestFlattenMatchDetail_MissingCoreStatFails(t *testing.T) {
	t.Parallel()

	payload := waypointtest.MatchDetail(waypointtest.MatchGUID(8), nil)
	team := payload["Teams"].([]any)[1].(waypointtest.Object)
	delete(team["Stats"].(waypointtest.Object)["CoreStats"].(waypointtest.Object), "Kills")

	n, sink := newTestNormalizer()
	_, err := n.FlattenMatchDetail(context.Background(), mustJSON(t, payload))

	var normErr *usecase.NormalizationError
	require.True(t, errors.As(err, &normErr))
	assert.Equal(t, "match_detail", normErr.EntityKind)
	assert.Equal(t, "Teams[1].Stats.CoreStats.Kills", normErr.Path)
	assert.Equal(t, []string{"match_detail_processing_error"}, sink.kinds())
}

func TestFlattenMatchDetail_PlayerStatsFollowLastTeam(t *testing.T) {
	t.Parallel()

	payload := waypointtest.MatchDetail(waypointtest.MatchGUID(9), nil)
	human := payload["Players"].([]any)[0].(waypointtest.Object)
	human["LastTeamId"] = 1
	human["PlayerTeamStats"] = []any{
		waypointtest.Object{"TeamId": 0, "Stats": waypointtest.Object{"CoreStats": waypointtest.CoreStats(3)}},
		waypointtest.Object{"TeamId": 1, "Stats": waypointtest.Object{"CoreStats": waypointtest.CoreStats(9)}},
	}
	bot := payload["Players"].([]any)[1].(waypointtest.Object)
	bot["LastTeamId"] = 5

	n, _ := newTestNormalizer()
	detail, err := n.FlattenMatchDetail(context.Background(), mustJSON(t, payload))
	require.NoError(t, err)
	assert.Equal(t, 9, detail.Players[0].Stats.Kills)
	assert.Equal(t, 12, detail.Bots[0].Stats.Kills, "unmatched team falls back to the first entry")
}

func TestFlattenMatchDetail_ModeDispatch(t *testing.T) {
	t.Parallel()

	oddball := waypointtest.Object{
		"KillsAsSkullCarrier":       2,
		"LongestTimeAsSkullCarrier": "PT45.5S",
		"SkullCarriersKilled":       3,
		"SkullGrabs":                4,
		"TimeAsSkullCarrier":        "PT1M30S",
		"SkullScoringTicks":         80,
	}
	n, sink := newTestNormalizer()
	detail, err := n.FlattenMatchDetail(context.Background(), mustJSON(t, waypointtest.MatchDetail(waypointtest.MatchGUID(10), waypointtest.Object{
		"OddballStats": oddball,
		"BombStats":    nil,
	})))
	require.NoError(t, err)

	mode := detail.Players[0].Mode
	require.Equal(t, match.ModeOddball, mode.Kind)
	require.NotNil(t, mode.Oddball)
	assert.InDelta(t, 90, mode.Oddball.TimeAsSkullCarrierSeconds, 1e-9)
	assert.InDelta(t, 45.5, mode.Oddball.LongestTimeAsSkullCarrierSeconds, 1e-9)
	assert.Equal(t, 80, mode.Oddball.SkullScoringTicks)
	assert.Nil(t, mode.Elimination)
	assert.Empty(t, sink.kinds())
}

func TestFlattenMatchDetail_UnsupportedModes(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"BombStats", "CaptureTheFlagStats", "ExtractionStats", "InfectionStats"} {
		t.Run(key, func(t *testing.T) {
			t.Parallel()

			n, sink := newTestNormalizer()
			_, err := n.FlattenMatchDetail(context.Background(), mustJSON(t, waypointtest.MatchDetail(waypointtest.MatchGUID(11), waypointtest.Object{
				key: waypointtest.Object{"Anything": 1},
			})))
			require.ErrorIs(t, err, usecase.ErrUnsupportedMode)
			var modeErr *usecase.UnsupportedModeError
			require.True(t, errors.As(err, &modeErr))
			assert.Equal(t, "team", modeErr.EntityKind)
			assert.Equal(t, []string{DumpUnsupportedMode}, sink.kinds())
		})
	}
}

func TestFlattenMatchDetail_MultipleModeBlocksUseProbeOrder(t *testing.T) {
	t.Parallel()

	elimination := waypointtest.Object{
		"AlliesRevived": 1, "EliminationAssists": 2, "Eliminations": 3, "EnemyRevivesDenied": 0,
		"Executions": 1, "KillsAsLastPlayerStanding": 0, "LastPlayersStandingKilled": 1,
		"RoundsSurvived": 2, "TimesRevivedByAlly": 0,
	}
	zones := waypointtest.Object{
		"ZoneCaptures": 1, "ZoneDefensiveKills": 1, "ZoneOffensiveKills": 1, "ZoneSecures": 1,
		"TotalZoneOccupationTime": "PT1M", "ZoneScoringTicks": 10,
	}

	n, sink := newTestNormalizer()
	detail, err := n.FlattenMatchDetail(context.Background(), mustJSON(t, waypointtest.MatchDetail(waypointtest.MatchGUID(12), waypointtest.Object{
		"ZonesStats":       zones,
		"EliminationStats": elimination,
	})))
	require.NoError(t, err)

	team := detail.Teams[0].Mode
	assert.Equal(t, match.ModeElimination, team.Kind)
	require.NotNil(t, team.Elimination)
	assert.Equal(t, 3, team.Elimination.Eliminations)
	assert.Nil(t, team.Elimination.LivesRemaining)
	assert.Nil(t, team.Zones)
	assert.Equal(t, []string{DumpMultipleModeBlocks}, sink.kinds(), "anomaly is dumped once per payload")
}

func TestFlattenMatchDetail_WideStatsObjectIsDumpedButKept(t *testing.T) {
	t.Parallel()

	extra := waypointtest.Object{}
	for _, key := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"} {
		extra["Unknown"+key+"Stats"] = waypointtest.Object{}
	}

	n, sink := newTestNormalizer()
	detail, err := n.FlattenMatchDetail(context.Background(), mustJSON(t, waypointtest.MatchDetail(waypointtest.MatchGUID(13), extra)))
	require.NoError(t, err)
	assert.Len(t, detail.Teams, 2)
	assert.Equal(t, []string{DumpTooManyStatsKeys}, sink.kinds())
}

func TestFlattenGameVariant(t *testing.T) {
	t.Parallel()

	n, _ := newTestNormalizer()
	mode, err := n.FlattenGameVariant(context.Background(), mustJSON(t, waypointtest.GameVariant("a", "v", "Arena:Slayer")))
	require.NoError(t, err)
	assert.Equal(t, "Arena", mode.Context)
	assert.Equal(t, "Slayer", mode.Name)

	mode, err = n.FlattenGameVariant(context.Background(), mustJSON(t, waypointtest.GameVariant("a", "v", "Ranked:Slayer:Doubles")))
	require.NoError(t, err)
	assert.Equal(t, "Ranked", mode.Context)
	assert.Equal(t, "Slayer:Doubles", mode.Name)

	mode, err = n.FlattenGameVariant(context.Background(), mustJSON(t, waypointtest.GameVariant("a", "v", "Fiesta")))
	require.NoError(t, err)
	assert.Empty(t, mode.Context)
	assert.Equal(t, "Fiesta", mode.Name)
}

func TestFlattenPlaylist_InputFlags(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		inputs     []int
		controller bool
		mnk        bool
	}{
		{name: "unrestricted", inputs: nil, controller: true, mnk: true},
		{name: "any", inputs: []int{0}, controller: true, mnk: true},
		{name: "controller only", inputs: []int{1}, controller: true, mnk: false},
		{name: "mnk only", inputs: []int{2}, controller: false, mnk: true},
		{name: "both", inputs: []int{1, 2}, controller: true, mnk: true},
	}

	n, _ := newTestNormalizer()
	for _, tc := range cases {
		playlist, err := n.FlattenPlaylist(context.Background(), mustJSON(t, waypointtest.Playlist("a", "v", "Ranked Arena", tc.inputs, 4)))
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.controller, playlist.IsController, tc.name)
		assert.Equal(t, tc.mnk, playlist.IsMNK, tc.name)
		assert.True(t, playlist.IsRanked, tc.name)
		assert.Equal(t, 4, playlist.MaxFireteamSize, tc.name)
	}

	playlist, err := n.FlattenPlaylist(context.Background(), mustJSON(t, waypointtest.Playlist("a", "v", "Quick Play", nil, 8)))
	require.NoError(t, err)
	assert.False(t, playlist.IsRanked)
}

func TestFlattenProfiles(t *testing.T) {
	t.Parallel()

	n, _ := newTestNormalizer()
	profiles, err := n.FlattenProfiles(context.Background(), []byte(`{"profileUsers":[
		{"id":"1","settings":[{"id":"GameDisplayPicRaw","value":"pic"},{"id":"Gamertag","value":"First"},{"id":"Gamertag","value":"Second"}]},
		{"id":"2","settings":[{"id":"Gamertag","value":"Other"}]}
	]}`))
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "First", profiles[0].Gamertag)
	assert.Equal(t, "2", profiles[1].XUID)

	_, err = n.FlattenProfiles(context.Background(), []byte(`{"profileUsers":[{"id":"1","settings":[]}]}`))
	assert.ErrorIs(t, err, usecase.ErrNormalization)
}
