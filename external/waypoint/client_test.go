package waypoint

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/halo-stats/internal/platform/logging"
	"github.com/riskibarqy/halo-stats/internal/platform/resilience"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

type staticTokens struct {
	spartan string
	profile string
}

func (s staticTokens) EnsureValidToken(context.Context) (usecase.ServiceToken, error) {
	return usecase.ServiceToken{Token: s.spartan, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s staticTokens) ProfileToken(context.Context) (string, error) {
	return s.profile, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		StatsURL:       srv.URL,
		SkillURL:       srv.URL,
		DiscoveryURL:   srv.URL,
		ProfileURL:     srv.URL,
		Tokens:         staticTokens{spartan: "spartan-abc", profile: "XBL3.0 x=uhs;xsts"},
		Logger:         logging.NewNop(),
		CircuitBreaker: breaker,
	})
}

func TestClient_GetRequestsCarrySpartanHeaders(t *testing.T) {
	t.Parallel()

	type seen struct {
		path, query, spartan, agent, accept string
	}
	requests := make(chan seen, 4)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests <- seen{
			path:    r.URL.Path,
			query:   r.URL.RawQuery,
			spartan: r.Header.Get("x-343-authorization-spartan"),
			agent:   r.Header.Get("User-Agent"),
			accept:  r.Header.Get("Accept"),
		}
		_, _ = w.Write([]byte(`{}`))
	}, resilience.CircuitBreakerConfig{})

	_, err := client.PlayerMatches(context.Background(), "2533274800000001", 25, 25)
	require.NoError(t, err)
	page := <-requests
	assert.Equal(t, "/hi/players/xuid(2533274800000001)/matches", page.path)
	assert.Equal(t, "count=25&start=25", page.query)
	assert.Equal(t, "spartan-abc", page.spartan)
	assert.Equal(t, WaypointUserAgent, page.agent)
	assert.Equal(t, "application/json", page.accept)

	_, err = client.MatchStats(context.Background(), "21416434-4717-4966-9902-af7097469f74")
	require.NoError(t, err)
	stats := <-requests
	assert.Equal(t, "/hi/matches/21416434-4717-4966-9902-af7097469f74/stats", stats.path)
	assert.Equal(t, PCUserAgent, stats.agent)

	_, err = client.MatchSkill(context.Background(), "21416434-4717-4966-9902-af7097469f74", []string{"1", "xuid(2)"})
	require.NoError(t, err)
	skill := <-requests
	assert.Equal(t, "players=xuid%281%29&players=xuid%282%29", skill.query)

	_, err = client.GameVariant(context.Background(), "asset", "version")
	require.NoError(t, err)
	variant := <-requests
	assert.Equal(t, "/hi/ugcGameVariants/asset/versions/version", variant.path)

	_, err = client.MapModePair(context.Background(), "pair", "v1")
	require.NoError(t, err)
	assert.Equal(t, "/hi/mapModePairs/pair/versions/v1", (<-requests).path)

	_, err = client.PlayerPrivacy(context.Background(), "2533274800000001")
	require.NoError(t, err)
	privacy := <-requests
	assert.Equal(t, "/hi/players/xuid(2533274800000001)/matches-privacy", privacy.path)
	assert.Equal(t, WaypointUserAgent, privacy.agent)
}

func TestClient_ProfilesUsesPlatformToken(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/batch/profile/settings", r.URL.Path)
		assert.Equal(t, "2", r.Header.Get("x-xbl-contract-version"))
		assert.Equal(t, "XBL3.0 x=uhs;xsts", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("x-343-authorization-spartan"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var payload profileRequest
		assert.NoError(t, sonic.Unmarshal(body, &payload))
		assert.Equal(t, []string{"Gamertag"}, payload.Settings)
		assert.Equal(t, []string{"1", "2"}, payload.UserIDs)

		_, _ = w.Write([]byte(`{"profileUsers":[]}`))
	}, resilience.CircuitBreakerConfig{})

	_, err := client.Profiles(context.Background(), []string{"xuid(1)", "2"})
	require.NoError(t, err)
}

func TestClient_NonSuccessStatusReturnsUpstreamError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(strings.Repeat("x", 500)))
	}, resilience.CircuitBreakerConfig{})

	_, err := client.PlayerMatchCount(context.Background(), "1")
	require.Error(t, err)
	require.True(t, errors.Is(err, usecase.ErrUpstreamRequest))

	var upstreamErr *usecase.UpstreamRequestError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusForbidden, upstreamErr.StatusCode)
	assert.Contains(t, upstreamErr.URL, "/hi/players/xuid(1)/matches/count")
	assert.Len(t, upstreamErr.Body, 243)
}

func TestClient_CircuitBreakerCountsOnlyServerFailures(t *testing.T) {
	t.Parallel()

	var status atomic.Int64
	status.Store(http.StatusNotFound)
	var hits atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
	}, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	for i := 0; i < 3; i++ {
		_, err := client.Map(context.Background(), "a", "v")
		require.Error(t, err)
	}
	require.EqualValues(t, 3, hits.Load(), "4xx responses must not open the breaker")

	status.Store(http.StatusBadGateway)
	for i := 0; i < 2; i++ {
		_, err := client.Map(context.Background(), "a", "v")
		require.Error(t, err)
	}

	_, err := client.Map(context.Background(), "a", "v")
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	require.ErrorIs(t, err, usecase.ErrUpstreamRequest)
	var upstreamErr *usecase.UpstreamRequestError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Zero(t, upstreamErr.StatusCode)
	assert.EqualValues(t, 5, hits.Load())
}

func TestAbbreviateBody_KeepsRunesWhole(t *testing.T) {
	t.Parallel()

	short := abbreviateBody([]byte("  service unavailable \n"))
	assert.Equal(t, "service unavailable", short)

	raw := strings.Repeat("a", 239) + strings.Repeat("é", 10)
	got := abbreviateBody([]byte(raw))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 239)+"...", got)
}
