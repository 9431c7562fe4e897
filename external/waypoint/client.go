package waypoint

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/halo-stats/internal/platform/codec"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
	"github.com/riskibarqy/halo-stats/internal/platform/resilience"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

const (
	DefaultStatsURL     = "https://halostats.svc.halowaypoint.com:443"
	DefaultSkillURL     = "https://skill.svc.halowaypoint.com:443"
	DefaultDiscoveryURL = "https://discovery-infiniteugc.svc.halowaypoint.com"
	DefaultProfileURL   = "https://profile.xboxlive.com"

	WaypointUserAgent = "HaloWaypoint/2021112313511900 CFNetwork/1327.0.4 Darwin/21.2.0"
	PCUserAgent       = "SHIVA-2043073184/6.10021.18539.0 (release; PC)"

	// MaxPageSize is the largest count the match history endpoint accepts.
	MaxPageSize = 25

	spartanHeader    = "x-343-authorization-spartan"
	maxResponseBytes = 6 << 20
)

// TokenSource hands out the credentials the Waypoint and profile services
// expect. The token chain service implements it.
type TokenSource interface {
	EnsureValidToken(ctx context.Context) (usecase.ServiceToken, error)
	ProfileToken(ctx context.Context) (string, error)
}

type ClientConfig struct {
	HTTPClient     *http.Client
	Timeout        time.Duration
	StatsURL       string
	SkillURL       string
	DiscoveryURL   string
	ProfileURL     string
	Tokens         TokenSource
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client issues raw requests against the Halo Waypoint services. Every method
// returns the undecoded response body; it never retries.
type Client struct {
	httpClient   *http.Client
	statsURL     string
	skillURL     string
	discoveryURL string
	profileURL   string
	tokens       TokenSource
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
	flight       resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("waypoint")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	breaker := resilience.NewCircuitBreakerFromConfig("waypoint", cfg.CircuitBreaker)
	logger.Debug("waypoint client configured", "timeout", httpClient.Timeout, "circuit_breaker", cfg.CircuitBreaker.String())
	if breaker != nil {
		breaker.OnStateChange(func(name string, from, to resilience.CircuitState) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
		})
	}

	return &Client{
		httpClient:   httpClient,
		statsURL:     baseURL(cfg.StatsURL, DefaultStatsURL),
		skillURL:     baseURL(cfg.SkillURL, DefaultSkillURL),
		discoveryURL: baseURL(cfg.DiscoveryURL, DefaultDiscoveryURL),
		profileURL:   baseURL(cfg.ProfileURL, DefaultProfileURL),
		tokens:       cfg.Tokens,
		logger:       logger,
		breaker:      breaker,
	}
}

func (c *Client) MatchStats(ctx context.Context, matchGUID string) ([]byte, error) {
	return c.get(ctx, c.statsURL+"/hi/matches/"+url.PathEscape(matchGUID)+"/stats", nil, PCUserAgent)
}

// PlayerMatches lists one page of a player's match history, newest first.
// start is a zero-based offset.
func (c *Client) PlayerMatches(ctx context.Context, xuid string, start, count int) ([]byte, error) {
	if count <= 0 || count > MaxPageSize {
		count = MaxPageSize
	}
	query := url.Values{}
	query.Set("start", strconv.Itoa(start))
	query.Set("count", strconv.Itoa(count))
	return c.get(ctx, c.playerURL(xuid, "/matches"), query, WaypointUserAgent)
}

func (c *Client) PlayerMatchCount(ctx context.Context, xuid string) ([]byte, error) {
	return c.get(ctx, c.playerURL(xuid, "/matches/count"), nil, WaypointUserAgent)
}

func (c *Client) MatchSkill(ctx context.Context, matchGUID string, xuids []string) ([]byte, error) {
	query := url.Values{}
	for _, xuid := range xuids {
		query.Add("players", codec.WrapXUID(xuid))
	}
	return c.get(ctx, c.skillURL+"/hi/matches/"+url.PathEscape(matchGUID)+"/skill", query, PCUserAgent)
}

func (c *Client) PlayerPrivacy(ctx context.Context, xuid string) ([]byte, error) {
	return c.get(ctx, c.playerURL(xuid, "/matches-privacy"), nil, WaypointUserAgent)
}

func (c *Client) Map(ctx context.Context, assetID, versionID string) ([]byte, error) {
	return c.get(ctx, c.discoveryAssetURL("maps", assetID, versionID), nil, WaypointUserAgent)
}

func (c *Client) GameVariant(ctx context.Context, assetID, versionID string) ([]byte, error) {
	return c.get(ctx, c.discoveryAssetURL("ugcGameVariants", assetID, versionID), nil, WaypointUserAgent)
}

func (c *Client) Playlist(ctx context.Context, assetID, versionID string) ([]byte, error) {
	return c.get(ctx, c.discoveryAssetURL("playlists", assetID, versionID), nil, WaypointUserAgent)
}

func (c *Client) MapModePair(ctx context.Context, assetID, versionID string) ([]byte, error) {
	return c.get(ctx, c.discoveryAssetURL("mapModePairs", assetID, versionID), nil, WaypointUserAgent)
}

// Profiles resolves gamertags through the Xbox Live profile service. It is
// authorized with the XBL3.0 platform token, not the spartan token.
func (c *Client) Profiles(ctx context.Context, xuids []string) ([]byte, error) {
	userIDs := make([]string, 0, len(xuids))
	for _, xuid := range xuids {
		userIDs = append(userIDs, codec.UnwrapXUID(xuid))
	}

	authorization, err := c.tokens.ProfileToken(ctx)
	if err != nil {
		return nil, err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(profileRequest{Settings: []string{"Gamertag"}, UserIDs: userIDs}); err != nil {
		return nil, fmt.Errorf("encode profile request: %w", err)
	}
	body := append([]byte(nil), buf.B...)

	endpoint := c.profileURL + "/users/batch/profile/settings"
	return c.guarded(ctx, endpoint, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-xbl-contract-version", "2")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", authorization)
		return req, nil
	})
}

type profileRequest struct {
	Settings []string `json:"settings"`
	UserIDs  []string `json:"userIds"`
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, userAgent string) ([]byte, error) {
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	token, err := c.tokens.EnsureValidToken(ctx)
	if err != nil {
		return nil, err
	}

	return resilience.Share(&c.flight, endpoint, func() ([]byte, error) {
		return c.guarded(ctx, endpoint, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set(spartanHeader, token.Token)
			req.Header.Set("User-Agent", userAgent)
			req.Header.Set("Accept", "application/json")
			return req, nil
		})
	})
}

func (c *Client) guarded(ctx context.Context, endpoint string, build func() (*http.Request, error)) ([]byte, error) {
	var raw []byte
	err := c.breaker.Execute(func() error {
		var reqErr error
		raw, reqErr = c.do(ctx, endpoint, build)
		return reqErr
	}, isUpstreamFailure)
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "waypoint circuit breaker rejected request", "url", endpoint)
		return nil, &usecase.UpstreamRequestError{URL: endpoint, Err: err}
	}
	return raw, err
}

func (c *Client) do(ctx context.Context, endpoint string, build func() (*http.Request, error)) ([]byte, error) {
	req, err := build()
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &usecase.UpstreamRequestError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &usecase.UpstreamRequestError{StatusCode: resp.StatusCode, URL: endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "waypoint request failed", "url", endpoint, "status_code", resp.StatusCode)
		return nil, &usecase.UpstreamRequestError{
			StatusCode: resp.StatusCode,
			URL:        endpoint,
			Body:       abbreviateBody(raw),
		}
	}
	return raw, nil
}

func (c *Client) playerURL(xuid, suffix string) string {
	return c.statsURL + "/hi/players/" + codec.WrapXUID(xuid) + suffix
}

func (c *Client) discoveryAssetURL(kind, assetID, versionID string) string {
	return c.discoveryURL + "/hi/" + kind + "/" + url.PathEscape(assetID) + "/versions/" + url.PathEscape(versionID)
}

// isUpstreamFailure counts transport errors and 5xx responses against the
// breaker. 4xx answers mean the service is up.
func isUpstreamFailure(err error) bool {
	var reqErr *usecase.UpstreamRequestError
	if !crerr.As(err, &reqErr) {
		return false
	}
	return reqErr.StatusCode == 0 || reqErr.StatusCode >= 500
}

func abbreviateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) <= 240 {
		return body
	}
	cut := 240
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}

func baseURL(v, fallback string) string {
	v = strings.TrimRight(strings.TrimSpace(v), "/")
	if v == "" {
		return fallback
	}
	return v
}
