package xboxlive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/oauth2"

	"github.com/riskibarqy/halo-stats/internal/platform/logging"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

const (
	DefaultAuthorizeURL = "https://login.live.com/oauth20_authorize.srf"
	DefaultTokenURL     = "https://login.live.com/oauth20_token.srf"
	DefaultUserAuthURL  = "https://user.auth.xboxlive.com/user/authenticate"
	DefaultXSTSURL      = "https://xsts.auth.xboxlive.com/xsts/authorize"
	DefaultSpartanURL   = "https://settings.svc.halowaypoint.com/spartan-token"

	// HaloRelyingParty scopes an XSTS token to the Halo Waypoint services.
	HaloRelyingParty = "https://prod.xsts.halowaypoint.com/"
	// XboxRelyingParty scopes an XSTS token to the Xbox Live platform.
	XboxRelyingParty = "http://xboxlive.com"

	WaypointUserAgent = "HaloWaypoint/2021112313511900 CFNetwork/1327.0.4 Darwin/21.2.0"

	userAuthRelyingParty = "http://auth.xboxlive.com"
	userAuthSiteName     = "user.auth.xboxlive.com"
	spartanAudience      = "urn:343:s3:services"
	spartanMinVersion    = "4"
	spartanProofType     = "Xbox_XSTSv3"
	approvalPrompt       = "auto"
	maxResponseBytes     = 1 << 20
)

// Scopes requested from the Microsoft account consent screen.
var Scopes = []string{"Xboxlive.signin", "Xboxlive.offline_access"}

var errUnexpectedShape = crerr.New("unexpected response shape")

type Config struct {
	HTTPClient   *http.Client
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthorizeURL string
	TokenURL     string
	UserAuthURL  string
	XSTSURL      string
	SpartanURL   string
	UserAgent    string
	Logger       *logging.Logger
}

// Client performs the individual hops of the Microsoft account to Halo
// Waypoint token exchange. It holds no token state of its own.
type Client struct {
	httpClient  *http.Client
	oauth       *oauth2.Config
	userAuthURL string
	xstsURL     string
	spartanURL  string
	userAgent   string
	logger      *logging.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   withDefault(cfg.AuthorizeURL, DefaultAuthorizeURL),
				TokenURL:  withDefault(cfg.TokenURL, DefaultTokenURL),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userAuthURL: withDefault(cfg.UserAuthURL, DefaultUserAuthURL),
		xstsURL:     withDefault(cfg.XSTSURL, DefaultXSTSURL),
		spartanURL:  withDefault(cfg.SpartanURL, DefaultSpartanURL),
		userAgent:   withDefault(cfg.UserAgent, WaypointUserAgent),
		logger:      cfg.Logger,
	}
}

func (c *Client) ClientID() string {
	return c.oauth.ClientID
}

// AuthorizationURL is the consent page the operator opens to obtain a code.
func (c *Client) AuthorizationURL() string {
	return c.oauth.AuthCodeURL("", oauth2.SetAuthURLParam("approval_prompt", approvalPrompt))
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (usecase.OAuthGrant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return usecase.OAuthGrant{}, fmt.Errorf("authorization code is required")
	}

	token, err := c.oauth.Exchange(c.oauthContext(ctx), code,
		oauth2.SetAuthURLParam("approval_prompt", approvalPrompt),
		oauth2.SetAuthURLParam("scope", strings.Join(Scopes, " ")),
	)
	if err != nil {
		return usecase.OAuthGrant{}, fmt.Errorf("exchange authorization code: %w", describeOAuthError(err))
	}
	return oauthToken(token)
}

// RefreshToken redeems a stored refresh token. When the provider does not
// rotate it, the old refresh token is returned unchanged.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (usecase.OAuthGrant, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return usecase.OAuthGrant{}, fmt.Errorf("refresh token is required")
	}

	source := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return usecase.OAuthGrant{}, fmt.Errorf("refresh oauth token: %w", describeOAuthError(err))
	}
	return oauthToken(token)
}

func (c *Client) UserToken(ctx context.Context, accessToken string) (usecase.XboxUserToken, error) {
	payload := userTokenRequest{
		Properties: userTokenProperties{
			AuthMethod: "RPS",
			SiteName:   userAuthSiteName,
			RpsTicket:  "d=" + accessToken,
		},
		RelyingParty: userAuthRelyingParty,
		TokenType:    "JWT",
	}

	var decoded userTokenResponse
	if err := c.postJSON(ctx, c.userAuthURL, xblHeaders(), payload, &decoded); err != nil {
		return usecase.XboxUserToken{}, fmt.Errorf("request user token: %w", err)
	}
	if decoded.Token == "" {
		return usecase.XboxUserToken{}, crerr.Wrap(errUnexpectedShape, "user token response has no Token")
	}
	if len(decoded.DisplayClaims.Xui) == 0 || decoded.DisplayClaims.Xui[0].Uhs == "" {
		return usecase.XboxUserToken{}, crerr.Wrap(errUnexpectedShape, "user token response has no DisplayClaims.xui[0].uhs")
	}

	return usecase.XboxUserToken{Token: decoded.Token, UserHash: decoded.DisplayClaims.Xui[0].Uhs}, nil
}

// XSTSToken exchanges a user token for a security token scoped to the
// requested audience.
func (c *Client) XSTSToken(ctx context.Context, userToken string, audience usecase.SecurityAudience) (string, error) {
	relyingParty, err := relyingPartyFor(audience)
	if err != nil {
		return "", err
	}

	payload := xstsRequest{
		Properties: xstsProperties{
			SandboxID:  "RETAIL",
			UserTokens: []string{userToken},
		},
		RelyingParty: relyingParty,
		TokenType:    "JWT",
	}

	var decoded xstsResponse
	if err := c.postJSON(ctx, c.xstsURL, xblHeaders(), payload, &decoded); err != nil {
		return "", fmt.Errorf("request xsts token for %s: %w", relyingParty, err)
	}
	if decoded.Token == "" {
		return "", crerr.Wrapf(errUnexpectedShape, "xsts response for %s has no Token", relyingParty)
	}
	return decoded.Token, nil
}

func (c *Client) SpartanToken(ctx context.Context, haloXSTSToken string) (usecase.ServiceToken, error) {
	payload := spartanRequest{
		Audience:   spartanAudience,
		MinVersion: spartanMinVersion,
		Proof: []spartanProof{{
			Token:     haloXSTSToken,
			TokenType: spartanProofType,
		}},
	}
	headers := map[string]string{
		"User-Agent": c.userAgent,
		"Accept":     "application/json",
	}

	var decoded spartanResponse
	if err := c.postJSON(ctx, c.spartanURL, headers, payload, &decoded); err != nil {
		return usecase.ServiceToken{}, fmt.Errorf("request spartan token: %w", err)
	}
	if decoded.SpartanToken == "" {
		return usecase.ServiceToken{}, crerr.Wrap(errUnexpectedShape, "spartan response has no SpartanToken")
	}

	expiresAt, err := parseExpiry(decoded.ExpiresUtc.ISO8601Date)
	if err != nil {
		return usecase.ServiceToken{}, crerr.Wrapf(errUnexpectedShape, "spartan response expiry: %v", err)
	}
	return usecase.ServiceToken{Token: decoded.SpartanToken, ExpiresAt: expiresAt}, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, headers map[string]string, payload, out any) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf.B))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "token endpoint non-2xx",
			"endpoint", endpoint,
			"status_code", resp.StatusCode,
			"x_err", resp.Header.Get("X-Err"),
		)
		return fmt.Errorf("status %d: %s", resp.StatusCode, abbreviate(string(body)))
	}

	if err := sonic.Unmarshal(body, out); err != nil {
		return crerr.Wrapf(errUnexpectedShape, "decode response: %v", err)
	}
	return nil
}

func relyingPartyFor(audience usecase.SecurityAudience) (string, error) {
	switch audience {
	case usecase.AudienceGame:
		return HaloRelyingParty, nil
	case usecase.AudiencePlatform:
		return XboxRelyingParty, nil
	default:
		return "", fmt.Errorf("unknown security audience %q", audience)
	}
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func oauthToken(token *oauth2.Token) (usecase.OAuthGrant, error) {
	if token == nil || token.AccessToken == "" {
		return usecase.OAuthGrant{}, crerr.Wrap(errUnexpectedShape, "oauth response has no access_token")
	}
	return usecase.OAuthGrant{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}, nil
}

func describeOAuthError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if crerr.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return fmt.Errorf("status %d: %s", retrieveErr.Response.StatusCode, abbreviate(string(retrieveErr.Body)))
	}
	return err
}

func xblHeaders() map[string]string {
	return map[string]string{
		"x-xbl-contract-version": "1",
		"Accept":                 "application/json",
	}
}

func parseExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty ISO8601Date")
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	// Some responses omit the zone designator; they are UTC.
	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", raw, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func abbreviate(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= 240 {
		return body
	}
	return body[:240] + "..."
}

func withDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}
