package xboxlive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/halo-stats/internal/usecase"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		HTTPClient:   srv.Client(),
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://localhost/callback",
		AuthorizeURL: srv.URL + "/oauth20_authorize.srf",
		TokenURL:     srv.URL + "/oauth20_token.srf",
		UserAuthURL:  srv.URL + "/user/authenticate",
		XSTSURL:      srv.URL + "/xsts/authorize",
		SpartanURL:   srv.URL + "/spartan-token",
	})
	return srv, client
}

func TestClient_AuthorizationURL(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{ClientID: "client-id", RedirectURL: "https://localhost/callback"})
	parsed, err := url.Parse(client.AuthorizationURL())
	if err != nil {
		t.Fatalf("parse authorization url: %v", err)
	}
	if !strings.HasPrefix(parsed.String(), DefaultAuthorizeURL) {
		t.Fatalf("unexpected authorize endpoint: %s", parsed)
	}
	q := parsed.Query()
	if q.Get("response_type") != "code" || q.Get("client_id") != "client-id" || q.Get("approval_prompt") != "auto" {
		t.Fatalf("unexpected authorization query: %v", q)
	}
	if q.Get("scope") != "Xboxlive.signin Xboxlive.offline_access" {
		t.Fatalf("unexpected scope: %q", q.Get("scope"))
	}
}

func TestClient_ExchangeCodeSendsFormParams(t *testing.T) {
	t.Parallel()

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth20_token.srf" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		want := map[string]string{
			"grant_type":      "authorization_code",
			"code":            "one-time-code",
			"approval_prompt": "auto",
			"scope":           "Xboxlive.signin Xboxlive.offline_access",
			"redirect_uri":    "https://localhost/callback",
			"client_id":       "client-id",
			"client_secret":   "client-secret",
		}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Fatalf("unexpected form %s: got=%q want=%q", k, got, v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "bearer",
			"expires_in":    3600,
		})
	})

	token, err := client.ExchangeCode(context.Background(), "one-time-code")
	if err != nil {
		t.Fatalf("exchange code: %v", err)
	}
	if token.AccessToken != "access-1" || token.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected token: %+v", token)
	}
}

func TestClient_RefreshTokenKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	t.Parallel()

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "refresh-1" {
			t.Fatalf("unexpected refresh form: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "access-2", "token_type": "bearer", "expires_in": 3600})
	})

	token, err := client.RefreshToken(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("refresh token: %v", err)
	}
	if token.AccessToken != "access-2" || token.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected token: %+v", token)
	}
}

func TestClient_UserTokenAndXSTSPayloads(t *testing.T) {
	t.Parallel()

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-xbl-contract-version"); got != "1" {
			t.Fatalf("unexpected contract version: %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		props := body["Properties"].(map[string]any)
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/user/authenticate":
			if props["RpsTicket"] != "d=access-1" || props["AuthMethod"] != "RPS" || props["SiteName"] != "user.auth.xboxlive.com" {
				t.Fatalf("unexpected user token properties: %v", props)
			}
			if body["RelyingParty"] != "http://auth.xboxlive.com" || body["TokenType"] != "JWT" {
				t.Fatalf("unexpected user token body: %v", body)
			}
			_, _ = w.Write([]byte(`{"Token":"user-token","DisplayClaims":{"xui":[{"uhs":"uhs-1"}]}}`))
		case "/xsts/authorize":
			if props["SandboxId"] != "RETAIL" {
				t.Fatalf("unexpected sandbox: %v", props["SandboxId"])
			}
			tokens := props["UserTokens"].([]any)
			if len(tokens) != 1 || tokens[0] != "user-token" {
				t.Fatalf("unexpected user tokens: %v", tokens)
			}
			_, _ = w.Write([]byte(`{"Token":"xsts-for-` + body["RelyingParty"].(string) + `"}`))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	user, err := client.UserToken(ctx, "access-1")
	if err != nil {
		t.Fatalf("user token: %v", err)
	}
	if user.Token != "user-token" || user.UserHash != "uhs-1" {
		t.Fatalf("unexpected user token: %+v", user)
	}

	halo, err := client.XSTSToken(ctx, user.Token, usecase.AudienceGame)
	if err != nil {
		t.Fatalf("halo xsts: %v", err)
	}
	if halo != "xsts-for-https://prod.xsts.halowaypoint.com/" {
		t.Fatalf("unexpected halo xsts: %s", halo)
	}
	xbox, err := client.XSTSToken(ctx, user.Token, usecase.AudiencePlatform)
	if err != nil {
		t.Fatalf("xbox xsts: %v", err)
	}
	if xbox != "xsts-for-http://xboxlive.com" {
		t.Fatalf("unexpected xbox xsts: %s", xbox)
	}
}

func TestClient_UserTokenMissingHashIsShapeError(t *testing.T) {
	t.Parallel()

	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Token":"user-token","DisplayClaims":{"xui":[]}}`))
	})

	if _, err := client.UserToken(context.Background(), "access-1"); err == nil || !strings.Contains(err.Error(), "uhs") {
		t.Fatalf("expected missing uhs error, got %v", err)
	}
}

func TestClient_SpartanToken(t *testing.T) {
	t.Parallel()

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != WaypointUserAgent || r.Header.Get("Accept") != "application/json" {
			t.Fatalf("unexpected headers: %v", r.Header)
		}
		var body spartanRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Audience != "urn:343:s3:services" || body.MinVersion != "4" {
			t.Fatalf("unexpected spartan body: %+v", body)
		}
		if len(body.Proof) != 1 || body.Proof[0].Token != "halo-xsts" || body.Proof[0].TokenType != "Xbox_XSTSv3" {
			t.Fatalf("unexpected proof: %+v", body.Proof)
		}
		_, _ = w.Write([]byte(`{"SpartanToken":"spartan-1","ExpiresUtc":{"ISO8601Date":"2026-10-18T16:00:00Z"}}`))
	})

	token, err := client.SpartanToken(context.Background(), "halo-xsts")
	if err != nil {
		t.Fatalf("spartan token: %v", err)
	}
	want := time.Date(2026, 10, 18, 16, 0, 0, 0, time.UTC)
	if token.Token != "spartan-1" || !token.ExpiresAt.Equal(want) {
		t.Fatalf("unexpected spartan token: %+v", token)
	}
}

func TestClient_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Err", "2148916233")
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.XSTSToken(context.Background(), "user-token", usecase.AudienceGame)
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestParseExpiry_WithoutZoneIsUTC(t *testing.T) {
	t.Parallel()

	got, err := parseExpiry("2026-10-18T16:00:00.1234567")
	if err != nil {
		t.Fatalf("parse expiry: %v", err)
	}
	if got.Location() != time.UTC || got.Hour() != 16 {
		t.Fatalf("unexpected expiry: %s", got)
	}
}
