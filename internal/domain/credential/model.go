package credential

import "time"

// Bundle is the full output of one token chain run. Hops never mutate a
// Bundle in place; each returns a copy with its own fields filled in.
type Bundle struct {
	ClientID          string    `json:"client_id" validate:"required"`
	AuthorizationCode string    `json:"auth_code"`
	OAuthAccessToken  string    `json:"oauth_token" validate:"required"`
	RefreshToken      string    `json:"refresh_token" validate:"required"`
	UserToken         string    `json:"user_token" validate:"required"`
	UserHash          string    `json:"user_hash" validate:"required"`
	HaloXSTSToken     string    `json:"halo_xsts_token" validate:"required"`
	XboxXSTSToken     string    `json:"xbox_xsts_token" validate:"required"`
	SpartanToken      string    `json:"spartan_token" validate:"required"`
	ExpiresAt         time.Time `json:"expires_at" validate:"required"`
}

// Remaining reports how long the spartan token stays usable at now.
func (b Bundle) Remaining(now time.Time) time.Duration {
	if b.ExpiresAt.IsZero() {
		return 0
	}
	return b.ExpiresAt.Sub(now)
}

func (b Bundle) Empty() bool {
	return b.SpartanToken == "" && b.RefreshToken == ""
}

// ProfileAuthorization is the XBL3.0 header accepted by the profile service.
func (b Bundle) ProfileAuthorization() string {
	return "XBL3.0 x=" + b.UserHash + ";" + b.XboxXSTSToken
}
