package usecase

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/halo-stats/internal/domain/asset"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrNoPlayerQueued        = errors.New("no player queued for collection")

	ErrAuthChain       = errors.New("auth chain failed")
	ErrUpstreamRequest = errors.New("upstream request failed")
	ErrNormalization   = errors.New("normalization failed")
	ErrUnsupportedMode = errors.New("unsupported game mode")
	ErrValidation      = errors.New("asset validation failed")
)

// AuthHop names a step of the token chain.
type AuthHop string

const (
	HopLoad              AuthHop = "load"
	HopAuthorizationCode AuthHop = "authorization_code"
	HopOAuthToken        AuthHop = "oauth_token"
	HopOAuthRefresh      AuthHop = "oauth_refresh"
	HopUserToken         AuthHop = "user_token"
	HopHaloXSTS          AuthHop = "halo_xsts_token"
	HopXboxXSTS          AuthHop = "xbox_xsts_token"
	HopSpartanToken      AuthHop = "spartan_token"
	HopPersist           AuthHop = "persist"
)

// AuthChainError aborts the whole chain; no bundle is persisted.
type AuthChainError struct {
	Hop AuthHop
	Err error
}

func (e *AuthChainError) Error() string {
	return fmt.Sprintf("auth chain failed at %s: %v", e.Hop, e.Err)
}

func (e *AuthChainError) Unwrap() error { return e.Err }

func (e *AuthChainError) Is(target error) bool { return target == ErrAuthChain }

// UpstreamRequestError is returned for any non-2xx upstream response.
// StatusCode is 0 for transport failures.
type UpstreamRequestError struct {
	StatusCode int
	URL        string
	Body       string
	Err        error
}

func (e *UpstreamRequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream request %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("upstream request %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *UpstreamRequestError) Unwrap() error { return e.Err }

func (e *UpstreamRequestError) Is(target error) bool { return target == ErrUpstreamRequest }

// NormalizationError keeps the raw payload so it can be inspected offline.
type NormalizationError struct {
	EntityKind string
	Path       string
	RawPayload []byte
	Err        error
}

func (e *NormalizationError) Error() string {
	msg := fmt.Sprintf("normalize %s", e.EntityKind)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NormalizationError) Unwrap() error { return e.Err }

func (e *NormalizationError) Is(target error) bool { return target == ErrNormalization }

type UnsupportedModeError struct {
	Mode       string
	EntityKind string
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("%s stats for mode %q are not supported", e.EntityKind, e.Mode)
}

func (e *UnsupportedModeError) Is(target error) bool { return target == ErrUnsupportedMode }

// ValidationError lists every asset whose versions disagree.
type ValidationError struct {
	Category  string
	Conflicts []asset.Conflict
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s.%s=[%s]", c.AssetID, c.Field, strings.Join(c.Values, "|")))
	}
	return fmt.Sprintf("%s versions disagree: %s", e.Category, strings.Join(parts, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
