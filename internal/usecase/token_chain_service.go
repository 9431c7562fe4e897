package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/halo-stats/internal/domain/credential"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
	"github.com/riskibarqy/halo-stats/internal/platform/resilience"
)

const DefaultRefreshThreshold = 600 * time.Second

// SecurityAudience selects which service an XSTS token is issued for.
type SecurityAudience string

const (
	AudienceGame     SecurityAudience = "game"
	AudiencePlatform SecurityAudience = "platform"
)

type OAuthGrant struct {
	AccessToken  string
	RefreshToken string
}

type XboxUserToken struct {
	Token    string
	UserHash string
}

// ServiceToken is the short lived spartan token required by the stats APIs.
type ServiceToken struct {
	Token     string
	ExpiresAt time.Time
}

// IdentityProvider performs single hops of the token exchange.
type IdentityProvider interface {
	ClientID() string
	AuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (OAuthGrant, error)
	RefreshToken(ctx context.Context, refreshToken string) (OAuthGrant, error)
	UserToken(ctx context.Context, accessToken string) (XboxUserToken, error)
	XSTSToken(ctx context.Context, userToken string, audience SecurityAudience) (string, error)
	SpartanToken(ctx context.Context, haloXSTSToken string) (ServiceToken, error)
}

// CodeProvider supplies the one-time authorization code, usually by asking
// an operator to open authorizationURL.
type CodeProvider interface {
	AuthorizationCode(ctx context.Context, authorizationURL string) (string, error)
}

type chainState int

const (
	stateNoCredentials chainState = iota
	stateHaveUserCode
	stateHavePrimaryToken
	stateHaveUserToken
	stateHaveGameSecurityToken
	stateHavePlatformSecurityToken
	stateHaveServiceToken
)

func (s chainState) String() string {
	switch s {
	case stateNoCredentials:
		return "no_credentials"
	case stateHaveUserCode:
		return "have_user_code"
	case stateHavePrimaryToken:
		return "have_primary_token"
	case stateHaveUserToken:
		return "have_user_token"
	case stateHaveGameSecurityToken:
		return "have_game_security_token"
	case stateHavePlatformSecurityToken:
		return "have_platform_security_token"
	case stateHaveServiceToken:
		return "have_service_token"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type chainStep struct {
	from chainState
	to   chainState
	hop  AuthHop
	run  func(ctx context.Context, b credential.Bundle) (credential.Bundle, error)
}

// TokenChainService owns the credential bundle. It reuses the persisted
// bundle while it is fresh, otherwise replays the chain from the refresh
// hop, or from an interactive code when nothing is stored.
type TokenChainService struct {
	identity  IdentityProvider
	store     credential.Store
	codes     CodeProvider
	validate  *validator.Validate
	threshold time.Duration
	logger    *logging.Logger
	now       func() time.Time

	flight  resilience.SingleFlight
	mu      sync.RWMutex
	current credential.Bundle
	loaded  bool
}

func NewTokenChainService(
	identity IdentityProvider,
	store credential.Store,
	codes CodeProvider,
	threshold time.Duration,
	logger *logging.Logger,
) *TokenChainService {
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &TokenChainService{
		identity:  identity,
		store:     store,
		codes:     codes,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		threshold: threshold,
		logger:    logger.Named("token_chain"),
		now:       time.Now,
	}
}

// AuthorizationURL is where an operator obtains a fresh authorization code.
func (s *TokenChainService) AuthorizationURL() string {
	return s.identity.AuthorizationURL()
}

// EnsureValidToken returns a spartan token with at least the refresh
// threshold of validity left. Concurrent callers share one chain run.
func (s *TokenChainService) EnsureValidToken(ctx context.Context) (ServiceToken, error) {
	bundle, err := s.ensure(ctx)
	if err != nil {
		return ServiceToken{}, err
	}
	return ServiceToken{Token: bundle.SpartanToken, ExpiresAt: bundle.ExpiresAt}, nil
}

// ProfileToken returns the XBL3.0 authorization for the profile service,
// derived from the platform security token rather than the spartan token.
func (s *TokenChainService) ProfileToken(ctx context.Context) (string, error) {
	bundle, err := s.ensure(ctx)
	if err != nil {
		return "", err
	}
	return bundle.ProfileAuthorization(), nil
}

// Remaining reports the validity left on the current bundle.
func (s *TokenChainService) Remaining(ctx context.Context) (time.Duration, error) {
	if err := s.loadOnce(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Remaining(s.now()), nil
}

// Bootstrap runs the interactive chain with an explicitly supplied code and
// replaces whatever bundle was stored.
func (s *TokenChainService) Bootstrap(ctx context.Context, code string) (ServiceToken, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return ServiceToken{}, &AuthChainError{Hop: HopAuthorizationCode, Err: errors.Wrap(ErrInvalidInput, "authorization code is empty")}
	}

	bundle, err := resilience.Share(&s.flight, "bootstrap:"+code, func() (credential.Bundle, error) {
		start := credential.Bundle{ClientID: s.identity.ClientID(), AuthorizationCode: code}
		return s.runChain(ctx, "bootstrap", stateHaveUserCode, start, s.interactiveSteps()[1:])
	})
	if err != nil {
		return ServiceToken{}, err
	}
	return ServiceToken{Token: bundle.SpartanToken, ExpiresAt: bundle.ExpiresAt}, nil
}

func (s *TokenChainService) ensure(ctx context.Context) (credential.Bundle, error) {
	if bundle, ok := s.fresh(); ok {
		return bundle, nil
	}

	return resilience.Share(&s.flight, "chain", func() (credential.Bundle, error) {
		if err := s.loadOnce(ctx); err != nil {
			return credential.Bundle{}, err
		}
		if bundle, ok := s.fresh(); ok {
			return bundle, nil
		}

		s.mu.RLock()
		current := s.current
		s.mu.RUnlock()

		if current.RefreshToken != "" {
			start := credential.Bundle{
				ClientID:          s.identity.ClientID(),
				AuthorizationCode: current.AuthorizationCode,
				RefreshToken:      current.RefreshToken,
			}
			return s.runChain(ctx, "refresh", stateHaveUserCode, start, s.refreshSteps())
		}

		start := credential.Bundle{ClientID: s.identity.ClientID()}
		return s.runChain(ctx, "interactive", stateNoCredentials, start, s.interactiveSteps())
	})
}

func (s *TokenChainService) fresh() (credential.Bundle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded || s.current.SpartanToken == "" {
		return credential.Bundle{}, false
	}
	if s.current.Remaining(s.now()) < s.threshold {
		return credential.Bundle{}, false
	}
	return s.current, true
}

func (s *TokenChainService) loadOnce(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	bundle, ok, err := s.store.Load(ctx)
	if err != nil {
		return &AuthChainError{Hop: HopLoad, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if ok {
			s.current = bundle
		}
		s.loaded = true
	}
	return nil
}

func (s *TokenChainService) runChain(ctx context.Context, variant string, state chainState, bundle credential.Bundle, steps []chainStep) (credential.Bundle, error) {
	ctx, span := startChildSpan(ctx, "token_chain.run")
	var err error
	defer func() { finishSpan(span, err) }()

	started := s.now()
	for _, step := range steps {
		if step.from != state {
			err = &AuthChainError{Hop: step.hop, Err: errors.Newf("hop expects state %s, chain is at %s", step.from, state)}
			return credential.Bundle{}, err
		}

		next, hopErr := step.run(ctx, bundle)
		if hopErr != nil {
			s.logger.WarnContext(ctx, "token chain hop failed",
				"variant", variant,
				"hop", string(step.hop),
				"state", state.String(),
				"error", hopErr,
			)
			err = &AuthChainError{Hop: step.hop, Err: hopErr}
			return credential.Bundle{}, err
		}

		s.logger.DebugContext(ctx, "token chain hop completed", "hop", string(step.hop), "state", step.to.String())
		bundle = next
		state = step.to
	}

	if state != stateHaveServiceToken {
		err = &AuthChainError{Hop: HopSpartanToken, Err: errors.Newf("chain ended at %s", state)}
		return credential.Bundle{}, err
	}
	if verr := s.validate.Struct(bundle); verr != nil {
		err = &AuthChainError{Hop: HopPersist, Err: verr}
		return credential.Bundle{}, err
	}
	if serr := s.store.Save(ctx, bundle); serr != nil {
		err = &AuthChainError{Hop: HopPersist, Err: serr}
		return credential.Bundle{}, err
	}

	s.mu.Lock()
	s.current = bundle
	s.loaded = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "token chain completed",
		"variant", variant,
		"expires_at", bundle.ExpiresAt.Format(time.RFC3339),
		"elapsed", s.now().Sub(started).String(),
	)
	return bundle, nil
}

func (s *TokenChainService) interactiveSteps() []chainStep {
	return []chainStep{
		{from: stateNoCredentials, to: stateHaveUserCode, hop: HopAuthorizationCode, run: s.obtainCode},
		{from: stateHaveUserCode, to: stateHavePrimaryToken, hop: HopOAuthToken, run: s.exchangeCode},
		{from: stateHavePrimaryToken, to: stateHaveUserToken, hop: HopUserToken, run: s.requestUserToken},
		{from: stateHaveUserToken, to: stateHaveGameSecurityToken, hop: HopHaloXSTS, run: s.requestGameXSTS},
		{from: stateHaveGameSecurityToken, to: stateHavePlatformSecurityToken, hop: HopXboxXSTS, run: s.requestPlatformXSTS},
		{from: stateHavePlatformSecurityToken, to: stateHaveServiceToken, hop: HopSpartanToken, run: s.requestSpartan},
	}
}

// refreshSteps replaces the code exchange with a refresh grant. Every token
// after it is reissued because each hop is derived from its predecessor.
func (s *TokenChainService) refreshSteps() []chainStep {
	steps := s.interactiveSteps()[1:]
	steps[0] = chainStep{from: stateHaveUserCode, to: stateHavePrimaryToken, hop: HopOAuthRefresh, run: s.refreshGrant}
	return steps
}

func (s *TokenChainService) obtainCode(ctx context.Context, b credential.Bundle) (credential.Bundle, error) {
	if s.codes == nil {
		return credential.Bundle{}, errors.New("no stored credentials and no authorization code provider configured")
	}
	code, err := s.codes.AuthorizationCode(ctx, s.identity.AuthorizationURL())
	if err != nil {
		return credential.Bundle{}, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return credential.Bundle{}, errors.Wrap(ErrInvalidInput, "authorization code is empty")
	}
	b.AuthorizationCode = code
	return b, nil
}

func (s *TokenChainService) exchangeCode(ctx context.Context, b credential.Bundle) (credential.Bundle, error) {
	grant, err := s.identity.ExchangeCode(ctx, b.AuthorizationCode)
	if err != nil {
		return credential.Bundle{}, err
	}
	b.OAuthAccessToken = grant.AccessToken
	b.RefreshToken = grant.RefreshToken
	return b, nil
}

func (s *TokenChainService) refreshGrant(ctx context.Context, b credential.Bundle) (credential.Bundle, error) {
	grant, err := s.identity.RefreshToken(ctx, b.RefreshToken)
	if err != nil {
		return credential.Bundle{}, err
	}
	b.OAuthAccessToken = grant.AccessToken
	if grant.RefreshToken != "" {
		b.RefreshToken = grant.RefreshToken
	}
	return b, nil
}

func (s *TokenChainService) requestUserToken(ctx context.Context, b credential.Bundle) (credential.Bundle, error) {
	user, err := s.identity.UserToken(ctx, b.OAuthAccessToken)
	if err != nil {
		return credential.Bundle{}, err
	}
	b.UserToken = user.Token
	b.UserHash = user.UserHash
	return b, nil
}

func (s *TokenChainService) requestGameXSTS(ctx context.Context, b credential.Bundle) (credential.Bundle, error) {
	token, err := s.identity.XSTSToken(ctx, b.UserToken, AudienceGame)
	if err != nil {
		return credential.Bundle{}, err
	}
	b.HaloXSTSToken = token
	return b, nil
}

func (s *TokenChainService) requestPlatformXSTS(ctx context.Context, b credential.Bundle) (credential.Bundle, error) {
	token, err := s.identity.XSTSToken(ctx, b.UserToken, AudiencePlatform)
	if err != nil {
		return credential.Bundle{}, err
	}
	b.XboxXSTSToken = token
	return b, nil
}

func (s *TokenChainService) requestSpartan(ctx context.Context, b credential.Bundle) (credential.Bundle, error) {
	token, err := s.identity.SpartanToken(ctx, b.HaloXSTSToken)
	if err != nil {
		return credential.Bundle{}, err
	}
	b.SpartanToken = token.Token
	b.ExpiresAt = token.ExpiresAt
	return b, nil
}
