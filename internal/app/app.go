package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/halo-stats/external/waypoint"
	"github.com/riskibarqy/halo-stats/internal/config"
	"github.com/riskibarqy/halo-stats/internal/domain/credential"
	"github.com/riskibarqy/halo-stats/internal/infrastructure/account/xboxlive"
	"github.com/riskibarqy/halo-stats/internal/infrastructure/credentialstore"
	"github.com/riskibarqy/halo-stats/internal/infrastructure/diagnostic"
	"github.com/riskibarqy/halo-stats/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
	"github.com/riskibarqy/halo-stats/internal/platform/resilience"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

// Collector holds the wired services of one collector process.
type Collector struct {
	DB         *sqlx.DB
	TokenChain *usecase.TokenChainService
	MatchJob   *usecase.MatchJobService
	Metadata   *usecase.MetadataJobService
	Detail     *usecase.DetailJobService
	Coverage   *usecase.CoverageService

	DetailBatchLimit int
}

// NewCollector opens the database and wires the token chain, the Waypoint
// provider and the job services. codes is asked for an authorization code
// when no credential bundle is stored.
func NewCollector(ctx context.Context, cfg config.Config, codes usecase.CodeProvider, logger *logging.Logger) (*Collector, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if err := cfg.RequireAzureClient(); err != nil {
		return nil, err
	}
	policy, err := usecase.ParseValidationPolicy(cfg.MetadataValidationPolicy)
	if err != nil {
		return nil, err
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store, err := newCredentialStore(cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	sink, err := newDiagnosticSink(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	identity := xboxlive.NewClient(xboxlive.Config{
		HTTPClient: &http.Client{
			Timeout:   cfg.AuthTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		ClientID:     cfg.AzureClientID,
		ClientSecret: cfg.AzureClientSecret,
		RedirectURL:  cfg.AzureRedirectURI,
		Logger:       logger,
	})
	tokens := usecase.NewTokenChainService(identity, store, codes, cfg.AuthRefreshThreshold, logger)

	client := waypoint.NewClient(waypoint.ClientConfig{
		Timeout: cfg.WaypointTimeout,
		Tokens:  tokens,
		Logger:  logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.WaypointCircuitEnabled,
			FailureThreshold: cfg.WaypointCircuitFailureCount,
			OpenTimeout:      cfg.WaypointCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.WaypointCircuitHalfOpenMaxReq,
		},
	})
	provider := waypoint.NewProvider(client, waypoint.NewNormalizer(sink, logger))

	players := postgres.NewPlayerRepository(db)
	jobs := postgres.NewJobRepository(db)
	matches := postgres.NewMatchRepository(db)
	assets := postgres.NewAssetRepository(db)

	collector := usecase.CollectorConfig{PageSize: cfg.CollectorPageSize, Workers: cfg.CollectorWorkers}
	matchJob := usecase.NewMatchJobService(provider, players, jobs, matches, collector, logger)

	return &Collector{
		DB:         db,
		TokenChain: tokens,
		MatchJob:   matchJob,
		Metadata: usecase.NewMetadataJobService(provider, assets, players, jobs, usecase.MetadataJobConfig{
			Workers:          cfg.CollectorWorkers,
			ProfileBatchSize: cfg.ProfileBatchSize,
			Policy:           policy,
		}, logger),
		Detail:           usecase.NewDetailJobService(provider, matches, jobs, cfg.CollectorWorkers, logger),
		Coverage:         usecase.NewCoverageService(jobs, matchJob),
		DetailBatchLimit: cfg.DetailBatchLimit,
	}, nil
}

func (c *Collector) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

func newCredentialStore(cfg config.Config) (credential.Store, error) {
	switch cfg.CredentialStore {
	case config.CredentialStoreRedis:
		return credentialstore.NewRedisStoreFromURL(cfg.RedisURL, cfg.CredentialRedisKey)
	case config.CredentialStoreFile, "":
		return credentialstore.NewFileStore(cfg.CredentialFile), nil
	default:
		return nil, fmt.Errorf("unknown credential store %q", cfg.CredentialStore)
	}
}

func newDiagnosticSink(ctx context.Context, cfg config.Config) (diagnostic.Sink, error) {
	var sinks diagnostic.MultiSink
	if cfg.DiagnosticDir != "" {
		sinks = append(sinks, diagnostic.NewFileSink(cfg.DiagnosticDir))
	}
	if cfg.DiagnosticS3Enabled {
		s3Sink, err := diagnostic.NewS3Sink(ctx, diagnostic.S3Config{
			Bucket:          cfg.DiagnosticS3Bucket,
			Region:          cfg.DiagnosticS3Region,
			Endpoint:        cfg.DiagnosticS3Endpoint,
			Prefix:          cfg.DiagnosticS3Prefix,
			AccessKeyID:     cfg.DiagnosticS3AccessKeyID,
			SecretAccessKey: cfg.DiagnosticS3SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 diagnostic sink: %w", err)
		}
		sinks = append(sinks, s3Sink)
	}
	if len(sinks) == 0 {
		return diagnostic.NopSink{}, nil
	}
	return sinks, nil
}

// IsOperatorError reports errors that come from bad input rather than a
// failing dependency, so commands can exit with a usage status.
func IsOperatorError(err error) bool {
	return errors.Is(err, usecase.ErrInvalidInput) || errors.Is(err, usecase.ErrNoPlayerQueued)
}
