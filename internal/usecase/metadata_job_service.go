package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/halo-stats/internal/domain/asset"
	"github.com/riskibarqy/halo-stats/internal/domain/job"
	"github.com/riskibarqy/halo-stats/internal/domain/player"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
)

const DefaultProfileBatchSize = 100

// ValidationPolicy decides what happens when versions of one asset disagree.
type ValidationPolicy string

const (
	// ValidationAbort fails the category before anything is written.
	ValidationAbort ValidationPolicy = "abort"
	// ValidationPartial writes the consistent assets and logs the rest.
	ValidationPartial ValidationPolicy = "partial"
)

func ParseValidationPolicy(v string) (ValidationPolicy, error) {
	switch ValidationPolicy(strings.ToLower(strings.TrimSpace(v))) {
	case "", ValidationAbort:
		return ValidationAbort, nil
	case ValidationPartial:
		return ValidationPartial, nil
	default:
		return "", errors.Wrapf(ErrInvalidInput, "unknown metadata validation policy %q", v)
	}
}

type MetadataJobConfig struct {
	Workers          int
	ProfileBatchSize int
	Policy           ValidationPolicy
}

type MetadataJobResult struct {
	JobID            int64
	MapsUpdated      int
	ModesUpdated     int
	PlaylistsUpdated int
	Conflicts        []asset.Conflict
	GamertagsSet     int
	ProfileFailures  int
	Duration         time.Duration
}

// MetadataJobService fills in asset names and player gamertags for rows the
// match job created with identifiers only.
type MetadataJobService struct {
	provider StatsProvider
	assets   asset.Repository
	players  player.Repository
	jobs     job.Repository
	cfg      MetadataJobConfig
	logger   *logging.Logger
	now      func() time.Time
}

func NewMetadataJobService(
	provider StatsProvider,
	assets asset.Repository,
	players player.Repository,
	jobs job.Repository,
	cfg MetadataJobConfig,
	logger *logging.Logger,
) *MetadataJobService {
	if cfg.Workers <= 0 {
		cfg.Workers = CollectorConfig{}.withDefaults().Workers
	}
	if cfg.ProfileBatchSize <= 0 {
		cfg.ProfileBatchSize = DefaultProfileBatchSize
	}
	if cfg.Policy == "" {
		cfg.Policy = ValidationAbort
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MetadataJobService{
		provider: provider,
		assets:   assets,
		players:  players,
		jobs:     jobs,
		cfg:      cfg,
		logger:   logger.Named("metadata_job"),
		now:      time.Now,
	}
}

func (s *MetadataJobService) Run(ctx context.Context) (result MetadataJobResult, err error) {
	ctx, span := startJobSpan(ctx, "job.metadata")
	defer func() { finishSpan(span, err) }()

	started := s.now()
	j, err := s.jobs.Create(ctx, job.TypeMetadata)
	if err != nil {
		return MetadataJobResult{}, errors.Wrap(err, "create metadata job")
	}
	result.JobID = j.ID

	maps, conflicts, err := syncCategory(ctx, s, "map",
		s.assets.ListUnnamedMapVersions, s.provider.Map, asset.ConsolidateMaps, s.assets.UpdateMaps)
	result.Conflicts = append(result.Conflicts, conflicts...)
	if err != nil {
		return result, err
	}
	result.MapsUpdated = maps

	modes, conflicts, err := syncCategory(ctx, s, "mode",
		s.assets.ListUnnamedModeVersions, s.provider.Mode, asset.ConsolidateModes, s.assets.UpdateModes)
	result.Conflicts = append(result.Conflicts, conflicts...)
	if err != nil {
		return result, err
	}
	result.ModesUpdated = modes

	playlists, conflicts, err := syncCategory(ctx, s, "playlist",
		s.assets.ListUnnamedPlaylistVersions, s.provider.Playlist, asset.ConsolidatePlaylists, s.assets.UpdatePlaylists)
	result.Conflicts = append(result.Conflicts, conflicts...)
	if err != nil {
		return result, err
	}
	result.PlaylistsUpdated = playlists

	set, failed, err := s.backfillGamertags(ctx)
	if err != nil {
		return result, err
	}
	result.GamertagsSet = set
	result.ProfileFailures = failed

	result.Duration = s.now().Sub(started)
	if err := s.jobs.Complete(ctx, j.ID, result.Duration); err != nil {
		return result, errors.Wrapf(err, "complete job id=%d", j.ID)
	}

	s.logger.InfoContext(ctx, "metadata job completed",
		"job_id", j.ID,
		"maps", result.MapsUpdated,
		"modes", result.ModesUpdated,
		"playlists", result.PlaylistsUpdated,
		"conflicts", len(result.Conflicts),
		"gamertags", result.GamertagsSet,
		"profile_failures", result.ProfileFailures,
		"elapsed", result.Duration,
	)
	return result, nil
}

// syncCategory lists, fetches, validates and writes one asset category.
func syncCategory[T any](
	ctx context.Context,
	s *MetadataJobService,
	category string,
	list func(context.Context) ([]asset.Version, error),
	fetch func(context.Context, asset.Version) (T, error),
	consolidate func([]T) ([]T, []asset.Conflict),
	update func(context.Context, []T) error,
) (int, []asset.Conflict, error) {
	versions, err := list(ctx)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "list unnamed %s versions", category)
	}
	if len(versions) == 0 {
		return 0, nil, nil
	}

	type fetched struct {
		version asset.Version
		value   T
	}
	p := pool.NewWithResults[fetched]().
		WithContext(ctx).
		WithMaxGoroutines(s.cfg.Workers).
		WithFirstError()
	for _, v := range versions {
		p.Go(func(ctx context.Context) (fetched, error) {
			value, err := fetch(ctx, v)
			return fetched{version: v, value: value}, err
		})
	}
	results, err := p.Wait()
	if err != nil {
		return 0, nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].version.AssetID != results[j].version.AssetID {
			return results[i].version.AssetID < results[j].version.AssetID
		}
		return results[i].version.VersionID < results[j].version.VersionID
	})
	values := make([]T, 0, len(results))
	for _, r := range results {
		values = append(values, r.value)
	}

	consistent, conflicts := consolidate(values)
	if len(conflicts) > 0 {
		if s.cfg.Policy == ValidationAbort {
			return 0, conflicts, &ValidationError{Category: category, Conflicts: conflicts}
		}
		for _, c := range conflicts {
			s.logger.WarnContext(ctx, "asset versions disagree, skipping",
				"category", category,
				"asset_id", c.AssetID,
				"field", c.Field,
				"values", strings.Join(c.Values, "|"),
			)
		}
	}

	if len(consistent) > 0 {
		if err := update(ctx, consistent); err != nil {
			return 0, conflicts, errors.Wrapf(err, "update %s names", category)
		}
	}
	s.logger.DebugContext(ctx, "asset category synced",
		"category", category,
		"versions", len(versions),
		"updated", len(consistent),
	)
	return len(consistent), conflicts, nil
}

type profileBatch struct {
	xuids    []string
	profiles []player.Profile
	err      error
}

// backfillGamertags fetches missing gamertags in batches. A failed batch is
// logged and counted without stopping the others.
func (s *MetadataJobService) backfillGamertags(ctx context.Context) (set, failed int, err error) {
	xuids, err := s.players.ListMissingGamertag(ctx)
	if err != nil {
		return 0, 0, errors.Wrap(err, "list players missing gamertag")
	}
	if len(xuids) == 0 {
		return 0, 0, nil
	}

	p := pool.NewWithResults[profileBatch]().WithMaxGoroutines(s.cfg.Workers)
	for start := 0; start < len(xuids); start += s.cfg.ProfileBatchSize {
		batch := xuids[start:min(start+s.cfg.ProfileBatchSize, len(xuids))]
		p.Go(func() profileBatch {
			profiles, err := s.provider.Profiles(ctx, batch)
			return profileBatch{xuids: batch, profiles: profiles, err: err}
		})
	}

	for _, batch := range p.Wait() {
		if batch.err != nil {
			failed++
			s.logger.WarnContext(ctx, "profile batch failed",
				"size", len(batch.xuids),
				"first_xuid", batch.xuids[0],
				"error", batch.err,
			)
			continue
		}
		if err := s.players.UpdateGamertags(ctx, batch.profiles); err != nil {
			return set, failed, errors.Wrap(err, "update gamertags")
		}
		set += len(batch.profiles)
	}
	return set, failed, nil
}
