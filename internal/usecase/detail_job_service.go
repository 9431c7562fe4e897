package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/halo-stats/internal/domain/job"
	"github.com/riskibarqy/halo-stats/internal/domain/match"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
)

const DefaultDetailBatchLimit = 100

type DetailJobResult struct {
	JobID    int64
	Pending  int
	Saved    int
	Duration time.Duration
}

// DetailJobService fills the team, player and bot rows of stored matches.
type DetailJobService struct {
	provider StatsProvider
	matches  match.Repository
	jobs     job.Repository
	workers  int
	logger   *logging.Logger
	now      func() time.Time
}

func NewDetailJobService(
	provider StatsProvider,
	matches match.Repository,
	jobs job.Repository,
	workers int,
	logger *logging.Logger,
) *DetailJobService {
	if workers <= 0 {
		workers = CollectorConfig{}.withDefaults().Workers
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DetailJobService{
		provider: provider,
		matches:  matches,
		jobs:     jobs,
		workers:  workers,
		logger:   logger.Named("detail_job"),
		now:      time.Now,
	}
}

type detailResult struct {
	index  int
	ref    match.Ref
	detail match.Detail
	err    error
}

// Run fetches detail for up to limit matches. Each match is saved in its own
// transaction; the first failure fails the job once every fetch is drained.
func (s *DetailJobService) Run(ctx context.Context, limit int) (result DetailJobResult, err error) {
	ctx, span := startJobSpan(ctx, "job.detail", attribute.Int("limit", limit))
	defer func() { finishSpan(span, err) }()

	if limit <= 0 {
		limit = DefaultDetailBatchLimit
	}

	started := s.now()
	j, err := s.jobs.Create(ctx, job.TypeDetail)
	if err != nil {
		return DetailJobResult{}, errors.Wrap(err, "create detail job")
	}
	result.JobID = j.ID

	refs, err := s.matches.ListMissingDetail(ctx, limit)
	if err != nil {
		return result, errors.Wrap(err, "list matches missing detail")
	}
	result.Pending = len(refs)

	fetched, err := s.fetch(ctx, refs)
	var firstErr error
	if err != nil {
		firstErr = err
	}
	for _, r := range fetched {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		if err := s.matches.SaveDetail(ctx, r.detail); err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "save detail guid=%s", r.ref.GUID)
			}
			continue
		}
		result.Saved++
	}
	if firstErr != nil {
		s.logger.WarnContext(ctx, "detail job failed",
			"job_id", j.ID,
			"pending", result.Pending,
			"saved", result.Saved,
			"error", firstErr,
		)
		return result, firstErr
	}

	result.Duration = s.now().Sub(started)
	if err := s.jobs.Complete(ctx, j.ID, result.Duration); err != nil {
		return result, errors.Wrapf(err, "complete job id=%d", j.ID)
	}
	s.logger.InfoContext(ctx, "detail job completed",
		"job_id", j.ID,
		"saved", result.Saved,
		"elapsed", result.Duration,
	)
	return result, nil
}

func (s *DetailJobService) fetch(ctx context.Context, refs []match.Ref) ([]detailResult, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, errors.Wrap(err, "create detail worker pool")
	}
	defer pool.Release()

	results := make(chan detailResult, len(refs))
	var (
		workers   sync.WaitGroup
		submitErr error
	)
	for i, ref := range refs {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			detail, err := s.provider.MatchDetail(ctx, ref.GUID)
			results <- detailResult{index: i, ref: ref, detail: detail, err: err}
		}); err != nil {
			workers.Done()
			submitErr = errors.Wrap(err, "submit detail fetch to worker pool")
			break
		}
	}

	workers.Wait()
	close(results)

	out := make([]detailResult, 0, len(refs))
	for r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out, submitErr
}
