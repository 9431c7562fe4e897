package usecase

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/halo-stats/internal/domain/job"
	"github.com/riskibarqy/halo-stats/internal/domain/match"
	"github.com/riskibarqy/halo-stats/internal/domain/player"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
)

const DefaultPageSize = 25

type CollectorConfig struct {
	PageSize int
	Workers  int
}

func (c CollectorConfig) withDefaults() CollectorConfig {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

type MatchJobResult struct {
	JobID         int64
	PlayerID      int64
	ExpectedNew   int
	PagesFetched  int
	MatchesStored int
	Duration      time.Duration
}

// MatchJobService pulls the match history of one player until it reaches
// matches already covered by an earlier valid job.
type MatchJobService struct {
	provider StatsProvider
	players  player.Repository
	jobs     job.Repository
	matches  match.Repository
	cfg      CollectorConfig
	logger   *logging.Logger
	now      func() time.Time
}

func NewMatchJobService(
	provider StatsProvider,
	players player.Repository,
	jobs job.Repository,
	matches match.Repository,
	cfg CollectorConfig,
	logger *logging.Logger,
) *MatchJobService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchJobService{
		provider: provider,
		players:  players,
		jobs:     jobs,
		matches:  matches,
		cfg:      cfg.withDefaults(),
		logger:   logger.Named("match_job"),
		now:      time.Now,
	}
}

type pageResult struct {
	start   int
	matches []match.Match
	err     error
}

// Run collects new matches for xuid. The job is only marked valid when every
// page was fetched and written; otherwise the first error is returned.
func (s *MatchJobService) Run(ctx context.Context, xuid string) (result MatchJobResult, err error) {
	ctx, span := startJobSpan(ctx, "job.match", attribute.String("xuid", xuid))
	defer func() { finishSpan(span, err) }()

	xuid = strings.TrimSpace(xuid)
	if xuid == "" {
		return MatchJobResult{}, errors.Wrap(ErrInvalidInput, "xuid is required")
	}

	started := s.now()
	p, err := s.players.Upsert(ctx, xuid)
	if err != nil {
		return MatchJobResult{}, errors.Wrapf(err, "upsert player xuid=%s", xuid)
	}
	j, err := s.jobs.Create(ctx, job.TypeMatch)
	if err != nil {
		return MatchJobResult{}, errors.Wrap(err, "create match job")
	}
	result = MatchJobResult{JobID: j.ID, PlayerID: p.ID}
	if err := s.jobs.AttachPlayer(ctx, j.ID, p.ID); err != nil {
		return result, errors.Wrapf(err, "attach player to job id=%d", j.ID)
	}
	coverage, err := s.jobs.CoverageSummary(ctx, p.ID)
	if err != nil {
		return result, errors.Wrapf(err, "load coverage player id=%d", p.ID)
	}

	total, err := s.provider.PlayerMatchCount(ctx, xuid)
	if err != nil {
		return result, err
	}
	result.ExpectedNew = max(0, total-coverage.MatchCount)

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return result, errors.Wrap(err, "create page worker pool")
	}
	defer pool.Release()

	s.logger.InfoContext(ctx, "match job started",
		"job_id", j.ID,
		"xuid", xuid,
		"match_count", total,
		"covered", coverage.MatchCount,
		"expected_new", result.ExpectedNew,
	)

	pages := max(1, (result.ExpectedNew+s.cfg.PageSize-1)/s.cfg.PageSize)
	offset := 0
	complete := false
	var firstErr error
	for !complete {
		wave := s.fetchWave(ctx, pool, xuid, offset, pages)
		for page := range wave.results {
			result.PagesFetched++
			if page.err != nil {
				if firstErr == nil {
					firstErr = page.err
				}
				continue
			}
			stored, err := s.store(ctx, j.ID, page.matches)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			result.MatchesStored += stored
			s.logger.DebugContext(ctx, "match page stored", "job_id", j.ID, "start", page.start, "stored", stored)
			if s.pageCompletes(page.matches, coverage) {
				complete = true
			}
		}
		if firstErr == nil && wave.submitErr != nil {
			firstErr = wave.submitErr
		}
		if firstErr != nil {
			s.logger.WarnContext(ctx, "match job failed",
				"job_id", j.ID,
				"xuid", xuid,
				"pages", result.PagesFetched,
				"stored", result.MatchesStored,
				"error", firstErr,
			)
			return result, firstErr
		}

		offset += pages * s.cfg.PageSize
		pages = s.cfg.Workers
	}

	result.Duration = s.now().Sub(started)
	if err := s.jobs.Complete(ctx, j.ID, result.Duration); err != nil {
		return result, errors.Wrapf(err, "complete job id=%d", j.ID)
	}

	s.logger.InfoContext(ctx, "match job completed",
		"job_id", j.ID,
		"xuid", xuid,
		"pages", result.PagesFetched,
		"stored", result.MatchesStored,
		"elapsed", result.Duration,
	)
	return result, nil
}

type wave struct {
	results <-chan pageResult
	// submitErr is set before results is closed.
	submitErr error
}

// fetchWave fetches pages consecutive pages starting at offset. Pages are
// delivered in completion order; results is closed once every submitted task
// has finished, so draining it awaits the whole wave.
func (s *MatchJobService) fetchWave(ctx context.Context, pool *ants.Pool, xuid string, offset, pages int) *wave {
	results := make(chan pageResult, pages)
	w := &wave{results: results}

	go func() {
		var workers sync.WaitGroup
		for i := 0; i < pages; i++ {
			start := offset + i*s.cfg.PageSize
			workers.Add(1)
			if err := pool.Submit(func() {
				defer workers.Done()
				matches, err := s.provider.PlayerMatches(ctx, xuid, start, s.cfg.PageSize)
				results <- pageResult{start: start, matches: matches, err: err}
			}); err != nil {
				workers.Done()
				w.submitErr = errors.Wrap(err, "submit page to worker pool")
				break
			}
		}
		workers.Wait()
		close(results)
	}()
	return w
}

func (s *MatchJobService) store(ctx context.Context, jobID int64, matches []match.Match) (int, error) {
	if len(matches) == 0 {
		return 0, nil
	}
	ids, err := s.matches.CreateMatches(ctx, matches)
	if err != nil {
		return 0, errors.Wrap(err, "store matches")
	}
	if err := s.jobs.AttachMatches(ctx, jobID, ids); err != nil {
		return 0, errors.Wrapf(err, "attach matches to job id=%d", jobID)
	}
	return len(ids), nil
}

// pageCompletes reports whether a page reaches the end of the history or
// crosses into matches already covered.
func (s *MatchJobService) pageCompletes(matches []match.Match, coverage job.Coverage) bool {
	if len(matches) < s.cfg.PageSize {
		return true
	}
	if coverage.LastMatchAt == nil {
		return false
	}
	oldest := matches[0].StartedAt
	for _, m := range matches[1:] {
		if m.StartedAt.Before(oldest) {
			oldest = m.StartedAt
		}
	}
	return oldest.Before(*coverage.LastMatchAt)
}
