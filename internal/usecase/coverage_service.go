package usecase

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/halo-stats/internal/domain/job"
)

// CoverageService runs the match job for whichever player has gone longest
// without a valid one.
type CoverageService struct {
	jobs     job.Repository
	matchJob *MatchJobService
}

func NewCoverageService(jobs job.Repository, matchJob *MatchJobService) *CoverageService {
	return &CoverageService{jobs: jobs, matchJob: matchJob}
}

func (s *CoverageService) RunNextPlayer(ctx context.Context) (MatchJobResult, error) {
	p, ok, err := s.jobs.NextPlayer(ctx)
	if err != nil {
		return MatchJobResult{}, errors.Wrap(err, "pick next player")
	}
	if !ok {
		return MatchJobResult{}, ErrNoPlayerQueued
	}
	return s.matchJob.Run(ctx, p.XUID)
}
