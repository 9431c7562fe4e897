package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/halo-stats/internal/domain/job"
	"github.com/riskibarqy/halo-stats/internal/domain/player"
)

type JobRepository struct {
	store *Store
}

func NewJobRepository(store *Store) *JobRepository {
	return &JobRepository{store: store}
}

func (r *JobRepository) Create(_ context.Context, jobType job.Type) (job.Job, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	j := job.Job{
		ID:        int64(len(s.jobs) + 1),
		Type:      jobType,
		CreatedAt: s.now().UTC(),
	}
	s.jobs = append(s.jobs, j)
	return j, nil
}

func (r *JobRepository) Complete(_ context.Context, jobID int64, duration time.Duration) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if jobID <= 0 || int(jobID) > len(s.jobs) {
		return fmt.Errorf("complete job id=%d: job not found", jobID)
	}
	seconds := duration.Seconds()
	completedAt := s.now().UTC()
	j := &s.jobs[jobID-1]
	j.IsValid = true
	j.DurationSeconds = &seconds
	j.CompletedAt = &completedAt
	return nil
}

func (r *JobRepository) AttachPlayer(_ context.Context, jobID, playerID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	link(s.jobPlayers, jobID, playerID)
	return nil
}

func (r *JobRepository) AttachMatches(_ context.Context, jobID int64, matchIDs []int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range matchIDs {
		link(s.jobMatches, jobID, id)
	}
	return nil
}

func (r *JobRepository) CoverageSummary(_ context.Context, playerID int64) (job.Coverage, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	var out job.Coverage
	for _, j := range s.jobs {
		if !j.IsValid || j.Type != job.TypeMatch {
			continue
		}
		if _, ok := s.jobPlayers[j.ID][playerID]; !ok {
			continue
		}
		for matchID := range s.jobMatches[j.ID] {
			if _, dup := seen[matchID]; dup {
				continue
			}
			seen[matchID] = struct{}{}
			startedAt := s.matches[matchID-1].StartedAt
			if out.LastMatchAt == nil || startedAt.After(*out.LastMatchAt) {
				t := startedAt
				out.LastMatchAt = &t
			}
		}
	}
	out.MatchCount = len(seen)
	return out, nil
}

func (r *JobRepository) NextPlayer(_ context.Context) (player.Player, bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.players) == 0 {
		return player.Player{}, false, nil
	}

	latest := make(map[int64]time.Time)
	for _, j := range s.jobs {
		if !j.IsValid || j.Type != job.TypeMatch {
			continue
		}
		for playerID := range s.jobPlayers[j.ID] {
			if j.CreatedAt.After(latest[playerID]) {
				latest[playerID] = j.CreatedAt
			}
		}
	}

	// players are kept in id order, so strict comparisons keep the lowest id
	// on ties.
	best := s.players[0]
	bestAt, bestCovered := latest[best.ID]
	for _, p := range s.players[1:] {
		at, covered := latest[p.ID]
		switch {
		case !covered && bestCovered:
			best, bestAt, bestCovered = p, at, covered
		case covered && bestCovered && at.Before(bestAt):
			best, bestAt, bestCovered = p, at, covered
		}
	}
	return best, true, nil
}

func link(table map[int64]map[int64]struct{}, from, to int64) {
	set, ok := table[from]
	if !ok {
		set = make(map[int64]struct{})
		table[from] = set
	}
	set[to] = struct{}{}
}
