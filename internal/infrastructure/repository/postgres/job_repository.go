package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/halo-stats/internal/domain/job"
	"github.com/riskibarqy/halo-stats/internal/domain/player"
	qb "github.com/riskibarqy/halo-stats/internal/platform/querybuilder"
)

type JobRepository struct {
	db *sqlx.DB
}

var jobSelectColumns = []string{
	"id",
	"job_type",
	"is_valid",
	"duration_seconds",
	"created_at",
	"completed_at",
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, jobType job.Type) (job.Job, error) {
	query, args, err := qb.InsertModel("job", jobInsertModel{JobType: string(jobType)},
		"RETURNING "+strings.Join(jobSelectColumns, ", "))
	if err != nil {
		return job.Job{}, fmt.Errorf("build insert job query: %w", err)
	}

	var row jobTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return job.Job{}, fmt.Errorf("insert job type=%s: %w", jobType, err)
	}
	return jobFromRow(row), nil
}

// Complete marks the job valid. A job that is never completed stays invalid
// and does not count toward coverage.
func (r *JobRepository) Complete(ctx context.Context, jobID int64, duration time.Duration) error {
	query, args, err := qb.Update("job").
		Set("is_valid", true).
		Set("duration_seconds", duration.Seconds()).
		SetExpr("completed_at", "NOW()").
		Where(qb.Eq("id", jobID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build complete job query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("complete job id=%d: %w", jobID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete job rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("complete job id=%d: job not found", jobID)
	}
	return nil
}

func (r *JobRepository) AttachPlayer(ctx context.Context, jobID, playerID int64) error {
	query, args, err := qb.InsertModel("job_player", jobPlayerInsertModel{JobID: jobID, PlayerID: playerID},
		"ON CONFLICT (job_id, player_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert job player query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("attach player id=%d to job id=%d: %w", playerID, jobID, err)
	}
	return nil
}

func (r *JobRepository) AttachMatches(ctx context.Context, jobID int64, matchIDs []int64) error {
	if len(matchIDs) == 0 {
		return nil
	}

	rows := make([]jobMatchInsertModel, 0, len(matchIDs))
	for _, id := range matchIDs {
		rows = append(rows, jobMatchInsertModel{JobID: jobID, MatchID: id})
	}
	query, args, err := qb.InsertModels("job_match", rows, "ON CONFLICT (job_id, match_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert job matches query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("attach %d matches to job id=%d: %w", len(matchIDs), jobID, err)
	}
	return nil
}

// CoverageSummary counts the distinct matches linked to the player through
// valid match jobs.
func (r *JobRepository) CoverageSummary(ctx context.Context, playerID int64) (job.Coverage, error) {
	query, args, err := qb.Select(
		"COUNT(DISTINCT jm.match_id) AS match_count",
		"MAX(m.started_at) AS last_match_at",
	).From("job_player jp").
		Join("job j", qb.Expr("j.id = jp.job_id AND j.is_valid AND j.job_type = ?", string(job.TypeMatch))).
		Join("job_match jm", qb.Expr("jm.job_id = j.id")).
		Join("match m", qb.Expr("m.id = jm.match_id")).
		Where(qb.Eq("jp.player_id", playerID)).
		ToSQL()
	if err != nil {
		return job.Coverage{}, fmt.Errorf("build coverage summary query: %w", err)
	}

	var row coverageModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return job.Coverage{}, fmt.Errorf("select coverage summary player id=%d: %w", playerID, err)
	}

	out := job.Coverage{MatchCount: row.MatchCount}
	if row.LastMatchAt.Valid {
		last := row.LastMatchAt.Time.UTC()
		out.LastMatchAt = &last
	}
	return out, nil
}

// NextPlayer picks the player whose newest valid match job is oldest. Players
// never covered come first.
func (r *JobRepository) NextPlayer(ctx context.Context) (player.Player, bool, error) {
	columns := make([]string, 0, len(playerSelectColumns))
	for _, c := range playerSelectColumns {
		columns = append(columns, "p."+c)
	}

	query, args, err := qb.Select(columns...).From("player p").
		LeftJoin("job_player jp", qb.Expr("jp.player_id = p.id")).
		LeftJoin("job j", qb.Expr("j.id = jp.job_id AND j.is_valid AND j.job_type = ?", string(job.TypeMatch))).
		GroupBy("p.id").
		OrderBy("MAX(j.created_at) ASC NULLS FIRST", "p.id").
		Limit(1).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build next player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("select next player: %w", err)
	}
	return playerFromRow(row), true, nil
}

func jobFromRow(row jobTableModel) job.Job {
	out := job.Job{
		ID:        row.ID,
		Type:      job.Type(row.JobType),
		IsValid:   row.IsValid,
		CreatedAt: row.CreatedAt,
	}
	if row.DurationSeconds.Valid {
		d := row.DurationSeconds.Float64
		out.DurationSeconds = &d
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		out.CompletedAt = &t
	}
	return out
}
