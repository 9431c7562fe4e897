package postgres

import (
	"database/sql"
	"time"
)

type jobTableModel struct {
	ID              int64           `db:"id"`
	JobType         string          `db:"job_type"`
	IsValid         bool            `db:"is_valid"`
	DurationSeconds sql.NullFloat64 `db:"duration_seconds"`
	CreatedAt       time.Time       `db:"created_at"`
	CompletedAt     sql.NullTime    `db:"completed_at"`
}

type jobInsertModel struct {
	JobType string `db:"job_type"`
}

type jobPlayerInsertModel struct {
	JobID    int64 `db:"job_id"`
	PlayerID int64 `db:"player_id"`
}

type jobMatchInsertModel struct {
	JobID   int64 `db:"job_id"`
	MatchID int64 `db:"match_id"`
}

type coverageModel struct {
	MatchCount  int          `db:"match_count"`
	LastMatchAt sql.NullTime `db:"last_match_at"`
}
