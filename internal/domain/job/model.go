package job

import "time"

type Type string

const (
	TypeMatch    Type = "match"
	TypeMetadata Type = "metadata"
	TypeDetail   Type = "detail"
)

// Job is valid only after a clean completion. Invalid jobs never count
// toward coverage, so their players are revisited on the next run.
type Job struct {
	ID              int64
	Type            Type
	IsValid         bool
	DurationSeconds *float64
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// Coverage summarises what valid match jobs already stored for a player.
type Coverage struct {
	MatchCount  int
	LastMatchAt *time.Time
}
