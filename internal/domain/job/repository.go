package job

import (
	"context"
	"time"

	"github.com/riskibarqy/halo-stats/internal/domain/player"
)

type Repository interface {
	Create(ctx context.Context, jobType Type) (Job, error)
	Complete(ctx context.Context, jobID int64, duration time.Duration) error
	AttachPlayer(ctx context.Context, jobID, playerID int64) error
	AttachMatches(ctx context.Context, jobID int64, matchIDs []int64) error
	CoverageSummary(ctx context.Context, playerID int64) (Coverage, error)
	// NextPlayer returns the least recently covered player: players without
	// any valid match job first, then by their latest valid job ascending.
	NextPlayer(ctx context.Context) (player.Player, bool, error)
}
