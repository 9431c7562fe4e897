package usecase

import (
	"context"

	"github.com/riskibarqy/halo-stats/internal/domain/asset"
	"github.com/riskibarqy/halo-stats/internal/domain/match"
	"github.com/riskibarqy/halo-stats/internal/domain/player"
)

// StatsProvider fetches and normalizes upstream records. Implementations
// never retry and never write.
type StatsProvider interface {
	PlayerMatchCount(ctx context.Context, xuid string) (int, error)
	PlayerMatches(ctx context.Context, xuid string, start, count int) ([]match.Match, error)
	MatchDetail(ctx context.Context, matchGUID string) (match.Detail, error)
	Map(ctx context.Context, version asset.Version) (asset.Map, error)
	Mode(ctx context.Context, version asset.Version) (asset.Mode, error)
	Playlist(ctx context.Context, version asset.Version) (asset.Playlist, error)
	Profiles(ctx context.Context, xuids []string) ([]player.Profile, error)
}
