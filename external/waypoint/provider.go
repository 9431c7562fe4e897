package waypoint

import (
	"context"
	"fmt"

	"github.com/riskibarqy/halo-stats/internal/domain/asset"
	"github.com/riskibarqy/halo-stats/internal/domain/match"
	"github.com/riskibarqy/halo-stats/internal/domain/player"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

var _ usecase.StatsProvider = (*Provider)(nil)

// Provider pairs the raw client with the normalizer.
type Provider struct {
	client     *Client
	normalizer *Normalizer
}

func NewProvider(client *Client, normalizer *Normalizer) *Provider {
	return &Provider{client: client, normalizer: normalizer}
}

func (p *Provider) PlayerMatchCount(ctx context.Context, xuid string) (int, error) {
	raw, err := p.client.PlayerMatchCount(ctx, xuid)
	if err != nil {
		return 0, fmt.Errorf("fetch match count xuid=%s: %w", xuid, err)
	}
	return p.normalizer.FlattenMatchCount(ctx, raw)
}

func (p *Provider) PlayerMatches(ctx context.Context, xuid string, start, count int) ([]match.Match, error) {
	raw, err := p.client.PlayerMatches(ctx, xuid, start, count)
	if err != nil {
		return nil, fmt.Errorf("fetch matches xuid=%s start=%d: %w", xuid, start, err)
	}
	return p.normalizer.FlattenMatchPage(ctx, raw)
}

func (p *Provider) MatchDetail(ctx context.Context, matchGUID string) (match.Detail, error) {
	raw, err := p.client.MatchStats(ctx, matchGUID)
	if err != nil {
		return match.Detail{}, fmt.Errorf("fetch match stats guid=%s: %w", matchGUID, err)
	}
	return p.normalizer.FlattenMatchDetail(ctx, raw)
}

func (p *Provider) Map(ctx context.Context, version asset.Version) (asset.Map, error) {
	raw, err := p.client.Map(ctx, version.AssetID, version.VersionID)
	if err != nil {
		return asset.Map{}, fmt.Errorf("fetch map %s/%s: %w", version.AssetID, version.VersionID, err)
	}
	return p.normalizer.FlattenMap(ctx, raw)
}

func (p *Provider) Mode(ctx context.Context, version asset.Version) (asset.Mode, error) {
	raw, err := p.client.GameVariant(ctx, version.AssetID, version.VersionID)
	if err != nil {
		return asset.Mode{}, fmt.Errorf("fetch game variant %s/%s: %w", version.AssetID, version.VersionID, err)
	}
	return p.normalizer.FlattenGameVariant(ctx, raw)
}

func (p *Provider) Playlist(ctx context.Context, version asset.Version) (asset.Playlist, error) {
	raw, err := p.client.Playlist(ctx, version.AssetID, version.VersionID)
	if err != nil {
		return asset.Playlist{}, fmt.Errorf("fetch playlist %s/%s: %w", version.AssetID, version.VersionID, err)
	}
	return p.normalizer.FlattenPlaylist(ctx, raw)
}

func (p *Provider) Profiles(ctx context.Context, xuids []string) ([]player.Profile, error) {
	raw, err := p.client.Profiles(ctx, xuids)
	if err != nil {
		return nil, fmt.Errorf("fetch profiles count=%d: %w", len(xuids), err)
	}
	return p.normalizer.FlattenProfiles(ctx, raw)
}
