package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/halo-stats/internal/domain/asset"
	qb "github.com/riskibarqy/halo-stats/internal/platform/querybuilder"
)

type AssetRepository struct {
	db *sqlx.DB
}

func NewAssetRepository(db *sqlx.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

type assetTables struct {
	asset        string
	version      string
	parentColumn string
}

var (
	mapTables      = assetTables{asset: "map", version: "map_version", parentColumn: "map_id"}
	modeTables     = assetTables{asset: "mode", version: "mode_version", parentColumn: "mode_id"}
	playlistTables = assetTables{asset: "playlist", version: "playlist_version", parentColumn: "playlist_id"}
)

func (r *AssetRepository) ListUnnamedMapVersions(ctx context.Context) ([]asset.Version, error) {
	return r.listUnnamed(ctx, mapTables)
}

func (r *AssetRepository) ListUnnamedModeVersions(ctx context.Context) ([]asset.Version, error) {
	return r.listUnnamed(ctx, modeTables)
}

func (r *AssetRepository) ListUnnamedPlaylistVersions(ctx context.Context) ([]asset.Version, error) {
	return r.listUnnamed(ctx, playlistTables)
}

func (r *AssetRepository) listUnnamed(ctx context.Context, t assetTables) ([]asset.Version, error) {
	query, args, err := qb.Select("a.asset_id", "v.version_id").From(t.version+" v").
		Join(t.asset+" a", qb.Expr("a.id = v."+t.parentColumn)).
		Where(qb.IsNull("a.name")).
		OrderBy("a.id", "v.id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select unnamed %s versions query: %w", t.asset, err)
	}

	var rows []assetVersionModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select unnamed %s versions: %w", t.asset, err)
	}

	out := make([]asset.Version, 0, len(rows))
	for _, row := range rows {
		out = append(out, asset.Version{AssetID: row.AssetID, VersionID: row.VersionID})
	}
	return out, nil
}

func (r *AssetRepository) UpdateMaps(ctx context.Context, maps []asset.Map) error {
	updates := make([]*qb.UpdateBuilder, 0, len(maps))
	for _, m := range maps {
		updates = append(updates, qb.Update("map").
			Set("name", m.Name).
			Where(qb.Eq("asset_id", m.AssetID)))
	}
	return r.applyUpdates(ctx, "maps", updates)
}

func (r *AssetRepository) UpdateModes(ctx context.Context, modes []asset.Mode) error {
	updates := make([]*qb.UpdateBuilder, 0, len(modes))
	for _, m := range modes {
		updates = append(updates, qb.Update("mode").
			Set("context", m.Context).
			Set("name", m.Name).
			Where(qb.Eq("asset_id", m.AssetID)))
	}
	return r.applyUpdates(ctx, "modes", updates)
}

func (r *AssetRepository) UpdatePlaylists(ctx context.Context, playlists []asset.Playlist) error {
	updates := make([]*qb.UpdateBuilder, 0, len(playlists))
	for _, p := range playlists {
		updates = append(updates, qb.Update("playlist").
			Set("name", p.Name).
			Set("is_ranked", p.IsRanked).
			Set("is_controller", p.IsController).
			Set("is_mnk", p.IsMNK).
			Set("max_fireteam_size", p.MaxFireteamSize).
			Where(qb.Eq("asset_id", p.AssetID)))
	}
	return r.applyUpdates(ctx, "playlists", updates)
}

func (r *AssetRepository) applyUpdates(ctx context.Context, kind string, updates []*qb.UpdateBuilder) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx update %s: %w", kind, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, u := range updates {
		query, args, err := u.ToSQL()
		if err != nil {
			return fmt.Errorf("build update %s query: %w", kind, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update %s: %w", kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update %s: %w", kind, err)
	}
	return nil
}
