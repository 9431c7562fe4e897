package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/riskibarqy/halo-stats/internal/domain/match"
	qb "github.com/riskibarqy/halo-stats/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// CreateMatches upserts the referenced asset versions and the matches in one
// transaction. The returned ids line up with the input, including matches
// that already existed.
func (r *MatchRepository) CreateMatches(ctx context.Context, matches []match.Match) ([]int64, error) {
	if len(matches) == 0 {
		return []int64{}, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx create matches: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	versions := newVersionResolver(tx)
	rows := make([]matchInsertModel, 0, len(matches))
	guids := make([]string, 0, len(matches))
	for _, m := range matches {
		mapVersionID, err := versions.mapVersion(ctx, m.Map)
		if err != nil {
			return nil, err
		}
		modeVersionID, err := versions.modeVersion(ctx, m.Mode, m.ModeCategoryID)
		if err != nil {
			return nil, err
		}
		var playlistVersionID sql.NullInt64
		if m.Playlist != nil {
			id, err := versions.playlistVersion(ctx, *m.Playlist)
			if err != nil {
				return nil, err
			}
			playlistVersionID = sql.NullInt64{Int64: id, Valid: true}
		}

		rows = append(rows, matchInsertModel{
			GUID:                    m.GUID,
			StartedAt:               m.StartedAt,
			CompletedAt:             m.CompletedAt,
			DurationSeconds:         m.DurationSeconds,
			MapVersionID:            mapVersionID,
			MapLevelID:              m.MapLevelID,
			ModeVersionID:           modeVersionID,
			PlaylistVersionID:       playlistVersionID,
			LifecycleModeID:         m.LifecycleModeID,
			ExperienceID:            m.ExperienceID,
			SeasonID:                m.SeasonID,
			PlayableDurationSeconds: m.PlayableDurationSeconds,
		})
		guids = append(guids, m.GUID)
	}

	query, args, err := qb.InsertModels("match", rows, "ON CONFLICT (guid) DO NOTHING")
	if err != nil {
		return nil, fmt.Errorf("build insert matches query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert matches: %w", err)
	}

	query, args, err = qb.Select("id", "guid::text AS guid").From("match").
		Where(qb.Expr("guid = ANY(?::uuid[])", pq.Array(guids))).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select match ids query: %w", err)
	}
	var refs []matchRefModel
	if err := tx.SelectContext(ctx, &refs, query, args...); err != nil {
		return nil, fmt.Errorf("select match ids: %w", err)
	}

	idByGUID := make(map[string]int64, len(refs))
	for _, ref := range refs {
		idByGUID[ref.GUID] = ref.ID
	}
	out := make([]int64, 0, len(guids))
	for _, guid := range guids {
		id, ok := idByGUID[guid]
		if !ok {
			return nil, fmt.Errorf("match guid=%s missing after insert", guid)
		}
		out = append(out, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create matches: %w", err)
	}
	return out, nil
}

// ListMissingDetail returns matches without team rows or without player rows,
// newest first.
func (r *MatchRepository) ListMissingDetail(ctx context.Context, limit int) ([]match.Ref, error) {
	query, args, err := qb.Select("m.id", "m.guid::text AS guid").From("match m").
		Where(qb.Expr(
			"(NOT EXISTS (SELECT 1 FROM match_team t WHERE t.match_id = m.id) " +
				"OR NOT EXISTS (SELECT 1 FROM match_player p WHERE p.match_id = m.id))",
		)).
		OrderBy("m.started_at DESC", "m.id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select missing detail query: %w", err)
	}

	var rows []matchRefModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select matches missing detail: %w", err)
	}

	out := make([]match.Ref, 0, len(rows))
	for _, row := range rows {
		out = append(out, match.Ref{ID: row.ID, GUID: row.GUID})
	}
	return out, nil
}

// SaveDetail writes the player directory rows and the team, player and bot
// rows of one match. Rows that already exist are left untouched.
func (r *MatchRepository) SaveDetail(ctx context.Context, detail match.Detail) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx save match detail: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.Select("id").From("match").
		Where(qb.Expr("guid = ?::uuid", detail.MatchGUID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build select match by guid query: %w", err)
	}
	var matchID int64
	if err := tx.GetContext(ctx, &matchID, query, args...); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("match guid=%s not stored", detail.MatchGUID)
		}
		return fmt.Errorf("select match by guid: %w", err)
	}

	if err := insertTeams(ctx, tx, matchID, detail.Teams); err != nil {
		return err
	}
	if err := insertPlayers(ctx, tx, matchID, detail.Players); err != nil {
		return err
	}
	if err := insertBots(ctx, tx, matchID, detail.Bots); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save match detail: %w", err)
	}
	return nil
}

func insertTeams(ctx context.Context, tx *sqlx.Tx, matchID int64, teams []match.Team) error {
	if len(teams) == 0 {
		return nil
	}

	builder := qb.InsertInto("match_team").
		Columns(append([]string{"match_id", "team_id", "outcome_id", "rank"}, statsColumns...)...).
		Suffix("ON CONFLICT (match_id, team_id) DO NOTHING")
	for _, team := range teams {
		stats, err := statsValues(team.Stats, team.Mode)
		if err != nil {
			return fmt.Errorf("team %d: %w", team.TeamID, err)
		}
		builder.Values(append([]any{matchID, team.TeamID, team.OutcomeID, team.Rank}, stats...)...)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return fmt.Errorf("build insert match teams query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert match teams: %w", err)
	}
	return nil
}

func insertPlayers(ctx context.Context, tx *sqlx.Tx, matchID int64, players []match.Player) error {
	if len(players) == 0 {
		return nil
	}

	columns := append([]string{"match_id", "player_id"}, participationColumns...)
	builder := qb.InsertInto("match_player").
		Columns(append(columns, statsColumns...)...).
		Suffix("ON CONFLICT (match_id, player_id) DO NOTHING")
	for _, p := range players {
		playerID, err := upsertPlayerID(ctx, tx, p.XUID)
		if err != nil {
			return err
		}
		values, err := participationValues(p.Participation)
		if err != nil {
			return fmt.Errorf("player xuid=%s: %w", p.XUID, err)
		}
		builder.Values(append([]any{matchID, playerID}, values...)...)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return fmt.Errorf("build insert match players query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert match players: %w", err)
	}
	return nil
}

func insertBots(ctx context.Context, tx *sqlx.Tx, matchID int64, bots []match.Bot) error {
	if len(bots) == 0 {
		return nil
	}

	columns := append([]string{"match_id", "bot_id", "difficulty_id"}, participationColumns...)
	builder := qb.InsertInto("match_bot").
		Columns(append(columns, statsColumns...)...).
		Suffix("ON CONFLICT (match_id, bot_id) DO NOTHING")
	for _, b := range bots {
		values, err := participationValues(b.Participation)
		if err != nil {
			return fmt.Errorf("bot %s: %w", b.BotID, err)
		}
		builder.Values(append([]any{matchID, b.BotID, b.DifficultyID}, values...)...)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return fmt.Errorf("build insert match bots query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert match bots: %w", err)
	}
	return nil
}

// versionResolver upserts asset and version rows, remembering ids for the
// rest of the transaction.
type versionResolver struct {
	tx  *sqlx.Tx
	ids map[string]int64
}

func newVersionResolver(tx *sqlx.Tx) *versionResolver {
	return &versionResolver{tx: tx, ids: make(map[string]int64)}
}

func (v *versionResolver) mapVersion(ctx context.Context, ref match.AssetRef) (int64, error) {
	return v.resolve("map", ref, func() (int64, error) {
		mapID, err := upsertReturningID(ctx, v.tx, "map", assetInsertModel{AssetID: ref.AssetID},
			"ON CONFLICT (asset_id) DO UPDATE SET asset_id = EXCLUDED.asset_id RETURNING id")
		if err != nil {
			return 0, err
		}
		return upsertReturningID(ctx, v.tx, "map_version", mapVersionInsertModel{MapID: mapID, VersionID: ref.VersionID},
			"ON CONFLICT (map_id, version_id) DO UPDATE SET version_id = EXCLUDED.version_id RETURNING id")
	})
}

func (v *versionResolver) modeVersion(ctx context.Context, ref match.AssetRef, categoryID int) (int64, error) {
	return v.resolve("mode", ref, func() (int64, error) {
		modeID, err := upsertReturningID(ctx, v.tx, "mode", modeInsertModel{AssetID: ref.AssetID, CategoryID: categoryID},
			"ON CONFLICT (asset_id) DO UPDATE SET category_id = EXCLUDED.category_id RETURNING id")
		if err != nil {
			return 0, err
		}
		return upsertReturningID(ctx, v.tx, "mode_version", modeVersionInsertModel{ModeID: modeID, VersionID: ref.VersionID},
			"ON CONFLICT (mode_id, version_id) DO UPDATE SET version_id = EXCLUDED.version_id RETURNING id")
	})
}

func (v *versionResolver) playlistVersion(ctx context.Context, ref match.AssetRef) (int64, error) {
	return v.resolve("playlist", ref, func() (int64, error) {
		playlistID, err := upsertReturningID(ctx, v.tx, "playlist", assetInsertModel{AssetID: ref.AssetID},
			"ON CONFLICT (asset_id) DO UPDATE SET asset_id = EXCLUDED.asset_id RETURNING id")
		if err != nil {
			return 0, err
		}
		return upsertReturningID(ctx, v.tx, "playlist_version", playlistVersionInsertModel{PlaylistID: playlistID, VersionID: ref.VersionID},
			"ON CONFLICT (playlist_id, version_id) DO UPDATE SET version_id = EXCLUDED.version_id RETURNING id")
	})
}

func (v *versionResolver) resolve(kind string, ref match.AssetRef, upsert func() (int64, error)) (int64, error) {
	key := kind + "/" + ref.AssetID + "/" + ref.VersionID
	if id, ok := v.ids[key]; ok {
		return id, nil
	}
	id, err := upsert()
	if err != nil {
		return 0, fmt.Errorf("upsert %s version %s/%s: %w", kind, ref.AssetID, ref.VersionID, err)
	}
	v.ids[key] = id
	return id, nil
}

func upsertReturningID(ctx context.Context, tx *sqlx.Tx, table string, model any, suffix string) (int64, error) {
	query, args, err := qb.InsertModel(table, model, suffix)
	if err != nil {
		return 0, fmt.Errorf("build upsert %s query: %w", table, err)
	}
	var id int64
	if err := tx.GetContext(ctx, &id, query, args...); err != nil {
		return 0, fmt.Errorf("upsert %s: %w", table, err)
	}
	return id, nil
}

func upsertPlayerID(ctx context.Context, tx *sqlx.Tx, xuid string) (int64, error) {
	return upsertReturningID(ctx, tx, "player", playerInsertModel{XUID: xuid},
		"ON CONFLICT (xuid) DO UPDATE SET xuid = EXCLUDED.xuid RETURNING id")
}
