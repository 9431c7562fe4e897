package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/riskibarqy/halo-stats/internal/domain/player"
	qb "github.com/riskibarqy/halo-stats/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

var playerSelectColumns = []string{
	"id",
	"xuid",
	"gamertag",
	"created_at",
	"updated_at",
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) Upsert(ctx context.Context, xuid string) (player.Player, error) {
	query, args, err := qb.InsertModel("player", playerInsertModel{XUID: xuid},
		"ON CONFLICT (xuid) DO UPDATE SET xuid = EXCLUDED.xuid RETURNING "+strings.Join(playerSelectColumns, ", "))
	if err != nil {
		return player.Player{}, fmt.Errorf("build upsert player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return player.Player{}, fmt.Errorf("upsert player xuid=%s: %w", xuid, err)
	}
	return playerFromRow(row), nil
}

func (r *PlayerRepository) GetByXUID(ctx context.Context, xuid string) (player.Player, bool, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("player").
		Where(qb.Eq("xuid", xuid)).
		Limit(1).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player by xuid query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get player by xuid: %w", err)
	}
	return playerFromRow(row), true, nil
}

func (r *PlayerRepository) ListMissingGamertag(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("xuid").From("player").
		Where(qb.IsNull("gamertag")).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players missing gamertag query: %w", err)
	}

	var xuids []string
	if err := r.db.SelectContext(ctx, &xuids, query, args...); err != nil {
		return nil, fmt.Errorf("select players missing gamertag: %w", err)
	}
	return xuids, nil
}

// UpdateGamertags overwrites the gamertag of every listed xuid.
func (r *PlayerRepository) UpdateGamertags(ctx context.Context, profiles []player.Profile) error {
	if len(profiles) == 0 {
		return nil
	}

	xuids := make([]string, 0, len(profiles))
	gamertags := make([]string, 0, len(profiles))
	for _, p := range profiles {
		xuids = append(xuids, p.XUID)
		gamertags = append(gamertags, p.Gamertag)
	}

	query, _, err := qb.Update("player p").
		SetExpr("gamertag", "u.gamertag").
		SetExpr("updated_at", "NOW()").
		Suffix("FROM (SELECT UNNEST($1::text[]) AS xuid, UNNEST($2::text[]) AS gamertag) u WHERE p.xuid = u.xuid").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update gamertags query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, pq.Array(xuids), pq.Array(gamertags)); err != nil {
		return fmt.Errorf("update gamertags: %w", err)
	}
	return nil
}

func playerFromRow(row playerTableModel) player.Player {
	return player.Player{
		ID:       row.ID,
		XUID:     row.XUID,
		Gamertag: nullStringValue(row.Gamertag),
	}
}
