package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/halo-stats/internal/domain/match"
)

type matchInsertModel struct {
	GUID                    string        `db:"guid"`
	StartedAt               time.Time     `db:"started_at"`
	CompletedAt             time.Time     `db:"completed_at"`
	DurationSeconds         float64       `db:"duration_seconds"`
	MapVersionID            int64         `db:"map_version_id"`
	MapLevelID              string        `db:"map_level_id"`
	ModeVersionID           int64         `db:"mode_version_id"`
	PlaylistVersionID       sql.NullInt64 `db:"playlist_version_id"`
	LifecycleModeID         int           `db:"lifecycle_mode_id"`
	ExperienceID            int           `db:"experience_id"`
	SeasonID                string        `db:"season_id"`
	PlayableDurationSeconds float64       `db:"playable_duration_seconds"`
}

type matchRefModel struct {
	ID   int64  `db:"id"`
	GUID string `db:"guid"`
}

type assetInsertModel struct {
	AssetID string `db:"asset_id"`
}

type modeInsertModel struct {
	AssetID    string `db:"asset_id"`
	CategoryID int    `db:"category_id"`
}

type mapVersionInsertModel struct {
	MapID     int64  `db:"map_id"`
	VersionID string `db:"version_id"`
}

type modeVersionInsertModel struct {
	ModeID    int64  `db:"mode_id"`
	VersionID string `db:"version_id"`
}

type playlistVersionInsertModel struct {
	PlaylistID int64  `db:"playlist_id"`
	VersionID  string `db:"version_id"`
}

var statsColumns = []string{
	"score",
	"personal_score",
	"rounds_won",
	"rounds_lost",
	"rounds_tied",
	"kills",
	"deaths",
	"assists",
	"suicides",
	"betrayals",
	"grenade_kills",
	"headshot_kills",
	"melee_kills",
	"power_weapon_kills",
	"shots_fired",
	"shots_hit",
	"damage_dealt",
	"damage_taken",
	"callout_assists",
	"vehicle_destroys",
	"driver_assists",
	"hijacks",
	"emp_assists",
	"max_killing_spree",
	"medals",
	"mode_kind",
	"mode_stats",
}

var participationColumns = []string{
	"last_team_id",
	"outcome_id",
	"rank",
	"first_joined_at",
	"last_left_at",
	"present_at_beginning",
	"joined_in_progress",
	"left_in_progress",
	"present_at_completion",
	"time_played_seconds",
}

// statsValues follows the order of statsColumns.
func statsValues(stats match.CoreStats, mode match.ModeStats) ([]any, error) {
	medals := stats.Medals
	if medals == nil {
		medals = []match.Medal{}
	}
	medalsJSON, err := jsonText(medals)
	if err != nil {
		return nil, err
	}
	modeJSON, err := modeStatsColumn(mode)
	if err != nil {
		return nil, err
	}

	return []any{
		stats.Score,
		stats.PersonalScore,
		stats.RoundsWon,
		stats.RoundsLost,
		stats.RoundsTied,
		stats.Kills,
		stats.Deaths,
		stats.Assists,
		stats.Suicides,
		stats.Betrayals,
		stats.GrenadeKills,
		stats.HeadshotKills,
		stats.MeleeKills,
		stats.PowerWeaponKills,
		stats.ShotsFired,
		stats.ShotsHit,
		stats.DamageDealt,
		stats.DamageTaken,
		stats.CalloutAssists,
		stats.VehicleDestroys,
		stats.DriverAssists,
		stats.Hijacks,
		stats.EmpAssists,
		stats.MaxKillingSpree,
		medalsJSON,
		string(mode.Kind),
		modeJSON,
	}, nil
}

func participationValues(p match.Participation) ([]any, error) {
	var lastLeft sql.NullTime
	if p.LastLeftAt != nil {
		lastLeft = sql.NullTime{Time: *p.LastLeftAt, Valid: true}
	}
	head := []any{
		p.LastTeamID,
		p.OutcomeID,
		p.Rank,
		p.FirstJoinedAt,
		lastLeft,
		p.PresentAtBeginning,
		p.JoinedInProgress,
		p.LeftInProgress,
		p.PresentAtCompletion,
		p.TimePlayedSeconds,
	}
	stats, err := statsValues(p.Stats, p.Mode)
	if err != nil {
		return nil, err
	}
	return append(head, stats...), nil
}

func modeStatsColumn(mode match.ModeStats) (sql.NullString, error) {
	if mode.Empty() {
		return sql.NullString{}, nil
	}
	raw, err := jsonText(mode)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: raw, Valid: true}, nil
}
