package waypoint

import (
	"context"

	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/riskibarqy/halo-stats/internal/domain/match"
	"github.com/riskibarqy/halo-stats/internal/platform/codec"
)

const (
	entityMatch      = "match"
	entityMatchCount = "match_count"
	entityDetail     = "match_detail"

	humanPlayerType = 1
)

// FlattenMatchPage reads one page of a player's match history. Any bad
// record fails the whole page.
func (n *Normalizer) FlattenMatchPage(ctx context.Context, raw []byte) ([]match.Match, error) {
	root, r, err := decodeObject(entityMatch, raw)
	if err != nil {
		return nil, n.reject(ctx, "page", err)
	}

	results := root.list("Results")
	out := make([]match.Match, 0, len(results))
	for _, item := range results {
		m := flattenMatch(item)
		if r.failed() {
			break
		}
		out = append(out, m)
	}
	if err := r.result(); err != nil {
		return nil, n.reject(ctx, "page", err)
	}
	return out, nil
}

func flattenMatch(item node) match.Match {
	info := item.obj("MatchInfo")
	mapVariant := info.obj("MapVariant")
	gameVariant := info.obj("UgcGameVariant")

	m := match.Match{
		GUID:            item.str("MatchId"),
		StartedAt:       info.timestamp("StartTime"),
		CompletedAt:     info.timestamp("EndTime"),
		DurationSeconds: info.seconds("Duration"),
		Map: match.AssetRef{
			AssetID:   mapVariant.str("AssetId"),
			VersionID: mapVariant.str("VersionId"),
		},
		MapLevelID: info.str("LevelId"),
		Mode: match.AssetRef{
			AssetID:   gameVariant.str("AssetId"),
			VersionID: gameVariant.str("VersionId"),
		},
		ModeCategoryID:          info.intVal("GameVariantCategory"),
		LifecycleModeID:         info.intVal("LifecycleMode"),
		ExperienceID:            info.intVal("PlaylistExperience"),
		SeasonID:                info.str("SeasonId"),
		PlayableDurationSeconds: info.seconds("PlayableDuration"),
	}
	if playlist, ok := info.optObj("Playlist"); ok {
		m.Playlist = &match.AssetRef{
			AssetID:   playlist.str("AssetId"),
			VersionID: playlist.str("VersionId"),
		}
	}

	if !item.r.failed() {
		parsed, err := uuid.Parse(m.GUID)
		if err != nil {
			item.r.fail(item.child("MatchId"), crerr.Wrapf(err, "match id %q", m.GUID))
		} else {
			// canonical lower-case form, the same text postgres returns for guid::text
			m.GUID = parsed.String()
		}
	}
	return m
}

// FlattenMatchCount reads the approximate number of matches a player has
// played.
func (n *Normalizer) FlattenMatchCount(ctx context.Context, raw []byte) (int, error) {
	root, r, err := decodeObject(entityMatchCount, raw)
	if err != nil {
		return 0, n.reject(ctx, "count", err)
	}
	count := root.intVal("MatchesPlayedCount")
	if err := r.result(); err != nil {
		return 0, n.reject(ctx, "count", err)
	}
	return count, nil
}

// FlattenMatchDetail reads the team, player and bot breakdown of one match.
// Unsupported mode blocks fail the whole match so nothing partial is stored.
func (n *Normalizer) FlattenMatchDetail(ctx context.Context, raw []byte) (match.Detail, error) {
	root, r, err := decodeObject(entityDetail, raw)
	if err != nil {
		return match.Detail{}, n.reject(ctx, "detail", err)
	}

	guid := root.str("MatchId")
	detail := match.Detail{MatchGUID: guid}
	modes := newModeScanner(n, guid, raw)

	for _, item := range root.list("Teams") {
		stats := item.obj("Stats")
		team := match.Team{
			TeamID:    item.intVal("TeamId"),
			OutcomeID: item.intVal("Outcome"),
			Rank:      item.intVal("Rank"),
			Stats:     flattenCoreStats(stats.obj("CoreStats")),
		}
		team.Mode = modes.scan(ctx, stats, "team")
		if r.failed() || modes.err != nil {
			break
		}
		detail.Teams = append(detail.Teams, team)
	}

	if !r.failed() && modes.err == nil {
		for _, item := range root.list("Players") {
			participation := flattenParticipation(ctx, item, modes)
			if r.failed() || modes.err != nil {
				break
			}

			id := item.str("PlayerId")
			if item.intVal("PlayerType") == humanPlayerType {
				detail.Players = append(detail.Players, match.Player{
					XUID:          codec.UnwrapXUID(id),
					Participation: participation,
				})
				continue
			}
			detail.Bots = append(detail.Bots, match.Bot{
				BotID:         codec.UnwrapBotID(id),
				DifficultyID:  item.obj("BotAttributes").intVal("Difficulty"),
				Participation: participation,
			})
		}
	}

	if modes.err != nil {
		return match.Detail{}, modes.err
	}
	if err := r.result(); err != nil {
		return match.Detail{}, n.reject(ctx, guid, err)
	}
	return detail, nil
}

func flattenParticipation(ctx context.Context, item node, modes *modeScanner) match.Participation {
	lastTeamID := item.intVal("LastTeamId")
	participation := item.obj("ParticipationInfo")

	p := match.Participation{
		LastTeamID:          lastTeamID,
		OutcomeID:           item.intVal("Outcome"),
		Rank:                item.intVal("Rank"),
		FirstJoinedAt:       participation.timestamp("FirstJoinedTime"),
		LastLeftAt:          participation.optTimestamp("LastLeaveTime"),
		PresentAtBeginning:  participation.boolean("PresentAtBeginning"),
		JoinedInProgress:    participation.boolean("JoinedInProgress"),
		LeftInProgress:      participation.boolean("LeftInProgress"),
		PresentAtCompletion: participation.boolean("PresentAtCompletion"),
		TimePlayedSeconds:   participation.seconds("TimePlayed"),
	}

	teamStats := item.list("PlayerTeamStats")
	if item.r.failed() {
		return p
	}
	if len(teamStats) == 0 {
		item.r.fail(item.child("PlayerTeamStats"), crerr.Wrap(errMissingField, "no team stats"))
		return p
	}

	chosen := teamStats[0]
	for _, entry := range teamStats {
		if entry.has("TeamId") && entry.intVal("TeamId") == lastTeamID {
			chosen = entry
			break
		}
	}

	stats := chosen.obj("Stats")
	p.Stats = flattenCoreStats(stats.obj("CoreStats"))
	p.Mode = modes.scan(ctx, stats, "player")
	return p
}

func flattenCoreStats(core node) match.CoreStats {
	s := match.CoreStats{
		Score:            core.intVal("Score"),
		PersonalScore:    core.intVal("PersonalScore"),
		RoundsWon:        core.intVal("RoundsWon"),
		RoundsLost:       core.intVal("RoundsLost"),
		RoundsTied:       core.intVal("RoundsTied"),
		Kills:            core.intVal("Kills"),
		Deaths:           core.intVal("Deaths"),
		Assists:          core.intVal("Assists"),
		Suicides:         core.intVal("Suicides"),
		Betrayals:        core.intVal("Betrayals"),
		GrenadeKills:     core.intVal("GrenadeKills"),
		HeadshotKills:    core.intVal("HeadshotKills"),
		MeleeKills:       core.intVal("MeleeKills"),
		PowerWeaponKills: core.intVal("PowerWeaponKills"),
		ShotsFired:       core.intVal("ShotsFired"),
		ShotsHit:         core.intVal("ShotsHit"),
		DamageDealt:      core.intVal("DamageDealt"),
		DamageTaken:      core.intVal("DamageTaken"),
		CalloutAssists:   core.intVal("CalloutAssists"),
		VehicleDestroys:  core.intVal("VehicleDestroys"),
		DriverAssists:    core.intVal("DriverAssists"),
		Hijacks:          core.intVal("Hijacks"),
		EmpAssists:       core.intVal("EmpAssists"),
		MaxKillingSpree:  core.intVal("MaxKillingSpree"),
	}

	medals := core.list("Medals")
	s.Medals = make([]match.Medal, 0, len(medals))
	for _, medal := range medals {
		s.Medals = append(s.Medals, match.Medal{
			NameID: medal.int64Val("NameId"),
			Count:  medal.intVal("Count"),
		})
	}
	return s
}
