package waypoint

import (
	"context"
	"strings"

	"github.com/riskibarqy/halo-stats/internal/domain/match"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

// maxStatsKeys is the widest Stats object seen upstream (CoreStats plus the
// eight mode blocks). Anything wider means the schema moved.
const maxStatsKeys = 9

type modeBlock struct {
	key  string
	kind match.ModeKind
}

// modeBlocks is the probe order; the first populated block wins.
var modeBlocks = []modeBlock{
	{key: "BombStats", kind: match.ModeBomb},
	{key: "CaptureTheFlagStats", kind: match.ModeCaptureTheFlag},
	{key: "EliminationStats", kind: match.ModeElimination},
	{key: "ExtractionStats", kind: match.ModeExtraction},
	{key: "InfectionStats", kind: match.ModeInfection},
	{key: "OddballStats", kind: match.ModeOddball},
	{key: "ZonesStats", kind: match.ModeZones},
	{key: "StockpileStats", kind: match.ModeStockpile},
}

// modeScanner dispatches the mode block of every Stats object in one match
// detail payload. Each kind of anomaly is dumped once per payload.
type modeScanner struct {
	n      *Normalizer
	guid   string
	raw    []byte
	dumped map[string]bool
	err    error
}

func newModeScanner(n *Normalizer, guid string, raw []byte) *modeScanner {
	return &modeScanner{n: n, guid: guid, raw: raw, dumped: make(map[string]bool, 3)}
}

func (s *modeScanner) dumpOnce(ctx context.Context, kind string) {
	if s.dumped[kind] {
		return
	}
	s.dumped[kind] = true
	s.n.dump(ctx, kind, s.guid, s.raw)
}

func (s *modeScanner) scan(ctx context.Context, stats node, owner string) match.ModeStats {
	if stats.r.failed() || s.err != nil {
		return match.ModeStats{}
	}

	if len(stats.v) > maxStatsKeys {
		s.n.logger.WarnContext(ctx, "stats object has more keys than expected",
			"match_guid", s.guid,
			"owner", owner,
			"keys", len(stats.v),
		)
		s.dumpOnce(ctx, DumpTooManyStatsKeys)
	}

	var present []modeBlock
	for _, block := range modeBlocks {
		if stats.has(block.key) {
			present = append(present, block)
		}
	}
	if len(present) == 0 {
		return match.ModeStats{}
	}
	if len(present) > 1 {
		keys := make([]string, 0, len(present))
		for _, block := range present {
			keys = append(keys, block.key)
		}
		s.n.logger.WarnContext(ctx, "stats object has more than one mode block",
			"match_guid", s.guid,
			"owner", owner,
			"blocks", strings.Join(keys, ","),
			"using", present[0].key,
		)
		s.dumpOnce(ctx, DumpMultipleModeBlocks)
	}

	block := present[0]
	if !block.kind.Supported() {
		s.n.logger.WarnContext(ctx, "mode stats not supported", "match_guid", s.guid, "mode", string(block.kind))
		s.dumpOnce(ctx, DumpUnsupportedMode)
		s.err = &usecase.UnsupportedModeError{Mode: string(block.kind), EntityKind: owner}
		return match.ModeStats{}
	}

	return flattenModeStats(block.kind, stats.obj(block.key))
}

func flattenModeStats(kind match.ModeKind, block node) match.ModeStats {
	out := match.ModeStats{Kind: kind}
	switch kind {
	case match.ModeElimination:
		out.Elimination = &match.EliminationStats{
			AlliesRevived:             block.intVal("AlliesRevived"),
			EliminationAssists:        block.intVal("EliminationAssists"),
			Eliminations:              block.intVal("Eliminations"),
			EnemyRevivesDenied:        block.intVal("EnemyRevivesDenied"),
			Executions:                block.intVal("Executions"),
			KillsAsLastPlayerStanding: block.intVal("KillsAsLastPlayerStanding"),
			LastPlayersStandingKilled: block.intVal("LastPlayersStandingKilled"),
			RoundsSurvived:            block.intVal("RoundsSurvived"),
			TimesRevivedByAlly:        block.intVal("TimesRevivedByAlly"),
			LivesRemaining:            block.optInt("LivesRemaining"),
			EliminationOrder:          block.optInt("EliminationOrder"),
		}
	case match.ModeOddball:
		out.Oddball = &match.OddballStats{
			KillsAsSkullCarrier:              block.intVal("KillsAsSkullCarrier"),
			LongestTimeAsSkullCarrierSeconds: block.seconds("LongestTimeAsSkullCarrier"),
			SkullCarriersKilled:              block.intVal("SkullCarriersKilled"),
			SkullGrabs:                       block.intVal("SkullGrabs"),
			TimeAsSkullCarrierSeconds:        block.seconds("TimeAsSkullCarrier"),
			SkullScoringTicks:                block.intVal("SkullScoringTicks"),
		}
	case match.ModeZones:
		out.Zones = &match.ZonesStats{
			ZoneCaptures:                   block.intVal("ZoneCaptures"),
			ZoneDefensiveKills:             block.intVal("ZoneDefensiveKills"),
			ZoneOffensiveKills:             block.intVal("ZoneOffensiveKills"),
			ZoneSecures:                    block.intVal("ZoneSecures"),
			TotalZoneOccupationTimeSeconds: block.seconds("TotalZoneOccupationTime"),
			ZoneScoringTicks:               block.intVal("ZoneScoringTicks"),
		}
	case match.ModeStockpile:
		out.Stockpile = &match.StockpileStats{
			KillsAsPowerSeedCarrier:       block.intVal("KillsAsPowerSeedCarrier"),
			PowerSeedCarriersKilled:       block.intVal("PowerSeedCarriersKilled"),
			PowerSeedsDeposited:           block.intVal("PowerSeedsDeposited"),
			PowerSeedsStolen:              block.intVal("PowerSeedsStolen"),
			TimeAsPowerSeedCarrierSeconds: block.seconds("TimeAsPowerSeedCarrier"),
			TimeAsPowerSeedDriverSeconds:  block.seconds("TimeAsPowerSeedDriver"),
		}
	}
	return out
}
