package match

// ModeKind names the mode-specific stat block found on a team or player.
type ModeKind string

const (
	ModeNone           ModeKind = ""
	ModeBomb           ModeKind = "bomb"
	ModeCaptureTheFlag ModeKind = "capture_the_flag"
	ModeElimination    ModeKind = "elimination"
	ModeExtraction     ModeKind = "extraction"
	ModeInfection      ModeKind = "infection"
	ModeOddball        ModeKind = "oddball"
	ModeZones          ModeKind = "zones"
	ModeStockpile      ModeKind = "stockpile"
)

// Supported reports whether stats of this kind can be flattened. The
// remaining kinds are known upstream shapes that must be rejected.
func (k ModeKind) Supported() bool {
	switch k {
	case ModeNone, ModeElimination, ModeOddball, ModeZones, ModeStockpile:
		return true
	default:
		return false
	}
}

// ModeStats is a tagged union: exactly the field matching Kind is set.
type ModeStats struct {
	Kind        ModeKind          `json:"kind"`
	Elimination *EliminationStats `json:"elimination,omitempty"`
	Oddball     *OddballStats     `json:"oddball,omitempty"`
	Zones       *ZonesStats       `json:"zones,omitempty"`
	Stockpile   *StockpileStats   `json:"stockpile,omitempty"`
}

func (m ModeStats) Empty() bool {
	return m.Kind == ModeNone
}

type EliminationStats struct {
	AlliesRevived             int  `json:"allies_revived"`
	EliminationAssists        int  `json:"elimination_assists"`
	Eliminations              int  `json:"eliminations"`
	EnemyRevivesDenied        int  `json:"enemy_revives_denied"`
	Executions                int  `json:"executions"`
	KillsAsLastPlayerStanding int  `json:"kills_as_last_player_standing"`
	LastPlayersStandingKilled int  `json:"last_players_standing_killed"`
	RoundsSurvived            int  `json:"rounds_survived"`
	TimesRevivedByAlly        int  `json:"times_revived_by_ally"`
	LivesRemaining            *int `json:"lives_remaining,omitempty"`
	EliminationOrder          *int `json:"elimination_order,omitempty"`
}

type OddballStats struct {
	KillsAsSkullCarrier              int     `json:"kills_as_skull_carrier"`
	LongestTimeAsSkullCarrierSeconds float64 `json:"longest_time_as_skull_carrier_seconds"`
	SkullCarriersKilled              int     `json:"skull_carriers_killed"`
	SkullGrabs                       int     `json:"skull_grabs"`
	TimeAsSkullCarrierSeconds        float64 `json:"time_as_skull_carrier_seconds"`
	SkullScoringTicks                int     `json:"skull_scoring_ticks"`
}

type ZonesStats struct {
	ZoneCaptures                   int     `json:"zone_captures"`
	ZoneDefensiveKills             int     `json:"zone_defensive_kills"`
	ZoneOffensiveKills             int     `json:"zone_offensive_kills"`
	ZoneSecures                    int     `json:"zone_secures"`
	TotalZoneOccupationTimeSeconds float64 `json:"total_zone_occupation_time_seconds"`
	ZoneScoringTicks               int     `json:"zone_scoring_ticks"`
}

type StockpileStats struct {
	KillsAsPowerSeedCarrier       int     `json:"kills_as_power_seed_carrier"`
	PowerSeedCarriersKilled       int     `json:"power_seed_carriers_killed"`
	PowerSeedsDeposited           int     `json:"power_seeds_deposited"`
	PowerSeedsStolen              int     `json:"power_seeds_stolen"`
	TimeAsPowerSeedCarrierSeconds float64 `json:"time_as_power_seed_carrier_seconds"`
	TimeAsPowerSeedDriverSeconds  float64 `json:"time_as_power_seed_driver_seconds"`
}
