package match

import "time"

// AssetRef points at one version of a discovery asset (map, game variant,
// playlist).
type AssetRef struct {
	AssetID   string
	VersionID string
}

// Match is one entry of a player's match history.
type Match struct {
	ID                      int64
	GUID                    string
	StartedAt               time.Time
	CompletedAt             time.Time
	DurationSeconds         float64
	Map                     AssetRef
	MapLevelID              string
	Mode                    AssetRef
	ModeCategoryID          int
	Playlist                *AssetRef
	LifecycleModeID         int
	ExperienceID            int
	SeasonID                string
	PlayableDurationSeconds float64
}

// Ref identifies a stored match.
type Ref struct {
	ID   int64
	GUID string
}

type Medal struct {
	NameID int64 `json:"name_id"`
	Count  int   `json:"count"`
}

type CoreStats struct {
	Score            int
	PersonalScore    int
	RoundsWon        int
	RoundsLost       int
	RoundsTied       int
	Kills            int
	Deaths           int
	Assists          int
	Suicides         int
	Betrayals        int
	GrenadeKills     int
	HeadshotKills    int
	MeleeKills       int
	PowerWeaponKills int
	ShotsFired       int
	ShotsHit         int
	DamageDealt      int
	DamageTaken      int
	CalloutAssists   int
	VehicleDestroys  int
	DriverAssists    int
	Hijacks          int
	EmpAssists       int
	MaxKillingSpree  int
	Medals           []Medal
}

type Team struct {
	TeamID    int
	OutcomeID int
	Rank      int
	Stats     CoreStats
	Mode      ModeStats
}

// Participation is shared by human players and bots.
type Participation struct {
	LastTeamID          int
	OutcomeID           int
	Rank                int
	FirstJoinedAt       time.Time
	LastLeftAt          *time.Time
	PresentAtBeginning  bool
	JoinedInProgress    bool
	LeftInProgress      bool
	PresentAtCompletion bool
	TimePlayedSeconds   float64
	Stats               CoreStats
	Mode                ModeStats
}

type Player struct {
	XUID string
	Participation
}

type Bot struct {
	BotID        string
	DifficultyID int
	Participation
}

// Detail is the per-team and per-participant breakdown of one match.
type Detail struct {
	MatchGUID string
	Teams     []Team
	Players   []Player
	Bots      []Bot
}
