// Package waypointtest provides payload builders and an in-process upstream
// that speaks the Halo Waypoint wire format.
package waypointtest

import (
	"fmt"
	"time"
)

// Object is a decoded JSON object.
type Object = map[string]any

const (
	MapAssetID      = "11111111-0000-0000-0000-000000000001"
	MapVersionID    = "11111111-0000-0000-0000-0000000000a1"
	ModeAssetID     = "22222222-0000-0000-0000-000000000001"
	ModeVersionID   = "22222222-0000-0000-0000-0000000000a1"
	PlaylistAssetID = "33333333-0000-0000-0000-000000000001"
	PlaylistVersion = "33333333-0000-0000-0000-0000000000a1"
)

// MatchGUID returns a stable, valid match GUID for index i.
func MatchGUID(i int) string {
	return fmt.Sprintf("%08x-4717-4966-9902-af7097469f74", i)
}

// MatchResult is one entry of a match history page.
func MatchResult(guid string, start time.Time) Object {
	return Object{
		"MatchId": guid,
		"MatchInfo": Object{
			"StartTime":  start.UTC().Format(time.RFC3339Nano),
			"EndTime":    start.Add(10 * time.Minute).UTC().Format(time.RFC3339Nano),
			"Duration":   "PT10M32.5S",
			"MapVariant": Object{"AssetId": MapAssetID, "VersionId": MapVersionID},
			"LevelId":    "level-1",
			"UgcGameVariant": Object{
				"AssetId":   ModeAssetID,
				"VersionId": ModeVersionID,
			},
			"GameVariantCategory": 6,
			"Playlist":            Object{"AssetId": PlaylistAssetID, "VersionId": PlaylistVersion},
			"LifecycleMode":       3,
			"PlaylistExperience":  2,
			"SeasonId":            "Seasons/Season3.json",
			"PlayableDuration":    "PT10M",
		},
	}
}

// History builds n matches, newest first, one hour apart ending at newest.
func History(n int, newest time.Time) []Object {
	out := make([]Object, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, MatchResult(MatchGUID(i), newest.Add(-time.Duration(i)*time.Hour)))
	}
	return out
}

func CoreStats(kills int) Object {
	return Object{
		"Score": 1200, "PersonalScore": 1500, "RoundsWon": 1, "RoundsLost": 0, "RoundsTied": 0,
		"Kills": kills, "Deaths": 7, "Assists": 4, "Suicides": 0, "Betrayals": 0,
		"GrenadeKills": 1, "HeadshotKills": 5, "MeleeKills": 2, "PowerWeaponKills": 1,
		"ShotsFired": 300, "ShotsHit": 150, "DamageDealt": 4200, "DamageTaken": 3100,
		"CalloutAssists": 2, "VehicleDestroys": 0, "DriverAssists": 0, "Hijacks": 0,
		"EmpAssists": 0, "MaxKillingSpree": 3,
		"Medals": []any{
			Object{"NameId": 622331684, "Count": 2, "TotalPersonalScoreAwarded": 0},
			Object{"NameId": 3334154676, "Count": 1, "TotalPersonalScoreAwarded": 0},
		},
	}
}

// MatchDetail is a two-team match with one human player and one bot. Mode
// blocks passed in are added to every Stats object.
func MatchDetail(guid string, modeBlocks Object) Object {
	stats := func(kills int) Object {
		out := Object{"CoreStats": CoreStats(kills)}
		for k, v := range modeBlocks {
			out[k] = v
		}
		return out
	}
	participant := func(id string, playerType, team int) Object {
		p := Object{
			"PlayerId":   id,
			"PlayerType": playerType,
			"LastTeamId": team,
			"Outcome":    2,
			"Rank":       1,
			"ParticipationInfo": Object{
				"FirstJoinedTime":     "2023-01-20T02:09:02.283Z",
				"LastLeaveTime":       nil,
				"PresentAtBeginning":  true,
				"JoinedInProgress":    false,
				"LeftInProgress":      false,
				"PresentAtCompletion": true,
				"TimePlayed":          "PT10M31.2S",
			},
			"PlayerTeamStats": []any{
				Object{"TeamId": team, "Stats": stats(12)},
			},
		}
		if playerType != 1 {
			p["BotAttributes"] = Object{"Difficulty": 2}
		}
		return p
	}

	return Object{
		"MatchId": guid,
		"Teams": []any{
			Object{"TeamId": 0, "Outcome": 2, "Rank": 1, "Stats": stats(30)},
			Object{"TeamId": 1, "Outcome": 3, "Rank": 2, "Stats": stats(25)},
		},
		"Players": []any{
			participant("xuid(2533274800000001)", 1, 0),
			participant("bid(2.0)", 2, 1),
		},
	}
}

func Map(assetID, versionID, name string) Object {
	return Object{"AssetId": assetID, "VersionId": versionID, "PublicName": name}
}

func GameVariant(assetID, versionID, publicName string) Object {
	return Object{"AssetId": assetID, "VersionId": versionID, "PublicName": publicName}
}

func Playlist(assetID, versionID, name string, inputs []int, fireteam int) Object {
	allowed := make([]any, 0, len(inputs))
	for _, v := range inputs {
		allowed = append(allowed, v)
	}
	return Object{
		"AssetId":    assetID,
		"VersionId":  versionID,
		"PublicName": name,
		"CustomData": Object{"AllowedDeviceInputs": allowed, "MaxFireteamSize": fireteam},
	}
}
