package memory

import (
	"sync"
	"time"

	"github.com/riskibarqy/halo-stats/internal/domain/asset"
	"github.com/riskibarqy/halo-stats/internal/domain/job"
	"github.com/riskibarqy/halo-stats/internal/domain/match"
	"github.com/riskibarqy/halo-stats/internal/domain/player"
)

// Store holds every table in process. The repositories built on one Store
// see each other's writes, like tables of a single database.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	players      []player.Player
	playerByXUID map[string]int

	matches     []match.Match
	matchByGUID map[string]int
	teams       map[int64]map[int]match.Team
	matchPlayer map[int64]map[string]match.Player
	matchBots   map[int64]map[string]match.Bot

	maps      assetTable[asset.Map]
	modes     assetTable[asset.Mode]
	playlists assetTable[asset.Playlist]

	jobs       []job.Job
	jobPlayers map[int64]map[int64]struct{}
	jobMatches map[int64]map[int64]struct{}
}

func NewStore() *Store {
	return &Store{
		now:          time.Now,
		playerByXUID: make(map[string]int),
		matchByGUID:  make(map[string]int),
		teams:        make(map[int64]map[int]match.Team),
		matchPlayer:  make(map[int64]map[string]match.Player),
		matchBots:    make(map[int64]map[string]match.Bot),
		maps:         newAssetTable[asset.Map](),
		modes:        newAssetTable[asset.Mode](),
		playlists:    newAssetTable[asset.Playlist](),
		jobPlayers:   make(map[int64]map[int64]struct{}),
		jobMatches:   make(map[int64]map[int64]struct{}),
	}
}

// SetClock replaces the clock used for job timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) MatchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

// DetailRowCount returns the number of team, player and bot rows stored.
func (s *Store) DetailRowCount() (teams, players, bots int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rows := range s.teams {
		teams += len(rows)
	}
	for _, rows := range s.matchPlayer {
		players += len(rows)
	}
	for _, rows := range s.matchBots {
		bots += len(rows)
	}
	return teams, players, bots
}

func (s *Store) Job(id int64) (job.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id <= 0 || int(id) > len(s.jobs) {
		return job.Job{}, false
	}
	return s.jobs[id-1], true
}

func (s *Store) MapAsset(assetID string) (asset.Map, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maps.named(assetID)
}

func (s *Store) ModeAsset(assetID string) (asset.Mode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modes.named(assetID)
}

func (s *Store) PlaylistAsset(assetID string) (asset.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playlists.named(assetID)
}

// upsertPlayerLocked requires s.mu held for writing.
func (s *Store) upsertPlayerLocked(xuid string) player.Player {
	if idx, ok := s.playerByXUID[xuid]; ok {
		return s.players[idx]
	}
	p := player.Player{ID: int64(len(s.players) + 1), XUID: xuid}
	s.players = append(s.players, p)
	s.playerByXUID[xuid] = len(s.players) - 1
	return p
}

type assetTable[T any] struct {
	order    []string
	versions map[string][]string
	names    map[string]T
}

func newAssetTable[T any]() assetTable[T] {
	return assetTable[T]{
		versions: make(map[string][]string),
		names:    make(map[string]T),
	}
}

func (t *assetTable[T]) addVersion(ref match.AssetRef) {
	versions, ok := t.versions[ref.AssetID]
	if !ok {
		t.order = append(t.order, ref.AssetID)
	}
	for _, v := range versions {
		if v == ref.VersionID {
			return
		}
	}
	t.versions[ref.AssetID] = append(versions, ref.VersionID)
}

func (t *assetTable[T]) unnamed() []asset.Version {
	var out []asset.Version
	for _, assetID := range t.order {
		if _, ok := t.names[assetID]; ok {
			continue
		}
		for _, v := range t.versions[assetID] {
			out = append(out, asset.Version{AssetID: assetID, VersionID: v})
		}
	}
	return out
}

// set overwrites the named row of a known asset. Unknown assets are ignored,
// the same as an UPDATE matching no row.
func (t *assetTable[T]) set(assetID string, value T) {
	if _, ok := t.versions[assetID]; !ok {
		return
	}
	t.names[assetID] = value
}

func (t *assetTable[T]) named(assetID string) (T, bool) {
	v, ok := t.names[assetID]
	return v, ok
}
