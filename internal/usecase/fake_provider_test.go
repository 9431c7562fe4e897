package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/halo-stats/internal/domain/asset"
	"github.com/riskibarqy/halo-stats/internal/domain/match"
	"github.com/riskibarqy/halo-stats/internal/domain/player"
)

// fakeProvider serves a fixed history and asset catalogue.
type fakeProvider struct {
	mu         sync.Mutex
	history    []match.Match
	countDelta int
	failStart  map[int]error
	details    map[string]match.Detail
	detailErr  map[string]error
	maps       map[asset.Version]asset.Map
	modes      map[asset.Version]asset.Mode
	playlists  map[asset.Version]asset.Playlist
	gamertags  map[string]string
	failXUID   string
	starts     []int
	// beforePage runs outside the lock ahead of each page fetch.
	beforePage func(start int)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		failStart: make(map[int]error),
		details:   make(map[string]match.Detail),
		detailErr: make(map[string]error),
		maps:      make(map[asset.Version]asset.Map),
		modes:     make(map[asset.Version]asset.Mode),
		playlists: make(map[asset.Version]asset.Playlist),
		gamertags: make(map[string]string),
	}
}

func (f *fakeProvider) PlayerMatchCount(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history) + f.countDelta, nil
}

func (f *fakeProvider) PlayerMatches(_ context.Context, _ string, start, count int) ([]match.Match, error) {
	if f.beforePage != nil {
		f.beforePage(start)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, start)
	if err := f.failStart[start]; err != nil {
		return nil, err
	}
	out := []match.Match{}
	for i := start; i < len(f.history) && i < start+count; i++ {
		out = append(out, f.history[i])
	}
	return out, nil
}

func (f *fakeProvider) MatchDetail(_ context.Context, guid string) (match.Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.detailErr[guid]; err != nil {
		return match.Detail{}, err
	}
	d, ok := f.details[guid]
	if !ok {
		return match.Detail{}, fmt.Errorf("no detail for %s", guid)
	}
	return d, nil
}

func (f *fakeProvider) Map(_ context.Context, v asset.Version) (asset.Map, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.maps[v]
	if !ok {
		return asset.Map{}, fmt.Errorf("no map %s/%s", v.AssetID, v.VersionID)
	}
	return m, nil
}

func (f *fakeProvider) Mode(_ context.Context, v asset.Version) (asset.Mode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.modes[v]
	if !ok {
		return asset.Mode{}, fmt.Errorf("no mode %s/%s", v.AssetID, v.VersionID)
	}
	return m, nil
}

func (f *fakeProvider) Playlist(_ context.Context, v asset.Version) (asset.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.playlists[v]
	if !ok {
		return asset.Playlist{}, fmt.Errorf("no playlist %s/%s", v.AssetID, v.VersionID)
	}
	return p, nil
}

func (f *fakeProvider) Profiles(_ context.Context, xuids []string) ([]player.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]player.Profile, 0, len(xuids))
	for _, x := range xuids {
		if x == f.failXUID {
			return nil, fmt.Errorf("profile batch containing %s rejected", x)
		}
		if tag, ok := f.gamertags[x]; ok {
			out = append(out, player.Profile{XUID: x, Gamertag: tag})
		}
	}
	return out, nil
}

func (f *fakeProvider) pageStarts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int(nil), f.starts...)
	sort.Ints(out)
	return out
}

func (f *fakeProvider) setHistory(history []match.Match) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = history
	f.starts = nil
}

var historyEpoch = time.Date(2026, 2, 28, 20, 0, 0, 0, time.UTC)

// fakeHistory builds n matches, newest first, one hour apart. Match k (0 is
// the oldest) is identical across calls, so a longer history only adds newer
// matches at the front.
func fakeHistory(n int) []match.Match {
	out := make([]match.Match, 0, n)
	for i := 0; i < n; i++ {
		id := n - 1 - i
		out = append(out, match.Match{
			GUID:      fmt.Sprintf("%08x-4717-4966-9902-af7097469f74", id),
			StartedAt: historyEpoch.Add(time.Duration(id-1000) * time.Hour),
			Map:       match.AssetRef{AssetID: "map-asset", VersionID: "map-v1"},
			Mode:      match.AssetRef{AssetID: "mode-asset", VersionID: "mode-v1"},
		})
	}
	return out
}
