package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/halo-stats/internal/domain/match"
)

type MatchRepository struct {
	store *Store
}

func NewMatchRepository(store *Store) *MatchRepository {
	return &MatchRepository{store: store}
}

func (r *MatchRepository) CreateMatches(_ context.Context, matches []match.Match) ([]int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int64, 0, len(matches))
	for _, m := range matches {
		s.maps.addVersion(m.Map)
		s.modes.addVersion(m.Mode)
		if m.Playlist != nil {
			s.playlists.addVersion(*m.Playlist)
		}

		if idx, ok := s.matchByGUID[m.GUID]; ok {
			out = append(out, s.matches[idx].ID)
			continue
		}
		m.ID = int64(len(s.matches) + 1)
		s.matches = append(s.matches, m)
		s.matchByGUID[m.GUID] = len(s.matches) - 1
		out = append(out, m.ID)
	}
	return out, nil
}

func (r *MatchRepository) ListMissingDetail(_ context.Context, limit int) ([]match.Ref, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []match.Match
	for _, m := range s.matches {
		if len(s.teams[m.ID]) > 0 && len(s.matchPlayer[m.ID]) > 0 {
			continue
		}
		missing = append(missing, m)
	}
	sort.SliceStable(missing, func(i, j int) bool {
		if !missing[i].StartedAt.Equal(missing[j].StartedAt) {
			return missing[i].StartedAt.After(missing[j].StartedAt)
		}
		return missing[i].ID < missing[j].ID
	})
	if limit > 0 && len(missing) > limit {
		missing = missing[:limit]
	}

	out := make([]match.Ref, 0, len(missing))
	for _, m := range missing {
		out = append(out, match.Ref{ID: m.ID, GUID: m.GUID})
	}
	return out, nil
}

func (r *MatchRepository) SaveDetail(_ context.Context, detail match.Detail) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.matchByGUID[detail.MatchGUID]
	if !ok {
		return fmt.Errorf("match guid=%s not stored", detail.MatchGUID)
	}
	matchID := s.matches[idx].ID

	for _, team := range detail.Teams {
		rows := s.teams[matchID]
		if rows == nil {
			rows = make(map[int]match.Team)
			s.teams[matchID] = rows
		}
		if _, exists := rows[team.TeamID]; !exists {
			rows[team.TeamID] = team
		}
	}
	for _, p := range detail.Players {
		s.upsertPlayerLocked(p.XUID)
		rows := s.matchPlayer[matchID]
		if rows == nil {
			rows = make(map[string]match.Player)
			s.matchPlayer[matchID] = rows
		}
		if _, exists := rows[p.XUID]; !exists {
			rows[p.XUID] = p
		}
	}
	for _, b := range detail.Bots {
		rows := s.matchBots[matchID]
		if rows == nil {
			rows = make(map[string]match.Bot)
			s.matchBots[matchID] = rows
		}
		if _, exists := rows[b.BotID]; !exists {
			rows[b.BotID] = b
		}
	}
	return nil
}
