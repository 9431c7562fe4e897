package memory

import (
	"context"

	"github.com/riskibarqy/halo-stats/internal/domain/player"
)

type PlayerRepository struct {
	store *Store
}

func NewPlayerRepository(store *Store) *PlayerRepository {
	return &PlayerRepository{store: store}
}

func (r *PlayerRepository) Upsert(_ context.Context, xuid string) (player.Player, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.upsertPlayerLocked(xuid), nil
}

func (r *PlayerRepository) GetByXUID(_ context.Context, xuid string) (player.Player, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	idx, ok := r.store.playerByXUID[xuid]
	if !ok {
		return player.Player{}, false, nil
	}
	return r.store.players[idx], true, nil
}

func (r *PlayerRepository) ListMissingGamertag(_ context.Context) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]string, 0)
	for _, p := range r.store.players {
		if p.Gamertag == "" {
			out = append(out, p.XUID)
		}
	}
	return out, nil
}

func (r *PlayerRepository) UpdateGamertags(_ context.Context, profiles []player.Profile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, p := range profiles {
		idx, ok := r.store.playerByXUID[p.XUID]
		if !ok {
			continue
		}
		r.store.players[idx].Gamertag = p.Gamertag
	}
	return nil
}
