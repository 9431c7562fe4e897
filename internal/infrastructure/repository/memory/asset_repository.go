package memory

import (
	"context"

	"github.com/riskibarqy/halo-stats/internal/domain/asset"
)

type AssetRepository struct {
	store *Store
}

func NewAssetRepository(store *Store) *AssetRepository {
	return &AssetRepository{store: store}
}

func (r *AssetRepository) ListUnnamedMapVersions(_ context.Context) ([]asset.Version, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.maps.unnamed(), nil
}

func (r *AssetRepository) ListUnnamedModeVersions(_ context.Context) ([]asset.Version, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.modes.unnamed(), nil
}

func (r *AssetRepository) ListUnnamedPlaylistVersions(_ context.Context) ([]asset.Version, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.playlists.unnamed(), nil
}

func (r *AssetRepository) UpdateMaps(_ context.Context, maps []asset.Map) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range maps {
		r.store.maps.set(m.AssetID, m)
	}
	return nil
}

func (r *AssetRepository) UpdateModes(_ context.Context, modes []asset.Mode) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range modes {
		r.store.modes.set(m.AssetID, m)
	}
	return nil
}

func (r *AssetRepository) UpdatePlaylists(_ context.Context, playlists []asset.Playlist) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range playlists {
		r.store.playlists.set(p.AssetID, p)
	}
	return nil
}
