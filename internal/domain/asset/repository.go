package asset

import "context"

type Repository interface {
	ListUnnamedMapVersions(ctx context.Context) ([]Version, error)
	ListUnnamedModeVersions(ctx context.Context) ([]Version, error)
	ListUnnamedPlaylistVersions(ctx context.Context) ([]Version, error)
	UpdateMaps(ctx context.Context, maps []Map) error
	UpdateModes(ctx context.Context, modes []Mode) error
	UpdatePlaylists(ctx context.Context, playlists []Playlist) error
}
