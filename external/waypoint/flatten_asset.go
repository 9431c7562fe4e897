package waypoint

import (
	"context"
	"slices"
	"strings"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/halo-stats/internal/domain/asset"
	"github.com/riskibarqy/halo-stats/internal/domain/player"
)

const (
	entityMap      = "map"
	entityMode     = "mode"
	entityPlaylist = "playlist"
	entityProfile  = "profile"

	// AllowedDeviceInputs values.
	inputAny        = 0
	inputController = 1
	inputMouseKeys  = 2
)

func (n *Normalizer) FlattenMap(ctx context.Context, raw []byte) (asset.Map, error) {
	root, r, err := decodeObject(entityMap, raw)
	if err != nil {
		return asset.Map{}, n.reject(ctx, entityMap, err)
	}
	out := asset.Map{
		AssetID:   root.str("AssetId"),
		VersionID: root.str("VersionId"),
		Name:      root.str("PublicName"),
	}
	if err := r.result(); err != nil {
		return asset.Map{}, n.reject(ctx, out.AssetID, err)
	}
	return out, nil
}

// FlattenGameVariant splits the public name "Context:Name" on its first
// colon. A name without a colon has an empty context.
func (n *Normalizer) FlattenGameVariant(ctx context.Context, raw []byte) (asset.Mode, error) {
	root, r, err := decodeObject(entityMode, raw)
	if err != nil {
		return asset.Mode{}, n.reject(ctx, entityMode, err)
	}
	out := asset.Mode{
		AssetID:   root.str("AssetId"),
		VersionID: root.str("VersionId"),
	}
	publicName := root.str("PublicName")
	if err := r.result(); err != nil {
		return asset.Mode{}, n.reject(ctx, out.AssetID, err)
	}

	if modeContext, name, ok := strings.Cut(publicName, ":"); ok {
		out.Context = modeContext
		out.Name = name
	} else {
		out.Name = publicName
	}
	return out, nil
}

func (n *Normalizer) FlattenPlaylist(ctx context.Context, raw []byte) (asset.Playlist, error) {
	root, r, err := decodeObject(entityPlaylist, raw)
	if err != nil {
		return asset.Playlist{}, n.reject(ctx, entityPlaylist, err)
	}

	custom := root.obj("CustomData")
	inputs := custom.ints("AllowedDeviceInputs")
	out := asset.Playlist{
		AssetID:         root.str("AssetId"),
		VersionID:       root.str("VersionId"),
		Name:            root.str("PublicName"),
		MaxFireteamSize: custom.intVal("MaxFireteamSize"),
	}
	if err := r.result(); err != nil {
		return asset.Playlist{}, n.reject(ctx, out.AssetID, err)
	}

	unrestricted := len(inputs) == 0 || slices.Contains(inputs, inputAny)
	out.IsRanked = strings.Contains(out.Name, "Ranked")
	out.IsController = unrestricted || slices.Contains(inputs, inputController)
	out.IsMNK = unrestricted || slices.Contains(inputs, inputMouseKeys)
	return out, nil
}

// FlattenProfiles takes the first Gamertag setting of every profile user.
func (n *Normalizer) FlattenProfiles(ctx context.Context, raw []byte) ([]player.Profile, error) {
	root, r, err := decodeObject(entityProfile, raw)
	if err != nil {
		return nil, n.reject(ctx, entityProfile, err)
	}

	users := root.list("profileUsers")
	out := make([]player.Profile, 0, len(users))
	for _, user := range users {
		profile := player.Profile{XUID: user.str("id")}
		found := false
		for _, setting := range user.list("settings") {
			if setting.str("id") == "Gamertag" {
				profile.Gamertag = setting.str("value")
				found = true
				break
			}
		}
		if r.failed() {
			break
		}
		if !found {
			r.fail(user.child("settings"), crerr.Wrap(errMissingField, "no Gamertag setting"))
			break
		}
		out = append(out, profile)
	}

	if err := r.result(); err != nil {
		return nil, n.reject(ctx, entityProfile, err)
	}
	return out, nil
}
