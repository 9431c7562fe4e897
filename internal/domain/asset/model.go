package asset

// Version is an asset version whose parent asset has no display name yet.
type Version struct {
	AssetID   string
	VersionID string
}

type Map struct {
	AssetID   string
	VersionID string
	Name      string
}

// Mode is a UGC game variant. Its public name is "Context:Name".
type Mode struct {
	AssetID   string
	VersionID string
	Context   string
	Name      string
}

type Playlist struct {
	AssetID         string
	VersionID       string
	Name            string
	IsRanked        bool
	IsController    bool
	IsMNK           bool
	MaxFireteamSize int
}

// Conflict describes versions of one asset that disagree on a field.
type Conflict struct {
	AssetID string
	Field   string
	Values  []string
}
