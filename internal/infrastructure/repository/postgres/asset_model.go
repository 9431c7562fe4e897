package postgres

type assetVersionModel struct {
	AssetID   string `db:"asset_id"`
	VersionID string `db:"version_id"`
}
