package player

// Player is one entry of the player directory. Gamertag stays empty until
// the metadata job resolves it.
type Player struct {
	ID       int64
	XUID     string
	Gamertag string
}

// Profile is a resolved display name for an xuid.
type Profile struct {
	XUID     string
	Gamertag string
}
