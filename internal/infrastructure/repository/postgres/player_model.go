package postgres

import (
	"database/sql"
	"time"
)

type playerTableModel struct {
	ID        int64          `db:"id"`
	XUID      string         `db:"xuid"`
	Gamertag  sql.NullString `db:"gamertag"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type playerInsertModel struct {
	XUID string `db:"xuid"`
}
