package player

import "context"

type Repository interface {
	Upsert(ctx context.Context, xuid string) (Player, error)
	GetByXUID(ctx context.Context, xuid string) (Player, bool, error)
	ListMissingGamertag(ctx context.Context) ([]string, error)
	UpdateGamertags(ctx context.Context, profiles []Profile) error
}
