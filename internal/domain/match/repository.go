package match

import "context"

type Repository interface {
	// CreateMatches upserts by GUID and returns the stored id of every input
	// match, in input order, whether or not it already existed.
	CreateMatches(ctx context.Context, matches []Match) ([]int64, error)
	// ListMissingDetail returns matches lacking team rows or player rows.
	ListMissingDetail(ctx context.Context, limit int) ([]Ref, error)
	SaveDetail(ctx context.Context, detail Detail) error
}
