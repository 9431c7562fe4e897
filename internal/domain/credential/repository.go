package credential

import "context"

// Store persists the latest bundle. Save always replaces the whole record.
type Store interface {
	Load(ctx context.Context) (Bundle, bool, error)
	Save(ctx context.Context, bundle Bundle) error
}
