package board

import "context"

// OrderRepo is the document store surface the board needs: raw reads
// (documents are schemaless and go through NormalizeOrder), partial
// field updates, and per-document create/delete. The store provides
// per-document atomicity for each partial update; there are no
// cross-document transactions.
type OrderRepo interface {
	Create(ctx context.Context, o *Order) error
	Fetch(ctx context.Context, id string) (map[string]any, error)
	ListRaw(ctx context.Context) ([]map[string]any, error)
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}
