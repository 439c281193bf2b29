package rawdata

import "context"

// Repository archives raw payloads by entity. Get returns ErrNotFound for
// unknown entities.
type Repository interface {
	Upsert(ctx context.Context, item Payload) error
	Get(ctx context.Context, entityType, entityKey string) (Payload, error)
	Delete(ctx context.Context, entityType, entityKey string) error
}
