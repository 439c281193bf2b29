package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fieldbook/videostats-gateway/internal/domain/rawdata"
)

type RawDataRepository struct {
	mu    sync.RWMutex
	items map[string]rawdata.Payload
}

func NewRawDataRepository() *RawDataRepository {
	return &RawDataRepository{items: make(map[string]rawdata.Payload)}
}

func (r *RawDataRepository) Upsert(_ context.Context, item rawdata.Payload) error {
	if item.EntityKey == "" {
		return fmt.Errorf("raw payload entity key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := rawdata.StorageKey(item.EntityType, item.EntityKey)
	if existing, ok := r.items[key]; ok && existing.PayloadHash == item.PayloadHash {
		return nil
	}
	r.items[key] = item
	return nil
}

func (r *RawDataRepository) Get(_ context.Context, entityType, entityKey string) (rawdata.Payload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[rawdata.StorageKey(entityType, entityKey)]
	if !ok {
		return rawdata.Payload{}, fmt.Errorf("%w: entity=%s key=%s", rawdata.ErrNotFound, entityType, entityKey)
	}
	return item, nil
}

func (r *RawDataRepository) Delete(_ context.Context, entityType, entityKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := rawdata.StorageKey(entityType, entityKey)
	if _, ok := r.items[key]; !ok {
		return fmt.Errorf("%w: entity=%s key=%s", rawdata.ErrNotFound, entityType, entityKey)
	}
	delete(r.items, key)
	return nil
}
