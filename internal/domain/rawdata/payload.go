package rawdata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

const (
	SourceBookingAPI = "booking_api"
	EntityVideoStats = "video_stats"
)

var ErrNotFound = errors.New("raw payload not found")

// Payload is an upstream response body kept verbatim for later replay.
type Payload struct {
	Source      string
	EntityType  string
	EntityKey   string
	PayloadJSON string
	PayloadHash string
	FetchedAt   time.Time
}

func NewPayload(source, entityType, entityKey string, body []byte, fetchedAt time.Time) Payload {
	return Payload{
		Source:      source,
		EntityType:  entityType,
		EntityKey:   strings.TrimSpace(entityKey),
		PayloadJSON: string(body),
		PayloadHash: Hash(body),
		FetchedAt:   fetchedAt.UTC(),
	}
}

// Hash is the hex sha256 of the body, used to skip rewriting identical payloads.
func Hash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// StorageKey joins entity type and key into one flat identifier.
func StorageKey(entityType, entityKey string) string {
	return entityType + "/" + strings.TrimSpace(entityKey)
}
