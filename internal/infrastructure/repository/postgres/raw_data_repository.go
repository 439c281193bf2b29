package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldbook/videostats-gateway/internal/domain/rawdata"
	qb "github.com/fieldbook/videostats-gateway/internal/platform/querybuilder"
	"github.com/jmoiron/sqlx"
)

const rawDataTable = "raw_data_payloads"

// The update is skipped when the live row already holds the same body.
const rawDataUpsertSuffix = `ON CONFLICT (source, entity_type, entity_key) WHERE deleted_at IS NULL
DO UPDATE SET
    payload = EXCLUDED.payload,
    payload_hash = EXCLUDED.payload_hash,
    fetched_at = EXCLUDED.fetched_at,
    ingested_at = NOW()
WHERE raw_data_payloads.payload_hash IS DISTINCT FROM EXCLUDED.payload_hash`

type RawDataRepository struct {
	db *sqlx.DB
}

func NewRawDataRepository(db *sqlx.DB) *RawDataRepository {
	return &RawDataRepository{db: db}
}

func (r *RawDataRepository) Upsert(ctx context.Context, item rawdata.Payload) error {
	query, args, err := buildRawDataUpsert(item)
	if err != nil {
		return fmt.Errorf("build upsert raw payload query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert raw payload entity=%s key=%s: %w", item.EntityType, item.EntityKey, err)
	}
	return nil
}

func (r *RawDataRepository) Get(ctx context.Context, entityType, entityKey string) (rawdata.Payload, error) {
	query, args, err := buildRawDataSelect(entityType, entityKey)
	if err != nil {
		return rawdata.Payload{}, fmt.Errorf("build select raw payload query: %w", err)
	}

	var row rawDataPayloadRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return rawdata.Payload{}, fmt.Errorf("%w: entity=%s key=%s", rawdata.ErrNotFound, entityType, entityKey)
		}
		return rawdata.Payload{}, fmt.Errorf("get raw payload entity=%s key=%s: %w", entityType, entityKey, err)
	}
	return row.toDomain(entityType, entityKey), nil
}

// Delete soft-deletes the live row so the history stays queryable.
func (r *RawDataRepository) Delete(ctx context.Context, entityType, entityKey string) error {
	query, args, err := qb.Update(rawDataTable).
		SetExpr("deleted_at", "NOW()").
		Where(
			qb.Eq("entity_type", entityType),
			qb.Eq("entity_key", entityKey),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete raw payload query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete raw payload entity=%s key=%s: %w", entityType, entityKey, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read deleted raw payload rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: entity=%s key=%s", rawdata.ErrNotFound, entityType, entityKey)
	}
	return nil
}

func buildRawDataUpsert(item rawdata.Payload) (string, []any, error) {
	return qb.InsertModel(rawDataTable, rawDataPayloadInsertModel{
		Source:      item.Source,
		EntityType:  item.EntityType,
		EntityKey:   item.EntityKey,
		Payload:     item.PayloadJSON,
		PayloadHash: item.PayloadHash,
		FetchedAt:   item.FetchedAt,
	}, rawDataUpsertSuffix)
}

func buildRawDataSelect(entityType, entityKey string) (string, []any, error) {
	return qb.Select("source", "payload::text AS payload", "payload_hash", "fetched_at").
		From(rawDataTable).
		Where(
			qb.Eq("entity_type", entityType),
			qb.Eq("entity_key", entityKey),
			qb.IsNull("deleted_at"),
		).
		OrderBy("fetched_at DESC").
		Limit(1).
		ToSQL()
}

type rawDataPayloadInsertModel struct {
	Source      string    `db:"source"`
	EntityType  string    `db:"entity_type"`
	EntityKey   string    `db:"entity_key"`
	Payload     string    `db:"payload"`
	PayloadHash string    `db:"payload_hash"`
	FetchedAt   time.Time `db:"fetched_at"`
}

type rawDataPayloadRow struct {
	Source      string    `db:"source"`
	Payload     string    `db:"payload"`
	PayloadHash string    `db:"payload_hash"`
	FetchedAt   time.Time `db:"fetched_at"`
}

func (r rawDataPayloadRow) toDomain(entityType, entityKey string) rawdata.Payload {
	return rawdata.Payload{
		Source:      r.Source,
		EntityType:  entityType,
		EntityKey:   entityKey,
		PayloadJSON: r.Payload,
		PayloadHash: r.PayloadHash,
		FetchedAt:   r.FetchedAt.UTC(),
	}
}
