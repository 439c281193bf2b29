package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/fieldbook/videostats-gateway/internal/domain/rawdata"
)

const (
	metaSource    = "source"
	metaHash      = "payload-hash"
	metaFetchedAt = "fetched-at"
)

type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// RawDataRepository keeps one JSON object per entity. Payload metadata
// travels as object user metadata.
type RawDataRepository struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewRawDataRepository(ctx context.Context, cfg Config) (*RawDataRepository, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle || cfg.Endpoint != ""
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &RawDataRepository{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (r *RawDataRepository) Upsert(ctx context.Context, item rawdata.Payload) error {
	key := r.objectKey(item.EntityType, item.EntityKey)
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(item.PayloadJSON)),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			metaSource:    item.Source,
			metaHash:      item.PayloadHash,
			metaFetchedAt: item.FetchedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("put raw payload object=%s: %w", key, err)
	}
	return nil
}

func (r *RawDataRepository) Get(ctx context.Context, entityType, entityKey string) (rawdata.Payload, error) {
	key := r.objectKey(entityType, entityKey)
	resp, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return rawdata.Payload{}, fmt.Errorf("%w: object=%s", rawdata.ErrNotFound, key)
		}
		return rawdata.Payload{}, fmt.Errorf("get raw payload object=%s: %w", key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return rawdata.Payload{}, fmt.Errorf("read raw payload object=%s: %w", key, err)
	}

	item := rawdata.Payload{
		Source:      resp.Metadata[metaSource],
		EntityType:  entityType,
		EntityKey:   entityKey,
		PayloadJSON: string(body),
		PayloadHash: resp.Metadata[metaHash],
	}
	if item.PayloadHash == "" {
		item.PayloadHash = rawdata.Hash(body)
	}
	if fetchedAt, err := time.Parse(time.RFC3339Nano, resp.Metadata[metaFetchedAt]); err == nil {
		item.FetchedAt = fetchedAt
	} else if resp.LastModified != nil {
		item.FetchedAt = resp.LastModified.UTC()
	}
	return item, nil
}

// Delete removes the entity's object. S3 deletes are idempotent, so a missing
// object is not reported.
func (r *RawDataRepository) Delete(ctx context.Context, entityType, entityKey string) error {
	key := r.objectKey(entityType, entityKey)
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete raw payload object=%s: %w", key, err)
	}
	return nil
}

func (r *RawDataRepository) objectKey(entityType, entityKey string) string {
	return path.Join(r.prefix, rawdata.StorageKey(entityType, entityKey)+".json")
}
