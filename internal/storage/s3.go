package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/UnknownOlympus/forager/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SnapshotStore archives the outcome of harvesting runs.
type SnapshotStore interface {
	SaveRun(ctx context.Context, summary models.RunSummary) (string, error)
}

// ObjectStore is the part of *minio.Client the snapshot store needs.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(
		ctx context.Context,
		bucketName, objectName string,
		reader io.Reader,
		objectSize int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
}

// S3Config holds the connection settings of an S3-compatible storage.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3SnapshotStore writes run summaries as JSON objects into a bucket.
type S3SnapshotStore struct {
	client ObjectStore
	bucket string
	log    *slog.Logger
}

// NewS3SnapshotStore connects to the storage and creates the bucket when it does not exist yet.
func NewS3SnapshotStore(ctx context.Context, cfg S3Config, log *slog.Logger) (*S3SnapshotStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := NewS3SnapshotStoreWithClient(client, cfg.Bucket, log)
	if err = store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "Snapshot storage initialized", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return store, nil
}

// NewS3SnapshotStoreWithClient allows injecting a custom object store client.
func NewS3SnapshotStoreWithClient(client ObjectStore, bucket string, log *slog.Logger) *S3SnapshotStore {
	return &S3SnapshotStore{client: client, bucket: bucket, log: log}
}

func (s *S3SnapshotStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// SaveRun stores the summary under runs/YYYY/MM/DD/<start time>.json and returns the object key.
func (s *S3SnapshotStore) SaveRun(ctx context.Context, summary models.RunSummary) (string, error) {
	started := summary.StartedAt.UTC()
	objectKey := fmt.Sprintf("runs/%s/%s.json", started.Format("2006/01/02"), started.Format("20060102T150405Z"))

	data, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run summary: %w", err)
	}

	_, err = s.client.PutObject(
		ctx,
		s.bucket,
		objectKey,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return "", fmt.Errorf("failed to store run snapshot: %w", err)
	}

	s.log.InfoContext(ctx, "Stored run snapshot", "bucket", s.bucket, "key", objectKey)
	return objectKey, nil
}

// NopSnapshotStore is used when no storage is configured.
type NopSnapshotStore struct{}

func (NopSnapshotStore) SaveRun(context.Context, models.RunSummary) (string, error) { return "", nil }
