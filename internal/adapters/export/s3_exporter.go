package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/pgzip"
	"github.com/rs/zerolog/log"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/domain/providers"
)

// S3Exporter uploads gzip-compressed JSON snapshots to a bucket
type S3Exporter struct {
	client *s3.Client
	bucket string
}

var _ providers.SnapshotExporter = (*S3Exporter)(nil)

// NewS3Exporter creates an exporter for the given bucket
func NewS3Exporter(ctx context.Context, bucket, region string) (*S3Exporter, error) {
	if bucket == "" {
		return nil, fmt.Errorf("export bucket is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &S3Exporter{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

// Export writes the snapshot under key and returns its s3:// location.
// An empty key defaults to a timestamped name.
func (e *S3Exporter) Export(ctx context.Context, data *entities.CMSData, key string) (string, error) {
	if key == "" {
		key = DefaultKey(data)
	}

	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, data); err != nil {
		return "", err
	}
	size := buf.Len()

	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(e.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading snapshot to s3://%s/%s: %w", e.bucket, key, err)
	}

	log.Info().
		Str("bucket", e.bucket).
		Str("key", key).
		Int("bytes", size).
		Msg("Snapshot exported")

	return fmt.Sprintf("s3://%s/%s", e.bucket, key), nil
}

// DefaultKey names a snapshot after its build time
func DefaultKey(data *entities.CMSData) string {
	ts := time.Now().UTC()
	if data != nil && !data.LastUpdated.IsZero() {
		ts = data.LastUpdated.UTC()
	}
	return fmt.Sprintf("snapshots/cms-%s.json.gz", ts.Format("20060102T150405Z"))
}

// EncodeSnapshot writes data as gzip-compressed JSON
func EncodeSnapshot(w io.Writer, data *entities.CMSData) error {
	if data == nil {
		return fmt.Errorf("snapshot is nil")
	}
	zw := pgzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(data); err != nil {
		zw.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot
func DecodeSnapshot(r io.Reader) (*entities.CMSData, error) {
	zr, err := pgzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer zr.Close()

	var data entities.CMSData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &data, nil
}
