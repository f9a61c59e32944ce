// Package archive exports fetched position history to S3 compatible storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
	"github.com/autopeer-io/geotrack/pkg/log"
	"github.com/autopeer-io/geotrack/pkg/options"
)

// ObjectPutter is the subset of the minio client used by the archive.
type ObjectPutter interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Batch is the archived document.
type Batch struct {
	DeviceID  string                `json:"deviceId"`
	FetchedAt time.Time             `json:"fetchedAt"`
	Positions []core.DevicePosition `json:"positions"`
}

// Archive writes each batch as one JSON object keyed {deviceId}/{RFC3339 time}.json.
type Archive struct {
	client ObjectPutter
	bucket string
	region string
}

var _ core.BatchArchiver = (*Archive)(nil)

// NewMinIO creates an Archive backed by a minio client built from opts.
func NewMinIO(opts *options.S3Options) (*Archive, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return New(client, opts.BucketName, opts.Region), nil
}

// New returns an Archive writing to bucket through client.
func New(client ObjectPutter, bucket, region string) *Archive {
	return &Archive{client: client, bucket: bucket, region: region}
}

// EnsureBucket creates the bucket if it does not exist.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating...", "bucket", a.bucket)
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// ObjectKey returns the key a batch fetched at is stored under.
func ObjectKey(deviceID string, at time.Time) string {
	return fmt.Sprintf("%s/%s.json", deviceID, at.UTC().Format(time.RFC3339))
}

// Archive stores positions as one JSON object.
func (a *Archive) Archive(ctx context.Context, deviceID string, at time.Time, positions []core.DevicePosition) error {
	data, err := json.Marshal(Batch{DeviceID: deviceID, FetchedAt: at.UTC(), Positions: positions})
	if err != nil {
		return err
	}

	key := ObjectKey(deviceID, at)
	if _, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	}); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	log.Debug("Archived history batch", "bucket", a.bucket, "key", key, "positions", len(positions))
	return nil
}
