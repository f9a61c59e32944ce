package archive

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

type fakeBucket struct {
	exists  bool
	made    []string
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeBucket) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return f.exists, nil
}

func (f *fakeBucket) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket+"@"+opts.Region)
	f.exists = true
	return nil
}

func (f *fakeBucket) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	f.objects[bucket+"/"+key] = data
	f.types[bucket+"/"+key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func TestArchive(t *testing.T) {
	f := &fakeBucket{}
	a := New(f, "history", "us-east-1")
	ctx := context.Background()

	if err := a.EnsureBucket(ctx); err != nil {
		t.Fatal(err)
	}
	if err := a.EnsureBucket(ctx); err != nil {
		t.Fatal(err)
	}
	if len(f.made) != 1 || f.made[0] != "history@us-east-1" {
		t.Errorf("buckets made = %v", f.made)
	}

	at := time.Date(2024, 1, 1, 12, 30, 0, 0, time.FixedZone("PST", -8*3600))
	positions := []core.DevicePosition{{DeviceID: "D1", Longitude: 1, Latitude: 2, SampleTime: at}}
	if err := a.Archive(ctx, "D1", at, positions); err != nil {
		t.Fatal(err)
	}

	key := "history/D1/2024-01-01T20:30:00Z.json"
	data, ok := f.objects[key]
	if !ok {
		t.Fatalf("objects = %v", f.objects)
	}
	if f.types[key] != "application/json" {
		t.Errorf("content type = %q", f.types[key])
	}
	var got Batch
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.DeviceID != "D1" || len(got.Positions) != 1 || got.Positions[0].Latitude != 2 {
		t.Errorf("batch = %+v", got)
	}
}
