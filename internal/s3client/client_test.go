package s3client

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"s3drain/config"
)

// Integration tests for the S3 client
// These tests require a real S3 connection and are skipped by default
// To run these tests, set the environment variable S3_INTEGRATION_TEST=true

func integrationConfig(t *testing.T) *config.Config {
	t.Helper()
	if os.Getenv("S3_INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test; set S3_INTEGRATION_TEST=true to run")
	}
	return &config.Config{
		ApiURL:    os.Getenv("TEST_API_URL"),
		AccessKey: os.Getenv("TEST_ACCESS_KEY"),
		SecretKey: os.Getenv("TEST_SECRET_KEY"),
		Region:    os.Getenv("TEST_REGION"),
	}
}

func TestListBuckets(t *testing.T) {
	cfg := integrationConfig(t)

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	buckets, err := client.ListBuckets(ctx)
	if err != nil {
		t.Fatalf("ListBuckets() error = %v", err)
	}

	t.Logf("Found %d bucket(s)", len(buckets))
}

func TestListObjectsAndGetRange(t *testing.T) {
	cfg := integrationConfig(t)
	bucket := os.Getenv("TEST_BUCKET_NAME")
	if bucket == "" {
		t.Skip("TEST_BUCKET_NAME not set")
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	objects, err := client.ListObjects(ctx, bucket)
	if err != nil {
		t.Fatalf("ListObjects() error = %v", err)
	}
	if len(objects) == 0 {
		t.Skip("Bucket is empty, nothing to fetch")
	}

	var target *struct {
		key  string
		size int64
	}
	for _, obj := range objects {
		if !obj.IsDirMarker() && obj.Size > 1 {
			target = &struct {
				key  string
				size int64
			}{obj.Key, obj.Size}
			break
		}
	}
	if target == nil {
		t.Skip("No non-empty file objects in bucket")
	}

	// Fetch the second half only; the byte count must match the range.
	start := target.size / 2
	body, err := client.GetObjectRange(ctx, bucket, target.key, start, target.size-1)
	if err != nil {
		t.Fatalf("GetObjectRange() error = %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("Failed to read range body: %v", err)
	}

	want := target.size - start
	if int64(len(data)) != want {
		t.Errorf("GetObjectRange() returned %d bytes, want %d", len(data), want)
	}
}
