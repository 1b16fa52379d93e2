package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rburns/chorepoint/internal/database"
)

type fakeS3 struct {
	keys     []string
	sizes    []int64
	failures int
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("transient upload failure")
	}
	f.keys = append(f.keys, *input.Key)
	n, err := io.Copy(io.Discard, input.Body)
	if err != nil {
		return nil, err
	}
	f.sizes = append(f.sizes, n)
	return &s3.PutObjectOutput{}, nil
}

func newTestManager(t *testing.T, client s3Client) *Manager {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{Bucket: "test-bucket", AccessKey: "k", SecretKey: "s"}, db, slog.Default())
	m.client = client
	m.retryBase = time.Millisecond
	return m
}

func TestRunNowUploadsSnapshot(t *testing.T) {
	fake := &fakeS3{}
	m := newTestManager(t, fake)

	if err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run backup: %v", err)
	}

	if len(fake.keys) != 1 {
		t.Fatalf("uploaded %d objects, want 1", len(fake.keys))
	}
	if !strings.HasPrefix(fake.keys[0], "snapshots/chorepoint-") {
		t.Errorf("key = %q", fake.keys[0])
	}
	if fake.sizes[0] == 0 {
		t.Error("uploaded empty snapshot")
	}
	if m.LastBackup() == nil {
		t.Error("last backup time not recorded")
	}
}

func TestRunNowRetriesTransientFailures(t *testing.T) {
	fake := &fakeS3{failures: 2}
	m := newTestManager(t, fake)

	if err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("expected retries to succeed: %v", err)
	}
	if len(fake.keys) != 1 {
		t.Errorf("uploaded %d objects, want 1", len(fake.keys))
	}
}

func TestRunNowGivesUpAfterRetries(t *testing.T) {
	fake := &fakeS3{failures: 10}
	m := newTestManager(t, fake)

	if err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected persistent failures to surface")
	}
	if m.LastBackup() != nil {
		t.Error("failed backup must not record a last backup time")
	}
}

func TestDisabledWithoutCredentials(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{}, db, slog.Default())
	if m.Enabled() {
		t.Error("expected backups disabled without credentials")
	}
	if err := m.RunNow(context.Background()); err == nil {
		t.Error("expected error running disabled backup")
	}
}
