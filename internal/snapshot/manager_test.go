package snapshot

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/KenL-TW/travel-planner-pro/internal/database"
	"github.com/KenL-TW/travel-planner-pro/internal/model"
	"github.com/KenL-TW/travel-planner-pro/internal/store"
	"github.com/KenL-TW/travel-planner-pro/internal/transfer"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[*input.Key] = body
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	body, ok := f.objects[*input.Key]
	f.mu.Unlock()
	if !ok {
		return nil, io.EOF
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, *input.Key)
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func setupManager(t *testing.T) (*Manager, *fakeS3, *store.SnapshotStore, *transfer.Service) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := transfer.NewService(db, logger)
	snapStore := store.NewSnapshotStore(db)
	settings := store.NewSettingsStore(db)

	cfg := Config{S3: S3Config{Bucket: "test-bucket", AccessKey: "k", SecretKey: "s", Region: "auto"}}
	m := NewManager(cfg, svc, snapStore, settings, nil, logger)

	fake := newFakeS3()
	m.client = fake

	// Seed one trip so exports have content.
	if _, err := store.NewTripStore(db).Create("Snapshot trip", "Iceland", "", "", ""); err != nil {
		t.Fatalf("seed trip: %v", err)
	}

	return m, fake, snapStore, svc
}

func TestRunNowUploadsAndRecords(t *testing.T) {
	m, fake, snapStore, _ := setupManager(t)

	id, err := m.RunNow(context.Background(), "test passphrase")
	if err != nil {
		t.Fatalf("run now: %v", err)
	}

	record, err := snapStore.GetByID(id)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != model.SnapshotStatusCompleted {
		t.Errorf("status = %q, want completed", record.Status)
	}
	if record.SizeBytes == 0 {
		t.Error("size should be recorded")
	}

	fake.mu.Lock()
	stored, ok := fake.objects[record.S3Key]
	fake.mu.Unlock()
	if !ok {
		t.Fatalf("object %q not uploaded", record.S3Key)
	}
	if int64(len(stored)) != record.SizeBytes {
		t.Errorf("uploaded %d bytes, record says %d", len(stored), record.SizeBytes)
	}

	status := m.Status()
	if status.State != StateIdle || status.LastSnapshot == nil {
		t.Errorf("status = %+v, want idle with last snapshot set", status)
	}
}

func TestFetchRoundTrip(t *testing.T) {
	m, _, _, _ := setupManager(t)

	id, err := m.RunNow(context.Background(), "test passphrase")
	if err != nil {
		t.Fatalf("run now: %v", err)
	}

	doc, err := m.Fetch(context.Background(), id, "test passphrase")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(doc.Trips) != 1 || doc.Trips[0].Title != "Snapshot trip" {
		t.Errorf("fetched document trips = %v", doc.Trips)
	}

	if _, err := m.Fetch(context.Background(), id, "wrong passphrase"); err == nil {
		t.Fatal("fetch with wrong passphrase should fail")
	}
}

func TestCleanupDeletesOldSnapshots(t *testing.T) {
	m, fake, snapStore, _ := setupManager(t)

	id, err := m.RunNow(context.Background(), "test passphrase")
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	record, _ := snapStore.GetByID(id)

	// Retention of zero days means everything already uploaded is stale.
	if err := m.Cleanup(context.Background(), 0); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if got, _ := snapStore.GetByID(id); got != nil {
		t.Error("record should be deleted by cleanup")
	}
	fake.mu.Lock()
	_, ok := fake.objects[record.S3Key]
	fake.mu.Unlock()
	if ok {
		t.Error("object should be deleted by cleanup")
	}
}

func TestRunNowWithoutCredentials(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	m := NewManager(Config{}, transfer.NewService(db, logger), store.NewSnapshotStore(db), store.NewSettingsStore(db), nil, logger)
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want disabled", m.Status().State)
	}
	if _, err := m.RunNow(context.Background(), "p"); err == nil {
		t.Fatal("run without credentials should fail")
	}
}

func TestPassphraseSaltPersists(t *testing.T) {
	m, _, _, _ := setupManager(t)

	s1, err := m.loadOrCreateSalt()
	if err != nil {
		t.Fatalf("load salt: %v", err)
	}
	s2, err := m.loadOrCreateSalt()
	if err != nil {
		t.Fatalf("reload salt: %v", err)
	}
	if !bytes.Equal(s1, s2) {
		t.Error("salt should be stable across runs")
	}
}
