// Package snapshot uploads encrypted JSON exports of the planner database
// to S3-compatible storage, on demand and on a daily schedule.
package snapshot

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"github.com/KenL-TW/travel-planner-pro/internal/model"
	"github.com/KenL-TW/travel-planner-pro/internal/store"
	"github.com/KenL-TW/travel-planner-pro/internal/transfer"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds snapshot manager configuration.
type Config struct {
	S3 S3Config
}

// State represents the snapshot manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current snapshot manager status.
type Status struct {
	State        State      `json:"state"`
	LastSnapshot *time.Time `json:"last_snapshot,omitempty"`
	Error        string     `json:"error,omitempty"`
	InProgress   bool       `json:"in_progress"`
}

// StatusCallback is called whenever the snapshot state changes.
type StatusCallback func(Status)

// Manager exports the trip graph, encrypts it, and ships it to S3.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	exporter  *transfer.Service
	snapStore *store.SnapshotStore
	settings  *store.SettingsStore
	client    s3Client
	logger    *slog.Logger

	// passphrase cached in memory only, for scheduled runs
	passphrase string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a snapshot manager. The manager stays disabled until
// S3 credentials are configured.
func NewManager(cfg Config, exporter *transfer.Service, ss *store.SnapshotStore, settings *store.SettingsStore, callback StatusCallback, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:       cfg,
		exporter:  exporter,
		snapStore: ss,
		settings:  settings,
		callback:  callback,
		logger:    logger,
		status:    Status{State: StateDisabled},
	}

	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the scheduled snapshot loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop gracefully stops the snapshot manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current snapshot status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// CachePassphrase keeps the passphrase in memory for scheduled runs.
func (m *Manager) CachePassphrase(passphrase string) {
	m.mu.Lock()
	m.passphrase = passphrase
	m.mu.Unlock()
}

// HasCachedPassphrase reports whether scheduled runs can proceed.
func (m *Manager) HasCachedPassphrase() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.passphrase != ""
}

func (m *Manager) checkSchedule(ctx context.Context) {
	now := time.Now().UTC()

	settings, err := m.settings.GetSnapshotSettings()
	if err != nil {
		return
	}

	if settings["snapshot_enabled"] != "true" {
		return
	}

	hour, _ := strconv.Atoi(settings["snapshot_hour"])
	if now.Hour() != hour || now.Minute() != 0 {
		return
	}

	m.mu.RLock()
	passphrase := m.passphrase
	m.mu.RUnlock()

	if passphrase == "" {
		m.logger.Warn("skipping scheduled snapshot: no cached passphrase")
		return
	}

	if _, err := m.RunNow(ctx, passphrase); err != nil {
		m.logger.Error("scheduled snapshot failed", "error", err)
	}

	retentionDays, _ := strconv.Atoi(settings["snapshot_retention_days"])
	if retentionDays <= 0 {
		retentionDays = 30
	}
	if err := m.Cleanup(ctx, retentionDays); err != nil {
		m.logger.Error("snapshot cleanup failed", "error", err)
	}
}

// RunNow exports, encrypts, and uploads a snapshot immediately.
func (m *Manager) RunNow(ctx context.Context, passphrase string) (int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return 0, fmt.Errorf("snapshots not configured: S3 credentials missing")
	}

	salt, err := m.loadOrCreateSalt()
	if err != nil {
		return 0, err
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("planner-%s.json.enc", timestamp)
	s3Key := "snapshots/" + filename

	record, err := m.snapStore.Create(filename, s3Key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("create snapshot record: %w", err)
	}

	fail := func(stage string, err error) (int64, error) {
		m.snapStore.UpdateStatus(record.ID, model.SnapshotStatusFailed, err.Error())
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("%s: %w", stage, err)
	}

	doc, err := m.exporter.ExportAll()
	if err != nil {
		return fail("export", err)
	}
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return fail("marshal export", err)
	}

	encrypted, err := Encrypt(plaintext, passphrase, salt)
	if err != nil {
		return fail("encrypt", err)
	}

	m.snapStore.UpdateStatus(record.ID, model.SnapshotStatusUploading, "")

	backoff := retry.WithMaxRetries(3, retry.NewExponential(2*time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(s3Key),
			Body:          bytes.NewReader(encrypted),
			ContentLength: aws.Int64(int64(len(encrypted))),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fail("upload to s3", err)
	}

	m.snapStore.UpdateCompleted(record.ID, int64(len(encrypted)))

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastSnapshot: &now})
	m.logger.Info("snapshot uploaded", "key", s3Key, "bytes", len(encrypted))

	return record.ID, nil
}

// Fetch downloads and decrypts a snapshot, returning the export document.
// Restoring it is a regular import.
func (m *Manager) Fetch(ctx context.Context, snapshotID int64, passphrase string) (*transfer.Document, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil, fmt.Errorf("snapshots not configured")
	}

	record, err := m.snapStore.GetByID(snapshotID)
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("snapshot %d not found", snapshotID)
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}

	plaintext, err := Decrypt(buf.Bytes(), passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt snapshot: %w", err)
	}

	var doc transfer.Document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &doc, nil
}

// Cleanup deletes completed snapshots older than the retention window, both
// from S3 and from the local record table.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	old, err := m.snapStore.ListOlderThan(cutoff)
	if err != nil {
		return fmt.Errorf("list old snapshots: %w", err)
	}

	for _, sn := range old {
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(sn.S3Key),
		})
		if err != nil {
			m.logger.Warn("delete old snapshot object", "key", sn.S3Key, "error", err)
			continue
		}
		if err := m.snapStore.Delete(sn.ID); err != nil {
			return fmt.Errorf("delete snapshot record: %w", err)
		}
	}
	return nil
}

func (m *Manager) loadOrCreateSalt() ([]byte, error) {
	saltHex, err := m.settings.Get("snapshot_passphrase_salt")
	if err != nil {
		return nil, fmt.Errorf("get salt: %w", err)
	}
	if saltHex != "" {
		salt, err := hex.DecodeString(saltHex)
		if err != nil {
			return nil, fmt.Errorf("decode salt: %w", err)
		}
		return salt, nil
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := m.settings.Set("snapshot_passphrase_salt", hex.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("store salt: %w", err)
	}
	return salt, nil
}
