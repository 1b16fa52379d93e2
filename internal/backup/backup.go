// Package backup snapshots the SQLite database and uploads it to
// S3-compatible storage on a nightly schedule.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds backup configuration; empty credentials disable backups.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	DBPath    string
	Hour      int // UTC hour of the nightly run
}

// Manager runs the scheduled snapshot loop.
type Manager struct {
	mu         sync.RWMutex
	cfg        Config
	db         *sql.DB
	client     s3Client
	logger     *slog.Logger
	lastBackup *time.Time
	retryBase  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:       cfg,
		db:        db,
		logger:    logger.With("component", "backup"),
		retryBase: 2 * time.Second,
	}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		m.client = newS3Client(cfg)
	}
	return m
}

func newS3Client(cfg Config) *s3.Client {
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

// Enabled reports whether S3 credentials were configured.
func (m *Manager) Enabled() bool {
	return m.client != nil
}

// LastBackup returns when the most recent successful upload finished.
func (m *Manager) LastBackup() *time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastBackup
}

// Start begins the nightly backup loop. No-op when disabled.
func (m *Manager) Start(ctx context.Context) {
	if !m.Enabled() {
		return
	}

	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now().UTC()
				if now.Hour() != m.cfg.Hour || now.Minute() != 0 {
					continue
				}
				if err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
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

// RunNow snapshots the database with VACUUM INTO and uploads the snapshot,
// retrying transient upload failures with backoff.
func (m *Manager) RunNow(ctx context.Context) error {
	if !m.Enabled() {
		return fmt.Errorf("backup not configured: S3 credentials missing")
	}

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	key := fmt.Sprintf("snapshots/chorepoint-%s.db", timestamp)

	snapshot := filepath.Join(os.TempDir(), fmt.Sprintf("chorepoint-snapshot-%s.db", timestamp))
	defer os.Remove(snapshot)

	// VACUUM INTO produces a consistent single-file copy regardless of WAL
	// state.
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return fmt.Errorf("snapshot database: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(m.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		f, err := os.Open(snapshot)
		if err != nil {
			return err
		}
		defer f.Close()

		stat, err := f.Stat()
		if err != nil {
			return err
		}

		_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(m.cfg.Bucket),
			Key:           aws.String(key),
			Body:          f,
			ContentLength: aws.Int64(stat.Size()),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	now := time.Now().UTC()
	m.mu.Lock()
	m.lastBackup = &now
	m.mu.Unlock()

	m.logger.Info("backup uploaded", "key", key)
	return nil
}
