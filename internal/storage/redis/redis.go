// Package redis stores the usage document in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/screentime/internal/config"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Store implements storage.Backend using Redis
type Store struct {
	client *redis.Client
	keys   keys
	addr   string
	backup *redis.Script
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Determine address
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	// Create Redis client
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := &Store{
		client: client,
		keys:   newKeys(cfg.KeyPrefix),
		addr:   addr,
		backup: redis.NewScript(backupDocumentScript),
	}

	return store, nil
}

// Read returns the primary document.
func (s *Store) Read(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.keys.document()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return data, nil
}

// Backup copies the primary document to the backup key atomically.
func (s *Store) Backup(ctx context.Context) error {
	copied, err := s.backup.Run(ctx, s.client, []string{s.keys.document(), s.keys.backup()}).Int()
	if err != nil {
		return fmt.Errorf("failed to back up document: %w", err)
	}
	if copied == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Write replaces the primary document.
func (s *Store) Write(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.keys.document(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

// Info describes the keys holding the document.
func (s *Store) Info() storage.DataInfo {
	return storage.DataInfo{
		Backend:    "redis",
		DataPath:   fmt.Sprintf("redis://%s/%s", s.addr, s.keys.document()),
		BackupPath: fmt.Sprintf("redis://%s/%s", s.addr, s.keys.backup()),
	}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}
