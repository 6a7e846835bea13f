package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	rterrors "github.com/otherjamesbrown/roundtable/pkg/errors"
	"github.com/otherjamesbrown/roundtable/pkg/logging"
	"github.com/otherjamesbrown/roundtable/pkg/session"
)

// DefaultKeyPrefix prefixes every persisted session key.
const DefaultKeyPrefix = "roundtable:session:"

// latestKeySuffix names the pointer to the most recently saved session, so
// startup recovery can find it without scanning.
const latestKeySuffix = "latest"

// Store persists session snapshots in Redis, one session per key.
type Store struct {
	client *redis.Client
	prefix string
	logger logging.Logger
}

// StoreConfig holds the Redis connection configuration.
type StoreConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewStore creates a snapshot store on an existing Redis client.
func NewStore(client *redis.Client, prefix string, logger logging.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
		logger: logger.With(logging.F("component", "snapshot_store")),
	}
}

// NewStoreFromConfig creates a store with a new Redis connection.
func NewStoreFromConfig(cfg StoreConfig, logger logging.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: connecting to redis: %v", rterrors.ErrUnavailable, err)
	}
	return NewStore(client, cfg.Prefix, logger), nil
}

// Save writes the snapshot under its session key and updates the latest
// pointer.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	key := s.prefix + snap.SessionID
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, payload, 0)
	pipe.Set(ctx, s.prefix+latestKeySuffix, snap.SessionID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: writing snapshot: %v", rterrors.ErrUnavailable, err)
	}

	s.logger.Debug("snapshot saved",
		logging.F("session_id", snap.SessionID),
		logging.F("entries", len(snap.LiveTranscript)),
		logging.F("insights", len(snap.AIInsights)))
	return nil
}

// Load reads one session's snapshot.
func (s *Store) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	raw, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: session %s", rterrors.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading snapshot: %v", rterrors.ErrUnavailable, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// LoadLatest reads the most recently saved session, for startup recovery.
func (s *Store) LoadLatest(ctx context.Context) (*Snapshot, error) {
	sessionID, err := s.client.Get(ctx, s.prefix+latestKeySuffix).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: no persisted session", rterrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading latest pointer: %v", rterrors.ErrUnavailable, err)
	}
	return s.Load(ctx, sessionID)
}

// Delete removes one session's snapshot.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.prefix+sessionID).Err(); err != nil {
		return fmt.Errorf("%w: deleting snapshot: %v", rterrors.ErrUnavailable, err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Persister adapts the codec and store to the session runtime's
// fire-and-forget persistence hook.
type Persister struct {
	store *Store
}

// NewPersister creates a persister writing through the given store.
func NewPersister(store *Store) *Persister {
	return &Persister{store: store}
}

// Persist flattens and saves the session.
func (p *Persister) Persist(ctx context.Context, sess *session.Context) error {
	return p.store.Save(ctx, ToSnapshot(sess))
}

var _ session.Persister = (*Persister)(nil)
