// Package persist stores room document content in a NATS JetStream KeyValue
// bucket.
//
// Each room owns two keys: one for the content itself and a tombstone that
// marks the room as deleted. A save against a tombstoned room fails with
// types.ErrRoomNotFound, which is the signal the save coordinator uses to
// stop autosaving permanently.
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/qiming97/iinterview/internal/kvutil"
	"github.com/qiming97/iinterview/types"
)

const (
	// DefaultBucket is the KV bucket name for room content.
	DefaultBucket = "room_content"

	// DefaultMaxContentBytes caps stored document size. Saves above the cap
	// fail with types.ErrContentTooLarge.
	DefaultMaxContentBytes = 1 << 20 // 1 MiB
)

// Config is the content store configuration.
type Config struct {
	// Bucket is the KV bucket name. Default "room_content".
	Bucket string

	// MaxContentBytes caps document size. Default 1 MiB.
	MaxContentBytes int

	// TTL is the bucket-level entry TTL. Zero means entries never expire.
	TTL time.Duration
}

func (c *Config) setDefaults() {
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.MaxContentBytes <= 0 {
		c.MaxContentBytes = DefaultMaxContentBytes
	}
}

// Store is a JetStream KV implementation of types.ContentStore.
type Store struct {
	kv  jetstream.KeyValue
	cfg Config
}

// Compile-time assertion that Store implements ContentStore.
var _ types.ContentStore = (*Store)(nil)

// NewStore creates or opens the content bucket and returns a store backed by
// it.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - cfg: Store configuration (zero value gets defaults)
//
// Returns:
//   - *Store: The content store
//   - error: Any error creating or opening the bucket
func NewStore(ctx context.Context, js jetstream.JetStream, cfg Config) (*Store, error) {
	cfg.setDefaults()

	kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "Collaborative room document content",
		TTL:         cfg.TTL,
	}, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to open content bucket: %w", err)
	}

	return &Store{kv: kv, cfg: cfg}, nil
}

// Save writes the room's content. Returns types.ErrContentTooLarge when the
// content exceeds the configured cap and types.ErrRoomNotFound when the room
// has been deleted.
func (s *Store) Save(ctx context.Context, roomID string, content string) error {
	if len(content) > s.cfg.MaxContentBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d",
			types.ErrContentTooLarge, len(content), s.cfg.MaxContentBytes)
	}

	gone, err := s.roomGone(ctx, roomID)
	if err != nil {
		return err
	}
	if gone {
		return fmt.Errorf("%w: %s", types.ErrRoomNotFound, roomID)
	}

	if _, err := s.kv.Put(ctx, contentKey(roomID), []byte(content)); err != nil {
		return fmt.Errorf("failed to save content for room %s: %w", roomID, err)
	}

	return nil
}

// Load reads the room's content. Returns types.ErrRoomNotFound when the room
// has no content or has been deleted.
func (s *Store) Load(ctx context.Context, roomID string) (string, error) {
	gone, err := s.roomGone(ctx, roomID)
	if err != nil {
		return "", err
	}
	if gone {
		return "", fmt.Errorf("%w: %s", types.ErrRoomNotFound, roomID)
	}

	entry, err := s.kv.Get(ctx, contentKey(roomID))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: %s", types.ErrRoomNotFound, roomID)
		}
		return "", fmt.Errorf("failed to load content for room %s: %w", roomID, err)
	}

	return string(entry.Value()), nil
}

// Delete marks the room as gone and purges its content. Subsequent saves and
// loads fail with types.ErrRoomNotFound.
func (s *Store) Delete(ctx context.Context, roomID string) error {
	if _, err := s.kv.Put(ctx, tombstoneKey(roomID), []byte{1}); err != nil {
		return fmt.Errorf("failed to tombstone room %s: %w", roomID, err)
	}

	if err := s.kv.Purge(ctx, contentKey(roomID)); err != nil {
		return fmt.Errorf("failed to purge content for room %s: %w", roomID, err)
	}

	return nil
}

func (s *Store) roomGone(ctx context.Context, roomID string) (bool, error) {
	_, err := s.kv.Get(ctx, tombstoneKey(roomID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return false, nil
	}

	return false, fmt.Errorf("failed to check room %s: %w", roomID, err)
}

func contentKey(roomID string) string {
	return "content." + roomID
}

func tombstoneKey(roomID string) string {
	return "deleted." + roomID
}
