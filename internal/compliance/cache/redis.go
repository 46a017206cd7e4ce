package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sojourn/internal/compliance"
	id "sojourn/pkg/domain"
)

const (
	// One hash per person; fields are ISO dates, values are JSON statuses.
	statusKeyPrefix = "sojourn:status:"
	// One counter per person, bumped by every invalidation.
	generationKeyPrefix = "sojourn:status:gen:"
	generationTTL       = 24 * time.Hour
)

// Redis is a status cache shared by every instance. Invalidation bumps the
// person's generation and deletes the hash in one transaction, so it cannot
// leave some dates behind.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed cache whose per-person hash lives for ttl
// after its last write.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func statusKey(personID id.PersonID) string {
	return statusKeyPrefix + personID.String()
}

func generationKey(personID id.PersonID) string {
	return generationKeyPrefix + personID.String()
}

func (c *Redis) Get(ctx context.Context, personID id.PersonID, ref id.Date) (compliance.Status, bool, error) {
	raw, err := c.client.HGet(ctx, statusKey(personID), ref.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return compliance.Status{}, false, nil
	}
	if err != nil {
		return compliance.Status{}, false, fmt.Errorf("read cached status: %w", err)
	}
	var status compliance.Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return compliance.Status{}, false, fmt.Errorf("decode cached status: %w", err)
	}
	return status, true, nil
}

// Generation returns the person's current generation; a missing counter is 0.
func (c *Redis) Generation(ctx context.Context, personID id.PersonID) (uint64, error) {
	return readGeneration(ctx, c.client, personID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd getter, personID id.PersonID) (uint64, error) {
	gen, err := cmd.Get(ctx, generationKey(personID)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache generation: %w", err)
	}
	return gen, nil
}

// Set writes the status and refreshes the hash TTL only if the person's
// generation still equals generation. The generation key is WATCHed, so an
// Invalidate landing between the check and the write aborts the MULTI.
func (c *Redis) Set(ctx context.Context, personID id.PersonID, generation uint64, status compliance.Status) (bool, error) {
	raw, err := json.Marshal(status)
	if err != nil {
		return false, fmt.Errorf("encode status: %w", err)
	}
	key := statusKey(personID)
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, personID)
		if err != nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, status.ReferenceDate.String(), raw)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		stored = true
		return nil
	}, generationKey(personID))
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("write cached status: %w", err)
	}
	return stored, nil
}

func (c *Redis) Invalidate(ctx context.Context, personID id.PersonID) error {
	genKey := generationKey(personID)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, generationTTL)
	pipe.Del(ctx, statusKey(personID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate cached statuses: %w", err)
	}
	return nil
}
