package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"race-quiz-service/internal/app"
	"race-quiz-service/internal/domain"
)

// QuizCache is a read-through Redis cache in front of another app.QuizStore.
// Quiz documents are stored as JSON under quiz:{id} with a jittered TTL.
// Writes go straight to the backing store and invalidate the cached entry,
// so disclosure is never served stale. Latest and List stay uncached: they
// drive ordering decisions and must reflect the store.
type QuizCache struct {
	client *redis.Client
	inner  app.QuizStore
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizCache(client *redis.Client, inner app.QuizStore, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) Put(ctx context.Context, quiz domain.Quiz) error {
	if err := c.inner.Put(ctx, quiz); err != nil {
		return err
	}
	_ = c.client.Del(ctx, c.key(quiz.ID)).Err()
	return nil
}

func (c *QuizCache) Update(ctx context.Context, quiz domain.Quiz) error {
	if err := c.inner.Update(ctx, quiz); err != nil {
		return err
	}
	_ = c.client.Del(ctx, c.key(quiz.ID)).Err()
	return nil
}

func (c *QuizCache) Get(ctx context.Context, id string) (domain.Quiz, error) {
	key := c.key(id)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err == nil {
			return quiz, nil
		}
		// Undecodable entries are dropped and refilled below.
		_ = c.client.Del(ctx, key).Err()
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache meanwhile.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var quiz domain.Quiz
			if err := json.Unmarshal(raw, &quiz); err == nil {
				return quiz, nil
			}
		}

		quiz, err := c.inner.Get(ctx, id)
		if err != nil {
			return domain.Quiz{}, err
		}

		raw, err := json.Marshal(quiz)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("marshal quiz: %w", err)
		}
		_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) Latest(ctx context.Context) (domain.Quiz, error) {
	return c.inner.Latest(ctx)
}

func (c *QuizCache) List(ctx context.Context) ([]domain.Quiz, error) {
	return c.inner.List(ctx)
}

func (c *QuizCache) key(id string) string {
	return "quiz:" + id
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% extra spreads expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
