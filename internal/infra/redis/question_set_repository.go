package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-coordinator/internal/domain"
)

// SetLoader fetches question sets from a backing store (e.g., Postgres).
type SetLoader interface {
	LoadSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// QuestionSetRepository caches question sets in Redis as whole JSON documents
// (SET quizset:{id}) and falls back to a loader on cache miss. The full
// document is cached, correct indexes included, because the coordinator, not
// the cache, decides what players get to see.
type QuestionSetRepository struct {
	client *redis.Client
	loader SetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionSetRepository(client *redis.Client, loader SetLoader, ttl time.Duration) *QuestionSetRepository {
	return &QuestionSetRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionSetRepository) GetSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	key := r.key(setID)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var set domain.QuestionSet
		if err := json.Unmarshal(raw, &set); err == nil {
			return set, nil
		}
		// Corrupt cache entry: fall through and reload.
		_ = r.client.Del(ctx, key).Err()
	}

	result, err, _ := r.sf.Do(setID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			var set domain.QuestionSet
			if err := json.Unmarshal(raw, &set); err == nil {
				return set, nil
			}
		}

		set, err := r.loader.LoadSet(ctx, setID)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		if raw, err := json.Marshal(set); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *QuestionSetRepository) key(setID string) string {
	return "quizset:" + setID
}

func (r *QuestionSetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
