package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-coordinator/internal/domain"
)

const resultsKey = "quiz:results"

// ResultArchive stores finished-quiz leaderboards as a capped Redis list,
// newest first. Best-effort history, not durable persistence.
type ResultArchive struct {
	client *redis.Client
	limit  int64
	ttl    time.Duration
}

func NewResultArchive(client *redis.Client, limit int, ttl time.Duration) *ResultArchive {
	if limit <= 0 {
		limit = 16
	}
	return &ResultArchive{client: client, limit: int64(limit), ttl: ttl}
}

func (a *ResultArchive) SaveResult(ctx context.Context, result domain.QuizResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	pipe := a.client.Pipeline()
	pipe.LPush(ctx, resultsKey, raw)
	pipe.LTrim(ctx, resultsKey, 0, a.limit-1)
	if a.ttl > 0 {
		pipe.Expire(ctx, resultsKey, a.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n archived results, newest first.
func (a *ResultArchive) Recent(ctx context.Context, n int64) ([]domain.QuizResult, error) {
	raws, err := a.client.LRange(ctx, resultsKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	results := make([]domain.QuizResult, 0, len(raws))
	for _, raw := range raws {
		var result domain.QuizResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			continue
		}
		results = append(results, result)
	}
	return results, nil
}
