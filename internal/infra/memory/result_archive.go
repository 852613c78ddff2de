package memory

import (
	"context"
	"sync"

	"quiz-coordinator/internal/domain"
)

// ResultArchive keeps the most recent finished-quiz leaderboards in memory.
// Lost on restart, which is fine: live state does not survive the process
// either.
type ResultArchive struct {
	mu      sync.Mutex
	limit   int
	results []domain.QuizResult
}

func NewResultArchive(limit int) *ResultArchive {
	if limit <= 0 {
		limit = 16
	}
	return &ResultArchive{limit: limit}
}

func (a *ResultArchive) SaveResult(_ context.Context, result domain.QuizResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, result)
	if len(a.results) > a.limit {
		a.results = a.results[len(a.results)-a.limit:]
	}
	return nil
}

// Recent returns archived results, newest last.
func (a *ResultArchive) Recent() []domain.QuizResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.QuizResult, len(a.results))
	copy(out, a.results)
	return out
}
