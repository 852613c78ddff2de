package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-coordinator/internal/domain"
)

func TestResultArchiveCapsList(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	archive := NewResultArchive(newClient(mr), 2, time.Hour)

	for i := 0; i < 3; i++ {
		err := archive.SaveResult(context.Background(), domain.QuizResult{
			EndedAt: time.Date(2025, 6, 1, 12, i, 0, 0, time.UTC),
			Leaders: []domain.LeaderboardEntry{{Name: "Alice", Score: i}},
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	results, err := archive.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected capped list of 2, got %d", len(results))
	}
	if results[0].Leaders[0].Score != 2 {
		t.Fatalf("expected newest result first, got %+v", results)
	}
	if mr.TTL("quiz:results") <= 0 {
		t.Fatalf("expected TTL on results key")
	}
}
