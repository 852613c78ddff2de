package app

import (
	"math"
	"sort"

	"quiz-coordinator/internal/domain"
)

// leaderboard derives ranked standings from the ledger and roster. It is a
// pure function of both: calling it twice without intervening writes yields
// identical sequences.
//
// Ranking: correct answers descending, cumulative answer time ascending
// (rewards speed), then registration order as the stable final tie-break.
func leaderboard(reg *registry, led *ledger) []domain.LeaderboardEntry {
	participants := reg.participantsInOrder()

	type ranked struct {
		entry     domain.LeaderboardEntry
		totalTime float64
		joinOrder int
	}
	rows := make([]ranked, 0, len(participants))
	for _, p := range participants {
		correct, total := led.score(p.ID)
		secs := total.Seconds()
		rows = append(rows, ranked{
			entry: domain.LeaderboardEntry{
				Name:  p.Name,
				Score: correct,
				Time:  math.Round(secs*10) / 10,
			},
			totalTime: secs,
			joinOrder: p.JoinOrder,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.Score != rows[j].entry.Score {
			return rows[i].entry.Score > rows[j].entry.Score
		}
		if rows[i].totalTime != rows[j].totalTime {
			return rows[i].totalTime < rows[j].totalTime
		}
		return rows[i].joinOrder < rows[j].joinOrder
	})

	entries := make([]domain.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry
	}
	return entries
}
