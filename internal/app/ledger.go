package app

import (
	"time"

	"quiz-coordinator/internal/domain"
)

// ledger holds at most one answer record per (player, question index) pair
// for the current run. Later submissions for an answered pair are rejected,
// never overwritten. Not self-locking: all access is serialized by the
// coordinator.
type ledger struct {
	records map[string]map[int]*domain.AnswerRecord
}

func newLedger() *ledger {
	return &ledger{records: make(map[string]map[int]*domain.AnswerRecord)}
}

// reset clears all records; called when a new run starts so question indexes
// can be reused.
func (l *ledger) reset() {
	l.records = make(map[string]map[int]*domain.AnswerRecord)
}

// submit validates a submission against the active question and its deadline,
// computes correctness, and stores the record.
//
// A nil option is the client's own timeout abstain: it is accepted up to
// deadline+grace, since the client fires it exactly at the deadline and the
// message still has to cross the network. A chosen option must arrive by the
// deadline itself.
func (l *ledger) submit(sess *session, playerID string, questionIdx int, option *int, at time.Time, grace time.Duration) (*domain.AnswerRecord, error) {
	q, idx := sess.current()
	if q == nil {
		return nil, domain.ErrNoActiveQuiz
	}
	if questionIdx != idx {
		return nil, domain.ErrQuestionNotActive
	}
	if byQ := l.records[playerID]; byQ != nil {
		if _, dup := byQ[questionIdx]; dup {
			return nil, domain.ErrAlreadyAnswered
		}
	}

	cutoff := sess.deadline()
	if option == nil {
		cutoff = cutoff.Add(grace)
	}
	if at.After(cutoff) {
		return nil, domain.ErrExpired
	}

	elapsed := at.Sub(sess.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	rec := &domain.AnswerRecord{
		PlayerID:    playerID,
		QuestionIdx: questionIdx,
		Option:      option,
		Correct:     option != nil && *option == q.Correct,
		Elapsed:     elapsed,
		SubmittedAt: at,
	}
	if l.records[playerID] == nil {
		l.records[playerID] = make(map[int]*domain.AnswerRecord)
	}
	l.records[playerID][questionIdx] = rec
	return rec, nil
}

// answeredCount is the number of recorded submissions for one question.
func (l *ledger) answeredCount(questionIdx int) int {
	n := 0
	for _, byQ := range l.records {
		if _, ok := byQ[questionIdx]; ok {
			n++
		}
	}
	return n
}

// score sums a player's correct answers and cumulative answer time.
func (l *ledger) score(playerID string) (correct int, total time.Duration) {
	for _, rec := range l.records[playerID] {
		if rec.Correct {
			correct++
		}
		total += rec.Elapsed
	}
	return correct, total
}
