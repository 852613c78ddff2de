package app

import (
	"fmt"
	"time"

	"quiz-coordinator/internal/domain"
)

// session is the authoritative quiz lifecycle: idle -> question_active ->
// ... -> ended. Exactly one exists per coordinator; an explicit new start
// resets a finished run. Not self-locking: all access is serialized by the
// coordinator.
type session struct {
	status    domain.SessionStatus
	questions []domain.Question
	total     int // declared question count; len(questions) may lag behind when fed one at a time
	index     int // -1 before the first question
	startedAt time.Time
	now       func() time.Time
}

func newSession(now func() time.Time) *session {
	return &session{
		status: domain.SessionIdle,
		index:  -1,
		now:    now,
	}
}

// start begins a new run. Questions are validated up front; an empty set is
// rejected with no transition. Allowed from idle or ended (explicit new-quiz
// action), never mid-run.
func (s *session) start(questions []domain.Question, total int) error {
	if s.status == domain.SessionQuestionActive {
		return fmt.Errorf("quiz already running: %w", domain.ErrQuestionNotActive)
	}
	if len(questions) == 0 {
		return domain.ErrEmptyQuestionSet
	}
	for i := range questions {
		if err := questions[i].Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	if total < len(questions) {
		total = len(questions)
	}
	s.questions = questions
	s.total = total
	s.index = 0
	s.status = domain.SessionQuestionActive
	s.startedAt = s.now()
	return nil
}

// advance moves to the next staged question, or ends the run when the staged
// sequence is exhausted.
func (s *session) advance() (*domain.Question, bool, error) {
	if s.status != domain.SessionQuestionActive {
		return nil, false, domain.ErrNoActiveQuiz
	}
	if s.index+1 >= len(s.questions) {
		s.end()
		return nil, true, nil
	}
	s.index++
	s.startedAt = s.now()
	return &s.questions[s.index], false, nil
}

// push appends the next question of an incrementally-fed run and advances to
// it. number is the 1-based position the admin claims; anything other than
// the next position is a state conflict.
func (s *session) push(q domain.Question, number int) error {
	if s.status != domain.SessionQuestionActive {
		return domain.ErrNoActiveQuiz
	}
	if number != s.index+2 {
		return fmt.Errorf("question %d out of order (at %d): %w", number, s.index+1, domain.ErrQuestionNotActive)
	}
	if err := q.Validate(); err != nil {
		return err
	}
	s.questions = append(s.questions, q)
	if s.total < len(s.questions) {
		s.total = len(s.questions)
	}
	s.index++
	s.startedAt = s.now()
	return nil
}

func (s *session) end() {
	s.status = domain.SessionEnded
}

func (s *session) active() bool {
	return s.status == domain.SessionQuestionActive
}

// current returns the active question and its zero-based index.
func (s *session) current() (*domain.Question, int) {
	if s.status != domain.SessionQuestionActive || s.index < 0 || s.index >= len(s.questions) {
		return nil, -1
	}
	return &s.questions[s.index], s.index
}

// deadline is the sole authority for answer acceptance; client countdowns are
// cosmetic mirrors of it.
func (s *session) deadline() time.Time {
	q, _ := s.current()
	if q == nil {
		return time.Time{}
	}
	return s.startedAt.Add(time.Duration(q.TimeLimit) * time.Second)
}
