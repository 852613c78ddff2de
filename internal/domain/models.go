package domain

import "time"

// Role classifies a registered connection.
type Role string

const (
	RoleAdmin  Role = "admin"
	RolePlayer Role = "player"
)

// SessionStatus is the lifecycle state of the single quiz session.
type SessionStatus string

const (
	SessionIdle           SessionStatus = "idle"
	SessionQuestionActive SessionStatus = "question_active"
	SessionEnded          SessionStatus = "ended"
)

// Question is one multiple-choice question. Correct is a zero-based index
// into Options; TimeLimit is clamped to [MinTimeLimit, MaxTimeLimit] at
// validation time.
type Question struct {
	Prompt    string   `json:"question"`
	Options   []string `json:"options"`
	Correct   int      `json:"correct"`
	TimeLimit int      `json:"time"`
}

const (
	OptionCount  = 4
	MinTimeLimit = 10
	MaxTimeLimit = 120
)

// Validate checks the question invariants and clamps the time limit.
func (q *Question) Validate() error {
	if q.Prompt == "" {
		return ErrInvalidQuestion
	}
	if len(q.Options) != OptionCount {
		return ErrInvalidQuestion
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return ErrInvalidQuestion
	}
	if q.TimeLimit < MinTimeLimit {
		q.TimeLimit = MinTimeLimit
	}
	if q.TimeLimit > MaxTimeLimit {
		q.TimeLimit = MaxTimeLimit
	}
	return nil
}

// QuestionSet is a stored, loadable collection of questions (e.g. one
// pre-generated by the AI collaborator and saved before the quiz).
type QuestionSet struct {
	ID        string     `json:"id"`
	Topic     string     `json:"topic,omitempty"`
	Questions []Question `json:"questions"`
}

// Participant is a player identity in the roster. ID is connection-assigned
// and stable across reconnects; Name is a non-unique label.
type Participant struct {
	ID        string
	Name      string
	Connected bool
	JoinOrder int
	JoinedAt  time.Time
}

// AnswerRecord is the single submission for a (player, question index) pair.
// Option is nil when the player abstained (client-side timeout).
type AnswerRecord struct {
	PlayerID    string
	QuestionIdx int
	Option      *int
	Correct     bool
	Elapsed     time.Duration
	SubmittedAt time.Time
}

// LeaderboardEntry is one ranked row: correct count plus cumulative answer
// time in seconds, used by clients as-is.
type LeaderboardEntry struct {
	Name  string  `json:"name"`
	Score int     `json:"score"`
	Time  float64 `json:"time"`
}

// RosterEntry mirrors the admin-facing roster shape.
type RosterEntry struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// QuizResult is the archived outcome of a finished session.
type QuizResult struct {
	EndedAt time.Time          `json:"endedAt"`
	Leaders []LeaderboardEntry `json:"leaders"`
}
