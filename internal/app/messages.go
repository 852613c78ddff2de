package app

import (
	"time"

	"quiz-coordinator/internal/domain"
)

// Outbound wire messages. Shapes follow the browser clients; the `type` field
// dispatches handling on their side.

// QuestionView is the player-facing question: prompt, options and time limit
// only. The correct index never leaves the server on this path.
type QuestionView struct {
	Prompt    string   `json:"question"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"time"`
}

// QuestionBroadcast announces the active question to players.
type QuestionBroadcast struct {
	Type           string       `json:"type"`
	Question       QuestionView `json:"question"`
	QuestionNumber int          `json:"questionNumber"`
	TotalQuestions int          `json:"totalQuestions"`
}

// AdminQuestion mirrors QuestionBroadcast for the admin console, including
// the correct index and the authoritative answer deadline.
type AdminQuestion struct {
	Type           string          `json:"type"`
	Question       domain.Question `json:"question"`
	QuestionNumber int             `json:"questionNumber"`
	TotalQuestions int             `json:"totalQuestions"`
	Deadline       time.Time       `json:"deadline"`
}

// RosterUpdate pushes the player roster to the admin console.
type RosterUpdate struct {
	Type  string               `json:"type"`
	Users []domain.RosterEntry `json:"users"`
}

// AnswerTally reports one accepted answer to the admin, with the running
// answered/online counts for the active question.
type AnswerTally struct {
	Type     string `json:"type"`
	UserName string `json:"userName"`
	Correct  bool   `json:"correct"`
	Answered int    `json:"answered"`
	Online   int    `json:"online"`
}

// LeaderboardUpdate pushes a ranked snapshot to subscribed connections.
type LeaderboardUpdate struct {
	Type    string                    `json:"type"`
	Leaders []domain.LeaderboardEntry `json:"leaders"`
}

// QuizEnded is the end-of-quiz notice.
type QuizEnded struct {
	Type string `json:"type"`
}

// AdminReplaced notifies a demoted admin connection that a newer admin socket
// took over control.
type AdminReplaced struct {
	Type string `json:"type"`
}

// ErrorMessage is the structured rejection sent for failed requests. Code is
// a stable reason code from the domain package.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outbound message type tags.
const (
	TypeNewQuestion       = "new_question"
	TypeUserConnected     = "user_connected"
	TypeAnswerSubmitted   = "answer_submitted"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeQuizEnded         = "quiz_ended"
	TypeAdminReplaced     = "admin_replaced"
	TypeError             = "error"
)

// Errorf wraps a domain error as a wire rejection.
func Errorf(err error) ErrorMessage {
	return ErrorMessage{Type: TypeError, Code: domain.ReasonCode(err), Message: err.Error()}
}
