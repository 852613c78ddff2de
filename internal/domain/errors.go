package domain

import "errors"

var (
	// ErrInvalidHandshake is returned for a first message that does not
	// declare a valid role (or a player handshake without a name).
	ErrInvalidHandshake = errors.New("invalid handshake")
	// ErrNotAuthorized is returned when a player sends an admin-only control message.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrEmptyQuestionSet is returned when a quiz is started with no questions.
	ErrEmptyQuestionSet = errors.New("empty question set")
	// ErrInvalidQuestion indicates a question violating the option/correct-index invariants.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrNoActiveQuiz is returned when advancing or answering outside an active run.
	ErrNoActiveQuiz = errors.New("no active quiz")
	// ErrQuestionNotActive is returned when a submission targets a question
	// other than the currently active one.
	ErrQuestionNotActive = errors.New("question not active")
	// ErrAlreadyAnswered is returned for repeated submissions to the same
	// question; the first record is never overwritten.
	ErrAlreadyAnswered = errors.New("already answered")
	// ErrExpired is returned for submissions after the server deadline.
	ErrExpired = errors.New("answer window expired")
	// ErrUnknownPlayer is returned when a submission names a player the
	// roster has never seen.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrSetNotFound indicates a stored question set that could not be loaded.
	ErrSetNotFound = errors.New("question set not found")
)

// Reason codes carried in error messages on the wire. Stable: clients key on
// them, do not rename.
const (
	CodeProtocolError     = "protocol_error"
	CodeInvalidHandshake  = "invalid_handshake"
	CodeNotAuthorized     = "not_authorized"
	CodeEmptyQuestionSet  = "empty_question_set"
	CodeInvalidQuestion   = "invalid_question"
	CodeNoActiveQuiz      = "no_active_quiz"
	CodeQuestionNotActive = "question_not_active"
	CodeAlreadyAnswered   = "already_answered"
	CodeExpired           = "expired"
	CodeUnknownPlayer     = "unknown_player"
	CodeSetNotFound       = "set_not_found"
)

// ReasonCode maps a domain error to its wire reason code.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidHandshake):
		return CodeInvalidHandshake
	case errors.Is(err, ErrNotAuthorized):
		return CodeNotAuthorized
	case errors.Is(err, ErrEmptyQuestionSet):
		return CodeEmptyQuestionSet
	case errors.Is(err, ErrInvalidQuestion):
		return CodeInvalidQuestion
	case errors.Is(err, ErrNoActiveQuiz):
		return CodeNoActiveQuiz
	case errors.Is(err, ErrQuestionNotActive):
		return CodeQuestionNotActive
	case errors.Is(err, ErrAlreadyAnswered):
		return CodeAlreadyAnswered
	case errors.Is(err, ErrExpired):
		return CodeExpired
	case errors.Is(err, ErrUnknownPlayer):
		return CodeUnknownPlayer
	case errors.Is(err, ErrSetNotFound):
		return CodeSetNotFound
	default:
		return CodeProtocolError
	}
}
