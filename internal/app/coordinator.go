package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-coordinator/internal/domain"
)

// QuestionSetRepository loads stored question sets (from cache/backing store).
type QuestionSetRepository interface {
	GetSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// ResultArchive keeps finished-quiz leaderboards for later inspection.
// Saving is best-effort; failures are logged, never fatal.
type ResultArchive interface {
	SaveResult(ctx context.Context, result domain.QuizResult) error
}

// Config carries the coordinator's tunables.
type Config struct {
	// AdminPassphrase guards admin_connect when non-empty.
	AdminPassphrase string
	// AnswerGrace extends the deadline for nil (timed-out) answers only.
	AnswerGrace time.Duration
}

// Coordinator owns the registry, session and ledger behind a single mutex:
// every mutation of shared quiz state is serialized here, so a submission and
// a concurrent question advance can never interleave. Broadcasts fan out
// after the mutation commits.
type Coordinator struct {
	sets    QuestionSetRepository
	archive ResultArchive
	cfg     Config

	mu   sync.Mutex
	reg  *registry
	sess *session
	led  *ledger

	now   func() time.Time
	newID func() string
}

func NewCoordinator(sets QuestionSetRepository, archive ResultArchive, cfg Config) *Coordinator {
	return NewCoordinatorWithClock(sets, archive, cfg, time.Now)
}

// NewCoordinatorWithClock is test-only for deterministic deadlines.
func NewCoordinatorWithClock(sets QuestionSetRepository, archive ResultArchive, cfg Config, now func() time.Time) *Coordinator {
	if cfg.AnswerGrace == 0 {
		cfg.AnswerGrace = 2 * time.Second
	}
	return &Coordinator{
		sets:    sets,
		archive: archive,
		cfg:     cfg,
		reg:     newRegistry(),
		sess:    newSession(now),
		led:     newLedger(),
		now:     now,
		newID:   uuid.NewString,
	}
}

// delivery pairs an outbound message with its destination; deliveries are
// collected under the lock and flushed after it is released.
type delivery struct {
	to  Sender
	msg any
}

func (c *Coordinator) flush(out []delivery) {
	for _, d := range out {
		d.to.Send(d.msg)
	}
}

// ConnectAdmin registers conn as the authoritative admin. Policy for rival
// admin sockets: last registered wins; the previous one is demoted and told.
func (c *Coordinator) ConnectAdmin(conn Sender, passphrase string) error {
	if c.cfg.AdminPassphrase != "" && passphrase != c.cfg.AdminPassphrase {
		return fmt.Errorf("admin passphrase mismatch: %w", domain.ErrNotAuthorized)
	}

	c.mu.Lock()
	demoted := c.reg.registerAdmin(conn)
	out := []delivery{{conn, RosterUpdate{Type: TypeUserConnected, Users: c.reg.roster()}}}
	if q, idx := c.sess.current(); q != nil {
		out = append(out, delivery{conn, AdminQuestion{
			Type:           TypeNewQuestion,
			Question:       *q,
			QuestionNumber: idx + 1,
			TotalQuestions: c.sess.total,
			Deadline:       c.sess.deadline(),
		}})
	}
	if demoted != nil {
		out = append(out, delivery{demoted, AdminReplaced{Type: TypeAdminReplaced}})
	}
	c.mu.Unlock()

	c.flush(out)
	return nil
}

// ConnectPlayer registers conn under a display name. Names are non-unique
// labels; identity is connection-assigned and reclaimed on reconnect. A
// late joiner receives the active question so it can still answer before the
// deadline.
func (c *Coordinator) ConnectPlayer(conn Sender, name string) error {
	if name == "" {
		return fmt.Errorf("player handshake requires a name: %w", domain.ErrInvalidHandshake)
	}

	c.mu.Lock()
	c.reg.registerPlayer(conn, name, c.newID(), c.now())
	var out []delivery
	if admin := c.reg.admin; admin != nil {
		out = append(out, delivery{admin, RosterUpdate{Type: TypeUserConnected, Users: c.reg.roster()}})
	}
	if q, idx := c.sess.current(); q != nil {
		out = append(out, delivery{conn, QuestionBroadcast{
			Type:           TypeNewQuestion,
			Question:       QuestionView{Prompt: q.Prompt, Options: q.Options, TimeLimit: q.TimeLimit},
			QuestionNumber: idx + 1,
			TotalQuestions: c.sess.total,
		}})
	}
	c.mu.Unlock()

	c.flush(out)
	return nil
}

// Disconnect drops conn from the roster. A mid-quiz admin disconnect leaves
// the session exactly where it was: only the admin drives transitions, so
// there is no auto-advance.
func (c *Coordinator) Disconnect(conn Sender) {
	c.mu.Lock()
	role, _ := c.reg.deregister(conn)
	var out []delivery
	if role == domain.RolePlayer && c.reg.admin != nil {
		out = append(out, delivery{c.reg.admin, RosterUpdate{Type: TypeUserConnected, Users: c.reg.roster()}})
	}
	c.mu.Unlock()

	c.flush(out)
}

// HandleNewQuestion processes an admin new_question message. A staged slice
// (even an empty one) starts a whole run at once; a single question either
// starts a fresh run or pushes the next question of the current one.
func (c *Coordinator) HandleNewQuestion(conn Sender, single *domain.Question, staged []domain.Question, number, total int) error {
	c.mu.Lock()
	if !c.reg.isAdmin(conn) {
		c.mu.Unlock()
		return fmt.Errorf("new_question is admin-only: %w", domain.ErrNotAuthorized)
	}

	var err error
	switch {
	case staged != nil:
		err = c.startLocked(staged, total)
	case single != nil:
		if c.sess.active() && number > 1 {
			err = c.sess.push(*single, number)
		} else {
			err = c.startLocked([]domain.Question{*single}, total)
		}
	default:
		err = fmt.Errorf("new_question carries no question: %w", domain.ErrInvalidQuestion)
	}
	if err != nil {
		c.mu.Unlock()
		return err
	}
	out := c.questionDeliveriesLocked()
	c.mu.Unlock()

	c.flush(out)
	return nil
}

// StartFromSet loads a stored question set and starts a run from it.
func (c *Coordinator) StartFromSet(ctx context.Context, conn Sender, setID string) error {
	c.mu.Lock()
	isAdmin := c.reg.isAdmin(conn)
	c.mu.Unlock()
	if !isAdmin {
		return fmt.Errorf("load_questions is admin-only: %w", domain.ErrNotAuthorized)
	}
	if c.sets == nil {
		return fmt.Errorf("no question store configured: %w", domain.ErrSetNotFound)
	}

	set, err := c.sets.GetSet(ctx, setID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if !c.reg.isAdmin(conn) {
		c.mu.Unlock()
		return fmt.Errorf("load_questions is admin-only: %w", domain.ErrNotAuthorized)
	}
	if err := c.startLocked(set.Questions, len(set.Questions)); err != nil {
		c.mu.Unlock()
		return err
	}
	out := c.questionDeliveriesLocked()
	c.mu.Unlock()

	c.flush(out)
	return nil
}

// NextQuestion advances a staged run: next question, or end of quiz when the
// sequence is exhausted.
func (c *Coordinator) NextQuestion(conn Sender) error {
	c.mu.Lock()
	if !c.reg.isAdmin(conn) {
		c.mu.Unlock()
		return fmt.Errorf("next_question is admin-only: %w", domain.ErrNotAuthorized)
	}
	_, ended, err := c.sess.advance()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	var out []delivery
	var result *domain.QuizResult
	if ended {
		out, result = c.endDeliveriesLocked()
	} else {
		out = c.questionDeliveriesLocked()
	}
	c.mu.Unlock()

	c.flush(out)
	if result != nil {
		c.archiveResult(*result)
	}
	return nil
}

// EndQuiz force-ends the active run and pushes the final leaderboard.
func (c *Coordinator) EndQuiz(conn Sender) error {
	c.mu.Lock()
	if !c.reg.isAdmin(conn) {
		c.mu.Unlock()
		return fmt.Errorf("quiz_ended is admin-only: %w", domain.ErrNotAuthorized)
	}
	if !c.sess.active() {
		c.mu.Unlock()
		return domain.ErrNoActiveQuiz
	}
	c.sess.end()
	out, result := c.endDeliveriesLocked()
	c.mu.Unlock()

	c.flush(out)
	if result != nil {
		c.archiveResult(*result)
	}
	return nil
}

// SubmitAnswer records a player's answer for the active question. The sender's
// registered identity is authoritative; the userName field on the wire is only
// a label and is ignored for scoring, so duplicate display names stay distinct.
func (c *Coordinator) SubmitAnswer(conn Sender, questionNumber int, option *int) error {
	c.mu.Lock()
	ps := c.reg.playerByConn(conn)
	if ps == nil {
		isAdmin := c.reg.isAdmin(conn)
		c.mu.Unlock()
		if isAdmin {
			return fmt.Errorf("submit_answer is player-only: %w", domain.ErrNotAuthorized)
		}
		return fmt.Errorf("connect before answering: %w", domain.ErrUnknownPlayer)
	}

	rec, err := c.led.submit(c.sess, ps.participant.ID, questionNumber-1, option, c.now(), c.cfg.AnswerGrace)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	var out []delivery
	if admin := c.reg.admin; admin != nil {
		out = append(out, delivery{admin, AnswerTally{
			Type:     TypeAnswerSubmitted,
			UserName: ps.participant.Name,
			Correct:  rec.Correct,
			Answered: c.led.answeredCount(rec.QuestionIdx),
			Online:   c.reg.onlinePlayers(),
		}})
	}
	update := LeaderboardUpdate{Type: TypeLeaderboardUpdate, Leaders: leaderboard(c.reg, c.led)}
	for _, p := range c.reg.playerConns() {
		out = append(out, delivery{p, update})
	}
	for _, w := range c.reg.watcherConns() {
		out = append(out, delivery{w, update})
	}
	c.mu.Unlock()

	c.flush(out)
	return nil
}

// Leaderboard sends the current snapshot to conn and subscribes it to future
// pushes. Allowed pre-handshake: the results page opens a bare socket.
func (c *Coordinator) Leaderboard(conn Sender) {
	c.mu.Lock()
	c.reg.addWatcher(conn)
	update := LeaderboardUpdate{Type: TypeLeaderboardUpdate, Leaders: leaderboard(c.reg, c.led)}
	c.mu.Unlock()

	conn.Send(update)
}

// Snapshot returns the current standings without side effects.
func (c *Coordinator) Snapshot() []domain.LeaderboardEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return leaderboard(c.reg, c.led)
}

// Status reports the session lifecycle state.
func (c *Coordinator) Status() domain.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.status
}

func (c *Coordinator) startLocked(questions []domain.Question, total int) error {
	if err := c.sess.start(questions, total); err != nil {
		return err
	}
	c.led.reset()
	return nil
}

func (c *Coordinator) questionDeliveriesLocked() []delivery {
	q, idx := c.sess.current()
	if q == nil {
		return nil
	}
	var out []delivery
	broadcast := QuestionBroadcast{
		Type:           TypeNewQuestion,
		Question:       QuestionView{Prompt: q.Prompt, Options: q.Options, TimeLimit: q.TimeLimit},
		QuestionNumber: idx + 1,
		TotalQuestions: c.sess.total,
	}
	for _, p := range c.reg.playerConns() {
		out = append(out, delivery{p, broadcast})
	}
	if admin := c.reg.admin; admin != nil {
		out = append(out, delivery{admin, AdminQuestion{
			Type:           TypeNewQuestion,
			Question:       *q,
			QuestionNumber: idx + 1,
			TotalQuestions: c.sess.total,
			Deadline:       c.sess.deadline(),
		}})
	}
	return out
}

func (c *Coordinator) endDeliveriesLocked() ([]delivery, *domain.QuizResult) {
	leaders := leaderboard(c.reg, c.led)
	ended := QuizEnded{Type: TypeQuizEnded}
	update := LeaderboardUpdate{Type: TypeLeaderboardUpdate, Leaders: leaders}

	var out []delivery
	for _, p := range c.reg.playerConns() {
		out = append(out, delivery{p, ended}, delivery{p, update})
	}
	for _, w := range c.reg.watcherConns() {
		out = append(out, delivery{w, ended}, delivery{w, update})
	}
	if admin := c.reg.admin; admin != nil {
		out = append(out, delivery{admin, ended}, delivery{admin, update})
	}
	return out, &domain.QuizResult{EndedAt: c.now(), Leaders: leaders}
}

func (c *Coordinator) archiveResult(result domain.QuizResult) {
	if c.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.archive.SaveResult(ctx, result); err != nil {
		log.Printf("archive quiz result: %v", err)
	}
}
