package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"quiz-coordinator/internal/app"
	"quiz-coordinator/internal/domain"
)

// WSHandler upgrades sockets and translates the flat JSON wire protocol into
// coordinator calls. Message routing keys on the top-level `type` field;
// anything unroutable maps to a protocol_error rejection.
type WSHandler struct {
	coord    *app.Coordinator
	upgrader websocket.Upgrader
}

func NewWSHandler(coord *app.Coordinator) *WSHandler {
	return &WSHandler{
		coord: coord,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Inbound message shapes. One struct per type keeps validation at the
// boundary; unknown fields are ignored like the original clients expect.

type envelope struct {
	Type string `json:"type"`
}

type adminConnectMsg struct {
	Passphrase string `json:"passphrase"`
}

type userConnectMsg struct {
	Name string `json:"name"`
}

type newQuestionMsg struct {
	Question *domain.Question `json:"question"`
	// Questions stages a whole run in one message; an empty (non-null) array
	// is a deliberate empty set and is rejected as such.
	Questions      []domain.Question `json:"questions"`
	QuestionNumber int               `json:"questionNumber"`
	TotalQuestions int               `json:"totalQuestions"`
}

type loadQuestionsMsg struct {
	SetID string `json:"setId"`
}

type submitAnswerMsg struct {
	UserName       string `json:"userName"`
	QuestionNumber int    `json:"questionNumber"`
	// Answer is null when the player's local countdown ran out.
	Answer *int `json:"answer"`
	// Correct and Score are client claims; the server recomputes both and
	// ignores these entirely.
	Correct bool `json:"correct"`
	Score   int  `json:"score"`
}

// wsClient is the per-socket send side: a buffered channel drained by one
// writer goroutine, so messages to a connection keep their enqueue order and
// a slow consumer can never block a broadcast.
type wsClient struct {
	conn *websocket.Conn
	send chan any
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan any, 32),
		done: make(chan struct{}),
	}
}

// Send enqueues msg without blocking. Best-effort: a closed connection or a
// full buffer drops the message.
func (c *wsClient) Send(msg any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		log.Printf("ws: dropping %T to slow consumer", msg)
		return false
	}
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *wsClient) writeLoop() {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// ServeWS runs one connection: handshake-by-first-message, then a read loop
// until the socket closes, at which point the connection is deregistered and
// stops receiving or effecting anything.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := newWSClient(conn)
	go client.writeLoop()
	defer client.close()
	defer h.coord.Disconnect(client)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.dispatch(r.Context(), client, data)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, client *wsClient, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.reject(client, fmt.Errorf("unparseable message: %v", err))
		return
	}

	var err error
	switch env.Type {
	case "admin_connect":
		var msg adminConnectMsg
		if err = json.Unmarshal(data, &msg); err == nil {
			err = h.coord.ConnectAdmin(client, msg.Passphrase)
		}
	case "user_connect":
		var msg userConnectMsg
		if err = json.Unmarshal(data, &msg); err == nil {
			err = h.coord.ConnectPlayer(client, msg.Name)
		}
	case "new_question":
		var msg newQuestionMsg
		if err = json.Unmarshal(data, &msg); err == nil {
			err = h.coord.HandleNewQuestion(client, msg.Question, msg.Questions, msg.QuestionNumber, msg.TotalQuestions)
		}
	case "load_questions":
		var msg loadQuestionsMsg
		if err = json.Unmarshal(data, &msg); err == nil {
			err = h.coord.StartFromSet(ctx, client, msg.SetID)
		}
	case "next_question":
		err = h.coord.NextQuestion(client)
	case "submit_answer":
		var msg submitAnswerMsg
		if err = json.Unmarshal(data, &msg); err == nil {
			err = h.coord.SubmitAnswer(client, msg.QuestionNumber, msg.Answer)
		}
	case "quiz_ended":
		err = h.coord.EndQuiz(client)
	case "get_leaderboard":
		h.coord.Leaderboard(client)
	default:
		err = fmt.Errorf("unsupported message type %q", env.Type)
	}

	if err != nil {
		h.reject(client, err)
	}
}

// reject sends a structured rejection; failures stay local to the offending
// request and never touch other connections.
func (h *WSHandler) reject(client *wsClient, err error) {
	client.Send(app.Errorf(err))
}
