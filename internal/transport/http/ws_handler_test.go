package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-coordinator/internal/app"
	"quiz-coordinator/internal/domain"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	coord := app.NewCoordinator(nil, nil, app.Config{})
	handler := NewWSHandler(coord)

	mux := http.NewServeMux()
	mux.HandleFunc("/", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, "ws" + server.URL[len("http"):]
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil skips interleaved pushes until a message of the wanted type shows up.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < 10; i++ {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read waiting for %s: %v", wantType, err)
		}
		if msg["type"] == wantType {
			return msg
		}
	}
	t.Fatalf("no %s message received", wantType)
	return nil
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
}

func TestQuizFlowOverWebSocket(t *testing.T) {
	_, wsURL := newTestServer(t)

	admin := dial(t, wsURL)
	send(t, admin, map[string]any{"type": "admin_connect"})

	player := dial(t, wsURL)
	send(t, player, map[string]any{"type": "user_connect", "name": "Alice"})

	// The admin gets a roster snapshot on connect and another when Alice
	// joins; wait for the one that includes her.
	var users []any
	for i := 0; i < 5; i++ {
		roster := readUntil(t, admin, "user_connected")
		users = roster["users"].([]any)
		if len(users) == 1 {
			break
		}
	}
	if len(users) != 1 {
		t.Fatalf("expected one roster entry, got %v", users)
	}

	send(t, admin, map[string]any{
		"type": "new_question",
		"question": map[string]any{
			"question": "What is 2 + 2?",
			"options":  []string{"3", "4", "5", "22"},
			"correct":  1,
			"time":     30,
		},
		"questionNumber": 1,
		"totalQuestions": 1,
	})

	question := readUntil(t, player, "new_question")
	payload := question["question"].(map[string]any)
	if _, leaked := payload["correct"]; leaked {
		t.Fatalf("correct index leaked to player: %v", payload)
	}
	if payload["question"] != "What is 2 + 2?" {
		t.Fatalf("unexpected question payload: %v", payload)
	}

	adminCopy := readUntil(t, admin, "new_question")
	if adminCopy["question"].(map[string]any)["correct"] != float64(1) {
		t.Fatalf("expected admin to see correct index, got %v", adminCopy)
	}

	send(t, player, map[string]any{
		"type":           "submit_answer",
		"userName":       "Alice",
		"questionNumber": 1,
		"answer":         1,
		"correct":        false, // client claim, must be ignored
		"score":          99,
	})

	tally := readUntil(t, admin, "answer_submitted")
	if tally["userName"] != "Alice" || tally["correct"] != true {
		t.Fatalf("expected server-computed correctness, got %v", tally)
	}

	update := readUntil(t, player, "leaderboard_update")
	leaders := update["leaders"].([]any)
	first := leaders[0].(map[string]any)
	if first["name"] != "Alice" || first["score"] != float64(1) {
		t.Fatalf("expected Alice to lead with 1, got %v", leaders)
	}

	send(t, admin, map[string]any{"type": "quiz_ended"})
	readUntil(t, player, "quiz_ended")
	readUntil(t, admin, "quiz_ended")
}

func TestDuplicateAnswerGetsReasonCode(t *testing.T) {
	_, wsURL := newTestServer(t)

	admin := dial(t, wsURL)
	send(t, admin, map[string]any{"type": "admin_connect"})
	player := dial(t, wsURL)
	send(t, player, map[string]any{"type": "user_connect", "name": "Bob"})

	send(t, admin, map[string]any{
		"type": "new_question",
		"question": map[string]any{
			"question": "Pick one",
			"options":  []string{"a", "b", "c", "d"},
			"correct":  0,
			"time":     30,
		},
		"questionNumber": 1,
		"totalQuestions": 1,
	})
	readUntil(t, player, "new_question")

	answer := map[string]any{"type": "submit_answer", "userName": "Bob", "questionNumber": 1, "answer": 2}
	send(t, player, answer)
	readUntil(t, player, "leaderboard_update")
	send(t, player, answer)

	rejection := readUntil(t, player, "error")
	if rejection["code"] != domain.CodeAlreadyAnswered {
		t.Fatalf("expected %s, got %v", domain.CodeAlreadyAnswered, rejection)
	}
}

func TestBareSocketCanWatchLeaderboard(t *testing.T) {
	_, wsURL := newTestServer(t)

	watcher := dial(t, wsURL)
	send(t, watcher, map[string]any{"type": "get_leaderboard"})
	update := readUntil(t, watcher, "leaderboard_update")
	if _, ok := update["leaders"]; !ok {
		t.Fatalf("expected leaders field, got %v", update)
	}
}

func TestUnsupportedTypeIsProtocolError(t *testing.T) {
	_, wsURL := newTestServer(t)

	conn := dial(t, wsURL)
	send(t, conn, map[string]any{"type": "bogus"})
	rejection := readUntil(t, conn, "error")
	if rejection["code"] != domain.CodeProtocolError {
		t.Fatalf("expected protocol_error, got %v", rejection)
	}
}

func TestPlayerHandshakeRequiresName(t *testing.T) {
	_, wsURL := newTestServer(t)

	conn := dial(t, wsURL)
	send(t, conn, map[string]any{"type": "user_connect", "name": ""})
	rejection := readUntil(t, conn, "error")
	if rejection["code"] != domain.CodeInvalidHandshake {
		t.Fatalf("expected invalid_handshake, got %v", rejection)
	}
}
