package domain

import (
	"errors"
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	q := Question{
		Prompt:    "Pick one",
		Options:   []string{"a", "b", "c", "d"},
		Correct:   3,
		TimeLimit: 30,
	}
	if err := q.Validate(); err != nil {
		t.Fatalf("expected valid question, got %v", err)
	}

	bad := q
	bad.Correct = 4
	if err := bad.Validate(); !errors.Is(err, ErrInvalidQuestion) {
		t.Fatalf("expected invalid correct index rejected, got %v", err)
	}

	bad = q
	bad.Options = []string{"a", "b"}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidQuestion) {
		t.Fatalf("expected wrong option count rejected, got %v", err)
	}
}

func TestQuestionTimeLimitClamped(t *testing.T) {
	q := Question{Prompt: "p", Options: []string{"a", "b", "c", "d"}, Correct: 0, TimeLimit: 5}
	if err := q.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if q.TimeLimit != MinTimeLimit {
		t.Fatalf("expected clamp to %d, got %d", MinTimeLimit, q.TimeLimit)
	}

	q.TimeLimit = 900
	if err := q.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if q.TimeLimit != MaxTimeLimit {
		t.Fatalf("expected clamp to %d, got %d", MaxTimeLimit, q.TimeLimit)
	}
}
