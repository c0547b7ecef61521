package main

import (
	"strings"
	"testing"
	"time"

	"campusconnect/internal/app/chat"
)

func TestRenderShowsTypingLine(t *testing.T) {
	messages := []chat.Message{
		{SenderID: "student-1", Body: "hi", SentAt: time.Now()},
		{SenderID: "teacher-1", Body: "hello", SentAt: time.Now()},
	}

	var out strings.Builder
	render(&out, "student-1", "Ms. Grace", messages, func() (string, bool) {
		return "Ms. Grace", true
	})

	got := out.String()
	if !strings.Contains(got, "Ms. Grace is typing...") {
		t.Errorf("Expected typing line in output, got:\n%s", got)
	}
	if !strings.Contains(got, "me: hi") || !strings.Contains(got, "Ms. Grace: hello") {
		t.Errorf("Timeline missing from output:\n%s", got)
	}
}

func TestRenderOmitsTypingLineWhenIdle(t *testing.T) {
	var out strings.Builder
	render(&out, "student-1", "Ms. Grace", nil, func() (string, bool) {
		return "", false
	})

	if strings.Contains(out.String(), "typing") {
		t.Errorf("Typing line printed while peer is idle:\n%s", out.String())
	}
}
