package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/answerd/answerd/internal/llm"
)

type mockAgent struct {
	answer string
	err    error
	got    []llm.Message
}

func (m *mockAgent) Run(_ context.Context, conv []llm.Message) (string, []llm.Message, error) {
	m.got = conv
	return m.answer, conv, m.err
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChat_ReturnsAnswer(t *testing.T) {
	agent := &mockAgent{answer: "30 days"}
	handler := NewHandler(agent, 0)

	rec := postChat(t, handler, `{"session_id":"s1","messages":[
		{"role":"user","content":"how much vacation?"},
		{"role":"assistant","content":"let me check"},
		{"role":"user","content":"please"}
	]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Answer != "30 days" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(agent.got) != 3 {
		t.Errorf("agent received %d messages, want 3", len(agent.got))
	}
}

func TestChat_FiltersUnknownRoles(t *testing.T) {
	agent := &mockAgent{answer: "ok"}
	handler := NewHandler(agent, 0)

	rec := postChat(t, handler, `{"messages":[
		{"role":"system","content":"ignored"},
		{"role":"user","content":"q"}
	]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(agent.got) != 1 || agent.got[0].Role != "user" {
		t.Errorf("agent received %+v, want only the user message", agent.got)
	}
}

func TestChat_EmptyMessagesRejected(t *testing.T) {
	handler := NewHandler(&mockAgent{}, 0)

	rec := postChat(t, handler, `{"session_id":"s1","messages":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChat_InvalidBodyRejected(t *testing.T) {
	handler := NewHandler(&mockAgent{}, 0)

	rec := postChat(t, handler, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChat_AgentErrorIsSingleErrorResponse(t *testing.T) {
	handler := NewHandler(&mockAgent{err: errors.New("reasoning step: upstream exploded")}, 0)

	rec := postChat(t, handler, `{"messages":[{"role":"user","content":"q"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if !strings.Contains(resp.Error.Message, "upstream exploded") {
		t.Errorf("error message = %q, want underlying cause description", resp.Error.Message)
	}
}

func TestHealth(t *testing.T) {
	handler := NewHandler(&mockAgent{}, 42)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	var resp struct {
		Status string `json:"status"`
		Chunks int    `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding health response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Chunks != 42 {
		t.Errorf("chunks = %d, want 42", resp.Chunks)
	}
}
