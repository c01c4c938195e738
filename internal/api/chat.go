// Package api is the HTTP surface: a single chat endpoint over the
// agent, plus health. It validates requests and maps errors; all
// interesting work happens in the agent.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/answerd/answerd/internal/llm"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Agent runs one request's decision loop to completion.
type Agent interface {
	Run(ctx context.Context, conv []llm.Message) (string, []llm.Message, error)
}

// ChatMessage is one role-tagged entry in the request conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// NewHandler returns the HTTP handler for the chat API. chunks is the
// size of the loaded index, reported by the health endpoint.
func NewHandler(agent Agent, chunks int) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(chunks))
	r.Post("/chat", handleChat(agent))

	return r
}

func handleHealth(chunks int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"chunks": chunks,
		})
	}
}

func handleChat(agent Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		conv := toConversation(req.Messages)
		if len(conv) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "messages is required and must not be empty")
			return
		}

		answer, _, err := agent.Run(r.Context(), conv)
		if err != nil {
			slog.Error("agent request failed", "session_id", req.SessionID, "error", err)
			httpError(w, http.StatusInternalServerError, "agent_error", "agent error: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ChatResponse{Answer: answer})
	}
}

// toConversation keeps only the roles the agent understands.
func toConversation(messages []ChatMessage) []llm.Message {
	conv := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		conv = append(conv, llm.Message{Role: m.Role, Content: m.Content})
	}
	return conv
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
