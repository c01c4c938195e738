// Package agent runs the tool-orchestration loop: it feeds the
// conversation to the reasoning model, executes whatever tool calls the
// model requests, and loops until the model produces a final answer or
// the round budget runs out. The agent never chooses tools itself; it
// only dispatches and plumbs data.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/answerd/answerd/internal/llm"
	"github.com/answerd/answerd/internal/tools"
)

// FallbackAnswer is returned whenever the loop ends without a usable
// assistant answer. Callers must receive this exact string, never an
// empty response.
const FallbackAnswer = "No suitable response found."

// ErrNoTermination marks a loop that hit its round budget. It is
// recovered into FallbackAnswer before reaching the caller; it exists
// so logs can tell budget exhaustion apart from other fallbacks.
var ErrNoTermination = errors.New("agent loop exceeded round budget without a final answer")

// Reasoner is the opaque model call: conversation plus tool specs in,
// a decision out.
type Reasoner interface {
	Decide(ctx context.Context, messages []llm.Message, tools []llm.ToolSpec) (llm.Decision, error)
}

// Agent executes the decision loop over a per-request conversation.
// It holds no per-request state itself and is safe to share.
type Agent struct {
	reasoner    Reasoner
	registry    tools.Registry
	specs       []llm.ToolSpec
	maxRounds   int
	toolTimeout time.Duration
}

// New creates an Agent over the given reasoner and tool registry.
// maxRounds bounds the number of reasoning steps per request;
// toolTimeout bounds each individual tool invocation.
func New(reasoner Reasoner, registry tools.Registry, maxRounds int, toolTimeout time.Duration) *Agent {
	specs := make([]llm.ToolSpec, 0, len(registry))
	for _, t := range registry {
		specs = append(specs, llm.ToolSpec{Name: t.Name(), Description: t.Description()})
	}
	// Map order is random; keep the advertised tool order stable across requests.
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })

	return &Agent{
		reasoner:    reasoner,
		registry:    registry,
		specs:       specs,
		maxRounds:   maxRounds,
		toolTimeout: toolTimeout,
	}
}

// Run executes the loop for one request. The conversation is
// append-only: tool-call requests, tool results, and the final answer
// are added, prior entries are never reordered or dropped. The grown
// conversation is returned alongside the answer.
//
// Tool failures (unknown name, timeout, provider error) are recoverable:
// they become tool-result messages and the loop continues. A failing
// reasoner call is not; it surfaces as an error for the request
// boundary to report. Budget exhaustion yields FallbackAnswer, never
// an error.
func (a *Agent) Run(ctx context.Context, conv []llm.Message) (string, []llm.Message, error) {
	for round := 0; round < a.maxRounds; round++ {
		decision, err := a.reasoner.Decide(ctx, conv, a.specs)
		if err != nil {
			return "", conv, fmt.Errorf("reasoning step: %w", err)
		}

		if decision.IsFinal() {
			if decision.Content == "" {
				// An empty final answer is unusable; give the model
				// another round.
				slog.Warn("model emitted empty final answer", "round", round)
				continue
			}
			conv = append(conv, llm.Message{Role: "assistant", Content: decision.Content})
			return decision.Content, conv, nil
		}

		conv = append(conv, llm.Message{
			Role:      "assistant",
			Content:   decision.Content,
			ToolCalls: decision.ToolCalls,
		})
		conv = append(conv, a.dispatch(ctx, decision.ToolCalls)...)
	}

	slog.Warn("agent loop gave up", "rounds", a.maxRounds, "reason", ErrNoTermination)
	conv = append(conv, llm.Message{Role: "assistant", Content: FallbackAnswer})
	return FallbackAnswer, conv, nil
}

// dispatch runs the requested tool calls and returns one tool-result
// message per call, in request order. Multiple calls run concurrently;
// tool invocations are pure functions of their query, so they cannot
// interfere.
func (a *Agent) dispatch(ctx context.Context, calls []llm.ToolCall) []llm.Message {
	results := make([]llm.Message, len(calls))

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			results[i] = llm.Message{
				Role:       "tool",
				Content:    a.invoke(ctx, call),
				ToolCallID: call.ID,
			}
			return nil
		})
	}
	g.Wait()

	return results
}

// invoke executes a single tool call, converting every failure into an
// error description the model can react to.
func (a *Agent) invoke(ctx context.Context, call llm.ToolCall) string {
	tool, ok := a.registry.Lookup(call.Function.Name)
	if !ok {
		slog.Warn("model requested unknown tool", "tool", call.Function.Name)
		return fmt.Sprintf("Error: tool %q is not available.", call.Function.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, a.toolTimeout)
	defer cancel()

	out, err := tool.Invoke(ctx, call.Function.Query())
	if err != nil {
		slog.Warn("tool invocation failed", "tool", call.Function.Name, "error", err)
		return fmt.Sprintf("Error: tool %q failed: %v", call.Function.Name, err)
	}
	return out
}
