// Copyright 2025 Repforge Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/repforge/wodsearch/ai"
	"github.com/repforge/wodsearch/conversation"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/governor"
	"github.com/repforge/wodsearch/search"
)

// Searcher is the search engine surface the orchestrator exposes as its
// tool.
type Searcher interface {
	Search(ctx context.Context, query search.Query) ([]*core.SearchResult, error)
}

// Request is one inbound question.
type Request struct {
	Question          string
	ConversationToken string
	ClientKey         string
	Verbose           bool
}

// Response is the orchestrator's reply.
type Response struct {
	Answer            string
	ConversationToken string
	State             State

	// Steps is the ordered trace, populated only for verbose requests.
	Steps []AgentStep
}

// Orchestrator drives the bounded think/act/observe loop: consult the
// governor, call the model, execute search tool calls, and persist the
// exchange.
type Orchestrator struct {
	searcher   Searcher
	store      conversation.Store
	gov        *governor.Governor
	model      ai.ModelCaller
	callBudget int
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCallBudget sets the per-request model-call budget.
func WithCallBudget(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.callBudget = n
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an orchestrator. All collaborators are required.
func NewOrchestrator(searcher Searcher, store conversation.Store, gov *governor.Governor, model ai.ModelCaller, opts ...Option) (*Orchestrator, error) {
	if searcher == nil {
		return nil, errors.New("searcher required")
	}
	if store == nil {
		return nil, errors.New("conversation store required")
	}
	if gov == nil {
		return nil, errors.New("governor required")
	}
	if model == nil {
		return nil, errors.New("model caller required")
	}

	o := &Orchestrator{
		searcher:   searcher,
		store:      store,
		gov:        gov,
		model:      model,
		callBudget: governor.DefaultCallBudget,
		logger:     slog.Default().With("component", "agent"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// HandleQuestion answers one question. The only returned error kinds are
// the taxonomy in errors.go plus context cancellation; every other failure
// produces a Response with a safe answer.
func (o *Orchestrator) HandleQuestion(ctx context.Context, req Request) (*Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, newError(KindInvalidInput, "question must not be empty", nil)
	}

	decision := o.gov.AdmitRequest(req.ClientKey)
	if !decision.Allowed {
		err := newError(KindRateLimited, "too many requests", nil)
		err.RetryAfter = decision.RetryAfter
		return nil, err
	}

	conv, token, err := o.store.GetOrCreate(ctx, req.ConversationToken)
	if err != nil {
		// History is an enhancement, not a requirement: answer without it.
		o.logger.Warn("conversation store unavailable, continuing stateless", "err", err)
		conv = &core.Conversation{}
		token = req.ConversationToken
	}

	transcript := make([]ai.Message, 0, len(conv.Messages)+2)
	transcript = append(transcript, ai.Message{Role: ai.RoleSystem, Content: systemPrompt})
	for _, msg := range conv.Messages {
		transcript = append(transcript, ai.Message{Role: convertRole(msg.Role), Content: msg.Content})
	}
	transcript = append(transcript, ai.Message{Role: ai.RoleUser, Content: question})

	answer, state, steps, err := o.runLoop(ctx, transcript)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o.appendMessage(ctx, token, core.ConversationMessage{Role: core.RoleUser, Content: question, Timestamp: now})
	o.appendMessage(ctx, token, core.ConversationMessage{Role: core.RoleAssistant, Content: answer, Timestamp: now})

	response := &Response{
		Answer:            answer,
		ConversationToken: token,
		State:             state,
	}
	if req.Verbose {
		response.Steps = steps
	}
	return response, nil
}

// runLoop is the bounded state machine:
// Start -> {ModelCall|ToolCall}* -> Answered | Failed | BudgetExhausted.
// The only error it returns is context cancellation, in which case nothing
// must be persisted.
func (o *Orchestrator) runLoop(ctx context.Context, transcript []ai.Message) (string, State, []AgentStep, error) {
	budget := governor.NewCallBudget(o.callBudget)
	tools := []ai.ToolSpec{searchToolSpec()}

	var steps []AgentStep
	var observations []string
	failures := 0
	retrievalDown := false

	for {
		// Budget checkpoint doubles as the cancellation checkpoint.
		if err := ctx.Err(); err != nil {
			return "", 0, nil, err
		}
		if !budget.AdmitModelCall() {
			o.logger.Info("model-call budget exhausted", "calls", budget.Used())
			return synthesizeBestEffort(observations), StateBudgetExhausted, steps, nil
		}

		resp, err := o.model.Call(ctx, &ai.ModelRequest{Messages: transcript, Tools: tools})
		if err != nil {
			if ctx.Err() != nil {
				return "", 0, nil, ctx.Err()
			}
			o.logger.Warn("model call failed", "err", err)
			steps = append(steps, AgentStep{Action: "model_call", Err: "model call failed"})
			failures++
			if failures >= 2 {
				return apologyAnswer, StateFailed, steps, nil
			}
			transcript = append(transcript, ai.Message{Role: ai.RoleUser, Content: correctiveInstruction})
			continue
		}

		if resp.HasToolCalls() {
			call := resp.ToolCalls[0]
			step := AgentStep{Action: "tool_call", ToolName: call.Name, Arguments: call.Arguments}

			observation, toolErr := o.runTool(ctx, call)
			if toolErr != nil {
				if ctx.Err() != nil {
					return "", 0, nil, ctx.Err()
				}
				if errors.Is(toolErr, search.ErrRetrievalUnavailable) {
					retrievalDown = true
				}
				o.logger.Warn("tool call failed", "tool", call.Name, "err", toolErr)
				step.Err = toolErr.Error()
				steps = append(steps, step)
				failures++
				if failures >= 2 {
					if retrievalDown {
						return retrievalUnavailableAnswer, StateFailed, steps, nil
					}
					return apologyAnswer, StateFailed, steps, nil
				}
				transcript = append(transcript,
					ai.Message{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{call}},
					ai.Message{Role: ai.RoleTool, ToolCallID: call.ID, ToolName: call.Name, Content: "error: " + toolErr.Error()},
					ai.Message{Role: ai.RoleUser, Content: correctiveInstruction},
				)
				continue
			}

			failures = 0
			step.Observation = observation
			steps = append(steps, step)
			observations = append(observations, observation)
			transcript = append(transcript,
				ai.Message{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{call}},
				ai.Message{Role: ai.RoleTool, ToolCallID: call.ID, ToolName: call.Name, Content: observation},
			)
			continue
		}

		answer := strings.TrimSpace(resp.Content)
		if answer == "" {
			o.logger.Warn("model returned empty answer")
			steps = append(steps, AgentStep{Action: "model_call", Err: "empty answer"})
			failures++
			if failures >= 2 {
				return apologyAnswer, StateFailed, steps, nil
			}
			transcript = append(transcript, ai.Message{Role: ai.RoleUser, Content: correctiveInstruction})
			continue
		}

		steps = append(steps, AgentStep{Action: "answer", Observation: answer})
		return answer, StateAnswered, steps, nil
	}
}

// runTool executes one model-requested tool invocation.
func (o *Orchestrator) runTool(ctx context.Context, call ai.ToolCall) (string, error) {
	if call.Name != searchToolName {
		return "", errors.New("unknown tool: " + call.Name)
	}

	query, err := parseSearchArgs(call.Arguments)
	if err != nil {
		return "", err
	}

	results, err := o.searcher.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return serializeResults(results), nil
}

// appendMessage persists one side of the exchange; failures are logged, not
// surfaced, since the answer itself is already computed.
func (o *Orchestrator) appendMessage(ctx context.Context, token string, msg core.ConversationMessage) {
	if err := o.store.Append(ctx, token, msg); err != nil {
		o.logger.Warn("failed to persist conversation message", "err", err)
	}
}

func convertRole(role core.Role) ai.MessageRole {
	if role == core.RoleAssistant {
		return ai.RoleAssistant
	}
	return ai.RoleUser
}
