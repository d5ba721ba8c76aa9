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

package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/repforge/wodsearch/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ModelCaller implements ai.ModelCaller using OpenAI-compatible chat APIs.
type ModelCaller struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// newModelCaller is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newModelCaller(config *ai.Config) (*ModelCaller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	token := config.APIKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(token),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &ModelCaller{
		client:      client,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-model"),
	}, nil
}

// NewModelCaller creates a new chat-completion caller using the provided
// configuration.
//
// Returns ai.ModelCaller interface to enforce abstraction.
func NewModelCaller(config *ai.Config) (ai.ModelCaller, error) {
	return newModelCaller(config)
}

// Call sends the request and returns the model's reply.
func (m *ModelCaller) Call(ctx context.Context, req *ai.ModelRequest) (*ai.ModelResponse, error) {
	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content = append(content, convertMessage(msg))
	}

	opts := []llms.CallOption{llms.WithTemperature(m.temperature)}
	if len(req.Tools) > 0 {
		opts = append(opts, llms.WithTools(convertTools(req.Tools)))
	}

	m.logger.Debug("calling model", "messages", len(req.Messages), "tools", len(req.Tools))

	response, err := m.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		m.logger.Error("model call failed", "err", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ai.ErrModelTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ai.ErrModelCall, err)
	}
	if len(response.Choices) < 1 {
		m.logger.Warn("no choices returned from model")
		return nil, fmt.Errorf("%w: empty response", ai.ErrModelCall)
	}

	choice := response.Choices[0]
	result := &ai.ModelResponse{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		result.ToolCalls = append(result.ToolCalls, ai.ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}
	return result, nil
}

// convertMessage maps an ai.Message onto the langchaingo content type.
func convertMessage(msg ai.Message) llms.MessageContent {
	switch msg.Role {
	case ai.RoleSystem:
		return llms.TextParts(llms.ChatMessageTypeSystem, msg.Content)
	case ai.RoleTool:
		return llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.ToolName,
					Content:    msg.Content,
				},
			},
		}
	case ai.RoleAssistant:
		mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if msg.Content != "" {
			mc.Parts = append(mc.Parts, llms.TextPart(msg.Content))
		}
		for _, tc := range msg.ToolCalls {
			mc.Parts = append(mc.Parts, llms.ToolCall{
				ID:   tc.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		return mc
	default:
		return llms.TextParts(llms.ChatMessageTypeHuman, msg.Content)
	}
}

// convertTools maps tool specs onto the langchaingo tool type.
func convertTools(specs []ai.ToolSpec) []llms.Tool {
	tools := make([]llms.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}
	return tools
}
