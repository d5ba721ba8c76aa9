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

package wodsearch

import (
	"context"
	"log/slog"

	"github.com/repforge/wodsearch/agent"
	"github.com/repforge/wodsearch/ai"
	"github.com/repforge/wodsearch/ai/openai"
	"github.com/repforge/wodsearch/conversation"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/governor"
	"github.com/repforge/wodsearch/ingestion"
	"github.com/repforge/wodsearch/search"
	"github.com/repforge/wodsearch/storage"
	"github.com/repforge/wodsearch/storage/badger"
)

// Service wires the storage backend, search engine, conversation store,
// governor and agent into one askable unit. It is the root object the CLI
// builds.
type Service struct {
	backend        *badger.Backend
	workoutRepo    storage.WorkoutRepository
	convRepo       storage.ConversationRepository
	checkpointRepo storage.CheckpointRepository
	provider       ai.AIProvider
	engine         *search.Engine
	store          conversation.Store
	gov            *governor.Governor
	orchestrator   *agent.Orchestrator
	logger         *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig             *ai.Config
	convConfig           *conversation.Config
	dailyBudget          int
	hourlyBudget         int
	callBudget           int
	persistConversations bool
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(cfg *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithConversationConfig sets the conversation store configuration.
func WithConversationConfig(cfg *conversation.Config) ServiceOption {
	return func(o *serviceOptions) {
		if cfg != nil {
			o.convConfig = cfg
		}
	}
}

// WithDailyBudget sets the global daily request budget.
func WithDailyBudget(n int) ServiceOption {
	return func(o *serviceOptions) { o.dailyBudget = n }
}

// WithHourlyBudget sets the per-client hourly request budget.
func WithHourlyBudget(n int) ServiceOption {
	return func(o *serviceOptions) { o.hourlyBudget = n }
}

// WithCallBudget sets the per-request model call budget.
func WithCallBudget(n int) ServiceOption {
	return func(o *serviceOptions) { o.callBudget = n }
}

// WithPersistedConversations stores conversations in badger instead of the
// in-memory LRU, so history survives restarts.
func WithPersistedConversations() ServiceOption {
	return func(o *serviceOptions) { o.persistConversations = true }
}

// NewService opens the badger database at filePath and builds the full
// request path on top of it. An empty filePath opens an in-memory database,
// useful for tests and one-off runs.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig:     ai.DefaultConfig(),
		dailyBudget:  governor.DefaultDailyBudget,
		hourlyBudget: governor.DefaultHourlyBudget,
		callBudget:   governor.DefaultCallBudget,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, filePath == "")
	if err != nil {
		return nil, err
	}

	workoutRepo, err := badger.NewWorkoutRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	convRepo := badger.NewConversationRepository(backend)
	checkpointRepo := badger.NewCheckpointRepository(backend)

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		backend.Close()
		return nil, err
	}

	engine, err := search.NewEngine(workoutRepo, provider.Embedder())
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	var store conversation.Store
	if options.persistConversations {
		store, err = conversation.NewBadgerStore(convRepo, options.convConfig)
	} else {
		store, err = conversation.NewMemoryStore(options.convConfig)
	}
	if err != nil {
		engine.Close()
		provider.Close()
		backend.Close()
		return nil, err
	}

	gov := governor.New(
		governor.WithDailyBudget(options.dailyBudget),
		governor.WithHourlyBudget(options.hourlyBudget),
	)

	orchestrator, err := agent.NewOrchestrator(engine, store, gov, provider.ModelCaller(),
		agent.WithCallBudget(options.callBudget))
	if err != nil {
		store.Close()
		engine.Close()
		provider.Close()
		backend.Close()
		return nil, err
	}

	return &Service{
		backend:        backend,
		workoutRepo:    workoutRepo,
		convRepo:       convRepo,
		checkpointRepo: checkpointRepo,
		provider:       provider,
		engine:         engine,
		store:          store,
		gov:            gov,
		orchestrator:   orchestrator,
		logger:         slog.Default(),
	}, nil
}

// Ask answers a natural-language question about the workout archive.
func (s *Service) Ask(ctx context.Context, req agent.Request) (*agent.Response, error) {
	return s.orchestrator.HandleQuestion(ctx, req)
}

// Search runs a direct search query against the engine, bypassing the agent.
func (s *Service) Search(ctx context.Context, query search.Query) ([]*core.SearchResult, error) {
	return s.engine.Search(ctx, query)
}

// WorkoutRepository exposes the workout storage layer.
func (s *Service) WorkoutRepository() storage.WorkoutRepository {
	return s.workoutRepo
}

// NewIngestionPipeline builds an ingestion pipeline over the service's
// storage and embedder.
func (s *Service) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(s.workoutRepo, s.checkpointRepo, s.provider.Embedder(), opts...)
}

// EvictExpiredConversations removes conversations idle past their TTL.
func (s *Service) EvictExpiredConversations(ctx context.Context) (int, error) {
	return s.store.EvictExpired(ctx)
}

// Close releases all service resources in reverse construction order.
func (s *Service) Close() error {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing conversation store", "err", err)
	}
	if err := s.engine.Close(); err != nil {
		s.logger.Error("error closing search engine", "err", err)
	}
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.workoutRepo.Close(); err != nil {
		s.logger.Error("error closing workout repository", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
