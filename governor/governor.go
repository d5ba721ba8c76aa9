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

package governor

import (
	"log/slog"
	"sync"
	"time"
)

// Defaults for one process serving a public chat surface.
const (
	DefaultDailyBudget  = 1000
	DefaultHourlyBudget = 100
	DefaultCallBudget   = 6
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool

	// RetryAfter is how long the client should wait before retrying.
	// Zero when Allowed.
	RetryAfter time.Duration
}

// window is a fixed counting window with an explicit reset time.
// Fixed windows admit up to 2x the budget across a boundary; that burst is
// accepted in exchange for constant memory per client.
type window struct {
	count   int
	resetAt time.Time
}

func (w *window) tick(now time.Time, span time.Duration) {
	if !now.Before(w.resetAt) {
		w.count = 0
		w.resetAt = now.Truncate(span).Add(span)
	}
}

// Governor enforces the global daily request budget and the per-client
// hourly budget. Both counters must pass for a request to be admitted.
// Safe for concurrent use.
type Governor struct {
	dailyBudget  int
	hourlyBudget int
	now          func() time.Time
	logger       *slog.Logger

	mu      sync.Mutex
	global  window
	clients map[string]*window
}

// Option configures a Governor.
type Option func(*Governor)

// WithDailyBudget sets the global daily request budget.
func WithDailyBudget(n int) Option {
	return func(g *Governor) {
		if n > 0 {
			g.dailyBudget = n
		}
	}
}

// WithHourlyBudget sets the per-client hourly request budget.
func WithHourlyBudget(n int) Option {
	return func(g *Governor) {
		if n > 0 {
			g.hourlyBudget = n
		}
	}
}

// WithGovernorClock injects a time source for tests.
func WithGovernorClock(now func() time.Time) Option {
	return func(g *Governor) {
		if now != nil {
			g.now = now
		}
	}
}

// WithGovernorLogger sets a custom logger.
func WithGovernorLogger(logger *slog.Logger) Option {
	return func(g *Governor) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Governor with the default budgets.
func New(opts ...Option) *Governor {
	g := &Governor{
		dailyBudget:  DefaultDailyBudget,
		hourlyBudget: DefaultHourlyBudget,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       slog.Default().With("component", "governor"),
		clients:      make(map[string]*window),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AdmitRequest checks the global and per-client counters and, when both
// pass, consumes one unit from each. An empty client key is accounted under
// a shared anonymous bucket rather than rejected.
func (g *Governor) AdmitRequest(clientKey string) Decision {
	if clientKey == "" {
		clientKey = "anonymous"
	}
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.global.tick(now, 24*time.Hour)
	if g.global.count >= g.dailyBudget {
		g.logger.Warn("daily budget exhausted", "budget", g.dailyBudget)
		return Decision{RetryAfter: g.global.resetAt.Sub(now)}
	}

	client := g.clients[clientKey]
	if client == nil {
		client = &window{}
		g.clients[clientKey] = client
	}
	client.tick(now, time.Hour)
	if client.count >= g.hourlyBudget {
		g.logger.Warn("hourly budget exhausted", "client", clientKey, "budget", g.hourlyBudget)
		return Decision{RetryAfter: client.resetAt.Sub(now)}
	}

	// Both checks passed; consume from both counters together.
	g.global.count++
	client.count++
	return Decision{Allowed: true}
}

// Sweep drops client windows whose reset time has long passed, bounding the
// client map. Call periodically from a maintenance loop.
func (g *Governor) Sweep() int {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for key, client := range g.clients {
		if now.Sub(client.resetAt) > time.Hour {
			delete(g.clients, key)
			removed++
		}
	}
	return removed
}
