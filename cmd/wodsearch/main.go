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

package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	wodsearch "github.com/repforge/wodsearch"
	"github.com/repforge/wodsearch/agent"
	"github.com/repforge/wodsearch/ai"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/search"
)

func main() {
	app := &cli.App{
		Name:  "wodsearch",
		Usage: "Ask questions about a workout archive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "./wodsearch_db",
				EnvVars: []string{"WODSEARCH_DB"},
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "OpenAI-compatible host URL for chat and embeddings",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"WODSEARCH_HOST"},
			},
			&cli.StringFlag{
				Name:    "chat-model",
				Usage:   "Chat model name",
				Value:   "qwen2.5:3b",
				EnvVars: []string{"WODSEARCH_CHAT_MODEL"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "embeddinggemma",
				EnvVars: []string{"WODSEARCH_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for the model host",
				EnvVars: []string{"WODSEARCH_API_KEY"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Ask a question, or start an interactive session with no arguments",
				ArgsUsage: "[question]",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "conversation",
						Aliases: []string{"c"},
						Usage:   "Conversation token to continue an earlier exchange",
					},
					&cli.StringFlag{
						Name:  "client-key",
						Usage: "Client key for rate limiting",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Show the agent's intermediate steps",
					},
					&cli.IntFlag{
						Name:  "call-budget",
						Usage: "Maximum model calls per question",
						Value: 6,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the workout archive directly",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Search mode (hybrid, lexical, vector)",
						Value:   "hybrid",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.StringSliceFlag{
						Name:  "movement",
						Usage: "Filter by movement tag (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "equipment",
						Usage: "Filter by equipment tag (repeatable)",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Filter by workout type (hero, benchmark, ...)",
					},
					&cli.TimestampFlag{
						Name:   "after",
						Usage:  "Only workouts on or after this date",
						Layout: "2006-01-02",
					},
					&cli.TimestampFlag{
						Name:   "before",
						Usage:  "Only workouts on or before this date",
						Layout: "2006-01-02",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func openService(c *cli.Context, opts ...wodsearch.ServiceOption) (*wodsearch.Service, error) {
	cfg := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAPIKey(c.String("api-key")),
	)
	opts = append(opts, wodsearch.WithAIConfig(cfg))
	return wodsearch.NewService(c.String("db"), opts...)
}

func askCommand(c *cli.Context) error {
	svc, err := openService(c,
		wodsearch.WithCallBudget(c.Int("call-budget")),
		wodsearch.WithPersistedConversations(),
	)
	if err != nil {
		return err
	}
	defer svc.Close()

	if c.Args().Present() {
		question := strings.Join(c.Args().Slice(), " ")
		_, err := ask(c.Context, svc, c, question, c.String("conversation"))
		return err
	}

	return interactiveLoop(c.Context, svc, c)
}

func ask(ctx context.Context, svc *wodsearch.Service, c *cli.Context, question, token string) (string, error) {
	resp, err := svc.Ask(ctx, agent.Request{
		Question:          question,
		ConversationToken: token,
		ClientKey:         c.String("client-key"),
		Verbose:           c.Bool("verbose"),
	})
	if err != nil {
		return token, err
	}

	if c.Bool("verbose") {
		for i, step := range resp.Steps {
			fmt.Printf("  [%d] %s", i+1, step.Action)
			if step.ToolName != "" {
				fmt.Printf(" %s(%s)", step.ToolName, step.Arguments)
			}
			if step.Err != "" {
				fmt.Printf(" error: %s", step.Err)
			}
			fmt.Println()
		}
	}

	fmt.Println(resp.Answer)
	return resp.ConversationToken, nil
}

func interactiveLoop(ctx context.Context, svc *wodsearch.Service, c *cli.Context) error {
	token := c.String("conversation")
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Ask about the workout archive. Empty line to quit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			break
		}

		newToken, err := ask(ctx, svc, c, question, token)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		token = newToken
	}
	return scanner.Err()
}

func searchCommand(c *cli.Context) error {
	if !c.Args().Present() {
		return fmt.Errorf("search requires a query argument")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	query := search.Query{
		Text:  strings.Join(c.Args().Slice(), " "),
		Mode:  search.ParseMode(c.String("mode")),
		Limit: c.Int("limit"),
	}

	filter := &core.WorkoutFilter{
		Movements:   c.StringSlice("movement"),
		Equipment:   c.StringSlice("equipment"),
		WorkoutType: c.String("type"),
	}
	if t := c.Timestamp("after"); t != nil {
		filter.StartDate = *t
	}
	if t := c.Timestamp("before"); t != nil {
		filter.EndDate = *t
	}
	if !filter.IsZero() {
		query.Filter = filter
	}

	results, err := svc.Search(c.Context, query)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: %s (%s)[%0.3f]%s\n", i+1,
			hit.Record.Title(),
			hit.Record.Date.Format(time.DateOnly),
			hit.RankScore(),
			degradedMark(hit))
	}
	return nil
}

func degradedMark(hit *core.SearchResult) string {
	if hit.Degraded {
		return " (degraded)"
	}
	return ""
}
