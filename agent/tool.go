package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/repforge/wodsearch/ai"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/search"
)

const (
	searchToolName     = "search"
	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

// searchToolSpec declares the single tool exposed to the model.
func searchToolSpec() ai.ToolSpec {
	return ai.ToolSpec{
		Name:        searchToolName,
		Description: "Search the historical workout archive by meaning and keywords. Supports quoted phrases and AND/OR/NOT operators in the query.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for",
				},
				"mode": map[string]any{
					"type":        "string",
					"enum":        []string{"hybrid", "lexical", "vector"},
					"description": "Retrieval mode, default hybrid",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum results, default 5",
				},
				"filters": map[string]any{
					"type":        "object",
					"description": "Structured metadata filters",
					"properties": map[string]any{
						"movements": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"equipment": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"workout_type": map[string]any{"type": "string"},
						"start_date": map[string]any{
							"type":        "string",
							"description": "YYYY-MM-DD",
						},
						"end_date": map[string]any{
							"type":        "string",
							"description": "YYYY-MM-DD",
						},
					},
				},
			},
			"required": []string{"query"},
		},
	}
}

// searchArgs is the wire shape of model-supplied tool arguments.
type searchArgs struct {
	Query   string `json:"query"`
	Mode    string `json:"mode"`
	Limit   int    `json:"limit"`
	Filters *struct {
		Movements   []string `json:"movements"`
		Equipment   []string `json:"equipment"`
		WorkoutType string   `json:"workout_type"`
		StartDate   string   `json:"start_date"`
		EndDate     string   `json:"end_date"`
	} `json:"filters"`
}

// parseSearchArgs validates model-supplied arguments into a search query.
func parseSearchArgs(arguments string) (search.Query, error) {
	var args searchArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return search.Query{}, fmt.Errorf("malformed tool arguments: %w", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return search.Query{}, fmt.Errorf("tool arguments missing query")
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	query := search.Query{
		Text:  args.Query,
		Mode:  search.ParseMode(args.Mode),
		Limit: limit,
	}

	if args.Filters != nil {
		filter := &core.WorkoutFilter{
			Movements:   args.Filters.Movements,
			Equipment:   args.Filters.Equipment,
			WorkoutType: args.Filters.WorkoutType,
		}
		if args.Filters.StartDate != "" {
			d, err := time.Parse("2006-01-02", args.Filters.StartDate)
			if err != nil {
				return search.Query{}, fmt.Errorf("bad start_date: %w", err)
			}
			filter.StartDate = d.UTC()
		}
		if args.Filters.EndDate != "" {
			d, err := time.Parse("2006-01-02", args.Filters.EndDate)
			if err != nil {
				return search.Query{}, fmt.Errorf("bad end_date: %w", err)
			}
			filter.EndDate = d.UTC()
		}
		query.Filter = filter
	}

	return query, nil
}

// observationItem is one search hit serialized into the transcript.
type observationItem struct {
	Date     string   `json:"date"`
	Name     string   `json:"name,omitempty"`
	Workout  string   `json:"workout"`
	Scaling  string   `json:"scaling,omitempty"`
	Type     string   `json:"type,omitempty"`
	Score    float32  `json:"score"`
	Degraded bool     `json:"degraded,omitempty"`
	Tags     []string `json:"movements,omitempty"`
}

// serializeResults renders search results as the observation fed back to
// the model.
func serializeResults(results []*core.SearchResult) string {
	if len(results) == 0 {
		return `{"results":[]}`
	}

	items := make([]observationItem, 0, len(results))
	for _, result := range results {
		items = append(items, observationItem{
			Date:     result.Record.Date.Format("2006-01-02"),
			Name:     result.Record.Name,
			Workout:  result.Record.Workout,
			Scaling:  result.Record.Scaling,
			Type:     result.Record.WorkoutType,
			Score:    result.RankScore(),
			Degraded: result.Degraded,
			Tags:     result.Record.Movements,
		})
	}

	encoded, err := json.Marshal(map[string]any{"results": items})
	if err != nil {
		return `{"results":[]}`
	}
	return string(encoded)
}

// synthesizeBestEffort builds an answer from gathered observations when the
// model-call budget runs out before a final answer.
func synthesizeBestEffort(observations []string) string {
	var items []observationItem
	for _, obs := range observations {
		var decoded struct {
			Results []observationItem `json:"results"`
		}
		if err := json.Unmarshal([]byte(obs), &decoded); err == nil {
			items = append(items, decoded.Results...)
		}
	}
	if len(items) == 0 {
		return emptyBestEffortAnswer
	}

	var b strings.Builder
	b.WriteString("I ran out of time to fully reason about your question, but here is what my search turned up:\n")
	for i, item := range items {
		if i >= defaultSearchLimit {
			break
		}
		b.WriteString("\n- ")
		b.WriteString(item.Date)
		if item.Name != "" {
			b.WriteString(" (")
			b.WriteString(item.Name)
			b.WriteString(")")
		}
		b.WriteString(": ")
		b.WriteString(item.Workout)
	}
	return b.String()
}
