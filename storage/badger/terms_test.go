package badger

import (
	"slices"
	"testing"
)

func TestIndexTerms(t *testing.T) {
	terms := indexTerms("For time: 100 Pull-ups, 200 Push-ups and the 300 Squats.")
	want := []string{"time", "100", "pull-ups", "200", "push-ups", "300", "squats"}
	if !slices.Equal(terms, want) {
		t.Errorf("indexTerms = %v, want %v", terms, want)
	}
}

func TestIndexTermsDeduplicates(t *testing.T) {
	terms := indexTerms("run Run RUN")
	if len(terms) != 1 || terms[0] != "run" {
		t.Errorf("Expected single 'run' term, got %v", terms)
	}
}

func TestParseLexicalQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		terms    []string
		phrases  []string
		excluded []string
	}{
		{
			name:  "bare terms",
			query: "heavy deadlift",
			terms: []string{"heavy", "deadlift"},
		},
		{
			name:  "operators reduce to terms",
			query: "deadlift AND squat OR clean",
			terms: []string{"deadlift", "squat", "clean"},
		},
		{
			name:     "not excludes",
			query:    "clean NOT jerk",
			terms:    []string{"clean"},
			excluded: []string{"jerk"},
		},
		{
			name:    "quoted phrase",
			query:   `"clean and jerk" heavy`,
			terms:   []string{"heavy"},
			phrases: []string{"clean and jerk"},
		},
		{
			name:  "stop words dropped",
			query: "the workout of the day",
			terms: []string{"workout", "day"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := parseLexicalQuery(tt.query)
			if !slices.Equal(parsed.terms, tt.terms) {
				t.Errorf("terms = %v, want %v", parsed.terms, tt.terms)
			}
			if !slices.Equal(parsed.phrases, tt.phrases) {
				t.Errorf("phrases = %v, want %v", parsed.phrases, tt.phrases)
			}
			if !slices.Equal(parsed.excluded, tt.excluded) {
				t.Errorf("excluded = %v, want %v", parsed.excluded, tt.excluded)
			}
		})
	}
}

func TestContainsTerm(t *testing.T) {
	if !containsTerm("heavy deadlift singles", "deadlift") {
		t.Error("Expected whole-word match")
	}
	if containsTerm("deadlifting practice", "deadlift") {
		t.Error("Expected no match inside a longer word")
	}
}
