package core

import (
	"strings"
	"testing"
	"time"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "plain content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "date key", content: "2020-05-18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestScore_ZeroValueIsAbsent(t *testing.T) {
	var s Score
	if s.Valid() {
		t.Error("zero Score should be absent")
	}
	if s.Value() != 0 {
		t.Errorf("absent Score value = %f, want 0", s.Value())
	}
	if s.Or(0.5) != 0.5 {
		t.Errorf("absent Score Or(0.5) = %f, want 0.5", s.Or(0.5))
	}
}

func TestScore_Present(t *testing.T) {
	s := SomeScore(0.42)
	if !s.Valid() {
		t.Error("SomeScore should be present")
	}
	if s.Value() != 0.42 {
		t.Errorf("Score value = %f, want 0.42", s.Value())
	}
	if s.Or(0.5) != 0.42 {
		t.Errorf("present Score Or(0.5) = %f, want 0.42", s.Or(0.5))
	}
}

func TestSearchResult_RankScore(t *testing.T) {
	r := &SearchResult{Lexical: SomeScore(0.3)}
	if r.RankScore() != 0.3 {
		t.Errorf("lexical-only RankScore = %f, want 0.3", r.RankScore())
	}

	r.Vector = SomeScore(0.8)
	if r.RankScore() != 0.8 {
		t.Errorf("vector RankScore = %f, want 0.8", r.RankScore())
	}

	r.Fused = SomeScore(0.65)
	if r.RankScore() != 0.65 {
		t.Errorf("fused RankScore = %f, want 0.65", r.RankScore())
	}
}

func TestWorkoutRecord_SearchText(t *testing.T) {
	w := &WorkoutRecord{
		Name:    "Murph",
		Workout: "1 mile run, 100 pull-ups, 200 push-ups, 300 squats, 1 mile run",
		Scaling: "Partition the reps as needed.",
		Summary: "A hero workout honoring Lt. Michael Murphy.",
	}

	text := w.SearchText()
	for _, want := range []string{"Murph", "pull-ups", "Partition", "hero workout"} {
		if !strings.Contains(text, want) {
			t.Errorf("SearchText() missing %q", want)
		}
	}
}

func TestWorkoutFilter_Matches(t *testing.T) {
	record := &WorkoutRecord{
		Date:        time.Date(2020, 5, 18, 0, 0, 0, 0, time.UTC),
		Name:        "Murph",
		Workout:     "run and pull-ups",
		Movements:   []string{"run", "pull-up", "push-up"},
		Equipment:   []string{"pull-up bar"},
		WorkoutType: "hero",
	}

	tests := []struct {
		name   string
		filter WorkoutFilter
		want   bool
	}{
		{"zero filter matches", WorkoutFilter{}, true},
		{"movement hit", WorkoutFilter{Movements: []string{"pull-up"}}, true},
		{"movement miss", WorkoutFilter{Movements: []string{"snatch"}}, false},
		{"any-of movement", WorkoutFilter{Movements: []string{"snatch", "run"}}, true},
		{"equipment hit", WorkoutFilter{Equipment: []string{"pull-up bar"}}, true},
		{"type miss", WorkoutFilter{WorkoutType: "benchmark"}, false},
		{"name hit", WorkoutFilter{Name: "Murph"}, true},
		{
			"date range hit",
			WorkoutFilter{
				StartDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
			},
			true,
		},
		{
			"date range miss",
			WorkoutFilter{StartDate: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(record); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConversation_Clone(t *testing.T) {
	now := time.Now().UTC()
	conv := &Conversation{
		Token:        "tok",
		Messages:     []ConversationMessage{{Role: RoleUser, Content: "hi", Timestamp: now}},
		CreatedAt:    now,
		LastActivity: now,
	}

	clone := conv.Clone()
	clone.Messages[0].Content = "changed"

	if conv.Messages[0].Content != "hi" {
		t.Error("Clone() did not deep copy messages")
	}
}
