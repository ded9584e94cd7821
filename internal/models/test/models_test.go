package main

import (
	"testing"

	models "plotcypher/internal/models"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Category
		ok   bool
	}{
		{"game", models.CategoryGame, true},
		{"games", models.CategoryGame, true},
		{"Movie", models.CategoryMovie, true},
		{"FILMS", models.CategoryMovie, true},
		{" tv ", models.CategoryTV, true},
		{"series", models.CategoryTV, true},
		{"music", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := models.ParseCategory(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSourceFile(t *testing.T) {
	tests := []struct {
		cat  models.Category
		want string
	}{
		{models.CategoryGame, "games.json"},
		{models.CategoryMovie, "movies.json"},
		{models.CategoryTV, "tv.json"},
	}
	for _, tt := range tests {
		if got := tt.cat.SourceFile(); got != tt.want {
			t.Errorf("%s.SourceFile() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestCategoryStatsReport(t *testing.T) {
	empty := models.CategoryStats{}.Report()
	if empty.SuccessRate != 0 || empty.AverageAttempts != 0 {
		t.Errorf("Empty stats should report zero rates, got %+v", empty)
	}

	r := models.CategoryStats{Completed: 2, Attempts: 4, TotalAttempts: 6}.Report()
	if r.GamesPlayed != 4 || r.GamesCompleted != 2 {
		t.Errorf("Unexpected counts in report: %+v", r)
	}
	if r.SuccessRate != 50 {
		t.Errorf("SuccessRate = %v, want 50", r.SuccessRate)
	}
	if r.AverageAttempts != 3 {
		t.Errorf("AverageAttempts = %v, want 3", r.AverageAttempts)
	}
}
