package models

import (
	"strings"
	"time"
)

// Category is one of the three independent daily puzzle tracks.
type Category string

const (
	CategoryGame  Category = "game"
	CategoryMovie Category = "movie"
	CategoryTV    Category = "tv"
)

// Categories lists every track in display order.
var Categories = []Category{CategoryGame, CategoryMovie, CategoryTV}

var categoryAliases = map[string]Category{
	"game":    CategoryGame,
	"games":   CategoryGame,
	"movie":   CategoryMovie,
	"movies":  CategoryMovie,
	"film":    CategoryMovie,
	"films":   CategoryMovie,
	"tv":      CategoryTV,
	"tvshow":  CategoryTV,
	"tvshows": CategoryTV,
	"show":    CategoryTV,
	"shows":   CategoryTV,
	"series":  CategoryTV,
}

// ParseCategory maps a raw category name, including common synonyms, to its
// canonical key.
func ParseCategory(raw string) (Category, bool) {
	cat, ok := categoryAliases[strings.ToLower(strings.TrimSpace(raw))]
	return cat, ok
}

// SourceFile is the name of the static JSON document holding this
// category's catalog.
func (c Category) SourceFile() string {
	switch c {
	case CategoryGame:
		return "games.json"
	case CategoryMovie:
		return "movies.json"
	default:
		return "tv.json"
	}
}

// RawMediaItem mirrors a catalog record as it appears on the wire. Records
// may carry the release year in either ReleaseYear or the older Year field.
type RawMediaItem struct {
	ID          int    `json:"ID"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
	ReleaseYear int    `json:"ReleaseYear"`
	Year        int    `json:"Year"`
	Genres      string `json:"Genres"`
}

// MediaItem is a validated, normalized catalog entry. Immutable once loaded.
type MediaItem struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ReleaseYear int    `json:"releaseYear"`
	Genre       string `json:"genre"`
}

// DailyPuzzle is the single active puzzle for a category on a given day.
// Derived from the catalog, never persisted.
type DailyPuzzle struct {
	Category Category  `json:"category"`
	ItemID   int       `json:"itemId"`
	Item     MediaItem `json:"item"`
}

// GameState tracks one category's progress for one session on one day.
// Level starts at 4 and decrements on each wrong guess down to -1.
type GameState struct {
	Level    int  `json:"level"`
	Attempts int  `json:"attempts"`
	GameOver bool `json:"gameOver"`
	Won      bool `json:"won"`
}

// CategoryStats accumulates lifetime results for one category.
// Attempts counts completed games, TotalAttempts sums the guesses
// taken across wins.
type CategoryStats struct {
	Completed     int `json:"completed" db:"completed"`
	Attempts      int `json:"attempts" db:"attempts"`
	TotalAttempts int `json:"totalAttempts" db:"total_attempts"`
}

// StatsReport is the derived view served to the UI.
type StatsReport struct {
	GamesPlayed     int     `json:"gamesPlayed"`
	GamesCompleted  int     `json:"gamesCompleted"`
	SuccessRate     float64 `json:"successRate"`
	AverageAttempts float64 `json:"averageAttempts"`
}

// Report computes the derived stats view. Rates are zero when no games have
// been recorded yet.
func (s CategoryStats) Report() StatsReport {
	r := StatsReport{
		GamesPlayed:    s.Attempts,
		GamesCompleted: s.Completed,
	}
	if s.Attempts > 0 {
		r.SuccessRate = float64(s.Completed) / float64(s.Attempts) * 100
	}
	if s.Completed > 0 {
		r.AverageAttempts = float64(s.TotalAttempts) / float64(s.Completed)
	}
	return r
}

// PlayerState is one session's per-category game states, tagged with the
// day they belong to.
type PlayerState struct {
	States         map[Category]*GameState
	PlayedOn       string
	LastAccessTime time.Time
}
