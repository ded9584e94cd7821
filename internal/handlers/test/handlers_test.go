package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	cache "plotcypher/internal/cache"
	catalog "plotcypher/internal/catalog"
	constants "plotcypher/internal/constants"
	game "plotcypher/internal/game"
	handlers "plotcypher/internal/handlers"
	session "plotcypher/internal/session"
	store "plotcypher/internal/store"
)

const testCatalog = `[
	{"ID": 1, "Name": "Alpha", "Description": "One sentence. Two sentences. Three sentences.", "ReleaseYear": 2001, "Genres": "Puzzle"},
	{"ID": 2, "Name": "Beta", "Description": "First part. Second part.", "ReleaseYear": 2002, "Genres": "RPG"},
	{"ID": 3, "Name": "Gamma", "Description": "Only one here.", "ReleaseYear": 2003, "Genres": "Action"}
]`

func newTestRouter(t *testing.T) (*gin.Engine, *handlers.API) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	for _, name := range []string{"games.json", "movies.json", "tv.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(testCatalog), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	st := store.NewMemoryStore()
	svc := catalog.NewService(
		catalog.NewFileSource(dir),
		cache.New(100, time.Minute),
		cache.NewBreaker(5, time.Second),
		cache.RetryPolicy{Attempts: 1, BaseDelay: time.Millisecond},
		time.Date(2024, 11, 8, 0, 0, 0, 0, time.UTC),
	)

	api := &handlers.API{
		Catalog:      svc,
		Engine:       game.NewEngine(st),
		Sessions:     session.NewManager(st, time.Hour),
		Store:        st,
		Cache:        cache.New(100, time.Minute),
		Breaker:      cache.NewBreaker(5, time.Second),
		Seed:         12345,
		StartTime:    time.Now(),
		CookieMaxAge: 24 * time.Hour,
	}

	router := gin.New()
	router.GET(constants.RoutePuzzle, api.PuzzleHandler)
	router.POST(constants.RouteGuess, api.GuessHandler)
	router.GET(constants.RouteSuggestions, api.SuggestionsHandler)
	router.GET(constants.RouteStats, api.StatsHandler)
	router.POST(constants.RouteStatsReset, api.ResetStatsHandler)
	router.GET(constants.RouteHealthz, api.HealthzHandler)
	return router, api
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string, cookies []*http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("Response is not JSON: %v\n%s", err, w.Body.String())
		}
	}
	return w, parsed
}

func TestPuzzleHandler(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/api/puzzle/games", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["level"].(float64) != 4 {
		t.Errorf("Fresh session should start at level 4, got %v", resp["level"])
	}
	if resp["gameOver"].(bool) {
		t.Error("Fresh session should not be game over")
	}
	if _, hasName := resp["name"]; hasName {
		t.Error("Answer name must not leak before the game ends")
	}
	if resp["description"] == nil {
		t.Error("Expected obfuscated description")
	}

	// The handler mints a session cookie on first contact.
	found := false
	for _, ck := range w.Result().Cookies() {
		if ck.Name == constants.SessionCookieName {
			found = true
		}
	}
	if !found {
		t.Error("Expected session cookie to be set")
	}
}

func TestPuzzleHandlerInvalidCategory(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/api/puzzle/music", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	if resp["error_code"] != string(constants.ErrorCodeInvalidCategory) {
		t.Errorf("Expected invalid_category, got %v", resp["error_code"])
	}
}

func TestGuessHandlerValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/api/guess", `{"category":"games"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for missing guess, got %d", w.Code)
	}
	if resp["error_code"] != string(constants.ErrorCodeInvalidRequest) {
		t.Errorf("Expected invalid_request, got %v", resp["error_code"])
	}

	w, resp = doJSON(t, router, http.MethodPost, "/api/guess", `{"category":"games","guess":"   "}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for blank guess, got %d", w.Code)
	}
	if resp["error_code"] != string(constants.ErrorCodeEmptyGuess) {
		t.Errorf("Expected empty_guess, got %v", resp["error_code"])
	}
}

func TestGuessHandlerWrongGuessDecrementsLevel(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/api/guess", `{"category":"games","guess":"definitely wrong"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["outcome"] != "wrong" {
		t.Errorf("Expected wrong outcome, got %v", resp["outcome"])
	}
	if resp["level"].(float64) != 3 {
		t.Errorf("Level should drop to 3 after one wrong guess, got %v", resp["level"])
	}
	if resp["attempts"].(float64) != 1 {
		t.Errorf("Attempts should be 1, got %v", resp["attempts"])
	}
}

func TestGuessHandlerWinFlow(t *testing.T) {
	router, api := newTestRouter(t)

	puzzle, err := api.Catalog.DailyPuzzle(context.Background(), "game", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	w, resp := doJSON(t, router, http.MethodPost, "/api/guess",
		`{"category":"games","guess":"`+strings.ToUpper(puzzle.Item.Name)+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["outcome"] != "win" {
		t.Fatalf("Expected win for correct answer, got %v", resp["outcome"])
	}
	if !resp["gameOver"].(bool) || !resp["won"].(bool) {
		t.Error("Win should end the game")
	}
	if resp["name"] != puzzle.Item.Name {
		t.Errorf("Terminal response should reveal the name, got %v", resp["name"])
	}

	// A further guess on the same session must be rejected.
	cookies := w.Result().Cookies()
	w, resp = doJSON(t, router, http.MethodPost, "/api/guess", `{"category":"games","guess":"again"}`, cookies)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for finished game, got %d", w.Code)
	}
	if resp["error_code"] != string(constants.ErrorCodeGameOver) {
		t.Errorf("Expected game_over, got %v", resp["error_code"])
	}

	// The win lands in lifetime stats.
	_, statsResp := doJSON(t, router, http.MethodGet, "/api/stats", "", nil)
	cats := statsResp["categories"].(map[string]any)
	gameStats := cats["game"].(map[string]any)
	if gameStats["gamesCompleted"].(float64) != 1 {
		t.Errorf("Expected 1 completed game, got %v", gameStats["gamesCompleted"])
	}
}

func TestSuggestionsHandlerExcludesAnswer(t *testing.T) {
	router, api := newTestRouter(t)

	puzzle, err := api.Catalog.DailyPuzzle(context.Background(), "game", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	w, resp := doJSON(t, router, http.MethodGet, "/api/suggestions/games", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	for _, s := range resp["suggestions"].([]any) {
		if s.(string) == puzzle.Item.Name {
			t.Errorf("Suggestions leaked the answer %q", puzzle.Item.Name)
		}
	}
}

func TestResetStatsHandler(t *testing.T) {
	router, api := newTestRouter(t)

	if err := api.Store.RecordResult("game", true, 2); err != nil {
		t.Fatal(err)
	}
	w, _ := doJSON(t, router, http.MethodPost, "/api/stats/reset", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	stats, err := api.Store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats["game"].Completed != 0 {
		t.Errorf("Expected stats cleared, got %+v", stats["game"])
	}
}

func TestHealthzHandler(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if resp["status"] != "ok" {
		t.Errorf("Expected ok status, got %v", resp["status"])
	}
	if resp["breaker_open"].(bool) {
		t.Error("Breaker should be closed on a fresh server")
	}
}

func TestCatalogFailureServesDegradedResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Point the source at an empty directory so every load fails.
	st := store.NewMemoryStore()
	svc := catalog.NewService(
		catalog.NewFileSource(t.TempDir()),
		cache.New(100, time.Minute),
		cache.NewBreaker(5, time.Second),
		cache.RetryPolicy{Attempts: 1, BaseDelay: time.Millisecond},
		time.Date(2024, 11, 8, 0, 0, 0, 0, time.UTC),
	)
	api := &handlers.API{
		Catalog:      svc,
		Engine:       game.NewEngine(st),
		Sessions:     session.NewManager(st, time.Hour),
		Store:        st,
		Cache:        cache.New(100, time.Minute),
		Breaker:      cache.NewBreaker(5, time.Second),
		Seed:         12345,
		StartTime:    time.Now(),
		CookieMaxAge: 24 * time.Hour,
	}
	router := gin.New()
	router.GET(constants.RoutePuzzle, api.PuzzleHandler)

	w, resp := doJSON(t, router, http.MethodGet, "/api/puzzle/games", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", w.Code)
	}
	if resp["error_code"] != string(constants.ErrorCodeNoPuzzle) {
		t.Errorf("Expected no_puzzle, got %v", resp["error_code"])
	}
}

func TestOpenBreakerServesRetryLater(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Empty catalog directory plus a threshold-1 breaker: the first failed
	// load opens the circuit, so the next request fails fast.
	st := store.NewMemoryStore()
	svc := catalog.NewService(
		catalog.NewFileSource(t.TempDir()),
		cache.New(100, time.Minute),
		cache.NewBreaker(1, time.Minute),
		cache.RetryPolicy{Attempts: 1, BaseDelay: time.Millisecond},
		time.Date(2024, 11, 8, 0, 0, 0, 0, time.UTC),
	)
	api := &handlers.API{
		Catalog:      svc,
		Engine:       game.NewEngine(st),
		Sessions:     session.NewManager(st, time.Hour),
		Store:        st,
		Cache:        cache.New(100, time.Minute),
		Breaker:      cache.NewBreaker(1, time.Minute),
		Seed:         12345,
		StartTime:    time.Now(),
		CookieMaxAge: 24 * time.Hour,
	}
	router := gin.New()
	router.GET(constants.RoutePuzzle, api.PuzzleHandler)

	w, resp := doJSON(t, router, http.MethodGet, "/api/puzzle/games", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 on the opening failure, got %d", w.Code)
	}
	if resp["error_code"] != string(constants.ErrorCodeNoPuzzle) {
		t.Errorf("Expected no_puzzle on the opening failure, got %v", resp["error_code"])
	}

	w, resp = doJSON(t, router, http.MethodGet, "/api/puzzle/games", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 while the breaker is open, got %d", w.Code)
	}
	if resp["error_code"] != string(constants.ErrorCodeRetryLater) {
		t.Errorf("Expected retry_later while the breaker is open, got %v", resp["error_code"])
	}
}
