package handlers

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"plotcypher/internal/cache"
	"plotcypher/internal/catalog"
	"plotcypher/internal/constants"
	"plotcypher/internal/cypher"
	"plotcypher/internal/game"
	"plotcypher/internal/models"
	"plotcypher/internal/session"
	"plotcypher/internal/store"
	"plotcypher/internal/util"
)

// API bundles the core services behind the HTTP surface. The UI renders
// whatever these handlers return; no game logic lives in the browser.
type API struct {
	Catalog      *catalog.Service
	Engine       *game.Engine
	Sessions     *session.Manager
	Store        store.Store
	Cache        *cache.Cache
	Breaker      *cache.Breaker
	Seed         int64
	IsProduction bool
	StartTime    time.Time
	CookieMaxAge time.Duration
}

type guessRequest struct {
	Category string `json:"category" binding:"required"`
	Guess    string `json:"guess" binding:"required"`
}

func (api *API) parseCategory(c *gin.Context, raw string) (models.Category, bool) {
	cat, ok := models.ParseCategory(raw)
	if !ok {
		util.LogWarn("Rejected unknown category: %q", raw)
		c.JSON(http.StatusBadRequest, gin.H{"error_code": constants.ErrorCodeInvalidCategory})
	}
	return cat, ok
}

// catalogError maps data-layer failures onto the degraded responses the UI
// expects: a transient retry hint while the breaker is open, otherwise
// "no puzzle available". One category failing never affects the others.
func (api *API) catalogError(c *gin.Context, cat models.Category, err error) {
	if errors.Is(err, cache.ErrCircuitOpen) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error_code": constants.ErrorCodeRetryLater})
		return
	}
	util.LogWarn("No puzzle available for %s: %v", cat, err)
	c.JSON(http.StatusServiceUnavailable, gin.H{"error_code": constants.ErrorCodeNoPuzzle})
}

// withSession resolves the session cookie and runs fn under the session's
// lock, so concurrent requests for the same player serialize their state
// access. fn writes the response itself.
func (api *API) withSession(c *gin.Context, now time.Time, fn func(sessionID string, states map[models.Category]*models.GameState)) {
	sessionID := session.GetOrCreate(c, api.CookieMaxAge, api.IsProduction)
	err := api.Sessions.WithStates(sessionID, now, func(states map[models.Category]*models.GameState) error {
		fn(sessionID, states)
		return nil
	})
	if err != nil {
		util.LogWarn("Failed to load states for session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error_code": constants.ErrorCodeInvalidRequest})
	}
}

// PuzzleHandler serves the day's puzzle for a category, with the
// description obfuscated to the session's current level.
func (api *API) PuzzleHandler(c *gin.Context) {
	cat, ok := api.parseCategory(c, c.Param("category"))
	if !ok {
		return
	}
	now := time.Now()

	puzzle, err := api.Catalog.DailyPuzzle(c.Request.Context(), cat, now)
	if err != nil {
		api.catalogError(c, cat, err)
		return
	}

	api.withSession(c, now, func(_ string, states map[models.Category]*models.GameState) {
		st := states[cat]
		resp := gin.H{
			"category":          cat,
			"puzzleId":          puzzle.ItemID,
			"releaseYear":       puzzle.Item.ReleaseYear,
			"genre":             puzzle.Item.Genre,
			"level":             st.Level,
			"attempts":          st.Attempts,
			"attemptsRemaining": game.AttemptsRemaining(st),
			"gameOver":          st.GameOver,
			"won":               st.Won,
		}
		if st.GameOver {
			resp["description"] = cypher.Sentences(puzzle.Item.Description)
			resp["name"] = puzzle.Item.Name
		} else {
			resp["description"] = cypher.Obfuscate(puzzle.Item.Description, max(0, st.Level), api.Seed)
		}
		c.JSON(http.StatusOK, resp)
	})
}

// GuessHandler evaluates one guess against the day's answer.
func (api *API) GuessHandler(c *gin.Context) {
	var req guessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": constants.ErrorCodeInvalidRequest})
		return
	}
	cat, ok := api.parseCategory(c, req.Category)
	if !ok {
		return
	}
	if game.Normalize(req.Guess) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": constants.ErrorCodeEmptyGuess})
		return
	}
	now := time.Now()

	puzzle, err := api.Catalog.DailyPuzzle(c.Request.Context(), cat, now)
	if err != nil {
		api.catalogError(c, cat, err)
		return
	}

	api.withSession(c, now, func(sessionID string, states map[models.Category]*models.GameState) {
		st := states[cat]
		outcome, err := api.Engine.SubmitGuess(sessionID, cat, st, req.Guess, puzzle.Item.Name, now)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error_code": constants.ErrorCodeGameOver})
			return
		}
		util.LogInfo("Session %s guessed on %s: %s (attempt %d)", sessionID, cat, outcome, st.Attempts)

		resp := gin.H{
			"outcome":           outcome.String(),
			"category":          cat,
			"level":             st.Level,
			"attempts":          st.Attempts,
			"attemptsRemaining": game.AttemptsRemaining(st),
			"gameOver":          st.GameOver,
			"won":               st.Won,
		}
		if st.GameOver {
			resp["name"] = puzzle.Item.Name
		}
		c.JSON(http.StatusOK, resp)
	})
}

// SuggestionsHandler returns the autocomplete list: every catalog name for
// the category except today's answer.
func (api *API) SuggestionsHandler(c *gin.Context) {
	cat, ok := api.parseCategory(c, c.Param("category"))
	if !ok {
		return
	}
	names, err := api.Catalog.Suggestions(c.Request.Context(), cat, time.Now())
	if err != nil {
		api.catalogError(c, cat, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": cat, "suggestions": names})
}

// StatsHandler serves lifetime per-category results.
func (api *API) StatsHandler(c *gin.Context) {
	stats, err := api.Store.Stats()
	if err != nil {
		util.LogWarn("Failed to load stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error_code": constants.ErrorCodeInvalidRequest})
		return
	}
	reports := make(map[models.Category]models.StatsReport, len(stats))
	for cat, cs := range stats {
		reports[cat] = cs.Report()
	}
	c.JSON(http.StatusOK, gin.H{"categories": reports})
}

// ResetStatsHandler clears lifetime stats on the player's explicit request.
func (api *API) ResetStatsHandler(c *gin.Context) {
	if err := api.Store.ResetStats(); err != nil {
		util.LogWarn("Failed to reset stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error_code": constants.ErrorCodeInvalidRequest})
		return
	}
	util.LogInfo("Stats reset")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (api *API) HealthzHandler(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(api.StartTime)
	sizes := api.Catalog.Sizes()

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"env":             map[bool]string{true: "production", false: "development"}[api.IsProduction],
		"catalogs":        sizes,
		"active_sessions": api.Sessions.Len(),
		"cache":           api.Cache.Stats(),
		"breaker_open":    api.Breaker.Open(),
		"memory_alloc_mb": m.Alloc / 1024 / 1024,
		"memory_sys_mb":   m.Sys / 1024 / 1024,
		"memory_gc_count": m.NumGC,
		"uptime":          util.FormatUptime(uptime),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}
