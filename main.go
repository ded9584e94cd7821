package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"

	ginGzip "github.com/gin-contrib/gzip"

	"github.com/gin-gonic/gin"

	"golang.org/x/time/rate"

	"plotcypher/internal/cache"
	"plotcypher/internal/catalog"
	"plotcypher/internal/constants"
	"plotcypher/internal/game"
	"plotcypher/internal/handlers"
	"plotcypher/internal/session"
	"plotcypher/internal/store"
	"plotcypher/internal/util"
)

type RateLimiterWithTime struct {
	Limiter    *rate.Limiter
	LastAccess time.Time
}

type App struct {
	IsProduction   bool
	CookieMaxAge   time.Duration
	StaticCacheAge time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	RateLimiterTTL time.Duration
	SessionTTL     time.Duration
	LimiterMap     map[string]*RateLimiterWithTime
	LimiterMutex   sync.RWMutex
}

func main() {
	_ = godotenv.Load()

	isProduction := os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production"
	util.LogInfo("Starting Plotcypher in %s mode", map[bool]string{true: "production", false: "development"}[isProduction])

	testingMode := util.GetEnvBool("TESTING_MODE", false)
	startDate, err := time.Parse("2006-01-02", util.GetEnvString("START_DATE", constants.LaunchDate))
	if err != nil {
		util.LogFatal("Invalid START_DATE: %v", err)
	}

	var st store.Store
	if testingMode {
		util.LogInfo("Testing mode enabled, state will not be persisted")
		st = store.NewMemoryStore()
	} else {
		dbPath := util.GetEnvString("DB_PATH", "plotcypher.db")
		sqlite, err := store.NewSqliteStore(dbPath)
		if err != nil {
			util.LogFatal("Failed to open store at %s: %v", dbPath, err)
		}
		if err := sqlite.ApplyMigrations(); err != nil {
			util.LogFatal("Failed to apply migrations: %v", err)
		}
		util.LogInfo("Opened store at %s", dbPath)
		st = sqlite
	}
	defer func() {
		if err := st.Close(); err != nil {
			util.LogWarn("Failed to close store: %v", err)
		}
	}()

	dataCache := cache.New(
		util.GetEnvInt("CACHE_MAX_ENTRIES", cache.DefaultMaxEntries),
		util.GetEnvDuration("CACHE_TTL", cache.DefaultTTL),
	)
	breaker := cache.NewBreaker(
		util.GetEnvInt("BREAKER_THRESHOLD", cache.DefaultBreakerThreshold),
		util.GetEnvDuration("BREAKER_RESET_TIMEOUT", cache.DefaultBreakerResetTimeout),
	)
	retryPolicy := cache.RetryPolicy{
		Attempts:  uint(util.GetEnvInt("MAX_RETRIES", cache.DefaultRetryAttempts)),
		BaseDelay: util.GetEnvDuration("RETRY_BASE_DELAY", cache.DefaultRetryDelay),
	}

	catalogDir := util.GetEnvString("CATALOG_DIR", "data")
	var source catalog.Source
	if baseURL := os.Getenv("CATALOG_BASE_URL"); baseURL != "" {
		util.LogInfo("Loading catalogs from %s", baseURL)
		source = catalog.NewHTTPSource(baseURL, util.GetEnvDuration("FETCH_TIMEOUT", catalog.DefaultFetchTimeout))
	} else {
		if !util.DirExists(catalogDir) {
			util.LogWarn("Catalog directory %s does not exist", catalogDir)
		}
		util.LogInfo("Loading catalogs from %s/", catalogDir)
		source = catalog.NewFileSource(catalogDir)
	}

	svc := catalog.NewService(source, dataCache, breaker, retryPolicy, startDate)

	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 30*time.Second)
	svc.Warm(warmCtx)
	cancelWarm()

	sessions := session.NewManager(st, util.GetEnvDuration("SESSION_TTL", 3*time.Hour))
	engine := game.NewEngine(st)

	app := &App{
		IsProduction:   isProduction,
		CookieMaxAge:   util.GetEnvDuration("COOKIE_MAX_AGE", 24*time.Hour),
		StaticCacheAge: util.GetEnvDuration("STATIC_CACHE_AGE", 5*time.Minute),
		RateLimitRPS:   util.GetEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: util.GetEnvInt("RATE_LIMIT_BURST", 10),
		RateLimiterTTL: util.GetEnvDuration("RATE_LIMITER_TTL", 1*time.Hour),
		SessionTTL:     util.GetEnvDuration("SESSION_TTL", 3*time.Hour),
		LimiterMap:     make(map[string]*RateLimiterWithTime),
	}

	api := &handlers.API{
		Catalog:      svc,
		Engine:       engine,
		Sessions:     sessions,
		Store:        st,
		Cache:        dataCache,
		Breaker:      breaker,
		Seed:         int64(util.GetEnvInt("OBFUSCATION_SEED", constants.ObfuscationSeed)),
		IsProduction: isProduction,
		StartTime:    time.Now(),
		CookieMaxAge: app.CookieMaxAge,
	}

	router := gin.Default()

	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(app.csrfMiddleware())
	router.Use(app.validateCSRFMiddleware())

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		util.LogWarn("Failed to set trusted proxies: %v", err)
	}

	router.Use(func(c *gin.Context) {
		app.applyCacheHeaders(c)
	})

	if util.DirExists(catalogDir) {
		router.Static("/data", "./"+catalogDir)
	}

	router.GET(constants.RoutePuzzle, api.PuzzleHandler)
	router.POST(constants.RouteGuess, app.rateLimitMiddleware(), api.GuessHandler)
	router.GET(constants.RouteSuggestions, api.SuggestionsHandler)
	router.GET(constants.RouteStats, api.StatsHandler)
	router.POST(constants.RouteStatsReset, app.rateLimitMiddleware(), api.ResetStatsHandler)
	router.GET(constants.RouteHealthz, api.HealthzHandler)

	app.startCleanupRoutines(sessions)

	app.startServer(router)
}

func (app *App) applyCacheHeaders(c *gin.Context) {
	if app.IsProduction && strings.HasPrefix(c.Request.URL.Path, "/data/") {
		cachecontrol.New(cachecontrol.Config{
			Public: true,
			MaxAge: cachecontrol.Duration(app.StaticCacheAge),
		})(c)
		c.Header("Vary", "Accept-Encoding")
		return
	}
	cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})(c)
}

func (app *App) startCleanupRoutines(sessions *session.Manager) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			sessions.CleanupExpired()
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			app.cleanupStaleRateLimiters()
		}
	}()

	util.LogInfo("Started cleanup routines for sessions and rate limiters")
}

func (app *App) cleanupStaleRateLimiters() {
	app.LimiterMutex.Lock()
	defer app.LimiterMutex.Unlock()

	cutoffTime := time.Now().Add(-app.RateLimiterTTL)
	removedCount := 0

	for key, limWithTime := range app.LimiterMap {
		if limWithTime.LastAccess.Before(cutoffTime) {
			delete(app.LimiterMap, key)
			removedCount++
		}
	}

	if removedCount > 0 {
		util.LogInfo("Cleaned up %d stale rate limiters", removedCount)
	}
}

func (app *App) startServer(router *gin.Engine) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		util.LogInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			util.LogWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	util.LogInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		util.LogFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	util.LogInfo("Server shutdown complete")
}
