package constants

type ContextKey string

const (
	// MaxLevel is the starting level for a fresh daily puzzle; the player
	// has MaxLevel+1 attempts before the game is lost.
	MaxLevel = 4
	MinLevel = -1
)

const (
	// ObfuscationSeed feeds the generator that masks descriptions. Changing
	// it changes every masked character for every puzzle.
	ObfuscationSeed = 12345

	// LaunchDate anchors the daily rotation through each catalog.
	LaunchDate = "2024-11-08"
)

const (
	SessionCookieName = "session_id"
)

const (
	RoutePuzzle      = "/api/puzzle/:category"
	RouteGuess       = "/api/guess"
	RouteSuggestions = "/api/suggestions/:category"
	RouteStats       = "/api/stats"
	RouteStatsReset  = "/api/stats/reset"
	RouteHealthz     = "/healthz"
)

const (
	ErrorCodeInvalidCategory = "invalid_category"
	ErrorCodeInvalidRequest  = "invalid_request"
	ErrorCodeEmptyGuess      = "empty_guess"
	ErrorCodeGameOver        = "game_over"
	ErrorCodeNoPuzzle        = "no_puzzle"
	ErrorCodeRetryLater      = "retry_later"
)

const (
	RequestIDKey ContextKey = "request_id"
)
