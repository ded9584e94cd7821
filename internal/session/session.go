package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"plotcypher/internal/constants"
	"plotcypher/internal/daily"
	"plotcypher/internal/game"
	"plotcypher/internal/models"
	"plotcypher/internal/store"
	"plotcypher/internal/util"
)

// GetOrCreate resolves the player's session cookie, minting a new one when
// absent or malformed.
func GetOrCreate(c *gin.Context, maxAge time.Duration, secure bool) string {
	sessionID, err := c.Cookie(constants.SessionCookieName)
	if err != nil || len(sessionID) < 10 {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(constants.SessionCookieName, sessionID, int(maxAge.Seconds()), "/", "", secure, true)
		util.LogInfo("Created new session: %s", sessionID)
	}
	return sessionID
}

// entry carries one session's player state plus the lock that serializes
// access to it. The manager's mutex guards only the sessions map; game
// state is read and mutated under the entry lock.
type entry struct {
	mu     sync.Mutex
	player *models.PlayerState
}

// Manager keeps per-session game states in memory, hydrating each session
// from the store on first touch and again whenever the UTC day rolls over.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	store    store.Store
	ttl      time.Duration
}

func NewManager(st store.Store, ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		store:    st,
		ttl:      ttl,
	}
}

// WithStates hydrates the session for the current day and runs fn while
// holding the session's lock, so concurrent requests bearing the same
// cookie apply their reads and guesses one at a time.
func (m *Manager) WithStates(sessionID string, now time.Time, fn func(states map[models.Category]*models.GameState) error) error {
	e, err := m.resolve(sessionID, now)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.player.States)
}

// resolve returns the session's entry for today, creating fresh Active(4)
// states for categories not yet played today. Lock order is always the
// manager mutex before an entry mutex.
func (m *Manager) resolve(sessionID string, now time.Time) (*entry, error) {
	today := daily.DayString(now)

	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if ok {
		e.mu.Lock()
		if e.player.PlayedOn == today {
			e.player.LastAccessTime = now
			e.mu.Unlock()
			return e, nil
		}
		e.mu.Unlock()
	}

	stored, err := m.store.PlayerState(sessionID, today)
	if err != nil {
		return nil, err
	}
	for _, cat := range models.Categories {
		if stored[cat] == nil {
			stored[cat] = game.NewState()
		}
	}
	player := &models.PlayerState{
		States:         stored,
		PlayedOn:       today,
		LastAccessTime: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A concurrent request may have hydrated this session already; reuse
	// its entry so both callers serialize on the same lock.
	if cur, exists := m.sessions[sessionID]; exists {
		cur.mu.Lock()
		if cur.player.PlayedOn != today {
			util.LogInfo("Daily rollover for session %s, fresh states for %s", sessionID, today)
			cur.player = player
		} else {
			cur.player.LastAccessTime = now
		}
		cur.mu.Unlock()
		return cur, nil
	}

	util.LogInfo("Hydrated session %s for %s", sessionID, today)
	e = &entry{player: player}
	m.sessions[sessionID] = e
	return e, nil
}

// CleanupExpired drops sessions idle past the TTL.
func (m *Manager) CleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.ttl)
	removed := 0
	for id, e := range m.sessions {
		e.mu.Lock()
		stale := e.player.LastAccessTime.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		util.LogInfo("Cleaned up %d stale sessions", removed)
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
