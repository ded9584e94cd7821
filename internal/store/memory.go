package store

import (
	"sync"

	"plotcypher/internal/models"
)

// MemoryStore is the non-persistent testing-mode store: state lives only
// for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]map[models.Category]stateRecord
	stats  map[models.Category]models.CategoryStats
}

type stateRecord struct {
	state    models.GameState
	playedOn string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]map[models.Category]stateRecord),
		stats:  make(map[models.Category]models.CategoryStats),
	}
}

func (m *MemoryStore) PlayerState(sessionID, today string) (map[models.Category]*models.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[models.Category]*models.GameState)
	for cat, rec := range m.states[sessionID] {
		if rec.playedOn != today {
			continue
		}
		st := rec.state
		states[cat] = &st
	}
	return states, nil
}

func (m *MemoryStore) SaveState(sessionID string, cat models.Category, st models.GameState, playedOn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.states[sessionID] == nil {
		m.states[sessionID] = make(map[models.Category]stateRecord)
	}
	m.states[sessionID][cat] = stateRecord{state: st, playedOn: playedOn}
	return nil
}

func (m *MemoryStore) RecordResult(cat models.Category, win bool, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := m.stats[cat]
	cs.Attempts++
	if win {
		cs.Completed++
		cs.TotalAttempts += attempts
	}
	m.stats[cat] = cs
	return nil
}

func (m *MemoryStore) Stats() (map[models.Category]models.CategoryStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[models.Category]models.CategoryStats, len(models.Categories))
	for _, cat := range models.Categories {
		stats[cat] = m.stats[cat]
	}
	return stats, nil
}

func (m *MemoryStore) ResetStats() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = make(map[models.Category]models.CategoryStats)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
