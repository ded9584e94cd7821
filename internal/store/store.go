package store

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"plotcypher/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the localStorage equivalent: per-session daily game state plus
// lifetime per-category stats.
type Store interface {
	// PlayerState loads the session's per-category states for today.
	// Rows tagged with an earlier day are ignored, which is the daily
	// rollover: the caller gets nil for categories not yet played today.
	PlayerState(sessionID, today string) (map[models.Category]*models.GameState, error)
	SaveState(sessionID string, cat models.Category, st models.GameState, playedOn string) error
	RecordResult(cat models.Category, win bool, attempts int) error
	Stats() (map[models.Category]models.CategoryStats, error)
	ResetStats() error
	Close() error
}

type SqliteStore struct {
	DB *sqlx.DB
}

func NewSqliteStore(dsn string) (*SqliteStore, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &SqliteStore{DB: db}, nil
}

func (s *SqliteStore) ApplyMigrations() error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return err
	}

	return goose.Up(s.DB.DB, "migrations")
}

type playerStateRow struct {
	SessionID string `db:"session_id"`
	Category  string `db:"category"`
	Level     int    `db:"level"`
	Attempts  int    `db:"attempts"`
	GameOver  bool   `db:"game_over"`
	Won       bool   `db:"won"`
	PlayedOn  string `db:"played_on"`
}

func (s *SqliteStore) PlayerState(sessionID, today string) (map[models.Category]*models.GameState, error) {
	rows := []playerStateRow{}
	err := s.DB.Select(&rows,
		"SELECT session_id, category, level, attempts, game_over, won, played_on FROM player_states WHERE session_id = ? AND played_on = ?",
		sessionID, today)
	if err != nil {
		return nil, err
	}

	states := make(map[models.Category]*models.GameState, len(rows))
	for _, row := range rows {
		cat, ok := models.ParseCategory(row.Category)
		if !ok {
			continue
		}
		states[cat] = &models.GameState{
			Level:    row.Level,
			Attempts: row.Attempts,
			GameOver: row.GameOver,
			Won:      row.Won,
		}
	}
	return states, nil
}

func (s *SqliteStore) SaveState(sessionID string, cat models.Category, st models.GameState, playedOn string) error {
	query := `
	INSERT INTO player_states (session_id, category, level, attempts, game_over, won, played_on)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (session_id, category) DO UPDATE SET
	level = excluded.level,
	attempts = excluded.attempts,
	game_over = excluded.game_over,
	won = excluded.won,
	played_on = excluded.played_on
	`
	_, err := s.DB.Exec(query, sessionID, string(cat), st.Level, st.Attempts, st.GameOver, st.Won, playedOn)
	return err
}

func (s *SqliteStore) RecordResult(cat models.Category, win bool, attempts int) error {
	completed := 0
	total := 0
	if win {
		completed = 1
		total = attempts
	}
	query := `
	INSERT INTO category_stats (category, completed, attempts, total_attempts)
	VALUES (?, ?, 1, ?)
	ON CONFLICT (category) DO UPDATE SET
	completed = completed + excluded.completed,
	attempts = attempts + 1,
	total_attempts = total_attempts + excluded.total_attempts
	`
	_, err := s.DB.Exec(query, string(cat), completed, total)
	return err
}

func (s *SqliteStore) Stats() (map[models.Category]models.CategoryStats, error) {
	stats := make(map[models.Category]models.CategoryStats, len(models.Categories))
	for _, cat := range models.Categories {
		var cs models.CategoryStats
		err := s.DB.Get(&cs,
			"SELECT completed, attempts, total_attempts FROM category_stats WHERE category = ?",
			string(cat))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		stats[cat] = cs
	}
	return stats, nil
}

func (s *SqliteStore) ResetStats() error {
	_, err := s.DB.Exec("DELETE FROM category_stats")
	return err
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}
