package game

import (
	"errors"
	"strings"
	"time"

	"plotcypher/internal/constants"
	"plotcypher/internal/daily"
	"plotcypher/internal/models"
	"plotcypher/internal/util"
)

// ErrGameOver guards guesses submitted after a category's daily puzzle has
// already finished.
var ErrGameOver = errors.New(constants.ErrorCodeGameOver)

// Outcome is the result of a single submitted guess.
type Outcome int

const (
	OutcomeWrong Outcome = iota
	OutcomeWin
	OutcomeLoss
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	default:
		return "wrong"
	}
}

// Recorder receives state snapshots on every transition and final results
// on terminal ones. The store layer implements it; a nil Recorder disables
// persistence for tests.
type Recorder interface {
	SaveState(sessionID string, cat models.Category, st models.GameState, playedOn string) error
	RecordResult(cat models.Category, win bool, attempts int) error
}

// Engine applies guesses to per-category game states and notifies the
// persistence collaborator.
type Engine struct {
	rec Recorder
}

func NewEngine(rec Recorder) *Engine {
	return &Engine{rec: rec}
}

// NewState is the initial Active state: level 4, no attempts.
func NewState() *models.GameState {
	return &models.GameState{Level: constants.MaxLevel}
}

// Normalize prepares a guess or answer for comparison. Matching is
// case-insensitive and ignores surrounding whitespace.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SubmitGuess evaluates one guess against the day's answer and mutates st
// in place. A correct guess wins with attempts = prior attempts + 1; a
// wrong one drops the level, and the game is lost the moment the level
// falls below zero. Terminal states reject further guesses.
func (e *Engine) SubmitGuess(sessionID string, cat models.Category, st *models.GameState, guess, answer string, now time.Time) (Outcome, error) {
	if st.GameOver {
		return OutcomeWrong, ErrGameOver
	}

	outcome := OutcomeWrong
	if Normalize(guess) == Normalize(answer) {
		st.Attempts++
		st.Won = true
		st.GameOver = true
		outcome = OutcomeWin
	} else {
		st.Attempts++
		st.Level = max(constants.MinLevel, st.Level-1)
		if st.Level <= constants.MinLevel {
			st.GameOver = true
			outcome = OutcomeLoss
		}
	}

	e.persist(sessionID, cat, st, now, outcome)
	return outcome, nil
}

func (e *Engine) persist(sessionID string, cat models.Category, st *models.GameState, now time.Time, outcome Outcome) {
	if e.rec == nil {
		return
	}
	if err := e.rec.SaveState(sessionID, cat, *st, daily.DayString(now)); err != nil {
		util.LogWarn("Failed to persist %s state for session %s: %v", cat, sessionID, err)
	}
	if outcome == OutcomeWin || outcome == OutcomeLoss {
		if err := e.rec.RecordResult(cat, outcome == OutcomeWin, st.Attempts); err != nil {
			util.LogWarn("Failed to record %s result: %v", cat, err)
		}
	}
}

// AttemptsRemaining is the user-facing counter: level + 1.
func AttemptsRemaining(st *models.GameState) int {
	if st.Level < 0 {
		return 0
	}
	return st.Level + 1
}
