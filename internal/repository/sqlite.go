// internal/repository/sqlite.go
//
// SQLite backend.
// Responsibilities:
//   - Opening SQLite with safe defaults (WAL, busy timeout, foreign keys,
//     immediate transactions so concurrent writers queue instead of failing).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Account and game record queries.
//
// Timestamps are stored as fixed-width UTC text so ORDER BY on the column
// matches chronological order.

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/forestclash/go-server/assets"
	"github.com/forestclash/go-server/internal/apperr"
	"github.com/forestclash/go-server/internal/models"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite implements Repository on a single database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if missing) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func openDB(path string) (*sql.DB, error) {
	if path == "" {
		path = "./data/forestclash.db"
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	dsn := path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// migrate applies embedded SQL migrations in lexical order,
// each inside its own transaction, skipping ones already recorded.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}
	migrations, err := assets.Migrations()
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	for _, m := range migrations {
		var done int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM _migrations WHERE name=?`, m.Name).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", m.Name).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations(name) VALUES (?)`, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.Name, err)
		}
		log.Info().Str("migration", m.Name).Msg("applied")
	}
	return nil
}

/* ------------------------------ accounts ------------------------------- */

const accountColumns = `id, username, email, password_hash, created_at,
	games_played, games_won, games_lost, highest_score`

func (s *SQLite) CreateAccount(ctx context.Context, a *models.Account) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES (?,?,?,?,?)`,
		a.ID, a.Username, a.Email, a.PasswordHash, formatTime(a.CreatedAt))
	if isUniqueViolation(err) {
		return apperr.Conflict(msgDuplicateAccount)
	}
	return apperr.Wrap(err, "insert user")
}

func (s *SQLite) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE id=?`, id)
	return scanAccount(row)
}

func (s *SQLite) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE email=?`, email)
	return scanAccount(row)
}

func (s *SQLite) TopAccounts(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, games_played, games_won, games_lost, highest_score
		FROM users
		ORDER BY games_won DESC, created_at ASC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, apperr.Wrap(err, "query leaderboard")
	}
	defer rows.Close()

	out := make([]models.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Stats.GamesPlayed, &e.Stats.GamesWon, &e.Stats.GamesLost, &e.Stats.HighestScore); err != nil {
			return nil, apperr.Wrap(err, "scan leaderboard")
		}
		out = append(out, e)
	}
	return out, apperr.Wrap(rows.Err(), "iterate leaderboard")
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	var created string
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &created,
		&a.Stats.GamesPlayed, &a.Stats.GamesWon, &a.Stats.GamesLost, &a.Stats.HighestScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(msgAccountNotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "scan user")
	}
	a.CreatedAt = parseTime(created)
	return &a, nil
}

/* ---------------------------- game records ----------------------------- */

const recordColumns = `id, user_id, player_score, bot_score, winner, duration, moves, created_at, updated_at`

// CreateRecord bumps the owner's stats and inserts the record in one
// immediate transaction. Increments are computed in SQL so concurrent
// creates for one account cannot overwrite each other.
func (s *SQLite) CreateRecord(ctx context.Context, r *models.GameRecord) (models.Stats, error) {
	moves, err := json.Marshal(nonNilMoves(r.Moves))
	if err != nil {
		return models.Stats{}, apperr.Wrap(err, "encode moves")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Stats{}, apperr.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	delta := models.Stats{}.Record(r.Winner, r.PlayerScore)
	res, err := tx.ExecContext(ctx, `
		UPDATE users SET
			games_played  = games_played + 1,
			games_won     = games_won + ?,
			games_lost    = games_lost + ?,
			highest_score = MAX(highest_score, ?)
		WHERE id = ?`,
		delta.GamesWon, delta.GamesLost, r.PlayerScore, r.UserID)
	if err != nil {
		return models.Stats{}, apperr.Wrap(err, "update stats")
	}
	if n, err := res.RowsAffected(); err != nil {
		return models.Stats{}, apperr.Wrap(err, "update stats")
	} else if n == 0 {
		return models.Stats{}, apperr.NotFound(msgAccountNotFound)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO games (`+recordColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		r.ID, r.UserID, r.PlayerScore, r.BotScore, string(r.Winner), r.Duration, string(moves),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt)); err != nil {
		return models.Stats{}, apperr.Wrap(err, "insert game")
	}

	var st models.Stats
	if err := tx.QueryRowContext(ctx, `SELECT games_played, games_won, games_lost, highest_score FROM users WHERE id=?`, r.UserID).
		Scan(&st.GamesPlayed, &st.GamesWon, &st.GamesLost, &st.HighestScore); err != nil {
		return models.Stats{}, apperr.Wrap(err, "read stats")
	}
	if err := tx.Commit(); err != nil {
		return models.Stats{}, apperr.Wrap(err, "commit game")
	}
	return st, nil
}

func (s *SQLite) ListRecords(ctx context.Context, userID string, limit int) ([]models.GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM games
		WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, apperr.Wrap(err, "query games")
	}
	defer rows.Close()

	out := []models.GameRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, apperr.Wrap(rows.Err(), "iterate games")
}

func (s *SQLite) GetRecord(ctx context.Context, userID, id string) (*models.GameRecord, error) {
	return getRecord(ctx, s.db, userID, id)
}

func (s *SQLite) UpdateRecord(ctx context.Context, userID, id string, p models.RecordPatch, now time.Time) (*models.GameRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getRecord(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	next := p.ApplyTo(*cur, now)
	moves, err := json.Marshal(nonNilMoves(next.Moves))
	if err != nil {
		return nil, apperr.Wrap(err, "encode moves")
	}
	if _, err := tx.ExecContext(ctx, `UPDATE games SET
			player_score=?, bot_score=?, winner=?, duration=?, moves=?, updated_at=?
		WHERE id=? AND user_id=?`,
		next.PlayerScore, next.BotScore, string(next.Winner), next.Duration, string(moves),
		formatTime(next.UpdatedAt), id, userID); err != nil {
		return nil, apperr.Wrap(err, "update game")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(err, "commit game")
	}
	return &next, nil
}

func (s *SQLite) DeleteRecord(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return apperr.Wrap(err, "delete game")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(err, "delete game")
	}
	if n == 0 {
		return apperr.NotFound(msgGameNotFound)
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryRower, userID, id string) (*models.GameRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM games WHERE id=? AND user_id=?`, id, userID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(msgGameNotFound)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*models.GameRecord, error) {
	var r models.GameRecord
	var winner, moves, created, updated string
	if err := sc.Scan(&r.ID, &r.UserID, &r.PlayerScore, &r.BotScore, &winner, &r.Duration, &moves, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, apperr.Wrap(err, "scan game")
	}
	r.Winner = models.Winner(winner)
	if err := json.Unmarshal([]byte(moves), &r.Moves); err != nil {
		return nil, apperr.Wrap(err, "decode moves")
	}
	r.Moves = nonNilMoves(r.Moves)
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return &r, nil
}

/* ------------------------------- helpers ------------------------------- */

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// parseTime parses stored timestamps; on error returns zero time.
func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nonNilMoves(m []models.Move) []models.Move {
	if m == nil {
		return []models.Move{}
	}
	return m
}
