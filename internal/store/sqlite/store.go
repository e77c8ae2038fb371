// Package sqlite is the embedded storage backend used for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"triptales/catalog-service/internal/models"
	"triptales/catalog-service/internal/store"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    token TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS itineraries (
    itinerary_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    region TEXT NOT NULL,
    duration_days INTEGER NOT NULL CHECK (duration_days BETWEEN 1 AND 30),
    budget_min INTEGER NOT NULL CHECK (budget_min >= 0),
    budget_max INTEGER NOT NULL CHECK (budget_max >= budget_min),
    image_url TEXT NOT NULL,
    details TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    created_by TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_itineraries_status_updated ON itineraries(status, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_itineraries_created_by ON itineraries(created_by);
`

// foldFunc lowercases text with Unicode rules. SQLite's lower() folds ASCII
// only, so searches would miss titles such as "Ürümqi".
const foldFunc = "unicode_lower"

func init() {
	sqlitedriver.MustRegisterDeterministicScalarFunction(foldFunc, 1, func(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

// Open creates a SQLite handle.
// dsn example: "file:triptales.db" or ":memory:".
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

func AutoMigrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, email, name, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.UserID, user.Email, user.Name, user.PasswordHash, user.Role, formatTime(user.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, store.ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	var createdAt string
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, email, name, password_hash, role, created_at
		FROM users
		WHERE email = ?
	`, email)
	if err := row.Scan(&user.UserID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	user.CreatedAt = parseTime(createdAt)
	return user, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CreateSession(ctx context.Context, session models.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at)
		VALUES (?, ?, ?)
	`, session.Token, session.UserID, formatTime(session.CreatedAt))
	return err
}

func (s *Store) GetSession(ctx context.Context, token string) (models.Session, models.User, error) {
	var session models.Session
	var user models.User
	var sessionCreated, userCreated string
	row := s.db.QueryRowContext(ctx, `
		SELECT s.token, s.user_id, s.created_at,
		       u.user_id, u.email, u.name, u.role, u.created_at
		FROM sessions s
		JOIN users u ON u.user_id = s.user_id
		WHERE s.token = ?
	`, token)
	if err := row.Scan(&session.Token, &session.UserID, &sessionCreated, &user.UserID, &user.Email, &user.Name, &user.Role, &userCreated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, models.User{}, store.ErrSessionNotFound
		}
		return models.Session{}, models.User{}, err
	}
	session.CreatedAt = parseTime(sessionCreated)
	user.CreatedAt = parseTime(userCreated)
	return session, user, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (s *Store) CreateItinerary(ctx context.Context, it models.Itinerary) (models.Itinerary, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO itineraries (itinerary_id, title, region, duration_days, budget_min, budget_max,
			image_url, details, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, it.ItineraryID, it.Title, it.Region, it.DurationDays, it.BudgetMin, it.BudgetMax,
		it.ImageURL, it.Details, it.Status, it.CreatedBy, formatTime(it.CreatedAt), formatTime(it.UpdatedAt))
	if err != nil {
		return models.Itinerary{}, err
	}
	return it, nil
}

const itineraryColumns = `itinerary_id, title, region, duration_days, budget_min, budget_max,
	image_url, details, status, created_by, created_at, updated_at`

func (s *Store) GetItinerary(ctx context.Context, itineraryID string) (models.Itinerary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itineraryColumns+` FROM itineraries WHERE itinerary_id = ?`, itineraryID)
	return scanItinerary(row)
}

func (s *Store) ListItineraries(ctx context.Context, filter store.ItineraryFilter) ([]models.ItineraryListing, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Query != "" {
		pattern := store.LikePattern(filter.Query)
		conditions = append(conditions, `(`+foldFunc+`(i.title) LIKE ? ESCAPE '\' OR `+foldFunc+`(i.details) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Region != "" {
		conditions = append(conditions, "i.region = ?")
		args = append(args, filter.Region)
	}
	if filter.Status != "" {
		conditions = append(conditions, "i.status = ?")
		args = append(args, filter.Status)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, "i.created_by = ?")
		args = append(args, filter.CreatedBy)
	}

	query := `
		SELECT i.itinerary_id, i.title, i.region, i.duration_days, i.budget_min, i.budget_max,
		       i.image_url, i.details, i.status, i.created_by, i.created_at, i.updated_at,
		       u.user_id, u.name, u.email
		FROM itineraries i
		JOIN users u ON u.user_id = i.created_by`
	if len(conditions) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\n\t\tORDER BY i.updated_at DESC, i.itinerary_id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ItineraryListing{}
	for rows.Next() {
		var item models.ItineraryListing
		var createdAt, updatedAt string
		if err := rows.Scan(
			&item.ItineraryID, &item.Title, &item.Region, &item.DurationDays, &item.BudgetMin, &item.BudgetMax,
			&item.ImageURL, &item.Details, &item.Status, &item.CreatedBy, &createdAt, &updatedAt,
			&item.Creator.UserID, &item.Creator.Name, &item.Creator.Email,
		); err != nil {
			return nil, err
		}
		item.CreatedAt = parseTime(createdAt)
		item.UpdatedAt = parseTime(updatedAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateItinerary(ctx context.Context, itineraryID string, mutate store.MutateFunc) (models.Itinerary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Itinerary{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := scanItinerary(tx.QueryRowContext(ctx, `SELECT `+itineraryColumns+` FROM itineraries WHERE itinerary_id = ?`, itineraryID))
	if err != nil {
		return models.Itinerary{}, err
	}
	next, err := mutate(current)
	if err != nil {
		return models.Itinerary{}, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE itineraries
		SET title = ?, region = ?, duration_days = ?, budget_min = ?, budget_max = ?,
			image_url = ?, details = ?, status = ?, updated_at = ?
		WHERE itinerary_id = ?
	`, next.Title, next.Region, next.DurationDays, next.BudgetMin, next.BudgetMax,
		next.ImageURL, next.Details, next.Status, formatTime(next.UpdatedAt), itineraryID)
	if err != nil {
		return models.Itinerary{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Itinerary{}, err
	}
	next.ItineraryID = current.ItineraryID
	next.CreatedBy = current.CreatedBy
	next.CreatedAt = current.CreatedAt
	return next, nil
}

func (s *Store) DeleteItinerary(ctx context.Context, itineraryID string, check store.CheckFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := scanItinerary(tx.QueryRowContext(ctx, `SELECT `+itineraryColumns+` FROM itineraries WHERE itinerary_id = ?`, itineraryID))
	if err != nil {
		return err
	}
	if err = check(current); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM itineraries WHERE itinerary_id = ?`, itineraryID); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

func scanItinerary(row *sql.Row) (models.Itinerary, error) {
	var it models.Itinerary
	var createdAt, updatedAt string
	if err := row.Scan(&it.ItineraryID, &it.Title, &it.Region, &it.DurationDays, &it.BudgetMin, &it.BudgetMax,
		&it.ImageURL, &it.Details, &it.Status, &it.CreatedBy, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Itinerary{}, store.ErrItineraryNotFound
		}
		return models.Itinerary{}, err
	}
	it.CreatedAt = parseTime(createdAt)
	it.UpdatedAt = parseTime(updatedAt)
	return it, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return t.UTC()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
