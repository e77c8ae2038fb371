package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"triptales/catalog-service/internal/models"
	"triptales/catalog-service/internal/store"
	"triptales/catalog-service/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the embedded schema files in name order.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	for _, name := range files {
		body, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, email, name, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, user.UserID, user.Email, user.Name, user.PasswordHash, user.Role, user.CreatedAt)
	if err := row.Scan(&user.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, store.ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, email, name, password_hash, role, created_at
		FROM users
		WHERE email = $1
	`, email)
	if err := row.Scan(&user.UserID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CreateSession(ctx context.Context, session models.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (token, user_id, created_at)
		VALUES ($1, $2, $3)
	`, session.Token, session.UserID, session.CreatedAt)
	return err
}

func (s *Store) GetSession(ctx context.Context, token string) (models.Session, models.User, error) {
	var session models.Session
	var user models.User
	row := s.pool.QueryRow(ctx, `
		SELECT s.token, s.user_id, s.created_at,
		       u.user_id, u.email, u.name, u.role, u.created_at
		FROM sessions s
		JOIN users u ON u.user_id = s.user_id
		WHERE s.token = $1
	`, token)
	if err := row.Scan(&session.Token, &session.UserID, &session.CreatedAt, &user.UserID, &user.Email, &user.Name, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, models.User{}, store.ErrSessionNotFound
		}
		return models.Session{}, models.User{}, err
	}
	return session, user, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

func (s *Store) CreateItinerary(ctx context.Context, it models.Itinerary) (models.Itinerary, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO itineraries (itinerary_id, title, region, duration_days, budget_min, budget_max,
			image_url, details, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, it.ItineraryID, it.Title, it.Region, it.DurationDays, it.BudgetMin, it.BudgetMax,
		it.ImageURL, it.Details, it.Status, it.CreatedBy, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return models.Itinerary{}, err
	}
	return it, nil
}

const itineraryColumns = `itinerary_id, title, region, duration_days, budget_min, budget_max,
	image_url, details, status, created_by, created_at, updated_at`

func (s *Store) GetItinerary(ctx context.Context, itineraryID string) (models.Itinerary, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+itineraryColumns+` FROM itineraries WHERE itinerary_id = $1`, itineraryID)
	return scanItinerary(row)
}

func (s *Store) ListItineraries(ctx context.Context, filter store.ItineraryFilter) ([]models.ItineraryListing, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.Query != "" {
		args = append(args, store.LikePattern(filter.Query))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(`(lower(i.title) LIKE $%d ESCAPE '\' OR lower(i.details) LIKE $%d ESCAPE '\')`, n, n))
	}
	if filter.Region != "" {
		add("i.region = $%d", filter.Region)
	}
	if filter.Status != "" {
		add("i.status = $%d", filter.Status)
	}
	if filter.CreatedBy != "" {
		add("i.created_by = $%d", filter.CreatedBy)
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

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ItineraryListing{}
	for rows.Next() {
		var item models.ItineraryListing
		if err := rows.Scan(
			&item.ItineraryID, &item.Title, &item.Region, &item.DurationDays, &item.BudgetMin, &item.BudgetMax,
			&item.ImageURL, &item.Details, &item.Status, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt,
			&item.Creator.UserID, &item.Creator.Name, &item.Creator.Email,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateItinerary(ctx context.Context, itineraryID string, mutate store.MutateFunc) (models.Itinerary, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Itinerary{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	current, err := lockItinerary(ctx, tx, itineraryID)
	if err != nil {
		return models.Itinerary{}, err
	}
	next, err := mutate(current)
	if err != nil {
		return models.Itinerary{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE itineraries
		SET title = $2, region = $3, duration_days = $4, budget_min = $5, budget_max = $6,
			image_url = $7, details = $8, status = $9, updated_at = $10
		WHERE itinerary_id = $1
	`, itineraryID, next.Title, next.Region, next.DurationDays, next.BudgetMin, next.BudgetMax,
		next.ImageURL, next.Details, next.Status, next.UpdatedAt)
	if err != nil {
		return models.Itinerary{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Itinerary{}, err
	}
	next.ItineraryID = current.ItineraryID
	next.CreatedBy = current.CreatedBy
	next.CreatedAt = current.CreatedAt
	return next, nil
}

func (s *Store) DeleteItinerary(ctx context.Context, itineraryID string, check store.CheckFunc) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	current, err := lockItinerary(ctx, tx, itineraryID)
	if err != nil {
		return err
	}
	if err = check(current); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM itineraries WHERE itinerary_id = $1`, itineraryID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockItinerary(ctx context.Context, tx pgx.Tx, itineraryID string) (models.Itinerary, error) {
	row := tx.QueryRow(ctx, `SELECT `+itineraryColumns+` FROM itineraries WHERE itinerary_id = $1 FOR UPDATE`, itineraryID)
	return scanItinerary(row)
}

func scanItinerary(row pgx.Row) (models.Itinerary, error) {
	var it models.Itinerary
	if err := row.Scan(&it.ItineraryID, &it.Title, &it.Region, &it.DurationDays, &it.BudgetMin, &it.BudgetMax,
		&it.ImageURL, &it.Details, &it.Status, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Itinerary{}, store.ErrItineraryNotFound
		}
		return models.Itinerary{}, err
	}
	return it, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
