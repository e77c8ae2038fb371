package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"triptales/catalog-service/internal/models"
	"triptales/catalog-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestCreateUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	createUser(t, ctx, st, "dup@example.com", models.RoleUser)
	_, err := st.CreateUser(ctx, models.User{
		UserID:       uuid.NewString(),
		Email:        "dup@example.com",
		Name:         "Again",
		PasswordHash: "x$y",
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC(),
	})
	if !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	user := createUser(t, ctx, st, "s@example.com", models.RoleUser)
	if err := st.CreateSession(ctx, models.Session{Token: "tok", UserID: user.UserID, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	_, got, err := st.GetSession(ctx, "tok")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Email != "s@example.com" {
		t.Fatalf("expected joined user, got %+v", got)
	}
	if err := st.DeleteSession(ctx, "tok"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if err := st.DeleteSession(ctx, "tok"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, _, err := st.GetSession(ctx, "tok"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestListItinerariesFilters(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	owner := createUser(t, ctx, st, "o@example.com", models.RoleUser)
	base := time.Now().UTC().Truncate(time.Microsecond)
	createItinerary(t, ctx, st, owner.UserID, "Lake 100% view", "Kashmir", models.StatusApproved, base)
	createItinerary(t, ctx, st, owner.UserID, "Temple trail", "Jammu", models.StatusPending, base.Add(time.Second))

	items, err := st.ListItineraries(ctx, store.ItineraryFilter{Status: models.StatusApproved})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Creator.Email != "o@example.com" {
		t.Fatalf("unexpected approved list: %+v", items)
	}

	items, err = st.ListItineraries(ctx, store.ItineraryFilter{Query: "100%"})
	if err != nil {
		t.Fatalf("list query: %v", err)
	}
	if len(items) != 1 || items[0].Region != "Kashmir" {
		t.Fatalf("unexpected query list: %+v", items)
	}

	items, err = st.ListItineraries(ctx, store.ItineraryFilter{CreatedBy: owner.UserID})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(items) != 2 || items[0].Title != "Temple trail" {
		t.Fatalf("expected newest first, got %+v", items)
	}
}

func TestUpdateItineraryAbortsOnMutateError(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	owner := createUser(t, ctx, st, "m@example.com", models.RoleUser)
	it := createItinerary(t, ctx, st, owner.UserID, "Original", "Kashmir", models.StatusApproved, time.Now().UTC())

	denied := errors.New("denied")
	_, err := st.UpdateItinerary(ctx, it.ItineraryID, func(current models.Itinerary) (models.Itinerary, error) {
		return models.Itinerary{}, denied
	})
	if !errors.Is(err, denied) {
		t.Fatalf("expected mutate error, got %v", err)
	}
	got, err := st.GetItinerary(ctx, it.ItineraryID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Original" || got.Status != models.StatusApproved {
		t.Fatalf("row changed after aborted update: %+v", got)
	}

	if _, err := st.UpdateItinerary(ctx, uuid.NewString(), func(current models.Itinerary) (models.Itinerary, error) {
		return current, nil
	}); !errors.Is(err, store.ErrItineraryNotFound) {
		t.Fatalf("expected ErrItineraryNotFound, got %v", err)
	}
}

func TestLargeBudgetsFitColumns(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	owner := createUser(t, ctx, st, "big@example.com", models.RoleUser)
	it := createItinerary(t, ctx, st, owner.UserID, "Grand tour", "Ladakh", models.StatusPending, time.Now().UTC())

	updated, err := st.UpdateItinerary(ctx, it.ItineraryID, func(current models.Itinerary) (models.Itinerary, error) {
		current.BudgetMin = 3_000_000_000
		current.BudgetMax = 5_000_000_000
		return current, nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := st.GetItinerary(ctx, updated.ItineraryID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.BudgetMin != 3_000_000_000 || got.BudgetMax != 5_000_000_000 {
		t.Fatalf("unexpected budgets: min=%d max=%d", got.BudgetMin, got.BudgetMax)
	}
}

func TestConcurrentUpdatesNeverInterleave(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	owner := createUser(t, ctx, st, "c@example.com", models.RoleUser)
	it := createItinerary(t, ctx, st, owner.UserID, "Start", "Kashmir", models.StatusPending, time.Now().UTC())

	var wg sync.WaitGroup
	for _, title := range []string{"Writer A", "Writer B"} {
		wg.Add(1)
		go func(title string) {
			defer wg.Done()
			_, err := st.UpdateItinerary(ctx, it.ItineraryID, func(current models.Itinerary) (models.Itinerary, error) {
				current.Title = title
				current.Details = title + " details"
				current.UpdatedAt = time.Now().UTC()
				return current, nil
			})
			if err != nil {
				t.Errorf("update %s: %v", title, err)
			}
		}(title)
	}
	wg.Wait()

	got, err := st.GetItinerary(ctx, it.ItineraryID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Details != got.Title+" details" {
		t.Fatalf("interleaved write: %+v", got)
	}
}

func createUser(t *testing.T, ctx context.Context, st *Store, email, role string) models.User {
	t.Helper()
	user, err := st.CreateUser(ctx, models.User{
		UserID:       uuid.NewString(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "salt$digest",
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createItinerary(t *testing.T, ctx context.Context, st *Store, ownerID, title, region, status string, at time.Time) models.Itinerary {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("uuid: %v", err)
	}
	it, err := st.CreateItinerary(ctx, models.Itinerary{
		ItineraryID:  id.String(),
		Title:        title,
		Region:       region,
		DurationDays: 3,
		BudgetMin:    100,
		BudgetMax:    200,
		ImageURL:     "https://example.com/a.jpg",
		Details:      "Some long enough details",
		Status:       status,
		CreatedBy:    ownerID,
		CreatedAt:    at,
		UpdatedAt:    at,
	})
	if err != nil {
		t.Fatalf("create itinerary: %v", err)
	}
	return it
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := execOnce(ctx, dsn, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = execOnce(context.Background(), dsn, "DROP SCHEMA "+schema+" CASCADE")
	}
	return NewStore(pool), cleanup
}

func execOnce(ctx context.Context, dsn, statement string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, statement)
	return err
}
