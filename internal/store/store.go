package store

import (
	"context"
	"strings"

	"triptales/catalog-service/internal/models"
)

// ItineraryFilter narrows a listing. Empty fields do not filter.
type ItineraryFilter struct {
	Query     string
	Region    string
	Status    string
	CreatedBy string
}

// MutateFunc receives the locked current row and returns the row to persist.
// Returning an error aborts the write.
type MutateFunc func(current models.Itinerary) (models.Itinerary, error)

// CheckFunc receives the locked current row before deletion.
type CheckFunc func(current models.Itinerary) error

type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CountUsers(ctx context.Context) (int, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, session models.Session) error
	GetSession(ctx context.Context, token string) (models.Session, models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

type ItineraryStore interface {
	CreateItinerary(ctx context.Context, itinerary models.Itinerary) (models.Itinerary, error)
	GetItinerary(ctx context.Context, itineraryID string) (models.Itinerary, error)
	ListItineraries(ctx context.Context, filter ItineraryFilter) ([]models.ItineraryListing, error)
	UpdateItinerary(ctx context.Context, itineraryID string, mutate MutateFunc) (models.Itinerary, error)
	DeleteItinerary(ctx context.Context, itineraryID string, check CheckFunc) error
}

type Store interface {
	UserStore
	SessionStore
	ItineraryStore
}

// LikePattern turns a free-text query into a case-insensitive substring
// pattern, escaping LIKE metacharacters with a backslash.
func LikePattern(query string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(query)) + "%"
}
