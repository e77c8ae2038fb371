// Package catalog runs the account and itinerary operations: it resolves the
// caller, asks policy for a decision, and applies it through the store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"triptales/catalog-service/internal/credential"
	"triptales/catalog-service/internal/models"
	"triptales/catalog-service/internal/policy"
	"triptales/catalog-service/internal/session"
	"triptales/catalog-service/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash is verified against when the email is unknown so both login
// failure paths cost one PBKDF2 run.
var dummyHash = credential.HashWithSalt("not-a-password", "00000000000000000000000000000000")

var tracer = otel.Tracer("triptales/catalog-service/catalog")

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginResult struct {
	Token string
	User  models.User
}

// Content is the editable part of an itinerary.
type Content struct {
	Title        string
	Region       string
	DurationDays int
	BudgetMin    int
	BudgetMax    int
	ImageURL     string
	Details      string
}

// StatusObserver is notified after a moderation transition commits.
type StatusObserver func(status string)

type Service struct {
	store    store.Store
	sessions *session.Manager
	now      func() time.Time
	observe  StatusObserver
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithStatusObserver(observe StatusObserver) Option {
	return func(s *Service) { s.observe = observe }
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		sessions: session.NewManager(st),
		now:      func() time.Time { return time.Now().UTC() },
		observe:  func(string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	ctx, span := tracer.Start(ctx, "catalog.Register")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return models.User{}, store.ErrEmailTaken
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return models.User{}, err
	}

	hash, err := credential.Hash(input.Password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		UserID:       uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		Role:         models.RoleUser,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return models.User{}, err
	}
	span.SetAttributes(attribute.String("user.id", created.UserID))
	return created, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "catalog.Login")
	defer span.End()

	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			credential.Verify(password, dummyHash)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !credential.Verify(password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(ctx, user.UserID)
	if err != nil {
		return LoginResult{}, err
	}
	span.SetAttributes(attribute.String("user.id", user.UserID))
	return LoginResult{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (models.User, error) {
	return s.sessions.Resolve(ctx, token)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	ctx, span := tracer.Start(ctx, "catalog.Logout")
	defer span.End()
	return s.sessions.Revoke(ctx, token)
}

func (s *Service) ListItineraries(ctx context.Context, actor policy.Actor, query policy.ListQuery) ([]models.ItineraryListing, error) {
	ctx, span := tracer.Start(ctx, "catalog.ListItineraries")
	defer span.End()

	effect, err := policy.Authorize(actor, policy.Request{Op: policy.OpList, List: query})
	if err != nil {
		return nil, err
	}
	filter := store.ItineraryFilter{
		Query:     strings.TrimSpace(query.Query),
		Region:    strings.TrimSpace(query.Region),
		Status:    effect.Scope.Status,
		CreatedBy: effect.Scope.CreatedBy,
	}
	items, err := s.store.ListItineraries(ctx, filter)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("itinerary.count", len(items)))
	return items, nil
}

func (s *Service) CreateItinerary(ctx context.Context, actor policy.Actor, content Content) (models.Itinerary, error) {
	ctx, span := tracer.Start(ctx, "catalog.CreateItinerary")
	defer span.End()

	effect, err := policy.Authorize(actor, policy.Request{Op: policy.OpCreate, BudgetMin: content.BudgetMin, BudgetMax: content.BudgetMax})
	if err != nil {
		return models.Itinerary{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return models.Itinerary{}, fmt.Errorf("generate itinerary id: %w", err)
	}
	now := s.now()
	it := content.apply(models.Itinerary{
		ItineraryID: id.String(),
		Status:      effect.Status,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	created, err := s.store.CreateItinerary(ctx, it)
	if err != nil {
		return models.Itinerary{}, err
	}
	span.SetAttributes(itineraryAttrs(created)...)
	return created, nil
}

func (s *Service) UpdateItinerary(ctx context.Context, actor policy.Actor, itineraryID string, content Content) (models.Itinerary, error) {
	ctx, span := tracer.Start(ctx, "catalog.UpdateItinerary")
	defer span.End()

	if err := policy.CheckBudget(content.BudgetMin, content.BudgetMax); err != nil {
		return models.Itinerary{}, err
	}
	updated, err := s.store.UpdateItinerary(ctx, itineraryID, func(current models.Itinerary) (models.Itinerary, error) {
		effect, err := policy.Authorize(actor, policy.Request{
			Op:        policy.OpUpdate,
			Resource:  &current,
			BudgetMin: content.BudgetMin,
			BudgetMax: content.BudgetMax,
		})
		if err != nil {
			return models.Itinerary{}, err
		}
		next := content.apply(current)
		next.Status = effect.Status
		next.UpdatedAt = s.now()
		return next, nil
	})
	if err != nil {
		return models.Itinerary{}, err
	}
	span.SetAttributes(itineraryAttrs(updated)...)
	return updated, nil
}

func (s *Service) DeleteItinerary(ctx context.Context, actor policy.Actor, itineraryID string) error {
	ctx, span := tracer.Start(ctx, "catalog.DeleteItinerary")
	defer span.End()
	span.SetAttributes(attribute.String("itinerary.id", itineraryID))

	return s.store.DeleteItinerary(ctx, itineraryID, func(current models.Itinerary) error {
		_, err := policy.Authorize(actor, policy.Request{Op: policy.OpDelete, Resource: &current})
		return err
	})
}

// SetStatus moves an itinerary to status. The caller's role and the target
// are checked before the row is read.
func (s *Service) SetStatus(ctx context.Context, actor policy.Actor, itineraryID, status string) (models.Itinerary, error) {
	ctx, span := tracer.Start(ctx, "catalog.SetStatus")
	defer span.End()

	effect, err := policy.Authorize(actor, policy.Request{Op: policy.OpTransition, TargetStatus: status})
	if err != nil {
		return models.Itinerary{}, err
	}
	updated, err := s.store.UpdateItinerary(ctx, itineraryID, func(current models.Itinerary) (models.Itinerary, error) {
		if _, err := policy.Authorize(actor, policy.Request{Op: policy.OpTransition, TargetStatus: effect.Status, Resource: &current}); err != nil {
			return models.Itinerary{}, err
		}
		current.Status = effect.Status
		current.UpdatedAt = s.now()
		return current, nil
	})
	if err != nil {
		return models.Itinerary{}, err
	}
	s.observe(updated.Status)
	span.SetAttributes(itineraryAttrs(updated)...)
	return updated, nil
}

func (c Content) apply(it models.Itinerary) models.Itinerary {
	it.Title = c.Title
	it.Region = c.Region
	it.DurationDays = c.DurationDays
	it.BudgetMin = c.BudgetMin
	it.BudgetMax = c.BudgetMax
	it.ImageURL = c.ImageURL
	it.Details = c.Details
	return it
}

func itineraryAttrs(it models.Itinerary) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("itinerary.id", it.ItineraryID),
		attribute.String("itinerary.status", it.Status),
	}
}
