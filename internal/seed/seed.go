// Package seed loads the demo accounts and catalog into an empty database.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"time"

	"triptales/catalog-service/internal/credential"
	"triptales/catalog-service/internal/models"
	"triptales/catalog-service/internal/store"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

type Dataset struct {
	Users       []UserSeed      `yaml:"users"`
	Itineraries []ItinerarySeed `yaml:"itineraries"`
}

type UserSeed struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type ItinerarySeed struct {
	Title        string `yaml:"title"`
	Region       string `yaml:"region"`
	DurationDays int    `yaml:"duration_days"`
	BudgetMin    int    `yaml:"budget_min"`
	BudgetMax    int    `yaml:"budget_max"`
	ImageURL     string `yaml:"image_url"`
	Details      string `yaml:"details"`
}

type Seeder interface {
	store.UserStore
	CreateItinerary(ctx context.Context, itinerary models.Itinerary) (models.Itinerary, error)
}

func Parse(raw []byte) (Dataset, error) {
	var data Dataset
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return Dataset{}, fmt.Errorf("parse seed data: %w", err)
	}
	return data, nil
}

// Demo seeds the built-in dataset. It does nothing when any user exists.
func Demo(ctx context.Context, st Seeder) error {
	data, err := Parse(demoYAML)
	if err != nil {
		return err
	}
	return Apply(ctx, st, data)
}

func Apply(ctx context.Context, st Seeder, data Dataset) error {
	count, err := st.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	var ownerID string
	for _, u := range data.Users {
		hash, err := credential.Hash(u.Password)
		if err != nil {
			return err
		}
		role := u.Role
		if role == "" {
			role = models.RoleUser
		}
		created, err := st.CreateUser(ctx, models.User{
			UserID:       uuid.NewString(),
			Name:         u.Name,
			Email:        u.Email,
			Role:         role,
			PasswordHash: hash,
			CreatedAt:    now,
		})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		if ownerID == "" && role != models.RoleAdmin {
			ownerID = created.UserID
		}
	}
	if len(data.Itineraries) == 0 {
		return nil
	}
	if ownerID == "" {
		return errors.New("seed data has itineraries but no non-admin owner")
	}

	for _, it := range data.Itineraries {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		_, err = st.CreateItinerary(ctx, models.Itinerary{
			ItineraryID:  id.String(),
			Title:        it.Title,
			Region:       it.Region,
			DurationDays: it.DurationDays,
			BudgetMin:    it.BudgetMin,
			BudgetMax:    it.BudgetMax,
			ImageURL:     it.ImageURL,
			Details:      it.Details,
			Status:       models.StatusApproved,
			CreatedBy:    ownerID,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return fmt.Errorf("seed itinerary %q: %w", it.Title, err)
		}
	}
	log.Printf("seeded demo data users=%d itineraries=%d", len(data.Users), len(data.Itineraries))
	return nil
}
