package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"triptales/catalog-service/internal/catalog"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// itineraryRequest accepts a client-supplied status so older clients are not
// rejected, but the value never reaches the store.
type itineraryRequest struct {
	Title        string `json:"title"`
	Region       string `json:"region"`
	DurationDays *int   `json:"duration_days"`
	BudgetMin    *int   `json:"budget_min"`
	BudgetMax    *int   `json:"budget_max"`
	ImageURL     string `json:"image_url"`
	Details      string `json:"details"`
	Status       string `json:"status,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (r *registerRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if err := checkLength("name", r.Name, 2, 100); err != nil {
		return err
	}
	if err := checkLength("email", r.Email, 5, 200); err != nil {
		return err
	}
	return checkLength("password", r.Password, 6, 100)
}

func (r *loginRequest) validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if err := checkLength("email", r.Email, 5, 200); err != nil {
		return err
	}
	return checkLength("password", r.Password, 6, 100)
}

func (r itineraryRequest) content() (catalog.Content, error) {
	c := catalog.Content{
		Title:    strings.TrimSpace(r.Title),
		Region:   strings.TrimSpace(r.Region),
		ImageURL: strings.TrimSpace(r.ImageURL),
		Details:  strings.TrimSpace(r.Details),
	}
	checks := []struct {
		field    string
		value    string
		min, max int
	}{
		{"title", c.Title, 3, 200},
		{"region", c.Region, 2, 100},
		{"image_url", c.ImageURL, 3, 300},
		{"details", c.Details, 10, 5000},
	}
	for _, check := range checks {
		if err := checkLength(check.field, check.value, check.min, check.max); err != nil {
			return catalog.Content{}, err
		}
	}

	if r.DurationDays == nil {
		return catalog.Content{}, errors.New("duration_days is required")
	}
	if *r.DurationDays < 1 || *r.DurationDays > 30 {
		return catalog.Content{}, errors.New("duration_days must be between 1 and 30")
	}
	if r.BudgetMin == nil || r.BudgetMax == nil {
		return catalog.Content{}, errors.New("budget_min and budget_max are required")
	}
	if *r.BudgetMin < 0 || *r.BudgetMax < 0 {
		return catalog.Content{}, errors.New("budget_min and budget_max must be >= 0")
	}
	c.DurationDays = *r.DurationDays
	c.BudgetMin = *r.BudgetMin
	c.BudgetMax = *r.BudgetMax
	return c, nil
}

func checkLength(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(value)
	if n < minLen || n > maxLen {
		return fmt.Errorf("%s must be between %d and %d characters", field, minLen, maxLen)
	}
	return nil
}
