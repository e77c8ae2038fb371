package models

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Itinerary struct {
	ItineraryID  string    `json:"id"`
	Title        string    `json:"title"`
	Region       string    `json:"region"`
	DurationDays int       `json:"duration_days"`
	BudgetMin    int       `json:"budget_min"`
	BudgetMax    int       `json:"budget_max"`
	ImageURL     string    `json:"image_url"`
	Details      string    `json:"details"`
	Status       string    `json:"status"`
	CreatedBy    string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Creator is the public projection of the submitting user on a listing row.
type Creator struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type ItineraryListing struct {
	Itinerary
	Creator Creator `json:"created_by"`
}
