package httpapi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func validItinerary() itineraryRequest {
	return itineraryRequest{
		Title:        "  Dal Lake  ",
		Region:       "Kashmir",
		DurationDays: intPtr(3),
		BudgetMin:    intPtr(0),
		BudgetMax:    intPtr(0),
		ImageURL:     "img.jpg",
		Details:      "Ten chars plus",
	}
}

func TestItineraryContent(t *testing.T) {
	content, err := validItinerary().content()
	require.NoError(t, err)
	assert.Equal(t, "Dal Lake", content.Title)
	assert.Equal(t, 3, content.DurationDays)
}

func TestItineraryContentRejects(t *testing.T) {
	cases := map[string]func(r *itineraryRequest){
		"short title":      func(r *itineraryRequest) { r.Title = "ab" },
		"long region":      func(r *itineraryRequest) { r.Region = strings.Repeat("r", 101) },
		"short details":    func(r *itineraryRequest) { r.Details = "too short" },
		"zero duration":    func(r *itineraryRequest) { r.DurationDays = intPtr(0) },
		"missing budget":   func(r *itineraryRequest) { r.BudgetMax = nil },
		"negative budget":  func(r *itineraryRequest) { r.BudgetMin = intPtr(-1) },
		"long image url":   func(r *itineraryRequest) { r.ImageURL = strings.Repeat("i", 301) },
		"missing duration": func(r *itineraryRequest) { r.DurationDays = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validItinerary()
			mutate(&req)
			_, err := req.content()
			assert.Error(t, err)
		})
	}
}

func TestCheckLengthCountsRunes(t *testing.T) {
	assert.NoError(t, checkLength("name", "Zoë", 2, 3))
	assert.Error(t, checkLength("name", "Zoë!", 2, 3))
}
