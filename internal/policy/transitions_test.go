package policy

import "testing"

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from  string
		to    string
		valid bool
	}{
		{"pending", "approved", true},
		{"pending", "rejected", true},
		{"pending", "pending", true},
		{"approved", "rejected", true},
		{"approved", "pending", true},
		{"rejected", "approved", true},
		{"rejected", "rejected", true},
		{"pending", "archived", false},
		{"archived", "pending", false},
		{"", "approved", false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.from, tt.to); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}
