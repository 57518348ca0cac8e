package utils

import "testing"

func TestContainsFold(t *testing.T) {
	tests := []struct {
		haystack, needle string
		want             bool
	}{
		{"Austin, TX", "austin", true},
		{"Austin, TX", "AUSTIN, tx", true},
		{"Austin, TX", "Dallas", false},
		{"Austin, TX", "", true},
		{"", "a", false},
	}

	for _, tt := range tests {
		if got := ContainsFold(tt.haystack, tt.needle); got != tt.want {
			t.Errorf("ContainsFold(%q, %q) = %v, want %v", tt.haystack, tt.needle, got, tt.want)
		}
	}
}

func TestMatchAmenity(t *testing.T) {
	amenities := []string{"Swimming Pool", "Gym"}

	if got, ok := MatchAmenity("pool", amenities); !ok || got != "Swimming Pool" {
		t.Errorf("MatchAmenity(pool) = %q, %v", got, ok)
	}
	if _, ok := MatchAmenity("sauna", amenities); ok {
		t.Error("MatchAmenity(sauna) should not match")
	}
	if _, ok := MatchAmenity("swimming pool", []string{"Pool"}); ok {
		t.Error("longer request must not match a shorter amenity")
	}
}

func TestHasAllAmenities(t *testing.T) {
	tests := []struct {
		name      string
		amenities []string
		requested []string
		want      bool
	}{
		{"no request", []string{"Gym"}, nil, true},
		{"single match", []string{"Swimming Pool", "Gym"}, []string{"pool"}, true},
		{"all match", []string{"Swimming Pool", "Gym"}, []string{"pool", "GYM"}, true},
		{"one missing", []string{"Swimming Pool", "Gym"}, []string{"pool", "sauna"}, false},
		{"one amenity satisfies two requests", []string{"Pool and Gym Complex"}, []string{"pool", "gym"}, true},
		{"empty amenities", nil, []string{"parking"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasAllAmenities(tt.amenities, tt.requested); got != tt.want {
				t.Errorf("HasAllAmenities() = %v, want %v", got, tt.want)
			}
		})
	}
}
