package utils

import (
	"strings"
)

// ContainsFold reports whether needle is a case-insensitive substring of haystack
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// MatchAmenity returns the first property amenity that contains the requested
// term (case-insensitive), and whether one was found.
// "pool" matches "Swimming Pool"; "swimming pool" does not match "Pool".
func MatchAmenity(requested string, amenities []string) (string, bool) {
	for _, amenity := range amenities {
		if ContainsFold(amenity, requested) {
			return amenity, true
		}
	}
	return "", false
}

// HasAllAmenities reports whether every requested term matches at least one
// property amenity. Each term is checked independently, so a single amenity
// such as "Pool and Gym Complex" may satisfy both "pool" and "gym".
func HasAllAmenities(amenities, requested []string) bool {
	for _, term := range requested {
		if _, ok := MatchAmenity(term, amenities); !ok {
			return false
		}
	}
	return true
}
