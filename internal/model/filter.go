package model

import "encoding/json"

// SearchFilter represents structured criteria extracted from a query.
// Nil pointers and empty values mean "unconstrained".
type SearchFilter struct {
	Location  string   `json:"location"`
	Bedrooms  *int     `json:"bedrooms"`
	MaxPrice  *float64 `json:"maxPrice"`
	Amenities []string `json:"amenities"`
}

// UnconstrainedFilter is the filter used whenever extraction fails
func UnconstrainedFilter() SearchFilter {
	return SearchFilter{Amenities: []string{}}
}

// IsUnconstrained reports whether no field narrows the catalog
func (f SearchFilter) IsUnconstrained() bool {
	return f.Location == "" && f.Bedrooms == nil && f.MaxPrice == nil && len(f.Amenities) == 0
}

// MarshalJSON always emits amenities as an array
func (f SearchFilter) MarshalJSON() ([]byte, error) {
	type alias SearchFilter
	a := alias(f)
	if a.Amenities == nil {
		a.Amenities = []string{}
	}
	return json.Marshal(a)
}
