package service

import (
	"propchat/internal/model"
	"propchat/internal/utils"
)

// Match reason constants
const (
	ReasonLocationMatch = "Location match"
	ReasonBedroomsMatch = "Bedrooms match"
	ReasonPriceMatch    = "Within budget"
	ReasonGeneralMatch  = "General match"
	reasonAmenityPrefix = "Has "
)

// Filter keeps the records that satisfy every constrained field of f, in
// their input order. It never mutates records.
func Filter(records []model.PropertyRecord, f model.SearchFilter) []model.PropertyRecord {
	result := make([]model.PropertyRecord, 0, len(records))
	for _, record := range records {
		if Matches(record, f) {
			result = append(result, record)
		}
	}
	return result
}

// Matches reports whether one record passes all four predicates
func Matches(record model.PropertyRecord, f model.SearchFilter) bool {
	if f.Location != "" && !utils.ContainsFold(record.Location, f.Location) {
		return false
	}
	if f.Bedrooms != nil && record.Bedrooms != *f.Bedrooms {
		return false
	}
	if f.MaxPrice != nil && record.Price > *f.MaxPrice {
		return false
	}
	if len(f.Amenities) > 0 && !utils.HasAllAmenities(record.Amenities, f.Amenities) {
		return false
	}
	return true
}

// Explain lists human-readable reasons why record satisfies f.
// A record matched by an unconstrained filter gets ReasonGeneralMatch.
func Explain(record model.PropertyRecord, f model.SearchFilter) []string {
	reasons := []string{}

	if f.Location != "" && utils.ContainsFold(record.Location, f.Location) {
		reasons = append(reasons, ReasonLocationMatch)
	}
	if f.Bedrooms != nil && record.Bedrooms == *f.Bedrooms {
		reasons = append(reasons, ReasonBedroomsMatch)
	}
	if f.MaxPrice != nil && record.Price <= *f.MaxPrice {
		reasons = append(reasons, ReasonPriceMatch)
	}
	for _, requested := range f.Amenities {
		if amenity, ok := utils.MatchAmenity(requested, record.Amenities); ok {
			reasons = append(reasons, reasonAmenityPrefix+amenity)
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}
	return reasons
}

// ExplainAll maps each record's id to its match reasons
func ExplainAll(records []model.PropertyRecord, f model.SearchFilter) map[string][]string {
	out := make(map[string][]string, len(records))
	for _, record := range records {
		out[record.ID.String()] = Explain(record, f)
	}
	return out
}

// FilterByIDs keeps records whose id, compared as a string, is in ids.
// Catalog order is preserved.
func FilterByIDs(records []model.PropertyRecord, ids []string) []model.PropertyRecord {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	result := make([]model.PropertyRecord, 0, len(ids))
	for _, record := range records {
		if _, ok := wanted[record.ID.String()]; ok {
			result = append(result, record)
		}
	}
	return result
}
