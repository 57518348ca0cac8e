package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// PropertyID is the shared join key across the three data sources.
// The sources may use either JSON strings or JSON numbers; both forms are
// kept distinct when joining (1 and "1" are different keys) but render the
// same through String.
type PropertyID struct {
	value   string
	numeric bool
}

// NewPropertyID returns a string-typed identifier
func NewPropertyID(s string) PropertyID {
	return PropertyID{value: s}
}

// NumericPropertyID returns a number-typed identifier
func NumericPropertyID(n int64) PropertyID {
	return PropertyID{value: strconv.FormatInt(n, 10), numeric: true}
}

// String returns the opaque string form used for bookmark matching
func (id PropertyID) String() string { return id.value }

// IsNumeric reports whether the identifier was a JSON number in its source
func (id PropertyID) IsNumeric() bool { return id.numeric }

// UnmarshalJSON accepts a JSON string or number
func (id *PropertyID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("property id must not be null")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = PropertyID{value: s}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("property id must be a string or number: %w", err)
	}
	value, err := canonicalNumber(n.String())
	if err != nil {
		return fmt.Errorf("property id %s: %w", n, err)
	}
	*id = PropertyID{value: value, numeric: true}
	return nil
}

// canonicalNumber keeps integer literals exactly as written and rewrites
// other spellings (1.0, 1e3) without losing precision.
func canonicalNumber(literal string) (string, error) {
	if !strings.ContainsAny(literal, ".eE") {
		return literal, nil
	}
	f, _, err := big.ParseFloat(literal, 10, 256, big.ToNearestEven)
	if err != nil {
		return "", err
	}
	if f.IsInt() {
		i, _ := f.Int(nil)
		return i.String(), nil
	}
	return f.Text('g', -1), nil
}

// MarshalJSON writes the identifier back in its original JSON type
func (id PropertyID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// PropertyRecord is one merged catalog entry
type PropertyRecord struct {
	ID        PropertyID `json:"id"`
	Title     string     `json:"title"`
	Price     float64    `json:"price"`
	Location  string     `json:"location"`
	Bedrooms  int        `json:"bedrooms"`
	Bathrooms int        `json:"bathrooms"`
	Size      float64    `json:"size"`
	Amenities []string   `json:"amenities"`
	Images    []string   `json:"images"`
}

// PropertyBasics is a row of the identity-facts source
type PropertyBasics struct {
	ID       PropertyID `json:"id"`
	Title    *string    `json:"title"`
	Price    *float64   `json:"price"`
	Location *string    `json:"location"`
}

// PropertyCharacteristics is a row of the physical-characteristics source
type PropertyCharacteristics struct {
	ID        PropertyID `json:"id"`
	Bedrooms  *int       `json:"bedrooms"`
	Bathrooms *int       `json:"bathrooms"`
	SizeSqft  *float64   `json:"size_sqft"`
	Amenities []string   `json:"amenities"`
}

// UnmarshalJSON accepts integral floats such as 3.0 for the counts
func (c *PropertyCharacteristics) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        PropertyID `json:"id"`
		Bedrooms  *float64   `json:"bedrooms"`
		Bathrooms *float64   `json:"bathrooms"`
		SizeSqft  *float64   `json:"size_sqft"`
		Amenities []string   `json:"amenities"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	bedrooms, err := countOf("bedrooms", raw.Bedrooms)
	if err != nil {
		return err
	}
	bathrooms, err := countOf("bathrooms", raw.Bathrooms)
	if err != nil {
		return err
	}
	*c = PropertyCharacteristics{
		ID:        raw.ID,
		Bedrooms:  bedrooms,
		Bathrooms: bathrooms,
		SizeSqft:  raw.SizeSqft,
		Amenities: raw.Amenities,
	}
	return nil
}

func countOf(field string, f *float64) (*int, error) {
	if f == nil {
		return nil, nil
	}
	if *f != math.Trunc(*f) || *f < math.MinInt32 || *f > math.MaxInt32 {
		return nil, fmt.Errorf("%s must be an integer, got %v", field, *f)
	}
	n := int(*f)
	return &n, nil
}

// PropertyImage is a row of the image-reference source
type PropertyImage struct {
	ID       PropertyID `json:"id"`
	ImageURL *string    `json:"image_url"`
}
