package enums

import (
	"fmt"
	"strings"
)

// SortField names a product attribute the catalog can order by.
type SortField string

const (
	SortFieldName          SortField = "name"
	SortFieldPrice         SortField = "price"
	SortFieldDiscountPrice SortField = "discount_price"
	SortFieldRating        SortField = "rating"
	SortFieldReviewsCount  SortField = "reviews_count"
	SortFieldCreatedAt     SortField = "created_at"
)

var validSortFields = []SortField{
	SortFieldName,
	SortFieldPrice,
	SortFieldDiscountPrice,
	SortFieldRating,
	SortFieldReviewsCount,
	SortFieldCreatedAt,
}

// SortFields returns the supported fields in display order.
func SortFields() []SortField {
	out := make([]SortField, len(validSortFields))
	copy(out, validSortFields)
	return out
}

// IsValid checks whether the field is one of the sortable attributes.
func (f SortField) IsValid() bool {
	for _, candidate := range validSortFields {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseSortField converts raw strings into SortField.
func ParseSortField(value string) (SortField, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validSortFields {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort field %q", value)
}

// SortDirection is the ordering applied to a SortField.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// IsValid checks whether the direction is asc or desc.
func (d SortDirection) IsValid() bool {
	return d == SortAscending || d == SortDescending
}

// Reverse flips the direction.
func (d SortDirection) Reverse() SortDirection {
	if d == SortDescending {
		return SortAscending
	}
	return SortDescending
}

// ParseSortDirection converts raw strings into SortDirection.
func ParseSortDirection(value string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(SortAscending), "ascending":
		return SortAscending, nil
	case string(SortDescending), "descending":
		return SortDescending, nil
	}
	return "", fmt.Errorf("invalid sort direction %q", value)
}
