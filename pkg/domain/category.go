package domain

import dErrors "esbilla/pkg/domain-errors"

// Category is the granularity at which consent is granted or denied.
// Invariant: the value must be one of the supported categories.
//
// Usage: construct via ParseCategory at trust boundaries (script attributes,
// tenant configuration keys); direct casting bypasses validation.
type Category string

const (
	CategoryAnalytics  Category = "analytics"
	CategoryMarketing  Category = "marketing"
	CategoryFunctional Category = "functional"
)

// Categories lists every category in dispatch order.
var Categories = []Category{CategoryAnalytics, CategoryMarketing, CategoryFunctional}

var validCategories = map[Category]bool{
	CategoryAnalytics:  true,
	CategoryMarketing:  true,
	CategoryFunctional: true,
}

// ParseCategory constructs a Category from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "category cannot be empty")
	}
	c := Category(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid category: "+s)
	}
	return c, nil
}

// IsValid checks if the category is one of the supported values.
func (c Category) IsValid() bool {
	return validCategories[c]
}

func (c Category) String() string {
	return string(c)
}
