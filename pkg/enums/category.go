package enums

import "fmt"

// Category identifies an inventory section of the shop floor.
type Category string

const (
	CategoryClubs    Category = "clubs"
	CategorySets     Category = "sets"
	CategoryBags     Category = "bags"
	CategoryTrolleys Category = "trolleys"
	CategoryMisc     Category = "misc"
	CategoryServices Category = "services"
)

// CategorySearchOrder is the order SKU lookups walk the sections in.
var CategorySearchOrder = []Category{
	CategoryClubs,
	CategorySets,
	CategoryBags,
	CategoryTrolleys,
	CategoryMisc,
	CategoryServices,
}

var validCategories = CategorySearchOrder

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Category.
func (c Category) IsValid() bool {
	for _, candidate := range validCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCategory converts raw input into a Category.
func ParseCategory(value string) (Category, error) {
	for _, candidate := range validCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", value)
}
