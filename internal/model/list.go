package model

import "slices"

// List is the closed set of categories a task can be filed under.
type List string

const (
	ListPersonal List = "Personal"
	ListWork     List = "Work"
	ListOne      List = "List 1"

	DefaultList = ListPersonal
)

// Lists returns every accepted list category.
func Lists() []List {
	return []List{ListPersonal, ListWork, ListOne}
}

// Valid reports whether l is one of the known categories.
func (l List) Valid() bool {
	return slices.Contains(Lists(), l)
}

// Tag palette offered by the client. Storage accepts any label.
const (
	TagPersonal = "Personal"
	TagWork     = "Work"
	TagShopping = "Shopping"
	TagHealth   = "Health"
	TagFamily   = "Family"
)

// SuggestedTags returns the fixed palette in display order.
func SuggestedTags() []string {
	return []string{TagPersonal, TagWork, TagShopping, TagHealth, TagFamily}
}

// IsSuggestedTag reports whether tag belongs to the palette.
func IsSuggestedTag(tag string) bool {
	return slices.Contains(SuggestedTags(), tag)
}
