package models

// Page is a paginated listing as returned by the API.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`

	// Deprecated: NumberOfElements counts the current page only and is often
	// absent. Use Total for the size of the whole listing.
	NumberOfElements *int `json:"numberOfElements,omitempty"`
}

// Total returns the number of items across all pages. When the server omits
// totalElements on a single-page response the page length is used.
func (p Page[T]) Total() int64 {
	if p.TotalElements == 0 && len(p.Content) > 0 && p.TotalPages <= 1 {
		return int64(len(p.Content))
	}
	return p.TotalElements
}
