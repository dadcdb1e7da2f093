package model

// Page is one slice of an ordered listing plus the numbers needed to
// render pagination metadata. Page is 1-based.
type Page[T any] struct {
	Items    []T
	Page     int
	PageSize int
	Total    int
}

// TotalPages rounds Total up to whole pages.
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// Offset is the number of rows preceding this page.
func (p Page[T]) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}
