package shared

// Filter carries pagination and ordering options for list queries.
// Zero Page or PageSize means no pagination.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// DefaultFilter lists the first page of twenty rows, newest first.
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// Offset is the row offset implied by Page and PageSize.
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Paginated reports whether the filter requests pagination at all.
func (f Filter) Paginated() bool {
	return f.Page > 0 && f.PageSize > 0
}
