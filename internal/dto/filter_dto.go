package dto

// ListFilter is bound from the query string of the dashboard list endpoints.
type ListFilter struct {
	Search string `form:"search"`
	// Date narrows the list to one calendar day in the shop's timezone.
	Date  string `form:"date"             validate:"omitempty,datetime=2006-01-02"`
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// Offset is the number of rows skipped for the requested page.
func (f ListFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// TotalPages rounds total up to whole pages of limit rows.
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
