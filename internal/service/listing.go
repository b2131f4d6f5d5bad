package service

import (
	"strings"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/dto"
	"maaztelecom/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// listQuery turns a dashboard filter into a store query. A date selects the
// whole calendar day in loc.
func listQuery(f dto.ListFilter, loc *time.Location) (repository.ListQuery, dto.ListFilter, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	q := repository.ListQuery{
		Search: strings.TrimSpace(f.Search),
		Offset: f.Offset(),
		Limit:  f.Limit,
	}
	if f.Date != "" {
		day, err := time.ParseInLocation("2006-01-02", f.Date, loc)
		if err != nil {
			return q, f, apierror.Validation("invalid date, expected YYYY-MM-DD")
		}
		q.From = day
		q.To = day.AddDate(0, 0, 1)
	}
	return q, f, nil
}
