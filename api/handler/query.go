package handler

import (
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/validation"
)

// parseTaskQuery reads the listing filters from the query string. Malformed numbers and
// booleans are reported per field instead of silently falling back to defaults.
func parseTaskQuery(args *fasthttp.Args) (domain.TaskQuery, error) {
	q := domain.DefaultTaskQuery()
	var errs []error

	if v, ok := peek(args, "include_deleted"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, validation.Fail("include_deleted", "must be a boolean"))
		}
		q.IncludeDeleted = b
	}
	if v, ok := peek(args, "is_completed"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, validation.Fail("is_completed", "must be a boolean"))
		} else {
			q.IsCompleted = &b
		}
	}
	if v, ok := peek(args, "category"); ok {
		q.Category = &v
	}
	if v, ok := peek(args, "priority"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, validation.Fail("priority", "must be an integer"))
		} else {
			p := domain.Priority(n)
			q.Priority = &p
		}
	}
	if v, ok := peek(args, "sort_by"); ok {
		q.SortBy = domain.ParseSortField(v)
	}
	if v, ok := peek(args, "sort_asc"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, validation.Fail("sort_asc", "must be a boolean"))
		}
		q.SortAscending = b
	}
	if v, ok := peek(args, "page"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, validation.Fail("page", "must be an integer"))
		} else {
			q.Page = n
		}
	}
	if v, ok := peek(args, "page_size"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, validation.Fail("page_size", "must be an integer"))
		} else {
			q.PageSize = n
		}
	}
	return q, validation.Merge(errs...)
}

func peek(args *fasthttp.Args, key string) (string, bool) {
	if !args.Has(key) {
		return "", false
	}
	v := strings.TrimSpace(string(args.Peek(key)))
	return v, v != ""
}

func parseLimit(args *fasthttp.Args, fallback, ceiling int) int {
	v, ok := peek(args, "limit")
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return min(n, ceiling)
}
