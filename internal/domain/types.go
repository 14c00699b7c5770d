package domain

import "strings"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListQuery carries paging, sorting and free-form filters for admin lists.
type ListQuery struct {
	Page      int
	PageSize  int
	Keyword   string
	Status    string
	SortField string
	SortDesc  bool
	Filters   map[string]string
}

// Normalize clamps paging values into usable ranges.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	q.Keyword = strings.TrimSpace(q.Keyword)
	q.Status = strings.ToUpper(strings.TrimSpace(q.Status))
	return q
}

func (q ListQuery) Offset() int {
	q = q.Normalize()
	return (q.Page - 1) * q.PageSize
}

func (q ListQuery) Filter(key string) string {
	if q.Filters == nil {
		return ""
	}
	return strings.TrimSpace(q.Filters[key])
}

// Page is the single list envelope returned by every list endpoint.
type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

func NewPage[T any](items []T, q ListQuery, total int) Page[T] {
	q = q.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: q.Page, PageSize: q.PageSize, Total: total}
}

// Role values for users.
const (
	RoleCustomer = "CUSTOMER"
	RoleStaff    = "STAFF"
	RoleAdmin    = "ADMIN"
)

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

func (r RequestContext) IsStaff() bool {
	return r.Role == RoleStaff || r.Role == RoleAdmin
}
