package sidifa

import "strconv"

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListParams are the pagination and filter inputs of a list view.
type ListParams struct {
	Page   int
	Limit  int
	Search string

	// Filters holds resource-specific filters by query name. Names a resource
	// does not know are ignored, both in the request and in the cache key.
	Filters map[string]string
}

// Normalize clamps paging so equivalent requests share a cache key.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// query renders the params for the REST API, keeping only the allowed filters.
func (p ListParams) query(allowed []string) map[string]string {
	q := map[string]string{
		"page":  strconv.Itoa(p.Page),
		"limit": strconv.Itoa(p.Limit),
	}
	if p.Search != "" {
		q["search"] = p.Search
	}
	for _, name := range allowed {
		if v := p.Filters[name]; v != "" {
			q[name] = v
		}
	}
	return q
}
