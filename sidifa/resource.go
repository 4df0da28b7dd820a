package sidifa

import (
	"context"
	"net/http"
	"time"

	cache "github.com/sidifa/querycache"
)

// KeyVersion prefixes every key so a payload change can be rolled out by bumping it.
const KeyVersion = "v1"

// Prefix returns the cache key prefix of a resource, e.g. "v1:posyandu".
func Prefix(resource string) string {
	return cache.BuildKey(KeyVersion, resource)
}

/*
Resource is one REST collection read through the query cache.

List and Get are stale-while-revalidate reads. Create, Update and Delete go
straight to the API and then invalidate every list page of the resource, the
touched detail key and the prefixes of dependent resources (for example the
dashboard, whose counters move with every write).
*/
type Resource[T any] struct {
	name    string
	path    string
	filters []string

	// dependents are resource prefixes invalidated with this one.
	dependents []string

	client *Client
	cache  *cache.QueryCache
	window time.Duration
}

// NewResource builds a resource. filters fixes the order filters take in list keys.
func NewResource[T any](
	client *Client,
	qc *cache.QueryCache,
	window time.Duration,
	name, path string,
	filters []string,
	dependents ...string,
) *Resource[T] {
	return &Resource[T]{
		name:       name,
		path:       path,
		filters:    filters,
		dependents: dependents,
		client:     client,
		cache:      qc,
		window:     window,
	}
}

// Name is the resource name, e.g. "posyandu".
func (r *Resource[T]) Name() string { return r.name }

// Prefix is the cache key prefix shared by every key of the resource.
func (r *Resource[T]) Prefix() string { return Prefix(r.name) }

// Filters lists the filter names the resource accepts, in key order.
func (r *Resource[T]) Filters() []string { return r.filters }

// ListKey is the cache key of one list page. p should be normalized.
func (r *Resource[T]) ListKey(p ListParams) string {
	parts := make([]any, 0, 4+len(r.filters))
	parts = append(parts, "list", p.Page, p.Limit, p.Search)
	for _, name := range r.filters {
		parts = append(parts, p.Filters[name])
	}
	return cache.BuildKey(r.Prefix(), parts...)
}

// DetailKey is the cache key of one record.
func (r *Resource[T]) DetailKey(id string) string {
	return cache.BuildKey(r.Prefix(), "detail", id)
}

func (r *Resource[T]) detailPath(id string) string {
	return r.path + "/" + id
}

// List returns one page, from cache when possible.
func (r *Resource[T]) List(ctx context.Context, p ListParams) (cache.Result[Page[T]], error) {
	p = p.Normalize()
	query := p.query(r.filters)

	return cache.Query(ctx, r.cache, r.ListKey(p), func(ctx context.Context) (Page[T], error) {
		var page Page[T]
		if err := r.client.do(ctx, http.MethodGet, r.path, query, nil, &page); err != nil {
			return Page[T]{}, err
		}
		return page, nil
	}, r.window)
}

// Get returns one record, from cache when possible.
func (r *Resource[T]) Get(ctx context.Context, id string) (cache.Result[T], error) {
	return cache.Query(ctx, r.cache, r.DetailKey(id), func(ctx context.Context) (T, error) {
		var env envelope[T]
		if err := r.client.do(ctx, http.MethodGet, r.detailPath(id), nil, nil, &env); err != nil {
			var zero T
			return zero, err
		}
		return env.Data, nil
	}, r.window)
}

// Create posts a new record and invalidates the resource.
func (r *Resource[T]) Create(ctx context.Context, body any) (T, error) {
	var env envelope[T]
	if err := r.client.do(ctx, http.MethodPost, r.path, nil, body, &env); err != nil {
		var zero T
		return zero, err
	}
	r.invalidate("")
	return env.Data, nil
}

// Update replaces a record, invalidates the resource and primes the detail key
// with the record the API returned.
func (r *Resource[T]) Update(ctx context.Context, id string, body any) (T, error) {
	var env envelope[T]
	if err := r.client.do(ctx, http.MethodPut, r.detailPath(id), nil, body, &env); err != nil {
		var zero T
		return zero, err
	}
	r.invalidate(id)
	r.cache.Set(r.DetailKey(id), env.Data, r.window)
	return env.Data, nil
}

// Delete removes a record and invalidates the resource.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if err := r.client.do(ctx, http.MethodDelete, r.detailPath(id), nil, nil, nil); err != nil {
		return err
	}
	r.invalidate(id)
	return nil
}

// invalidate drops list pages, the detail key of id (if any) and dependents.
func (r *Resource[T]) invalidate(id string) int {
	n := 0
	if id != "" {
		key := r.DetailKey(id)
		if _, ok := r.cache.Peek(key); ok {
			n++
		}
		r.cache.Remove(key)
	}
	n += r.cache.RemoveByPrefix(r.Prefix() + cache.KeySeparator)
	for _, dep := range r.dependents {
		n += r.cache.RemoveByPrefix(Prefix(dep) + cache.KeySeparator)
	}

	r.cache.Engine().Log.WithField("resource", r.name).WithField("removed", n).Debug("invalidated after write")
	return n
}
