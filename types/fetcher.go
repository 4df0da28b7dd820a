package types

import "context"

/*
Fetcher is the contract between the query cache and whatever produces the data.

It is called when the cache has no fresh value for a key:
 1. Cache checks memory → key missing or stale
 2. Cache calls the Fetcher
 3. Fetcher talks to the REST API (or anything else)
 4. Cache stores the result under the key
 5. Cache returns the result

A Fetcher must not write to the cache itself.
*/
type Fetcher[T any] func(ctx context.Context) (T, error)
