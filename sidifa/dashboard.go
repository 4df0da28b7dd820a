package sidifa

import (
	"context"
	"net/http"
	"time"

	cache "github.com/sidifa/querycache"
)

const dashboardName = "dashboard"

// Dashboard serves the per-role summary counters.
type Dashboard struct {
	client *Client
	cache  *cache.QueryCache
	window time.Duration
}

// NewDashboard caches dashboard stats in qc for window.
func NewDashboard(client *Client, qc *cache.QueryCache, window time.Duration) *Dashboard {
	return &Dashboard{client: client, cache: qc, window: window}
}

// Prefix is the cache key prefix of every dashboard key.
func (d *Dashboard) Prefix() string { return Prefix(dashboardName) }

// StatsKey is the cache key of the stats of role. An empty role is the global view.
func (d *Dashboard) StatsKey(role string) string {
	return cache.BuildKey(d.Prefix(), "stats", role)
}

// Stats returns the dashboard stats of role.
func (d *Dashboard) Stats(ctx context.Context, role string) (cache.Result[DashboardStats], error) {
	var query map[string]string
	if role != "" {
		query = map[string]string{"role": role}
	}

	return cache.Query(ctx, d.cache, d.StatsKey(role), func(ctx context.Context) (DashboardStats, error) {
		var env envelope[DashboardStats]
		if err := d.client.do(ctx, http.MethodGet, "/dashboard/stats", query, nil, &env); err != nil {
			return DashboardStats{}, err
		}
		return env.Data, nil
	}, d.window)
}
