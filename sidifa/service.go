package sidifa

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	cache "github.com/sidifa/querycache"
)

// Resource names, which are also their cache key segment and gateway path.
const (
	ResourcePosyandu = "posyandu"
	ResourceIBK      = "ibk"
	ResourceLaporan  = "laporan"
	ResourceLowongan = "lowongan"
)

// Services bundles every cached SI-DIFA read model over one client and cache.
type Services struct {
	Posyandu  *Resource[Posyandu]
	IBK       *Resource[IBK]
	Laporan   *Resource[AssessmentReport]
	Lowongan  *Resource[JobListing]
	Dashboard *Dashboard

	cache *cache.QueryCache
}

// NewServices builds every resource over client, caching lists and records for window.
func NewServices(client *Client, qc *cache.QueryCache, window time.Duration) *Services {
	return &Services{
		Posyandu: NewResource[Posyandu](client, qc, window,
			ResourcePosyandu, "/posyandu",
			[]string{"kecamatan"},
			dashboardName),
		// jumlah_ibk on posyandu moves with IBK writes.
		IBK: NewResource[IBK](client, qc, window,
			ResourceIBK, "/ibk",
			[]string{"posyandu_id", "jenis_disabilitas", "status"},
			dashboardName, ResourcePosyandu),
		Laporan: NewResource[AssessmentReport](client, qc, window,
			ResourceLaporan, "/laporan",
			[]string{"ibk_id", "psikolog_id", "status"},
			dashboardName),
		Lowongan: NewResource[JobListing](client, qc, window,
			ResourceLowongan, "/lowongan",
			[]string{"status"},
			dashboardName),
		Dashboard: NewDashboard(client, qc, window),
		cache:     qc,
	}
}

/*
Warm loads what a role sees right after login: its dashboard and the first page
of every list. The reads run concurrently; the first error cancels the rest and
is returned, but whatever was loaded before stays cached.
*/
func (s *Services) Warm(ctx context.Context, role string) error {
	g, ctx := errgroup.WithContext(ctx)
	first := ListParams{}.Normalize()

	g.Go(func() error {
		_, err := s.Dashboard.Stats(ctx, role)
		return wrapWarm(dashboardName, err)
	})
	g.Go(func() error {
		_, err := s.Posyandu.List(ctx, first)
		return wrapWarm(ResourcePosyandu, err)
	})
	g.Go(func() error {
		_, err := s.IBK.List(ctx, first)
		return wrapWarm(ResourceIBK, err)
	})
	g.Go(func() error {
		_, err := s.Laporan.List(ctx, first)
		return wrapWarm(ResourceLaporan, err)
	})
	g.Go(func() error {
		_, err := s.Lowongan.List(ctx, first)
		return wrapWarm(ResourceLowongan, err)
	})

	return g.Wait()
}

func wrapWarm(name string, err error) error {
	if err != nil {
		return fmt.Errorf("warm %s: %w", name, err)
	}
	return nil
}

// Cache returns the query cache behind the services.
func (s *Services) Cache() *cache.QueryCache { return s.cache }
