package directions

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/models"
	"golang.org/x/sync/errgroup"
)

// Colors are assigned to routes by index, wrapping around.
var Colors = []string{"blue", "green", "red", "orange", "purple"}

// ColorFor returns the display color of the i-th route.
func ColorFor(i int) string {
	return Colors[i%len(Colors)]
}

// Padding is the fixed pixel padding the map keeps around Bounds.
var Padding = [2]int{50, 50}

// EnrichedRoute is a route with its driving path attached.
type EnrichedRoute struct {
	models.Route
	Path        []models.Location `json:"path"`
	DistanceKm  float64           `json:"distanceKm"`
	DurationMin float64           `json:"durationMin"`
	Color       string            `json:"color"`
}

// Enricher looks up directions for a batch of routes.
type Enricher struct {
	provider Provider
	limit    int
}

// NewEnricher creates an enricher running at most limit lookups at a time.
func NewEnricher(p Provider, limit int) *Enricher {
	if limit <= 0 {
		limit = 1
	}
	return &Enricher{provider: p, limit: limit}
}

// Enrich fetches directions for every route. It is all or nothing: the first
// failure cancels the remaining lookups and no routes are returned.
func (e *Enricher) Enrich(ctx context.Context, routes []models.Route) ([]EnrichedRoute, error) {
	out := make([]EnrichedRoute, len(routes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)

	for i, r := range routes {
		g.Go(func() error {
			leg, err := e.provider.Directions(ctx, r.Start, r.End)
			if err != nil {
				log.WithError(err).WithField("routeSlug", r.Slug).Error("Failed to fetch directions")
				return fmt.Errorf("directions for route %q: %w", r.Name, err)
			}
			out[i] = EnrichedRoute{
				Route:       r,
				Path:        leg.Path,
				DistanceKm:  leg.DistanceKm,
				DurationMin: leg.DurationMin,
				Color:       ColorFor(i),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Bounds is a latitude/longitude rectangle.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// ComputeBounds returns the rectangle covering every route's endpoints and
// path. ok is false when there are no points.
func ComputeBounds(routes []EnrichedRoute) (b Bounds, ok bool) {
	b = Bounds{South: math.Inf(1), West: math.Inf(1), North: math.Inf(-1), East: math.Inf(-1)}
	extend := func(l models.Location) {
		b.South = math.Min(b.South, l.Lat)
		b.North = math.Max(b.North, l.Lat)
		b.West = math.Min(b.West, l.Lon)
		b.East = math.Max(b.East, l.Lon)
		ok = true
	}
	for _, r := range routes {
		extend(r.Start)
		extend(r.End)
		for _, p := range r.Path {
			extend(p)
		}
	}
	if !ok {
		return Bounds{}, false
	}
	return b, true
}
