// Package routemap holds the display state of the delivery route map.
package routemap

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/directions"
	"github.com/ukydev/fleet-console/internal/models"
)

// RouteLister lists the stored routes.
type RouteLister interface {
	List(ctx context.Context) ([]models.Route, error)
}

// Enricher attaches driving directions to routes.
type Enricher interface {
	Enrich(ctx context.Context, routes []models.Route) ([]directions.EnrichedRoute, error)
}

// Snapshot is what the map renders.
type Snapshot struct {
	Loading     bool                       `json:"loading"`
	Error       string                     `json:"error,omitempty"`
	Routes      []directions.EnrichedRoute `json:"routes"`
	Bounds      *directions.Bounds         `json:"bounds,omitempty"`
	Padding     [2]int                     `json:"padding"`
	RefreshedAt time.Time                  `json:"refreshedAt,omitzero"`
}

// View owns the route map state.
type View struct {
	lister   RouteLister
	enricher Enricher
	now      func() time.Time

	mu     sync.RWMutex
	state  Snapshot
	gen    uint64
	cancel context.CancelFunc
}

// ErrSuperseded is returned by a refresh that a newer refresh replaced
// before it finished. Its result is discarded.
var ErrSuperseded = errors.New("refresh superseded")

// NewView creates an empty map view.
func NewView(lister RouteLister, enricher Enricher) *View {
	return &View{
		lister:   lister,
		enricher: enricher,
		now:      time.Now,
		state:    Snapshot{Routes: []directions.EnrichedRoute{}, Padding: directions.Padding},
	}
}

// Refresh reloads the routes and their directions. On any failure the view
// shows the error and no routes. Starting a refresh cancels the one in
// flight; only the newest refresh updates the view.
func (v *View) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.state.Loading = true
	v.mu.Unlock()

	enriched, err := v.load(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		log.WithField("generation", gen).Debug("Discarding superseded route map refresh")
		return ErrSuperseded
	}
	cancel()
	v.cancel = nil
	v.state.Loading = false
	v.state.RefreshedAt = v.now()
	if err != nil {
		log.WithError(err).Error("Failed to refresh route map")
		v.state.Error = err.Error()
		v.state.Routes = []directions.EnrichedRoute{}
		v.state.Bounds = nil
		return err
	}

	v.state.Error = ""
	v.state.Routes = enriched
	v.state.Bounds = nil
	if b, ok := directions.ComputeBounds(enriched); ok {
		v.state.Bounds = &b
	}
	log.WithField("routes", len(enriched)).Info("Route map refreshed")
	return nil
}

func (v *View) load(ctx context.Context) ([]directions.EnrichedRoute, error) {
	routes, err := v.lister.List(ctx)
	if err != nil {
		return nil, err
	}
	return v.enricher.Enrich(ctx, routes)
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := v.state
	s.Routes = append([]directions.EnrichedRoute(nil), v.state.Routes...)
	if v.state.Bounds != nil {
		b := *v.state.Bounds
		s.Bounds = &b
	}
	return s
}
