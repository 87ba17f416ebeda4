package routemap

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-console/internal/directions"
	"github.com/ukydev/fleet-console/internal/models"
)

type listerFunc func(ctx context.Context) ([]models.Route, error)

func (f listerFunc) List(ctx context.Context) ([]models.Route, error) { return f(ctx) }

type failingProvider struct{ failEnd models.Location }

func (p failingProvider) Directions(ctx context.Context, start, end models.Location) (*directions.Leg, error) {
	if end == p.failEnd {
		return nil, errors.New("ors status 404")
	}
	return &directions.Leg{Path: []models.Location{start, end}, DistanceKm: 3.2, DurationMin: 7.5}, nil
}

var threeRoutes = []models.Route{
	{Name: "A", Start: models.Location{Lat: 6.9, Lon: 79.8}, End: models.Location{Lat: 7.2, Lon: 80.6}},
	{Name: "B", Start: models.Location{Lat: 6.9, Lon: 79.8}, End: models.Location{Lat: 6.0, Lon: 80.2}},
	{Name: "C", Start: models.Location{Lat: 7.2, Lon: 80.6}, End: models.Location{Lat: 8.3, Lon: 80.4}},
}

func list(routes []models.Route) listerFunc {
	return func(ctx context.Context) ([]models.Route, error) { return routes, nil }
}

func TestRefresh(t *testing.T) {
	view := NewView(list(threeRoutes), directions.NewEnricher(failingProvider{}, 3))
	require.NoError(t, view.Refresh(context.Background()))

	s := view.Snapshot()
	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
	require.Len(t, s.Routes, 3)
	require.NotNil(t, s.Bounds)
	assert.Equal(t, 6.0, s.Bounds.South)
	assert.Equal(t, 8.3, s.Bounds.North)
	assert.Equal(t, [2]int{50, 50}, s.Padding)
}

func TestRefresh_OneRejectedRouteShowsNone(t *testing.T) {
	provider := failingProvider{failEnd: threeRoutes[1].End}
	view := NewView(list(threeRoutes), directions.NewEnricher(provider, 3))

	err := view.Refresh(context.Background())
	require.Error(t, err)

	s := view.Snapshot()
	assert.False(t, s.Loading)
	assert.NotEmpty(t, s.Error)
	assert.Empty(t, s.Routes)
	assert.Nil(t, s.Bounds)
}

func TestRefresh_ListFailureClearsPreviousRoutes(t *testing.T) {
	fail := false
	lister := listerFunc(func(ctx context.Context) ([]models.Route, error) {
		if fail {
			return nil, errors.New("network error")
		}
		return threeRoutes, nil
	})
	view := NewView(lister, directions.NewEnricher(failingProvider{}, 1))
	require.NoError(t, view.Refresh(context.Background()))
	require.Len(t, view.Snapshot().Routes, 3)

	fail = true
	assert.Error(t, view.Refresh(context.Background()))
	assert.Empty(t, view.Snapshot().Routes)
	assert.Equal(t, "network error", view.Snapshot().Error)
}

func TestRefresh_LoadingDuringFetch(t *testing.T) {
	var view *View
	var sawLoading bool
	lister := listerFunc(func(ctx context.Context) ([]models.Route, error) {
		sawLoading = view.Snapshot().Loading
		return nil, nil
	})
	view = NewView(lister, directions.NewEnricher(failingProvider{}, 1))

	require.NoError(t, view.Refresh(context.Background()))
	assert.True(t, sawLoading)
	assert.False(t, view.Snapshot().Loading)
	assert.Nil(t, view.Snapshot().Bounds)
}

func TestRefresh_NewestWins(t *testing.T) {
	type call struct {
		started chan struct{}
		release chan struct{}
		routes  []models.Route
		ctxErr  error
	}
	calls := []*call{
		{started: make(chan struct{}), release: make(chan struct{}), routes: threeRoutes[:1]},
		{started: make(chan struct{}), release: make(chan struct{}), routes: threeRoutes},
	}
	var mu sync.Mutex
	n := 0
	lister := listerFunc(func(ctx context.Context) ([]models.Route, error) {
		mu.Lock()
		c := calls[n]
		n++
		mu.Unlock()
		close(c.started)
		<-c.release
		mu.Lock()
		c.ctxErr = ctx.Err()
		mu.Unlock()
		return c.routes, nil
	})
	view := NewView(lister, directions.NewEnricher(failingProvider{}, 3))

	first := make(chan error, 1)
	go func() { first <- view.Refresh(context.Background()) }()
	<-calls[0].started

	second := make(chan error, 1)
	go func() { second <- view.Refresh(context.Background()) }()
	<-calls[1].started

	close(calls[0].release)
	assert.ErrorIs(t, <-first, ErrSuperseded)
	assert.True(t, view.Snapshot().Loading)
	assert.Empty(t, view.Snapshot().Routes)

	close(calls[1].release)
	require.NoError(t, <-second)

	s := view.Snapshot()
	assert.False(t, s.Loading)
	assert.Len(t, s.Routes, 3)

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, calls[0].ctxErr, context.Canceled)
	assert.NoError(t, calls[1].ctxErr)
}
