package api

import (
	"context"

	"github.com/ukydev/fleet-console/internal/models"
)

// RouteAPI wraps the backend delivery route endpoints.
type RouteAPI struct {
	client *Client
}

// NewRouteAPI creates the route resource module.
func NewRouteAPI(c *Client) *RouteAPI {
	return &RouteAPI{client: c}
}

// List returns every delivery route.
func (a *RouteAPI) List(ctx context.Context) ([]models.Route, error) {
	var routes []models.Route
	if err := a.client.Get(ctx, "/route", &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// Create stores a new delivery route.
func (a *RouteAPI) Create(ctx context.Context, r models.Route) (*models.Route, error) {
	r.ID = ""
	var created models.Route
	if err := a.client.Post(ctx, "/route", r, &created); err != nil {
		return nil, err
	}
	if created.Name == "" {
		created = r
	}
	return &created, nil
}
