// Package listing filters already-fetched vehicle and route lists and counts
// them by approval status.
package listing

import (
	"strings"

	"github.com/ukydev/fleet-console/internal/models"
)

// VehicleFilter narrows a vehicle list. Zero-value predicates match all.
type VehicleFilter struct {
	PlateQuery string
	Type       models.VehicleType
}

// Matches reports whether v satisfies every predicate.
func (f VehicleFilter) Matches(v models.Vehicle) bool {
	if q := strings.TrimSpace(f.PlateQuery); q != "" &&
		!strings.Contains(strings.ToLower(v.NumberPlate), strings.ToLower(q)) {
		return false
	}
	if f.Type != "" && v.Type != f.Type {
		return false
	}
	return true
}

// Apply returns the matching vehicles in their original order.
func (f VehicleFilter) Apply(vehicles []models.Vehicle) []models.Vehicle {
	out := make([]models.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if f.Matches(v) {
			out = append(out, v)
		}
	}
	return out
}

// RouteFilter narrows a route list by name or slug.
type RouteFilter struct {
	Query string
}

// Matches reports whether r's name or slug contains the query.
func (f RouteFilter) Matches(r models.Route) bool {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Name), q) || strings.Contains(strings.ToLower(r.Slug), q)
}

// Apply returns the matching routes in their original order.
func (f RouteFilter) Apply(routes []models.Route) []models.Route {
	out := make([]models.Route, 0, len(routes))
	for _, r := range routes {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Stats counts records by approval status.
type Stats struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

func (s *Stats) add(status models.Status) {
	s.Total++
	switch status.OrPending() {
	case models.StatusApproved:
		s.Approved++
	case models.StatusRejected:
		s.Rejected++
	default:
		s.Pending++
	}
}

// VehicleStats counts vehicles by status.
func VehicleStats(vehicles []models.Vehicle) Stats {
	var s Stats
	for _, v := range vehicles {
		s.add(v.Status)
	}
	return s
}

// RouteStats counts routes by status.
func RouteStats(routes []models.Route) Stats {
	var s Stats
	for _, r := range routes {
		s.add(r.Status)
	}
	return s
}
