package models

import "time"

// Route is a named delivery path between two resolved places.
type Route struct {
	ID        string    `json:"_id,omitzero"`
	Name      string    `json:"routeName"`
	Slug      string    `json:"routeSlug"`
	Start     Location  `json:"startLocation"`
	End       Location  `json:"endLocation"`
	Status    Status    `json:"status,omitzero"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}
