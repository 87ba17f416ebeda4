package api

import (
	"context"

	"github.com/ukydev/fleet-console/internal/models"
)

// VehicleAPI wraps the backend vehicle endpoints.
type VehicleAPI struct {
	client *Client
}

// NewVehicleAPI creates the vehicle resource module.
func NewVehicleAPI(c *Client) *VehicleAPI {
	return &VehicleAPI{client: c}
}

// List returns every vehicle.
func (a *VehicleAPI) List(ctx context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := a.client.Get(ctx, "/vehicles", &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// Create registers a new vehicle and returns the stored record.
func (a *VehicleAPI) Create(ctx context.Context, v models.Vehicle) (*models.Vehicle, error) {
	v.ID = ""
	var created models.Vehicle
	if err := a.client.Post(ctx, "/vehicles", v, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update replaces the vehicle with the given id.
func (a *VehicleAPI) Update(ctx context.Context, id string, v models.Vehicle) (*models.Vehicle, error) {
	if err := a.client.checkID(id); err != nil {
		return nil, err
	}
	var updated models.Vehicle
	if err := a.client.Put(ctx, "/vehicles/"+id, v, &updated); err != nil {
		return nil, err
	}
	if updated.ID == "" {
		updated = v
		updated.ID = id
	}
	return &updated, nil
}

// Delete removes the vehicle with the given id.
func (a *VehicleAPI) Delete(ctx context.Context, id string) error {
	if err := a.client.checkID(id); err != nil {
		return err
	}
	return a.client.Delete(ctx, "/vehicles/"+id)
}
