package models

import (
	"strings"
	"time"
)

// VehicleType is the fleet category of a vehicle.
type VehicleType string

const (
	VehicleTypeBike        VehicleType = "bike"
	VehicleTypeThreeWheel  VehicleType = "three_wheel"
	VehicleTypeDieselWheel VehicleType = "diesel_wheel"
	VehicleTypeLorry       VehicleType = "lorry"
)

// VehicleTypes lists every accepted vehicle category in display order.
var VehicleTypes = []VehicleType{
	VehicleTypeBike,
	VehicleTypeThreeWheel,
	VehicleTypeDieselWheel,
	VehicleTypeLorry,
}

// IsValidVehicleType checks if a vehicle type is one of the fleet categories.
func IsValidVehicleType(t VehicleType) bool {
	for _, known := range VehicleTypes {
		if t == known {
			return true
		}
	}
	return false
}

// FuelType is the fuel category of a vehicle.
type FuelType string

const (
	FuelPetrol   FuelType = "Petrol"
	FuelDiesel   FuelType = "Diesel"
	FuelElectric FuelType = "Electric"
	FuelHybrid   FuelType = "Hybrid"
	FuelCNG      FuelType = "CNG"
)

// FuelTypes lists every accepted fuel category.
var FuelTypes = []FuelType{FuelPetrol, FuelDiesel, FuelElectric, FuelHybrid, FuelCNG}

// ParseFuelType matches s case-insensitively against the fuel categories and
// returns the canonical spelling.
func ParseFuelType(s string) (FuelType, bool) {
	for _, f := range FuelTypes {
		if strings.EqualFold(s, string(f)) {
			return f, true
		}
	}
	return "", false
}

// Status is the approval state the backend assigns to vehicles and routes.
type Status string

const (
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
	StatusPending  Status = "Pending"
)

// OrPending returns the status, treating an empty value as pending.
func (s Status) OrPending() Status {
	if s == "" {
		return StatusPending
	}
	return s
}

// Vehicle represents a fleet vehicle as stored by the backend.
type Vehicle struct {
	ID                  string      `json:"_id,omitzero"`
	NumberPlate         string      `json:"numberPlate"`
	Type                VehicleType `json:"vehicleType"`
	Capacity            int         `json:"vehicleCapacity"` // in kilograms
	FuelType            FuelType    `json:"fuelType"`
	Mileage             int         `json:"mileage"` // odometer, in kilometers
	InsuranceExpiryDate time.Time   `json:"insuranceExpiryDate"`
	// The backend names this field "LicenedDate".
	LicensedDate    time.Time `json:"LicenedDate"`
	LastServiceDate time.Time `json:"lastServiceDate"`
	NextServiceDue  time.Time `json:"nextServiceDue"`
	ImageURL        string    `json:"vehicleImgUrl"`
	Status          Status    `json:"status,omitzero"`
	IsAssigned      bool      `json:"isAssigned"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
	UpdatedAt       time.Time `json:"updatedAt,omitzero"`
}
