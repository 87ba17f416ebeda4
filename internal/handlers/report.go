package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/listing"
	"github.com/ukydev/fleet-console/internal/models"
	"github.com/ukydev/fleet-console/internal/report"
)

// VehicleLister lists the fleet.
type VehicleLister interface {
	List(ctx context.Context) ([]models.Vehicle, error)
}

// ReportHandler renders the inventory report for the filtered fleet.
type ReportHandler struct {
	vehicles VehicleLister
	company  string
	now      func() time.Time
}

// NewReportHandler creates a report handler.
func NewReportHandler(vehicles VehicleLister, company string) *ReportHandler {
	return &ReportHandler{vehicles: vehicles, company: company, now: time.Now}
}

// Filter reads the plate query (q) and vehicle type (type) parameters.
func Filter(r *http.Request) listing.VehicleFilter {
	return listing.VehicleFilter{
		PlateQuery: r.URL.Query().Get("q"),
		Type:       models.VehicleType(r.URL.Query().Get("type")),
	}
}

// Vehicles returns the filtered fleet as JSON.
func (h *ReportHandler) Vehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.vehicles.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"message": err.Error()})
		return
	}
	filtered := Filter(r).Apply(vehicles)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicles": filtered,
		"stats":    listing.VehicleStats(filtered),
	})
}

// PDF streams the inventory report.
func (h *ReportHandler) PDF(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.vehicles.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"message": err.Error()})
		return
	}
	filtered := Filter(r).Apply(vehicles)

	now := h.now()
	var buf bytes.Buffer
	if err := report.Write(&buf, filtered, report.Options{Company: h.company, GeneratedAt: now}); err != nil {
		log.WithError(err).Error("Failed to render vehicle report")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to render report"})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="vehicle-report-%s.pdf"`, now.Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
