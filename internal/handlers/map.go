package handlers

import (
	"context"
	_ "embed"
	"errors"
	"net/http"

	"github.com/ukydev/fleet-console/internal/routemap"
)

//go:embed static/map.html
var mapPage []byte

// MapView is the route map state the handler serves.
type MapView interface {
	Refresh(ctx context.Context) error
	Snapshot() routemap.Snapshot
}

// MapHandler serves the route map page and its data.
type MapHandler struct {
	view MapView
}

// NewMapHandler creates a map handler.
func NewMapHandler(view MapView) *MapHandler {
	return &MapHandler{view: view}
}

// Index serves the map page.
func (h *MapHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(mapPage)
}

// Routes returns the current map state.
func (h *MapHandler) Routes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view.Snapshot())
}

// Refresh reloads the routes and their directions.
func (h *MapHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	// a superseded refresh answers with the state of the newer one
	if err := h.view.Refresh(r.Context()); err != nil && !errors.Is(err, routemap.ErrSuperseded) {
		writeJSON(w, http.StatusBadGateway, h.view.Snapshot())
		return
	}
	writeJSON(w, http.StatusOK, h.view.Snapshot())
}
