package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-console/internal/auth"
	"github.com/ukydev/fleet-console/internal/config"
	"github.com/ukydev/fleet-console/internal/directions"
	"github.com/ukydev/fleet-console/internal/models"
	"github.com/ukydev/fleet-console/internal/store"
)

const truckID = "64b7f0c2a1b2c3d4e5f60718"

var admin = models.User{ID: "a1", Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin}

type backend struct {
	mu            sync.Mutex
	vehicles      []models.Vehicle
	routes        []models.Route
	created       []models.Vehicle
	createdRoutes []models.Route
	updated       map[string]models.Vehicle
	deleted       []string
	calls         int
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	count := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			b.calls++
			b.mu.Unlock()
			next(w, r)
		}
	}

	mux.HandleFunc("POST /api/auth/admin/login", count(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "login-cookie", Path: "/"})
		json.NewEncoder(w).Encode(models.LoginResponse{Message: "ok", User: admin})
	}))
	mux.HandleFunc("POST /api/auth/logout", count(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	mux.HandleFunc("GET /api/vehicles", count(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.vehicles)
	}))
	mux.HandleFunc("POST /api/vehicles", count(func(w http.ResponseWriter, r *http.Request) {
		var v models.Vehicle
		json.NewDecoder(r.Body).Decode(&v)
		b.mu.Lock()
		b.created = append(b.created, v)
		b.mu.Unlock()
		v.ID = truckID
		json.NewEncoder(w).Encode(v)
	}))
	mux.HandleFunc("PUT /api/vehicles/{id}", count(func(w http.ResponseWriter, r *http.Request) {
		var v models.Vehicle
		json.NewDecoder(r.Body).Decode(&v)
		b.mu.Lock()
		if b.updated == nil {
			b.updated = make(map[string]models.Vehicle)
		}
		b.updated[r.PathValue("id")] = v
		b.mu.Unlock()
		json.NewEncoder(w).Encode(v)
	}))
	mux.HandleFunc("DELETE /api/vehicles/{id}", count(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.deleted = append(b.deleted, r.PathValue("id"))
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	mux.HandleFunc("GET /api/route", count(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.routes)
	}))
	mux.HandleFunc("POST /api/route", count(func(w http.ResponseWriter, r *http.Request) {
		var route models.Route
		json.NewDecoder(r.Body).Decode(&route)
		b.mu.Lock()
		b.createdRoutes = append(b.createdRoutes, route)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(route)
	}))
	mux.HandleFunc("GET /geocode/search", func(w http.ResponseWriter, r *http.Request) {
		text := strings.ToLower(r.URL.Query().Get("text"))
		var features []map[string]interface{}
		switch {
		case strings.Contains(text, "colombo"):
			features = append(features, feature("Colombo, Sri Lanka", 79.8612, 6.9271))
		case strings.Contains(text, "galle"):
			features = append(features, feature("Galle, Sri Lanka", 80.2170, 6.0535))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"features": features})
	})
	mux.HandleFunc("GET /route/v1/driving/{coords}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"routes": []map[string]interface{}{{
				"distance": 12000.0,
				"duration": 900.0,
				"geometry": map[string]interface{}{
					"coordinates": [][]float64{{79.8612, 6.9271}, {80.2170, 6.0535}},
				},
			}},
		})
	})
	return mux
}

func feature(label string, lon, lat float64) map[string]interface{} {
	return map[string]interface{}{
		"geometry":   map[string]interface{}{"coordinates": []float64{lon, lat}},
		"properties": map[string]interface{}{"gid": "gid:" + label, "label": label},
	}
}

type console struct {
	backend     *backend
	sessionFile string
}

func newConsole(t *testing.T, loggedIn bool) *console {
	t.Helper()
	b := &backend{}
	server := httptest.NewServer(b.handler())
	t.Cleanup(server.Close)

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	t.Setenv("CONSOLE_API_URL", server.URL+"/api")
	t.Setenv("CONSOLE_SESSION_FILE", sessionFile)
	t.Setenv("ORS_BASE_URL", server.URL)
	t.Setenv("ORS_API_KEY", "test-key")
	t.Setenv("OSRM_BASE_URL", server.URL)
	t.Setenv("DIRECTIONS_PROVIDER", "osrm")
	t.Setenv("FIREBASE_STORAGE_BUCKET", "")
	t.Setenv("MQTT_BROKER", "")
	t.Setenv("LOG_LEVEL", "error")

	if loggedIn {
		err := store.NewFileSessionStore(sessionFile).Save(models.SessionRecord{User: admin, Token: "seeded-cookie"})
		require.NoError(t, err)
	}
	return &console{backend: b, sessionFile: sessionFile}
}

func (c *console) run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(input), &out)
	return out.String(), err
}

func newTestApp(t *testing.T) (*app, error) {
	t.Helper()
	a, err := newApp(context.Background(), config.Load(), strings.NewReader(""), &bytes.Buffer{})
	if err == nil {
		t.Cleanup(a.close)
	}
	return a, err
}

func TestRun_Usage(t *testing.T) {
	c := newConsole(t, false)

	out, err := c.run(t, "")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out, "Usage: fleet-console")

	out, err = c.run(t, "", "fly")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out, `unknown command "fly"`)

	out, err = c.run(t, "", "help")
	assert.NoError(t, err)
	assert.Contains(t, out, "vehicles report")
}

func TestWhoami_WithoutSession(t *testing.T) {
	c := newConsole(t, false)

	_, err := c.run(t, "", "whoami")
	assert.ErrorIs(t, err, auth.ErrNoSession)
}

func TestLoginWhoamiLogout(t *testing.T) {
	c := newConsole(t, false)

	out, err := c.run(t, "secret\n", "login", "-email", "admin@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Admin (admin)")

	out, err = c.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin <admin@example.com>")
	assert.Contains(t, out, "role: admin")

	out, err = c.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = os.Stat(c.sessionFile)
	assert.True(t, os.IsNotExist(err))
}

func TestLogin_MissingPassword(t *testing.T) {
	c := newConsole(t, false)

	_, err := c.run(t, "\n", "login", "-email", "admin@example.com")
	assert.EqualError(t, err, "email and password are required")
	assert.Zero(t, c.backend.calls)
}

func TestCommands_RequireLogin(t *testing.T) {
	c := newConsole(t, false)

	for _, args := range [][]string{
		{"vehicles", "list"},
		{"routes", "list"},
		{"serve"},
	} {
		_, err := c.run(t, "", args...)
		assert.ErrorIs(t, err, auth.ErrNoSession, args)
	}
	assert.Zero(t, c.backend.calls)
}

func TestVehiclesList_Filters(t *testing.T) {
	c := newConsole(t, true)
	c.backend.vehicles = []models.Vehicle{
		{ID: "v1", NumberPlate: "AB-1234", Type: models.VehicleTypeLorry, Capacity: 1000, FuelType: models.FuelDiesel, Mileage: 52000, Status: models.StatusApproved},
		{ID: "v2", NumberPlate: "CAB 9876", Type: models.VehicleTypeBike, Capacity: 20, FuelType: models.FuelPetrol, Mileage: 800},
		{ID: "v3", NumberPlate: "XY-5555", Type: models.VehicleTypeLorry, Capacity: 900, FuelType: models.FuelDiesel, Mileage: 100, Status: models.StatusRejected},
	}

	out, err := c.run(t, "", "vehicles", "list", "-type", "lorry", "-q", "ab")
	require.NoError(t, err)
	assert.Contains(t, out, "AB-1234")
	assert.Contains(t, out, "1000 kg")
	assert.NotContains(t, out, "CAB 9876")
	assert.NotContains(t, out, "XY-5555")
	assert.Contains(t, out, "1 vehicles: 1 approved, 0 rejected, 0 pending")

	_, err = c.run(t, "", "vehicles", "list", "-type", "truck")
	assert.EqualError(t, err, `unknown vehicle type "truck"`)
}

func TestVehiclesDelete_Confirmation(t *testing.T) {
	c := newConsole(t, true)

	out, err := c.run(t, "n\n", "vehicles", "delete", truckID)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Empty(t, c.backend.deleted)

	out, err = c.run(t, "y\n", "vehicles", "delete", truckID)
	require.NoError(t, err)
	assert.Contains(t, out, "Vehicle "+truckID+" deleted")

	_, err = c.run(t, "", "vehicles", "delete", "-yes", truckID)
	require.NoError(t, err)
	assert.Equal(t, []string{truckID, truckID}, c.backend.deleted)
}

func TestVehiclesAdd_Wizard(t *testing.T) {
	c := newConsole(t, true)

	input := strings.Join([]string{
		"bad plate",
		"ab-1234",
		"lorry",
		"1000",
		"diesel",
		"52000",
		"2099-01-01",
		"2099-02-01",
		"2099-03-01",
		"2099-04-01",
		"https://img.example.com/truck.jpg",
	}, "\n") + "\n"

	out, err := c.run(t, input, "vehicles", "add")
	require.NoError(t, err)
	assert.Contains(t, out, "Invalid format")
	assert.Contains(t, out, "Step 2/3: Insurance & Service")
	assert.Contains(t, out, "Vehicle AB-1234 added")

	require.Len(t, c.backend.created, 1)
	v := c.backend.created[0]
	assert.Equal(t, "AB-1234", v.NumberPlate)
	assert.Equal(t, models.VehicleTypeLorry, v.Type)
	assert.Equal(t, 1000, v.Capacity)
	assert.Equal(t, models.FuelDiesel, v.FuelType)
	assert.Equal(t, 52000, v.Mileage)
	assert.Equal(t, "2099-04-01", v.NextServiceDue.Format("2006-01-02"))
	assert.Equal(t, "https://img.example.com/truck.jpg", v.ImageURL)
}

func TestVehiclesAdd_FileWithoutStorage(t *testing.T) {
	c := newConsole(t, true)

	input := strings.Join([]string{
		"ab-1234", "bike", "20", "petrol", "800",
		"2099-01-01", "2099-01-01", "2099-01-01", "2099-01-01",
		"/tmp/truck.jpg",
		"https://img.example.com/bike.jpg",
	}, "\n") + "\n"

	out, err := c.run(t, input, "vehicles", "add")
	require.NoError(t, err)
	assert.Contains(t, out, "photo storage is not configured")
	require.Len(t, c.backend.created, 1)
	assert.Equal(t, "https://img.example.com/bike.jpg", c.backend.created[0].ImageURL)
}

func TestVehiclesEdit_KeepsDefaults(t *testing.T) {
	c := newConsole(t, true)
	due := time.Date(2099, 5, 1, 0, 0, 0, 0, time.UTC)
	c.backend.vehicles = []models.Vehicle{{
		ID: truckID, NumberPlate: "AB-1234", Type: models.VehicleTypeLorry, Capacity: 1000,
		FuelType: models.FuelDiesel, Mileage: 52000,
		InsuranceExpiryDate: due, LicensedDate: due, LastServiceDate: due, NextServiceDue: due,
		ImageURL: "https://img.example.com/truck.jpg", Status: models.StatusApproved, IsAssigned: true,
	}}

	// keep everything except the mileage
	input := strings.Join([]string{"", "", "", "", "53000", "", "", "", "", ""}, "\n") + "\n"

	out, err := c.run(t, input, "vehicles", "edit", truckID)
	require.NoError(t, err)
	assert.Contains(t, out, "Vehicle AB-1234 updated")

	v, ok := c.backend.updated[truckID]
	require.True(t, ok)
	assert.Equal(t, 53000, v.Mileage)
	assert.Equal(t, "https://img.example.com/truck.jpg", v.ImageURL)
	assert.True(t, v.IsAssigned)
	assert.True(t, due.Equal(v.NextServiceDue))

	_, err = c.run(t, "", "vehicles", "edit", "missing")
	assert.EqualError(t, err, "vehicle missing not found")
}

func TestVehiclesReport(t *testing.T) {
	c := newConsole(t, true)
	c.backend.vehicles = []models.Vehicle{
		{ID: "v1", NumberPlate: "AB-1234", Type: models.VehicleTypeLorry, Capacity: 1000, FuelType: models.FuelDiesel, Mileage: 52000},
	}
	file := filepath.Join(t.TempDir(), "report.pdf")

	out, err := c.run(t, "", "vehicles", "report", "-o", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Report with 1 vehicles written to "+file)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRoutesAdd(t *testing.T) {
	c := newConsole(t, true)

	input := strings.Join([]string{
		"Harbour Run",
		"",
		"atlantis",
		"colombo",
		"1",
		"galle",
		"1",
	}, "\n") + "\n"

	out, err := c.run(t, input, "routes", "add")
	require.NoError(t, err)
	assert.Contains(t, out, "no matching places")
	assert.Contains(t, out, "1) Colombo, Sri Lanka")
	assert.Contains(t, out, "Route Harbour Run (harbour-run) created")

	require.Len(t, c.backend.createdRoutes, 1)
	r := c.backend.createdRoutes[0]
	assert.Equal(t, "harbour-run", r.Slug)
	assert.Equal(t, models.Location{Lat: 6.9271, Lon: 79.8612}, r.Start)
	assert.Equal(t, models.Location{Lat: 6.0535, Lon: 80.2170}, r.End)
}

func TestRoutesListAndMap(t *testing.T) {
	c := newConsole(t, true)
	c.backend.routes = []models.Route{
		{ID: "r1", Name: "Harbour Run", Slug: "harbour-run", Start: models.Location{Lat: 6.9271, Lon: 79.8612}, End: models.Location{Lat: 6.0535, Lon: 80.2170}, Status: models.StatusApproved},
		{ID: "r2", Name: "Hill Loop", Slug: "hill-loop", Start: models.Location{Lat: 7.2906, Lon: 80.6337}, End: models.Location{Lat: 6.9497, Lon: 80.7891}},
	}

	out, err := c.run(t, "", "routes", "list", "-q", "harbour")
	require.NoError(t, err)
	assert.Contains(t, out, "harbour-run")
	assert.NotContains(t, out, "hill-loop")
	assert.Contains(t, out, "1 routes: 1 approved, 0 rejected, 0 pending")

	out, err = c.run(t, "", "routes", "map")
	require.NoError(t, err)
	assert.Contains(t, out, "12.0 km")
	assert.Contains(t, out, "15.0 min")
	assert.Contains(t, out, directions.ColorFor(1))
	assert.Contains(t, out, "Bounds:")
}

func TestNewServer_Health(t *testing.T) {
	newConsole(t, true)
	a, err := newTestApp(t)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.newServer().Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.newServer().Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin@example.com")
}
