// Package directions looks up driving paths between route endpoints and
// prepares them for the route map.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ukydev/fleet-console/internal/models"
)

const (
	DefaultORSBaseURL  = "https://api.openrouteservice.org"
	DefaultOSRMBaseURL = "https://router.project-osrm.org"
)

var ErrNoRoute = errors.New("no route")

// Leg is a driving path between two points.
type Leg struct {
	Path        []models.Location
	DistanceKm  float64
	DurationMin float64
}

// Provider computes driving directions.
type Provider interface {
	Directions(ctx context.Context, start, end models.Location) (*Leg, error)
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// toPath reprojects [lon, lat] pairs to locations.
func toPath(coords [][]float64) []models.Location {
	pts := make([]models.Location, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		pts = append(pts, models.Location{Lat: c[1], Lon: c[0]})
	}
	return pts
}

func getJSON(ctx context.Context, client *http.Client, endpoint, service string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s status %d", service, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", service, err)
	}
	return nil
}

// ORSProvider uses the OpenRouteService driving-car profile.
type ORSProvider struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewORSProvider creates an OpenRouteService provider.
func NewORSProvider(baseURL, apiKey string, timeout time.Duration) *ORSProvider {
	if baseURL == "" {
		baseURL = DefaultORSBaseURL
	}
	return &ORSProvider{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: &http.Client{Timeout: timeout}}
}

// Directions fetches the driving path from start to end.
func (p *ORSProvider) Directions(ctx context.Context, start, end models.Location) (*Leg, error) {
	q := url.Values{}
	q.Set("api_key", p.apiKey)
	q.Set("start", fmt.Sprintf("%.6f,%.6f", start.Lon, start.Lat))
	q.Set("end", fmt.Sprintf("%.6f,%.6f", end.Lon, end.Lat))
	endpoint := p.baseURL + "/v2/directions/driving-car?" + q.Encode()

	var obj struct {
		Features []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties struct {
				Segments []struct {
					Distance float64 `json:"distance"`
					Duration float64 `json:"duration"`
				} `json:"segments"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := getJSON(ctx, p.http, endpoint, "ors", &obj); err != nil {
		return nil, err
	}
	if len(obj.Features) == 0 || len(obj.Features[0].Geometry.Coordinates) < 2 ||
		len(obj.Features[0].Properties.Segments) == 0 {
		return nil, ErrNoRoute
	}

	f := obj.Features[0]
	return &Leg{
		Path:        toPath(f.Geometry.Coordinates),
		DistanceKm:  round1(f.Properties.Segments[0].Distance / 1000),
		DurationMin: round1(f.Properties.Segments[0].Duration / 60),
	}, nil
}

// OSRMProvider uses an OSRM routing server.
type OSRMProvider struct {
	baseURL string
	http    *http.Client
}

// NewOSRMProvider creates an OSRM provider.
func NewOSRMProvider(baseURL string, timeout time.Duration) *OSRMProvider {
	if baseURL == "" {
		baseURL = DefaultOSRMBaseURL
	}
	return &OSRMProvider{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: timeout}}
}

// Directions fetches the driving path from start to end.
func (p *OSRMProvider) Directions(ctx context.Context, start, end models.Location) (*Leg, error) {
	endpoint := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		p.baseURL, start.Lon, start.Lat, end.Lon, end.Lat)

	var obj struct {
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"routes"`
	}
	if err := getJSON(ctx, p.http, endpoint, "osrm", &obj); err != nil {
		return nil, err
	}
	if len(obj.Routes) == 0 || len(obj.Routes[0].Geometry.Coordinates) < 2 {
		return nil, ErrNoRoute
	}

	r := obj.Routes[0]
	return &Leg{
		Path:        toPath(r.Geometry.Coordinates),
		DistanceKm:  round1(r.Distance / 1000),
		DurationMin: round1(r.Duration / 60),
	}, nil
}
