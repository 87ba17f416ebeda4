// Package geocode resolves free-text place names to coordinates with the
// OpenRouteService geocoder.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/models"
)

// DefaultBaseURL is the public OpenRouteService endpoint.
const DefaultBaseURL = "https://api.openrouteservice.org"

var ErrLocationNotFound = errors.New("location not found")

// Place is a single geocoder suggestion.
type Place struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	Location models.Location `json:"location"`
}

// Geocoder searches for places by free text.
type Geocoder interface {
	Search(ctx context.Context, text string) ([]Place, error)
	Resolve(ctx context.Context, label string) (models.Location, error)
}

// Client talks to the OpenRouteService geocoding API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a geocoding client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type featureCollection struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			ID    string `json:"id"`
			GID   string `json:"gid"`
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// Search returns the places matching text.
func (c *Client) Search(ctx context.Context, text string) ([]Place, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("text", text)
	endpoint := c.baseURL + "/geocode/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/geo+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	places := make([]Place, 0, len(fc.Features))
	for _, f := range fc.Features {
		c := f.Geometry.Coordinates
		if len(c) < 2 {
			continue
		}
		id := f.Properties.GID
		if id == "" {
			id = f.Properties.ID
		}
		places = append(places, Place{
			ID:       id,
			Label:    f.Properties.Label,
			Location: models.Location{Lat: c[1], Lon: c[0]},
		})
	}

	log.WithFields(log.Fields{"text": text, "results": len(places)}).Debug("Geocode search completed")
	return places, nil
}

// Resolve returns the coordinates of the best match for label.
func (c *Client) Resolve(ctx context.Context, label string) (models.Location, error) {
	places, err := c.Search(ctx, label)
	if err != nil {
		return models.Location{}, err
	}
	if len(places) == 0 {
		return models.Location{}, fmt.Errorf("%w: %q", ErrLocationNotFound, label)
	}
	return places[0].Location, nil
}
