package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-console/internal/models"
)

const colomboResponse = `{
  "type": "FeatureCollection",
  "features": [
    {"geometry": {"type": "Point", "coordinates": [79.8612, 6.9271]},
     "properties": {"gid": "whosonfirst:locality:1", "label": "Colombo, Western Province, Sri Lanka"}},
    {"geometry": {"type": "Point", "coordinates": [79.85]},
     "properties": {"gid": "broken", "label": "Broken"}},
    {"geometry": {"type": "Point", "coordinates": [79.88, 6.91]},
     "properties": {"id": "2", "label": "Colombo 07, Sri Lanka"}}
  ]
}`

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/search", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "Colombo Fort", r.URL.Query().Get("text"))
		w.Write([]byte(colomboResponse))
	}))
	defer server.Close()

	places, err := NewClient(server.URL, "test-key", 5*time.Second).Search(context.Background(), "Colombo Fort")
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "whosonfirst:locality:1", places[0].ID)
	assert.Equal(t, models.Location{Lat: 6.9271, Lon: 79.8612}, places[0].Location)
	assert.Equal(t, "2", places[1].ID)
}

func TestClient_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("text") == "Atlantis" {
			w.Write([]byte(`{"features": []}`))
			return
		}
		w.Write([]byte(colomboResponse))
	}))
	defer server.Close()
	client := NewClient(server.URL, "k", 5*time.Second)

	loc, err := client.Resolve(context.Background(), "Colombo")
	require.NoError(t, err)
	assert.Equal(t, 6.9271, loc.Lat)

	_, err = client.Resolve(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestClient_SearchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "bad", 5*time.Second).Search(context.Background(), "x")
	assert.ErrorContains(t, err, "geocode status 403")
}

// fakeGeocoder answers from maps; searches for a text listed in block wait on
// the matching channel first.
type fakeGeocoder struct {
	mu       sync.Mutex
	results  map[string][]Place
	resolved map[string]models.Location
	err      error
	block    map[string]chan struct{}
	searches []string
}

func (g *fakeGeocoder) Search(ctx context.Context, text string) ([]Place, error) {
	g.mu.Lock()
	g.searches = append(g.searches, text)
	ch := g.block[text]
	g.mu.Unlock()
	if ch != nil {
		<-ch
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.results[text], nil
}

func (g *fakeGeocoder) Resolve(ctx context.Context, label string) (models.Location, error) {
	if g.err != nil {
		return models.Location{}, g.err
	}
	loc, ok := g.resolved[label]
	if !ok {
		return models.Location{}, ErrLocationNotFound
	}
	return loc, nil
}

var kandy = Place{ID: "k", Label: "Kandy, Central Province, Sri Lanka", Location: models.Location{Lat: 7.29, Lon: 80.63}}

func TestPicker_TypeAndSelect(t *testing.T) {
	g := &fakeGeocoder{
		results:  map[string][]Place{"Kan": {kandy}},
		resolved: map[string]models.Location{kandy.Label: {Lat: 7.2906, Lon: 80.6337}},
	}
	p := NewPicker(g)

	require.NoError(t, p.Type(context.Background(), "Kan"))
	require.Len(t, p.Results(), 1)

	require.NoError(t, p.Select(context.Background(), p.Results()[0]))
	assert.Equal(t, kandy.Label, p.Text())
	loc, ok := p.Location()
	require.True(t, ok)
	assert.Equal(t, models.Location{Lat: 7.2906, Lon: 80.6337}, loc)
	assert.Empty(t, p.Results())
}

func TestPicker_EmptyTextSkipsLookup(t *testing.T) {
	g := &fakeGeocoder{results: map[string][]Place{"Kan": {kandy}}}
	p := NewPicker(g)
	require.NoError(t, p.Type(context.Background(), "Kan"))

	require.NoError(t, p.Type(context.Background(), "  "))
	assert.Empty(t, p.Results())
	assert.Equal(t, []string{"Kan"}, g.searches)
}

func TestPicker_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	g := &fakeGeocoder{
		results: map[string][]Place{
			"Ka":  {{Label: "Kalutara"}},
			"Kan": {kandy},
		},
		block: map[string]chan struct{}{"Ka": release},
	}
	p := NewPicker(g)

	slow := make(chan error, 1)
	go func() { slow <- p.Type(context.Background(), "Ka") }()
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.searches) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Type(context.Background(), "Kan"))
	close(release)

	assert.ErrorIs(t, <-slow, ErrSuperseded)
	assert.Equal(t, []Place{kandy}, p.Results())
	assert.Equal(t, "Kan", p.Text())
}

func TestPicker_FailureLeavesStateUnchanged(t *testing.T) {
	g := &fakeGeocoder{
		results:  map[string][]Place{"Kan": {kandy}},
		resolved: map[string]models.Location{kandy.Label: kandy.Location},
	}
	p := NewPicker(g)
	require.NoError(t, p.Type(context.Background(), "Kan"))
	require.NoError(t, p.Select(context.Background(), kandy))

	g.err = errors.New("connection refused")
	err := p.Select(context.Background(), Place{Label: "Galle"})
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.Equal(t, kandy.Label, p.Text())
	loc, ok := p.Location()
	assert.True(t, ok)
	assert.Equal(t, kandy.Location, loc)

	g.err = nil
	err = p.Select(context.Background(), Place{Label: "Atlantis"})
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestPicker_Reset(t *testing.T) {
	g := &fakeGeocoder{
		results:  map[string][]Place{"Kan": {kandy}},
		resolved: map[string]models.Location{kandy.Label: kandy.Location},
	}
	p := NewPicker(g)
	require.NoError(t, p.Select(context.Background(), kandy))

	p.Reset()
	_, ok := p.Location()
	assert.False(t, ok)
	assert.Empty(t, p.Text())
}
