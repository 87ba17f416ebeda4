package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/models"
)

var (
	// ErrLookupFailed wraps any failed search or resolve. The picker's text
	// and coordinates are left as they were.
	ErrLookupFailed = errors.New("place lookup failed")
	// ErrSuperseded is returned for a search whose response arrived after a
	// newer keystroke or selection; its results were discarded.
	ErrSuperseded = errors.New("search superseded")
)

// Picker is one place field of the route form: free text, suggestions and
// the resolved coordinates.
type Picker struct {
	geocoder Geocoder

	mu       sync.Mutex
	text     string
	results  []Place
	location *models.Location
	gen      uint64
	cancel   context.CancelFunc
}

// NewPicker creates an empty picker.
func NewPicker(g Geocoder) *Picker {
	return &Picker{geocoder: g}
}

// Text returns the field text.
func (p *Picker) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text
}

// Results returns the current suggestions.
func (p *Picker) Results() []Place {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Place(nil), p.results...)
}

// Location returns the resolved coordinates, if any.
func (p *Picker) Location() (models.Location, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.location == nil {
		return models.Location{}, false
	}
	return *p.location, true
}

// begin starts a new generation, cancelling the previous search.
func (p *Picker) begin(ctx context.Context) (context.Context, uint64) {
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	return ctx, p.gen
}

// Type stores text and searches for it. Blank text clears the suggestions
// without a lookup. Only the newest search may update the suggestions.
func (p *Picker) Type(ctx context.Context, text string) error {
	p.mu.Lock()
	p.text = text
	ctx, gen := p.begin(ctx)
	if strings.TrimSpace(text) == "" {
		p.results = nil
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	places, err := p.geocoder.Search(ctx, text)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return ErrSuperseded
	}
	if err != nil {
		log.WithError(err).WithField("text", text).Error("Error fetching place suggestions")
		return fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	p.results = places
	return nil
}

// Select resolves place by its label and, on success, takes its label and
// coordinates and clears the suggestions.
func (p *Picker) Select(ctx context.Context, place Place) error {
	p.mu.Lock()
	ctx, gen := p.begin(ctx)
	p.mu.Unlock()

	loc, err := p.geocoder.Resolve(ctx, place.Label)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return ErrSuperseded
	}
	if err != nil {
		log.WithError(err).WithField("label", place.Label).Error("Error fetching coordinates")
		return fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	p.text = place.Label
	p.location = &loc
	p.results = nil
	return nil
}

// Reset clears the picker and abandons any pending lookup.
func (p *Picker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.text = ""
	p.results = nil
	p.location = nil
}
