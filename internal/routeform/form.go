// Package routeform collects a delivery route: a name, a slug and two
// geocoded endpoints.
package routeform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/geocode"
	"github.com/ukydev/fleet-console/internal/models"
	"github.com/ukydev/fleet-console/internal/validation"
)

var (
	ErrMissingCoordinates = errors.New("please select valid start and end locations")
	ErrSubmitInProgress   = errors.New("a submission is already in progress")
)

const (
	FieldName = "routeName"
	FieldSlug = "routeSlug"
)

// Creator stores a new route.
type Creator interface {
	Create(ctx context.Context, r models.Route) (*models.Route, error)
}

// Form is the route creation form.
type Form struct {
	Start *geocode.Picker
	End   *geocode.Picker

	creator Creator

	mu         sync.Mutex
	name       string
	slug       string
	submitting bool
}

// New creates an empty route form whose pickers search with g.
func New(g geocode.Geocoder, c Creator) *Form {
	return &Form{
		Start:   geocode.NewPicker(g),
		End:     geocode.NewPicker(g),
		creator: c,
	}
}

// SetName sets the route name.
func (f *Form) SetName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = name
}

// SetSlug sets the route slug. A blank slug is derived from the name on submit.
func (f *Form) SetSlug(slug string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slug = slug
}

// Name returns the route name.
func (f *Form) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name
}

// Slug returns the slug that would be submitted.
func (f *Form) Slug() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s := strings.TrimSpace(f.slug); s != "" {
		return s
	}
	return Slugify(f.name)
}

// Submit creates the route. Both endpoints must have been resolved to
// coordinates inside the WGS84 range.
func (f *Form) Submit(ctx context.Context) (*models.Route, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	name := strings.TrimSpace(f.name)
	slug := strings.TrimSpace(f.slug)
	if slug == "" {
		slug = Slugify(name)
	}

	failed := make(map[string]validation.FieldError)
	if fe := validation.RequireValue(FieldName, name); fe != nil {
		failed[FieldName] = *fe
	}
	if fe := validation.RequireValue(FieldSlug, slug); fe != nil {
		failed[FieldSlug] = *fe
	}
	if len(failed) > 0 {
		f.mu.Unlock()
		return nil, validation.NewError(failed)
	}

	start, okStart := f.Start.Location()
	end, okEnd := f.End.Location()
	if !okStart || !okEnd || !start.Valid() || !end.Valid() {
		f.mu.Unlock()
		return nil, ErrMissingCoordinates
	}
	f.submitting = true
	f.mu.Unlock()

	route := models.Route{Name: name, Slug: slug, Start: start, End: end}
	created, err := f.creator.Create(ctx, route)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		log.WithError(err).WithField("routeSlug", slug).Error("Failed to create route")
		return nil, fmt.Errorf("failed to create route: %w", err)
	}

	log.WithFields(log.Fields{"routeName": name, "routeSlug": slug}).Info("Route created")
	f.name, f.slug = "", ""
	f.Start.Reset()
	f.End.Reset()
	return created, nil
}

// Slugify lowercases s and joins its letters and digits with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
