package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/ukydev/fleet-console/internal/directions"
	"github.com/ukydev/fleet-console/internal/geocode"
	"github.com/ukydev/fleet-console/internal/listing"
	"github.com/ukydev/fleet-console/internal/routeform"
	"github.com/ukydev/fleet-console/internal/routemap"
	"github.com/ukydev/fleet-console/internal/validation"
)

func (a *app) routesCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	switch args[0] {
	case "list":
		return a.listRoutes(ctx, args[1:])
	case "add":
		return a.addRoute(ctx)
	case "map":
		return a.routeMap(ctx)
	default:
		fmt.Fprintf(a.out, "unknown routes command %q\n", args[0])
		return errUsage
	}
}

func (a *app) listRoutes(ctx context.Context, args []string) error {
	fs := newFlagSet("routes list", a.out)
	q := fs.String("q", "", "route name or slug contains")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	all, err := a.routes.List(ctx)
	if err != nil {
		return err
	}
	routes := listing.RouteFilter{Query: *q}.Apply(all)

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSLUG\tSTART\tEND\tSTATUS")
	for _, r := range routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.5f,%.5f\t%.5f,%.5f\t%s\n",
			r.ID, r.Name, r.Slug, r.Start.Lat, r.Start.Lon, r.End.Lat, r.End.Lon, r.Status.OrPending())
	}
	tw.Flush()

	s := listing.RouteStats(routes)
	fmt.Fprintf(a.out, "\n%d routes: %d approved, %d rejected, %d pending\n", s.Total, s.Approved, s.Rejected, s.Pending)
	return nil
}

func (a *app) addRoute(ctx context.Context) error {
	if err := a.cfg.RequireGeocoding(); err != nil {
		return err
	}
	form := routeform.New(a.geocoder(), a.routes)

	name, err := a.prompt.ask("Route name", "")
	if err != nil {
		return err
	}
	form.SetName(name)
	slug, err := a.prompt.ask("Route slug", form.Slug())
	if err != nil {
		return err
	}
	form.SetSlug(slug)

	if err := a.pickPlace(ctx, "Start location", form.Start); err != nil {
		return err
	}
	if err := a.pickPlace(ctx, "End location", form.End); err != nil {
		return err
	}

	created, err := form.Submit(ctx)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			for _, fe := range verr.Fields {
				fmt.Fprintf(a.out, "  ! %s: %s\n", fe.Field, fe.Message)
			}
		}
		return err
	}
	fmt.Fprintf(a.out, "Route %s (%s) created\n", created.Name, created.Slug)
	return nil
}

// pickPlace searches until the operator selects one of the suggestions.
func (a *app) pickPlace(ctx context.Context, label string, p *geocode.Picker) error {
	for {
		text, err := a.prompt.ask(label, p.Text())
		if err != nil {
			return err
		}
		if err := p.Type(ctx, text); err != nil {
			fmt.Fprintf(a.out, "  ! %v\n", err)
			continue
		}
		results := p.Results()
		if len(results) == 0 {
			fmt.Fprintln(a.out, "  no matching places, try another search")
			continue
		}
		for i, place := range results {
			fmt.Fprintf(a.out, "  %d) %s\n", i+1, place.Label)
		}

		answer, err := a.prompt.ask("Choose a place", "1")
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(results) {
			fmt.Fprintln(a.out, "  ! invalid choice")
			continue
		}
		if err := p.Select(ctx, results[n-1]); err != nil {
			fmt.Fprintf(a.out, "  ! %v\n", err)
			continue
		}
		loc, _ := p.Location()
		fmt.Fprintf(a.out, "  %s (%.5f, %.5f)\n", p.Text(), loc.Lat, loc.Lon)
		return nil
	}
}

func (a *app) newMapView() *routemap.View {
	return routemap.NewView(a.routes, directions.NewEnricher(a.directionsProvider(), a.cfg.Geo.Concurrency))
}

func (a *app) routeMap(ctx context.Context) error {
	view := a.newMapView()
	if err := view.Refresh(ctx); err != nil {
		return err
	}
	snap := view.Snapshot()

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tDISTANCE\tDURATION\tCOLOR")
	for _, r := range snap.Routes {
		fmt.Fprintf(tw, "%s\t%.1f km\t%.1f min\t%s\n", r.Name, r.DistanceKm, r.DurationMin, r.Color)
	}
	tw.Flush()

	if snap.Bounds != nil {
		b := snap.Bounds
		fmt.Fprintf(a.out, "\nBounds: %.5f,%.5f to %.5f,%.5f\n", b.South, b.West, b.North, b.East)
	}
	return nil
}
