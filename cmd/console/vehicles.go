package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ukydev/fleet-console/internal/listing"
	"github.com/ukydev/fleet-console/internal/models"
	"github.com/ukydev/fleet-console/internal/report"
	"github.com/ukydev/fleet-console/internal/upload"
	"github.com/ukydev/fleet-console/internal/validation"
	"github.com/ukydev/fleet-console/internal/vehicleform"
)

func (a *app) vehiclesCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	switch args[0] {
	case "list":
		return a.listVehicles(ctx, args[1:])
	case "add":
		return a.addVehicle(ctx)
	case "edit":
		return a.editVehicle(ctx, args[1:])
	case "delete":
		return a.deleteVehicle(ctx, args[1:])
	case "report":
		return a.vehicleReport(ctx, args[1:])
	default:
		fmt.Fprintf(a.out, "unknown vehicles command %q\n", args[0])
		return errUsage
	}
}

func (a *app) parseVehicleFilter(name string, args []string) (listing.VehicleFilter, []string, *string, error) {
	fs := newFlagSet(name, a.out)
	q := fs.String("q", "", "number plate contains")
	typ := fs.String("type", "", "vehicle type ("+joinTypes()+")")
	outFile := fs.String("o", "", "output file")
	if err := fs.Parse(args); err != nil {
		return listing.VehicleFilter{}, nil, nil, errUsage
	}
	if *typ != "" && !models.IsValidVehicleType(models.VehicleType(*typ)) {
		return listing.VehicleFilter{}, nil, nil, fmt.Errorf("unknown vehicle type %q", *typ)
	}
	return listing.VehicleFilter{PlateQuery: *q, Type: models.VehicleType(*typ)}, fs.Args(), outFile, nil
}

func joinTypes() string {
	names := make([]string, 0, len(models.VehicleTypes))
	for _, t := range models.VehicleTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func (a *app) listVehicles(ctx context.Context, args []string) error {
	filter, _, _, err := a.parseVehicleFilter("vehicles list", args)
	if err != nil {
		return err
	}
	all, err := a.vehicles.List(ctx)
	if err != nil {
		return err
	}
	vehicles := filter.Apply(all)

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLATE\tTYPE\tCAPACITY\tFUEL\tMILEAGE\tNEXT SERVICE\tSTATUS")
	for _, v := range vehicles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d kg\t%s\t%d km\t%s\t%s\n",
			v.ID, v.NumberPlate, v.Type, v.Capacity, v.FuelType, v.Mileage,
			validation.FormatDate(v.NextServiceDue), v.Status.OrPending())
	}
	tw.Flush()

	s := listing.VehicleStats(vehicles)
	fmt.Fprintf(a.out, "\n%d vehicles: %d approved, %d rejected, %d pending\n", s.Total, s.Approved, s.Rejected, s.Pending)
	return nil
}

func (a *app) addVehicle(ctx context.Context) error {
	form := vehicleform.New(a.vehicles, a.uploader)
	v, err := a.runVehicleForm(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Vehicle %s added\n", v.NumberPlate)
	return nil
}

func (a *app) findVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	all, err := a.vehicles.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range all {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("vehicle %s not found", id)
}

func (a *app) editVehicle(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: fleet-console vehicles edit <id>")
		return errUsage
	}
	existing, err := a.findVehicle(ctx, args[0])
	if err != nil {
		return err
	}
	form := vehicleform.NewEdit(*existing, a.vehicles, a.uploader)
	v, err := a.runVehicleForm(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Vehicle %s updated\n", v.NumberPlate)
	return nil
}

func (a *app) deleteVehicle(ctx context.Context, args []string) error {
	fs := newFlagSet("vehicles delete", a.out)
	yes := fs.Bool("yes", false, "skip confirmation")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(a.out, "usage: fleet-console vehicles delete [-yes] <id>")
		return errUsage
	}
	id := fs.Arg(0)

	if !*yes {
		ok, err := a.prompt.confirm(fmt.Sprintf("Delete vehicle %s?", id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, "Cancelled")
			return nil
		}
	}
	if err := a.vehicles.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Vehicle %s deleted\n", id)
	return nil
}

func (a *app) vehicleReport(ctx context.Context, args []string) error {
	filter, _, outFile, err := a.parseVehicleFilter("vehicles report", args)
	if err != nil {
		return err
	}
	all, err := a.vehicles.List(ctx)
	if err != nil {
		return err
	}
	vehicles := filter.Apply(all)

	name := *outFile
	if name == "" {
		name = fmt.Sprintf("vehicle-report-%s.pdf", time.Now().Format("2006-01-02"))
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := report.Write(f, vehicles, report.Options{Company: a.cfg.Report.Company}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Report with %d vehicles written to %s\n", len(vehicles), name)
	return nil
}

// runVehicleForm walks the operator through the wizard until the vehicle is
// saved or input ends.
func (a *app) runVehicleForm(ctx context.Context, form *vehicleform.Form) (*models.Vehicle, error) {
	defer form.Close()

	for form.Step() != vehicleform.StepPhotoAndSubmit {
		step := form.Step()
		fmt.Fprintf(a.out, "\n== Step %d/3: %s ==\n", int(step)+1, step)
		for _, field := range vehicleform.Fields(step) {
			if err := a.askField(form, field); err != nil {
				return nil, err
			}
		}
		if err := form.Next(); err != nil {
			a.printErrors(err)
		}
	}

	fmt.Fprintf(a.out, "\n== Step 3/3: %s ==\n", vehicleform.StepPhotoAndSubmit)
	a.printDraft(form.Draft())

	for {
		if err := a.askImage(ctx, form); err != nil {
			return nil, err
		}

		saved, err := form.Submit(ctx)
		if err == nil {
			return saved, nil
		}
		a.printErrors(err)

		var verr *validation.Error
		if errors.As(err, &verr) {
			if verr.Has(vehicleform.FieldImage, validation.ImageRequired) && len(verr.Fields) == 1 {
				continue
			}
			return nil, err
		}
		retry, cerr := a.prompt.confirm("Retry?")
		if cerr != nil || !retry {
			return nil, err
		}
	}
}

func (a *app) askField(form *vehicleform.Form, field string) error {
	label := vehicleform.Label(field)
	switch field {
	case vehicleform.FieldVehicleType:
		label += " (" + joinTypes() + ")"
	case vehicleform.FieldFuelType:
		label += " (Petrol, Diesel, Electric, Hybrid, CNG)"
	case vehicleform.FieldInsuranceExpiryDate, vehicleform.FieldLicensedDate,
		vehicleform.FieldLastServiceDate, vehicleform.FieldNextServiceDue:
		label += " (YYYY-MM-DD)"
	}

	for {
		value, err := a.prompt.ask(label, form.Draft().Value(field))
		if err != nil {
			return err
		}
		if err := form.SetField(field, value); err != nil {
			fmt.Fprintf(a.out, "  ! %s\n", fieldMessage(err))
			continue
		}
		return nil
	}
}

func fieldMessage(err error) string {
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}

func (a *app) askImage(ctx context.Context, form *vehicleform.Form) error {
	current := form.Draft().Photo.ImageURL
	label := "Photo file"
	if a.uploader == nil {
		label = "Photo URL"
	}

	for {
		answer, err := a.prompt.ask(label, current)
		if err != nil {
			return err
		}
		if answer == "" || answer == current {
			return nil
		}
		if strings.HasPrefix(answer, "http://") || strings.HasPrefix(answer, "https://") {
			return form.SetField(vehicleform.FieldImage, answer)
		}
		if a.uploader == nil {
			fmt.Fprintln(a.out, "  ! photo storage is not configured, enter an image URL")
			continue
		}

		file, err := upload.OpenFile(answer)
		if err != nil {
			fmt.Fprintf(a.out, "  ! %v\n", err)
			continue
		}
		if err := form.SelectImage(file); err != nil {
			return err
		}
		if _, err := a.uploadWithProgress(ctx, form); err != nil {
			fmt.Fprintf(a.out, "  ! %s\n", form.Errors()[vehicleform.FieldImage].Message)
			continue
		}
		return nil
	}
}

func (a *app) uploadWithProgress(ctx context.Context, form *vehicleform.Form) (string, error) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Fprintf(a.out, "\r  uploading %3.0f%%", form.Progress())
			}
		}
	}()

	url, err := form.Upload(ctx)
	close(done)
	if err == nil {
		fmt.Fprintf(a.out, "\r  uploaded  %3.0f%%\n", form.Progress())
	} else {
		fmt.Fprintln(a.out)
	}
	return url, err
}

func (a *app) printDraft(d vehicleform.Draft) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, step := range []vehicleform.Step{vehicleform.StepCoreDetails, vehicleform.StepCompliance} {
		for _, field := range vehicleform.Fields(step) {
			fmt.Fprintf(tw, "  %s:\t%s\n", vehicleform.Label(field), d.Value(field))
		}
	}
	tw.Flush()
}

func (a *app) printErrors(err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		for _, fe := range verr.Fields {
			fmt.Fprintf(a.out, "  ! %s: %s\n", vehicleform.Label(fe.Field), fe.Message)
		}
		return
	}
	fmt.Fprintf(a.out, "  ! %v\n", err)
}
