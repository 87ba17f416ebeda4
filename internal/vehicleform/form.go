// Package vehicleform drives the three-step vehicle registration form: core
// details, compliance dates, then photo upload and submission.
package vehicleform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/models"
	"github.com/ukydev/fleet-console/internal/upload"
	"github.com/ukydev/fleet-console/internal/validation"
)

var (
	ErrFormClosed       = errors.New("form is closed")
	ErrNotFinalStep     = errors.New("form can only be submitted from the last step")
	ErrUploadInProgress = errors.New("an upload is already in progress")
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrUploadFailed     = errors.New("failed to upload image")
	ErrUnknownField     = errors.New("unknown field")
	ErrNoUploader       = errors.New("image upload is not configured")
)

// Step is a stage of the wizard.
type Step int

const (
	StepCoreDetails Step = iota
	StepCompliance
	StepPhotoAndSubmit
)

var stepTitles = [...]string{"Vehicle Details", "Insurance & Service", "Confirm & Submit"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepTitles) {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepTitles[s]
}

// Mode tells whether the form creates a vehicle or edits an existing one.
type Mode string

const (
	ModeAdd  Mode = "add"
	ModeEdit Mode = "edit"
)

// Field names, matching the backend's wire names.
const (
	FieldNumberPlate         = "numberPlate"
	FieldVehicleType         = "vehicleType"
	FieldCapacity            = "vehicleCapacity"
	FieldFuelType            = "fuelType"
	FieldMileage             = "mileage"
	FieldInsuranceExpiryDate = "insuranceExpiryDate"
	FieldLicensedDate        = "LicenedDate"
	FieldLastServiceDate     = "lastServiceDate"
	FieldNextServiceDue      = "nextServiceDue"
	FieldImage               = "image"
)

var stepFields = map[Step][]string{
	StepCoreDetails: {FieldNumberPlate, FieldVehicleType, FieldCapacity, FieldFuelType, FieldMileage},
	StepCompliance:  {FieldInsuranceExpiryDate, FieldLicensedDate, FieldLastServiceDate, FieldNextServiceDue},
}

var fieldLabels = map[string]string{
	FieldNumberPlate:         "Number Plate",
	FieldVehicleType:         "Vehicle Type",
	FieldCapacity:            "Capacity (kg)",
	FieldFuelType:            "Fuel Type",
	FieldMileage:             "Mileage (km)",
	FieldInsuranceExpiryDate: "Insurance Expiry Date",
	FieldLicensedDate:        "Licensed Date",
	FieldLastServiceDate:     "Last Service Date",
	FieldNextServiceDue:      "Next Service Due",
	FieldImage:               "Vehicle Image",
}

// Label returns the display label of field.
func Label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}

// Fields returns the editable fields of step s.
func Fields(s Step) []string {
	return append([]string(nil), stepFields[s]...)
}

// CoreDetails is the first stage of the draft, as typed by the operator.
type CoreDetails struct {
	NumberPlate string
	VehicleType string
	Capacity    string
	FuelType    string
	Mileage     string
}

// ComplianceDates is the second stage, each date as YYYY-MM-DD.
type ComplianceDates struct {
	InsuranceExpiryDate string
	LicensedDate        string
	LastServiceDate     string
	NextServiceDue      string
}

// Photo is the final stage.
type Photo struct {
	ImageURL string
	FileName string
}

// Draft is the in-progress vehicle.
type Draft struct {
	Core  CoreDetails
	Dates ComplianceDates
	Photo Photo
}

// Value returns the raw value of field.
func (d Draft) Value(field string) string {
	switch field {
	case FieldNumberPlate:
		return d.Core.NumberPlate
	case FieldVehicleType:
		return d.Core.VehicleType
	case FieldCapacity:
		return d.Core.Capacity
	case FieldFuelType:
		return d.Core.FuelType
	case FieldMileage:
		return d.Core.Mileage
	case FieldInsuranceExpiryDate:
		return d.Dates.InsuranceExpiryDate
	case FieldLicensedDate:
		return d.Dates.LicensedDate
	case FieldLastServiceDate:
		return d.Dates.LastServiceDate
	case FieldNextServiceDue:
		return d.Dates.NextServiceDue
	case FieldImage:
		return d.Photo.ImageURL
	}
	return ""
}

// Saver persists the submitted vehicle.
type Saver interface {
	Create(ctx context.Context, v models.Vehicle) (*models.Vehicle, error)
	Update(ctx context.Context, id string, v models.Vehicle) (*models.Vehicle, error)
}

// Option configures a Form.
type Option func(*Form)

// WithClock sets the clock date rules are checked against.
func WithClock(now func() time.Time) Option {
	return func(f *Form) { f.now = now }
}

// Form is one open vehicle form. It is safe for concurrent use; network calls
// run without holding its lock.
type Form struct {
	mu sync.Mutex

	mode     Mode
	original models.Vehicle
	step     Step
	draft    Draft
	errors   map[string]validation.FieldError

	file       *upload.File
	uploading  bool
	progress   float64
	submitting bool
	closed     bool

	saver    Saver
	uploader upload.Store
	now      func() time.Time
}

// New opens an empty form that creates a vehicle.
func New(saver Saver, uploader upload.Store, opts ...Option) *Form {
	f := &Form{
		mode:     ModeAdd,
		errors:   make(map[string]validation.FieldError),
		saver:    saver,
		uploader: uploader,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewEdit opens a form pre-populated from v that updates it on submit.
func NewEdit(v models.Vehicle, saver Saver, uploader upload.Store, opts ...Option) *Form {
	f := New(saver, uploader, opts...)
	f.mode = ModeEdit
	f.original = v
	f.draft = Draft{
		Core: CoreDetails{
			NumberPlate: v.NumberPlate,
			VehicleType: string(v.Type),
			Capacity:    itoa(v.Capacity),
			FuelType:    string(v.FuelType),
			Mileage:     itoa(v.Mileage),
		},
		Dates: ComplianceDates{
			InsuranceExpiryDate: validation.FormatDate(v.InsuranceExpiryDate),
			LicensedDate:        validation.FormatDate(v.LicensedDate),
			LastServiceDate:     validation.FormatDate(v.LastServiceDate),
			NextServiceDue:      validation.FormatDate(v.NextServiceDue),
		},
		Photo: Photo{ImageURL: v.ImageURL},
	}
	return f
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprint(n)
}

// Mode returns whether the form adds or edits.
func (f *Form) Mode() Mode {
	return f.mode
}

// Step returns the current step.
func (f *Form) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Draft returns a copy of the draft.
func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Errors returns a copy of the current per-field errors.
func (f *Form) Errors() map[string]validation.FieldError {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]validation.FieldError, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Progress returns the upload progress in percent.
func (f *Form) Progress() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress
}

// Uploading reports whether an upload is running.
func (f *Form) Uploading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploading
}

// Closed reports whether the form was submitted or closed.
func (f *Form) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close discards the form.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.file = nil
}

// SetField stores value for field and re-validates only that field. The
// returned error is the field's validation failure, if any.
func (f *Form) SetField(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFormClosed
	}
	if !f.setRaw(field, value) {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if fe := f.validateField(field); fe != nil {
		f.errors[field] = *fe
		return fe
	}
	delete(f.errors, field)
	return nil
}

// Next validates every field of the current step and advances when all pass.
func (f *Form) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFormClosed
	}
	if f.step == StepPhotoAndSubmit {
		return nil
	}

	failed := make(map[string]validation.FieldError)
	for _, field := range stepFields[f.step] {
		if fe := f.validateField(field); fe != nil {
			failed[field] = *fe
			f.errors[field] = *fe
		} else {
			delete(f.errors, field)
		}
	}
	if len(failed) > 0 {
		return validation.NewError(failed)
	}
	f.step++
	return nil
}

// Back returns to the previous step without validating.
func (f *Form) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step > StepCoreDetails {
		f.step--
	}
}

// SelectImage records the file to upload and clears any image error. The
// selection cannot change while an upload is running.
func (f *Form) SelectImage(file upload.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFormClosed
	}
	if f.uploading {
		return ErrUploadInProgress
	}
	f.file = &file
	f.draft.Photo.FileName = file.Name
	f.progress = 0
	delete(f.errors, FieldImage)
	return nil
}

// Upload sends the selected image to object storage and records its URL. On
// failure the image field is marked UploadFailed and the previous URL is kept.
func (f *Form) Upload(ctx context.Context) (string, error) {
	f.mu.Lock()
	switch {
	case f.closed:
		f.mu.Unlock()
		return "", ErrFormClosed
	case f.uploader == nil:
		f.mu.Unlock()
		return "", ErrNoUploader
	case f.uploading:
		f.mu.Unlock()
		return "", ErrUploadInProgress
	case f.file == nil:
		fe := validation.FieldError{Field: FieldImage, Code: validation.Required, Message: "Please select an image"}
		f.errors[FieldImage] = fe
		f.mu.Unlock()
		return "", validation.NewError(map[string]validation.FieldError{FieldImage: fe})
	}
	file := *f.file
	f.uploading = true
	f.progress = 0
	f.mu.Unlock()

	url, err := f.uploader.Upload(ctx, file, f.setProgress)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploading = false
	if err != nil {
		f.errors[FieldImage] = validation.FieldError{Field: FieldImage, Code: validation.UploadFailed, Message: "Failed to upload image"}
		log.WithError(err).WithField("file", file.Name).Error("Vehicle image upload failed")
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	f.draft.Photo.ImageURL = url
	f.progress = 100
	delete(f.errors, FieldImage)
	return url, nil
}

func (f *Form) setProgress(pct float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pct > f.progress {
		f.progress = pct
	}
}

// Submit validates the whole draft and saves it: create in add mode, update
// in edit mode. On success the form closes; on failure the draft is kept.
func (f *Form) Submit(ctx context.Context) (*models.Vehicle, error) {
	f.mu.Lock()
	switch {
	case f.closed:
		f.mu.Unlock()
		return nil, ErrFormClosed
	case f.step != StepPhotoAndSubmit:
		f.mu.Unlock()
		return nil, ErrNotFinalStep
	case f.submitting:
		f.mu.Unlock()
		return nil, ErrSubmitInProgress
	}

	failed := make(map[string]validation.FieldError)
	for _, step := range []Step{StepCoreDetails, StepCompliance} {
		for _, field := range stepFields[step] {
			if fe := f.validateField(field); fe != nil {
				failed[field] = *fe
			}
		}
	}
	if strings.TrimSpace(f.draft.Photo.ImageURL) == "" {
		failed[FieldImage] = validation.FieldError{Field: FieldImage, Code: validation.ImageRequired, Message: "Please upload an image"}
	}
	if len(failed) > 0 {
		for field, fe := range failed {
			f.errors[field] = fe
		}
		f.mu.Unlock()
		return nil, validation.NewError(failed)
	}

	vehicle := f.buildVehicle()
	mode, id := f.mode, f.original.ID
	f.submitting = true
	f.mu.Unlock()

	var (
		saved *models.Vehicle
		err   error
	)
	if mode == ModeEdit {
		saved, err = f.saver.Update(ctx, id, vehicle)
	} else {
		saved, err = f.saver.Create(ctx, vehicle)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		log.WithError(err).WithField("mode", mode).Error("Failed to save vehicle")
		return nil, err
	}
	f.closed = true
	f.file = nil
	log.WithFields(log.Fields{"mode": mode, "numberPlate": vehicle.NumberPlate}).Info("Vehicle saved")
	return saved, nil
}

// setRaw stores value without validating. It reports false for unknown fields.
func (f *Form) setRaw(field, value string) bool {
	d := &f.draft
	switch field {
	case FieldNumberPlate:
		d.Core.NumberPlate = value
	case FieldVehicleType:
		d.Core.VehicleType = value
	case FieldCapacity:
		d.Core.Capacity = value
	case FieldFuelType:
		d.Core.FuelType = value
	case FieldMileage:
		d.Core.Mileage = value
	case FieldInsuranceExpiryDate:
		d.Dates.InsuranceExpiryDate = value
	case FieldLicensedDate:
		d.Dates.LicensedDate = value
	case FieldLastServiceDate:
		d.Dates.LastServiceDate = value
	case FieldNextServiceDue:
		d.Dates.NextServiceDue = value
	case FieldImage:
		d.Photo.ImageURL = value
	default:
		return false
	}
	return true
}

func (f *Form) validateField(field string) *validation.FieldError {
	d := f.draft
	now := f.now()
	switch field {
	case FieldNumberPlate:
		return validation.NumberPlate(field, d.Core.NumberPlate)
	case FieldVehicleType:
		return validation.VehicleType(field, d.Core.VehicleType)
	case FieldCapacity:
		_, fe := validation.PositiveInt(field, d.Core.Capacity)
		return fe
	case FieldFuelType:
		return validation.FuelType(field, d.Core.FuelType)
	case FieldMileage:
		_, fe := validation.PositiveInt(field, d.Core.Mileage)
		return fe
	case FieldInsuranceExpiryDate:
		_, fe := validation.FutureDate(field, d.Dates.InsuranceExpiryDate, now)
		return fe
	case FieldLicensedDate:
		_, fe := validation.FutureDate(field, d.Dates.LicensedDate, now)
		return fe
	case FieldLastServiceDate:
		_, fe := validation.FutureDate(field, d.Dates.LastServiceDate, now)
		return fe
	case FieldNextServiceDue:
		_, fe := validation.FutureDate(field, d.Dates.NextServiceDue, now)
		return fe
	case FieldImage:
		if strings.TrimSpace(d.Photo.ImageURL) == "" {
			return &validation.FieldError{Field: field, Code: validation.ImageRequired, Message: "Please upload an image"}
		}
	}
	return nil
}

// buildVehicle converts a validated draft. Edit mode keeps the fields the
// form does not own.
func (f *Form) buildVehicle() models.Vehicle {
	d := f.draft
	v := models.Vehicle{}
	if f.mode == ModeEdit {
		v = f.original
	}
	fuel, _ := models.ParseFuelType(strings.TrimSpace(d.Core.FuelType))
	capacity, _ := validation.PositiveInt(FieldCapacity, d.Core.Capacity)
	mileage, _ := validation.PositiveInt(FieldMileage, d.Core.Mileage)

	v.NumberPlate = strings.ToUpper(strings.TrimSpace(d.Core.NumberPlate))
	v.Type = models.VehicleType(strings.TrimSpace(d.Core.VehicleType))
	v.Capacity = capacity
	v.FuelType = fuel
	v.Mileage = mileage
	v.InsuranceExpiryDate = calendarDate(d.Dates.InsuranceExpiryDate)
	v.LicensedDate = calendarDate(d.Dates.LicensedDate)
	v.LastServiceDate = calendarDate(d.Dates.LastServiceDate)
	v.NextServiceDue = calendarDate(d.Dates.NextServiceDue)
	v.ImageURL = strings.TrimSpace(d.Photo.ImageURL)
	return v
}

// calendarDate returns midnight UTC of a YYYY-MM-DD date so the date survives
// the round trip through the backend unchanged.
func calendarDate(s string) time.Time {
	t, err := time.Parse(validation.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
