// Package report renders the vehicle inventory as a PDF document.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ukydev/fleet-console/internal/listing"
	"github.com/ukydev/fleet-console/internal/models"
)

const (
	Title          = "Vehicle Inventory Report"
	DefaultCompany = "Fish Delivery System"

	pageHeight   = 297.0
	margin       = 15.0
	rowHeight    = 8.0
	footerHeight = 25.0
)

type rgb struct{ r, g, b int }

var (
	colorApproved = rgb{22, 163, 74}
	colorRejected = rgb{220, 38, 38}
	colorPending  = rgb{202, 138, 4}
	colorText     = rgb{31, 41, 55}
	colorMuted    = rgb{107, 114, 128}
	colorHeader   = rgb{30, 64, 175}
	colorStripe   = rgb{243, 244, 246}
)

var columns = []struct {
	title string
	width float64
}{
	{"Number Plate", 35},
	{"Type", 30},
	{"Capacity", 30},
	{"Fuel Type", 30},
	{"Mileage", 30},
	{"Status", 25},
}

// Options controls report rendering.
type Options struct {
	Company     string
	GeneratedAt time.Time
	// Uncompressed leaves page streams readable, which tests rely on.
	Uncompressed bool
}

// Write renders the report for vehicles to w.
func Write(w io.Writer, vehicles []models.Vehicle, opts Options) error {
	if opts.Company == "" {
		opts.Company = DefaultCompany
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(!opts.Uncompressed)
	pdf.SetTitle(Title, true)
	pdf.SetAuthor(opts.Company, true)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, footerHeight)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-footerHeight + 5)
		setColor(pdf, colorMuted)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 4, "Confidential - For internal use only", "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 4, tr(fmt.Sprintf("© %d %s. All rights reserved.", opts.GeneratedAt.Year(), opts.Company)), "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	writeHeading(pdf, tr, vehicles, opts)
	writeStats(pdf, listing.VehicleStats(vehicles))
	writeTable(pdf, tr, vehicles)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func setColor(pdf *fpdf.Fpdf, c rgb) {
	pdf.SetTextColor(c.r, c.g, c.b)
}

func writeHeading(pdf *fpdf.Fpdf, tr func(string) string, vehicles []models.Vehicle, opts Options) {
	setColor(pdf, colorHeader)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, Title, "", 1, "L", false, 0, "")

	setColor(pdf, colorMuted)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, tr(opts.Company), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(90, 6, "Generated on: "+opts.GeneratedAt.Format("January 2, 2006 15:04"), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Total Records: %d", len(vehicles)), "", 1, "R", false, 0, "")

	pdf.SetDrawColor(colorHeader.r, colorHeader.g, colorHeader.b)
	pdf.SetLineWidth(0.6)
	y := pdf.GetY() + 2
	pdf.Line(margin, y, 210-margin, y)
	pdf.SetY(y + 6)
}

func writeStats(pdf *fpdf.Fpdf, s listing.Stats) {
	boxes := []struct {
		title string
		value int
		color rgb
	}{
		{"TOTAL VEHICLES", s.Total, colorText},
		{"ACTIVE VEHICLES", s.Approved, colorApproved},
		{"INACTIVE VEHICLES", s.Rejected, colorRejected},
	}

	const gap = 6.0
	width := (210 - 2*margin - 2*gap) / 3
	y := pdf.GetY()
	for i, b := range boxes {
		x := margin + float64(i)*(width+gap)
		pdf.SetFillColor(colorStripe.r, colorStripe.g, colorStripe.b)
		pdf.SetDrawColor(209, 213, 219)
		pdf.SetLineWidth(0.2)
		pdf.Rect(x, y, width, 22, "FD")

		pdf.SetXY(x, y+3)
		setColor(pdf, colorMuted)
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(width, 5, b.title, "", 0, "C", false, 0, "")

		pdf.SetXY(x, y+10)
		setColor(pdf, b.color)
		pdf.SetFont("Helvetica", "B", 18)
		pdf.CellFormat(width, 9, fmt.Sprint(b.value), "", 0, "C", false, 0, "")
	}
	pdf.SetXY(margin, y+30)
}

func writeTableHeader(pdf *fpdf.Fpdf) {
	pdf.SetFillColor(colorHeader.r, colorHeader.g, colorHeader.b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 9)
	for _, c := range columns {
		pdf.CellFormat(c.width, rowHeight, c.title, "", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func writeTable(pdf *fpdf.Fpdf, tr func(string) string, vehicles []models.Vehicle) {
	writeTableHeader(pdf)

	for i, v := range vehicles {
		if pdf.GetY()+rowHeight > pageHeight-footerHeight {
			pdf.AddPage()
			writeTableHeader(pdf)
		}

		status := v.Status.OrPending()
		cells := []string{
			tr(v.NumberPlate),
			tr(string(v.Type)),
			fmt.Sprintf("%d kg", v.Capacity),
			tr(string(v.FuelType)),
			fmt.Sprintf("%d km", v.Mileage),
			string(status),
		}

		fill := i%2 == 1
		pdf.SetFillColor(colorStripe.r, colorStripe.g, colorStripe.b)
		pdf.SetFont("Helvetica", "", 9)
		for j, c := range columns {
			color := colorText
			if j == len(columns)-1 {
				color = statusColor(status)
				pdf.SetFont("Helvetica", "B", 9)
			}
			setColor(pdf, color)
			pdf.CellFormat(c.width, rowHeight, cells[j], "B", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

func statusColor(s models.Status) rgb {
	switch s {
	case models.StatusApproved:
		return colorApproved
	case models.StatusRejected:
		return colorRejected
	default:
		return colorPending
	}
}
