package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/logging"
	"natours/internal/utils"

	"github.com/phpdave11/gofpdf"
	"github.com/rs/zerolog"
)

// DocsService renders booking invoices as PDF.
type DocsService struct {
	Log zerolog.Logger
	Now func() time.Time
}

type invoiceData struct {
	BookingID     domain.ID
	CustomerName  string
	CustomerEmail string
	TourName      string
	TourSlug      string
	Price         float64
	Paid          bool
	BookedAt      time.Time
}

func invoiceDataFrom(b models.Booking) invoiceData {
	return invoiceData{
		BookingID:     b.ID,
		CustomerName:  b.User.Name,
		CustomerEmail: b.User.Email,
		TourName:      b.Tour.Name,
		TourSlug:      b.Tour.Slug,
		Price:         b.Price,
		Paid:          b.Paid,
		BookedAt:      b.CreatedAt,
	}
}

// GenerateInvoice returns the PDF bytes and a download filename.
func (s DocsService) GenerateInvoice(b models.Booking) ([]byte, string, error) {
	d := invoiceDataFrom(b)
	logging.Event(s.Log, "docs", "generate_invoice").Int64("booking_id", int64(d.BookingID)).Send()
	return buildInvoicePDF(d, s.now())
}

func (s DocsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utils.NowUTC()
}

func buildInvoicePDF(d invoiceData, issued time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	invNo := fmt.Sprintf("INV-%d-%s", d.BookingID, issued.Format("20060102"))
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Invoice no : "+invNo)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Issued     : "+issued.Format("2006-01-02 15:04"))
	pdf.Ln(7)
	if !d.BookedAt.IsZero() {
		pdf.Cell(0, 7, "Booked     : "+d.BookedAt.Format("2006-01-02 15:04"))
		pdf.Ln(7)
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Billed to:")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Name  : %s", safe(d.CustomerName, "-")))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Email : %s", safe(d.CustomerEmail, "-")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Details:")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, "1) Tour: "+safe(d.TourName, "-"), "", "", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total: "+utils.FormatUSD(d.Price))
	pdf.Ln(8)
	status := "UNPAID"
	if d.Paid {
		status = "PAID"
	}
	pdf.Cell(0, 8, "Status: "+status)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "This invoice covers one tour booking. Please bring it on the start date.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("INVOICE_%d_%s.pdf", d.BookingID, safeFilenamePart(safe(d.TourSlug, d.TourName)))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
