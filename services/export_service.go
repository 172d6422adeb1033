package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"local-services-server/models"
)

const (
	exportSheet    = "Bookings"
	maxExportRows  = 10000
	exportPageSize = 500
)

var exportHeaders = []string{
	"Booking Number", "Created", "Scheduled", "Service", "Priority", "Status",
	"Customer", "Phone", "Address", "Estimate", "Actual", "Rating", "Description",
}

// ExportService renders bookings as spreadsheets and receipts.
type ExportService struct {
	db     *gorm.DB
	loc    *time.Location
	logger zerolog.Logger
}

func NewExportService(db *gorm.DB, loc *time.Location, logger zerolog.Logger) *ExportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ExportService{db: db, loc: loc, logger: logger.With().Str("component", "export").Logger()}
}

func (s *ExportService) loadForExport(ctx context.Context, filter ListBookingsFilter) ([]models.Booking, error) {
	query, err := filterBookings(s.db.WithContext(ctx).Model(&models.Booking{}), filter)
	if err != nil {
		return nil, err
	}

	var out []models.Booking
	for offset := 0; offset < maxExportRows; offset += exportPageSize {
		var page []models.Booking
		if err := query.Session(&gorm.Session{}).Order("created_at DESC, id DESC").Limit(exportPageSize).Offset(offset).Find(&page).Error; err != nil {
			return nil, fmt.Errorf("load bookings for export: %w", err)
		}
		out = append(out, page...)
		if len(page) < exportPageSize {
			break
		}
	}
	return out, nil
}

// BookingsXLSX builds a spreadsheet of bookings matching filter. Limit and
// offset on the filter are ignored.
func (s *ExportService) BookingsXLSX(ctx context.Context, filter ListBookingsFilter) ([]byte, error) {
	bookings, err := s.loadForExport(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
		_ = f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	for r, b := range bookings {
		row := r + 2
		values := []interface{}{
			b.BookingNumber,
			b.CreatedAt.In(s.loc).Format("2006-01-02 15:04"),
			b.ScheduledTime.In(s.loc).Format("2006-01-02 15:04"),
			b.ServiceType,
			string(b.Priority),
			string(b.Status),
			b.ContactInfo.Name,
			b.ContactInfo.Phone,
			b.ContactInfo.Address,
			b.TotalCost,
			"",
			"",
			b.Description,
		}
		if b.ActualCost != nil {
			values[10] = *b.ActualCost
		}
		if b.Rating != nil {
			values[11] = *b.Rating
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(exportSheet, start, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 28)
	_ = f.SetColWidth(exportSheet, "B", "I", 18)
	_ = f.SetColWidth(exportSheet, "M", "M", 40)
	_ = f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info().Int("rows", len(bookings)).Msg("📊 Bookings exported")
	return buf.Bytes(), nil
}

// ReceiptPDF renders a one-page receipt for a booking.
func (s *ExportService) ReceiptPDF(_ context.Context, b *models.Booking) ([]byte, error) {
	if b == nil {
		return nil, NotFoundError{Resource: "booking"}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking "+b.BookingNumber, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "SERVICE BOOKING RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Booking No : " + b.BookingNumber,
		"Status     : " + strings.ToUpper(string(b.Status)),
		"Booked on  : " + b.CreatedAt.In(s.loc).Format("02 Jan 2006 15:04"),
		"Scheduled  : " + b.ScheduledTime.In(s.loc).Format("02 Jan 2006 15:04"),
		"Service    : " + b.ServiceType + " (" + string(b.Priority) + ")",
	}
	if b.CompletedAt != nil {
		lines = append(lines, "Completed  : "+b.CompletedAt.In(s.loc).Format("02 Jan 2006 15:04"))
	}
	for _, line := range lines {
		pdf.Cell(0, 7, pdfSafe(line))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Customer")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, pdfSafe("Name    : "+b.ContactInfo.Name))
	pdf.Ln(7)
	pdf.Cell(0, 7, pdfSafe("Phone   : "+b.ContactInfo.Phone))
	pdf.Ln(7)
	pdf.MultiCell(0, 7, pdfSafe("Address : "+b.ContactInfo.Address), "", "", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Problem")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, pdfSafe(b.Description), "", "", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, fmt.Sprintf("Estimate: Rs. %.2f", b.TotalCost))
	pdf.Ln(8)
	if b.ActualCost != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Amount due: Rs. %.2f", *b.ActualCost))
		pdf.Ln(8)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfSafe replaces characters the core PDF fonts cannot render.
func pdfSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		} else {
			b.WriteRune('?')
		}
	}
	return b.String()
}
