// Package export renders a user's inventory as an Excel workbook or a PDF
// report.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"medstock/internal/dosage"
	"medstock/internal/expiry"
	"medstock/internal/inventory"
	"medstock/internal/models"
)

// Columns of the inventory sheet, in order.
var Columns = []string{
	"Name", "Quantity", "Unit", "Expiry date", "Status", "Expiry", "Daily dosage", "Next dose", "Notes",
}

// Report is one user's inventory as of GeneratedAt.
type Report struct {
	UserID      string
	GeneratedAt time.Time
	Items       []inventory.View
}

// Summary counts items per effective status.
type Summary struct {
	Total         int
	Active        int
	Expired       int
	Donated       int
	ExpiringSoon  int
	DonationReady int
}

func (r Report) Summary() Summary {
	var s Summary
	for _, v := range r.Items {
		s.Total++
		switch v.Classification.EffectiveStatus {
		case models.StatusActive:
			s.Active++
			if v.Classification.DaysUntilExpiry <= expiry.SoonDays {
				s.ExpiringSoon++
			}
		case models.StatusExpired:
			s.Expired++
		case models.StatusDonated:
			s.Donated++
		}
		if v.CanDonate {
			s.DonationReady++
		}
	}
	return s
}

// Row returns the sheet cells for one item.
func Row(v inventory.View) []interface{} {
	m := v.Medicine
	next := ""
	if v.NextDosage != nil {
		next = fmt.Sprintf("%s (%s)", dosage.FormatClock12h(v.NextDosage.Time), v.NextDosage.Countdown())
	}
	return []interface{}{
		m.Name,
		m.Quantity,
		string(m.Unit),
		m.Expiry(),
		string(v.Classification.EffectiveStatus),
		v.Classification.DisplayText,
		m.DailyDosage,
		next,
		m.Notes,
	}
}

// WriteExcel writes the report as an xlsx workbook with an inventory sheet
// and a summary sheet.
func WriteExcel(w io.Writer, r Report) error {
	wb, err := r.workbook()
	if err != nil {
		return err
	}
	defer wb.Close()
	return wb.Save(w)
}

// SaveExcel writes the report workbook to path.
func SaveExcel(path string, r Report) error {
	wb, err := r.workbook()
	if err != nil {
		return err
	}
	defer wb.Close()
	return wb.SaveToFile(path)
}

func (r Report) workbook() (*Workbook, error) {
	wb := NewWorkbook()

	if err := wb.AddSheet("Inventory"); err != nil {
		return nil, err
	}
	if err := wb.WriteHeader(Columns); err != nil {
		return nil, err
	}
	for _, v := range r.Items {
		if err := wb.WriteRow(Row(v)); err != nil {
			return nil, fmt.Errorf("write %s: %w", v.Medicine.ID, err)
		}
	}

	s := r.Summary()
	if err := wb.AddSheet("Summary"); err != nil {
		return nil, err
	}
	if err := wb.WriteHeader([]string{"Metric", "Value"}); err != nil {
		return nil, err
	}
	for _, row := range [][]interface{}{
		{"User", r.UserID},
		{"Generated at", r.GeneratedAt.Format(time.RFC3339)},
		{"Total", s.Total},
		{"Active", s.Active},
		{"Expiring within a week", s.ExpiringSoon},
		{"Expired", s.Expired},
		{"Donated", s.Donated},
		{"Ready to donate", s.DonationReady},
	} {
		if err := wb.WriteRow(row); err != nil {
			return nil, err
		}
	}
	return wb, nil
}

// FileName returns the default export file name for the report.
func (r Report) FileName(ext string) string {
	return filepath.Base(fmt.Sprintf("medstock_%s_%s.%s", r.UserID, r.GeneratedAt.Format("2006-01-02"), ext))
}
