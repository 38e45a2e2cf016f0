package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/phpdave11/gofpdf"

	"medstock/internal/expiry"
)

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"NAME", 52, "L"},
	{"QTY", 18, "R"},
	{"EXPIRY DATE", 28, "C"},
	{"STATUS", 22, "C"},
	{"EXPIRY", 42, "L"},
	{"NEXT DOSE", 20, "C"},
}

// pageBottom is the y position after which a new page is started.
const pageBottom = 270

// WritePDF renders the report as an A4 PDF table.
func WritePDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetTitle("Medicine inventory", false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Medicine inventory")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "User: "+tr(r.UserID))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Generated: "+r.GeneratedAt.Format(time.RFC1123))
	pdf.Ln(10)

	s := r.Summary()
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 10)
	sums := []struct {
		label string
		value int
	}{
		{"Total", s.Total},
		{"Active", s.Active},
		{"Expired", s.Expired},
		{"Donated", s.Donated},
	}
	for i, c := range sums {
		ln := 0
		if i == len(sums)-1 {
			ln = 1
		}
		pdf.CellFormat(45.5, 8, fmt.Sprintf("%s: %d", c.label, c.value), "1", ln, "C", true, 0, "")
	}
	pdf.Ln(6)

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(245, 245, 245)
		pdf.SetTextColor(20, 20, 20)
		for i, c := range pdfColumns {
			ln := 0
			if i == len(pdfColumns)-1 {
				ln = 1
			}
			pdf.CellFormat(c.width, 8, c.title, "1", ln, "C", true, 0, "")
		}
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	if len(r.Items) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No medicines", "1", 1, "C", false, 0, "")
	}

	for _, v := range r.Items {
		if pdf.GetY() > pageBottom {
			pdf.AddPage()
			header()
		}

		red, green, blue := colorRGB(v.Classification.Color)
		next := "-"
		if v.NextDosage != nil {
			next = v.NextDosage.Time
		}
		cells := []string{
			tr(trimTo(v.Medicine.Name, 30)),
			strconv.Itoa(v.Medicine.Quantity) + " " + string(v.Medicine.Unit),
			v.Medicine.Expiry(),
			string(v.Classification.EffectiveStatus),
			v.Classification.DisplayText,
			next,
		}
		for i, c := range pdfColumns {
			ln := 0
			if i == len(pdfColumns)-1 {
				ln = 1
			}
			if i == 4 {
				pdf.SetTextColor(red, green, blue)
			}
			pdf.CellFormat(c.width, 7, cells[i], "1", ln, c.align, false, 0, "")
			pdf.SetTextColor(30, 30, 30)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func colorRGB(c expiry.Color) (int, int, int) {
	switch c {
	case expiry.ColorRed:
		return 200, 30, 30
	case expiry.ColorAmber:
		return 220, 120, 0
	case expiry.ColorYellow:
		return 170, 150, 0
	case expiry.ColorGreen:
		return 30, 140, 60
	default:
		return 90, 90, 160
	}
}

func trimTo(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}
