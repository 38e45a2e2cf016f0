package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// Workbook writes tabular sheets into an xlsx file.
type Workbook struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
	headerStyle  int
}

func NewWorkbook() *Workbook {
	w := &Workbook{file: excelize.NewFile()}
	if style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E8EEF4"}, Pattern: 1},
	}); err == nil {
		w.headerStyle = style
	}
	return w
}

// AddSheet starts a new sheet. The first call renames the default sheet.
func (w *Workbook) AddSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *Workbook) WriteHeader(columns []string) error {
	if err := w.writeCells(toRow(columns)); err != nil {
		return err
	}
	if w.headerStyle != 0 {
		start, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		end, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, start, end, w.headerStyle)
	}
	if err := w.file.SetPanes(w.currentSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	w.currentRow++
	return nil
}

func (w *Workbook) WriteRow(row []interface{}) error {
	if err := w.writeCells(row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

func (w *Workbook) writeCells(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the workbook to wr.
func (w *Workbook) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *Workbook) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

func toRow(columns []string) []interface{} {
	out := make([]interface{}, len(columns))
	for i, c := range columns {
		out[i] = c
	}
	return out
}
