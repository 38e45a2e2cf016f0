package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"medstock/internal/dosage"
	"medstock/internal/expiry"
	"medstock/internal/inventory"
	"medstock/internal/models"
)

var now = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func view(name string, days int, stored models.Status, times ...string) inventory.View {
	m := models.Medicine{
		ID:          name,
		UserID:      "alice",
		Name:        name,
		ExpiryDate:  time.Date(2025, 6, 15+days, 0, 0, 0, 0, time.UTC),
		Quantity:    10,
		Unit:        models.UnitTablets,
		Status:      stored,
		DosageTimes: times,
		DailyDosage: len(times),
	}
	v := inventory.View{
		Medicine:       m,
		Classification: expiry.Classify(m.ExpiryDate, m.Status, now),
		CanDonate:      expiry.ShouldOfferDonation(m.ExpiryDate, m.Status, now),
	}
	if next, ok := dosage.Next(times, now); ok {
		v.NextDosage = &next
	}
	return v
}

func sampleReport() Report {
	return Report{
		UserID:      "alice",
		GeneratedAt: now,
		Items: []inventory.View{
			view("Old syrup", -3, models.StatusActive),
			view("Aspirin", 3, models.StatusActive, "08:00", "20:00"),
			view("Ibuprofen", 20, models.StatusActive),
			view("Insulin", 90, models.StatusActive),
			view("Given", 10, models.StatusDonated),
		},
	}
}

func TestReport_Summary(t *testing.T) {
	s := sampleReport().Summary()
	assert.Equal(t, Summary{Total: 5, Active: 3, Expired: 1, Donated: 1, ExpiringSoon: 1, DonationReady: 2}, s)
}

func TestRow(t *testing.T) {
	row := Row(sampleReport().Items[1])
	require.Len(t, row, len(Columns))
	assert.Equal(t, "Aspirin", row[0])
	assert.Equal(t, "2025-06-18", row[3])
	assert.Equal(t, "active", row[4])
	assert.Equal(t, "Expires in 3 days", row[5])
	assert.Equal(t, "8:00 PM (5h 30m)", row[7])
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Inventory", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Inventory")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "Old syrup", rows[1][0])
	assert.Equal(t, "Expired 3 days ago", rows[1][5])

	cell, err := f.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "5", cell)
}

func TestSaveExcel(t *testing.T) {
	r := sampleReport()
	path := filepath.Join(t.TempDir(), r.FileName("xlsx"))
	require.NoError(t, SaveExcel(path, r))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Equal(t, "medstock_alice_2025-06-15.xlsx", filepath.Base(path))
}

func TestWorkbook_NoSheet(t *testing.T) {
	wb := NewWorkbook()
	defer wb.Close()
	assert.Error(t, wb.WriteRow([]interface{}{"x"}))
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, sampleReport()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, WritePDF(&buf, Report{UserID: "bob", GeneratedAt: now}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestTrimTo(t *testing.T) {
	assert.Equal(t, "short", trimTo("short", 10))
	assert.Equal(t, "abcd.", trimTo("abcdefgh", 5))
}
