package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"medstock/internal/models"
)

const medicineColumns = `id, user_id, name, expiry_date, quantity, unit, status, notes,
	daily_dosage, dosage_times, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row rowScanner) (*models.Medicine, error) {
	var (
		m        models.Medicine
		expiry   string
		timesRaw string
	)
	err := row.Scan(&m.ID, &m.UserID, &m.Name, &expiry, &m.Quantity, &m.Unit, &m.Status,
		&m.Notes, &m.DailyDosage, &timesRaw, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	m.ExpiryDate, err = time.Parse(models.DateLayout, expiry)
	if err != nil {
		return nil, fmt.Errorf("medicine %s: parse expiry date %q: %w", m.ID, expiry, err)
	}
	if err := json.Unmarshal([]byte(timesRaw), &m.DosageTimes); err != nil {
		return nil, fmt.Errorf("medicine %s: decode dosage times: %w", m.ID, err)
	}
	if m.DosageTimes == nil {
		m.DosageTimes = []string{}
	}
	return &m, nil
}

func encodeTimes(times []string) (string, error) {
	if times == nil {
		times = []string{}
	}
	data, err := json.Marshal(times)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CreateMedicine inserts a new medicine. ID and timestamps must be set.
func (db *DB) CreateMedicine(ctx context.Context, m *models.Medicine) error {
	times, err := encodeTimes(m.DosageTimes)
	if err != nil {
		return fmt.Errorf("encode dosage times: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO medicines (`+medicineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Name, m.Expiry(), m.Quantity, m.Unit, m.Status, m.Notes,
		m.DailyDosage, times, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert medicine: %w", err)
	}
	return nil
}

// GetMedicine returns one medicine owned by userID.
func (db *DB) GetMedicine(ctx context.Context, userID, id string) (*models.Medicine, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE id = ? AND user_id = ?`, id, userID)

	m, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get medicine %s: %w", id, err)
	}
	return m, nil
}

// ListMedicines returns all medicines of a user ordered by expiry date.
func (db *DB) ListMedicines(ctx context.Context, userID string) ([]models.Medicine, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE user_id = ?
		ORDER BY expiry_date ASC, name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	defer rows.Close()

	meds := make([]models.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, *m)
	}
	return meds, rows.Err()
}

// UpdateMedicine overwrites the editable fields of a medicine.
func (db *DB) UpdateMedicine(ctx context.Context, m *models.Medicine) error {
	times, err := encodeTimes(m.DosageTimes)
	if err != nil {
		return fmt.Errorf("encode dosage times: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		UPDATE medicines SET
			name = ?, expiry_date = ?, quantity = ?, unit = ?, status = ?, notes = ?,
			daily_dosage = ?, dosage_times = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		m.Name, m.Expiry(), m.Quantity, m.Unit, m.Status, m.Notes,
		m.DailyDosage, times, m.UpdatedAt, m.ID, m.UserID)
	if err != nil {
		return fmt.Errorf("update medicine %s: %w", m.ID, err)
	}
	return expectAffected(res)
}

// SetMedicineStatus changes only the stored status of a medicine.
func (db *DB) SetMedicineStatus(ctx context.Context, userID, id string, status models.Status, at time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE medicines SET status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`, status, at, id, userID)
	if err != nil {
		return fmt.Errorf("set medicine status %s: %w", id, err)
	}
	return expectAffected(res)
}

// DeleteMedicine removes a medicine owned by userID.
func (db *DB) DeleteMedicine(ctx context.Context, userID, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM medicines WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete medicine %s: %w", id, err)
	}
	return expectAffected(res)
}

// ListUserIDs returns every user that owns at least one active medicine.
func (db *DB) ListUserIDs(ctx context.Context) ([]string, error) {
	return db.userIDs(ctx, models.StatusActive)
}

// ListOwners returns every user that owns at least one medicine.
func (db *DB) ListOwners(ctx context.Context) ([]string, error) {
	return db.userIDs(ctx)
}

func (db *DB) userIDs(ctx context.Context, statuses ...models.Status) ([]string, error) {
	queryBuilder := squirrel.Select("DISTINCT user_id").From("medicines")
	if len(statuses) > 0 {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"status": statuses})
	}

	query, args, err := queryBuilder.OrderBy("user_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
