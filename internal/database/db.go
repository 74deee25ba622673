package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/energyinsight/energyinsight/internal/sandbox"
	"github.com/energyinsight/energyinsight/pkg/models"
)

// ErrDuplicateDataset is returned when a user re-uploads identical content
var ErrDuplicateDataset = errors.New("identical dataset already stored")

// ErrDatasetNotFound is returned when a dataset id does not exist for a user
var ErrDatasetNotFound = errors.New("dataset not found")

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		uploaded_at TEXT NOT NULL,
		total_kwh REAL NOT NULL,
		total_cost REAL NOT NULL,
		total_co2 REAL NOT NULL,
		row_count INTEGER NOT NULL,
		summary_json TEXT,
		fingerprint TEXT NOT NULL,
		UNIQUE(user_id, fingerprint)
	);
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		reading_date TEXT NOT NULL,
		reading_time TEXT,
		reading_at TEXT NOT NULL,
		kwh REAL NOT NULL,
		cost REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_datasets_user ON datasets(user_id);
	CREATE INDEX IF NOT EXISTS idx_readings_dataset ON readings(dataset_id);
	CREATE INDEX IF NOT EXISTS idx_readings_user ON readings(user_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveDataset stores a dataset with its readings and summary. Re-uploading
// identical content for the same user fails with ErrDuplicateDataset; the
// same content under a different user succeeds.
func (db *DB) SaveDataset(userID, filename string, readings []models.Reading, summary *models.Summary, fingerprint string) (int64, error) {
	var existing int64
	err := db.conn.QueryRow(
		`SELECT id FROM datasets WHERE user_id = ? AND fingerprint = ? LIMIT 1`,
		userID, fingerprint,
	).Scan(&existing)
	if err == nil {
		return 0, ErrDuplicateDataset
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("checking for duplicate dataset: %w", err)
	}

	var totalKWh, totalCost float64
	for _, r := range readings {
		totalKWh += r.KWh
		totalCost += r.Cost
	}
	totalCO2 := 0.0
	if summary != nil && summary.Insights != nil {
		totalCO2 = totalKWh * summary.Insights.CO2Factor
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("encoding summary: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	uploadedAt := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.Exec(
		`INSERT INTO datasets (user_id, original_filename, uploaded_at, total_kwh, total_cost, total_co2, row_count, summary_json, fingerprint)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, filename, uploadedAt, totalKWh, totalCost, totalCO2, len(readings), string(summaryJSON), fingerprint)
	if err != nil {
		return 0, fmt.Errorf("inserting dataset: %w", err)
	}

	datasetID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted dataset id: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO readings (dataset_id, user_id, reading_date, reading_time, reading_at, kwh, cost)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing reading insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range readings {
		var readingTime any
		if r.HasTime {
			readingTime = r.TimeString()
		}
		if _, err := stmt.Exec(datasetID, userID, r.DateString(), readingTime,
			r.At.Format("2006-01-02T15:04:05"), r.KWh, r.Cost); err != nil {
			return 0, fmt.Errorf("inserting reading: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing dataset: %w", err)
	}

	return datasetID, nil
}

// LatestDataset returns the user's most recent dataset record, or nil
func (db *DB) LatestDataset(userID string) (*models.DatasetRecord, error) {
	row := db.conn.QueryRow(
		`SELECT id, original_filename, uploaded_at, total_kwh, total_cost, total_co2, row_count, fingerprint
		 FROM datasets WHERE user_id = ? ORDER BY uploaded_at DESC, id DESC LIMIT 1`, userID)

	var rec models.DatasetRecord
	err := row.Scan(&rec.ID, &rec.OriginalFilename, &rec.UploadedAt,
		&rec.TotalKWh, &rec.TotalCost, &rec.TotalCO2, &rec.RowCount, &rec.Fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest dataset: %w", err)
	}
	return &rec, nil
}

// LatestSummary returns the stored summary of the user's most recent dataset,
// or nil when the user has no datasets
func (db *DB) LatestSummary(userID string) (*models.Summary, error) {
	row := db.conn.QueryRow(
		`SELECT summary_json FROM datasets WHERE user_id = ? ORDER BY uploaded_at DESC, id DESC LIMIT 1`, userID)

	var payload sql.NullString
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest summary: %w", err)
	}
	if !payload.Valid || payload.String == "" {
		return nil, nil
	}

	var summary models.Summary
	if err := json.Unmarshal([]byte(payload.String), &summary); err != nil {
		return nil, fmt.Errorf("decoding stored summary: %w", err)
	}
	return &summary, nil
}

// ListDatasets returns the user's datasets, newest first
func (db *DB) ListDatasets(userID string, limit int) ([]models.DatasetRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, original_filename, uploaded_at, total_kwh, total_cost, total_co2, row_count, fingerprint
		 FROM datasets WHERE user_id = ? ORDER BY uploaded_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying datasets: %w", err)
	}
	defer rows.Close()

	var results []models.DatasetRecord
	for rows.Next() {
		var rec models.DatasetRecord
		if err := rows.Scan(&rec.ID, &rec.OriginalFilename, &rec.UploadedAt,
			&rec.TotalKWh, &rec.TotalCost, &rec.TotalCO2, &rec.RowCount, &rec.Fingerprint); err != nil {
			return nil, fmt.Errorf("scanning dataset row: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// DatasetDetail returns one dataset with its stored summary and readings
func (db *DB) DatasetDetail(datasetID int64, userID string) (*models.DatasetDetail, error) {
	row := db.conn.QueryRow(
		`SELECT id, original_filename, uploaded_at, total_kwh, total_cost, total_co2, row_count, fingerprint, summary_json
		 FROM datasets WHERE id = ? AND user_id = ?`, datasetID, userID)

	var rec models.DatasetRecord
	var payload sql.NullString
	err := row.Scan(&rec.ID, &rec.OriginalFilename, &rec.UploadedAt,
		&rec.TotalKWh, &rec.TotalCost, &rec.TotalCO2, &rec.RowCount, &rec.Fingerprint, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying dataset: %w", err)
	}

	detail := &models.DatasetDetail{Dataset: rec}
	if payload.Valid && payload.String != "" {
		var summary models.Summary
		if err := json.Unmarshal([]byte(payload.String), &summary); err != nil {
			return nil, fmt.Errorf("decoding stored summary: %w", err)
		}
		detail.Summary = &summary
	}

	readings, err := db.readingsWhere(`dataset_id = ? AND user_id = ?`, datasetID, userID)
	if err != nil {
		return nil, err
	}
	detail.Readings = readings
	return detail, nil
}

// DeleteDataset removes a dataset and all of its readings
func (db *DB) DeleteDataset(datasetID int64, userID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM readings WHERE dataset_id = ? AND user_id = ?`, datasetID, userID); err != nil {
		return fmt.Errorf("deleting readings: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM datasets WHERE id = ? AND user_id = ?`, datasetID, userID)
	if err != nil {
		return fmt.Errorf("deleting dataset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted rows: %w", err)
	}
	if affected == 0 {
		return ErrDatasetNotFound
	}

	return tx.Commit()
}

// SnapshotForUser loads everything the sandbox may see for one user. Only
// rows owned by that user are ever included.
func (db *DB) SnapshotForUser(userID string) (sandbox.Snapshot, error) {
	var snap sandbox.Snapshot

	datasets, err := db.ListDatasets(userID, 1000)
	if err != nil {
		return snap, err
	}
	snap.Datasets = datasets

	readings, err := db.readingsWhere(`user_id = ?`, userID)
	if err != nil {
		return snap, err
	}
	snap.Readings = readings
	return snap, nil
}

func (db *DB) readingsWhere(where string, args ...any) ([]models.ReadingRecord, error) {
	rows, err := db.conn.Query(
		`SELECT dataset_id, reading_date, reading_time, reading_at, kwh, cost
		 FROM readings WHERE `+where+` ORDER BY reading_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var results []models.ReadingRecord
	for rows.Next() {
		var rec models.ReadingRecord
		var readingTime sql.NullString
		if err := rows.Scan(&rec.DatasetID, &rec.ReadingDate, &readingTime, &rec.ReadingAt, &rec.KWh, &rec.Cost); err != nil {
			return nil, fmt.Errorf("scanning reading row: %w", err)
		}
		if readingTime.Valid {
			rec.ReadingTime = readingTime.String
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}
