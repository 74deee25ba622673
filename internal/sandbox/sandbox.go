package sandbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/energyinsight/energyinsight/internal/config"
	"github.com/energyinsight/energyinsight/pkg/models"
)

// Failure taxonomy. Statements that fail validation are never executed.
var (
	ErrRejectedStatement = errors.New("statement rejected by sandbox policy")
	ErrExecutionTimeout  = errors.New("sandbox execution timed out")
	ErrExecutionError    = errors.New("sandbox execution failed")
)

// Tables visible inside the sandbox. No user identifiers appear in this
// schema: scoping is structural, the instance only ever holds one user's rows.
var allowedTables = map[string]bool{
	"energy_datasets": true,
	"energy_readings": true,
}

var (
	forbiddenPattern = regexp.MustCompile(`(?i)(;|--|/\*|\x00|insert|update|delete|drop|create|alter|attach|pragma|grant|revoke|truncate|commit|rollback|call)`)
	tableRefPattern  = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z_][a-zA-Z0-9_.]*)`)
	ctePattern       = regexp.MustCompile(`(?i)\b([a-zA-Z_][a-zA-Z0-9_]*)\s+as\s*\(`)
	limitPattern     = regexp.MustCompile(`(?i)\blimit\b`)
)

// Snapshot is the single-user row set loaded into the ephemeral instance
type Snapshot struct {
	Datasets []models.DatasetRecord
	Readings []models.ReadingRecord
}

// Executor validates candidate statements and runs them against an ephemeral,
// request-scoped SQLite instance populated only with the caller's rows
type Executor struct {
	cfg *config.Config
	log *zap.Logger
}

// New creates a sandbox executor
func New(cfg *config.Config, log *zap.Logger) *Executor {
	return &Executor{cfg: cfg, log: log.With(zap.String("component", "sandbox"))}
}

// Validate checks a candidate statement against the sandbox policy and
// returns the normalized form that will actually execute
func (e *Executor) Validate(stmt string) (string, error) {
	s := strings.TrimSpace(stmt)
	s = strings.TrimSuffix(s, ";")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty statement", ErrRejectedStatement)
	}

	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return "", fmt.Errorf("%w: only SELECT queries are allowed", ErrRejectedStatement)
	}
	if loc := forbiddenPattern.FindString(s); loc != "" {
		return "", fmt.Errorf("%w: forbidden pattern %q", ErrRejectedStatement, strings.TrimSpace(loc))
	}

	// CTE names defined in the statement may be referenced like tables
	known := make(map[string]bool, len(allowedTables))
	for t := range allowedTables {
		known[t] = true
	}
	for _, m := range ctePattern.FindAllStringSubmatch(s, -1) {
		known[strings.ToLower(m[1])] = true
	}

	refs := tableRefPattern.FindAllStringSubmatch(s, -1)
	touchesAllowed := false
	for _, m := range refs {
		name := strings.ToLower(m[1])
		if !known[name] {
			return "", fmt.Errorf("%w: table %q is not allowed", ErrRejectedStatement, m[1])
		}
		if allowedTables[name] {
			touchesAllowed = true
		}
	}
	if !touchesAllowed {
		for t := range allowedTables {
			if strings.Contains(lower, t) {
				touchesAllowed = true
				break
			}
		}
	}
	if !touchesAllowed {
		return "", fmt.Errorf("%w: query must reference the energy tables", ErrRejectedStatement)
	}

	if !limitPattern.MatchString(s) {
		s = fmt.Sprintf("%s LIMIT %d", s, e.cfg.SQLRowLimit)
	}
	return s, nil
}

// Execute validates the statement and runs it against a fresh in-memory
// instance holding only the given snapshot. The instance is torn down on
// every exit path and never outlives the call.
func (e *Executor) Execute(ctx context.Context, stmt string, snap Snapshot) (*models.SandboxResult, string, error) {
	normalized, err := e.Validate(stmt)
	if err != nil {
		e.log.Warn("rejected candidate statement", zap.Error(err))
		return nil, "", err
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, "", fmt.Errorf("%w: opening sandbox database: %v", ErrExecutionError, err)
	}
	// A single connection keeps every statement on the same in-memory database
	db.SetMaxOpenConns(1)
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.SQLTimeout())
	defer cancel()

	if err := loadSnapshot(ctx, db, snap); err != nil {
		return nil, "", fmt.Errorf("%w: loading snapshot: %v", ErrExecutionError, err)
	}

	rows, err := db.QueryContext(ctx, normalized)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", ErrExecutionTimeout
		}
		e.log.Warn("statement failed in engine", zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrExecutionError, err)
	}
	defer rows.Close()

	result, err := scanResult(rows, e.cfg.SQLRowLimit)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", ErrExecutionTimeout
		}
		return nil, "", fmt.Errorf("%w: %v", ErrExecutionError, err)
	}
	return result, normalized, nil
}

func loadSnapshot(ctx context.Context, db *sql.DB, snap Snapshot) error {
	schema := `
	CREATE TABLE energy_datasets (
		id INTEGER,
		original_filename TEXT,
		uploaded_at TEXT,
		total_kwh REAL,
		total_cost REAL,
		total_co2 REAL,
		row_count INTEGER,
		fingerprint TEXT
	);
	CREATE TABLE energy_readings (
		id INTEGER,
		dataset_id INTEGER,
		reading_date TEXT,
		reading_time TEXT,
		reading_at TEXT,
		kwh REAL,
		cost REAL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}

	for _, d := range snap.Datasets {
		_, err := db.ExecContext(ctx,
			`INSERT INTO energy_datasets (id, original_filename, uploaded_at, total_kwh, total_cost, total_co2, row_count, fingerprint)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.OriginalFilename, d.UploadedAt, d.TotalKWh, d.TotalCost, d.TotalCO2, d.RowCount, d.Fingerprint)
		if err != nil {
			return err
		}
	}

	for i, r := range snap.Readings {
		var readingTime any
		if r.ReadingTime != "" {
			readingTime = r.ReadingTime
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO energy_readings (id, dataset_id, reading_date, reading_time, reading_at, kwh, cost)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i+1, r.DatasetID, r.ReadingDate, readingTime, r.ReadingAt, r.KWh, r.Cost)
		if err != nil {
			return err
		}
	}

	return nil
}

func scanResult(rows *sql.Rows, limit int) (*models.SandboxResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &models.SandboxResult{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		if result.RowCount >= limit {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
