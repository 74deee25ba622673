package sandbox

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/energyinsight/energyinsight/internal/config"
	"github.com/energyinsight/energyinsight/pkg/models"
)

func testExecutor(cfg *config.Config) *Executor {
	if cfg == nil {
		cfg = config.Default()
	}
	return New(cfg, zap.NewNop())
}

func testSnapshot() Snapshot {
	return Snapshot{
		Datasets: []models.DatasetRecord{{
			ID:               1,
			OriginalFilename: "march.csv",
			UploadedAt:       "2025-03-10T12:00:00",
			TotalKWh:         40.6,
			TotalCost:        14.0,
			TotalCO2:         18.27,
			RowCount:         2,
			Fingerprint:      "abc123",
		}},
		Readings: []models.ReadingRecord{
			{DatasetID: 1, ReadingDate: "2025-03-01", ReadingTime: "07:00", ReadingAt: "2025-03-01T07:00:00", KWh: 18.5, Cost: 5.90},
			{DatasetID: 1, ReadingDate: "2025-03-01", ReadingTime: "19:00", ReadingAt: "2025-03-01T19:00:00", KWh: 22.1, Cost: 8.10},
		},
	}
}

func TestValidateRejectsNonSelect(t *testing.T) {
	e := testExecutor(nil)
	for _, stmt := range []string{
		"INSERT INTO energy_readings VALUES (1)",
		"UPDATE energy_readings SET kwh = 0",
		"DELETE FROM energy_readings",
		"DROP TABLE energy_readings",
		"PRAGMA table_info(energy_readings)",
		"ATTACH DATABASE 'x' AS other",
		"",
	} {
		_, err := e.Validate(stmt)
		assert.ErrorIs(t, err, ErrRejectedStatement, "statement %q", stmt)
	}
}

func TestValidateRejectsForbiddenPatternsAnywhere(t *testing.T) {
	e := testExecutor(nil)
	for _, stmt := range []string{
		"SELECT kwh FROM energy_readings WHERE note = 'drop'",
		"SELECT kwh FROM energy_readings -- comment",
		"SELECT kwh FROM energy_readings; SELECT cost FROM energy_readings",
		"select kwh from energy_readings where 1=1 AnD DeLeTe",
		"SELECT /* hidden */ kwh FROM energy_readings",
	} {
		_, err := e.Validate(stmt)
		assert.ErrorIs(t, err, ErrRejectedStatement, "statement %q", stmt)
	}
}

func TestValidateRejectsUnknownTable(t *testing.T) {
	e := testExecutor(nil)
	_, err := e.Validate("SELECT * FROM users")
	assert.ErrorIs(t, err, ErrRejectedStatement)
}

func TestValidateAllowsCTEs(t *testing.T) {
	e := testExecutor(nil)
	stmt := "WITH daily AS (SELECT reading_date, SUM(kwh) AS total FROM energy_readings GROUP BY reading_date) SELECT * FROM daily ORDER BY total DESC"
	normalized, err := e.Validate(stmt)
	require.NoError(t, err)
	assert.Contains(t, normalized, "LIMIT")
}

func TestValidateAppendsLimit(t *testing.T) {
	e := testExecutor(nil)
	normalized, err := e.Validate("SELECT kwh FROM energy_readings")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("SELECT kwh FROM energy_readings LIMIT %d", config.Default().SQLRowLimit), normalized)
}

func TestValidateKeepsExistingLimit(t *testing.T) {
	e := testExecutor(nil)
	normalized, err := e.Validate("SELECT kwh FROM energy_readings LIMIT 5;")
	require.NoError(t, err)
	assert.Equal(t, "SELECT kwh FROM energy_readings LIMIT 5", normalized)
}

func TestExecuteReturnsRows(t *testing.T) {
	e := testExecutor(nil)
	result, executed, err := e.Execute(context.Background(),
		"SELECT reading_date, SUM(cost) AS total_cost FROM energy_readings GROUP BY reading_date", testSnapshot())
	require.NoError(t, err)
	assert.Contains(t, executed, "LIMIT")
	require.Equal(t, 1, result.RowCount)
	assert.Equal(t, []string{"reading_date", "total_cost"}, result.Columns)
	assert.Equal(t, "2025-03-01", result.Rows[0]["reading_date"])
	assert.False(t, result.Truncated)
}

func TestExecuteSeesOnlySnapshotRows(t *testing.T) {
	e := testExecutor(nil)

	// Two users, two executions: each sandbox only ever holds its caller's rows
	other := Snapshot{
		Readings: []models.ReadingRecord{
			{DatasetID: 7, ReadingDate: "2025-04-01", ReadingAt: "2025-04-01T00:00:00", KWh: 3, Cost: 1},
		},
	}

	mine, _, err := e.Execute(context.Background(), "SELECT COUNT(*) AS n FROM energy_readings", testSnapshot())
	require.NoError(t, err)
	theirs, _, err := e.Execute(context.Background(), "SELECT COUNT(*) AS n FROM energy_readings", other)
	require.NoError(t, err)

	assert.EqualValues(t, 2, mine.Rows[0]["n"])
	assert.EqualValues(t, 1, theirs.Rows[0]["n"])
}

func TestExecuteTruncatesAtRowLimit(t *testing.T) {
	cfg := config.Default()
	cfg.SQLRowLimit = 3
	e := testExecutor(cfg)

	snap := Snapshot{}
	for i := 0; i < 10; i++ {
		snap.Readings = append(snap.Readings, models.ReadingRecord{
			DatasetID:   1,
			ReadingDate: fmt.Sprintf("2025-03-%02d", i+1),
			ReadingAt:   fmt.Sprintf("2025-03-%02dT00:00:00", i+1),
			KWh:         1,
		})
	}

	result, executed, err := e.Execute(context.Background(),
		"SELECT reading_date FROM energy_readings LIMIT 10", snap)
	require.NoError(t, err)
	assert.Contains(t, executed, "LIMIT 10")
	assert.Equal(t, 3, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestExecuteNeverRunsRejectedStatement(t *testing.T) {
	e := testExecutor(nil)
	result, _, err := e.Execute(context.Background(), "DELETE FROM energy_readings", testSnapshot())
	assert.ErrorIs(t, err, ErrRejectedStatement)
	assert.Nil(t, result)
}

func TestExecuteReportsEngineErrors(t *testing.T) {
	e := testExecutor(nil)
	_, _, err := e.Execute(context.Background(), "SELECT no_such_column FROM energy_readings", testSnapshot())
	assert.ErrorIs(t, err, ErrExecutionError)
}

func TestExecuteSupportsDateShims(t *testing.T) {
	e := testExecutor(nil)

	result, _, err := e.Execute(context.Background(),
		"SELECT date_trunc('month', reading_date) AS month FROM energy_readings", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01T00:00:00", result.Rows[0]["month"])

	result, _, err = e.Execute(context.Background(),
		"SELECT date_part('dow', reading_date) AS dow FROM energy_readings", testSnapshot())
	require.NoError(t, err)
	assert.EqualValues(t, 6, result.Rows[0]["dow"]) // 2025-03-01 is a Saturday

	result, _, err = e.Execute(context.Background(),
		"SELECT to_char(reading_date, 'YYYY-MM') AS ym FROM energy_readings", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "2025-03", result.Rows[0]["ym"])
}
