package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVDateTimeLayout(t *testing.T) {
	csv := "date,time,kwh,cost\n" +
		"2025-03-01,07:00,18.5,5.90\n" +
		"2025-03-01,19:00,22.1,8.10\n"

	readings, diag, err := ParseCSV([]byte(csv), 0.32)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 2, diag.ParsedCount)
	assert.Equal(t, 0, diag.SkippedCount)

	assert.Equal(t, "2025-03-01", readings[0].DateString())
	assert.Equal(t, "07:00", readings[0].TimeString())
	assert.True(t, readings[0].HasTime)
	assert.InDelta(t, 18.5, readings[0].KWh, 1e-9)
	assert.InDelta(t, 5.90, readings[0].Cost, 1e-9)
}

func TestParseCSVDatetimeColumnLayout(t *testing.T) {
	csv := "datetime,kwh,cost\n" +
		"2025-03-01T07:00:00,18.5,5.90\n" +
		"2025-03-02 19:30,22.1,8.10\n"

	readings, _, err := ParseCSV([]byte(csv), 0.32)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 7, readings[0].At.Hour())
	assert.Equal(t, 19, readings[1].At.Hour())
	assert.True(t, readings[1].HasTime)
}

func TestParseCSVBareDateHasNoTime(t *testing.T) {
	csv := "datetime,kwh\n2025-03-01,10\n"

	readings, _, err := ParseCSV([]byte(csv), 0.32)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.False(t, readings[0].HasTime)
	assert.Equal(t, "", readings[0].TimeString())
}

func TestParseCSVHeaderCaseInsensitiveAndExtraColumns(t *testing.T) {
	csv := "Date,Time,KWH,Cost,Meter\n2025-03-01,07:00,1.5,0.50,A-17\n"

	readings, _, err := ParseCSV([]byte(csv), 0.32)
	require.NoError(t, err)
	require.Len(t, readings, 1)
}

func TestParseCSVSkipsBadRows(t *testing.T) {
	csv := "date,time,kwh,cost\n" +
		"2025-03-01,07:00,18.5,5.90\n" +
		"not-a-date,07:00,10,1\n" +
		"2025-03-02,08:00,-4,1\n" +
		"2025-03-03,09:00,abc,1\n" +
		"2025-03-04,10:00,,1\n"

	readings, diag, err := ParseCSV([]byte(csv), 0.32)
	require.NoError(t, err)
	assert.Len(t, readings, 1)
	assert.Equal(t, 1, diag.ParsedCount)
	assert.Equal(t, 4, diag.SkippedCount)
	assert.Equal(t, 1, diag.SkippedReasons["invalid date"])
	assert.Equal(t, 1, diag.SkippedReasons["negative kwh"])
	assert.Equal(t, 1, diag.SkippedReasons["invalid kwh"])
	assert.Equal(t, 1, diag.SkippedReasons["missing kwh"])
}

func TestParseCSVNoValidRowsIsFatal(t *testing.T) {
	csv := "date,time,kwh\nbad,xx,yy\n"

	_, _, err := ParseCSV([]byte(csv), 0.32)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestParseCSVMissingRequiredColumns(t *testing.T) {
	_, _, err := ParseCSV([]byte("foo,bar\n1,2\n"), 0.32)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kwh")
}

func TestParseCSVMissingCostColumnDefaultsToZero(t *testing.T) {
	csv := "date,time,kwh\n2025-03-01,07:00,18.5\n2025-03-01,19:00,22.1\n"

	readings, _, err := ParseCSV([]byte(csv), 0.32)
	require.NoError(t, err)
	for _, r := range readings {
		assert.Zero(t, r.Cost)
	}
}

func TestParseCSVBlankCostsFilledFromDatasetRate(t *testing.T) {
	// 10 kWh at 5.00 gives a 0.50 rate, so the blank row prices at 2.00
	csv := "date,time,kwh,cost\n" +
		"2025-03-01,07:00,10,5.00\n" +
		"2025-03-01,19:00,4,\n"

	readings, _, err := ParseCSV([]byte(csv), 0.32)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.InDelta(t, 2.0, readings[1].Cost, 1e-9)
}

func TestParseCSVOrdersByTimestamp(t *testing.T) {
	csv := "date,time,kwh,cost\n" +
		"2025-03-02,07:00,2,1\n" +
		"2025-03-01,19:00,1,1\n" +
		"2025-03-01,07:00,3,1\n"

	readings, _, err := ParseCSV([]byte(csv), 0.32)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, "2025-03-01", readings[0].DateString())
	assert.Equal(t, "07:00", readings[0].TimeString())
	assert.Equal(t, "2025-03-02", readings[2].DateString())
}
