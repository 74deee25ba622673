package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energyinsight/energyinsight/pkg/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testReadings() []models.Reading {
	at1, _ := time.ParseInLocation("2006-01-02 15:04", "2025-03-01 07:00", time.UTC)
	at2, _ := time.ParseInLocation("2006-01-02", "2025-03-02", time.UTC)
	return []models.Reading{
		{At: at1, HasTime: true, KWh: 18.5, Cost: 5.90},
		{At: at2, KWh: 22.1, Cost: 8.10},
	}
}

func testSummary() *models.Summary {
	return &models.Summary{
		Stats: []models.StatCard{
			{Title: "Total Consumption", Value: 40.6, Unit: "kWh"},
		},
		Insights: &models.Insights{CO2Factor: 0.45, DaysCovered: 2},
	}
}

func TestSaveDatasetAndLatest(t *testing.T) {
	db := testDB(t)

	id, err := db.SaveDataset("user-1", "march.csv", testReadings(), testSummary(), "fp-1")
	require.NoError(t, err)
	assert.Positive(t, id)

	latest, err := db.LatestDataset("user-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, id, latest.ID)
	assert.Equal(t, "march.csv", latest.OriginalFilename)
	assert.InDelta(t, 40.6, latest.TotalKWh, 1e-9)
	assert.InDelta(t, 14.0, latest.TotalCost, 1e-9)
	assert.InDelta(t, 40.6*0.45, latest.TotalCO2, 1e-9)
	assert.Equal(t, 2, latest.RowCount)
	assert.Equal(t, "fp-1", latest.Fingerprint)
}

func TestSaveDatasetDuplicateFingerprint(t *testing.T) {
	db := testDB(t)

	_, err := db.SaveDataset("user-1", "march.csv", testReadings(), testSummary(), "fp-1")
	require.NoError(t, err)

	_, err = db.SaveDataset("user-1", "march-again.csv", testReadings(), testSummary(), "fp-1")
	assert.ErrorIs(t, err, ErrDuplicateDataset)

	// Same content under another user is not a duplicate
	_, err = db.SaveDataset("user-2", "march.csv", testReadings(), testSummary(), "fp-1")
	assert.NoError(t, err)
}

func TestLatestSummaryRoundTrip(t *testing.T) {
	db := testDB(t)

	none, err := db.LatestSummary("user-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = db.SaveDataset("user-1", "march.csv", testReadings(), testSummary(), "fp-1")
	require.NoError(t, err)

	summary, err := db.LatestSummary("user-1")
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Len(t, summary.Stats, 1)
	assert.Equal(t, "Total Consumption", summary.Stats[0].Title)
	require.NotNil(t, summary.Insights)
	assert.InDelta(t, 0.45, summary.Insights.CO2Factor, 1e-9)
}

func TestListDatasetsNewestFirst(t *testing.T) {
	db := testDB(t)

	_, err := db.SaveDataset("user-1", "a.csv", testReadings(), testSummary(), "fp-a")
	require.NoError(t, err)
	_, err = db.SaveDataset("user-1", "b.csv", testReadings(), testSummary(), "fp-b")
	require.NoError(t, err)

	list, err := db.ListDatasets("user-1", 50)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b.csv", list[0].OriginalFilename)
	assert.Equal(t, "a.csv", list[1].OriginalFilename)
}

func TestDatasetDetail(t *testing.T) {
	db := testDB(t)

	id, err := db.SaveDataset("user-1", "march.csv", testReadings(), testSummary(), "fp-1")
	require.NoError(t, err)

	detail, err := db.DatasetDetail(id, "user-1")
	require.NoError(t, err)
	require.NotNil(t, detail.Summary)
	require.Len(t, detail.Readings, 2)
	assert.Equal(t, "2025-03-01", detail.Readings[0].ReadingDate)
	assert.Equal(t, "07:00", detail.Readings[0].ReadingTime)
	assert.Empty(t, detail.Readings[1].ReadingTime, "date-only reading stores no time")

	_, err = db.DatasetDetail(id, "user-2")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestDeleteDatasetCascades(t *testing.T) {
	db := testDB(t)

	id, err := db.SaveDataset("user-1", "march.csv", testReadings(), testSummary(), "fp-1")
	require.NoError(t, err)

	require.ErrorIs(t, db.DeleteDataset(id, "user-2"), ErrDatasetNotFound)
	require.NoError(t, db.DeleteDataset(id, "user-1"))

	snap, err := db.SnapshotForUser("user-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Datasets)
	assert.Empty(t, snap.Readings)

	assert.ErrorIs(t, db.DeleteDataset(id, "user-1"), ErrDatasetNotFound)
}

func TestSnapshotForUserScoping(t *testing.T) {
	db := testDB(t)

	_, err := db.SaveDataset("user-1", "mine.csv", testReadings(), testSummary(), "fp-1")
	require.NoError(t, err)
	_, err = db.SaveDataset("user-2", "theirs.csv", testReadings(), testSummary(), "fp-1")
	require.NoError(t, err)

	snap, err := db.SnapshotForUser("user-1")
	require.NoError(t, err)
	require.Len(t, snap.Datasets, 1)
	assert.Equal(t, "mine.csv", snap.Datasets[0].OriginalFilename)
	assert.Len(t, snap.Readings, 2)
}
