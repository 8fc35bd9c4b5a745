package confirmation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preventive-care-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "confirmation-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	return store
}

func dayPtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "confirmation-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	c := &Confirmation{
		PatientID:      "patient-1",
		ScreeningKey:   domain.KEY_COLONOSCOPY,
		LastScreenedOn: dayPtr(2019, time.April, 2),
		Source:         SourceClinician,
		Notes:          "from referral letter",
	}
	require.NoError(t, store.Save(ctx, c))
	assert.NotZero(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())
	assert.False(t, c.UpdatedAt.IsZero())

	got, err := store.Get(ctx, "patient-1", domain.KEY_COLONOSCOPY)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, SourceClinician, got.Source)
	assert.Equal(t, "from referral letter", got.Notes)
	require.NotNil(t, got.LastScreenedOn)
	assert.Equal(t, "2019-04-02", got.LastScreenedOn.Format(domain.DateLayout))
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	got, err := store.Get(context.Background(), "nobody", domain.KEY_PSA)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_SaveUpdatesExisting(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	first := &Confirmation{PatientID: "p", ScreeningKey: domain.KEY_MAMMOGRAM, LastScreenedOn: dayPtr(2020, time.January, 5), Source: SourcePatient}
	require.NoError(t, store.Save(ctx, first))

	second := &Confirmation{PatientID: "p", ScreeningKey: domain.KEY_MAMMOGRAM, LastScreenedOn: nil, Source: SourceClinician}
	require.NoError(t, store.Save(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Get(ctx, "p", domain.KEY_MAMMOGRAM)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.LastScreenedOn, "never screened is stored as NULL")
	assert.Equal(t, SourceClinician, got.Source)
}

func TestSQLiteStore_ListForPatient(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for _, key := range []domain.ScreeningKey{domain.KEY_PSA, domain.KEY_AAA, domain.KEY_CHOLESTEROL} {
		require.NoError(t, store.Save(ctx, &Confirmation{PatientID: "p1", ScreeningKey: key, Source: SourcePatient}))
	}
	require.NoError(t, store.Save(ctx, &Confirmation{PatientID: "p2", ScreeningKey: domain.KEY_PSA, Source: SourcePatient}))

	list, err := store.ListForPatient(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, domain.KEY_AAA, list[0].ScreeningKey)
	assert.Equal(t, domain.KEY_CHOLESTEROL, list[1].ScreeningKey)
	assert.Equal(t, domain.KEY_PSA, list[2].ScreeningKey)
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	var ids []int64
	for _, patient := range []string{"a", "b", "c"} {
		c := &Confirmation{PatientID: patient, ScreeningKey: domain.KEY_HIV_TEST, Source: SourcePatient}
		require.NoError(t, store.Save(ctx, c))
		ids = append(ids, c.ID)
	}

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = store.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	require.NoError(t, store.Delete(ctx, ids[0]))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()
	ctx := context.Background()

	require.NoError(t, source.Save(ctx, &Confirmation{PatientID: "p1", ScreeningKey: domain.KEY_CERVICAL, LastScreenedOn: dayPtr(2023, time.March, 1), Source: SourcePatient}))
	require.NoError(t, source.Save(ctx, &Confirmation{PatientID: "p1", ScreeningKey: domain.KEY_LUNG_CT, Source: SourceClinician}))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.Contains(t, buf.String(), `"count": 2`)

	target := createTestStore(t)
	defer target.Close()
	require.NoError(t, target.Save(ctx, &Confirmation{PatientID: "p1", ScreeningKey: domain.KEY_CERVICAL, Source: SourcePatient}))

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	existing, err := target.Get(ctx, "p1", domain.KEY_CERVICAL)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Nil(t, existing.LastScreenedOn, "existing entries are not overwritten")

	lung, err := target.Get(ctx, "p1", domain.KEY_LUNG_CT)
	require.NoError(t, err)
	require.NotNil(t, lung)
	assert.Equal(t, SourceClinician, lung.Source)
}

func TestSQLiteStore_ImportSkipsInvalidRecords(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	future := time.Now().UTC().AddDate(1, 0, 0).Format(time.RFC3339)
	payload := `{
		"version": "1.0",
		"count": 5,
		"confirmations": [
			{"patient_id": "p1", "screening_key": "xray", "source": "patient"},
			{"patient_id": "p1", "screening_key": "mammogram", "last_screened_on": "` + future + `"},
			{"patient_id": "", "screening_key": "psa"},
			{"patient_id": "p1", "screening_key": "colonoscopy", "source": "robot"},
			{"patient_id": "p1", "screening_key": "cervical", "last_screened_on": "2023-03-01T00:00:00Z"}
		]
	}`

	imported, skipped, err := store.ImportJSON(ctx, bytes.NewReader([]byte(payload)))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 4, skipped)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	cervical, err := store.Get(ctx, "p1", domain.KEY_CERVICAL)
	require.NoError(t, err)
	require.NotNil(t, cervical)
	assert.Equal(t, SourceImport, cervical.Source)

	mammogram, err := store.Get(ctx, "p1", domain.KEY_MAMMOGRAM)
	require.NoError(t, err)
	assert.Nil(t, mammogram, "future dates are rejected")
}

func TestSQLiteStore_ImportInvalidJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("{not json")))
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		store, err := NewStore(domain.ConfirmationsConfig{Driver: DriverNone})
		assert.NoError(t, err)
		assert.Nil(t, store)
	})

	t.Run("SQLite", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(domain.ConfirmationsConfig{Driver: DriverSQLite, SQLitePath: filepath.Join(tmpDir, "c.db")})
		require.NoError(t, err)
		require.NotNil(t, store)
		assert.NoError(t, store.Close())
	})

	t.Run("SQLite_Without_Path", func(t *testing.T) {
		_, err := NewStore(domain.ConfirmationsConfig{Driver: DriverSQLite})
		assert.Error(t, err)
	})

	t.Run("Unknown_Driver", func(t *testing.T) {
		_, err := NewStore(domain.ConfirmationsConfig{Driver: "mongo"})
		assert.ErrorContains(t, err, "mongo")
	})
}
