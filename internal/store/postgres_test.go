package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawprint/leakwatch/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return NewPostgresWithPool(pool), pool
}

func TestPostgres_IsKnownAsset(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("asset", "12345").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	known, err := s.IsKnownAsset(context.Background(), model.SourceTypeAsset, "12345")
	require.NoError(t, err)
	assert.True(t, known)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_IsKnownAssetMiss(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("asset", "99999").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	known, err := s.IsKnownAsset(context.Background(), model.SourceTypeAsset, "99999")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestPostgres_UpdateDelivery(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE items SET message_id").
		WithArgs("msg-1", "item-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateDelivery(context.Background(), "item-1", "msg-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateDeliveryNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE items SET message_id").
		WithArgs("msg-1", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateDelivery(context.Background(), "missing", "msg-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgres_GetSetting(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs(SettingLastCycleAt).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("2026-03-14T09:00:00Z"))

	val, err := s.GetSetting(context.Background(), SettingLastCycleAt)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14T09:00:00Z", val)
}

func TestPostgres_GetSettingAbsent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs("unknown").
		WillReturnError(pgx.ErrNoRows)

	val, err := s.GetSetting(context.Background(), "unknown")
	require.NoError(t, err, "an absent setting is not an error")
	assert.Empty(t, val)
}

func TestPostgres_SetSetting(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO settings").
		WithArgs(SettingLastCycleAt, "2026-03-14T09:00:00Z", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SetSetting(context.Background(), SettingLastCycleAt, "2026-03-14T09:00:00Z"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateLog(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO logs").
		WithArgs("scan", "cycle complete", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.CreateLog(context.Background(), model.LogEntry{
		EventType: model.EventScan,
		Message:   "cycle complete",
		Metadata:  map[string]any{"items_found": 3},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordItemsCopies(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"items"}, itemColumns).WillReturnResult(2)

	items := []model.ClassifiedItem{
		classifiedFixture("Huge Dragon"),
		classifiedFixture("Titanic Cat"),
	}
	records, err := s.RecordItems(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, "Huge Dragon", records[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordItemsEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	records, err := s.RecordItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}
