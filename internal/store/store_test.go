package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-extaint/internal/aggregate"
)

func TestNew_PropagatesPingError(t *testing.T) {
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockPool.Close()

	pingErr := errors.New("database unavailable")
	mockPool.ExpectPing().WillReturnError(pingErr)

	_, err = New(context.Background(), mockPool, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, pingErr)
}

func TestNew_CreatesSchemaOnSuccessfulPing(t *testing.T) {
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectPing()
	mockPool.ExpectExec(regexp.QuoteMeta("CREATE TABLE")).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	s, err := New(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetCachedReport_ReturnsFalseOnNoRows(t *testing.T) {
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT report FROM extension_reports")).
		WithArgs("ext-1", "hash-1").
		WillReturnError(pgx.ErrNoRows)

	s := &Store{pool: mockPool, log: zap.NewNop()}
	report, found, err := s.GetCachedReport(context.Background(), "ext-1", "hash-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, report)
}

func TestGetCachedReport_DecodesStoredReport(t *testing.T) {
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockPool.Close()

	want := aggregate.Report{Extension: "ext-1", ManifestVersion: 3}
	data, err := json.Marshal(want)
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"report"}).AddRow(data)
	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT report FROM extension_reports")).
		WithArgs("ext-1", "hash-1").
		WillReturnRows(rows)

	s := &Store{pool: mockPool, log: zap.NewNop()}
	got, found, err := s.GetCachedReport(context.Background(), "ext-1", "hash-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want.Extension, got.Extension)
	assert.Equal(t, want.ManifestVersion, got.ManifestVersion)
}

func TestPutReport_UpsertsEncodedReport(t *testing.T) {
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO extension_reports")).
		WithArgs("ext-1", "hash-1", "run-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := &Store{pool: mockPool, log: zap.NewNop()}
	err = s.PutReport(context.Background(), "ext-1", "hash-1", "run-1", aggregate.Report{Extension: "ext-1"})
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
