package gormstore

import (
	"context"
	"regexp"
	"testing"
	"time"

	"vpass/src/models"
	"vpass/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	return gormDB, mock
}

func TestPassStoreGetNotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "passes" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewPassStore(gdb).Get(context.Background(), id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassStoreGet(t *testing.T) {
	gdb, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "passes" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "pass_code", "status", "version"}).
			AddRow(id.String(), 1, "ABCD1234", "APPROVED", 3))

	pass, err := NewPassStore(gdb).Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", pass.PassCode)
	assert.Equal(t, types.PASS_APPROVED, pass.Status)
	assert.Equal(t, uint(3), pass.Version)
}

func TestPassStoreListByCreator(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "passes" WHERE tenant_id = $1 AND created_by = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`)).
		WithArgs(1, 7, 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "created_by", "pass_code"}).
			AddRow(uuid.NewString(), 1, 7, "MINE0001"))

	passes, err := NewPassStore(gdb).ListByCreator(context.Background(), 1, 7, 1, 10)
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, uint(7), passes[0].CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassStoreVisitingBetween(t *testing.T) {
	gdb, mock := newMockDB(t)
	from := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "passes" WHERE tenant_id = $1 AND (visit_date_time >= $2 AND visit_date_time < $3) AND status = $4 ORDER BY visit_date_time LIMIT $5`)).
		WithArgs(1, sqlmock.AnyArg(), sqlmock.AnyArg(), "CHECKED_IN", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "status"}).
			AddRow(uuid.NewString(), 1, "CHECKED_IN"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "passes" WHERE tenant_id = $1 AND (visit_date_time >= $2 AND visit_date_time < $3) AND status = $4`)).
		WithArgs(1, sqlmock.AnyArg(), sqlmock.AnyArg(), "APPROVED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	s := NewPassStore(gdb)
	passes, err := s.ListVisitingBetween(context.Background(), 1, from, to, types.PASS_CHECKED_IN, 0, 20)
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, types.PASS_CHECKED_IN, passes[0].Status)

	count, err := s.CountVisitingBetween(context.Background(), 1, from, to, types.PASS_APPROVED)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassStoreUpdateBumpsVersion(t *testing.T) {
	gdb, mock := newMockDB(t)
	pass := &models.Pass{ID: uuid.New(), Status: types.PASS_APPROVED, Version: 2}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "passes" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewPassStore(gdb).Update(context.Background(), pass))
	assert.Equal(t, uint(3), pass.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassStoreUpdateStaleVersion(t *testing.T) {
	gdb, mock := newMockDB(t)
	pass := &models.Pass{ID: uuid.New(), Status: types.PASS_APPROVED, Version: 0}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "passes" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "passes" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := NewPassStore(gdb).Update(context.Background(), pass)
	assert.ErrorIs(t, err, types.ErrConcurrentModification)
	assert.Equal(t, uint(0), pass.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassStoreUpdateMissing(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "passes" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "passes"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := NewPassStore(gdb).Update(context.Background(), &models.Pass{ID: uuid.New()})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAuditLogUpdateStatusOnlyFromPending(t *testing.T) {
	gdb, mock := newMockDB(t)
	audit := NewAuditLog(gdb)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "email_audit_logs" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, audit.UpdateStatus(context.Background(), id, types.EMAIL_SENT, nil, time.Now()))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "email_audit_logs" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	err := audit.UpdateStatus(context.Background(), id, types.EMAIL_FAILED, nil, time.Now())
	assert.ErrorIs(t, err, types.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDirectoryTenantAdmin(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE tenant_id = $1 AND role = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "email", "role"}).
			AddRow(4, 7, "admin@seven.test", "ADMIN"))

	admin, err := NewUserDirectory(gdb).GetTenantAdmin(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "admin@seven.test", admin.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStorePending(t *testing.T) {
	gdb, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "job_tasks" WHERE status = $1 AND runs_at <= $2 ORDER BY runs_at`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic", "routing_key", "status"}).
			AddRow(id.String(), "visitor_pass_exchange", "pass.event.approved", "pending"))

	jobs, err := NewJobStore(gdb).Pending(context.Background(), time.Now(), 50)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "pass.event.approved", jobs[0].RoutingKey)
}
