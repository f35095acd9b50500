package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"killua-service-provider/internal/domain/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceColumns = []string{
	"id", "package_id", "priest_name", "available_date", "church_venue",
	"status", "book_by", "book_date", "created_at", "updated_at",
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}

func TestServiceRepositoryCreateAssignsNextPackageID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormServiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(packageIDLock).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q(`SELECT COALESCE(MAX(package_id), 0) FROM "provider_services"`)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(7))
	mock.ExpectExec(q(`INSERT INTO "provider_services"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`INSERT INTO "notifications"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := &entity.Service{
		PriestName:    "Fr. Cruz",
		AvailableDate: time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC),
		ChurchVenue:   "St. Joseph Parish",
		Status:        entity.StatusAvailable,
	}
	var notified int
	err := repo.Create(context.Background(), svc, func(stored *entity.Service) *entity.Notification {
		notified = stored.PackageID
		return &entity.Notification{EventType: entity.EventCreated, ServiceID: stored.ID, PackageID: stored.PackageID}
	})
	require.NoError(t, err)

	assert.Equal(t, 8, svc.PackageID)
	assert.Equal(t, 8, notified)
	_, parseErr := uuid.Parse(svc.ID)
	assert.NoError(t, parseErr)
	assert.False(t, svc.CreatedAt.IsZero())
}

func TestServiceRepositoryCreateFirstPackage(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormServiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q(`SELECT pg_advisory_xact_lock($1)`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q(`SELECT COALESCE(MAX(package_id), 0)`)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectExec(q(`INSERT INTO "provider_services"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := &entity.Service{PriestName: "Fr. Cruz", AvailableDate: time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC), ChurchVenue: "V", Status: entity.StatusAvailable}
	require.NoError(t, repo.Create(context.Background(), svc, nil))
	assert.Equal(t, 1, svc.PackageID)
}

func TestServiceRepositoryCreateRollsBackOnInsertError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormServiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q(`SELECT pg_advisory_xact_lock($1)`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q(`SELECT COALESCE(MAX(package_id), 0)`)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectExec(q(`INSERT INTO "provider_services"`)).
		WillReturnError(errors.New(`duplicate key value violates unique constraint "idx_provider_services_package_id"`))
	mock.ExpectRollback()

	svc := &entity.Service{PriestName: "Fr. Cruz", AvailableDate: time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC), ChurchVenue: "V", Status: entity.StatusAvailable}
	err := repo.Create(context.Background(), svc, nil)
	require.Error(t, err)
	assert.True(t, entity.IsStoreError(err))
}

func TestServiceRepositoryTransitionComparesStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormServiceRepository(db)
	id := uuid.NewString()
	at := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(q(`UPDATE "provider_services" SET "book_date"=$1,"status"=$2,"updated_at"=$3 WHERE id = $4 AND status = $5`)).
		WithArgs(at, "booked", sqlmock.AnyArg(), id, "requested").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`INSERT INTO "notifications"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n := &entity.Notification{EventType: entity.EventBooked, ServiceID: id, PackageID: 4, Message: "Service Package #4 is booked by Maria."}
	err := repo.Transition(context.Background(), id, entity.StatusRequested,
		entity.ServiceUpdate{Status: entity.StatusBooked, BookDate: &at}, n)
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
}

func TestServiceRepositoryTransitionClearsBooking(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormServiceRepository(db)
	id := uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectExec(q(`UPDATE "provider_services" SET "book_by"=$1,"book_date"=$2,"status"=$3,"updated_at"=$4 WHERE id = $5 AND status = $6`)).
		WithArgs(nil, nil, "available", sqlmock.AnyArg(), id, "denied").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Transition(context.Background(), id, entity.StatusDenied,
		entity.ServiceUpdate{Status: entity.StatusAvailable, ClearBookBy: true, ClearBookDate: true}, nil)
	require.NoError(t, err)
}

func TestServiceRepositoryTransitionNoRowsMatched(t *testing.T) {
	tests := []struct {
		name     string
		existing int
		want     error
	}{
		{"status changed underneath", 1, entity.ErrConcurrentUpdate},
		{"service missing", 0, entity.ErrServiceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewGormServiceRepository(db)
			id := uuid.NewString()

			mock.ExpectBegin()
			mock.ExpectExec(q(`UPDATE "provider_services" SET "status"=$1,"updated_at"=$2 WHERE id = $3 AND status = $4`)).
				WithArgs("denied", sqlmock.AnyArg(), id, "requested").
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(q(`SELECT count(*) FROM "provider_services" WHERE id = $1`)).
				WithArgs(id).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.existing))
			mock.ExpectRollback()

			err := repo.Transition(context.Background(), id, entity.StatusRequested,
				entity.ServiceUpdate{Status: entity.StatusDenied},
				&entity.Notification{EventType: entity.EventDenied})
			require.ErrorIs(t, err, tt.want)
			assert.False(t, entity.IsStoreError(err))
		})
	}
}

func TestServiceRepositoryTransitionNotificationOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormServiceRepository(db)
	id := uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectQuery(q(`SELECT count(*) FROM "provider_services" WHERE id = $1 AND status = $2`)).
		WithArgs(id, "available").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(q(`INSERT INTO "notifications"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Transition(context.Background(), id, entity.StatusAvailable, entity.ServiceUpdate{},
		&entity.Notification{EventType: entity.EventExpired, ServiceID: id})
	require.NoError(t, err)
}

func TestServiceRepositoryTransitionStoreError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormServiceRepository(db)
	id := uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectExec(q(`UPDATE "provider_services"`)).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), id, entity.StatusRequested,
		entity.ServiceUpdate{Status: entity.StatusDenied}, nil)
	require.Error(t, err)
	assert.True(t, entity.IsStoreError(err))
	assert.ErrorContains(t, err, "connection reset by peer")
}

func TestServiceRepositoryRejectsNonUUID(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewGormServiceRepository(db)

	_, err := repo.FindByID(context.Background(), "42")
	assert.ErrorIs(t, err, entity.ErrServiceNotFound)

	err = repo.Transition(context.Background(), "42", entity.StatusAvailable, entity.ServiceUpdate{}, nil)
	assert.ErrorIs(t, err, entity.ErrServiceNotFound)
}

func TestServiceRepositoryFindByIDDecodesDate(t *testing.T) {
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	// pgx hands back the date column either as a plain date or as timestamp text
	for _, raw := range []string{"2025-03-01", "2025-03-01T00:00:00Z"} {
		t.Run(raw, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewGormServiceRepository(db)
			id := uuid.NewString()

			mock.ExpectQuery(q(`SELECT * FROM "provider_services" WHERE id = $1`)).
				WithArgs(id, 1).
				WillReturnRows(sqlmock.NewRows(serviceColumns).
					AddRow(id, 5, "Fr. Cruz", raw, "St. Joseph Parish", "requested", "Maria", nil, created, created))

			svc, err := repo.FindByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), svc.AvailableDate)
			assert.Equal(t, entity.StatusRequested, svc.Status)
			require.NotNil(t, svc.BookBy)
			assert.Equal(t, "Maria", *svc.BookBy)
			assert.Nil(t, svc.BookDate)
		})
	}
}

func TestServiceRepositoryFindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormServiceRepository(db)
	id := uuid.NewString()

	mock.ExpectQuery(q(`SELECT * FROM "provider_services" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(serviceColumns))

	_, err := repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, entity.ErrServiceNotFound)
}

func TestServiceRepositoryFindExpiredPages(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormServiceRepository(db)
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q(`SELECT * FROM "provider_services" WHERE status = $1 AND available_date < $2 ORDER BY available_date ASC, id ASC LIMIT $3`)).
		WithArgs("available", "2025-03-10", 2).
		WillReturnRows(sqlmock.NewRows(serviceColumns).
			AddRow("a", 1, "P", "2025-02-01", "V", "available", nil, nil, created, created).
			AddRow("b", 2, "P", "2025-02-01", "V", "available", nil, nil, created, created))
	mock.ExpectQuery(q(`SELECT * FROM "provider_services" WHERE (status = $1 AND available_date < $2) AND (available_date, id) > ($3, $4) ORDER BY available_date ASC, id ASC LIMIT $5`)).
		WithArgs("available", "2025-03-10", "2025-02-01", "b", 2).
		WillReturnRows(sqlmock.NewRows(serviceColumns).
			AddRow("c", 3, "P", "2025-02-03", "V", "available", nil, nil, created, created))

	first, err := repo.FindExpired(context.Background(), today, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := repo.FindExpired(context.Background(), today, entity.CursorOf(first[1]), 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "c", second[0].ID)
	assert.Equal(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), second[0].AvailableDate)
}
