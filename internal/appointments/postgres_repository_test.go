package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appointmentCols = []string{"id", "session_id", "flow_id", "owner_name", "pet_name", "phone", "preferred_date_time", "status", "notes", "created_at"}

func validRequest() *CreateRequest {
	return &CreateRequest{
		SessionID:         "sess-1",
		FlowID:            "flow-1",
		OwnerName:         "Maria",
		PetName:           "Rex",
		Phone:             "5551234567",
		PreferredDateTime: "Tuesday 3pm",
	}
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	created := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "sess-1", "flow-1", "Maria", "Rex", "5551234567", "Tuesday 3pm", "pending", "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	appt, isNew, err := repo.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, "flow-1", appt.FlowID)
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, created, appt.CreatedAt)
	assert.Equal(t, "Rex", appt.PetName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateSameFlowReturnsExistingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	created := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)

	mock.ExpectQuery("ON CONFLICT \\(session_id, flow_id\\) DO NOTHING").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}))
	mock.ExpectQuery("WHERE session_id = \\$1 AND flow_id = \\$2").
		WithArgs("sess-1", "flow-1").
		WillReturnRows(pgxmock.NewRows(appointmentCols).
			AddRow("a1", "sess-1", "flow-1", "Maria", "Rex", "5551234567", "Tuesday 3pm", "pending", "", created))

	appt, isNew, err := repo.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "a1", appt.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateRejectsIncomplete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	req := validRequest()
	req.Phone = " "

	_, _, err = repo.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrIncomplete)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateWrapsDatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	boom := errors.New("connection reset")
	mock.ExpectQuery("INSERT INTO appointments").WillReturnError(boom)

	_, _, err = repo.Create(context.Background(), validRequest())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "appointments: insert failed")
}

func TestPostgresRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	id := "3f1c1f8e-6a4b-4c55-9a51-3d2d5b0c9e11"
	mock.ExpectQuery("WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(appointmentCols))

	_, err = repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = repo.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	newer := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs("sess-1", 10, 0).
		WillReturnRows(pgxmock.NewRows(appointmentCols).
			AddRow("a2", "sess-1", "flow-2", "Maria", "Luna", "5551234567", "Friday", "pending", "", newer).
			AddRow("a1", "sess-1", "", "Maria", "Rex", "5551234567", "Tuesday 3pm", "confirmed", "", older))

	page, err := repo.List(context.Background(), ListFilter{SessionID: "sess-1", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Appointments, 2)
	assert.Equal(t, "a2", page.Appointments[0].ID)
	assert.Equal(t, StatusConfirmed, page.Appointments[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListPagesBeyondLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(450))
	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs("", maxListLimit, 400).
		WillReturnRows(pgxmock.NewRows(appointmentCols))

	page, err := repo.List(context.Background(), ListFilter{Limit: 5000, Offset: 400})
	require.NoError(t, err)
	assert.Empty(t, page.Appointments)
	assert.Equal(t, 450, page.Total)
	assert.Equal(t, maxListLimit, page.Limit)
	assert.Equal(t, 400, page.Offset)
	require.NoError(t, mock.ExpectationsWereMet())
}
