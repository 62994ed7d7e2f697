package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/taipei-day-trip/internal/model"
)

func TestReservationRepo_PutUpserts(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepo(db)

	mock.ExpectExec(q("INSERT INTO booking (memberID, attractionID, date, time, price)")+".*"+q("ON DUPLICATE KEY UPDATE")).
		WithArgs(uint64(1), uint64(10), "2024-06-01", "morning", 2000).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("ON DUPLICATE KEY UPDATE")).
		WithArgs(uint64(1), uint64(11), "2024-06-02", "afternoon", 2500).
		WillReturnResult(sqlmock.NewResult(0, 2))

	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, model.Reservation{MemberID: 1, AttractionID: 10, Date: "2024-06-01", Time: "morning", Price: 2000}))
	require.NoError(t, repo.Put(ctx, model.Reservation{MemberID: 1, AttractionID: 11, Date: "2024-06-02", Time: "afternoon", Price: 2500}))
}

func TestReservationRepo_GetDetail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepo(db)

	mock.ExpectQuery(q("JOIN attractions a ON a.id = b.attractionID")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "address", "image", "date", "time", "price"}).
			AddRow(10, "Taipei 101", "Xinyi Rd", "https://img/1.jpg", "2024-06-01", "morning", 2000))

	d, err := repo.GetDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.AttractionSummary{ID: 10, Name: "Taipei 101", Address: "Xinyi Rd", Image: "https://img/1.jpg"}, d.Attraction)
	assert.Equal(t, "2024-06-01", d.Date)
	assert.Equal(t, 2000, d.Price)
}

func TestReservationRepo_DeleteIsIdempotent(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepo(db)

	mock.ExpectExec(q("DELETE FROM booking WHERE memberID = ?")).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM booking WHERE memberID = ?")).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), 1))
	assert.NoError(t, repo.Delete(context.Background(), 1))
}
