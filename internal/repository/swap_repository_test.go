package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotswap/slotswap-api/internal/models"
)

func pendingSwap(now time.Time) *models.SwapRequest {
	return &models.SwapRequest{
		ID:          "req-1",
		MySlotID:    "slot-a",
		TheirSlotID: "slot-b",
		RequesterID: "alice",
		RecipientID: "bob",
		Status:      models.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestSwapRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "my_slot_id", "their_slot_id", "requester_id", "recipient_id", "status", "created_at", "updated_at"}).
		AddRow("req-1", "slot-a", "slot-b", "alice", "bob", string(models.RequestPending), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, my_slot_id, their_slot_id, requester_id, recipient_id, status, created_at, updated_at FROM swap_requests WHERE id = $1 LIMIT 1")).
		WithArgs("req-1").
		WillReturnRows(rows)

	req, err := repo.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryOpenNegotiation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET status = $3, updated_at = $4")).
		WithArgs("slot-a", string(models.SlotSwappable), string(models.SlotSwapPending), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET status = $3, updated_at = $4")).
		WithArgs("slot-b", string(models.SlotSwappable), string(models.SlotSwapPending), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO swap_requests").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.OpenNegotiation(context.Background(), pendingSwap(time.Now()))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryOpenNegotiationAbortsOnLockedSlot(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	// The second slot was grabbed by a concurrent request; the whole
	// transaction rolls back and the first slot stays untouched.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET status = $3, updated_at = $4")).
		WithArgs("slot-a", string(models.SlotSwappable), string(models.SlotSwapPending), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET status = $3, updated_at = $4")).
		WithArgs("slot-b", string(models.SlotSwappable), string(models.SlotSwapPending), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.OpenNegotiation(context.Background(), pendingSwap(time.Now()))
	assert.ErrorIs(t, err, ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryAcceptNegotiation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE swap_requests SET status = $3, updated_at = $4")).
		WithArgs("req-1", string(models.RequestPending), string(models.RequestAccepted), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET owner_id = $2, status = $4, updated_at = $5")).
		WithArgs("slot-a", "bob", string(models.SlotSwapPending), string(models.SlotBusy), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET owner_id = $2, status = $4, updated_at = $5")).
		WithArgs("slot-b", "alice", string(models.SlotSwapPending), string(models.SlotBusy), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.AcceptNegotiation(context.Background(), pendingSwap(time.Now()), "bob", "alice")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryAcceptNegotiationAlreadySettled(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE swap_requests SET status = $3, updated_at = $4")).
		WithArgs("req-1", string(models.RequestPending), string(models.RequestAccepted), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.AcceptNegotiation(context.Background(), pendingSwap(time.Now()), "bob", "alice")
	assert.ErrorIs(t, err, ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryReleaseNegotiation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE swap_requests SET status = $3, updated_at = $4")).
		WithArgs("req-1", string(models.RequestPending), string(models.RequestRejected), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET status = $3, updated_at = $4")).
		WithArgs("slot-a", string(models.SlotSwapPending), string(models.SlotSwappable), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET status = $3, updated_at = $4")).
		WithArgs("slot-b", string(models.SlotSwapPending), string(models.SlotSwappable), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReleaseNegotiation(context.Background(), pendingSwap(time.Now()))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryFindViewByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "status", "created_at", "updated_at",
		"my_slot_id", "my_slot_title", "my_slot_start", "my_slot_end", "my_slot_status", "my_slot_owner",
		"their_slot_id", "their_slot_title", "their_slot_start", "their_slot_end", "their_slot_status", "their_slot_owner",
		"requester_id", "requester_name", "requester_email", "requester_avatar",
		"recipient_id", "recipient_name", "recipient_email", "recipient_avatar",
	}).AddRow(
		"req-1", string(models.RequestPending), now, now,
		"slot-a", "Morning shift", now, now.Add(time.Hour), string(models.SlotSwapPending), "alice",
		"slot-b", "Evening shift", now, now.Add(time.Hour), string(models.SlotSwapPending), "bob",
		"alice", "Alice", "alice@example.com", "",
		"bob", "Bob", "bob@example.com", "",
	)

	mock.ExpectQuery("FROM swap_requests r").
		WithArgs("req-1").
		WillReturnRows(rows)

	view, err := repo.FindViewByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "Morning shift", view.MySlot.Title)
	assert.Equal(t, "Bob", view.Recipient.Name)
	assert.Equal(t, models.RequestPending, view.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryListViewsForRecipient(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	mock.ExpectQuery("WHERE r.recipient_id").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	views, err := repo.ListViewsForRecipient(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.NoError(t, mock.ExpectationsWereMet())
}
