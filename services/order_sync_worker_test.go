package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"payment-service/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// ---- mock task repository ----

type mockTaskRepo struct {
	due *models.OrderSyncTask

	doneID        string
	rescheduledID string
	attempts      int
	nextAttemptAt time.Time
	failedID      string
	lastErr       string
}

func (m *mockTaskRepo) Enqueue(_ context.Context, orderID, paymentStatus, paymentID string) (*models.OrderSyncTask, error) {
	return &models.OrderSyncTask{OrderID: orderID, PaymentStatus: paymentStatus, PaymentID: paymentID}, nil
}

func (m *mockTaskRepo) ClaimDue(_ context.Context, _ time.Time) (*models.OrderSyncTask, error) {
	task := m.due
	m.due = nil
	return task, nil
}

func (m *mockTaskRepo) MarkDone(_ context.Context, id string) error {
	m.doneID = id
	return nil
}

func (m *mockTaskRepo) Reschedule(_ context.Context, id string, attempts int, nextAttemptAt time.Time, lastErr string) error {
	m.rescheduledID = id
	m.attempts = attempts
	m.nextAttemptAt = nextAttemptAt
	m.lastErr = lastErr
	return nil
}

func (m *mockTaskRepo) MarkFailed(_ context.Context, id string, lastErr string) error {
	m.failedID = id
	m.lastErr = lastErr
	return nil
}

// ---- mock order notifier ----

type mockNotifier struct {
	err    error
	calls  int
	lastID string
}

func (m *mockNotifier) UpdatePaymentStatus(_ context.Context, orderID, paymentStatus, paymentID string) error {
	m.calls++
	m.lastID = orderID
	return m.err
}

func TestProcessOne_NoDueTask(t *testing.T) {
	repo := &mockTaskRepo{}
	notifier := &mockNotifier{}
	w := NewOrderSyncWorker(repo, notifier, zap.NewNop())

	processed, err := w.ProcessOne(context.Background())
	assert.NoError(t, err)
	assert.False(t, processed)
	assert.Zero(t, notifier.calls)
}

func TestProcessOne_Success(t *testing.T) {
	repo := &mockTaskRepo{due: &models.OrderSyncTask{ID: "t1", OrderID: "ORD-1", PaymentStatus: "Paid", PaymentID: "PAY-1"}}
	notifier := &mockNotifier{}
	w := NewOrderSyncWorker(repo, notifier, zap.NewNop())

	processed, err := w.ProcessOne(context.Background())
	assert.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "ORD-1", notifier.lastID)
	assert.Equal(t, "t1", repo.doneID)
	assert.Empty(t, repo.rescheduledID)
}

func TestProcessOne_FailureReschedulesWithBackoff(t *testing.T) {
	repo := &mockTaskRepo{due: &models.OrderSyncTask{ID: "t1", OrderID: "ORD-1", Attempts: 0}}
	notifier := &mockNotifier{err: errors.New("connection refused")}
	w := NewOrderSyncWorker(repo, notifier, zap.NewNop())

	before := time.Now()
	processed, err := w.ProcessOne(context.Background())
	assert.NoError(t, err)
	assert.True(t, processed)

	assert.Equal(t, "t1", repo.rescheduledID)
	assert.Equal(t, 1, repo.attempts)
	assert.Equal(t, "connection refused", repo.lastErr)

	// First retry is due 5s after the failure.
	delay := repo.nextAttemptAt.Sub(before)
	assert.GreaterOrEqual(t, delay, 5*time.Second)
	assert.Less(t, delay, 6*time.Second)
	assert.Empty(t, repo.failedID)
}

func TestProcessOne_BackoffDoubles(t *testing.T) {
	repo := &mockTaskRepo{due: &models.OrderSyncTask{ID: "t1", OrderID: "ORD-1", Attempts: 2}}
	notifier := &mockNotifier{err: errors.New("timeout")}
	w := NewOrderSyncWorker(repo, notifier, zap.NewNop())

	before := time.Now()
	_, err := w.ProcessOne(context.Background())
	assert.NoError(t, err)

	// Third retry is scheduled 5s * 2^2 = 20s out.
	delay := repo.nextAttemptAt.Sub(before)
	assert.GreaterOrEqual(t, delay, 20*time.Second)
	assert.Less(t, delay, 21*time.Second)
	assert.Equal(t, 3, repo.attempts)
}

func TestProcessOne_ExhaustedAttemptsMarksFailed(t *testing.T) {
	repo := &mockTaskRepo{due: &models.OrderSyncTask{ID: "t1", OrderID: "ORD-1", Attempts: models.MaxSyncAttempts - 1}}
	notifier := &mockNotifier{err: errors.New("still down")}
	w := NewOrderSyncWorker(repo, notifier, zap.NewNop())

	_, err := w.ProcessOne(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, "t1", repo.failedID)
	assert.Equal(t, "still down", repo.lastErr)
	assert.Empty(t, repo.rescheduledID)
}
