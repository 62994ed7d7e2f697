package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockExpirer struct {
	mock.Mock
	calls atomic.Int32
}

func (m *mockExpirer) ExpireStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	m.calls.Add(1)
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockExpirer) ConfirmPaidPending(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestSweepOnce_UsesCutoff(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	orders := &mockExpirer{}
	orders.On("ConfirmPaidPending", mock.Anything).Return(int64(0), nil).Once()
	orders.On("ExpireStalePending", mock.Anything, now.Add(-10*time.Minute)).Return(int64(2), nil).Once()

	s := NewOrderSweeper(orders, time.Minute, 10*time.Minute)
	s.Now = func() time.Time { return now }

	assert.Equal(t, int64(2), s.SweepOnce(context.Background()))
	orders.AssertExpectations(t)
}

func TestSweepOnce_ErrorReturnsZero(t *testing.T) {
	orders := &mockExpirer{}
	orders.On("ConfirmPaidPending", mock.Anything).Return(int64(0), nil)
	orders.On("ExpireStalePending", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	s := NewOrderSweeper(orders, time.Minute, time.Minute)
	assert.Equal(t, int64(0), s.SweepOnce(context.Background()))
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	orders := &mockExpirer{}
	orders.On("ConfirmPaidPending", mock.Anything).Return(int64(0), nil)
	orders.On("ExpireStalePending", mock.Anything, mock.Anything).Return(int64(0), nil)

	s := NewOrderSweeper(orders, 5*time.Millisecond, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return orders.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweepOnce_ConfirmsPaidBeforeExpiring(t *testing.T) {
	orders := &mockExpirer{}
	var order []string
	orders.On("ConfirmPaidPending", mock.Anything).Return(int64(1), nil).
		Run(func(mock.Arguments) { order = append(order, "confirm") }).Once()
	orders.On("ExpireStalePending", mock.Anything, mock.Anything).Return(int64(0), nil).
		Run(func(mock.Arguments) { order = append(order, "expire") }).Once()

	s := NewOrderSweeper(orders, time.Minute, time.Minute)
	assert.Equal(t, int64(0), s.SweepOnce(context.Background()))
	assert.Equal(t, []string{"confirm", "expire"}, order)
	orders.AssertExpectations(t)
}

func TestSweepOnce_ConfirmFailureStillExpires(t *testing.T) {
	orders := &mockExpirer{}
	orders.On("ConfirmPaidPending", mock.Anything).Return(int64(0), errors.New("deadlock")).Once()
	orders.On("ExpireStalePending", mock.Anything, mock.Anything).Return(int64(1), nil).Once()

	s := NewOrderSweeper(orders, time.Minute, time.Minute)
	assert.Equal(t, int64(1), s.SweepOnce(context.Background()))
	orders.AssertExpectations(t)
}

func TestNewOrderSweeper_NonPositiveInterval(t *testing.T) {
	orders := &mockExpirer{}
	orders.On("ConfirmPaidPending", mock.Anything).Return(int64(0), nil)
	orders.On("ExpireStalePending", mock.Anything, mock.Anything).Return(int64(0), nil)

	s := NewOrderSweeper(orders, 0, time.Minute)
	assert.Equal(t, minSweepInterval, s.Interval)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { s.Run(ctx) })
}
