package repository

import (
	"context"
	"testing"
	"time"

	"ferreteria-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockPendingByCustomerReturnsOldestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	customerID := store.AddUser(models.User{Name: "Cliente", Role: models.RoleCustomer})

	mk := func(state models.OrderState, daysAgo int) uint {
		o := models.Order{
			CustomerID: &customerID,
			BranchID:   1,
			State:      state,
			Total:      decimal.NewFromInt(10),
			CreatedAt:  time.Now().UTC().AddDate(0, 0, -daysAgo),
		}
		require.NoError(t, store.Create(ctx, &o))
		return o.ID
	}

	newest := mk(models.OrderPending, 1)
	oldest := mk(models.OrderPending, 30)
	mk(models.OrderPaid, 60) // no cuenta: ya está saldado
	middle := mk(models.OrderPending, 10)

	pending, err := store.LockPendingByCustomer(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, oldest, pending[0].ID)
	assert.Equal(t, middle, pending[1].ID)
	assert.Equal(t, newest, pending[2].ID)
}

func TestSetQuantityUnknownRecord(t *testing.T) {
	store := NewMemoryStore()
	err := store.SetQuantity(context.Background(), 1, 999, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderCopiesAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	o := models.Order{
		BranchID: 1,
		State:    models.OrderPaid,
		Total:    decimal.NewFromInt(100),
		Lines:    []models.OrderLine{{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(50)}},
	}
	require.NoError(t, store.Create(ctx, &o))

	got, err := store.GetByID(ctx, o.ID)
	require.NoError(t, err)

	// mutar la copia no debe tocar lo almacenado
	got.State = models.OrderCancelled
	got.Lines[0].Quantity = 99

	again, err := store.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, again.State)
	assert.Equal(t, 2, again.Lines[0].Quantity)
}
