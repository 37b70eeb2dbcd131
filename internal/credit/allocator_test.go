package credit

import (
	"context"
	"testing"
	"time"

	"ferreteria-backend/internal/audit"
	"ferreteria-backend/internal/models"
	"ferreteria-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store      *repository.MemoryStore
	alloc      *Allocator
	actor      audit.Actor
	customerID uint
	sellerID   uint
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	tx := repository.NewMemoryTx(store)
	alloc := NewAllocator(tx, store, store, audit.Nop{})

	customerID := store.AddUser(models.User{Name: "Doña Rosa", Email: "rosa@mail.com", Role: models.RoleCustomer})
	sellerID := store.AddUser(models.User{Name: "Vendedor", Email: "v@tienda.com", Role: models.RoleSeller})
	return &fixture{
		store:      store,
		alloc:      alloc,
		actor:      audit.Actor{UserID: sellerID, Name: "Vendedor"},
		customerID: customerID,
		sellerID:   sellerID,
	}
}

// addDebt siembra un pedido PENDIENTE fechado para fijar el orden FIFO.
func (f *fixture) addDebt(t *testing.T, total string, daysAgo int) uint {
	t.Helper()
	customerID := f.customerID
	o := models.Order{
		CustomerID:     &customerID,
		SellerID:       &f.sellerID,
		BranchID:       1,
		State:          models.OrderPending,
		PaymentMethod:  "CREDITO",
		Total:          dec(total),
		AmountReceived: decimal.Zero,
	}
	o.CreatedAt = time.Now().UTC().AddDate(0, 0, -daysAgo)
	require.NoError(t, f.store.Create(context.Background(), &o))
	return o.ID
}

func (f *fixture) order(t *testing.T, id uint) *models.Order {
	t.Helper()
	o, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func TestApplyPaymentFIFO(t *testing.T) {
	f := setup(t)
	oldest := f.addDebt(t, "100.00", 30)
	middle := f.addDebt(t, "50.00", 20)
	newest := f.addDebt(t, "30.00", 10)

	res, err := f.alloc.ApplyPayment(context.Background(), f.actor, f.customerID, dec("120.00"))
	require.NoError(t, err)

	// 120 salda los 100 más viejos y deja 20 en el siguiente
	assert.True(t, res.AppliedTotal.Equal(dec("120.00")), "aplicado = %s", res.AppliedTotal)
	assert.True(t, res.Change.IsZero(), "cambio = %s", res.Change)
	assert.True(t, res.RemainingDebt.Equal(dec("60.00")), "restante = %s", res.RemainingDebt)

	o1 := f.order(t, oldest)
	assert.Equal(t, models.OrderPaid, o1.State)
	assert.True(t, o1.Outstanding().IsZero())

	o2 := f.order(t, middle)
	assert.Equal(t, models.OrderPending, o2.State)
	assert.True(t, o2.AmountReceived.Equal(dec("20.00")))
	assert.True(t, o2.Outstanding().Equal(dec("30.00")))

	o3 := f.order(t, newest)
	assert.Equal(t, models.OrderPending, o3.State)
	assert.True(t, o3.AmountReceived.IsZero())
}

func TestApplyPaymentExactPayoff(t *testing.T) {
	f := setup(t)
	id := f.addDebt(t, "75.50", 5)

	res, err := f.alloc.ApplyPayment(context.Background(), f.actor, f.customerID, dec("75.50"))
	require.NoError(t, err)

	assert.True(t, res.AppliedTotal.Equal(dec("75.50")))
	assert.True(t, res.Change.IsZero())
	assert.True(t, res.RemainingDebt.IsZero())
	assert.Equal(t, models.OrderPaid, f.order(t, id).State)
}

func TestApplyPaymentOverpaymentReturnsChange(t *testing.T) {
	f := setup(t)
	id := f.addDebt(t, "50.00", 5)

	res, err := f.alloc.ApplyPayment(context.Background(), f.actor, f.customerID, dec("80.00"))
	require.NoError(t, err)

	assert.True(t, res.AppliedTotal.Equal(dec("50.00")))
	assert.True(t, res.Change.Equal(dec("30.00")))
	assert.True(t, res.RemainingDebt.IsZero())
	assert.Equal(t, models.OrderPaid, f.order(t, id).State)
}

func TestApplyPaymentRejectsNonPositiveAmount(t *testing.T) {
	f := setup(t)
	f.addDebt(t, "100.00", 5)

	_, err := f.alloc.ApplyPayment(context.Background(), f.actor, f.customerID, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.alloc.ApplyPayment(context.Background(), f.actor, f.customerID, dec("-5.00"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// la deuda no se tocó
	debt, err := f.alloc.OutstandingDebt(context.Background(), f.customerID)
	require.NoError(t, err)
	assert.True(t, debt.Equal(dec("100.00")))
}

func TestApplyPaymentWithoutDebt(t *testing.T) {
	f := setup(t)
	_, err := f.alloc.ApplyPayment(context.Background(), f.actor, f.customerID, dec("10.00"))
	assert.ErrorIs(t, err, ErrNoOutstandingDebt)
}

func TestApplyPaymentUnknownCustomer(t *testing.T) {
	f := setup(t)
	_, err := f.alloc.ApplyPayment(context.Background(), f.actor, 999, dec("10.00"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSequentialPaymentsDoNotDoubleApply(t *testing.T) {
	f := setup(t)
	id := f.addDebt(t, "100.00", 5)

	res, err := f.alloc.ApplyPayment(context.Background(), f.actor, f.customerID, dec("40.00"))
	require.NoError(t, err)
	assert.True(t, res.RemainingDebt.Equal(dec("60.00")))

	res, err = f.alloc.ApplyPayment(context.Background(), f.actor, f.customerID, dec("60.00"))
	require.NoError(t, err)
	assert.True(t, res.AppliedTotal.Equal(dec("60.00")))
	assert.True(t, res.RemainingDebt.IsZero())

	o := f.order(t, id)
	assert.Equal(t, models.OrderPaid, o.State)
	assert.True(t, o.AmountReceived.Equal(dec("100.00")))

	// ya no queda deuda que abonar
	_, err = f.alloc.ApplyPayment(context.Background(), f.actor, f.customerID, dec("1.00"))
	assert.ErrorIs(t, err, ErrNoOutstandingDebt)
}

func TestOutstandingDebtSumsPendingOnly(t *testing.T) {
	f := setup(t)
	f.addDebt(t, "100.00", 10)
	f.addDebt(t, "25.00", 5)

	// un pedido ya pagado de otro momento no cuenta
	customerID := f.customerID
	paid := models.Order{
		CustomerID:     &customerID,
		SellerID:       &f.sellerID,
		BranchID:       1,
		State:          models.OrderPaid,
		PaymentMethod:  "EFECTIVO",
		Total:          dec("500.00"),
		AmountReceived: dec("500.00"),
	}
	require.NoError(t, f.store.Create(context.Background(), &paid))

	debt, err := f.alloc.OutstandingDebt(context.Background(), f.customerID)
	require.NoError(t, err)
	assert.True(t, debt.Equal(dec("125.00")), "deuda = %s", debt)
}
