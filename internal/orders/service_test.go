package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"ferreteria-backend/internal/audit"
	"ferreteria-backend/internal/models"
	"ferreteria-backend/internal/repository"
	"ferreteria-backend/internal/stock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const branchID = uint(1)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store    *repository.MemoryStore
	svc      *Service
	actor    audit.Actor
	martillo uint
	clavos   uint
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	tx := repository.NewMemoryTx(store)
	ledger := stock.NewLedger(store, store)
	svc := NewService(tx, store, store, store, ledger, audit.Nop{})
	svc.now = func() time.Time { return testNow }

	f := &fixture{store: store, svc: svc}
	f.martillo = store.AddProduct(models.Product{Name: "Martillo", SKU: "MART-01", Price: dec("10.00")})
	f.clavos = store.AddProduct(models.Product{Name: "Clavos", SKU: "CLAV-01", Price: dec("5.00")})
	store.PutStock(branchID, f.martillo, 20)
	store.PutStock(branchID, f.clavos, 100)

	sellerID := store.AddUser(models.User{Name: "Vendedor", Email: "v@tienda.com", Role: models.RoleSeller})
	f.actor = audit.Actor{UserID: sellerID, Name: "Vendedor"}
	return f
}

func (f *fixture) addCustomer(t *testing.T, termDays int) uint {
	t.Helper()
	return f.store.AddUser(models.User{
		Name:           "Cliente",
		Email:          "c@mail.com",
		Role:           models.RoleCustomer,
		CreditTermDays: termDays,
	})
}

func (f *fixture) saleInput(state models.OrderState) SaleInput {
	return SaleInput{
		BranchID:      branchID,
		Channel:       ChannelCounter,
		InitialState:  state,
		PaymentMethod: "EFECTIVO",
		Lines: []SaleLine{
			{ProductID: f.martillo, Quantity: 3},
			{ProductID: f.clavos, Quantity: 1},
		},
	}
}

func TestCreateSaleComputesTotalAndDecrementsStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.svc.CreateSale(ctx, f.actor, f.saleInput(models.OrderDelivered))
	require.NoError(t, err)

	// 3x10 + 1x5 = 35 subtotal, IVA 15% => 40.25
	assert.True(t, order.Total.Equal(dec("40.25")), "total = %s", order.Total)
	assert.Equal(t, models.OrderDelivered, order.State)
	require.Len(t, order.Lines, 2)
	assert.True(t, order.Lines[0].UnitPrice.Equal(dec("10.00")))

	assert.Equal(t, 17, f.store.StockQuantity(branchID, f.martillo))
	assert.Equal(t, 99, f.store.StockQuantity(branchID, f.clavos))
}

func TestCreateSaleSnapshotsPriceAtSaleTime(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.svc.CreateSale(ctx, f.actor, f.saleInput(models.OrderDelivered))
	require.NoError(t, err)

	// el precio congelado no depende del catálogo posterior
	assert.True(t, order.Lines[0].UnitPrice.Equal(dec("10.00")))
	assert.True(t, order.Total.Equal(dec("40.25")))
}

func TestCreateSaleInsufficientStockWritesNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	in := f.saleInput(models.OrderDelivered)
	in.Lines = []SaleLine{
		{ProductID: f.martillo, Quantity: 3},
		{ProductID: f.clavos, Quantity: 500},
	}

	_, err := f.svc.CreateSale(ctx, f.actor, in)
	var insuf *stock.InsufficientStockError
	require.ErrorAs(t, err, &insuf)
	assert.Equal(t, f.clavos, insuf.ProductID)

	// nada se escribió: ni stock ni pedido
	assert.Equal(t, 20, f.store.StockQuantity(branchID, f.martillo))
	assert.Equal(t, 100, f.store.StockQuantity(branchID, f.clavos))
	_, err = f.store.GetByID(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateSaleSetsDueDateForCreditCustomers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	customerID := f.addCustomer(t, 30)

	in := f.saleInput(models.OrderPending)
	in.CustomerID = &customerID
	in.PaymentMethod = "CREDITO"
	in.LateFeeRate = dec("5")

	order, err := f.svc.CreateSale(ctx, f.actor, in)
	require.NoError(t, err)

	require.NotNil(t, order.DueDate)
	want := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC) // 2026-03-10 + 30 días
	assert.True(t, order.DueDate.Equal(want), "vencimiento = %s", order.DueDate)
	assert.True(t, order.AmountReceived.IsZero())
}

func TestCreateSaleWithoutCreditTermHasNoDueDate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	customerID := f.addCustomer(t, 0)

	in := f.saleInput(models.OrderPaid)
	in.CustomerID = &customerID

	order, err := f.svc.CreateSale(ctx, f.actor, in)
	require.NoError(t, err)
	assert.Nil(t, order.DueDate)
}

func TestCreateSaleValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	in := f.saleInput(models.OrderDelivered)
	in.Lines = nil
	_, err := f.svc.CreateSale(ctx, f.actor, in)
	assert.ErrorIs(t, err, ErrEmptySale)

	in = f.saleInput(models.OrderDelivered)
	in.Lines[0].Quantity = 0
	_, err = f.svc.CreateSale(ctx, f.actor, in)
	assert.ErrorIs(t, err, ErrBadQuantity)

	in = f.saleInput(models.OrderCancelled) // nadie nace cancelado
	_, err = f.svc.CreateSale(ctx, f.actor, in)
	assert.ErrorIs(t, err, ErrBadInitialState)

	unknown := uint(999)
	in = f.saleInput(models.OrderDelivered)
	in.CustomerID = &unknown
	_, err = f.svc.CreateSale(ctx, f.actor, in)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCancelOrderRestoresStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.svc.CreateSale(ctx, f.actor, f.saleInput(models.OrderPaid))
	require.NoError(t, err)
	require.Equal(t, 17, f.store.StockQuantity(branchID, f.martillo))

	cancelled, err := f.svc.CancelOrder(ctx, f.actor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.State)

	// devuelve exactamente lo descontado
	assert.Equal(t, 20, f.store.StockQuantity(branchID, f.martillo))
	assert.Equal(t, 100, f.store.StockQuantity(branchID, f.clavos))
}

func TestCancelTwiceIsRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.svc.CreateSale(ctx, f.actor, f.saleInput(models.OrderPending))
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, f.actor, order.ID)
	require.NoError(t, err)

	// rechazo explícito, no un no-op: y el stock no se restaura dos veces
	_, err = f.svc.CancelOrder(ctx, f.actor, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 20, f.store.StockQuantity(branchID, f.martillo))
}

func TestCancelDeliveredIsRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.svc.CreateSale(ctx, f.actor, f.saleInput(models.OrderDelivered))
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, f.actor, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	// la venta queda intacta
	assert.Equal(t, 17, f.store.StockQuantity(branchID, f.martillo))
}

func TestAdvanceOrderThroughFulfillment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.svc.CreateSale(ctx, f.actor, f.saleInput(models.OrderPaid))
	require.NoError(t, err)

	o, err := f.svc.AdvanceOrder(ctx, f.actor, order.ID, models.OrderInProcess)
	require.NoError(t, err)
	assert.Equal(t, models.OrderInProcess, o.State)

	o, err = f.svc.AdvanceOrder(ctx, f.actor, o.ID, models.OrderDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, o.State)

	// ENTREGADO es terminal
	_, err = f.svc.AdvanceOrder(ctx, f.actor, o.ID, models.OrderInProcess)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvanceOrderRejectsNonFulfillmentTargets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.svc.CreateSale(ctx, f.actor, f.saleInput(models.OrderPending))
	require.NoError(t, err)

	// pagar es del motor de abonos; cancelar tiene su propio camino
	_, err = f.svc.AdvanceOrder(ctx, f.actor, order.ID, models.OrderPaid)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.AdvanceOrder(ctx, f.actor, order.ID, models.OrderCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// y un PENDIENTE no puede saltar al flujo de entrega
	_, err = f.svc.AdvanceOrder(ctx, f.actor, order.ID, models.OrderInProcess)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelUnknownOrder(t *testing.T) {
	f := setup(t)
	_, err := f.svc.CancelOrder(context.Background(), f.actor, 404)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// Propiedad no-oversell: bajo cualquier intercalado de ventas concurrentes
// sobre el mismo (producto, sucursal), la suma de lo reservado con éxito
// nunca supera lo disponible al inicio.
func TestConcurrentSalesNeverOversell(t *testing.T) {
	f := setup(t)
	const available = 20 // sembrado en setup para martillo
	const attempts = 50

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := SaleInput{
				BranchID:      branchID,
				Channel:       ChannelCounter,
				InitialState:  models.OrderDelivered,
				PaymentMethod: "EFECTIVO",
				Lines:         []SaleLine{{ProductID: f.martillo, Quantity: 1}},
			}
			_, err := f.svc.CreateSale(context.Background(), f.actor, in)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var insuf *stock.InsufficientStockError
		require.ErrorAs(t, err, &insuf)
	}

	assert.Equal(t, available, succeeded)
	assert.Equal(t, 0, f.store.StockQuantity(branchID, f.martillo))
}
