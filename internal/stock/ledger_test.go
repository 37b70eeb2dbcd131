package stock

import (
	"context"
	"testing"

	"ferreteria-backend/internal/models"
	"ferreteria-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const branchID = uint(1)

func setup(t *testing.T) (*repository.MemoryStore, *repository.MemoryTx, *Ledger) {
	t.Helper()
	store := repository.NewMemoryStore()
	tx := repository.NewMemoryTx(store)
	return store, tx, NewLedger(store, store)
}

func seedProduct(store *repository.MemoryStore, name string, qty int) uint {
	id := store.AddProduct(models.Product{Name: name, SKU: name, Price: decimal.NewFromInt(10)})
	store.PutStock(branchID, id, qty)
	return id
}

func reserve(tx *repository.MemoryTx, l *Ledger, lines []Line) error {
	return tx.WithTransaction(context.Background(), func(ctx context.Context) error {
		return l.Reserve(ctx, branchID, lines)
	})
}

func restore(tx *repository.MemoryTx, l *Ledger, lines []Line) error {
	return tx.WithTransaction(context.Background(), func(ctx context.Context) error {
		return l.Restore(ctx, branchID, lines)
	})
}

func TestReserveDecrementsAllLines(t *testing.T) {
	store, tx, ledger := setup(t)
	martillo := seedProduct(store, "Martillo", 10)
	clavos := seedProduct(store, "Clavos", 100)

	err := reserve(tx, ledger, []Line{
		{ProductID: martillo, Quantity: 2},
		{ProductID: clavos, Quantity: 30},
	})
	require.NoError(t, err)

	assert.Equal(t, 8, store.StockQuantity(branchID, martillo))
	assert.Equal(t, 70, store.StockQuantity(branchID, clavos))
}

func TestReserveInsufficientLeavesEverythingUntouched(t *testing.T) {
	store, tx, ledger := setup(t)
	martillo := seedProduct(store, "Martillo", 10)
	clavos := seedProduct(store, "Clavos", 5)

	err := reserve(tx, ledger, []Line{
		{ProductID: martillo, Quantity: 2},
		{ProductID: clavos, Quantity: 6}, // más de lo que hay
	})

	var insuf *InsufficientStockError
	require.ErrorAs(t, err, &insuf)
	assert.Equal(t, clavos, insuf.ProductID)
	assert.Equal(t, "Clavos", insuf.Name)

	// ninguna línea se descontó, ni siquiera la que sí alcanzaba
	assert.Equal(t, 10, store.StockQuantity(branchID, martillo))
	assert.Equal(t, 5, store.StockQuantity(branchID, clavos))
}

func TestReserveUnknownProductFails(t *testing.T) {
	store, tx, ledger := setup(t)
	martillo := seedProduct(store, "Martillo", 10)

	err := reserve(tx, ledger, []Line{
		{ProductID: martillo, Quantity: 1},
		{ProductID: 999, Quantity: 1},
	})

	var insuf *InsufficientStockError
	require.ErrorAs(t, err, &insuf)
	assert.Equal(t, 10, store.StockQuantity(branchID, martillo))
}

func TestReserveMergesDuplicatedLines(t *testing.T) {
	store, tx, ledger := setup(t)
	martillo := seedProduct(store, "Martillo", 5)

	// 3 + 3 del mismo producto contra 5 disponibles: validar cada línea
	// por separado pasaría y dejaría la cantidad en negativo
	err := reserve(tx, ledger, []Line{
		{ProductID: martillo, Quantity: 3},
		{ProductID: martillo, Quantity: 3},
	})

	var insuf *InsufficientStockError
	require.ErrorAs(t, err, &insuf)
	assert.Equal(t, 5, store.StockQuantity(branchID, martillo))

	// 2 + 3 sí cabe
	require.NoError(t, reserve(tx, ledger, []Line{
		{ProductID: martillo, Quantity: 2},
		{ProductID: martillo, Quantity: 3},
	}))
	assert.Equal(t, 0, store.StockQuantity(branchID, martillo))
}

func TestRestoreReturnsExactQuantities(t *testing.T) {
	store, tx, ledger := setup(t)
	martillo := seedProduct(store, "Martillo", 10)
	clavos := seedProduct(store, "Clavos", 50)

	lines := []Line{
		{ProductID: martillo, Quantity: 4},
		{ProductID: clavos, Quantity: 20},
	}
	require.NoError(t, reserve(tx, ledger, lines))
	require.NoError(t, restore(tx, ledger, lines))

	assert.Equal(t, 10, store.StockQuantity(branchID, martillo))
	assert.Equal(t, 50, store.StockQuantity(branchID, clavos))
}

func TestQuantityNeverGoesNegative(t *testing.T) {
	store, tx, ledger := setup(t)
	martillo := seedProduct(store, "Martillo", 3)

	for i := 0; i < 10; i++ {
		_ = reserve(tx, ledger, []Line{{ProductID: martillo, Quantity: 2}})
		require.GreaterOrEqual(t, store.StockQuantity(branchID, martillo), 0)
	}
	// 3 disponibles, reservas de 2: sólo la primera puede entrar
	assert.Equal(t, 1, store.StockQuantity(branchID, martillo))
}
