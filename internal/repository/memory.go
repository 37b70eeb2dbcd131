package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"ferreteria-backend/internal/models"
)

// MemoryStore: implementación in-memory de los repositorios, usada por los
// tests de los servicios. La "transacción" es el lock de escritura global,
// lo que reproduce la serialización que dan los bloqueos de fila en Postgres.
type MemoryStore struct {
	mu          sync.RWMutex
	nextUserID  uint
	nextProdID  uint
	nextOrderID uint
	nextLineID  uint
	users       map[uint]models.User
	products    map[uint]models.Product
	stock       map[stockKey]int
	orders      map[uint]models.Order
}

type stockKey struct {
	branchID  uint
	productID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextUserID:  1,
		nextProdID:  1,
		nextOrderID: 1,
		nextLineID:  1,
		users:       make(map[uint]models.User),
		products:    make(map[uint]models.Product),
		stock:       make(map[stockKey]int),
		orders:      make(map[uint]models.Order),
	}
}

var (
	_ ProductRepository = (*MemoryStore)(nil)
	_ StockRepository   = (*MemoryStore)(nil)
	_ OrderRepository   = (*MemoryStore)(nil)
	_ UserRepository    = (*MemoryStore)(nil)
)

// Dentro de una transacción el lock global ya está tomado; los métodos lo
// detectan por contexto y no vuelven a bloquear.
type memTxKey struct{}

func inTx(ctx context.Context) bool {
	v, ok := ctx.Value(memTxKey{}).(bool)
	return ok && v
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.RLock()
	}
}

func (m *MemoryStore) runlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.RUnlock()
	}
}

func (m *MemoryStore) wlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.Lock()
	}
}

func (m *MemoryStore) wunlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.Unlock()
	}
}

// -------------------------
// Siembra para tests
// -------------------------

func (m *MemoryStore) AddUser(u models.User) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.nextUserID
	m.nextUserID++
	m.users[u.ID] = u
	return u.ID
}

func (m *MemoryStore) AddProduct(p models.Product) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextProdID
	m.nextProdID++
	m.products[p.ID] = p
	return p.ID
}

func (m *MemoryStore) PutStock(branchID, productID uint, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[stockKey{branchID, productID}] = quantity
}

func (m *MemoryStore) StockQuantity(branchID, productID uint) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stock[stockKey{branchID, productID}]
}

// -------------------------
// ProductRepository
// -------------------------

func (m *MemoryStore) GetByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make(map[uint]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// -------------------------
// StockRepository
// -------------------------

func (m *MemoryStore) LockForUpdate(ctx context.Context, branchID uint, productIDs []uint) ([]models.StockRecord, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	ids := append([]uint(nil), productIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]models.StockRecord, 0, len(ids))
	for _, id := range ids {
		if qty, ok := m.stock[stockKey{branchID, id}]; ok {
			out = append(out, models.StockRecord{BranchID: branchID, ProductID: id, Quantity: qty})
		}
	}
	return out, nil
}

func (m *MemoryStore) SetQuantity(ctx context.Context, branchID, productID uint, quantity int) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	key := stockKey{branchID, productID}
	if _, ok := m.stock[key]; !ok {
		return ErrNotFound
	}
	m.stock[key] = quantity
	return nil
}

// -------------------------
// OrderRepository
// -------------------------

func (m *MemoryStore) Create(ctx context.Context, o *models.Order) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	o.ID = m.nextOrderID
	m.nextOrderID++
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	for i := range o.Lines {
		o.Lines[i].ID = m.nextLineID
		m.nextLineID++
		o.Lines[i].OrderID = o.ID
	}
	m.orders[o.ID] = copyOrder(o)
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copyOrder(&o)
	return &cp, nil
}

func (m *MemoryStore) GetForUpdate(ctx context.Context, id uint) (*models.Order, error) {
	// el lock global de la transacción ya cubre el FOR UPDATE
	return m.GetByID(ctx, id)
}

func (m *MemoryStore) Update(ctx context.Context, o *models.Order) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.orders[o.ID]; !ok {
		return ErrNotFound
	}
	o.UpdatedAt = time.Now().UTC()
	m.orders[o.ID] = copyOrder(o)
	return nil
}

func (m *MemoryStore) LockPendingByCustomer(ctx context.Context, customerID uint) ([]*models.Order, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]*models.Order, 0)
	for id := range m.orders {
		o := m.orders[id]
		if o.State == models.OrderPending && o.CustomerID != nil && *o.CustomerID == customerID {
			cp := copyOrder(&o)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func copyOrder(o *models.Order) models.Order {
	cp := *o
	cp.Lines = append([]models.OrderLine(nil), o.Lines...)
	return cp
}

// -------------------------
// UserRepository
// -------------------------

func (m *MemoryStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u
	return &cp, nil
}

// -------------------------
// TxManager
// -------------------------

// MemoryTx emula la frontera transaccional con el lock de escritura global.
type MemoryTx struct {
	store *MemoryStore
}

func NewMemoryTx(store *MemoryStore) *MemoryTx {
	return &MemoryTx{store: store}
}

var _ TxManager = (*MemoryTx)(nil)

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, true))
}
