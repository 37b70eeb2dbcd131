package repository

import (
	"context"
	"errors"

	"ferreteria-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implementa todos los repositorios sobre GORM/Postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var (
	_ TxManager         = (*GormStore)(nil)
	_ ProductRepository = (*GormStore)(nil)
	_ StockRepository   = (*GormStore)(nil)
	_ OrderRepository   = (*GormStore)(nil)
	_ UserRepository    = (*GormStore)(nil)
)

// La transacción viaja en el contexto para que los métodos del repositorio
// participen en ella sin cambiar de firma.
type gormTxKey struct{}

func (s *GormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, gormTxKey{}, tx))
	})
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

// -------------------------
// Productos
// -------------------------

func (s *GormStore) GetByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	var products []models.Product
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// -------------------------
// Stock
// -------------------------

func (s *GormStore) LockForUpdate(ctx context.Context, branchID uint, productIDs []uint) ([]models.StockRecord, error) {
	var recs []models.StockRecord
	// ORDER BY product_id + FOR UPDATE: Postgres adquiere los bloqueos de
	// fila en el orden del resultado, que es el orden canónico.
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("branch_id = ? AND product_id IN ?", branchID, productIDs).
		Order("product_id asc").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *GormStore) SetQuantity(ctx context.Context, branchID, productID uint, quantity int) error {
	res := s.conn(ctx).
		Model(&models.StockRecord{}).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// -------------------------
// Pedidos
// -------------------------

func (s *GormStore) Create(ctx context.Context, o *models.Order) error {
	return s.conn(ctx).Create(o).Error
}

func (s *GormStore) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := s.conn(ctx).Preload("Lines").First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (s *GormStore) GetForUpdate(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// Las líneas no necesitan bloqueo propio: nunca se mutan después de crear.
	if err := s.conn(ctx).Where("order_id = ?", id).Find(&o.Lines).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *GormStore) Update(ctx context.Context, o *models.Order) error {
	return s.conn(ctx).Omit(clause.Associations).Save(o).Error
}

func (s *GormStore) LockPendingByCustomer(ctx context.Context, customerID uint) ([]*models.Order, error) {
	var orders []models.Order
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND state = ?", customerID, models.OrderPending).
		Order("created_at asc, id asc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.Order, len(orders))
	for i := range orders {
		out[i] = &orders[i]
	}
	return out, nil
}

// -------------------------
// Usuarios
// -------------------------

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
