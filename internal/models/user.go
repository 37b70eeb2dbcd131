package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleManager  UserRole = "GERENTE"
	RoleSeller   UserRole = "VENDEDOR"
	RoleCustomer UserRole = "CLIENTE"
)

// IsStaff indica si el rol puede operar el mostrador y el panel.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleSeller
}

type User struct {
	ID           uint `gorm:"primaryKey"`
	BranchID     *uint
	Branch       *Branch
	Name         string   `gorm:"size:150;not null"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:10;not null"`

	// Condiciones de crédito del cliente. La deuda corriente nunca se
	// materializa: se deriva de sus pedidos PENDIENTE al momento de leerla.
	CreditLimit    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	CreditTermDays int             `gorm:"not null;default:0"` // días de plazo

	CreatedAt time.Time
	UpdatedAt time.Time
}
