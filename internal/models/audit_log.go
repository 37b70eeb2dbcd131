package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionCancel AuditAction = "cancel"
	AuditActionAbono  AuditAction = "abono"
)

// AuditLog: bitácora append-only de mutaciones. Nunca se edita ni se borra;
// las reversiones del negocio son transiciones de estado, no undo del log.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	BranchID *uint `json:"branch_id"`

	// Actor explícito: quién ejecutó la mutación.
	UserID   uint   `json:"user_id"`
	UserName string `gorm:"size:150" json:"user_name"` // nombre denormalizado

	// Qué entidad se tocó (ej: "order", "stock_record", "product")
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// Estado anterior y posterior (JSON)
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}
