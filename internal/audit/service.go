package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"ferreteria-backend/internal/models"

	"gorm.io/gorm"
)

// Actor: quién ejecuta una mutación. Se pasa explícito en cada llamada
// mutadora del núcleo; no hay "usuario actual" ambiente.
type Actor struct {
	UserID   uint
	Name     string
	BranchID *uint
}

type Entry struct {
	Actor       Actor
	BranchID    *uint
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Recorder registra una mutación ya confirmada. Los servicios lo llaman
// después del commit (fire-and-forget: un fallo del log nunca revierte
// la operación de negocio).
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

var _ Recorder = (*Service)(nil)

func (s *Service) Record(ctx context.Context, e Entry) error {
	// jsonb de Postgres necesita "null" literal, no string vacío
	beforeStr := "null"
	afterStr := "null"

	if e.Before != nil {
		if b, err := json.Marshal(e.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if e.After != nil {
		if b, err := json.Marshal(e.After); err == nil {
			afterStr = string(b)
		}
	}

	branchID := e.BranchID
	if branchID == nil {
		branchID = e.Actor.BranchID
	}

	entry := models.AuditLog{
		BranchID:    branchID,
		UserID:      e.Actor.UserID,
		UserName:    e.Actor.Name,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("no se pudo guardar el audit log: %w", err)
	}
	return nil
}

// Nop descarta las entradas; lo usan los tests de los servicios.
type Nop struct{}

func (Nop) Record(ctx context.Context, e Entry) error { return nil }
