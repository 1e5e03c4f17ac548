package repository

import (
	"context"
	"time"

	"carwash/internal/model"
	"carwash/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows an audit listing; zero fields match everything.
type AuditFilter struct {
	EntityID string
	Action   string
	UserID   *uuid.UUID
	From     *time.Time
	To       *time.Time
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	// List pages matching audit entries, newest first.
	List(ctx context.Context, f AuditFilter, p pagination.Params) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, f AuditFilter, p pagination.Params) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.AuditLog{})
	if f.EntityID != "" {
		db = db.Where("entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		db = db.Where("action = ?", f.Action)
	}
	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}
	if f.From != nil {
		db = db.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("created_at < ?", *f.To)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at desc").Offset(p.Offset).Limit(p.Limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
