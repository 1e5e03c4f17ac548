package service

import (
	"context"
	"encoding/json"
	"time"

	"carwash/internal/model"
	"carwash/internal/repository"
	"carwash/pkg/apperror"
	"carwash/pkg/pagination"

	"github.com/google/uuid"
)

// AuditQuery is the caller-facing audit filter.
type AuditQuery struct {
	EntityID string     `form:"entity_id"`
	Action   string     `form:"action"`
	UserID   string     `form:"user_id"`
	From     *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type AuditLogEntry struct {
	ID         uuid.UUID       `json:"id"`
	User       string          `json:"user"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  time.Time       `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, q AuditQuery, p pagination.Params) ([]AuditLogEntry, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) GetAuditLogs(ctx context.Context, q AuditQuery, p pagination.Params) ([]AuditLogEntry, int64, error) {
	f := repository.AuditFilter{EntityID: q.EntityID, Action: q.Action, From: q.From, To: q.To}
	if f.Action != "" && !model.KnownAuditAction(f.Action) {
		return nil, 0, apperror.Validation("unknown audit action %q", f.Action)
	}
	if q.UserID != "" {
		id, err := uuid.Parse(q.UserID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid user_id %q", q.UserID)
		}
		f.UserID = &id
	}
	if f.From != nil && f.To != nil && !f.To.After(*f.From) {
		return nil, 0, apperror.Validation("end of range must be after its start")
	}

	logs, total, err := s.auditRepo.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	res := make([]AuditLogEntry, 0, len(logs))
	for _, l := range logs {
		user := "system"
		if l.UserID != nil {
			user = l.UserID.String()
		}
		res = append(res, AuditLogEntry{
			ID:         l.ID,
			User:       user,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    json.RawMessage(l.Details),
			CreatedAt:  l.CreatedAt,
		})
	}
	return res, total, nil
}
