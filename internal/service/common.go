package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"carwash/internal/model"
	"carwash/internal/repository"
	"carwash/pkg/apperror"
	"carwash/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the authenticated caller of a write.
type Actor struct {
	UserID  *uuid.UUID
	IsAdmin bool
}

// Notifier receives live events for a car wash.
type Notifier interface {
	Publish(carWashID uuid.UUID, event string, data interface{})
}

// Live event names
const (
	EventAvailabilityChanged = "availability_changed"
	EventQueueChanged        = "queue_changed"
	EventAppointmentChanged  = "appointment_changed"
)

type noopNotifier struct{}

func (noopNotifier) Publish(uuid.UUID, string, interface{}) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// notFound maps gorm's missing-row error to NotFoundError.
func notFound(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(entity, id.String())
	}
	return err
}

// dayStart is midnight of t in t's location.
func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// audit writes a best-effort audit row once the caller's transaction commits.
// Nothing is written for a rolled back change.
func audit(ctx context.Context, repo repository.AuditRepository, actor Actor, action, entityID, entityName string, details interface{}) {
	if repo == nil {
		return
	}
	raw, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:     actor.UserID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    raw,
	}
	repository.AfterCommit(ctx, func(ctx context.Context) {
		if err := repo.Log(ctx, entry); err != nil {
			logger.Warnf("failed to write audit log %s %s: %v", action, entityID, err)
		}
	})
}

// combinations reads an optional allow-combinations flag. Compatible
// discounts stack unless the caller opts out.
func combinations(allow *bool) bool {
	return allow == nil || *allow
}
