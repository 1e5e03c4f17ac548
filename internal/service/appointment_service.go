package service

import (
	"context"
	"fmt"
	"time"

	"carwash/internal/discount"
	"carwash/internal/model"
	"carwash/internal/pricing"
	"carwash/internal/repository"
	"carwash/internal/webhook"
	"carwash/pkg/apperror"
	"carwash/pkg/logger"

	"github.com/google/uuid"
)

// EventPusher delivers appointment events to an external system.
type EventPusher interface {
	Push(event interface{})
}

type CreateAppointmentRequest struct {
	CarWashID         uuid.UUID                `json:"car_wash_id" binding:"required"`
	CustomerID        *uuid.UUID               `json:"customer_id"`
	CarID             uuid.UUID                `json:"car_id" binding:"required"`
	BoxID             *uuid.UUID               `json:"box_id"`
	WorkerID          *uuid.UUID               `json:"worker_id"`
	BookingID         *uuid.UUID               `json:"booking_id"`
	StartsOn          *time.Time               `json:"starts_on"`
	Services          []pricing.ServiceRequest `json:"services" binding:"required,min=1"`
	AllowCombinations *bool                    `json:"allow_combinations"`
}

type UpdateAppointmentRequest struct {
	BoxID    *uuid.UUID                `json:"box_id"`
	WorkerID *uuid.UUID                `json:"worker_id"`
	StartsOn *time.Time                `json:"starts_on"`
	EndsOn   *time.Time                `json:"ends_on"`
	Services *[]pricing.ServiceRequest `json:"services"`
}

type SetStatusRequest struct {
	State string `json:"state" binding:"required,oneof='In line' 'In progress' Finished Cancelled"`
}

type MarkPaidRequest struct {
	PaymentType string `json:"payment_type" binding:"required"`
}

type ToggleDiscountsRequest struct {
	UsageContext
	DiscountIDs  []uuid.UUID `json:"discount_ids" binding:"required,min=1"`
	EnableOthers bool        `json:"enable_others"`
}

type AppointmentService interface {
	Create(ctx context.Context, req CreateAppointmentRequest, actor Actor) (*model.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateAppointmentRequest, actor Actor) (*model.Appointment, error)
	SetStatus(ctx context.Context, id uuid.UUID, state string, actor Actor) (*model.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*model.Appointment, error)
	MarkPaid(ctx context.Context, id uuid.UUID, req MarkPaidRequest, actor Actor) (*model.Appointment, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor Actor) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	// ToggleDiscounts disables auto discount usages of an order and
	// re-totals the document they belong to.
	ToggleDiscounts(ctx context.Context, req ToggleDiscountsRequest, actor Actor) ([]model.AutoDiscountUsage, error)
}

type appointmentService struct {
	appointmentRepo repository.AppointmentRepository
	bookingRepo     repository.BookingRepository
	carWashRepo     repository.CarWashRepository
	workerRepo      repository.WorkerRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
	calculator      *pricing.Calculator
	discounts       DiscountService
	usage           DiscountUsageService
	stock           StockService
	ledger          LedgerService
	bookings        BookingService
	notifier        Notifier
	webhook         EventPusher
	now             func() time.Time
}

// AppointmentDeps groups the collaborators of the appointment service.
type AppointmentDeps struct {
	AppointmentRepo repository.AppointmentRepository
	BookingRepo     repository.BookingRepository
	CarWashRepo     repository.CarWashRepository
	WorkerRepo      repository.WorkerRepository
	AuditRepo       repository.AuditRepository
	TxManager       repository.TransactionManager
	Calculator      *pricing.Calculator
	Discounts       DiscountService
	Usage           DiscountUsageService
	Stock           StockService
	Ledger          LedgerService
	Bookings        BookingService
	Notifier        Notifier
	Webhook         EventPusher
	Now             func() time.Time
}

func NewAppointmentService(d AppointmentDeps) AppointmentService {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &appointmentService{
		appointmentRepo: d.AppointmentRepo,
		bookingRepo:     d.BookingRepo,
		carWashRepo:     d.CarWashRepo,
		workerRepo:      d.WorkerRepo,
		auditRepo:       d.AuditRepo,
		txManager:       d.TxManager,
		calculator:      d.Calculator,
		discounts:       d.Discounts,
		usage:           d.Usage,
		stock:           d.Stock,
		ledger:          d.Ledger,
		bookings:        d.Bookings,
		notifier:        notifierOrNoop(d.Notifier),
		webhook:         d.Webhook,
		now:             d.Now,
	}
}

func appointmentItems(lines []pricing.Line) []model.AppointmentItem {
	items := make([]model.AppointmentItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, model.AppointmentItem{
			ServiceID:   l.ServiceID,
			Price:       l.Price,
			Duration:    l.Duration,
			StaffReward: l.StaffReward,
			CustomPrice: l.CustomPrice,
		})
	}
	return items
}

func serviceRequests(items []model.AppointmentItem) []pricing.ServiceRequest {
	out := make([]pricing.ServiceRequest, 0, len(items))
	for _, it := range items {
		out = append(out, pricing.ServiceRequest{ServiceID: it.ServiceID, CustomPrice: it.CustomPrice})
	}
	return out
}

func usageContext(a *model.Appointment) UsageContext {
	return UsageContext{Type: model.ContextAppointment, ID: a.ID}
}

func (s *appointmentService) checkResources(ctx context.Context, a *model.Appointment) error {
	if a.BoxID != nil {
		boxes, err := s.carWashRepo.EnabledBoxes(ctx, a.CarWashID)
		if err != nil {
			return fmt.Errorf("failed to load boxes: %w", err)
		}
		found := false
		for _, id := range boxes {
			if id == *a.BoxID {
				found = true
				break
			}
		}
		if !found {
			return apperror.Validation("box %s is not available at this car wash", *a.BoxID)
		}
	}
	if a.WorkerID != nil {
		w, err := s.workerRepo.FindByID(ctx, *a.WorkerID)
		if err != nil {
			return notFound(err, "worker", *a.WorkerID)
		}
		if w.CarWashID != a.CarWashID || !w.IsActive {
			return apperror.Validation("worker %s does not work at this car wash", w.ID)
		}
	}
	return nil
}

// computeBase prices the services and stores the undiscounted totals.
func (s *appointmentService) computeBase(ctx context.Context, a *model.Appointment, services []pricing.ServiceRequest) (*pricing.Result, error) {
	if a.CarID == nil {
		return nil, apperror.Validation("appointment has no car")
	}
	priced, err := s.calculator.Calculate(ctx, pricing.Input{CarWashID: a.CarWashID, CarID: *a.CarID, Services: services})
	if err != nil {
		return nil, err
	}
	a.Items = appointmentItems(priced.Lines)
	a.BaseServicesTotal = priced.TotalPrice
	a.StaffRewardTotal = priced.StaffRewardTotal
	a.DurationTotal = priced.TotalDuration
	return priced, nil
}

func usageBase(a *model.Appointment) discount.Base {
	return discount.Base{ServicesTotal: a.BaseServicesTotal, Commission: a.BaseCommission}
}

// refreshUsage recomputes recorded usage rows against the current base.
func (s *appointmentService) refreshUsage(ctx context.Context, a *model.Appointment) error {
	_, err := s.usage.Refresh(ctx, usageContext(a), usageBase(a))
	return err
}

// applyUsage subtracts the enabled usage rows from the base.
func (s *appointmentService) applyUsage(ctx context.Context, a *model.Appointment) (discount.Totals, error) {
	return s.usage.ApplyToBase(ctx, usageContext(a), usageBase(a))
}

func setTotals(a *model.Appointment, t discount.Totals) {
	a.ServicesTotal = t.FinalServicesTotal
	a.Commission = t.FinalCommission
	a.AutoDiscountTotal = t.TotalDiscount
}

// save runs the totals pipeline, syncs stock and persists the appointment.
func (s *appointmentService) save(ctx context.Context, a *model.Appointment) error {
	if err := s.refreshUsage(ctx, a); err != nil {
		return err
	}
	totals, err := s.applyUsage(ctx, a)
	if err != nil {
		return err
	}
	setTotals(a, totals)
	if err := s.appointmentRepo.Update(ctx, a); err != nil {
		return fmt.Errorf("failed to save appointment: %w", err)
	}
	return s.stock.SyncForAppointment(ctx, a)
}

func (s *appointmentService) Create(ctx context.Context, req CreateAppointmentRequest, actor Actor) (*model.Appointment, error) {
	now := s.now()
	carID := req.CarID
	a := &model.Appointment{
		CarWashID:      req.CarWashID,
		CustomerID:     req.CustomerID,
		CarID:          &carID,
		BoxID:          req.BoxID,
		WorkerID:       req.WorkerID,
		BookingID:      req.BookingID,
		PaymentStatus:  model.PaymentNotPaid,
		WorkflowState:  model.StateInLine,
		CreatedBy:      actor.UserID,
		CreatedByAdmin: actor.IsAdmin,
	}
	a.ID = uuid.New()
	a.StartsOn = now
	if req.StartsOn != nil && !req.StartsOn.IsZero() {
		a.StartsOn = *req.StartsOn
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkResources(txCtx, a); err != nil {
			return err
		}
		if a.BookingID != nil {
			b, err := s.bookingRepo.FindByIDForUpdate(txCtx, *a.BookingID)
			if err != nil {
				return notFound(err, "booking", *a.BookingID)
			}
			if b.CarWashID != a.CarWashID {
				return apperror.Validation("booking #%d belongs to another car wash", b.Num)
			}
			a.BaseCommission = b.BaseCommission
			if a.CustomerID == nil {
				a.CustomerID = b.CustomerID
			}
		}

		priced, err := s.computeBase(txCtx, a, req.Services)
		if err != nil {
			return err
		}
		a.EndsOn = a.StartsOn.Add(time.Duration(a.DurationTotal) * time.Minute)

		var outcome discount.Outcome
		if a.BookingID != nil {
			// the booking's discounts carry over instead of being evaluated again
			if err := s.usage.Transfer(txCtx, UsageContext{Type: model.ContextBooking, ID: *a.BookingID}, usageContext(a)); err != nil {
				return err
			}
			if err := s.refreshUsage(txCtx, a); err != nil {
				return err
			}
			totals, err := s.applyUsage(txCtx, a)
			if err != nil {
				return err
			}
			setTotals(a, totals)
		} else {
			outcome, err = s.discounts.Evaluate(txCtx, EvaluateRequest{
				CarWashID:         a.CarWashID,
				CustomerID:        a.CustomerID,
				Services:          expandServiceIDs(req.Services),
				ServicesTotal:     a.BaseServicesTotal,
				Commission:        a.BaseCommission,
				At:                now,
				AllowCombinations: combinations(req.AllowCombinations),
			})
			if err != nil {
				return err
			}
			setTotals(a, discount.Totals{
				FinalServicesTotal: outcome.FinalServicesTotal,
				FinalCommission:    outcome.FinalCommission,
				TotalDiscount:      outcome.TotalDiscount,
			})
		}

		num, err := s.appointmentRepo.NextNum(txCtx, a.CarWashID, dayStart(now))
		if err != nil {
			return fmt.Errorf("failed to number appointment: %w", err)
		}
		a.Num = num
		if err := s.appointmentRepo.Create(txCtx, a); err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		if a.BookingID == nil {
			scope := discount.UsageScope{CarWashID: a.CarWashID, CustomerID: a.CustomerID, ContextType: model.ContextAppointment, ContextID: a.ID}
			if _, err := s.usage.Record(txCtx, scope, outcome); err != nil {
				return err
			}
		}
		if err := s.stock.SyncForAppointment(txCtx, a); err != nil {
			return err
		}
		if a.BookingID != nil {
			if err := s.bookings.LinkAppointment(txCtx, *a.BookingID, a.ID); err != nil {
				return err
			}
		}
		if len(priced.AppliedCustomPrices) > 0 {
			audit(txCtx, s.auditRepo, actor, model.ActionCustomPrice, a.ID.String(), fmt.Sprintf("#%d", a.Num), priced.AppliedCustomPrices)
		}
		audit(txCtx, s.auditRepo, actor, model.ActionCreateAppointment, a.ID.String(), fmt.Sprintf("#%d", a.Num), a.Totals)
		s.afterSave(txCtx, a, webhook.EventAppointmentCreated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// mutate loads an appointment under lock, applies fn and saves it.
func (s *appointmentService) mutate(ctx context.Context, id uuid.UUID, event string, fn func(txCtx context.Context, a *model.Appointment) error) (*model.Appointment, error) {
	var a *model.Appointment
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if a, err = s.appointmentRepo.FindByIDForUpdate(txCtx, id); err != nil {
			return notFound(err, "appointment", id)
		}
		if a.IsDeleted {
			return apperror.NotFound("appointment", id.String())
		}
		if err := fn(txCtx, a); err != nil {
			return err
		}
		if err := s.save(txCtx, a); err != nil {
			return err
		}
		s.afterSave(txCtx, a, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *appointmentService) Update(ctx context.Context, id uuid.UUID, req UpdateAppointmentRequest, actor Actor) (*model.Appointment, error) {
	return s.mutate(ctx, id, webhook.EventAppointmentUpdated, func(txCtx context.Context, a *model.Appointment) error {
		if a.WorkflowState == model.StateCancelled {
			return apperror.Validation("appointment #%d is cancelled", a.Num)
		}
		if req.BoxID != nil {
			a.BoxID = req.BoxID
		}
		if req.WorkerID != nil {
			a.WorkerID = req.WorkerID
		}
		if err := s.checkResources(txCtx, a); err != nil {
			return err
		}
		if req.StartsOn != nil {
			a.StartsOn = *req.StartsOn
		}
		services := serviceRequests(a.Items)
		if req.Services != nil {
			if len(*req.Services) == 0 {
				return apperror.Validation("at least one service is required")
			}
			services = *req.Services
		}
		priced, err := s.computeBase(txCtx, a, services)
		if err != nil {
			return err
		}
		if req.EndsOn != nil {
			a.EndsOn = *req.EndsOn
		} else {
			a.EndsOn = a.StartsOn.Add(time.Duration(a.DurationTotal) * time.Minute)
		}
		if req.Services != nil && len(priced.AppliedCustomPrices) > 0 {
			audit(txCtx, s.auditRepo, actor, model.ActionCustomPrice, a.ID.String(), fmt.Sprintf("#%d", a.Num), priced.AppliedCustomPrices)
		}
		audit(txCtx, s.auditRepo, actor, model.ActionUpdateAppointment, a.ID.String(), fmt.Sprintf("#%d", a.Num), req)
		return nil
	})
}

func (s *appointmentService) SetStatus(ctx context.Context, id uuid.UUID, state string, actor Actor) (*model.Appointment, error) {
	return s.mutate(ctx, id, webhook.EventAppointmentUpdated, func(txCtx context.Context, a *model.Appointment) error {
		if a.WorkflowState == model.StateCancelled && state != model.StateCancelled {
			return apperror.Validation("appointment #%d is cancelled", a.Num)
		}
		now := s.now()
		switch state {
		case model.StateInLine:
		case model.StateInProgress:
			if a.WorkStartedOn == nil {
				a.WorkStartedOn = &now
			}
		case model.StateFinished:
			if a.WorkStartedOn == nil {
				a.WorkStartedOn = &now
			}
			a.WorkEndedOn = &now
		case model.StateCancelled:
			// released discounts no longer count against usage limits
			if err := s.usage.DeleteForContext(txCtx, usageContext(a)); err != nil {
				return err
			}
		default:
			return apperror.Validation("unknown workflow state %q", state)
		}
		a.WorkflowState = state
		audit(txCtx, s.auditRepo, actor, model.ActionUpdateAppointment, a.ID.String(), fmt.Sprintf("#%d", a.Num), map[string]string{"workflow_state": state})
		return nil
	})
}

func (s *appointmentService) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*model.Appointment, error) {
	return s.SetStatus(ctx, id, model.StateCancelled, actor)
}

func (s *appointmentService) MarkPaid(ctx context.Context, id uuid.UUID, req MarkPaidRequest, actor Actor) (*model.Appointment, error) {
	return s.mutate(ctx, id, webhook.EventAppointmentUpdated, func(txCtx context.Context, a *model.Appointment) error {
		if a.PaymentStatus == model.PaymentPaid {
			return apperror.Validation("appointment #%d is already paid", a.Num)
		}
		now := s.now()
		a.PaymentStatus = model.PaymentPaid
		a.PaymentType = req.PaymentType
		a.PaymentReceivedOn = &now
		audit(txCtx, s.auditRepo, actor, model.ActionPayAppointment, a.ID.String(), fmt.Sprintf("#%d", a.Num), req)
		return nil
	})
}

func (s *appointmentService) SoftDelete(ctx context.Context, id uuid.UUID, actor Actor) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.appointmentRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, "appointment", id)
		}
		if a.IsDeleted {
			return nil
		}
		a.IsDeleted = true
		if err := s.appointmentRepo.Update(txCtx, a); err != nil {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}
		if err := s.stock.CancelForAppointment(txCtx, a.ID); err != nil {
			return err
		}
		if err := s.usage.DeleteForContext(txCtx, usageContext(a)); err != nil {
			return err
		}
		audit(txCtx, s.auditRepo, actor, model.ActionDeleteAppointment, a.ID.String(), fmt.Sprintf("#%d", a.Num), nil)
		s.afterSave(txCtx, a, webhook.EventAppointmentDeleted)
		return nil
	})
}

func (s *appointmentService) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.appointmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "appointment", id)
	}
	return a, nil
}

func (s *appointmentService) ToggleDiscounts(ctx context.Context, req ToggleDiscountsRequest, actor Actor) ([]model.AutoDiscountUsage, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.usage.SetDisabled(txCtx, req.UsageContext, req.DiscountIDs, req.EnableOthers); err != nil {
			return err
		}
		switch req.Type {
		case model.ContextAppointment:
			a, err := s.appointmentRepo.FindByIDForUpdate(txCtx, req.ID)
			if err != nil {
				return notFound(err, "appointment", req.ID)
			}
			if err := s.save(txCtx, a); err != nil {
				return err
			}
			s.afterSave(txCtx, a, webhook.EventAppointmentUpdated)
		case model.ContextBooking:
			b, err := s.bookingRepo.FindByIDForUpdate(txCtx, req.ID)
			if err != nil {
				return notFound(err, "booking", req.ID)
			}
			t, err := s.usage.ApplyToBase(txCtx, req.UsageContext, discount.Base{ServicesTotal: b.BaseServicesTotal, Commission: b.BaseCommission})
			if err != nil {
				return err
			}
			b.ServicesTotal = t.FinalServicesTotal
			b.Commission = t.FinalCommission
			b.AutoDiscountTotal = t.TotalDiscount
			if err := s.bookingRepo.Update(txCtx, b); err != nil {
				return fmt.Errorf("failed to update booking: %w", err)
			}
		}
		audit(txCtx, s.auditRepo, actor, model.ActionToggleDiscount, req.ID.String(), req.Type, req)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.usage.List(ctx, req.UsageContext)
}

// afterSave queues the post-commit side effects of an appointment write.
// Each one is independent; failures are logged and never reach the caller.
func (s *appointmentService) afterSave(txCtx context.Context, a *model.Appointment, event string) {
	snapshot := *a
	repository.AfterCommit(txCtx, func(ctx context.Context) {
		if err := s.ledger.SyncEarning(ctx, &snapshot); err != nil {
			logger.Errorf("failed to sync earnings of appointment %s: %v", snapshot.ID, err)
		}
	})
	if snapshot.BookingID != nil && s.bookings != nil {
		state := snapshot.WorkflowState
		if snapshot.IsDeleted {
			state = model.StateCancelled
		}
		repository.AfterCommit(txCtx, func(ctx context.Context) {
			if err := s.bookings.SyncStatus(ctx, *snapshot.BookingID, state); err != nil {
				logger.Warnf("failed to propagate status to booking %s: %v", snapshot.BookingID, err)
			}
		})
	}
	if s.webhook != nil {
		repository.AfterCommit(txCtx, func(ctx context.Context) {
			s.webhook.Push(webhook.AppointmentEvent{
				Event:         event,
				ID:            snapshot.ID,
				CarWash:       snapshot.CarWashID,
				Customer:      snapshot.CustomerID,
				Status:        snapshot.WorkflowState,
				StartsOn:      snapshot.StartsOn,
				EndsOn:        snapshot.EndsOn,
				Booking:       snapshot.BookingID,
				Box:           snapshot.BoxID,
				PaymentStatus: snapshot.PaymentStatus,
				TS:            s.now().Unix(),
			})
		})
	}
	repository.AfterCommit(txCtx, func(ctx context.Context) {
		s.notifier.Publish(snapshot.CarWashID, EventAppointmentChanged, map[string]interface{}{
			"id":     snapshot.ID,
			"event":  event,
			"status": snapshot.WorkflowState,
		})
		s.notifier.Publish(snapshot.CarWashID, EventAvailabilityChanged, nil)
	})
}
