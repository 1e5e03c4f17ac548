package service

import (
	"context"
	"fmt"
	"time"

	"carwash/internal/discount"
	"carwash/internal/model"
	"carwash/internal/pricing"
	"carwash/internal/repository"
	"carwash/pkg/apperror"
	"carwash/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	CarWashID         uuid.UUID                `json:"car_wash_id" binding:"required"`
	CustomerID        *uuid.UUID               `json:"customer_id"`
	CarID             uuid.UUID                `json:"car_id" binding:"required"`
	DesiredTime       *time.Time               `json:"desired_time"`
	Services          []pricing.ServiceRequest `json:"services" binding:"required,min=1"`
	PromoCode         string                   `json:"promo_code"`
	IsTimeBooking     bool                     `json:"is_time_booking"`
	AllowCombinations *bool                    `json:"allow_combinations"`
}

type UpdateBookingRequest struct {
	DesiredTime   *time.Time                `json:"desired_time"`
	Services      *[]pricing.ServiceRequest `json:"services"`
	AppointmentID *uuid.UUID                `json:"appointment_id"`
}

// QueueSummary is broadcast whenever the queue of a car wash changes.
type QueueSummary struct {
	Queued int `json:"queued"`
}

type BookingService interface {
	Create(ctx context.Context, req CreateBookingRequest, actor Actor) (*model.Booking, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateBookingRequest, actor Actor) (*model.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*model.Booking, error)
	Delete(ctx context.Context, id uuid.UUID, actor Actor) error
	Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// LinkAppointment marks a booking as served by an appointment.
	LinkAppointment(ctx context.Context, bookingID, appointmentID uuid.UUID) error
	// SyncStatus copies an appointment workflow state onto its booking.
	SyncStatus(ctx context.Context, bookingID uuid.UUID, state string) error
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	calculator  *pricing.Calculator
	quotes      QuoteService
	usage       DiscountUsageService
	promos      PromoService
	notifier    Notifier
	now         func() time.Time
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	calculator *pricing.Calculator,
	quotes QuoteService,
	usage DiscountUsageService,
	promos PromoService,
	notifier Notifier,
	now func() time.Time,
) BookingService {
	if now == nil {
		now = time.Now
	}
	return &bookingService{
		bookingRepo: bookingRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		calculator:  calculator,
		quotes:      quotes,
		usage:       usage,
		promos:      promos,
		notifier:    notifierOrNoop(notifier),
		now:         now,
	}
}

func bookingItems(lines []pricing.Line) []model.BookingItem {
	items := make([]model.BookingItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, model.BookingItem{
			ServiceID:   l.ServiceID,
			Price:       l.Price,
			Duration:    l.Duration,
			StaffReward: l.StaffReward,
			CustomPrice: l.CustomPrice,
		})
	}
	return items
}

func (s *bookingService) Create(ctx context.Context, req CreateBookingRequest, actor Actor) (*model.Booking, error) {
	at := s.now()
	q, err := s.quotes.Quote(ctx, QuoteRequest{
		CarWashID:         req.CarWashID,
		CarID:             req.CarID,
		CustomerID:        req.CustomerID,
		Services:          req.Services,
		PromoCode:         req.PromoCode,
		IsTimeBooking:     req.IsTimeBooking,
		AllowCombinations: req.AllowCombinations,
		At:                at,
	}, actor)
	if err != nil {
		return nil, err
	}
	if req.PromoCode != "" && (q.Promo == nil || !q.Promo.Valid) {
		msg := "promo code is not valid"
		if q.Promo != nil {
			msg = q.Promo.Message
		}
		return nil, apperror.Validation("%s", msg)
	}

	carID := req.CarID
	b := &model.Booking{
		CarWashID:      req.CarWashID,
		CustomerID:     req.CustomerID,
		CarID:          &carID,
		DesiredTime:    req.DesiredTime,
		Status:         model.StateInLine,
		IsTimeBooking:  req.IsTimeBooking,
		CreatedBy:      actor.UserID,
		CreatedByAdmin: actor.IsAdmin,
		Items:          bookingItems(q.Pricing.Lines),
	}
	b.ID = uuid.New()
	b.BaseServicesTotal = q.BaseServicesTotal
	b.BaseCommission = q.BaseCommission
	b.StaffRewardTotal = q.Pricing.StaffRewardTotal
	b.DurationTotal = q.Pricing.TotalDuration
	b.ServicesTotal = q.AutoDiscounts.FinalServicesTotal
	b.Commission = q.AutoDiscounts.FinalCommission
	b.AutoDiscountTotal = q.AutoDiscounts.TotalDiscount
	if q.Promo != nil && q.Promo.Valid {
		b.PromoCode = q.Promo.Code
		b.PromoDiscount = q.Promo.TotalDiscount
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		num, err := s.bookingRepo.NextNum(txCtx, b.CarWashID, dayStart(at))
		if err != nil {
			return fmt.Errorf("failed to number booking: %w", err)
		}
		b.Num = num
		if err := s.bookingRepo.Create(txCtx, b); err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		uc := UsageContext{Type: model.ContextBooking, ID: b.ID}
		scope := discount.UsageScope{CarWashID: b.CarWashID, CustomerID: b.CustomerID, ContextType: uc.Type, ContextID: uc.ID}
		if _, err := s.usage.Record(txCtx, scope, q.AutoDiscounts); err != nil {
			return err
		}
		if b.PromoCode != "" {
			_, promo, err := s.promos.Apply(txCtx, b.CarWashID, b.PromoCode, discount.Order{
				Services:      expandServiceIDs(req.Services),
				ServicesTotal: q.AutoDiscounts.FinalServicesTotal,
				At:            at,
			}, discount.PromoContext{Commission: q.AutoDiscounts.FinalCommission, IsTimeBooking: b.IsTimeBooking, CreatedByAdmin: b.CreatedByAdmin})
			if err != nil {
				return err
			}
			if promo == nil {
				return apperror.Validation("promo code is no longer valid")
			}
			if err := s.promos.Record(txCtx, promo, *q.Promo, uc, actor); err != nil {
				return err
			}
		}

		audit(txCtx, s.auditRepo, actor, model.ActionCreateBooking, b.ID.String(), fmt.Sprintf("#%d", b.Num), q)
		repository.AfterCommit(txCtx, func(ctx context.Context) { s.publishQueue(ctx, b.CarWashID) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// recalculate runs the totals pipeline for a booking whose base changed.
func (s *bookingService) recalculate(ctx context.Context, b *model.Booking, services []pricing.ServiceRequest) error {
	if b.CarID == nil {
		return apperror.Validation("booking has no car")
	}
	priced, err := s.calculator.Calculate(ctx, pricing.Input{CarWashID: b.CarWashID, CarID: *b.CarID, Services: services})
	if err != nil {
		return err
	}
	b.Items = bookingItems(priced.Lines)
	b.BaseServicesTotal = priced.TotalPrice
	b.StaffRewardTotal = priced.StaffRewardTotal
	b.DurationTotal = priced.TotalDuration

	uc := UsageContext{Type: model.ContextBooking, ID: b.ID}
	base := discount.Base{ServicesTotal: b.BaseServicesTotal, Commission: b.BaseCommission}
	if _, err := s.usage.Refresh(ctx, uc, base); err != nil {
		return err
	}
	totals, err := s.usage.ApplyToBase(ctx, uc, base)
	if err != nil {
		return err
	}
	b.ServicesTotal = totals.FinalServicesTotal
	b.Commission = totals.FinalCommission
	b.AutoDiscountTotal = totals.TotalDiscount

	if b.PromoCode == "" {
		return nil
	}
	res, err := s.promos.Reprice(ctx, b.CarWashID, b.PromoCode, discount.Order{
		Services:      expandServiceIDs(services),
		ServicesTotal: b.ServicesTotal,
		At:            s.now(),
	}, discount.PromoContext{Commission: b.Commission, IsTimeBooking: b.IsTimeBooking, CreatedByAdmin: b.CreatedByAdmin}, uc)
	if err != nil {
		return err
	}
	b.PromoDiscount = decimal.Zero
	if res.Valid {
		b.PromoDiscount = res.TotalDiscount
	}
	return nil
}

func (s *bookingService) Update(ctx context.Context, id uuid.UUID, req UpdateBookingRequest, actor Actor) (*model.Booking, error) {
	var b *model.Booking
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if b, err = s.bookingRepo.FindByIDForUpdate(txCtx, id); err != nil {
			return notFound(err, "booking", id)
		}
		if b.IsDeleted || b.IsCancelled {
			return apperror.Validation("booking #%d is closed", b.Num)
		}
		if req.DesiredTime != nil {
			b.DesiredTime = req.DesiredTime
		}
		if req.Services != nil {
			if len(*req.Services) == 0 {
				return apperror.Validation("at least one service is required")
			}
			if err := s.recalculate(txCtx, b, *req.Services); err != nil {
				return err
			}
		}
		linked := false
		if req.AppointmentID != nil && !b.HasAppointment {
			b.HasAppointment = true
			b.AppointmentID = req.AppointmentID
			linked = true
		}
		if err := s.bookingRepo.Update(txCtx, b); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		if linked || req.DesiredTime != nil {
			repository.AfterCommit(txCtx, func(ctx context.Context) { s.publishQueue(ctx, b.CarWashID) })
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *bookingService) close(ctx context.Context, id uuid.UUID, actor Actor, deleted bool) (*model.Booking, error) {
	var b *model.Booking
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if b, err = s.bookingRepo.FindByIDForUpdate(txCtx, id); err != nil {
			return notFound(err, "booking", id)
		}
		if deleted {
			b.IsDeleted = true
		} else {
			if b.IsCancelled {
				return nil
			}
			b.IsCancelled = true
			b.Status = model.StateCancelled
		}
		if err := s.bookingRepo.Update(txCtx, b); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		// released discounts no longer count against usage limits
		if err := s.usage.DeleteForContext(txCtx, UsageContext{Type: model.ContextBooking, ID: b.ID}); err != nil {
			return err
		}
		audit(txCtx, s.auditRepo, actor, model.ActionCancelBooking, b.ID.String(), fmt.Sprintf("#%d", b.Num), map[string]bool{"deleted": deleted})
		repository.AfterCommit(txCtx, func(ctx context.Context) { s.publishQueue(ctx, b.CarWashID) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *bookingService) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*model.Booking, error) {
	return s.close(ctx, id, actor, false)
}

func (s *bookingService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	_, err := s.close(ctx, id, actor, true)
	return err
}

func (s *bookingService) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

func (s *bookingService) LinkAppointment(ctx context.Context, bookingID, appointmentID uuid.UUID) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookingRepo.FindByIDForUpdate(txCtx, bookingID)
		if err != nil {
			return notFound(err, "booking", bookingID)
		}
		if b.HasAppointment {
			if b.AppointmentID != nil && *b.AppointmentID == appointmentID {
				return nil
			}
			return apperror.Validation("booking #%d already has an appointment", b.Num)
		}
		if b.IsCancelled || b.IsDeleted {
			return apperror.Validation("booking #%d is closed", b.Num)
		}
		b.HasAppointment = true
		b.AppointmentID = &appointmentID
		if err := s.bookingRepo.Update(txCtx, b); err != nil {
			return fmt.Errorf("failed to link booking: %w", err)
		}
		repository.AfterCommit(txCtx, func(ctx context.Context) { s.publishQueue(ctx, b.CarWashID) })
		return nil
	})
}

func (s *bookingService) SyncStatus(ctx context.Context, bookingID uuid.UUID, state string) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookingRepo.FindByIDForUpdate(txCtx, bookingID)
		if err != nil {
			return notFound(err, "booking", bookingID)
		}
		if b.Status == state {
			return nil
		}
		b.Status = state
		return s.bookingRepo.Update(txCtx, b)
	})
}

func (s *bookingService) publishQueue(ctx context.Context, carWashID uuid.UUID) {
	queued, err := s.bookingRepo.Queued(ctx, carWashID)
	if err != nil {
		logger.Warnf("failed to recount queue of %s: %v", carWashID, err)
		return
	}
	s.notifier.Publish(carWashID, EventQueueChanged, QueueSummary{Queued: len(queued)})
	s.notifier.Publish(carWashID, EventAvailabilityChanged, nil)
}
