package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carwash/internal/model"
	"carwash/internal/repository"
	"carwash/pkg/apperror"
	"carwash/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PostEntryRequest struct {
	EntryType     string          `json:"entry_type" binding:"required,oneof=Earning Advance Payout Correction"`
	Amount        decimal.Decimal `json:"amount"`
	AppointmentID *uuid.UUID      `json:"appointment_id"`
	PostingTime   *time.Time      `json:"posting_time"`
	Note          string          `json:"note"`
}

type BalanceResponse struct {
	WorkerID uuid.UUID       `json:"worker_id"`
	Balance  decimal.Decimal `json:"balance"`
}

type LedgerService interface {
	// SyncEarning keeps washer and cashier earnings of an appointment in
	// line with its payment, completion and services total.
	SyncEarning(ctx context.Context, appt *model.Appointment) error
	Balance(ctx context.Context, workerID uuid.UUID) (BalanceResponse, error)
	Post(ctx context.Context, workerID uuid.UUID, req PostEntryRequest, actor Actor) (*model.WorkerLedgerEntry, error)
	List(ctx context.Context, workerID uuid.UUID, p pagination.Params) ([]model.WorkerLedgerEntry, int64, error)
}

type ledgerService struct {
	carWashRepo repository.CarWashRepository
	workerRepo  repository.WorkerRepository
	ledgerRepo  repository.LedgerRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	now         func() time.Time
}

func NewLedgerService(
	carWashRepo repository.CarWashRepository,
	workerRepo repository.WorkerRepository,
	ledgerRepo repository.LedgerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	now func() time.Time,
) LedgerService {
	if now == nil {
		now = time.Now
	}
	return &ledgerService{
		carWashRepo: carWashRepo,
		workerRepo:  workerRepo,
		ledgerRepo:  ledgerRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		now:         now,
	}
}

// earning computes a payout from the car wash default and an optional
// personal override. Amounts are whole currency units.
func earning(servicesTotal decimal.Decimal, mode string, value int, w *model.Worker) decimal.Decimal {
	amount := decimal.NewFromInt(int64(value))
	if mode != model.EarningFixed {
		amount = servicesTotal.Mul(decimal.NewFromInt(int64(value))).Div(hundred)
	}
	if w != nil {
		switch w.EarningOverrideMode {
		case model.EarningPercent:
			amount = servicesTotal.Mul(w.EarningOverrideValue).Div(hundred)
		case model.EarningFixed:
			amount = w.EarningOverrideValue
		}
	}
	return amount.Round(0)
}

var hundred = decimal.NewFromInt(100)

func (s *ledgerService) SyncEarning(ctx context.Context, appt *model.Appointment) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.ledgerRepo.Earnings(txCtx, appt.ID)
		if err != nil {
			return fmt.Errorf("failed to load earnings: %w", err)
		}
		if appt.IsDeleted {
			for _, e := range existing {
				if err := s.ledgerRepo.Cancel(txCtx, e.ID); err != nil {
					return err
				}
			}
			return nil
		}

		ready := appt.PaymentStatus == model.PaymentPaid && appt.WorkEndedOn != nil && appt.WorkerID != nil
		settings, err := s.carWashRepo.Settings(txCtx, appt.CarWashID)
		if err != nil {
			return err
		}

		want := map[uuid.UUID]decimal.Decimal{}
		if appt.WorkerID != nil {
			washer, err := s.workerRepo.FindByID(txCtx, *appt.WorkerID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			want[*appt.WorkerID] = earning(appt.ServicesTotal, settings.WasherEarningMode, settings.WasherEarningValue, washer)
		}
		if appt.CreatedBy != nil {
			cashier, err := s.workerRepo.FindByUser(txCtx, appt.CarWashID, *appt.CreatedBy)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			// a washer who also took the order is paid once, as washer
			if cashier != nil {
				if _, taken := want[cashier.ID]; !taken {
					want[cashier.ID] = earning(appt.ServicesTotal, settings.CashierEarningMode, settings.CashierEarningValue, cashier)
				}
			}
		}

		current := map[uuid.UUID]model.WorkerLedgerEntry{}
		for _, e := range existing {
			amount, keep := want[e.WorkerID]
			_, dup := current[e.WorkerID]
			if ready && keep && !dup && amount.IsPositive() && e.Status == model.LedgerSubmitted && e.Amount.Equal(amount) {
				current[e.WorkerID] = e
				continue
			}
			if err := s.ledgerRepo.Cancel(txCtx, e.ID); err != nil {
				return fmt.Errorf("failed to cancel earning: %w", err)
			}
		}
		if !ready {
			return nil
		}

		for workerID, amount := range want {
			if _, ok := current[workerID]; ok || !amount.IsPositive() {
				continue
			}
			apptID := appt.ID
			entry := &model.WorkerLedgerEntry{
				WorkerID:      workerID,
				CarWashID:     appt.CarWashID,
				EntryType:     model.EntryEarning,
				Amount:        amount,
				AppointmentID: &apptID,
				Status:        model.LedgerSubmitted,
				PostingTime:   s.now(),
			}
			if err := s.ledgerRepo.Create(txCtx, entry); err != nil {
				return fmt.Errorf("failed to post earning: %w", err)
			}
		}
		return nil
	})
}

func (s *ledgerService) Balance(ctx context.Context, workerID uuid.UUID) (BalanceResponse, error) {
	if _, err := s.workerRepo.FindByID(ctx, workerID); err != nil {
		return BalanceResponse{}, notFound(err, "worker", workerID)
	}
	bal, err := s.ledgerRepo.Balance(ctx, workerID)
	if err != nil {
		return BalanceResponse{}, err
	}
	return BalanceResponse{WorkerID: workerID, Balance: bal}, nil
}

func (s *ledgerService) Post(ctx context.Context, workerID uuid.UUID, req PostEntryRequest, actor Actor) (*model.WorkerLedgerEntry, error) {
	if model.EntrySign(req.EntryType) == 0 {
		return nil, apperror.Validation("unknown ledger entry type %q", req.EntryType)
	}
	if req.EntryType == model.EntryCorrection {
		if req.Amount.IsZero() {
			return nil, apperror.Validation("correction amount must not be zero")
		}
	} else if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than zero")
	}
	if req.EntryType == model.EntryEarning && req.AppointmentID == nil {
		return nil, apperror.Validation("earning entries require an appointment")
	}

	var entry *model.WorkerLedgerEntry
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		w, err := s.workerRepo.FindByID(txCtx, workerID)
		if err != nil {
			return notFound(err, "worker", workerID)
		}

		appt := req.AppointmentID
		if req.EntryType != model.EntryEarning {
			appt = nil
		} else {
			existing, err := s.ledgerRepo.Earnings(txCtx, *appt)
			if err != nil {
				return err
			}
			for _, e := range existing {
				if e.WorkerID == workerID {
					return apperror.Validation("worker already has an earning for this appointment")
				}
			}
		}

		posting := s.now()
		if req.PostingTime != nil {
			posting = *req.PostingTime
		}
		entry = &model.WorkerLedgerEntry{
			WorkerID:      workerID,
			CarWashID:     w.CarWashID,
			EntryType:     req.EntryType,
			Amount:        req.Amount,
			AppointmentID: appt,
			Status:        model.LedgerSubmitted,
			PostingTime:   posting,
			Note:          req.Note,
		}
		if err := s.ledgerRepo.Create(txCtx, entry); err != nil {
			return fmt.Errorf("failed to post ledger entry: %w", err)
		}
		audit(txCtx, s.auditRepo, actor, model.ActionLedgerPost, entry.ID.String(), w.FullName, req)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *ledgerService) List(ctx context.Context, workerID uuid.UUID, p pagination.Params) ([]model.WorkerLedgerEntry, int64, error) {
	return s.ledgerRepo.List(ctx, workerID, p)
}
