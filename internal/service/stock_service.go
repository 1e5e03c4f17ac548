package service

import (
	"context"
	"fmt"
	"sort"

	"carwash/internal/model"
	"carwash/internal/repository"
	"carwash/pkg/apperror"
	"carwash/pkg/pagination"

	"github.com/google/uuid"
)

type ReceiveStockRequest struct {
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Note     string `json:"note"`
}

type StockService interface {
	// SyncForAppointment moves stock so the appointment's net issue matches
	// its current services; inactive appointments hold nothing. Shortage
	// fails with CapacityExceededError.
	SyncForAppointment(ctx context.Context, appt *model.Appointment) error
	// CancelForAppointment returns everything issued for an appointment.
	CancelForAppointment(ctx context.Context, appointmentID uuid.UUID) error
	Receive(ctx context.Context, productID uuid.UUID, req ReceiveStockRequest, actor Actor) (*model.Product, error)
	List(ctx context.Context, carWashID uuid.UUID, search string, p pagination.Params) ([]model.Product, int64, error)
}

type stockService struct {
	productRepo repository.ProductRepository
	stockRepo   repository.StockLedgerRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewStockService(
	productRepo repository.ProductRepository,
	stockRepo repository.StockLedgerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) StockService {
	return &stockService{productRepo: productRepo, stockRepo: stockRepo, auditRepo: auditRepo, txManager: txManager}
}

func (s *stockService) required(ctx context.Context, appt *model.Appointment) (map[uuid.UUID]int, error) {
	need := map[uuid.UUID]int{}
	if !appt.Active() || len(appt.Items) == 0 {
		return need, nil
	}
	units := map[uuid.UUID]int{}
	var ids []uuid.UUID
	for _, it := range appt.Items {
		if units[it.ServiceID] == 0 {
			ids = append(ids, it.ServiceID)
		}
		units[it.ServiceID]++
	}
	rows, err := s.productRepo.Consumables(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range rows {
		need[c.ProductID] += c.Quantity * units[c.ServiceID]
	}
	return need, nil
}

func (s *stockService) issued(ctx context.Context, appointmentID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := s.stockRepo.ForAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	net := map[uuid.UUID]int{}
	for _, e := range rows {
		if e.Direction == model.StockOut {
			net[e.ProductID] += e.Quantity
		} else {
			net[e.ProductID] -= e.Quantity
		}
	}
	return net, nil
}

func (s *stockService) SyncForAppointment(ctx context.Context, appt *model.Appointment) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		need, err := s.required(txCtx, appt)
		if err != nil {
			return fmt.Errorf("failed to load consumables: %w", err)
		}
		return s.reconcile(txCtx, appt.ID, need)
	})
}

func (s *stockService) CancelForAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.reconcile(txCtx, appointmentID, map[uuid.UUID]int{})
	})
}

func (s *stockService) reconcile(ctx context.Context, appointmentID uuid.UUID, need map[uuid.UUID]int) error {
	have, err := s.issued(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("failed to load stock movements: %w", err)
	}

	products := map[uuid.UUID]bool{}
	for id := range need {
		products[id] = true
	}
	for id := range have {
		products[id] = true
	}
	// lock in a stable order so concurrent saves cannot deadlock
	ids := make([]uuid.UUID, 0, len(products))
	for id := range products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	apptID := appointmentID
	for _, id := range ids {
		delta := need[id] - have[id]
		if delta == 0 {
			continue
		}
		p, err := s.productRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "product", id)
		}
		entry := &model.StockLedgerEntry{ProductID: id, AppointmentID: &apptID}
		if delta > 0 {
			if p.CurrentStock < delta {
				return apperror.CapacityExceeded("stock of "+p.Name, delta, p.CurrentStock)
			}
			p.CurrentStock -= delta
			entry.Direction, entry.Quantity = model.StockOut, delta
		} else {
			p.CurrentStock += -delta
			entry.Direction, entry.Quantity = model.StockIn, -delta
		}
		entry.StockAfter = p.CurrentStock
		if err := s.productRepo.UpdateStock(ctx, id, p.CurrentStock); err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}
		if err := s.stockRepo.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to write stock ledger: %w", err)
		}
	}
	return nil
}

func (s *stockService) Receive(ctx context.Context, productID uuid.UUID, req ReceiveStockRequest, actor Actor) (*model.Product, error) {
	if req.Quantity <= 0 {
		return nil, apperror.Validation("quantity must be greater than zero")
	}
	var product *model.Product
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.productRepo.FindByIDForUpdate(txCtx, productID)
		if err != nil {
			return notFound(err, "product", productID)
		}
		p.CurrentStock += req.Quantity
		if err := s.productRepo.UpdateStock(txCtx, p.ID, p.CurrentStock); err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}
		entry := &model.StockLedgerEntry{
			ProductID:  p.ID,
			Direction:  model.StockIn,
			Quantity:   req.Quantity,
			StockAfter: p.CurrentStock,
		}
		if err := s.stockRepo.Create(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write stock ledger: %w", err)
		}
		audit(txCtx, s.auditRepo, actor, model.ActionReceiveStock, p.ID.String(), p.Name, req)
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *stockService) List(ctx context.Context, carWashID uuid.UUID, search string, p pagination.Params) ([]model.Product, int64, error) {
	return s.productRepo.List(ctx, carWashID, search, p)
}
