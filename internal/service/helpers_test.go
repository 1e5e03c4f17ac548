package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"carwash/internal/database"
	"carwash/internal/model"
	"carwash/internal/pricing"
	"carwash/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := dec(v)
	return &d
}

var testNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type published struct {
	carWashID uuid.UUID
	event     string
	data      interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(carWashID uuid.UUID, event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{carWashID, event, data})
}

func (n *recordingNotifier) last(event string) (published, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.events) - 1; i >= 0; i-- {
		if n.events[i].event == event {
			return n.events[i], true
		}
	}
	return published{}, false
}

type recordingPusher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *recordingPusher) Push(event interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// fixture is one car wash with a small catalog, staff and stock, plus every
// service wired against an in-memory database.
type fixture struct {
	db          *gorm.DB
	cw          *model.CarWash
	car         *model.Car
	customerID  uuid.UUID
	wash        *model.WashService
	wax         *model.WashService
	foam        *model.Product
	washer      *model.Worker
	cashier     *model.Worker
	cashierUser uuid.UUID
	notifier    *recordingNotifier
	pusher      *recordingPusher

	discounts    DiscountService
	usage        DiscountUsageService
	promos       PromoService
	quotes       QuoteService
	stock        StockService
	ledger       LedgerService
	bookings     BookingService
	appointments AppointmentService
	catalog      CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{db: db, notifier: &recordingNotifier{}, pusher: &recordingPusher{}}
	f.customerID = uuid.New()
	f.cashierUser = uuid.New()

	f.cw = &model.CarWash{Name: "Main street", QueueCommission: dec(50)}
	require.NoError(t, db.Create(f.cw).Error)
	require.NoError(t, db.Create(&model.Box{CarWashID: f.cw.ID, Title: "Box 1"}).Error)
	f.car = &model.Car{CustomerID: &f.customerID, Plate: "A123BC", BodyType: "Sedan"}
	require.NoError(t, db.Create(f.car).Error)

	f.wash = &model.WashService{CarWashID: f.cw.ID, Title: "Wash", Price: decPtr(1000), Duration: 30}
	f.wax = &model.WashService{CarWashID: f.cw.ID, Title: "Wax", Price: decPtr(500), Duration: 15}
	require.NoError(t, db.Create(f.wash).Error)
	require.NoError(t, db.Create(f.wax).Error)

	f.foam = &model.Product{CarWashID: f.cw.ID, Name: "Foam", CurrentStock: 5}
	require.NoError(t, db.Create(f.foam).Error)
	require.NoError(t, db.Create(&model.ServiceConsumable{ServiceID: f.wash.ID, ProductID: f.foam.ID, Quantity: 1}).Error)

	f.washer = &model.Worker{CarWashID: f.cw.ID, FullName: "Washer", Role: model.RoleWasher, IsActive: true}
	f.cashier = &model.Worker{CarWashID: f.cw.ID, UserID: &f.cashierUser, FullName: "Cashier", Role: model.RoleCashier, IsActive: true}
	require.NoError(t, db.Create(f.washer).Error)
	require.NoError(t, db.Create(f.cashier).Error)

	txManager := repository.NewTransactionManager(db)
	carWashRepo := repository.NewCarWashRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	promoRepo := repository.NewPromoRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	workerRepo := repository.NewWorkerRepository(db)

	calculator := pricing.NewCalculator(catalogRepo, nil)
	f.discounts = NewDiscountService(carWashRepo, discountRepo, statsRepo, nil, fixedNow)
	f.usage = NewDiscountUsageService(discountRepo, txManager)
	f.promos = NewPromoService(promoRepo, auditRepo, fixedNow)
	f.quotes = NewQuoteService(calculator, carWashRepo, f.discounts, f.promos)
	f.stock = NewStockService(repository.NewProductRepository(db), repository.NewStockLedgerRepository(db), auditRepo, txManager)
	f.ledger = NewLedgerService(carWashRepo, workerRepo, repository.NewLedgerRepository(db), auditRepo, txManager, fixedNow)
	f.bookings = NewBookingService(bookingRepo, auditRepo, txManager, calculator, f.quotes, f.usage, f.promos, f.notifier, fixedNow)
	f.appointments = NewAppointmentService(AppointmentDeps{
		AppointmentRepo: appointmentRepo,
		BookingRepo:     bookingRepo,
		CarWashRepo:     carWashRepo,
		WorkerRepo:      workerRepo,
		AuditRepo:       auditRepo,
		TxManager:       txManager,
		Calculator:      calculator,
		Discounts:       f.discounts,
		Usage:           f.usage,
		Stock:           f.stock,
		Ledger:          f.ledger,
		Bookings:        f.bookings,
		Notifier:        f.notifier,
		Webhook:         f.pusher,
		Now:             fixedNow,
	})
	f.catalog = NewCatalogService(catalogRepo, discountRepo, auditRepo, calculator, f.discounts)
	return f
}

// firstVisitDiscount gives new customers percent off the services.
func (f *fixture) firstVisitDiscount(t *testing.T, percent int64) *model.AutoDiscount {
	t.Helper()
	d := &model.AutoDiscount{
		CarWashID:     f.cw.ID,
		Title:         "First visit",
		IsActive:      true,
		DiscountType:  model.DiscountPercentage,
		DiscountValue: dec(percent),
		RulesLogic:    "ALL (AND)",
		Rules:         []model.AutoDiscountRule{{RuleType: "First Time Customer"}},
	}
	require.NoError(t, f.catalog.CreateDiscount(context.Background(), d, Actor{}))
	return d
}

func (f *fixture) cashierActor() Actor {
	return Actor{UserID: &f.cashierUser}
}

func (f *fixture) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var p model.Product
	require.NoError(t, f.db.First(&p, "id = ?", productID).Error)
	return p.CurrentStock
}

func (f *fixture) earnings(t *testing.T, appointmentID uuid.UUID) map[uuid.UUID]decimal.Decimal {
	t.Helper()
	var rows []model.WorkerLedgerEntry
	require.NoError(t, f.db.Where("appointment_id = ? AND status = ?", appointmentID, model.LedgerSubmitted).Find(&rows).Error)
	out := map[uuid.UUID]decimal.Decimal{}
	for _, r := range rows {
		out[r.WorkerID] = r.Amount
	}
	return out
}
