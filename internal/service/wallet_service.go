package service

import (
	"context"
	"fmt"
	"gw-wallet-ledger/internal/custom_err"
	"gw-wallet-ledger/internal/kafka"
	"gw-wallet-ledger/internal/models"
	"gw-wallet-ledger/internal/storage"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	eventQueueSize = 100
	eventWorkers   = 5
)

type Wallet interface {
	View(ctx context.Context, owner string) (*models.WalletView, error)
	Add(ctx context.Context, owner, currency string, amount float64) (*models.OperationResponse, error)
	Subtract(ctx context.Context, owner, currency string, amount float64) (*models.OperationResponse, error)
	Set(ctx context.Context, owner, currency string, amount float64) (*models.OperationResponse, error)
}

type WalletService struct {
	repo              storage.WalletRepository
	rates             RateProvider
	kafkaProducer     kafka.Producer
	referenceCurrency string
	log               *slog.Logger

	eventQueue chan models.WalletEvent
	wg         sync.WaitGroup
	stopCh     chan struct{}
	stopOnce   sync.Once
}

func NewWalletService(
	repo storage.WalletRepository,
	rates RateProvider,
	kafkaProducer kafka.Producer,
	referenceCurrency string,
	log *slog.Logger,
) *WalletService {
	svc := &WalletService{
		repo:              repo,
		rates:             rates,
		kafkaProducer:     kafkaProducer,
		referenceCurrency: models.NormalizeCurrency(referenceCurrency),
		log:               log,
		eventQueue:        make(chan models.WalletEvent, eventQueueSize),
		stopCh:            make(chan struct{}),
	}

	for i := 0; i < eventWorkers; i++ {
		svc.wg.Add(1)
		go svc.kafkaWorker(i)
	}

	return svc
}

func (s *WalletService) kafkaWorker(id int) {
	defer s.wg.Done()

	for {
		select {
		case event := <-s.eventQueue:
			s.publish(id, event)
		case <-s.stopCh:
			// drain events queued before shutdown
			for {
				select {
				case event := <-s.eventQueue:
					s.publish(id, event)
				default:
					return
				}
			}
		}
	}
}

func (s *WalletService) publish(workerID int, event models.WalletEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.kafkaProducer.SendWalletEvent(ctx, event); err != nil {
		s.log.Error("kafka send failed",
			slog.Int("worker_id", workerID),
			slog.String("event_id", event.EventID.String()),
			slog.String("error", err.Error()))
	}
}

func (s *WalletService) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down wallet service")

	s.stopOnce.Do(func() { close(s.stopCh) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("all kafka workers stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("shutdown timeout, some events may be lost")
		return ctx.Err()
	}
}

// View converts every balance of the owner into the reference currency. A currency
// missing from the rate table converts to 0.
func (s *WalletService) View(ctx context.Context, owner string) (*models.WalletView, error) {
	const op = "service.View"

	wallets, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	view := &models.WalletView{
		ReferenceCurrency: s.referenceCurrency,
		Entries:           make([]models.WalletLine, 0, len(wallets)),
		Lines:             make([]string, 0, len(wallets)+1),
	}

	total := decimal.Zero
	for _, w := range wallets {
		converted := decimal.NewFromFloat(s.rates.Convert(ctx, w.Amount, w.Currency)).Round(2)
		total = total.Add(converted)

		view.Entries = append(view.Entries, models.WalletLine{
			Currency:  w.Currency,
			Amount:    w.Amount,
			Converted: converted.InexactFloat64(),
		})
		view.Lines = append(view.Lines,
			fmt.Sprintf("%s %s for %s", converted.StringFixed(2), s.referenceCurrency, w.Currency))
	}

	view.Total = total.InexactFloat64()
	view.Lines = append(view.Lines, fmt.Sprintf("%s %s total", total.StringFixed(2), s.referenceCurrency))

	return view, nil
}

func (s *WalletService) Add(ctx context.Context, owner, currency string, amount float64) (*models.OperationResponse, error) {
	return s.performOperation(ctx, models.WalletOperationRequest{
		Owner:         owner,
		Currency:      currency,
		Amount:        amount,
		OperationType: models.OperationAdd,
	})
}

func (s *WalletService) Subtract(ctx context.Context, owner, currency string, amount float64) (*models.OperationResponse, error) {
	return s.performOperation(ctx, models.WalletOperationRequest{
		Owner:         owner,
		Currency:      currency,
		Amount:        amount,
		OperationType: models.OperationSub,
	})
}

func (s *WalletService) Set(ctx context.Context, owner, currency string, amount float64) (*models.OperationResponse, error) {
	return s.performOperation(ctx, models.WalletOperationRequest{
		Owner:         owner,
		Currency:      currency,
		Amount:        amount,
		OperationType: models.OperationSet,
	})
}

func (s *WalletService) performOperation(ctx context.Context, req models.WalletOperationRequest) (*models.OperationResponse, error) {
	const op = "service.performOperation"

	// a negative amount must not reach the rate cache or the store
	if req.Amount < 0 {
		return nil, custom_err.ErrInvalidAmount
	}
	if req.Owner == "" {
		return nil, custom_err.ErrUnauthorized
	}

	req.Currency = models.NormalizeCurrency(req.Currency)
	if _, ok := s.rates.GetRates(ctx)[req.Currency]; !ok {
		return nil, custom_err.ErrInvalidCurrency
	}

	var (
		wallet *models.Wallet
		err    error
	)
	switch req.OperationType {
	case models.OperationAdd:
		wallet, err = s.repo.Add(ctx, req.Owner, req.Currency, req.Amount)
	case models.OperationSub:
		wallet, err = s.repo.Subtract(ctx, req.Owner, req.Currency, req.Amount)
	case models.OperationSet:
		wallet, err = s.repo.Set(ctx, req.Owner, req.Currency, req.Amount)
	default:
		return nil, fmt.Errorf("%s: invalid operation type %q", op, req.OperationType)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.enqueueEvent(req, wallet.Amount)

	return &models.OperationResponse{Message: operationMessage(req)}, nil
}

func (s *WalletService) enqueueEvent(req models.WalletOperationRequest, balance float64) {
	event := models.WalletEvent{
		EventID:   uuid.New(),
		Owner:     req.Owner,
		Currency:  req.Currency,
		Operation: req.OperationType,
		Amount:    req.Amount,
		Balance:   balance,
		Timestamp: time.Now().UTC(),
	}

	select {
	case s.eventQueue <- event:
	default:
		s.log.Error("очередь событий переполнена, событие отброшено",
			slog.String("event_id", event.EventID.String()),
			slog.String("owner", req.Owner))
	}
}

func operationMessage(req models.WalletOperationRequest) string {
	amount := decimal.NewFromFloat(req.Amount).String()

	switch req.OperationType {
	case models.OperationAdd:
		return fmt.Sprintf("Added %s %s to your wallet", amount, req.Currency)
	case models.OperationSub:
		return fmt.Sprintf("Subtracted %s %s from your wallet", amount, req.Currency)
	default:
		return fmt.Sprintf("Set %s to %s in your wallet", req.Currency, amount)
	}
}
