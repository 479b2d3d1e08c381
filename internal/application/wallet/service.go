package wallet

import (
	"context"
	"time"

	"go.uber.org/zap"

	domain "github.com/shoply/checkout/internal/domain/wallet"
	"github.com/shoply/checkout/internal/pkg/logging"
	"github.com/shoply/checkout/internal/pkg/optimistic"
)

type IDGenerator interface {
	NewID() string
}

// Service exposes wallet mutations under the bounded optimistic-retry
// policy. Every successful mutation appends a ledger entry.
type Service struct {
	repo          domain.Repository
	idGen         IDGenerator
	retryAttempts int
	retryDelay    time.Duration
}

func NewService(repo domain.Repository, idGen IDGenerator) *Service {
	return &Service{
		repo:          repo,
		idGen:         idGen,
		retryAttempts: optimistic.DefaultAttempts,
		retryDelay:    optimistic.DefaultDelay,
	}
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.repo.Get(ctx, userID)
}

func (s *Service) Entries(ctx context.Context, userID string) ([]*domain.Entry, error) {
	return s.repo.Entries(ctx, userID)
}

func (s *Service) Charge(ctx context.Context, userID string, amount int64) (*domain.Wallet, error) {
	return s.mutate(ctx, userID, domain.EntryCharge, amount, func(w *domain.Wallet) error {
		return w.Charge(amount)
	})
}

func (s *Service) Use(ctx context.Context, userID string, amount int64) (*domain.Wallet, error) {
	return s.mutate(ctx, userID, domain.EntryUse, amount, func(w *domain.Wallet) error {
		return w.Use(amount)
	})
}

func (s *Service) Refund(ctx context.Context, userID string, amount int64) (*domain.Wallet, error) {
	return s.mutate(ctx, userID, domain.EntryRefund, amount, func(w *domain.Wallet) error {
		return w.Refund(amount)
	})
}

func (s *Service) mutate(ctx context.Context, userID string, kind domain.EntryKind, amount int64, apply func(*domain.Wallet) error) (*domain.Wallet, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "wallet_service"))

	var result *domain.Wallet
	err := optimistic.Retry(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) error {
		w, err := s.repo.Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := apply(w); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, w); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		logger.Info("wallet_mutation_rejected",
			zap.String("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, err
	}

	entry := domain.NewEntry(s.idGen.NewID(), userID, "", kind, amount)
	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}
	return result, nil
}
