// Package services contains server-side business logic. This file implements
// AccountService, the directory of registered accounts: creation with a
// hashed credential, lookup by email and password verification.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/hildxd/chat-server/internal/common"
	"github.com/hildxd/chat-server/internal/dbx"
	"github.com/hildxd/chat-server/internal/logging"
	"github.com/hildxd/chat-server/internal/server/metrics"
	"github.com/hildxd/chat-server/internal/server/models"
	"github.com/hildxd/chat-server/internal/server/repositories/repomanager"
	"github.com/hildxd/chat-server/internal/telemetry"
)

// PasswordHasher is satisfied by *cryptox.Hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// AccountService creates, finds and verifies accounts. Email uniqueness is
// left to the storage constraint; the service takes no locks of its own.
//
// Argon2 work runs under a weighted semaphore so that at most `workers`
// computations are in flight; waiting honours ctx cancellation.
type AccountService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	limiter     *semaphore.Weighted
	log         logging.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer

	// dummyHash is verified against when the email is unknown so both
	// sign-in failures cost one Argon2 run.
	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(db dbx.DBTX, m repomanager.RepositoryManager, hasher PasswordHasher, workers int64, log logging.Logger, mtr *metrics.Metrics) *AccountService {
	if workers < 1 {
		workers = 1
	}
	return &AccountService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		limiter:     semaphore.NewWeighted(workers),
		log:         log.With("module", "accounts"),
		metrics:     mtr,
		tracer:      telemetry.Tracer(),
	}
}

// FindByEmail returns (nil, nil) when no account has that email.
func (s *AccountService) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	ctx, span := s.tracer.Start(ctx, "AccountService.FindByEmail")
	defer span.End()

	stored, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, s.fail(span, fmt.Errorf("%w: %w", common.ErrStorage, err))
	}

	account := stored.Account
	return &account, nil
}

// Create hashes the password and inserts the account. A taken email yields
// common.ErrDuplicateEmail; nothing is written when hashing fails.
func (s *AccountService) Create(ctx context.Context, req models.CreateAccountRequest) (*models.Account, error) {
	ctx, span := s.tracer.Start(ctx, "AccountService.Create")
	defer span.End()

	hash, err := s.hash(ctx, req.Password)
	if err != nil {
		return nil, s.fail(span, err)
	}

	stored, err := s.repomanager.Accounts(s.db).Create(ctx, &models.StoredAccount{
		Account:      models.Account{FullName: req.FullName, Email: req.Email},
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			span.SetAttributes(attribute.Bool("account.duplicate", true))
			return nil, err
		}
		return nil, s.fail(span, fmt.Errorf("%w: %w", common.ErrStorage, err))
	}

	span.SetAttributes(attribute.Int64("account.id", stored.ID))
	s.log.Info(ctx, "account created", "account_id", stored.ID)

	account := stored.Account
	return &account, nil
}

// Verify returns the account when password matches. An unknown email and a
// wrong password both yield (nil, nil); only storage faults are errors.
func (s *AccountService) Verify(ctx context.Context, req models.VerifyAccountRequest) (*models.Account, error) {
	ctx, span := s.tracer.Start(ctx, "AccountService.Verify")
	defer span.End()

	stored, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnVerify(ctx, req.Password)
			return nil, nil
		}
		return nil, s.fail(span, fmt.Errorf("%w: %w", common.ErrStorage, err))
	}

	if stored.PasswordHash == "" {
		s.burnVerify(ctx, req.Password)
		return nil, nil
	}

	ok, err := s.verify(ctx, req.Password, stored.PasswordHash)
	if err != nil {
		if errors.Is(err, common.ErrHashing) {
			s.log.Warn(ctx, "stored password hash unusable", "account_id", stored.ID, "error", err)
			return nil, nil
		}
		return nil, s.fail(span, err)
	}
	if !ok {
		return nil, nil
	}

	account := stored.Account
	return &account, nil
}

func (s *AccountService) hash(ctx context.Context, password string) (string, error) {
	if err := s.limiter.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for hash worker: %w", err)
	}
	defer s.limiter.Release(1)
	defer s.metrics.HashStarted("hash")()

	return s.hasher.Hash(password)
}

func (s *AccountService) verify(ctx context.Context, password, encoded string) (bool, error) {
	if err := s.limiter.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("wait for hash worker: %w", err)
	}
	defer s.limiter.Release(1)
	defer s.metrics.HashStarted("verify")()

	return s.hasher.Verify(password, encoded)
}

func (s *AccountService) burnVerify(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("chat-server-dummy-password")
		if err != nil {
			s.log.Warn(ctx, "dummy hash unavailable", "error", err)
			return
		}
		s.dummyHash = h
	})
	if s.dummyHash == "" {
		return
	}
	_, _ = s.verify(ctx, password, s.dummyHash)
}

func (s *AccountService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
