package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/hildxd/chat-server/internal/common"
	"github.com/hildxd/chat-server/internal/logging"
	"github.com/hildxd/chat-server/internal/server/metrics"
	"github.com/hildxd/chat-server/internal/server/models"
)

// Directory is the account store used by AuthService.
type Directory interface {
	Create(ctx context.Context, req models.CreateAccountRequest) (*models.Account, error)
	Verify(ctx context.Context, req models.VerifyAccountRequest) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type TokenSigner interface {
	Sign(identity models.AuthenticatedIdentity) (string, error)
}

type TokenVerifier interface {
	Verify(token string) (*models.AuthenticatedIdentity, error)
}

// AuthService turns signup and signin requests into bearer tokens and
// resolves tokens back to identities.
type AuthService struct {
	directory Directory
	signer    TokenSigner
	verifier  TokenVerifier
	log       logging.Logger
	metrics   *metrics.Metrics
}

func NewAuthService(d Directory, signer TokenSigner, verifier TokenVerifier, log logging.Logger, mtr *metrics.Metrics) *AuthService {
	return &AuthService{
		directory: d,
		signer:    signer,
		verifier:  verifier,
		log:       log.With("module", "auth"),
		metrics:   mtr,
	}
}

// Signup creates the account and returns a token for it.
func (s *AuthService) Signup(ctx context.Context, req models.CreateAccountRequest) (string, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)

	if err := validateSignup(req); err != nil {
		s.metrics.AuthResult("signup", metrics.OutcomeInvalid)
		return "", err
	}

	account, err := s.directory.Create(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrDuplicateEmail):
			s.metrics.AuthResult("signup", metrics.OutcomeDuplicate)
		default:
			s.metrics.AuthResult("signup", metrics.OutcomeError)
			s.log.Error(ctx, "signup failed", "error", err)
		}
		return "", err
	}

	token, err := s.signer.Sign(account.Identity())
	if err != nil {
		s.metrics.AuthResult("signup", metrics.OutcomeError)
		s.log.Error(ctx, "token signing failed", "account_id", account.ID, "error", err)
		return "", err
	}

	s.metrics.AuthResult("signup", metrics.OutcomeOK)
	return token, nil
}

// Signin checks the credentials and returns a token. Unknown email and wrong
// password both yield common.ErrorUnauthorized.
func (s *AuthService) Signin(ctx context.Context, req models.VerifyAccountRequest) (string, error) {
	req.Email = strings.TrimSpace(req.Email)

	account, err := s.directory.Verify(ctx, req)
	if err != nil {
		s.metrics.AuthResult("signin", metrics.OutcomeError)
		s.log.Error(ctx, "signin failed", "error", err)
		return "", err
	}
	if account == nil {
		s.metrics.AuthResult("signin", metrics.OutcomeUnauthorized)
		return "", common.ErrorUnauthorized
	}

	token, err := s.signer.Sign(account.Identity())
	if err != nil {
		s.metrics.AuthResult("signin", metrics.OutcomeError)
		s.log.Error(ctx, "token signing failed", "account_id", account.ID, "error", err)
		return "", err
	}

	s.metrics.AuthResult("signin", metrics.OutcomeOK)
	return token, nil
}

// Authenticate resolves a bearer token to the identity it carries.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.AuthenticatedIdentity, error) {
	identity, err := s.verifier.Verify(token)
	if err != nil {
		s.metrics.AuthResult("authenticate", metrics.OutcomeInvalid)
		s.log.Debug(ctx, "token rejected", "error", err)
		return nil, err
	}

	s.metrics.AuthResult("authenticate", metrics.OutcomeOK)
	return identity, nil
}

func validateSignup(req models.CreateAccountRequest) error {
	if req.FullName == "" {
		return fmt.Errorf("%w: fullname is required", common.ErrInvalidInput)
	}
	if req.Password == "" {
		return fmt.Errorf("%w: password is required", common.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email {
		return fmt.Errorf("%w: invalid email", common.ErrInvalidInput)
	}
	return nil
}
