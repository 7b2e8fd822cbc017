package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hildxd/chat-server/internal/common"
	"github.com/hildxd/chat-server/internal/cryptox"
	"github.com/hildxd/chat-server/internal/logging"
	"github.com/hildxd/chat-server/internal/server/auth"
	"github.com/hildxd/chat-server/internal/server/metrics"
	"github.com/hildxd/chat-server/internal/server/models"
)

func newAuthService(t *testing.T) (*AuthService, *metrics.Metrics) {
	t.Helper()
	privPEM, pubPEM, err := cryptox.GenerateEd25519PEM()
	require.NoError(t, err)
	issuer, err := auth.NewIssuer(privPEM)
	require.NoError(t, err)
	verifier, err := auth.NewVerifier(pubPEM)
	require.NoError(t, err)

	mtr := metrics.New()
	db, m := openSQLite(t)
	dir := NewAccountService(db, m, cryptox.NewHasher(fastParams), 2, logging.Nop{}, mtr)
	return NewAuthService(dir, issuer, verifier, logging.Nop{}, mtr), mtr
}

func TestAuthService_SignupThenAuthenticate(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	token, err := svc.Signup(ctx, models.CreateAccountRequest{FullName: "hildxd", Email: "hildxd@qq.com", Password: "hunter42"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Positive(t, identity.ID)
	assert.Equal(t, "hildxd", identity.FullName)
	assert.Equal(t, "hildxd@qq.com", identity.Email)
}

func TestAuthService_Signin(t *testing.T) {
	svc, mtr := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, models.CreateAccountRequest{FullName: "a b", Email: "a@b.com", Password: "password"})
	require.NoError(t, err)

	token, err := svc.Signin(ctx, models.VerifyAccountRequest{Email: "a@b.com", Password: "password"})
	require.NoError(t, err)
	identity, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", identity.Email)

	_, wrongErr := svc.Signin(ctx, models.VerifyAccountRequest{Email: "a@b.com", Password: "nope"})
	_, unknownErr := svc.Signin(ctx, models.VerifyAccountRequest{Email: "z@b.com", Password: "password"})

	assert.ErrorIs(t, wrongErr, common.ErrorUnauthorized)
	assert.ErrorIs(t, unknownErr, common.ErrorUnauthorized)
	assert.Equal(t, wrongErr, unknownErr)

	n, err := testutil.GatherAndCount(mtr.Registry(), "chat_auth_results_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 3)
}

func TestAuthService_Signup_Duplicate(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, models.CreateAccountRequest{FullName: "a", Email: "a@b.com", Password: "p"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, models.CreateAccountRequest{FullName: "a", Email: "a@b.com", Password: "p"})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestAuthService_Signup_InvalidInput(t *testing.T) {
	svc, _ := newAuthService(t)

	cases := map[string]models.CreateAccountRequest{
		"no fullname":   {Email: "a@b.com", Password: "p"},
		"no password":   {FullName: "a", Email: "a@b.com"},
		"bad email":     {FullName: "a", Email: "not-an-email", Password: "p"},
		"display email": {FullName: "a", Email: "A <a@b.com>", Password: "p"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), req)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestAuthService_Authenticate_Rejects(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

type failingSigner struct{}

func (failingSigner) Sign(models.AuthenticatedIdentity) (string, error) {
	return "", fmt.Errorf("%w: boom", common.ErrSigning)
}

type stubDirectory struct {
	account *models.Account
	err     error
}

func (s stubDirectory) Create(context.Context, models.CreateAccountRequest) (*models.Account, error) {
	return s.account, s.err
}

func (s stubDirectory) Verify(context.Context, models.VerifyAccountRequest) (*models.Account, error) {
	return s.account, s.err
}

func (s stubDirectory) FindByEmail(context.Context, string) (*models.Account, error) {
	return s.account, s.err
}

func TestAuthService_SigningFailure(t *testing.T) {
	dir := stubDirectory{account: &models.Account{ID: 1, FullName: "a", Email: "a@b.com"}}
	svc := NewAuthService(dir, failingSigner{}, nil, logging.Nop{}, nil)

	_, err := svc.Signup(context.Background(), models.CreateAccountRequest{FullName: "a", Email: "a@b.com", Password: "p"})
	assert.ErrorIs(t, err, common.ErrSigning)

	_, err = svc.Signin(context.Background(), models.VerifyAccountRequest{Email: "a@b.com", Password: "p"})
	assert.ErrorIs(t, err, common.ErrSigning)
}

func TestAuthService_Signin_StorageFault(t *testing.T) {
	storageErr := fmt.Errorf("%w: %w", common.ErrStorage, errors.New("down"))
	svc := NewAuthService(stubDirectory{err: storageErr}, failingSigner{}, nil, logging.Nop{}, nil)

	_, err := svc.Signin(context.Background(), models.VerifyAccountRequest{Email: "a@b.com", Password: "p"})
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
}
