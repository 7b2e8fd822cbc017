package grpc

import (
	"context"

	"github.com/hildxd/chat-server/internal/logging"
	"github.com/hildxd/chat-server/internal/server/models"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakeAuth struct {
	signupToken string
	signupErr   error
	signupReq   models.CreateAccountRequest

	signinToken string
	signinErr   error
	signinReq   models.VerifyAccountRequest

	identity *models.AuthenticatedIdentity
	authErr  error
	gotToken string
}

func (f *fakeAuth) Signup(_ context.Context, req models.CreateAccountRequest) (string, error) {
	f.signupReq = req
	return f.signupToken, f.signupErr
}

func (f *fakeAuth) Signin(_ context.Context, req models.VerifyAccountRequest) (string, error) {
	f.signinReq = req
	return f.signinToken, f.signinErr
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*models.AuthenticatedIdentity, error) {
	f.gotToken = token
	return f.identity, f.authErr
}

func newTestServer(a Authenticator) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", nopLogger{}, a)
}
