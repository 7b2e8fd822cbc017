package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hildxd/chat-server/internal/common"
	"github.com/hildxd/chat-server/internal/server/models"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestSignup_OK(t *testing.T) {
	a := &fakeAuth{signupToken: "tok"}
	s := newTestServer(a)

	resp, err := s.Signup(context.Background(), mustStruct(t, map[string]any{
		"fullname": "hildxd", "email": "hildxd@qq.com", "password": "pw",
	}))
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.GetFields()["token"].GetStringValue())
	assert.Equal(t, models.CreateAccountRequest{FullName: "hildxd", Email: "hildxd@qq.com", Password: "pw"}, a.signupReq)
}

func TestSignin_OK(t *testing.T) {
	a := &fakeAuth{signinToken: "tok2"}
	s := newTestServer(a)

	resp, err := s.Signin(context.Background(), mustStruct(t, map[string]any{"email": "a@b.com", "password": "pw"}))
	require.NoError(t, err)
	assert.Equal(t, "tok2", resp.GetFields()["token"].GetStringValue())
	assert.Equal(t, models.VerifyAccountRequest{Email: "a@b.com", Password: "pw"}, a.signinReq)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"duplicate", fmt.Errorf("%w: a@b.com", common.ErrDuplicateEmail), codes.AlreadyExists},
		{"invalid input", fmt.Errorf("%w: bad email", common.ErrInvalidInput), codes.InvalidArgument},
		{"hashing", fmt.Errorf("%w: rng", common.ErrHashing), codes.InvalidArgument},
		{"unauthorized", common.ErrorUnauthorized, codes.PermissionDenied},
		{"invalid token", common.ErrInvalidToken, codes.Unauthenticated},
		{"signing", fmt.Errorf("%w: key", common.ErrSigning), codes.Internal},
		{"storage", fmt.Errorf("%w: down", common.ErrStorage), codes.Internal},
		{"canceled", context.Canceled, codes.Canceled},
		{"other", errors.New("boom"), codes.Internal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeAuth{signupErr: tc.err, signinErr: tc.err})

			_, err := s.Signup(context.Background(), &structpb.Struct{})
			assert.Equal(t, tc.want, status.Code(err))

			_, err = s.Signin(context.Background(), &structpb.Struct{})
			assert.Equal(t, tc.want, status.Code(err))
		})
	}
}

func TestSignin_SameMessageForAllFailures(t *testing.T) {
	s := newTestServer(&fakeAuth{signinErr: common.ErrorUnauthorized})

	_, err := s.Signin(context.Background(), &structpb.Struct{})
	assert.Equal(t, "Invalid email or password", status.Convert(err).Message())
}

func TestWhoAmI(t *testing.T) {
	s := newTestServer(&fakeAuth{})

	_, err := s.WhoAmI(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := context.WithValue(context.Background(), identityKey, &models.AuthenticatedIdentity{ID: 7, FullName: "a", Email: "a@b.com"})
	resp, err := s.WhoAmI(ctx, &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, float64(7), resp.GetFields()["id"].GetNumberValue())
	assert.Equal(t, "a@b.com", resp.GetFields()["email"].GetStringValue())
}
