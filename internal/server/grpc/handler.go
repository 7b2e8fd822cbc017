package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hildxd/chat-server/internal/common"
	"github.com/hildxd/chat-server/internal/server/models"
)

func (s *GRPCServer) Signup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token, err := s.auth.Signup(ctx, models.CreateAccountRequest{
		FullName: stringField(req, "fullname"),
		Email:    stringField(req, "email"),
		Password: stringField(req, "password"),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return tokenResponse(token)
}

func (s *GRPCServer) Signin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token, err := s.auth.Signin(ctx, models.VerifyAccountRequest{
		Email:    stringField(req, "email"),
		Password: stringField(req, "password"),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return tokenResponse(token)
}

// WhoAmI echoes the identity the access token interceptor attached.
func (s *GRPCServer) WhoAmI(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	identity, ok := identityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"id":       float64(identity.ID),
		"fullname": identity.FullName,
		"email":    identity.Email,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return resp, nil
}

func tokenResponse(token string) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(map[string]any{"token": token})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return resp, nil
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, "email already exists")
	case errors.Is(err, common.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrHashing):
		return status.Error(codes.InvalidArgument, "password could not be processed")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.PermissionDenied, "Invalid email or password")
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
