package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/vidgraph/internal/errs"
)

// toStatus maps service errors to gRPC statuses. Unrecognized errors become
// a bare Internal so storage details never reach the caller.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errs.IsAuth(err):
		return status.Error(codes.Unauthenticated, "please re-authenticate: "+err.Error())
	case errors.Is(err, errs.ErrSelfFollowForbidden), errors.Is(err, errs.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrMessagingNotAllowed):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, errs.ErrTargetNotFound), errors.Is(err, errs.ErrRecipientNotFound), errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
