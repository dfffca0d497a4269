package api

import (
	"context"
	"errors"

	"github.com/solatis/rulebuilder/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Auth errors mapped in auth package interceptor.
// Catalog load errors map to UNAVAILABLE.
// Malformed requests and edit misuse map to INVALID_ARGUMENT.
// Context timeouts map to DEADLINE_EXCEEDED.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, types.ErrSessionNotFound), errors.Is(err, types.ErrElementNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrSessionLimit):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, types.ErrNotQuantitative), errors.Is(err, types.ErrNotRemovable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.InvalidArgument, err.Error())
	}
}
