package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Aman-CERP/elasticmcp/internal/elastic"
	gwerrors "github.com/Aman-CERP/elasticmcp/internal/errors"
	"github.com/Aman-CERP/elasticmcp/internal/result"
)

// fail reports err to the observer and the log, and returns it re-raised as
// "<operation> failed: <message>" with a code describing its origin.
func (s *Service) fail(ctx context.Context, operation string, err error) error {
	wrapped := wrapFailure(operation, err)
	observerFrom(ctx).Error(ctx, wrapped.Message)

	attrs := append([]any{slog.String("operation", operation)}, gwerrors.LogAttrs(wrapped)...)
	s.logger.Warn("operation failed", attrs...)
	return wrapped
}

func wrapFailure(operation string, err error) *gwerrors.GatewayError {
	var (
		se *elastic.StatusError
		ge *gwerrors.GatewayError
	)
	switch {
	case errors.As(err, &se):
		return gwerrors.EngineError(fmt.Sprintf("%s failed: %s", operation, se.Error()), err).
			WithDetail("status", strconv.Itoa(se.StatusCode))
	case errors.As(err, &ge):
		return &gwerrors.GatewayError{
			Code:       ge.Code,
			Message:    fmt.Sprintf("%s failed: %s", operation, ge.Message),
			Category:   ge.Category,
			Severity:   ge.Severity,
			Details:    ge.Details,
			Cause:      err,
			Suggestion: ge.Suggestion,
		}
	case errors.Is(err, result.ErrMalformed):
		return gwerrors.New(gwerrors.ErrCodeMalformedResponse, fmt.Sprintf("%s failed: %s", operation, err), err)
	default:
		return gwerrors.InternalError(fmt.Sprintf("%s failed: %s", operation, err), err)
	}
}

func invalid(message string) error {
	return gwerrors.ValidationError(message, nil)
}
