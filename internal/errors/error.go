package errors

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrEmptyAuth    = errors.New("missing authorization")
	ErrTokenInvalid = errors.New("invalid token")

	ErrInvalidOrderPayload    = errors.New("invalid order payload")
	ErrSchemaViolation        = errors.New("order does not satisfy schema")
	ErrPersistenceUnavailable = errors.New("persistence layer is not connected")

	ErrEmptyCart              = errors.New("cart is empty")
	ErrLineNotFound           = errors.New("cart line not found")
	ErrEmptySku               = errors.New("sku is required")
	ErrMissingCustomerDetails = errors.New("name, phone and address are required")
	ErrSubmitInProgress       = errors.New("order submission already in progress")
	ErrOrderRejected          = errors.New("order rejected by server")
)

func HandleError(err error, span trace.Span) {
	if err == nil {
		return
	}
	span.AddEvent(err.Error())
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}
