package httpx

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ironlake-data/catalog/internal/domain"
)

// icebergErrorBody is the wire error envelope for catalog endpoints:
// `{error: {message, type, code, stack?}}`. Management endpoints reuse the
// same shape rather than inventing a second one.
type icebergErrorBody struct {
	Error icebergError `json:"error"`
}

type icebergError struct {
	Message string   `json:"message"`
	Type    string   `json:"type"`
	Code    int      `json:"code"`
	Stack   []string `json:"stack,omitempty"`
}

// WithError maps a domain error onto the wire error envelope and HTTP
// status code via a type-switch dispatch over this service's own error
// taxonomy (domain.ValidationError and friends).
func WithError(c *fiber.Ctx, err error) error {
	status, wireType, message := classify(err)

	body := icebergErrorBody{Error: icebergError{
		Message: message,
		Type:    wireType,
		Code:    status,
	}}

	if cause := errors.Unwrap(err); cause != nil && status >= 500 {
		body.Error.Stack = []string{cause.Error()}
	}

	return c.Status(status).JSON(body)
}

func classify(err error) (status int, wireType, message string) {
	var (
		validation  domain.ValidationError
		notFound    domain.NotFoundError
		conflict    domain.ConflictError
		forbidden   domain.ActionForbiddenError
		unauth      domain.AuthenticationRequiredError
		unavailable domain.BackendUnavailableError
		invariant   domain.InternalInvariantError
	)

	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest, "ValidationException", validation.Error()
	case errors.As(err, &notFound):
		return fiber.StatusNotFound, "NoSuchEntityException", notFound.Error()
	case errors.As(err, &conflict):
		return fiber.StatusConflict, "CommitFailedException", conflict.Error()
	case errors.As(err, &forbidden):
		return fiber.StatusForbidden, "ForbiddenException", forbidden.Error()
	case errors.As(err, &unauth):
		return fiber.StatusUnauthorized, "NotAuthorizedException", unauth.Error()
	case errors.As(err, &unavailable):
		return fiber.StatusServiceUnavailable, "ServiceUnavailableException", unavailable.Error()
	case errors.As(err, &invariant):
		return fiber.StatusInternalServerError, "InternalServerException", invariant.Error()
	default:
		return fiber.StatusInternalServerError, "InternalServerException", "internal error"
	}
}
