package engine

import (
	"errors"
	"fmt"
	"net/http"

	"bookbrainz-site/internal/metadata"
	"bookbrainz-site/internal/ws"
)

// Operation-time errors.
var (
	ErrNoEndpoint               = errors.New("model has no endpoint and path is unspecified")
	ErrNoIDOrPath               = errors.New("no object id or absolute path specified")
	ErrPayloadShape             = errors.New("unexpected payload shape")
	ErrNoSuchChild              = errors.New("model has no child with this type")
	ErrUnresolvedModelReference = errors.New("reference field model is not defined")
	ErrAbstractModel            = errors.New("operation not allowed on abstract model")
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(model, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s with id %s not found", model, id),
	}
}

func UnknownModelError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_MODEL",
		Status:  404,
		Message: fmt.Sprintf("Unknown model: %s", name),
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

// ToAppError maps an operation error onto the response the route layer
// sends. It returns nil for errors it does not recognise.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var statusErr *ws.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return NewAppError("NOT_FOUND", 404, "Object not found")
		case http.StatusUnauthorized:
			return UnauthorizedError("Web service rejected credentials")
		case http.StatusForbidden:
			return ForbiddenError("Web service denied access")
		default:
			return NewAppError("UPSTREAM_ERROR", 502, statusErr.Error())
		}
	}

	switch {
	case errors.Is(err, ErrNoEndpoint), errors.Is(err, ErrNoIDOrPath):
		return NewAppError("INVALID_REQUEST", 400, err.Error())
	case errors.Is(err, ErrAbstractModel):
		return NewAppError("ABSTRACT_MODEL", 400, err.Error())
	case errors.Is(err, ErrPayloadShape), errors.Is(err, ErrNoSuchChild), errors.Is(err, ErrUnresolvedModelReference):
		return NewAppError("UPSTREAM_PAYLOAD", 502, err.Error())
	case errors.Is(err, metadata.ErrRegistryFrozen):
		return NewAppError("INTERNAL_ERROR", 500, "Internal server error")
	}
	return nil
}
