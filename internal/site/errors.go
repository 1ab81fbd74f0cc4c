package site

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"bookbrainz-site/internal/engine"
)

// ErrorHandler renders operation errors as ErrorResponse bodies.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr := engine.ToAppError(err); appErr != nil {
			if appErr.Status >= 500 {
				log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
			return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(engine.ErrorResponse{
				Error: engine.NewAppError("HTTP_ERROR", fiberErr.Code, fiberErr.Message),
			})
		}

		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		return c.Status(fiber.StatusInternalServerError).JSON(engine.ErrorResponse{
			Error: &engine.AppError{
				Code:    "INTERNAL_ERROR",
				Status:  fiber.StatusInternalServerError,
				Message: "Internal server error",
			},
		})
	}
}

// validationError converts validator failures into a 422 response.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return engine.NewAppError("INVALID_PAYLOAD", 400, err.Error())
	}
	details := make([]engine.ErrorDetail, 0, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		details = append(details, engine.ErrorDetail{
			Field:   field,
			Rule:    fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return engine.ValidationError(details)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "uuid":
		return field + " must be a BBID"
	case "datetime":
		return field + " must be a date formatted " + fe.Param()
	default:
		return field + " failed validation (" + fe.Tag() + ")"
	}
}
