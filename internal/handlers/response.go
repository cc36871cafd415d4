package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"vskmarket/internal/backend"
	"vskmarket/internal/services"
)

// parseAndValidate binds the request body into v and validates it. It
// writes the 400 response itself and returns false when either step fails.
func parseAndValidate(c *fiber.Ctx, validate *validator.Validate, v interface{}) (bool, error) {
	if err := c.BodyParser(v); err != nil {
		log.Printf("Error parsing request body for %s: %v", c.Path(), err)
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(v); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

func validationFailed(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// respondError maps service and backend errors to a status code.
func respondError(c *fiber.Ctx, message string, err error) error {
	var (
		statusErr *backend.StatusError
		httpErr   *backend.HTTPError
		valErrs   validator.ValidationErrors
	)

	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &valErrs):
		return validationFailed(c, err)
	case errors.Is(err, services.ErrNoSession):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrNoCheckout),
		errors.Is(err, services.ErrUnknownPolicy):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrTermsNotAccepted):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrOrderMismatch),
		errors.Is(err, services.ErrSuperseded):
		status = fiber.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = fiber.StatusGatewayTimeout
	case errors.As(err, &statusErr):
		status = fiber.StatusUnprocessableEntity
	case errors.As(err, &httpErr),
		errors.Is(err, backend.ErrEmptyResponse),
		errors.Is(err, services.ErrMalformedSession):
		status = fiber.StatusBadGateway
	}

	if status >= fiber.StatusInternalServerError {
		log.Printf("%s: %v", message, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

// rawJSON writes a backend payload through unchanged.
func rawJSON(c *fiber.Ctx, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if len(body) == 0 {
		return c.SendString("null")
	}
	return c.Send(body)
}
