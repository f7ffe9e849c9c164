package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"beverageHub/domain"
	jsonres "beverageHub/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// errorStatus maps a domain error kind to its HTTP status and code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrGateway),
		errors.Is(err, domain.ErrAuthentication):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrPaymentNotConfigured):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	}
}

// writeError renders known domain errors. Anything else goes to the echo
// error handler, which logs it and hides the message in production.
func writeError(c echo.Context, err error) error {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		return err
	}

	message := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		message = de.Message
	}

	return c.JSON(status, jsonres.Error(code, message, nil))
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, jsonres.Error("BAD_REQUEST", message, nil))
}

// validationMessage turns the first validator failure into a readable sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Valid email is required"
	case "ke_phone":
		return "Valid Kenyan phone number required (254XXXXXXXXX)"
	case "password_strength":
		return "Password must contain an uppercase letter or a number"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func paramID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryInt(c echo.Context, name string, fallback int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return fallback
	}
	return n
}

func currentUser(c echo.Context) (uint, string, bool) {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return 0, "", false
	}
	role, _ := c.Get("role").(string)
	return userID, role, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, jsonres.Error("UNAUTHORIZED", "User not authenticated", nil))
}

// paymentTimeout covers a token fetch plus an STK push at their full
// gateway timeouts.
const paymentTimeout = domain.MpesaAuthTimeout + domain.MpesaSTKTimeout + 5*time.Second

// paymentContext detaches from the client connection: once a push reaches
// the gateway the prompt is on the customer's phone, so the request must be
// recorded even if the caller has gone away.
func paymentContext(c echo.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request().Context()), budget)
}
