package rest

import (
	"context"
	"io"
	"net/http"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/logger"

	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

type WebhookService interface {
	HandleCallback(ctx context.Context, body []byte) domain.WebhookAck
	HandleTimeout(ctx context.Context, body []byte) domain.WebhookAck
}

// MpesaWebhookHandler receives gateway callbacks. It never fails the request:
// the gateway retries anything that is not a 200.
type MpesaWebhookHandler struct {
	service WebhookService
	timeout time.Duration
}

func NewMpesaWebhookHandler(service WebhookService) *MpesaWebhookHandler {
	return &MpesaWebhookHandler{
		service: service,
		timeout: 10 * time.Second,
	}
}

func (h *MpesaWebhookHandler) HandleCallback(c echo.Context) error {
	body := readBody(c)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), h.timeout)
	defer cancel()

	return c.JSON(http.StatusOK, h.service.HandleCallback(ctx, body))
}

func (h *MpesaWebhookHandler) HandleTimeout(c echo.Context) error {
	body := readBody(c)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), h.timeout)
	defer cancel()

	return c.JSON(http.StatusOK, h.service.HandleTimeout(ctx, body))
}

func readBody(c echo.Context) []byte {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		logger.Warn("Failed to read webhook body", "path", c.Path(), "error", err)
	}
	return body
}
