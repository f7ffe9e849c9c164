package rest

import (
	"net/http"
	"time"

	jsonres "beverageHub/pkg/response"

	"github.com/labstack/echo/v4"
)

type DatabaseStatus interface {
	Connected() bool
}

type GatewayStatus interface {
	IsConfigured() bool
}

type HealthHandler struct {
	environment string
	database    DatabaseStatus
	gateway     GatewayStatus
}

func NewHealthHandler(environment string, database DatabaseStatus, gateway GatewayStatus) *HealthHandler {
	return &HealthHandler{
		environment: environment,
		database:    database,
		gateway:     gateway,
	}
}

func (h *HealthHandler) Health(c echo.Context) error {
	database := "disconnected"
	if h.database != nil && h.database.Connected() {
		database = "connected"
	}

	return c.JSON(http.StatusOK, jsonres.Success("OK", map[string]interface{}{
		"status":           "healthy",
		"environment":      h.environment,
		"database":         database,
		"mpesa_configured": h.gateway != nil && h.gateway.IsConfigured(),
		"timestamp":        time.Now().UTC(),
	}))
}
