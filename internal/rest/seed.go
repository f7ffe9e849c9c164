package rest

import (
	"context"
	"net/http"
	"time"

	"beverageHub/business/seed"
	"beverageHub/pkg/logger"
	jsonres "beverageHub/pkg/response"

	"github.com/labstack/echo/v4"
)

type SeedService interface {
	SeedProducts(ctx context.Context) (seed.Result, error)
}

type SeedHandler struct {
	seedService SeedService
	production  bool
}

func NewSeedHandler(seedService SeedService, production bool) *SeedHandler {
	return &SeedHandler{
		seedService: seedService,
		production:  production,
	}
}

func (h *SeedHandler) SeedProducts(c echo.Context) error {
	if h.production {
		return c.JSON(http.StatusForbidden, jsonres.Error("FORBIDDEN", "Seeding is disabled in production", nil))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	result, err := h.seedService.SeedProducts(ctx)
	if err != nil {
		logger.Error("Failed to seed products", err)
		return err
	}

	return c.JSON(http.StatusOK, jsonres.Success("Products seeded successfully", map[string]interface{}{
		"created": result.Created,
		"updated": result.Updated,
	}))
}
