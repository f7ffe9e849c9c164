package rest

import (
	"context"
	"net/http"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
	jsonres "beverageHub/pkg/response"

	"github.com/labstack/echo/v4"
)

type CategoryService interface {
	GetAllCategories(ctx context.Context) ([]domain.CategoryCount, error)
}

type CategoryHandler struct {
	categoryService CategoryService
	timeout         time.Duration
}

func NewCategoryHandler(categoryService CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		timeout:         10 * time.Second,
	}
}

func (h *CategoryHandler) GetAllCategories(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	categories, err := h.categoryService.GetAllCategories(ctx)
	if err != nil {
		logger.Error("Failed to find all categories", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Categories retrieved successfully", map[string]interface{}{
		"categories": categories,
	}))
}
