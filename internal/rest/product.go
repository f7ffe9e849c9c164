package rest

import (
	"context"
	"net/http"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
	jsonres "beverageHub/pkg/response"
	"beverageHub/pkg/utils"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type ProductService interface {
	GetAllProducts(ctx context.Context, filter domain.ProductFilter) (domain.ProductPage, error)
	GetProductByID(ctx context.Context, id uint) (domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, id uint, update *domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	AddFavorite(ctx context.Context, userID, productID uint) error
	RemoveFavorite(ctx context.Context, userID, productID uint) error
	GetFavorites(ctx context.Context, userID uint) ([]domain.Product, error)
	AddReview(ctx context.Context, userID, productID uint, rating int, comment string) (domain.Product, error)
}

type ProductHandler struct {
	productService ProductService
	validator      *validator.Validate
	timeout        time.Duration
}

func NewProductHandler(productService ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		validator:      utils.NewValidator(),
		timeout:        10 * time.Second,
	}
}

type VariationRequest struct {
	Size  string  `json:"size" validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
	Stock int     `json:"stock" validate:"gte=0"`
}

type PacketRequest struct {
	PacketType     string  `json:"packet_type" validate:"required"`
	UnitsPerPacket int     `json:"units_per_packet" validate:"gte=2"`
	Size           string  `json:"size" validate:"required"`
	PricePerPacket float64 `json:"price_per_packet" validate:"gte=0"`
	Savings        float64 `json:"savings" validate:"gte=0"`
	Stock          int     `json:"stock" validate:"gte=0"`
}

type ProductRequest struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Description string             `json:"description" validate:"max=1000"`
	Category    string             `json:"category" validate:"required"`
	Brand       string             `json:"brand" validate:"required,max=100"`
	BasePrice   float64            `json:"base_price" validate:"gte=0"`
	Image       string             `json:"image"`
	IsActive    *bool              `json:"is_active"`
	Variations  []VariationRequest `json:"variations" validate:"dive"`
	Packets     []PacketRequest    `json:"packets" validate:"dive"`
}

func (r ProductRequest) toDomain() *domain.Product {
	p := &domain.Product{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Brand:       r.Brand,
		BasePrice:   r.BasePrice,
		Image:       r.Image,
		IsActive:    r.IsActive == nil || *r.IsActive,
	}

	for _, v := range r.Variations {
		p.Variations = append(p.Variations, domain.ProductVariation{Size: v.Size, Price: v.Price, Stock: v.Stock})
	}
	for _, pk := range r.Packets {
		p.Packets = append(p.Packets, domain.ProductPacket{
			PacketType:     pk.PacketType,
			UnitsPerPacket: pk.UnitsPerPacket,
			Size:           pk.Size,
			PricePerPacket: pk.PricePerPacket,
			Savings:        pk.Savings,
			Stock:          pk.Stock,
		})
	}

	return p
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}

func (h *ProductHandler) GetAllProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	page, err := h.productService.GetAllProducts(ctx, domain.ProductFilter{
		Category:  c.QueryParam("category"),
		Search:    c.QueryParam("search"),
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", 12),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
	})
	if err != nil {
		logger.Error("Failed to find all products", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Products retrieved successfully", map[string]interface{}{
		"products":   page.Products,
		"pagination": page.Pagination,
	}))
}

func (h *ProductHandler) GetProductByID(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	product, err := h.productService.GetProductByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Product retrieved successfully", map[string]interface{}{
		"product": product,
	}))
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req ProductRequest

	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind request", err)
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Warn("Failed to validate product request", err)
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	product, err := h.productService.CreateProduct(ctx, req.toDomain())
	if err != nil {
		logger.Error("Failed to create product", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(product))
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind request", err)
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Warn("Failed to validate product request", err)
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	product, err := h.productService.UpdateProduct(ctx, id, req.toDomain())
	if err != nil {
		logger.Error("Failed to update product", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(product))
}

// DeleteProduct deactivates the product.
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.productService.DeleteProduct(ctx, id); err != nil {
		logger.Error("Failed to delete product", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Product deactivated successfully"))
}

func (h *ProductHandler) AddFavorite(c echo.Context) error {
	return h.toggleFavorite(c, true)
}

func (h *ProductHandler) RemoveFavorite(c echo.Context) error {
	return h.toggleFavorite(c, false)
}

func (h *ProductHandler) toggleFavorite(c echo.Context, add bool) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	productID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	var (
		err     error
		message string
	)
	if add {
		err = h.productService.AddFavorite(ctx, userID, productID)
		message = "Added to favorites"
	} else {
		err = h.productService.RemoveFavorite(ctx, userID, productID)
		message = "Removed from favorites"
	}
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success(message, nil))
}

func (h *ProductHandler) GetFavorites(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	products, err := h.productService.GetFavorites(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Favorites retrieved successfully", map[string]interface{}{
		"favorites": products,
	}))
}

func (h *ProductHandler) AddReview(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	productID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}

	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	product, err := h.productService.AddReview(ctx, userID, productID, req.Rating, req.Comment)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, jsonres.Success("Review added successfully", map[string]interface{}{
		"rating":       product.Rating,
		"review_count": product.ReviewCount,
	}))
}
