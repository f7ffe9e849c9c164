package product

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
)

// ProductRepository contract interface
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uint) (domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error)
	Update(ctx context.Context, product *domain.Product) error
	Deactivate(ctx context.Context, id uint) error
	AddFavorite(ctx context.Context, userID, productID uint) error
	RemoveFavorite(ctx context.Context, userID, productID uint) error
	ListFavorites(ctx context.Context, userID uint) ([]domain.Product, error)
	SaveReview(ctx context.Context, review *domain.ProductReview) (domain.Product, error)
}

type productService struct {
	productRepo ProductRepository
}

func NewProductService(productRepo ProductRepository) *productService {
	return &productService{
		productRepo: productRepo,
	}
}

var errProductNotFound = domain.NewError(domain.ErrNotFound, "Product not found")

func (s *productService) GetAllProducts(ctx context.Context, filter domain.ProductFilter) (domain.ProductPage, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when get all product")
		return domain.ProductPage{}, fmt.Errorf("context error: %w", err)
	}

	filter.Normalize()
	if filter.Category != "" && !domain.IsValidCategory(filter.Category) {
		return domain.ProductPage{}, domain.NewError(domain.ErrValidation, "Invalid category")
	}

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		logger.Error("Failed to find all product", err)
		return domain.ProductPage{}, err
	}

	if products == nil {
		products = []domain.Product{}
	}

	page := domain.Pagination{Page: filter.Page, Limit: filter.Limit}
	totalPages := page.TotalPages(total)

	return domain.ProductPage{
		Products: products,
		Pagination: domain.PageInfo{
			CurrentPage:   filter.Page,
			TotalPages:    totalPages,
			TotalProducts: total,
			HasNext:       filter.Page < totalPages,
			HasPrev:       filter.Page > 1,
		},
	}, nil
}

// GetProductByID returns an active product with its variations, packets and reviews.
func (s *productService) GetProductByID(ctx context.Context, id uint) (domain.Product, error) {
	if id == 0 {
		return domain.Product{}, domain.NewError(domain.ErrValidation, "Invalid product id")
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("failed to find product by id", err)
		return domain.Product{}, err
	}

	if !product.IsActive {
		return domain.Product{}, errProductNotFound
	}

	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, product *domain.Product) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when create product")
		return domain.Product{}, fmt.Errorf("context error: %w", err)
	}

	product.ID = 0
	product.IsActive = true
	product.Reviews = nil
	product.Rating = 0
	product.ReviewCount = 0

	if err := validateProduct(product); err != nil {
		logger.Warn("Invalid product data", err)
		return domain.Product{}, err
	}
	product.RecalculateTotalStock()

	if err := s.productRepo.Create(ctx, product); err != nil {
		logger.Error("failed to create new product", err)
		return domain.Product{}, err
	}

	logger.Info("product created successfully", "product_id", product.ID)

	return *product, nil
}

// UpdateProduct replaces the editable fields of a product. Rating and
// reviews are untouched.
func (s *productService) UpdateProduct(ctx context.Context, id uint, update *domain.Product) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when updating product")
		return domain.Product{}, fmt.Errorf("context error: %w", err)
	}

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("product not found", err)
		return domain.Product{}, err
	}

	existing.Name = update.Name
	existing.Description = update.Description
	existing.Category = update.Category
	existing.Brand = update.Brand
	existing.BasePrice = update.BasePrice
	existing.Image = update.Image
	existing.Variations = update.Variations
	existing.Packets = update.Packets
	existing.IsActive = update.IsActive

	if err := validateProduct(&existing); err != nil {
		logger.Warn("Invalid product data", err)
		return domain.Product{}, err
	}
	existing.RecalculateTotalStock()

	if err := s.productRepo.Update(ctx, &existing); err != nil {
		logger.Error("failed to update product", err)
		return domain.Product{}, err
	}

	updatedProduct, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("failed to fetch updated product", err)
		return domain.Product{}, fmt.Errorf("failed to fetch updated product: %w", err)
	}

	logger.Info("product updated success", "product_id", id)

	return updatedProduct, nil
}

// DeleteProduct hides the product from the catalog; past orders keep
// referring to it.
func (s *productService) DeleteProduct(ctx context.Context, id uint) error {
	if id == 0 {
		return domain.NewError(domain.ErrValidation, "Invalid product id")
	}

	if err := s.productRepo.Deactivate(ctx, id); err != nil {
		logger.Error("failed to delete product", err)
		return err
	}

	logger.Info("product deactivated", "product_id", id)

	return nil
}

func (s *productService) AddFavorite(ctx context.Context, userID, productID uint) error {
	if _, err := s.GetProductByID(ctx, productID); err != nil {
		return err
	}

	if err := s.productRepo.AddFavorite(ctx, userID, productID); err != nil {
		logger.Error("failed to add favorite", err)
		return err
	}

	return nil
}

func (s *productService) RemoveFavorite(ctx context.Context, userID, productID uint) error {
	if err := s.productRepo.RemoveFavorite(ctx, userID, productID); err != nil {
		logger.Error("failed to remove favorite", err)
		return err
	}

	return nil
}

func (s *productService) GetFavorites(ctx context.Context, userID uint) ([]domain.Product, error) {
	products, err := s.productRepo.ListFavorites(ctx, userID)
	if err != nil {
		logger.Error("failed to list favorites", err)
		return nil, err
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, nil
}

func (s *productService) AddReview(ctx context.Context, userID, productID uint, rating int, comment string) (domain.Product, error) {
	if rating < 1 || rating > 5 {
		return domain.Product{}, domain.NewError(domain.ErrValidation, "Rating must be between 1 and 5")
	}

	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > 500 {
		return domain.Product{}, domain.NewError(domain.ErrValidation, "Comment cannot exceed 500 characters")
	}

	product, err := s.productRepo.SaveReview(ctx, &domain.ProductReview{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
	})
	if err != nil {
		logger.Error("failed to save review", err)
		return domain.Product{}, err
	}

	return product, nil
}

func validateProduct(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Brand = strings.TrimSpace(p.Brand)
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))

	switch {
	case p.Name == "" || utf8.RuneCountInString(p.Name) > 200:
		return domain.NewError(domain.ErrValidation, "Product name is required and must be at most 200 characters")
	case utf8.RuneCountInString(p.Description) > 1000:
		return domain.NewError(domain.ErrValidation, "Description cannot exceed 1000 characters")
	case !domain.IsValidCategory(p.Category):
		return domain.NewError(domain.ErrValidation, "Category must be one of "+strings.Join(domain.Categories, ", "))
	case p.Brand == "" || utf8.RuneCountInString(p.Brand) > 100:
		return domain.NewError(domain.ErrValidation, "Brand is required and must be at most 100 characters")
	case p.BasePrice < 0:
		return domain.NewError(domain.ErrValidation, "Base price cannot be negative")
	}

	for _, v := range p.Variations {
		if strings.TrimSpace(v.Size) == "" || v.Price < 0 || v.Stock < 0 {
			return domain.NewError(domain.ErrValidation, "Each variation needs a size, a non-negative price and non-negative stock")
		}
	}

	for _, pk := range p.Packets {
		if strings.TrimSpace(pk.PacketType) == "" || strings.TrimSpace(pk.Size) == "" {
			return domain.NewError(domain.ErrValidation, "Each packet needs a packet type and a unit size")
		}
		if pk.UnitsPerPacket < 2 {
			return domain.NewError(domain.ErrValidation, "A packet must contain at least 2 units")
		}
		if pk.PricePerPacket < 0 || pk.Savings < 0 || pk.Stock < 0 {
			return domain.NewError(domain.ErrValidation, "Packet price, savings and stock cannot be negative")
		}
	}

	return nil
}
