package postgres

import (
	"context"
	"fmt"

	"beverageHub/domain"

	"gorm.io/gorm"
)

// the expression must match searchVector for the planner to use the index
const productSearchIndex = "CREATE INDEX IF NOT EXISTS idx_products_search ON products USING GIN ((" + searchVector + "))"

// Migrate creates or updates every table the API uses.
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&domain.User{},
		&domain.WalletTransaction{},
		&domain.Product{},
		&domain.ProductVariation{},
		&domain.ProductPacket{},
		&domain.ProductReview{},
		&domain.Order{},
		&domain.OrderItem{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.WithContext(ctx).Exec(productSearchIndex).Error; err != nil {
		return fmt.Errorf("create product search index: %w", err)
	}

	return nil
}
