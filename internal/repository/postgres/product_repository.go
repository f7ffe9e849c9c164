package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"beverageHub/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository struct {
	DB *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{
		DB: db,
	}
}

var errProductNotFound = domain.NewError(domain.ErrNotFound, "Product not found")

// sortColumns whitelists the columns a listing may be ordered by.
var sortColumns = map[string]string{
	domain.SortByCreatedAt: "created_at",
	domain.SortByBasePrice: "base_price",
	domain.SortByRating:    "rating",
	domain.SortByName:      "name",
}

const searchVector = "to_tsvector('english', name || ' ' || brand || ' ' || coalesce(description, ''))"

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewError(domain.ErrConflict, "A product with this name already exists")
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id uint) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("context error: %w", err)
	}

	var product domain.Product

	err := r.DB.WithContext(ctx).
		Preload("Variations", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Packets", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, errProductNotFound
		}
		return domain.Product{}, fmt.Errorf("failed to find product: %w", err)
	}

	return product, nil
}

// List returns one page of active products matching filter and the total
// number of matches. filter must already be normalized.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).Model(&domain.Product{}).Where("is_active = ?", true)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		q = q.Where(searchVector+" @@ plainto_tsquery('english', ?) OR name ILIKE ? OR brand ILIKE ?", search, like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}

	var products []domain.Product
	err := q.
		Preload("Variations", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Packets", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: filter.SortOrder == "desc"}).
		Order("id").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find products: %w", err)
	}

	return products, total, nil
}

// Update rewrites the product row and replaces its variations and packets.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceProduct(tx, product)
	})
}

func replaceProduct(tx *gorm.DB, product *domain.Product) error {
	product.UpdatedAt = time.Now()

	result := tx.Model(&domain.Product{}).Where("id = ?", product.ID).
		Select("name", "description", "category", "brand", "base_price", "image", "is_active", "total_stock", "updated_at").
		Updates(product)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.NewError(domain.ErrConflict, "A product with this name already exists")
		}
		return fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errProductNotFound
	}

	if err := tx.Where("product_id = ?", product.ID).Delete(&domain.ProductVariation{}).Error; err != nil {
		return fmt.Errorf("failed to clear variations: %w", err)
	}
	if err := tx.Where("product_id = ?", product.ID).Delete(&domain.ProductPacket{}).Error; err != nil {
		return fmt.Errorf("failed to clear packets: %w", err)
	}

	for i := range product.Variations {
		product.Variations[i].ID = 0
		product.Variations[i].ProductID = product.ID
	}
	for i := range product.Packets {
		product.Packets[i].ID = 0
		product.Packets[i].ProductID = product.ID
	}

	if len(product.Variations) > 0 {
		if err := tx.Create(&product.Variations).Error; err != nil {
			return fmt.Errorf("failed to save variations: %w", err)
		}
	}
	if len(product.Packets) > 0 {
		if err := tx.Create(&product.Packets).Error; err != nil {
			return fmt.Errorf("failed to save packets: %w", err)
		}
	}

	return nil
}

func (r *ProductRepository) Deactivate(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate product: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return errProductNotFound
	}

	return nil
}

func (r *ProductRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&domain.Product{}).Where("is_active = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}

	return count, nil
}

// UpsertByName inserts the product or replaces the existing one with the
// same name. It reports whether a new row was created.
func (r *ProductRepository) UpsertByName(ctx context.Context, product *domain.Product) (bool, error) {
	created := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("name = ?", product.Name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			return tx.Create(product).Error
		}
		if err != nil {
			return err
		}

		product.ID = existing.ID
		return replaceProduct(tx, product)
	})

	return created, err
}

func (r *ProductRepository) AddFavorite(ctx context.Context, userID, productID uint) error {
	err := r.DB.WithContext(ctx).Model(&domain.User{ID: userID}).
		Association("Favorites").Append(&domain.Product{ID: productID})
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}

	return nil
}

func (r *ProductRepository) RemoveFavorite(ctx context.Context, userID, productID uint) error {
	err := r.DB.WithContext(ctx).Model(&domain.User{ID: userID}).
		Association("Favorites").Delete(&domain.Product{ID: productID})
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}

	return nil
}

func (r *ProductRepository) ListFavorites(ctx context.Context, userID uint) ([]domain.Product, error) {
	var products []domain.Product

	err := r.DB.WithContext(ctx).
		Joins("JOIN user_favorites ON user_favorites.product_id = products.id").
		Where("user_favorites.user_id = ? AND products.is_active = ?", userID, true).
		Preload("Variations", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Packets", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("products.name").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find favorites: %w", err)
	}

	return products, nil
}

// SaveReview stores the user's review (replacing an earlier one by the same
// user) and recomputes the product rating under a row lock.
func (r *ProductRepository) SaveReview(ctx context.Context, review *domain.ProductReview) (domain.Product, error) {
	var product domain.Product

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND is_active = ?", review.ProductID, true).First(&product).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errProductNotFound
			}
			return err
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "created_at"}),
		}).Create(review).Error
		if err != nil {
			return fmt.Errorf("failed to save review: %w", err)
		}

		if err := tx.Where("product_id = ?", product.ID).Order("created_at DESC").Find(&product.Reviews).Error; err != nil {
			return err
		}
		product.ApplyReviews()

		return tx.Model(&domain.Product{}).Where("id = ?", product.ID).
			Updates(map[string]interface{}{"rating": product.Rating, "review_count": product.ReviewCount}).Error
	})
	if err != nil {
		return domain.Product{}, err
	}

	return product, nil
}
