package category

import (
	"context"
	"fmt"
	"strings"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
)

// CategoryRepository contract interface
type CategoryRepository interface {
	CountActiveByCategory(ctx context.Context) (map[string]int64, error)
}

type categoryService struct {
	categoryRepo CategoryRepository
}

func NewCategoryService(categoryRepo CategoryRepository) *categoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
	}
}

// GetAllCategories returns an "all" entry followed by every category that
// has at least one active product, in catalog order.
func (s *categoryService) GetAllCategories(ctx context.Context) ([]domain.CategoryCount, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when get all categories")
		return nil, fmt.Errorf("context error: %w", err)
	}

	counts, err := s.categoryRepo.CountActiveByCategory(ctx)
	if err != nil {
		logger.Error("Failed to count categories", err)
		return nil, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	categories := []domain.CategoryCount{{ID: "all", Name: "All", Count: total}}
	for _, c := range domain.Categories {
		n, ok := counts[c]
		if !ok || n == 0 {
			continue
		}
		categories = append(categories, domain.CategoryCount{
			ID:    c,
			Name:  strings.ToUpper(c[:1]) + c[1:],
			Count: n,
		})
	}

	return categories, nil
}
