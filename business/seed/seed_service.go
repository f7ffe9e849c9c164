package seed

import (
	"context"
	"fmt"
	"strings"

	"beverageHub/domain"
	"beverageHub/pkg/config"
	"beverageHub/pkg/logger"
	"beverageHub/pkg/utils"
)

type ProductRepository interface {
	UpsertByName(ctx context.Context, product *domain.Product) (bool, error)
	CountActive(ctx context.Context) (int64, error)
}

type UserRepository interface {
	UpsertByEmail(ctx context.Context, user *domain.User, previousEmail string, resetPassword bool) (bool, error)
}

type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

type SeedService struct {
	productRepo ProductRepository
	userRepo    UserRepository
	demo        config.DemoUserConfig
}

func NewSeedService(productRepo ProductRepository, userRepo UserRepository, demo config.DemoUserConfig) *SeedService {
	return &SeedService{
		productRepo: productRepo,
		userRepo:    userRepo,
		demo:        demo,
	}
}

// SeedProducts upserts the starter catalog by product name. Running it again
// updates the existing rows instead of duplicating them.
func (s *SeedService) SeedProducts(ctx context.Context) (Result, error) {
	var res Result

	for _, p := range sampleProducts() {
		p.IsActive = true
		p.RecalculateTotalStock()

		created, err := s.productRepo.UpsertByName(ctx, &p)
		if err != nil {
			return res, fmt.Errorf("seed product %q: %w", p.Name, err)
		}

		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	logger.Info("Products seeded", "created", res.Created, "updated", res.Updated)

	return res, nil
}

// SeedDemoUser creates the demo account or refreshes its email, phone and
// active flag. The password is only replaced when forceReset is set.
func (s *SeedService) SeedDemoUser(ctx context.Context, forceReset bool) (domain.User, bool, error) {
	hashed, err := utils.HashPassword(s.demo.Password)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("hash demo password: %w", err)
	}

	user := domain.User{
		Name:     s.demo.Name,
		Email:    strings.ToLower(strings.TrimSpace(s.demo.Email)),
		Phone:    utils.NormalizePhone(s.demo.Phone),
		Password: string(hashed),
		Role:     domain.RoleCustomer,
		IsActive: true,
	}

	prev := strings.ToLower(strings.TrimSpace(s.demo.PrevEmail))
	created, err := s.userRepo.UpsertByEmail(ctx, &user, prev, forceReset)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("seed demo user: %w", err)
	}

	logger.Info("Demo user seeded", "email", user.Email, "created", created, "password_reset", forceReset && !created)

	return user, created, nil
}

// SeedIfEmpty seeds the catalog and demo user when there are no active products.
func (s *SeedService) SeedIfEmpty(ctx context.Context) error {
	count, err := s.productRepo.CountActive(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	logger.Info("Catalog is empty, seeding starter data")

	if _, err := s.SeedProducts(ctx); err != nil {
		return err
	}

	_, _, err = s.SeedDemoUser(ctx, s.demo.ForceReset)
	return err
}
