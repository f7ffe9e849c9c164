package seed

import (
	"context"
	"testing"

	"beverageHub/domain"
	"beverageHub/pkg/config"
	"beverageHub/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducts struct {
	byName map[string]domain.Product
	nextID uint
}

func (f *fakeProducts) UpsertByName(ctx context.Context, p *domain.Product) (bool, error) {
	if existing, ok := f.byName[p.Name]; ok {
		p.ID = existing.ID
		f.byName[p.Name] = *p
		return false, nil
	}
	f.nextID++
	p.ID = f.nextID
	f.byName[p.Name] = *p
	return true, nil
}

func (f *fakeProducts) CountActive(ctx context.Context) (int64, error) {
	return int64(len(f.byName)), nil
}

type fakeUsers struct {
	byEmail map[string]domain.User
}

func (f *fakeUsers) UpsertByEmail(ctx context.Context, u *domain.User, previousEmail string, resetPassword bool) (bool, error) {
	existing, ok := f.byEmail[u.Email]
	if !ok && previousEmail != "" {
		existing, ok = f.byEmail[previousEmail]
		delete(f.byEmail, previousEmail)
	}
	if !ok {
		u.ID = uint(len(f.byEmail) + 1)
		f.byEmail[u.Email] = *u
		return true, nil
	}
	if !resetPassword {
		u.Password = existing.Password
	}
	u.ID = existing.ID
	f.byEmail[u.Email] = *u
	return false, nil
}

func demoConfig() config.DemoUserConfig {
	return config.DemoUserConfig{
		Name:     "Demo User",
		Email:    "Demo@Beverage.local",
		Phone:    "0700000000",
		Password: "demopassword",
	}
}

func TestSeedProductsIsIdempotent(t *testing.T) {
	products := &fakeProducts{byName: map[string]domain.Product{}}
	svc := NewSeedService(products, &fakeUsers{byEmail: map[string]domain.User{}}, demoConfig())

	first, err := svc.SeedProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 8}, first)

	second, err := svc.SeedProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: 8}, second)

	assert.Len(t, products.byName, 8)

	cola := products.byName["Coca-Cola"]
	assert.True(t, cola.IsActive)
	assert.Equal(t, 330+50*6+30*12+40*6, cola.TotalStock)
}

func TestSeedDemoUser(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]domain.User{}}
	svc := NewSeedService(&fakeProducts{byName: map[string]domain.Product{}}, users, demoConfig())
	ctx := context.Background()

	user, created, err := svc.SeedDemoUser(ctx, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "demo@beverage.local", user.Email)
	assert.Equal(t, "254700000000", user.Phone)
	assert.True(t, utils.CheckPassword("demopassword", user.Password))
	originalHash := user.Password

	again, created, err := svc.SeedDemoUser(ctx, false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, originalHash, users.byEmail["demo@beverage.local"].Password)
	assert.Len(t, users.byEmail, 1)

	reset, _, err := svc.SeedDemoUser(ctx, true)
	require.NoError(t, err)
	assert.NotEqual(t, originalHash, reset.Password)
	assert.True(t, utils.CheckPassword("demopassword", reset.Password))
}

func TestSeedDemoUserMovesPreviousEmail(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]domain.User{
		"old@beverage.local": {ID: 5, Email: "old@beverage.local", Password: "old-hash"},
	}}
	cfg := demoConfig()
	cfg.PrevEmail = "old@beverage.local"
	svc := NewSeedService(&fakeProducts{byName: map[string]domain.Product{}}, users, cfg)

	user, created, err := svc.SeedDemoUser(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint(5), user.ID)
	assert.Equal(t, "old-hash", user.Password)
	assert.NotContains(t, users.byEmail, "old@beverage.local")
}

func TestSeedIfEmpty(t *testing.T) {
	products := &fakeProducts{byName: map[string]domain.Product{}}
	users := &fakeUsers{byEmail: map[string]domain.User{}}
	svc := NewSeedService(products, users, demoConfig())

	require.NoError(t, svc.SeedIfEmpty(context.Background()))
	assert.Len(t, products.byName, 8)
	assert.Len(t, users.byEmail, 1)

	products.byName["Coca-Cola"] = domain.Product{ID: 1, Name: "Coca-Cola", Description: "changed"}
	require.NoError(t, svc.SeedIfEmpty(context.Background()))
	assert.Equal(t, "changed", products.byName["Coca-Cola"].Description)
}
