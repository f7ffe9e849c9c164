package user

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uint]domain.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]domain.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uint) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.NewError(domain.ErrNotFound, "User not found")
	}
	return u, nil
}

func (r *fakeUserRepo) find(match func(domain.User) bool) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.NewError(domain.ErrNotFound, "User not found")
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) FindByPhone(ctx context.Context, phone string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Phone == phone })
}

func (r *fakeUserRepo) FindAll(ctx context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Deactivate(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.IsActive = false
	r.users[id] = u
	return nil
}

type fakeSessions struct {
	tokens map[string]string
}

func (f *fakeSessions) StoreToken(ctx context.Context, session domain.Session, ttl time.Duration) error {
	f.tokens[session.Token] = session.UserID
	return nil
}

func (f *fakeSessions) ValidateToken(ctx context.Context, token string) (string, error) {
	id, ok := f.tokens[token]
	if !ok {
		return "", errors.New("token not found or expired")
	}
	return id, nil
}

func (f *fakeSessions) RevokeToken(ctx context.Context, userID, token string) error {
	delete(f.tokens, token)
	return nil
}

func newService(repo *fakeUserRepo, sessions SessionRepository) *userService {
	return NewUserService(repo, sessions, utils.NewValidator(), nil, "test-secret", time.Hour)
}

func TestRegister(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo, nil)

	token, user, err := svc.Register(context.Background(), domain.RegisterInput{
		Name:     "  Wanjiru  ",
		Email:    "Wanjiru@Example.com",
		Phone:    "0712345678",
		Password: "secret1",
	}, "127.0.0.1", "test")
	require.NoError(t, err)

	assert.NotEmpty(t, token)
	assert.Equal(t, "Wanjiru", user.Name)
	assert.Equal(t, "wanjiru@example.com", user.Email)
	assert.Equal(t, "254712345678", user.Phone)
	assert.Empty(t, user.Password)
	assert.Equal(t, domain.RoleCustomer, user.Role)

	stored, _ := repo.FindByID(context.Background(), user.ID)
	assert.True(t, utils.CheckPassword("secret1", stored.Password))
}

func TestRegisterDuplicate(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo, nil)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, domain.RegisterInput{Name: "Amina", Email: "amina@example.com", Phone: "254711111111", Password: "Passw0rd"}, "", "")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, domain.RegisterInput{Name: "Amina", Email: "AMINA@example.com", Phone: "254722222222", Password: "Passw0rd"}, "", "")
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, "User already exists with this email", err.Error())

	_, _, err = svc.Register(ctx, domain.RegisterInput{Name: "Other", Email: "other@example.com", Phone: "+254711111111", Password: "Passw0rd"}, "", "")
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, "User already exists with this phone number", err.Error())
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(newFakeUserRepo(), nil)

	tests := []domain.RegisterInput{
		{Name: "A", Email: "a@example.com", Phone: "254711111111", Password: "Passw0rd"},
		{Name: "Amina", Email: "not-an-email", Phone: "254711111111", Password: "Passw0rd"},
		{Name: "Amina", Email: "a@example.com", Phone: "12345", Password: "Passw0rd"},
		{Name: "Amina", Email: "a@example.com", Phone: "254711111111", Password: "short"},
		{Name: "Amina", Email: "a@example.com", Phone: "254711111111", Password: "alllowercase"},
	}

	for _, input := range tests {
		_, _, err := svc.Register(context.Background(), input, "", "")
		assert.True(t, errors.Is(err, domain.ErrValidation), "%+v", input)
	}
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	sessions := &fakeSessions{tokens: map[string]string{}}
	svc := newService(repo, sessions)
	ctx := context.Background()

	_, registered, err := svc.Register(ctx, domain.RegisterInput{Name: "Otieno", Email: "otieno@example.com", Phone: "254733333333", Password: "Secret9"}, "", "")
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@example.com", "Secret9", "", "")
		assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))
		assert.Equal(t, "Invalid credentials", err.Error())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "otieno@example.com", "wrong", "", "")
		assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))
	})

	t.Run("success issues a session", func(t *testing.T) {
		token, user, err := svc.Login(ctx, "OTIENO@example.com", "Secret9", "", "")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)

		id, err := svc.ValidateTokenFromRedis(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "1", id)

		require.NoError(t, svc.Logout(ctx, user.ID, token))
		_, err = svc.ValidateTokenFromRedis(ctx, token)
		assert.Error(t, err)
	})

	t.Run("inactive user", func(t *testing.T) {
		require.NoError(t, svc.DeleteUser(ctx, registered.ID))

		_, _, err := svc.Login(ctx, "otieno@example.com", "Secret9", "", "")
		assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))

		stored, err := repo.FindByID(ctx, registered.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
	})
}

func TestUpdateUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo, nil)
	ctx := context.Background()

	_, a, _ := svc.Register(ctx, domain.RegisterInput{Name: "Amina", Email: "amina@example.com", Phone: "254711111111", Password: "Passw0rd"}, "", "")
	_, b, _ := svc.Register(ctx, domain.RegisterInput{Name: "Baraka", Email: "baraka@example.com", Phone: "254722222222", Password: "Passw0rd"}, "", "")

	updated, err := svc.UpdateUser(ctx, a.ID, domain.UpdateUserInput{Name: "Amina W", Phone: "0799999999"})
	require.NoError(t, err)
	assert.Equal(t, "Amina W", updated.Name)
	assert.Equal(t, "254799999999", updated.Phone)

	_, err = svc.UpdateUser(ctx, a.ID, domain.UpdateUserInput{Email: b.Email})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = svc.UpdateUser(ctx, a.ID, domain.UpdateUserInput{Role: "superuser"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.UpdateUser(ctx, 99, domain.UpdateUserInput{Name: "Ghost"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
