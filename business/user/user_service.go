package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
	"beverageHub/pkg/utils"

	"github.com/go-playground/validator/v10"
)

// UserRepository contract interface
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByPhone(ctx context.Context, phone string) (domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Deactivate(ctx context.Context, id uint) error
}

// SessionRepository contract interface
type SessionRepository interface {
	StoreToken(ctx context.Context, session domain.Session, ttl time.Duration) error
	ValidateToken(ctx context.Context, token string) (string, error)
	RevokeToken(ctx context.Context, userID, token string) error
}

// NotificationRepository contract interface
type NotificationRepository interface {
	SendEmail(toName, toEmail, subject, message string) (err error)
}

type userService struct {
	userRepo    UserRepository
	sessionRepo SessionRepository
	validate    *validator.Validate
	notifRepo   NotificationRepository
	jwtSecret   string
	tokenTTL    time.Duration
}

const (
	SubjectWelcome   = "Welcome to BeverageHub!"
	EmailBodyWelcome = `Hi %v,</br></br>Your BeverageHub account is ready. Top up your wallet with M-Pesa and enjoy fast delivery.`
)

// NewUserService wires the account service. sessionRepo and notifRepo may be nil.
func NewUserService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	validate *validator.Validate,
	notifRepo NotificationRepository,
	jwtSecret string,
	tokenTTL time.Duration,
) *userService {
	return &userService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		validate:    validate,
		notifRepo:   notifRepo,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
	}
}

var validRoles = map[string]bool{
	domain.RoleCustomer: true,
	domain.RoleAdmin:    true,
}

func (s *userService) Register(ctx context.Context, input domain.RegisterInput, ipAddress, userAgent string) (string, domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	phone := utils.NormalizePhone(input.Phone)

	if len(name) < 2 {
		return "", domain.User{}, domain.NewError(domain.ErrValidation, "Name must be at least 2 characters")
	}

	if err := s.validate.Var(email, "required,email"); err != nil {
		logger.Error("Invalid email format", err)
		return "", domain.User{}, domain.NewError(domain.ErrValidation, "Valid email is required")
	}

	if !utils.IsValidMsisdn(phone) {
		return "", domain.User{}, domain.NewError(domain.ErrValidation, "Valid Kenyan phone number required (254XXXXXXXXX)")
	}

	if err := s.validate.Var(input.Password, "required,min=6,password_strength"); err != nil {
		logger.Error("Invalid user password", err)
		return "", domain.User{}, domain.NewError(domain.ErrValidation, "Password must be at least 6 characters and contain an uppercase letter or a number")
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return "", domain.User{}, domain.NewError(domain.ErrConflict, "User already exists with this email")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", domain.User{}, err
	}

	if _, err := s.userRepo.FindByPhone(ctx, phone); err == nil {
		return "", domain.User{}, domain.NewError(domain.ErrConflict, "User already exists with this phone number")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", domain.User{}, err
	}

	passwordHash, err := utils.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err)
		return "", domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := domain.User{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Password: string(passwordHash),
		Role:     domain.RoleCustomer,
		IsActive: true,
	}

	if err := s.userRepo.Create(ctx, &newUser); err != nil {
		logger.Error("Failed to create new user", err)
		return "", domain.User{}, err
	}

	if s.notifRepo != nil {
		if err := s.notifRepo.SendEmail(newUser.Name, newUser.Email, SubjectWelcome, fmt.Sprintf(EmailBodyWelcome, newUser.Name)); err != nil {
			logger.Warn("Failed to send welcome email", err)
		}
	}

	token, err := s.issueToken(ctx, newUser, ipAddress, userAgent)
	if err != nil {
		return "", domain.User{}, err
	}

	newUser.Password = ""
	return token, newUser, nil
}

func (s *userService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (string, domain.User, error) {
	invalid := domain.NewError(domain.ErrInvalidCredentials, "Invalid credentials")

	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Login attempt for unknown email")
			return "", domain.User{}, invalid
		}
		return "", domain.User{}, err
	}

	if !user.IsActive {
		logger.Warn("Login attempt for inactive user", "user_id", user.ID)
		return "", domain.User{}, invalid
	}

	if !utils.CheckPassword(password, user.Password) {
		logger.Warn("User password incorrect", "user_id", user.ID)
		return "", domain.User{}, invalid
	}

	token, err := s.issueToken(ctx, user, ipAddress, userAgent)
	if err != nil {
		return "", domain.User{}, err
	}

	user.Password = ""
	return token, user, nil
}

func (s *userService) issueToken(ctx context.Context, user domain.User, ipAddress, userAgent string) (string, error) {
	userIdStr := strconv.FormatUint(uint64(user.ID), 10)
	token, err := utils.GenerateJWT(s.jwtSecret, userIdStr, user.Role, s.tokenTTL)
	if err != nil {
		logger.Error("Failed to generated token", err)
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if s.sessionRepo != nil {
		now := time.Now()
		err := s.sessionRepo.StoreToken(ctx, domain.Session{
			UserID:    userIdStr,
			Role:      user.Role,
			Token:     token,
			IssuedAt:  now,
			ExpiresAt: now.Add(s.tokenTTL),
			IPAddress: ipAddress,
			UserAgent: userAgent,
		}, s.tokenTTL)
		if err != nil {
			logger.Error("Failed to store session", err)
			return "", err
		}
	}

	return token, nil
}

// ValidateTokenFromRedis returns the user id the session belongs to.
func (s *userService) ValidateTokenFromRedis(ctx context.Context, token string) (string, error) {
	if s.sessionRepo == nil {
		return "", errors.New("session store is not configured")
	}
	return s.sessionRepo.ValidateToken(ctx, token)
}

func (s *userService) Logout(ctx context.Context, userID uint, token string) error {
	if s.sessionRepo == nil {
		return nil
	}

	if err := s.sessionRepo.RevokeToken(ctx, strconv.FormatUint(uint64(userID), 10), token); err != nil {
		logger.Error("Failed to revoke session", err)
		return err
	}

	return nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("Failed to get user by ID", err)
		return domain.User{}, err
	}

	user.Password = ""
	return user, nil
}

// GetAllUsers retrieves all users
func (s *userService) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		logger.Error("Failed to get all users", err)
		return nil, err
	}

	for i := range users {
		users[i].Password = ""
	}

	return users, nil
}

// UpdateUser updates profile fields. Role and active flag are admin-only;
// the handler decides whether to pass them.
func (s *userService) UpdateUser(ctx context.Context, id uint, updateData domain.UpdateUserInput) (domain.User, error) {
	existingUser, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("User not found for update", err)
		return domain.User{}, err
	}

	if name := strings.TrimSpace(updateData.Name); name != "" {
		if len(name) < 2 {
			return domain.User{}, domain.NewError(domain.ErrValidation, "Name must be at least 2 characters")
		}
		existingUser.Name = name
	}

	if updateData.Email != "" {
		email := strings.ToLower(strings.TrimSpace(updateData.Email))
		if err := s.validate.Var(email, "required,email"); err != nil {
			logger.Error("Invalid email format", err)
			return domain.User{}, domain.NewError(domain.ErrValidation, "Valid email is required")
		}

		userWithEmail, err := s.userRepo.FindByEmail(ctx, email)
		if err == nil && userWithEmail.ID != id {
			return domain.User{}, domain.NewError(domain.ErrConflict, "User already exists with this email")
		}
		existingUser.Email = email
	}

	if updateData.Phone != "" {
		phone := utils.NormalizePhone(updateData.Phone)
		if !utils.IsValidMsisdn(phone) {
			return domain.User{}, domain.NewError(domain.ErrValidation, "Valid Kenyan phone number required (254XXXXXXXXX)")
		}

		userWithPhone, err := s.userRepo.FindByPhone(ctx, phone)
		if err == nil && userWithPhone.ID != id {
			return domain.User{}, domain.NewError(domain.ErrConflict, "User already exists with this phone number")
		}
		existingUser.Phone = phone
	}

	if updateData.Password != "" {
		if err := s.validate.Var(updateData.Password, "min=6,password_strength"); err != nil {
			return domain.User{}, domain.NewError(domain.ErrValidation, "Password must be at least 6 characters and contain an uppercase letter or a number")
		}

		passwordHash, err := utils.HashPassword(updateData.Password)
		if err != nil {
			logger.Error("Failed to hash password", err)
			return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		existingUser.Password = string(passwordHash)
	}

	if updateData.Role != "" {
		if !validRoles[updateData.Role] {
			return domain.User{}, domain.NewError(domain.ErrValidation, "Invalid role")
		}
		existingUser.Role = updateData.Role
	}

	if updateData.IsActive != nil {
		existingUser.IsActive = *updateData.IsActive
	}

	if err := s.userRepo.Update(ctx, &existingUser); err != nil {
		logger.Error("Failed to update user", err)
		return domain.User{}, err
	}

	existingUser.Password = ""
	return existingUser, nil
}

// DeleteUser deactivates a user; accounts are never removed.
func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	if _, err := s.userRepo.FindByID(ctx, id); err != nil {
		logger.Error("User not found for deletion", err)
		return err
	}

	if err := s.userRepo.Deactivate(ctx, id); err != nil {
		logger.Error("Failed to deactivate user", err)
		return err
	}

	return nil
}
