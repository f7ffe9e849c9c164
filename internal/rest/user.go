package rest

import (
	"context"
	"net/http"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
	jsonres "beverageHub/pkg/response"
	"beverageHub/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type UserService interface {
	Register(ctx context.Context, input domain.RegisterInput, ipAddress, userAgent string) (string, domain.User, error)
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (string, domain.User, error)
	Logout(ctx context.Context, userID uint, token string) error
	GetUserByID(ctx context.Context, id uint) (domain.User, error)
	GetAllUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, id uint, updateData domain.UpdateUserInput) (domain.User, error)
	DeleteUser(ctx context.Context, id uint) error
}

type UserHandler struct {
	userService UserService
	validator   *validator.Validate
	timeout     time.Duration
}

func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
		validator:   utils.NewValidator(),
		timeout:     10 * time.Second,
	}
}

type UserRegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,ke_phone"`
	Password string `json:"password" validate:"required,min=6,password_strength"`
}

type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserUpdateRequest struct {
	Name     string `json:"name,omitempty" validate:"omitempty,min=2"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,ke_phone"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6,password_strength"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=customer admin"`
	IsActive *bool  `json:"is_active,omitempty"`
}

func (h *UserHandler) Register(c echo.Context) error {
	var reqUser UserRegisterRequest

	if err := c.Bind(&reqUser); err != nil {
		logger.Error("Invalid request body", err)
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Struct(&reqUser); err != nil {
		logger.Warn("Failed to validate user register", err)
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	token, user, err := h.userService.Register(ctx, domain.RegisterInput{
		Name:     reqUser.Name,
		Email:    reqUser.Email,
		Phone:    reqUser.Phone,
		Password: reqUser.Password,
	}, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		logger.Warn("Failed to register user", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, jsonres.Success("User registered successfully", map[string]interface{}{
		"token": token,
		"user":  user,
	}))
}

func (h *UserHandler) Login(c echo.Context) error {
	var reqUser UserLoginRequest

	if err := c.Bind(&reqUser); err != nil {
		logger.Error("Failed to bind request", err)
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Struct(&reqUser); err != nil {
		logger.Warn("Failed to validate user login", err)
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	// get ip address and user agent
	ipAddress := c.RealIP()
	userAgent := c.Request().UserAgent()

	token, user, err := h.userService.Login(ctx, reqUser.Email, reqUser.Password, ipAddress, userAgent)
	if err != nil {
		logger.Warn("Failed to login with user", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Login successful", map[string]interface{}{
		"token": token,
		"user":  user,
	}))
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	user, err := h.userService.GetUserByID(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("User profile", map[string]interface{}{
		"user": user,
	}))
}

// Logout revokes the token the request was authenticated with.
func (h *UserHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	token, ok := c.Get("token").(string)
	if !ok {
		logger.Error("Failed to get token from context")
		return unauthorized(c)
	}

	if err := h.userService.Logout(ctx, userID, token); err != nil {
		logger.Error("Failed to logout user", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Logout successful", nil))
}

func (h *UserHandler) GetAllUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	users, err := h.userService.GetAllUsers(ctx)
	if err != nil {
		logger.Error("Failed to get all users", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Users retrieved successfully", map[string]interface{}{
		"users": users,
	}))
}

func (h *UserHandler) GetUserByID(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	user, err := h.userService.GetUserByID(ctx, id)
	if err != nil {
		logger.Warn("Failed to get user by id", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("User retrieved successfully", map[string]interface{}{
		"user": user,
	}))
}

// UpdateUser lets users edit their own profile. Role and active flag can
// only be changed by an admin.
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	_, role, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req UserUpdateRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid request body", err)
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Warn("Failed to validate user update", err)
		return badRequest(c, validationMessage(err))
	}

	if role != domain.RoleAdmin && (req.Role != "" || req.IsActive != nil) {
		return writeError(c, domain.NewError(domain.ErrForbidden, "Only admins can change role or account status"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	user, err := h.userService.UpdateUser(ctx, id, domain.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		logger.Warn("Failed to update user", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("User updated successfully", map[string]interface{}{
		"user": user,
	}))
}

// DeleteUser deactivates the account.
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.userService.DeleteUser(ctx, id); err != nil {
		logger.Warn("Failed to delete user", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("User deactivated successfully", nil))
}
