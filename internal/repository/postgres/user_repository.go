package postgres

import (
	"context"
	"errors"
	"time"

	"beverageHub/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		DB: db,
	}
}

var errUserNotFound = domain.NewError(domain.ErrNotFound, "User not found")

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := r.DB.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewError(domain.ErrConflict, "User already exists")
		}
		return err
	}

	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (domain.User, error) {
	var user domain.User

	err := r.DB.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, errUserNotFound
		}
		return domain.User{}, err
	}

	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User

	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, errUserNotFound
		}
		return domain.User{}, err
	}

	return user, nil
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (domain.User, error) {
	var user domain.User

	err := r.DB.WithContext(ctx).Where("phone = ?", phone).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, errUserNotFound
		}
		return domain.User{}, err
	}

	return user, nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	var users []domain.User

	if err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

// Update writes profile columns only; wallet_balance is owned by the wallet
// and order repositories.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now()

	result := r.DB.WithContext(ctx).Model(&domain.User{}).Where("id = ?", user.ID).
		Select("name", "email", "phone", "password", "role", "is_active", "updated_at").
		Updates(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.NewError(domain.ErrConflict, "User already exists")
		}
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errUserNotFound
	}

	return nil
}

func (r *UserRepository) Deactivate(ctx context.Context, id uint) error {
	result := r.DB.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errUserNotFound
	}

	return nil
}

// UpsertByEmail creates the user or, when one with the same email (or
// previousEmail) exists, refreshes its profile. The password hash is only
// replaced when resetPassword is set.
func (r *UserRepository) UpsertByEmail(ctx context.Context, user *domain.User, previousEmail string, resetPassword bool) (bool, error) {
	created := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.User
		q := tx.Where("email = ?", user.Email)
		if previousEmail != "" {
			q = tx.Where("email IN ?", []string{user.Email, previousEmail})
		}

		err := q.Order("id").First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			return tx.Create(user).Error
		}
		if err != nil {
			return err
		}

		columns := []string{"name", "email", "phone", "role", "is_active", "updated_at"}
		if resetPassword {
			columns = append(columns, "password")
		} else {
			user.Password = existing.Password
		}

		user.ID = existing.ID
		user.UpdatedAt = time.Now()
		return tx.Model(&domain.User{}).Where("id = ?", existing.ID).Select(columns).Updates(user).Error
	})

	return created, err
}
