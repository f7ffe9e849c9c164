package domain

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	Name          string              `gorm:"column:name;not null" json:"name"`
	Email         string              `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Phone         string              `gorm:"column:phone;uniqueIndex;not null" json:"phone"`
	Password      string              `gorm:"column:password;not null" json:"-"`
	Role          string              `gorm:"column:role;default:customer" json:"role"`
	IsActive      bool                `gorm:"column:is_active;default:true" json:"is_active"`
	WalletBalance float64             `gorm:"column:wallet_balance;type:numeric(14,2);default:0" json:"wallet_balance"`
	Transactions  []WalletTransaction `gorm:"foreignKey:UserID" json:"-"`
	Favorites     []Product           `gorm:"many2many:user_favorites;" json:"favorites,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Session is the server-side record of an issued token.
type Session struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type UpdateUserInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
	IsActive *bool
}
