package domain

import (
	"math"
	"time"
)

const (
	CategoryWater  = "water"
	CategorySoda   = "soda"
	CategoryJuice  = "juice"
	CategoryEnergy = "energy"
	CategoryTea    = "tea"
	CategoryCoffee = "coffee"
)

// Categories lists the product categories in display order.
var Categories = []string{
	CategoryWater,
	CategorySoda,
	CategoryJuice,
	CategoryEnergy,
	CategoryTea,
	CategoryCoffee,
}

func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// CREATE INDEX idx_products_search ON products
//     USING GIN (to_tsvector('english', name || ' ' || brand || ' ' || coalesce(description, '')));

type Product struct {
	ID          uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string             `gorm:"column:name;type:varchar(200);uniqueIndex;not null" json:"name"`
	Description string             `gorm:"column:description;type:varchar(1000)" json:"description"`
	Category    string             `gorm:"column:category;type:varchar(20);not null;index:idx_products_category_active,priority:1" json:"category"`
	Brand       string             `gorm:"column:brand;type:varchar(100);not null" json:"brand"`
	BasePrice   float64            `gorm:"column:base_price;type:numeric(12,2);not null" json:"base_price"`
	Image       string             `gorm:"column:image;type:text" json:"image"`
	Rating      float64            `gorm:"column:rating;type:numeric(2,1);default:0;index:idx_products_active_rating,priority:2" json:"rating"`
	ReviewCount int                `gorm:"column:review_count;default:0" json:"review_count"`
	IsActive    bool               `gorm:"column:is_active;default:true;index:idx_products_category_active,priority:2;index:idx_products_active_rating,priority:1;index:idx_products_active_created,priority:1" json:"is_active"`
	TotalStock  int                `gorm:"column:total_stock;default:0" json:"total_stock"`
	Variations  []ProductVariation `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variations"`
	Packets     []ProductPacket    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"packets"`
	Reviews     []ProductReview    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
	CreatedAt   time.Time          `gorm:"column:created_at;index:idx_products_active_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"column:updated_at" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

type ProductVariation struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ProductID uint    `gorm:"column:product_id;not null;index" json:"product_id"`
	Size      string  `gorm:"column:size;not null" json:"size"`
	Price     float64 `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock     int     `gorm:"column:stock;default:0" json:"stock"`
}

func (ProductVariation) TableName() string {
	return "product_variations"
}

type ProductPacket struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	ProductID      uint    `gorm:"column:product_id;not null;index" json:"product_id"`
	PacketType     string  `gorm:"column:packet_type;not null" json:"packet_type"`
	UnitsPerPacket int     `gorm:"column:units_per_packet;not null" json:"units_per_packet"`
	Size           string  `gorm:"column:size;not null" json:"size"`
	PricePerPacket float64 `gorm:"column:price_per_packet;type:numeric(12,2);not null" json:"price_per_packet"`
	Savings        float64 `gorm:"column:savings;type:numeric(12,2);default:0" json:"savings"`
	Stock          int     `gorm:"column:stock;default:0" json:"stock"`
}

func (ProductPacket) TableName() string {
	return "product_packets"
}

type ProductReview struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"column:product_id;not null;uniqueIndex:idx_reviews_product_user,priority:1" json:"product_id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_reviews_product_user,priority:2" json:"user_id"`
	Rating    int       `gorm:"column:rating;not null" json:"rating"`
	Comment   string    `gorm:"column:comment;type:varchar(500)" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProductReview) TableName() string {
	return "product_reviews"
}

// RecalculateTotalStock must be called whenever variations or packets change.
func (p *Product) RecalculateTotalStock() {
	total := 0
	for _, v := range p.Variations {
		total += v.Stock
	}
	for _, pk := range p.Packets {
		total += pk.Stock * pk.UnitsPerPacket
	}
	p.TotalStock = total
}

// ApplyReviews sets Rating to the mean review rating rounded to one decimal
// and ReviewCount to the number of reviews.
func (p *Product) ApplyReviews() {
	if len(p.Reviews) == 0 {
		p.Rating = 0
		p.ReviewCount = 0
		return
	}

	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = math.Round(float64(sum)/float64(len(p.Reviews))*10) / 10
	p.ReviewCount = len(p.Reviews)
}

func (p *Product) FindVariation(id uint) (ProductVariation, bool) {
	for _, v := range p.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return ProductVariation{}, false
}

func (p *Product) FindPacket(id uint) (ProductPacket, bool) {
	for _, pk := range p.Packets {
		if pk.ID == id {
			return pk, true
		}
	}
	return ProductPacket{}, false
}

const (
	SortByCreatedAt = "createdAt"
	SortByBasePrice = "basePrice"
	SortByRating    = "rating"
	SortByName      = "name"
)

// ProductFilter holds the catalog listing query.
type ProductFilter struct {
	Category  string
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Normalize applies listing defaults and clamps.
func (f *ProductFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 12
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	switch f.SortBy {
	case SortByCreatedAt, SortByBasePrice, SortByRating, SortByName:
	default:
		f.SortBy = SortByCreatedAt
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
	if f.Category == "all" {
		f.Category = ""
	}
}

type ProductPage struct {
	Products   []Product `json:"products"`
	Pagination PageInfo  `json:"pagination"`
}

type PageInfo struct {
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int   `json:"totalPages"`
	TotalProducts int64 `json:"totalProducts"`
	HasNext       bool  `json:"hasNext"`
	HasPrev       bool  `json:"hasPrev"`
}
