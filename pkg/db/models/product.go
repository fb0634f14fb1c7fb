package models

import "time"

// Product is the catalog listing as read by the cart. The catalog admin owns
// writes to this table; the cart only ever selects from it.
type Product struct {
	ID                string    `gorm:"column:id;primaryKey"`
	Name              string    `gorm:"column:name;not null"`
	Slug              string    `gorm:"column:slug;not null"`
	ImageURL          string    `gorm:"column:image_url"`
	Unit              string    `gorm:"column:unit"`
	UnitSize          string    `gorm:"column:unit_size"`
	CategoryID        string    `gorm:"column:category_id"`
	Category          *Category `gorm:"foreignKey:CategoryID"`
	MRPCents          int64     `gorm:"column:mrp_cents;not null"`
	SellingPriceCents int64     `gorm:"column:selling_price_cents;not null"`
	MinOrderQty       int       `gorm:"column:min_order_qty;not null;default:1"`
	MaxOrderQty       *int      `gorm:"column:max_order_qty"`
	IsActive          bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (Product) TableName() string { return "products" }

// Category is the catalog grouping a product is listed under.
type Category struct {
	ID   string `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;not null"`
	Slug string `gorm:"column:slug"`
}

func (Category) TableName() string { return "categories" }
