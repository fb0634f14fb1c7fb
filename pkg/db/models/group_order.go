package models

import "time"

// GroupOrder is a group-buy batch; EndsAt is the deadline stamped onto cart lines.
type GroupOrder struct {
	ID        string    `gorm:"column:id;primaryKey"`
	ProductID string    `gorm:"column:product_id;not null"`
	Status    string    `gorm:"column:status;not null"`
	EndsAt    time.Time `gorm:"column:ends_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (GroupOrder) TableName() string { return "group_orders" }
