package grouporders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ErrGroupOrderNotFound is returned when the referenced batch does not exist.
var ErrGroupOrderNotFound = errors.New("group order not found")

// Repository reads group-buy batch deadlines.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetExpiry returns the deadline of the group order in UTC.
func (r *Repository) GetExpiry(ctx context.Context, groupOrderID string) (time.Time, error) {
	groupOrderID = strings.TrimSpace(groupOrderID)
	if groupOrderID == "" {
		return time.Time{}, ErrGroupOrderNotFound
	}

	var row models.GroupOrder
	err := r.db.WithContext(ctx).
		Select("id", "ends_at").
		Where("id = ?", groupOrderID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, ErrGroupOrderNotFound
		}
		return time.Time{}, fmt.Errorf("load group order %s: %w", groupOrderID, err)
	}
	return row.EndsAt.UTC(), nil
}
