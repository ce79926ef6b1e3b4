package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tableside/internal/model"
)

// CartRepository is the durable per-table cart cache. One row per table;
// the table id is the key.
type CartRepository interface {
	Load(ctx context.Context, tableID int64) (*model.PendingCart, error)
	Save(ctx context.Context, cart *model.PendingCart) error
	Delete(ctx context.Context, tableID int64) error
	HasItems(ctx context.Context, tableID int64) (bool, error)
}

type cartRepoImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepoImpl{
		db: db,
	}
}

// Load returns nil (no error) when the table has no cached cart.
func (r *cartRepoImpl) Load(ctx context.Context, tableID int64) (*model.PendingCart, error) {
	var cart model.PendingCart
	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart for table %d: %w", tableID, err)
	}
	return &cart, nil
}

// Save upserts the full cart row. The whole cart is always written; there
// are no per-item updates against the cache.
func (r *cartRepoImpl) Save(ctx context.Context, cart *model.PendingCart) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "table_id"}},
			UpdateAll: true,
		}).
		Create(cart).Error
	if err != nil {
		return fmt.Errorf("save cart for table %d: %w", cart.TableID, err)
	}
	return nil
}

func (r *cartRepoImpl) Delete(ctx context.Context, tableID int64) error {
	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Delete(&model.PendingCart{}).Error
	if err != nil {
		return fmt.Errorf("delete cart for table %d: %w", tableID, err)
	}
	return nil
}

// HasItems reports whether the table has a cached cart with at least one
// line. A cart emptied line by line keeps its row until cancel or
// completion; that row does not count.
func (r *cartRepoImpl) HasItems(ctx context.Context, tableID int64) (bool, error) {
	cart, err := r.Load(ctx, tableID)
	if err != nil {
		return false, err
	}
	return cart != nil && !cart.IsEmpty(), nil
}
