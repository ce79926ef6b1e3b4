package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type CartItem struct {
	ProductID         int64  `json:"id"`
	Name              string `json:"name"`
	UnitPrice         int64  `json:"price"`
	Quantity          int    `json:"quantity"`
	ImageRef          string `json:"imageRef,omitempty"`
	AvailabilityLabel string `json:"availabilityLabel,omitempty"`
}

// CartItems is stored as a JSON text column in the cart cache.
// There is no schema version field; the format is append-only.
type CartItems []CartItem

func (items CartItems) Value() (driver.Value, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart items: %w", err)
	}
	return string(b), nil
}

func (items *CartItems) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, items)
	case string:
		return json.Unmarshal([]byte(v), items)
	case nil:
		*items = nil
		return nil
	default:
		return fmt.Errorf("unsupported cart items column type %T", src)
	}
}

// PendingCart is the durable, per-table representation of an order in
// progress. At most one exists per table; it is authoritative for the item
// list until the next successful sync against the remote order record.
type PendingCart struct {
	TableID     int64     `gorm:"primaryKey" json:"tableId"`
	OrderID     *int64    `gorm:"index" json:"orderId,omitempty"`
	Items       CartItems `gorm:"type:text;not null" json:"items"`
	TotalAmount int64     `gorm:"not null" json:"totalAmount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"-"`
}

// Recompute derives TotalAmount from the items. TotalAmount is never stored
// independently of the item list.
func (c *PendingCart) Recompute() {
	var total int64
	for _, it := range c.Items {
		total += it.UnitPrice * int64(it.Quantity)
	}
	c.TotalAmount = total
}

func (c *PendingCart) IsEmpty() bool { return len(c.Items) == 0 }

// FindItem returns the index of the line for productID, or -1.
func (c *PendingCart) FindItem(productID int64) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}
