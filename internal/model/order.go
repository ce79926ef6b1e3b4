package model

import "time"

// OrderRecord is the remote, authoritative representation of a placed order.
// It is never deleted, only transitioned to a terminal status.
type OrderRecord struct {
	ID              int64      `json:"id"`
	TableID         int64      `json:"table_id"`
	UserID          string     `json:"user_id"`
	Status          OrderState `json:"status"`
	PaymentMethodID *int64     `json:"payment_method_id,omitempty"`
	DepositStatus   string     `json:"deposit_status"`
	TotalPayment    int64      `json:"total_payment"`
	CreatedAt       time.Time  `json:"created_at"`
}

type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableUnavailable TableStatus = "unavailable"
)

type Table struct {
	ID          int64       `json:"id"`
	Number      int         `json:"number"`
	Capacity    int         `json:"capacity"`
	Status      TableStatus `json:"status"`
	StartTime   *time.Time  `json:"start_time,omitempty"`
	EndTime     *time.Time  `json:"end_time,omitempty"`
	Description string      `json:"description,omitempty"`
}

type PaymentMethod struct {
	ID             int64  `json:"id"`
	Label          string `json:"label"`
	IsActive       bool   `json:"is_active"`
	IsAsynchronous bool   `json:"is_asynchronous"`
}
