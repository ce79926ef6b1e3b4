package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tableside/internal/apperr"
	"tableside/internal/config"
	"tableside/internal/model"
)

// OrderServiceClient is the remote order service. It owns the authoritative
// OrderRecord and table state; this process only caches carts locally.
type OrderServiceClient interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)
	UpdateOrder(ctx context.Context, orderID int64, patch *OrderPatch) error
	SyncItems(ctx context.Context, orderID int64, items []ItemRef) error
	GetOrder(ctx context.Context, orderID int64) (*model.OrderRecord, error)
	GetTable(ctx context.Context, tableID int64) (*model.Table, error)
	ListTables(ctx context.Context) ([]model.Table, error)
	UpdateTable(ctx context.Context, tableID int64, patch *TablePatch) error
	ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error)
}

type CreateOrderRequest struct {
	TableID      int64     `json:"table"`
	UserID       string    `json:"user"`
	Capacity     int       `json:"capacity"`
	Name         string    `json:"name"`
	Date         time.Time `json:"date"`
	TotalPayment int64     `json:"totalPayment"`
}

type CreateOrderResponse struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrderPatch is a partial update; nil fields are left untouched server-side.
type OrderPatch struct {
	Status          *model.OrderState `json:"status,omitempty"`
	PaymentMethodID *int64            `json:"paymentMethodId,omitempty"`
	DepositStatus   *string           `json:"depositStatus,omitempty"`
	TotalPayment    *int64            `json:"totalPayment,omitempty"`
}

type TablePatch struct {
	Status      *model.TableStatus `json:"status,omitempty"`
	StartTime   *time.Time         `json:"startTime,omitempty"`
	EndTime     *time.Time         `json:"endTime,omitempty"`
	Description *string            `json:"description,omitempty"`
}

// ItemRef is the wire form of an order line. Item syncs always carry the
// full current list; the service replaces its state wholesale.
type ItemRef struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type orderServiceClientImpl struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewOrderServiceClient(cfg *config.OrderService) OrderServiceClient {
	return &orderServiceClientImpl{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

func (c *orderServiceClientImpl) do(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperr.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &apperr.AuthError{Op: op}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apperr.BackendError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Msg:        readErrorMessage(resp.Body),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}

// readErrorMessage extracts the service's message field, falling back to the
// raw body.
func readErrorMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return string(b)
}

func (c *orderServiceClientImpl) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	var resp CreateOrderResponse
	if err := c.do(ctx, "create order", http.MethodPost, "/orders", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *orderServiceClientImpl) UpdateOrder(ctx context.Context, orderID int64, patch *OrderPatch) error {
	return c.do(ctx, "update order", http.MethodPatch, fmt.Sprintf("/orders/%d", orderID), patch, nil)
}

func (c *orderServiceClientImpl) SyncItems(ctx context.Context, orderID int64, items []ItemRef) error {
	payload := map[string][]ItemRef{"items": items}
	return c.do(ctx, "sync items", http.MethodPut, fmt.Sprintf("/orders/%d/items", orderID), payload, nil)
}

func (c *orderServiceClientImpl) GetOrder(ctx context.Context, orderID int64) (*model.OrderRecord, error) {
	var order model.OrderRecord
	if err := c.do(ctx, "get order", http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *orderServiceClientImpl) GetTable(ctx context.Context, tableID int64) (*model.Table, error) {
	var table model.Table
	if err := c.do(ctx, "get table", http.MethodGet, fmt.Sprintf("/tables/%d", tableID), nil, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

func (c *orderServiceClientImpl) ListTables(ctx context.Context) ([]model.Table, error) {
	var tables []model.Table
	if err := c.do(ctx, "list tables", http.MethodGet, "/tables", nil, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func (c *orderServiceClientImpl) UpdateTable(ctx context.Context, tableID int64, patch *TablePatch) error {
	return c.do(ctx, "update table", http.MethodPatch, fmt.Sprintf("/tables/%d", tableID), patch, nil)
}

func (c *orderServiceClientImpl) ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	var methods []model.PaymentMethod
	if err := c.do(ctx, "list payment methods", http.MethodGet, "/payment-methods", nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}
