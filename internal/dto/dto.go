package dto

type AddItemRequest struct {
	ProductID         int64  `json:"product_id"`
	Name              string `json:"name"`
	UnitPrice         int64  `json:"unit_price"`
	Delta             int    `json:"delta"`
	ImageRef          string `json:"image_ref,omitempty"`
	AvailabilityLabel string `json:"availability_label,omitempty"`
}

type CheckoutResponse struct {
	OrderID int64 `json:"order_id"`
}

type SelectMethodRequest struct {
	MethodID int64 `json:"method_id"`
}

type PayRequest struct {
	MethodID int64 `json:"method_id"`
}

type TableView struct {
	ID              int64  `json:"id"`
	Number          int    `json:"number"`
	Capacity        int    `json:"capacity"`
	PersistedStatus string `json:"persisted_status"`
	DisplayStatus   string `json:"display_status"`
	Description     string `json:"description,omitempty"`
}
