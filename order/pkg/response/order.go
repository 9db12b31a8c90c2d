package response

import "time"

const (
	MESSAGE_ORDER_SAVED         = "Order placed successfully! We will contact you shortly."
	MESSAGE_ORDER_NOT_PERSISTED = "Order received, but it could not be saved right now (database not connected). Please keep a copy or contact us."
	MESSAGE_INVALID_PAYLOAD     = "Invalid order payload"
	MESSAGE_SAVE_FAILED         = "Server error, could not save order"
	MESSAGE_INTERNAL_ERROR      = "Internal Server Error"
)

// Acknowledgement answers POST /order. Success means accepted, Persisted means durably stored.
type Acknowledgement struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Persisted bool   `json:"persisted"`
}

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Item struct {
	Sku    string  `json:"sku"`
	Name   string  `json:"name"`
	QtyKg  float64 `json:"qtyKg"`
	Price  float64 `json:"price"`
	Carats float64 `json:"carats"`
}

type Order struct {
	CreatedAt   time.Time `json:"createdAt"`
	ID          string    `json:"id"`
	Customer    Customer  `json:"customer"`
	Items       []Item    `json:"items"`
	TotalKg     float64   `json:"totalKg"`
	TotalAmount float64   `json:"totalAmount"`
	TotalCarats float64   `json:"totalCarats"`
}

type Orders struct {
	Success bool    `json:"success"`
	Orders  []Order `json:"orders"`
}

type Health struct {
	Database string `json:"database"`
	Breaker  string `json:"breaker"`
}
