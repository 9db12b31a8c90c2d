package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/order/pkg/response"
)

type Customer struct {
	Name    string `bson:"name"    json:"name"    validate:"required"`
	Phone   string `bson:"phone"   json:"phone"   validate:"required"`
	Address string `bson:"address" json:"address" validate:"required"`
}

type Item struct {
	Sku    string  `bson:"sku"    json:"sku"`
	Name   string  `bson:"name"   json:"name"`
	QtyKg  float64 `bson:"qtyKg"  json:"qtyKg"`
	Price  float64 `bson:"price"  json:"price"`
	Carats float64 `bson:"carats" json:"carats"`
}

// Order is the persisted record. Totals are always computed by the service.
type Order struct {
	CreatedAt   time.Time `bson:"createdAt"   json:"createdAt"   validate:"required"`
	ID          string    `bson:"_id"         json:"id"          validate:"required,uuid4"`
	Customer    Customer  `bson:"customer"    json:"customer"`
	Items       []Item    `bson:"items"       json:"items"       validate:"required,min=1"`
	TotalKg     float64   `bson:"totalKg"     json:"totalKg"`
	TotalAmount float64   `bson:"totalAmount" json:"totalAmount"`
	TotalCarats float64   `bson:"totalCarats" json:"totalCarats"`
}

var validate = validator.New()

// Validate reports ErrSchemaViolation when a required field is missing.
func (o Order) Validate(c context.Context) error {
	if err := validate.StructCtx(c, o); err != nil {
		return fmt.Errorf("%w: %w", inErrors.ErrSchemaViolation, err)
	}
	return nil
}

func (o Order) Response() response.Order {
	items := make([]response.Item, 0, len(o.Items))
	for _, i := range o.Items {
		items = append(items, response.Item{
			Sku:    i.Sku,
			Name:   i.Name,
			QtyKg:  i.QtyKg,
			Price:  i.Price,
			Carats: i.Carats,
		})
	}
	return response.Order{
		CreatedAt: o.CreatedAt,
		ID:        o.ID,
		Customer: response.Customer{
			Name:    o.Customer.Name,
			Phone:   o.Customer.Phone,
			Address: o.Customer.Address,
		},
		Items:       items,
		TotalKg:     o.TotalKg,
		TotalAmount: o.TotalAmount,
		TotalCarats: o.TotalCarats,
	}
}

type OrderRepository interface {
	Ping(c context.Context) error
	InsertOrder(c context.Context, order Order) error
	FindRecentOrders(c context.Context, limit int64) ([]Order, error)
}

var ErrDuplicateOrder = errors.New("order id already exists")
