package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/order/internal/repository"
	"github.com/Alturino/storefront/order/pkg/request"
)

var kgPerCarat = decimal.NewFromInt(20)

// NormalizeOrder builds the persisted record from a structurally valid payload. Carats are derived
// for every item and the totals sent by the client are ignored.
func NormalizeOrder(payload request.OrderPayload, now time.Time) repository.Order {
	totalKg := decimal.Zero
	totalAmount := decimal.Zero
	totalCarats := decimal.Zero

	items := make([]repository.Item, 0, len(payload.Items))
	for _, i := range payload.Items {
		qtyKg := i.QtyKg.Decimal
		price := i.Price.Decimal
		carats := qtyKg.Div(kgPerCarat)

		totalKg = totalKg.Add(qtyKg)
		totalAmount = totalAmount.Add(qtyKg.Mul(price))
		totalCarats = totalCarats.Add(carats)

		items = append(items, repository.Item{
			Sku:    i.Sku.String(),
			Name:   i.Name.String(),
			QtyKg:  qtyKg.InexactFloat64(),
			Price:  price.InexactFloat64(),
			Carats: carats.InexactFloat64(),
		})
	}

	customer := repository.Customer{}
	if payload.Customer != nil {
		customer = repository.Customer{
			Name:    payload.Customer.Name.String(),
			Phone:   payload.Customer.Phone.String(),
			Address: payload.Customer.Address.String(),
		}
	}

	return repository.Order{
		CreatedAt:   now.UTC(),
		ID:          uuid.NewString(),
		Customer:    customer,
		Items:       items,
		TotalKg:     totalKg.InexactFloat64(),
		TotalAmount: totalAmount.InexactFloat64(),
		TotalCarats: totalCarats.InexactFloat64(),
	}
}
