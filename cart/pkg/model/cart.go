package model

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	KEY_CART            = "sdb_cart_v3"
	KEY_CART_UPDATED_AT = "cartUpdatedAt"
	KEY_PENDING_ORDERS  = "pendingOrders"
)

const (
	DISCOUNT_MESSAGE = "🎉 WOW! You received 5% discount!"
	EMPTY_CART       = "Your cart is empty."
)

var (
	discountThresholdKg = decimal.NewFromInt(60)
	discountFactor      = decimal.RequireFromString("0.95")
	kgPerCarat          = decimal.NewFromInt(20)
	caratSkus           = map[string]struct{}{
		"robusta":              {},
		"robusta green banana": {},
	}
)

type CartLine struct {
	Sku   string  `json:"sku"`
	Name  string  `json:"name"`
	Img   string  `json:"img"`
	Price float64 `json:"price"`
	QtyKg float64 `json:"qtyKg"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(l.QtyKg).Mul(decimal.NewFromFloat(l.Price))
}

// Cart maps sku to line. Iteration order carries no meaning, use Lines for a stable order.
type Cart map[string]CartLine

func (c Cart) Lines() []CartLine {
	lines := make([]CartLine, 0, len(c))
	for _, l := range c {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Sku < lines[j].Sku })
	return lines
}

type Totals struct {
	TotalKg         decimal.Decimal
	Subtotal        decimal.Decimal
	TotalAmount     decimal.Decimal
	DiscountMessage string
	TotalItems      int
	Discounted      bool
}

// ComputeTotals sums the cart. Above 60 kg (exclusive) the amount is reduced by 5%.
func ComputeTotals(cart Cart) Totals {
	totals := Totals{
		TotalKg:    decimal.Zero,
		Subtotal:   decimal.Zero,
		TotalItems: len(cart),
	}
	for _, l := range cart {
		totals.TotalKg = totals.TotalKg.Add(decimal.NewFromFloat(l.QtyKg))
		totals.Subtotal = totals.Subtotal.Add(l.LineTotal())
	}
	totals.TotalAmount = totals.Subtotal
	if totals.TotalKg.GreaterThan(discountThresholdKg) {
		totals.TotalAmount = totals.Subtotal.Mul(discountFactor)
		totals.Discounted = true
		totals.DiscountMessage = DISCOUNT_MESSAGE
	}
	return totals
}

func (t Totals) TotalKgText() string {
	return t.TotalKg.String()
}

func (t Totals) TotalAmountText() string {
	return t.TotalAmount.StringFixed(2)
}

func AllowsCarats(sku string) bool {
	_, ok := caratSkus[strings.ToLower(strings.TrimSpace(sku))]
	return ok
}

// CaratLabel is the display label for a line, empty for skus outside the carat list.
func CaratLabel(sku string, qtyKg float64) string {
	if !AllowsCarats(sku) || qtyKg <= 0 {
		return ""
	}
	return FormatCarats(decimal.NewFromFloat(qtyKg).Div(kgPerCarat))
}

func FormatCarats(carats decimal.Decimal) string {
	if carats.IsInteger() {
		unit := "carats"
		if carats.Equal(decimal.NewFromInt(1)) {
			unit = "carat"
		}
		return carats.String() + " " + unit
	}
	return carats.StringFixed(2) + " carats"
}

// CoerceQuantity parses a user supplied quantity. Fractions are truncated, anything non-numeric or
// below 1 becomes 1.
func CoerceQuantity(raw string) int {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 1
	}
	return ClampQuantity(value)
}

func ClampQuantity(value float64) int {
	if value < 1 || math.IsNaN(value) {
		return 1
	}
	if value > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(value)
}
