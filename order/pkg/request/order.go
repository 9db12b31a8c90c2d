package request

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Number accepts JSON numbers, numeric strings, booleans and null. Anything that does not parse
// as a number decodes to zero instead of failing the whole payload.
type Number struct {
	decimal.Decimal
}

func NewNumber(value decimal.Decimal) Number {
	return Number{Decimal: value}
}

func NumberFromFloat(value float64) Number {
	return Number{Decimal: decimal.NewFromFloat(value)}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	n.Decimal = decimal.Zero

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		n.Decimal = parseFinite(strings.TrimSpace(raw))
	case 't':
		if string(data) == "true" {
			n.Decimal = decimal.NewFromInt(1)
		}
	case 'f', 'n', '{', '[':
	default:
		n.Decimal = parseFinite(string(data))
	}
	return nil
}

// parseFinite reads value as a float64. Unparsable, NaN, infinite and overflowing values become 0.
func parseFinite(value string) decimal.Decimal {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(parsed)
}

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

// Text decodes any scalar into a trimmed string. null, objects and arrays become "".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		*t = Text(strings.TrimSpace(raw))
	case 'n', '{', '[':
	default:
		*t = Text(strings.TrimSpace(string(data)))
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}

type Customer struct {
	Name    Text `json:"name"`
	Phone   Text `json:"phone"`
	Address Text `json:"address"`
}

func (c Customer) MarshalZerologObject(e *zerolog.Event) {
	e.Str("name", c.Name.String()).
		Str("phone", mask(c.Phone.String())).
		Str("address", mask(c.Address.String()))
}

func mask(value string) string {
	runes := []rune(value)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-2)
}

type Item struct {
	Sku   Text   `json:"sku"`
	Name  Text   `json:"name"`
	Img   Text   `json:"img"`
	QtyKg Number `json:"qtyKg"`
	Price Number `json:"price"`
}

// OrderPayload is the body of POST /order. Totals sent by the client are advisory.
type OrderPayload struct {
	Customer    *Customer `json:"customer"    validate:"required"`
	Items       []Item    `json:"items"       validate:"required,min=1"`
	TotalKg     Number    `json:"totalKg"`
	TotalAmount Number    `json:"totalAmount"`
}

func (p OrderPayload) MarshalZerologObject(e *zerolog.Event) {
	if p.Customer != nil {
		e.Object("customer", p.Customer)
	}
	e.Int("itemCount", len(p.Items)).
		Str("totalKg", p.TotalKg.String()).
		Str("totalAmount", p.TotalAmount.String())
}

type FindRecentOrders struct {
	Limit int64 `validate:"gte=1,lte=100"`
}
