package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Alturino/storefront/cart/pkg/model"
)

const shareBaseURL = "https://wa.me/"

// BuildShareText formats the cart as a plain text order for a messaging app. It reads the cart
// and nothing else.
func (s *CartService) BuildShareText(c context.Context, details CustomerDetails) string {
	return ShareText(s.repository.Load(c), details)
}

// ShareLink wraps the share text in a messaging deep link.
func (s *CartService) ShareLink(c context.Context, details CustomerDetails) string {
	return ShareLink(s.shareNumber, s.BuildShareText(c, details))
}

func ShareText(cart model.Cart, details CustomerDetails) string {
	details = details.trimmed()
	view := model.NewView(cart)

	var b strings.Builder
	b.WriteString("New order\n")
	fmt.Fprintf(&b, "Name: %s\n", details.Name)
	fmt.Fprintf(&b, "Phone: %s\n", details.Phone)
	fmt.Fprintf(&b, "Address: %s\n", details.Address)
	b.WriteString("\n")

	if view.Empty() {
		b.WriteString(model.EMPTY_CART + "\n")
	}
	for i, l := range view.Lines {
		fmt.Fprintf(&b, "%d. %s (%s) - %s kg x ₹%s = ₹%s", i+1, l.Name, l.Sku, l.QtyText, l.PriceText, l.LineTotal)
		if l.CaratLabel != "" {
			fmt.Fprintf(&b, " [%s]", l.CaratLabel)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Total items: %d\n", view.Totals.TotalItems)
	fmt.Fprintf(&b, "Total kg: %s\n", view.Totals.TotalKgText())
	if view.Totals.Discounted {
		fmt.Fprintf(&b, "Discount: 5%% applied\n")
	}
	fmt.Fprintf(&b, "Total amount: ₹%s\n", view.Totals.TotalAmountText())
	return b.String()
}

func ShareLink(number string, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	encoded := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return shareBaseURL + digits + "?text=" + encoded
}
