package render

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Alturino/storefront/cart/pkg/model"
)

type TextView struct {
	w io.Writer
}

func NewTextView(w io.Writer) *TextView {
	return &TextView{w: w}
}

func (v *TextView) Render(_ context.Context, view model.View) error {
	tw := tabwriter.NewWriter(v.w, 0, 4, 2, ' ', 0)

	if view.Empty() {
		fmt.Fprintln(tw, model.EMPTY_CART)
	} else {
		fmt.Fprintln(tw, "SKU\tNAME\tPRICE/KG\tQTY KG\tCARATS\tTOTAL")
		for _, l := range view.Lines {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				l.Sku, l.Name, l.PriceText, l.QtyText, l.CaratLabel, l.LineTotal)
		}
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Items:\t%d\n", view.Totals.TotalItems)
	fmt.Fprintf(tw, "Total kg:\t%s\n", view.Totals.TotalKgText())
	fmt.Fprintf(tw, "Grand total:\t₹ %s\n", view.Totals.TotalAmountText())
	if view.Totals.Discounted {
		fmt.Fprintln(tw, view.Totals.DiscountMessage)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed rendering cart text with error=%w", err)
	}
	return nil
}
