package render

import (
	"context"
	"fmt"
	"html/template"
	"io"

	"github.com/Alturino/storefront/cart/pkg/model"
)

var cartTemplate = template.Must(template.New("cart").Parse(`<div id="cartList">
{{- if .Empty }}
  <div class="small">{{ .EmptyText }}</div>
{{- else }}
{{- range .Lines }}
  <div class="cart-item" data-sku="{{ .Sku }}">
    <img src="{{ .Img }}" alt="{{ .Name }}">
    <div class="cart-item-body">
      <h3>{{ .Name }}</h3>
      <div class="line-total">₹ {{ .LineTotal }}</div>
      <div class="price">₹{{ .PriceText }}/kg</div>
      <button class="qty-dec" data-sku="{{ .Sku }}">-</button>
      <input class="qty-input" type="number" min="1" data-sku="{{ .Sku }}" value="{{ .QtyText }}">
      <button class="qty-inc" data-sku="{{ .Sku }}">+</button>
      {{- if .CaratLabel }}
      <div class="carat-label">({{ .CaratLabel }})</div>
      {{- end }}
      <button class="remove" data-sku="{{ .Sku }}">Remove</button>
    </div>
  </div>
{{- end }}
{{- end }}
</div>
<div id="cartTotals">
  <span id="totalItems">{{ .Totals.TotalItems }}</span>
  <span id="totalKg">{{ .Totals.TotalKgText }}</span>
  <span id="grandTotal">{{ .Totals.TotalAmountText }}</span>
  <span id="discountMessage">{{ .Totals.DiscountMessage }}</span>
</div>
`))

type htmlData struct {
	model.View
	EmptyText string
}

// HTMLView renders the cart markup. Names, image urls and skus are escaped by html/template.
type HTMLView struct {
	w io.Writer
}

func NewHTMLView(w io.Writer) *HTMLView {
	return &HTMLView{w: w}
}

func (v *HTMLView) Render(_ context.Context, view model.View) error {
	if err := cartTemplate.Execute(v.w, htmlData{View: view, EmptyText: model.EMPTY_CART}); err != nil {
		return fmt.Errorf("failed rendering cart html with error=%w", err)
	}
	return nil
}
