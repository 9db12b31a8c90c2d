package model

import "strconv"

type LineView struct {
	CartLine
	LineTotal  string
	PriceText  string
	QtyText    string
	CaratLabel string
}

// View is the projection every renderer draws from.
type View struct {
	Lines  []LineView
	Totals Totals
}

func (v View) Empty() bool {
	return len(v.Lines) == 0
}

func NewView(cart Cart) View {
	lines := cart.Lines()
	view := View{
		Lines:  make([]LineView, 0, len(lines)),
		Totals: ComputeTotals(cart),
	}
	for _, l := range lines {
		view.Lines = append(view.Lines, LineView{
			CartLine:   l,
			LineTotal:  l.LineTotal().StringFixed(2),
			PriceText:  strconv.FormatFloat(l.Price, 'f', -1, 64),
			QtyText:    strconv.FormatFloat(l.QtyKg, 'f', -1, 64),
			CaratLabel: CaratLabel(l.Sku, l.QtyKg),
		})
	}
	return view
}
