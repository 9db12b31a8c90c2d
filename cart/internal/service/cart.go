package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/cart/pkg/model"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/order/pkg/request"
	"github.com/Alturino/storefront/order/pkg/response"
)

const MESSAGE_SAVED_LOCALLY = "Could not reach the store. Your order was saved locally on this device, please contact us to confirm it."

type View interface {
	Render(c context.Context, view model.View) error
}

type OrderSubmitter interface {
	SubmitOrder(c context.Context, payload request.OrderPayload) (response.Acknowledgement, error)
}

type CustomerDetails struct {
	Name    string
	Phone   string
	Address string
}

func (d CustomerDetails) trimmed() CustomerDetails {
	return CustomerDetails{
		Name:    strings.TrimSpace(d.Name),
		Phone:   strings.TrimSpace(d.Phone),
		Address: strings.TrimSpace(d.Address),
	}
}

func (d CustomerDetails) Validate() error {
	t := d.trimmed()
	if t.Name == "" || t.Phone == "" || t.Address == "" {
		return inErrors.ErrMissingCustomerDetails
	}
	return nil
}

type SubmitResult struct {
	Message   string
	Pending   bool
	Persisted bool
}

type saveOptions struct {
	render bool
}

type SaveOption func(*saveOptions)

// WithoutRender persists without refreshing the view, used when the caller already shows the
// new value (for example while the user is typing a quantity).
func WithoutRender() SaveOption {
	return func(o *saveOptions) { o.render = false }
}

type CartService struct {
	repository  *repository.CartRepository
	view        View
	submitter   OrderSubmitter
	shareNumber string
	submitting  atomic.Bool
}

func NewCartService(
	repository *repository.CartRepository,
	view View,
	submitter OrderSubmitter,
	shareNumber string,
) *CartService {
	return &CartService{
		repository:  repository,
		view:        view,
		submitter:   submitter,
		shareNumber: shareNumber,
	}
}

func (s *CartService) Load(c context.Context) model.Cart {
	return s.repository.Load(c)
}

func (s *CartService) Save(c context.Context, cart model.Cart, opts ...SaveOption) error {
	c, span := otel.Tracer.Start(c, "CartService Save")
	defer span.End()

	options := saveOptions{render: true}
	for _, opt := range opts {
		opt(&options)
	}

	if err := s.repository.Save(c, cart); err != nil {
		inErrors.HandleError(err, span)
		return err
	}
	if !options.render {
		return nil
	}
	return s.renderCart(c, cart)
}

// Add puts a line in the cart or increases the quantity of the existing one. Name, image and price
// are taken from the first add.
func (s *CartService) Add(c context.Context, line model.CartLine, opts ...SaveOption) error {
	c, span := otel.Tracer.Start(c, "CartService Add")
	defer span.End()

	line.Sku = strings.TrimSpace(line.Sku)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Add").
		Str(constants.KEY_SKU, line.Sku).
		Logger()

	if line.Sku == "" {
		err := fmt.Errorf("failed adding line with error=%w", inErrors.ErrEmptySku)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if line.Price < 0 || math.IsNaN(line.Price) || math.IsInf(line.Price, 0) {
		line.Price = 0
	}

	cart := s.repository.Load(c)
	qty := model.ClampQuantity(line.QtyKg)
	if existing, ok := cart[line.Sku]; ok {
		existing.QtyKg = float64(model.ClampQuantity(existing.QtyKg + float64(qty)))
		cart[line.Sku] = existing
	} else {
		line.QtyKg = float64(qty)
		cart[line.Sku] = line
	}
	logger.Info().Float64(constants.KEY_QUANTITY, cart[line.Sku].QtyKg).Msg("added line")

	return s.Save(c, cart, opts...)
}

func (s *CartService) SetQuantity(c context.Context, sku string, raw string, opts ...SaveOption) error {
	c, span := otel.Tracer.Start(c, "CartService SetQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService SetQuantity").
		Str(constants.KEY_SKU, sku).
		Logger()

	cart := s.repository.Load(c)
	line, ok := cart[sku]
	if !ok {
		err := fmt.Errorf("failed setting quantity with error=%w", inErrors.ErrLineNotFound)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	line.QtyKg = float64(model.CoerceQuantity(raw))
	cart[sku] = line
	logger.Info().Float64(constants.KEY_QUANTITY, line.QtyKg).Msg("set quantity")

	return s.Save(c, cart, opts...)
}

func (s *CartService) IncrementQuantity(c context.Context, sku string, delta int, opts ...SaveOption) error {
	c, span := otel.Tracer.Start(c, "CartService IncrementQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService IncrementQuantity").
		Str(constants.KEY_SKU, sku).
		Int("delta", delta).
		Logger()

	cart := s.repository.Load(c)
	line, ok := cart[sku]
	if !ok {
		err := fmt.Errorf("failed incrementing quantity with error=%w", inErrors.ErrLineNotFound)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	line.QtyKg = float64(model.ClampQuantity(line.QtyKg + float64(delta)))
	cart[sku] = line
	logger.Info().Float64(constants.KEY_QUANTITY, line.QtyKg).Msg("incremented quantity")

	return s.Save(c, cart, opts...)
}

// Remove deletes a line. Asking the user for confirmation is up to the caller.
func (s *CartService) Remove(c context.Context, sku string, opts ...SaveOption) error {
	c, span := otel.Tracer.Start(c, "CartService Remove")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Remove").
		Str(constants.KEY_SKU, sku).
		Logger()

	cart := s.repository.Load(c)
	if _, ok := cart[sku]; !ok {
		err := fmt.Errorf("failed removing line with error=%w", inErrors.ErrLineNotFound)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	delete(cart, sku)
	logger.Info().Msg("removed line")

	return s.Save(c, cart, opts...)
}

// Clear empties the cart. Asking the user for confirmation is up to the caller.
func (s *CartService) Clear(c context.Context, opts ...SaveOption) error {
	c, span := otel.Tracer.Start(c, "CartService Clear")
	defer span.End()

	options := saveOptions{render: true}
	for _, opt := range opts {
		opt(&options)
	}

	if err := s.repository.Clear(c); err != nil {
		inErrors.HandleError(err, span)
		return err
	}
	zerolog.Ctx(c).Info().Str(constants.KEY_TAG, "CartService Clear").Msg("cleared cart")
	if !options.render {
		return nil
	}
	return s.renderCart(c, model.Cart{})
}

func (s *CartService) Totals(c context.Context) model.Totals {
	return model.ComputeTotals(s.repository.Load(c))
}

func (s *CartService) Render(c context.Context) error {
	return s.renderCart(c, s.repository.Load(c))
}

func (s *CartService) renderCart(c context.Context, cart model.Cart) error {
	if s.view == nil {
		return nil
	}
	if err := s.view.Render(c, model.NewView(cart)); err != nil {
		return fmt.Errorf("failed rendering cart with error=%w", err)
	}
	return nil
}

// BuildPayload assembles the order body from the current cart. The totals are the ones shown to
// the customer, the server recomputes its own.
func BuildPayload(cart model.Cart, details CustomerDetails) request.OrderPayload {
	details = details.trimmed()
	totals := model.ComputeTotals(cart)

	items := make([]request.Item, 0, len(cart))
	for _, l := range cart.Lines() {
		items = append(items, request.Item{
			Sku:   request.Text(l.Sku),
			Name:  request.Text(l.Name),
			Img:   request.Text(l.Img),
			QtyKg: request.NumberFromFloat(l.QtyKg),
			Price: request.NumberFromFloat(l.Price),
		})
	}
	return request.OrderPayload{
		Customer: &request.Customer{
			Name:    request.Text(details.Name),
			Phone:   request.Text(details.Phone),
			Address: request.Text(details.Address),
		},
		Items:       items,
		TotalKg:     request.NewNumber(totals.TotalKg),
		TotalAmount: request.NewNumber(totals.TotalAmount.Round(2)),
	}
}

// Submit sends the cart as an order. Only one submission runs at a time per service. When the
// order cannot be delivered it is kept as a pending order and the result reports Pending with a
// nil error.
func (s *CartService) Submit(c context.Context, details CustomerDetails) (SubmitResult, error) {
	c, span := otel.Tracer.Start(c, "CartService Submit")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Submit").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating customer details").Logger()
	if err := details.Validate(); err != nil {
		err = fmt.Errorf("failed validating customer details with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return SubmitResult{}, err
	}

	cart := s.repository.Load(c)
	if len(cart) == 0 {
		err := fmt.Errorf("failed submitting order with error=%w", inErrors.ErrEmptyCart)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return SubmitResult{}, err
	}

	if !s.submitting.CompareAndSwap(false, true) {
		err := fmt.Errorf("failed submitting order with error=%w", inErrors.ErrSubmitInProgress)
		inErrors.HandleError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return SubmitResult{}, err
	}
	defer s.submitting.Store(false)

	payload := BuildPayload(cart, details)

	logger = logger.With().
		Str(constants.KEY_PROCESS, "submitting order").
		Object(constants.KEY_ORDER, payload).
		Logger()
	logger.Info().Msg("submitting order")
	c = logger.WithContext(c)
	ack, err := s.submitter.SubmitOrder(c, payload)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg("order not delivered, saving as pending")
		if err := s.repository.AppendPendingOrder(c, payload); err != nil {
			err = fmt.Errorf("failed saving pending order with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return SubmitResult{}, err
		}
		return SubmitResult{Message: MESSAGE_SAVED_LOCALLY, Pending: true}, nil
	}
	logger.Info().Bool(constants.KEY_PERSISTED, ack.Persisted).Msg("submitted order")

	if err = s.Clear(c); err != nil {
		logger.Error().Err(err).Msg("order submitted but the cart could not be cleared")
	}

	return SubmitResult{Message: ack.Message, Persisted: ack.Persisted}, nil
}

func (s *CartService) Submitting() bool {
	return s.submitting.Load()
}

func (s *CartService) PendingOrders(c context.Context) ([]request.OrderPayload, error) {
	return s.repository.PendingOrders(c)
}

// Watch re-renders whenever another writer changes the cart, until c is done.
func (s *CartService) Watch(c context.Context) error {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Watch").
		Str(constants.KEY_ORIGIN, s.repository.Origin()).
		Logger()

	events, cancel, err := s.repository.Subscribe(c)
	if err != nil {
		err = fmt.Errorf("failed watching cart with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer cancel()

	for {
		select {
		case <-c.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Origin == s.repository.Origin() {
				continue
			}
			logger.Debug().Str("from", event.Origin).Msg("cart changed elsewhere, re-rendering")
			if err := s.Render(c); err != nil {
				logger.Error().Err(err).Msg(err.Error())
			}
		}
	}
}
