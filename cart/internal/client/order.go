package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/order/pkg/request"
	"github.com/Alturino/storefront/order/pkg/response"
)

type OrderClient struct {
	client *resty.Client
	url    string
}

func NewOrderClient(url string, timeout time.Duration) *OrderClient {
	client := resty.New().
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader(inHttp.KEY_HEADER_CONTENT_TYPE, inHttp.VALUE_HEADER_APPLICATION_JSON).
		SetTimeout(timeout)
	return &OrderClient{client: client, url: url}
}

// SubmitOrder posts the payload to the order intake endpoint. Transport failures, non 2xx
// answers and answers with success=false are all errors; the decoded acknowledgement is returned
// whenever the server sent one.
func (cl *OrderClient) SubmitOrder(
	c context.Context,
	payload request.OrderPayload,
) (response.Acknowledgement, error) {
	c, span := otel.Tracer.Start(c, "OrderClient SubmitOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "OrderClient SubmitOrder").
		Str(constants.KEY_REQUEST_URL, cl.url).
		Logger()

	ack := response.Acknowledgement{}
	req := cl.client.R().
		SetContext(c).
		SetBody(payload).
		SetResult(&ack).
		SetError(&ack)
	if requestID := log.RequestIDFromContext(c); requestID != "" {
		req.SetHeader(inHttp.KEY_HEADER_REQUEST_ID, requestID)
	}

	logger.Info().Msg("submitting order")
	res, err := req.Post(cl.url)
	if err != nil {
		err = fmt.Errorf("failed submitting order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Acknowledgement{}, err
	}
	logger = logger.With().Int(constants.KEY_STATUS_CODE, res.StatusCode()).Logger()

	if res.IsError() || !ack.Success {
		err = fmt.Errorf(
			"failed submitting order status=%d message=%s with error=%w",
			res.StatusCode(),
			ack.Message,
			inErrors.ErrOrderRejected,
		)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return ack, err
	}
	logger.Info().Bool(constants.KEY_PERSISTED, ack.Persisted).Msg("submitted order")

	return ack, nil
}
