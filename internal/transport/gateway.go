package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"smscast/internal/domain"
)

const defaultGatewayTimeout = 10 * time.Second

type submitRequest struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	UnitID string `json:"unitId"`
}

// HTTPGateway submits messages to an SMS gateway over HTTP. The gateway
// answers accept/reject synchronously and reports send and delivery outcomes
// later, through the receipts queue or the receipts webhook.
type HTTPGateway struct {
	client   *resty.Client
	endpoint string
}

var _ Port = (*HTTPGateway)(nil)

func NewHTTPGateway(endpoint string) (*HTTPGateway, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewHTTPGatewayWithClient(endpoint, client)
}

func NewHTTPGatewayWithClient(endpoint string, client *resty.Client) (*HTTPGateway, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPGateway{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (g *HTTPGateway) Submit(ctx context.Context, destination, body, unitID string) error {
	if g == nil || g.client == nil {
		return fmt.Errorf("gateway is not initialized")
	}

	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(submitRequest{To: destination, Body: body, UnitID: unitID}).
		Post(g.endpoint)
	if err != nil {
		return &GatewayError{
			Message: "gateway request failed",
			Reason:  ReasonFor(err),
			Cause:   err,
		}
	}
	if response == nil {
		return &GatewayError{
			Message: "gateway returned empty response",
			Reason:  domain.ReasonNoService,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &GatewayError{
		StatusCode: statusCode,
		Message:    gatewayErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Reason:     reasonForHTTPStatus(statusCode),
	}
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
