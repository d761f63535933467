package salepoint

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/smallbiznis/accreditation/internal/apperr"
	"github.com/smallbiznis/accreditation/internal/downstream"
	"github.com/smallbiznis/accreditation/internal/resilience"
)

// SalePoint is the lookup service's representation.
type SalePoint struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Client resolves sale-point names through the salePoint gateway.
type Client struct {
	baseURL string
	http    *http.Client
	gateway *resilience.Gateway
}

func NewClient(baseURL string, httpClient *http.Client, gateway *resilience.Gateway) *Client {
	return &Client{baseURL: baseURL, http: httpClient, gateway: gateway}
}

func (c *Client) ResolveName(ctx context.Context, salePointID int64) (string, error) {
	return resilience.Invoke(ctx, c.gateway, func(ctx context.Context) (string, error) {
		var sp SalePoint
		url := c.baseURL + strconv.FormatInt(salePointID, 10)
		if err := downstream.GetJSON(ctx, c.http, url, "sale point", &sp); err != nil {
			return "", err
		}
		name := strings.TrimSpace(sp.Name)
		if name == "" {
			return "", apperr.New(apperr.KindInternal, "sale point service returned an empty name", nil)
		}
		return name, nil
	})
}
