package user

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/accreditation/internal/apperr"
	"github.com/smallbiznis/accreditation/internal/downstream"
	"github.com/smallbiznis/accreditation/internal/resilience"
)

const emailLookupPath = "private/email/"

// Client resolves caller emails to user ids through the user gateway.
type Client struct {
	baseURL string
	http    *http.Client
	gateway *resilience.Gateway
}

func NewClient(baseURL string, httpClient *http.Client, gateway *resilience.Gateway) *Client {
	return &Client{baseURL: baseURL, http: httpClient, gateway: gateway}
}

func (c *Client) ResolveUserID(ctx context.Context, email string) (int64, error) {
	email = strings.TrimSpace(email)
	return resilience.Invoke(ctx, c.gateway, func(ctx context.Context) (int64, error) {
		// The service answers with a bare number; null means no id.
		var id *int64
		target := c.baseURL + emailLookupPath + url.PathEscape(email)
		if err := downstream.GetJSON(ctx, c.http, target, "user", &id); err != nil {
			return 0, err
		}
		if id == nil || *id <= 0 {
			return 0, apperr.New(apperr.KindInternal, "user service returned no id", nil)
		}
		return *id, nil
	})
}
