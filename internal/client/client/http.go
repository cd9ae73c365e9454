package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/common"
	"github.com/dmitrijs2005/invkeeper/internal/logging"
	"github.com/dmitrijs2005/invkeeper/internal/netx"
	"github.com/google/uuid"
)

const maxErrorBody = 1 << 20

type HTTPClient struct {
	base string
	hc   *http.Client
	log  logging.Logger
}

// NewHTTPClient returns a client for serverURL joined with apiPrefix, e.g.
// "http://localhost:8080" and "/api/v1".
func NewHTTPClient(serverURL, apiPrefix string, hc *http.Client, log logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must include scheme and host", serverURL)
	}
	if hc == nil {
		hc = http.DefaultClient
	}

	base := strings.TrimRight(u.String(), "/")
	if p := strings.Trim(apiPrefix, "/"); p != "" {
		base += "/" + p
	}
	return &HTTPClient{base: base, hc: hc, log: log.With("component", "http_client")}, nil
}

// BaseURL returns the URL every endpoint path is appended to.
func (c *HTTPClient) BaseURL() string { return c.base }

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, requestID)

	resp, err := c.hc.Do(req)
	if err != nil {
		// set by a transport that refused to send, e.g. on a locally expired session
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		if ctx.Err() != nil && !netx.IsUnavailable(err) {
			return ctx.Err()
		}
		c.log.Error(ctx, "request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return unavailable(err)
	}
	defer netx.DrainAndClose(resp)

	c.log.Debug(ctx, "request done", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er models.ErrorResponse
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = json.Unmarshal(b, &er)
		return newResponseError(path, resp.StatusCode, er)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func productPath(id models.ID, suffix string) string {
	return "/products/" + url.PathEscape(id.String()) + suffix
}

func (c *HTTPClient) Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, common.LoginEndpoint, nil, creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, common.RegisterEndpoint, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, common.LogoutEndpoint, nil, nil, nil)
}

func (c *HTTPClient) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.Page[models.Product], error) {
	var page models.Page[models.Product]
	if err := c.do(ctx, http.MethodGet, "/products", filter.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) GetProduct(ctx context.Context, id models.ID) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodGet, productPath(id, ""), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) UpdateProduct(ctx context.Context, id models.ID, upd models.ProductUpdate) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPut, productPath(id, ""), nil, upd, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) UpdateQuantity(ctx context.Context, id models.ID, upd models.QuantityUpdate) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPatch, productPath(id, "/quantity"), nil, upd, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
