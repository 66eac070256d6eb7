package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"warranty/internal/warranty/handler"
	"warranty/pkg/domain"
)

// Client is the registry API as seen by the CLI.
type Client interface {
	Create(ctx context.Context, req handler.CreateCertificateRequest) (domain.CertificateID, error)
	Get(ctx context.Context, id domain.CertificateID) (*handler.CertificateResponse, error)
	Validity(ctx context.Context, id domain.CertificateID) (*handler.ValidityResponse, error)
	Owner(ctx context.Context, id domain.CertificateID) (*handler.OwnerResponse, error)
	Transfer(ctx context.Context, id domain.CertificateID, from, to domain.Address) error
	Count(ctx context.Context) (uint64, error)
	List(ctx context.Context, party domain.Address) ([]handler.CertificateResponse, error)
	Balance(ctx context.Context, holder domain.Address) (uint64, error)
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// HTTPClient talks to the registry over its JSON API.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPClient builds a client for the server at baseURL. token may be empty
// for read-only use.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Create(ctx context.Context, req handler.CreateCertificateRequest) (domain.CertificateID, error) {
	var resp handler.CreateCertificateResponse
	if err := c.do(ctx, http.MethodPost, "/certificates", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *HTTPClient) Get(ctx context.Context, id domain.CertificateID) (*handler.CertificateResponse, error) {
	var resp handler.CertificateResponse
	if err := c.do(ctx, http.MethodGet, "/certificates/"+id.String(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Validity(ctx context.Context, id domain.CertificateID) (*handler.ValidityResponse, error) {
	var resp handler.ValidityResponse
	if err := c.do(ctx, http.MethodGet, "/certificates/"+id.String()+"/validity", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Owner(ctx context.Context, id domain.CertificateID) (*handler.OwnerResponse, error) {
	var resp handler.OwnerResponse
	if err := c.do(ctx, http.MethodGet, "/certificates/"+id.String()+"/owner", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Transfer(ctx context.Context, id domain.CertificateID, from, to domain.Address) error {
	body := handler.TransferRequest{From: string(from), To: string(to)}
	return c.do(ctx, http.MethodPost, "/certificates/"+id.String()+"/transfer", body, nil)
}

func (c *HTTPClient) Count(ctx context.Context) (uint64, error) {
	var resp handler.CountResponse
	if err := c.do(ctx, http.MethodGet, "/certificates/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.TokenCounter, nil
}

func (c *HTTPClient) List(ctx context.Context, party domain.Address) ([]handler.CertificateResponse, error) {
	var resp handler.ListResponse
	path := "/certificates?party=" + url.QueryEscape(string(party))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Certificates, nil
}

func (c *HTTPClient) Balance(ctx context.Context, holder domain.Address) (uint64, error) {
	var resp handler.BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/holders/"+url.PathEscape(string(holder))+"/balance", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&envelope) == nil {
			apiErr.Code = envelope.Error
			apiErr.Description = envelope.ErrorDescription
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
