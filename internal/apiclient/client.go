package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dl-issuer/dl_issuer/internal/logging"
)

const (
	headerAPIKey        = "Api-Key"
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
)

// Config holds base URLs and transport settings for the upstream APIs.
type Config struct {
	WalletURL   string
	IssuerURL   string
	VerifierURL string
	APIKeyHash  string
	Timeout     time.Duration
	RetryMax    int
}

// APIError is returned when an upstream API answers with a non-2xx status.
type APIError struct {
	Service Service
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s %s failed with status %d", e.Service, e.Method, e.Path, e.Status)
}

// Client is a thin pass-through wrapper over the wallet, issuer and verifier
// REST APIs. A Client is immutable; WithBearer returns a copy carrying a token.
type Client struct {
	http     *retryablehttp.Client
	baseURLs map[Service]string
	apiKey   string
	bearer   string
}

// New builds a client. Retries are disabled unless cfg.RetryMax is positive.
func New(cfg Config, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	rc.Logger = nil
	if logger != nil {
		rc.Logger = logger
	}

	return &Client{
		http: rc,
		baseURLs: map[Service]string{
			ServiceWallet:   strings.TrimRight(cfg.WalletURL, "/"),
			ServiceIssuer:   strings.TrimRight(cfg.IssuerURL, "/"),
			ServiceVerifier: strings.TrimRight(cfg.VerifierURL, "/"),
		},
		apiKey: cfg.APIKeyHash,
	}
}

// WithBearer returns a copy of the client that authenticates with token.
func (c *Client) WithBearer(token string) *Client {
	cp := *c
	cp.bearer = token
	return &cp
}

// Bearer returns the token the client authenticates with.
func (c *Client) Bearer() string {
	return c.bearer
}

func (c *Client) do(ctx context.Context, svc Service, method, path string, in, out any) error {
	base, ok := c.baseURLs[svc]
	if !ok || base == "" {
		return fmt.Errorf("no base url configured for %s api", svc)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}
	if c.bearer != "" {
		req.Header.Set(headerAuthorization, "Bearer "+c.bearer)
	}
	if id := logging.RequestID(ctx); id != "" {
		req.Header.Set(headerRequestID, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Service: svc,
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: errorMessage(raw),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage extracts the upstream message from an error body; the APIs
// answer with {"message": "..."} or {"error": "..."}.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

// IsStatus reports whether err is an APIError carrying status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func credentialPath(id string) string {
	return EndpointWalletCredentials + "/" + id
}
