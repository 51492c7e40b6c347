// Package catalog is the HTTP client for the headless CMS backend that
// owns product records and user credentials. The CMS is an external
// collaborator; this package is the full contract surface the rest of
// the application sees.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nordform/catalog-admin/internal/importer"
)

// DefaultTimeout bounds every request to the CMS, including per-row
// create calls made by the batch runner.
const DefaultTimeout = 30 * time.Second

// Client talks to the CMS REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a CMS client for the given base URL. A zero timeout
// falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is a structured rejection from the CMS. Error() returns the
// CMS-provided message so callers can surface it verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("catalog API returned status %d", e.Status)
}

// errorBody is the CMS error envelope.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// message returns the first non-empty message field.
func (b errorBody) message() string {
	if b.Error.Message != "" {
		return b.Error.Message
	}
	return b.Message
}

// createResponse is the CMS reply to a product create.
type createResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	ID string `json:"id"`
}

// CreateProduct submits one mapped product record as a create operation
// carrying the caller's bearer token. It returns the CMS-assigned id on
// success, or an *APIError carrying the CMS message on rejection.
func (c *Client) CreateProduct(ctx context.Context, token string, rec *importer.ProductRecord) (string, error) {
	body, err := json.Marshal(map[string]any{"data": rec})
	if err != nil {
		return "", fmt.Errorf("marshal product: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/products", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.apiError(resp.StatusCode, raw)
	}

	var cr createResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if cr.Data.ID != "" {
		return cr.Data.ID, nil
	}
	return cr.ID, nil
}

// Session is the result of a successful credential check: an opaque
// bearer token plus the operator's identity.
type Session struct {
	Token    string   `json:"token"`
	Identity Identity `json:"user"`
}

// Identity describes an authenticated operator.
type Identity struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Login delegates a credential check to the CMS. The returned token is
// opaque to this application and is passed through on catalog calls.
func (c *Client) Login(ctx context.Context, identifier, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{
		"identifier": identifier,
		"password":   password,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.apiError(resp.StatusCode, raw)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Token == "" {
		return nil, fmt.Errorf("login response missing token")
	}
	return &s, nil
}

// VerifyToken resolves a bearer token to the operator it belongs to.
// Used by the auth middleware as the hard precondition on every
// protected route.
func (c *Client) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.apiError(resp.StatusCode, raw)
	}

	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	return &id, nil
}

// apiError decodes the CMS error envelope into an *APIError.
func (c *Client) apiError(status int, raw []byte) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	return &APIError{Status: status, Message: eb.message()}
}
