package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"lexadoc/internal/domain"
	"lexadoc/internal/logger"
)

const module = "transport"

// StatusError is a non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %s", e.Op, e.Status)
}

// IsUnauthorized reports whether err is a 401/403 response rather than a connectivity failure.
func IsUnauthorized(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
	}
	return false
}

// Config configures the backend client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  logger.Logger
}

// Client is the credentialed channel to the document QA backend.
// The cookie jar carries the session cookie on every call.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	log     logger.Logger
}

// NewClient creates a new backend client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("missing backend base URL")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL: base,
		client:  &http.Client{Timeout: t, Jar: jar},
		log:     log,
	}, nil
}

// BaseURL returns the configured backend endpoint.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Me probes the session credential.
func (c *Client) Me(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.doJSON(ctx, "me", http.MethodGet, "/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Login(ctx context.Context, req domain.LoginRequest) error {
	return c.doJSON(ctx, "login", http.MethodPost, "/login", req, nil)
}

func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) error {
	return c.doJSON(ctx, "register", http.MethodPost, "/register", req, nil)
}

// Logout asks the backend to drop the session; the server also expires the cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, "logout", http.MethodPost, "/logout", nil, nil)
}

func (c *Client) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	docs := []domain.Document{}
	if err := c.doJSON(ctx, "list documents", http.MethodGet, "/documents", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Upload sends the file as multipart field "file".
func (c *Client) Upload(ctx context.Context, file *domain.File) (*domain.Document, error) {
	if file == nil {
		return nil, errors.New("upload: nil file")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file.Reader()); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var doc domain.Document
	if err := c.do(ctx, "upload", http.MethodPost, "/upload", &buf, mw.FormDataContentType(), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id int64) error {
	path := "/documents/" + strconv.FormatInt(id, 10)
	return c.doJSON(ctx, "delete document", http.MethodDelete, path, nil, nil)
}

func (c *Client) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	var out domain.QueryResponse
	if err := c.doJSON(ctx, "query", http.MethodPost, "/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, out any) error {
	if body == nil {
		return c.do(ctx, op, method, path, nil, "", out)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	return c.do(ctx, op, method, path, bytes.NewReader(data), "application/json", out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	reqID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn(module, "request failed", map[string]interface{}{
			"op": op, "request_id": reqID, "error": err.Error(),
		})
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.log.Debug(module, "request completed", map[string]interface{}{
		"op": op, "request_id": reqID, "status": resp.StatusCode, "elapsed_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused; the body is never shown to the user.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
