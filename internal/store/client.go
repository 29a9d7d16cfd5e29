// Package store is a bill.Store that talks to a remote Billed server over its JSON API.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zombor/billed/internal/bill"
)

// Client is a remote bill.Store
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

var _ bill.Store = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithBasicAuth sends basic auth credentials with every request
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a Client for the server at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote URL %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// apiError is the JSON body of a failed API call
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (c *Client) do(req *http.Request, wantStatus int, out any) error {
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		remoteErr := &bill.RemoteError{StatusCode: resp.StatusCode}
		var body apiError
		if data, readErr := io.ReadAll(resp.Body); readErr == nil && json.Unmarshal(data, &body) == nil {
			remoteErr.Err = bill.ErrorForCode(body.Code)
		}
		return remoteErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// absolute resolves a server-relative file URL against the remote server
func (c *Client) absolute(fileURL string) string {
	if strings.HasPrefix(fileURL, "/") {
		return c.baseURL + fileURL
	}
	return fileURL
}

// ListBills fetches the bills of email
func (c *Client) ListBills(ctx context.Context, email string) ([]bill.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/bills?"+url.Values{"email": {email}}.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var bills []bill.Bill
	if err := c.do(req, http.StatusOK, &bills); err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	for i := range bills {
		bills[i].FileURL = c.absolute(bills[i].FileURL)
	}
	return bills, nil
}

// UploadReceipt sends a receipt image as a multipart form
func (c *Client) UploadReceipt(ctx context.Context, email, filename string, data []byte) (bill.Receipt, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("email", email); err != nil {
		return bill.Receipt{}, fmt.Errorf("writing form: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return bill.Receipt{}, fmt.Errorf("writing form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return bill.Receipt{}, fmt.Errorf("writing form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return bill.Receipt{}, fmt.Errorf("writing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/receipts", &body)
	if err != nil {
		return bill.Receipt{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var receipt bill.Receipt
	if err := c.do(req, http.StatusCreated, &receipt); err != nil {
		return bill.Receipt{}, fmt.Errorf("uploading receipt: %w", err)
	}
	receipt.URL = c.absolute(receipt.URL)
	return receipt, nil
}

// Receipt fetches a receipt uploaded by email
func (c *Client) Receipt(ctx context.Context, email, key string) (bill.Receipt, error) {
	endpoint := c.baseURL + "/api/receipts/" + url.PathEscape(key) + "?" + url.Values{"email": {email}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return bill.Receipt{}, fmt.Errorf("creating request: %w", err)
	}

	var receipt bill.Receipt
	if err := c.do(req, http.StatusOK, &receipt); err != nil {
		return bill.Receipt{}, fmt.Errorf("getting receipt: %w", err)
	}
	receipt.URL = c.absolute(receipt.URL)
	return receipt, nil
}

// CreateBill posts a bill and returns the stored version
func (c *Client) CreateBill(ctx context.Context, b bill.Bill) (bill.Bill, error) {
	b.FileURL = strings.TrimPrefix(b.FileURL, c.baseURL)
	data, err := json.Marshal(b)
	if err != nil {
		return bill.Bill{}, fmt.Errorf("marshaling bill: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/bills", bytes.NewReader(data))
	if err != nil {
		return bill.Bill{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var created bill.Bill
	if err := c.do(req, http.StatusCreated, &created); err != nil {
		return bill.Bill{}, fmt.Errorf("creating bill: %w", err)
	}
	created.FileURL = c.absolute(created.FileURL)
	return created, nil
}
