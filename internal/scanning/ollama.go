package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llava"
	ollamaSystemPrompt = "You read receipts and invoices attached to employee expense reports. Answer with JSON only."
)

// Ollama reads receipts with a vision model served by Ollama
type Ollama struct {
	endpoint string
	model    string
	http     *http.Client
}

// NewOllama returns an Ollama scanner for model at baseURL
func NewOllama(baseURL string, model string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}

	return &Ollama{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/generate",
		model:    model,
		// CPU inference of vision models takes minutes
		http: &http.Client{Timeout: 3 * time.Minute},
	}, nil
}

type generateRequest struct {
	Model  string   `json:"model"`
	System string   `json:"system"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Format string   `json:"format"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (o *Ollama) newRequest(ctx context.Context, image []byte) (*http.Request, error) {
	body, err := json.Marshal(generateRequest{
		Model:  o.model,
		System: ollamaSystemPrompt,
		Prompt: receiptScanPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
		Format: "json",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// ScanReceipt reads bill details from a receipt image
func (o *Ollama) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ReceiptData, error) {
	image, err := prepareImage(imageData)
	if err != nil {
		return nil, err
	}

	req, err := o.newRequest(ctx, image)
	if err != nil {
		return nil, err
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama: %s", out.Error)
	}

	data, err := parseReceiptJSON(out.Response)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return data, nil
}

// Close is a no-op
func (o *Ollama) Close() error {
	return nil
}
