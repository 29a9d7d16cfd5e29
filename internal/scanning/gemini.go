package scanning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiCallTimeout = 30 * time.Second

var errEmptyAnswer = errors.New("gemini returned no text")

// Gemini reads receipts with a Google Gemini model
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini connects to Gemini with apiKey
func NewGemini(ctx context.Context, apiKey string, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	// Receipts have one right reading
	m.SetTemperature(0)

	return &Gemini{client: client, model: m}, nil
}

// answerText joins the text parts of the first candidate
func answerText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errEmptyAnswer
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errEmptyAnswer
	}
	return b.String(), nil
}

// ScanReceipt reads bill details from a receipt image
func (g *Gemini) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ReceiptData, error) {
	image, err := prepareImage(imageData)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, geminiCallTimeout)
	defer cancel()

	// ImageData takes the format name, not a MIME type
	resp, err := g.model.GenerateContent(ctx, genai.Text(receiptScanPrompt), genai.ImageData("png", image))
	if err != nil {
		return nil, fmt.Errorf("calling gemini: %w", err)
	}

	text, err := answerText(resp)
	if err != nil {
		return nil, err
	}

	data, err := parseReceiptJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return data, nil
}

// Close releases the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
