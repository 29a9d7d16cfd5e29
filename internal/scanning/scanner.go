package scanning

import "context"

// ReceiptData is what a scanner could read from a receipt image
type ReceiptData struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Date   string  `json:"date"` // YYYY-MM-DD, empty when unreadable
	Amount float64 `json:"amount"`
	VAT    float64 `json:"vat"`
}

// Scanner reads bill details from receipt images
type Scanner interface {
	// ScanReceipt analyzes a receipt image and extracts bill details
	ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}
