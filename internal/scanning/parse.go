package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zombor/billed/internal/bill"
)

// parseReceiptJSON parses the JSON object a model answered with
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var data ReceiptData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	// An unreadable date is left for the employee to type
	data.Date = strings.TrimSpace(data.Date)
	if d, err := bill.ParseDate(data.Date); err == nil {
		data.Date = d.String()
	} else {
		data.Date = ""
	}

	data.Name = strings.TrimSpace(data.Name)
	data.Type = strings.TrimSpace(data.Type)
	if data.Amount < 0 {
		data.Amount = 0
	}
	if data.VAT < 0 {
		data.VAT = 0
	}

	return &data, nil
}
