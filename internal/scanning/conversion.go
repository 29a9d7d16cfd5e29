package scanning

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/zombor/billed/internal/bill"
)

// receiptScanPrompt is the shared prompt used by all LLM providers for scanning receipts
var receiptScanPrompt = `You are reading the receipt an employee attached to an expense report. Carefully read all text in the image and extract:

1. **Name**: a short label for the expense, starting with the merchant name. Examples: "SNCF Paris Lyon", "Hôtel Ibis Lille".

2. **Type**: the expense category. It must be exactly one of: ` + strings.Join(bill.ExpenseTypes, ", ") + `.

3. **Date**: the transaction date in ISO 8601 format (YYYY-MM-DD).

4. **Amount**: the total amount including taxes, as a number (e.g., 42.75).

5. **VAT**: the VAT amount included in the total, as a number. Use 0 if it is not printed.

Return ONLY valid JSON in this exact format:
{
  "name": "Merchant - Brief Description",
  "type": "Transports",
  "date": "YYYY-MM-DD",
  "amount": 0.00,
  "vat": 0.00
}

Important:
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// maxScanDimension bounds the longest side of an image sent to a scanner
const maxScanDimension = 2048

// prepareImage readies a receipt photo for a vision model: it applies the
// EXIF orientation, shrinks it to fit maxScanDimension, boosts the contrast
// of the text and encodes the result as PNG.
func prepareImage(imageData []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxScanDimension || bounds.Dy() > maxScanDimension {
		img = imaging.Fit(img, maxScanDimension, maxScanDimension, imaging.Lanczos)
	}

	enhanced := imaging.Grayscale(img)
	enhanced = imaging.AdjustContrast(enhanced, 20)
	enhanced = imaging.Sharpen(enhanced, 1)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, enhanced, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
