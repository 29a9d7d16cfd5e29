package bill

import (
	"fmt"
	"path/filepath"
	"strings"
)

var receiptContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// ValidateReceiptFilename checks that a receipt file has an image extension
func ValidateReceiptFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := receiptContentTypes[ext]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, filename)
	}
	return nil
}

// ContentTypeFor returns the MIME type for a receipt file name
func ContentTypeFor(filename string) string {
	if ct, ok := receiptContentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
