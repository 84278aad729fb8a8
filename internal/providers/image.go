package providers

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeImage decodes a base64-encoded image payload into raw bytes.
// Accepts both bare base64 and data-URL form ("data:image/jpeg;base64,...")
// since mobile clients send either.
func DecodeImage(b64 string) ([]byte, error) {
	if idx := strings.Index(b64, ","); idx >= 0 && strings.HasPrefix(b64, "data:") {
		b64 = b64[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("decode image: empty payload")
	}
	return raw, nil
}
