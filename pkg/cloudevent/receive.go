package cloudevent

import (
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// SignatureHeader carries the HMAC-SHA256 signature of the request body.
const SignatureHeader = "X-Signature-256"

// ErrBadSignature is returned when the request signature does not match.
var ErrBadSignature = errors.New("signature mismatch")

// Receive reads a CloudEvent from an HTTP request body. If key is non-empty
// the body signature is verified before the event is decoded.
func Receive(r *http.Request, key string, maxBytes int64) (*CloudEvent, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	if key != "" {
		got := r.Header.Get(SignatureHeader)
		want := generateSignature(body, key)
		if got == "" || !hmac.Equal([]byte(got), []byte(want)) {
			return nil, ErrBadSignature
		}
	}

	var event CloudEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("invalid CloudEvent: %w", err)
	}
	if event.SpecVersion == "" || event.Type == "" {
		return nil, fmt.Errorf("missing required CloudEvent fields")
	}
	return &event, nil
}
