// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient returns the client used for calls to sibling services.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
