package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewStreamingClient builds the HTTP client used for provider calls. No
// client-level timeout: it would cap the whole body read and kill long
// generations. The request context carries the deadline instead.
func NewStreamingClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: false,
			},
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}
