// Package wire names the HTTP header and status contract shared by the
// client pipeline (C6) and the server handler (C8), so neither side
// hardcodes header strings independently (spec §4.5).
package wire

import "net/http"

// Request headers.
const (
	HeaderRequestID  = "x-request-id"
	HeaderDurationMS = "x-duration-ms"
	HeaderAuthToken  = "x-auth-token"
	HeaderCompressed = "x-compression"
	HeaderEncrypted  = "x-encrypted"
)

// Response metric headers, decimal u64 on success.
const (
	HeaderMetricQueueMS = "x-metric-queue-ms"
	HeaderMetricInferMS = "x-metric-infer-ms"
	HeaderMetricWorker  = "x-metric-worker-ms"
	HeaderBytesIn       = "x-bytes-in"
	HeaderBytesOut      = "x-bytes-out"
)

// Compression tokens carried in HeaderCompressed. Pcm and Wav are synonyms:
// both mean "raw WAV bytes".
const (
	CompressionPCM  = "pcm"
	CompressionWAV  = "wav"
	CompressionOpus = "opus"
)

// EncryptedValue is the literal header value meaning "body is C2-wrapped".
const EncryptedValue = "1"

// MaxBodySize is the hard request body cap (spec §4.5), 50 MiB.
const MaxBodySize = 50 * 1024 * 1024

// Status codes used across the handler contract (spec §4.5 response table).
const (
	StatusOK                  = http.StatusOK
	StatusBadRequest          = http.StatusBadRequest
	StatusUnauthorized        = http.StatusUnauthorized
	StatusPayloadTooLarge     = http.StatusRequestEntityTooLarge
	StatusServiceUnavailable  = http.StatusServiceUnavailable
	StatusInternalServerError = http.StatusInternalServerError
)

// IsKnownCompression reports whether token is a recognized x-compression
// value.
func IsKnownCompression(token string) bool {
	switch token {
	case CompressionPCM, CompressionWAV, CompressionOpus:
		return true
	default:
		return false
	}
}
