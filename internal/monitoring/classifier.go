package monitoring

import (
	"strings"
)

// =============================================================================
// CLASSIFIER
// Turns a ProbeResult into an ErrorType and UptimeBucket. Pattern matching
// follows the same containsAny-over-substring-patterns idiom used to turn a
// raw transport error message into a chain-specific failure tag elsewhere in
// this lineage; here the patterns are generalized to DNS/timeout/connection
// taxonomy instead of blockchain-node diagnostics.
// =============================================================================

// dnsErrorPatterns are substrings seen in Go's net package errors when a
// lookup fails to resolve a hostname.
var dnsErrorPatterns = []string{
	"no such host",
	"server misbehaving",
	"lookup",
	"dnserror",
}

var timeoutPatterns = []string{
	"context deadline exceeded",
	"i/o timeout",
	"timeout",
	"client.timeout exceeded",
}

// containsAny reports whether s contains any of patterns, case-insensitive.
func containsAny(s string, patterns []string) bool {
	lower := strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Classify derives the error_type (empty for a successful result) and the
// uptime_bucket for one ProbeResult.
func Classify(result ProbeResult) (ErrorType, UptimeBucket) {
	errorType := classifyError(result)
	bucket := classifyBucket(result)
	return errorType, bucket
}

func classifyError(result ProbeResult) ErrorType {
	if result.Status == ServiceStatusUp || result.Status == ServiceStatusDegraded {
		if result.StatusCode >= 400 {
			return ErrorTypeHTTPError
		}
		return ErrorTypeNone
	}

	if result.StatusCode == 0 {
		if containsAny(result.ErrorMessage, timeoutPatterns) {
			return ErrorTypeTimeout
		}
		if containsAny(result.ErrorMessage, dnsErrorPatterns) {
			return ErrorTypeDNSError
		}
		return ErrorTypeConnectionError
	}

	if result.StatusCode >= 400 {
		return ErrorTypeHTTPError
	}

	return ErrorTypeNone
}

func classifyBucket(result ProbeResult) UptimeBucket {
	switch {
	case result.StatusCode == 0:
		return BucketMajorOutage
	case result.StatusCode >= 500:
		return BucketMajorOutage
	case result.StatusCode >= 400:
		return BucketPartialOutage
	default:
		return BucketOperational
	}
}
