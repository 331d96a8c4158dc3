package monitoring

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrProbeCancelled's message is the ErrorMessage of the down ProbeResult
// that Probe returns when ctx is cancelled before or between attempts. The
// scheduler does not check for it: such a result is persisted and
// dispatched like any other down result.
var ErrProbeCancelled = errors.New("probe cancelled")

// Prober performs bounded-timeout HTTP probes with exponential backoff
// between retry attempts.
type Prober struct {
	client *http.Client
	log    *logrus.Logger
}

// NewProber creates a Prober. The http.Client is shared across probes; each
// call supplies its own per-attempt timeout via context.
func NewProber(log *logrus.Logger) *Prober {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Prober{
		client: &http.Client{},
		log:    log,
	}
}

// Probe performs up to svc.Retries+1 attempts against svc.URL, sleeping
// base_delay * 2^(attempt-1) between attempts that fail to produce a
// response. response_time is the wall-clock span from the first attempt's
// dispatch to the attempt producing the terminal result.
func (p *Prober) Probe(ctx context.Context, svc ServiceConfig) ProbeResult {
	start := time.Now()
	maxAttempts := svc.Retries + 1

	var lastErr error
	var statusCode int
	attempt := 0

	for attempt = 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return p.cancelledResult(svc, start, attempt)
		}

		code, err := p.attempt(ctx, svc)
		if err == nil {
			return ProbeResult{
				ServiceID:      svc.ID,
				Status:         statusForCode(code, svc.ExpectedStatuses),
				StatusCode:     code,
				ResponseTimeMS: int(time.Since(start).Milliseconds()),
				Attempts:       attempt,
				CheckedAt:      time.Now().UTC(),
			}
		}

		lastErr = err
		statusCode = code

		p.log.WithFields(logrus.Fields{
			"service_id": svc.ID,
			"attempt":    attempt,
		}).WithError(err).Warn("probe attempt failed")

		if attempt < maxAttempts {
			backoff := svc.RetryBaseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return p.cancelledResult(svc, start, attempt)
			}
		}
	}

	return ProbeResult{
		ServiceID:      svc.ID,
		Status:         ServiceStatusDown,
		StatusCode:     statusCode,
		ResponseTimeMS: int(time.Since(start).Milliseconds()),
		Attempts:       maxAttempts,
		ErrorMessage:   errMessage(lastErr),
		CheckedAt:      time.Now().UTC(),
	}
}

func (p *Prober) cancelledResult(svc ServiceConfig, start time.Time, attempts int) ProbeResult {
	return ProbeResult{
		ServiceID:      svc.ID,
		Status:         ServiceStatusDown,
		ResponseTimeMS: int(time.Since(start).Milliseconds()),
		Attempts:       attempts,
		ErrorMessage:   ErrProbeCancelled.Error(),
		CheckedAt:      time.Now().UTC(),
	}
}

// attempt performs a single bounded-timeout HTTP call. It returns the
// response status code on a received response (any status code, including
// 5xx, is a "success" for retry purposes — the status code classifies the
// outcome, not the retry decision) or an error on transport failure/timeout.
func (p *Prober) attempt(ctx context.Context, svc ServiceConfig) (int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, svc.Timeout)
	defer cancel()

	var body io.Reader
	if svc.Body != "" {
		body = bytes.NewBufferString(svc.Body)
	}

	method := svc.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, svc.URL, body)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	for k, v := range svc.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", "SLA-Monitor-Watch-Server/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// statusForCode maps an HTTP response status code to the live ProbeResult
// status: down on 5xx or no code, up if the code is 200 or one of the
// service's expected statuses, degraded on any other 4xx, up otherwise.
func statusForCode(code int, expected []int) ServiceStatus {
	if code >= 500 {
		return ServiceStatusDown
	}
	if code == 0 {
		return ServiceStatusDown
	}
	if isExpected(code, expected) {
		return ServiceStatusUp
	}
	if code >= 400 && code < 500 {
		return ServiceStatusDegraded
	}
	return ServiceStatusUp
}

func isExpected(code int, expected []int) bool {
	if code == 200 {
		return true
	}
	for _, e := range expected {
		if e == code {
			return true
		}
	}
	return false
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
