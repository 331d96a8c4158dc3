package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// AUTO-DETECTION DISPATCHER
// Fire-and-forget POSTs to an external incident-analysis API. Grounded on
// the teacher's fire-and-forget alert dispatch (logged, never propagated)
// and the bounded-timeout POST shape used for JSON-RPC calls elsewhere in
// this lineage.
// =============================================================================

const (
	analyzeSingleTimeout = 5 * time.Second
	analyzeBatchTimeout  = 10 * time.Second
)

// IncidentDispatcher calls an external Incident API to analyze degraded or
// down services. Disabled entirely via a feature flag.
type IncidentDispatcher struct {
	client  *http.Client
	baseURL string
	enabled bool
	log     *logrus.Logger
}

// NewIncidentDispatcher builds a dispatcher. When enabled is false,
// AnalyzeSingle/AnalyzeBatch are no-ops.
func NewIncidentDispatcher(baseURL string, enabled bool, log *logrus.Logger) *IncidentDispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &IncidentDispatcher{
		client:  &http.Client{},
		baseURL: baseURL,
		enabled: enabled,
		log:     log,
	}
}

type analyzeResponse struct {
	Analyzed  bool   `json:"analyzed"`
	CheckTime string `json:"checkTime"`
	Reason    string `json:"reason,omitempty"`
}

// AnalyzeSingle fires POST <base>/api/auto-detection/analyze with
// {serviceId}; no latestCheckId is sent. Failures are logged and never
// propagated.
func (d *IncidentDispatcher) AnalyzeSingle(ctx context.Context, serviceID string) {
	if !d.enabled {
		return
	}
	d.post(ctx, "/api/auto-detection/analyze", map[string]interface{}{
		"serviceId": serviceID,
	}, analyzeSingleTimeout, serviceID)
}

// AnalyzeBatch fires POST <base>/api/auto-detection/batch-analyze with
// {serviceIds: [...]}, using double the single-call timeout.
func (d *IncidentDispatcher) AnalyzeBatch(ctx context.Context, serviceIDs []string) {
	if !d.enabled {
		return
	}
	d.post(ctx, "/api/auto-detection/batch-analyze", map[string]interface{}{
		"serviceIds": serviceIDs,
	}, analyzeBatchTimeout, "")
}

func (d *IncidentDispatcher) post(ctx context.Context, path string, payload map[string]interface{}, timeout time.Duration, serviceID string) {
	body, err := json.Marshal(payload)
	if err != nil {
		d.log.WithError(err).Warn("failed to marshal incident dispatch payload")
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		d.log.WithError(err).Warn("failed to build incident dispatch request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.WithFields(logrus.Fields{"service_id": serviceID, "path": path}).WithError(err).Warn("incident dispatch call failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.log.WithFields(logrus.Fields{
			"service_id":  serviceID,
			"path":        path,
			"status_code": resp.StatusCode,
		}).Warn("incident dispatch returned non-2xx")
		return
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// Response body is advisory only; correctness never depends on it.
		return
	}
}
