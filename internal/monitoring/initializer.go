package monitoring

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// SERVICE INITIALIZER
// Reconciles the Endpoint Registry's config into Service dimension rows at
// startup: insert if missing, update endpoint_url if changed, never delete
// (historical references from the time-series tables must keep resolving).
// =============================================================================

// Initializer reconciles registry config into persisted Service rows.
type Initializer struct {
	repository *Repository
	log        *logrus.Logger
}

// NewInitializer builds a Service Initializer.
func NewInitializer(repository *Repository, log *logrus.Logger) *Initializer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Initializer{repository: repository, log: log}
}

// Reconcile upserts every service in the registry. Runs once at startup,
// before the first monitoring cycle.
func (i *Initializer) Reconcile(ctx context.Context, services []ServiceConfig) error {
	var problems []string

	for _, svc := range services {
		if err := i.repository.UpsertService(ctx, svc); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", svc.ID, err))
			continue
		}
		i.log.WithField("service_id", svc.ID).Debug("service reconciled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("service reconciliation failed for %d service(s): %v", len(problems), problems)
	}

	return nil
}
