package monitoring

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/statuswatch/statuswatch-core/internal/config"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// ENDPOINT REGISTRY
// Resolves the list of services to monitor from a local descriptor file
// (and an optional YAML sibling), falling back to environment variables,
// then hard defaults. Read-only once loaded.
// =============================================================================

const (
	defaultTimeout       = 10 * time.Second
	defaultRetries       = 3
	defaultRetryDelay    = 1 * time.Second
	defaultCycleInterval = 60 * time.Second
	minCycleInterval     = 10 * time.Second
)

// ServiceConfig describes one endpoint to monitor.
type ServiceConfig struct {
	ID               string
	Name             string
	URL              string
	Method           string
	Headers          map[string]string
	Body             string
	Timeout          time.Duration
	ExpectedStatuses []int
	Retries          int
	RetryBaseDelay   time.Duration
	CycleInterval    time.Duration
}

// descriptorEntry is one recognized service parsed out of the descriptor file.
type descriptorEntry struct {
	id     string
	url    string
	apiKey string
}

// yamlOverride is the shape of an optional services.yaml sibling next to the
// descriptor file; present only when an operator wants structured overrides
// beyond what KEY=value lines can express.
type yamlOverride struct {
	Services []struct {
		ID               string            `yaml:"id"`
		Name             string            `yaml:"name"`
		URL              string            `yaml:"url"`
		Method           string            `yaml:"method"`
		Headers          map[string]string `yaml:"headers"`
		Body             string            `yaml:"body"`
		TimeoutMS        int               `yaml:"timeout_ms"`
		ExpectedStatuses []int             `yaml:"expected_statuses"`
		Retries          int               `yaml:"retries"`
		RetryDelayMS     int               `yaml:"retry_delay_ms"`
	} `yaml:"services"`
}

// Registry holds the resolved, validated set of services for a run. It is
// read-only after Load.
type Registry struct {
	services      []ServiceConfig
	cycleInterval time.Duration
}

// NewRegistry resolves a descriptor file (and optional YAML sibling) plus
// environment overrides into a validated Registry. recognizedIDs is the set
// of service ids the operator expects to configure via <SERVICE>_URL
// environment variables when no descriptor file is present.
func NewRegistry(descriptorPath, yamlPath string, recognizedIDs []string) (*Registry, error) {
	entries, apiKey, err := parseDescriptorFile(descriptorPath)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint descriptor: %w", err)
	}

	services := make(map[string]*ServiceConfig)
	for _, e := range entries {
		services[e.id] = &ServiceConfig{
			ID:  e.id,
			URL: e.url,
		}
		if e.apiKey != "" {
			apiKey = e.apiKey
		}
	}

	if yamlEntries, err := parseYAMLOverride(yamlPath); err != nil {
		return nil, fmt.Errorf("parsing services.yaml: %w", err)
	} else {
		for _, y := range yamlEntries {
			svc, ok := services[y.ID]
			if !ok {
				svc = &ServiceConfig{ID: y.ID}
				services[y.ID] = svc
			}
			if y.Name != "" {
				svc.Name = y.Name
			}
			if y.URL != "" {
				svc.URL = y.URL
			}
			if y.Method != "" {
				svc.Method = y.Method
			}
			if y.Headers != nil {
				svc.Headers = y.Headers
			}
			if y.Body != "" {
				svc.Body = y.Body
			}
			if y.TimeoutMS > 0 {
				svc.Timeout = time.Duration(y.TimeoutMS) * time.Millisecond
			}
			if len(y.ExpectedStatuses) > 0 {
				svc.ExpectedStatuses = y.ExpectedStatuses
			}
			if y.Retries > 0 {
				svc.Retries = y.Retries
			}
			if y.RetryDelayMS > 0 {
				svc.RetryBaseDelay = time.Duration(y.RetryDelayMS) * time.Millisecond
			}
		}
	}

	// Environment fallback for recognized ids not already resolved from the
	// descriptor file or YAML sibling.
	authHeader := config.GetEnv("SERVICE_AUTH_HEADER", "x-api-key")
	if envKey := config.GetEnv("SERVICE_API_KEY", ""); envKey != "" {
		apiKey = envKey
	}

	for _, id := range recognizedIDs {
		envURL := os.Getenv(envVarName(id))
		svc, ok := services[id]
		if !ok {
			if envURL == "" {
				continue
			}
			svc = &ServiceConfig{ID: id, Name: id}
			services[id] = svc
		}
		if svc.URL == "" {
			svc.URL = envURL
		}
		if svc.Name == "" {
			svc.Name = id
		}
	}

	// MONITORING_INTERVAL, REQUEST_TIMEOUT and RETRY_DELAY are operator-facing
	// millisecond integers, not Go duration strings.
	globalTimeout := config.GetEnvMillis("REQUEST_TIMEOUT", defaultTimeout)
	globalRetries := config.GetEnvInt("MAX_RETRIES", defaultRetries)
	globalRetryDelay := config.GetEnvMillis("RETRY_DELAY", defaultRetryDelay)
	cycleInterval := config.GetEnvMillis("MONITORING_INTERVAL", defaultCycleInterval)

	resolved := make([]ServiceConfig, 0, len(services))
	for _, svc := range services {
		if svc.Name == "" {
			svc.Name = svc.ID
		}
		if svc.Method == "" {
			svc.Method = defaultMethodFor(svc.Body)
		}
		if svc.Timeout == 0 {
			svc.Timeout = globalTimeout
		}
		if svc.Retries == 0 {
			svc.Retries = globalRetries
		}
		if svc.RetryBaseDelay == 0 {
			svc.RetryBaseDelay = globalRetryDelay
		}
		if len(svc.ExpectedStatuses) == 0 {
			svc.ExpectedStatuses = []int{200}
		}
		if svc.Headers == nil {
			svc.Headers = map[string]string{}
		}
		svc.CycleInterval = cycleInterval
		if apiKey != "" {
			if _, ok := svc.Headers[authHeader]; !ok {
				svc.Headers[authHeader] = apiKey
			}
		}
		resolved = append(resolved, *svc)
	}

	if err := validateServices(resolved, cycleInterval); err != nil {
		return nil, err
	}

	return &Registry{services: resolved, cycleInterval: cycleInterval}, nil
}

// Load returns the resolved service list.
func (r *Registry) Load() []ServiceConfig {
	return r.services
}

// CycleInterval returns the resolved MONITORING_INTERVAL that drives the
// scheduler's cadence.
func (r *Registry) CycleInterval() time.Duration {
	return r.cycleInterval
}

// Get returns one service by id.
func (r *Registry) Get(id string) (ServiceConfig, bool) {
	for _, svc := range r.services {
		if svc.ID == id {
			return svc, true
		}
	}
	return ServiceConfig{}, false
}

func defaultMethodFor(body string) string {
	if body != "" {
		return "POST"
	}
	return "GET"
}

func envVarName(serviceID string) string {
	return strings.ToUpper(strings.ReplaceAll(serviceID, "-", "_")) + "_URL"
}

// parseDescriptorFile reads simple KEY=value lines. Recognized shapes:
// x-api-key=<hex>, <SERVICE>_URL=<absolute-url>. Unknown keys are ignored.
func parseDescriptorFile(path string) ([]descriptorEntry, string, error) {
	if path == "" {
		return nil, "", nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", nil
		}
		return nil, "", err
	}
	defer f.Close()

	var entries []descriptorEntry
	var apiKey string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case strings.EqualFold(key, "x-api-key"):
			apiKey = value
		case strings.HasSuffix(strings.ToUpper(key), "_URL"):
			id := strings.ToLower(strings.TrimSuffix(strings.ToUpper(key), "_URL"))
			id = strings.ReplaceAll(id, "_", "-")
			entries = append(entries, descriptorEntry{id: id, url: value})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, "", err
	}

	return entries, apiKey, nil
}

func parseYAMLOverride(path string) ([]struct {
	ID               string            `yaml:"id"`
	Name             string            `yaml:"name"`
	URL              string            `yaml:"url"`
	Method           string            `yaml:"method"`
	Headers          map[string]string `yaml:"headers"`
	Body             string            `yaml:"body"`
	TimeoutMS        int               `yaml:"timeout_ms"`
	ExpectedStatuses []int             `yaml:"expected_statuses"`
	Retries          int               `yaml:"retries"`
	RetryDelayMS     int               `yaml:"retry_delay_ms"`
}, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var parsed yamlOverride
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	return parsed.Services, nil
}

// validateServices fail-fasts on any invalid ServiceConfig, aggregating every
// failure rather than stopping at the first.
func validateServices(services []ServiceConfig, cycleInterval time.Duration) error {
	var problems []string

	if cycleInterval < minCycleInterval {
		problems = append(problems, fmt.Sprintf("cycle interval %s is below the %s minimum", cycleInterval, minCycleInterval))
	}

	for _, svc := range services {
		if svc.ID == "" {
			problems = append(problems, "service with empty id")
			continue
		}
		if _, err := url.ParseRequestURI(svc.URL); err != nil {
			problems = append(problems, fmt.Sprintf("%s: invalid url %q: %v", svc.ID, svc.URL, err))
		}
		if svc.Timeout <= 0 {
			problems = append(problems, fmt.Sprintf("%s: timeout must be > 0", svc.ID))
		}
		if svc.Retries < 0 {
			problems = append(problems, fmt.Sprintf("%s: retries must be >= 0", svc.ID))
		}
		if svc.Timeout >= cycleInterval {
			problems = append(problems, fmt.Sprintf("%s: timeout %s must be less than cycle interval %s", svc.ID, svc.Timeout, cycleInterval))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("endpoint registry validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}
