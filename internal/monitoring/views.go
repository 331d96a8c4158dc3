package monitoring

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/statuswatch/statuswatch-core/internal/cache"
)

// =============================================================================
// DERIVED-VIEW READERS (read path)
// Pure functions over the persisted tables, cached behind Redis via
// cache.CachedProvider since each is a multi-row scan recomputed at most
// once per TTL window.
// =============================================================================

// Views serves the derived-view readers, optionally cache-backed.
type Views struct {
	repository *Repository
	cache      cache.Cache
	keys       *cache.CacheKeys
	ttl        time.Duration
}

// NewViews builds a derived-view reader set. c may be nil, in which case
// every read recomputes directly against the repository.
func NewViews(repository *Repository, c cache.Cache, keys *cache.CacheKeys, ttl time.Duration) *Views {
	return &Views{repository: repository, cache: c, keys: keys, ttl: ttl}
}

// MonthGrid is one month's entry in the monthly_grid reader's response.
type MonthGrid struct {
	Year    int            `json:"year"`
	Month   int            `json:"month"`
	Uptime  float64        `json:"uptime_percentage"`
	Days    []UptimeBucket `json:"days"`
}

// SLACompliance is the sla_compliance reader's response.
type SLACompliance struct {
	Compliant              bool    `json:"compliant"`
	CurrentUptime          float64 `json:"current_uptime"`
	DowntimeMinutes        float64 `json:"downtime_minutes"`
	AllowedDowntimeMinutes float64 `json:"allowed_downtime_minutes"`
	BreachMinutes          float64 `json:"breach_minutes"`
}

// TrendDirection is the trend reader's classification.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// Trend is the trend reader's response.
type Trend struct {
	Direction      TrendDirection `json:"direction"`
	DeltaPercent   float64        `json:"delta_percent"`
	WeeklyAverages []float64      `json:"weekly_averages"`
	DailyUptimes   []float64      `json:"daily_uptimes"`
}

// ServiceUptimePercentage scores the last `days` DailyUptimeBuckets:
// o=1.0, po=0.75, mo=0.0; nd/e are excluded from both numerator and
// denominator. Values >= 99.95 are reported as the "nice number" 99.99.
func (v *Views) ServiceUptimePercentage(ctx context.Context, serviceID string, days int) (float64, error) {
	if _, err := v.repository.GetService(ctx, serviceID); err != nil {
		return 0, err
	}

	fetch := func(ctx context.Context) (float64, error) {
		buckets, err := v.repository.UptimeBucketsSince(ctx, serviceID, windowStart(days))
		if err != nil {
			return 0, err
		}
		return computeUptimePercentage(buckets), nil
	}

	if v.cache == nil {
		return fetch(ctx)
	}
	key := v.keys.UptimePercentage(serviceID, days)
	provider := cache.NewCachedProvider(v.cache, key, v.ttl, fetch)
	return provider.Get(ctx)
}

func computeUptimePercentage(buckets []DailyUptimeBucket) float64 {
	var sum float64
	var counted int
	for _, b := range buckets {
		switch b.Bucket {
		case BucketOperational:
			sum += 1.0
			counted++
		case BucketPartialOutage:
			sum += 0.75
			counted++
		case BucketMajorOutage:
			counted++
		}
	}
	if counted == 0 {
		return 0
	}
	pct := round2(sum / float64(counted) * 100)
	if pct >= 99.95 {
		return 99.99
	}
	return pct
}

// MonthlyGrid returns, for each of the last `months` months anchored on
// anchor (or now if zero), the per-day bucket sequence and aggregate
// uptime%.
func (v *Views) MonthlyGrid(ctx context.Context, serviceID string, months int, anchor time.Time) ([]MonthGrid, error) {
	if _, err := v.repository.GetService(ctx, serviceID); err != nil {
		return nil, err
	}
	if anchor.IsZero() {
		anchor = time.Now().UTC()
	}

	fetch := func(ctx context.Context) ([]MonthGrid, error) {
		earliestMonth := anchor.AddDate(0, -(months - 1), 0)
		since := time.Date(earliestMonth.Year(), earliestMonth.Month(), 1, 0, 0, 0, 0, time.UTC)

		buckets, err := v.repository.UptimeBucketsSince(ctx, serviceID, since)
		if err != nil {
			return nil, err
		}

		byDay := make(map[string]UptimeBucket, len(buckets))
		for _, b := range buckets {
			byDay[b.Date.Format("2006-01-02")] = b.Bucket
		}

		grids := make([]MonthGrid, 0, months)
		for m := months - 1; m >= 0; m-- {
			monthAnchor := anchor.AddDate(0, -m, 0)
			year, month := monthAnchor.Year(), int(monthAnchor.Month())
			firstOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			daysInMonth := firstOfMonth.AddDate(0, 1, -1).Day()

			days := make([]UptimeBucket, 0, daysInMonth)
			var monthBuckets []DailyUptimeBucket
			for d := 1; d <= daysInMonth; d++ {
				day := time.Date(year, time.Month(month), d, 0, 0, 0, 0, time.UTC)
				bucket, ok := byDay[day.Format("2006-01-02")]
				if !ok {
					bucket = BucketNoData
				}
				days = append(days, bucket)
				monthBuckets = append(monthBuckets, DailyUptimeBucket{Bucket: bucket})
			}

			grids = append(grids, MonthGrid{
				Year:   year,
				Month:  month,
				Uptime: computeUptimePercentage(monthBuckets),
				Days:   days,
			})
		}

		return grids, nil
	}

	if v.cache == nil {
		return fetch(ctx)
	}
	key := v.keys.MonthlyGrid(serviceID, months)
	provider := cache.NewCachedProvider(v.cache, key, v.ttl, fetch)
	return provider.Get(ctx)
}

// SLACompliance computes compliance against target over the trailing `days`
// window. total_minutes = days*1440; allowed = total_minutes*(100-target)/100.
func (v *Views) SLACompliance(ctx context.Context, serviceID string, target float64, days int) (SLACompliance, error) {
	if _, err := v.repository.GetService(ctx, serviceID); err != nil {
		return SLACompliance{}, err
	}

	fetch := func(ctx context.Context) (SLACompliance, error) {
		end := time.Now().UTC()
		start := end.AddDate(0, 0, -days)

		failed, err := v.repository.FailedCheckCount(ctx, serviceID, start, end)
		if err != nil {
			return SLACompliance{}, err
		}

		buckets, err := v.repository.UptimeBucketsSince(ctx, serviceID, start)
		if err != nil {
			return SLACompliance{}, err
		}

		totalMinutes := float64(days) * 1440
		allowed := totalMinutes * (100 - target) / 100
		downtimeMinutes := float64(failed) // 1-per-minute sampling assumption

		currentUptime := computeUptimePercentage(buckets)
		if len(buckets) == 0 {
			return SLACompliance{Compliant: false, CurrentUptime: 0}, nil
		}

		breach := math.Max(0, downtimeMinutes-allowed)

		return SLACompliance{
			Compliant:              downtimeMinutes <= allowed,
			CurrentUptime:          currentUptime,
			DowntimeMinutes:        downtimeMinutes,
			AllowedDowntimeMinutes: round2(allowed),
			BreachMinutes:          round2(breach),
		}, nil
	}

	if v.cache == nil {
		return fetch(ctx)
	}
	key := v.keys.SLACompliance(serviceID, days) + ":" + strconv.FormatFloat(target, 'f', -1, 64)
	provider := cache.NewCachedProvider(v.cache, key, v.ttl, fetch)
	return provider.Get(ctx)
}

// Trend splits the window into weekly averages and compares the mean of the
// first half against the second half: improving if delta > +0.5, declining
// if delta < -0.5, else stable.
func (v *Views) Trend(ctx context.Context, serviceID string, days int) (Trend, error) {
	if _, err := v.repository.GetService(ctx, serviceID); err != nil {
		return Trend{}, err
	}

	fetch := func(ctx context.Context) (Trend, error) {
		buckets, err := v.repository.UptimeBucketsSince(ctx, serviceID, windowStart(days))
		if err != nil {
			return Trend{}, err
		}
		if len(buckets) == 0 {
			return Trend{Direction: TrendStable}, nil
		}

		daily := make([]float64, len(buckets))
		for i, b := range buckets {
			daily[i] = scoreForBucket(b.Bucket)
		}

		weekly := weeklyAverages(daily)
		if len(weekly) < 2 {
			return Trend{Direction: TrendStable, WeeklyAverages: weekly, DailyUptimes: daily}, nil
		}

		mid := len(weekly) / 2
		firstHalf := mean(weekly[:mid])
		secondHalf := mean(weekly[mid:])
		delta := round2((secondHalf - firstHalf) * 100)

		direction := TrendStable
		if delta > 0.5 {
			direction = TrendImproving
		} else if delta < -0.5 {
			direction = TrendDeclining
		}

		return Trend{
			Direction:      direction,
			DeltaPercent:   delta,
			WeeklyAverages: weekly,
			DailyUptimes:   daily,
		}, nil
	}

	if v.cache == nil {
		return fetch(ctx)
	}
	key := v.keys.Trend(serviceID, days)
	provider := cache.NewCachedProvider(v.cache, key, v.ttl, fetch)
	return provider.Get(ctx)
}

// GetServiceHistory is a supplemented feature (§12): a raw time-ordered
// export of a service's last `days` of ResponseTimeSample rows, exposed
// directly on the thin read API. Trend and MonthlyGrid read the daily
// uptime buckets instead, not this export. Cached like the other
// derived-view readers.
func (v *Views) GetServiceHistory(ctx context.Context, serviceID string, days int) ([]ResponseTimeSample, error) {
	if _, err := v.repository.GetService(ctx, serviceID); err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context) ([]ResponseTimeSample, error) {
		return v.repository.ServiceHistory(ctx, serviceID, windowStart(days), time.Now().UTC())
	}

	if v.cache == nil {
		return fetch(ctx)
	}
	key := v.keys.ServiceHistory(serviceID, days)
	provider := cache.NewCachedProvider(v.cache, key, v.ttl, fetch)
	return provider.Get(ctx)
}

// SystemStatusSnapshot reduces each service's latest DailyUptimeBucket into
// a SystemStatus, cached like the other derived-view readers. Callers that
// need an always-fresh snapshot (the maintenance loop's daily pass) use the
// unexported computeSystemStatusSnapshot directly instead.
func (v *Views) SystemStatusSnapshot(ctx context.Context) (SystemStatus, error) {
	fetch := func(ctx context.Context) (SystemStatus, error) {
		return computeSystemStatusSnapshot(ctx, v.repository)
	}

	if v.cache == nil {
		return fetch(ctx)
	}
	key := v.keys.SystemStatus()
	provider := cache.NewCachedProvider(v.cache, key, v.ttl, fetch)
	return provider.Get(ctx)
}

// computeSystemStatusSnapshot reduces each service's latest
// DailyUptimeBucket: any mo -> outage; else any po -> degraded; else
// operational.
func computeSystemStatusSnapshot(ctx context.Context, repository *Repository) (SystemStatus, error) {
	buckets, err := repository.LatestUptimeBuckets(ctx)
	if err != nil {
		return SystemStatus{}, err
	}
	services, err := repository.ListServices(ctx)
	if err != nil {
		return SystemStatus{}, err
	}

	latest := make(map[string]DailyUptimeBucket, len(buckets))
	for _, b := range buckets {
		latest[b.ServiceID] = b
	}

	snapshot := SystemStatus{
		GeneratedAt:   time.Now().UTC(),
		TotalServices: len(services),
	}

	var hasMajorOutage, hasPartialOutage bool

	for _, svc := range services {
		bucket, ok := latest[svc.ID]
		status := ServiceStatusUnknown
		if ok {
			switch bucket.Bucket {
			case BucketMajorOutage:
				status = ServiceStatusDown
				snapshot.DownServices++
				hasMajorOutage = true
			case BucketPartialOutage:
				status = ServiceStatusDegraded
				snapshot.DegradedServices++
				hasPartialOutage = true
			case BucketOperational:
				status = ServiceStatusUp
				snapshot.UpServices++
			}
		}
		snapshot.Services = append(snapshot.Services, ServiceStatusSummary{
			ServiceID: svc.ID,
			Name:      svc.Name,
			Status:    status,
			LastCheck: svc.UpdatedAt,
		})
	}

	switch {
	case hasMajorOutage:
		snapshot.OverallStatus = OverallStatusOutage
		snapshot.Message = "one or more services are in a major outage"
	case hasPartialOutage:
		snapshot.OverallStatus = OverallStatusDegraded
		snapshot.Message = "one or more services are degraded"
	default:
		snapshot.OverallStatus = OverallStatusOperational
		snapshot.Message = "all services operational"
	}

	return snapshot, nil
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func windowStart(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)
}

func scoreForBucket(b UptimeBucket) float64 {
	switch b {
	case BucketOperational:
		return 1.0
	case BucketPartialOutage:
		return 0.75
	default:
		return 0.0
	}
}

func weeklyAverages(daily []float64) []float64 {
	var weeks []float64
	for i := 0; i < len(daily); i += 7 {
		end := i + 7
		if end > len(daily) {
			end = len(daily)
		}
		weeks = append(weeks, mean(daily[i:end]))
	}
	return weeks
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
