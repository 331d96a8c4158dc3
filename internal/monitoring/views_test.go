package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeUptimePercentage_AllOperational(t *testing.T) {
	buckets := []DailyUptimeBucket{
		{Bucket: BucketOperational},
		{Bucket: BucketOperational},
	}
	assert.Equal(t, 99.99, computeUptimePercentage(buckets))
}

func TestComputeUptimePercentage_MixedBuckets(t *testing.T) {
	buckets := []DailyUptimeBucket{
		{Bucket: BucketOperational},
		{Bucket: BucketOperational},
		{Bucket: BucketPartialOutage},
		{Bucket: BucketMajorOutage},
	}
	// (1 + 1 + 0.75 + 0) / 4 * 100 = 68.75
	assert.Equal(t, 68.75, computeUptimePercentage(buckets))
}

func TestComputeUptimePercentage_ExcludesNoDataAndMaintenance(t *testing.T) {
	buckets := []DailyUptimeBucket{
		{Bucket: BucketOperational},
		{Bucket: BucketNoData},
		{Bucket: BucketMaintenanceExempt},
	}
	assert.Equal(t, 99.99, computeUptimePercentage(buckets))
}

func TestComputeUptimePercentage_NoCountedDays(t *testing.T) {
	buckets := []DailyUptimeBucket{
		{Bucket: BucketNoData},
		{Bucket: BucketMaintenanceExempt},
	}
	assert.Equal(t, float64(0), computeUptimePercentage(buckets))
}

func TestScoreForBucket(t *testing.T) {
	assert.Equal(t, 1.0, scoreForBucket(BucketOperational))
	assert.Equal(t, 0.75, scoreForBucket(BucketPartialOutage))
	assert.Equal(t, 0.0, scoreForBucket(BucketMajorOutage))
	assert.Equal(t, 0.0, scoreForBucket(BucketNoData))
}

func TestWeeklyAverages(t *testing.T) {
	daily := []float64{1, 1, 1, 1, 1, 1, 1, 0, 0, 0}
	weekly := weeklyAverages(daily)
	assert.Len(t, weekly, 2)
	assert.Equal(t, 1.0, weekly[0])
	assert.Equal(t, 0.0, weekly[1])
}

func TestMean(t *testing.T) {
	assert.Equal(t, 2.0, mean([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, mean(nil))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 12.35, round2(12.3456))
	assert.Equal(t, 12.34, round2(12.3449))
}
