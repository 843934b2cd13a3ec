package geocoding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"stores-service/internal/models"
)

// BackoffPolicy maps a retry attempt (0-based) to the delay before that
// attempt. Kept as a pure function so retry behavior is testable without
// real time delays.
type BackoffPolicy func(attempt int) time.Duration

// ExponentialBackoff doubles the base delay per attempt
func ExponentialBackoff(base time.Duration) BackoffPolicy {
	return func(attempt int) time.Duration {
		return base * (1 << attempt)
	}
}

// BatcherConfig tunes the batcher's rate limiting and retry behavior
type BatcherConfig struct {
	BatchSize   int           // requests per sub-batch
	BatchDelay  time.Duration // pause between sub-batches
	Concurrency int           // concurrent requests within a sub-batch
	MaxRetries  int           // retries per failing request
	Backoff     BackoffPolicy
}

// Batcher fans geocode requests out to a provider in rate-limited
// sub-batches with bounded concurrency and per-request retries
type Batcher struct {
	geocoder    Geocoder
	batchSize   int
	batchDelay  time.Duration
	concurrency int
	maxRetries  int
	backoff     BackoffPolicy
	sleep       func(time.Duration) // injectable for tests
	logger      *logrus.Entry
}

// NewBatcher creates a batcher. Zero config values fall back to safe
// defaults.
func NewBatcher(geocoder Geocoder, cfg BatcherConfig, logger *logrus.Logger) *Batcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff == nil {
		cfg.Backoff = ExponentialBackoff(200 * time.Millisecond)
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Batcher{
		geocoder:    geocoder,
		batchSize:   cfg.BatchSize,
		batchDelay:  cfg.BatchDelay,
		concurrency: cfg.Concurrency,
		maxRetries:  cfg.MaxRetries,
		backoff:     cfg.Backoff,
		sleep:       time.Sleep,
		logger:      logger.WithField("component", "geocoding-batcher"),
	}
}

// BatchGeocode resolves every request, returning results in the same
// length and order as the input. Individual failures never abort the
// batch: they yield a failed result for that index. Coordinates are
// accepted only when both values are finite and in range; otherwise the
// result is failed even if the provider reported success.
func (b *Batcher) BatchGeocode(ctx context.Context, requests []models.GeocodeRequest) []models.GeocodeResult {
	results := make([]models.GeocodeResult, len(requests))

	for start := 0; start < len(requests); start += b.batchSize {
		end := start + b.batchSize
		if end > len(requests) {
			end = len(requests)
		}

		if start > 0 && b.batchDelay > 0 {
			b.sleep(b.batchDelay)
		}

		b.geocodeSubBatch(ctx, requests, results, start, end)
	}

	return results
}

func (b *Batcher) geocodeSubBatch(ctx context.Context, requests []models.GeocodeRequest, results []models.GeocodeResult, start, end int) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, b.concurrency)

	for i := start; i < end; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = b.geocodeWithRetry(ctx, requests[i])
		}(i)
	}

	wg.Wait()
}

func (b *Batcher) geocodeWithRetry(ctx context.Context, req models.GeocodeRequest) models.GeocodeResult {
	var lastErr error

	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			b.sleep(b.backoff(attempt - 1))
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		result, err := b.geocoder.Geocode(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}

		if result.Latitude == nil || result.Longitude == nil ||
			!models.ValidCoordinates(*result.Latitude, *result.Longitude) {
			// Provider "success" with unusable coordinates is still a miss
			return models.GeocodeResult{
				Status:   models.GeocodeStatusFailed,
				Provider: result.Provider,
				Error:    "provider returned out-of-range coordinates",
			}
		}

		return *result
	}

	b.logger.WithError(lastErr).WithField("address", req.Address).Debug("Geocode request failed after retries")
	return models.GeocodeResult{
		Status: models.GeocodeStatusFailed,
		Error:  fmt.Sprintf("geocoding failed: %v", lastErr),
	}
}
