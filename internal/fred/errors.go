package fred

import "fmt"

// UpstreamError reports a non-retryable upstream failure: a non-2xx status
// other than 429, an unparseable body, or observations that violate the
// series contract.
type UpstreamError struct {
	SeriesID   string
	StatusCode int
	Reason     string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fred: series %s: upstream status %d: %s", e.SeriesID, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("fred: series %s: %s", e.SeriesID, e.Reason)
}

// RateLimitedError reports a 429 from the upstream. Callers may retry
// after backing off.
type RateLimitedError struct {
	SeriesID string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("fred: series %s: rate limited", e.SeriesID)
}

// EmptySeriesError reports a well-formed response that carried zero
// observations.
type EmptySeriesError struct {
	SeriesID string
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("fred: series %s: no observations returned", e.SeriesID)
}
