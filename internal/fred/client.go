package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	"github.com/econwatch/recession-radar/internal/indicator"
	"github.com/econwatch/recession-radar/pkg/httputil"
	"github.com/econwatch/recession-radar/pkg/logger"
)

const dateLayout = "2006-01-02"

// Client fetches observation series from the FRED API.
type Client struct {
	http             *httputil.Client
	logger           *logger.Logger
	baseURL          string
	apiKey           string
	observationStart string
}

// observationsResponse mirrors the series/observations payload. Values
// arrive as strings; "." marks an observation the source has no value for.
type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// NewClient creates a FRED API client.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL, apiKey, observationStart string) *Client {
	return &Client{
		http:             httpClient,
		logger:           log.WithField("module", "fred"),
		baseURL:          baseURL,
		apiKey:           apiKey,
		observationStart: observationStart,
	}
}

// Observations fetches the full observation history for seriesID starting
// at the configured observation start date. The returned series is sorted,
// deduplicated upstream, and validated; "." values become absent
// observations rather than being dropped, so gaps stay visible to
// normalization.
func (c *Client) Observations(ctx context.Context, seriesID string) (*indicator.Series, error) {
	reqURL, err := c.buildURL(seriesID)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fred: series %s: %w", seriesID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return nil, &RateLimitedError{SeriesID: seriesID}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{
			SeriesID:   seriesID,
			StatusCode: resp.StatusCode,
			Reason:     string(body),
		}
	}

	var payload observationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &UpstreamError{SeriesID: seriesID, Reason: fmt.Sprintf("decode response: %v", err)}
	}

	if len(payload.Observations) == 0 {
		return nil, &EmptySeriesError{SeriesID: seriesID}
	}

	series := &indicator.Series{
		SeriesID:     seriesID,
		Observations: make([]indicator.Observation, 0, len(payload.Observations)),
	}

	for _, obs := range payload.Observations {
		date, err := time.ParseInLocation(dateLayout, obs.Date, time.UTC)
		if err != nil {
			return nil, &UpstreamError{SeriesID: seriesID, Reason: fmt.Sprintf("bad observation date %q", obs.Date)}
		}

		value := null.Float{}
		if obs.Value != "." {
			v, err := strconv.ParseFloat(obs.Value, 64)
			if err != nil {
				return nil, &UpstreamError{SeriesID: seriesID, Reason: fmt.Sprintf("bad observation value %q at %s", obs.Value, obs.Date)}
			}
			value = null.FloatFrom(v)
		}

		series.Observations = append(series.Observations, indicator.Observation{
			Date:  date,
			Value: value,
		})
	}

	if err := series.Validate(); err != nil {
		return nil, &UpstreamError{SeriesID: seriesID, Reason: err.Error()}
	}

	c.logger.WithFields(map[string]interface{}{
		"series":       seriesID,
		"observations": series.Len(),
	}).Debug("Fetched series")

	return series, nil
}

func (c *Client) buildURL(seriesID string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("fred: parse base URL: %w", err)
	}
	base = base.JoinPath("series", "observations")

	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	q.Set("observation_start", c.observationStart)
	base.RawQuery = q.Encode()

	return base.String(), nil
}
