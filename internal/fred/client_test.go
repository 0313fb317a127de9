package fred

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/econwatch/recession-radar/pkg/httputil"
	"github.com/econwatch/recession-radar/pkg/logger"
)

func newTestClient(serverURL string) *Client {
	log := logger.NewNop()
	httpClient := httputil.New(log).DisableRetry()
	return NewClient(httpClient, log, serverURL, "test-key", "1980-01-01")
}

func TestObservations(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"series_id":         r.URL.Query().Get("series_id"),
			"api_key":           r.URL.Query().Get("api_key"),
			"file_type":         r.URL.Query().Get("file_type"),
			"observation_start": r.URL.Query().Get("observation_start"),
		}
		w.Write([]byte(`{"observations":[
			{"date":"2024-01-01","value":"1.25"},
			{"date":"2024-02-01","value":"."},
			{"date":"2024-03-01","value":"-0.40"}
		]}`))
	}))
	defer server.Close()

	series, err := newTestClient(server.URL).Observations(context.Background(), "T10Y2Y")
	require.NoError(t, err)

	assert.Equal(t, "T10Y2Y", gotQuery["series_id"])
	assert.Equal(t, "test-key", gotQuery["api_key"])
	assert.Equal(t, "json", gotQuery["file_type"])
	assert.Equal(t, "1980-01-01", gotQuery["observation_start"])

	assert.Equal(t, "T10Y2Y", series.SeriesID)
	require.Equal(t, 3, series.Len())
	assert.Equal(t, 1.25, series.Observations[0].Value.Float64)
	assert.False(t, series.Observations[1].Value.Valid)
	assert.Equal(t, -0.40, series.Observations[2].Value.Float64)
}

func TestObservationsRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Observations(context.Background(), "UNRATE")

	var rateErr *RateLimitedError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "UNRATE", rateErr.SeriesID)
}

func TestObservationsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_message":"Bad Request. The series does not exist."}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Observations(context.Background(), "NOPE")

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusBadRequest, upErr.StatusCode)
	assert.Contains(t, upErr.Reason, "does not exist")
}

func TestObservationsEmptySeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"observations":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Observations(context.Background(), "GDPC1")

	var emptyErr *EmptySeriesError
	assert.ErrorAs(t, err, &emptyErr)
}

func TestObservationsRejectsUnorderedDates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"observations":[
			{"date":"2024-03-01","value":"1.0"},
			{"date":"2024-01-01","value":"2.0"}
		]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Observations(context.Background(), "SAHMREALTIME")

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Zero(t, upErr.StatusCode)
}

func TestObservationsRejectsMalformedValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"observations":[{"date":"2024-01-01","value":"n/a"}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Observations(context.Background(), "ICSA")

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Contains(t, upErr.Reason, "n/a")
}

func TestObservationsContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"observations":[{"date":"2024-01-01","value":"1.0"}]}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).Observations(ctx, "UNRATE")
	assert.True(t, errors.Is(err, context.Canceled))
}
